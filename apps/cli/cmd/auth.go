package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	emailFlag    string
	passwordFlag string
	nameFlag     string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the workspace backend",
	Long: `Sign in and store the token in the data directory.

Examples:
  hitdesk login --email me@example.com
  HITDESK_PASSWORD=secret hitdesk login --email me@example.com`,
	Args: cobra.NoArgs,
	RunE: loginCommand,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a backend account",
	Args:  cobra.NoArgs,
	RunE:  registerCommand,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored token and active workspace",
	Args:  cobra.NoArgs,
	RunE:  logoutCommand,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user and active workspace",
	Args:  cobra.NoArgs,
	RunE:  whoamiCommand,
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().StringVar(&emailFlag, "email", getEnvString("HITDESK_EMAIL", ""), "Account email (env: HITDESK_EMAIL)")
		c.Flags().StringVar(&passwordFlag, "password", "", "Account password (env: HITDESK_PASSWORD, prompted when empty)")
	}
	registerCmd.Flags().StringVar(&nameFlag, "name", "", "Display name")
}

// credentials fills email and password from flags, the environment or stdin.
func credentials(cmd *cobra.Command) (string, string, error) {
	email := strings.TrimSpace(emailFlag)
	password := passwordFlag
	if password == "" {
		password = os.Getenv("HITDESK_PASSWORD")
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	if email == "" {
		fmt.Fprint(cmd.OutOrStdout(), "Email: ")
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return "", "", fmt.Errorf("read email: %w", err)
		}
		email = strings.TrimSpace(line)
	}
	if password == "" {
		fmt.Fprint(cmd.OutOrStdout(), "Password: ")
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return "", "", fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if email == "" || password == "" {
		return "", "", withExitCode(ExitUsageError, fmt.Errorf("email and password are required"))
	}
	return email, password, nil
}

func loginCommand(cmd *cobra.Command, args []string) error {
	email, password, err := credentials(cmd)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	user, err := a.state.Login(cmd.Context(), email, password)
	if err != nil {
		return withExitCode(ExitAuthError, fmt.Errorf("login failed: %w", err))
	}
	if err := a.loadSignedIn(cmd.Context()); err != nil {
		logger.Warn("signed in but could not load workspaces", "error", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s <%s>\n", user.Name, user.Email)
	if ws := a.state.ActiveWorkspaceID(); ws != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Active workspace: %s\n", ws)
	}
	return nil
}

func registerCommand(cmd *cobra.Command, args []string) error {
	email, password, err := credentials(cmd)
	if err != nil {
		return err
	}
	name := strings.TrimSpace(nameFlag)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}

	a, err := newApp(cmd.Context(), appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.backend.Register(cmd.Context(), name, email, password); err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Registered %s. Run `hitdesk login` to sign in.\n", email)
	return nil
}

func logoutCommand(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.state.Logout(); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
	return nil
}

func whoamiCommand(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.loadSignedIn(cmd.Context()); err != nil {
		return err
	}
	a.console.FormatUser(a.state.User())
	if ws := activeWorkspaceName(a); ws != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Workspace: %s\n", ws)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Environment: %s\n", a.state.EnvironmentName())
	return nil
}

func activeWorkspaceName(a *app) string {
	id := a.state.ActiveWorkspaceID()
	for _, ws := range a.state.Workspaces() {
		if ws.ID == id {
			return ws.Name
		}
	}
	return id
}
