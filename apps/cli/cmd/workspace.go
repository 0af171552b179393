package cmd

import (
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/hitdesk/packages/backend"
	"github.com/spf13/cobra"
)

var descriptionFlag string

var workspaceCmd = &cobra.Command{
	Use:     "workspace",
	Aliases: []string{"ws"},
	Short:   "List, switch and create workspaces",
}

var workspaceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List workspaces; the active one is marked",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.loadSignedIn(cmd.Context()); err != nil {
			return err
		}
		if outputJSON(cmd) {
			return encodeJSON(cmd, a.state.Workspaces())
		}
		a.console.FormatWorkspaces(a.state.Workspaces(), a.state.ActiveWorkspaceID())
		return nil
	},
}

var workspaceUseCmd = &cobra.Command{
	Use:   "use <id|name>",
	Short: "Make a workspace active",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.loadSignedIn(cmd.Context()); err != nil {
			return err
		}
		ws, ok := findWorkspace(a.state.Workspaces(), args[0])
		if !ok {
			return withExitCode(ExitUsageError, fmt.Errorf("workspace not found: %s", args[0]))
		}

		a.state.SelectWorkspace(ws.ID)
		if err := a.state.LoadWorkspaceScoped(cmd.Context()); err != nil {
			return fmt.Errorf("switched to %s but could not load it: %w", ws.Name, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Active workspace: %s (%s)\n", ws.Name, ws.ID)
		fmt.Fprintf(cmd.OutOrStdout(), "Environment: %s\n", a.state.EnvironmentName())
		return nil
	},
}

var workspaceCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a workspace and make it active",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.loadSignedIn(cmd.Context()); err != nil {
			return err
		}
		ws, err := a.backend.CreateWorkspace(cmd.Context(), args[0], descriptionFlag)
		if err != nil {
			return authError(fmt.Errorf("create workspace: %w", err))
		}
		if ws.ID != "" {
			a.state.SelectWorkspace(ws.ID)
		}
		if err := a.state.RefreshWorkspaces(cmd.Context()); err != nil {
			logger.Warn("could not refresh workspaces", "error", err)
		}
		if err := a.state.LoadWorkspaceScoped(cmd.Context()); err != nil {
			logger.Warn("could not load workspace data", "error", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created workspace %s (%s)\n", ws.Name, ws.ID)
		return nil
	},
}

func init() {
	workspaceCreateCmd.Flags().StringVar(&descriptionFlag, "description", "", "Workspace description")
	addOutputFlag(workspaceListCmd)
	workspaceCmd.AddCommand(workspaceListCmd, workspaceUseCmd, workspaceCreateCmd)
}

// findWorkspace matches an id exactly or a name case-insensitively.
func findWorkspace(list []backend.Workspace, ref string) (backend.Workspace, bool) {
	for _, ws := range list {
		if ws.ID == ref {
			return ws, true
		}
	}
	for _, ws := range list {
		if strings.EqualFold(ws.Name, ref) {
			return ws, true
		}
	}
	return backend.Workspace{}, false
}
