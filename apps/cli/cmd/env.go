package cmd

import (
	"errors"
	"fmt"

	"github.com/abdul-hamid-achik/hitdesk/packages/state"
	"github.com/spf13/cobra"
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Inspect and switch environments",
}

var envShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the active environment and its variables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		a.loadIfSignedIn(cmd.Context())
		snap := a.state.Environment()
		if outputJSON(cmd) {
			return encodeJSON(cmd, map[string]any{"name": snap.Name(), "variables": snap.Values()})
		}
		a.console.FormatEnvironment(snap)
		return nil
	},
}

var envListCmd = &cobra.Command{
	Use:   "list",
	Short: "List environments of the active workspace",
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
			return encodeJSON(cmd, a.state.Environments())
		}
		a.console.FormatEnvironments(a.state.Environments(), a.state.EnvironmentName())
		return nil
	},
}

var envUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Make an environment of the active workspace active",
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
		if err := a.state.UseEnvironment(args[0]); err != nil {
			if errors.Is(err, state.ErrEnvironmentNotFound) {
				return withExitCode(ExitUsageError, err)
			}
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Environment: %s (%d variables)\n", a.state.EnvironmentName(), a.state.Environment().Len())
		return nil
	},
}

func init() {
	addOutputFlag(envShowCmd)
	addOutputFlag(envListCmd)
	envCmd.AddCommand(envShowCmd, envListCmd, envUseCmd)
}
