package cmd

import (
	"github.com/spf13/cobra"
)

var collectionCmd = &cobra.Command{
	Use:     "collection",
	Aliases: []string{"collections"},
	Short:   "Browse collections of the active workspace",
}

var collectionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List collections and their requests",
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
			return encodeJSON(cmd, a.state.Collections())
		}
		a.console.FormatCollections(a.state.Collections())
		return nil
	},
}

func init() {
	addOutputFlag(collectionListCmd)
	collectionCmd.AddCommand(collectionListCmd)
}
