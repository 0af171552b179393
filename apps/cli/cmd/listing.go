package cmd

import (
	"strings"

	"github.com/abdul-hamid-achik/hitdesk/packages/output"
	"github.com/spf13/cobra"
)

// addOutputFlag gives a listing command an --output console|json flag.
func addOutputFlag(c *cobra.Command) {
	c.Flags().StringP("output", "o", getEnvString("HITDESK_OUTPUT", "console"), "Output format: console, json (env: HITDESK_OUTPUT)")
}

func outputJSON(cmd *cobra.Command) bool {
	v, err := cmd.Flags().GetString("output")
	return err == nil && strings.EqualFold(v, "json")
}

func encodeJSON(cmd *cobra.Command, v any) error {
	return output.NewJSONFormatter(output.JSONWithWriter(cmd.OutOrStdout())).Encode(v)
}
