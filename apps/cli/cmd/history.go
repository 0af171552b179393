package cmd

import (
	"errors"
	"fmt"

	"github.com/abdul-hamid-achik/hitdesk/packages/history"
	"github.com/spf13/cobra"
)

var (
	limitFlag         int
	remoteFlag        bool
	allWorkspacesFlag bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse, summarize and clear request history",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List executed requests, newest first",
	Long: `List executed requests, newest first.

Local history lives in the data directory and covers every send, including
failed ones. --remote lists what the backend stored for the active workspace.`,
	Args: cobra.NoArgs,
	RunE: historyListCommand,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one local history entry; an id prefix is enough",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		entry, err := a.journal.Get(cmd.Context(), args[0])
		if errors.Is(err, history.ErrEntryNotFound) || errors.Is(err, history.ErrAmbiguousID) {
			return withExitCode(ExitUsageError, fmt.Errorf("%w: %s", err, args[0]))
		}
		if err != nil {
			return err
		}
		if outputJSON(cmd) {
			return encodeJSON(cmd, entry)
		}
		a.console.FormatEntry(entry)
		return nil
	},
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Latency percentiles over local history",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.journal.List(cmd.Context(), scopeFor(a), 0)
		if err != nil {
			return fmt.Errorf("read history: %w", err)
		}
		summary := history.StatsFor(entries).Summary()
		if outputJSON(cmd) {
			return encodeJSON(cmd, summary)
		}
		a.console.FormatStats(summary)

		if total, err := a.journal.Count(cmd.Context()); err == nil && !allWorkspacesFlag && total > int64(len(entries)) {
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d more entries in other workspaces (use --all)\n", total-int64(len(entries)))
		}
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete local history of the active workspace",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.journal.Clear(cmd.Context(), scopeFor(a))
		if err != nil {
			return fmt.Errorf("clear history: %w", err)
		}
		a.state.ClearHistory()
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d entries.\n", n)
		return nil
	},
}

func init() {
	historyListCmd.Flags().IntVarP(&limitFlag, "limit", "n", getEnvInt("HITDESK_HISTORY_LIMIT", 20), "Maximum entries to show, 0 for all (env: HITDESK_HISTORY_LIMIT)")
	historyListCmd.Flags().BoolVar(&remoteFlag, "remote", false, "List the backend's history for the active workspace")
	for _, c := range []*cobra.Command{historyListCmd, historyStatsCmd, historyClearCmd} {
		c.Flags().BoolVar(&allWorkspacesFlag, "all", false, "Cover every workspace, not only the active one")
	}
	for _, c := range []*cobra.Command{historyListCmd, historyShowCmd, historyStatsCmd} {
		addOutputFlag(c)
	}
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyStatsCmd, historyClearCmd)
}

// scopeFor is the workspace local history commands cover; empty means all.
func scopeFor(a *app) string {
	if allWorkspacesFlag {
		return ""
	}
	return a.state.ActiveWorkspaceID()
}

func historyListCommand(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	var entries []history.Entry
	if remoteFlag {
		if err := a.loadSignedIn(cmd.Context()); err != nil {
			return err
		}
		entries = a.state.History()
		if limitFlag > 0 && len(entries) > limitFlag {
			entries = entries[:limitFlag]
		}
	} else {
		entries, err = a.journal.List(cmd.Context(), scopeFor(a), limitFlag)
		if err != nil {
			return fmt.Errorf("read history: %w", err)
		}
	}

	if outputJSON(cmd) {
		return encodeJSON(cmd, entries)
	}
	a.console.FormatHistory(entries)
	return nil
}
