package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/abdul-hamid-achik/hitdesk/packages/backend"
	"github.com/abdul-hamid-achik/hitdesk/packages/core/env"
	"github.com/abdul-hamid-achik/hitdesk/packages/core/runner"
	"github.com/abdul-hamid-achik/hitdesk/packages/history"
	"github.com/fatih/color"
)

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
	view    View
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
		view:   ViewBody,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

func WithView(v View) ConsoleOption {
	return func(f *ConsoleFormatter) {
		if v != "" {
			f.view = v
		}
	}
}

func statusColor(code int) *color.Color {
	switch {
	case code >= 500:
		return color.New(color.FgRed, color.Bold)
	case code >= 400:
		return color.New(color.FgYellow, color.Bold)
	case code >= 300:
		return color.New(color.FgCyan, color.Bold)
	default:
		return color.New(color.FgGreen, color.Bold)
	}
}

// FormatOutcome prints one send: the request line, the status line and the
// selected view of the response.
func (f *ConsoleFormatter) FormatOutcome(out *runner.Outcome) {
	bold := color.New(color.Bold).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	fmt.Fprintf(f.writer, "%s %s\n", bold(out.Exchange.Method), out.Exchange.URL)
	if f.verbose {
		for _, h := range out.Exchange.Headers {
			fmt.Fprintf(f.writer, "  %s %s\n", faint(h.Key+":"), h.Value)
		}
	}
	fmt.Fprintln(f.writer)

	if failure := out.Result.Failure; failure != nil {
		fmt.Fprintf(f.writer, "%s %s\n", red("✗ "+string(failure.ErrorKind)+":"), failure.Details)
		return
	}

	resp := out.Result.Response
	status := statusColor(resp.StatusCode).Sprintf("%d %s", resp.StatusCode, resp.StatusText)
	fmt.Fprintf(f.writer, "%s  %s  %s\n", status, cyan(fmt.Sprintf("%dms", resp.TimeMs)), formatBytes(resp.SizeBytes))

	switch f.view {
	case ViewHeaders:
		fmt.Fprintln(f.writer)
		tw := tabwriter.NewWriter(f.writer, 0, 0, 2, ' ', 0)
		for _, kv := range resp.Headers {
			fmt.Fprintf(tw, "%s\t%s\n", bold(kv[0]), kv[1])
		}
		_ = tw.Flush()
	case ViewRaw:
		fmt.Fprintln(f.writer)
		fmt.Fprintln(f.writer, resp.Body)
	default:
		if resp.Body != "" {
			fmt.Fprintln(f.writer)
			fmt.Fprintln(f.writer, PrettyBody(resp.Body))
		}
	}

	if f.verbose && out.Synced != "" {
		fmt.Fprintf(f.writer, "\n%s %s\n", faint("synced:"), out.Synced)
	}
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n", bold("hitdesk"), version)
}

// FormatHistory prints entries newest first as a table.
func (f *ConsoleFormatter) FormatHistory(entries []history.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(f.writer, "No history yet.")
		return
	}
	red := color.New(color.FgRed).SprintFunc()

	tw := tabwriter.NewWriter(f.writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWHEN\tREQUEST\tSTATUS\tTIME")
	for _, e := range entries {
		status := red(e.ErrorKind)
		if e.Succeeded() {
			status = statusColor(e.StatusCode).Sprint(e.StatusCode)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%dms\n",
			shortID(e.ID), e.Timestamp.Local().Format(time.DateTime), e.Label(), status, e.TimeMs)
	}
	_ = tw.Flush()
}

// FormatEntry prints one history entry in full.
func (f *ConsoleFormatter) FormatEntry(e *history.Entry) {
	bold := color.New(color.Bold).SprintFunc()

	fmt.Fprintf(f.writer, "%s %s\n", bold("ID:"), e.ID)
	if e.RemoteID != "" {
		fmt.Fprintf(f.writer, "%s %s\n", bold("Remote ID:"), e.RemoteID)
	}
	fmt.Fprintf(f.writer, "%s %s\n", bold("When:"), e.Timestamp.Local().Format(time.RFC3339))
	if e.Succeeded() {
		fmt.Fprintf(f.writer, "%s %s (%dms)\n", bold("Status:"), statusColor(e.StatusCode).Sprint(e.StatusCode), e.TimeMs)
	} else {
		fmt.Fprintf(f.writer, "%s %s\n", bold("Error:"), e.ErrorKind)
	}
	fmt.Fprintf(f.writer, "\n%s\n", e.Label())
	for _, h := range e.Request.Headers {
		fmt.Fprintf(f.writer, "%s: %s\n", h.Key, h.Value)
	}
	if e.Request.Body != "" {
		fmt.Fprintf(f.writer, "\n%s\n", PrettyBody(e.Request.Body))
	}
}

// FormatStats prints latency percentiles overall and per endpoint.
func (f *ConsoleFormatter) FormatStats(s history.Summary) {
	bold := color.New(color.Bold).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Fprintf(f.writer, "%s %d requests, %d responses", bold("History:"), s.Total, s.Responses)
	if s.Failures > 0 {
		fmt.Fprintf(f.writer, ", %s", red(fmt.Sprintf("%d failed", s.Failures)))
	}
	fmt.Fprintln(f.writer)
	if s.Responses == 0 {
		return
	}
	fmt.Fprintf(f.writer, "Latency: min %s  mean %s  max %s\n", s.Min, s.Mean, s.Max)
	fmt.Fprintf(f.writer, "         p50 %s  p95 %s  p99 %s\n\n", s.P50, s.P95, s.P99)

	tw := tabwriter.NewWriter(f.writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ENDPOINT\tCOUNT\tFAILED\tP50\tP95")
	for _, ep := range s.Endpoints {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\n", ep.Label, ep.Total, ep.Failures, ep.P50, ep.P95)
	}
	_ = tw.Flush()
}

// FormatEnvironment prints the active variable set in key order.
func (f *ConsoleFormatter) FormatEnvironment(snap env.Snapshot) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s (%d variables)\n", bold("Environment:"), snap.Name(), snap.Len())

	tw := tabwriter.NewWriter(f.writer, 0, 0, 2, ' ', 0)
	keys := snap.Keys()
	sort.Strings(keys)
	for _, k := range keys {
		v, _ := snap.Get(k)
		fmt.Fprintf(tw, "  %s\t%s\n", k, formatValue(v, 80))
	}
	_ = tw.Flush()
}

// FormatEnvironments lists remote environments, marking the active one.
func (f *ConsoleFormatter) FormatEnvironments(envs []backend.Environment, active string) {
	if len(envs) == 0 {
		fmt.Fprintln(f.writer, "No environments in this workspace.")
		return
	}
	green := color.New(color.FgGreen).SprintFunc()
	tw := tabwriter.NewWriter(f.writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\tNAME\tVARIABLES\tUPDATED")
	for _, e := range envs {
		marker := ""
		if e.Name == active {
			marker = green("*")
		}
		updated := "-"
		if r := e.Recency(); !r.IsZero() {
			updated = r.Local().Format(time.DateTime)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", marker, e.Name, len(e.Variables), updated)
	}
	_ = tw.Flush()
}

// FormatWorkspaces lists workspaces, marking the active one.
func (f *ConsoleFormatter) FormatWorkspaces(list []backend.Workspace, activeID string) {
	if len(list) == 0 {
		fmt.Fprintln(f.writer, "No workspaces.")
		return
	}
	green := color.New(color.FgGreen).SprintFunc()
	tw := tabwriter.NewWriter(f.writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tNAME")
	for _, ws := range list {
		marker := ""
		if ws.ID == activeID {
			marker = green("*")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", marker, ws.ID, ws.Name)
	}
	_ = tw.Flush()
}

// FormatCollections lists collections with the names of their requests.
func (f *ConsoleFormatter) FormatCollections(cols []backend.Collection) {
	if len(cols) == 0 {
		fmt.Fprintln(f.writer, "No collections in this workspace.")
		return
	}
	bold := color.New(color.Bold).SprintFunc()
	for _, c := range cols {
		fmt.Fprintf(f.writer, "%s (%d requests)\n", bold(c.Name), len(c.Requests))
		for _, r := range c.Requests {
			name := r.Name
			if name == "" {
				name = r.URL
			}
			fmt.Fprintf(f.writer, "  %-7s %s\n", r.Method, name)
		}
	}
}

// FormatUser prints the signed-in user.
func (f *ConsoleFormatter) FormatUser(u *backend.User) {
	if u == nil {
		fmt.Fprintln(f.writer, "Not signed in.")
		return
	}
	fmt.Fprintf(f.writer, "%s <%s>\n", u.Name, u.Email)
}
