package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/hitdesk/packages/core/runner"
	hithttp "github.com/abdul-hamid-achik/hitdesk/packages/http"
)

// JSONOutput is what `send --output json` prints for one send.
type JSONOutput struct {
	Request   JSONRequest    `json:"request"`
	Result    hithttp.Result `json:"result"`
	HistoryID string         `json:"historyId,omitempty"`
	Synced    string         `json:"synced,omitempty"`
	Time      string         `json:"time"`
}

// JSONRequest is the resolved request that was dispatched.
type JSONRequest struct {
	Method  string          `json:"method"`
	URL     string          `json:"url"`
	Headers hithttp.Headers `json:"headers"`
	Body    string          `json:"body,omitempty"`
}

// JSONFormatter writes machine-readable output
type JSONFormatter struct {
	writer io.Writer
	now    func() time.Time
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer: os.Stdout,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func JSONWithClock(now func() time.Time) JSONOption {
	return func(f *JSONFormatter) {
		f.now = now
	}
}

func (f *JSONFormatter) FormatOutcome(out *runner.Outcome) error {
	doc := JSONOutput{
		Request: JSONRequest{
			Method:  out.Exchange.Method,
			URL:     out.Exchange.URL,
			Headers: out.Exchange.Headers,
			Body:    out.Exchange.Body,
		},
		Result: out.Result,
		Synced: string(out.Synced),
		Time:   f.now().UTC().Format(time.RFC3339),
	}
	if doc.Request.Headers == nil {
		doc.Request.Headers = hithttp.Headers{}
	}
	if out.Entry != nil {
		doc.HistoryID = out.Entry.ID
	}
	return f.Encode(doc)
}

// Encode writes v as indented JSON.
func (f *JSONFormatter) Encode(v any) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
