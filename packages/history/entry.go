// Package history records executed requests: an in-order local list that
// is written before anything else, a SQLite journal that outlives the
// process, and best-effort persistence to the backend.
package history

import (
	"time"

	hithttp "github.com/abdul-hamid-achik/hitdesk/packages/http"
)

// Entry is one executed request. Request is the unresolved template as it
// was sent, with the method uppercased and the URL trimmed.
type Entry struct {
	ID          string           `json:"id"`
	RemoteID    string           `json:"remoteId,omitempty"`
	WorkspaceID string           `json:"workspaceId,omitempty"`
	Request     hithttp.Template `json:"request"`
	Timestamp   time.Time        `json:"timestamp"`
	StatusCode  int              `json:"statusCode,omitempty"`
	TimeMs      int64            `json:"timeMs,omitempty"`
	ErrorKind   string           `json:"errorKind,omitempty"`
}

// Succeeded reports whether the entry's send produced a response.
func (e Entry) Succeeded() bool {
	return e.ErrorKind == ""
}

// Label is "METHOD URL".
func (e Entry) Label() string {
	return e.Request.Method + " " + e.Request.URL
}

func summarize(e *Entry, result hithttp.Result) {
	switch {
	case result.Response != nil:
		e.StatusCode = result.Response.StatusCode
		e.TimeMs = result.Response.TimeMs
	case result.Failure != nil:
		e.ErrorKind = string(result.Failure.ErrorKind)
	}
}
