package history

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/abdul-hamid-achik/hitdesk/packages/backend"
	hithttp "github.com/abdul-hamid-achik/hitdesk/packages/http"
	"github.com/google/uuid"
)

// Sink receives new entries, newest first.
type Sink interface {
	Prepend(entry Entry) error
}

// RemoteIDSetter is implemented by sinks that track the backend id of an entry.
type RemoteIDSetter interface {
	SetRemoteID(localID, remoteID string) error
}

// Persister stores history on the backend.
type Persister interface {
	CreateHistory(ctx context.Context, payload backend.HistoryPayload) (string, error)
}

// Recorder writes history for every send with a non-blank URL.
type Recorder struct {
	sinks  []Sink
	remote Persister
	now    func() time.Time
	newID  func() string
	logger *slog.Logger
}

type Option func(*Recorder)

func NewRecorder(opts ...Option) *Recorder {
	r := &Recorder{
		now:    time.Now,
		newID:  uuid.NewString,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithSink adds a local sink. The first sink is authoritative: its failure is
// returned from Append. Later sinks are best-effort.
func WithSink(s Sink) Option {
	return func(r *Recorder) {
		if s != nil {
			r.sinks = append(r.sinks, s)
		}
	}
}

// WithPersister enables backend persistence.
func WithPersister(p Persister) Option {
	return func(r *Recorder) {
		r.remote = p
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

func WithIDGenerator(gen func() string) Option {
	return func(r *Recorder) {
		if gen != nil {
			r.newID = gen
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Recorder) {
		if l != nil {
			r.logger = l
		}
	}
}

// Append writes the local entry for a send. A template whose URL is blank
// once trimmed is not recorded and ok is false.
func (r *Recorder) Append(tpl hithttp.Template, result hithttp.Result, workspaceID string) (entry Entry, ok bool, err error) {
	if tpl.IsBlank() {
		return Entry{}, false, nil
	}

	entry = Entry{
		ID:          r.newID(),
		WorkspaceID: workspaceID,
		Request:     tpl.Normalized(),
		Timestamp:   r.now().UTC(),
	}
	summarize(&entry, result)

	for i, s := range r.sinks {
		if serr := s.Prepend(entry); serr != nil {
			if i == 0 {
				return entry, true, fmt.Errorf("append history: %w", serr)
			}
			r.logger.Warn("history sink failed", "entry", entry.ID, "error", serr)
		}
	}
	return entry, true, nil
}

// Persist sends entry to the backend when the send succeeded and a workspace
// is active. Failures are logged and returned; local history is unaffected.
func (r *Recorder) Persist(ctx context.Context, entry Entry, result hithttp.Result) error {
	if r.remote == nil || !result.IsSuccess() || entry.WorkspaceID == "" {
		return nil
	}

	remoteID, err := r.remote.CreateHistory(ctx, backend.HistoryPayload{
		WorkspaceID: entry.WorkspaceID,
		Request:     entry.Request,
		Response:    result.Response,
		Timestamp:   entry.Timestamp.Format(time.RFC3339Nano),
	})
	if err != nil {
		r.logger.Warn("could not persist history", "entry", entry.ID, "error", err)
		return fmt.Errorf("persist history: %w", err)
	}
	if remoteID == "" {
		return nil
	}

	for _, s := range r.sinks {
		if setter, ok := s.(RemoteIDSetter); ok {
			if err := setter.SetRemoteID(entry.ID, remoteID); err != nil {
				r.logger.Debug("could not record remote history id", "entry", entry.ID, "error", err)
			}
		}
	}
	return nil
}

// Record appends then persists. Persistence errors are swallowed.
func (r *Recorder) Record(ctx context.Context, tpl hithttp.Template, result hithttp.Result, workspaceID string) (Entry, bool, error) {
	entry, ok, err := r.Append(tpl, result, workspaceID)
	if !ok || err != nil {
		return entry, ok, err
	}
	_ = r.Persist(ctx, entry, result)
	return entry, true, nil
}
