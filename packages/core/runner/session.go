package runner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/abdul-hamid-achik/hitdesk/packages/core/env"
	"github.com/abdul-hamid-achik/hitdesk/packages/history"
	"github.com/abdul-hamid-achik/hitdesk/packages/http"
	"github.com/abdul-hamid-achik/hitdesk/packages/state"
	"golang.org/x/sync/errgroup"
)

// ErrSendInProgress is returned by Send while another send on the same
// session has not finished.
var ErrSendInProgress = errors.New("a send is already in progress")

// Dispatcher executes a built exchange.
type Dispatcher interface {
	Execute(ctx context.Context, ex *http.Exchange) http.Result
}

// StateView is the read side of the shared state a send needs.
type StateView interface {
	Environment() env.Snapshot
	ActiveWorkspaceID() string
}

// Recorder writes history for a send.
type Recorder interface {
	Append(tpl http.Template, result http.Result, workspaceID string) (history.Entry, bool, error)
	Persist(ctx context.Context, entry history.Entry, result http.Result) error
}

// Synchronizer reacts to sends that mutate backend resources.
type Synchronizer interface {
	Sync(ctx context.Context, method, resolvedURL string, result http.Result) state.Resource
}

// Outcome is everything one send produced.
type Outcome struct {
	Exchange *http.Exchange
	Result   http.Result
	// Entry is nil when the send was not recorded (blank URL).
	Entry  *history.Entry
	Synced state.Resource
}

// Session is one request panel: a template, an auth config and the pipeline
// that sends them. Sends on one session never overlap.
type Session struct {
	mu       sync.Mutex
	template http.Template
	auth     http.AuthConfig
	inFlight atomic.Bool

	builder  *http.Builder
	client   Dispatcher
	state    StateView
	recorder Recorder
	sync     Synchronizer
	override map[string]string
	logger   *slog.Logger
}

type Option func(*Session)

// WithBuilder replaces the default request builder.
func WithBuilder(b *http.Builder) Option {
	return func(s *Session) {
		if b != nil {
			s.builder = b
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(s *Session) {
		s.recorder = r
	}
}

func WithSynchronizer(sy Synchronizer) Option {
	return func(s *Session) {
		s.sync = sy
	}
}

// WithVariables layers vars over the active environment for every send.
func WithVariables(vars map[string]string) Option {
	return func(s *Session) {
		if len(vars) == 0 {
			return
		}
		s.override = make(map[string]string, len(vars))
		for k, v := range vars {
			s.override[k] = v
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewSession(client Dispatcher, view StateView, opts ...Option) *Session {
	s := &Session{
		template: http.NewTemplate("GET", ""),
		auth:     http.NoAuth(),
		builder:  http.NewBuilder(),
		client:   client,
		state:    view,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetTemplate replaces the template. The next send uses it; a send already
// in flight keeps the one it started with.
func (s *Session) SetTemplate(t http.Template) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.template = t.Clone()
}

func (s *Session) Template() http.Template {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.template.Clone()
}

func (s *Session) SetAuth(a http.AuthConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auth = a.Normalize()
}

func (s *Session) Auth() http.AuthConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auth
}

// ApplyAuthToHeaders writes the composed auth headers into the template and
// returns the new template. Query-placed API keys change nothing. Applying
// twice is the same as applying once.
func (s *Session) ApplyAuthToHeaders() http.Template {
	s.mu.Lock()
	defer s.mu.Unlock()
	headers, _ := http.ComposeAuth(s.template.Headers, s.auth)
	next := s.template.Clone()
	next.Headers = headers
	s.template = next
	return next.Clone()
}

// Variables returns the snapshot the next send would resolve against.
func (s *Session) Variables() env.Snapshot {
	base := s.state.Environment()
	if len(s.override) == 0 {
		return base
	}
	merged := base.Values()
	for k, v := range s.override {
		merged[k] = v
	}
	return env.NewSnapshot(base.Name(), merged)
}

// Send runs the pipeline once: build, dispatch, normalize, append local
// history, then persist history and synchronize state concurrently. Network
// failures are part of the Outcome, not errors; the only error is
// ErrSendInProgress.
func (s *Session) Send(ctx context.Context) (*Outcome, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, ErrSendInProgress
	}
	defer s.inFlight.Store(false)

	s.mu.Lock()
	tpl := s.template.Clone()
	auth := s.auth
	s.mu.Unlock()
	vars := s.Variables()
	workspaceID := s.state.ActiveWorkspaceID()

	ex := s.builder.Build(tpl, vars, auth)
	s.logger.Debug("sending request", "method", ex.Method, "url", ex.URL, "environment", vars.Name())

	result := s.client.Execute(ctx, ex)
	if result.Failure != nil {
		s.logger.Debug("request failed", "error", result.Failure.Details)
	}

	out := &Outcome{Exchange: ex, Result: result}
	if s.recorder != nil {
		entry, ok, err := s.recorder.Append(tpl, result, workspaceID)
		if err != nil {
			s.logger.Warn("could not record history", "error", err)
		}
		if ok {
			out.Entry = &entry
		}
	}

	var g errgroup.Group
	if out.Entry != nil {
		entry := *out.Entry
		g.Go(func() error {
			_ = s.recorder.Persist(ctx, entry, result)
			return nil
		})
	}
	if s.sync != nil {
		g.Go(func() error {
			out.Synced = s.sync.Sync(ctx, ex.Method, ex.URL, result)
			return nil
		})
	}
	_ = g.Wait()

	return out, nil
}
