package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/abdul-hamid-achik/hitdesk/packages/backend"
	"github.com/abdul-hamid-achik/hitdesk/packages/core/env"
	"github.com/abdul-hamid-achik/hitdesk/packages/credential"
	"github.com/abdul-hamid-achik/hitdesk/packages/db"
	"github.com/abdul-hamid-achik/hitdesk/packages/history"
	hithttp "github.com/abdul-hamid-achik/hitdesk/packages/http"
	"github.com/abdul-hamid-achik/hitdesk/packages/output"
	"github.com/abdul-hamid-achik/hitdesk/packages/state"
)

// app holds the wired components one command invocation works with.
type app struct {
	store    *credential.FileStore
	tokens   *credential.Tokens
	backend  *backend.Client
	state    *state.Container
	database *db.Client
	journal  *history.Journal
	recorder *history.Recorder
	syncer   *state.Synchronizer
	builder  *hithttp.Builder
	client   *hithttp.Client
	console  *output.ConsoleFormatter
}

type appOptions struct {
	// clientOpts are applied to the request dispatcher after the config ones.
	clientOpts []hithttp.ClientOption
	view       output.View
}

func newApp(ctx context.Context, opts appOptions) (*app, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, withExitCode(ExitConfigError, fmt.Errorf("failed to create data directory: %w", err))
	}

	a := &app{}
	a.store = credential.NewFileStore(cfg.CredentialsPath())
	a.tokens = credential.NewTokens(a.store)

	a.backend = backend.NewClient(cfg.BackendURL, a.tokens,
		backend.WithRateLimit(cfg.BackendRateLimit),
		backend.WithLogger(logger),
	)

	defaultEnv := env.Environment{Name: "Main", Variables: map[string]any{}}
	if cfg.Environment != nil {
		defaultEnv = env.Environment{Name: cfg.Environment.Name, Variables: cfg.Environment.Variables}
	}
	a.state = state.NewContainer(a.backend, a.tokens,
		state.WithStore(a.store),
		state.WithDefaultEnvironment(defaultEnv),
		state.WithLogger(logger),
	)

	database, err := db.Open(cfg.HistoryDatabase())
	if err != nil {
		return nil, withExitCode(ExitConfigError, fmt.Errorf("failed to open history database: %w", err))
	}
	a.database = database
	a.journal, err = history.OpenJournal(ctx, database)
	if err != nil {
		_ = database.Close()
		return nil, withExitCode(ExitConfigError, err)
	}

	a.recorder = history.NewRecorder(
		history.WithSink(a.state),
		history.WithSink(a.journal),
		history.WithPersister(a.backend),
		history.WithLogger(logger),
	)
	a.syncer = state.NewSynchronizer(a.state, state.WithSyncLogger(logger))

	builderOpts := []hithttp.BuilderOption{
		hithttp.WithTokenSink(a.tokens),
		hithttp.WithBuilderLogger(logger),
	}
	clientOpts := []hithttp.ClientOption{
		hithttp.WithTimeout(cfg.TimeoutDuration()),
		hithttp.WithFollowRedirects(cfg.GetFollowRedirects()),
		hithttp.WithMaxRedirects(cfg.MaxRedirects),
		hithttp.WithValidateSSL(cfg.GetValidateSSL()),
		hithttp.WithDefaultHeaders(cfg.Headers),
	}
	if cfg.Proxy != "" {
		clientOpts = append(clientOpts, hithttp.WithProxy(cfg.Proxy))
	}
	if cfg.DevProxyEnabled() {
		rw, err := hithttp.NewRewriter(cfg.DevProxy.BackendOrigin)
		if err != nil {
			a.Close()
			return nil, withExitCode(ExitConfigError, fmt.Errorf("devProxy.backendOrigin: %w", err))
		}
		builderOpts = append(builderOpts, hithttp.WithRewriter(rw))
		if cfg.DevProxy.ServerOrigin != "" {
			clientOpts = append(clientOpts, hithttp.WithBaseURL(cfg.DevProxy.ServerOrigin))
		}
	}
	a.builder = hithttp.NewBuilder(builderOpts...)
	a.client = hithttp.NewClient(append(clientOpts, opts.clientOpts...)...)

	a.console = output.NewConsoleFormatter(
		output.WithVerbose(cfg.GetVerbose()),
		output.WithNoColor(cfg.GetNoColor()),
		output.WithView(opts.view),
	)
	return a, nil
}

func (a *app) Close() {
	if a.database != nil {
		_ = a.database.Close()
	}
}

// loadSignedIn runs the initial load and fails when nobody is signed in.
func (a *app) loadSignedIn(ctx context.Context) error {
	if err := a.state.LoadInitial(ctx); err != nil {
		return authError(err)
	}
	return nil
}

// loadIfSignedIn runs the initial load when a token is stored. Failures are
// logged; sending works without a backend.
func (a *app) loadIfSignedIn(ctx context.Context) {
	err := a.state.LoadInitial(ctx)
	switch {
	case err == nil, errors.Is(err, state.ErrNotSignedIn):
	default:
		logger.Warn("could not load workspace data", "error", err)
	}
}

func authError(err error) error {
	if errors.Is(err, state.ErrNotSignedIn) || errors.Is(err, backend.ErrUnauthorized) {
		return withExitCode(ExitAuthError, fmt.Errorf("%w (run `hitdesk login`)", err))
	}
	return err
}
