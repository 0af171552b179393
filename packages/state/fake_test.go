package state

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/abdul-hamid-achik/hitdesk/packages/backend"
)

type fakeBackend struct {
	mu sync.Mutex

	user         *backend.User
	workspaces   []backend.Workspace
	collections  map[string][]backend.Collection
	environments map[string][]backend.Environment
	history      map[string][]backend.HistoryRecord

	failCollections bool
	failWorkspaces  bool
	createdCount    atomic.Int32
	calls           []string
}

var errBackend = errors.New("backend unavailable")

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		user:         &backend.User{ID: "u1", Name: "Ada"},
		collections:  map[string][]backend.Collection{},
		environments: map[string][]backend.Environment{},
		history:      map[string][]backend.HistoryRecord{},
	}
}

func (f *fakeBackend) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeBackend) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeBackend) Login(_ context.Context, email, password string) (*backend.LoginResult, error) {
	f.record("login")
	if password != "secret" {
		return nil, &backend.APIError{StatusCode: 400, Message: "Invalid credentials"}
	}
	return &backend.LoginResult{User: backend.User{ID: "u1", Email: email}, Token: "JWT"}, nil
}

func (f *fakeBackend) Me(context.Context) (*backend.User, error) {
	f.record("me")
	return f.user, nil
}

func (f *fakeBackend) ListWorkspaces(context.Context) ([]backend.Workspace, error) {
	f.record("workspaces")
	if f.failWorkspaces {
		return nil, errBackend
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]backend.Workspace(nil), f.workspaces...), nil
}

func (f *fakeBackend) CreateWorkspace(_ context.Context, name, description string) (*backend.Workspace, error) {
	f.record("create-workspace")
	f.createdCount.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	ws := backend.Workspace{ID: "ws-default", Name: name, Description: description}
	f.workspaces = append(f.workspaces, ws)
	return &ws, nil
}

func (f *fakeBackend) ListCollections(_ context.Context, ws string) ([]backend.Collection, error) {
	f.record("collections:" + ws)
	if f.failCollections {
		return nil, errBackend
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]backend.Collection(nil), f.collections[ws]...), nil
}

func (f *fakeBackend) ListEnvironments(_ context.Context, ws string) ([]backend.Environment, error) {
	f.record("environments:" + ws)
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]backend.Environment(nil), f.environments[ws]...), nil
}

func (f *fakeBackend) ListHistory(_ context.Context, ws string) ([]backend.HistoryRecord, error) {
	f.record("history:" + ws)
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]backend.HistoryRecord(nil), f.history[ws]...), nil
}
