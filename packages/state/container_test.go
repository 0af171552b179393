package state

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/hitdesk/packages/backend"
	"github.com/abdul-hamid-achik/hitdesk/packages/core/env"
	"github.com/abdul-hamid-achik/hitdesk/packages/credential"
	"github.com/abdul-hamid-achik/hitdesk/packages/history"
	hithttp "github.com/abdul-hamid-achik/hitdesk/packages/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaultEnv = env.Environment{Name: "Main", Variables: map[string]any{"base_url": "https://api.example.com"}}

func newContainer(t *testing.T, b *fakeBackend, opts ...Option) (*Container, *credential.Tokens, credential.Store) {
	t.Helper()
	store := credential.NewMemoryStore()
	tokens := credential.NewTokens(store)
	base := []Option{WithStore(store), WithDefaultEnvironment(defaultEnv)}
	return NewContainer(b, tokens, append(base, opts...)...), tokens, store
}

func TestContainer_DefaultEnvironment(t *testing.T) {
	c, _, _ := newContainer(t, newFakeBackend())

	snap := c.Environment()
	assert.Equal(t, "Main", snap.Name())
	v, ok := snap.Get("base_url")
	require.True(t, ok)
	assert.Equal(t, "https://api.example.com", v)
	assert.False(t, c.IsAuthenticated())
}

func TestContainer_EnvironmentIsSnapshot(t *testing.T) {
	c, _, _ := newContainer(t, newFakeBackend())

	snap := c.Environment()
	c.ApplyEnvironment("", map[string]any{"base_url": "http://changed", "n": 2})

	v, _ := snap.Get("base_url")
	assert.Equal(t, "https://api.example.com", v)
	assert.Equal(t, "Main", c.EnvironmentName())

	now, _ := c.Environment().Get("n")
	assert.Equal(t, "2", now)
}

func TestContainer_LoadInitialCreatesDefaultWorkspace(t *testing.T) {
	b := newFakeBackend()
	c, tokens, store := newContainer(t, b)
	require.NoError(t, tokens.SetToken("T"))

	require.NoError(t, c.LoadInitial(context.Background()))

	assert.Equal(t, int32(1), b.createdCount.Load())
	assert.Equal(t, "ws-default", c.ActiveWorkspaceID())
	assert.Equal(t, "Ada", c.User().Name)
	require.Len(t, c.Workspaces(), 1)
	assert.Equal(t, DefaultWorkspaceName, c.Workspaces()[0].Name)

	persisted, err := store.Get(credential.ActiveWorkspaceKey)
	require.NoError(t, err)
	assert.Equal(t, "ws-default", persisted)
}

func TestContainer_LoadInitialConcurrentCreatesOnce(t *testing.T) {
	b := newFakeBackend()
	c, tokens, _ := newContainer(t, b)
	require.NoError(t, tokens.SetToken("T"))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.LoadInitial(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), b.createdCount.Load())
}

func TestContainer_LoadInitialWithoutToken(t *testing.T) {
	b := newFakeBackend()
	c, _, _ := newContainer(t, b)

	assert.ErrorIs(t, c.LoadInitial(context.Background()), ErrNotSignedIn)
	assert.Empty(t, b.Calls())
}

func TestContainer_LoadInitialKeepsPersistedWorkspace(t *testing.T) {
	b := newFakeBackend()
	b.workspaces = []backend.Workspace{{ID: "w1"}, {ID: "w2"}}
	store := credential.NewMemoryStore()
	require.NoError(t, store.Set(credential.ActiveWorkspaceKey, "w2"))
	require.NoError(t, store.Set(credential.TokenKey, "T"))

	c := NewContainer(b, credential.NewTokens(store), WithStore(store))
	require.NoError(t, c.LoadInitial(context.Background()))
	assert.Equal(t, "w2", c.ActiveWorkspaceID())

	// a persisted id that no longer exists falls back to the first workspace
	require.NoError(t, store.Set(credential.ActiveWorkspaceKey, "gone"))
	c = NewContainer(b, credential.NewTokens(store), WithStore(store))
	require.NoError(t, c.LoadInitial(context.Background()))
	assert.Equal(t, "w1", c.ActiveWorkspaceID())
}

func TestContainer_LoadWorkspaceScoped(t *testing.T) {
	b := newFakeBackend()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b.collections["w1"] = []backend.Collection{{ID: "c1", WorkspaceID: "w1"}}
	b.environments["w1"] = []backend.Environment{
		{Name: "Old", Variables: map[string]any{"base_url": "http://old"}, CreatedAt: t0},
		{Name: "New", Variables: map[string]any{"base_url": "http://new"}, CreatedAt: t0, UpdatedAt: t0.Add(time.Hour)},
	}
	b.history["w1"] = []backend.HistoryRecord{
		{ID: "h1", Request: hithttp.Template{Method: "GET", URL: "http://x"}, Timestamp: "2024-01-01T00:00:00Z"},
	}
	c, _, _ := newContainer(t, b)

	c.SelectWorkspace("w1")
	require.NoError(t, c.LoadWorkspaceScoped(context.Background()))

	assert.Len(t, c.Collections(), 1)
	assert.Equal(t, "New", c.EnvironmentName())
	v, _ := c.Environment().Get("base_url")
	assert.Equal(t, "http://new", v)

	hist := c.History()
	require.Len(t, hist, 1)
	assert.Equal(t, "h1", hist[0].RemoteID)
	assert.Equal(t, t0, hist[0].Timestamp)
}

func TestContainer_LoadWorkspaceScopedFailureClears(t *testing.T) {
	b := newFakeBackend()
	b.collections["w1"] = []backend.Collection{{ID: "c1", WorkspaceID: "w1"}}
	c, _, _ := newContainer(t, b)
	c.SelectWorkspace("w1")
	require.NoError(t, c.LoadWorkspaceScoped(context.Background()))
	require.Len(t, c.Collections(), 1)

	c.ApplyEnvironment("Custom", map[string]any{"base_url": "http://custom"})
	_ = c.Prepend(history.Entry{ID: "local"})
	b.failCollections = true

	err := c.LoadWorkspaceScoped(context.Background())
	require.Error(t, err)
	assert.Empty(t, c.Collections())
	assert.Empty(t, c.History())
	assert.Equal(t, "Main", c.EnvironmentName())
}

func TestContainer_SelectWorkspaceDropsScopedData(t *testing.T) {
	b := newFakeBackend()
	b.collections["w1"] = []backend.Collection{{ID: "c1", WorkspaceID: "w1"}}
	c, _, _ := newContainer(t, b)
	c.SelectWorkspace("w1")
	require.NoError(t, c.LoadWorkspaceScoped(context.Background()))
	_ = c.Prepend(history.Entry{ID: "e1"})

	c.SelectWorkspace("w1")
	assert.Len(t, c.Collections(), 1, "re-selecting the same workspace keeps data")

	c.SelectWorkspace("w2")
	assert.Empty(t, c.Collections())
	assert.Empty(t, c.History())
}

func TestContainer_RefreshWorkspacesSelectsFirst(t *testing.T) {
	b := newFakeBackend()
	b.workspaces = []backend.Workspace{{ID: "w1"}, {ID: "w2"}}
	b.collections["w1"] = []backend.Collection{{ID: "c1", WorkspaceID: "w1"}}
	b.history["w1"] = []backend.HistoryRecord{{ID: "h1", Request: hithttp.Template{Method: "GET", URL: "http://x"}}}
	c, _, _ := newContainer(t, b)

	require.NoError(t, c.RefreshWorkspaces(context.Background()))
	assert.Equal(t, "w1", c.ActiveWorkspaceID())
	assert.Len(t, c.Collections(), 1)
	assert.Len(t, c.History(), 1)
	assert.ElementsMatch(t, []string{"workspaces", "collections:w1", "environments:w1", "history:w1"}, b.Calls())

	c.SelectWorkspace("w2")
	require.NoError(t, c.RefreshWorkspaces(context.Background()))
	assert.Equal(t, "w2", c.ActiveWorkspaceID())
}

func TestContainer_RefreshWithoutWorkspaceIsNoop(t *testing.T) {
	b := newFakeBackend()
	c, _, _ := newContainer(t, b)

	ctx := context.Background()
	require.NoError(t, c.RefreshCollections(ctx))
	require.NoError(t, c.RefreshEnvironments(ctx))
	require.NoError(t, c.RefreshHistory(ctx))
	require.NoError(t, c.LoadWorkspaceScoped(ctx))
	assert.Empty(t, b.Calls())
}

func TestContainer_RefreshEnvironmentsKeepsActiveWhenEmpty(t *testing.T) {
	b := newFakeBackend()
	c, _, _ := newContainer(t, b)
	c.SelectWorkspace("w1")
	c.ApplyEnvironment("Custom", map[string]any{"a": "1"})

	require.NoError(t, c.RefreshEnvironments(context.Background()))
	assert.Equal(t, "Custom", c.EnvironmentName())
}

func TestContainer_PrependCollection(t *testing.T) {
	c, _, _ := newContainer(t, newFakeBackend())

	assert.False(t, c.PrependCollection(backend.Collection{ID: "c1", WorkspaceID: "w1"}))

	c.SelectWorkspace("w1")
	assert.False(t, c.PrependCollection(backend.Collection{ID: "c2", WorkspaceID: "other"}))
	assert.True(t, c.PrependCollection(backend.Collection{ID: "c3", WorkspaceID: "w1"}))
	assert.True(t, c.PrependCollection(backend.Collection{ID: "c4", WorkspaceID: "w1"}))

	cols := c.Collections()
	require.Len(t, cols, 2)
	assert.Equal(t, "c4", cols[0].ID)
}

func TestContainer_HistorySink(t *testing.T) {
	c, _, _ := newContainer(t, newFakeBackend())

	require.NoError(t, c.Prepend(history.Entry{ID: "a"}))
	require.NoError(t, c.Prepend(history.Entry{ID: "b"}))
	require.NoError(t, c.SetRemoteID("a", "r-a"))
	assert.ErrorIs(t, c.SetRemoteID("zzz", "r"), history.ErrEntryNotFound)

	hist := c.History()
	require.Len(t, hist, 2)
	assert.Equal(t, "b", hist[0].ID)
	assert.Equal(t, "r-a", hist[1].RemoteID)

	c.ClearHistory()
	assert.Empty(t, c.History())
}

func TestContainer_LoginLogout(t *testing.T) {
	b := newFakeBackend()
	c, tokens, store := newContainer(t, b)

	_, err := c.Login(context.Background(), "a@b.c", "wrong")
	require.Error(t, err)
	assert.False(t, tokens.HasToken())

	user, err := c.Login(context.Background(), "a@b.c", "secret")
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", user.Email)
	assert.Equal(t, "JWT", tokens.Token())
	assert.True(t, c.IsAuthenticated())

	c.SelectWorkspace("w1")
	require.NoError(t, c.Logout())
	assert.False(t, c.IsAuthenticated())
	assert.Nil(t, c.User())
	assert.Empty(t, c.ActiveWorkspaceID())
	_, err = store.Get(credential.ActiveWorkspaceKey)
	assert.ErrorIs(t, err, credential.ErrNotFound)
}

func TestContainer_UseEnvironmentPersistsChoice(t *testing.T) {
	b := newFakeBackend()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b.environments["w1"] = []backend.Environment{
		{Name: "Staging", Variables: map[string]any{"base_url": "http://staging"}, CreatedAt: t0},
		{Name: "Dev", Variables: map[string]any{"base_url": "http://dev"}, CreatedAt: t0.Add(time.Hour)},
	}
	c, _, store := newContainer(t, b)
	c.SelectWorkspace("w1")
	require.NoError(t, c.LoadWorkspaceScoped(context.Background()))
	assert.Equal(t, "Dev", c.EnvironmentName())
	assert.Len(t, c.Environments(), 2)

	err := c.UseEnvironment("nope")
	assert.ErrorIs(t, err, ErrEnvironmentNotFound)
	assert.Equal(t, "Dev", c.EnvironmentName())

	require.NoError(t, c.UseEnvironment("staging"))
	assert.Equal(t, "Staging", c.EnvironmentName())
	v, _ := credential.Lookup(store, credential.ActiveEnvironmentKey)
	assert.Equal(t, "Staging", v)

	// a later load prefers the remembered environment over the most recent one
	fresh := NewContainer(b, credential.NewTokens(store), WithStore(store))
	require.NoError(t, fresh.LoadWorkspaceScoped(context.Background()))
	assert.Equal(t, "Staging", fresh.EnvironmentName())

	// switching workspaces forgets the loaded list
	c.SelectWorkspace("w2")
	assert.Empty(t, c.Environments())
}
