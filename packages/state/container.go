// Package state holds the workspace-scoped application state shared by every
// send: the signed-in user, workspaces, the active environment, collections
// and history. All reads return copies; all writes go through Container
// methods.
package state

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/abdul-hamid-achik/hitdesk/packages/backend"
	"github.com/abdul-hamid-achik/hitdesk/packages/core/env"
	"github.com/abdul-hamid-achik/hitdesk/packages/credential"
	"github.com/abdul-hamid-achik/hitdesk/packages/history"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkspaceName is used when a signed-in user has no workspace yet.
const DefaultWorkspaceName = "Default Workspace"

// ErrNotSignedIn is returned by operations that need a stored token.
var ErrNotSignedIn = errors.New("not signed in")

// ErrEnvironmentNotFound is returned by UseEnvironment for an unknown name.
var ErrEnvironmentNotFound = errors.New("environment not found")

// Backend is the part of the backend API the container reads and writes.
type Backend interface {
	Login(ctx context.Context, email, password string) (*backend.LoginResult, error)
	Me(ctx context.Context) (*backend.User, error)
	ListWorkspaces(ctx context.Context) ([]backend.Workspace, error)
	CreateWorkspace(ctx context.Context, name, description string) (*backend.Workspace, error)
	ListCollections(ctx context.Context, workspaceID string) ([]backend.Collection, error)
	ListEnvironments(ctx context.Context, workspaceID string) ([]backend.Environment, error)
	ListHistory(ctx context.Context, workspaceID string) ([]backend.HistoryRecord, error)
}

// TokenStore holds the bearer token.
type TokenStore interface {
	Token() string
	SetToken(token string) error
	ClearToken() error
}

// Container is the shared state. It is safe for concurrent use.
type Container struct {
	mu sync.RWMutex

	backend Backend
	tokens  TokenStore
	store   credential.Store
	logger  *slog.Logger

	defaultEnv env.Environment

	user              *backend.User
	workspaces        []backend.Workspace
	activeWorkspaceID string
	envName           string
	envVars           map[string]any
	environments      []backend.Environment
	collections       []backend.Collection
	history           []history.Entry

	creatingDefault sync.Mutex
}

type Option func(*Container)

// WithStore persists the active workspace id in store so it survives restarts.
func WithStore(s credential.Store) Option {
	return func(c *Container) {
		c.store = s
	}
}

// WithDefaultEnvironment sets the variable set used before any remote
// environment is loaded.
func WithDefaultEnvironment(e env.Environment) Option {
	return func(c *Container) {
		c.defaultEnv = e
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Container) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewContainer(b Backend, tokens TokenStore, opts ...Option) *Container {
	c := &Container{
		backend:    b,
		tokens:     tokens,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		defaultEnv: env.Environment{Name: "Main", Variables: map[string]any{}},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.resetEnvironment()
	c.history = []history.Entry{}

	if c.store != nil {
		id, err := credential.Lookup(c.store, credential.ActiveWorkspaceKey)
		if err != nil {
			c.logger.Debug("could not read active workspace", "error", err)
		}
		c.activeWorkspaceID = id
	}
	return c
}

// resetEnvironment must be called with mu held or before c is shared.
func (c *Container) resetEnvironment() {
	c.envName = c.defaultEnv.Name
	if c.envName == "" {
		c.envName = "Main"
	}
	c.envVars = copyVars(c.defaultEnv.Variables)
}

func copyVars(vars map[string]any) map[string]any {
	out := make(map[string]any, len(vars))
	for k, v := range vars {
		out[k] = v
	}
	return out
}

// IsAuthenticated reports whether a user is loaded or a token is stored.
func (c *Container) IsAuthenticated() bool {
	c.mu.RLock()
	signedIn := c.user != nil
	c.mu.RUnlock()
	return signedIn || c.tokens.Token() != ""
}

func (c *Container) User() *backend.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.user == nil {
		return nil
	}
	u := *c.user
	return &u
}

func (c *Container) Workspaces() []backend.Workspace {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]backend.Workspace(nil), c.workspaces...)
}

func (c *Container) ActiveWorkspaceID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.activeWorkspaceID
}

func (c *Container) Collections() []backend.Collection {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]backend.Collection(nil), c.collections...)
}

// History returns the in-memory history, newest first.
func (c *Container) History() []history.Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]history.Entry(nil), c.history...)
}

// Environment returns an immutable snapshot of the active variable set.
func (c *Container) Environment() env.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return env.SnapshotFromAny(c.envName, c.envVars)
}

// EnvironmentName returns the active environment's name.
func (c *Container) EnvironmentName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.envName
}

// ApplyEnvironment makes vars the active variable set. An empty name keeps
// the current name.
func (c *Container) ApplyEnvironment(name string, vars map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.envVars = copyVars(vars)
	if name != "" {
		c.envName = name
	}
}

// Prepend adds a local history entry at the front.
func (c *Container) Prepend(entry history.Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append([]history.Entry{entry}, c.history...)
	return nil
}

// SetRemoteID records the backend id of a local history entry.
func (c *Container) SetRemoteID(localID, remoteID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.history {
		if c.history[i].ID == localID {
			c.history[i].RemoteID = remoteID
			return nil
		}
	}
	return history.ErrEntryNotFound
}

// ClearHistory empties the in-memory history.
func (c *Container) ClearHistory() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = []history.Entry{}
}

// PrependCollection adds col at the front when it belongs to the active
// workspace. It reports whether it was added.
func (c *Container) PrependCollection(col backend.Collection) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activeWorkspaceID == "" || col.WorkspaceID != c.activeWorkspaceID {
		return false
	}
	c.collections = append([]backend.Collection{col}, c.collections...)
	return true
}

// SelectWorkspace makes id active and drops the previous workspace's
// collections and history. Call LoadWorkspaceScoped to fill them again.
func (c *Container) SelectWorkspace(id string) {
	c.mu.Lock()
	changed := c.activeWorkspaceID != id
	c.activeWorkspaceID = id
	if changed {
		c.collections = nil
		c.environments = nil
		c.history = []history.Entry{}
	}
	c.mu.Unlock()

	c.persistActive(id)
}

func (c *Container) persistActive(id string) {
	if c.store == nil {
		return
	}
	var err error
	if id == "" {
		err = c.store.Delete(credential.ActiveWorkspaceKey)
	} else {
		err = c.store.Set(credential.ActiveWorkspaceKey, id)
	}
	if err != nil {
		c.logger.Warn("could not persist active workspace", "error", err)
	}
}

// LoadWorkspaceScoped fetches collections, environments and history of the
// active workspace concurrently and commits them together. If any fetch
// fails the scoped data is cleared and the default environment restored. If
// the active workspace changed meanwhile the results are discarded.
func (c *Container) LoadWorkspaceScoped(ctx context.Context) error {
	wsID := c.ActiveWorkspaceID()
	if wsID == "" {
		return nil
	}

	var (
		cols []backend.Collection
		envs []backend.Environment
		hist []backend.HistoryRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cols, err = c.backend.ListCollections(gctx, wsID)
		return err
	})
	g.Go(func() error {
		var err error
		envs, err = c.backend.ListEnvironments(gctx, wsID)
		return err
	})
	g.Go(func() error {
		var err error
		hist, err = c.backend.ListHistory(gctx, wsID)
		return err
	})
	err := g.Wait()
	preferred := c.preferredEnvironment()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activeWorkspaceID != wsID {
		return nil
	}
	if err != nil {
		c.collections = nil
		c.environments = nil
		c.history = []history.Entry{}
		c.resetEnvironment()
		return fmt.Errorf("load workspace %s: %w", wsID, err)
	}

	c.collections = cols
	c.environments = envs
	c.history = remoteEntries(wsID, hist)
	if picked, ok := pickEnvironment(envs, preferred); ok {
		c.envVars = copyVars(picked.Variables)
		c.envName = nameOr(picked.Name, "Main")
	} else {
		c.resetEnvironment()
	}
	return nil
}

// pickEnvironment returns the environment named preferred, or the most
// recently updated one when there is no such environment.
func pickEnvironment(envs []backend.Environment, preferred string) (backend.Environment, bool) {
	if preferred != "" {
		if e, ok := findEnvironment(envs, preferred); ok {
			return e, true
		}
	}
	return mostRecent(envs)
}

func findEnvironment(envs []backend.Environment, name string) (backend.Environment, bool) {
	for _, e := range envs {
		if strings.EqualFold(e.Name, name) {
			return e, true
		}
	}
	return backend.Environment{}, false
}

func (c *Container) preferredEnvironment() string {
	if c.store == nil {
		return ""
	}
	name, err := credential.Lookup(c.store, credential.ActiveEnvironmentKey)
	if err != nil {
		c.logger.Debug("could not read preferred environment", "error", err)
	}
	return name
}

// Environments returns the environments of the active workspace as last
// loaded.
func (c *Container) Environments() []backend.Environment {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]backend.Environment(nil), c.environments...)
}

// UseEnvironment applies the loaded environment called name and remembers
// the choice for later loads.
func (c *Container) UseEnvironment(name string) error {
	c.mu.Lock()
	e, ok := findEnvironment(c.environments, name)
	if ok {
		c.envVars = copyVars(e.Variables)
		c.envName = nameOr(e.Name, "Main")
	}
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrEnvironmentNotFound, name)
	}

	if c.store != nil {
		if err := c.store.Set(credential.ActiveEnvironmentKey, e.Name); err != nil {
			c.logger.Warn("could not persist environment choice", "error", err)
		}
	}
	return nil
}

func remoteEntries(wsID string, records []backend.HistoryRecord) []history.Entry {
	out := make([]history.Entry, 0, len(records))
	for _, r := range records {
		out = append(out, history.Entry{
			ID:          r.ID,
			RemoteID:    r.ID,
			WorkspaceID: wsID,
			Request:     r.Request,
			Timestamp:   backend.ParseTimestamp(r.Timestamp),
		})
	}
	return out
}

func mostRecent(envs []backend.Environment) (backend.Environment, bool) {
	if len(envs) == 0 {
		return backend.Environment{}, false
	}
	return backend.SortByRecency(envs)[0], true
}

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

// RefreshWorkspaces reloads the workspace list. When no workspace is active
// the first one becomes active and its collections, environments and
// history are loaded.
func (c *Container) RefreshWorkspaces(ctx context.Context) error {
	list, err := c.backend.ListWorkspaces(ctx)
	if err != nil {
		return fmt.Errorf("refresh workspaces: %w", err)
	}

	c.mu.Lock()
	c.workspaces = list
	selectFirst := c.activeWorkspaceID == "" && len(list) > 0
	c.mu.Unlock()

	if selectFirst {
		c.SelectWorkspace(list[0].ID)
		return c.LoadWorkspaceScoped(ctx)
	}
	return nil
}

// RefreshCollections reloads collections of the active workspace.
func (c *Container) RefreshCollections(ctx context.Context) error {
	wsID := c.ActiveWorkspaceID()
	if wsID == "" {
		return nil
	}
	cols, err := c.backend.ListCollections(ctx, wsID)
	if err != nil {
		return fmt.Errorf("refresh collections: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activeWorkspaceID == wsID {
		c.collections = cols
	}
	return nil
}

// RefreshEnvironments applies the most recently updated environment of the
// active workspace. With no environments the active set is left alone.
func (c *Container) RefreshEnvironments(ctx context.Context) error {
	wsID := c.ActiveWorkspaceID()
	if wsID == "" {
		return nil
	}
	envs, err := c.backend.ListEnvironments(ctx, wsID)
	if err != nil {
		return fmt.Errorf("refresh environments: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activeWorkspaceID != wsID {
		return nil
	}
	c.environments = envs
	if latest, ok := mostRecent(envs); ok {
		c.envVars = copyVars(latest.Variables)
		c.envName = nameOr(latest.Name, "Main")
	}
	return nil
}

// RefreshHistory replaces the in-memory history with the backend's.
func (c *Container) RefreshHistory(ctx context.Context) error {
	wsID := c.ActiveWorkspaceID()
	if wsID == "" {
		return nil
	}
	records, err := c.backend.ListHistory(ctx, wsID)
	if err != nil {
		return fmt.Errorf("refresh history: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activeWorkspaceID == wsID {
		c.history = remoteEntries(wsID, records)
	}
	return nil
}

// Login signs in, stores the token and remembers the user.
func (c *Container) Login(ctx context.Context, email, password string) (*backend.User, error) {
	res, err := c.backend.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := c.tokens.SetToken(res.Token); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}

	c.mu.Lock()
	u := res.User
	c.user = &u
	c.mu.Unlock()
	return &u, nil
}

// Logout forgets the token, the user, the workspace list and the active workspace.
func (c *Container) Logout() error {
	err := c.tokens.ClearToken()

	c.mu.Lock()
	c.user = nil
	c.workspaces = nil
	c.mu.Unlock()

	c.SelectWorkspace("")
	return err
}

// LoadInitial loads the signed-in user and the workspace list, creating a
// default workspace when there is none, then loads the active workspace's
// scoped data. Without a stored token it does nothing.
func (c *Container) LoadInitial(ctx context.Context) error {
	if c.tokens.Token() == "" {
		return ErrNotSignedIn
	}

	user, err := c.backend.Me(ctx)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	c.mu.Lock()
	c.user = user
	c.mu.Unlock()

	list, err := c.ensureWorkspace(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.workspaces = list
	active := c.activeWorkspaceID
	c.mu.Unlock()

	if len(list) > 0 && !containsWorkspace(list, active) {
		c.SelectWorkspace(list[0].ID)
	}
	return c.LoadWorkspaceScoped(ctx)
}

// ensureWorkspace lists workspaces and creates the default one when the list
// is empty. Concurrent callers create at most one.
func (c *Container) ensureWorkspace(ctx context.Context) ([]backend.Workspace, error) {
	list, err := c.backend.ListWorkspaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("load workspaces: %w", err)
	}
	if len(list) > 0 {
		return list, nil
	}

	c.creatingDefault.Lock()
	defer c.creatingDefault.Unlock()

	// another caller may have created it while we waited
	list, err = c.backend.ListWorkspaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("load workspaces: %w", err)
	}
	if len(list) > 0 {
		return list, nil
	}

	if _, err := c.backend.CreateWorkspace(ctx, DefaultWorkspaceName, "Auto-created workspace"); err != nil {
		return nil, fmt.Errorf("create default workspace: %w", err)
	}
	list, err = c.backend.ListWorkspaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("load workspaces: %w", err)
	}
	return list, nil
}

func containsWorkspace(list []backend.Workspace, id string) bool {
	if id == "" {
		return false
	}
	for _, ws := range list {
		if ws.ID == id {
			return true
		}
	}
	return false
}
