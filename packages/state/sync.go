package state

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"

	hithttp "github.com/abdul-hamid-achik/hitdesk/packages/http"
)

// Resource is a backend collection a request URL can target.
type Resource string

const (
	ResourceNone         Resource = ""
	ResourceWorkspaces   Resource = "workspaces"
	ResourceEnvironments Resource = "environments"
	ResourceCollections  Resource = "collections"
)

var resourcePatterns = []struct {
	resource Resource
	pattern  *regexp.Regexp
}{
	{ResourceWorkspaces, regexp.MustCompile(`/workspaces(/|\?|$)`)},
	{ResourceEnvironments, regexp.MustCompile(`/environments(/|\?|$)`)},
	{ResourceCollections, regexp.MustCompile(`/collections(/|\?|$)`)},
}

// ClassifyURL returns the resource a URL targets. Workspaces win over
// environments, which win over collections.
func ClassifyURL(rawURL string) Resource {
	for _, rp := range resourcePatterns {
		if rp.pattern.MatchString(rawURL) {
			return rp.resource
		}
	}
	return ResourceNone
}

func isMutation(method string) bool {
	switch strings.ToUpper(method) {
	case "POST", "PUT", "DELETE":
		return true
	}
	return false
}

// Synchronizer keeps the Container in step with mutations the user sends to
// the backend through the request panel.
type Synchronizer struct {
	state  *Container
	logger *slog.Logger
}

type SyncOption func(*Synchronizer)

func WithSyncLogger(l *slog.Logger) SyncOption {
	return func(s *Synchronizer) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewSynchronizer(c *Container, opts ...SyncOption) *Synchronizer {
	s := &Synchronizer{
		state:  c,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sync inspects a completed send. Only successful POST, PUT and DELETE
// sends to a known resource have an effect. Optimistic writes happen first
// and are never rolled back; refresh failures are logged and ignored.
// It returns the resource that was synchronized.
func (s *Synchronizer) Sync(ctx context.Context, method, resolvedURL string, result hithttp.Result) Resource {
	if !result.IsSuccess() || !isMutation(method) {
		return ResourceNone
	}
	resource := ClassifyURL(resolvedURL)
	if resource == ResourceNone {
		return ResourceNone
	}

	post := strings.EqualFold(method, "POST")
	payload := ParsePayload(result.Response.Body)

	switch resource {
	case ResourceWorkspaces:
		switched := false
		if post {
			if id := payload.ID(); id != "" {
				switched = id != s.state.ActiveWorkspaceID()
				s.state.SelectWorkspace(id)
			}
		}
		s.refresh("workspaces", s.state.RefreshWorkspaces(ctx))
		s.refresh("collections", s.state.RefreshCollections(ctx))
		s.refresh("environments", s.state.RefreshEnvironments(ctx))
		// SelectWorkspace dropped the previous workspace's history.
		if switched {
			s.refresh("history", s.state.RefreshHistory(ctx))
		}

	case ResourceEnvironments:
		if post {
			if vars, ok := payload.Variables(); ok {
				s.state.ApplyEnvironment(payload.Name(), vars)
			}
		}
		s.refresh("environments", s.state.RefreshEnvironments(ctx))

	case ResourceCollections:
		if wsID := s.state.ActiveWorkspaceID(); post && payload.ID() != "" && payload.InWorkspace(wsID) {
			col := payload.Collection()
			col.WorkspaceID = wsID
			if s.state.PrependCollection(col) {
				s.logger.Debug("collection added optimistically", "id", payload.ID())
			}
		}
		s.refresh("collections", s.state.RefreshCollections(ctx))
	}
	return resource
}

func (s *Synchronizer) refresh(what string, err error) {
	if err != nil {
		s.logger.Warn("state refresh failed", "resource", what, "error", err)
	}
}
