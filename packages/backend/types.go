package backend

import (
	"sort"
	"strings"
	"time"

	hithttp "github.com/abdul-hamid-achik/hitdesk/packages/http"
	"github.com/tidwall/gjson"
)

// User is the signed-in account.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Workspace scopes collections, environments and history.
type Workspace struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Collection is a named group of saved requests.
type Collection struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	WorkspaceID string              `json:"workspace_id"`
	Requests    []CollectionRequest `json:"requests"`
}

// CollectionRequest is a saved request inside a collection.
type CollectionRequest struct {
	ID string `json:"id"`
	hithttp.Template
}

// Environment is a named variable set belonging to a workspace.
type Environment struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	WorkspaceID string         `json:"workspace_id"`
	Variables   map[string]any `json:"variables"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// Recency is UpdatedAt, falling back to CreatedAt.
func (e Environment) Recency() time.Time {
	if !e.UpdatedAt.IsZero() {
		return e.UpdatedAt
	}
	return e.CreatedAt
}

// SortByRecency orders environments most recently touched first. Ties keep
// their server order.
func SortByRecency(envs []Environment) []Environment {
	out := make([]Environment, len(envs))
	copy(out, envs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Recency().After(out[j].Recency())
	})
	return out
}

// HistoryRecord is a history entry as stored by the backend.
type HistoryRecord struct {
	ID        string           `json:"id"`
	Request   hithttp.Template `json:"request"`
	Timestamp string           `json:"timestamp"`
}

// HistoryPayload is what gets persisted for a successful send.
type HistoryPayload struct {
	WorkspaceID string            `json:"workspace_id"`
	Request     hithttp.Template  `json:"request"`
	Response    *hithttp.Response `json:"response,omitempty"`
	Timestamp   string            `json:"timestamp"`
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

func idOf(r gjson.Result) string {
	if id := r.Get("id"); id.Exists() {
		return id.String()
	}
	return r.Get("_id").String()
}

func workspaceRef(r gjson.Result) string {
	if ws := r.Get("workspace_id"); ws.Exists() {
		return ws.String()
	}
	return r.Get("workspaceId").String()
}

func parseTime(r gjson.Result) time.Time {
	if !r.Exists() {
		return time.Time{}
	}
	if r.Type == gjson.Number {
		return time.UnixMilli(r.Int()).UTC()
	}
	return ParseTimestamp(r.String())
}

// ParseTimestamp parses the timestamp formats the backend emits. Unparseable
// input yields the zero time.
func ParseTimestamp(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.000Z", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func decodeUser(r gjson.Result) User {
	return User{
		ID:    idOf(r),
		Name:  r.Get("name").String(),
		Email: r.Get("email").String(),
	}
}

// DecodeWorkspace reads a workspace.
func DecodeWorkspace(r gjson.Result) Workspace {
	return Workspace{
		ID:          idOf(r),
		Name:        r.Get("name").String(),
		Description: r.Get("description").String(),
	}
}

// DecodeTemplate reads a request template from JSON, tolerating missing
// fields and header entries that are not key/value objects.
func DecodeTemplate(r gjson.Result) hithttp.Template {
	tpl := hithttp.Template{
		Name:     r.Get("name").String(),
		Method:   strings.ToUpper(r.Get("method").String()),
		URL:      r.Get("url").String(),
		Headers:  hithttp.Headers{},
		Body:     r.Get("body").String(),
		BodyKind: hithttp.BodyKind(r.Get("bodyType").String()),
	}
	if tpl.Method == "" {
		tpl.Method = "GET"
	}
	r.Get("headers").ForEach(func(_, h gjson.Result) bool {
		if h.IsObject() {
			tpl.Headers = append(tpl.Headers, hithttp.Header{
				Key:   h.Get("key").String(),
				Value: h.Get("value").String(),
			})
		}
		return true
	})
	return tpl
}

// DecodeCollection reads a collection, accepting workspace_id or workspaceId.
func DecodeCollection(r gjson.Result) Collection {
	c := Collection{
		ID:          idOf(r),
		Name:        r.Get("name").String(),
		WorkspaceID: workspaceRef(r),
		Requests:    []CollectionRequest{},
	}
	r.Get("requests").ForEach(func(_, req gjson.Result) bool {
		c.Requests = append(c.Requests, CollectionRequest{ID: idOf(req), Template: DecodeTemplate(req)})
		return true
	})
	return c
}

// DecodeEnvironment reads an environment. Non-object variables become empty.
func DecodeEnvironment(r gjson.Result) Environment {
	vars := map[string]any{}
	if v, ok := r.Get("variables").Value().(map[string]any); ok {
		vars = v
	}
	return Environment{
		ID:          idOf(r),
		Name:        r.Get("name").String(),
		WorkspaceID: workspaceRef(r),
		Variables:   vars,
		CreatedAt:   parseTime(r.Get("createdAt")),
		UpdatedAt:   parseTime(r.Get("updatedAt")),
	}
}

// decodeHistory accepts both the current shape, where the request sits under
// "request", and the legacy flat shape {id, method, url, headers, body, executedAt}.
func decodeHistory(r gjson.Result) HistoryRecord {
	if req := r.Get("request"); req.Exists() && req.IsObject() {
		return HistoryRecord{
			ID:        idOf(r),
			Request:   DecodeTemplate(req),
			Timestamp: r.Get("timestamp").String(),
		}
	}

	ts := r.Get("executedAt")
	if !ts.Exists() {
		ts = r.Get("timestamp")
	}
	tpl := DecodeTemplate(r)
	tpl.Name = ""
	return HistoryRecord{
		ID:        idOf(r),
		Request:   tpl,
		Timestamp: ts.String(),
	}
}

func decodeList[T any](body []byte, decode func(gjson.Result) T) []T {
	out := []T{}
	parsed := gjson.ParseBytes(body)
	if !parsed.IsArray() {
		return out
	}
	parsed.ForEach(func(_, item gjson.Result) bool {
		out = append(out, decode(item))
		return true
	})
	return out
}
