package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/hitdesk/packages/credential"
	hithttp "github.com/abdul-hamid-achik/hitdesk/packages/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *credential.Tokens) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	tokens := credential.NewTokens(credential.NewMemoryStore())
	return NewClient(server.URL+"/api", tokens), tokens
}

func TestClient_AttachesToken(t *testing.T) {
	client, tokens := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/workspaces", r.URL.Path)
		assert.Equal(t, "Bearer T", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`[{"id":"w1","name":"One"},{"_id":7,"name":"Seven"}]`))
	})
	require.NoError(t, tokens.SetToken("T"))

	ws, err := client.ListWorkspaces(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Workspace{{ID: "w1", Name: "One"}, {ID: "7", Name: "Seven"}}, ws)
}

func TestClient_NoTokenNoHeader(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[]`))
	})

	ws, err := client.ListWorkspaces(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ws)
}

func TestClient_UnauthorizedClearsToken(t *testing.T) {
	client, tokens := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"jwt expired"}`))
	})
	require.NoError(t, tokens.SetToken("stale"))

	_, err := client.Me(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "jwt expired", apiErr.Message)
	assert.False(t, tokens.HasToken())
}

func TestClient_OtherErrorsKeepToken(t *testing.T) {
	client, tokens := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	require.NoError(t, tokens.SetToken("T"))

	_, err := client.ListWorkspaces(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 500, apiErr.StatusCode)
	assert.Equal(t, "Internal Server Error", apiErr.Message)
	assert.NotErrorIs(t, err, ErrUnauthorized)
	assert.True(t, tokens.HasToken())
}

func TestClient_Login(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"email": "a@b.c", "password": "pw"}, body)
		_, _ = w.Write([]byte(`{"user":{"id":1,"name":"Ada","email":"a@b.c"},"token":"JWT"}`))
	})

	res, err := client.Login(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)
	assert.Equal(t, "JWT", res.Token)
	assert.Equal(t, User{ID: "1", Name: "Ada", Email: "a@b.c"}, res.User)
}

func TestClient_LoginFailureMessage(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Invalid credentials"}`))
	})

	_, err := client.Login(context.Background(), "a@b.c", "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid credentials")
}

func TestClient_ScopedLists(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ws 1", r.URL.Query().Get("workspace_id"))
		switch r.URL.Path {
		case "/api/collections":
			_, _ = w.Write([]byte(`[{"id":"c1","name":"Users","workspaceId":"ws 1","requests":[{"id":"r1","name":"List","method":"get","url":"{{base_url}}/users","headers":[{"key":"Accept","value":"*/*"},"junk"]}]}]`))
		case "/api/environments":
			_, _ = w.Write([]byte(`[
				{"id":"e1","name":"Old","variables":{"base_url":"http://old"},"createdAt":"2024-01-01T00:00:00Z"},
				{"id":"e2","name":"New","variables":{"base_url":"http://new","n":3},"createdAt":"2024-01-01T00:00:00Z","updatedAt":"2024-06-01T00:00:00.000Z"}
			]`))
		case "/api/history":
			_, _ = w.Write([]byte(`[
				{"id":"h1","request":{"method":"POST","url":"http://x","headers":[],"body":"{}"},"timestamp":"2024-01-01T00:00:00Z"},
				{"id":"h2","method":"delete","url":"http://y","executedAt":"2024-01-02T00:00:00Z"}
			]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	cols, err := client.ListCollections(ctx, "ws 1")
	require.NoError(t, err)
	require.Len(t, cols, 1)
	assert.Equal(t, "ws 1", cols[0].WorkspaceID)
	require.Len(t, cols[0].Requests, 1)
	assert.Equal(t, "r1", cols[0].Requests[0].ID)
	assert.Equal(t, "GET", cols[0].Requests[0].Method)
	assert.Equal(t, hithttp.Headers{{Key: "Accept", Value: "*/*"}}, cols[0].Requests[0].Headers)

	envs, err := client.ListEnvironments(ctx, "ws 1")
	require.NoError(t, err)
	require.Len(t, envs, 2)
	sorted := SortByRecency(envs)
	assert.Equal(t, "New", sorted[0].Name)
	assert.Equal(t, float64(3), sorted[0].Variables["n"])
	assert.Equal(t, "Old", envs[0].Name, "input order is untouched")

	hist, err := client.ListHistory(ctx, "ws 1")
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "POST", hist[0].Request.Method)
	assert.Equal(t, "2024-01-01T00:00:00Z", hist[0].Timestamp)
	assert.Equal(t, "h2", hist[1].ID)
	assert.Equal(t, "DELETE", hist[1].Request.Method)
	assert.Equal(t, "http://y", hist[1].Request.URL)
	assert.Equal(t, hithttp.Headers{}, hist[1].Request.Headers)
	assert.Equal(t, "2024-01-02T00:00:00Z", hist[1].Timestamp)
}

func TestClient_CreateHistory(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/history", r.URL.Path)
		data, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{
			"workspace_id":"w1",
			"request":{"method":"GET","url":"http://x","headers":null,"body":""},
			"response":{"statusCode":200,"statusText":"OK","timeMs":5,"sizeBytes":0,"headers":[],"body":""},
			"timestamp":"2024-01-01T00:00:00Z"
		}`, string(data))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"h9"}`))
	})

	id, err := client.CreateHistory(context.Background(), HistoryPayload{
		WorkspaceID: "w1",
		Request:     hithttp.Template{Method: "GET", URL: "http://x"},
		Response:    &hithttp.Response{StatusCode: 200, StatusText: "OK", TimeMs: 5, Headers: [][2]string{}},
		Timestamp:   "2024-01-01T00:00:00Z",
	})
	require.NoError(t, err)
	assert.Equal(t, "h9", id)
}

func TestClient_CreateResources(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		switch r.URL.Path {
		case "/api/workspaces":
			assert.Equal(t, "Team", body["name"])
			_, _ = w.Write([]byte(`{"id":"w2","name":"Team"}`))
		case "/api/collections":
			assert.Equal(t, "w2", body["workspace_id"])
			_, _ = w.Write([]byte(`{"id":"c2","name":"Cats","workspace_id":"w2"}`))
		case "/api/environments":
			assert.Equal(t, map[string]any{"base_url": "http://x"}, body["variables"])
			_, _ = w.Write([]byte(`{"id":"e2","name":"Dev","variables":{"base_url":"http://x"}}`))
		}
	})
	ctx := context.Background()

	ws, err := client.CreateWorkspace(ctx, "Team", "")
	require.NoError(t, err)
	assert.Equal(t, "w2", ws.ID)

	col, err := client.CreateCollection(ctx, "w2", "Cats")
	require.NoError(t, err)
	assert.Equal(t, "w2", col.WorkspaceID)
	assert.Empty(t, col.Requests)

	env, err := client.CreateEnvironment(ctx, "w2", "Dev", map[string]any{"base_url": "http://x"})
	require.NoError(t, err)
	assert.Equal(t, "http://x", env.Variables["base_url"])
}

func TestClient_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := server.URL
	server.Close()

	client := NewClient(target, nil)
	_, err := client.ListWorkspaces(context.Background())
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestClient_RateLimit(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, WithRateLimit(1))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := client.ListWorkspaces(ctx)
	require.NoError(t, err)
	_, err = client.ListWorkspaces(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestNewClient_Defaults(t *testing.T) {
	assert.Equal(t, DefaultBaseURL, NewClient("", nil).BaseURL())
	assert.Equal(t, "http://h/api", NewClient("http://h/api/", nil).BaseURL())
}
