package http

import (
	"errors"
	"testing"

	"github.com/abdul-hamid-achik/hitdesk/packages/core/env"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	tokens []string
	err    error
}

func (s *recordingSink) SetToken(token string) error {
	s.tokens = append(s.tokens, token)
	return s.err
}

func TestBuilder_GetHasNoBody(t *testing.T) {
	tpl := Template{Method: "get", URL: "{{base_url}}/users", Body: `{"a":1}`}
	vars := env.NewSnapshot("Main", map[string]string{"base_url": "http://x"})

	ex := NewBuilder().Build(tpl, vars, NoAuth())

	assert.Equal(t, "GET", ex.Method)
	assert.Equal(t, "http://x/users", ex.URL)
	assert.Empty(t, ex.Body)
	assert.Nil(t, ex.BodyReader())
	assert.Empty(t, ex.Headers)
}

func TestBuilder_ResolvesBodyAndHeaderValues(t *testing.T) {
	tpl := Template{
		Method: "POST",
		URL:    "{{base_url}}/users",
		Headers: Headers{
			{Key: "Content-Type", Value: "application/json"},
			{Key: "X-{{tenant}}", Value: "{{tenant}}"},
			{Key: "X-Empty", Value: "{{empty}}"},
			{Key: "", Value: "orphan"},
		},
		Body: `{"name":"{{name}}"}`,
	}
	vars := env.NewSnapshot("Main", map[string]string{
		"base_url": "http://x",
		"tenant":   "acme",
		"empty":    "",
		"name":     "ada",
	})

	ex := NewBuilder().Build(tpl, vars, NoAuth())

	assert.Equal(t, `{"name":"ada"}`, ex.Body)
	assert.Equal(t, Headers{
		{Key: "Content-Type", Value: "application/json"},
		{Key: "X-{{tenant}}", Value: "acme"},
	}, ex.Headers)
}

func TestBuilder_BearerFromVariables(t *testing.T) {
	sink := &recordingSink{}
	tpl := Template{
		Method:  "GET",
		URL:     "http://x/me",
		Headers: Headers{{Key: "Authorization", Value: "Basic xyz"}},
	}
	vars := env.NewSnapshot("Main", map[string]string{"token": "abc"})

	ex := NewBuilder(WithTokenSink(sink)).Build(tpl, vars, BearerAuth("{{token}}"))

	require.Equal(t, 1, ex.Headers.Count("Authorization"))
	v, _ := ex.Headers.Get("Authorization")
	assert.Equal(t, "Bearer abc", v)
	assert.Equal(t, []string{"abc"}, sink.tokens)
}

func TestBuilder_TokenSinkFailureIsIgnored(t *testing.T) {
	sink := &recordingSink{err: errors.New("read-only")}
	tpl := Template{Method: "GET", URL: "http://x"}

	ex := NewBuilder(WithTokenSink(sink)).Build(tpl, env.NewSnapshot("", nil), BearerAuth("t"))

	assert.Equal(t, "http://x", ex.URL)
	assert.Equal(t, []string{"t"}, sink.tokens)
}

func TestBuilder_EmptyBearerTokenNotStored(t *testing.T) {
	sink := &recordingSink{}
	tpl := Template{Method: "GET", URL: "http://x"}

	// "Bearer " survives value filtering but carries no token.
	ex := NewBuilder(WithTokenSink(sink)).Build(tpl, env.NewSnapshot("", nil), BearerAuth(""))

	assert.Equal(t, 1, ex.Headers.Count("Authorization"))
	assert.Empty(t, sink.tokens)
}

func TestBuilder_BasicIsNotStored(t *testing.T) {
	sink := &recordingSink{}
	tpl := Template{Method: "GET", URL: "http://x"}

	NewBuilder(WithTokenSink(sink)).Build(tpl, env.NewSnapshot("", nil), BasicAuth("u", "p"))

	assert.Empty(t, sink.tokens)
}

func TestBuilder_APIKeyQueryResolved(t *testing.T) {
	tpl := Template{Method: "GET", URL: "{{base_url}}/p?x=1"}
	vars := env.NewSnapshot("Main", map[string]string{"base_url": "http://h", "key": "v"})

	ex := NewBuilder().Build(tpl, vars, APIKeyAuth("k", "{{key}}", PlacementQuery))

	assert.Equal(t, "http://h/p?x=1&k=v", ex.URL)
	assert.Empty(t, ex.Headers)
}

func TestBuilder_DevRewrite(t *testing.T) {
	rw, err := NewRewriter("http://localhost:5000")
	require.NoError(t, err)
	b := NewBuilder(WithRewriter(rw))
	vars := env.NewSnapshot("Main", map[string]string{"base_url": "http://localhost:5000/api"})

	ex := b.Build(Template{Method: "GET", URL: "{{base_url}}/workspaces?x=1"}, vars, NoAuth())
	assert.Equal(t, "/api/workspaces?x=1", ex.URL)

	ex = b.Build(Template{Method: "GET", URL: "http://example.com/api"}, vars, NoAuth())
	assert.Equal(t, "http://example.com/api", ex.URL)
}

func TestBuilder_UsesSnapshotNotSource(t *testing.T) {
	source := map[string]string{"base_url": "http://a"}
	vars := env.NewSnapshot("Main", source)
	source["base_url"] = "http://b"

	ex := NewBuilder().Build(Template{Method: "GET", URL: "{{base_url}}"}, vars, NoAuth())
	assert.Equal(t, "http://a", ex.URL)
}

func TestTemplate_Normalized(t *testing.T) {
	tpl := Template{Method: " post ", URL: "  http://x/y  ", Headers: Headers{{Key: "A", Value: "1"}}}
	n := tpl.Normalized()

	assert.Equal(t, "POST", n.Method)
	assert.Equal(t, "http://x/y", n.URL)

	n.Headers[0].Value = "changed"
	assert.Equal(t, "1", tpl.Headers[0].Value)

	assert.Equal(t, "GET", Template{}.Normalized().Method)
	assert.True(t, Template{URL: "   "}.IsBlank())
}

func TestRewriter(t *testing.T) {
	rw, err := NewRewriter("localhost:5000")
	require.NoError(t, err)

	tests := []struct {
		in   string
		want string
	}{
		{"http://localhost:5000/api/users", "/api/users"},
		{"HTTPS://LOCALHOST:5000/api", "/api"},
		{"http://localhost:5000", "/"},
		{"http://localhost:5000/api?a=1#frag", "/api?a=1#frag"},
		{"http://localhost:5001/api", "http://localhost:5001/api"},
		{"http://localhost:50000/api", "http://localhost:50000/api"},
		{"/api/users", "/api/users"},
		{"https://api.example.com", "https://api.example.com"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, rw.Rewrite(tt.in), tt.in)
	}

	var nilRewriter *Rewriter
	assert.Equal(t, "http://localhost:5000/x", nilRewriter.Rewrite("http://localhost:5000/x"))

	_, err = NewRewriter("localhost:5000/api")
	assert.Error(t, err)
}
