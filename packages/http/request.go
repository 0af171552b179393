package http

import (
	"io"
	"log/slog"
	"strings"

	"github.com/abdul-hamid-achik/hitdesk/packages/core/env"
)

// BodyKind describes how the template body should be read.
type BodyKind string

const (
	BodyJSON BodyKind = "json"
	BodyText BodyKind = "text"
	BodyXML  BodyKind = "xml"
	BodyForm BodyKind = "form"
)

// Template is an authored request. Values may contain {{placeholders}}.
// A template is replaced wholesale on edit; nothing mutates one in place.
type Template struct {
	Name     string   `json:"name,omitempty" yaml:"name,omitempty"`
	Method   string   `json:"method" yaml:"method"`
	URL      string   `json:"url" yaml:"url"`
	Headers  Headers  `json:"headers" yaml:"headers"`
	Body     string   `json:"body" yaml:"body"`
	BodyKind BodyKind `json:"bodyType,omitempty" yaml:"bodyType,omitempty"`
}

// NewTemplate returns a template with the editor defaults.
func NewTemplate(method, rawURL string) Template {
	return Template{
		Method:   method,
		URL:      rawURL,
		Headers:  Headers{},
		BodyKind: BodyJSON,
	}
}

// Clone returns a deep copy.
func (t Template) Clone() Template {
	t.Headers = t.Headers.Clone()
	return t
}

// Normalized returns a copy with the method uppercased (GET when empty) and
// the URL trimmed, which is the form stored in history.
func (t Template) Normalized() Template {
	out := t.Clone()
	out.Method = NormalizeMethod(t.Method)
	out.URL = strings.TrimSpace(t.URL)
	return out
}

// IsBlank reports whether the URL is empty once trimmed.
func (t Template) IsBlank() bool {
	return strings.TrimSpace(t.URL) == ""
}

// NormalizeMethod uppercases method, defaulting to GET.
func NormalizeMethod(method string) string {
	m := strings.ToUpper(strings.TrimSpace(method))
	if m == "" {
		return "GET"
	}
	return m
}

// SendsBody reports whether a request with method carries a body.
func SendsBody(method string) bool {
	m := NormalizeMethod(method)
	return m != "GET" && m != "HEAD"
}

// Exchange is a dispatch-ready request: everything resolved, auth merged.
type Exchange struct {
	Method  string
	URL     string
	Headers Headers
	Body    string
}

// BodyReader returns the body as a reader, or nil when there is none.
func (e *Exchange) BodyReader() io.Reader {
	if e.Body == "" || !SendsBody(e.Method) {
		return nil
	}
	return strings.NewReader(e.Body)
}

// TokenSink receives bearer tokens found while building. Writes are best-effort.
type TokenSink interface {
	SetToken(token string) error
}

// Builder turns a template into an Exchange.
type Builder struct {
	rewriter *Rewriter
	tokens   TokenSink
	logger   *slog.Logger
}

type BuilderOption func(*Builder)

func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// WithRewriter enables the local development URL rewrite.
func WithRewriter(r *Rewriter) BuilderOption {
	return func(b *Builder) {
		b.rewriter = r
	}
}

// WithTokenSink sets where detected bearer tokens are stored.
func WithTokenSink(s TokenSink) BuilderOption {
	return func(b *Builder) {
		b.tokens = s
	}
}

// WithBuilderLogger sets the logger.
func WithBuilderLogger(l *slog.Logger) BuilderOption {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// Build resolves tpl against vars and merges auth. It never fails: anything
// that cannot be resolved is passed through for the dispatcher to reject.
func (b *Builder) Build(tpl Template, vars env.Snapshot, auth AuthConfig) *Exchange {
	method := NormalizeMethod(tpl.Method)

	resolvedURL := vars.Resolve(tpl.URL)
	if b.rewriter != nil {
		resolvedURL = b.rewriter.Rewrite(resolvedURL)
	}

	var body string
	if SendsBody(method) {
		body = vars.Resolve(tpl.Body)
	}

	composed, mutation := ComposeAuth(tpl.Headers, auth)
	if mutation != nil {
		resolvedURL = QueryMutation{
			Key:   vars.Resolve(mutation.Key),
			Value: vars.Resolve(mutation.Value),
		}.Apply(resolvedURL)
	}

	headers := make(Headers, 0, len(composed))
	for _, h := range composed {
		value := vars.Resolve(h.Value)
		if h.Key == "" || value == "" {
			continue
		}
		headers = append(headers, Header{Key: h.Key, Value: value})
	}

	ex := &Exchange{
		Method:  method,
		URL:     resolvedURL,
		Headers: headers,
		Body:    body,
	}

	b.storeBearer(ex.Headers)
	b.warnUnresolved(ex)
	return ex
}

func (b *Builder) storeBearer(headers Headers) {
	if b.tokens == nil {
		return
	}
	value, ok := headers.Get(AuthorizationHeader)
	if !ok || !strings.HasPrefix(value, "Bearer ") {
		return
	}
	token := strings.TrimSpace(value[len("Bearer "):])
	if token == "" {
		return
	}
	if err := b.tokens.SetToken(token); err != nil {
		b.logger.Debug("could not persist bearer token", "error", err)
	}
}

func (b *Builder) warnUnresolved(ex *Exchange) {
	names := env.UnresolvedVariables(ex.URL)
	for _, h := range ex.Headers {
		names = append(names, env.UnresolvedVariables(h.Value)...)
	}
	names = append(names, env.UnresolvedVariables(ex.Body)...)
	if len(names) > 0 {
		b.logger.Warn("unresolved variables in request", "variables", names)
	}
}
