package http

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// DefaultBackendOrigin is the direct backend address used during local development.
const DefaultBackendOrigin = "localhost:5000"

// Rewriter turns absolute URLs that target the local backend directly into
// path-only URLs, so they go through the development proxy instead. URLs for
// any other origin are returned untouched.
type Rewriter struct {
	direct *regexp.Regexp
}

// NewRewriter builds a Rewriter for backendOrigin ("host:port", with or
// without a scheme).
func NewRewriter(backendOrigin string) (*Rewriter, error) {
	origin := strings.TrimSpace(backendOrigin)
	if origin == "" {
		origin = DefaultBackendOrigin
	}
	if i := strings.Index(origin, "://"); i >= 0 {
		origin = origin[i+3:]
	}
	origin = strings.TrimRight(origin, "/")
	if origin == "" || strings.Contains(origin, "/") {
		return nil, fmt.Errorf("invalid backend origin: %q", backendOrigin)
	}

	direct, err := regexp.Compile(`(?i)^https?://` + regexp.QuoteMeta(origin) + `(/.*)?$`)
	if err != nil {
		return nil, err
	}
	return &Rewriter{direct: direct}, nil
}

// Rewrite returns the path, query and fragment of rawURL when it targets the
// direct backend origin, and rawURL otherwise.
func (r *Rewriter) Rewrite(rawURL string) string {
	if r == nil || !r.direct.MatchString(rawURL) {
		return rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	if u.Fragment != "" {
		path += "#" + u.EscapedFragment()
	}
	return path
}
