package http

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// AuthType selects the active auth variant.
type AuthType string

const (
	AuthNone   AuthType = "None"
	AuthBearer AuthType = "Bearer"
	AuthBasic  AuthType = "Basic"
	AuthAPIKey AuthType = "API Key"
)

// APIKeyPlacement says where an API key goes.
type APIKeyPlacement string

const (
	PlacementHeader APIKeyPlacement = "Header"
	PlacementQuery  APIKeyPlacement = "Query"
)

// DefaultAPIKeyName is the key used when an API key config leaves it empty.
const DefaultAPIKeyName = "X-API-Key"

// AuthConfig is a tagged variant: Type picks which of the remaining fields
// are meaningful. Only one variant is active at a time.
type AuthConfig struct {
	Type      AuthType        `json:"type" yaml:"type"`
	Token     string          `json:"token,omitempty" yaml:"token,omitempty"`
	Username  string          `json:"username,omitempty" yaml:"username,omitempty"`
	Password  string          `json:"password,omitempty" yaml:"password,omitempty"`
	Key       string          `json:"key,omitempty" yaml:"key,omitempty"`
	Value     string          `json:"value,omitempty" yaml:"value,omitempty"`
	Placement APIKeyPlacement `json:"placement,omitempty" yaml:"placement,omitempty"`
}

// NoAuth returns the None variant.
func NoAuth() AuthConfig {
	return AuthConfig{Type: AuthNone}
}

// BearerAuth returns the Bearer variant.
func BearerAuth(token string) AuthConfig {
	return AuthConfig{Type: AuthBearer, Token: token}
}

// BasicAuth returns the Basic variant.
func BasicAuth(username, password string) AuthConfig {
	return AuthConfig{Type: AuthBasic, Username: username, Password: password}
}

// APIKeyAuth returns the API key variant.
func APIKeyAuth(key, value string, placement APIKeyPlacement) AuthConfig {
	return AuthConfig{Type: AuthAPIKey, Key: key, Value: value, Placement: placement}
}

// Normalize fills defaults and maps loose spellings ("apikey", "bearer") to
// the canonical variant names.
func (a AuthConfig) Normalize() AuthConfig {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(string(a.Type)), " ", "")) {
	case "", "none":
		a.Type = AuthNone
	case "bearer":
		a.Type = AuthBearer
	case "basic":
		a.Type = AuthBasic
	case "apikey", "api_key":
		a.Type = AuthAPIKey
		if a.Key == "" {
			a.Key = DefaultAPIKeyName
		}
		if strings.EqualFold(string(a.Placement), string(PlacementQuery)) {
			a.Placement = PlacementQuery
		} else {
			a.Placement = PlacementHeader
		}
	}
	return a
}

// Validate reports configs whose Type is not a known variant.
func (a AuthConfig) Validate() error {
	switch a.Normalize().Type {
	case AuthNone, AuthBearer, AuthBasic, AuthAPIKey:
		return nil
	default:
		return fmt.Errorf("unsupported auth type: %q", a.Type)
	}
}

func (a AuthConfig) isHeaderAPIKey() bool {
	return a.Type == AuthAPIKey && a.Placement == PlacementHeader
}

// QueryMutation asks the builder to set a query parameter on the resolved URL.
type QueryMutation struct {
	Key   string
	Value string
}

// ComposeAuth derives the header sequence for auth. Any Authorization header
// is removed, as is an existing header named like a header-placed API key,
// then the auth header is inserted at the front. Composing an already
// composed sequence again yields the same sequence.
//
// Query-placed API keys leave headers alone and return a QueryMutation.
func ComposeAuth(headers Headers, auth AuthConfig) (Headers, *QueryMutation) {
	auth = auth.Normalize()

	out := headers.Without(func(h Header) bool {
		if h.Key == "" {
			return true
		}
		if strings.EqualFold(h.Key, AuthorizationHeader) {
			return true
		}
		return auth.isHeaderAPIKey() && h.Key == auth.Key
	})

	var front *Header
	var mutation *QueryMutation

	switch auth.Type {
	case AuthBearer:
		front = &Header{Key: AuthorizationHeader, Value: "Bearer " + auth.Token}
	case AuthBasic:
		creds := base64.StdEncoding.EncodeToString([]byte(auth.Username + ":" + auth.Password))
		front = &Header{Key: AuthorizationHeader, Value: "Basic " + creds}
	case AuthAPIKey:
		if auth.Placement == PlacementQuery {
			mutation = &QueryMutation{Key: auth.Key, Value: auth.Value}
		} else {
			front = &Header{Key: auth.Key, Value: auth.Value}
		}
	}

	if front != nil {
		out = append(Headers{*front}, out...)
	}
	return out, mutation
}

// Apply sets the query parameter on rawURL, replacing the first existing
// parameter of the same name in place and dropping any repeats. URLs without
// a scheme and host are treated as opaque strings and the parameter is
// appended with ? or &.
func (m QueryMutation) Apply(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		sep := "?"
		if strings.Contains(rawURL, "?") {
			sep = "&"
		}
		return rawURL + sep + encodeComponent(m.Key) + "=" + encodeComponent(m.Value)
	}

	pair := url.QueryEscape(m.Key) + "=" + url.QueryEscape(m.Value)
	var parts []string
	replaced := false
	if u.RawQuery != "" {
		for _, part := range strings.Split(u.RawQuery, "&") {
			name, _, _ := strings.Cut(part, "=")
			if decoded, err := url.QueryUnescape(name); err == nil && decoded == m.Key {
				if replaced {
					continue
				}
				part = pair
				replaced = true
			}
			parts = append(parts, part)
		}
	}
	if !replaced {
		parts = append(parts, pair)
	}
	u.RawQuery = strings.Join(parts, "&")
	u.ForceQuery = false
	return u.String()
}

// encodeComponent escapes like JavaScript's encodeURIComponent.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
