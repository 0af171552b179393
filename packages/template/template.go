// Package template reads and writes request template files.
//
// A template file is YAML (or JSON, which YAML accepts) holding one request:
//
//	name: List users
//	method: GET
//	url: "{{base_url}}/users"
//	headers:
//	  - key: Accept
//	    value: application/json
//	auth:
//	  type: Bearer
//	  token: "{{token}}"
//	variables:
//	  base_url: http://localhost:8080
//
// Files are checked against an embedded JSON schema before decoding.
package template

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	hithttp "github.com/abdul-hamid-achik/hitdesk/packages/http"
	"gopkg.in/yaml.v3"
)

// File is a template file: the request, its auth and optional variables
// layered over the active environment.
type File struct {
	hithttp.Template `yaml:",inline"`
	Auth             *hithttp.AuthConfig `json:"auth,omitempty" yaml:"auth,omitempty"`
	Variables        map[string]any      `json:"variables,omitempty" yaml:"variables,omitempty"`
}

// rawFile mirrors File for decoding; body may be a string or structured JSON.
type rawFile struct {
	Name      string              `json:"name"`
	Method    string              `json:"method"`
	URL       string              `json:"url"`
	Headers   hithttp.Headers     `json:"headers"`
	Body      json.RawMessage     `json:"body"`
	BodyKind  hithttp.BodyKind    `json:"bodyType"`
	Auth      *hithttp.AuthConfig `json:"auth"`
	Variables map[string]any      `json:"variables"`
}

// EffectiveAuth returns the file's auth, or None when it has none.
func (f *File) EffectiveAuth() hithttp.AuthConfig {
	if f.Auth == nil {
		return hithttp.NoAuth()
	}
	return f.Auth.Normalize()
}

// Load reads and parses the template file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse validates data against the template schema and decodes it.
func Parse(data []byte) (*File, error) {
	doc, err := toJSON(data)
	if err != nil {
		return nil, err
	}
	if err := validateJSON(doc); err != nil {
		return nil, err
	}

	var raw rawFile
	if err := json.Unmarshal(doc, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode template: %w", err)
	}

	body, err := bodyText(raw.Body)
	if err != nil {
		return nil, err
	}

	f := &File{
		Template: hithttp.Template{
			Name:     raw.Name,
			Method:   hithttp.NormalizeMethod(raw.Method),
			URL:      raw.URL,
			Headers:  raw.Headers,
			Body:     body,
			BodyKind: raw.BodyKind,
		},
		Auth:      raw.Auth,
		Variables: raw.Variables,
	}
	if f.Headers == nil {
		f.Headers = hithttp.Headers{}
	}
	if f.Auth != nil {
		if err := f.Auth.Validate(); err != nil {
			return nil, &ValidationError{Problems: []string{"auth: " + err.Error()}}
		}
		a := f.Auth.Normalize()
		f.Auth = &a
	}
	return f, nil
}

func bodyText(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", fmt.Errorf("failed to decode body: %w", err)
		}
		return s, nil
	}
	var out bytes.Buffer
	if err := json.Indent(&out, trimmed, "", "  "); err != nil {
		return "", fmt.Errorf("failed to format body: %w", err)
	}
	return out.String(), nil
}

// toJSON converts a YAML or JSON document to JSON bytes.
func toJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	out, err := json.Marshal(stringKeys(doc))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	return out, nil
}

// stringKeys rewrites map[any]any nodes (YAML non-string keys) so the
// document can be marshalled as JSON.
func stringKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			t[k] = stringKeys(child)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			out[fmt.Sprint(k)] = stringKeys(child)
		}
		return out
	case []any:
		for i, child := range t {
			t[i] = stringKeys(child)
		}
		return t
	default:
		return v
	}
}

// Save writes f to path. Paths ending in .json are written as JSON,
// everything else as YAML.
func (f *File) Save(path string) error {
	var (
		data []byte
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err = json.MarshalIndent(f, "", "  ")
		data = append(data, '\n')
	} else {
		data, err = yaml.Marshal(f)
	}
	if err != nil {
		return fmt.Errorf("failed to encode template: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Example returns the template written by `hitdesk init`.
func Example() *File {
	return &File{
		Template: hithttp.Template{
			Name:    "List users",
			Method:  "GET",
			URL:     "{{base_url}}/users",
			Headers: hithttp.Headers{{Key: "Accept", Value: "application/json"}},
		},
		Auth: &hithttp.AuthConfig{Type: hithttp.AuthBearer, Token: "{{token}}"},
	}
}
