package state

import (
	"github.com/abdul-hamid-achik/hitdesk/packages/backend"
	"github.com/tidwall/gjson"
)

// Payload is a response body probed as JSON. A body that is not valid JSON
// is an empty payload: every lookup reports absence.
type Payload struct {
	json gjson.Result
}

func ParsePayload(body string) Payload {
	if !gjson.Valid(body) {
		return Payload{}
	}
	return Payload{json: gjson.Parse(body)}
}

// Exists reports whether the body parsed to a JSON object.
func (p Payload) Exists() bool {
	return p.json.IsObject()
}

// ID returns the created resource id, or "".
func (p Payload) ID() string {
	if !p.Exists() {
		return ""
	}
	id := p.json.Get("id")
	if !truthy(id) {
		return ""
	}
	return id.String()
}

// Name returns the "name" field, or "".
func (p Payload) Name() string {
	if !p.Exists() {
		return ""
	}
	return p.json.Get("name").String()
}

// InWorkspace reports whether either "workspace_id" or "workspaceId" equals
// id. An empty id never matches.
func (p Payload) InWorkspace(id string) bool {
	if !p.Exists() || id == "" {
		return false
	}
	for _, field := range []string{"workspace_id", "workspaceId"} {
		if ws := p.json.Get(field); ws.Exists() && ws.String() == id {
			return true
		}
	}
	return false
}

// Variables returns the "variables" object, if present.
func (p Payload) Variables() (map[string]any, bool) {
	if !p.Exists() {
		return nil, false
	}
	vars, ok := p.json.Get("variables").Value().(map[string]any)
	return vars, ok
}

// Collection decodes the payload as a collection.
func (p Payload) Collection() backend.Collection {
	return backend.DecodeCollection(p.json)
}

// truthy follows JavaScript truthiness for JSON values.
func truthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.Null:
		return false
	case gjson.False:
		return false
	case gjson.Number:
		return r.Num != 0
	case gjson.String:
		return r.Str != ""
	default:
		return r.Exists()
	}
}
