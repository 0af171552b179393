package env

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// placeholderPattern matches any {{...}} token, known or not.
var placeholderPattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// Snapshot is an immutable view of one environment's variables. Resolution
// always runs against a Snapshot so a concurrent refresh of the active
// environment can never be observed half-way through a pass.
type Snapshot struct {
	name    string
	values  map[string]string
	keys    []string
	pattern *regexp.Regexp
}

// NewSnapshot copies vars into a new Snapshot. Later changes to vars are not
// visible through the returned value.
func NewSnapshot(name string, vars map[string]string) Snapshot {
	s := Snapshot{
		name:   name,
		values: make(map[string]string, len(vars)),
		keys:   make([]string, 0, len(vars)),
	}
	for k, v := range vars {
		if k == "" {
			continue
		}
		s.values[k] = v
		s.keys = append(s.keys, k)
	}

	// Longest keys first, then lexical, so the alternation is stable for a
	// fixed variable set.
	sort.Slice(s.keys, func(i, j int) bool {
		if len(s.keys[i]) != len(s.keys[j]) {
			return len(s.keys[i]) > len(s.keys[j])
		}
		return s.keys[i] < s.keys[j]
	})

	if len(s.keys) > 0 {
		quoted := make([]string, len(s.keys))
		for i, k := range s.keys {
			quoted[i] = regexp.QuoteMeta(k)
		}
		s.pattern = regexp.MustCompile(`\{\{\s*(` + strings.Join(quoted, "|") + `)\s*\}\}`)
	}
	return s
}

// SnapshotFromAny builds a Snapshot from loosely typed values, as decoded from
// JSON or YAML. nil values become empty strings.
func SnapshotFromAny(name string, vars map[string]any) Snapshot {
	return NewSnapshot(name, Stringify(vars))
}

// Stringify converts loosely typed variable values to strings.
func Stringify(vars map[string]any) map[string]string {
	out := make(map[string]string, len(vars))
	for k, v := range vars {
		switch val := v.(type) {
		case nil:
			out[k] = ""
		case string:
			out[k] = val
		default:
			out[k] = fmt.Sprintf("%v", val)
		}
	}
	return out
}

// Name returns the environment name the snapshot was taken from.
func (s Snapshot) Name() string {
	return s.name
}

// Len returns the number of variables.
func (s Snapshot) Len() int {
	return len(s.keys)
}

// Keys returns the variable names in resolution order.
func (s Snapshot) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Get returns the value of a variable.
func (s Snapshot) Get(name string) (string, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Values returns a copy of the variables.
func (s Snapshot) Values() map[string]string {
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Resolve replaces every {{ name }} placeholder whose name is a variable of
// the snapshot. The input is scanned once: substituted values are never
// scanned again, and unknown placeholders are left untouched.
func (s Snapshot) Resolve(text string) string {
	if text == "" || s.pattern == nil {
		return text
	}
	matches := s.pattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	// The captured group is the key exactly as stored, surrounding spaces
	// included, so the lookup never has to guess at trimming.
	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(text[last:m[0]])
		b.WriteString(s.values[text[m[2]:m[3]]])
		last = m[1]
	}
	b.WriteString(text[last:])
	return b.String()
}

// Resolve is a convenience wrapper for one-off resolution against a plain map.
// A nil map leaves text unchanged.
func Resolve(text string, vars map[string]string) string {
	if vars == nil {
		return text
	}
	return NewSnapshot("", vars).Resolve(text)
}

// HasUnresolvedVariables reports whether text still contains placeholders.
func HasUnresolvedVariables(text string) bool {
	return placeholderPattern.MatchString(text)
}

// UnresolvedVariables returns the names of the placeholders left in text, in
// order of appearance and without duplicates.
func UnresolvedVariables(text string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	var names []string
	seen := make(map[string]bool)
	for _, m := range matches {
		name := strings.TrimSpace(m[1])
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}
