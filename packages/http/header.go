package http

import "strings"

// AuthorizationHeader is the header owned by the auth composer.
const AuthorizationHeader = "Authorization"

// Header is a single key/value pair of an ordered header sequence.
type Header struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Headers is an ordered header sequence. Insertion order is significant and
// keys may repeat, so it is not a map.
type Headers []Header

// Get returns the value of the first header whose key case-insensitively
// equals key.
func (h Headers) Get(key string) (string, bool) {
	for _, hdr := range h {
		if strings.EqualFold(hdr.Key, key) {
			return hdr.Value, true
		}
	}
	return "", false
}

// Count returns how many headers case-insensitively match key.
func (h Headers) Count(key string) int {
	n := 0
	for _, hdr := range h {
		if strings.EqualFold(hdr.Key, key) {
			n++
		}
	}
	return n
}

// Clone returns a copy that shares nothing with h.
func (h Headers) Clone() Headers {
	if h == nil {
		return nil
	}
	out := make(Headers, len(h))
	copy(out, h)
	return out
}

// Without returns the headers for which drop returns false.
func (h Headers) Without(drop func(Header) bool) Headers {
	out := make(Headers, 0, len(h))
	for _, hdr := range h {
		if !drop(hdr) {
			out = append(out, hdr)
		}
	}
	return out
}
