package http

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
)

// ErrorKind classifies a failed execution.
type ErrorKind string

// ErrNetwork covers every transport failure: DNS, refused connections,
// timeouts, aborted reads and malformed URLs.
const ErrNetwork ErrorKind = "NetworkError"

// Response is the normalized record of a received response, whatever its status.
type Response struct {
	StatusCode int         `json:"statusCode"`
	StatusText string      `json:"statusText"`
	TimeMs     int64       `json:"timeMs"`
	SizeBytes  int         `json:"sizeBytes"`
	Headers    [][2]string `json:"headers"`
	Body       string      `json:"body"`
}

// Failure is the normalized record of an exchange that produced no response.
type Failure struct {
	ErrorKind ErrorKind `json:"errorKind"`
	Details   string    `json:"details"`
}

// Result is either a Response or a Failure, never both. Results are not
// modified once produced.
type Result struct {
	Response *Response
	Failure  *Failure
}

// IsSuccess reports whether a response was received. HTTP error statuses
// count as success here.
func (r Result) IsSuccess() bool {
	return r.Response != nil
}

func (r Result) MarshalJSON() ([]byte, error) {
	if r.Response != nil {
		return json.Marshal(r.Response)
	}
	if r.Failure != nil {
		return json.Marshal(r.Failure)
	}
	return []byte("null"), nil
}

func (r *Result) UnmarshalJSON(data []byte) error {
	var probe struct {
		ErrorKind ErrorKind `json:"errorKind"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if probe.ErrorKind != "" {
		r.Failure = &Failure{}
		return json.Unmarshal(data, r.Failure)
	}
	r.Response = &Response{}
	return json.Unmarshal(data, r.Response)
}

// NetworkFailure builds a Failure result for a transport error.
func NetworkFailure(details string) Result {
	return Result{Failure: &Failure{ErrorKind: ErrNetwork, Details: details}}
}

// Normalize converts a dispatch outcome into a Result. The body is decoded
// (content encoding, then charset) to text but never parsed; SizeBytes is the
// UTF-8 byte length of that text.
func Normalize(o *Outcome) Result {
	if o == nil {
		return NetworkFailure("no response")
	}
	if o.Err != nil {
		return NetworkFailure(o.Err.Error())
	}

	text := decodeBody(o.Body, o.Header, o.Uncompressed)

	return Result{Response: &Response{
		StatusCode: o.StatusCode,
		StatusText: statusText(o.StatusCode, o.Status),
		TimeMs:     o.Elapsed.Milliseconds(),
		SizeBytes:  len(text),
		Headers:    headerPairs(o.Header),
		Body:       text,
	}}
}

func statusText(code int, status string) string {
	prefix := strconv.Itoa(code)
	if text := strings.TrimSpace(strings.TrimPrefix(status, prefix)); text != "" && text != status {
		return text
	}
	return http.StatusText(code)
}

// headerPairs flattens response headers the way a fetch Headers iterator
// does: lowercase names in sorted order, repeated values joined with ", ".
// Set-Cookie values stay separate.
func headerPairs(h http.Header) [][2]string {
	if len(h) == 0 {
		return [][2]string{}
	}
	names := make([]string, 0, len(h))
	for k := range h {
		names = append(names, k)
	}
	sort.Slice(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})

	pairs := make([][2]string, 0, len(names))
	for _, k := range names {
		name := strings.ToLower(k)
		values := h[k]
		if name == "set-cookie" {
			for _, v := range values {
				pairs = append(pairs, [2]string{name, v})
			}
			continue
		}
		pairs = append(pairs, [2]string{name, strings.Join(values, ", ")})
	}
	return pairs
}

// Header returns the first response header value matching key case-insensitively.
func (r *Response) Header(key string) string {
	for _, kv := range r.Headers {
		if strings.EqualFold(kv[0], key) {
			return kv[1]
		}
	}
	return ""
}

func (r *Response) ContentType() string {
	return r.Header("Content-Type")
}

func (r *Response) IsJSON() bool {
	return strings.Contains(r.ContentType(), "json")
}

func (r *Response) IsOK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *Response) IsRedirect() bool {
	return r.StatusCode >= 300 && r.StatusCode < 400
}

func (r *Response) IsClientError() bool {
	return r.StatusCode >= 400 && r.StatusCode < 500
}

func (r *Response) IsServerError() bool {
	return r.StatusCode >= 500
}
