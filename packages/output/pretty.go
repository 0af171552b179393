package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// View selects which part of a response the console shows.
type View string

const (
	ViewBody    View = "body"
	ViewHeaders View = "headers"
	ViewRaw     View = "raw"
)

// ParseView maps a flag value to a View.
func ParseView(s string) (View, error) {
	switch v := View(strings.ToLower(strings.TrimSpace(s))); v {
	case "", ViewBody:
		return ViewBody, nil
	case ViewHeaders, ViewRaw:
		return v, nil
	default:
		return "", fmt.Errorf("unknown view %q (want body, headers or raw)", s)
	}
}

// PrettyBody indents body when it parses as JSON and returns it unchanged
// otherwise.
func PrettyBody(body string) string {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" || !json.Valid([]byte(trimmed)) {
		return body
	}
	var out bytes.Buffer
	if err := json.Indent(&out, []byte(trimmed), "", "  "); err != nil {
		return body
	}
	return out.String()
}

// formatBytes renders n as B, KB or MB.
func formatBytes(n int) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d B", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	}
}

// formatValue formats a value for display, truncating or summarizing large values
func formatValue(v any, maxLen int) string {
	switch val := v.(type) {
	case []any:
		return fmt.Sprintf("[array with %d items]", len(val))
	case map[string]any:
		return fmt.Sprintf("{object with %d keys}", len(val))
	}
	str := fmt.Sprintf("%v", v)
	if len(str) > maxLen {
		return str[:maxLen] + "..."
	}
	return str
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
