package http

import (
	"bytes"
	"compress/gzip"
	"io"
	"mime"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/html/charset"
)

// decodeBody turns raw response bytes into text. Content-Encoding is undone
// unless the transport already did it, a declared non-UTF-8 charset is
// converted, and invalid UTF-8 is replaced with U+FFFD. Any decoding step
// that fails leaves the bytes as they were.
func decodeBody(body []byte, header http.Header, uncompressed bool) string {
	if len(body) == 0 {
		return ""
	}

	if !uncompressed {
		body = decompress(body, header.Get("Content-Encoding"))
	}

	if cs := declaredCharset(header.Get("Content-Type")); cs != "" && !isUTF8Label(cs) {
		if r, err := charset.NewReaderLabel(cs, bytes.NewReader(body)); err == nil {
			if converted, err := io.ReadAll(r); err == nil {
				body = converted
			}
		}
	}

	if !utf8.Valid(body) {
		return strings.ToValidUTF8(string(body), "\uFFFD")
	}
	return string(body)
}

func decompress(body []byte, encoding string) []byte {
	var r io.Reader
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return body
		}
		defer zr.Close()
		r = zr
	case "br":
		r = brotli.NewReader(bytes.NewReader(body))
	default:
		return body
	}

	out, err := io.ReadAll(r)
	if err != nil {
		return body
	}
	return out
}

func declaredCharset(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(params["charset"])
}

func isUTF8Label(label string) bool {
	switch strings.ToLower(label) {
	case "utf-8", "utf8", "unicode-1-1-utf-8":
		return true
	}
	return false
}
