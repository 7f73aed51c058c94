// Package logging renders request and response data for logs with sensitive
// values masked.
package logging

import (
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/sipico/payload-masker/internal/masking"
)

// Redacted replaces header values that must never be logged, even partially.
const Redacted = "[REDACTED]"

// MaskHeader masks a header value based on the header name.
//
// Rules:
// - Password/secret/cookie headers: "[REDACTED]"
// - Credential headers (Authorization, API keys, admin token): "****" + last 4 chars
// - Other headers: returned unchanged
func MaskHeader(name, value string) string {
	lowerName := strings.ToLower(name)

	if strings.Contains(lowerName, "password") ||
		strings.Contains(lowerName, "secret") ||
		strings.Contains(lowerName, "private-key") ||
		lowerName == "cookie" ||
		lowerName == "set-cookie" {
		return Redacted
	}

	switch lowerName {
	case "authorization", "proxy-authorization", "x-api-key", "x-access-key", "x-admin-token":
		runes := []rune(value)
		if len(runes) < 4 {
			return "****"
		}
		return "****" + string(runes[len(runes)-4:])
	}

	return value
}

// MaskHeaders flattens h into a map suitable for a log attribute, masking each
// value with MaskHeader. Multiple values of one header are joined with ", ".
func MaskHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		masked := make([]string, len(values))
		for i, v := range values {
			masked[i] = MaskHeader(name, v)
		}
		out[name] = strings.Join(masked, ", ")
	}
	return out
}

// MaskJSONBody masks body with m and returns the masked document together with the
// number of masked members. If body is empty, m is nil, or body is not valid JSON,
// body is returned unchanged with an error describing why (nil for the first two).
func MaskJSONBody(body []byte, m *masking.Masker) ([]byte, int, error) {
	if len(body) == 0 || m == nil {
		return body, 0, nil
	}
	res, err := m.MaskJSON(body)
	if err != nil {
		return body, 0, err
	}
	return res.Body, res.Masked, nil
}

// IsJSON reports whether a Content-Type header value denotes a JSON document,
// including vendor types such as application/problem+json.
func IsJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// FormatBinaryData formats binary data for logging.
// Returns a human-readable size indicator.
func FormatBinaryData(data []byte) string {
	return fmt.Sprintf("[BINARY: %d bytes]", len(data))
}

// masked defers MaskStruct until a handler actually emits the record.
type masked struct {
	v           any
	defaultChar rune
}

// Masked wraps v so that slog renders it as JSON with the fields declared in its
// mask struct tags masked:
//
//	logger.Info("user loaded", "user", logging.Masked(user, '*'))
//
// If v cannot be rendered, the attribute carries the type name and the error
// instead of the value.
func Masked(v any, defaultChar rune) slog.LogValuer {
	return masked{v: v, defaultChar: defaultChar}
}

// LogValue implements slog.LogValuer.
func (m masked) LogValue() slog.Value {
	s, err := masking.MaskStruct(m.v, m.defaultChar)
	if err != nil {
		return slog.GroupValue(
			slog.String("type", fmt.Sprintf("%T", m.v)),
			slog.String("error", err.Error()),
		)
	}
	return slog.StringValue(s)
}
