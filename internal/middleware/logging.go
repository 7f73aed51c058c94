// Package middleware provides HTTP middleware components for the masking proxy.
package middleware

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/sipico/payload-masker/internal/logging"
	"github.com/sipico/payload-masker/internal/masking"
	"github.com/sipico/payload-masker/internal/metrics"
)

// LoggingOptions controls HTTPLogging.
type LoggingOptions struct {
	// Level is the level payload records are written at.
	Level slog.Level
	// LogRequests and LogResponses toggle the two records independently.
	LogRequests  bool
	LogResponses bool
	// MaskingEnabled false logs JSON bodies as received.
	MaskingEnabled bool
	// MaxBodyBytes caps the body size that is logged; larger bodies are reported
	// by size only. 0 means no cap.
	MaxBodyBytes int
}

// HTTPLogging creates a middleware that logs HTTP requests and responses with
// their JSON bodies masked by m. It is a pass-through when the logger is not
// enabled for opts.Level or both records are switched off.
//
// Logs include:
// - Request: method, path, query, masked headers, masked body
// - Response: status code, masked headers, masked body, duration
// - Request ID from context (if present)
//
// Bodies that are not JSON, not UTF-8, or fail to parse are never blocked: they
// are logged as received (binary as a size marker) and forwarded untouched.
func HTTPLogging(logger *slog.Logger, m *masking.Masker, opts LoggingOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if (!opts.LogRequests && !opts.LogResponses) || !logger.Enabled(r.Context(), opts.Level) {
				next.ServeHTTP(w, r)
				return
			}

			if opts.LogRequests {
				logRequest(logger, r, m, opts)
			}
			if !opts.LogResponses {
				next.ServeHTTP(w, r)
				return
			}

			rec := &responseRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
				limit:          opts.MaxBodyBytes,
			}

			start := time.Now()
			next.ServeHTTP(rec, r)
			logResponse(logger, r, rec, time.Since(start), m, opts)
		})
	}
}

// logRequest logs the incoming request and leaves r.Body readable for the handler.
func logRequest(logger *slog.Logger, r *http.Request, m *masking.Masker, opts LoggingOptions) {
	var reqBody []byte
	if r.Body != nil && r.Body != http.NoBody {
		var err error
		reqBody, err = io.ReadAll(r.Body)
		if err != nil {
			// Hand the handler what was read followed by the same read error.
			r.Body = readCloser{io.MultiReader(bytes.NewReader(reqBody), errReader{err}), r.Body}
			logger.Warn("Failed to read request body for logging",
				"request_id", GetRequestID(r.Context()),
				"error", err,
			)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(reqBody))
	}

	body := renderBody(logger, r, metrics.DirectionRequest, r.Header.Get("Content-Type"), reqBody, false, m, opts)

	logger.Log(r.Context(), opts.Level, "HTTP Request",
		"request_id", GetRequestID(r.Context()),
		"method", r.Method,
		"url", r.URL.Path,
		"query_params", r.URL.RawQuery,
		"headers", logging.MaskHeaders(r.Header),
		"body", body,
	)
}

// logResponse logs the recorded response.
func logResponse(logger *slog.Logger, r *http.Request, rec *responseRecorder, duration time.Duration, m *masking.Masker, opts LoggingOptions) {
	contentType := rec.Header().Get("Content-Type")
	encoded := isEncoded(rec.Header())
	body := renderBody(logger, r, metrics.DirectionResponse, contentType, rec.body.Bytes(), rec.overflow || encoded, m, opts)
	if encoded && rec.size > 0 {
		body = fmt.Sprintf("[ENCODED %s: %d bytes]", rec.Header().Get("Content-Encoding"), rec.size)
	} else if rec.overflow {
		body = omitted(rec.size)
	}

	logger.Log(r.Context(), opts.Level, "HTTP Response",
		"request_id", GetRequestID(r.Context()),
		"method", r.Method,
		"url", r.URL.Path,
		"status_code", rec.statusCode,
		"headers", logging.MaskHeaders(rec.Header()),
		"body", body,
		"duration_ms", duration.Milliseconds(),
	)
}

// renderBody returns the loggable form of body and records the payload outcome.
// skip forces the outcome to skipped without inspecting the content.
func renderBody(logger *slog.Logger, r *http.Request, direction, contentType string, body []byte, skip bool, m *masking.Masker, opts LoggingOptions) string {
	switch {
	case skip || len(body) == 0:
		metrics.RecordPayload(direction, metrics.OutcomeSkipped)
		return ""
	case opts.MaxBodyBytes > 0 && len(body) > opts.MaxBodyBytes:
		metrics.RecordPayload(direction, metrics.OutcomeSkipped)
		return omitted(len(body))
	case !utf8.Valid(body):
		metrics.RecordPayload(direction, metrics.OutcomeSkipped)
		return logging.FormatBinaryData(body)
	case !opts.MaskingEnabled || !logging.IsJSON(contentType):
		metrics.RecordPayload(direction, metrics.OutcomeSkipped)
		return string(body)
	}

	masked, n, err := logging.MaskJSONBody(body, m)
	if err != nil {
		metrics.RecordPayload(direction, metrics.OutcomeInvalid)
		logger.Warn("Payload could not be masked, logging as received",
			"request_id", GetRequestID(r.Context()),
			"direction", direction,
			"error", err,
		)
		return string(body)
	}
	if n == 0 {
		metrics.RecordPayload(direction, metrics.OutcomeClean)
	} else {
		metrics.RecordPayload(direction, metrics.OutcomeMasked)
		metrics.RecordMaskedFields(direction, n)
	}
	return string(masked)
}

func omitted(size int) string {
	return fmt.Sprintf("[OMITTED: %d bytes exceeds logging limit]", size)
}

// isEncoded reports whether the body carries a content coding such as gzip.
func isEncoded(h http.Header) bool {
	ce := h.Get("Content-Encoding")
	return ce != "" && ce != "identity"
}

// responseRecorder captures the status and up to limit bytes of the body.
type responseRecorder struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
	body        bytes.Buffer
	size        int
	limit       int
	overflow    bool
}

// WriteHeader captures the status code and writes it to the response.
func (r *responseRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.statusCode = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

// Write captures the response body and writes it to the response.
func (r *responseRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	r.size += len(b)
	if !r.overflow {
		if r.limit > 0 && r.body.Len()+len(b) > r.limit {
			r.overflow = true
			r.body.Reset()
		} else {
			r.body.Write(b)
		}
	}
	return r.ResponseWriter.Write(b)
}

// Flush forwards to the underlying writer when it supports streaming.
func (r *responseRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (r *responseRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) { return 0, e.err }

type readCloser struct {
	io.Reader
	io.Closer
}
