package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sipico/payload-masker/internal/logging"
	"github.com/sipico/payload-masker/internal/masking"
)

// BodyOptions controls MaskBodies.
type BodyOptions struct {
	// Requests masks JSON request bodies before they reach the next handler.
	Requests bool
	// Responses masks JSON response bodies before they reach the client.
	Responses bool
	// MaxBodyBytes is the largest body that is buffered for masking; larger
	// bodies are streamed through unchanged. 0 means no cap.
	MaxBodyBytes int
}

// MaskBodies returns middleware that replaces JSON request and response bodies
// with their masked form, so the masked document is what is actually forwarded.
// Content-Length is rewritten to match. Bodies that are not JSON, carry a content
// coding, or fail to parse are forwarded unchanged.
func MaskBodies(logger *slog.Logger, m *masking.Masker, opts BodyOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if opts.Requests {
				maskRequestBody(logger, r, m, opts.MaxBodyBytes)
			}
			if !opts.Responses {
				next.ServeHTTP(w, r)
				return
			}

			bw := &bufferingWriter{ResponseWriter: w, limit: opts.MaxBodyBytes, status: http.StatusOK}
			next.ServeHTTP(bw, r)
			bw.finish(logger, r, m)
		})
	}
}

func maskRequestBody(logger *slog.Logger, r *http.Request, m *masking.Masker, limit int) {
	if r.Body == nil || r.Body == http.NoBody || !logging.IsJSON(r.Header.Get("Content-Type")) || isEncoded(r.Header) {
		return
	}
	if limit > 0 && r.ContentLength > int64(limit) {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		r.Body = readCloser{io.MultiReader(bytes.NewReader(body), errReader{err}), r.Body}
		return
	}

	masked, _, err := logging.MaskJSONBody(body, m)
	if err != nil {
		logger.Warn("Request body could not be masked, forwarding as received",
			"request_id", GetRequestID(r.Context()),
			"error", err,
		)
		masked = body
	}

	r.Body = io.NopCloser(bytes.NewReader(masked))
	r.ContentLength = int64(len(masked))
	r.Header.Set("Content-Length", strconv.Itoa(len(masked)))
}

// bufferingWriter holds back a JSON response until the handler returns so it can
// be masked as a whole. Any other response is passed straight through.
type bufferingWriter struct {
	http.ResponseWriter
	limit     int
	status    int
	decided   bool
	buffering bool
	buf       bytes.Buffer
}

func (b *bufferingWriter) decide() {
	if b.decided {
		return
	}
	b.decided = true
	h := b.Header()
	b.buffering = logging.IsJSON(h.Get("Content-Type")) && !isEncoded(h)
	if b.buffering && b.limit > 0 {
		if n, err := strconv.Atoi(h.Get("Content-Length")); err == nil && n > b.limit {
			b.buffering = false
		}
	}
}

// WriteHeader records the status; for buffered responses it is sent in finish.
func (b *bufferingWriter) WriteHeader(code int) {
	if b.decided {
		if !b.buffering {
			b.ResponseWriter.WriteHeader(code)
		}
		return
	}
	b.status = code
	b.decide()
	if !b.buffering {
		b.ResponseWriter.WriteHeader(code)
	}
}

// Write buffers JSON bodies and forwards everything else.
func (b *bufferingWriter) Write(p []byte) (int, error) {
	if !b.decided {
		b.WriteHeader(http.StatusOK)
	}
	if !b.buffering {
		return b.ResponseWriter.Write(p)
	}
	if b.limit > 0 && b.buf.Len()+len(p) > b.limit {
		// Too large to mask: give up and stream what we have.
		b.buffering = false
		b.ResponseWriter.WriteHeader(b.status)
		if _, err := b.ResponseWriter.Write(b.buf.Bytes()); err != nil {
			return 0, err
		}
		b.buf.Reset()
		return b.ResponseWriter.Write(p)
	}
	return b.buf.Write(p)
}

// Flush is a no-op while buffering.
func (b *bufferingWriter) Flush() {
	if b.buffering {
		return
	}
	if f, ok := b.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (b *bufferingWriter) finish(logger *slog.Logger, r *http.Request, m *masking.Masker) {
	if !b.decided || !b.buffering {
		return
	}

	body := b.buf.Bytes()
	if len(body) == 0 {
		// HEAD, 204 and 304 carry the upstream Content-Length without a body.
		b.ResponseWriter.WriteHeader(b.status)
		return
	}
	masked, _, err := logging.MaskJSONBody(body, m)
	if err != nil {
		logger.Warn("Response body could not be masked, forwarding as received",
			"request_id", GetRequestID(r.Context()),
			"error", err,
		)
		masked = body
	}

	b.Header().Set("Content-Length", strconv.Itoa(len(masked)))
	b.ResponseWriter.WriteHeader(b.status)
	if _, err := b.ResponseWriter.Write(masked); err != nil {
		logger.Debug("Failed to write masked response", "request_id", GetRequestID(r.Context()), "error", err)
	}
}
