package metrics

import (
	"net/http"
	"regexp"
	"strconv"
	"time"
)

// idSegment matches numeric and UUID path segments.
var idSegment = regexp.MustCompile(`/(\d+|[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12})(/|$)`)

// statusRecorder wraps http.ResponseWriter to capture the status code
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

// WriteHeader captures the first status code and forwards it.
func (r *statusRecorder) WriteHeader(code int) {
	if !r.written {
		r.statusCode = code
		r.written = true
		r.ResponseWriter.WriteHeader(code)
	}
}

// Write marks the status as written (200) before forwarding the body.
func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.written {
		r.statusCode = http.StatusOK
		r.written = true
	}
	return r.ResponseWriter.Write(b)
}

// Flush forwards to the underlying writer when it supports streaming.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Middleware returns an HTTP middleware that records request count and latency
// by method, normalized path and status code. A panicking handler is recorded as
// a 500 and the panic is propagated to outer recovery middleware.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}
		startTime := time.Now()

		defer func() {
			p := recover()
			status := recorder.statusCode
			if p != nil {
				status = http.StatusInternalServerError
			}

			path := normalizePath(r.URL.Path)
			code := strconv.Itoa(status)
			RecordRequest(r.Method, path, code)
			RecordRequestDuration(r.Method, path, code, time.Since(startTime).Seconds())

			if p != nil {
				panic(p)
			}
		}()

		next.ServeHTTP(recorder, r)
	})
}

// normalizePath replaces ID-like segments with ":id" to bound label cardinality.
//
//	/api/rules/12 -> /api/rules/:id
//	/users/4b1f0c3e-8e0a-4a43-9a59-2a1d2b3c4d5e/orders/7 -> /users/:id/orders/:id
func normalizePath(path string) string {
	// Two passes: adjacent ID segments share the separating slash.
	for i := 0; i < 2; i++ {
		path = idSegment.ReplaceAllString(path, "/:id$2")
	}
	return path
}
