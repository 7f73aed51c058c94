package mockupstream

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sipico/payload-masker/internal/logging"
	"github.com/sipico/payload-masker/internal/middleware"
)

// LoggingMiddleware logs each request the mock upstream receives. Bodies are not
// logged; handlers log their DTOs masked instead.
func LoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rec, r)

			logger.Info("Mock upstream handled request",
				"request_id", r.Header.Get(middleware.RequestIDHeader),
				"method", r.Method,
				"url", r.URL.String(),
				"headers", logging.MaskHeaders(r.Header),
				"status_code", rec.statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader captures the status code and writes it to the response.
func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}
