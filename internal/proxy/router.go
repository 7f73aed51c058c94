package proxy

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/sipico/payload-masker/internal/masking"
	"github.com/sipico/payload-masker/internal/metrics"
	"github.com/sipico/payload-masker/internal/middleware"
)

// RouterOptions configures the middleware in front of the proxy.
type RouterOptions struct {
	// MaxRequestBytes rejects larger request bodies with 413. 0 disables the check.
	MaxRequestBytes int64
	Logging         middleware.LoggingOptions
	// MaskForwarded also replaces forwarded JSON bodies with their masked form.
	MaskForwarded bool
	Bodies        middleware.BodyOptions
}

// NewRouter creates a Chi router sending every path to handler. Logged payloads
// are masked by m.
func NewRouter(handler http.Handler, m *masking.Masker, opts RouterOptions, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Apply middlewares in order
	r.Use(middleware.RequestID) // Add request ID first
	r.Use(chimw.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(middleware.MaxBodySize(opts.MaxRequestBytes))
	r.Use(middleware.HTTPLogging(logger, m, opts.Logging))
	if opts.MaskForwarded {
		// Inside logging: the logged response is already masked. Configured
		// rules are idempotent, so masking it again for the log changes nothing.
		r.Use(middleware.MaskBodies(logger, m, opts.Bodies))
	}

	r.Handle("/*", handler)

	return r
}
