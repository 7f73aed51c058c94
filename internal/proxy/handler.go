// Package proxy forwards traffic to the upstream service.
package proxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/sipico/payload-masker/internal/middleware"
)

// Handler is a reverse proxy to a single upstream.
type Handler struct {
	target *url.URL
	proxy  *httputil.ReverseProxy
	logger *slog.Logger
}

// NewHandler creates a proxy to upstream, which must be an absolute http(s) URL.
// If logger is nil, slog.Default() will be used.
func NewHandler(upstream string, logger *slog.Logger) (*Handler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	target, err := url.Parse(upstream)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream URL: %w", err)
	}
	if (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		return nil, fmt.Errorf("invalid upstream URL %q: must be absolute http(s)", upstream)
	}

	h := &Handler{target: target, logger: logger}
	h.proxy = &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
		},
		ErrorHandler: h.handleUpstreamError,
	}
	return h, nil
}

// ServeHTTP forwards the request upstream.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.proxy.ServeHTTP(w, r)
}

// handleUpstreamError answers with a JSON 502 when the upstream cannot be reached.
func (h *Handler) handleUpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, r.Context().Err()) && r.Context().Err() != nil {
		// Client went away; nobody is left to answer.
		h.logger.Debug("client cancelled proxied request",
			"request_id", middleware.GetRequestID(r.Context()),
			"path", r.URL.Path)
		return
	}

	h.logger.Error("upstream request failed",
		"request_id", middleware.GetRequestID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
		"upstream", h.target.Host,
		"error", err)
	writeError(w, http.StatusBadGateway, "upstream unavailable")
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
