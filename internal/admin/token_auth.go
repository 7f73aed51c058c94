package admin

import (
	"net/http"
	"strings"

	"github.com/sipico/payload-masker/internal/storage"
)

// AdminTokenHeader is the header carrying the admin token. An
// "Authorization: Bearer <token>" header is accepted as well.
const AdminTokenHeader = "X-Admin-Token"

// TokenAuthMiddleware validates the admin token against the configured bcrypt hash.
func (h *Handler) TokenAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := presentedToken(r)
		if token == "" {
			WriteErrorWithHint(w, http.StatusUnauthorized, ErrCodeInvalidCredentials,
				"Missing admin token",
				"Send the token in the "+AdminTokenHeader+" header or as a Bearer token")
			return
		}

		if h.tokenHash == "" || storage.VerifyKey(token, h.tokenHash) != nil {
			h.logger.Warn("invalid admin token attempt", "remote_addr", r.RemoteAddr)
			WriteError(w, http.StatusUnauthorized, ErrCodeInvalidCredentials, "Invalid admin token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func presentedToken(r *http.Request) string {
	if token := strings.TrimSpace(r.Header.Get(AdminTokenHeader)); token != "" {
		return token
	}
	auth := r.Header.Get("Authorization")
	if len(auth) > len("Bearer ") && strings.EqualFold(auth[:len("Bearer ")], "Bearer ") {
		return strings.TrimSpace(auth[len("Bearer "):])
	}
	return ""
}
