package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"kbv/pkg/platform/httputil"
	"kbv/pkg/requestcontext"
)

// TokenHeader carries the shared secret for operator-only endpoints.
const TokenHeader = "X-Admin-Token"

// RequireAdminToken rejects requests whose TokenHeader does not match
// expectedToken. An empty expectedToken rejects everything.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(TokenHeader)
			if expectedToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				ctx := r.Context()
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", requestcontext.RequestID(ctx),
					"path", r.URL.Path,
				)
				httputil.WriteJSON(w, http.StatusUnauthorized, map[string]string{"error": "Admin : admin token required"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
