package middleware

import (
	"net/http"
	"strings"

	"gigmarket/pkg/auth"
	"gigmarket/pkg/logger"
)

// Authenticate verifies the bearer token and stores the caller on the
// request context. Requests without a valid token are rejected.
func Authenticate(secret string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing bearer token")
				return
			}

			caller, err := auth.ParseToken(strings.TrimPrefix(header, "Bearer "), secret)
			if err != nil {
				log.Warn("Rejected token",
					"request_id", RequestID(r.Context()),
					"path", r.URL.Path,
					"error", err,
				)
				writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithContext(r.Context(), caller)))
		})
	}
}
