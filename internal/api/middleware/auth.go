package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/flowbit/nlsql/internal/api/response"
)

// Auth validates a static API key sent as "Authorization: Bearer <key>".
// An empty apiKey disables authentication.
func Auth(apiKey string) func(http.Handler) http.Handler {
	if apiKey == "" {
		return func(next http.Handler) http.Handler { return next }
	}

	want := []byte(apiKey)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.RespondUnauthorized(w, "Missing Authorization header")

				return
			}

			scheme, key, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") {
				response.RespondUnauthorized(w, "Invalid Authorization header format. Expected: Bearer <api-key>")

				return
			}

			if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(key)), want) != 1 {
				response.RespondUnauthorized(w, "Invalid API key")

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
