package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/lorrc/sla-engine/internal/auth"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// ServiceClaimsKey is the key used to store service claims in the request context.
const ServiceClaimsKey contextKey = "serviceClaims"

// ServiceAuth validates the bearer token on internal endpoints. Callers are
// other services and the engine's own scheduled callbacks; there are no
// end-user tokens here.
func ServiceAuth(tm *auth.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authorization header is required", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "Authorization header format must be Bearer {token}", http.StatusUnauthorized)
				return
			}

			claims, err := tm.ValidateToken(parts[1])
			if err != nil {
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ServiceClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
