package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/tair/appointment-payments/pkg/auth"
	"github.com/tair/appointment-payments/pkg/logger"
)

type contextKey string

const identityKey contextKey = "identity"

// AuthMiddleware validates the bearer access token and stores the caller's
// identity in the request context
func AuthMiddleware(secret string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondError(w, http.StatusUnauthorized, "Authorization header required")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondError(w, http.StatusUnauthorized, "Invalid authorization header format")
				return
			}

			identity, err := auth.ValidateToken(parts[1], secret)
			if err != nil {
				logger.Warn(r.Context()).Err(err).Msg("Rejected access token")
				respondError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, *identity)
			next(w, r.WithContext(ctx))
		}
	}
}

// AdminMiddleware requires an authenticated admin or owner
func AdminMiddleware(secret string) func(http.HandlerFunc) http.HandlerFunc {
	authenticate := AuthMiddleware(secret)
	return func(next http.HandlerFunc) http.HandlerFunc {
		return authenticate(func(w http.ResponseWriter, r *http.Request) {
			identity, _ := identityFrom(r.Context())
			if !identity.IsAdmin() {
				respondError(w, http.StatusForbidden, "Admin access required")
				return
			}
			next(w, r)
		})
	}
}

func identityFrom(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(identityKey).(auth.Identity)
	return id, ok
}
