package api

import (
	"context"
	"net/http"
	"strings"

	identityDomain "github.com/fakturly/fakturly/internal/identity/domain"
	"github.com/fakturly/fakturly/pkg/observability"
)

type contextKey string

const userCtxKey contextKey = "user"

// withRequestID tags every request with an ID for log correlation. An
// incoming X-Request-ID is honored so traces survive the proxy hop.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := observability.WithRequestID(r.Context(), r.Header.Get("X-Request-ID"))
		w.Header().Set("X-Request-ID", observability.RequestIDFromContext(ctx))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Require wraps a handler with bearer token authentication. The
// authenticated user lands in the request context.
func (h *AuthHandler) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "Missing bearer token")
			return
		}

		user, err := h.auth.Authenticate(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), userCtxKey, user)
		ctx = observability.WithUserID(ctx, user.ID().String())
		next(w, r.WithContext(ctx))
	}
}

// RequireAdmin is Require plus an admin role check.
func (h *AuthHandler) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return h.Require(func(w http.ResponseWriter, r *http.Request) {
		if !currentUser(r).IsAdmin() {
			writeError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next(w, r)
	})
}

// currentUser returns the authenticated user. Only valid below Require.
func currentUser(r *http.Request) *identityDomain.User {
	user, _ := r.Context().Value(userCtxKey).(*identityDomain.User)
	return user
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}
	return ""
}
