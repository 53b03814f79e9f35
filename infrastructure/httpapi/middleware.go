package httpapi

import (
	"chat-relay/auth"
	"context"
	"net/http"
	"strings"
)

type contextKey string

const (
	UserIDKey contextKey = "user_id"
	RolesKey  contextKey = "roles"
)

// AuthMiddleware validates the Bearer token and injects the caller's identity
// into the request context for downstream handlers.
func AuthMiddleware(tokens *auth.TokenManager, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeError(w, http.StatusUnauthorized, "authorization token is missing")
			return
		}

		tokenStr := strings.TrimPrefix(header, "Bearer ")
		claims, err := tokens.Validate(tokenStr)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
		ctx = context.WithValue(ctx, RolesKey, claims.Roles)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CallerID extracts the authenticated identity injected by AuthMiddleware.
func CallerID(r *http.Request) string {
	id, _ := r.Context().Value(UserIDKey).(string)
	return id
}
