package common

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

type ctxKey string

const (
	userIDKey ctxKey = "user_id"
	roleKey   ctxKey = "role"
)

// AuthMiddleware reads "Authorization: Bearer <jwt>", validates it and injects
// the user identity into the request context.
func AuthMiddleware(secret []byte, publicPaths ...string) mux.MiddlewareFunc {
	public := make(map[string]bool, len(publicPaths))
	for _, p := range publicPaths {
		public[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if public[r.URL.Path] || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			parts := strings.Fields(r.Header.Get("Authorization"))
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				WriteError(w, NewError(http.StatusUnauthorized, "unauthenticated", errUnauthenticated))
				return
			}

			claims, err := ValidToken(secret, parts[1])
			if err != nil {
				WriteError(w, NewError(http.StatusUnauthorized, "unauthenticated", errInvalidToken))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), claims.UserID, claims.Role)))
		})
	}
}

// RequireRole rejects requests whose identity does not carry one of roles.
func RequireRole(roles ...Role) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, _ := RoleFromContext(r.Context())
			for _, allowed := range roles {
				if role == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}
			WriteError(w, Forbidden("role %q may not access this resource", role))
		})
	}
}

func WithIdentity(ctx context.Context, userID string, role Role) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, roleKey, role)
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

func RoleFromContext(ctx context.Context) (Role, bool) {
	role, ok := ctx.Value(roleKey).(Role)
	return role, ok
}

// CurrentUser returns the authenticated identity or a 401 error.
func CurrentUser(r *http.Request) (string, Role, error) {
	id, ok := UserIDFromContext(r.Context())
	if !ok {
		return "", "", NewError(http.StatusUnauthorized, "unauthenticated", errUnauthenticated)
	}
	role, _ := RoleFromContext(r.Context())
	return id, role, nil
}
