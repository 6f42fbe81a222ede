package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const (
	UserContextKey contextKey = "user"
)

// Principal identifies the requester for the rest of the request.
// Exactly one identity per request: a user id when authenticated, an
// anonymous id otherwise.
type Principal struct {
	UserID      string
	AnonymousID string
	IsAdmin     bool
}

// Authenticated reports whether the principal is a logged-in user.
func (p *Principal) Authenticated() bool {
	return p.UserID != ""
}

// SessionMiddleware resolves the caller's identity from either the
// session cookie or a Bearer JWT and stores it in the request context.
// Requests with no credential pass through unauthenticated; handlers
// that need a user gate on RequireAuth.
func SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal := &Principal{}

		if cookie, err := r.Cookie("session"); err == nil {
			if userID, err := ValidateSession(cookie.Value); err == nil {
				principal.UserID = userID
			}
		}

		if principal.UserID == "" {
			authHeader := r.Header.Get("Authorization")
			if parts := strings.Split(authHeader, " "); len(parts) == 2 && parts[0] == "Bearer" {
				if claims, err := tokenManager.ValidateToken(parts[1]); err == nil {
					principal.UserID = claims.UserID
				}
			}
		}

		if principal.UserID != "" {
			if user, err := dataStore.GetUserByID(principal.UserID); err == nil {
				principal.IsAdmin = user.IsAdmin
			}
		}

		ctx := context.WithValue(r.Context(), UserContextKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetPrincipal retrieves the resolved principal from the context.
func GetPrincipal(ctx context.Context) (*Principal, bool) {
	principal, ok := ctx.Value(UserContextKey).(*Principal)
	return principal, ok
}

// RequireAuth ensures the request comes from an authenticated user.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := GetPrincipal(r.Context())
		if !ok || !principal.Authenticated() {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin ensures the request comes from an admin user.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := GetPrincipal(r.Context())
		if !ok || !principal.Authenticated() {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if !principal.IsAdmin {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
