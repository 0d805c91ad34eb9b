package middleware

import (
	"context"
	"net/http"

	"wot-clan-dashboard/internal/model"
	"wot-clan-dashboard/internal/service"
	"wot-clan-dashboard/pkg/apierror"
)

// SessionCookie is the cookie carrying the session token.
const SessionCookie = "session"

// userKey is the context key for the authenticated user.
const userKey contextKey = "current_user"

// NewSessionAuth creates a middleware resolving the session token (cookie or
// X-Session-Token header) to a user and storing it in the request context.
func NewSessionAuth(auth *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("X-Session-Token")
			if token == "" {
				if c, err := r.Cookie(SessionCookie); err == nil {
					token = c.Value
				}
			}
			if token == "" {
				writeError(w, apierror.Unauthorized("Authentication required"))
				return
			}

			user, err := auth.CurrentUser(r.Context(), token)
			if err != nil {
				writeError(w, apierror.Unauthorized("Invalid or expired session"))
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
		})
	}
}

// RequireCommander rejects requests from users without the commander role.
// Must run after NewSessionAuth.
func RequireCommander(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())
		if user == nil || !user.IsCommander() {
			writeError(w, apierror.Forbidden("Commander role required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ContextWithUser returns a context carrying the authenticated user.
func ContextWithUser(ctx context.Context, u *model.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFromContext retrieves the authenticated user from request context.
func UserFromContext(ctx context.Context) *model.User {
	if u, ok := ctx.Value(userKey).(*model.User); ok {
		return u
	}
	return nil
}

// writeError writes an API error response.
func writeError(w http.ResponseWriter, err *apierror.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode)
	w.Write(err.ToJSON())
}
