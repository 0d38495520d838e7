package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sakif/tasklist/internal/apperror"
	"github.com/sakif/tasklist/internal/model"
)

// SessionCookie is the name of the HttpOnly cookie holding the session JWT.
const SessionCookie = "token"

// contextKey is unexported so no other package can read or overwrite the
// authenticated user stored in a request context.
type contextKey string

const userKey contextKey = "user"

// UserLookup re-hydrates a user from the id carried by a session token.
// service.AuthService satisfies it.
type UserLookup interface {
	Lookup(ctx context.Context, id int64) (*model.User, error)
}

// RequireAuth protects JSON API routes: requests without a valid session get
// 401 with a JSON error body and never reach the handler.
func RequireAuth(tokens *TokenService, users UserLookup) func(http.Handler) http.Handler {
	return requireUser(tokens, users, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"unauthorized","message":"valid authentication required"}` + "\n"))
	})
}

// RequireLogin protects HTML pages: requests without a valid session are
// redirected to loginPath.
func RequireLogin(tokens *TokenService, users UserLookup, loginPath string) func(http.Handler) http.Handler {
	return requireUser(tokens, users, func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, loginPath, http.StatusSeeOther)
	})
}

// OptionalAuth attaches the user when a valid session is present but never
// blocks the request. Used on the login/register pages to skip them for
// users who are already signed in.
func OptionalAuth(tokens *TokenService, users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user, err := resolveUser(r, tokens, users); err == nil {
				r = r.WithContext(WithUser(r.Context(), user))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requireUser(tokens *TokenService, users UserLookup, deny http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := resolveUser(r, tokens, users)
			if err != nil {
				if errors.Is(err, errNoSession) || errors.Is(err, apperror.ErrNotFound) {
					deny(w, r)
					return
				}
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

var errNoSession = errors.New("auth: no valid session")

// resolveUser validates the session token and loads its user. A token for a
// user that no longer exists counts as no session.
func resolveUser(r *http.Request, tokens *TokenService, users UserLookup) (*model.User, error) {
	raw := TokenFromRequest(r)
	if raw == "" {
		return nil, errNoSession
	}
	userID, err := tokens.Validate(raw)
	if err != nil {
		return nil, errNoSession
	}
	return users.Lookup(r.Context(), userID)
}

// TokenFromRequest returns the session token from the "token" cookie or,
// failing that, from an "Authorization: Bearer <token>" header.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}

// WithUser stores the authenticated user in ctx.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the authenticated user, or (nil, false) for
// anonymous requests.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil
}
