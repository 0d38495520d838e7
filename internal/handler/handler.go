// Package handler turns HTTP requests into service calls.
//
// Handlers parse the request, call exactly one service operation and write
// the response. They hold no business rules. The owner of every task
// operation is taken from the authenticated user in the request context,
// never from the body, form or query string.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/sakif/tasklist/internal/auth"
	"github.com/sakif/tasklist/internal/model"
	"github.com/sakif/tasklist/internal/service"
)

// IdentityStore is the part of service.AuthService the handlers use.
type IdentityStore interface {
	Register(ctx context.Context, username, password string) (*model.User, error)
	Login(ctx context.Context, username, password string) (*service.AuthResult, error)
	LoginOrRegisterGitHub(ctx context.Context, gh *auth.GitHubUser) (*service.AuthResult, error)
}

// TaskStore is implemented by service.TaskService.
type TaskStore interface {
	List(ctx context.Context, ownerID int64) ([]model.Task, error)
	Create(ctx context.Context, ownerID int64, content string, deadline *string) (*model.Task, error)
	Get(ctx context.Context, ownerID, taskID int64) (*model.Task, error)
	UpdateContent(ctx context.Context, ownerID, taskID int64, content string) (*model.Task, error)
	UpdateFields(ctx context.Context, ownerID, taskID int64, patch service.TaskPatch) (*model.Task, error)
	SetDeadline(ctx context.Context, ownerID, taskID int64, deadline string) (*model.Task, error)
	Delete(ctx context.Context, ownerID, taskID int64) error
	ListByDate(ctx context.Context, ownerID int64, date string) ([]model.Task, error)
}

// GitHubAuthenticator is implemented by auth.GitHubProvider.
type GitHubAuthenticator interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubUser, error)
}

var (
	_ IdentityStore       = (*service.AuthService)(nil)
	_ TaskStore           = (*service.TaskService)(nil)
	_ GitHubAuthenticator = (*auth.GitHubProvider)(nil)
)

// SessionConfig controls the session cookie.
type SessionConfig struct {
	TTL    time.Duration
	Secure bool
}

func (c SessionConfig) set(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(c.TTL.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c SessionConfig) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// currentUser returns the user attached by the auth middleware. Routes
// using it are always mounted behind RequireAuth or RequireLogin.
func currentUser(r *http.Request) *model.User {
	user, _ := auth.UserFromContext(r.Context())
	return user
}
