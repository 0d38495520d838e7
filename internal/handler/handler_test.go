package handler_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/tasklist/internal/apperror"
	"github.com/sakif/tasklist/internal/auth"
	"github.com/sakif/tasklist/internal/handler"
	"github.com/sakif/tasklist/internal/model"
	"github.com/sakif/tasklist/internal/service"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeTasks is a scripted handler.TaskStore. It records the owner and the
// arguments of the last call and returns whatever err/task are set.
type fakeTasks struct {
	task  *model.Task
	tasks []model.Task
	err   error

	gotOwner    int64
	gotID       int64
	gotContent  string
	gotDeadline *string
	gotPatch    service.TaskPatch
	gotDate     string
	calls       []string
}

func (f *fakeTasks) record(name string, owner int64) {
	f.calls = append(f.calls, name)
	f.gotOwner = owner
}

func (f *fakeTasks) List(_ context.Context, owner int64) ([]model.Task, error) {
	f.record("List", owner)
	return f.tasks, f.err
}

func (f *fakeTasks) Create(_ context.Context, owner int64, content string, deadline *string) (*model.Task, error) {
	f.record("Create", owner)
	f.gotContent, f.gotDeadline = content, deadline
	return f.task, f.err
}

func (f *fakeTasks) Get(_ context.Context, owner, id int64) (*model.Task, error) {
	f.record("Get", owner)
	f.gotID = id
	return f.task, f.err
}

func (f *fakeTasks) UpdateContent(_ context.Context, owner, id int64, content string) (*model.Task, error) {
	f.record("UpdateContent", owner)
	f.gotID, f.gotContent = id, content
	return f.task, f.err
}

func (f *fakeTasks) UpdateFields(_ context.Context, owner, id int64, patch service.TaskPatch) (*model.Task, error) {
	f.record("UpdateFields", owner)
	f.gotID, f.gotPatch = id, patch
	return f.task, f.err
}

func (f *fakeTasks) SetDeadline(_ context.Context, owner, id int64, deadline string) (*model.Task, error) {
	f.record("SetDeadline", owner)
	f.gotID, f.gotDate = id, deadline
	return f.task, f.err
}

func (f *fakeTasks) Delete(_ context.Context, owner, id int64) error {
	f.record("Delete", owner)
	f.gotID = id
	return f.err
}

func (f *fakeTasks) ListByDate(_ context.Context, owner int64, date string) ([]model.Task, error) {
	f.record("ListByDate", owner)
	f.gotDate = date
	return f.tasks, f.err
}

// fakeIdentity is a scripted handler.IdentityStore.
type fakeIdentity struct {
	user   *model.User
	result *service.AuthResult
	err    error

	gotUsername string
	gotPassword string
	gotGitHub   *auth.GitHubUser
}

func (f *fakeIdentity) Register(_ context.Context, username, password string) (*model.User, error) {
	f.gotUsername, f.gotPassword = username, password
	return f.user, f.err
}

func (f *fakeIdentity) Login(_ context.Context, username, password string) (*service.AuthResult, error) {
	f.gotUsername, f.gotPassword = username, password
	return f.result, f.err
}

func (f *fakeIdentity) LoginOrRegisterGitHub(_ context.Context, gh *auth.GitHubUser) (*service.AuthResult, error) {
	f.gotGitHub = gh
	return f.result, f.err
}

// asUser stands in for auth.RequireAuth in handler tests.
func asUser(user *model.User) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
		})
	}
}

func mustDate(s string) *model.Date {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return &d
}

func notFound() error { return apperror.NotFound("task", 1) }

// taskRouter mounts the task API the same way the server does.
func taskRouter(h *handler.TaskHandler, user *model.User) http.Handler {
	r := chi.NewRouter()
	if user != nil {
		r.Use(asUser(user))
	}
	r.Get("/api/tasks", h.HandleList)
	r.Post("/api/tasks", h.HandleCreate)
	r.Get("/api/tasks/by_date", h.HandleListByDate)
	r.Get("/api/tasks/{id}", h.HandleGet)
	r.Put("/api/tasks/{id}", h.HandleUpdate)
	r.Delete("/api/tasks/{id}", h.HandleDelete)
	r.Post("/api/task/{id}/set_deadline", h.HandleSetDeadline)
	return r
}
