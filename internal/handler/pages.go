package handler

import (
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/sakif/tasklist/internal/apperror"
	"github.com/sakif/tasklist/internal/model"
)

// pageNames lists the page templates. Each one is parsed together with
// base.html, which renders the layout and calls {{template "content" .}}.
var pageNames = []string{
	"index.html",
	"login.html",
	"register.html",
	"add_task.html",
	"edit_task.html",
	"api_docs.html",
}

// PageHandler serves the server-rendered HTML pages. State-changing forms
// answer with a redirect and leave their outcome in a flash message.
type PageHandler struct {
	pages    map[string]*template.Template
	identity IdentityStore
	tasks    TaskStore
	session  SessionConfig
	github   bool
	logger   *slog.Logger
}

// pageData is what every template receives.
type pageData struct {
	Title  string
	User   *model.User
	Flash  *Flash
	Error  string
	GitHub bool

	Tasks []model.Task
	Task  *model.Task

	// Form values echoed back after a failed submit.
	Content  string
	Deadline string
	Username string
}

// NewPageHandler parses all templates up front so a broken template fails
// at startup instead of on the first request.
func NewPageHandler(
	templates fs.FS,
	identity IdentityStore,
	tasks TaskStore,
	session SessionConfig,
	githubEnabled bool,
	logger *slog.Logger,
) (*PageHandler, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.ParseFS(templates, "templates/base.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = tmpl
	}

	return &PageHandler{
		pages:    pages,
		identity: identity,
		tasks:    tasks,
		session:  session,
		github:   githubEnabled,
		logger:   logger,
	}, nil
}

// HandleIndex lists the caller's tasks.
//
// HTTP: GET /
func (h *PageHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	tasks, err := h.tasks.List(r.Context(), user.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "index.html", &pageData{Title: "My tasks", Tasks: tasks})
}

// HTTP: GET /register
func (h *PageHandler) HandleRegisterForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUserOK(r); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, "register.html", &pageData{Title: "Register"})
}

// HandleRegister creates the account and sends the user to the login page.
//
// HTTP: POST /register (form: username, password)
func (h *PageHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	if _, err := h.identity.Register(r.Context(), username, password); err != nil {
		if isUserError(err) {
			setFlash(w, flashError, errorMessage(err))
			http.Redirect(w, r, "/register", http.StatusSeeOther)
			return
		}
		h.fail(w, r, err)
		return
	}

	setFlash(w, flashSuccess, "Registration successful. Please log in.")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// HTTP: GET /login
func (h *PageHandler) HandleLoginForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUserOK(r); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, "login.html", &pageData{Title: "Log in"})
}

// HandleLogin starts a session from the login form.
//
// HTTP: POST /login (form: username, password)
func (h *PageHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	username := r.PostFormValue("username")

	result, err := h.identity.Login(r.Context(), username, r.PostFormValue("password"))
	if err != nil {
		if errors.Is(err, apperror.ErrInvalidCredentials) {
			h.render(w, r, http.StatusUnauthorized, "login.html", &pageData{
				Title:    "Log in",
				Error:    errorMessage(err),
				Username: username,
			})
			return
		}
		h.fail(w, r, err)
		return
	}

	h.session.set(w, result.Token)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HTTP: GET /logout
func (h *PageHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.session.clear(w)
	setFlash(w, flashSuccess, "You have been logged out.")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// HTTP: GET /add
func (h *PageHandler) HandleAddForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "add_task.html", &pageData{Title: "Add task"})
}

// HandleAdd creates a task from the form. A blank deadline means none.
//
// HTTP: POST /add (form: content, deadline)
func (h *PageHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	content := r.PostFormValue("content")
	deadline := r.PostFormValue("deadline")

	if _, err := h.tasks.Create(r.Context(), user.ID, content, &deadline); err != nil {
		if isUserError(err) {
			status, _ := errorKind(err)
			h.render(w, r, status, "add_task.html", &pageData{
				Title:    "Add task",
				Error:    errorMessage(err),
				Content:  content,
				Deadline: deadline,
			})
			return
		}
		h.fail(w, r, err)
		return
	}

	setFlash(w, flashSuccess, "Task added.")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HTTP: GET /edit/{id}
func (h *PageHandler) HandleEditForm(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	id, err := taskIDParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	task, err := h.tasks.Get(r.Context(), user.ID, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "edit_task.html", &pageData{
		Title:   "Edit task",
		Task:    task,
		Content: task.Content,
	})
}

// HandleEdit changes the content of a task. The edit form has no deadline
// field, so the deadline is left as it is.
//
// HTTP: POST /edit/{id} (form: content)
func (h *PageHandler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	id, err := taskIDParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	content := r.PostFormValue("content")

	if _, err := h.tasks.UpdateContent(r.Context(), user.ID, id, content); err != nil {
		if errors.Is(err, apperror.ErrValidation) {
			task, getErr := h.tasks.Get(r.Context(), user.ID, id)
			if getErr != nil {
				h.fail(w, r, getErr)
				return
			}
			h.render(w, r, http.StatusBadRequest, "edit_task.html", &pageData{
				Title:   "Edit task",
				Task:    task,
				Error:   errorMessage(err),
				Content: content,
			})
			return
		}
		h.fail(w, r, err)
		return
	}

	setFlash(w, flashSuccess, "Task updated.")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HTTP: GET|POST /delete/{id}
func (h *PageHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	id, err := taskIDParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.tasks.Delete(r.Context(), user.ID, id); err != nil {
		h.fail(w, r, err)
		return
	}

	setFlash(w, flashSuccess, "Task deleted.")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HTTP: GET /api/docs
func (h *PageHandler) HandleAPIDocs(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "api_docs.html", &pageData{Title: "API documentation"})
}

func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, status int, name string, data *pageData) {
	data.User, _ = currentUserOK(r)
	data.Flash = popFlash(w, r)
	data.GitHub = h.github

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.pages[name].ExecuteTemplate(w, "base", data); err != nil {
		h.logger.Error("failed to render template",
			slog.String("template", name),
			slog.String("error", err.Error()),
		)
	}
}

// fail answers a page request that cannot continue. NotFound covers both
// missing tasks and tasks of other users.
func (h *PageHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, _ := errorKind(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("page request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", status)
		return
	}
	http.Error(w, errorMessage(err), status)
}

func currentUserOK(r *http.Request) (*model.User, bool) {
	user := currentUser(r)
	return user, user != nil
}

// isUserError reports whether err is something the user can fix by
// resubmitting the form.
func isUserError(err error) bool {
	return errors.Is(err, apperror.ErrValidation) || errors.Is(err, apperror.ErrConflict)
}

func errorMessage(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "An internal error occurred"
}
