package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/tasklist/internal/apperror"
	"github.com/sakif/tasklist/internal/model"
	"github.com/sakif/tasklist/internal/service"
)

// TaskHandler serves the JSON task API. Every route is mounted behind
// auth.RequireAuth.
type TaskHandler struct {
	tasks  TaskStore
	logger *slog.Logger
}

func NewTaskHandler(tasks TaskStore, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, logger: logger}
}

// taskRequest is the body of POST /api/tasks and PUT /api/tasks/{id}.
// A missing field and an explicit null both decode to nil.
type taskRequest struct {
	Content  *string `json:"content"`
	Deadline *string `json:"deadline"`
}

type deadlineRequest struct {
	Deadline string `json:"deadline"`
}

// TaskListResponse wraps the result of GET /api/tasks/by_date.
type TaskListResponse struct {
	Tasks []model.Task `json:"tasks"`
}

// DeadlineResponse is returned by POST /api/task/{id}/set_deadline.
type DeadlineResponse struct {
	Message string      `json:"message"`
	Task    *model.Task `json:"task"`
}

// HandleList returns all tasks of the caller.
//
// HTTP: GET /api/tasks
func (h *TaskHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}
	tasks, err := h.tasks.List(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// HandleCreate creates a task.
//
// HTTP: POST /api/tasks {"content": "Buy milk", "deadline": "2024-12-25"}
func (h *TaskHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}
	var req taskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	content := ""
	if req.Content != nil {
		content = *req.Content
	}
	task, err := h.tasks.Create(r.Context(), owner, content, req.Deadline)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// HandleGet returns one task.
//
// HTTP: GET /api/tasks/{id}
func (h *TaskHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}
	id, err := taskIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	task, err := h.tasks.Get(r.Context(), owner, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// HandleUpdate applies a partial update; omitted fields keep their value.
//
// HTTP: PUT /api/tasks/{id} {"content": "...", "deadline": "YYYY-MM-DD"}
func (h *TaskHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}
	id, err := taskIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req taskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	task, err := h.tasks.UpdateFields(r.Context(), owner, id, service.TaskPatch{
		Content:  req.Content,
		Deadline: req.Deadline,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// HandleDelete removes a task.
//
// HTTP: DELETE /api/tasks/{id}
func (h *TaskHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}
	id, err := taskIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.tasks.Delete(r.Context(), owner, id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Task deleted successfully"})
}

// HandleSetDeadline sets the deadline of a task.
//
// HTTP: POST /api/task/{id}/set_deadline {"deadline": "2024-12-25"}
func (h *TaskHandler) HandleSetDeadline(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}
	id, err := taskIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req deadlineRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	task, err := h.tasks.SetDeadline(r.Context(), owner, id, req.Deadline)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DeadlineResponse{Message: "Deadline set successfully", Task: task})
}

// HandleListByDate returns the tasks due on one day.
//
// HTTP: GET /api/tasks/by_date?date=2024-12-25
func (h *TaskHandler) HandleListByDate(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}
	tasks, err := h.tasks.ListByDate(r.Context(), owner, r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TaskListResponse{Tasks: tasks})
}

func requireOwner(w http.ResponseWriter, r *http.Request) (int64, bool) {
	user := currentUser(r)
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "valid authentication required",
		})
		return 0, false
	}
	return user.ID, true
}

// taskIDParam parses {id}. A non-numeric id cannot name any task, so it is
// reported as not found rather than as a bad request.
func taskIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.NotFound("task", raw)
	}
	return id, nil
}
