package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/sakif/tasklist/internal/apperror"
	"github.com/sakif/tasklist/internal/model"
	"github.com/sakif/tasklist/internal/repository"
)

// MaxContentLength is the longest task content accepted, in characters.
const MaxContentLength = 200

// TaskService is the task store.
//
// OWNERSHIP:
// Every method takes ownerID, the id of the user resolved from the session,
// and every repository call is filtered by it. There is no method that reads
// or writes a task without an owner, and there is no "forbidden" outcome:
// someone else's task is reported as apperror.ErrNotFound, exactly like a
// task that never existed, so task ids of other users cannot be probed.
type TaskService struct {
	repo   repository.TaskRepository
	logger *slog.Logger
}

func NewTaskService(repo repository.TaskRepository, logger *slog.Logger) *TaskService {
	return &TaskService{
		repo:   repo,
		logger: logger,
	}
}

// TaskPatch is a partial update. A nil field is left unchanged.
type TaskPatch struct {
	Content  *string
	Deadline *string
}

// List returns all of the owner's tasks in creation order.
func (s *TaskService) List(ctx context.Context, ownerID int64) ([]model.Task, error) {
	if ownerID <= 0 {
		return []model.Task{}, nil
	}
	tasks, err := s.repo.ListTasks(ctx, ownerID, repository.ListOptions{})
	if err != nil {
		s.logger.Error("failed to list tasks",
			slog.Int64("ownerID", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	return tasks, nil
}

// Create stores a new task for ownerID.
//
// content is stored as given (no trimming) and must be 1–200 characters.
// deadline is optional: nil or "" means no deadline, anything else must be a
// YYYY-MM-DD date or apperror.ErrInvalidDate is returned.
func (s *TaskService) Create(ctx context.Context, ownerID int64, content string, deadline *string) (*model.Task, error) {
	if err := validateContent(content); err != nil {
		return nil, err
	}
	due, err := parseOptionalDeadline(deadline)
	if err != nil {
		return nil, err
	}
	if ownerID <= 0 {
		return nil, apperror.NotFound("user", ownerID)
	}

	task := &model.Task{
		OwnerID:  ownerID,
		Content:  content,
		Deadline: due,
	}
	if err := s.repo.CreateTask(ctx, task); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		s.logger.Error("failed to create task",
			slog.Int64("ownerID", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating task: %w", err)
	}

	s.logger.Info("task created",
		slog.Int64("id", task.ID),
		slog.Int64("ownerID", ownerID),
		slog.String("deadline", task.DeadlineString()),
	)
	return task, nil
}

// Get returns one of the owner's tasks.
func (s *TaskService) Get(ctx context.Context, ownerID, taskID int64) (*model.Task, error) {
	if ownerID <= 0 || taskID <= 0 {
		return nil, apperror.NotFound("task", taskID)
	}
	return s.repo.GetTask(ctx, ownerID, taskID)
}

// UpdateContent replaces the content only; the deadline is untouched.
// This is the edit-page path.
func (s *TaskService) UpdateContent(ctx context.Context, ownerID, taskID int64, content string) (*model.Task, error) {
	return s.UpdateFields(ctx, ownerID, taskID, TaskPatch{Content: &content})
}

// UpdateFields applies a partial update. This is the JSON API path.
// An empty deadline counts as absent, the same as on Create.
//
// Both fields are validated before anything is written, so an invalid
// deadline never leaves a half-applied content change behind.
func (s *TaskService) UpdateFields(ctx context.Context, ownerID, taskID int64, patch TaskPatch) (*model.Task, error) {
	if patch.Content != nil {
		if err := validateContent(*patch.Content); err != nil {
			return nil, err
		}
	}

	task, err := s.Get(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}

	due, err := parseOptionalDeadline(patch.Deadline)
	if err != nil {
		return nil, err
	}
	if due != nil {
		task.Deadline = due
	}
	if patch.Content != nil {
		task.Content = *patch.Content
	}

	return s.save(ctx, task, "task updated")
}

// SetDeadline sets the deadline from a YYYY-MM-DD string. On a parse failure
// it returns apperror.ErrInvalidDate and the stored deadline is unchanged.
func (s *TaskService) SetDeadline(ctx context.Context, ownerID, taskID int64, deadline string) (*model.Task, error) {
	task, err := s.Get(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}

	due, err := model.ParseDate(deadline)
	if err != nil {
		return nil, apperror.InvalidDate("deadline", deadline)
	}
	task.Deadline = &due

	return s.save(ctx, task, "task deadline set")
}

// Delete removes the task permanently. Deleting it again returns NotFound.
func (s *TaskService) Delete(ctx context.Context, ownerID, taskID int64) error {
	if ownerID <= 0 || taskID <= 0 {
		return apperror.NotFound("task", taskID)
	}
	if err := s.repo.DeleteTask(ctx, ownerID, taskID); err != nil {
		return err
	}

	s.logger.Info("task deleted",
		slog.Int64("id", taskID),
		slog.Int64("ownerID", ownerID),
	)
	return nil
}

// ListByDate returns the owner's tasks whose deadline equals date.
func (s *TaskService) ListByDate(ctx context.Context, ownerID int64, date string) ([]model.Task, error) {
	due, err := model.ParseDate(date)
	if err != nil {
		return nil, err
	}
	if ownerID <= 0 {
		return []model.Task{}, nil
	}

	tasks, err := s.repo.ListTasks(ctx, ownerID, repository.ListOptions{Deadline: &due})
	if err != nil {
		s.logger.Error("failed to list tasks by date",
			slog.Int64("ownerID", ownerID),
			slog.String("date", date),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing tasks by date: %w", err)
	}
	return tasks, nil
}

func (s *TaskService) save(ctx context.Context, task *model.Task, event string) (*model.Task, error) {
	if err := s.repo.UpdateTask(ctx, task); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		s.logger.Error("failed to update task",
			slog.Int64("id", task.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating task: %w", err)
	}

	s.logger.Info(event,
		slog.Int64("id", task.ID),
		slog.Int64("ownerID", task.OwnerID),
	)
	return task, nil
}

func validateContent(content string) error {
	n := utf8.RuneCountInString(content)
	if n == 0 {
		return apperror.ValidationFailed("content", "content is required")
	}
	if n > MaxContentLength {
		return apperror.ValidationFailed("content",
			fmt.Sprintf("content must be %d characters or less", MaxContentLength))
	}
	return nil
}

func parseOptionalDeadline(deadline *string) (*model.Date, error) {
	if deadline == nil || *deadline == "" {
		return nil, nil
	}
	due, err := model.ParseDate(*deadline)
	if err != nil {
		return nil, apperror.InvalidDate("deadline", *deadline)
	}
	return &due, nil
}
