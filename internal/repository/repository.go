// Package repository declares the storage contracts the services depend on.
//
// Every task method takes the owner's id and filters by it. A task that
// exists but belongs to someone else is reported exactly like a task that
// does not exist (apperror.ErrNotFound).
package repository

import (
	"context"

	"github.com/sakif/tasklist/internal/model"
)

// ListOptions narrows ListTasks. The zero value lists every task of the owner.
type ListOptions struct {
	// Deadline, when set, keeps only tasks whose deadline equals it.
	Deadline *model.Date
}

type UserRepository interface {
	// CreateUser returns apperror.ErrDuplicateUsername when the username is taken.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	// UpsertGitHubUser returns the user linked to user.GitHubID, creating it
	// on first sign-in. Existing users are never modified.
	UpsertGitHubUser(ctx context.Context, user *model.User) error
}

type TaskRepository interface {
	CreateTask(ctx context.Context, task *model.Task) error
	GetTask(ctx context.Context, ownerID, id int64) (*model.Task, error)
	// ListTasks returns tasks in creation order.
	ListTasks(ctx context.Context, ownerID int64, opts ListOptions) ([]model.Task, error)
	// UpdateTask writes Content and Deadline of task, matching on both
	// task.ID and task.OwnerID.
	UpdateTask(ctx context.Context, task *model.Task) error
	DeleteTask(ctx context.Context, ownerID, id int64) error
}

// Store is a complete storage backend.
type Store interface {
	UserRepository
	TaskRepository
	Close() error
}
