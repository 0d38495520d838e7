package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/sakif/tasklist/internal/apperror"
	"github.com/sakif/tasklist/internal/model"
	"github.com/sakif/tasklist/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore is an in-memory repository.Store. It behaves like the SQL
// backends on the points the services rely on: unique usernames, owner
// filtering, NotFound on a missing or foreign row.
type fakeStore struct {
	mu     sync.Mutex
	users  map[int64]*model.User
	tasks  map[int64]*model.Task
	nextID int64

	// set to simulate a database failure
	failWith error
}

var _ repository.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		users: make(map[int64]*model.User),
		tasks: make(map[int64]*model.Task),
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) CreateUser(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	for _, u := range f.users {
		if u.Username == user.Username {
			return apperror.DuplicateUsername(user.Username)
		}
	}
	user.ID = f.id()
	user.CreatedAt = time.Now()
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	cp := *u
	return &cp, nil
}

func (f *fakeStore) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	for _, u := range f.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (f *fakeStore) UpsertGitHubUser(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	for _, u := range f.users {
		if u.GitHubID != nil && *u.GitHubID == *user.GitHubID {
			*user = *u
			return nil
		}
	}
	for _, u := range f.users {
		if u.Username == user.Username {
			return apperror.DuplicateUsername(user.Username)
		}
	}
	user.ID = f.id()
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f *fakeStore) CreateTask(_ context.Context, task *model.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	if _, ok := f.users[task.OwnerID]; !ok {
		return apperror.NotFound("user", task.OwnerID)
	}
	task.ID = f.id()
	task.CreatedAt = time.Now()
	cp := *task
	f.tasks[task.ID] = &cp
	return nil
}

func (f *fakeStore) GetTask(_ context.Context, ownerID, id int64) (*model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	t, ok := f.tasks[id]
	if !ok || t.OwnerID != ownerID {
		return nil, apperror.NotFound("task", id)
	}
	cp := *t
	return &cp, nil
}

func (f *fakeStore) ListTasks(_ context.Context, ownerID int64, opts repository.ListOptions) ([]model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	out := []model.Task{}
	for _, t := range f.tasks {
		if t.OwnerID != ownerID {
			continue
		}
		if opts.Deadline != nil && (t.Deadline == nil || !t.Deadline.Equal(*opts.Deadline)) {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) UpdateTask(_ context.Context, task *model.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	t, ok := f.tasks[task.ID]
	if !ok || t.OwnerID != task.OwnerID {
		return apperror.NotFound("task", task.ID)
	}
	t.Content = task.Content
	t.Deadline = task.Deadline
	return nil
}

func (f *fakeStore) DeleteTask(_ context.Context, ownerID, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	t, ok := f.tasks[id]
	if !ok || t.OwnerID != ownerID {
		return apperror.NotFound("task", id)
	}
	delete(f.tasks, id)
	return nil
}

func (f *fakeStore) Close() error { return nil }
