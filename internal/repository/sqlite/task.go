package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/tasklist/internal/apperror"
	"github.com/sakif/tasklist/internal/model"
	"github.com/sakif/tasklist/internal/repository"
)

var _ repository.TaskRepository = (*DB)(nil)

const taskColumns = `id, content, deadline, owner_id, created_at`

// CreateTask inserts task and fills in task.ID and task.CreatedAt.
//
// If task.OwnerID does not reference an existing user the foreign key
// rejects the row; that is reported as a missing user, never as a task.
func (db *DB) CreateTask(ctx context.Context, task *model.Task) error {
	task.CreatedAt = time.Now().UTC()

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO tasks (content, deadline, owner_id, created_at)
		 VALUES (?, ?, ?, ?)`,
		task.Content,
		deadlineValue(task.Deadline),
		task.OwnerID,
		task.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFound("user", task.OwnerID)
		}
		return fmt.Errorf("sqlite: creating task: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new task id: %w", err)
	}
	task.ID = id
	return nil
}

// GetTask retrieves one of ownerID's tasks.
//
// The owner is part of the WHERE clause, so someone else's task produces
// sql.ErrNoRows exactly like a missing one.
func (db *DB) GetTask(ctx context.Context, ownerID, id int64) (*model.Task, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ? AND owner_id = ?`,
		id, ownerID,
	)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("task", id)
		}
		return nil, fmt.Errorf("sqlite: getting task %d: %w", id, err)
	}
	return task, nil
}

// ListTasks returns ownerID's tasks ordered by id, i.e. creation order.
func (db *DB) ListTasks(ctx context.Context, ownerID int64, opts repository.ListOptions) ([]model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE owner_id = ?`
	args := []any{ownerID}
	if opts.Deadline != nil {
		query += ` AND deadline = ?`
		args = append(args, opts.Deadline.String())
	}
	query += ` ORDER BY id ASC`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]model.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning task row: %w", err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating tasks: %w", err)
	}

	return tasks, nil
}

// UpdateTask overwrites content and deadline. owner_id is never written.
func (db *DB) UpdateTask(ctx context.Context, task *model.Task) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE tasks SET content = ?, deadline = ?
		 WHERE id = ? AND owner_id = ?`,
		task.Content,
		deadlineValue(task.Deadline),
		task.ID,
		task.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating task %d: %w", task.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("task", task.ID)
	}
	return nil
}

// DeleteTask removes one of ownerID's tasks permanently.
func (db *DB) DeleteTask(ctx context.Context, ownerID, id int64) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM tasks WHERE id = ? AND owner_id = ?`,
		id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting task %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("task", id)
	}
	return nil
}

// deadlineValue maps an unset deadline to SQL NULL.
func deadlineValue(d *model.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func scanTask(s scanner) (*model.Task, error) {
	var (
		t        model.Task
		deadline sql.NullString
	)
	if err := s.Scan(&t.ID, &t.Content, &deadline, &t.OwnerID, &t.CreatedAt); err != nil {
		return nil, err
	}
	if deadline.Valid {
		d, err := model.ParseDate(deadline.String)
		if err != nil {
			return nil, fmt.Errorf("stored deadline %q: %w", deadline.String, err)
		}
		t.Deadline = &d
	}
	return &t, nil
}
