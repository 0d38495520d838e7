package mysqlstore

import (
	"context"
	"time"

	"gorm.io/gorm/clause"

	"github.com/sakif/tasklist/internal/apperror"
	"github.com/sakif/tasklist/internal/model"
	"github.com/sakif/tasklist/internal/repository"
)

func (s *Store) CreateTask(ctx context.Context, task *model.Task) error {
	row := taskRow{
		Content:   task.Content,
		Deadline:  task.Deadline,
		OwnerID:   task.OwnerID,
		CreatedAt: time.Now().UTC(),
	}
	err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&row).Error
	if err != nil {
		return translateError(err, "user", task.OwnerID)
	}
	task.ID = row.ID
	task.CreatedAt = row.CreatedAt
	return nil
}

func (s *Store) GetTask(ctx context.Context, ownerID, id int64) (*model.Task, error) {
	var row taskRow
	err := s.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&row).Error
	if err != nil {
		return nil, translateError(err, "task", id)
	}
	t := row.toModel()
	return &t, nil
}

func (s *Store) ListTasks(ctx context.Context, ownerID int64, opts repository.ListOptions) ([]model.Task, error) {
	q := s.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if opts.Deadline != nil {
		q = q.Where("deadline = ?", opts.Deadline.String())
	}

	var rows []taskRow
	if err := q.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, translateError(err, "tasks of user", ownerID)
	}

	tasks := make([]model.Task, 0, len(rows))
	for _, r := range rows {
		tasks = append(tasks, r.toModel())
	}
	return tasks, nil
}

// UpdateTask uses a map so a nil deadline is written as NULL; Updates with a
// struct would skip zero-valued fields.
func (s *Store) UpdateTask(ctx context.Context, task *model.Task) error {
	res := s.db.WithContext(ctx).
		Model(&taskRow{}).
		Where("id = ? AND owner_id = ?", task.ID, task.OwnerID).
		Updates(map[string]any{
			"content":  task.Content,
			"deadline": task.Deadline,
		})
	if res.Error != nil {
		return translateError(res.Error, "task", task.ID)
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("task", task.ID)
	}
	return nil
}

func (s *Store) DeleteTask(ctx context.Context, ownerID, id int64) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Delete(&taskRow{})
	if res.Error != nil {
		return translateError(res.Error, "task", id)
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("task", id)
	}
	return nil
}

func (r taskRow) toModel() model.Task {
	return model.Task{
		ID:        r.ID,
		Content:   r.Content,
		Deadline:  r.Deadline,
		OwnerID:   r.OwnerID,
		CreatedAt: r.CreatedAt,
	}
}
