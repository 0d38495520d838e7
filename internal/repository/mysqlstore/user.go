package mysqlstore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/sakif/tasklist/internal/model"
)

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	row := userRow{
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
		GitHubID:     user.GitHubID,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return translateError(err, "user", user.Username)
	}
	*user = row.toModel()
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	var row userRow
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, translateError(err, "user", id)
	}
	u := row.toModel()
	return &u, nil
}

// GetUserByUsername is case-sensitive through the column's binary collation.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var row userRow
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&row).Error
	if err != nil {
		return nil, translateError(err, "user", username)
	}
	u := row.toModel()
	return &u, nil
}

func (s *Store) UpsertGitHubUser(ctx context.Context, user *model.User) error {
	if user.GitHubID == nil {
		return fmt.Errorf("mysqlstore: upserting GitHub user %q: missing github id", user.Username)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row userRow
		err := tx.Where("github_id = ?", *user.GitHubID).Limit(1).Find(&row).Error
		if err != nil {
			return translateError(err, "user", *user.GitHubID)
		}
		if row.ID != 0 {
			*user = row.toModel()
			return nil
		}

		row = userRow{
			Username:  user.Username,
			GitHubID:  user.GitHubID,
			CreatedAt: time.Now().UTC(),
		}
		if err := tx.Create(&row).Error; err != nil {
			return translateError(err, "user", user.Username)
		}
		*user = row.toModel()
		return nil
	})
}

func (r userRow) toModel() model.User {
	return model.User{
		ID:           r.ID,
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		GitHubID:     r.GitHubID,
		CreatedAt:    r.CreatedAt,
	}
}
