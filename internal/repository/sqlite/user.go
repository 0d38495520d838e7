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

var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, username, password_hash, github_id, created_at`

// CreateUser inserts a new user and fills in user.ID and user.CreatedAt.
//
// Uniqueness is enforced by the UNIQUE constraint on users.username rather
// than a SELECT-then-INSERT, so two concurrent registrations of the same name
// cannot both succeed. A duplicate leaves the table untouched.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	user.CreatedAt = time.Now().UTC()

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, github_id, created_at)
		 VALUES (?, ?, ?, ?)`,
		user.Username,
		user.PasswordHash,
		user.GitHubID,
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.DuplicateUsername(user.Username)
		}
		return fmt.Errorf("sqlite: inserting user %q: %w", user.Username, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new user id: %w", err)
	}
	user.ID = id
	return nil
}

// GetUserByID retrieves a user by id.
// Returns apperror.ErrNotFound if no user exists with that id.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %d: %w", id, err)
	}
	return u, nil
}

// GetUserByUsername looks up a user by exact, case-sensitive username.
// SQLite's default BINARY collation makes "=" case-sensitive.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", username)
		}
		return nil, fmt.Errorf("sqlite: getting user %q: %w", username, err)
	}
	return u, nil
}

// UpsertGitHubUser finds the user linked to user.GitHubID or inserts it.
// On return, *user holds the stored record.
func (db *DB) UpsertGitHubUser(ctx context.Context, user *model.User) error {
	if user.GitHubID == nil {
		return fmt.Errorf("sqlite: upserting GitHub user %q: missing github id", user.Username)
	}

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE github_id = ?`, *user.GitHubID)
	existing, err := scanUser(row)
	switch {
	case err == nil:
		*user = *existing
		return nil
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("sqlite: looking up github id %d: %w", *user.GitHubID, err)
	}

	user.PasswordHash = ""
	return db.CreateUser(ctx, user)
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*model.User, error) {
	var (
		u        model.User
		githubID sql.NullInt64
	)
	if err := s.Scan(&u.ID, &u.Username, &u.PasswordHash, &githubID, &u.CreatedAt); err != nil {
		return nil, err
	}
	if githubID.Valid {
		u.GitHubID = &githubID.Int64
	}
	return &u, nil
}
