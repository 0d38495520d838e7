// Package mysqlstore implements the repository interfaces on MySQL through GORM.
//
// It is selected with STORE_DRIVER=mysql and mirrors the SQLite backend's
// semantics exactly: owner-scoped WHERE clauses, creation-order listing,
// NotFound for cross-owner access, and DuplicateUsername from the unique
// index on users.username.
package mysqlstore

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sakif/tasklist/internal/apperror"
	"github.com/sakif/tasklist/internal/model"
	"github.com/sakif/tasklist/internal/repository"
)

var _ repository.Store = (*Store)(nil)

// MySQL server error numbers translated into domain errors.
const (
	errDupEntry        = 1062 // ER_DUP_ENTRY
	errNoReferencedRow = 1452 // ER_NO_REFERENCED_ROW_2
)

// userRow is the users table. The model package stays free of GORM tags.
//
// Usernames use a binary collation: MySQL's default utf8mb4 collations
// ignore case and accents, which would make "Alice" collide with "alice"
// in the unique index.
type userRow struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	Username     string    `gorm:"type:varchar(150) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin;not null;uniqueIndex:idx_users_username"`
	PasswordHash string    `gorm:"size:100;not null;default:''"`
	GitHubID     *int64    `gorm:"column:github_id;uniqueIndex:idx_users_github_id"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (userRow) TableName() string { return "users" }

// taskRow is the tasks table. Owner is declared only so AutoMigrate creates
// the foreign key; it is never loaded or saved.
type taskRow struct {
	ID        int64       `gorm:"primaryKey;autoIncrement"`
	Content   string      `gorm:"size:200;not null"`
	Deadline  *model.Date `gorm:"type:date;index:idx_tasks_owner_deadline,priority:2"`
	OwnerID   int64       `gorm:"not null;index:idx_tasks_owner_deadline,priority:1"`
	Owner     *userRow    `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time   `gorm:"not null"`
}

func (taskRow) TableName() string { return "tasks" }

// Store wraps a *gorm.DB and implements repository.Store.
type Store struct {
	db *gorm.DB
}

// New connects to MySQL with the given DSN and migrates the schema.
//
// Example DSN: "tasks:secret@tcp(localhost:3306)/tasks"
func New(dsn string) (*Store, error) {
	normalized, err := normalizeDSN(dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(gormmysql.Open(normalized), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Warn),
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("mysqlstore: opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("mysqlstore: running migrations: %w", err)
	}
	return s, nil
}

// normalizeDSN forces the driver options the store relies on:
//   - ParseTime: DATETIME/DATE columns come back as time.Time.
//   - ClientFoundRows: UPDATE reports matched rows, not changed rows, so
//     re-saving identical values is not mistaken for a missing task.
//   - UTC location, matching the SQLite backend.
func normalizeDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("mysqlstore: parsing DSN: %w", err)
	}
	cfg.ParseTime = true
	cfg.ClientFoundRows = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

func (s *Store) migrate() error {
	return s.db.AutoMigrate(&userRow{}, &taskRow{})
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("mysqlstore: getting sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// translateError maps GORM and MySQL driver errors to domain errors.
// resource and id describe what was being looked up, for NotFound messages.
func translateError(err error, resource string, id any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound(resource, id)
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case errDupEntry:
			return apperror.DuplicateUsername(fmt.Sprint(id))
		case errNoReferencedRow:
			return apperror.NotFound("user", id)
		}
	}
	return fmt.Errorf("mysqlstore: %s %v: %w", resource, id, err)
}
