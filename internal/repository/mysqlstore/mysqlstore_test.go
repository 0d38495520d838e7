package mysqlstore

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/sakif/tasklist/internal/apperror"
	"github.com/sakif/tasklist/internal/model"
	"github.com/sakif/tasklist/internal/repository"
)

func TestNormalizeDSN(t *testing.T) {
	out, err := normalizeDSN("tasks:secret@tcp(db:3306)/tasks")
	require.NoError(t, err)

	cfg, err := mysql.ParseDSN(out)
	require.NoError(t, err)
	assert.True(t, cfg.ParseTime)
	assert.True(t, cfg.ClientFoundRows)
	assert.Equal(t, "UTC", cfg.Loc.String())
	assert.Equal(t, "tasks", cfg.DBName)
	assert.Equal(t, "db:3306", cfg.Addr)
}

func TestNormalizeDSN_Invalid(t *testing.T) {
	_, err := normalizeDSN("not a dsn at all")
	assert.Error(t, err)
}

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
	}{
		{"record not found", gorm.ErrRecordNotFound, apperror.ErrNotFound},
		{"wrapped record not found", errors.Join(errors.New("query"), gorm.ErrRecordNotFound), apperror.ErrNotFound},
		{"duplicate entry", &mysql.MySQLError{Number: errDupEntry, Message: "Duplicate entry 'alice'"}, apperror.ErrDuplicateUsername},
		{"missing owner", &mysql.MySQLError{Number: errNoReferencedRow}, apperror.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateError(tt.err, "task", 7)
			assert.ErrorIs(t, got, tt.target)
		})
	}
}

func TestTranslateError_Passthrough(t *testing.T) {
	assert.NoError(t, translateError(nil, "task", 1))

	raw := &mysql.MySQLError{Number: 1045, Message: "Access denied"}
	got := translateError(raw, "task", 1)
	assert.ErrorIs(t, got, raw)
	assert.False(t, errors.Is(got, apperror.ErrNotFound))
	assert.True(t, strings.HasPrefix(got.Error(), "mysqlstore: "))
}

func TestUserRow_UsernameIsBinaryCollated(t *testing.T) {
	sch, err := schema.Parse(&userRow{}, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)

	field := sch.LookUpField("Username")
	require.NotNil(t, field)
	assert.Contains(t, string(field.DataType), "utf8mb4_bin")
	assert.True(t, field.NotNull)
}

// TestStore_Integration runs against a real MySQL when MYSQL_TEST_DSN is set,
// e.g. MYSQL_TEST_DSN="root:root@tcp(localhost:3306)/tasks_test".
func TestStore_Integration(t *testing.T) {
	dsn := os.Getenv("MYSQL_TEST_DSN")
	if dsn == "" {
		t.Skip("MYSQL_TEST_DSN not set")
	}

	s, err := New(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	// Recreate the tables so the current column definitions apply.
	require.NoError(t, s.db.Migrator().DropTable(&taskRow{}, &userRow{}))
	require.NoError(t, s.migrate())

	ctx := context.Background()
	alice := &model.User{Username: "alice", PasswordHash: "h"}
	require.NoError(t, s.CreateUser(ctx, alice))
	bob := &model.User{Username: "bob", PasswordHash: "h"}
	require.NoError(t, s.CreateUser(ctx, bob))

	err = s.CreateUser(ctx, &model.User{Username: "alice", PasswordHash: "x"})
	assert.ErrorIs(t, err, apperror.ErrDuplicateUsername)

	// Usernames are case-sensitive: "Alice" is a different account.
	upper := &model.User{Username: "Alice", PasswordHash: "h2"}
	require.NoError(t, s.CreateUser(ctx, upper))
	assert.NotEqual(t, alice.ID, upper.ID)

	found, err := s.GetUserByUsername(ctx, "Alice")
	require.NoError(t, err)
	assert.Equal(t, upper.ID, found.ID)
	_, err = s.GetUserByUsername(ctx, "ALICE")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	d, err := model.ParseDate("2024-12-25")
	require.NoError(t, err)
	task := &model.Task{OwnerID: alice.ID, Content: "Buy milk", Deadline: &d}
	require.NoError(t, s.CreateTask(ctx, task))

	got, err := s.GetTask(ctx, alice.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-12-25", got.DeadlineString())

	_, err = s.GetTask(ctx, bob.ID, task.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	byDate, err := s.ListTasks(ctx, alice.ID, repository.ListOptions{Deadline: &d})
	require.NoError(t, err)
	assert.Len(t, byDate, 1)

	require.NoError(t, s.UpdateTask(ctx, got))
	require.NoError(t, s.DeleteTask(ctx, alice.ID, task.ID))
	assert.ErrorIs(t, s.DeleteTask(ctx, alice.ID, task.ID), apperror.ErrNotFound)
}
