package main

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/tasklist/internal/server"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "STORE_DRIVER", "DB_PATH", "JWT_SECRET", "SESSION_TTL", "COOKIE_SECURE", "GITHUB_CALLBACK_URL"} {
		t.Setenv(k, "")
	}

	cfg, err := loadConfig(slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, server.DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, "data/tasks.db", cfg.DBPath)
	assert.Len(t, cfg.JWTSecret, 64, "random secret is 32 hex-encoded bytes")
	assert.Zero(t, cfg.SessionTTL)
	assert.False(t, cfg.CookieSecure)
	assert.Equal(t, "http://localhost:8080/auth/github/callback", cfg.GitHubCallbackURL)
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_DRIVER", "MySQL")
	t.Setenv("MYSQL_DSN", "u:p@tcp(db:3306)/tasks")
	t.Setenv("JWT_SECRET", "a-very-long-test-secret")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("COOKIE_SECURE", "true")

	cfg, err := loadConfig(slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, server.DriverMySQL, cfg.StoreDriver)
	assert.Equal(t, "u:p@tcp(db:3306)/tasks", cfg.MySQLDSN)
	assert.Equal(t, "a-very-long-test-secret", cfg.JWTSecret)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.True(t, cfg.CookieSecure)
}

func TestLoadConfig_RejectsBadValues(t *testing.T) {
	tests := map[string]string{
		"PORT":          "eighty",
		"SESSION_TTL":   "forever",
		"COOKIE_SECURE": "maybe",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := loadConfig(slog.New(slog.NewTextHandler(io.Discard, nil)))
			assert.Error(t, err)
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARN"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
	assert.Equal(t, slog.LevelInfo, parseLevel("loud"))
}
