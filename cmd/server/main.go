// Package main is the entry point of the tasklist server.
//
// It reads configuration from the environment, builds the logger and hands
// both to internal/server. All behaviour lives in internal/.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sakif/tasklist/internal/server"
)

func main() {
	logger := newLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))

	cfg, err := loadConfig(logger)
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if cfg.StoreDriver != server.DriverMySQL && cfg.DBPath != ":memory:" {
		dbDir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dbDir, 0o755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until Ctrl+C or SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// loadConfig reads the environment:
//
//	PORT                  8080
//	STORE_DRIVER          sqlite | mysql (default sqlite)
//	DB_PATH               data/tasks.db
//	MYSQL_DSN             user:pass@tcp(host:3306)/tasks
//	JWT_SECRET            random per process when unset
//	SESSION_TTL           Go duration, default 24h
//	COOKIE_SECURE         true behind HTTPS
//	GITHUB_CLIENT_ID, GITHUB_CLIENT_SECRET, GITHUB_CALLBACK_URL
func loadConfig(logger *slog.Logger) (server.Config, error) {
	cfg := server.Config{
		Port:               8080,
		StoreDriver:        strings.ToLower(envOr("STORE_DRIVER", server.DriverSQLite)),
		DBPath:             envOr("DB_PATH", "data/tasks.db"),
		MySQLDSN:           os.Getenv("MYSQL_DSN"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		GitHubClientID:     os.Getenv("GITHUB_CLIENT_ID"),
		GitHubClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
		GitHubCallbackURL:  os.Getenv("GITHUB_CALLBACK_URL"),
	}

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return cfg, fmt.Errorf("invalid PORT %q", v)
		}
		cfg.Port = port
	}

	if v := os.Getenv("SESSION_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil || ttl <= 0 {
			return cfg, fmt.Errorf("invalid SESSION_TTL %q", v)
		}
		cfg.SessionTTL = ttl
	}

	if v := os.Getenv("COOKIE_SECURE"); v != "" {
		secure, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid COOKIE_SECURE %q", v)
		}
		cfg.CookieSecure = secure
	}

	if cfg.JWTSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return cfg, fmt.Errorf("generating JWT secret: %w", err)
		}
		cfg.JWTSecret = secret
		logger.Warn("JWT_SECRET not set; using a random secret, sessions end when the process restarts")
	}

	if cfg.GitHubCallbackURL == "" {
		cfg.GitHubCallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
	}

	return cfg, nil
}

func newLogger(level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
