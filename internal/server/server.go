// Package server is the composition root: it opens the store, builds the
// services and handlers, and mounts every route.
//
//	Store (sqlite | mysql) → AuthService, TaskService → handlers → chi router
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/tasklist/internal/auth"
	"github.com/sakif/tasklist/internal/handler"
	"github.com/sakif/tasklist/internal/middleware"
	"github.com/sakif/tasklist/internal/repository"
	"github.com/sakif/tasklist/internal/repository/mysqlstore"
	sqliteRepo "github.com/sakif/tasklist/internal/repository/sqlite"
	"github.com/sakif/tasklist/internal/service"
	"github.com/sakif/tasklist/web"
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Config holds everything main reads from the environment.
type Config struct {
	Port int

	StoreDriver string // DriverSQLite (default) or DriverMySQL
	DBPath      string // SQLite file, or ":memory:"
	MySQLDSN    string

	JWTSecret    string
	SessionTTL   time.Duration // 0 means auth.DefaultSessionTTL
	CookieSecure bool
	BcryptCost   int // 0 means the bcrypt default

	// GitHub sign-in is enabled only when both id and secret are set.
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
}

func (c Config) githubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

// Server owns the router and the store. The store is closed when Start
// returns, or by Close for servers that are never started.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	store  repository.Store
}

func New(cfg Config, logger *slog.Logger) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
	}

	if err := s.setupRoutes(tokens); err != nil {
		store.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func openStore(cfg Config) (repository.Store, error) {
	switch cfg.StoreDriver {
	case "", DriverSQLite:
		db, err := sqliteRepo.New(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		return db, nil
	case DriverMySQL:
		if cfg.MySQLDSN == "" {
			return nil, errors.New("MYSQL_DSN is required for the mysql driver")
		}
		store, err := mysqlstore.New(cfg.MySQLDSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// setupRoutes mounts:
//
//	GET       /                       task list page        (login)
//	GET|POST  /register, /login       account forms
//	GET       /logout
//	GET|POST  /add, /edit/{id}        task forms            (login)
//	GET|POST  /delete/{id}                                  (login)
//	GET       /api/docs
//	GET       /auth/github/login, /auth/github/callback     (when configured)
//	POST      /api/register, /api/login, /api/logout
//	GET       /api/me                                       (auth)
//	GET|POST  /api/tasks                                    (auth)
//	GET       /api/tasks/by_date?date=                      (auth)
//	GET|PUT|DELETE /api/tasks/{id}                          (auth)
//	POST      /api/task/{id}/set_deadline                   (auth)
func (s *Server) setupRoutes(tokens *auth.TokenService) error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	passwords := auth.NewPasswordServiceWithCost(s.config.BcryptCost)
	authService := service.NewAuthService(s.store, tokens, passwords, s.logger)
	taskService := service.NewTaskService(s.store, s.logger)

	session := handler.SessionConfig{TTL: tokens.TTL(), Secure: s.config.CookieSecure}

	// A nil *auth.GitHubProvider stored in the interface would not compare
	// equal to nil, so the interface is only assigned when configured.
	var github handler.GitHubAuthenticator
	if s.config.githubEnabled() {
		github = auth.NewGitHubProvider(
			s.config.GitHubClientID,
			s.config.GitHubClientSecret,
			s.config.GitHubCallbackURL,
		)
	}

	authHandler := handler.NewAuthHandler(authService, github, session, s.logger)
	taskHandler := handler.NewTaskHandler(taskService, s.logger)
	pageHandler, err := handler.NewPageHandler(web.Templates, authService, taskService, session, github != nil, s.logger)
	if err != nil {
		return fmt.Errorf("creating page handler: %w", err)
	}

	// Pages that work signed in or out.
	s.router.Group(func(r chi.Router) {
		r.Use(auth.OptionalAuth(tokens, authService))
		r.Use(middleware.TagUser)

		r.Get("/register", pageHandler.HandleRegisterForm)
		r.Post("/register", pageHandler.HandleRegister)
		r.Get("/login", pageHandler.HandleLoginForm)
		r.Post("/login", pageHandler.HandleLogin)
		r.Get("/logout", pageHandler.HandleLogout)
		r.Get("/api/docs", pageHandler.HandleAPIDocs)
	})

	// Pages that need a session.
	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireLogin(tokens, authService, "/login"))
		r.Use(middleware.TagUser)

		r.Get("/", pageHandler.HandleIndex)
		r.Get("/add", pageHandler.HandleAddForm)
		r.Post("/add", pageHandler.HandleAdd)
		r.Get("/edit/{id}", pageHandler.HandleEditForm)
		r.Post("/edit/{id}", pageHandler.HandleEdit)
		r.Get("/delete/{id}", pageHandler.HandleDelete)
		r.Post("/delete/{id}", pageHandler.HandleDelete)
	})

	if github != nil {
		s.router.Get("/auth/github/login", authHandler.HandleGitHubLogin)
		s.router.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens, authService))
			r.Use(middleware.TagUser)

			r.Get("/me", authHandler.HandleMe)

			r.Get("/tasks", taskHandler.HandleList)
			r.Post("/tasks", taskHandler.HandleCreate)
			r.Get("/tasks/by_date", taskHandler.HandleListByDate)
			r.Get("/tasks/{id}", taskHandler.HandleGet)
			r.Put("/tasks/{id}", taskHandler.HandleUpdate)
			r.Delete("/tasks/{id}", taskHandler.HandleDelete)
			r.Post("/task/{id}/set_deadline", taskHandler.HandleSetDeadline)
		})
	})

	return nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the store.
func (s *Server) Close() error {
	return s.store.Close()
}

// Start serves until SIGINT or SIGTERM, then gives in-flight requests 30
// seconds to finish and closes the store.
func (s *Server) Start() error {
	defer s.store.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("store", s.storeDescription()),
			slog.Bool("github", s.config.githubEnabled()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// storeDescription never includes the MySQL DSN, which carries a password.
func (s *Server) storeDescription() string {
	if s.config.StoreDriver == DriverMySQL {
		return DriverMySQL
	}
	return DriverSQLite + ":" + s.config.DBPath
}
