// Package service contains the business rules of the application.
//
//	Handler (HTTP) → Service (rules, validation, ownership) → Repository (SQL)
//
// Services know nothing about HTTP. They accept plain values, return
// *model values or *apperror.AppError failures, and receive their
// repositories as interfaces so tests can swap in in-memory fakes.
//
// AuthService is the identity store: registration, credential
// verification, and re-hydrating a user from a session.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"unicode/utf8"

	"github.com/sakif/tasklist/internal/apperror"
	"github.com/sakif/tasklist/internal/auth"
	"github.com/sakif/tasklist/internal/model"
	"github.com/sakif/tasklist/internal/repository"
)

const (
	MaxUsernameLength = 150
	MaxPasswordLength = 150
)

// AuthService handles registration, login and session lookup.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger

	// dummyHash is compared against when a username does not exist, so an
	// unknown user costs the same bcrypt work as a wrong password.
	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles a user with a freshly issued session token.
type AuthResult struct {
	User  *model.User
	Token string
}

// Register creates a new account.
//
// Usernames are case-sensitive and must be unique; a taken username returns
// apperror.ErrDuplicateUsername and stores nothing. There are no password
// strength rules beyond the length bounds.
func (s *AuthService) Register(ctx context.Context, username, password string) (*model.User, error) {
	if err := validateCredentials(username, password); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{Username: username, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrDuplicateUsername) {
			s.logger.Info("registration rejected: username taken", slog.String("username", username))
			return nil, err
		}
		s.logger.Error("failed to create user",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user registered",
		slog.Int64("userID", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// Authenticate verifies a username/password pair.
//
// Every failure (unknown user, wrong password, GitHub-only account) returns
// the same apperror.ErrInvalidCredentials so callers cannot tell which part
// was wrong.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			return nil, fmt.Errorf("service/auth: looking up %q: %w", username, err)
		}
		// Burn the same bcrypt time as a real comparison.
		s.passwords.Verify(s.dummy(), password)
		return nil, apperror.InvalidCredentials()
	}

	if !user.HasPassword() {
		s.passwords.Verify(s.dummy(), password)
		return nil, apperror.InvalidCredentials()
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Error("stored password hash is unreadable",
				slog.Int64("userID", user.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil, apperror.InvalidCredentials()
	}

	return user, nil
}

// Login authenticates and issues a session token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		if errors.Is(err, apperror.ErrInvalidCredentials) {
			s.logger.Info("login failed", slog.String("username", username))
		}
		return nil, err
	}
	return s.issue(user)
}

// Lookup resolves a user id taken from a session token.
// Returns apperror.ErrNotFound if the user no longer exists.
func (s *AuthService) Lookup(ctx context.Context, id int64) (*model.User, error) {
	if id <= 0 {
		return nil, apperror.NotFound("user", id)
	}
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: fetching user %d: %w", id, err)
	}
	return user, nil
}

// LoginOrRegisterGitHub links a GitHub account to a local user, creating it
// (with the GitHub login as username and no password) on first sign-in.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, gh *auth.GitHubUser) (*AuthResult, error) {
	if gh == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}
	if err := validateUsername(gh.Login); err != nil {
		return nil, err
	}

	ghID := gh.ID
	user := &model.User{Username: gh.Login, GitHubID: &ghID}
	if err := s.users.UpsertGitHubUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrDuplicateUsername) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: upserting user (githubID=%d): %w", gh.ID, err)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.Int64("userID", user.ID),
		slog.String("username", user.Username),
	)
	return s.issue(user)
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %d: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		// The error is impossible for a fixed short input; an empty hash
		// would still make Verify fail, which is all that matters here.
		s.dummyHash, _ = s.passwords.Hash("tasklist-dummy-password")
	})
	return s.dummyHash
}

func validateCredentials(username, password string) error {
	if err := validateUsername(username); err != nil {
		return err
	}
	n := utf8.RuneCountInString(password)
	if n == 0 {
		return apperror.ValidationFailed("password", "password is required")
	}
	if n > MaxPasswordLength {
		return apperror.ValidationFailed("password",
			fmt.Sprintf("password must be %d characters or less", MaxPasswordLength))
	}
	return nil
}

func validateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n == 0 {
		return apperror.ValidationFailed("username", "username is required")
	}
	if n > MaxUsernameLength {
		return apperror.ValidationFailed("username",
			fmt.Sprintf("username must be %d characters or less", MaxUsernameLength))
	}
	return nil
}
