package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation error")
	ErrConflict           = errors.New("conflict")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrDuplicateUsername and ErrInvalidDate refine the generic kinds, so
	// errors.Is matches both the specific and the generic sentinel.
	ErrDuplicateUsername = fmt.Errorf("duplicate username: %w", ErrConflict)
	ErrInvalidDate       = fmt.Errorf("invalid date: %w", ErrValidation)
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource string, id any) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %v", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// DuplicateUsername reports a registration for a username that is already taken.
func DuplicateUsername(username string) *AppError {
	return &AppError{
		Err:     ErrDuplicateUsername,
		Message: fmt.Sprintf("username %q is already taken", username),
		Field:   "username",
	}
}

// InvalidCredentials is deliberately vague: it never says whether the
// username or the password was wrong.
func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrInvalidCredentials,
		Message: "invalid username or password",
	}
}

// InvalidDate reports a date string that is not a YYYY-MM-DD calendar date.
func InvalidDate(field, value string) *AppError {
	return &AppError{
		Err:     ErrInvalidDate,
		Message: fmt.Sprintf("invalid date %q: use YYYY-MM-DD", value),
		Field:   field,
	}
}
