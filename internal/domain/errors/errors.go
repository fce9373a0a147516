// Package errors defines the error kinds surfaced by the authentication core.
// Every failure that reaches the delivery layer carries a Kind; the boundary
// switches on it to choose a status code.
package errors

import (
	"arena/internal/errors"
)

// Kind tags an application error with the category the boundary maps on.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindAuthentication
	KindNotFound
	KindForbidden
)

// String returns a stable lower-case name, used in logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindAuthentication:
		return "authentication"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	default:
		return "internal"
	}
}

// AppError defines the interface for application-specific errors
type AppError interface {
	error
	Kind() Kind        // Error category
	ErrorCode() string // Business error code
	Message() string   // User-friendly error message
	Details() string   // Detailed error information (optional)
}

// BaseError is a basic error structure that implements the AppError interface
type BaseError struct {
	kind      Kind
	errorCode string
	message   string
	details   string
}

// NewBaseError creates a new base error
func NewBaseError(kind Kind, errorCode, message, details string) *BaseError {
	return &BaseError{
		kind:      kind,
		errorCode: errorCode,
		message:   message,
		details:   details,
	}
}

// Error implements the error interface
func (e *BaseError) Error() string {
	return e.message
}

// WrapMessage wraps the error with additional context message
func (e *BaseError) WrapMessage(message string) error {
	return errors.Wrap(e, message)
}

// Kind returns the error category
func (e *BaseError) Kind() Kind {
	return e.kind
}

// ErrorCode returns the business error code
func (e *BaseError) ErrorCode() string {
	return e.errorCode
}

// Message returns the user-friendly error message
func (e *BaseError) Message() string {
	return e.message
}

// Details returns detailed error information
func (e *BaseError) Details() string {
	return e.details
}

// WithDetails returns a copy carrying details. The copy still matches the
// original sentinel under errors.Is.
func (e *BaseError) WithDetails(details string) *BaseError {
	return &BaseError{
		kind:      e.kind,
		errorCode: e.errorCode,
		message:   e.message,
		details:   details,
	}
}

// Is matches any BaseError with the same code, so WithDetails copies compare
// equal to their sentinel.
func (e *BaseError) Is(target error) bool {
	var other *BaseError
	if !errors.As(target, &other) {
		return false
	}

	return other.errorCode == e.errorCode
}

// KindOf returns the Kind of the first AppError in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var appErr AppError
	if errors.As(err, &appErr) {
		return appErr.Kind()
	}

	return KindInternal
}

// Predefined error types
var (
	// Registration
	ErrValidationFailed = NewBaseError(
		KindValidation,
		"VALIDATION_FAILED",
		"Input validation failed",
		"",
	)

	ErrInvalidUsername = NewBaseError(
		KindValidation,
		"INVALID_USERNAME",
		"Username must contain only letters and numbers",
		"",
	)

	ErrInvalidEmail = NewBaseError(
		KindValidation,
		"INVALID_EMAIL",
		"Email address is not valid",
		"",
	)

	ErrPasswordStrength = NewBaseError(
		KindValidation,
		"PASSWORD_STRENGTH",
		"Password does not meet length requirements",
		"",
	)

	ErrUsernameTaken = NewBaseError(
		KindConflict,
		"USERNAME_TAKEN",
		"Username already exists",
		"",
	)

	ErrEmailTaken = NewBaseError(
		KindConflict,
		"EMAIL_TAKEN",
		"This email is already registered",
		"",
	)

	// Authentication
	ErrInvalidCredentials = NewBaseError(
		KindAuthentication,
		"INVALID_CREDENTIALS",
		"Invalid email or password",
		"",
	)

	ErrInvalidSecondFactor = NewBaseError(
		KindAuthentication,
		"INVALID_SECOND_FACTOR",
		"Invalid 2FA code or backup code",
		"",
	)

	ErrInvalidToken = NewBaseError(
		KindAuthentication,
		"INVALID_TOKEN",
		"Invalid or expired session",
		"",
	)

	ErrAccountNotFound = NewBaseError(
		KindNotFound,
		"ACCOUNT_NOT_FOUND",
		"Account not found",
		"",
	)

	// Two-factor lifecycle
	ErrPasswordRequired = NewBaseError(
		KindValidation,
		"PASSWORD_REQUIRED",
		"Set a password to enable two-factor authentication",
		"",
	)

	ErrTwoFactorAlreadyEnabled = NewBaseError(
		KindValidation,
		"TWO_FACTOR_ALREADY_ENABLED",
		"Two-factor authentication is already enabled",
		"",
	)

	ErrTwoFactorNotSetUp = NewBaseError(
		KindValidation,
		"TWO_FACTOR_NOT_SET_UP",
		"Two-factor authentication is not set up",
		"",
	)

	ErrTwoFactorNotEnabled = NewBaseError(
		KindValidation,
		"TWO_FACTOR_NOT_ENABLED",
		"Two-factor authentication is not enabled",
		"",
	)

	ErrTwoFactorCodeRequired = NewBaseError(
		KindValidation,
		"TWO_FACTOR_CODE_REQUIRED",
		"Two-factor code is required",
		"",
	)

	ErrInvalidVerificationCode = NewBaseError(
		KindAuthentication,
		"INVALID_VERIFICATION_CODE",
		"Invalid verification code",
		"",
	)

	ErrTwoFactorSetupFailed = NewBaseError(
		KindInternal,
		"TWO_FACTOR_SETUP_FAILED",
		"Failed to set up two-factor authentication",
		"",
	)

	ErrTwoFactorVerifyFailed = NewBaseError(
		KindInternal,
		"TWO_FACTOR_VERIFY_FAILED",
		"Failed to verify two-factor authentication",
		"",
	)

	// Tournament results
	ErrSamePlayers = NewBaseError(
		KindValidation,
		"SAME_PLAYERS",
		"Winner and loser must be different players",
		"",
	)

	ErrPlayerNotFound = NewBaseError(
		KindNotFound,
		"PLAYER_NOT_FOUND",
		"Player not found",
		"",
	)

	// Matches
	ErrMatchNotFound = NewBaseError(
		KindNotFound,
		"MATCH_NOT_FOUND",
		"Match not found",
		"",
	)

	ErrInvalidMatchState = NewBaseError(
		KindConflict,
		"INVALID_MATCH_STATE",
		"Match is not in a state that allows this action",
		"",
	)

	ErrDuplicateAlias = NewBaseError(
		KindValidation,
		"DUPLICATE_ALIAS",
		"Players must use different aliases",
		"",
	)

	ErrInvalidWinner = NewBaseError(
		KindValidation,
		"INVALID_WINNER",
		"Winner must be one of the match players",
		"",
	)

	ErrInvalidScore = NewBaseError(
		KindValidation,
		"INVALID_SCORE",
		"Scores must not be negative",
		"",
	)

	// General errors
	ErrInternalError = NewBaseError(
		KindInternal,
		"INTERNAL_ERROR",
		"Internal server error",
		"",
	)

	ErrForbidden = NewBaseError(
		KindForbidden,
		"FORBIDDEN",
		"Access denied",
		"",
	)

	ErrConflict = NewBaseError(
		KindConflict,
		"CONFLICT",
		"Resource conflict",
		"",
	)
)

// DatabaseExecuteError represents a database execution error, implementing the AppError interface
type DatabaseExecuteError struct {
	err     error
	details string
}

// NewDatabaseExecuteError creates a database-related error
func NewDatabaseExecuteError(err error, details string) AppError {
	return &DatabaseExecuteError{
		err:     err,
		details: details,
	}
}

// Error implements the error interface
func (e *DatabaseExecuteError) Error() string {
	return errors.Wrap(e.err, "database execution failed").Error()
}

// Unwrap exposes the driver error.
func (e *DatabaseExecuteError) Unwrap() error {
	return e.err
}

// Kind is always internal; store failures never leak to callers.
func (e *DatabaseExecuteError) Kind() Kind {
	return KindInternal
}

// ErrorCode returns the business error code
func (e *DatabaseExecuteError) ErrorCode() string {
	return "DATABASE_EXECUTE_FAILED"
}

// Message returns the user-friendly error message
func (e *DatabaseExecuteError) Message() string {
	return "Database operation failed"
}

// Details returns detailed error information
func (e *DatabaseExecuteError) Details() string {
	return e.details
}
