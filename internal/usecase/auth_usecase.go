// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"

	"arena/internal/domain/entity"
)

// --- Input DTOs ---

// RegisterInput defines the data required to create an account.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// LoginInput defines the data required to log in. TwoFactorCode is either a
// TOTP code or a backup code, and may be empty on the first attempt.
type LoginInput struct {
	Email         string
	Password      string
	TwoFactorCode string
}

// --- Output DTOs ---

// LoginOutput is the result of a login attempt that passed the first factor.
// When SecondFactorRequired is set, no session was issued and the caller must
// retry with a second factor.
type LoginOutput struct {
	SecondFactorRequired bool
	Profile              *entity.PublicProfile
	Session              *entity.Session

	// SecondFactorMethod names the factor that completed the login, if any.
	SecondFactorMethod entity.SecondFactorMethod
	// RemainingBackupCodes is set when a backup code was consumed.
	RemainingBackupCodes int
}

// SessionOutput carries a freshly issued session.
type SessionOutput struct {
	Profile *entity.PublicProfile
	Session *entity.Session
}

// AuthUsecase defines the authentication protocol.
// This is the contract that the delivery layer (e.g., API handlers) will depend on.
type AuthUsecase interface {
	Register(ctx context.Context, input *RegisterInput) (*entity.PublicProfile, error)
	Login(ctx context.Context, input *LoginInput) (*LoginOutput, error)
	Logout(ctx context.Context, identity *entity.Identity) error
	Refresh(ctx context.Context, identity *entity.Identity) (*SessionOutput, error)
	CurrentAccount(ctx context.Context, identity *entity.Identity) (*entity.PublicProfile, error)

	// Authenticate verifies a session token and returns the identity it asserts.
	Authenticate(ctx context.Context, token string) (*entity.Identity, error)
}
