package entity

import (
	"time"

	"github.com/google/uuid"
)

// Identity is the authenticated caller, resolved from a verified session
// token and handed explicitly to every protected operation.
type Identity struct {
	AccountID uuid.UUID
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Session is a freshly issued session token.
type Session struct {
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TTL returns the lifetime of the session.
func (s *Session) TTL() time.Duration {
	return s.ExpiresAt.Sub(s.IssuedAt)
}

// SecondFactorMethod names the factor that satisfied a challenge.
type SecondFactorMethod string

const (
	SecondFactorNone       SecondFactorMethod = ""
	SecondFactorTOTP       SecondFactorMethod = "totp"
	SecondFactorBackupCode SecondFactorMethod = "backup_code"
)
