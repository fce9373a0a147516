package service

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"arena/internal/domain/entity"
)

// Claims is the payload of a session token.
type Claims struct {
	AccountID uuid.UUID `json:"-"`
	jwt.RegisteredClaims
}

// TokenService mints and verifies stateless session tokens.
type TokenService interface {
	// Issue signs a new token for the account with the configured lifetime.
	Issue(accountID uuid.UUID) (*entity.Session, error)

	// Verify checks signature and expiry and returns the identity it asserts.
	Verify(token string) (*entity.Identity, error)
}
