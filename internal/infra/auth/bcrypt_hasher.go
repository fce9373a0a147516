// Package auth provides the cryptographic services of the authentication core.
package auth

import (
	"golang.org/x/crypto/bcrypt"

	"arena/config"
	"arena/internal/domain/service"
)

const defaultBcryptCost = 12

// bcryptHasher implements service.PasswordHasher. The digest embeds its own
// cost, so raising the cost needs no data migration.
type bcryptHasher struct {
	cost int
}

// NewBcryptHasher returns the password hasher configured by auth.bcryptCost.
func NewBcryptHasher(cfg *config.Config) service.PasswordHasher {
	cost := defaultBcryptCost
	if cfg != nil && cfg.Auth != nil && cfg.Auth.BcryptCost != 0 {
		cost = cfg.Auth.BcryptCost
	}

	return NewBcryptHasherWithCost(cost)
}

// NewBcryptHasherWithCost returns a hasher with an explicit cost, clamped to
// the range bcrypt accepts.
func NewBcryptHasherWithCost(cost int) service.PasswordHasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}

	return &bcryptHasher{cost: cost}
}

// Hash generates a salted bcrypt digest.
func (h *bcryptHasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}

	return string(digest), nil
}

// Check compares plaintext with a bcrypt digest. Malformed digests never match.
func (h *bcryptHasher) Check(plaintext, digest string) bool {
	if digest == "" {
		return false
	}

	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
