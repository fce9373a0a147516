// Package entity holds the core domain types of the authentication service.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// Account is the identity record of a player.
//
// TwoFactorEnabled is true only when TwoFactorSecret is set and a code
// generated from it has been verified at least once.
type Account struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string // empty when the account has no local password
	AvatarURL    string

	TwoFactorEnabled     bool
	TwoFactorSecret      string // base32, empty when 2FA was never set up
	BackupCodes          BackupCodeSet
	TwoFactorLastCounter int64 // last accepted TOTP time step

	GamesPlayed int
	Wins        int
	Losses      int

	LastSeen  *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasPassword reports whether the account can authenticate with a local password.
func (a *Account) HasPassword() bool {
	return a.PasswordHash != ""
}

// TwoFactorActive reports whether login must pass a second factor.
// A pending setup (secret present, not yet verified) does not count.
func (a *Account) TwoFactorActive() bool {
	return a.TwoFactorEnabled && a.TwoFactorSecret != ""
}

// TwoFactorPending reports whether a secret was provisioned but never verified.
func (a *Account) TwoFactorPending() bool {
	return !a.TwoFactorEnabled && a.TwoFactorSecret != ""
}

// Profile returns the public projection of the account.
func (a *Account) Profile() *PublicProfile {
	return &PublicProfile{
		ID:               a.ID,
		Username:         a.Username,
		Email:            a.Email,
		AvatarURL:        a.AvatarURL,
		TwoFactorEnabled: a.TwoFactorEnabled,
		GamesPlayed:      a.GamesPlayed,
		Wins:             a.Wins,
		Losses:           a.Losses,
		LastSeen:         a.LastSeen,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

// PublicProfile is the only account shape that leaves the service.
// It never carries the password hash, the TOTP secret or backup code hashes.
type PublicProfile struct {
	ID               uuid.UUID  `json:"id"`
	Username         string     `json:"username"`
	Email            string     `json:"email"`
	AvatarURL        string     `json:"avatar_url,omitempty"`
	TwoFactorEnabled bool       `json:"two_factor_enabled"`
	GamesPlayed      int        `json:"games_played"`
	Wins             int        `json:"wins"`
	Losses           int        `json:"losses"`
	LastSeen         *time.Time `json:"last_seen,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// AccountUpdate lists the fields a partial update may touch. Nil fields are
// left unchanged. An empty TwoFactorSecret clears the stored secret.
type AccountUpdate struct {
	PasswordHash         *string
	TwoFactorEnabled     *bool
	TwoFactorSecret      *string
	BackupCodes          *BackupCodeSet
	TwoFactorLastCounter *int64
	LastSeen             *time.Time
}

// IsEmpty reports whether the update would change nothing.
func (u AccountUpdate) IsEmpty() bool {
	return u.PasswordHash == nil &&
		u.TwoFactorEnabled == nil &&
		u.TwoFactorSecret == nil &&
		u.BackupCodes == nil &&
		u.TwoFactorLastCounter == nil &&
		u.LastSeen == nil
}

// Apply copies the non-nil fields onto a.
func (u AccountUpdate) Apply(a *Account) {
	if u.PasswordHash != nil {
		a.PasswordHash = *u.PasswordHash
	}
	if u.TwoFactorEnabled != nil {
		a.TwoFactorEnabled = *u.TwoFactorEnabled
	}
	if u.TwoFactorSecret != nil {
		a.TwoFactorSecret = *u.TwoFactorSecret
	}
	if u.BackupCodes != nil {
		a.BackupCodes = u.BackupCodes.Clone()
	}
	if u.TwoFactorLastCounter != nil {
		a.TwoFactorLastCounter = *u.TwoFactorLastCounter
	}
	if u.LastSeen != nil {
		seen := *u.LastSeen
		a.LastSeen = &seen
	}
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}

	cloned := *a
	cloned.BackupCodes = a.BackupCodes.Clone()
	if a.LastSeen != nil {
		seen := *a.LastSeen
		cloned.LastSeen = &seen
	}

	return &cloned
}
