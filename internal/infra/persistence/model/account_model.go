// Package model holds the gorm persistence models.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Unique index names, matched against pgconn.PgError.ConstraintName.
const (
	AccountUsernameConstraint = "accounts_username_key"
	AccountEmailConstraint    = "accounts_email_key"
)

// AccountModel mirrors the 'accounts' table. PostgreSQL generates the UUID.
type AccountModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Username     string    `gorm:"type:varchar(32);not null;uniqueIndex:accounts_username_key"`
	Email        string    `gorm:"type:varchar(255);not null;uniqueIndex:accounts_email_key"`
	PasswordHash *string   `gorm:"type:varchar(100)"`
	AvatarURL    string    `gorm:"type:text;not null;default:''"`

	TwoFactorEnabled     bool    `gorm:"not null;default:false"`
	TwoFactorSecret      *string `gorm:"type:varchar(64)"`
	BackupCodes          *string `gorm:"type:text"` // JSON array of bcrypt hashes
	TwoFactorLastCounter int64   `gorm:"not null;default:0"`

	GamesPlayed int `gorm:"not null;default:0"`
	Wins        int `gorm:"not null;default:0"`
	Losses      int `gorm:"not null;default:0"`

	LastSeen  *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName explicitly sets the table name for GORM.
func (AccountModel) TableName() string {
	return "accounts"
}
