package model

import (
	"time"

	"github.com/google/uuid"
)

// MatchPlayerSeatConstraint keeps one player per seat in a match.
const MatchPlayerSeatConstraint = "match_players_match_seat_key"

// MatchModel mirrors the 'matches' table. PostgreSQL generates the UUID.
type MatchModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedBy   uuid.UUID `gorm:"type:uuid;not null;index"`
	Status      string    `gorm:"type:varchar(16);not null;default:'PENDING'"`
	WinnerAlias *string   `gorm:"type:varchar(32)"`
	StartedAt   *time.Time
	FinishedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Players []MatchPlayerModel `gorm:"foreignKey:MatchID;constraint:OnDelete:CASCADE"`
}

// TableName explicitly sets the table name for GORM.
func (MatchModel) TableName() string {
	return "matches"
}

// MatchPlayerModel mirrors 'match_players'. AccountID is null for guests.
type MatchPlayerModel struct {
	ID        uint       `gorm:"primaryKey"`
	MatchID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:match_players_match_seat_key"`
	Seat      int        `gorm:"not null;uniqueIndex:match_players_match_seat_key"`
	Alias     string     `gorm:"type:varchar(32);not null"`
	AccountID *uuid.UUID `gorm:"type:uuid;index"`
	Score     *int
	Result    *string `gorm:"type:varchar(8)"`
}

// TableName explicitly sets the table name for GORM.
func (MatchPlayerModel) TableName() string {
	return "match_players"
}
