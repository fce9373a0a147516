package repository

import (
	"context"

	"arena/internal/domain/entity"
	"arena/internal/errors"

	"github.com/google/uuid"
)

// ErrMatchNotFound is returned when no match has the given ID.
var ErrMatchNotFound = errors.New("match not found")

// MatchRepository persists matches and their players.
type MatchRepository interface {
	// Create stores a new match with its players and fills in ID,
	// CreatedAt and UpdatedAt. Any ID already set is ignored.
	Create(ctx context.Context, match *entity.Match) error

	FindByID(ctx context.Context, id uuid.UUID) (*entity.Match, error)

	// FindByIDForUpdate locks the match row until the transaction ends.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Match, error)

	// Update writes status, winner, timestamps and every player's score and result.
	Update(ctx context.Context, match *entity.Match) error
}
