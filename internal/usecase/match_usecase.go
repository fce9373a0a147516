package usecase

import (
	"context"

	"arena/internal/domain/entity"

	"github.com/google/uuid"
)

// CreateMatchInput names the two players by alias. An alias that is a
// registered username links that seat to the account.
type CreateMatchInput struct {
	Player1Alias string
	Player2Alias string
}

// CompleteMatchInput reports the final score of an ongoing match.
type CompleteMatchInput struct {
	MatchID      uuid.UUID
	WinnerAlias  string
	Player1Score int
	Player2Score int
}

// MatchUsecase drives a match from PENDING through ONGOING to FINISHED.
type MatchUsecase interface {
	CreateMatch(ctx context.Context, identity *entity.Identity, input *CreateMatchInput) (*entity.Match, error)
	GetMatch(ctx context.Context, matchID uuid.UUID) (*entity.Match, error)
	StartMatch(ctx context.Context, identity *entity.Identity, matchID uuid.UUID) (*entity.Match, error)

	// CompleteMatch finishes the match and credits linked accounts with a
	// win or loss in the same transaction.
	CompleteMatch(ctx context.Context, identity *entity.Identity, input *CompleteMatchInput) (*entity.Match, error)
}
