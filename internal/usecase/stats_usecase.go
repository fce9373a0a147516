package usecase

import (
	"context"

	"arena/internal/domain/entity"
)

// DefaultTournamentName is used when a local result names no tournament.
const DefaultTournamentName = "Local Tournament"

// LocalResultInput reports the outcome of a locally played tournament match.
type LocalResultInput struct {
	Winner         string
	Loser          string
	TournamentName string
}

// LocalResultOutput confirms the recorded result.
type LocalResultOutput struct {
	Message      string
	StatsUpdated bool
}

// StatsUsecase records game results on player accounts.
type StatsUsecase interface {
	RecordLocalTournamentResult(ctx context.Context, identity *entity.Identity, input *LocalResultInput) (*LocalResultOutput, error)
}
