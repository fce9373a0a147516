package impl

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	deliverycontext "arena/internal/delivery/context"
	"arena/internal/domain/entity"
	domainerrors "arena/internal/domain/errors"
	"arena/internal/domain/repository"
	"arena/internal/domain/service"
	"arena/internal/errors"
	"arena/internal/usecase"

	"go.uber.org/fx"
)

type statsService struct {
	txManager   repository.TransactionManager
	accountRepo repository.AccountRepository
	sanitizer   service.Sanitizer
	logger      *slog.Logger
	now         func() time.Time
}

// StatsServiceParams holds dependencies for StatsService, injected by Fx.
type StatsServiceParams struct {
	fx.In

	TxManager   repository.TransactionManager
	AccountRepo repository.AccountRepository
	Sanitizer   service.Sanitizer
	Logger      *slog.Logger
}

// NewStatsService is the constructor for statsService.
func NewStatsService(params StatsServiceParams) usecase.StatsUsecase {
	return &statsService{
		txManager:   params.TxManager,
		accountRepo: params.AccountRepo,
		sanitizer:   params.Sanitizer,
		logger:      params.Logger,
		now:         time.Now,
	}
}

// RecordLocalTournamentResult credits the winner and the loser in one
// transaction. Both players must exist; neither counter moves otherwise.
func (srv *statsService) RecordLocalTournamentResult(
	ctx context.Context,
	identity *entity.Identity,
	input *usecase.LocalResultInput,
) (*usecase.LocalResultOutput, error) {
	winner := strings.TrimSpace(input.Winner)
	loser := strings.TrimSpace(input.Loser)
	if winner == "" || loser == "" {
		return nil, domainerrors.ErrValidationFailed.WithDetails("winner and loser are required")
	}
	if winner == loser {
		return nil, domainerrors.ErrSamePlayers
	}

	tournament := strings.TrimSpace(input.TournamentName)
	if srv.sanitizer != nil {
		tournament = srv.sanitizer.Sanitize(tournament)
	}
	if tournament == "" {
		tournament = usecase.DefaultTournamentName
	}

	logger := deliverycontext.GetLoggerOrDefault(ctx, srv.logger)

	if err := srv.accountRepo.TouchLastSeen(ctx, identity.AccountID, srv.now()); err != nil {
		logger.Warn("Failed to track account activity",
			slog.String("account_id", identity.AccountID.String()),
			slog.Any("error", err),
		)
	}

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		repo := repoFactory.AccountRepo()

		winnerAccount, err := srv.findPlayer(ctx, repo, winner)
		if err != nil {
			return err
		}
		loserAccount, err := srv.findPlayer(ctx, repo, loser)
		if err != nil {
			return err
		}

		if err := repo.RecordResult(ctx, winnerAccount.ID, true); err != nil {
			return errors.Wrap(err, "failed to record win")
		}
		if err := repo.RecordResult(ctx, loserAccount.ID, false); err != nil {
			return errors.Wrap(err, "failed to record loss")
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Local tournament result recorded",
		slog.String("tournament", tournament),
		slog.String("winner", winner),
		slog.String("loser", loser),
	)

	return &usecase.LocalResultOutput{
		Message:      fmt.Sprintf("Tournament result recorded: %s beats %s", winner, loser),
		StatsUpdated: true,
	}, nil
}

func (srv *statsService) findPlayer(ctx context.Context, repo repository.AccountRepository, username string) (*entity.Account, error) {
	account, err := repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, domainerrors.ErrPlayerNotFound.WithDetails(username)
		}

		return nil, errors.Wrapf(err, "failed to find player %s", username)
	}

	return account, nil
}
