package impl

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	deliverycontext "arena/internal/delivery/context"
	"arena/internal/domain/entity"
	domainerrors "arena/internal/domain/errors"
	"arena/internal/domain/repository"
	"arena/internal/domain/service"
	"arena/internal/errors"
	"arena/internal/usecase"

	"github.com/google/uuid"
	"go.uber.org/fx"
)

const maxAliasLength = 32

type matchService struct {
	txManager repository.TransactionManager
	matchRepo repository.MatchRepository
	sanitizer service.Sanitizer
	logger    *slog.Logger
	now       func() time.Time
}

// MatchServiceParams holds dependencies for MatchService, injected by Fx.
type MatchServiceParams struct {
	fx.In

	TxManager repository.TransactionManager
	MatchRepo repository.MatchRepository
	Sanitizer service.Sanitizer
	Logger    *slog.Logger
}

// NewMatchService is the constructor for matchService.
func NewMatchService(params MatchServiceParams) usecase.MatchUsecase {
	return &matchService{
		txManager: params.TxManager,
		matchRepo: params.MatchRepo,
		sanitizer: params.Sanitizer,
		logger:    params.Logger,
		now:       time.Now,
	}
}

// CreateMatch stores a PENDING match. The store assigns the ID.
func (srv *matchService) CreateMatch(
	ctx context.Context,
	identity *entity.Identity,
	input *usecase.CreateMatchInput,
) (*entity.Match, error) {
	aliases := [2]string{srv.normalizeAlias(input.Player1Alias), srv.normalizeAlias(input.Player2Alias)}
	for _, alias := range aliases {
		if alias == "" || utf8.RuneCountInString(alias) > maxAliasLength {
			return nil, domainerrors.ErrValidationFailed.WithDetails("player aliases must be 1 to 32 characters")
		}
	}
	if aliases[0] == aliases[1] {
		return nil, domainerrors.ErrDuplicateAlias
	}

	match := &entity.Match{
		CreatedBy: identity.AccountID,
		Status:    entity.MatchPending,
		Players:   make([]entity.MatchPlayer, 0, len(aliases)),
	}

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		accounts := repoFactory.AccountRepo()
		for i, alias := range aliases {
			player := entity.MatchPlayer{Seat: i + 1, Alias: alias}

			account, err := accounts.FindByUsername(ctx, alias)
			switch {
			case err == nil:
				player.AccountID = &account.ID
			case !errors.Is(err, repository.ErrAccountNotFound):
				return errors.Wrapf(err, "failed to resolve alias %s", alias)
			}

			match.Players = append(match.Players, player)
		}

		return repoFactory.MatchRepo().Create(ctx, match)
	})
	if err != nil {
		return nil, err
	}

	deliverycontext.GetLoggerOrDefault(ctx, srv.logger).Info("Match created",
		slog.String("match_id", match.ID.String()),
		slog.String("player1", aliases[0]),
		slog.String("player2", aliases[1]),
	)

	return match, nil
}

func (srv *matchService) GetMatch(ctx context.Context, matchID uuid.UUID) (*entity.Match, error) {
	match, err := srv.matchRepo.FindByID(ctx, matchID)
	if err != nil {
		return nil, matchError(err)
	}

	return match, nil
}

// StartMatch moves a PENDING match to ONGOING. Only its creator may start it.
func (srv *matchService) StartMatch(ctx context.Context, identity *entity.Identity, matchID uuid.UUID) (*entity.Match, error) {
	var started *entity.Match
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		match, err := srv.lockOwnedMatch(ctx, repoFactory.MatchRepo(), identity, matchID)
		if err != nil {
			return err
		}
		if !match.Start(srv.now()) {
			return domainerrors.ErrInvalidMatchState.WithDetails("match is " + string(match.Status))
		}
		if err := repoFactory.MatchRepo().Update(ctx, match); err != nil {
			return errors.Wrap(err, "failed to start match")
		}
		started = match

		return nil
	})
	if err != nil {
		return nil, err
	}

	deliverycontext.GetLoggerOrDefault(ctx, srv.logger).Info("Match started",
		slog.String("match_id", matchID.String()),
	)

	return started, nil
}

// CompleteMatch finishes an ONGOING match. Seats linked to an account get
// RecordResult in the same transaction; guest seats only keep their score.
func (srv *matchService) CompleteMatch(
	ctx context.Context,
	identity *entity.Identity,
	input *usecase.CompleteMatchInput,
) (*entity.Match, error) {
	if input.Player1Score < 0 || input.Player2Score < 0 {
		return nil, domainerrors.ErrInvalidScore
	}
	winner := srv.normalizeAlias(input.WinnerAlias)

	var finished *entity.Match
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		match, err := srv.lockOwnedMatch(ctx, repoFactory.MatchRepo(), identity, input.MatchID)
		if err != nil {
			return err
		}
		if match.Status != entity.MatchOngoing {
			return domainerrors.ErrInvalidMatchState.WithDetails("match is " + string(match.Status))
		}
		if !match.Finish(winner, [2]int{input.Player1Score, input.Player2Score}, srv.now()) {
			return domainerrors.ErrInvalidWinner.WithDetails(winner)
		}
		if err := repoFactory.MatchRepo().Update(ctx, match); err != nil {
			return errors.Wrap(err, "failed to complete match")
		}

		accounts := repoFactory.AccountRepo()
		for _, player := range match.Players {
			if player.AccountID == nil {
				continue
			}
			err := accounts.RecordResult(ctx, *player.AccountID, player.Result == entity.MatchWin)
			switch {
			case errors.Is(err, repository.ErrAccountNotFound):
				// Deleted since the match was created; the match still finishes.
			case err != nil:
				return errors.Wrapf(err, "failed to record result for %s", player.Alias)
			}
		}
		finished = match

		return nil
	})
	if err != nil {
		return nil, err
	}

	deliverycontext.GetLoggerOrDefault(ctx, srv.logger).Info("Match completed",
		slog.String("match_id", input.MatchID.String()),
		slog.String("winner", winner),
		slog.Int("player1_score", input.Player1Score),
		slog.Int("player2_score", input.Player2Score),
	)

	return finished, nil
}

func (srv *matchService) lockOwnedMatch(
	ctx context.Context,
	repo repository.MatchRepository,
	identity *entity.Identity,
	matchID uuid.UUID,
) (*entity.Match, error) {
	match, err := repo.FindByIDForUpdate(ctx, matchID)
	if err != nil {
		return nil, matchError(err)
	}
	if match.CreatedBy != identity.AccountID {
		return nil, domainerrors.ErrForbidden.WithDetails("only the match creator can change it")
	}

	return match, nil
}

func (srv *matchService) normalizeAlias(alias string) string {
	if srv.sanitizer != nil {
		alias = srv.sanitizer.Sanitize(alias)
	}

	return strings.TrimSpace(alias)
}

func matchError(err error) error {
	if errors.Is(err, repository.ErrMatchNotFound) {
		return domainerrors.ErrMatchNotFound
	}

	return err
}
