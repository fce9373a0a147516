package postgres

import (
	"context"

	"arena/internal/domain/entity"
	domainerrors "arena/internal/domain/errors"
	"arena/internal/domain/repository"
	"arena/internal/errors"
	"arena/internal/infra/persistence/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// matchRepository implements repository.MatchRepository using GORM.
type matchRepository struct {
	db *gorm.DB
}

// NewMatchRepository returns a repository bound to db, which may be a transaction.
func NewMatchRepository(db *gorm.DB) repository.MatchRepository {
	return &matchRepository{db: db}
}

// Create inserts the match and its players in one statement batch. The
// match ID comes back from gen_random_uuid().
func (repo *matchRepository) Create(ctx context.Context, match *entity.Match) error {
	matchM := fromMatchDomain(match)
	matchM.ID = uuid.Nil

	if err := repo.db.WithContext(ctx).Create(matchM).Error; err != nil {
		return translateWriteError(err, "failed to create match")
	}

	match.ID = matchM.ID
	match.CreatedAt = matchM.CreatedAt
	match.UpdatedAt = matchM.UpdatedAt

	return nil
}

func (repo *matchRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Match, error) {
	return repo.first(repo.db.WithContext(ctx), id, "failed to find match")
}

// FindByIDForUpdate locks the match row. Player rows are only written by a
// holder of that lock, so they are not locked separately.
func (repo *matchRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Match, error) {
	query := repo.db.WithContext(ctx).Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})

	return repo.first(query, id, "failed to lock match")
}

func (repo *matchRepository) first(query *gorm.DB, id uuid.UUID, details string) (*entity.Match, error) {
	var matchM model.MatchModel
	err := query.
		Preload("Players", func(db *gorm.DB) *gorm.DB {
			return db.Order("seat")
		}).
		Where("id = ?", id).
		First(&matchM).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrMatchNotFound
		}

		return nil, domainerrors.NewDatabaseExecuteError(err, details)
	}

	return toMatchDomain(&matchM), nil
}

// Update writes the match columns and each player's score and result.
func (repo *matchRepository) Update(ctx context.Context, match *entity.Match) error {
	db := repo.db.WithContext(ctx)
	matchM := fromMatchDomain(match)

	result := db.Model(&model.MatchModel{}).
		Where("id = ?", match.ID).
		Updates(map[string]any{
			"status":       matchM.Status,
			"winner_alias": matchM.WinnerAlias,
			"started_at":   matchM.StartedAt,
			"finished_at":  matchM.FinishedAt,
		})
	if result.Error != nil {
		return translateWriteError(result.Error, "failed to update match")
	}
	if result.RowsAffected == 0 {
		return repository.ErrMatchNotFound
	}

	for _, player := range matchM.Players {
		err := db.Model(&model.MatchPlayerModel{}).
			Where("match_id = ? AND seat = ?", match.ID, player.Seat).
			Updates(map[string]any{"score": player.Score, "result": player.Result}).Error
		if err != nil {
			return translateWriteError(err, "failed to update match player")
		}
	}

	var updated model.MatchModel
	if err := db.Select("updated_at").Where("id = ?", match.ID).First(&updated).Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to read match")
	}
	match.UpdatedAt = updated.UpdatedAt

	return nil
}

func toMatchDomain(m *model.MatchModel) *entity.Match {
	match := &entity.Match{
		ID:          m.ID,
		CreatedBy:   m.CreatedBy,
		Status:      entity.MatchStatus(m.Status),
		WinnerAlias: derefString(m.WinnerAlias),
		StartedAt:   m.StartedAt,
		FinishedAt:  m.FinishedAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
		Players:     make([]entity.MatchPlayer, 0, len(m.Players)),
	}
	for _, p := range m.Players {
		match.Players = append(match.Players, entity.MatchPlayer{
			Seat:      p.Seat,
			Alias:     p.Alias,
			AccountID: p.AccountID,
			Score:     p.Score,
			Result:    entity.MatchResult(derefString(p.Result)),
		})
	}

	return match
}

func fromMatchDomain(match *entity.Match) *model.MatchModel {
	m := &model.MatchModel{
		ID:          match.ID,
		CreatedBy:   match.CreatedBy,
		Status:      string(match.Status),
		WinnerAlias: nullableString(match.WinnerAlias),
		StartedAt:   match.StartedAt,
		FinishedAt:  match.FinishedAt,
		Players:     make([]model.MatchPlayerModel, 0, len(match.Players)),
	}
	for _, p := range match.Players {
		m.Players = append(m.Players, model.MatchPlayerModel{
			Seat:      p.Seat,
			Alias:     p.Alias,
			AccountID: p.AccountID,
			Score:     p.Score,
			Result:    nullableString(string(p.Result)),
		})
	}

	return m
}
