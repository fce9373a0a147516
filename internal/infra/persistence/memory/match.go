package memory

import (
	"context"

	"arena/internal/domain/entity"
	domainerrors "arena/internal/domain/errors"
	"arena/internal/domain/repository"

	"github.com/google/uuid"
)

func (s *Store) snapshotMatches() map[uuid.UUID]*entity.Match {
	staged := make(map[uuid.UUID]*entity.Match, len(s.matches))
	for id, match := range s.matches {
		staged[id] = match.Clone()
	}

	return staged
}

// matchRepository follows the same live/staged split as accountRepository.
type matchRepository struct {
	store  *Store
	staged map[uuid.UUID]*entity.Match
}

// NewMatchRepository returns a repository over the live match table.
func NewMatchRepository(store *Store) repository.MatchRepository {
	return &matchRepository{store: store}
}

func (r *matchRepository) with(ctx context.Context, fn func(matches map[uuid.UUID]*entity.Match) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if r.staged != nil {
		return fn(r.staged)
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	return fn(r.store.matches)
}

// Create assigns a UUIDv7 so IDs sort by creation time.
func (r *matchRepository) Create(ctx context.Context, match *entity.Match) error {
	return r.with(ctx, func(matches map[uuid.UUID]*entity.Match) error {
		id, err := uuid.NewV7()
		if err != nil {
			return domainerrors.NewDatabaseExecuteError(err, "failed to generate match id")
		}

		now := r.store.now()
		match.ID = id
		match.CreatedAt = now
		match.UpdatedAt = now
		matches[id] = match.Clone()

		return nil
	})
}

func (r *matchRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Match, error) {
	var found *entity.Match
	err := r.with(ctx, func(matches map[uuid.UUID]*entity.Match) error {
		match, ok := matches[id]
		if !ok {
			return repository.ErrMatchNotFound
		}
		found = match.Clone()

		return nil
	})
	if err != nil {
		return nil, err
	}

	return found, nil
}

// FindByIDForUpdate needs no row lock: inside a transaction the store lock is held.
func (r *matchRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Match, error) {
	return r.FindByID(ctx, id)
}

func (r *matchRepository) Update(ctx context.Context, match *entity.Match) error {
	return r.with(ctx, func(matches map[uuid.UUID]*entity.Match) error {
		existing, ok := matches[match.ID]
		if !ok {
			return repository.ErrMatchNotFound
		}

		updated := match.Clone()
		updated.CreatedBy = existing.CreatedBy
		updated.CreatedAt = existing.CreatedAt
		updated.UpdatedAt = r.store.now()
		match.UpdatedAt = updated.UpdatedAt
		matches[match.ID] = updated

		return nil
	})
}
