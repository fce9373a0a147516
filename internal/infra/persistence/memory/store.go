// Package memory is an in-process Credential Store Adapter. All operations are
// serialised by one mutex; a transaction holds it for its whole duration and
// works on a staged copy that replaces the live data only on success.
package memory

import (
	"context"
	"sync"
	"time"

	"arena/internal/domain/entity"
	domainerrors "arena/internal/domain/errors"
	"arena/internal/domain/repository"

	"github.com/google/uuid"
)

// Store owns the account and match tables.
type Store struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*entity.Account
	matches  map[uuid.UUID]*entity.Match
	now      func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		accounts: make(map[uuid.UUID]*entity.Account),
		matches:  make(map[uuid.UUID]*entity.Match),
		now:      time.Now,
	}
}

// Delete removes an account. Used by administrative tooling and tests.
func (s *Store) Delete(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.accounts, id)
}

func (s *Store) snapshot() map[uuid.UUID]*entity.Account {
	staged := make(map[uuid.UUID]*entity.Account, len(s.accounts))
	for id, account := range s.accounts {
		staged[id] = account.Clone()
	}

	return staged
}

// accountRepository reads and writes either the live table (taking the lock
// per call) or a transaction's staged table (lock already held).
type accountRepository struct {
	store  *Store
	staged map[uuid.UUID]*entity.Account
}

// NewAccountRepository returns a repository over the live table.
func NewAccountRepository(store *Store) repository.AccountRepository {
	return &accountRepository{store: store}
}

func (r *accountRepository) with(ctx context.Context, fn func(accounts map[uuid.UUID]*entity.Account) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if r.staged != nil {
		return fn(r.staged)
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	return fn(r.store.accounts)
}

func (r *accountRepository) findOne(ctx context.Context, match func(*entity.Account) bool) (*entity.Account, error) {
	var found *entity.Account
	err := r.with(ctx, func(accounts map[uuid.UUID]*entity.Account) error {
		for _, account := range accounts {
			if !match(account) {
				continue
			}
			// Oldest wins, like ORDER BY created_at on the SQL store.
			if found == nil || account.CreatedAt.Before(found.CreatedAt) {
				found = account
			}
		}
		if found == nil {
			return repository.ErrAccountNotFound
		}
		found = found.Clone()

		return nil
	})
	if err != nil {
		return nil, err
	}

	return found, nil
}

func (r *accountRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Account, error) {
	var found *entity.Account
	err := r.with(ctx, func(accounts map[uuid.UUID]*entity.Account) error {
		account, ok := accounts[id]
		if !ok {
			return repository.ErrAccountNotFound
		}
		found = account.Clone()

		return nil
	})
	if err != nil {
		return nil, err
	}

	return found, nil
}

// FindByIDForUpdate needs no row lock: inside a transaction the store lock is held.
func (r *accountRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Account, error) {
	return r.FindByID(ctx, id)
}

func (r *accountRepository) FindByEmail(ctx context.Context, email string) (*entity.Account, error) {
	return r.findOne(ctx, func(a *entity.Account) bool { return a.Email == email })
}

func (r *accountRepository) FindByUsername(ctx context.Context, username string) (*entity.Account, error) {
	return r.findOne(ctx, func(a *entity.Account) bool { return a.Username == username })
}

func (r *accountRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (*entity.Account, error) {
	return r.findOne(ctx, func(a *entity.Account) bool { return a.Username == username || a.Email == email })
}

// Create enforces the same unique keys as the SQL schema and assigns the ID.
func (r *accountRepository) Create(ctx context.Context, account *entity.Account) error {
	return r.with(ctx, func(accounts map[uuid.UUID]*entity.Account) error {
		var emailTaken bool
		for _, existing := range accounts {
			if existing.Username == account.Username {
				return domainerrors.ErrUsernameTaken
			}
			emailTaken = emailTaken || existing.Email == account.Email
		}
		if emailTaken {
			return domainerrors.ErrEmailTaken
		}

		id, err := uuid.NewV7()
		if err != nil {
			return domainerrors.NewDatabaseExecuteError(err, "failed to generate account id")
		}

		now := r.store.now()
		account.ID = id
		account.CreatedAt = now
		account.UpdatedAt = now
		accounts[id] = account.Clone()

		return nil
	})
}

func (r *accountRepository) Update(ctx context.Context, id uuid.UUID, update entity.AccountUpdate) error {
	return r.mutate(ctx, id, func(account *entity.Account) {
		update.Apply(account)
	})
}

func (r *accountRepository) TouchLastSeen(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.mutate(ctx, id, func(account *entity.Account) {
		seen := at
		account.LastSeen = &seen
	})
}

func (r *accountRepository) RecordResult(ctx context.Context, id uuid.UUID, won bool) error {
	return r.mutate(ctx, id, func(account *entity.Account) {
		account.GamesPlayed++
		if won {
			account.Wins++
		} else {
			account.Losses++
		}
	})
}

func (r *accountRepository) mutate(ctx context.Context, id uuid.UUID, fn func(*entity.Account)) error {
	return r.with(ctx, func(accounts map[uuid.UUID]*entity.Account) error {
		account, ok := accounts[id]
		if !ok {
			return repository.ErrAccountNotFound
		}

		fn(account)
		account.UpdatedAt = r.store.now()

		return nil
	})
}
