package memory

import (
	"context"

	"arena/internal/domain/repository"
)

type transactionManager struct {
	store *Store
}

type repositoryFactory struct {
	accounts repository.AccountRepository
	matches  repository.MatchRepository
}

func (f *repositoryFactory) AccountRepo() repository.AccountRepository {
	return f.accounts
}

func (f *repositoryFactory) MatchRepo() repository.MatchRepository {
	return f.matches
}

// NewTransactionManager returns a TransactionManager over store. fn must only
// use the repositories handed to it; the live repository would deadlock.
func NewTransactionManager(store *Store) repository.TransactionManager {
	return &transactionManager{store: store}
}

// Execute runs fn against a staged copy and publishes it only if fn succeeds.
// A panic discards the staged copy and releases the lock.
func (tm *transactionManager) Execute(ctx context.Context, fn func(repoFactory repository.RepositoryFactory) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tm.store.mu.Lock()
	defer tm.store.mu.Unlock()

	staged := tm.store.snapshot()
	stagedMatches := tm.store.snapshotMatches()
	factory := &repositoryFactory{
		accounts: &accountRepository{store: tm.store, staged: staged},
		matches:  &matchRepository{store: tm.store, staged: stagedMatches},
	}

	if err := fn(factory); err != nil {
		return err
	}

	tm.store.accounts = staged
	tm.store.matches = stagedMatches

	return nil
}
