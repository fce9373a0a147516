package repository

import "context"

// TransactionManager runs a unit of work atomically. If fn returns an error
// nothing it wrote is kept; otherwise all writes are committed together.
type TransactionManager interface {
	Execute(ctx context.Context, fn func(txRepoFactory RepositoryFactory) error) error
}

// RepositoryFactory hands out repositories bound to one transaction.
type RepositoryFactory interface {
	// AccountRepo returns an AccountRepository bound to the current transaction.
	AccountRepo() AccountRepository

	// MatchRepo returns a MatchRepository bound to the current transaction.
	MatchRepo() MatchRepository
}
