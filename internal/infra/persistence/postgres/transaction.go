package postgres

import (
	"context"

	"arena/internal/domain/repository"
	"arena/internal/errors"

	"gorm.io/gorm"
)

type gormTransactionManager struct {
	db *gorm.DB
}

// NewTransactionManager runs units of work inside gorm transactions.
func NewTransactionManager(db *gorm.DB) repository.TransactionManager {
	return &gormTransactionManager{db: db}
}

type txRepositories struct {
	tx *gorm.DB
}

func (r txRepositories) AccountRepo() repository.AccountRepository {
	return NewAccountRepository(r.tx)
}

func (r txRepositories) MatchRepo() repository.MatchRepository {
	return NewMatchRepository(r.tx)
}

// Execute commits when fn returns nil. gorm rolls back on error or panic; a
// panic is re-raised after the rollback.
func (tm *gormTransactionManager) Execute(ctx context.Context, fn func(repository.RepositoryFactory) error) error {
	var fnErr error
	err := tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fnErr = fn(txRepositories{tx: tx})

		return fnErr
	})
	switch {
	case err == nil:
		return nil
	case fnErr != nil && errors.Is(err, fnErr):
		// fn's own error is returned unwrapped.
		return fnErr
	default:
		return errors.Wrap(err, "transaction failed")
	}
}
