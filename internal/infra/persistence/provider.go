// Package persistence selects the Credential Store Adapter named by storage.driver.
package persistence

import (
	"log/slog"

	"arena/config"
	"arena/internal/domain/repository"
	"arena/internal/errors"
	"arena/internal/infra/persistence/memory"
	"arena/internal/infra/persistence/postgres"

	"go.uber.org/fx"
)

// Params holds dependencies for the store, injected by Fx
type Params struct {
	fx.In

	Lc     fx.Lifecycle
	Config *config.Config
	Logger *slog.Logger
}

// Result exposes the repositories of the selected driver.
type Result struct {
	fx.Out

	Accounts  repository.AccountRepository
	Matches   repository.MatchRepository
	TxManager repository.TransactionManager
}

// New builds the repositories and transaction manager.
func New(params Params) (Result, error) {
	switch params.Config.Storage.Driver {
	case config.StorageDriverMemory, "":
		params.Logger.Warn("Using in-memory account store, data is lost on restart")
		store := memory.NewStore()

		return Result{
			Accounts:  memory.NewAccountRepository(store),
			Matches:   memory.NewMatchRepository(store),
			TxManager: memory.NewTransactionManager(store),
		}, nil

	case config.StorageDriverPostgres:
		db, err := postgres.New(postgres.Params{
			Lifecycle: params.Lc,
			Config:    params.Config,
			Logger:    params.Logger,
		})
		if err != nil {
			return Result{}, err
		}

		return Result{
			Accounts:  postgres.NewAccountRepository(db),
			Matches:   postgres.NewMatchRepository(db),
			TxManager: postgres.NewTransactionManager(db),
		}, nil

	default:
		return Result{}, errors.Errorf("unknown storage driver: %s", params.Config.Storage.Driver)
	}
}

// Module provides the persistence FX module
//
//nolint:gochecknoglobals
var Module = fx.Options(
	fx.Provide(New),
)
