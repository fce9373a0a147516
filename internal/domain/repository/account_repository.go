// Package repository defines the persistence contracts of the domain.
// Implementations live under internal/infra/persistence.
package repository

import (
	"context"
	"time"

	"arena/internal/domain/entity"
	"arena/internal/errors"

	"github.com/google/uuid"
)

// ErrAccountNotFound is returned by every lookup that matches no row.
var ErrAccountNotFound = errors.New("account not found")

// AccountRepository is the Credential Store Adapter. Uniqueness violations on
// username or email surface as domain conflict errors.
type AccountRepository interface {
	// FindByID retrieves a single account by its store-assigned ID.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Account, error)

	// FindByIDForUpdate is FindByID holding a row lock until the surrounding
	// transaction ends. Only meaningful inside TransactionManager.Execute.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Account, error)

	// FindByEmail matches the already-normalized email.
	FindByEmail(ctx context.Context, email string) (*entity.Account, error)

	// FindByUsername matches the username exactly.
	FindByUsername(ctx context.Context, username string) (*entity.Account, error)

	// FindByUsernameOrEmail returns the first account holding either value.
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*entity.Account, error)

	// Create persists a new account and fills in ID, CreatedAt and UpdatedAt.
	Create(ctx context.Context, account *entity.Account) error

	// Update applies the non-nil fields of update to the account.
	Update(ctx context.Context, id uuid.UUID, update entity.AccountUpdate) error

	// TouchLastSeen records account activity.
	TouchLastSeen(ctx context.Context, id uuid.UUID, at time.Time) error

	// RecordResult atomically increments games played and either wins or losses.
	RecordResult(ctx context.Context, id uuid.UUID, won bool) error
}
