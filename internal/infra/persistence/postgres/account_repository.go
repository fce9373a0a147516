// Package postgres contains the concrete implementation of the persistence layer using GORM and PostgreSQL.
package postgres

import (
	"context"
	"time"

	"arena/internal/domain/entity"
	domainerrors "arena/internal/domain/errors"
	"arena/internal/domain/repository"
	"arena/internal/errors"
	"arena/internal/infra/persistence/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// accountRepository implements repository.AccountRepository using GORM.
type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository returns a repository bound to db, which may be a transaction.
func NewAccountRepository(db *gorm.DB) repository.AccountRepository {
	return &accountRepository{db: db}
}

func (repo *accountRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Account, error) {
	return repo.first(repo.db.WithContext(ctx).Where("id = ?", id), "failed to find account by id")
}

// FindByIDForUpdate takes a row lock (SELECT ... FOR UPDATE) held until the transaction ends.
func (repo *accountRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Account, error) {
	query := repo.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Where("id = ?", id)

	return repo.first(query, "failed to lock account")
}

func (repo *accountRepository) FindByEmail(ctx context.Context, email string) (*entity.Account, error) {
	return repo.first(repo.db.WithContext(ctx).Where("email = ?", email), "failed to find account by email")
}

func (repo *accountRepository) FindByUsername(ctx context.Context, username string) (*entity.Account, error) {
	return repo.first(repo.db.WithContext(ctx).Where("username = ?", username), "failed to find account by username")
}

func (repo *accountRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (*entity.Account, error) {
	query := repo.db.WithContext(ctx).
		Where("username = ?", username).
		Or("email = ?", email).
		Order("created_at")

	return repo.first(query, "failed to find account by username or email")
}

func (repo *accountRepository) first(query *gorm.DB, details string) (*entity.Account, error) {
	var accountM model.AccountModel
	if err := query.First(&accountM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrAccountNotFound
		}

		return nil, domainerrors.NewDatabaseExecuteError(err, details)
	}

	return toAccountDomain(&accountM), nil
}

// Create inserts the account. The ID and timestamps come back from the database.
func (repo *accountRepository) Create(ctx context.Context, account *entity.Account) error {
	accountM := fromAccountDomain(account)
	accountM.ID = uuid.Nil

	if err := repo.db.WithContext(ctx).Create(accountM).Error; err != nil {
		return translateWriteError(err, "failed to create account")
	}

	account.ID = accountM.ID
	account.CreatedAt = accountM.CreatedAt
	account.UpdatedAt = accountM.UpdatedAt

	return nil
}

// Update writes only the columns named by update.
func (repo *accountRepository) Update(ctx context.Context, id uuid.UUID, update entity.AccountUpdate) error {
	if update.IsEmpty() {
		_, err := repo.FindByID(ctx, id)

		return err
	}

	return repo.updateColumns(ctx, id, updateColumns(update), "failed to update account")
}

func (repo *accountRepository) TouchLastSeen(ctx context.Context, id uuid.UUID, at time.Time) error {
	return repo.updateColumns(ctx, id, map[string]any{"last_seen": at}, "failed to touch last seen")
}

// RecordResult increments the counters in SQL so concurrent results never lose an update.
func (repo *accountRepository) RecordResult(ctx context.Context, id uuid.UUID, won bool) error {
	columns := map[string]any{"games_played": gorm.Expr("games_played + 1")}
	if won {
		columns["wins"] = gorm.Expr("wins + 1")
	} else {
		columns["losses"] = gorm.Expr("losses + 1")
	}

	return repo.updateColumns(ctx, id, columns, "failed to record result")
}

func (repo *accountRepository) updateColumns(ctx context.Context, id uuid.UUID, columns map[string]any, details string) error {
	result := repo.db.WithContext(ctx).
		Model(&model.AccountModel{}).
		Where("id = ?", id).
		Updates(columns)
	if result.Error != nil {
		return translateWriteError(result.Error, details)
	}
	if result.RowsAffected == 0 {
		return repository.ErrAccountNotFound
	}

	return nil
}

func updateColumns(update entity.AccountUpdate) map[string]any {
	columns := make(map[string]any, 6)
	if update.PasswordHash != nil {
		columns["password_hash"] = nullableString(*update.PasswordHash)
	}
	if update.TwoFactorEnabled != nil {
		columns["two_factor_enabled"] = *update.TwoFactorEnabled
	}
	if update.TwoFactorSecret != nil {
		columns["two_factor_secret"] = nullableString(*update.TwoFactorSecret)
	}
	if update.BackupCodes != nil {
		columns["backup_codes"] = nullableString(update.BackupCodes.Encode())
	}
	if update.TwoFactorLastCounter != nil {
		columns["two_factor_last_counter"] = *update.TwoFactorLastCounter
	}
	if update.LastSeen != nil {
		columns["last_seen"] = *update.LastSeen
	}

	return columns
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}

func toAccountDomain(m *model.AccountModel) *entity.Account {
	return &entity.Account{
		ID:                   m.ID,
		Username:             m.Username,
		Email:                m.Email,
		PasswordHash:         derefString(m.PasswordHash),
		AvatarURL:            m.AvatarURL,
		TwoFactorEnabled:     m.TwoFactorEnabled,
		TwoFactorSecret:      derefString(m.TwoFactorSecret),
		BackupCodes:          entity.DecodeBackupCodeSet(derefString(m.BackupCodes)),
		TwoFactorLastCounter: m.TwoFactorLastCounter,
		GamesPlayed:          m.GamesPlayed,
		Wins:                 m.Wins,
		Losses:               m.Losses,
		LastSeen:             m.LastSeen,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}

func fromAccountDomain(a *entity.Account) *model.AccountModel {
	return &model.AccountModel{
		ID:                   a.ID,
		Username:             a.Username,
		Email:                a.Email,
		PasswordHash:         nullableString(a.PasswordHash),
		AvatarURL:            a.AvatarURL,
		TwoFactorEnabled:     a.TwoFactorEnabled,
		TwoFactorSecret:      nullableString(a.TwoFactorSecret),
		BackupCodes:          nullableString(a.BackupCodes.Encode()),
		TwoFactorLastCounter: a.TwoFactorLastCounter,
		GamesPlayed:          a.GamesPlayed,
		Wins:                 a.Wins,
		Losses:               a.Losses,
		LastSeen:             a.LastSeen,
	}
}
