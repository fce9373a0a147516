package postgres

import (
	domainerrors "arena/internal/domain/errors"
	"arena/internal/errors"
	"arena/internal/infra/persistence/model"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// translateWriteError maps constraint violations to domain errors and wraps
// everything else as a database failure.
func translateWriteError(err error, details string) error {
	if conflict := uniqueViolation(err); conflict != nil {
		return conflict
	}
	if isNotNullConstraintViolation(err) {
		return domainerrors.ErrValidationFailed.WithDetails("missing required account field")
	}

	return domainerrors.NewDatabaseExecuteError(err, details)
}

func uniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		switch pgErr.ConstraintName {
		case model.AccountUsernameConstraint:
			return domainerrors.ErrUsernameTaken
		case model.AccountEmailConstraint:
			return domainerrors.ErrEmailTaken
		default:
			return domainerrors.ErrConflict
		}
	}

	// TranslateError mode hides the driver error behind gorm's sentinel
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domainerrors.ErrConflict
	}

	return nil
}

func isNotNullConstraintViolation(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.NotNullViolation
}
