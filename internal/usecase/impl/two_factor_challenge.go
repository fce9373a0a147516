package impl

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	deliverycontext "arena/internal/delivery/context"
	"arena/internal/domain/entity"
	domainerrors "arena/internal/domain/errors"
	"arena/internal/domain/repository"
	"arena/internal/domain/service"
	"arena/internal/errors"
)

// challengeRequest describes one second-factor check.
type challengeRequest struct {
	account         *entity.Account
	code            string
	allowBackupCode bool

	// commit runs in the same transaction once the factor is accepted.
	commit func(ctx context.Context, repo repository.AccountRepository, locked *entity.Account) error
}

// challengeResult reports which factor was accepted and the account as committed.
type challengeResult struct {
	method               entity.SecondFactorMethod
	remainingBackupCodes int
	account              *entity.Account
}

// twoFactorChallenge answers "is this second factor valid" and makes the
// answer single use. TOTP is tried first; a backup code is only consumed when
// TOTP did not accept the code. Every rejection is ErrInvalidSecondFactor.
//
// The expensive checks (HMAC, bcrypt) run before the transaction against the
// caller's snapshot. The transaction then re-reads the locked row and only
// commits if the accepted factor is still unused: the TOTP step must be newer
// than the last accepted one, and the backup code hash must still be in the set.
type twoFactorChallenge struct {
	txManager        repository.TransactionManager
	totp             service.TOTPService
	backupCodes      service.BackupCodeManager
	metrics          service.AuthMetrics
	replayProtection bool
	logger           *slog.Logger
	now              func() time.Time
}

func (c *twoFactorChallenge) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, c.logger)
}

func (c *twoFactorChallenge) verify(ctx context.Context, req *challengeRequest) (*challengeResult, error) {
	code := strings.TrimSpace(req.code)
	if code == "" {
		return nil, domainerrors.ErrTwoFactorCodeRequired
	}

	if ok, counter := c.totp.Verify(req.account.TwoFactorSecret, code, c.now()); ok {
		result, err := c.commitTOTP(ctx, req, counter)
		if err == nil {
			c.metrics.RecordSecondFactor(string(entity.SecondFactorTOTP), service.ResultSuccess)

			return result, nil
		}
		if !errors.Is(err, domainerrors.ErrInvalidSecondFactor) {
			return nil, err
		}
		c.log(ctx).Warn("Rejected replayed TOTP code", slog.String("account_id", req.account.ID.String()))
	}

	if req.allowBackupCode {
		if hash, ok := c.backupCodes.Match(req.account.BackupCodes, code); ok {
			result, err := c.commitBackupCode(ctx, req, hash)
			if err == nil {
				c.metrics.RecordSecondFactor(string(entity.SecondFactorBackupCode), service.ResultSuccess)

				return result, nil
			}
			if !errors.Is(err, domainerrors.ErrInvalidSecondFactor) {
				return nil, err
			}
			c.log(ctx).Warn("Backup code was consumed concurrently", slog.String("account_id", req.account.ID.String()))
		}
	}

	c.metrics.RecordSecondFactor(string(entity.SecondFactorNone), service.ResultFailure)

	return nil, domainerrors.ErrInvalidSecondFactor
}

func (c *twoFactorChallenge) commitTOTP(ctx context.Context, req *challengeRequest, counter int64) (*challengeResult, error) {
	return c.commitFactor(ctx, req, entity.SecondFactorTOTP, func(locked *entity.Account) (entity.AccountUpdate, error) {
		// A rotated secret invalidates whatever was checked outside the transaction.
		if locked.TwoFactorSecret != req.account.TwoFactorSecret {
			return entity.AccountUpdate{}, domainerrors.ErrInvalidSecondFactor
		}
		if !c.replayProtection {
			return entity.AccountUpdate{}, nil
		}
		if counter <= locked.TwoFactorLastCounter {
			return entity.AccountUpdate{}, domainerrors.ErrInvalidSecondFactor
		}

		return entity.AccountUpdate{TwoFactorLastCounter: &counter}, nil
	})
}

func (c *twoFactorChallenge) commitBackupCode(ctx context.Context, req *challengeRequest, hash string) (*challengeResult, error) {
	return c.commitFactor(ctx, req, entity.SecondFactorBackupCode, func(locked *entity.Account) (entity.AccountUpdate, error) {
		remaining, removed := locked.BackupCodes.Remove(hash)
		if !removed {
			return entity.AccountUpdate{}, domainerrors.ErrInvalidSecondFactor
		}

		return entity.AccountUpdate{BackupCodes: &remaining}, nil
	})
}

func (c *twoFactorChallenge) commitFactor(
	ctx context.Context,
	req *challengeRequest,
	method entity.SecondFactorMethod,
	consume func(locked *entity.Account) (entity.AccountUpdate, error),
) (*challengeResult, error) {
	result := &challengeResult{method: method}

	err := c.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		repo := repoFactory.AccountRepo()

		locked, err := repo.FindByIDForUpdate(ctx, req.account.ID)
		if err != nil {
			return accountError(err)
		}

		update, err := consume(locked)
		if err != nil {
			return err
		}
		if !update.IsEmpty() {
			if err := repo.Update(ctx, locked.ID, update); err != nil {
				return errors.Wrap(accountError(err), "failed to consume second factor")
			}
			update.Apply(locked)
		}

		if req.commit != nil {
			if err := req.commit(ctx, repo, locked); err != nil {
				return err
			}
		}

		committed, err := repo.FindByID(ctx, locked.ID)
		if err != nil {
			return accountError(err)
		}
		result.account = committed
		result.remainingBackupCodes = len(committed.BackupCodes)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// backupCodeAttributes describes a consumption for the security event.
func backupCodeAttributes(result *challengeResult) map[string]string {
	return map[string]string{"remaining": strconv.Itoa(result.remainingBackupCodes)}
}
