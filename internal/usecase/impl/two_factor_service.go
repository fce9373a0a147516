package impl

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"arena/config"
	deliverycontext "arena/internal/delivery/context"
	"arena/internal/domain/entity"
	domainerrors "arena/internal/domain/errors"
	"arena/internal/domain/repository"
	"arena/internal/domain/service"
	"arena/internal/errors"
	"arena/internal/usecase"

	"go.uber.org/fx"
)

// twoFactorService implements the TwoFactorUsecase interface.
type twoFactorService struct {
	txManager   repository.TransactionManager
	accountRepo repository.AccountRepository
	totp        service.TOTPService
	backupCodes service.BackupCodeManager
	qrcode      service.QRCodeService
	challenge   *twoFactorChallenge
	events      *securityEvents
	logger      *slog.Logger
}

// TwoFactorServiceParams holds dependencies for TwoFactorService, injected by Fx.
type TwoFactorServiceParams struct {
	fx.In

	TxManager   repository.TransactionManager
	AccountRepo repository.AccountRepository
	TOTP        service.TOTPService
	BackupCodes service.BackupCodeManager
	QRCode      service.QRCodeService
	Publisher   service.SecurityEventPublisher
	Metrics     service.AuthMetrics
	Config      *config.Config
	Logger      *slog.Logger
}

// NewTwoFactorService is the constructor for twoFactorService.
func NewTwoFactorService(params TwoFactorServiceParams) usecase.TwoFactorUsecase {
	return &twoFactorService{
		txManager:   params.TxManager,
		accountRepo: params.AccountRepo,
		totp:        params.TOTP,
		backupCodes: params.BackupCodes,
		qrcode:      params.QRCode,
		challenge: newTwoFactorChallenge(
			params.TxManager, params.TOTP, params.BackupCodes, params.Metrics, params.Config, params.Logger,
		),
		events: &securityEvents{publisher: params.Publisher, logger: params.Logger, now: time.Now},
		logger: params.Logger,
	}
}

func (srv *twoFactorService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// internalFailure hides unexpected errors behind a generic 2FA failure.
func (srv *twoFactorService) internalFailure(ctx context.Context, err error, generic *domainerrors.BaseError, msg string) error {
	if domainerrors.KindOf(err) != domainerrors.KindInternal {
		return err
	}

	srv.log(ctx).Error(msg, slog.Any("error", err))

	return generic
}

// Setup provisions a fresh secret and backup codes. The account stays in the
// pending state until Verify succeeds, so login is unaffected.
func (srv *twoFactorService) Setup(ctx context.Context, identity *entity.Identity) (*usecase.TwoFactorSetupOutput, error) {
	account, err := srv.accountRepo.FindByID(ctx, identity.AccountID)
	if err != nil {
		return nil, srv.internalFailure(ctx, accountError(err), domainerrors.ErrTwoFactorSetupFailed, "Failed to load account for 2FA setup")
	}
	if !account.HasPassword() {
		return nil, domainerrors.ErrPasswordRequired
	}
	if account.TwoFactorEnabled {
		return nil, domainerrors.ErrTwoFactorAlreadyEnabled
	}

	key, err := srv.totp.GenerateSecret(account.Email)
	if err != nil {
		return nil, srv.internalFailure(ctx, err, domainerrors.ErrTwoFactorSetupFailed, "Failed to generate TOTP secret")
	}

	qrCode, err := srv.qrcode.GenerateDataURL(key.ProvisioningURI)
	if err != nil {
		return nil, srv.internalFailure(ctx, err, domainerrors.ErrTwoFactorSetupFailed, "Failed to render provisioning QR code")
	}

	plainCodes, hashedCodes, err := srv.backupCodes.GenerateBatch()
	if err != nil {
		return nil, srv.internalFailure(ctx, err, domainerrors.ErrTwoFactorSetupFailed, "Failed to generate backup codes")
	}

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		repo := repoFactory.AccountRepo()

		locked, err := repo.FindByIDForUpdate(ctx, account.ID)
		if err != nil {
			return accountError(err)
		}
		if locked.TwoFactorEnabled {
			return domainerrors.ErrTwoFactorAlreadyEnabled
		}

		enabled := false
		counter := int64(0)

		return repo.Update(ctx, locked.ID, entity.AccountUpdate{
			TwoFactorEnabled:     &enabled,
			TwoFactorSecret:      &key.Secret,
			BackupCodes:          &hashedCodes,
			TwoFactorLastCounter: &counter,
		})
	})
	if err != nil {
		return nil, srv.internalFailure(ctx, accountError(err), domainerrors.ErrTwoFactorSetupFailed, "Failed to store 2FA setup")
	}

	srv.log(ctx).Info("Two-factor setup started", slog.String("account_id", account.ID.String()))

	return &usecase.TwoFactorSetupOutput{
		Secret:          key.Secret,
		ProvisioningURI: key.ProvisioningURI,
		QRCodeDataURL:   qrCode,
		BackupCodes:     plainCodes,
	}, nil
}

// Verify activates a pending setup. Backup codes are not accepted here.
func (srv *twoFactorService) Verify(ctx context.Context, identity *entity.Identity, code string) (*entity.PublicProfile, error) {
	if strings.TrimSpace(code) == "" {
		return nil, domainerrors.ErrTwoFactorCodeRequired
	}

	account, err := srv.accountRepo.FindByID(ctx, identity.AccountID)
	if err != nil {
		return nil, srv.internalFailure(ctx, accountError(err), domainerrors.ErrTwoFactorVerifyFailed, "Failed to load account for 2FA verify")
	}
	if !account.HasPassword() {
		return nil, domainerrors.ErrPasswordRequired
	}
	if account.TwoFactorSecret == "" {
		return nil, domainerrors.ErrTwoFactorNotSetUp
	}
	if account.TwoFactorEnabled {
		return nil, domainerrors.ErrTwoFactorAlreadyEnabled
	}

	result, err := srv.challenge.verify(ctx, &challengeRequest{
		account: account,
		code:    code,
		commit: func(ctx context.Context, repo repository.AccountRepository, locked *entity.Account) error {
			if locked.TwoFactorEnabled {
				return domainerrors.ErrTwoFactorAlreadyEnabled
			}
			enabled := true

			return repo.Update(ctx, locked.ID, entity.AccountUpdate{TwoFactorEnabled: &enabled})
		},
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrInvalidSecondFactor) {
			return nil, domainerrors.ErrInvalidVerificationCode
		}

		return nil, srv.internalFailure(ctx, accountError(err), domainerrors.ErrTwoFactorVerifyFailed, "Failed to activate 2FA")
	}

	srv.log(ctx).Info("Two-factor authentication enabled", slog.String("account_id", account.ID.String()))
	srv.events.emit(ctx, service.EventTwoFactorEnabled, result.account, nil)

	return result.account.Profile(), nil
}

// Disable clears the secret and every backup code after a valid second factor.
func (srv *twoFactorService) Disable(ctx context.Context, identity *entity.Identity, code string) (*entity.PublicProfile, error) {
	account, err := srv.activeAccount(ctx, identity)
	if err != nil {
		return nil, err
	}

	result, err := srv.challenge.verify(ctx, &challengeRequest{
		account:         account,
		code:            code,
		allowBackupCode: true,
		commit: func(ctx context.Context, repo repository.AccountRepository, locked *entity.Account) error {
			enabled := false
			secret := ""
			codes := entity.BackupCodeSet{}
			counter := int64(0)

			return repo.Update(ctx, locked.ID, entity.AccountUpdate{
				TwoFactorEnabled:     &enabled,
				TwoFactorSecret:      &secret,
				BackupCodes:          &codes,
				TwoFactorLastCounter: &counter,
			})
		},
	})
	if err != nil {
		return nil, srv.internalFailure(ctx, accountError(err), domainerrors.ErrTwoFactorVerifyFailed, "Failed to disable 2FA")
	}

	srv.log(ctx).Info("Two-factor authentication disabled", slog.String("account_id", account.ID.String()))
	srv.events.emit(ctx, service.EventTwoFactorDisabled, result.account, map[string]string{
		"second_factor": string(result.method),
	})

	return result.account.Profile(), nil
}

// RegenerateBackupCodes replaces the whole set. Only a TOTP code is accepted,
// so a leaked backup code cannot mint new ones.
func (srv *twoFactorService) RegenerateBackupCodes(ctx context.Context, identity *entity.Identity, code string) ([]string, error) {
	account, err := srv.activeAccount(ctx, identity)
	if err != nil {
		return nil, err
	}

	plainCodes, hashedCodes, err := srv.backupCodes.GenerateBatch()
	if err != nil {
		return nil, srv.internalFailure(ctx, err, domainerrors.ErrTwoFactorSetupFailed, "Failed to generate backup codes")
	}

	result, err := srv.challenge.verify(ctx, &challengeRequest{
		account: account,
		code:    code,
		commit: func(ctx context.Context, repo repository.AccountRepository, locked *entity.Account) error {
			return repo.Update(ctx, locked.ID, entity.AccountUpdate{BackupCodes: &hashedCodes})
		},
	})
	if err != nil {
		return nil, srv.internalFailure(ctx, accountError(err), domainerrors.ErrTwoFactorVerifyFailed, "Failed to regenerate backup codes")
	}

	srv.events.emit(ctx, service.EventBackupCodesRegenerated, result.account, map[string]string{
		"count": strconv.Itoa(len(plainCodes)),
	})

	return plainCodes, nil
}

func (srv *twoFactorService) activeAccount(ctx context.Context, identity *entity.Identity) (*entity.Account, error) {
	account, err := srv.accountRepo.FindByID(ctx, identity.AccountID)
	if err != nil {
		return nil, srv.internalFailure(ctx, accountError(err), domainerrors.ErrTwoFactorVerifyFailed, "Failed to load account")
	}
	if !account.TwoFactorActive() {
		return nil, domainerrors.ErrTwoFactorNotEnabled
	}

	return account, nil
}
