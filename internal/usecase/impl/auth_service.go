// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"log/slog"
	"strings"
	"sync"
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

// authService implements the AuthUsecase interface.
type authService struct {
	accountRepo  repository.AccountRepository
	hasher       service.PasswordHasher
	tokenService service.TokenService
	policy       *credentialPolicy
	challenge    *twoFactorChallenge
	events       *securityEvents
	metrics      service.AuthMetrics
	logger       *slog.Logger
	now          func() time.Time

	// dummyHash is checked against when the email is unknown, so both
	// failure paths cost one bcrypt comparison.
	dummyHashOnce sync.Once
	dummyHash     string
}

// AuthServiceParams holds dependencies for AuthService, injected by Fx.
type AuthServiceParams struct {
	fx.In

	TxManager    repository.TransactionManager
	AccountRepo  repository.AccountRepository
	Hasher       service.PasswordHasher
	TokenService service.TokenService
	TOTP         service.TOTPService
	BackupCodes  service.BackupCodeManager
	Sanitizer    service.Sanitizer
	Publisher    service.SecurityEventPublisher
	Metrics      service.AuthMetrics
	Config       *config.Config
	Logger       *slog.Logger
}

// NewAuthService is the constructor for authService.
func NewAuthService(params AuthServiceParams) usecase.AuthUsecase {
	return &authService{
		accountRepo:  params.AccountRepo,
		hasher:       params.Hasher,
		tokenService: params.TokenService,
		policy:       newCredentialPolicy(params.Config, params.Sanitizer),
		challenge: newTwoFactorChallenge(
			params.TxManager, params.TOTP, params.BackupCodes, params.Metrics, params.Config, params.Logger,
		),
		events:  &securityEvents{publisher: params.Publisher, logger: params.Logger, now: time.Now},
		metrics: params.Metrics,
		logger:  params.Logger,
		now:     time.Now,
	}
}

func newTwoFactorChallenge(
	txManager repository.TransactionManager,
	totp service.TOTPService,
	backupCodes service.BackupCodeManager,
	metrics service.AuthMetrics,
	cfg *config.Config,
	logger *slog.Logger,
) *twoFactorChallenge {
	replayProtection := true
	if cfg != nil && cfg.TOTP != nil {
		replayProtection = cfg.TOTP.ReplayProtection
	}

	return &twoFactorChallenge{
		txManager:        txManager,
		totp:             totp,
		backupCodes:      backupCodes,
		metrics:          metrics,
		replayProtection: replayProtection,
		logger:           logger,
		now:              time.Now,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *authService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Register creates an account with a local password.
func (srv *authService) Register(ctx context.Context, input *usecase.RegisterInput) (*entity.PublicProfile, error) {
	username := srv.policy.normalizeUsername(input.Username)
	email := srv.policy.normalizeEmail(input.Email)

	if err := srv.policy.validateRegistration(username, email, input.Password); err != nil {
		srv.metrics.RecordRegistration(service.ResultInvalid)

		return nil, err
	}

	existing, err := srv.accountRepo.FindByUsernameOrEmail(ctx, username, email)
	switch {
	case err == nil:
		srv.metrics.RecordRegistration(service.ResultConflict)
		if existing.Username == username {
			return nil, domainerrors.ErrUsernameTaken
		}

		return nil, domainerrors.ErrEmailTaken
	case !errors.Is(err, repository.ErrAccountNotFound):
		return nil, errors.Wrap(err, "failed to check existing account")
	}

	passwordHash, err := srv.hasher.Hash(input.Password)
	if err != nil {
		srv.log(ctx).Error("Failed to hash password during registration", slog.Any("error", err))

		return nil, errors.Wrap(domainerrors.ErrInternalError, err.Error())
	}

	account := &entity.Account{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
	}
	if err := srv.accountRepo.Create(ctx, account); err != nil {
		if domainerrors.KindOf(err) == domainerrors.KindConflict {
			srv.metrics.RecordRegistration(service.ResultConflict)

			return nil, err
		}

		return nil, errors.Wrap(err, "failed to create account")
	}

	srv.metrics.RecordRegistration(service.ResultSuccess)
	srv.log(ctx).Info("Account registered", slog.String("account_id", account.ID.String()))
	srv.events.emit(ctx, service.EventAccountRegistered, account, nil)

	return account.Profile(), nil
}

// Login checks the password and, for accounts with active 2FA, the second
// factor. Unknown email, missing password and wrong password all fail with
// the same ErrInvalidCredentials.
func (srv *authService) Login(ctx context.Context, input *usecase.LoginInput) (*usecase.LoginOutput, error) {
	email := srv.policy.normalizeEmail(input.Email)

	account, err := srv.accountRepo.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrAccountNotFound) {
			return nil, errors.Wrap(err, "failed to find account")
		}
		srv.hasher.Check(input.Password, srv.getDummyHash())
		srv.metrics.RecordLogin(service.ResultFailure)

		return nil, domainerrors.ErrInvalidCredentials
	}

	if !account.HasPassword() || !srv.hasher.Check(input.Password, account.PasswordHash) {
		srv.metrics.RecordLogin(service.ResultFailure)
		srv.log(ctx).Info("Login rejected", slog.String("account_id", account.ID.String()))

		return nil, domainerrors.ErrInvalidCredentials
	}

	output := &usecase.LoginOutput{}

	if account.TwoFactorActive() {
		if strings.TrimSpace(input.TwoFactorCode) == "" {
			srv.metrics.RecordLogin(service.ResultPending)

			return &usecase.LoginOutput{SecondFactorRequired: true}, nil
		}

		result, err := srv.challenge.verify(ctx, &challengeRequest{
			account:         account,
			code:            input.TwoFactorCode,
			allowBackupCode: true,
		})
		if err != nil {
			srv.metrics.RecordLogin(service.ResultFailure)

			return nil, err
		}

		account = result.account
		output.SecondFactorMethod = result.method
		if result.method == entity.SecondFactorBackupCode {
			output.RemainingBackupCodes = result.remainingBackupCodes
			srv.events.emit(ctx, service.EventBackupCodeConsumed, account, backupCodeAttributes(result))
		}
	}

	session, err := srv.tokenService.Issue(account.ID)
	if err != nil {
		srv.log(ctx).Error("Failed to issue session token", slog.Any("error", err))

		return nil, errors.Wrap(domainerrors.ErrInternalError, err.Error())
	}

	srv.metrics.RecordLogin(service.ResultSuccess)
	srv.metrics.RecordSessionIssued(service.SessionReasonLogin)
	srv.events.emit(ctx, service.EventLoginSucceeded, account, map[string]string{
		"second_factor": string(output.SecondFactorMethod),
	})

	output.Profile = account.Profile()
	output.Session = session

	return output, nil
}

// Logout is stateless: the transport clears the cookie and the token simply expires.
func (srv *authService) Logout(ctx context.Context, identity *entity.Identity) error {
	srv.log(ctx).Debug("Account logged out", slog.String("account_id", identity.AccountID.String()))

	return nil
}

// Refresh issues a new token for an existing account and records activity.
// A deleted account gets ErrAccountNotFound and no token.
func (srv *authService) Refresh(ctx context.Context, identity *entity.Identity) (*usecase.SessionOutput, error) {
	account, err := srv.accountRepo.FindByID(ctx, identity.AccountID)
	if err != nil {
		return nil, accountError(err)
	}

	now := srv.now()
	if err := srv.accountRepo.TouchLastSeen(ctx, account.ID, now); err != nil {
		return nil, accountError(err)
	}
	account.LastSeen = &now

	session, err := srv.tokenService.Issue(account.ID)
	if err != nil {
		srv.log(ctx).Error("Failed to issue session token", slog.Any("error", err))

		return nil, errors.Wrap(domainerrors.ErrInternalError, err.Error())
	}

	srv.metrics.RecordSessionIssued(service.SessionReasonRefresh)

	return &usecase.SessionOutput{Profile: account.Profile(), Session: session}, nil
}

// CurrentAccount returns the public profile of the caller.
func (srv *authService) CurrentAccount(ctx context.Context, identity *entity.Identity) (*entity.PublicProfile, error) {
	account, err := srv.accountRepo.FindByID(ctx, identity.AccountID)
	if err != nil {
		return nil, accountError(err)
	}

	return account.Profile(), nil
}

// Authenticate verifies the token signature and expiry without a store lookup.
func (srv *authService) Authenticate(_ context.Context, token string) (*entity.Identity, error) {
	if token == "" {
		return nil, domainerrors.ErrInvalidToken
	}

	return srv.tokenService.Verify(token)
}

func (srv *authService) getDummyHash() string {
	srv.dummyHashOnce.Do(func() {
		hash, err := srv.hasher.Hash("arena-dummy-password")
		if err == nil {
			srv.dummyHash = hash
		}
	})

	return srv.dummyHash
}
