package impl

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"arena/config"
	"arena/internal/domain/entity"
	"arena/internal/domain/repository"
	"arena/internal/domain/service"
	"arena/internal/infra/auth"
	"arena/internal/infra/metrics"
	"arena/internal/infra/persistence/memory"
	"arena/internal/infra/qrcode"
	"arena/internal/infra/sanitize"
	"arena/internal/usecase"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "correct horse battery"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

// Advance moves the clock by d.
func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, event *service.SecurityEvent) error {
	args := m.Called(ctx, event)

	return args.Error(0)
}

func (m *mockPublisher) Close() error {
	return nil
}

func eventOfType(eventType string) any {
	return mock.MatchedBy(func(event *service.SecurityEvent) bool {
		return event.Type == eventType
	})
}

type fixture struct {
	store     *memory.Store
	repo      repository.AccountRepository
	matches   repository.MatchRepository
	txManager repository.TransactionManager
	clock     *testClock
	metrics   *metrics.AuthMetrics
	publisher *mockPublisher

	auth      *authService
	twoFactor *twoFactorService
	stats     *statsService
	match     *matchService
}

func newTestConfig() *config.Config {
	return &config.Config{
		Auth: &config.AuthConfig{
			BcryptCost:        bcrypt.MinCost,
			BackupCodeCost:    bcrypt.MinCost,
			PasswordMinLength: 8,
			PasswordMaxLength: 72,
			BackupCodeCount:   10,
			BackupCodeLength:  10,
		},
		TOTP: &config.TOTPConfig{
			Issuer:           "Arena",
			Period:           30,
			Digits:           6,
			Skew:             2,
			ReplayProtection: true,
		},
	}
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newFixture wires the use cases against the in-memory store and the real
// crypto services, with a fixed clock.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := newTestConfig()
	logger := newTestLogger()
	store := memory.NewStore()
	repo := memory.NewAccountRepository(store)
	txManager := memory.NewTransactionManager(store)
	clock := &testClock{now: time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)}

	authMetrics := metrics.NewAuthMetrics(prometheus.NewRegistry())
	publisher := &mockPublisher{}
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil).Maybe()

	cfg.SecretKey.Session = "test-session-secret"
	tokens, err := auth.NewJWTService(cfg)
	require.NoError(t, err)

	hasher := auth.NewBcryptHasherWithCost(bcrypt.MinCost)
	totp := auth.NewTOTPService(cfg)
	backupCodes := auth.NewBackupCodeManager(cfg)
	sanitizer := sanitize.NewHTMLSanitizer()

	authSrv := NewAuthService(AuthServiceParams{
		TxManager:    txManager,
		AccountRepo:  repo,
		Hasher:       hasher,
		TokenService: tokens,
		TOTP:         totp,
		BackupCodes:  backupCodes,
		Sanitizer:    sanitizer,
		Publisher:    publisher,
		Metrics:      metrics.NewAuthRecorder(authMetrics),
		Config:       cfg,
		Logger:       logger,
	}).(*authService)
	authSrv.now = clock.Now
	authSrv.challenge.now = clock.Now

	twoFactorSrv := NewTwoFactorService(TwoFactorServiceParams{
		TxManager:   txManager,
		AccountRepo: repo,
		TOTP:        totp,
		BackupCodes: backupCodes,
		QRCode:      qrcode.NewQRCodeService(128, "medium"),
		Publisher:   publisher,
		Metrics:     metrics.NewAuthRecorder(authMetrics),
		Config:      cfg,
		Logger:      logger,
	}).(*twoFactorService)
	twoFactorSrv.challenge.now = clock.Now

	statsSrv := NewStatsService(StatsServiceParams{
		TxManager:   txManager,
		AccountRepo: repo,
		Sanitizer:   sanitizer,
		Logger:      logger,
	}).(*statsService)
	statsSrv.now = clock.Now

	matchRepo := memory.NewMatchRepository(store)
	matchSrv := NewMatchService(MatchServiceParams{
		TxManager: txManager,
		MatchRepo: matchRepo,
		Sanitizer: sanitizer,
		Logger:    logger,
	}).(*matchService)
	matchSrv.now = clock.Now

	return &fixture{
		store:     store,
		repo:      repo,
		matches:   matchRepo,
		txManager: txManager,
		clock:     clock,
		metrics:   authMetrics,
		publisher: publisher,
		auth:      authSrv,
		twoFactor: twoFactorSrv,
		stats:     statsSrv,
		match:     matchSrv,
	}
}

func (f *fixture) register(t *testing.T, username, email string) *entity.PublicProfile {
	t.Helper()

	profile, err := f.auth.Register(context.Background(), &usecase.RegisterInput{
		Username: username,
		Email:    email,
		Password: testPassword,
	})
	require.NoError(t, err)

	return profile
}

// totpCode returns the code valid at the fixture's current time.
func (f *fixture) totpCode(t *testing.T, secret string) string {
	t.Helper()

	code, err := auth.TOTPCode(secret, f.clock.Now(), 30, 6)
	require.NoError(t, err)

	return code
}

// enableTwoFactor runs setup and verification and returns the plaintext
// secret and backup codes. The clock is moved past the accepted step.
func (f *fixture) enableTwoFactor(t *testing.T, identity entity.Identity) (string, []string) {
	t.Helper()
	ctx := context.Background()

	setup, err := f.twoFactor.Setup(ctx, &identity)
	require.NoError(t, err)

	_, err = f.twoFactor.Verify(ctx, &identity, f.totpCode(t, setup.Secret))
	require.NoError(t, err)
	f.clock.Advance(30 * time.Second)

	return setup.Secret, setup.BackupCodes
}
