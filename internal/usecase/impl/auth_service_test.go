package impl

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"arena/internal/domain/entity"
	domainerrors "arena/internal/domain/errors"
	"arena/internal/domain/service"
	"arena/internal/errors"
	"arena/internal/infra/auth"
	"arena/internal/usecase"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func identityOf(profile *entity.PublicProfile) entity.Identity {
	return entity.Identity{AccountID: profile.ID}
}

func TestAuthService_Register(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	profile, err := f.auth.Register(ctx, &usecase.RegisterInput{
		Username: " alice ",
		Email:    "Alice@Example.COM",
		Password: testPassword,
	})
	require.NoError(t, err)

	assert.Equal(t, "alice", profile.Username)
	assert.Equal(t, "alice@example.com", profile.Email)
	assert.False(t, profile.TwoFactorEnabled)
	assert.NotEqual(t, uuid.Nil, profile.ID)

	stored, err := f.repo.FindByID(ctx, profile.ID)
	require.NoError(t, err)
	assert.NotEqual(t, testPassword, stored.PasswordHash)
	assert.True(t, strings.HasPrefix(stored.PasswordHash, "$2"))

	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.Registrations.WithLabelValues(service.ResultSuccess)), 0)
	f.publisher.AssertCalled(t, "Publish", mock.Anything, eventOfType(service.EventAccountRegistered))
}

func TestAuthService_Register_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name     string
		input    usecase.RegisterInput
		expected error
	}{
		{
			name:     "username too short",
			input:    usecase.RegisterInput{Username: "al", Email: "al@example.com", Password: testPassword},
			expected: domainerrors.ErrInvalidUsername,
		},
		{
			name:     "username with punctuation",
			input:    usecase.RegisterInput{Username: "al_ice", Email: "al@example.com", Password: testPassword},
			expected: domainerrors.ErrInvalidUsername,
		},
		{
			name:     "username reduced to nothing by markup",
			input:    usecase.RegisterInput{Username: "<script>x</script>", Email: "al@example.com", Password: testPassword},
			expected: domainerrors.ErrInvalidUsername,
		},
		{
			name:     "malformed email",
			input:    usecase.RegisterInput{Username: "alice", Email: "not-an-email", Password: testPassword},
			expected: domainerrors.ErrInvalidEmail,
		},
		{
			name:     "password too short",
			input:    usecase.RegisterInput{Username: "alice", Email: "alice@example.com", Password: "short"},
			expected: domainerrors.ErrPasswordStrength,
		},
		{
			name:     "password longer than bcrypt accepts",
			input:    usecase.RegisterInput{Username: "alice", Email: "alice@example.com", Password: strings.Repeat("x", 73)},
			expected: domainerrors.ErrPasswordStrength,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile, err := f.auth.Register(context.Background(), &tt.input)
			require.Error(t, err)
			assert.Nil(t, profile)
			assert.ErrorIs(t, err, tt.expected)
			assert.Equal(t, domainerrors.KindValidation, domainerrors.KindOf(err))
		})
	}

	assert.InDelta(t, len(tests), testutil.ToFloat64(f.metrics.Registrations.WithLabelValues(service.ResultInvalid)), 0)
}

func TestAuthService_Register_Conflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "alice", "alice@example.com")

	_, err := f.auth.Register(ctx, &usecase.RegisterInput{
		Username: "alice", Email: "other@example.com", Password: testPassword,
	})
	require.ErrorIs(t, err, domainerrors.ErrUsernameTaken)

	_, err = f.auth.Register(ctx, &usecase.RegisterInput{
		Username: "bob", Email: "ALICE@example.com", Password: testPassword,
	})
	require.ErrorIs(t, err, domainerrors.ErrEmailTaken)
	assert.Equal(t, domainerrors.KindConflict, domainerrors.KindOf(err))

	assert.InDelta(t, 2, testutil.ToFloat64(f.metrics.Registrations.WithLabelValues(service.ResultConflict)), 0)
}

func TestAuthService_Login(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	profile := f.register(t, "alice", "alice@example.com")

	out, err := f.auth.Login(ctx, &usecase.LoginInput{Email: " ALICE@example.com", Password: testPassword})
	require.NoError(t, err)

	assert.False(t, out.SecondFactorRequired)
	assert.Equal(t, entity.SecondFactorNone, out.SecondFactorMethod)
	require.NotNil(t, out.Session)
	assert.Equal(t, profile.ID, out.Profile.ID)

	identity, err := f.auth.Authenticate(ctx, out.Session.Token)
	require.NoError(t, err)
	assert.Equal(t, profile.ID, identity.AccountID)

	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.Logins.WithLabelValues(service.ResultSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.Sessions.WithLabelValues(service.SessionReasonLogin)), 0)
}

func TestAuthService_Register_EmailKeepsApostrophe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	profile := f.register(t, "obrien", "O'Brien@Example.com")
	assert.Equal(t, "o'brien@example.com", profile.Email)

	stored, err := f.repo.FindByEmail(ctx, "o'brien@example.com")
	require.NoError(t, err)
	assert.Equal(t, profile.ID, stored.ID)

	out, err := f.auth.Login(ctx, &usecase.LoginInput{Email: "o'brien@example.com", Password: testPassword})
	require.NoError(t, err)
	assert.Equal(t, profile.ID, out.Profile.ID)
}

func TestAuthService_Login_FailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "alice", "alice@example.com")
	require.NoError(t, f.repo.Create(ctx, &entity.Account{Username: "oauthonly", Email: "oauth@example.com"}))

	tests := []struct {
		name  string
		input usecase.LoginInput
	}{
		{name: "unknown email", input: usecase.LoginInput{Email: "nobody@example.com", Password: testPassword}},
		{name: "wrong password", input: usecase.LoginInput{Email: "alice@example.com", Password: "wrong password"}},
		{name: "account without password", input: usecase.LoginInput{Email: "oauth@example.com", Password: testPassword}},
		{name: "empty password", input: usecase.LoginInput{Email: "alice@example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := f.auth.Login(ctx, &tt.input)
			assert.Nil(t, out)
			require.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
			assert.Equal(t, domainerrors.ErrInvalidCredentials.Message(), err.Error())
		})
	}

	assert.InDelta(t, len(tests), testutil.ToFloat64(f.metrics.Logins.WithLabelValues(service.ResultFailure)), 0)
}

func TestAuthService_Login_SecondFactorRequired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	profile := f.register(t, "alice", "alice@example.com")
	f.enableTwoFactor(t, identityOf(profile))

	out, err := f.auth.Login(ctx, &usecase.LoginInput{Email: "alice@example.com", Password: testPassword})
	require.NoError(t, err)
	assert.True(t, out.SecondFactorRequired)
	assert.Nil(t, out.Session)
	assert.Nil(t, out.Profile)

	// Wrong password still wins over the second-factor prompt.
	_, err = f.auth.Login(ctx, &usecase.LoginInput{Email: "alice@example.com", Password: "wrong password"})
	require.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)

	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.Logins.WithLabelValues(service.ResultPending)), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(f.metrics.Sessions.WithLabelValues(service.SessionReasonLogin)), 0)
}

func TestAuthService_Login_PendingSetupDoesNotGateLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	profile := f.register(t, "alice", "alice@example.com")
	identity := identityOf(profile)

	_, err := f.twoFactor.Setup(ctx, &identity)
	require.NoError(t, err)

	out, err := f.auth.Login(ctx, &usecase.LoginInput{Email: "alice@example.com", Password: testPassword})
	require.NoError(t, err)
	assert.False(t, out.SecondFactorRequired)
	assert.NotNil(t, out.Session)
}

func TestAuthService_Login_WithTOTP(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	profile := f.register(t, "alice", "alice@example.com")
	secret, _ := f.enableTwoFactor(t, identityOf(profile))

	code := f.totpCode(t, secret)
	out, err := f.auth.Login(ctx, &usecase.LoginInput{
		Email: "alice@example.com", Password: testPassword, TwoFactorCode: code,
	})
	require.NoError(t, err)
	assert.Equal(t, entity.SecondFactorTOTP, out.SecondFactorMethod)
	assert.NotNil(t, out.Session)

	// Replaying the same code inside its validity window is rejected.
	_, err = f.auth.Login(ctx, &usecase.LoginInput{
		Email: "alice@example.com", Password: testPassword, TwoFactorCode: code,
	})
	require.ErrorIs(t, err, domainerrors.ErrInvalidSecondFactor)

	f.clock.Advance(30 * time.Second)
	_, err = f.auth.Login(ctx, &usecase.LoginInput{
		Email: "alice@example.com", Password: testPassword, TwoFactorCode: f.totpCode(t, secret),
	})
	require.NoError(t, err)

	// Activation accepted one TOTP code as well.
	assert.InDelta(t, 3, testutil.ToFloat64(f.metrics.SecondFactor.WithLabelValues("totp", service.ResultSuccess)), 0)
}

func TestAuthService_Login_InvalidSecondFactor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	profile := f.register(t, "alice", "alice@example.com")
	_, backupCodes := f.enableTwoFactor(t, identityOf(profile))

	for _, code := range []string{"000000", "not-a-code", "ZZZZZ-ZZZZZ"} {
		out, err := f.auth.Login(ctx, &usecase.LoginInput{
			Email: "alice@example.com", Password: testPassword, TwoFactorCode: code,
		})
		assert.Nil(t, out)
		require.ErrorIs(t, err, domainerrors.ErrInvalidSecondFactor, code)
	}

	stored, err := f.repo.FindByID(ctx, profile.ID)
	require.NoError(t, err)
	assert.Len(t, stored.BackupCodes, len(backupCodes))
}

func TestAuthService_Login_BackupCodeIsSingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	profile := f.register(t, "alice", "alice@example.com")
	_, backupCodes := f.enableTwoFactor(t, identityOf(profile))
	require.Len(t, backupCodes, 10)

	seventh := backupCodes[6]
	out, err := f.auth.Login(ctx, &usecase.LoginInput{
		Email: "alice@example.com", Password: testPassword, TwoFactorCode: seventh,
	})
	require.NoError(t, err)
	assert.Equal(t, entity.SecondFactorBackupCode, out.SecondFactorMethod)
	assert.Equal(t, 9, out.RemainingBackupCodes)
	assert.NotNil(t, out.Session)

	stored, err := f.repo.FindByID(ctx, profile.ID)
	require.NoError(t, err)
	assert.Len(t, stored.BackupCodes, 9)

	checker := auth.NewBcryptHasherWithCost(4)
	for _, hash := range stored.BackupCodes {
		assert.False(t, checker.Check(auth.CanonicalizeBackupCode(seventh), hash))
	}

	_, err = f.auth.Login(ctx, &usecase.LoginInput{
		Email: "alice@example.com", Password: testPassword, TwoFactorCode: seventh,
	})
	require.ErrorIs(t, err, domainerrors.ErrInvalidSecondFactor)

	// Lower case without the separator is the same code.
	eighth := strings.ToLower(strings.ReplaceAll(backupCodes[7], "-", ""))
	out, err = f.auth.Login(ctx, &usecase.LoginInput{
		Email: "alice@example.com", Password: testPassword, TwoFactorCode: eighth,
	})
	require.NoError(t, err)
	assert.Equal(t, 8, out.RemainingBackupCodes)

	f.publisher.AssertCalled(t, "Publish", mock.Anything, eventOfType(service.EventBackupCodeConsumed))
}

func TestAuthService_Login_ConcurrentBackupCodeConsumption(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t)
	ctx := context.Background()
	profile := f.register(t, "alice", "alice@example.com")
	_, backupCodes := f.enableTwoFactor(t, identityOf(profile))

	// Leave exactly one code.
	stored, err := f.repo.FindByID(ctx, profile.ID)
	require.NoError(t, err)
	last := stored.BackupCodes[:1].Clone()
	require.NoError(t, f.repo.Update(ctx, profile.ID, entity.AccountUpdate{BackupCodes: &last}))

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		failures  int
	)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.auth.Login(ctx, &usecase.LoginInput{
				Email: "alice@example.com", Password: testPassword, TwoFactorCode: backupCodes[0],
			})

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if errors.Is(err, domainerrors.ErrInvalidSecondFactor) {
				failures++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, failures)

	stored, err = f.repo.FindByID(ctx, profile.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.BackupCodes)
}

func TestAuthService_Refresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	profile := f.register(t, "alice", "alice@example.com")
	identity := identityOf(profile)

	out, err := f.auth.Refresh(ctx, &identity)
	require.NoError(t, err)
	require.NotNil(t, out.Session)
	require.NotNil(t, out.Profile.LastSeen)
	assert.True(t, out.Profile.LastSeen.Equal(f.clock.Now()))

	stored, err := f.repo.FindByID(ctx, profile.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastSeen)
	assert.True(t, stored.LastSeen.Equal(f.clock.Now()))

	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.Sessions.WithLabelValues(service.SessionReasonRefresh)), 0)
}

func TestAuthService_Refresh_DeletedAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	profile := f.register(t, "alice", "alice@example.com")
	identity := identityOf(profile)

	f.store.Delete(profile.ID)

	out, err := f.auth.Refresh(ctx, &identity)
	assert.Nil(t, out)
	require.ErrorIs(t, err, domainerrors.ErrAccountNotFound)
	assert.Equal(t, domainerrors.KindNotFound, domainerrors.KindOf(err))
	assert.InDelta(t, 0, testutil.ToFloat64(f.metrics.Sessions.WithLabelValues(service.SessionReasonRefresh)), 0)

	_, err = f.auth.CurrentAccount(ctx, &identity)
	require.ErrorIs(t, err, domainerrors.ErrAccountNotFound)
}

func TestAuthService_CurrentAccount(t *testing.T) {
	f := newFixture(t)
	profile := f.register(t, "alice", "alice@example.com")
	identity := identityOf(profile)

	current, err := f.auth.CurrentAccount(context.Background(), &identity)
	require.NoError(t, err)
	assert.Equal(t, profile.ID, current.ID)
	assert.Equal(t, "alice", current.Username)
}

func TestAuthService_Authenticate_RejectsBadTokens(t *testing.T) {
	f := newFixture(t)

	for _, token := range []string{"", "garbage", "a.b.c"} {
		identity, err := f.auth.Authenticate(context.Background(), token)
		assert.Nil(t, identity)
		require.ErrorIs(t, err, domainerrors.ErrInvalidToken, token)
	}
}

func TestAuthService_PublishFailureDoesNotFailRequest(t *testing.T) {
	f := newFixture(t)

	failing := &mockPublisher{}
	failing.On("Publish", mock.Anything, eventOfType(service.EventAccountRegistered)).
		Return(errors.New("broker unavailable")).Once()
	f.auth.events.publisher = failing

	profile := f.register(t, "alice", "alice@example.com")
	assert.Equal(t, "alice", profile.Username)
	failing.AssertExpectations(t)
}
