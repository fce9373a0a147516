package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"arena/config"
	apimiddleware "arena/internal/delivery/api/middleware"
	"arena/internal/delivery/api/router"
	"arena/internal/delivery/api/router/handler"
	"arena/internal/infra/auth"
	"arena/internal/infra/metrics"
	"arena/internal/infra/persistence/memory"
	"arena/internal/infra/pubsub"
	"arena/internal/infra/qrcode"
	"arena/internal/infra/sanitize"
	"arena/internal/usecase/impl"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details any    `json:"details"`
	} `json:"error"`
	Meta struct {
		RequestID string `json:"request_id"`
	} `json:"meta"`
}

type testServer struct {
	echo *echo.Echo
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		Auth: &config.AuthConfig{
			BackupCodeCost: bcrypt.MinCost,
			SessionTTL:     time.Hour,
			CookieName:     "token",
			RateLimit:      &config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
		},
		TOTP:    &config.TOTPConfig{Period: 30, Digits: 6, Skew: 1, ReplayProtection: true},
		Metrics: &config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
	cfg.SecretKey.Session = "server-test-secret"
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := memory.NewStore()
	repo := memory.NewAccountRepository(store)
	txManager := memory.NewTransactionManager(store)
	tokens, err := auth.NewJWTService(cfg)
	require.NoError(t, err)
	registry := metrics.NewRegistry()
	recorder := metrics.NewAuthRecorder(metrics.NewAuthMetrics(registry))
	publisher := pubsub.NewNoopPublisher(logger)
	totp := auth.NewTOTPService(cfg)
	backupCodes := auth.NewBackupCodeManager(cfg)
	sanitizer := sanitize.NewHTMLSanitizer()

	authUC := impl.NewAuthService(impl.AuthServiceParams{
		TxManager: txManager, AccountRepo: repo, Hasher: auth.NewBcryptHasherWithCost(bcrypt.MinCost),
		TokenService: tokens, TOTP: totp, BackupCodes: backupCodes, Sanitizer: sanitizer,
		Publisher: publisher, Metrics: recorder, Config: cfg, Logger: logger,
	})
	twoFactorUC := impl.NewTwoFactorService(impl.TwoFactorServiceParams{
		TxManager: txManager, AccountRepo: repo, TOTP: totp, BackupCodes: backupCodes,
		QRCode: qrcode.NewQRCodeService(128, "medium"), Publisher: publisher, Metrics: recorder,
		Config: cfg, Logger: logger,
	})
	statsUC := impl.NewStatsService(impl.StatsServiceParams{
		TxManager: txManager, AccountRepo: repo, Sanitizer: sanitizer, Logger: logger,
	})
	matchUC := impl.NewMatchService(impl.MatchServiceParams{
		TxManager: txManager, MatchRepo: memory.NewMatchRepository(store), Sanitizer: sanitizer, Logger: logger,
	})

	e := NewEcho(cfg, logger)
	router.NewRouter(router.RouterParams{
		AuthHandler:      handler.NewAuthHandler(handler.AuthHandlerParams{AuthUC: authUC, Config: cfg, Logger: logger}),
		TwoFactorHandler: handler.NewTwoFactorHandler(handler.TwoFactorHandlerParams{TwoFactorUC: twoFactorUC}),
		StatsHandler:     handler.NewStatsHandler(handler.StatsHandlerParams{StatsUC: statsUC}),
		MatchHandler:     handler.NewMatchHandler(handler.MatchHandlerParams{MatchUC: matchUC}),
		AuthMiddleware:   apimiddleware.NewAuthMiddleware(apimiddleware.AuthMiddlewareParams{AuthUC: authUC, Config: cfg}),
		Registry:         registry,
		Config:           cfg,
	}).RegisterRoutes(e)

	return &testServer{echo: e}
}

func (s *testServer) do(t *testing.T, method, path, body string, cookies ...*http.Cookie) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Host = "localhost:8080"
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}

	return rec, env
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()

	for _, c := range rec.Result().Cookies() {
		if c.Name == "token" {
			return c
		}
	}
	require.FailNow(t, "session cookie not set")

	return nil
}

func TestServer_AuthFlow(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodPost, "/auth/register",
		`{"username":"alice","email":"alice@example.com","password":"correct horse battery"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotEmpty(t, env.Meta.RequestID)
	assert.NotContains(t, rec.Body.String(), "password")

	rec, _ = s.do(t, http.MethodPost, "/auth/register",
		`{"username":"alice","email":"other@example.com","password":"correct horse battery"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, env = s.do(t, http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"wrong password"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", env.Error.Code)
	assert.Empty(t, rec.Result().Cookies())

	rec, _ = s.do(t, http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"correct horse battery"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	session := sessionCookie(t, rec)
	assert.True(t, session.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, session.SameSite)

	rec, env = s.do(t, http.MethodGet, "/auth/me", "", session)
	require.Equal(t, http.StatusOK, rec.Code)
	var profile map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &profile))
	assert.Equal(t, "alice", profile["username"])
	assert.Equal(t, false, profile["two_factor_enabled"])

	rec, _ = s.do(t, http.MethodGet, "/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/auth/refresh", "", session)
	require.Equal(t, http.StatusOK, rec.Code)
	refreshed := sessionCookie(t, rec)
	assert.NotEmpty(t, refreshed.Value)

	rec, _ = s.do(t, http.MethodPost, "/auth/logout", "", refreshed)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, -1, sessionCookie(t, rec).MaxAge)
}

func TestServer_TwoFactorFlow(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(t, http.MethodPost, "/auth/register",
		`{"username":"alice","email":"alice@example.com","password":"correct horse battery"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec, _ = s.do(t, http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"correct horse battery"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	session := sessionCookie(t, rec)

	rec, env := s.do(t, http.MethodPost, "/auth/2fa/setup", "", session)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "no-store", rec.Header().Get(echo.HeaderCacheControl))
	var setup handler.SetupResponse
	require.NoError(t, json.Unmarshal(env.Data, &setup))
	require.Len(t, setup.BackupCodes, 10)
	assert.True(t, strings.HasPrefix(setup.QRCode, "data:image/png;base64,"))

	rec, env = s.do(t, http.MethodPost, "/auth/2fa/verify", `{"code":"000000x"}`, session)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_VERIFICATION_CODE", env.Error.Code)

	code, err := auth.TOTPCode(setup.Secret, time.Now(), 30, 6)
	require.NoError(t, err)
	rec, _ = s.do(t, http.MethodPost, "/auth/2fa/verify", `{"code":"`+code+`"}`, session)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, env = s.do(t, http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"correct horse battery"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
	assert.JSONEq(t, `{"second_factor_required":true}`, string(env.Data))

	rec, env = s.do(t, http.MethodPost, "/auth/login",
		`{"email":"alice@example.com","password":"correct horse battery","twoFactorCode":"`+setup.BackupCodes[6]+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var login handler.SessionResponse
	require.NoError(t, json.Unmarshal(env.Data, &login))
	require.NotNil(t, login.RemainingBackupCodes)
	assert.Equal(t, 9, *login.RemainingBackupCodes)
	sessionCookie(t, rec)

	rec, env = s.do(t, http.MethodPost, "/auth/login",
		`{"email":"alice@example.com","password":"correct horse battery","twoFactorCode":"`+setup.BackupCodes[6]+`"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_SECOND_FACTOR", env.Error.Code)
	assert.Nil(t, env.Error.Details)
}

func TestServer_TournamentAndValidation(t *testing.T) {
	s := newTestServer(t)

	for _, name := range []string{"alice", "bob"} {
		rec, _ := s.do(t, http.MethodPost, "/auth/register",
			`{"username":"`+name+`","email":"`+name+`@example.com","password":"correct horse battery"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	rec, _ := s.do(t, http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"correct horse battery"}`)
	session := sessionCookie(t, rec)

	rec, env := s.do(t, http.MethodPost, "/tournament/local-result", `{"winner":"alice","loser":"bob"}`, session)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"message":"Tournament result recorded: alice beats bob","stats_updated":true}`, string(env.Data))

	rec, env = s.do(t, http.MethodPost, "/tournament/local-result", `{"winner":"alice","loser":"ghost"}`, session)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "PLAYER_NOT_FOUND", env.Error.Code)

	rec, env = s.do(t, http.MethodPost, "/auth/register", `{"username":"carol"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)
	assert.NotNil(t, env.Error.Details)

	rec, env = s.do(t, http.MethodPost, "/auth/login", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INPUT", env.Error.Code)
}

func TestServer_MatchLifecycle(t *testing.T) {
	s := newTestServer(t)

	for _, name := range []string{"alice", "bob"} {
		rec, _ := s.do(t, http.MethodPost, "/auth/register",
			`{"username":"`+name+`","email":"`+name+`@example.com","password":"correct horse battery"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	rec, _ := s.do(t, http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"correct horse battery"}`)
	session := sessionCookie(t, rec)

	rec, _ = s.do(t, http.MethodPost, "/matches", `{"player1Alias":"alice","player2Alias":"bob"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, env := s.do(t, http.MethodPost, "/matches", `{"player1Alias":"alice","player2Alias":"bob"}`, session)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var match handler.MatchResponse
	require.NoError(t, json.Unmarshal(env.Data, &match))
	assert.Equal(t, "PENDING", match.Status)
	require.Len(t, match.Players, 2)
	assert.NotNil(t, match.Players[1].AccountID)
	path := "/matches/" + match.ID.String()

	rec, env = s.do(t, http.MethodPost, path+"/complete", `{"winnerAlias":"alice","player1Score":11,"player2Score":5}`, session)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "INVALID_MATCH_STATE", env.Error.Code)

	rec, env = s.do(t, http.MethodPost, path+"/start", "", session)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, &match))
	assert.Equal(t, "ONGOING", match.Status)

	rec, env = s.do(t, http.MethodPost, path+"/complete", `{"winnerAlias":"carol","player1Score":11,"player2Score":5}`, session)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_WINNER", env.Error.Code)

	rec, _ = s.do(t, http.MethodPost, path+"/complete", `{"winnerAlias":"alice","player1Score":11,"player2Score":5}`, session)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, env = s.do(t, http.MethodGet, path, "", session)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &match))
	assert.Equal(t, "FINISHED", match.Status)
	assert.Equal(t, "alice", match.WinnerAlias)
	assert.Equal(t, "WIN", match.Players[0].Result)
	assert.Equal(t, "LOSS", match.Players[1].Result)

	rec, env = s.do(t, http.MethodGet, "/auth/me", "", session)
	require.Equal(t, http.StatusOK, rec.Code)
	var profile map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &profile))
	assert.EqualValues(t, 1, profile["wins"])

	rec, env = s.do(t, http.MethodGet, "/matches/not-a-uuid", "", session)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INPUT", env.Error.Code)

	rec, env = s.do(t, http.MethodGet, "/matches/"+uuid.NewString(), "", session)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "MATCH_NOT_FOUND", env.Error.Code)
}

func TestServer_HealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	s.do(t, http.MethodPost, "/auth/login", `{"email":"nobody@example.com","password":"whatever1"}`)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	metricsRec := httptest.NewRecorder()
	s.echo.ServeHTTP(metricsRec, req)
	require.Equal(t, http.StatusOK, metricsRec.Code)
	assert.Contains(t, metricsRec.Body.String(), `arena_auth_logins_total{result="failure"} 1`)
}

func TestServer_RequestIDIsEchoed(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "client-supplied-id")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	assert.Equal(t, "client-supplied-id", rec.Header().Get("X-Request-Id"))
	assert.Contains(t, rec.Body.String(), `"request_id":"client-supplied-id"`)
}
