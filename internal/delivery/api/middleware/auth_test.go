package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"arena/config"
	deliverycontext "arena/internal/delivery/context"
	"arena/internal/domain/entity"
	domainerrors "arena/internal/domain/errors"
	"arena/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAuthUsecase struct {
	mock.Mock
	usecase.AuthUsecase
}

func (m *mockAuthUsecase) Authenticate(ctx context.Context, token string) (*entity.Identity, error) {
	args := m.Called(ctx, token)
	identity, _ := args.Get(0).(*entity.Identity)

	return identity, args.Error(1)
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = NewErrorMiddleware(slog.New(slog.NewTextHandler(io.Discard, nil))).HandleHTTPError

	return e
}

func TestAuthMiddleware_Authenticate(t *testing.T) {
	identity := &entity.Identity{AccountID: uuid.New()}

	tests := []struct {
		name           string
		setup          func(req *http.Request)
		token          string
		expectedStatus int
	}{
		{
			name:           "session cookie",
			setup:          func(req *http.Request) { req.AddCookie(&http.Cookie{Name: "session", Value: "cookie-token"}) },
			token:          "cookie-token",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "bearer header",
			setup:          func(req *http.Request) { req.Header.Set(echo.HeaderAuthorization, "Bearer header-token") },
			token:          "header-token",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "bearer scheme is case insensitive",
			setup:          func(req *http.Request) { req.Header.Set(echo.HeaderAuthorization, "bearer header-token") },
			token:          "header-token",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "basic auth is ignored",
			setup:          func(req *http.Request) { req.Header.Set(echo.HeaderAuthorization, "Basic dXNlcjpwYXNz") },
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "no credentials",
			setup:          func(*http.Request) {},
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authUC := &mockAuthUsecase{}
			if tt.token != "" {
				authUC.On("Authenticate", mock.Anything, tt.token).Return(identity, nil).Once()
			}
			m := NewAuthMiddleware(AuthMiddlewareParams{
				AuthUC: authUC,
				Config: &config.Config{Auth: &config.AuthConfig{CookieName: "session"}},
			})

			e := newTestEcho()
			e.GET("/me", func(c echo.Context) error {
				got, ok := deliverycontext.GetIdentity(c)
				require.True(t, ok)
				assert.Equal(t, identity.AccountID, got.AccountID)

				return c.NoContent(http.StatusOK)
			}, m.Authenticate)

			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			authUC.AssertExpectations(t)
		})
	}
}

func TestAuthMiddleware_RejectedToken(t *testing.T) {
	authUC := &mockAuthUsecase{}
	authUC.On("Authenticate", mock.Anything, "expired").Return(nil, domainerrors.ErrInvalidToken)
	m := NewAuthMiddleware(AuthMiddlewareParams{AuthUC: authUC, Config: &config.Config{}})

	e := newTestEcho()
	e.GET("/me", func(c echo.Context) error {
		t.Fatal("handler must not run")

		return nil
	}, m.Authenticate)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "expired"})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_TOKEN")
}

func TestCookieName(t *testing.T) {
	assert.Equal(t, "token", CookieName(nil))
	assert.Equal(t, "token", CookieName(&config.Config{}))
	assert.Equal(t, "sid", CookieName(&config.Config{Auth: &config.AuthConfig{CookieName: "sid"}}))
}
