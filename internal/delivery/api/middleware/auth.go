// Package middleware contains the API-specific echo middleware.
package middleware

import (
	"strings"

	"arena/config"
	deliverycontext "arena/internal/delivery/context"
	domainerrors "arena/internal/domain/errors"
	"arena/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

const defaultCookieName = "token"

// AuthMiddlewareParams holds dependencies for AuthMiddleware, injected by Fx.
type AuthMiddlewareParams struct {
	fx.In

	AuthUC usecase.AuthUsecase
	Config *config.Config
}

// AuthMiddleware resolves the session token into an identity.
type AuthMiddleware struct {
	authUC     usecase.AuthUsecase
	cookieName string
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(params AuthMiddlewareParams) *AuthMiddleware {
	return &AuthMiddleware{
		authUC:     params.AuthUC,
		cookieName: CookieName(params.Config),
	}
}

// CookieName returns auth.cookieName, defaulting to "token".
func CookieName(cfg *config.Config) string {
	if cfg != nil && cfg.Auth != nil && cfg.Auth.CookieName != "" {
		return cfg.Auth.CookieName
	}

	return defaultCookieName
}

// Authenticate accepts the session cookie or an "Authorization: Bearer" header.
// Requests without a valid token stop here with ErrInvalidToken.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := m.extractToken(c)
		if token == "" {
			return domainerrors.ErrInvalidToken
		}

		identity, err := m.authUC.Authenticate(c.Request().Context(), token)
		if err != nil {
			return err
		}

		deliverycontext.SetIdentity(c, identity)

		return next(c)
	}
}

func (m *AuthMiddleware) extractToken(c echo.Context) string {
	if cookie, err := c.Cookie(m.cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	scheme, token, ok := strings.Cut(c.Request().Header.Get(echo.HeaderAuthorization), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}

	return strings.TrimSpace(token)
}
