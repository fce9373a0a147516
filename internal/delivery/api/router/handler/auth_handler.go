// Package handler contains the HTTP handlers of the API.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"arena/config"
	"arena/internal/delivery/api/cookie"
	"arena/internal/delivery/api/middleware"
	"arena/internal/delivery/api/response"
	deliverycontext "arena/internal/delivery/context"
	"arena/internal/domain/entity"
	domainerrors "arena/internal/domain/errors"
	"arena/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// AuthHandlerParams holds dependencies for AuthHandler, injected by Fx.
type AuthHandlerParams struct {
	fx.In

	AuthUC usecase.AuthUsecase
	Config *config.Config
	Logger *slog.Logger
}

// AuthHandler serves registration, login and session endpoints.
type AuthHandler struct {
	authUC     usecase.AuthUsecase
	cookieName string
	logger     *slog.Logger
}

// NewAuthHandler is the constructor for AuthHandler.
func NewAuthHandler(params AuthHandlerParams) *AuthHandler {
	return &AuthHandler{
		authUC:     params.AuthUC,
		cookieName: middleware.CookieName(params.Config),
		logger:     params.Logger,
	}
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Email    string `json:"email" validate:"required,max=255"`
	Password string `json:"password" validate:"required,max=256"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email         string `json:"email" validate:"required,max=255"`
	Password      string `json:"password" validate:"required,max=256"`
	TwoFactorCode string `json:"twoFactorCode" validate:"max=32"`
}

// SessionResponse is returned whenever a session cookie is set.
type SessionResponse struct {
	Profile   *entity.PublicProfile `json:"profile"`
	ExpiresAt time.Time             `json:"expires_at"`

	SecondFactorMethod   entity.SecondFactorMethod `json:"second_factor_method,omitempty"`
	RemainingBackupCodes *int                      `json:"remaining_backup_codes,omitempty"`
}

// SecondFactorRequiredResponse tells the client to retry login with a code.
type SecondFactorRequiredResponse struct {
	SecondFactorRequired bool `json:"second_factor_required"`
}

// Register handles account creation.
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "Invalid registration input")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	profile, err := h.authUC.Register(c.Request().Context(), &usecase.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusCreated, profile)
}

// Login answers 200 with a session cookie, or 202 when a second factor is
// still needed. The 202 carries no cookie.
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "Invalid login input")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	output, err := h.authUC.Login(c.Request().Context(), &usecase.LoginInput{
		Email:         req.Email,
		Password:      req.Password,
		TwoFactorCode: req.TwoFactorCode,
	})
	if err != nil {
		return err
	}

	if output.SecondFactorRequired {
		return response.Success(c, http.StatusAccepted, SecondFactorRequiredResponse{SecondFactorRequired: true})
	}

	h.setSessionCookie(c, output.Session)

	body := SessionResponse{
		Profile:            output.Profile,
		ExpiresAt:          output.Session.ExpiresAt,
		SecondFactorMethod: output.SecondFactorMethod,
	}
	if output.SecondFactorMethod == entity.SecondFactorBackupCode {
		remaining := output.RemainingBackupCodes
		body.RemainingBackupCodes = &remaining
	}

	return response.Success(c, http.StatusOK, body)
}

// Logout clears the session cookie.
func (h *AuthHandler) Logout(c echo.Context) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}

	if err := h.authUC.Logout(c.Request().Context(), identity); err != nil {
		return err
	}

	c.SetCookie(cookie.ClearSessionCookie(c.Request().Host, h.cookieName))

	return response.Success(c, http.StatusOK, map[string]string{"message": "Logged out"})
}

// Refresh issues a new session for the caller.
func (h *AuthHandler) Refresh(c echo.Context) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}

	output, err := h.authUC.Refresh(c.Request().Context(), identity)
	if err != nil {
		return err
	}

	h.setSessionCookie(c, output.Session)

	return response.Success(c, http.StatusOK, SessionResponse{
		Profile:   output.Profile,
		ExpiresAt: output.Session.ExpiresAt,
	})
}

// Me returns the caller's public profile.
func (h *AuthHandler) Me(c echo.Context) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}

	profile, err := h.authUC.CurrentAccount(c.Request().Context(), identity)
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, profile)
}

func (h *AuthHandler) setSessionCookie(c echo.Context, session *entity.Session) {
	c.SetCookie(cookie.SessionCookie(c.Request().Host, h.cookieName, session.Token, session.TTL()))
}

func requireIdentity(c echo.Context) (*entity.Identity, error) {
	identity, ok := deliverycontext.GetIdentity(c)
	if !ok {
		return nil, domainerrors.ErrInvalidToken
	}

	return identity, nil
}
