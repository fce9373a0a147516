package handler

import (
	"net/http"

	"arena/internal/delivery/api/response"
	"arena/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// TwoFactorHandlerParams holds dependencies for TwoFactorHandler, injected by Fx.
type TwoFactorHandlerParams struct {
	fx.In

	TwoFactorUC usecase.TwoFactorUsecase
}

// TwoFactorHandler serves the /auth/2fa endpoints.
type TwoFactorHandler struct {
	twoFactorUC usecase.TwoFactorUsecase
}

// NewTwoFactorHandler is the constructor for TwoFactorHandler.
func NewTwoFactorHandler(params TwoFactorHandlerParams) *TwoFactorHandler {
	return &TwoFactorHandler{twoFactorUC: params.TwoFactorUC}
}

// CodeRequest carries a TOTP or backup code.
type CodeRequest struct {
	Code string `json:"code" validate:"required,max=32"`
}

// SetupResponse is shown once; the secret and codes are not retrievable later.
type SetupResponse struct {
	QRCode          string   `json:"qr_code"`
	Secret          string   `json:"secret"`
	ProvisioningURI string   `json:"provisioning_uri"`
	BackupCodes     []string `json:"backup_codes"`
}

// BackupCodesResponse carries a regenerated batch.
type BackupCodesResponse struct {
	BackupCodes []string `json:"backup_codes"`
}

// Setup starts two-factor enrollment.
func (h *TwoFactorHandler) Setup(c echo.Context) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}

	output, err := h.twoFactorUC.Setup(c.Request().Context(), identity)
	if err != nil {
		return err
	}

	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")

	return response.Success(c, http.StatusOK, SetupResponse{
		QRCode:          output.QRCodeDataURL,
		Secret:          output.Secret,
		ProvisioningURI: output.ProvisioningURI,
		BackupCodes:     output.BackupCodes,
	})
}

// Verify activates two-factor with the first TOTP code.
func (h *TwoFactorHandler) Verify(c echo.Context) error {
	return h.withCode(c, func(c echo.Context, code string) error {
		identity, err := requireIdentity(c)
		if err != nil {
			return err
		}

		profile, err := h.twoFactorUC.Verify(c.Request().Context(), identity, code)
		if err != nil {
			return err
		}

		return response.Success(c, http.StatusOK, profile)
	})
}

// Disable turns two-factor off.
func (h *TwoFactorHandler) Disable(c echo.Context) error {
	return h.withCode(c, func(c echo.Context, code string) error {
		identity, err := requireIdentity(c)
		if err != nil {
			return err
		}

		profile, err := h.twoFactorUC.Disable(c.Request().Context(), identity, code)
		if err != nil {
			return err
		}

		return response.Success(c, http.StatusOK, profile)
	})
}

// RegenerateBackupCodes replaces the backup codes.
func (h *TwoFactorHandler) RegenerateBackupCodes(c echo.Context) error {
	return h.withCode(c, func(c echo.Context, code string) error {
		identity, err := requireIdentity(c)
		if err != nil {
			return err
		}

		codes, err := h.twoFactorUC.RegenerateBackupCodes(c.Request().Context(), identity, code)
		if err != nil {
			return err
		}

		c.Response().Header().Set(echo.HeaderCacheControl, "no-store")

		return response.Success(c, http.StatusOK, BackupCodesResponse{BackupCodes: codes})
	})
}

func (h *TwoFactorHandler) withCode(c echo.Context, fn func(c echo.Context, code string) error) error {
	var req CodeRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "Invalid code input")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	return fn(c, req.Code)
}
