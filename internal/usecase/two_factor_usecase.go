package usecase

import (
	"context"

	"arena/internal/domain/entity"
)

// TwoFactorSetupOutput is returned exactly once per setup. The plaintext
// backup codes and the secret are not retrievable afterwards.
type TwoFactorSetupOutput struct {
	Secret          string
	ProvisioningURI string
	QRCodeDataURL   string
	BackupCodes     []string
}

// TwoFactorUsecase manages the two-factor lifecycle of the authenticated account.
type TwoFactorUsecase interface {
	// Setup provisions a new secret and backup codes, leaving 2FA pending.
	Setup(ctx context.Context, identity *entity.Identity) (*TwoFactorSetupOutput, error)

	// Verify activates a pending setup with a TOTP code.
	Verify(ctx context.Context, identity *entity.Identity, code string) (*entity.PublicProfile, error)

	// Disable turns 2FA off after a valid TOTP or backup code.
	Disable(ctx context.Context, identity *entity.Identity, code string) (*entity.PublicProfile, error)

	// RegenerateBackupCodes replaces the backup codes after a valid TOTP code.
	RegenerateBackupCodes(ctx context.Context, identity *entity.Identity, code string) ([]string, error)
}
