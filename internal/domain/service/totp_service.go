package service

import "time"

// TOTPKey is a freshly provisioned shared secret.
type TOTPKey struct {
	Secret          string // base32, no padding
	ProvisioningURI string // otpauth:// URI for authenticator apps
}

// TOTPService generates secrets and checks time-based one-time codes.
type TOTPService interface {
	// GenerateSecret creates a random secret labelled with accountName.
	GenerateSecret(accountName string) (*TOTPKey, error)

	// Verify reports whether code is valid for secret at the given time within
	// the configured step window. On success it returns the matching time step.
	Verify(secret, code string, at time.Time) (bool, int64)
}
