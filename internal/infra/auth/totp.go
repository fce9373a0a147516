package auth

import (
	"crypto/subtle"
	"strings"
	"time"

	"arena/config"
	"arena/internal/domain/service"
	"arena/internal/errors"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
	"github.com/pquerna/otp/totp"
)

const totpSecretBytes = 20

// totpEngine implements service.TOTPService (RFC 6238, HMAC-SHA1).
type totpEngine struct {
	issuer string
	period int
	digits int
	skew   int
}

// NewTOTPService builds the TOTP engine from the totp config section.
func NewTOTPService(cfg *config.Config) service.TOTPService {
	totpCfg := config.TOTPConfig{}
	if cfg.TOTP != nil {
		totpCfg = *cfg.TOTP
	}

	return newTOTPEngine(totpCfg)
}

func newTOTPEngine(cfg config.TOTPConfig) *totpEngine {
	engine := &totpEngine{
		issuer: cfg.Issuer,
		period: cfg.Period,
		digits: cfg.Digits,
		skew:   cfg.Skew,
	}
	if engine.issuer == "" {
		engine.issuer = "Arena"
	}
	if engine.period <= 0 {
		engine.period = 30
	}
	if engine.digits <= 0 {
		engine.digits = 6
	}
	if engine.skew < 0 {
		engine.skew = 0
	}

	return engine
}

// GenerateSecret creates a 160-bit random secret and its otpauth:// URI.
func (e *totpEngine) GenerateSecret(accountName string) (*service.TOTPKey, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      e.issuer,
		AccountName: accountName,
		Period:      uint(e.period),
		SecretSize:  totpSecretBytes,
		Digits:      otp.Digits(e.digits),
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate totp secret")
	}

	return &service.TOTPKey{
		Secret:          key.Secret(),
		ProvisioningURI: key.URL(),
	}, nil
}

// Verify accepts the code of the time step containing at, or of up to skew
// steps on either side. It returns the matching step on success.
//
// totp.ValidateCustom hides which step matched, so the window is walked
// here; replay protection needs the counter.
func (e *totpEngine) Verify(secret, code string, at time.Time) (bool, int64) {
	submitted := normalizeOTP(code)
	secret = normalizeSecret(secret)
	if secret == "" || len(submitted) != e.digits || !isNumeric(submitted) {
		return false, 0
	}

	opts := hotp.ValidateOpts{Digits: otp.Digits(e.digits), Algorithm: otp.AlgorithmSHA1}
	base := at.Unix() / int64(e.period)
	for step := -e.skew; step <= e.skew; step++ {
		counter := base + int64(step)
		if counter < 0 {
			continue
		}

		expected, err := hotp.GenerateCodeCustom(secret, uint64(counter), opts)
		if err != nil {
			return false, 0
		}
		if subtle.ConstantTimeCompare([]byte(expected), []byte(submitted)) == 1 {
			return true, counter
		}
	}

	return false, 0
}

// TOTPCode returns the code for secret at the given time. Used by tooling and tests.
func TOTPCode(secret string, at time.Time, period, digits int) (string, error) {
	code, err := totp.GenerateCodeCustom(normalizeSecret(secret), at, totp.ValidateOpts{
		Period:    uint(period),
		Digits:    otp.Digits(digits),
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to generate totp code")
	}

	return code, nil
}

// normalizeSecret drops the spaces authenticator apps display in secrets.
func normalizeSecret(secret string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(secret), " ", ""))
}

func normalizeOTP(code string) string {
	return strings.ReplaceAll(strings.TrimSpace(code), " ", "")
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return s != ""
}
