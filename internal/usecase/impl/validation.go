package impl

import (
	"strings"

	"arena/config"
	domainerrors "arena/internal/domain/errors"
	"arena/internal/domain/service"
	"arena/internal/errors"

	"github.com/go-playground/validator/v10"
)

type registrationFields struct {
	Username string `validate:"required,alphanum,min=3,max=32"`
	Email    string `validate:"required,email,max=255"`
}

// credentialPolicy normalises and validates registration input.
type credentialPolicy struct {
	validate          *validator.Validate
	sanitizer         service.Sanitizer
	passwordMinLength int
	passwordMaxLength int
}

func newCredentialPolicy(cfg *config.Config, sanitizer service.Sanitizer) *credentialPolicy {
	minLen, maxLen := 8, 72
	if cfg != nil && cfg.Auth != nil {
		if cfg.Auth.PasswordMinLength > 0 {
			minLen = cfg.Auth.PasswordMinLength
		}
		if cfg.Auth.PasswordMaxLength > 0 {
			maxLen = cfg.Auth.PasswordMaxLength
		}
	}

	return &credentialPolicy{
		validate:          validator.New(validator.WithRequiredStructEnabled()),
		sanitizer:         sanitizer,
		passwordMinLength: minLen,
		passwordMaxLength: maxLen,
	}
}

// normalizeUsername strips markup and surrounding space.
func (p *credentialPolicy) normalizeUsername(username string) string {
	return strings.TrimSpace(p.sanitizer.Sanitize(username))
}

// normalizeEmail strips markup, surrounding space and case.
func (p *credentialPolicy) normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(p.sanitizer.SanitizeEmail(email)))
}

// validateRegistration checks already-normalised fields.
func (p *credentialPolicy) validateRegistration(username, email, password string) error {
	err := p.validate.Struct(registrationFields{Username: username, Email: email})
	if err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
			return errors.Wrap(domainerrors.ErrValidationFailed, err.Error())
		}

		switch fieldErrs[0].Field() {
		case "Username":
			return domainerrors.ErrInvalidUsername.WithDetails(describeFieldError(fieldErrs[0]))
		default:
			return domainerrors.ErrInvalidEmail
		}
	}

	return p.validatePassword(password)
}

// validatePassword enforces the length window. bcrypt ignores bytes past 72,
// so the upper bound counts bytes.
func (p *credentialPolicy) validatePassword(password string) error {
	if len([]rune(password)) < p.passwordMinLength || len(password) > p.passwordMaxLength {
		return domainerrors.ErrPasswordStrength
	}

	return nil
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "username is required"
	case "min":
		return "username must be at least " + fe.Param() + " characters"
	case "max":
		return "username must be at most " + fe.Param() + " characters"
	default:
		return "username should consist of letters and digits"
	}
}
