package service

// Sanitizer strips markup from free-text input before validation.
type Sanitizer interface {
	// Sanitize strips markup and HTML-escapes the remaining text.
	Sanitize(input string) string

	// SanitizeEmail strips markup but leaves characters such as ' and &
	// untouched.
	SanitizeEmail(input string) string
}
