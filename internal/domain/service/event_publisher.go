package service

import (
	"context"
	"time"
)

// Security event types.
const (
	EventAccountRegistered      = "account.registered"
	EventLoginSucceeded         = "auth.login_succeeded"
	EventBackupCodeConsumed     = "auth.backup_code_consumed"
	EventTwoFactorEnabled       = "twofactor.enabled"
	EventTwoFactorDisabled      = "twofactor.disabled"
	EventBackupCodesRegenerated = "twofactor.backup_codes_regenerated"
)

// SecurityEvent is an audit record of a security-relevant account change.
// It never carries secrets.
type SecurityEvent struct {
	RequestID  string            `json:"request_id,omitempty"`
	Type       string            `json:"type"`
	AccountID  string            `json:"account_id"`
	OccurredAt time.Time         `json:"occurred_at"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// SecurityEventPublisher delivers security events to a message queue.
type SecurityEventPublisher interface {
	// Publish sends the event. Callers treat failures as non-fatal.
	Publish(ctx context.Context, event *SecurityEvent) error

	// Close releases any resources held by the publisher
	Close() error
}
