package impl

import (
	"context"
	"log/slog"
	"time"

	deliverycontext "arena/internal/delivery/context"
	"arena/internal/domain/entity"
	domainerrors "arena/internal/domain/errors"
	"arena/internal/domain/repository"
	"arena/internal/domain/service"
	"arena/internal/errors"
)

const eventPublishTimeout = 3 * time.Second

// accountError turns a repository miss into the domain NotFound error.
func accountError(err error) error {
	if errors.Is(err, repository.ErrAccountNotFound) {
		return domainerrors.ErrAccountNotFound
	}

	return err
}

// securityEvents publishes best effort: failures are logged, never returned.
type securityEvents struct {
	publisher service.SecurityEventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

func (e *securityEvents) emit(ctx context.Context, eventType string, account *entity.Account, attributes map[string]string) {
	if e == nil || e.publisher == nil {
		return
	}

	event := &service.SecurityEvent{
		RequestID:  deliverycontext.GetRequestIDFromContext(ctx),
		Type:       eventType,
		AccountID:  account.ID.String(),
		OccurredAt: e.now().UTC(),
		Attributes: attributes,
	}

	// The request may already be finishing; the event should still go out.
	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventPublishTimeout)
	defer cancel()

	if err := e.publisher.Publish(publishCtx, event); err != nil {
		deliverycontext.GetLoggerOrDefault(ctx, e.logger).Warn("Failed to publish security event",
			slog.String("type", eventType),
			slog.String("account_id", event.AccountID),
			slog.Any("error", err),
		)
	}
}
