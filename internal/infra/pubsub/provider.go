// Package pubsub publishes security events to a message queue.
package pubsub

import (
	"context"
	"log/slog"

	"arena/config"
	"arena/internal/domain/service"
	"arena/internal/errors"

	"go.uber.org/fx"
)

// Module provides the configured SecurityEventPublisher.
//
//nolint:gochecknoglobals
var Module = fx.Options(
	fx.Provide(NewSecurityEventPublisher),
)

// PublisherParams holds dependencies for SecurityEventPublisher, injected by Fx
type PublisherParams struct {
	fx.In

	Lc     fx.Lifecycle
	Ctx    context.Context
	Config *config.Config
	Logger *slog.Logger
}

// NewSecurityEventPublisher selects the publisher named by pubsub.provider
// and closes it when the application stops. An empty provider disables
// publishing.
func NewSecurityEventPublisher(params PublisherParams) (service.SecurityEventPublisher, error) {
	publisher, err := newPublisher(params.Ctx, params.Config.PubSub, params.Logger)
	if err != nil {
		return nil, err
	}

	params.Lc.Append(fx.StopHook(func() error {
		params.Logger.Info("Closing SecurityEventPublisher")

		return publisher.Close()
	}))

	return publisher, nil
}

func newPublisher(ctx context.Context, cfg *config.PubSubConfig, logger *slog.Logger) (service.SecurityEventPublisher, error) {
	if cfg == nil || cfg.Provider == "" {
		logger.Info("PubSub not configured, using no-op publisher")

		return NewNoopPublisher(logger), nil
	}

	switch cfg.Provider {
	case config.PubSubProviderLocal:
		if cfg.LocalEndpoint == "" {
			return nil, errors.New("local endpoint is required for local provider")
		}
		logger.Info("Using local HTTP publisher for Pub/Sub", slog.String("endpoint", cfg.LocalEndpoint))

		return NewLocalHTTPPublisher(cfg.LocalEndpoint, logger), nil

	case config.PubSubProviderGoogle:
		if cfg.ProjectID == "" {
			return nil, errors.New("project ID is required for google provider")
		}
		if cfg.TopicID == "" {
			return nil, errors.New("topic ID is required for google provider")
		}

		return NewGooglePubSubPublisher(ctx, cfg.ProjectID, cfg.TopicID, logger)

	default:
		return nil, errors.Errorf("unknown pubsub provider: %s", cfg.Provider)
	}
}

type noopPublisher struct {
	logger *slog.Logger
}

// NewNoopPublisher returns a publisher that drops every event.
func NewNoopPublisher(logger *slog.Logger) service.SecurityEventPublisher {
	return &noopPublisher{logger: logger}
}

func (p *noopPublisher) Publish(_ context.Context, event *service.SecurityEvent) error {
	p.logger.Debug("[NoopPubSub] Event publishing disabled, skipping", slog.String("type", event.Type))

	return nil
}

func (p *noopPublisher) Close() error { return nil }

// eventAttributes are copied onto the message for subscription filtering.
// They hold identifiers only.
func eventAttributes(event *service.SecurityEvent) map[string]string {
	attributes := map[string]string{
		"type":       event.Type,
		"account_id": event.AccountID,
	}
	if event.RequestID != "" {
		attributes["request_id"] = event.RequestID
	}

	return attributes
}
