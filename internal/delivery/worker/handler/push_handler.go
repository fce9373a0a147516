// Package handler consumes security events pushed by Pub/Sub.
package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"arena/config"
	deliverycontext "arena/internal/delivery/context"
	"arena/internal/domain/service"
	"arena/internal/errors"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
	"google.golang.org/api/idtoken"
)

// lowBackupCodeThreshold is the remaining count at which a consumption is
// reported as a warning.
const lowBackupCodeThreshold = 2

// PubSubMessage represents the structure of a Pub/Sub push message
type PubSubMessage struct {
	Message struct {
		Data        string            `json:"data"`
		Attributes  map[string]string `json:"attributes,omitempty"`
		MessageID   string            `json:"messageId"`
		PublishTime string            `json:"publishTime"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// tokenValidator checks a Google-signed OIDC token for audience.
type tokenValidator func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

// PushHandler writes every pushed security event to the audit log.
type PushHandler struct {
	verifyPushAuth bool
	validateToken  tokenValidator
	recorder       service.SecurityEventRecorder
	logger         *slog.Logger
}

// PushHandlerParams holds dependencies for the PushHandler
type PushHandlerParams struct {
	fx.In

	Config   *config.Config
	Recorder service.SecurityEventRecorder
	Logger   *slog.Logger
}

// NewPushHandler creates a new Pub/Sub push handler. Push authentication is
// verified for the google provider outside local environments.
func NewPushHandler(params PushHandlerParams) *PushHandler {
	verifyPushAuth := params.Config.PubSub != nil &&
		params.Config.PubSub.Provider == config.PubSubProviderGoogle &&
		params.Config.Env.Env != config.EnvLocal

	return &PushHandler{
		verifyPushAuth: verifyPushAuth,
		validateToken:  idtoken.Validate,
		recorder:       params.Recorder,
		logger:         params.Logger,
	}
}

// HandlePush acknowledges a pushed message. Malformed messages get 400 so
// Pub/Sub dead-letters them instead of retrying forever.
func (h *PushHandler) HandlePush(c echo.Context) error {
	ctx := c.Request().Context()

	if h.verifyPushAuth {
		if err := h.verifyPubSubToken(c.Request()); err != nil {
			h.logger.Warn("[Worker] Invalid Pub/Sub token", slog.Any("error", err))

			return c.NoContent(http.StatusUnauthorized)
		}
	}

	var pushMsg PubSubMessage
	if err := c.Bind(&pushMsg); err != nil {
		h.logger.Error("[Worker] Failed to parse push message", slog.Any("error", err))

		return c.NoContent(http.StatusBadRequest)
	}

	data, err := base64.StdEncoding.DecodeString(pushMsg.Message.Data)
	if err != nil {
		h.logger.Error("[Worker] Failed to decode message data", slog.Any("error", err))

		return c.NoContent(http.StatusBadRequest)
	}

	var event service.SecurityEvent
	if err := json.Unmarshal(data, &event); err != nil || event.Type == "" {
		h.logger.Error("[Worker] Failed to parse security event",
			slog.String("message_id", pushMsg.Message.MessageID),
			slog.Any("error", err),
		)

		return c.NoContent(http.StatusBadRequest)
	}

	requestID := extractRequestID(ctx, &pushMsg, &event)
	reqLogger := h.logger.With(slog.String("request_id", requestID))
	ctx = deliverycontext.WithRequestID(ctx, requestID)
	ctx = deliverycontext.WithLogger(ctx, reqLogger)

	h.audit(ctx, &pushMsg, &event)

	return c.NoContent(http.StatusOK)
}

func (h *PushHandler) audit(ctx context.Context, pushMsg *PubSubMessage, event *service.SecurityEvent) {
	logger := deliverycontext.GetLoggerOrDefault(ctx, h.logger)

	attrs := []slog.Attr{
		slog.String("type", event.Type),
		slog.String("account_id", event.AccountID),
		slog.Time("occurred_at", event.OccurredAt),
		slog.String("message_id", pushMsg.Message.MessageID),
	}
	for key, value := range event.Attributes {
		attrs = append(attrs, slog.String("attr."+key, value))
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "[Worker] Security event", attrs...)

	if event.Type == service.EventBackupCodeConsumed {
		remaining, err := strconv.Atoi(event.Attributes["remaining"])
		if err == nil && remaining <= lowBackupCodeThreshold {
			logger.Warn("[Worker] Account is running out of backup codes",
				slog.String("account_id", event.AccountID),
				slog.Int("remaining", remaining),
			)
		}
	}

	if h.recorder != nil {
		h.recorder.RecordSecurityEvent(event.Type)
	}
}

// extractRequestID prefers message attributes, then the event, then the push
// request itself, and generates an ID as a last resort.
func extractRequestID(ctx context.Context, pushMsg *PubSubMessage, event *service.SecurityEvent) string {
	if requestID, ok := pushMsg.Message.Attributes["request_id"]; ok && requestID != "" {
		return requestID
	}
	if event.RequestID != "" {
		return event.RequestID
	}
	if requestID := deliverycontext.GetRequestIDFromContext(ctx); requestID != "" {
		return requestID
	}

	return uuid.New().String()
}

// verifyPubSubToken verifies the OIDC token Google attaches to push requests.
func (h *PushHandler) verifyPubSubToken(req *http.Request) error {
	scheme, token, ok := strings.Cut(req.Header.Get(echo.HeaderAuthorization), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return errors.New("missing bearer token")
	}

	proto := "https"
	if req.TLS == nil {
		proto = "http"
	}
	audience := fmt.Sprintf("%s://%s%s", proto, req.Host, req.URL.Path)

	payload, err := h.validateToken(req.Context(), token, audience)
	if err != nil {
		return errors.Wrap(err, "failed to validate token")
	}

	if payload.Issuer != "accounts.google.com" && payload.Issuer != "https://accounts.google.com" {
		return errors.Errorf("invalid issuer: %s", payload.Issuer)
	}

	if emailVerified, ok := payload.Claims["email_verified"].(bool); ok && !emailVerified {
		return errors.New("email not verified")
	}

	return nil
}
