package pubsub

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"arena/internal/domain/service"
	"arena/internal/errors"

	"github.com/google/uuid"
)

const (
	localSubscription   = "projects/local/subscriptions/security-events"
	localPublishTimeout = 5 * time.Second
)

// PushMessage is the body Google Pub/Sub POSTs to push subscriptions.
type PushMessage struct {
	Message struct {
		Data        string            `json:"data"`
		Attributes  map[string]string `json:"attributes,omitempty"`
		MessageID   string            `json:"messageId"`
		PublishTime string            `json:"publishTime"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// newPushMessage wraps event the way a push subscription delivers it.
func newPushMessage(event *service.SecurityEvent, data []byte, now time.Time) PushMessage {
	var msg PushMessage
	msg.Subscription = localSubscription
	msg.Message.Data = base64.StdEncoding.EncodeToString(data)
	msg.Message.Attributes = eventAttributes(event)
	msg.Message.MessageID = uuid.NewString()
	msg.Message.PublishTime = now.UTC().Format(time.RFC3339Nano)

	return msg
}

// localHTTPPublisher stands in for Pub/Sub during development by POSTing push
// envelopes straight to the audit worker.
type localHTTPPublisher struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// NewLocalHTTPPublisher posts every event to endpoint.
func NewLocalHTTPPublisher(endpoint string, logger *slog.Logger) service.SecurityEventPublisher {
	return &localHTTPPublisher{
		endpoint: endpoint,
		client:   &http.Client{Timeout: localPublishTimeout},
		logger:   logger,
	}
}

func (p *localHTTPPublisher) Publish(ctx context.Context, event *service.SecurityEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return errors.WithStack(err)
	}

	body, err := json.Marshal(newPushMessage(event, data, time.Now()))
	if err != nil {
		return errors.WithStack(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if event.RequestID != "" {
		req.Header.Set("X-Request-Id", event.RequestID)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to post push message")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return errors.Errorf("push endpoint %s returned %d", p.endpoint, resp.StatusCode)
	}

	p.logger.Debug("[LocalPubSub] Security event published", slog.String("type", event.Type))

	return nil
}

func (p *localHTTPPublisher) Close() error {
	p.client.CloseIdleConnections()

	return nil
}
