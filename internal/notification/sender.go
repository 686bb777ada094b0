package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ErrNotConfigured means the channel lacks the settings it needs to send.
var ErrNotConfigured = errors.New("notification channel not configured")

// Sender delivers one message to one recipient on one channel.
type Sender interface {
	Send(ctx context.Context, to string, msg Message) error
}

type LogSender struct {
	Channel string
}

func (s LogSender) Send(ctx context.Context, to string, msg Message) error {
	log.Printf("send %s to %s: subject=%q body=%q", s.Channel, to, msg.Subject, msg.Body)
	return nil
}

// WebhookSender posts each message as JSON to an HTTP endpoint.
type WebhookSender struct {
	channel string
	url     string
	token   string
	client  *http.Client
}

func NewWebhookSender(channel, url, token string, timeout time.Duration) (*WebhookSender, error) {
	if url == "" {
		return nil, ErrNotConfigured
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookSender{
		channel: channel,
		url:     url,
		token:   token,
		client:  &http.Client{Timeout: timeout, Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}, nil
}

type webhookPayload struct {
	Channel   string `json:"channel"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject,omitempty"`
	Message   string `json:"message"`
}

func (s *WebhookSender) Send(ctx context.Context, to string, msg Message) error {
	body, err := json.Marshal(webhookPayload{
		Channel:   s.channel,
		Recipient: to,
		Subject:   msg.Subject,
		Message:   msg.Body,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s webhook rejected request: status=%d", s.channel, resp.StatusCode)
	}
	return nil
}

// DeliveryError records a failed send on one channel. It is logged and does
// not fail the task.
type DeliveryError struct {
	Channel   string
	BookingID int64
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s delivery for booking %d failed: %v", e.Channel, e.BookingID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
