package notification

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ChannelConfig selects and configures the email and SMS providers.
// Provider names: ses, twilio, webhook, log, none.
type ChannelConfig struct {
	EmailProvider string
	SMSProvider   string

	SES    SESConfig
	Twilio TwilioConfig

	EmailWebhookURL string
	SMSWebhookURL   string
	WebhookToken    string
	WebhookTimeout  time.Duration
}

// NewEmailSender returns nil when email is disabled or not configured.
func NewEmailSender(ctx context.Context, cfg ChannelConfig) (Sender, error) {
	switch cfg.EmailProvider {
	case "ses":
		s, err := NewSESSender(ctx, cfg.SES)
		if err != nil {
			return skipUnconfigured(err)
		}
		return s, nil
	case "webhook":
		s, err := NewWebhookSender("email", cfg.EmailWebhookURL, cfg.WebhookToken, cfg.WebhookTimeout)
		if err != nil {
			return skipUnconfigured(err)
		}
		return s, nil
	case "log", "":
		return LogSender{Channel: "email"}, nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown EMAIL_PROVIDER %q", cfg.EmailProvider)
	}
}

// NewSMSSender returns nil when SMS is disabled or not configured.
func NewSMSSender(cfg ChannelConfig) (Sender, error) {
	switch cfg.SMSProvider {
	case "twilio":
		s, err := NewTwilioSender(cfg.Twilio)
		if err != nil {
			return skipUnconfigured(err)
		}
		return s, nil
	case "webhook":
		s, err := NewWebhookSender("sms", cfg.SMSWebhookURL, cfg.WebhookToken, cfg.WebhookTimeout)
		if err != nil {
			return skipUnconfigured(err)
		}
		return s, nil
	case "log", "":
		return LogSender{Channel: "sms"}, nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown SMS_PROVIDER %q", cfg.SMSProvider)
	}
}

// skipUnconfigured disables a channel that lacks settings instead of
// failing startup.
func skipUnconfigured(err error) (Sender, error) {
	if errors.Is(err, ErrNotConfigured) {
		return nil, nil
	}
	return nil, err
}
