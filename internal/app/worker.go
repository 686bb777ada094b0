package app

import (
	"context"
	"fmt"
	"log"

	"github.com/nekogravitycat/zone-booking-backend/internal/booking"
	"github.com/nekogravitycat/zone-booking-backend/internal/config"
	"github.com/nekogravitycat/zone-booking-backend/internal/notification"
	"github.com/nekogravitycat/zone-booking-backend/internal/queue"
	"github.com/nekogravitycat/zone-booking-backend/internal/reminder"
)

// Worker bundles the background side: the task handler and the reminder
// scheduler feeding it.
type Worker struct {
	Handler   *notification.Handler
	Scheduler *reminder.Scheduler
}

// NewWorker builds delivery channels from configuration. A channel whose
// provider lacks settings is disabled and logged rather than failing.
func NewWorker(ctx context.Context, cfg *config.Config, repo booking.Repository, tasks notification.Enqueuer) (*Worker, error) {
	channels := ChannelConfig(cfg)

	email, err := notification.NewEmailSender(ctx, channels)
	if err != nil {
		return nil, fmt.Errorf("email channel: %w", err)
	}
	sms, err := notification.NewSMSSender(channels)
	if err != nil {
		return nil, fmt.Errorf("sms channel: %w", err)
	}
	if email == nil {
		log.Printf("email channel disabled: provider=%s", cfg.EmailProvider)
	}
	if sms == nil {
		log.Printf("sms channel disabled: provider=%s", cfg.SMSProvider)
	}

	handler := notification.NewHandler(repo, notification.HandlerConfig{
		Email:       email,
		SMS:         sms,
		Composer:    notification.Composer{Venue: cfg.VenueName, Lead: cfg.ReminderLead},
		CountryCode: cfg.SMSCountryCode,
		LeaseTTL:    2 * cfg.TaskTimeout,
	})

	scheduler := reminder.NewScheduler(repo, notification.NewDispatcher(tasks), reminder.Config{
		Lead:     cfg.ReminderLead,
		Interval: cfg.ReminderInterval,
		Location: cfg.Location,
	})

	return &Worker{Handler: handler, Scheduler: scheduler}, nil
}

// Run consumes tasks and schedules reminders until ctx is cancelled.
func (w *Worker) Run(ctx context.Context, q queue.Queue) error {
	go w.Scheduler.Run(ctx)
	return q.Consume(ctx, w.Handler.Handle)
}

func ChannelConfig(cfg *config.Config) notification.ChannelConfig {
	return notification.ChannelConfig{
		EmailProvider: cfg.EmailProvider,
		SMSProvider:   cfg.SMSProvider,
		SES: notification.SESConfig{
			Region:          cfg.AWSRegion,
			AccessKeyID:     cfg.AWSSESAccessKeyID,
			SecretAccessKey: cfg.AWSSESSecretAccessKey,
			From:            cfg.SESFromEmail,
		},
		Twilio: notification.TwilioConfig{
			AccountSID: cfg.TwilioAccountSID,
			AuthToken:  cfg.TwilioAuthToken,
			From:       cfg.TwilioFromNumber,
		},
		EmailWebhookURL: cfg.NotifEmailWebhookURL,
		SMSWebhookURL:   cfg.NotifSMSWebhookURL,
		WebhookToken:    cfg.NotifWebhookToken,
		WebhookTimeout:  cfg.NotifWebhookTimeout,
	}
}

// QueueConfig maps configuration onto queue.Open.
func QueueConfig(cfg *config.Config) queue.Config {
	return queue.Config{
		Driver:    cfg.QueueDriver,
		RedisURL:  cfg.RedisURL,
		RabbitURL: cfg.RabbitURL,
		Options: queue.Options{
			Name:        cfg.QueueName,
			Concurrency: cfg.WorkerConcurrency,
			MaxAttempts: cfg.TaskMaxAttempts,
			TaskTimeout: cfg.TaskTimeout,
		},
	}
}
