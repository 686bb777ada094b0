// Package queue moves notification tasks from the API to the workers with
// at-least-once delivery, bounded retries and a dead-letter destination.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/nekogravitycat/zone-booking-backend/internal/queue")

var ErrClosed = errors.New("queue is closed")

// State is the lifecycle position of a task.
type State string

const (
	StatePending         State = "pending"
	StateInFlight        State = "in-flight"
	StateCompleted       State = "completed"
	StateFailedRetryable State = "failed-retryable"
	StateFailedTerminal  State = "failed-terminal"
)

// Task is one unit of background work. Attempt starts at 1.
type Task struct {
	ID         uuid.UUID         `json:"id"`
	Kind       string            `json:"kind"`
	Payload    json.RawMessage   `json:"payload"`
	Attempt    int               `json:"attempt"`
	EnqueuedAt time.Time         `json:"enqueuedAt"`
	Trace      map[string]string `json:"trace,omitempty"`
}

// NewTask encodes payload and stamps the trace context of ctx onto the task.
func NewTask(ctx context.Context, kind string, payload any) (Task, error) {
	if kind == "" {
		return Task{}, errors.New("task kind is required")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Task{}, fmt.Errorf("encode %s payload: %w", kind, err)
	}
	t := Task{
		ID:         uuid.New(),
		Kind:       kind,
		Payload:    body,
		Attempt:    1,
		EnqueuedAt: time.Now().UTC(),
		Trace:      map[string]string{},
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.MapCarrier(t.Trace))
	return t, nil
}

// Decode unmarshals the payload into T. A payload that does not decode can
// never succeed, so the error is already marked permanent.
func Decode[T any](t Task) (T, error) {
	var v T
	if err := json.Unmarshal(t.Payload, &v); err != nil {
		return v, Permanent(fmt.Errorf("decode %s payload: %w", t.Kind, err))
	}
	return v, nil
}

// Handler processes one task. Returning nil completes it; an error wrapped
// with Permanent dead-letters it; any other error schedules a retry.
type Handler func(ctx context.Context, t Task) error

type Queue interface {
	Enqueue(ctx context.Context, kind string, payload any) error
	// Consume runs workers until ctx is cancelled, then waits for in-flight
	// tasks to finish before returning.
	Consume(ctx context.Context, h Handler) error
	Close() error
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Backoff is the delay before retrying a task whose attempt-th delivery
// failed: base * 2^(attempt-1), capped at limit.
func Backoff(attempt int, base, limit time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= limit || d <= 0 {
			return limit
		}
	}
	if d > limit {
		return limit
	}
	return d
}

type Options struct {
	Name        string
	Concurrency int
	MaxAttempts int
	TaskTimeout time.Duration
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	// ConsumerID names this worker process. The redis backend keys its
	// processing list by it to recover tasks after a crash.
	ConsumerID string
}

func (o Options) withDefaults() Options {
	if o.Name == "" {
		o.Name = "notifications"
	}
	if o.Concurrency < 1 {
		o.Concurrency = 1
	}
	if o.MaxAttempts < 1 {
		o.MaxAttempts = 5
	}
	if o.TaskTimeout <= 0 {
		o.TaskTimeout = 30 * time.Second
	}
	if o.BaseBackoff <= 0 {
		o.BaseBackoff = time.Second
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = 5 * time.Minute
	}
	if o.ConsumerID == "" {
		host, err := os.Hostname()
		if err != nil || host == "" {
			host = "worker"
		}
		o.ConsumerID = host
	}
	return o
}

// run executes h for t and decides the next state. The task keeps running
// when ctx is cancelled so shutdown can drain; only TaskTimeout bounds it.
func (o Options) run(ctx context.Context, h Handler, t Task) (state State, err error) {
	parent := otel.GetTextMapPropagator().Extract(context.WithoutCancel(ctx), propagation.MapCarrier(t.Trace))
	taskCtx, cancel := context.WithTimeout(parent, o.TaskTimeout)
	defer cancel()

	taskCtx, span := tracer.Start(taskCtx, "queue.process "+t.Kind,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.destination.name", o.Name),
			attribute.String("messaging.message.id", t.ID.String()),
			attribute.Int("task.attempt", t.Attempt),
		))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
			state = o.failure(t, err)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			log.Printf("task failed: queue=%s id=%s kind=%s attempt=%d/%d next=%s err=%v",
				o.Name, t.ID, t.Kind, t.Attempt, o.MaxAttempts, state, err)
		}
	}()

	if err := h(taskCtx, t); err != nil {
		return o.failure(t, err), err
	}
	return StateCompleted, nil
}

func (o Options) failure(t Task, err error) State {
	if IsPermanent(err) || t.Attempt >= o.MaxAttempts {
		return StateFailedTerminal
	}
	return StateFailedRetryable
}

// retry returns the redelivery of t and the delay before it is due.
func (o Options) retry(t Task) (Task, time.Duration) {
	delay := Backoff(t.Attempt, o.BaseBackoff, o.MaxBackoff)
	t.Attempt++
	return t, delay
}
