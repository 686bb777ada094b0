package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const attemptHeader = "x-attempt"

// RabbitMQ publishes tasks to a durable queue. Terminal failures are
// dead-lettered to "<name>.dead"; retries wait in "<name>.retry" for their
// per-message TTL and then dead-letter back to the main queue.
type RabbitMQ struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	opts Options

	mu sync.Mutex // guards publishing on ch
}

func NewRabbitMQ(url string, opts Options) (*RabbitMQ, error) {
	opts = opts.withDefaults()

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	q := &RabbitMQ{conn: conn, ch: ch, opts: opts}
	if err := q.declare(ch); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return q, nil
}

func (q *RabbitMQ) deadName() string  { return q.opts.Name + ".dead" }
func (q *RabbitMQ) retryName() string { return q.opts.Name + ".retry" }

// declare sets up the three queues. Dead-lettering goes through the default
// exchange, which routes by queue name.
func (q *RabbitMQ) declare(ch *amqp.Channel) error {
	if _, err := ch.QueueDeclare(q.deadName(), true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare dead queue: %w", err)
	}
	if _, err := ch.QueueDeclare(q.opts.Name, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": q.deadName(),
	}); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if _, err := ch.QueueDeclare(q.retryName(), true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": q.opts.Name,
	}); err != nil {
		return fmt.Errorf("declare retry queue: %w", err)
	}
	return nil
}

func (q *RabbitMQ) Enqueue(ctx context.Context, kind string, payload any) error {
	t, err := NewTask(ctx, kind, payload)
	if err != nil {
		return err
	}
	if err := q.publish(ctx, q.opts.Name, t, 0); err != nil {
		return fmt.Errorf("enqueue %s task: %w", kind, err)
	}
	return nil
}

func (q *RabbitMQ) publish(ctx context.Context, routingKey string, t Task, delay time.Duration) error {
	body, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode task: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    t.ID.String(),
		Type:         t.Kind,
		Timestamp:    t.EnqueuedAt,
		Headers:      amqp.Table{attemptHeader: int32(t.Attempt)},
		Body:         body,
	}
	if delay > 0 {
		msg.Expiration = strconv.FormatInt(delay.Milliseconds(), 10)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	return q.ch.PublishWithContext(ctx, "", routingKey, false, false, msg)
}

func (q *RabbitMQ) Consume(ctx context.Context, h Handler) error {
	ch, err := q.conn.Channel()
	if err != nil {
		return fmt.Errorf("open consumer channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(q.opts.Concurrency, 0, false); err != nil {
		return fmt.Errorf("set prefetch: %w", err)
	}

	deliveries, err := ch.ConsumeWithContext(ctx, q.opts.Name, q.opts.ConsumerID, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", q.opts.Name, err)
	}

	var wg sync.WaitGroup
	for i := 0; i < q.opts.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for d := range deliveries {
				q.handle(ctx, h, d)
			}
		}()
	}
	wg.Wait()
	return nil
}

func (q *RabbitMQ) handle(ctx context.Context, h Handler, d amqp.Delivery) {
	var t Task
	if err := json.Unmarshal(d.Body, &t); err != nil {
		log.Printf("queue dropped undecodable task: queue=%s err=%v", q.opts.Name, err)
		_ = d.Nack(false, false)
		return
	}
	if n, ok := d.Headers[attemptHeader].(int32); ok && int(n) > t.Attempt {
		t.Attempt = int(n)
	}

	state, _ := q.opts.run(ctx, h, t)
	switch state {
	case StateCompleted:
		_ = d.Ack(false)
	case StateFailedRetryable:
		next, delay := q.opts.retry(t)
		if err := q.publish(context.WithoutCancel(ctx), q.retryName(), next, delay); err != nil {
			log.Printf("queue schedule retry failed: queue=%s id=%s err=%v", q.opts.Name, t.ID, err)
			_ = d.Nack(false, true)
			return
		}
		_ = d.Ack(false)
	case StateFailedTerminal:
		_ = d.Nack(false, false)
	}
}

func (q *RabbitMQ) Close() error {
	if q.ch != nil {
		_ = q.ch.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}
