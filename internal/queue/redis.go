package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// promoteScript moves due members of the delayed set onto the pending list
// atomically, so a retry is never lost between the two keys.
var promoteScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, ARGV[2])
for _, member in ipairs(due) do
	redis.call('ZREM', KEYS[1], member)
	redis.call('LPUSH', KEYS[2], member)
end
return #due
`)

const (
	redisPollTimeout   = time.Second
	redisPromoteEvery  = time.Second
	redisPromoteBatch  = 100
	redisRecoveryLimit = 10000
)

// Redis is a reliable list queue. Workers move a task from the pending list
// to their own processing list and remove it from there once it is settled.
type Redis struct {
	client *redis.Client
	opts   Options
}

// NewRedisClient builds a client from a redis:// URL or a bare host:port.
func NewRedisClient(url string) (*redis.Client, error) {
	if strings.Contains(url, "://") {
		opts, err := redis.ParseURL(url)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opts), nil
	}
	return redis.NewClient(&redis.Options{Addr: url}), nil
}

func NewRedis(client *redis.Client, opts Options) *Redis {
	return &Redis{client: client, opts: opts.withDefaults()}
}

func (r *Redis) pendingKey() string    { return r.opts.Name + ":pending" }
func (r *Redis) delayedKey() string    { return r.opts.Name + ":delayed" }
func (r *Redis) deadKey() string       { return r.opts.Name + ":dead" }
func (r *Redis) processingKey() string { return r.opts.Name + ":processing:" + r.opts.ConsumerID }

func (r *Redis) Enqueue(ctx context.Context, kind string, payload any) error {
	t, err := NewTask(ctx, kind, payload)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode task: %w", err)
	}
	if err := r.client.LPush(ctx, r.pendingKey(), raw).Err(); err != nil {
		return fmt.Errorf("enqueue %s task: %w", kind, err)
	}
	return nil
}

func (r *Redis) Consume(ctx context.Context, h Handler) error {
	if err := r.requeueOrphans(ctx); err != nil {
		return err
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.promoteLoop(ctx)
	}()

	for i := 0; i < r.opts.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.work(ctx, h)
		}()
	}
	wg.Wait()
	return nil
}

// requeueOrphans returns tasks left in this consumer's processing list by a
// previous crash to the pending list.
func (r *Redis) requeueOrphans(ctx context.Context) error {
	for i := 0; i < redisRecoveryLimit; i++ {
		err := r.client.RPopLPush(ctx, r.processingKey(), r.pendingKey()).Err()
		if errors.Is(err, redis.Nil) {
			if i > 0 {
				log.Printf("queue recovered tasks: queue=%s consumer=%s count=%d", r.opts.Name, r.opts.ConsumerID, i)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("recover processing list: %w", err)
		}
	}
	return nil
}

func (r *Redis) promoteLoop(ctx context.Context) {
	ticker := time.NewTicker(redisPromoteEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			err := promoteScript.Run(ctx, r.client,
				[]string{r.delayedKey(), r.pendingKey()},
				strconv.FormatInt(now.UnixMilli(), 10), redisPromoteBatch,
			).Err()
			if err != nil && ctx.Err() == nil {
				log.Printf("queue promote failed: queue=%s err=%v", r.opts.Name, err)
			}
		}
	}
}

func (r *Redis) work(ctx context.Context, h Handler) {
	for {
		if ctx.Err() != nil {
			return
		}

		raw, err := r.client.BRPopLPush(ctx, r.pendingKey(), r.processingKey(), redisPollTimeout).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("queue poll failed: queue=%s err=%v", r.opts.Name, err)
			time.Sleep(redisPollTimeout)
			continue
		}

		r.handle(ctx, h, raw)
	}
}

func (r *Redis) handle(ctx context.Context, h Handler, raw string) {
	// Settling must finish even while shutting down.
	settleCtx := context.WithoutCancel(ctx)

	var t Task
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		log.Printf("queue dropped undecodable task: queue=%s err=%v", r.opts.Name, err)
		r.settle(settleCtx, raw, func(pipe redis.Pipeliner) {
			pipe.LPush(settleCtx, r.deadKey(), raw)
		})
		return
	}

	state, _ := r.opts.run(ctx, h, t)
	plan, err := planSettle(r.opts, t, state, time.Now())
	if err != nil {
		log.Printf("queue encode retry failed, dead-lettering: queue=%s id=%s err=%v", r.opts.Name, t.ID, err)
	}
	switch {
	case plan.dead:
		r.settle(settleCtx, raw, func(pipe redis.Pipeliner) {
			pipe.LPush(settleCtx, r.deadKey(), raw)
		})
	case plan.retry != nil:
		due := float64(plan.due.UnixMilli())
		r.settle(settleCtx, raw, func(pipe redis.Pipeliner) {
			pipe.ZAdd(settleCtx, r.delayedKey(), &redis.Z{Score: due, Member: plan.retry})
		})
	default:
		r.settle(settleCtx, raw, nil)
	}
}

// settlement is where a handled task goes once it leaves the processing list.
// The zero value drops it.
type settlement struct {
	dead  bool
	retry []byte
	due   time.Time
}

// planSettle maps the outcome of a run to a settlement. A retry that cannot
// be encoded goes to the dead list so it never stays in processing.
func planSettle(o Options, t Task, state State, now time.Time) (settlement, error) {
	switch state {
	case StateFailedRetryable:
		next, delay := o.retry(t)
		body, err := json.Marshal(next)
		if err != nil {
			return settlement{dead: true}, err
		}
		return settlement{retry: body, due: now.Add(delay)}, nil
	case StateFailedTerminal:
		return settlement{dead: true}, nil
	}
	return settlement{}, nil
}

func (r *Redis) settle(ctx context.Context, raw string, then func(pipe redis.Pipeliner)) {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, r.processingKey(), 1, raw)
		if then != nil {
			then(pipe)
		}
		return nil
	})
	if err != nil {
		log.Printf("queue settle failed: queue=%s err=%v", r.opts.Name, err)
	}
}

// DeadLength reports how many tasks sit in the dead list.
func (r *Redis) DeadLength(ctx context.Context) (int64, error) {
	return r.client.LLen(ctx, r.deadKey()).Result()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
