package queue

import (
	"context"
	"fmt"
)

const (
	DriverRedis    = "redis"
	DriverRabbitMQ = "rabbitmq"
	DriverMemory   = "memory"
)

type Config struct {
	Driver    string
	RedisURL  string
	RabbitURL string
	Options   Options
}

// Open connects the configured backend.
func Open(ctx context.Context, cfg Config) (Queue, error) {
	switch cfg.Driver {
	case DriverRedis, "":
		client, err := NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		return NewRedis(client, cfg.Options), nil
	case DriverRabbitMQ:
		return NewRabbitMQ(cfg.RabbitURL, cfg.Options)
	case DriverMemory:
		return NewMemory(cfg.Options), nil
	default:
		return nil, fmt.Errorf("unknown queue driver %q", cfg.Driver)
	}
}
