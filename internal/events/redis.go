package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/cesargomez89/karaqueue/internal/logger"
)

// RedisPublisher publishes events as JSON on a Redis pub/sub channel.
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
	logger  *logger.Logger
}

func NewRedisPublisher(rdb *redis.Client, channel string, log *logger.Logger) *RedisPublisher {
	return &RedisPublisher{
		rdb:     rdb,
		channel: channel,
		logger:  log.WithComponent("events"),
	}
}

func (p *RedisPublisher) Notify(ctx context.Context, e Event) {
	if p.rdb == nil {
		return
	}
	data, err := json.Marshal(e)
	if err != nil {
		p.logger.Error("Failed to marshal event", "event", e.Type, "error", err)
		return
	}
	if err := p.rdb.Publish(ctx, p.channel, string(data)).Err(); err != nil {
		p.logger.Warn("Failed to publish event", "event", e.Type, "channel", p.channel, "error", err)
	}
}

var _ Notifier = (*RedisPublisher)(nil)
