package realtime

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher sends events with PUBLISH so other service instances and
// external consumers subscribed to the channel receive them.
type RedisPublisher struct {
	client redis.Cmdable
	stamp  stamper
}

func NewRedisPublisher(client redis.Cmdable) *RedisPublisher {
	return &RedisPublisher{client: client, stamp: defaultStamper()}
}

// NewRedisClient parses a redis:// or rediss:// URL and verifies the server answers
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return rdb, nil
}

func (p *RedisPublisher) Publish(ctx context.Context, channel, event string, payload any) error {
	_, body, err := p.stamp.encode(channel, event, payload)
	if err != nil {
		return err
	}
	if err := p.client.Publish(ctx, channel, string(body)).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", channel, err)
	}
	return nil
}
