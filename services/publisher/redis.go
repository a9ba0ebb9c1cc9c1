package publisher

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher implements Publisher using Redis streams. Each source
// type gets its own stream under the configured prefix so dashboard
// consumers can subscribe per platform.
type RedisPublisher struct {
	client       *redis.Client
	ctx          context.Context
	streamPrefix string
	maxLength    int64
}

// NewRedisPublisher creates a new Redis publisher
func NewRedisPublisher(ctx context.Context, addr string, db int, streamPrefix string, maxLength int64) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	return &RedisPublisher{
		client:       client,
		ctx:          ctx,
		streamPrefix: streamPrefix,
		maxLength:    maxLength,
	}
}

// Publish appends a message to the stream for the given source type,
// capping the stream length as it goes.
func (p *RedisPublisher) Publish(sourceType string, message []byte) error {
	stream := p.streamPrefix + ":" + sourceType

	return p.client.XAdd(p.ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: p.maxLength,
		Approx: true,
		Values: map[string]interface{}{
			"post": message,
		},
	}).Err()
}

// Close closes the Redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
