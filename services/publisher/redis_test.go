package publisher

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisPublisher(t *testing.T) {
	ctx := context.Background()

	// Test if Redis is available
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   0,
	})
	defer client.Close()

	if _, err := client.Ping(ctx).Result(); err != nil {
		t.Skip("Redis is not available, skipping test")
	}

	pub := NewRedisPublisher(ctx, "localhost:6379", 0, "test_radar", 100)
	defer pub.Close()

	stream := "test_radar:naver_cafe"
	client.Del(ctx, stream)

	err := pub.Publish("naver_cafe", []byte(`{"title":"학원 후기"}`))
	require.NoError(t, err)

	entries, err := client.XRange(ctx, stream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, `{"title":"학원 후기"}`, entries[0].Values["post"])

	client.Del(ctx, stream)
}
