package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClients holds separate connections for publishing session events and
// for the long-lived subscriptions of the websocket hub.
type RedisClients struct {
	Publish   *redis.Client
	Subscribe *redis.Client
}

func NewRedisClients(redisURL string) (*RedisClients, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	publishClient := redis.NewClient(opt)
	if err := publishClient.Ping(ctx).Err(); err != nil {
		publishClient.Close()
		return nil, fmt.Errorf("failed to ping Redis (publish): %w", err)
	}

	// Subscriptions hold their connection, keep them off the publish pool
	subOpt := *opt
	subscribeClient := redis.NewClient(&subOpt)
	if err := subscribeClient.Ping(ctx).Err(); err != nil {
		publishClient.Close()
		subscribeClient.Close()
		return nil, fmt.Errorf("failed to ping Redis (subscribe): %w", err)
	}

	return &RedisClients{
		Publish:   publishClient,
		Subscribe: subscribeClient,
	}, nil
}

func (r *RedisClients) Close() {
	r.Publish.Close()
	r.Subscribe.Close()
}
