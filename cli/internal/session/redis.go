package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Zkeai/DDPay-web/common/database"
)

// RedisPersister stores blobs as plain string values under prefix+key.
type RedisPersister struct {
	client *redis.Client
	prefix string
}

// NewRedisPersister connects to redisURL and verifies the connection.
func NewRedisPersister(ctx context.Context, redisURL, prefix string) (*RedisPersister, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := database.ConnectContext(ctx)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &RedisPersister{client: client, prefix: prefix}, nil
}

func (r *RedisPersister) Load(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := database.QueryContext(ctx)
	defer cancel()

	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return data, nil
}

func (r *RedisPersister) Save(ctx context.Context, key string, data []byte) error {
	ctx, cancel := database.WriteContext(ctx)
	defer cancel()

	if err := r.client.Set(ctx, r.prefix+key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close closes the redis connection.
func (r *RedisPersister) Close() error {
	return r.client.Close()
}
