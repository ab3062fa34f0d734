package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	Addr     string // e.g. "localhost:6379"
	Password string
	DB       int
}

// RedisBlob stores each object as a Redis string value under its series key.
// The storage prefix is already part of that key.
type RedisBlob struct {
	client *goredis.Client
}

// NewRedisBlob connects and pings the server.
func NewRedisBlob(ctx context.Context, cfg RedisConfig) (*RedisBlob, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	slog.Info("redis store connected", "addr", cfg.Addr)
	return &RedisBlob{client: client}, nil
}

func (r *RedisBlob) Name() string { return "redis" }

func (r *RedisBlob) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrNotFound
	}
	return data, err
}

// Put uses a single SET, which replaces the value atomically.
func (r *RedisBlob) Put(ctx context.Context, key string, data []byte) error {
	return r.client.Set(ctx, key, data, 0).Err()
}

func (r *RedisBlob) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Close releases the connection pool.
func (r *RedisBlob) Close() error { return r.client.Close() }
