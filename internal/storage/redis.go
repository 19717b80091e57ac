package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisEngine implements KVEngine on a Redis server.
//
// Every key is stored as "<prefix><key>" so several installations can share
// one Redis database.
type RedisEngine struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// NewRedisEngine connects to Redis and verifies the connection with PING.
func NewRedisEngine(cfg RedisConfig, logger *slog.Logger) (*RedisEngine, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis: addr is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", cfg.Addr, err)
	}

	logger.Debug("redis engine connected", "addr", cfg.Addr, "db", cfg.DB, "prefix", cfg.Prefix)

	return NewRedisEngineFromClient(client, cfg.Prefix, logger), nil
}

// NewRedisEngineFromClient wraps an existing client.
func NewRedisEngineFromClient(client *redis.Client, prefix string, logger *slog.Logger) *RedisEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisEngine{
		client: client,
		prefix: prefix,
		logger: logger,
	}
}

func (e *RedisEngine) key(k []byte) string {
	return e.prefix + string(k)
}

// Get retrieves a value by key.
func (e *RedisEngine) Get(ctx context.Context, key []byte) ([]byte, error) {
	v, err := e.client.Get(ctx, e.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrKeyNotFound
		}
		if errors.Is(err, redis.ErrClosed) {
			return nil, ErrClosed
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return v, nil
}

// Set stores a key-value pair without expiry.
func (e *RedisEngine) Set(ctx context.Context, key, value []byte) error {
	if err := e.client.Set(ctx, e.key(key), value, 0).Err(); err != nil {
		if errors.Is(err, redis.ErrClosed) {
			return ErrClosed
		}
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes a key.
func (e *RedisEngine) Delete(ctx context.Context, key []byte) error {
	if err := e.client.Del(ctx, e.key(key)).Err(); err != nil {
		if errors.Is(err, redis.ErrClosed) {
			return ErrClosed
		}
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Stats reports the engine name; Redis memory is shared and not attributed.
func (e *RedisEngine) Stats(ctx context.Context) (*KVStats, error) {
	return &KVStats{Engine: EngineRedis}, nil
}

// Close closes the underlying client.
func (e *RedisEngine) Close() error {
	return e.client.Close()
}
