package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"DeSynth/pkg/models"
	"DeSynth/pkg/wire"
)

// RedisConfig contains the settings of a shared Redis cache
type RedisConfig struct {
	// Redis server address.
	Addr string
	// Password required when connecting to the server.
	Password string
	// DB to use.
	DB int
	// TTL expires entries; zero keeps them until evicted.
	TTL time.Duration
}

// RedisStore is a Redis-backed result cache
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// OpenRedis connects to the server described by cfg and pings it
func OpenRedis(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Addr, err)
	}
	return &RedisStore{client: client, ttl: cfg.TTL}, nil
}

// NewFromRedis creates a store on an existing client
func NewFromRedis(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Get returns the result stored under key
func (s *RedisStore) Get(ctx context.Context, key string) (*models.PipelineResult, error) {
	data, err := s.client.Get(ctx, resultKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("get result: %w", err)
	}

	r, err := wire.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("cached result %s: %w", key, err)
	}
	return r, nil
}

// Put stores a result under key, expiring it after the configured TTL (if any)
func (s *RedisStore) Put(ctx context.Context, key string, r *models.PipelineResult) error {
	if key == "" {
		return errors.New("cache key cannot be empty")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := wire.Marshal(r)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, resultKeyPrefix+key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("set result: %w", err)
	}
	return nil
}

// Delete removes the result stored under key
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, resultKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("delete result: %w", err)
	}
	return nil
}

// Close closes the client connection pool
func (s *RedisStore) Close() error {
	return s.client.Close()
}
