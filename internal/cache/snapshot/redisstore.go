package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mohammed-shakir/gridsight/internal/core/observability"
)

const (
	redisSnapshotKey = "gridsight:snapshot"
	redisNamespace   = "gridsight:*"
)

type RedisOption func(*redis.Options)

func WithDialTimeout(d time.Duration) RedisOption {
	return func(o *redis.Options) { o.DialTimeout = d }
}

func WithReadTimeout(d time.Duration) RedisOption {
	return func(o *redis.Options) { o.ReadTimeout = d }
}

func WithWriteTimeout(d time.Duration) RedisOption {
	return func(o *redis.Options) { o.WriteTimeout = d }
}

type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(ctx context.Context, addr string, opts ...RedisOption) (*RedisStore, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}

	ro := &redis.Options{
		Addr:         addr,
		PoolSize:     16,
		MinIdleConns: 2,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	}
	for _, f := range opts {
		f(ro)
	}

	rdb := redis.NewClient(ro)

	err := rdb.Ping(ctx).Err()
	observability.ObserveSnapshotOp("ping", err)
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{rdb: rdb}, nil
}

func (s *RedisStore) Load(ctx context.Context) ([]byte, error) {
	b, err := s.rdb.Get(ctx, redisSnapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		observability.ObserveSnapshotOp("load", nil)
		return nil, ErrNotFound
	}
	observability.ObserveSnapshotOp("load", err)
	if err != nil {
		return nil, fmt.Errorf("redis GET %q: %w", redisSnapshotKey, err)
	}
	return b, nil
}

func (s *RedisStore) Save(ctx context.Context, blob []byte) error {
	err := s.rdb.Set(ctx, redisSnapshotKey, blob, 0).Err()
	observability.ObserveSnapshotOp("save", err)
	if err != nil {
		return fmt.Errorf("redis SET %q: %w", redisSnapshotKey, err)
	}
	return nil
}

// Prune deletes every key in the service namespace.
func (s *RedisStore) Prune(ctx context.Context) error {
	keys, err := s.rdb.Keys(ctx, redisNamespace).Result()
	if err != nil {
		observability.ObserveSnapshotOp("prune", err)
		return fmt.Errorf("redis KEYS %q: %w", redisNamespace, err)
	}
	if len(keys) == 0 {
		observability.ObserveSnapshotOp("prune", nil)
		return nil
	}
	err = s.rdb.Del(ctx, keys...).Err()
	observability.ObserveSnapshotOp("prune", err)
	if err != nil {
		return fmt.Errorf("redis DEL %d keys: %w", len(keys), err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	if err := s.rdb.Close(); err != nil {
		return fmt.Errorf("redis close: %w", err)
	}
	return nil
}
