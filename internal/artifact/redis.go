package artifact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/raaihank/packlist-sanitizer/internal/logger"
)

// RedisConfig contains Redis store configuration
type RedisConfig struct {
	RedisURL  string
	KeyPrefix string
	PoolSize  int
	TTL       time.Duration
}

// RedisStore keeps artifacts in Redis so any replica can serve a download
type RedisStore struct {
	client *redis.Client
	config RedisConfig
	logger *logger.Logger

	stored, hits, misses atomic.Int64
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(ctx context.Context, config RedisConfig, log *logger.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}

	store := &RedisStore{
		client: redis.NewClient(opts),
		config: config,
		logger: log,
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := store.client.Ping(pingCtx).Err(); err != nil {
		store.client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info("Artifact store initialized",
		zap.String("backend", "redis"),
		zap.String("redis_url", logger.MaskURL(config.RedisURL)),
		zap.Int("pool_size", opts.PoolSize),
		zap.Duration("ttl", config.TTL))

	return store, nil
}

func (rs *RedisStore) key(name string) string {
	return rs.config.KeyPrefix + name
}

// Put stores a with the configured TTL
func (rs *RedisStore) Put(ctx context.Context, a *Artifact) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}

	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal artifact: %w", err)
	}

	if err := rs.client.Set(ctx, rs.key(a.Name), data, rs.config.TTL).Err(); err != nil {
		rs.logger.Error("Failed to store artifact", zap.String("name", a.Name), zap.Error(err))
		return fmt.Errorf("failed to store artifact: %w", err)
	}

	rs.stored.Add(1)
	rs.logger.Debug("Artifact stored", zap.String("name", a.Name), zap.Int("bytes", len(a.Data)))
	return nil
}

// Get returns the artifact or ErrNotFound
func (rs *RedisStore) Get(ctx context.Context, name string) (*Artifact, error) {
	raw, err := rs.client.Get(ctx, rs.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		rs.misses.Add(1)
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load artifact: %w", err)
	}

	var a Artifact
	if err := json.Unmarshal(raw, &a); err != nil {
		rs.logger.Error("Corrupted artifact, deleting", zap.String("name", name), zap.Error(err))
		rs.client.Del(ctx, rs.key(name))
		rs.misses.Add(1)
		return nil, ErrNotFound
	}

	rs.hits.Add(1)
	return &a, nil
}

// Delete removes an artifact
func (rs *RedisStore) Delete(ctx context.Context, name string) error {
	if err := rs.client.Del(ctx, rs.key(name)).Err(); err != nil {
		return fmt.Errorf("failed to delete artifact: %w", err)
	}
	return nil
}

// Stats returns usage counters and the number of live artifact keys
func (rs *RedisStore) Stats(ctx context.Context) (*Stats, error) {
	var keys int64
	iter := rs.client.Scan(ctx, 0, rs.config.KeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys++
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan artifact keys: %w", err)
	}

	hits, misses := rs.hits.Load(), rs.misses.Load()
	return &Stats{
		Backend: "redis",
		Stored:  rs.stored.Load(),
		Hits:    hits,
		Misses:  misses,
		HitRate: hitRate(hits, misses),
		Keys:    keys,
	}, nil
}

// Close closes the Redis connection
func (rs *RedisStore) Close() error {
	if rs.client != nil {
		return rs.client.Close()
	}
	return nil
}
