package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ProstoyVadila/ml-service/internal/config"
	"github.com/ProstoyVadila/ml-service/internal/domain"
	"github.com/ProstoyVadila/ml-service/internal/logger"
	"github.com/ProstoyVadila/ml-service/internal/port"
)

// NewRedisClient connects to Redis and pings it.
func NewRedisClient(ctx context.Context, cfg *config.CacheConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

// Redis stores field lists as JSON with a TTL. Entries for different
// sources never collide.
type Redis struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedis creates a Redis cache. A zero ttl keeps entries forever.
func NewRedis(client redis.Cmdable, prefix string, ttl time.Duration, l *zap.Logger) *Redis {
	if prefix == "" {
		prefix = "fields"
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl, logger: logger.OrNop(l)}
}

// Factory returns a cache Factory scoping r to each source.
func (r *Redis) Factory() Factory {
	return func(source domain.CapabilitySource) port.FieldCache {
		return &redisFieldCache{r: r, source: source}
	}
}

// Key builds the storage key for text under source.
func (r *Redis) Key(source domain.CapabilitySource, text string) string {
	sum := sha256.Sum256([]byte(text))
	return r.prefix + ":" + source.String() + ":" + hex.EncodeToString(sum[:])
}

type cachedField struct {
	Field      string                  `json:"field"`
	Value      string                  `json:"value"`
	Confidence float64                 `json:"confidence"`
	Source     domain.CapabilitySource `json:"source"`
	Error      string                  `json:"error,omitempty"`
}

type redisFieldCache struct {
	r      *Redis
	source domain.CapabilitySource
}

func (c *redisFieldCache) Get(ctx context.Context, text string) ([]domain.ExtractionField, bool) {
	key := c.r.Key(c.source, text)
	raw, err := c.r.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.r.logger.Warn("cache: redis get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	var stored []cachedField
	if err := json.Unmarshal(raw, &stored); err != nil {
		c.r.logger.Warn("cache: corrupt entry", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	fields := make([]domain.ExtractionField, len(stored))
	for i, s := range stored {
		fields[i] = domain.ExtractionField{
			Field:      s.Field,
			Value:      s.Value,
			Confidence: s.Confidence,
			Source:     s.Source,
		}
		if s.Error != "" {
			fields[i].Err = errors.New(s.Error)
		}
	}
	return fields, true
}

func (c *redisFieldCache) Set(ctx context.Context, text string, fields []domain.ExtractionField) {
	stored := make([]cachedField, len(fields))
	for i, f := range fields {
		stored[i] = cachedField{
			Field:      f.Field,
			Value:      f.Value,
			Confidence: f.Confidence,
			Source:     f.Source,
		}
		if f.Err != nil {
			stored[i].Error = f.Err.Error()
		}
	}

	raw, err := json.Marshal(stored)
	if err != nil {
		c.r.logger.Warn("cache: marshal failed", zap.Error(err))
		return
	}

	key := c.r.Key(c.source, text)
	if err := c.r.client.Set(ctx, key, raw, c.r.ttl).Err(); err != nil {
		c.r.logger.Warn("cache: redis set failed", zap.String("key", key), zap.Error(err))
	}
}
