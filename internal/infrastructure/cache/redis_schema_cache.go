package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/leadscore/backend/internal/domain/rules"
	"github.com/leadscore/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisSchemaCache caches published rule schemas in Redis. Cache
// failures degrade to misses; the repository stays authoritative.
type RedisSchemaCache struct {
	client     *redis.Client
	ownsClient bool
	ttl        time.Duration
	logger     *zap.Logger
}

// NewRedisSchemaCache creates a schema cache with its own Redis client.
func NewRedisSchemaCache(cfg config.RedisConfig, logger *zap.Logger) (*RedisSchemaCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisSchemaCache{
		client:     client,
		ownsClient: true,
		ttl:        cfg.TTL,
		logger:     logger,
	}, nil
}

// NewRedisSchemaCacheWithClient creates a cache over an existing client.
// The caller retains ownership of the client.
func NewRedisSchemaCacheWithClient(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisSchemaCache {
	return &RedisSchemaCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func schemaCacheKey(name, version string) string {
	return fmt.Sprintf("rule_schema:%s:%s", name, version)
}

// Get retrieves a schema from cache.
func (c *RedisSchemaCache) Get(ctx context.Context, name, version string) (*rules.Schema, bool) {
	data, err := c.client.Get(ctx, schemaCacheKey(name, version)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("schema cache read failed",
			zap.String("name", name),
			zap.String("version", version),
			zap.Error(err))
		return nil, false
	}

	var schema rules.Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		c.logger.Warn("schema cache entry corrupt",
			zap.String("name", name),
			zap.String("version", version),
			zap.Error(err))
		return nil, false
	}
	return &schema, true
}

// Set stores a schema in cache. Schemas are immutable, so the TTL is
// purely a memory bound.
func (c *RedisSchemaCache) Set(ctx context.Context, schema *rules.Schema) {
	data, err := json.Marshal(schema)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, schemaCacheKey(schema.Name, schema.Version), data, c.ttl).Err(); err != nil {
		c.logger.Warn("schema cache write failed",
			zap.String("name", schema.Name),
			zap.String("version", schema.Version),
			zap.Error(err))
	}
}

// Close releases the Redis client if this cache owns it.
func (c *RedisSchemaCache) Close() error {
	if c.ownsClient {
		return c.client.Close()
	}
	return nil
}
