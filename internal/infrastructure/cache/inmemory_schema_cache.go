package cache

import (
	"context"
	"sync"

	"github.com/leadscore/backend/internal/domain/rules"
)

// InMemorySchemaCache is a process-local schema cache used when Redis
// is disabled, and as the first tier in front of it. Entries never
// expire; schemas are immutable and small.
type InMemorySchemaCache struct {
	mu      sync.RWMutex
	schemas map[string]*rules.Schema
}

// NewInMemorySchemaCache creates an empty in-memory schema cache.
func NewInMemorySchemaCache() *InMemorySchemaCache {
	return &InMemorySchemaCache{schemas: make(map[string]*rules.Schema)}
}

// Get retrieves a schema from cache.
func (c *InMemorySchemaCache) Get(_ context.Context, name, version string) (*rules.Schema, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	schema, ok := c.schemas[schemaCacheKey(name, version)]
	return schema, ok
}

// Set stores a schema in cache.
func (c *InMemorySchemaCache) Set(_ context.Context, schema *rules.Schema) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.schemas[schemaCacheKey(schema.Name, schema.Version)] = schema
}

// TieredSchemaCache layers the in-memory cache in front of Redis so a
// warm process never pays the network round trip.
type TieredSchemaCache struct {
	local  *InMemorySchemaCache
	remote *RedisSchemaCache
}

// NewTieredSchemaCache creates a two-tier schema cache.
func NewTieredSchemaCache(remote *RedisSchemaCache) *TieredSchemaCache {
	return &TieredSchemaCache{
		local:  NewInMemorySchemaCache(),
		remote: remote,
	}
}

// Get checks the local tier first, falling back to Redis and
// backfilling the local tier on a remote hit.
func (c *TieredSchemaCache) Get(ctx context.Context, name, version string) (*rules.Schema, bool) {
	if schema, ok := c.local.Get(ctx, name, version); ok {
		return schema, true
	}
	schema, ok := c.remote.Get(ctx, name, version)
	if ok {
		c.local.Set(ctx, schema)
	}
	return schema, ok
}

// Set writes through both tiers.
func (c *TieredSchemaCache) Set(ctx context.Context, schema *rules.Schema) {
	c.local.Set(ctx, schema)
	c.remote.Set(ctx, schema)
}
