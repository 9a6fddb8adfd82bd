package rules

import (
	"context"
	"fmt"

	"github.com/leadscore/backend/internal/domain/rules"
	"github.com/leadscore/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// SchemaCache is a read-through cache over published schemas. Schemas
// are immutable, so cached entries never go stale; eviction is purely
// a capacity concern.
type SchemaCache interface {
	Get(ctx context.Context, name, version string) (*rules.Schema, bool)
	Set(ctx context.Context, schema *rules.Schema)
}

// SchemaService manages publishing and resolving rule schemas.
type SchemaService struct {
	repo   rules.SchemaRepository
	cache  SchemaCache
	logger *zap.Logger
}

// NewSchemaService creates a schema service. cache may be nil.
func NewSchemaService(repo rules.SchemaRepository, cache SchemaCache, logger *zap.Logger) *SchemaService {
	return &SchemaService{
		repo:   repo,
		cache:  cache,
		logger: logger,
	}
}

// Publish validates and stores a new schema version. Published schemas
// are immutable; republishing an existing (name, version) fails.
func (s *SchemaService) Publish(ctx context.Context, schema *rules.Schema) (*rules.Schema, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByNameVersion(ctx, schema.Name, schema.Version)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, shared.NewDomainError("ALREADY_EXISTS",
			fmt.Sprintf("schema %s version %s already published", schema.Name, schema.Version))
	}

	if err := s.repo.Create(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to store schema: %w", err)
	}

	if s.cache != nil {
		s.cache.Set(ctx, schema)
	}

	s.logger.Info("rule schema published",
		zap.String("name", schema.Name),
		zap.String("version", schema.Version),
		zap.String("type", string(schema.Type)))

	return schema, nil
}

// Get resolves a schema by name and version, reading through the cache.
// Satisfies the shadow executor's schema provider.
func (s *SchemaService) Get(ctx context.Context, name, version string) (*rules.Schema, error) {
	if s.cache != nil {
		if schema, ok := s.cache.Get(ctx, name, version); ok {
			return schema, nil
		}
	}

	schema, err := s.repo.FindByNameVersion(ctx, name, version)
	if err != nil {
		return nil, err
	}
	if schema == nil {
		return nil, shared.NewDomainError("NOT_FOUND",
			fmt.Sprintf("schema %s version %s not found", name, version))
	}

	if s.cache != nil {
		s.cache.Set(ctx, schema)
	}
	return schema, nil
}

// ListVersions returns all published versions of a schema name.
func (s *SchemaService) ListVersions(ctx context.Context, name string) ([]*rules.Schema, error) {
	return s.repo.ListByName(ctx, name)
}

// ListAll returns every published schema.
func (s *SchemaService) ListAll(ctx context.Context) ([]*rules.Schema, error) {
	return s.repo.ListAll(ctx)
}
