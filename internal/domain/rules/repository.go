package rules

import "context"

// SchemaRepository persists published rule schemas. Schemas are
// immutable: Create rejects an existing (name, version) pair and there
// is deliberately no update operation.
type SchemaRepository interface {
	Create(ctx context.Context, schema *Schema) error
	FindByNameVersion(ctx context.Context, name, version string) (*Schema, error)
	ListByName(ctx context.Context, name string) ([]*Schema, error)
	ListAll(ctx context.Context) ([]*Schema, error)
}
