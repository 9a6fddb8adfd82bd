package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/leadscore/backend/internal/domain/rules"
	"github.com/leadscore/backend/internal/domain/shared"
	"github.com/leadscore/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSchemaRepository implements SchemaRepository using GORM
type GormSchemaRepository struct {
	db *gorm.DB
}

// NewGormSchemaRepository creates a new GormSchemaRepository
func NewGormSchemaRepository(db *gorm.DB) *GormSchemaRepository {
	return &GormSchemaRepository{db: db}
}

// Create stores a new schema version. An existing (name, version) pair
// is rejected; published schemas are immutable.
func (r *GormSchemaRepository) Create(ctx context.Context, schema *rules.Schema) error {
	var model models.RuleSchemaModel
	if err := model.FromDomain(schema); err != nil {
		return err
	}
	model.ID = uuid.New()
	model.CreatedAt = time.Now()

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}, {Name: "version"}},
			DoNothing: true,
		}).
		Create(&model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("ALREADY_EXISTS", "Schema with this name and version already exists")
	}
	return nil
}

// FindByNameVersion retrieves a schema, returning nil when absent.
func (r *GormSchemaRepository) FindByNameVersion(ctx context.Context, name, version string) (*rules.Schema, error) {
	var model models.RuleSchemaModel
	err := r.db.WithContext(ctx).
		Where("name = ? AND version = ?", name, version).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListByName returns every published version of a schema, oldest first.
func (r *GormSchemaRepository) ListByName(ctx context.Context, name string) ([]*rules.Schema, error) {
	var rows []models.RuleSchemaModel
	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toSchemas(rows), nil
}

// ListAll returns every published schema.
func (r *GormSchemaRepository) ListAll(ctx context.Context) ([]*rules.Schema, error) {
	var rows []models.RuleSchemaModel
	err := r.db.WithContext(ctx).
		Order("name ASC, created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toSchemas(rows), nil
}

func toSchemas(rows []models.RuleSchemaModel) []*rules.Schema {
	schemas := make([]*rules.Schema, 0, len(rows))
	for i := range rows {
		if s := rows[i].ToDomain(); s != nil {
			schemas = append(schemas, s)
		}
	}
	return schemas
}
