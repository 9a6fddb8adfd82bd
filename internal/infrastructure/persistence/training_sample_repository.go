package persistence

import (
	"context"

	"github.com/leadscore/backend/internal/domain/scoring"
	"github.com/leadscore/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTrainingSampleRepository implements TrainingSampleRepository using GORM
type GormTrainingSampleRepository struct {
	db *gorm.DB
}

// NewGormTrainingSampleRepository creates a new GormTrainingSampleRepository
func NewGormTrainingSampleRepository(db *gorm.DB) *GormTrainingSampleRepository {
	return &GormTrainingSampleRepository{db: db}
}

// SaveBatch inserts the samples, skipping any decision already
// harvested, and reports how many rows were actually written.
func (r *GormTrainingSampleRepository) SaveBatch(ctx context.Context, samples []*scoring.TrainingSample) (int64, error) {
	if len(samples) == 0 {
		return 0, nil
	}

	rows := make([]models.TrainingSampleModel, len(samples))
	for i, s := range samples {
		rows[i].FromDomain(s)
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "decision_id"}},
			DoNothing: true,
		}).
		Create(&rows)
	return result.RowsAffected, result.Error
}

// ListByTool returns harvested samples for a tool, newest first.
func (r *GormTrainingSampleRepository) ListByTool(ctx context.Context, tool string, limit int) ([]*scoring.TrainingSample, error) {
	var rows []models.TrainingSampleModel
	err := r.db.WithContext(ctx).
		Where("tool_name = ?", tool).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	samples := make([]*scoring.TrainingSample, 0, len(rows))
	for i := range rows {
		samples = append(samples, rows[i].ToDomain())
	}
	return samples, nil
}
