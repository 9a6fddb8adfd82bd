package persistence

import (
	"context"

	"github.com/leadscore/backend/internal/domain/scoring"
	"github.com/leadscore/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormAlertRepository implements AlertRepository using GORM
type GormAlertRepository struct {
	db *gorm.DB
}

// NewGormAlertRepository creates a new GormAlertRepository
func NewGormAlertRepository(db *gorm.DB) *GormAlertRepository {
	return &GormAlertRepository{db: db}
}

// Save inserts an alert record.
func (r *GormAlertRepository) Save(ctx context.Context, alert *scoring.Alert) error {
	var model models.AlertModel
	model.FromDomain(alert)
	return r.db.WithContext(ctx).Create(&model).Error
}

// ListRecent returns the latest alerts for a tool, newest first.
func (r *GormAlertRepository) ListRecent(ctx context.Context, tool string, limit int) ([]*scoring.Alert, error) {
	var rows []models.AlertModel
	err := r.db.WithContext(ctx).
		Where("tool_name = ?", tool).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	alerts := make([]*scoring.Alert, 0, len(rows))
	for i := range rows {
		alerts = append(alerts, rows[i].ToDomain())
	}
	return alerts, nil
}
