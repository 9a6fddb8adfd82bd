package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/leadscore/backend/internal/domain/scoring"
	"github.com/leadscore/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormFeedbackRepository implements FeedbackRepository using GORM
type GormFeedbackRepository struct {
	db *gorm.DB
}

// NewGormFeedbackRepository creates a new GormFeedbackRepository
func NewGormFeedbackRepository(db *gorm.DB) *GormFeedbackRepository {
	return &GormFeedbackRepository{db: db}
}

// Save inserts a feedback record.
func (r *GormFeedbackRepository) Save(ctx context.Context, feedback *scoring.Feedback) error {
	var model models.FeedbackModel
	model.FromDomain(feedback)
	return r.db.WithContext(ctx).Create(&model).Error
}

// ListByDecision returns all feedback for a decision, oldest first.
func (r *GormFeedbackRepository) ListByDecision(ctx context.Context, decisionID uuid.UUID) ([]*scoring.Feedback, error) {
	var rows []models.FeedbackModel
	err := r.db.WithContext(ctx).
		Where("decision_id = ?", decisionID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	feedbacks := make([]*scoring.Feedback, 0, len(rows))
	for i := range rows {
		feedbacks = append(feedbacks, rows[i].ToDomain())
	}
	return feedbacks, nil
}

// SuccessRateSince counts positive and total outcome reports for a tool
// version since a point in time.
func (r *GormFeedbackRepository) SuccessRateSince(ctx context.Context, tool, version string, since time.Time) (positive, total int64, err error) {
	var row struct {
		Positive int64
		Total    int64
	}
	err = r.db.WithContext(ctx).
		Model(&models.FeedbackModel{}).
		Select(`COUNT(*) FILTER (WHERE outcome_positive) AS positive,
			COUNT(*) AS total`).
		Joins("JOIN decisions ON decisions.id = decision_feedback.decision_id").
		Where("decisions.tool_name = ? AND decisions.rule_version = ? AND decision_feedback.created_at >= ?", tool, version, since).
		Scan(&row).Error
	return row.Positive, row.Total, err
}
