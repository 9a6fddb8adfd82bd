package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/leadscore/backend/internal/domain/scoring"
	"github.com/leadscore/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormDecisionRepository implements DecisionRepository using GORM
type GormDecisionRepository struct {
	db *gorm.DB
}

// NewGormDecisionRepository creates a new GormDecisionRepository
func NewGormDecisionRepository(db *gorm.DB) *GormDecisionRepository {
	return &GormDecisionRepository{db: db}
}

// Save inserts the decision record. A retry after a partial write hits
// the primary key conflict and is a no-op.
func (r *GormDecisionRepository) Save(ctx context.Context, decision *scoring.Decision) error {
	var model models.DecisionModel
	model.FromDomain(decision)

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).
		Create(&model).Error
}

// FindByID retrieves a decision by ID, returning nil when absent.
func (r *GormDecisionRepository) FindByID(ctx context.Context, id uuid.UUID) (*scoring.Decision, error) {
	var model models.DecisionModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// CountSince counts decisions for a tool version since a point in time.
func (r *GormDecisionRepository) CountSince(ctx context.Context, tool, version string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.DecisionModel{}).
		Where("tool_name = ? AND rule_version = ? AND created_at >= ?", tool, version, since).
		Count(&count).Error
	return count, err
}

// AvgConfidenceSince returns the average output confidence and the
// number of decisions it was computed over.
func (r *GormDecisionRepository) AvgConfidenceSince(ctx context.Context, tool, version string, since time.Time) (float64, int64, error) {
	var row struct {
		Avg   float64
		Count int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.DecisionModel{}).
		Select("COALESCE(AVG((output_data->>'confidence')::float), 0) AS avg, COUNT(*) AS count").
		Where("tool_name = ? AND rule_version = ? AND created_at >= ?", tool, version, since).
		Scan(&row).Error
	return row.Avg, row.Count, err
}

// CountWithoutFeedback counts decisions that have no outcome report yet.
func (r *GormDecisionRepository) CountWithoutFeedback(ctx context.Context, tool string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.DecisionModel{}).
		Joins("LEFT JOIN decision_feedback ON decision_feedback.decision_id = decisions.id").
		Where("decisions.tool_name = ? AND decisions.created_at >= ? AND decision_feedback.id IS NULL", tool, since).
		Count(&count).Error
	return count, err
}

// ShadowStatsSince aggregates shadow comparison outcomes for a tool.
func (r *GormDecisionRepository) ShadowStatsSince(ctx context.Context, tool string, since time.Time) (scoring.ShadowStats, error) {
	var row struct {
		Total        int64
		Compared     int64
		Matched      int64
		AvgScoreDiff float64
		AvgConfDiff  float64
	}
	err := r.db.WithContext(ctx).
		Model(&models.DecisionModel{}).
		Select(`COUNT(*) AS total,
			COUNT(shadow_match) AS compared,
			COUNT(*) FILTER (WHERE shadow_match) AS matched,
			COALESCE(AVG((shadow_data->'comparison'->>'score_diff')::float), 0) AS avg_score_diff,
			COALESCE(AVG((shadow_data->'comparison'->>'confidence_diff')::float), 0) AS avg_conf_diff`).
		Where("tool_name = ? AND created_at >= ?", tool, since).
		Scan(&row).Error
	if err != nil {
		return scoring.ShadowStats{}, err
	}
	return scoring.ShadowStats{
		Total:        row.Total,
		Compared:     row.Compared,
		Matched:      row.Matched,
		AvgScoreDiff: row.AvgScoreDiff,
		AvgConfDiff:  row.AvgConfDiff,
	}, nil
}

// VersionStatsSince aggregates decision volume, feedback outcomes and
// latency for one rule version of a tool.
func (r *GormDecisionRepository) VersionStatsSince(ctx context.Context, tool, version string, since time.Time) (scoring.VersionStats, error) {
	var row struct {
		DecisionCount int64
		AvgConfidence float64
		AvgLatencyMS  float64
	}
	err := r.db.WithContext(ctx).
		Model(&models.DecisionModel{}).
		Select(`COUNT(*) AS decision_count,
			COALESCE(AVG((output_data->>'confidence')::float), 0) AS avg_confidence,
			COALESCE(AVG(latency_ms), 0) AS avg_latency_ms`).
		Where("tool_name = ? AND rule_version = ? AND created_at >= ?", tool, version, since).
		Scan(&row).Error
	if err != nil {
		return scoring.VersionStats{}, err
	}

	var fbRow struct {
		FeedbackCount int64
		PositiveCount int64
	}
	err = r.db.WithContext(ctx).
		Model(&models.FeedbackModel{}).
		Select(`COUNT(*) AS feedback_count,
			COUNT(*) FILTER (WHERE outcome_positive) AS positive_count`).
		Joins("JOIN decisions ON decisions.id = decision_feedback.decision_id").
		Where("decisions.tool_name = ? AND decisions.rule_version = ? AND decision_feedback.created_at >= ?", tool, version, since).
		Scan(&fbRow).Error
	if err != nil {
		return scoring.VersionStats{}, err
	}

	return scoring.VersionStats{
		Version:       version,
		DecisionCount: row.DecisionCount,
		FeedbackCount: fbRow.FeedbackCount,
		PositiveCount: fbRow.PositiveCount,
		AvgConfidence: row.AvgConfidence,
		AvgLatencyMS:  row.AvgLatencyMS,
	}, nil
}

// ListWithNegativeFeedback returns decisions that received at least one
// negative outcome report, oldest first, bounded by limit.
func (r *GormDecisionRepository) ListWithNegativeFeedback(ctx context.Context, tool, version string, since time.Time, limit int) ([]*scoring.Decision, error) {
	var rows []models.DecisionModel
	err := r.db.WithContext(ctx).
		Model(&models.DecisionModel{}).
		Distinct("decisions.*").
		Joins("JOIN decision_feedback ON decision_feedback.decision_id = decisions.id").
		Where("decisions.tool_name = ? AND decisions.rule_version = ? AND decisions.created_at >= ? AND decision_feedback.outcome_positive = false",
			tool, version, since).
		Order("decisions.created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDecisions(rows), nil
}

// ListMismatchedSince returns decisions whose shadow comparison
// disagreed with the legacy output, newest first.
func (r *GormDecisionRepository) ListMismatchedSince(ctx context.Context, tool string, since time.Time, limit int) ([]*scoring.Decision, error) {
	var rows []models.DecisionModel
	err := r.db.WithContext(ctx).
		Where("tool_name = ? AND created_at >= ? AND shadow_match = false", tool, since).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDecisions(rows), nil
}

func toDecisions(rows []models.DecisionModel) []*scoring.Decision {
	decisions := make([]*scoring.Decision, 0, len(rows))
	for i := range rows {
		decisions = append(decisions, rows[i].ToDomain())
	}
	return decisions
}
