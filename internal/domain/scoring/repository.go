package scoring

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ShadowStats aggregates shadow-mode comparisons over a window.
type ShadowStats struct {
	Total        int64   `json:"total_decisions"`
	Compared     int64   `json:"compared"`
	Matched      int64   `json:"matched"`
	AvgScoreDiff float64 `json:"avg_score_diff"`
	AvgConfDiff  float64 `json:"avg_confidence_diff"`
}

// MatchRate returns the matched/compared ratio, or 1 when nothing was
// compared yet.
func (s ShadowStats) MatchRate() float64 {
	if s.Compared == 0 {
		return 1
	}
	return float64(s.Matched) / float64(s.Compared)
}

// VersionStats aggregates decision volume and outcomes for one rule
// version of a tool, for experiment comparison.
type VersionStats struct {
	Version       string  `json:"version"`
	DecisionCount int64   `json:"decision_count"`
	FeedbackCount int64   `json:"feedback_count"`
	PositiveCount int64   `json:"positive_count"`
	AvgConfidence float64 `json:"avg_confidence"`
	AvgLatencyMS  float64 `json:"avg_latency_ms"`
}

// SuccessRate returns the positive/feedback ratio, or 0 without samples.
func (s VersionStats) SuccessRate() float64 {
	if s.FeedbackCount == 0 {
		return 0
	}
	return float64(s.PositiveCount) / float64(s.FeedbackCount)
}

// DecisionRepository persists decisions and serves the aggregate reads
// used by the stats endpoints and the performance monitor. Save must be
// idempotent on the decision ID so the async writer can retry safely.
type DecisionRepository interface {
	Save(ctx context.Context, decision *Decision) error
	FindByID(ctx context.Context, id uuid.UUID) (*Decision, error)

	CountSince(ctx context.Context, tool, version string, since time.Time) (int64, error)
	AvgConfidenceSince(ctx context.Context, tool, version string, since time.Time) (float64, int64, error)
	CountWithoutFeedback(ctx context.Context, tool string, since time.Time) (int64, error)
	ShadowStatsSince(ctx context.Context, tool string, since time.Time) (ShadowStats, error)
	VersionStatsSince(ctx context.Context, tool, version string, since time.Time) (VersionStats, error)

	ListWithNegativeFeedback(ctx context.Context, tool, version string, since time.Time, limit int) ([]*Decision, error)
	ListMismatchedSince(ctx context.Context, tool string, since time.Time, limit int) ([]*Decision, error)
}

// FeedbackRepository persists outcome reports.
type FeedbackRepository interface {
	Save(ctx context.Context, feedback *Feedback) error
	ListByDecision(ctx context.Context, decisionID uuid.UUID) ([]*Feedback, error)
	SuccessRateSince(ctx context.Context, tool, version string, since time.Time) (positive, total int64, err error)
}

// TrainingSampleRepository persists harvested samples. SaveBatch must
// tolerate re-harvesting the same decision without duplicating samples.
type TrainingSampleRepository interface {
	SaveBatch(ctx context.Context, samples []*TrainingSample) (int64, error)
	ListByTool(ctx context.Context, tool string, limit int) ([]*TrainingSample, error)
}

// AlertRepository persists monitor alerts.
type AlertRepository interface {
	Save(ctx context.Context, alert *Alert) error
	ListRecent(ctx context.Context, tool string, limit int) ([]*Alert, error)
}
