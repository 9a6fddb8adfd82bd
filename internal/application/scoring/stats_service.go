package scoring

import (
	"context"
	"time"

	"github.com/leadscore/backend/internal/domain/scoring"
	"go.uber.org/zap"
)

// RuleComparison summarizes control vs test performance for one tool.
type RuleComparison struct {
	ToolName string               `json:"tool_name"`
	Days     int                  `json:"days"`
	Control  scoring.VersionStats `json:"control"`
	Test     scoring.VersionStats `json:"test"`
	Winner   string               `json:"winner"`
}

// StatsService serves the aggregate views over logged decisions.
type StatsService struct {
	decisionRepo scoring.DecisionRepository
	feedbackRepo scoring.FeedbackRepository
	experiments  ExperimentResolver
	minSamples   int64
	winnerDelta  float64
	logger       *zap.Logger
}

// NewStatsService creates a stats service. minFeedbackSamples is the
// per-arm floor below which no winner is declared; winnerRateDelta is
// the success-rate gap one arm must open before it wins.
func NewStatsService(
	decisionRepo scoring.DecisionRepository,
	feedbackRepo scoring.FeedbackRepository,
	experiments ExperimentResolver,
	minFeedbackSamples int64,
	winnerRateDelta float64,
	logger *zap.Logger,
) *StatsService {
	if winnerRateDelta <= 0 {
		winnerRateDelta = 0.05
	}
	return &StatsService{
		decisionRepo: decisionRepo,
		feedbackRepo: feedbackRepo,
		experiments:  experiments,
		minSamples:   minFeedbackSamples,
		winnerDelta:  winnerRateDelta,
		logger:       logger,
	}
}

// ShadowStats aggregates shadow-mode agreement for a tool over a
// trailing window of days.
func (s *StatsService) ShadowStats(ctx context.Context, tool string, days int) (scoring.ShadowStats, error) {
	since := time.Now().AddDate(0, 0, -days)
	return s.decisionRepo.ShadowStatsSince(ctx, tool, since)
}

// CompareRuleVersions compares two rule versions of a tool over a
// trailing window of days. Empty version arguments fall back to the
// configured control and test arms. A winner is declared only when
// both arms have enough feedback and the success-rate gap is decisive.
func (s *StatsService) CompareRuleVersions(ctx context.Context, tool, controlVersion, testVersion string, days int) (*RuleComparison, error) {
	cfg := s.experiments(tool)
	if controlVersion == "" {
		controlVersion = cfg.ControlVersion
	}
	if testVersion == "" {
		testVersion = cfg.TestVersion
	}
	since := time.Now().AddDate(0, 0, -days)

	control, err := s.decisionRepo.VersionStatsSince(ctx, tool, controlVersion, since)
	if err != nil {
		return nil, err
	}
	test, err := s.decisionRepo.VersionStatsSince(ctx, tool, testVersion, since)
	if err != nil {
		return nil, err
	}

	cmp := &RuleComparison{
		ToolName: tool,
		Days:     days,
		Control:  control,
		Test:     test,
		Winner:   declareWinner(control, test, s.minSamples, s.winnerDelta),
	}
	return cmp, nil
}

// declareWinner picks a version only on sufficient evidence; the safe
// default is inconclusive.
func declareWinner(control, test scoring.VersionStats, minSamples int64, winnerDelta float64) string {
	if control.FeedbackCount < minSamples || test.FeedbackCount < minSamples {
		return "inconclusive"
	}
	delta := test.SuccessRate() - control.SuccessRate()
	switch {
	case delta > winnerDelta:
		return test.Version
	case delta < -winnerDelta:
		return control.Version
	default:
		return "inconclusive"
	}
}
