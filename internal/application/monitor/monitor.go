package monitor

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/leadscore/backend/internal/domain/experiment"
	"github.com/leadscore/backend/internal/domain/scoring"
	"github.com/leadscore/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// harvestQualityScore is assigned to samples whose failure is confirmed
// by explicit negative feedback.
const harvestQualityScore = 0.8

// Notifier pushes an alert to an external channel. Delivery is best
// effort; the alert is already persisted when Notify is called.
type Notifier interface {
	Notify(ctx context.Context, alert *scoring.Alert) error
}

// Thresholds holds the global monitor thresholds.
type Thresholds struct {
	SuccessRate        float64
	MinFeedbackSamples int64
	AvgConfidence      float64
	MinDecisionSamples int64
	PendingFeedback    int64
	MismatchRatio      float64
	MinShadowSamples   int64
	Window             time.Duration
	TrainingBatchSize  int
}

// Overrides adjusts thresholds for a single tool. Nil fields keep the
// global value.
type Overrides struct {
	SuccessRate   *float64
	AvgConfidence *float64
	MismatchRatio *float64
}

// ExperimentResolver yields the active rule versions for a tool.
type ExperimentResolver func(tool string) experiment.Config

// Monitor runs threshold checks over recent decisions and feedback,
// persisting an alert per violation. Critical success-rate violations
// additionally harvest training samples from the failing decisions.
type Monitor struct {
	decisionRepo scoring.DecisionRepository
	feedbackRepo scoring.FeedbackRepository
	sampleRepo   scoring.TrainingSampleRepository
	alertRepo    scoring.AlertRepository
	notifier     Notifier
	experiments  ExperimentResolver
	thresholds   Thresholds
	overrides    map[string]Overrides
	running      atomic.Bool
	logger       *zap.Logger
}

// NewMonitor creates a performance monitor. notifier may be nil.
func NewMonitor(
	decisionRepo scoring.DecisionRepository,
	feedbackRepo scoring.FeedbackRepository,
	sampleRepo scoring.TrainingSampleRepository,
	alertRepo scoring.AlertRepository,
	notifier Notifier,
	experiments ExperimentResolver,
	thresholds Thresholds,
	overrides map[string]Overrides,
	logger *zap.Logger,
) *Monitor {
	if thresholds.Window <= 0 {
		thresholds.Window = 7 * 24 * time.Hour
	}
	if thresholds.TrainingBatchSize <= 0 {
		thresholds.TrainingBatchSize = 50
	}
	return &Monitor{
		decisionRepo: decisionRepo,
		feedbackRepo: feedbackRepo,
		sampleRepo:   sampleRepo,
		alertRepo:    alertRepo,
		notifier:     notifier,
		experiments:  experiments,
		thresholds:   thresholds,
		overrides:    overrides,
		logger:       logger,
	}
}

func (m *Monitor) forTool(tool string) Thresholds {
	t := m.thresholds
	if o, ok := m.overrides[tool]; ok {
		if o.SuccessRate != nil {
			t.SuccessRate = *o.SuccessRate
		}
		if o.AvgConfidence != nil {
			t.AvgConfidence = *o.AvgConfidence
		}
		if o.MismatchRatio != nil {
			t.MismatchRatio = *o.MismatchRatio
		}
	}
	return t
}

// CheckRulePerformance runs all checks for one tool. Only one check may
// run at a time; an overlapping call is rejected rather than queued.
func (m *Monitor) CheckRulePerformance(ctx context.Context, tool string) ([]*scoring.Alert, error) {
	if !m.running.CompareAndSwap(false, true) {
		return nil, shared.NewDomainError("INVALID_STATE", "performance check already running")
	}
	defer m.running.Store(false)

	t := m.forTool(tool)
	since := time.Now().Add(-t.Window)
	cfg := m.experiments(tool)

	versions := []string{cfg.ControlVersion}
	if cfg.TestVersion != cfg.ControlVersion {
		versions = append(versions, cfg.TestVersion)
	}

	var alerts []*scoring.Alert

	for _, version := range versions {
		if alert, err := m.checkSuccessRate(ctx, tool, version, since, t); err != nil {
			return alerts, err
		} else if alert != nil {
			alerts = append(alerts, alert)
		}

		if alert, err := m.checkAvgConfidence(ctx, tool, version, since, t); err != nil {
			return alerts, err
		} else if alert != nil {
			alerts = append(alerts, alert)
		}
	}

	if alert, err := m.checkFeedbackBacklog(ctx, tool, since, t); err != nil {
		return alerts, err
	} else if alert != nil {
		alerts = append(alerts, alert)
	}

	if alert, err := m.checkShadowMismatch(ctx, tool, since, t); err != nil {
		return alerts, err
	} else if alert != nil {
		alerts = append(alerts, alert)
	}

	for _, alert := range alerts {
		m.emit(ctx, alert)
	}

	m.logger.Info("rule performance check completed",
		zap.String("tool", tool),
		zap.Int("alerts", len(alerts)))

	return alerts, nil
}

// checkSuccessRate raises a critical alert when confirmed outcomes fall
// below the threshold, and harvests the failing decisions as training
// samples.
func (m *Monitor) checkSuccessRate(ctx context.Context, tool, version string, since time.Time, t Thresholds) (*scoring.Alert, error) {
	positive, total, err := m.feedbackRepo.SuccessRateSince(ctx, tool, version, since)
	if err != nil {
		return nil, fmt.Errorf("success rate query: %w", err)
	}
	if total < t.MinFeedbackSamples {
		return nil, nil
	}
	rate := float64(positive) / float64(total)
	if rate >= t.SuccessRate {
		return nil, nil
	}

	alert := scoring.NewAlert(tool, version, scoring.CheckSuccessRate, scoring.SeverityCritical,
		fmt.Sprintf("success rate %.3f below threshold %.3f over %d outcomes", rate, t.SuccessRate, total),
		rate, t.SuccessRate, total)

	if err := m.harvestTrainingSamples(ctx, tool, version, since, t.TrainingBatchSize); err != nil {
		m.logger.Error("training sample harvest failed",
			zap.String("tool", tool), zap.String("version", version), zap.Error(err))
	}
	return alert, nil
}

func (m *Monitor) checkAvgConfidence(ctx context.Context, tool, version string, since time.Time, t Thresholds) (*scoring.Alert, error) {
	avg, count, err := m.decisionRepo.AvgConfidenceSince(ctx, tool, version, since)
	if err != nil {
		return nil, fmt.Errorf("avg confidence query: %w", err)
	}
	if count < t.MinDecisionSamples || avg >= t.AvgConfidence {
		return nil, nil
	}
	return scoring.NewAlert(tool, version, scoring.CheckAvgConfidence, scoring.SeverityWarning,
		fmt.Sprintf("average confidence %.3f below threshold %.3f over %d decisions", avg, t.AvgConfidence, count),
		avg, t.AvgConfidence, count), nil
}

func (m *Monitor) checkFeedbackBacklog(ctx context.Context, tool string, since time.Time, t Thresholds) (*scoring.Alert, error) {
	pending, err := m.decisionRepo.CountWithoutFeedback(ctx, tool, since)
	if err != nil {
		return nil, fmt.Errorf("feedback backlog query: %w", err)
	}
	if pending <= t.PendingFeedback {
		return nil, nil
	}
	return scoring.NewAlert(tool, "", scoring.CheckFeedbackBacklog, scoring.SeverityInfo,
		fmt.Sprintf("%d decisions awaiting feedback, threshold %d", pending, t.PendingFeedback),
		float64(pending), float64(t.PendingFeedback), pending), nil
}

func (m *Monitor) checkShadowMismatch(ctx context.Context, tool string, since time.Time, t Thresholds) (*scoring.Alert, error) {
	stats, err := m.decisionRepo.ShadowStatsSince(ctx, tool, since)
	if err != nil {
		return nil, fmt.Errorf("shadow stats query: %w", err)
	}
	if stats.Compared < t.MinShadowSamples {
		return nil, nil
	}
	mismatch := 1 - stats.MatchRate()
	if mismatch <= t.MismatchRatio {
		return nil, nil
	}
	return scoring.NewAlert(tool, "", scoring.CheckShadowMismatch, scoring.SeverityWarning,
		fmt.Sprintf("shadow mismatch ratio %.3f above threshold %.3f over %d comparisons", mismatch, t.MismatchRatio, stats.Compared),
		mismatch, t.MismatchRatio, stats.Compared), nil
}

// harvestTrainingSamples turns a bounded batch of negatively judged
// decisions into training samples. Re-harvesting the same decision is
// a no-op at the repository level.
func (m *Monitor) harvestTrainingSamples(ctx context.Context, tool, version string, since time.Time, batch int) error {
	decisions, err := m.decisionRepo.ListWithNegativeFeedback(ctx, tool, version, since, batch)
	if err != nil {
		return err
	}
	if len(decisions) == 0 {
		return nil
	}

	samples := make([]*scoring.TrainingSample, 0, len(decisions))
	for _, d := range decisions {
		feedbacks, err := m.feedbackRepo.ListByDecision(ctx, d.ID)
		if err != nil {
			return err
		}
		var negative *scoring.Feedback
		for _, fb := range feedbacks {
			if !fb.OutcomePositive {
				negative = fb
				break
			}
		}
		samples = append(samples, scoring.NewTrainingSampleFromDecision(d, negative, harvestQualityScore))
	}

	saved, err := m.sampleRepo.SaveBatch(ctx, samples)
	if err != nil {
		return err
	}
	m.logger.Info("training samples harvested",
		zap.String("tool", tool),
		zap.String("version", version),
		zap.Int64("saved", saved),
		zap.Int("candidates", len(samples)))
	return nil
}

// emit persists the alert and pushes it to the notifier. Neither
// failure aborts the check run.
func (m *Monitor) emit(ctx context.Context, alert *scoring.Alert) {
	if err := m.alertRepo.Save(ctx, alert); err != nil {
		m.logger.Error("failed to persist alert",
			zap.String("tool", alert.ToolName),
			zap.String("check", alert.Check),
			zap.Error(err))
	}
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Notify(ctx, alert); err != nil {
		m.logger.Warn("alert notification failed",
			zap.String("tool", alert.ToolName),
			zap.String("check", alert.Check),
			zap.Error(err))
	}
}
