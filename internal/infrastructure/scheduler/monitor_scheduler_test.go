package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/leadscore/backend/internal/application/monitor"
	"github.com/leadscore/backend/internal/domain/experiment"
	"github.com/leadscore/backend/internal/domain/scoring"
)

type noopDecisionRepo struct{}

func (noopDecisionRepo) Save(context.Context, *scoring.Decision) error { return nil }

func (noopDecisionRepo) FindByID(context.Context, uuid.UUID) (*scoring.Decision, error) {
	return nil, nil
}

func (noopDecisionRepo) CountSince(context.Context, string, string, time.Time) (int64, error) {
	return 0, nil
}

func (noopDecisionRepo) AvgConfidenceSince(context.Context, string, string, time.Time) (float64, int64, error) {
	return 0, 0, nil
}

func (noopDecisionRepo) CountWithoutFeedback(context.Context, string, time.Time) (int64, error) {
	return 0, nil
}

func (noopDecisionRepo) ShadowStatsSince(context.Context, string, time.Time) (scoring.ShadowStats, error) {
	return scoring.ShadowStats{}, nil
}

func (noopDecisionRepo) VersionStatsSince(context.Context, string, string, time.Time) (scoring.VersionStats, error) {
	return scoring.VersionStats{}, nil
}

func (noopDecisionRepo) ListWithNegativeFeedback(context.Context, string, string, time.Time, int) ([]*scoring.Decision, error) {
	return nil, nil
}

func (noopDecisionRepo) ListMismatchedSince(context.Context, string, time.Time, int) ([]*scoring.Decision, error) {
	return nil, nil
}

// countingFeedbackRepo counts success-rate queries, one per check run.
type countingFeedbackRepo struct {
	calls atomic.Int64
}

func (r *countingFeedbackRepo) Save(context.Context, *scoring.Feedback) error { return nil }

func (r *countingFeedbackRepo) ListByDecision(context.Context, uuid.UUID) ([]*scoring.Feedback, error) {
	return nil, nil
}

func (r *countingFeedbackRepo) SuccessRateSince(context.Context, string, string, time.Time) (int64, int64, error) {
	r.calls.Add(1)
	return 0, 0, nil
}

type noopSampleRepo struct{}

func (noopSampleRepo) SaveBatch(context.Context, []*scoring.TrainingSample) (int64, error) {
	return 0, nil
}

func (noopSampleRepo) ListByTool(context.Context, string, int) ([]*scoring.TrainingSample, error) {
	return nil, nil
}

type noopAlertRepo struct{}

func (noopAlertRepo) Save(context.Context, *scoring.Alert) error { return nil }

func (noopAlertRepo) ListRecent(context.Context, string, int) ([]*scoring.Alert, error) {
	return nil, nil
}

func newSchedulerMonitor(feedback *countingFeedbackRepo) *monitor.Monitor {
	resolver := func(string) experiment.Config {
		return experiment.Config{ControlVersion: "v1", TestVersion: "v1"}
	}
	return monitor.NewMonitor(noopDecisionRepo{}, feedback, noopSampleRepo{}, noopAlertRepo{},
		nil, resolver, monitor.Thresholds{
			SuccessRate:        0.85,
			MinFeedbackSamples: 100,
			AvgConfidence:      0.75,
			MinDecisionSamples: 200,
			PendingFeedback:    100,
			MismatchRatio:      0.10,
			MinShadowSamples:   50,
		}, nil, zap.NewNop())
}

func TestMonitorScheduler_RunsChecksOnInterval(t *testing.T) {
	feedback := &countingFeedbackRepo{}
	s := NewMonitorScheduler(
		newSchedulerMonitor(feedback),
		func() []string { return []string{"company_fit", "engagement"} },
		MonitorSchedulerConfig{Enabled: true, Interval: 10 * time.Millisecond},
		zap.NewNop(),
	)

	require.NoError(t, s.Start(context.Background()))

	assert.Eventually(t, func() bool {
		return feedback.calls.Load() >= 4 // two tools, at least two ticks
	}, 2*time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	// No more checks after Stop.
	settled := feedback.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, settled, feedback.calls.Load())
}

func TestMonitorScheduler_Disabled(t *testing.T) {
	feedback := &countingFeedbackRepo{}
	s := NewMonitorScheduler(
		newSchedulerMonitor(feedback),
		func() []string { return []string{"company_fit"} },
		MonitorSchedulerConfig{Enabled: false, Interval: time.Millisecond},
		zap.NewNop(),
	)

	require.NoError(t, s.Start(context.Background()))
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, feedback.calls.Load())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}
