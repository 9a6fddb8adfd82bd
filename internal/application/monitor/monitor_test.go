package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/leadscore/backend/internal/domain/experiment"
	"github.com/leadscore/backend/internal/domain/scoring"
	"github.com/leadscore/backend/internal/domain/shared"
)

type fakeDecisionRepo struct {
	avgConfidence float64
	decisionCount int64
	pending       int64
	shadowStats   scoring.ShadowStats
	negatives     []*scoring.Decision
}

func (r *fakeDecisionRepo) Save(context.Context, *scoring.Decision) error { return nil }

func (r *fakeDecisionRepo) FindByID(context.Context, uuid.UUID) (*scoring.Decision, error) {
	return nil, nil
}

func (r *fakeDecisionRepo) CountSince(context.Context, string, string, time.Time) (int64, error) {
	return r.decisionCount, nil
}

func (r *fakeDecisionRepo) AvgConfidenceSince(context.Context, string, string, time.Time) (float64, int64, error) {
	return r.avgConfidence, r.decisionCount, nil
}

func (r *fakeDecisionRepo) CountWithoutFeedback(context.Context, string, time.Time) (int64, error) {
	return r.pending, nil
}

func (r *fakeDecisionRepo) ShadowStatsSince(context.Context, string, time.Time) (scoring.ShadowStats, error) {
	return r.shadowStats, nil
}

func (r *fakeDecisionRepo) VersionStatsSince(context.Context, string, string, time.Time) (scoring.VersionStats, error) {
	return scoring.VersionStats{}, nil
}

func (r *fakeDecisionRepo) ListWithNegativeFeedback(context.Context, string, string, time.Time, int) ([]*scoring.Decision, error) {
	return r.negatives, nil
}

func (r *fakeDecisionRepo) ListMismatchedSince(context.Context, string, time.Time, int) ([]*scoring.Decision, error) {
	return nil, nil
}

type fakeFeedbackRepo struct {
	positive int64
	total    int64
	byID     map[uuid.UUID][]*scoring.Feedback
	block    chan struct{}
}

func (r *fakeFeedbackRepo) Save(context.Context, *scoring.Feedback) error { return nil }

func (r *fakeFeedbackRepo) ListByDecision(_ context.Context, id uuid.UUID) ([]*scoring.Feedback, error) {
	return r.byID[id], nil
}

func (r *fakeFeedbackRepo) SuccessRateSince(context.Context, string, string, time.Time) (int64, int64, error) {
	if r.block != nil {
		<-r.block
	}
	return r.positive, r.total, nil
}

type fakeSampleRepo struct {
	saved []*scoring.TrainingSample
}

func (r *fakeSampleRepo) SaveBatch(_ context.Context, samples []*scoring.TrainingSample) (int64, error) {
	r.saved = append(r.saved, samples...)
	return int64(len(samples)), nil
}

func (r *fakeSampleRepo) ListByTool(context.Context, string, int) ([]*scoring.TrainingSample, error) {
	return nil, nil
}

type fakeAlertRepo struct {
	saved []*scoring.Alert
}

func (r *fakeAlertRepo) Save(_ context.Context, alert *scoring.Alert) error {
	r.saved = append(r.saved, alert)
	return nil
}

func (r *fakeAlertRepo) ListRecent(context.Context, string, int) ([]*scoring.Alert, error) {
	return nil, nil
}

func singleVersionResolver(_ string) experiment.Config {
	return experiment.Config{ControlVersion: "v1", TestVersion: "v1", TrafficSplitPercent: 0}
}

func healthyThresholds() Thresholds {
	return Thresholds{
		SuccessRate:        0.85,
		MinFeedbackSamples: 100,
		AvgConfidence:      0.75,
		MinDecisionSamples: 200,
		PendingFeedback:    100,
		MismatchRatio:      0.10,
		MinShadowSamples:   50,
		Window:             7 * 24 * time.Hour,
		TrainingBatchSize:  50,
	}
}

// healthyRepos returns repos whose numbers trip no threshold.
func healthyRepos() (*fakeDecisionRepo, *fakeFeedbackRepo) {
	decisions := &fakeDecisionRepo{
		avgConfidence: 0.9,
		decisionCount: 500,
		pending:       10,
		shadowStats:   scoring.ShadowStats{Total: 500, Compared: 400, Matched: 390},
	}
	feedback := &fakeFeedbackRepo{positive: 140, total: 150}
	return decisions, feedback
}

func newTestMonitor(d *fakeDecisionRepo, f *fakeFeedbackRepo, s *fakeSampleRepo, a *fakeAlertRepo, overrides map[string]Overrides) *Monitor {
	return NewMonitor(d, f, s, a, nil, singleVersionResolver, healthyThresholds(), overrides, zap.NewNop())
}

func TestMonitor_AllHealthy(t *testing.T) {
	decisions, feedback := healthyRepos()
	alerts := &fakeAlertRepo{}
	m := newTestMonitor(decisions, feedback, &fakeSampleRepo{}, alerts, nil)

	got, err := m.CheckRulePerformance(context.Background(), "company_fit")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, alerts.saved)
}

func TestMonitor_LowSuccessRate(t *testing.T) {
	decisions, feedback := healthyRepos()
	feedback.positive = 120
	feedback.total = 150 // 0.80 < 0.85

	negative := scoring.NewDecision("company_fit", "lead-9", "v1", "control",
		map[string]any{"industry": "retail"}, scoring.Output{Score: 90, Confidence: 0.9}, 5*time.Millisecond)
	decisions.negatives = []*scoring.Decision{negative}
	feedback.byID = map[uuid.UUID][]*scoring.Feedback{
		negative.ID: {scoring.NewFeedback(negative.ID, false, "deal_lost", nil, "")},
	}

	samples := &fakeSampleRepo{}
	alertRepo := &fakeAlertRepo{}
	m := newTestMonitor(decisions, feedback, samples, alertRepo, nil)

	got, err := m.CheckRulePerformance(context.Background(), "company_fit")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, scoring.CheckSuccessRate, got[0].Check)
	assert.Equal(t, scoring.SeverityCritical, got[0].Severity)
	assert.InDelta(t, 0.80, got[0].Value, 0.001)
	assert.Len(t, alertRepo.saved, 1)

	// The failing decision is harvested as a training sample.
	require.Len(t, samples.saved, 1)
	assert.Equal(t, negative.ID, samples.saved[0].DecisionID)
	assert.Equal(t, harvestQualityScore, samples.saved[0].QualityScore)
}

func TestMonitor_LowSuccessRate_Underpowered(t *testing.T) {
	decisions, feedback := healthyRepos()
	feedback.positive = 10
	feedback.total = 50 // bad rate but below the sample floor

	m := newTestMonitor(decisions, feedback, &fakeSampleRepo{}, &fakeAlertRepo{}, nil)

	got, err := m.CheckRulePerformance(context.Background(), "company_fit")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMonitor_LowAvgConfidence(t *testing.T) {
	decisions, feedback := healthyRepos()
	decisions.avgConfidence = 0.60

	m := newTestMonitor(decisions, feedback, &fakeSampleRepo{}, &fakeAlertRepo{}, nil)

	got, err := m.CheckRulePerformance(context.Background(), "company_fit")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, scoring.CheckAvgConfidence, got[0].Check)
	assert.Equal(t, scoring.SeverityWarning, got[0].Severity)
}

func TestMonitor_FeedbackBacklog(t *testing.T) {
	decisions, feedback := healthyRepos()
	decisions.pending = 250

	m := newTestMonitor(decisions, feedback, &fakeSampleRepo{}, &fakeAlertRepo{}, nil)

	got, err := m.CheckRulePerformance(context.Background(), "company_fit")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, scoring.CheckFeedbackBacklog, got[0].Check)
	assert.Equal(t, scoring.SeverityInfo, got[0].Severity)
	assert.Empty(t, got[0].RuleVersion)
}

func TestMonitor_ShadowMismatch(t *testing.T) {
	decisions, feedback := healthyRepos()
	decisions.shadowStats = scoring.ShadowStats{Total: 500, Compared: 400, Matched: 320} // 20% mismatch

	m := newTestMonitor(decisions, feedback, &fakeSampleRepo{}, &fakeAlertRepo{}, nil)

	got, err := m.CheckRulePerformance(context.Background(), "company_fit")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, scoring.CheckShadowMismatch, got[0].Check)
	assert.InDelta(t, 0.20, got[0].Value, 0.001)
}

func TestMonitor_ToolOverrides(t *testing.T) {
	decisions, feedback := healthyRepos()
	feedback.positive = 135
	feedback.total = 150 // 0.90, fine globally

	strict := 0.95
	overrides := map[string]Overrides{"company_fit": {SuccessRate: &strict}}
	m := newTestMonitor(decisions, feedback, &fakeSampleRepo{}, &fakeAlertRepo{}, overrides)

	got, err := m.CheckRulePerformance(context.Background(), "company_fit")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, scoring.CheckSuccessRate, got[0].Check)
	assert.InDelta(t, strict, got[0].Threshold, 0.001)
}

func TestMonitor_RejectsOverlappingRun(t *testing.T) {
	decisions, feedback := healthyRepos()
	feedback.block = make(chan struct{})
	m := newTestMonitor(decisions, feedback, &fakeSampleRepo{}, &fakeAlertRepo{}, nil)

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		close(started)
		_, err := m.CheckRulePerformance(context.Background(), "company_fit")
		done <- err
	}()
	<-started
	// Give the goroutine time to take the running flag and block.
	time.Sleep(20 * time.Millisecond)

	_, err := m.CheckRulePerformance(context.Background(), "company_fit")
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_STATE", domainErr.Code)

	close(feedback.block)
	require.NoError(t, <-done)

	// The flag is released after the first run completes.
	_, err = m.CheckRulePerformance(context.Background(), "company_fit")
	assert.NoError(t, err)
}
