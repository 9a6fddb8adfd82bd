package scoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/leadscore/backend/internal/domain/experiment"
	"github.com/leadscore/backend/internal/domain/rules"
	"github.com/leadscore/backend/internal/domain/scoring"
	"github.com/leadscore/backend/internal/domain/shared"
)

type stubScorer struct {
	name string
	out  scoring.Output
	err  error
}

func (s *stubScorer) Name() string { return s.name }

func (s *stubScorer) Score(_ context.Context, _ map[string]any) (scoring.Output, error) {
	return s.out, s.err
}

type stubSchemas struct {
	schema *rules.Schema
	err    error
	panics bool
}

func (s *stubSchemas) Get(_ context.Context, _, _ string) (*rules.Schema, error) {
	if s.panics {
		panic("schema cache corrupted")
	}
	return s.schema, s.err
}

type slowSchemas struct {
	schema *rules.Schema
	delay  time.Duration
}

func (s *slowSchemas) Get(ctx context.Context, _, _ string) (*rules.Schema, error) {
	select {
	case <-time.After(s.delay):
		return s.schema, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type captureWriter struct {
	decisions []*scoring.Decision
	full      bool
}

func (w *captureWriter) Enqueue(d *scoring.Decision) bool {
	if w.full {
		return false
	}
	w.decisions = append(w.decisions, d)
	return true
}

type countingMetrics struct {
	evaluations    int
	shadowFailures int
}

func (m *countingMetrics) RecordEvaluation(_ context.Context, _, _ string) { m.evaluations++ }
func (m *countingMetrics) RecordShadowFailure(_ context.Context, _ string) { m.shadowFailures++ }

func controlOnlyResolver(_ string) experiment.Config {
	return experiment.Config{ControlVersion: "v1", TestVersion: "v2", TrafficSplitPercent: 0}
}

// additiveSchema mirrors a fixed 70-point legacy output so shadow
// comparisons land within the default tolerance.
func additiveSchema() *rules.Schema {
	return &rules.Schema{
		Name:           "company_fit",
		Version:        "v1",
		Type:           rules.RuleTypeAdditiveScoring,
		BaseScore:      70,
		BaseConfidence: 0.9,
		ScoreMin:       0,
		ScoreMax:       100,
	}
}

func newTestExecutor(schemas SchemaProvider, writer DecisionWriter, metrics ShadowMetrics, enabled bool) *ShadowExecutor {
	registry := NewLegacyRegistry()
	registry.Register(&stubScorer{
		name: "company_fit",
		out:  scoring.Output{Score: 70, Confidence: 0.9, Classification: "warm", Reasoning: "heuristic"},
	})
	return NewShadowExecutor(
		registry,
		schemas,
		writer,
		controlOnlyResolver,
		metrics,
		ShadowExecutorOptions{
			Enabled:    enabled,
			Tolerance:  scoring.DefaultTolerance(),
			TimeBudget: 200 * time.Millisecond,
		},
		zap.NewNop(),
	)
}

func TestShadowExecutor_Evaluate_ReturnsLegacyOutput(t *testing.T) {
	writer := &captureWriter{}
	metrics := &countingMetrics{}
	exec := newTestExecutor(&stubSchemas{schema: additiveSchema()}, writer, metrics, true)

	out, err := exec.Evaluate(context.Background(), "company_fit", "lead-1", map[string]any{"industry": "logistics"})
	require.NoError(t, err)
	assert.Equal(t, 70.0, out.Score)
	assert.Equal(t, "warm", out.Classification)

	require.Len(t, writer.decisions, 1)
	d := writer.decisions[0]
	assert.Equal(t, "company_fit", d.ToolName)
	assert.Equal(t, "lead-1", d.EntityID)
	assert.Equal(t, "v1", d.RuleVersion)
	assert.Equal(t, experiment.GroupControl, d.ExperimentGroup)
	assert.Equal(t, 1, metrics.evaluations)
	assert.Equal(t, 0, metrics.shadowFailures)

	require.NotNil(t, d.Shadow)
	require.NotNil(t, d.Shadow.Comparison)
	assert.True(t, d.Shadow.Comparison.Match)
	assert.InDelta(t, 0, d.Shadow.Comparison.ScoreDiff, 0.001)
	require.NotNil(t, d.Shadow.Rule)
	assert.InDelta(t, 70, d.Shadow.Rule.Score, 0.001)
}

func TestShadowExecutor_Evaluate_UnknownTool(t *testing.T) {
	writer := &captureWriter{}
	exec := newTestExecutor(&stubSchemas{schema: additiveSchema()}, writer, nil, true)

	_, err := exec.Evaluate(context.Background(), "no_such_tool", "lead-1", nil)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
	assert.Empty(t, writer.decisions)
}

func TestShadowExecutor_Evaluate_LegacyErrorPropagates(t *testing.T) {
	registry := NewLegacyRegistry()
	registry.Register(&stubScorer{name: "company_fit", err: errors.New("upstream unavailable")})
	writer := &captureWriter{}
	exec := NewShadowExecutor(registry, &stubSchemas{schema: additiveSchema()}, writer,
		controlOnlyResolver, nil, ShadowExecutorOptions{Enabled: true, Tolerance: scoring.DefaultTolerance()}, zap.NewNop())

	_, err := exec.Evaluate(context.Background(), "company_fit", "lead-1", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream unavailable")
	assert.Empty(t, writer.decisions)
}

func TestShadowExecutor_Evaluate_ShadowFailureNotSurfaced(t *testing.T) {
	writer := &captureWriter{}
	metrics := &countingMetrics{}
	exec := newTestExecutor(&stubSchemas{err: errors.New("redis down")}, writer, metrics, true)

	out, err := exec.Evaluate(context.Background(), "company_fit", "lead-1", map[string]any{"industry": "retail"})
	require.NoError(t, err)
	assert.Equal(t, 70.0, out.Score)

	require.Len(t, writer.decisions, 1)
	shadow := writer.decisions[0].Shadow
	require.NotNil(t, shadow)
	assert.Nil(t, shadow.Comparison)
	assert.Nil(t, shadow.Rule)
	assert.Contains(t, shadow.Error, "redis down")
	assert.Equal(t, 1, metrics.shadowFailures)
}

func TestShadowExecutor_Evaluate_PanicRecovered(t *testing.T) {
	writer := &captureWriter{}
	metrics := &countingMetrics{}
	exec := newTestExecutor(&stubSchemas{panics: true}, writer, metrics, true)

	out, err := exec.Evaluate(context.Background(), "company_fit", "lead-1", nil)
	require.NoError(t, err)
	assert.Equal(t, 70.0, out.Score)

	require.Len(t, writer.decisions, 1)
	shadow := writer.decisions[0].Shadow
	require.NotNil(t, shadow)
	assert.Nil(t, shadow.Comparison)
	assert.Contains(t, shadow.Error, "panic")
	assert.Equal(t, 1, metrics.shadowFailures)
}

func TestShadowExecutor_Evaluate_SlowShadowDoesNotBlockCaller(t *testing.T) {
	writer := &captureWriter{}
	metrics := &countingMetrics{}
	registry := NewLegacyRegistry()
	registry.Register(&stubScorer{
		name: "company_fit",
		out:  scoring.Output{Score: 70, Confidence: 0.9, Classification: "warm"},
	})
	exec := NewShadowExecutor(registry, &slowSchemas{schema: additiveSchema(), delay: 2 * time.Second}, writer,
		controlOnlyResolver, metrics,
		ShadowExecutorOptions{
			Enabled:    true,
			Tolerance:  scoring.DefaultTolerance(),
			TimeBudget: 20 * time.Millisecond,
		},
		zap.NewNop())

	start := time.Now()
	out, err := exec.Evaluate(context.Background(), "company_fit", "lead-1", nil)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, 70.0, out.Score)
	// The caller waits out the budget at most, never the full rule path.
	assert.Less(t, elapsed, time.Second)

	require.Len(t, writer.decisions, 1)
	shadow := writer.decisions[0].Shadow
	require.NotNil(t, shadow)
	assert.Nil(t, shadow.Comparison)
	assert.Nil(t, shadow.Rule)
	assert.Contains(t, shadow.Error, "deadline")
	assert.Equal(t, 1, metrics.shadowFailures)
}

func TestShadowExecutor_Evaluate_ShadowDisabled(t *testing.T) {
	writer := &captureWriter{}
	exec := newTestExecutor(&stubSchemas{schema: additiveSchema()}, writer, nil, false)

	_, err := exec.Evaluate(context.Background(), "company_fit", "lead-1", nil)
	require.NoError(t, err)
	require.Len(t, writer.decisions, 1)
	assert.Nil(t, writer.decisions[0].Shadow)
}

func TestShadowExecutor_Evaluate_QueueFull(t *testing.T) {
	writer := &captureWriter{full: true}
	exec := newTestExecutor(&stubSchemas{schema: additiveSchema()}, writer, nil, true)

	// A full queue drops the record but the caller still gets a result.
	out, err := exec.Evaluate(context.Background(), "company_fit", "lead-1", nil)
	require.NoError(t, err)
	assert.Equal(t, 70.0, out.Score)
}
