package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ScoringMetrics holds the counters for the scoring pipeline. Shadow
// failures and dropped records never surface to callers, so these
// counters are the operational signal for them.
type ScoringMetrics struct {
	evaluations     metric.Int64Counter
	shadowFailures  metric.Int64Counter
	persistFailures metric.Int64Counter
	queueDrops      metric.Int64Counter
}

// NewScoringMetrics registers the scoring counters on a meter.
func NewScoringMetrics(meter metric.Meter) (*ScoringMetrics, error) {
	evaluations, err := meter.Int64Counter("scoring.evaluations",
		metric.WithDescription("Total scoring evaluations served"))
	if err != nil {
		return nil, fmt.Errorf("failed to create evaluations counter: %w", err)
	}
	shadowFailures, err := meter.Int64Counter("scoring.shadow_failures",
		metric.WithDescription("Shadow rule evaluations that errored, timed out or panicked"))
	if err != nil {
		return nil, fmt.Errorf("failed to create shadow failures counter: %w", err)
	}
	persistFailures, err := meter.Int64Counter("scoring.decision_persist_failures",
		metric.WithDescription("Decision records lost after exhausting write retries"))
	if err != nil {
		return nil, fmt.Errorf("failed to create persist failures counter: %w", err)
	}
	queueDrops, err := meter.Int64Counter("scoring.decision_queue_drops",
		metric.WithDescription("Decision records evicted or rejected by the write queue"))
	if err != nil {
		return nil, fmt.Errorf("failed to create queue drops counter: %w", err)
	}

	return &ScoringMetrics{
		evaluations:     evaluations,
		shadowFailures:  shadowFailures,
		persistFailures: persistFailures,
		queueDrops:      queueDrops,
	}, nil
}

// RecordEvaluation counts one served evaluation.
func (m *ScoringMetrics) RecordEvaluation(ctx context.Context, tool, group string) {
	m.evaluations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("group", group),
	))
}

// RecordShadowFailure counts one failed shadow evaluation.
func (m *ScoringMetrics) RecordShadowFailure(ctx context.Context, tool string) {
	m.shadowFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("tool", tool)))
}

// RecordPersistFailure counts one decision lost after retries.
func (m *ScoringMetrics) RecordPersistFailure(ctx context.Context, tool string) {
	m.persistFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("tool", tool)))
}

// RecordQueueDrop counts one record dropped by the write queue.
func (m *ScoringMetrics) RecordQueueDrop(ctx context.Context, tool string) {
	m.queueDrops.Add(ctx, 1, metric.WithAttributes(attribute.String("tool", tool)))
}
