package scoring

import (
	"context"
	"fmt"
	"time"

	"github.com/leadscore/backend/internal/domain/experiment"
	"github.com/leadscore/backend/internal/domain/rules"
	"github.com/leadscore/backend/internal/domain/scoring"
	"go.uber.org/zap"
)

// SchemaProvider resolves a rule schema for a tool and version. The
// cached implementation lives in infrastructure.
type SchemaProvider interface {
	Get(ctx context.Context, tool, version string) (*rules.Schema, error)
}

// DecisionWriter accepts decision records for asynchronous persistence.
// Enqueue must never block; it reports whether the record was accepted.
type DecisionWriter interface {
	Enqueue(d *scoring.Decision) bool
}

// ExperimentResolver yields the effective bucketing config for a tool.
type ExperimentResolver func(tool string) experiment.Config

// ShadowMetrics counts internal failures of the shadow path. Shadow
// errors are swallowed from the caller's perspective, so the counter is
// the only live signal that the rule path is broken.
type ShadowMetrics interface {
	RecordEvaluation(ctx context.Context, tool, group string)
	RecordShadowFailure(ctx context.Context, tool string)
}

// ShadowExecutorOptions tunes shadow execution behavior.
type ShadowExecutorOptions struct {
	Enabled    bool
	Tolerance  scoring.Tolerance
	TimeBudget time.Duration
}

// ShadowExecutor runs the legacy scorer as the authoritative path and
// the rule interpreter in its shadow. The caller always receives the
// legacy output; the full dual record is queued for async persistence.
type ShadowExecutor struct {
	legacy      *LegacyRegistry
	schemas     SchemaProvider
	interpreter *rules.Interpreter
	writer      DecisionWriter
	experiments ExperimentResolver
	metrics     ShadowMetrics
	opts        ShadowExecutorOptions
	logger      *zap.Logger
}

// NewShadowExecutor creates a shadow executor.
func NewShadowExecutor(
	legacy *LegacyRegistry,
	schemas SchemaProvider,
	writer DecisionWriter,
	experiments ExperimentResolver,
	metrics ShadowMetrics,
	opts ShadowExecutorOptions,
	logger *zap.Logger,
) *ShadowExecutor {
	if opts.TimeBudget <= 0 {
		opts.TimeBudget = 200 * time.Millisecond
	}
	return &ShadowExecutor{
		legacy:      legacy,
		schemas:     schemas,
		interpreter: rules.NewInterpreter(),
		writer:      writer,
		experiments: experiments,
		metrics:     metrics,
		opts:        opts,
		logger:      logger,
	}
}

// Evaluate scores one entity with a tool. Legacy errors propagate;
// shadow errors are recorded on the decision and never returned.
func (e *ShadowExecutor) Evaluate(ctx context.Context, tool, entityID string, input map[string]any) (scoring.Output, error) {
	scorer, err := e.legacy.Get(tool)
	if err != nil {
		return scoring.Output{}, err
	}

	start := time.Now()
	output, err := scorer.Score(ctx, input)
	if err != nil {
		return scoring.Output{}, fmt.Errorf("legacy scorer %s: %w", tool, err)
	}
	latency := time.Since(start)

	assignment := experiment.SelectVersion(tool, entityID, e.experiments(tool))

	decision := scoring.NewDecision(tool, entityID, assignment.Version, string(assignment.Group), input, output, latency)

	if e.opts.Enabled {
		decision.Shadow = e.runShadow(ctx, tool, assignment.Version, input, output)
	}

	if e.metrics != nil {
		e.metrics.RecordEvaluation(ctx, tool, string(assignment.Group))
	}

	if !e.writer.Enqueue(decision) {
		e.logger.Warn("decision queue full, record dropped",
			zap.String("tool", tool),
			zap.String("decision_id", decision.ID.String()))
	}

	return output, nil
}

type shadowResult struct {
	out *scoring.Output
	err string
}

// runShadow executes the rule path on its own goroutine under a time
// budget, with panic recovery. The caller never waits past the budget:
// on timeout the goroutine is left to finish against a cancelled
// context and its result is discarded. Any failure yields a record
// with a nil comparison.
func (e *ShadowExecutor) runShadow(ctx context.Context, tool, version string, input map[string]any, legacy scoring.Output) *scoring.ShadowRecord {
	shadowCtx, cancel := context.WithTimeout(ctx, e.opts.TimeBudget)
	defer cancel()

	record := &scoring.ShadowRecord{Legacy: legacy}

	done := make(chan shadowResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- shadowResult{err: fmt.Sprintf("panic in rule evaluation: %v", r)}
			}
		}()

		schema, err := e.schemas.Get(shadowCtx, tool, version)
		if err != nil {
			done <- shadowResult{err: fmt.Sprintf("schema %s/%s: %v", tool, version, err)}
			return
		}
		result, err := e.interpreter.Evaluate(schema, input)
		if err != nil {
			done <- shadowResult{err: fmt.Sprintf("rule evaluation: %v", err)}
			return
		}
		out := scoring.OutputFromRuleResult(result)
		done <- shadowResult{out: &out}
	}()

	select {
	case res := <-done:
		if res.err != "" {
			record.Error = res.err
			e.reportFailure(ctx, tool, record.Error)
			return record
		}
		record.Rule = res.out
		cmp := scoring.Compare(legacy, *res.out, e.opts.Tolerance)
		record.Comparison = &cmp
		return record
	case <-shadowCtx.Done():
		record.Error = fmt.Sprintf("rule evaluation: %v", shadowCtx.Err())
		e.reportFailure(ctx, tool, record.Error)
		return record
	}
}

func (e *ShadowExecutor) reportFailure(ctx context.Context, tool, msg string) {
	e.logger.Warn("shadow evaluation failed", zap.String("tool", tool), zap.String("error", msg))
	if e.metrics != nil {
		e.metrics.RecordShadowFailure(ctx, tool)
	}
}
