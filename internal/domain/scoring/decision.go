package scoring

import (
	"time"

	"github.com/google/uuid"
	"github.com/leadscore/backend/internal/domain/rules"
	"github.com/leadscore/backend/internal/domain/shared"
)

// Output is the caller-visible result of one scoring evaluation,
// produced by either the legacy scorer or the rule interpreter.
type Output struct {
	Score          float64  `json:"score"`
	Classification string   `json:"classification,omitempty"`
	Confidence     float64  `json:"confidence"`
	Reasoning      string   `json:"reasoning"`
	KeyFactors     []string `json:"key_factors"`
}

// OutputFromRuleResult converts an interpreter result to a scoring output.
func OutputFromRuleResult(r *rules.Result) Output {
	return Output{
		Score:          r.Score,
		Classification: r.Classification,
		Confidence:     r.Confidence,
		Reasoning:      r.Reasoning,
		KeyFactors:     r.KeyFactors,
	}
}

// ShadowRecord nests both execution paths' outputs for one decision.
// Comparison is nil when the shadow path failed; the failure never
// reaches the caller.
type ShadowRecord struct {
	Legacy     Output      `json:"legacy"`
	Rule       *Output     `json:"rule,omitempty"`
	Comparison *Comparison `json:"comparison"`
	Error      string      `json:"error,omitempty"`
}

// Decision is the persisted record of one evaluation. Decisions are
// created once and never mutated; they are retained for audit and
// training.
type Decision struct {
	shared.BaseEntity
	ToolName        string
	EntityID        string
	RuleVersion     string
	ExperimentGroup string
	Input           map[string]any
	Output          Output
	Shadow          *ShadowRecord
	LatencyMS       int64
}

// NewDecision creates a decision record for an evaluation.
func NewDecision(toolName, entityID, ruleVersion, group string, input map[string]any, output Output, latency time.Duration) *Decision {
	return &Decision{
		BaseEntity:      shared.NewBaseEntity(),
		ToolName:        toolName,
		EntityID:        entityID,
		RuleVersion:     ruleVersion,
		ExperimentGroup: group,
		Input:           input,
		Output:          output,
		LatencyMS:       latency.Milliseconds(),
	}
}

// HasShadowMismatch reports whether the shadow path ran to completion
// and disagreed with the legacy output.
func (d *Decision) HasShadowMismatch() bool {
	return d.Shadow != nil && d.Shadow.Comparison != nil && !d.Shadow.Comparison.Match
}

// DecisionID is a convenience accessor used by feedback validation.
func (d *Decision) DecisionID() uuid.UUID {
	return d.ID
}
