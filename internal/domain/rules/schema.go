package rules

import (
	"github.com/leadscore/backend/internal/domain/shared"
)

// RuleType identifies the evaluation strategy of a schema.
type RuleType string

const (
	RuleTypeFormula         RuleType = "formula"
	RuleTypeDecisionTree    RuleType = "decision_tree"
	RuleTypeRuleList        RuleType = "rule_list"
	RuleTypeAdditiveScoring RuleType = "additive_scoring"
)

// ValidRuleTypes contains all accepted rule types
var ValidRuleTypes = map[RuleType]bool{
	RuleTypeFormula:         true,
	RuleTypeDecisionTree:    true,
	RuleTypeRuleList:        true,
	RuleTypeAdditiveScoring: true,
}

// Schema is a versioned, declarative scoring policy. It is pure data:
// evaluating the same schema against the same input always yields the
// same output. A schema is immutable once published; changes require a
// new version.
type Schema struct {
	shared.BaseEntity
	Name    string   `json:"name"`
	Version string   `json:"version"`
	Type    RuleType `json:"type"`

	// Variables are evaluated first, in declaration order. Each produces
	// a named value visible to later variables and to the rule body.
	Variables []ComputedVariable `json:"computed_variables,omitempty"`

	// Formula body (type == formula)
	Formula *Expression `json:"formula,omitempty"`

	// Additive scoring body (type == additive_scoring or rule_list)
	BaseScore float64         `json:"base_score,omitempty"`
	Factors   []ScoringFactor `json:"scoring_factors,omitempty"`

	// Decision tree / rule list body
	Branches      []Branch `json:"branches,omitempty"`
	DefaultBranch *Branch  `json:"default_branch,omitempty"`

	// Ordered multiplicative/additive overrides applied after the main
	// body. Within an adjustment group the first matching entry wins.
	EdgeCases []EdgeCaseAdjustment `json:"edge_case_adjustments,omitempty"`

	// Confidence tuning
	BaseConfidence        float64                `json:"base_confidence,omitempty"`
	ConfidenceAdjustments []ConfidenceAdjustment `json:"confidence_adjustments,omitempty"`

	// Score clamping range, commonly 0-100
	ScoreMin float64 `json:"score_min"`
	ScoreMax float64 `json:"score_max"`

	// Input contract. Referenced fields that are absent from the input
	// lower confidence; required fields that are absent fail evaluation.
	RequiredFields      []string `json:"required_fields,omitempty"`
	MissingFieldPenalty float64  `json:"missing_field_penalty,omitempty"`

	// ReasoningTemplate is a natural-language template with {placeholder}
	// substitution over resolved variables and evaluation results.
	ReasoningTemplate string `json:"reasoning_template,omitempty"`
}

// DefaultBaseConfidence is used when a schema does not declare one.
const DefaultBaseConfidence = 0.9

// DefaultMissingFieldPenalty is the confidence penalty applied per
// referenced-but-absent input field.
const DefaultMissingFieldPenalty = 0.05

// ComputedVariableKind selects how a computed variable is produced.
type ComputedVariableKind string

const (
	VariableKindLiteral     ComputedVariableKind = "literal"
	VariableKindConditional ComputedVariableKind = "conditional"
)

// ComputedVariable is a named sub-expression evaluated before the main
// rule body. Literal variables evaluate a single expression; conditional
// variables walk their cases (if/elif) and fall back to Default.
type ComputedVariable struct {
	Name    string               `json:"name"`
	Kind    ComputedVariableKind `json:"kind"`
	Value   *Expression          `json:"value,omitempty"`
	Cases   []VariableCase       `json:"cases,omitempty"`
	Default *Expression          `json:"default,omitempty"`
}

// VariableCase is one if/elif arm of a conditional variable.
type VariableCase struct {
	When  ConditionGroup `json:"when"`
	Value Expression     `json:"value"`
}

// ScoringFactor contributes points to an additive score when its
// predicate matches.
type ScoringFactor struct {
	Name   string         `json:"name"`
	When   ConditionGroup `json:"when"`
	Points float64        `json:"points"`
}

// Branch is one arm of a decision tree or rule list.
type Branch struct {
	Name           string         `json:"name"`
	When           ConditionGroup `json:"when"`
	Score          float64        `json:"score"`
	Points         float64        `json:"points,omitempty"`
	Classification string         `json:"classification,omitempty"`
	Confidence     *float64       `json:"confidence,omitempty"`
}

// EdgeCaseAdjustment overrides the computed score when its predicate
// matches. Exactly one of Multiplier or Offset is set. Adjustments
// sharing a Group are mutually exclusive: the first match wins.
type EdgeCaseAdjustment struct {
	Name       string         `json:"name"`
	Group      string         `json:"group,omitempty"`
	When       ConditionGroup `json:"when"`
	Multiplier *float64       `json:"multiplier,omitempty"`
	Offset     *float64       `json:"offset,omitempty"`
}

// ConfidenceAdjustment shifts the confidence when its predicate matches.
type ConfidenceAdjustment struct {
	Name  string         `json:"name"`
	When  ConditionGroup `json:"when"`
	Delta float64        `json:"delta"`
}

// EffectiveBaseConfidence returns the schema's base confidence or the
// default when unset.
func (s *Schema) EffectiveBaseConfidence() float64 {
	if s.BaseConfidence > 0 {
		return s.BaseConfidence
	}
	return DefaultBaseConfidence
}

// EffectiveMissingFieldPenalty returns the per-field confidence penalty.
func (s *Schema) EffectiveMissingFieldPenalty() float64 {
	if s.MissingFieldPenalty > 0 {
		return s.MissingFieldPenalty
	}
	return DefaultMissingFieldPenalty
}

// ReferencedFields returns the set of input field names the schema can
// read, collected from conditions, expressions and variables.
func (s *Schema) ReferencedFields() map[string]bool {
	fields := make(map[string]bool)
	for _, v := range s.Variables {
		if v.Value != nil {
			v.Value.collectFields(fields)
		}
		for _, c := range v.Cases {
			c.When.collectFields(fields)
			c.Value.collectFields(fields)
		}
		if v.Default != nil {
			v.Default.collectFields(fields)
		}
	}
	if s.Formula != nil {
		s.Formula.collectFields(fields)
	}
	for _, f := range s.Factors {
		f.When.collectFields(fields)
	}
	for _, b := range s.Branches {
		b.When.collectFields(fields)
	}
	for _, e := range s.EdgeCases {
		e.When.collectFields(fields)
	}
	for _, c := range s.ConfidenceAdjustments {
		c.When.collectFields(fields)
	}
	return fields
}
