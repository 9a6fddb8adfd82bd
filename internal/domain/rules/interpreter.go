package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/leadscore/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Result is the output of one schema evaluation.
type Result struct {
	Score          float64  `json:"score"`
	Classification string   `json:"classification,omitempty"`
	Confidence     float64  `json:"confidence"`
	Reasoning      string   `json:"reasoning"`
	KeyFactors     []string `json:"key_factors"`
	Degraded       bool     `json:"degraded,omitempty"`
}

// Interpreter executes a Schema against an input record. It is stateless
// and pure: no I/O, no clock, no randomness. Evaluating the same schema
// against the same input twice yields identical results.
type Interpreter struct{}

// NewInterpreter creates a rule interpreter.
func NewInterpreter() *Interpreter {
	return &Interpreter{}
}

// Evaluate runs the schema against the input record.
//
// Required fields that are absent fail with an input error. Referenced
// optional fields that are absent lower confidence by the schema's
// missing-field penalty instead. Division by zero and overflow inside
// expressions degrade the result (fallback score, zero confidence)
// rather than failing, so scoring stays total.
func (i *Interpreter) Evaluate(schema *Schema, input map[string]any) (*Result, error) {
	if input == nil {
		input = map[string]any{}
	}

	for _, field := range schema.RequiredFields {
		if v, ok := input[field]; !ok || v == nil {
			return nil, shared.NewInputError(fmt.Sprintf("missing required field %q", field))
		}
	}

	env := NewEnv(input)

	if err := resolveVariables(schema, env); err != nil {
		if IsArithmeticError(err) {
			return degradedResult(schema, err), nil
		}
		return nil, err
	}

	var (
		score      decimal.Decimal
		factors    []string
		class      string
		branchConf *float64
		err        error
	)

	switch schema.Type {
	case RuleTypeFormula:
		score, err = evalFormula(schema, env)
	case RuleTypeAdditiveScoring:
		score, factors = evalAdditive(schema, env)
	case RuleTypeDecisionTree:
		score, class, branchConf, factors = evalTree(schema, env)
	case RuleTypeRuleList:
		score, class, factors = evalRuleList(schema, env)
	default:
		return nil, shared.NewSchemaError(fmt.Sprintf("unknown rule type %q", schema.Type))
	}
	if err != nil {
		if IsArithmeticError(err) {
			return degradedResult(schema, err), nil
		}
		return nil, err
	}

	score, edgeFactors := applyEdgeCases(schema, env, score)
	factors = append(factors, edgeFactors...)
	score = clampScore(schema, score)

	confidence := evalConfidence(schema, env, branchConf)

	result := &Result{
		Score:          scoreFloat(score),
		Classification: class,
		Confidence:     confidence,
		KeyFactors:     factors,
	}
	result.Reasoning = renderReasoning(schema, env, result)
	return result, nil
}

// resolveVariables evaluates computed variables in declaration order.
// Each variable is bound before the next is evaluated, so later
// variables (and the rule body) can reference earlier ones.
func resolveVariables(schema *Schema, env *Env) error {
	for _, v := range schema.Variables {
		value, err := resolveVariable(&v, env)
		if err != nil {
			return err
		}
		env.SetVar(v.Name, value)
	}
	return nil
}

func resolveVariable(v *ComputedVariable, env *Env) (any, error) {
	switch v.Kind {
	case VariableKindLiteral:
		return v.Value.Eval(env)
	case VariableKindConditional:
		for i := range v.Cases {
			if v.Cases[i].When.Match(env) {
				return v.Cases[i].Value.Eval(env)
			}
		}
		if v.Default != nil {
			return v.Default.Eval(env)
		}
		return decimal.Zero, nil
	default:
		return nil, shared.NewSchemaError(
			fmt.Sprintf("variable %q has unknown kind %q", v.Name, v.Kind))
	}
}

func evalFormula(schema *Schema, env *Env) (decimal.Decimal, error) {
	value, err := schema.Formula.Eval(env)
	if err != nil {
		return decimal.Zero, err
	}
	score, ok := numericValue(value)
	if !ok {
		return decimal.Zero, shared.NewSchemaError("formula produced a non-numeric value")
	}
	return score, nil
}

// evalAdditive starts from the base score and adds every matching
// factor's contribution.
func evalAdditive(schema *Schema, env *Env) (decimal.Decimal, []string) {
	score := decimal.NewFromFloat(schema.BaseScore)
	matched := make([]string, 0, len(schema.Factors))
	for i := range schema.Factors {
		f := &schema.Factors[i]
		if f.When.Match(env) {
			score = score.Add(decimal.NewFromFloat(f.Points))
			matched = append(matched, f.Name)
		}
	}
	return score, matched
}

// evalTree walks branches top to bottom; the first branch whose
// condition holds is taken. Validation guarantees a default branch, but
// the walk still guards against its absence.
func evalTree(schema *Schema, env *Env) (decimal.Decimal, string, *float64, []string) {
	for i := range schema.Branches {
		b := &schema.Branches[i]
		if b.When.Match(env) {
			return decimal.NewFromFloat(b.Score), b.Classification, b.Confidence, []string{b.Name}
		}
	}
	if schema.DefaultBranch != nil {
		b := schema.DefaultBranch
		return decimal.NewFromFloat(b.Score), b.Classification, b.Confidence, []string{b.Name}
	}
	return decimal.Zero, "", nil, nil
}

// evalRuleList applies every matching branch: each contributes its
// points on top of the base score. The first matching branch that
// declares a classification supplies it.
func evalRuleList(schema *Schema, env *Env) (decimal.Decimal, string, []string) {
	score := decimal.NewFromFloat(schema.BaseScore)
	matched := make([]string, 0, len(schema.Branches))
	class := ""
	for i := range schema.Branches {
		b := &schema.Branches[i]
		if b.When.Match(env) {
			score = score.Add(decimal.NewFromFloat(b.Points))
			matched = append(matched, b.Name)
			if class == "" && b.Classification != "" {
				class = b.Classification
			}
		}
	}
	return score, class, matched
}

// applyEdgeCases applies adjustments in declaration order. Adjustments
// sharing a group are mutually exclusive: once one matches, later
// members of the same group are skipped.
func applyEdgeCases(schema *Schema, env *Env, score decimal.Decimal) (decimal.Decimal, []string) {
	if len(schema.EdgeCases) == 0 {
		return score, nil
	}
	matchedGroups := make(map[string]bool)
	var applied []string
	for i := range schema.EdgeCases {
		adj := &schema.EdgeCases[i]
		if adj.Group != "" && matchedGroups[adj.Group] {
			continue
		}
		if !adj.When.Match(env) {
			continue
		}
		if adj.Group != "" {
			matchedGroups[adj.Group] = true
		}
		if adj.Multiplier != nil {
			score = score.Mul(decimal.NewFromFloat(*adj.Multiplier))
		} else if adj.Offset != nil {
			score = score.Add(decimal.NewFromFloat(*adj.Offset))
		}
		applied = append(applied, adj.Name)
	}
	return score, applied
}

func clampScore(schema *Schema, score decimal.Decimal) decimal.Decimal {
	min, max := schema.scoreRange()
	if score.LessThan(min) {
		return min
	}
	if score.GreaterThan(max) {
		return max
	}
	return score
}

func (s *Schema) scoreRange() (decimal.Decimal, decimal.Decimal) {
	if s.ScoreMax > s.ScoreMin {
		return decimal.NewFromFloat(s.ScoreMin), decimal.NewFromFloat(s.ScoreMax)
	}
	return decimal.Zero, decimal.NewFromInt(100)
}

// evalConfidence starts from the schema's base confidence (or a matched
// branch's own), subtracts the missing-field penalty per referenced but
// absent optional field, applies confidence adjustments and clamps to
// [0, 1].
func evalConfidence(schema *Schema, env *Env, branchConf *float64) float64 {
	conf := decimal.NewFromFloat(schema.EffectiveBaseConfidence())
	if branchConf != nil {
		conf = decimal.NewFromFloat(*branchConf)
	}

	penalty := decimal.NewFromFloat(schema.EffectiveMissingFieldPenalty())
	missing := int64(len(missingReferencedFields(schema, env)))
	if missing > 0 {
		conf = conf.Sub(penalty.Mul(decimal.NewFromInt(missing)))
	}

	for i := range schema.ConfidenceAdjustments {
		adj := &schema.ConfidenceAdjustments[i]
		if adj.When.Match(env) {
			conf = conf.Add(decimal.NewFromFloat(adj.Delta))
		}
	}

	f, _ := conf.Float64()
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// missingReferencedFields returns referenced input fields absent from
// the record, in sorted order for determinism. Names bound as computed
// variables are not input fields and are excluded.
func missingReferencedFields(schema *Schema, env *Env) []string {
	declared := make(map[string]bool, len(schema.Variables))
	for _, v := range schema.Variables {
		declared[v.Name] = true
	}

	var missing []string
	for field := range schema.ReferencedFields() {
		if declared[field] {
			continue
		}
		if !env.HasField(field) {
			missing = append(missing, field)
		}
	}
	sort.Strings(missing)
	return missing
}

// degradedResult is the total-scoring fallback for arithmetic failures:
// minimum score, zero confidence, and a reasoning string naming the
// cause so the decision log stays explainable.
func degradedResult(schema *Schema, err error) *Result {
	min, _ := schema.scoreRange()
	return &Result{
		Score:      scoreFloat(min),
		Confidence: 0,
		Degraded:   true,
		Reasoning:  fmt.Sprintf("evaluation degraded: %s", err.Error()),
		KeyFactors: []string{},
	}
}

// scoreFloat rounds to two decimal places before converting, so the
// serialized score is stable.
func scoreFloat(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

// renderReasoning substitutes resolved variables and evaluation results
// into the schema's reasoning template. Without a template it falls back
// to a generated summary over the matched factors.
func renderReasoning(schema *Schema, env *Env, result *Result) string {
	if schema.ReasoningTemplate == "" {
		if len(result.KeyFactors) == 0 {
			return fmt.Sprintf("score %s with no matching factors", formatFloat(result.Score))
		}
		return fmt.Sprintf("score %s driven by %s",
			formatFloat(result.Score), strings.Join(result.KeyFactors, ", "))
	}

	out := schema.ReasoningTemplate
	out = strings.ReplaceAll(out, "{score}", formatFloat(result.Score))
	out = strings.ReplaceAll(out, "{confidence}", formatFloat(result.Confidence))
	out = strings.ReplaceAll(out, "{classification}", result.Classification)
	out = strings.ReplaceAll(out, "{key_factors}", strings.Join(result.KeyFactors, ", "))
	for _, v := range schema.Variables {
		if value, ok := env.Var(v.Name); ok {
			out = strings.ReplaceAll(out, "{"+v.Name+"}", valueToString(value))
		}
	}
	return out
}

func formatFloat(f float64) string {
	return decimal.NewFromFloat(f).String()
}
