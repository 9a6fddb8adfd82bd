package rules

import (
	"fmt"

	"github.com/leadscore/backend/internal/domain/shared"
)

// Validate checks a schema at publish time. Anything it rejects can
// never surface as a request-time failure: the interpreter only ever
// sees validated schemas.
func (s *Schema) Validate() error {
	if s.Name == "" {
		return shared.NewSchemaError("schema name is required")
	}
	if s.Version == "" {
		return shared.NewSchemaError("schema version is required")
	}
	if !ValidRuleTypes[s.Type] {
		return shared.NewSchemaError(fmt.Sprintf("unknown rule type %q", s.Type))
	}
	if s.ScoreMax < s.ScoreMin {
		return shared.NewSchemaError("score_max must not be below score_min")
	}
	if s.BaseConfidence < 0 || s.BaseConfidence > 1 {
		return shared.NewSchemaError("base_confidence must be within [0, 1]")
	}
	if s.MissingFieldPenalty < 0 || s.MissingFieldPenalty > 1 {
		return shared.NewSchemaError("missing_field_penalty must be within [0, 1]")
	}

	declared, err := s.validateVariables()
	if err != nil {
		return err
	}

	switch s.Type {
	case RuleTypeFormula:
		if s.Formula == nil {
			return shared.NewSchemaError("formula schema requires a formula expression")
		}
		if err := s.Formula.Validate(declared); err != nil {
			return err
		}
	case RuleTypeAdditiveScoring:
		if len(s.Factors) == 0 {
			return shared.NewSchemaError("additive_scoring schema requires scoring_factors")
		}
		for i := range s.Factors {
			f := &s.Factors[i]
			if f.Name == "" {
				return shared.NewSchemaError(fmt.Sprintf("scoring factor %d has no name", i))
			}
			if err := validateGroup(&f.When, "factor "+f.Name); err != nil {
				return err
			}
		}
	case RuleTypeDecisionTree:
		if len(s.Branches) == 0 {
			return shared.NewSchemaError("decision_tree schema requires branches")
		}
		// A tree without a default branch could fall through with no
		// decision, so it is rejected outright.
		if s.DefaultBranch == nil {
			return shared.NewSchemaError("decision_tree schema requires a default_branch")
		}
		if err := s.validateBranches(); err != nil {
			return err
		}
	case RuleTypeRuleList:
		if len(s.Branches) == 0 {
			return shared.NewSchemaError("rule_list schema requires branches")
		}
		if err := s.validateBranches(); err != nil {
			return err
		}
	}

	for i := range s.EdgeCases {
		adj := &s.EdgeCases[i]
		if adj.Name == "" {
			return shared.NewSchemaError(fmt.Sprintf("edge case adjustment %d has no name", i))
		}
		if (adj.Multiplier == nil) == (adj.Offset == nil) {
			return shared.NewSchemaError(
				fmt.Sprintf("edge case %q must set exactly one of multiplier or offset", adj.Name))
		}
		if err := validateGroup(&adj.When, "edge case "+adj.Name); err != nil {
			return err
		}
	}

	for i := range s.ConfidenceAdjustments {
		adj := &s.ConfidenceAdjustments[i]
		if err := validateGroup(&adj.When, "confidence adjustment "+adj.Name); err != nil {
			return err
		}
	}

	return nil
}

// validateVariables checks variable declarations in order, so a variable
// referencing a later (not yet declared) variable is rejected here with
// an unresolved-reference error.
func (s *Schema) validateVariables() (map[string]bool, error) {
	declared := make(map[string]bool, len(s.Variables))
	for i := range s.Variables {
		v := &s.Variables[i]
		if v.Name == "" {
			return nil, shared.NewSchemaError(fmt.Sprintf("computed variable %d has no name", i))
		}
		if declared[v.Name] {
			return nil, shared.NewSchemaError(fmt.Sprintf("computed variable %q declared twice", v.Name))
		}

		switch v.Kind {
		case VariableKindLiteral:
			if v.Value == nil {
				return nil, shared.NewSchemaError(
					fmt.Sprintf("literal variable %q requires a value expression", v.Name))
			}
			if err := v.Value.Validate(declared); err != nil {
				return nil, err
			}
		case VariableKindConditional:
			if len(v.Cases) == 0 {
				return nil, shared.NewSchemaError(
					fmt.Sprintf("conditional variable %q requires cases", v.Name))
			}
			for j := range v.Cases {
				c := &v.Cases[j]
				if err := validateGroup(&c.When, fmt.Sprintf("variable %q case %d", v.Name, j)); err != nil {
					return nil, err
				}
				if err := c.Value.Validate(declared); err != nil {
					return nil, err
				}
			}
			if v.Default != nil {
				if err := v.Default.Validate(declared); err != nil {
					return nil, err
				}
			}
		default:
			return nil, shared.NewSchemaError(
				fmt.Sprintf("variable %q has unknown kind %q", v.Name, v.Kind))
		}

		declared[v.Name] = true
	}
	return declared, nil
}

func (s *Schema) validateBranches() error {
	for i := range s.Branches {
		b := &s.Branches[i]
		if b.Name == "" {
			return shared.NewSchemaError(fmt.Sprintf("branch %d has no name", i))
		}
		if err := validateBranch(b); err != nil {
			return err
		}
	}
	if s.DefaultBranch != nil {
		if s.DefaultBranch.Name == "" {
			return shared.NewSchemaError("default branch has no name")
		}
		if err := validateBranch(s.DefaultBranch); err != nil {
			return err
		}
	}
	return nil
}

func validateBranch(b *Branch) error {
	if b.Confidence != nil && (*b.Confidence < 0 || *b.Confidence > 1) {
		return shared.NewSchemaError(fmt.Sprintf("branch %q confidence must be within [0, 1]", b.Name))
	}
	return validateGroup(&b.When, "branch "+b.Name)
}

func validateGroup(g *ConditionGroup, where string) error {
	switch g.Logic {
	case "", LogicAll, LogicAny:
	case LogicCount:
		if g.MinCount <= 0 {
			return shared.NewSchemaError(where + ": count logic requires min_count > 0")
		}
		if g.MinCount > len(g.Conditions) {
			return shared.NewSchemaError(where + ": min_count exceeds number of conditions")
		}
	default:
		return shared.NewSchemaError(fmt.Sprintf("%s: unknown group logic %q", where, g.Logic))
	}

	for i := range g.Conditions {
		c := &g.Conditions[i]
		if c.Field == "" {
			return shared.NewSchemaError(fmt.Sprintf("%s: condition %d has no field", where, i))
		}
		if !ValidOperators[c.Operator] {
			return shared.NewSchemaError(
				fmt.Sprintf("%s: condition on %q uses unknown operator %q", where, c.Field, c.Operator))
		}
		switch c.Operator {
		case OperatorBetween:
			if c.Min == nil && c.Max == nil {
				return shared.NewSchemaError(
					fmt.Sprintf("%s: between condition on %q requires min or max", where, c.Field))
			}
		case OperatorExists:
		default:
			if len(c.Values) == 0 {
				return shared.NewSchemaError(
					fmt.Sprintf("%s: condition on %q requires values", where, c.Field))
			}
		}
	}
	return nil
}
