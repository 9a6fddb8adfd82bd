package rules

import (
	"testing"

	"github.com/leadscore/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_AcceptsWellFormedSchemas(t *testing.T) {
	schemas := []*Schema{
		additiveSchema(),
		{
			Name:    "formula",
			Version: "v1",
			Type:    RuleTypeFormula,
			Formula: &Expression{Op: "*", Args: []Expression{{Field: "open_rate"}, {Const: floatPtr(100)}}},
		},
		{
			Name:    "tree",
			Version: "v1",
			Type:    RuleTypeDecisionTree,
			Branches: []Branch{
				{Name: "hot", When: ConditionGroup{Conditions: []Condition{
					{Field: "open_rate", Operator: OperatorGreaterThan, Values: []string{"0.5"}},
				}}, Score: 90},
			},
			DefaultBranch: &Branch{Name: "cold", Score: 10},
		},
	}

	for _, s := range schemas {
		assert.NoError(t, s.Validate(), s.Name)
	}
}

func TestValidate_RejectsMalformedSchemas(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Schema)
	}{
		{"missing name", func(s *Schema) { s.Name = "" }},
		{"missing version", func(s *Schema) { s.Version = "" }},
		{"unknown type", func(s *Schema) { s.Type = "neural_net" }},
		{"inverted range", func(s *Schema) { s.ScoreMin = 100; s.ScoreMax = 0 }},
		{"confidence out of range", func(s *Schema) { s.BaseConfidence = 1.5 }},
		{"no factors", func(s *Schema) { s.Factors = nil }},
		{"unnamed factor", func(s *Schema) { s.Factors[0].Name = "" }},
		{"unknown operator", func(s *Schema) { s.Factors[0].When.Conditions[0].Operator = "regex" }},
		{"condition without field", func(s *Schema) { s.Factors[0].When.Conditions[0].Field = "" }},
		{"condition without values", func(s *Schema) { s.Factors[0].When.Conditions[0].Values = nil }},
		{"edge case with both multiplier and offset", func(s *Schema) {
			s.EdgeCases[0].Offset = floatPtr(5)
		}},
		{"edge case with neither multiplier nor offset", func(s *Schema) {
			s.EdgeCases[0].Multiplier = nil
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := additiveSchema()
			tc.mutate(s)

			err := s.Validate()
			require.Error(t, err)

			var domainErr *shared.DomainError
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, shared.CodeSchemaInvalid, domainErr.Code)
		})
	}
}

func TestValidate_DecisionTreeRequiresDefaultBranch(t *testing.T) {
	s := &Schema{
		Name:    "tree",
		Version: "v1",
		Type:    RuleTypeDecisionTree,
		Branches: []Branch{
			{Name: "hot", Score: 90},
		},
	}

	err := s.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default_branch")
}

func TestValidate_ForwardVariableReference(t *testing.T) {
	s := &Schema{
		Name:    "fwd",
		Version: "v1",
		Type:    RuleTypeFormula,
		Variables: []ComputedVariable{
			{Name: "a", Kind: VariableKindLiteral, Value: &Expression{Var: "b"}},
			{Name: "b", Kind: VariableKindLiteral, Value: &Expression{Const: floatPtr(1)}},
		},
		Formula: &Expression{Var: "a"},
	}

	err := s.Validate()
	require.Error(t, err)

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, shared.CodeUnresolvedReference, domainErr.Code)
}

func TestValidate_DuplicateVariable(t *testing.T) {
	s := &Schema{
		Name:    "dup",
		Version: "v1",
		Type:    RuleTypeFormula,
		Variables: []ComputedVariable{
			{Name: "a", Kind: VariableKindLiteral, Value: &Expression{Const: floatPtr(1)}},
			{Name: "a", Kind: VariableKindLiteral, Value: &Expression{Const: floatPtr(2)}},
		},
		Formula: &Expression{Var: "a"},
	}

	assert.Error(t, s.Validate())
}

func TestValidate_CountLogicBounds(t *testing.T) {
	s := additiveSchema()
	s.Factors[0].When = ConditionGroup{
		Logic:    LogicCount,
		MinCount: 5,
		Conditions: []Condition{
			{Field: "industry", Operator: OperatorEquals, Values: []string{"fintech"}},
		},
	}

	assert.Error(t, s.Validate())
}
