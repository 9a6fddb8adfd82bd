package rules

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evalNumeric(t *testing.T, x *Expression, env *Env) decimal.Decimal {
	t.Helper()
	v, err := x.Eval(env)
	require.NoError(t, err)
	n, ok := numericValue(v)
	require.True(t, ok)
	return n
}

func TestExpressionArithmetic(t *testing.T) {
	env := NewEnv(map[string]any{"a": 10, "b": 4})

	tests := []struct {
		name string
		expr Expression
		want string
	}{
		{"add", Expression{Op: "+", Args: []Expression{{Field: "a"}, {Field: "b"}}}, "14"},
		{"sub", Expression{Op: "-", Args: []Expression{{Field: "a"}, {Field: "b"}}}, "6"},
		{"mul", Expression{Op: "*", Args: []Expression{{Field: "a"}, {Field: "b"}}}, "40"},
		{"div", Expression{Op: "/", Args: []Expression{{Field: "a"}, {Field: "b"}}}, "2.5"},
		{"min", Expression{Op: "min", Args: []Expression{{Field: "a"}, {Field: "b"}}}, "4"},
		{"max", Expression{Op: "max", Args: []Expression{{Field: "a"}, {Field: "b"}}}, "10"},
		{"abs", Expression{Op: "abs", Args: []Expression{{Op: "neg", Args: []Expression{{Field: "a"}}}}}, "10"},
		{"gt true", Expression{Op: "gt", Args: []Expression{{Field: "a"}, {Field: "b"}}}, "1"},
		{"lt false", Expression{Op: "lt", Args: []Expression{{Field: "a"}, {Field: "b"}}}, "0"},
		{"nested", Expression{Op: "*", Args: []Expression{
			{Op: "+", Args: []Expression{{Field: "a"}, {Field: "b"}}},
			{Const: floatPtr(2)},
		}}, "28"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := evalNumeric(t, &tc.expr, env)
			assert.Equal(t, tc.want, got.String())
		})
	}
}

func TestExpressionDivisionByZero(t *testing.T) {
	env := NewEnv(map[string]any{"n": 5, "d": 0})
	expr := Expression{Op: "/", Args: []Expression{{Field: "n"}, {Field: "d"}}}

	_, err := expr.Eval(env)
	require.Error(t, err)
	assert.True(t, IsArithmeticError(err))
}

func TestExpressionOverflow(t *testing.T) {
	big := Expression{Const: floatPtr(1e12)}
	expr := Expression{Op: "*", Args: []Expression{big, big}}

	_, err := expr.Eval(NewEnv(nil))
	require.Error(t, err)
	assert.True(t, IsArithmeticError(err))
}

func TestExpressionAbsentFieldIsZero(t *testing.T) {
	env := NewEnv(map[string]any{})
	expr := Expression{Op: "+", Args: []Expression{{Field: "missing"}, {Const: floatPtr(3)}}}

	got := evalNumeric(t, &expr, env)
	assert.Equal(t, "3", got.String())
}

func TestExpressionJSONRoundTrip(t *testing.T) {
	raw := `{"op":"*","args":[{"var":"engagement"},{"const":0.6}]}`

	var expr Expression
	require.NoError(t, json.Unmarshal([]byte(raw), &expr))
	assert.Equal(t, "*", expr.Op)
	require.Len(t, expr.Args, 2)
	assert.Equal(t, "engagement", expr.Args[0].Var)
	require.NotNil(t, expr.Args[1].Const)
	assert.Equal(t, 0.6, *expr.Args[1].Const)
}

func TestExpressionValidate(t *testing.T) {
	declared := map[string]bool{"engagement": true}

	tests := []struct {
		name    string
		expr    Expression
		wantErr bool
	}{
		{"known var", Expression{Var: "engagement"}, false},
		{"unknown var", Expression{Var: "missing"}, true},
		{"unknown op", Expression{Op: "pow", Args: []Expression{{Const: floatPtr(2)}}}, true},
		{"op without args", Expression{Op: "+"}, true},
		{"empty node", Expression{}, true},
		{"two kinds set", Expression{Var: "engagement", Field: "x"}, true},
		{"nested invalid", Expression{Op: "+", Args: []Expression{{Var: "nope"}}}, true},
		{"bare string literal", Expression{Str: strPtr("hot")}, false},
		{"string under arithmetic op", Expression{Op: "+", Args: []Expression{{Str: strPtr("hot")}, {Const: floatPtr(1)}}}, true},
		{"string under comparison op", Expression{Op: "eq", Args: []Expression{{Str: strPtr("hot")}, {Str: strPtr("hot")}}}, true},
		{"nested string operand", Expression{Op: "*", Args: []Expression{
			{Op: "+", Args: []Expression{{Var: "engagement"}, {Str: strPtr("hot")}}},
			{Const: floatPtr(2)},
		}}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.expr.Validate(declared)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
