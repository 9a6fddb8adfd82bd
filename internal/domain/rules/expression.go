package rules

import (
	"fmt"

	"github.com/leadscore/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Expression is a whitelisted arithmetic/comparison expression tree.
// Exactly one of Op, Var, Field, Const or Str is set per node. There is
// no dynamic code execution and no access to anything outside the
// evaluation environment.
//
// Serialized form, e.g.:
//
//	{"op": "*", "args": [{"var": "engagement"}, {"const": 0.6}]}
type Expression struct {
	Op    string       `json:"op,omitempty"`
	Args  []Expression `json:"args,omitempty"`
	Var   string       `json:"var,omitempty"`
	Field string       `json:"field,omitempty"`
	Const *float64     `json:"const,omitempty"`
	Str   *string      `json:"str,omitempty"`
}

// Arithmetic and comparison operators accepted in expressions.
// Comparison operators yield 1 or 0 so they compose with arithmetic.
var validExprOps = map[string]bool{
	"+": true, "-": true, "*": true, "/": true,
	"min": true, "max": true, "abs": true, "neg": true,
	"gt": true, "gte": true, "lt": true, "lte": true, "eq": true,
}

// overflowLimit bounds expression results. Anything beyond it is treated
// the same as division by zero: the evaluation degrades instead of
// producing a nonsense score.
var overflowLimit = decimal.New(1, 15) // 1e15

// errArithmetic marks division by zero and overflow. The interpreter
// maps it to a fallback result with zero confidence; it never escapes
// to the caller.
type errArithmetic struct{ reason string }

func (e *errArithmetic) Error() string { return e.reason }

// IsArithmeticError reports whether err is a degraded-arithmetic error.
func IsArithmeticError(err error) bool {
	_, ok := err.(*errArithmetic)
	return ok
}

// Eval evaluates the expression against the environment. Numeric results
// are decimal so repeated evaluation is byte-identical.
func (x *Expression) Eval(env *Env) (any, error) {
	switch {
	case x.Const != nil:
		return decimal.NewFromFloat(*x.Const), nil
	case x.Str != nil:
		return *x.Str, nil
	case x.Var != "":
		v, ok := env.Var(x.Var)
		if !ok {
			return nil, shared.NewDomainError(shared.CodeUnresolvedReference,
				fmt.Sprintf("expression references undefined variable %q", x.Var))
		}
		return v, nil
	case x.Field != "":
		v, ok := env.Field(x.Field)
		if !ok || v == nil {
			// Absent fields evaluate as zero; the interpreter separately
			// applies the missing-field confidence penalty.
			return decimal.Zero, nil
		}
		return v, nil
	case x.Op != "":
		return x.evalOp(env)
	default:
		return nil, shared.NewSchemaError("empty expression node")
	}
}

func (x *Expression) evalOp(env *Env) (any, error) {
	args := make([]decimal.Decimal, 0, len(x.Args))
	for i := range x.Args {
		v, err := x.Args[i].Eval(env)
		if err != nil {
			return nil, err
		}
		n, ok := numericValue(v)
		if !ok {
			return nil, shared.NewSchemaError(
				fmt.Sprintf("operator %q applied to non-numeric value %v", x.Op, v))
		}
		args = append(args, n)
	}

	result, err := applyOp(x.Op, args)
	if err != nil {
		return nil, err
	}
	if result.Abs().GreaterThan(overflowLimit) {
		return nil, &errArithmetic{reason: fmt.Sprintf("operator %q overflowed", x.Op)}
	}
	return result, nil
}

func applyOp(op string, args []decimal.Decimal) (decimal.Decimal, error) {
	switch op {
	case "+":
		sum := decimal.Zero
		for _, a := range args {
			sum = sum.Add(a)
		}
		return sum, nil
	case "-":
		if len(args) == 0 {
			return decimal.Zero, nil
		}
		result := args[0]
		for _, a := range args[1:] {
			result = result.Sub(a)
		}
		return result, nil
	case "*":
		product := decimal.NewFromInt(1)
		for _, a := range args {
			product = product.Mul(a)
		}
		return product, nil
	case "/":
		if len(args) != 2 {
			return decimal.Zero, shared.NewSchemaError("operator \"/\" requires exactly 2 arguments")
		}
		if args[1].IsZero() {
			return decimal.Zero, &errArithmetic{reason: "division by zero"}
		}
		return args[0].DivRound(args[1], 8), nil
	case "min":
		if len(args) == 0 {
			return decimal.Zero, nil
		}
		result := args[0]
		for _, a := range args[1:] {
			if a.LessThan(result) {
				result = a
			}
		}
		return result, nil
	case "max":
		if len(args) == 0 {
			return decimal.Zero, nil
		}
		result := args[0]
		for _, a := range args[1:] {
			if a.GreaterThan(result) {
				result = a
			}
		}
		return result, nil
	case "abs":
		if len(args) != 1 {
			return decimal.Zero, shared.NewSchemaError("operator \"abs\" requires exactly 1 argument")
		}
		return args[0].Abs(), nil
	case "neg":
		if len(args) != 1 {
			return decimal.Zero, shared.NewSchemaError("operator \"neg\" requires exactly 1 argument")
		}
		return args[0].Neg(), nil
	case "gt", "gte", "lt", "lte", "eq":
		if len(args) != 2 {
			return decimal.Zero, shared.NewSchemaError(
				fmt.Sprintf("operator %q requires exactly 2 arguments", op))
		}
		return boolDecimal(compareDecimals(op, args[0], args[1])), nil
	default:
		return decimal.Zero, shared.NewSchemaError(fmt.Sprintf("unknown operator %q", op))
	}
}

func compareDecimals(op string, a, b decimal.Decimal) bool {
	switch op {
	case "gt":
		return a.GreaterThan(b)
	case "gte":
		return a.GreaterThanOrEqual(b)
	case "lt":
		return a.LessThan(b)
	case "lte":
		return a.LessThanOrEqual(b)
	default:
		return a.Equal(b)
	}
}

func boolDecimal(b bool) decimal.Decimal {
	if b {
		return decimal.NewFromInt(1)
	}
	return decimal.Zero
}

// Validate checks the expression shape without evaluating it. declared
// holds the computed variables visible at this point in the schema.
func (x *Expression) Validate(declared map[string]bool) error {
	set := 0
	if x.Const != nil {
		set++
	}
	if x.Str != nil {
		set++
	}
	if x.Var != "" {
		set++
	}
	if x.Field != "" {
		set++
	}
	if x.Op != "" {
		set++
	}
	if set != 1 {
		return shared.NewSchemaError("expression node must set exactly one of op/var/field/const/str")
	}

	if x.Var != "" && !declared[x.Var] {
		return shared.NewDomainError(shared.CodeUnresolvedReference,
			fmt.Sprintf("expression references undefined variable %q", x.Var))
	}
	if x.Op != "" {
		if !validExprOps[x.Op] {
			return shared.NewSchemaError(fmt.Sprintf("unknown operator %q", x.Op))
		}
		if len(x.Args) == 0 {
			return shared.NewSchemaError(fmt.Sprintf("operator %q has no arguments", x.Op))
		}
		for i := range x.Args {
			// Every operator is numeric, so a string literal operand can
			// only ever fail at evaluation time. Catch it at publish time.
			if x.Args[i].Str != nil {
				return shared.NewSchemaError(
					fmt.Sprintf("operator %q applied to string operand", x.Op))
			}
			if err := x.Args[i].Validate(declared); err != nil {
				return err
			}
		}
	}
	return nil
}

func (x *Expression) collectFields(fields map[string]bool) {
	if x == nil {
		return
	}
	if x.Field != "" {
		fields[x.Field] = true
	}
	for i := range x.Args {
		x.Args[i].collectFields(fields)
	}
}
