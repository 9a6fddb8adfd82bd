package rules

import "github.com/shopspring/decimal"

// Env is the evaluation environment for one interpreter run: the raw
// input record plus computed variables resolved so far. Lookup prefers
// variables over raw fields so a variable can shadow (normalize) an
// input field of the same name.
type Env struct {
	input map[string]any
	vars  map[string]any
}

// NewEnv creates an environment over the given input record.
func NewEnv(input map[string]any) *Env {
	return &Env{
		input: input,
		vars:  make(map[string]any),
	}
}

// Lookup resolves a name against variables first, then raw input.
func (e *Env) Lookup(name string) (any, bool) {
	if v, ok := e.vars[name]; ok {
		return v, true
	}
	v, ok := e.input[name]
	return v, ok
}

// Var resolves a computed variable only.
func (e *Env) Var(name string) (any, bool) {
	v, ok := e.vars[name]
	return v, ok
}

// Field resolves a raw input field only.
func (e *Env) Field(name string) (any, bool) {
	v, ok := e.input[name]
	return v, ok
}

// SetVar binds a computed variable.
func (e *Env) SetVar(name string, value any) {
	e.vars[name] = value
}

// HasField reports whether the input record carries the field at all.
func (e *Env) HasField(name string) bool {
	v, ok := e.input[name]
	return ok && v != nil
}

// numericValue converts an environment value to decimal for arithmetic.
func numericValue(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, true
	case float64:
		return decimal.NewFromFloat(n), true
	case float32:
		return decimal.NewFromFloat32(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case bool:
		if n {
			return decimal.NewFromInt(1), true
		}
		return decimal.NewFromInt(0), true
	case string:
		d, err := decimal.NewFromString(n)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	default:
		return decimal.Zero, false
	}
}
