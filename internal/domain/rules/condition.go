package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ConditionOperator defines how a condition compares a field value.
type ConditionOperator string

const (
	OperatorEquals      ConditionOperator = "equals"
	OperatorNotEquals   ConditionOperator = "not_equals"
	OperatorMatchesAny  ConditionOperator = "matches_any"
	OperatorContains    ConditionOperator = "contains"
	OperatorGreaterThan ConditionOperator = "greater_than"
	OperatorGreaterEq   ConditionOperator = "greater_eq"
	OperatorLessThan    ConditionOperator = "less_than"
	OperatorLessEq      ConditionOperator = "less_eq"
	OperatorBetween     ConditionOperator = "between"
	OperatorExists      ConditionOperator = "exists"
)

// ValidOperators contains all accepted condition operators
var ValidOperators = map[ConditionOperator]bool{
	OperatorEquals:      true,
	OperatorNotEquals:   true,
	OperatorMatchesAny:  true,
	OperatorContains:    true,
	OperatorGreaterThan: true,
	OperatorGreaterEq:   true,
	OperatorLessThan:    true,
	OperatorLessEq:      true,
	OperatorBetween:     true,
	OperatorExists:      true,
}

// Condition is a single predicate over one field. Field is resolved
// against computed variables first, then the raw input record. A
// condition over an absent field never matches.
type Condition struct {
	Field    string   `json:"field"`
	Operator ConditionOperator `json:"operator"`
	Values   []string `json:"values,omitempty"`
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
}

// GroupLogic combines multiple conditions.
type GroupLogic string

const (
	LogicAll   GroupLogic = "all"   // AND
	LogicAny   GroupLogic = "any"   // OR
	LogicCount GroupLogic = "count" // at least MinCount conditions hold
)

// ConditionGroup is a multi-condition predicate with AND/OR/COUNT logic.
// An empty group matches everything, which lets default factors and
// unconditional branches be expressed without a separate mechanism.
type ConditionGroup struct {
	Logic      GroupLogic  `json:"logic,omitempty"`
	MinCount   int         `json:"min_count,omitempty"`
	Conditions []Condition `json:"conditions,omitempty"`
}

// Match evaluates the group against the environment.
func (g *ConditionGroup) Match(env *Env) bool {
	if len(g.Conditions) == 0 {
		return true
	}

	matched := 0
	for _, c := range g.Conditions {
		ok := c.Match(env)
		switch g.logic() {
		case LogicAll:
			if !ok {
				return false
			}
		case LogicAny:
			if ok {
				return true
			}
		case LogicCount:
			if ok {
				matched++
			}
		}
	}

	switch g.logic() {
	case LogicAll:
		return true
	case LogicCount:
		return matched >= g.MinCount
	default: // any, nothing matched
		return false
	}
}

func (g *ConditionGroup) logic() GroupLogic {
	if g.Logic == "" {
		return LogicAll
	}
	return g.Logic
}

func (g *ConditionGroup) collectFields(fields map[string]bool) {
	for _, c := range g.Conditions {
		fields[c.Field] = true
	}
}

// Match evaluates a single condition against the environment.
func (c *Condition) Match(env *Env) bool {
	value, ok := env.Lookup(c.Field)

	if c.Operator == OperatorExists {
		return ok && value != nil
	}
	if !ok || value == nil {
		return false
	}

	switch c.Operator {
	case OperatorEquals:
		return matchEquals(value, c.Values)
	case OperatorNotEquals:
		return !matchEquals(value, c.Values)
	case OperatorMatchesAny:
		return matchAny(value, c.Values)
	case OperatorContains:
		return matchContains(value, c.Values)
	case OperatorGreaterThan:
		return compareNumeric(value, c.Values, func(a, b float64) bool { return a > b })
	case OperatorGreaterEq:
		return compareNumeric(value, c.Values, func(a, b float64) bool { return a >= b })
	case OperatorLessThan:
		return compareNumeric(value, c.Values, func(a, b float64) bool { return a < b })
	case OperatorLessEq:
		return compareNumeric(value, c.Values, func(a, b float64) bool { return a <= b })
	case OperatorBetween:
		return matchBetween(value, c.Min, c.Max)
	default:
		return false
	}
}

// matchEquals checks case-insensitive equality against any of the
// condition values.
func matchEquals(value any, condValues []string) bool {
	if len(condValues) == 0 {
		return false
	}
	valueStr := valueToString(value)
	for _, cv := range condValues {
		if strings.EqualFold(valueStr, cv) {
			return true
		}
	}
	return false
}

// matchAny checks set membership, case-insensitive.
func matchAny(value any, condValues []string) bool {
	valueStr := strings.ToLower(valueToString(value))
	for _, cv := range condValues {
		if strings.ToLower(cv) == valueStr {
			return true
		}
	}
	return false
}

// matchContains checks substring containment, case-insensitive.
func matchContains(value any, condValues []string) bool {
	valueStr := strings.ToLower(valueToString(value))
	for _, cv := range condValues {
		if strings.Contains(valueStr, strings.ToLower(cv)) {
			return true
		}
	}
	return false
}

func compareNumeric(value any, condValues []string, cmp func(a, b float64) bool) bool {
	if len(condValues) == 0 {
		return false
	}
	num, ok := valueToFloat64(value)
	if !ok {
		return false
	}
	threshold, err := strconv.ParseFloat(condValues[0], 64)
	if err != nil {
		return false
	}
	return cmp(num, threshold)
}

func matchBetween(value any, min, max *float64) bool {
	num, ok := valueToFloat64(value)
	if !ok {
		return false
	}
	if min != nil && num < *min {
		return false
	}
	if max != nil && num > *max {
		return false
	}
	return min != nil || max != nil
}

// valueToString converts any value to a string representation
func valueToString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case decimal.Decimal:
		return v.String()
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// valueToFloat64 attempts to convert any value to float64
func valueToFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case decimal.Decimal:
		f, _ := v.Float64()
		return f, true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f, true
		}
		return 0, false
	default:
		return 0, false
	}
}
