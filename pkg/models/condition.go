package models

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Operator is the comparison applied between a record field and the
// expected value of a condition.
type Operator string

const (
	OperatorEquals      Operator = "equals"
	OperatorNotEquals   Operator = "not_equals"
	OperatorContains    Operator = "contains"
	OperatorGreaterThan Operator = "greater_than"
	OperatorLessThan    Operator = "less_than"
	OperatorIn          Operator = "in"
	OperatorNotIn       Operator = "not_in"
	OperatorExists      Operator = "exists"
	OperatorNotExists   Operator = "not_exists"
)

// Condition is a single field comparison. Conditions on an event-based
// trigger are combined with logical AND.
type Condition struct {
	Field    string   `json:"field"    validate:"required"`
	Operator Operator `json:"operator" validate:"required,oneof=equals not_equals contains greater_than less_than in not_in exists not_exists"`
	Value    any      `json:"value"`
}

// ConditionClause is a condition carrying its own logical operator tag,
// used by condition-based triggers. The tag is stored but not yet consumed
// by evaluation, which applies AND across all clauses.
type ConditionClause struct {
	Condition

	LogicalOperator LogicalOperator `json:"logical_operator,omitempty" validate:"omitempty,oneof=AND OR"`
}

// EvaluateCondition applies op between fieldValue and expected. It is pure
// and total: a misconfigured condition (unknown operator, malformed member
// list, non-numeric comparison input) evaluates to false instead of
// raising, so bad configuration silently prevents firing.
func EvaluateCondition(fieldValue any, op Operator, expected any) bool {
	switch op {
	case OperatorEquals:
		return looseEqual(fieldValue, expected)
	case OperatorNotEquals:
		return !looseEqual(fieldValue, expected)
	case OperatorContains:
		return strings.Contains(fmt.Sprint(fieldValue), fmt.Sprint(expected))
	case OperatorGreaterThan:
		a, aok := toFloat(fieldValue)
		b, bok := toFloat(expected)

		return aok && bok && a > b
	case OperatorLessThan:
		a, aok := toFloat(fieldValue)
		b, bok := toFloat(expected)

		return aok && bok && a < b
	case OperatorIn:
		found, ok := memberOf(fieldValue, expected)

		return ok && found
	case OperatorNotIn:
		found, ok := memberOf(fieldValue, expected)

		return ok && !found
	case OperatorExists:
		return fieldValue != nil
	case OperatorNotExists:
		return fieldValue == nil
	default:
		return false
	}
}

// Evaluate applies the condition against a data payload. A field absent
// from the payload is evaluated as nil.
func (c Condition) Evaluate(data map[string]any) bool {
	return EvaluateCondition(data[c.Field], c.Operator, c.Value)
}

// looseEqual compares values without string coercion but tolerates the
// int/float64 mismatch introduced by JSON decoding.
func looseEqual(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}

	af, aok := numericValue(a)
	bf, bok := numericValue(b)

	return aok && bok && af == bf
}

// memberOf reports whether v is an element of list. The second return is
// false when list is not a slice or array, which callers treat as a failed
// condition regardless of operator polarity.
func memberOf(v, list any) (found, ok bool) {
	if list == nil {
		return false, false
	}

	rv := reflect.ValueOf(list)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return false, false
	}

	for i := range rv.Len() {
		if looseEqual(rv.Index(i).Interface(), v) {
			return true, true
		}
	}

	return false, true
}

// numericValue converts native numeric types without parsing strings.
func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// toFloat coerces numbers and numeric strings for ordering comparisons.
func toFloat(v any) (float64, bool) {
	if f, ok := numericValue(v); ok {
		return f, true
	}

	if s, ok := v.(string); ok {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}

		return f, true
	}

	return 0, false
}
