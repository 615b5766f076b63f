package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateCondition_Equals(t *testing.T) {
	values := []any{"open", 42, 42.0, true, nil}

	for _, v := range values {
		assert.True(t, EvaluateCondition(v, OperatorEquals, v))
		assert.False(t, EvaluateCondition(v, OperatorNotEquals, v))
	}

	// JSON decoding turns numbers into float64; equality must tolerate that.
	assert.True(t, EvaluateCondition(42, OperatorEquals, float64(42)))
	assert.False(t, EvaluateCondition("42", OperatorEquals, 42))
}

func TestEvaluateCondition_Contains(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected any
		want     bool
	}{
		{"substring match", "enquiry about pricing", "pricing", true},
		{"no match", "enquiry about pricing", "refund", false},
		{"numeric coercion", 12345, "234", true},
		{"empty needle", "anything", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EvaluateCondition(tt.value, OperatorContains, tt.expected))
		})
	}
}

func TestEvaluateCondition_Ordering(t *testing.T) {
	tests := []struct {
		name string
		op   Operator
		v    any
		exp  any
		want bool
	}{
		{"gt int", OperatorGreaterThan, 1500, 1000, true},
		{"gt equal", OperatorGreaterThan, 1000, 1000, false},
		{"gt below", OperatorGreaterThan, 500, 1000, false},
		{"gt numeric string", OperatorGreaterThan, "1500", 1000, true},
		{"gt non-numeric", OperatorGreaterThan, "high", 1000, false},
		{"gt nil", OperatorGreaterThan, nil, 1000, false},
		{"lt float", OperatorLessThan, 2.5, 3, true},
		{"lt non-numeric expected", OperatorLessThan, 5, "many", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EvaluateCondition(tt.v, tt.op, tt.exp))
		})
	}
}

func TestEvaluateCondition_Membership(t *testing.T) {
	list := []any{"new", "open", float64(3)}

	assert.True(t, EvaluateCondition("open", OperatorIn, list))
	assert.False(t, EvaluateCondition("closed", OperatorIn, list))
	assert.True(t, EvaluateCondition(3, OperatorIn, list))
	assert.False(t, EvaluateCondition("open", OperatorNotIn, list))
	assert.True(t, EvaluateCondition("closed", OperatorNotIn, list))
}

func TestEvaluateCondition_MembershipFailsClosedOnNonArray(t *testing.T) {
	nonArrays := []any{"open", 7, map[string]any{"a": 1}, nil}

	for _, exp := range nonArrays {
		assert.False(t, EvaluateCondition("open", OperatorIn, exp))
		assert.False(t, EvaluateCondition("open", OperatorNotIn, exp))
	}
}

func TestEvaluateCondition_Existence(t *testing.T) {
	assert.False(t, EvaluateCondition(nil, OperatorExists, nil))
	assert.True(t, EvaluateCondition(nil, OperatorNotExists, nil))
	assert.True(t, EvaluateCondition("anything", OperatorExists, "ignored"))
	assert.False(t, EvaluateCondition(0, OperatorNotExists, nil))
}

func TestEvaluateCondition_UnknownOperatorFailsClosed(t *testing.T) {
	assert.False(t, EvaluateCondition("a", Operator("matches_regex"), "a"))
	assert.False(t, EvaluateCondition("a", Operator(""), "a"))
}

func TestCondition_EvaluateAbsentField(t *testing.T) {
	c := Condition{Field: "amount", Operator: OperatorExists}

	assert.False(t, c.Evaluate(map[string]any{"other": 1}))
	assert.False(t, c.Evaluate(nil))

	c.Operator = OperatorNotExists
	assert.True(t, c.Evaluate(map[string]any{"other": 1}))
}
