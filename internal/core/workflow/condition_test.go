package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateNoConditionsAlwaysPasses(t *testing.T) {
	e := NewConditionEvaluator()
	assert.True(t, e.Evaluate(nil, map[string]interface{}{"anything": 1}))
	assert.True(t, e.Evaluate([]Condition{}, nil))
}

func TestEvaluateNumericBoundaries(t *testing.T) {
	e := NewConditionEvaluator()
	cond := []Condition{{Field: "amount", Operator: OpGreaterOrEqual, Value: 1000}}

	assert.True(t, e.Evaluate(cond, map[string]interface{}{"amount": 1000}))
	assert.True(t, e.Evaluate(cond, map[string]interface{}{"amount": 1000.01}))
	assert.False(t, e.Evaluate(cond, map[string]interface{}{"amount": 999.99}))
	// missing field is undefined and fails every comparison operator
	assert.False(t, e.Evaluate(cond, map[string]interface{}{}))
}

func TestEvaluateNumericCoercion(t *testing.T) {
	e := NewConditionEvaluator()

	tests := []struct {
		name  string
		cond  Condition
		data  map[string]interface{}
		match bool
	}{
		{"string field coerced", Condition{Field: "days", Operator: OpGreaterThan, Value: 5}, map[string]interface{}{"days": "7"}, true},
		{"string value coerced", Condition{Field: "days", Operator: OpLessThan, Value: "10"}, map[string]interface{}{"days": 7}, true},
		{"non-numeric fails", Condition{Field: "days", Operator: OpGreaterThan, Value: 5}, map[string]interface{}{"days": "soon"}, false},
		{"less or equal boundary", Condition{Field: "n", Operator: OpLessOrEqual, Value: 3}, map[string]interface{}{"n": 3}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.match, e.Evaluate([]Condition{tt.cond}, tt.data))
		})
	}
}

func TestEvaluateEquality(t *testing.T) {
	e := NewConditionEvaluator()

	assert.True(t, e.Evaluate([]Condition{{Field: "status", Operator: OpEqual, Value: "open"}}, map[string]interface{}{"status": "open"}))
	assert.True(t, e.Evaluate([]Condition{{Field: "status", Operator: OpEqual, Value: "OPEN"}}, map[string]interface{}{"status": "open"}))
	assert.True(t, e.Evaluate([]Condition{{Field: "count", Operator: OpStrictEqual, Value: 7}, {Field: "count", Operator: OpEqual, Value: "7"}}, map[string]interface{}{"count": 7.0}))
	assert.True(t, e.Evaluate([]Condition{{Field: "status", Operator: OpNotEqual, Value: "closed"}}, map[string]interface{}{"status": "open"}))
	// missing field: != is false too, undefined fails everything but emptiness
	assert.False(t, e.Evaluate([]Condition{{Field: "status", Operator: OpNotEqual, Value: "closed"}}, map[string]interface{}{}))
}

func TestEvaluateSubstringOperators(t *testing.T) {
	e := NewConditionEvaluator()
	data := map[string]interface{}{"description": "Roof Repair - Emergency"}

	assert.True(t, e.Evaluate([]Condition{{Field: "description", Operator: OpContains, Value: "emergency"}}, data))
	assert.False(t, e.Evaluate([]Condition{{Field: "description", Operator: OpNotContains, Value: "roof"}}, data))
	assert.True(t, e.Evaluate([]Condition{{Field: "description", Operator: OpStartsWith, Value: "roof"}}, data))
	assert.True(t, e.Evaluate([]Condition{{Field: "description", Operator: OpEndsWith, Value: "EMERGENCY"}}, data))
}

func TestEvaluateEmptiness(t *testing.T) {
	e := NewConditionEvaluator()

	isEmptyCond := []Condition{{Field: "notes", Operator: OpIsEmpty}}
	isNotEmptyCond := []Condition{{Field: "notes", Operator: OpIsNotEmpty}}

	assert.True(t, e.Evaluate(isEmptyCond, map[string]interface{}{"notes": ""}))
	assert.True(t, e.Evaluate(isEmptyCond, map[string]interface{}{"notes": []interface{}{}}))
	assert.True(t, e.Evaluate(isEmptyCond, map[string]interface{}{}))
	assert.False(t, e.Evaluate(isEmptyCond, map[string]interface{}{"notes": "call back"}))

	assert.True(t, e.Evaluate(isNotEmptyCond, map[string]interface{}{"notes": "call back"}))
	assert.False(t, e.Evaluate(isNotEmptyCond, map[string]interface{}{}))
}

func TestEvaluateMembership(t *testing.T) {
	e := NewConditionEvaluator()

	listCond := []Condition{{Field: "stage", Operator: OpIn, Value: []interface{}{"hot", "warm"}}}
	csvCond := []Condition{{Field: "stage", Operator: OpIn, Value: "hot, warm, cold"}}
	notInCond := []Condition{{Field: "stage", Operator: OpNotIn, Value: "lost,won"}}

	assert.True(t, e.Evaluate(listCond, map[string]interface{}{"stage": "warm"}))
	assert.False(t, e.Evaluate(listCond, map[string]interface{}{"stage": "cold"}))
	assert.True(t, e.Evaluate(csvCond, map[string]interface{}{"stage": "cold"}))
	assert.True(t, e.Evaluate(notInCond, map[string]interface{}{"stage": "warm"}))
	assert.False(t, e.Evaluate(notInCond, map[string]interface{}{"stage": "lost"}))
}

func TestEvaluateDottedPaths(t *testing.T) {
	e := NewConditionEvaluator()
	data := map[string]interface{}{
		"customer": map[string]interface{}{
			"address": map[string]interface{}{"city": "Portland"},
		},
	}

	assert.True(t, e.Evaluate([]Condition{{Field: "customer.address.city", Operator: OpEqual, Value: "Portland"}}, data))
	// missing intermediate key short-circuits to undefined
	assert.False(t, e.Evaluate([]Condition{{Field: "customer.billing.city", Operator: OpEqual, Value: "Portland"}}, data))
	assert.True(t, e.Evaluate([]Condition{{Field: "customer.billing.city", Operator: OpIsEmpty}}, data))
}

func TestEvaluateAndSemantics(t *testing.T) {
	e := NewConditionEvaluator()
	conds := []Condition{
		{Field: "amount", Operator: OpGreaterThan, Value: 100},
		{Field: "status", Operator: OpEqual, Value: "overdue"},
	}

	assert.True(t, e.Evaluate(conds, map[string]interface{}{"amount": 200, "status": "overdue"}))
	assert.False(t, e.Evaluate(conds, map[string]interface{}{"amount": 50, "status": "overdue"}))
	assert.False(t, e.Evaluate(conds, map[string]interface{}{"amount": 200, "status": "paid"}))
}

func TestEvaluateUnknownOperatorFails(t *testing.T) {
	e := NewConditionEvaluator()
	assert.False(t, e.Evaluate([]Condition{{Field: "x", Operator: "matches_regex", Value: ".*"}}, map[string]interface{}{"x": "y"}))
}
