package workflow

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// ConditionEvaluator evaluates trigger conditions against entity data
type ConditionEvaluator struct{}

// NewConditionEvaluator creates a new condition evaluator
func NewConditionEvaluator() *ConditionEvaluator {
	return &ConditionEvaluator{}
}

// Evaluate evaluates all conditions against the provided data.
// Returns true if every condition passes (or if no conditions exist).
func (e *ConditionEvaluator) Evaluate(conditions []Condition, data map[string]interface{}) bool {
	for _, condition := range conditions {
		if !e.evaluateSingle(condition, data) {
			return false
		}
	}
	return true
}

// evaluateSingle evaluates one condition. A missing field resolves to an
// undefined value, which fails every operator except the emptiness pair.
func (e *ConditionEvaluator) evaluateSingle(condition Condition, data map[string]interface{}) bool {
	fieldValue, exists := lookupPath(data, condition.Field)

	switch condition.Operator {
	case OpIsEmpty:
		return !exists || isEmpty(fieldValue)

	case OpIsNotEmpty:
		return exists && !isEmpty(fieldValue)
	}

	if !exists {
		return false
	}

	switch condition.Operator {
	case OpEqual, OpStrictEqual:
		return compareEquals(fieldValue, condition.Value)

	case OpNotEqual:
		return !compareEquals(fieldValue, condition.Value)

	case OpGreaterThan, OpGreaterOrEqual, OpLessThan, OpLessOrEqual:
		return compareNumeric(condition.Operator, fieldValue, condition.Value)

	case OpContains:
		return compareSubstring(fieldValue, condition.Value, strings.Contains)

	case OpNotContains:
		return !compareSubstring(fieldValue, condition.Value, strings.Contains)

	case OpStartsWith:
		return compareSubstring(fieldValue, condition.Value, strings.HasPrefix)

	case OpEndsWith:
		return compareSubstring(fieldValue, condition.Value, strings.HasSuffix)

	case OpIn:
		return compareInList(fieldValue, condition.Value)

	case OpNotIn:
		return !compareInList(fieldValue, condition.Value)

	default:
		return false
	}
}

// lookupPath resolves a dotted path ("customer.address.city") into nested
// maps. A missing intermediate key short-circuits to undefined.
func lookupPath(data map[string]interface{}, path string) (interface{}, bool) {
	parts := strings.Split(path, ".")
	var current interface{} = data
	for _, part := range parts {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// compareEquals compares loosely: numbers compare as float64, everything else
// by string form, so 7 == "7" and "open" == "open" both hold.
func compareEquals(fieldValue, conditionValue interface{}) bool {
	if reflect.DeepEqual(fieldValue, conditionValue) {
		return true
	}
	if fn, err := toFloat64(fieldValue); err == nil {
		if cn, err := toFloat64(conditionValue); err == nil {
			return fn == cn
		}
	}
	return strings.EqualFold(stringify(fieldValue), stringify(conditionValue))
}

func compareNumeric(op string, fieldValue, conditionValue interface{}) bool {
	fieldNum, err := toFloat64(fieldValue)
	if err != nil {
		return false
	}
	condNum, err := toFloat64(conditionValue)
	if err != nil {
		return false
	}

	switch op {
	case OpGreaterThan:
		return fieldNum > condNum
	case OpGreaterOrEqual:
		return fieldNum >= condNum
	case OpLessThan:
		return fieldNum < condNum
	case OpLessOrEqual:
		return fieldNum <= condNum
	}
	return false
}

// compareSubstring applies a lower-cased string comparison
func compareSubstring(fieldValue, conditionValue interface{}, cmp func(string, string) bool) bool {
	fieldStr := strings.ToLower(stringify(fieldValue))
	condStr := strings.ToLower(stringify(conditionValue))
	return cmp(fieldStr, condStr)
}

// compareInList checks membership against a literal list or a comma-separated
// string ("hot,warm,cold").
func compareInList(fieldValue, conditionValue interface{}) bool {
	var items []interface{}
	switch v := conditionValue.(type) {
	case []interface{}:
		items = v
	case string:
		for _, part := range strings.Split(v, ",") {
			items = append(items, strings.TrimSpace(part))
		}
	default:
		return false
	}

	for _, item := range items {
		if compareEquals(fieldValue, item) {
			return true
		}
	}
	return false
}

// isEmpty treats nil, the empty string and zero-length lists/maps as empty
func isEmpty(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []interface{}:
		return len(v) == 0
	case map[string]interface{}:
		return len(v) == 0
	}
	return false
}

func stringify(value interface{}) string {
	if value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", value)
}

// toFloat64 converts numeric types and numeric strings to float64
func toFloat64(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to float64", value)
	}
}
