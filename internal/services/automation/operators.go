// Package automation provides the trigger/condition/action rule engine.
// Rules match lifecycle events against ticket state and dispatch typed
// actions; SLA breach detection feeds back into it as its own trigger.
package automation

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ticketflow-io/ticketflow/internal/models"
)

// OperatorEvaluator evaluates a single predicate against a field value.
type OperatorEvaluator interface {
	Evaluate(value interface{}, op models.ConditionOperator, expected interface{}) (bool, error)
}

// StandardOperators implements the built-in operator set.
type StandardOperators struct{}

// Evaluate applies op to (value, expected). A nil field value yields false
// for every operator except is_null, is_not_null, and not_equals against a
// non-nil expectation.
func (StandardOperators) Evaluate(value interface{}, op models.ConditionOperator, expected interface{}) (bool, error) {
	switch op {
	case models.OperatorIsNull:
		return value == nil, nil
	case models.OperatorIsNotNull:
		return value != nil, nil
	case models.OperatorNotEquals:
		if value == nil {
			return expected != nil, nil
		}
		return !looseEquals(value, expected), nil
	}

	if value == nil {
		return false, nil
	}

	switch op {
	case models.OperatorEquals:
		return looseEquals(value, expected), nil
	case models.OperatorContains:
		return containsValue(value, expected), nil
	case models.OperatorNotContains:
		return !containsValue(value, expected), nil
	case models.OperatorIn:
		return inList(value, expected), nil
	case models.OperatorNotIn:
		return !inList(value, expected), nil
	case models.OperatorGreaterThan:
		cmp, ok := compareValues(value, expected)
		return ok && cmp > 0, nil
	case models.OperatorLessThan:
		cmp, ok := compareValues(value, expected)
		return ok && cmp < 0, nil
	case models.OperatorGreaterOrEqual:
		cmp, ok := compareValues(value, expected)
		return ok && cmp >= 0, nil
	case models.OperatorLessOrEqual:
		cmp, ok := compareValues(value, expected)
		return ok && cmp <= 0, nil
	case models.OperatorStartsWith:
		return strings.HasPrefix(stringify(value), stringify(expected)), nil
	case models.OperatorEndsWith:
		return strings.HasSuffix(stringify(value), stringify(expected)), nil
	default:
		return false, fmt.Errorf("unknown operator %q", op)
	}
}

// looseEquals compares across the JSON-ish type set conditions carry:
// numbers compare numerically, times temporally, everything else as strings.
func looseEquals(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if fa, aok := toFloat(a); aok {
		if fb, bok := toFloat(b); bok {
			return fa == fb
		}
	}
	if ta, aok := toTime(a); aok {
		if tb, bok := toTime(b); bok {
			return ta.Equal(tb)
		}
	}
	return stringify(a) == stringify(b)
}

// compareValues orders numeric or temporal values. The bool reports whether
// the pair was comparable at all.
func compareValues(a, b interface{}) (int, bool) {
	if fa, aok := toFloat(a); aok {
		if fb, bok := toFloat(b); bok {
			switch {
			case fa < fb:
				return -1, true
			case fa > fb:
				return 1, true
			default:
				return 0, true
			}
		}
	}
	if ta, aok := toTime(a); aok {
		if tb, bok := toTime(b); bok {
			switch {
			case ta.Before(tb):
				return -1, true
			case ta.After(tb):
				return 1, true
			default:
				return 0, true
			}
		}
	}
	return 0, false
}

// containsValue is substring match for strings and membership for slices.
func containsValue(value, expected interface{}) bool {
	switch v := value.(type) {
	case string:
		return strings.Contains(v, stringify(expected))
	case []string:
		for _, item := range v {
			if looseEquals(item, expected) {
				return true
			}
		}
		return false
	case []interface{}:
		for _, item := range v {
			if looseEquals(item, expected) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// inList checks membership of value in the expected list.
func inList(value, expected interface{}) bool {
	switch list := expected.(type) {
	case []interface{}:
		for _, item := range list {
			if looseEquals(value, item) {
				return true
			}
		}
	case []string:
		for _, item := range list {
			if looseEquals(value, item) {
				return true
			}
		}
	}
	return false
}

func toFloat(v interface{}) (float64, bool) {
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
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func toTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	case string:
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed, true
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

func stringify(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
