package automation

import (
	"testing"
	"time"

	"github.com/ticketflow-io/ticketflow/internal/models"
)

func TestStandardOperators(t *testing.T) {
	ops := StandardOperators{}
	when := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		value    interface{}
		op       models.ConditionOperator
		expected interface{}
		want     bool
	}{
		{"equals strings", "open", models.OperatorEquals, "open", true},
		{"equals mismatch", "open", models.OperatorEquals, "closed", false},
		{"equals numeric coercion", int64(3), models.OperatorEquals, float64(3), true},
		{"not_equals", "open", models.OperatorNotEquals, "closed", true},
		{"contains substring", "database timeout", models.OperatorContains, "timeout", true},
		{"contains miss", "database timeout", models.OperatorContains, "disk", false},
		{"contains slice member", []string{"vip", "hardware"}, models.OperatorContains, "vip", true},
		{"not_contains", "healthy", models.OperatorNotContains, "error", true},
		{"in list", "high", models.OperatorIn, []interface{}{"high", "urgent"}, true},
		{"in miss", "low", models.OperatorIn, []interface{}{"high", "urgent"}, false},
		{"not_in", "low", models.OperatorNotIn, []interface{}{"high", "urgent"}, true},
		{"greater_than numeric", float64(10), models.OperatorGreaterThan, float64(5), true},
		{"greater_than equal is false", float64(5), models.OperatorGreaterThan, float64(5), false},
		{"greater_or_equal boundary", float64(5), models.OperatorGreaterOrEqual, float64(5), true},
		{"less_than temporal", when, models.OperatorLessThan, when.Add(time.Hour), true},
		{"less_or_equal temporal boundary", when, models.OperatorLessOrEqual, when, true},
		{"temporal expected as string", when, models.OperatorGreaterThan, "2026-03-02T11:00:00Z", true},
		{"ordering incomparable", "abc", models.OperatorGreaterThan, float64(1), false},
		{"starts_with", "ticket-123", models.OperatorStartsWith, "ticket-", true},
		{"ends_with", "report.pdf", models.OperatorEndsWith, ".pdf", true},
		{"is_null on value", "x", models.OperatorIsNull, nil, false},
		{"is_not_null on value", "x", models.OperatorIsNotNull, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ops.Evaluate(tt.value, tt.op, tt.expected)
			if err != nil {
				t.Fatalf("Evaluate error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Evaluate(%v, %s, %v) = %v, want %v", tt.value, tt.op, tt.expected, got, tt.want)
			}
		})
	}
}

// Null field semantics: only is_null, is_not_null, and not_equals against a
// non-nil expectation can hold on a nil value.
func TestStandardOperatorsNilValue(t *testing.T) {
	ops := StandardOperators{}

	tests := []struct {
		op       models.ConditionOperator
		expected interface{}
		want     bool
	}{
		{models.OperatorIsNull, nil, true},
		{models.OperatorIsNotNull, nil, false},
		{models.OperatorNotEquals, "anything", true},
		{models.OperatorNotEquals, nil, false},
		{models.OperatorEquals, "anything", false},
		{models.OperatorContains, "x", false},
		{models.OperatorIn, []interface{}{"x"}, false},
		{models.OperatorGreaterThan, float64(1), false},
		{models.OperatorStartsWith, "x", false},
	}
	for _, tt := range tests {
		got, err := ops.Evaluate(nil, tt.op, tt.expected)
		if err != nil {
			t.Fatalf("Evaluate(nil, %s) error: %v", tt.op, err)
		}
		if got != tt.want {
			t.Errorf("Evaluate(nil, %s, %v) = %v, want %v", tt.op, tt.expected, got, tt.want)
		}
	}
}

func TestStandardOperatorsUnknownOperator(t *testing.T) {
	ops := StandardOperators{}
	if _, err := ops.Evaluate("x", "matches_regex", "x"); err == nil {
		t.Fatal("expected error for unknown operator")
	}
}
