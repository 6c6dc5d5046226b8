package automation

import (
	"io"
	"log"
	"testing"

	"github.com/ticketflow-io/ticketflow/internal/models"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestConditionEvaluatorEmptyListMatches(t *testing.T) {
	e := NewConditionEvaluator(WithConditionLogger(quietLogger()))
	if !e.Evaluate(nil, &models.Ticket{}, nil) {
		t.Error("empty condition list should match unconditionally")
	}
}

func TestConditionEvaluatorANDSemantics(t *testing.T) {
	e := NewConditionEvaluator(WithConditionLogger(quietLogger()))
	ticket := &models.Ticket{Status: models.StatusOpen, Priority: models.PriorityHigh}

	both := []models.Condition{
		{Field: "status", Operator: models.OperatorEquals, Value: "open"},
		{Field: "priority", Operator: models.OperatorEquals, Value: "high"},
	}
	if !e.Evaluate(both, ticket, nil) {
		t.Error("all conditions hold, expected match")
	}

	oneFails := []models.Condition{
		{Field: "status", Operator: models.OperatorEquals, Value: "open"},
		{Field: "priority", Operator: models.OperatorEquals, Value: "low"},
	}
	if e.Evaluate(oneFails, ticket, nil) {
		t.Error("one failing condition should fail the whole list")
	}
}

func TestConditionEvaluatorContextFallback(t *testing.T) {
	e := NewConditionEvaluator(WithConditionLogger(quietLogger()))
	ticket := &models.Ticket{Status: models.StatusOpen}

	conditions := []models.Condition{
		{Field: "sla_type", Operator: models.OperatorEquals, Value: "response"},
	}
	evalCtx := map[string]interface{}{"sla_type": "response"}

	if !e.Evaluate(conditions, ticket, evalCtx) {
		t.Error("unresolved field should fall back to the event context")
	}
	if e.Evaluate(conditions, ticket, nil) {
		t.Error("field absent from entity and context should evaluate as nil")
	}
}

// The entity value wins over the context when both resolve.
func TestConditionEvaluatorEntityShadowsContext(t *testing.T) {
	e := NewConditionEvaluator(WithConditionLogger(quietLogger()))
	ticket := &models.Ticket{Status: models.StatusOpen}

	conditions := []models.Condition{
		{Field: "status", Operator: models.OperatorEquals, Value: "open"},
	}
	evalCtx := map[string]interface{}{"status": "closed"}
	if !e.Evaluate(conditions, ticket, evalCtx) {
		t.Error("entity field should shadow the context value")
	}
}

func TestConditionEvaluatorMalformedCondition(t *testing.T) {
	e := NewConditionEvaluator(WithConditionLogger(quietLogger()))
	ticket := &models.Ticket{Status: models.StatusOpen}

	missingField := []models.Condition{{Operator: models.OperatorEquals, Value: "open"}}
	if e.Evaluate(missingField, ticket, nil) {
		t.Error("condition without a field should not match")
	}

	unknownOp := []models.Condition{{Field: "status", Operator: "resembles", Value: "open"}}
	if e.Evaluate(unknownOp, ticket, nil) {
		t.Error("condition with unknown operator should not match")
	}
}

func TestConditionEvaluatorNullChecks(t *testing.T) {
	e := NewConditionEvaluator(WithConditionLogger(quietLogger()))
	unassigned := &models.Ticket{}
	assigned := &models.Ticket{AssignedAgent: "agent-1"}

	isNull := []models.Condition{{Field: "assigned_agent", Operator: models.OperatorIsNull}}
	if !e.Evaluate(isNull, unassigned, nil) {
		t.Error("empty assigned_agent should be null")
	}
	if e.Evaluate(isNull, assigned, nil) {
		t.Error("assigned ticket should not be null")
	}
}
