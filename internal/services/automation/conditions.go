package automation

import (
	"log"

	"github.com/ticketflow-io/ticketflow/internal/models"
)

// ConditionEvaluator AND-combines a rule's condition list against an entity.
// Field values resolve through the entity's FieldAccessor first, then fall
// back to the supplied event context map.
type ConditionEvaluator struct {
	operators OperatorEvaluator
	logger    *log.Logger
}

// ConditionOption configures a ConditionEvaluator.
type ConditionOption func(*ConditionEvaluator)

// WithConditionLogger overrides the default logger.
func WithConditionLogger(logger *log.Logger) ConditionOption {
	return func(e *ConditionEvaluator) { e.logger = logger }
}

// WithOperators swaps the operator implementation.
func WithOperators(ops OperatorEvaluator) ConditionOption {
	return func(e *ConditionEvaluator) { e.operators = ops }
}

// NewConditionEvaluator creates an evaluator with the standard operator set.
func NewConditionEvaluator(opts ...ConditionOption) *ConditionEvaluator {
	e := &ConditionEvaluator{
		operators: StandardOperators{},
		logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate reports whether every condition holds. An empty list matches
// unconditionally. Malformed conditions and unknown operators never abort
// the run; they log and make the rule not match.
func (e *ConditionEvaluator) Evaluate(conditions []models.Condition, entity models.FieldAccessor, context map[string]interface{}) bool {
	for _, cond := range conditions {
		if cond.Field == "" || cond.Operator == "" {
			e.logger.Printf("automation: skipping malformed condition %+v", cond)
			return false
		}

		value, found := entity.GetField(cond.Field)
		if !found {
			if ctxValue, ok := context[cond.Field]; ok {
				value = ctxValue
			} else {
				value = nil
			}
		}

		ok, err := e.operators.Evaluate(value, cond.Operator, cond.Value)
		if err != nil {
			e.logger.Printf("automation: condition on %q failed: %v", cond.Field, err)
			return false
		}
		if !ok {
			return false
		}
	}
	return true
}
