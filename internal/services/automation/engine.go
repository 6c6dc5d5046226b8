package automation

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/ticketflow-io/ticketflow/internal/metrics"
	"github.com/ticketflow-io/ticketflow/internal/models"
)

// Engine runs the trigger pipeline: load active rules for an organization
// and trigger, evaluate each in deterministic order, execute actions of
// matched rules, and persist the outcome.
type Engine struct {
	rules      RuleSource
	tickets    TicketStore
	conditions *ConditionEvaluator
	executor   *Executor
	recorder   ExecutionRecorder
	logger     *log.Logger
	now        func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithEngineLogger overrides the default logger.
func WithEngineLogger(logger *log.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

// WithEngineNowFunc overrides the clock, for tests.
func WithEngineNowFunc(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// WithRecorder attaches an execution recorder. Without one, executions are
// still logged but not persisted.
func WithRecorder(recorder ExecutionRecorder) EngineOption {
	return func(e *Engine) { e.recorder = recorder }
}

// NewEngine wires the rule engine to its collaborators.
func NewEngine(rules RuleSource, tickets TicketStore, conditions *ConditionEvaluator, executor *Executor, opts ...EngineOption) *Engine {
	e := &Engine{
		rules:      rules,
		tickets:    tickets,
		conditions: conditions,
		executor:   executor,
		logger:     log.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExecuteRules evaluates all active rules for the trigger against the
// ticket. Rules run in execution order; a failing action aborts the rest of
// that rule's actions but never the remaining rules. A matched rule with
// stop_on_match set halts the run after its actions complete.
func (e *Engine) ExecuteRules(ctx context.Context, trigger models.TriggerType, ticket *models.Ticket, evalCtx map[string]interface{}) error {
	rules, err := e.rules.ListActiveRules(ctx, ticket.Organization, trigger)
	if err != nil {
		return fmt.Errorf("failed to load rules for trigger %s: %w", trigger, err)
	}
	sortRules(rules)

	var matched int
	for _, rule := range rules {
		if !rule.IsActive {
			continue
		}
		metrics.RulesEvaluated.Inc()

		if !e.conditions.Evaluate(rule.Conditions, ticket, evalCtx) {
			continue
		}
		metrics.RulesMatched.Inc()
		matched++

		record := models.NewExecutionRecord(rule, ticket.ID, e.now())
		e.runActions(ctx, rule, ticket, evalCtx, record)
		e.finishRule(ctx, rule, ticket, record)

		if rule.StopOnMatch {
			e.logger.Printf("automation: rule %d (%s) stops further matching for ticket %d", rule.ID, rule.Name, ticket.ID)
			break
		}
	}

	if matched > 0 {
		if err := e.tickets.SaveTicket(ctx, ticket); err != nil {
			return fmt.Errorf("failed to persist ticket %d after rule run: %w", ticket.ID, err)
		}
	}
	return nil
}

// runActions executes a matched rule's actions in order. The first failure
// marks the record failed and skips the remaining actions of this rule.
func (e *Engine) runActions(ctx context.Context, rule *models.AutomationRule, ticket *models.Ticket, evalCtx map[string]interface{}, record *models.ExecutionRecord) {
	started := e.now()
	for i, action := range rule.Actions {
		actionStart := e.now()
		err := e.executor.Execute(ctx, action, ticket, evalCtx)
		entry := models.ExecutionEntry{
			ActionType: action.ActionType(),
			DurationMS: e.now().Sub(actionStart).Milliseconds(),
		}
		metrics.ActionDuration.WithLabelValues(string(action.ActionType())).Observe(e.now().Sub(actionStart).Seconds())

		if err != nil {
			entry.Status = "failed"
			entry.Error = err.Error()
			record.ActionsExecuted = append(record.ActionsExecuted, entry)
			record.Status = models.ExecutionFailed
			record.ErrorMessage = err.Error()
			metrics.ActionFailures.WithLabelValues(string(action.ActionType())).Inc()
			e.logger.Printf("automation: rule %d action %d (%s) failed on ticket %d: %v",
				rule.ID, i, action.ActionType(), ticket.ID, err)
			break
		}
		entry.Status = "completed"
		record.ActionsExecuted = append(record.ActionsExecuted, entry)
	}
	record.DurationMS = e.now().Sub(started).Milliseconds()
}

// finishRule updates usage stats and persists the execution record. Neither
// failure aborts the run.
func (e *Engine) finishRule(ctx context.Context, rule *models.AutomationRule, ticket *models.Ticket, record *models.ExecutionRecord) {
	executedAt := e.now()
	if err := e.rules.MarkExecuted(ctx, rule.ID, executedAt); err != nil {
		e.logger.Printf("automation: failed to mark rule %d executed: %v", rule.ID, err)
	} else {
		rule.UsageCount++
		rule.LastExecuted = &executedAt
	}

	if e.recorder != nil {
		if err := e.recorder.RecordExecution(ctx, record); err != nil {
			e.logger.Printf("automation: failed to record execution of rule %d on ticket %d: %v", rule.ID, ticket.ID, err)
		}
	}
}

// sortRules orders rules by execution order, then creation time, then ID,
// so runs are deterministic regardless of storage ordering.
func sortRules(rules []*models.AutomationRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].ExecutionOrder != rules[j].ExecutionOrder {
			return rules[i].ExecutionOrder < rules[j].ExecutionOrder
		}
		if !rules[i].CreatedAt.Equal(rules[j].CreatedAt) {
			return rules[i].CreatedAt.Before(rules[j].CreatedAt)
		}
		return rules[i].ID < rules[j].ID
	})
}
