package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ticketflow-io/ticketflow/internal/models"
)

// RuleRepository persists automation rules over sqlx. Conditions and
// actions are stored as JSON and normalized into typed values here, at the
// ingestion boundary; nothing downstream sees raw JSON.
type RuleRepository struct {
	db     *sqlx.DB
	logger *log.Logger
}

// NewRuleRepository creates a rule repository.
func NewRuleRepository(db *sqlx.DB, logger *log.Logger) *RuleRepository {
	if logger == nil {
		logger = log.Default()
	}
	return &RuleRepository{db: db, logger: logger}
}

type ruleRow struct {
	ID             int64      `db:"id"`
	Organization   string     `db:"organization"`
	Name           string     `db:"name"`
	TriggerType    string     `db:"trigger_type"`
	Conditions     string     `db:"conditions"`
	Actions        string     `db:"actions"`
	ExecutionOrder int        `db:"execution_order"`
	IsActive       bool       `db:"is_active"`
	StopOnMatch    bool       `db:"stop_on_match"`
	UsageCount     int64      `db:"usage_count"`
	LastExecuted   *time.Time `db:"last_executed"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

func (r ruleRow) toModel() (*models.AutomationRule, error) {
	conditions, err := models.UnmarshalConditions([]byte(r.Conditions))
	if err != nil {
		return nil, fmt.Errorf("rule %d: %w", r.ID, err)
	}
	actions, err := models.UnmarshalActions([]byte(r.Actions))
	if err != nil {
		return nil, fmt.Errorf("rule %d: %w", r.ID, err)
	}
	return &models.AutomationRule{
		ID:             r.ID,
		Organization:   r.Organization,
		Name:           r.Name,
		TriggerType:    models.TriggerType(r.TriggerType),
		Conditions:     conditions,
		Actions:        actions,
		ExecutionOrder: r.ExecutionOrder,
		IsActive:       r.IsActive,
		StopOnMatch:    r.StopOnMatch,
		UsageCount:     r.UsageCount,
		LastExecuted:   r.LastExecuted,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}, nil
}

const ruleColumns = `id, organization, name, trigger_type, conditions, actions,
	execution_order, is_active, stop_on_match, usage_count, last_executed, created_at, updated_at`

// ListActiveRules loads active rules for an organization and trigger.
// A stored rule that fails normalization is logged and skipped so one bad
// record cannot take down the whole trigger.
func (r *RuleRepository) ListActiveRules(ctx context.Context, organization string, trigger models.TriggerType) ([]*models.AutomationRule, error) {
	var rows []ruleRow
	query := r.db.Rebind(`SELECT ` + ruleColumns + ` FROM automation_rules
		WHERE organization = ? AND trigger_type = ? AND is_active = ?
		ORDER BY execution_order, created_at, id`)
	if err := r.db.SelectContext(ctx, &rows, query, organization, string(trigger), true); err != nil {
		return nil, fmt.Errorf("failed to list rules for %s/%s: %w", organization, trigger, err)
	}

	rules := make([]*models.AutomationRule, 0, len(rows))
	for _, row := range rows {
		rule, err := row.toModel()
		if err != nil {
			r.logger.Printf("repository: skipping malformed rule: %v", err)
			continue
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// CreateRule inserts a rule. Actions and conditions are validated by the
// round trip through the typed codec, so unknown action types are rejected
// before they reach storage.
func (r *RuleRepository) CreateRule(ctx context.Context, rule *models.AutomationRule) error {
	conditions, actions, err := encodeRuleJSON(rule)
	if err != nil {
		return err
	}

	id, err := insertID(ctx, r.db, `INSERT INTO automation_rules
		(organization, name, trigger_type, conditions, actions, execution_order,
		 is_active, stop_on_match, usage_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		rule.Organization, rule.Name, string(rule.TriggerType), conditions, actions,
		rule.ExecutionOrder, rule.IsActive, rule.StopOnMatch, rule.CreatedAt, rule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create rule %q: %w", rule.Name, err)
	}
	rule.ID = id
	return nil
}

// MarkExecuted bumps usage statistics after a match.
func (r *RuleRepository) MarkExecuted(ctx context.Context, ruleID int64, at time.Time) error {
	query := r.db.Rebind(`UPDATE automation_rules
		SET usage_count = usage_count + 1, last_executed = ? WHERE id = ?`)
	if _, err := r.db.ExecContext(ctx, query, at, ruleID); err != nil {
		return fmt.Errorf("failed to mark rule %d executed: %w", ruleID, err)
	}
	return nil
}

func encodeRuleJSON(rule *models.AutomationRule) (conditions string, actions string, err error) {
	condBytes, err := marshalConditions(rule.Conditions)
	if err != nil {
		return "", "", fmt.Errorf("rule %q: %w", rule.Name, err)
	}
	actionBytes, err := models.MarshalActions(rule.Actions)
	if err != nil {
		return "", "", fmt.Errorf("rule %q: %w", rule.Name, err)
	}
	return condBytes, string(actionBytes), nil
}

func marshalConditions(conditions []models.Condition) (string, error) {
	data, err := json.Marshal(conditions)
	if err != nil {
		return "", fmt.Errorf("failed to encode conditions: %w", err)
	}
	return string(data), nil
}
