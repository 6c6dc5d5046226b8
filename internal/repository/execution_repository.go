package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ticketflow-io/ticketflow/internal/models"
)

// ExecutionRepository persists per-match rule execution records.
type ExecutionRepository struct {
	db *sqlx.DB
}

// NewExecutionRepository creates an execution repository.
func NewExecutionRepository(db *sqlx.DB) *ExecutionRepository {
	return &ExecutionRepository{db: db}
}

type executionRow struct {
	ID              string    `db:"id"`
	RuleID          int64     `db:"rule_id"`
	TicketID        int64     `db:"ticket_id"`
	TriggerType     string    `db:"trigger_type"`
	ActionsExecuted string    `db:"actions_executed"`
	Status          string    `db:"status"`
	ErrorMessage    string    `db:"error_message"`
	DurationMS      int64     `db:"duration_ms"`
	CreatedAt       time.Time `db:"created_at"`
}

// RecordExecution inserts one execution record.
func (r *ExecutionRepository) RecordExecution(ctx context.Context, record *models.ExecutionRecord) error {
	entries, err := json.Marshal(record.ActionsExecuted)
	if err != nil {
		return fmt.Errorf("failed to encode execution entries: %w", err)
	}

	query := r.db.Rebind(`INSERT INTO rule_executions
		(id, rule_id, ticket_id, trigger_type, actions_executed, status, error_message, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, query,
		record.ID, record.RuleID, record.TicketID, string(record.TriggerType),
		string(entries), string(record.Status), record.ErrorMessage,
		record.DurationMS, record.CreatedAt); err != nil {
		return fmt.Errorf("failed to record execution %s: %w", record.ID, err)
	}
	return nil
}

// ListExecutions returns the most recent executions for a rule.
func (r *ExecutionRepository) ListExecutions(ctx context.Context, ruleID int64, limit int) ([]*models.ExecutionRecord, error) {
	var rows []executionRow
	query := r.db.Rebind(`SELECT id, rule_id, ticket_id, trigger_type, actions_executed,
		status, error_message, duration_ms, created_at
		FROM rule_executions WHERE rule_id = ? ORDER BY created_at DESC LIMIT ?`)
	if err := r.db.SelectContext(ctx, &rows, query, ruleID, limit); err != nil {
		return nil, fmt.Errorf("failed to list executions for rule %d: %w", ruleID, err)
	}

	records := make([]*models.ExecutionRecord, 0, len(rows))
	for _, row := range rows {
		record := &models.ExecutionRecord{
			ID:           row.ID,
			RuleID:       row.RuleID,
			TicketID:     row.TicketID,
			TriggerType:  models.TriggerType(row.TriggerType),
			Status:       models.ExecutionStatus(row.Status),
			ErrorMessage: row.ErrorMessage,
			DurationMS:   row.DurationMS,
			CreatedAt:    row.CreatedAt,
		}
		if row.ActionsExecuted != "" {
			if err := json.Unmarshal([]byte(row.ActionsExecuted), &record.ActionsExecuted); err != nil {
				return nil, fmt.Errorf("execution %s: invalid entries: %w", row.ID, err)
			}
		}
		records = append(records, record)
	}
	return records, nil
}
