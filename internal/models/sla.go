package models

import (
	"time"

	"github.com/google/uuid"
)

// SLAType selects which time budget of a policy applies.
type SLAType string

const (
	SLAResponse   SLAType = "response"
	SLAResolution SLAType = "resolution"
)

// SLAPolicy is a named response/resolution time budget with matching
// conditions. An empty Organization makes the policy global. Policies are
// resolved fresh on every evaluation and never cached, since matching
// depends on mutable ticket fields.
type SLAPolicy struct {
	ID                    int64       `json:"id" db:"id"`
	Organization          string      `json:"organization" db:"organization"`
	Name                  string      `json:"name" db:"name"`
	ResponseTimeMinutes   int         `json:"response_time_minutes" db:"response_time_minutes"`
	ResolutionTimeMinutes int         `json:"resolution_time_minutes" db:"resolution_time_minutes"`
	Conditions            []Condition `json:"conditions"`
	IsActive              bool        `json:"is_active" db:"is_active"`
	// Priority breaks specificity ties; higher wins.
	Priority   int       `json:"priority" db:"priority"`
	CalendarID *int64    `json:"calendar_id,omitempty" db:"calendar_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// IsGlobal reports whether the policy applies across organizations.
func (p *SLAPolicy) IsGlobal() bool { return p.Organization == "" }

// DurationMinutes returns the budget for the given SLA type.
func (p *SLAPolicy) DurationMinutes(slaType SLAType) int {
	if slaType == SLAResolution {
		return p.ResolutionTimeMinutes
	}
	return p.ResponseTimeMinutes
}

// BreachReason explains a breach check outcome.
type BreachReason string

const (
	BreachReasonNone             BreachReason = "not_breached"
	BreachReasonDeadlineExceeded BreachReason = "deadline_exceeded"
	BreachReasonNoPolicy         BreachReason = "no_policy"
)

// BreachResult is the outcome of a breach check.
type BreachResult struct {
	Breached             bool         `json:"breached"`
	Reason               BreachReason `json:"reason"`
	DueAt                time.Time    `json:"due_at,omitempty"`
	TimeRemainingSeconds int64        `json:"time_remaining_seconds"`
	PolicyID             int64        `json:"policy_id,omitempty"`
}

// ExecutionStatus describes how far a single rule execution got.
type ExecutionStatus string

const (
	ExecutionSuccess ExecutionStatus = "success"
	ExecutionFailed  ExecutionStatus = "failed"
)

// ExecutionEntry is one step in a rule execution log.
type ExecutionEntry struct {
	ActionType ActionType `json:"action_type"`
	Status     string     `json:"status"` // completed, failed, skipped
	Error      string     `json:"error,omitempty"`
	DurationMS int64      `json:"duration_ms"`
}

// ExecutionRecord is created once per rule match and persisted externally.
type ExecutionRecord struct {
	ID              string           `json:"id" db:"id"`
	RuleID          int64            `json:"rule_id" db:"rule_id"`
	TicketID        int64            `json:"ticket_id" db:"ticket_id"`
	TriggerType     TriggerType      `json:"trigger_type" db:"trigger_type"`
	ActionsExecuted []ExecutionEntry `json:"actions_executed"`
	Status          ExecutionStatus  `json:"status" db:"status"`
	ErrorMessage    string           `json:"error_message,omitempty" db:"error_message"`
	DurationMS      int64            `json:"duration_ms" db:"duration_ms"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`
}

// NewExecutionRecord starts a record for a matched rule.
func NewExecutionRecord(rule *AutomationRule, ticketID int64, at time.Time) *ExecutionRecord {
	return &ExecutionRecord{
		ID:          uuid.New().String(),
		RuleID:      rule.ID,
		TicketID:    ticketID,
		TriggerType: rule.TriggerType,
		Status:      ExecutionSuccess,
		CreatedAt:   at,
	}
}
