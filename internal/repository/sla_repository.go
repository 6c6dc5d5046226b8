package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ticketflow-io/ticketflow/internal/models"
)

// SLARepository persists SLA policies and business-hours calendars.
type SLARepository struct {
	db *sqlx.DB
}

// NewSLARepository creates an SLA repository.
func NewSLARepository(db *sqlx.DB) *SLARepository {
	return &SLARepository{db: db}
}

type policyRow struct {
	ID                    int64     `db:"id"`
	Organization          string    `db:"organization"`
	Name                  string    `db:"name"`
	ResponseTimeMinutes   int       `db:"response_time_minutes"`
	ResolutionTimeMinutes int       `db:"resolution_time_minutes"`
	Conditions            string    `db:"conditions"`
	IsActive              bool      `db:"is_active"`
	Priority              int       `db:"priority"`
	CalendarID            *int64    `db:"calendar_id"`
	CreatedAt             time.Time `db:"created_at"`
	UpdatedAt             time.Time `db:"updated_at"`
}

func (r policyRow) toModel() (*models.SLAPolicy, error) {
	conditions, err := models.UnmarshalConditions([]byte(r.Conditions))
	if err != nil {
		return nil, fmt.Errorf("policy %d: %w", r.ID, err)
	}
	return &models.SLAPolicy{
		ID:                    r.ID,
		Organization:          r.Organization,
		Name:                  r.Name,
		ResponseTimeMinutes:   r.ResponseTimeMinutes,
		ResolutionTimeMinutes: r.ResolutionTimeMinutes,
		Conditions:            conditions,
		IsActive:              r.IsActive,
		Priority:              r.Priority,
		CalendarID:            r.CalendarID,
		CreatedAt:             r.CreatedAt,
		UpdatedAt:             r.UpdatedAt,
	}, nil
}

const policyColumns = `id, organization, name, response_time_minutes, resolution_time_minutes,
	conditions, is_active, priority, calendar_id, created_at, updated_at`

// ListActivePolicies returns active policies scoped to one organization.
func (r *SLARepository) ListActivePolicies(ctx context.Context, organization string) ([]*models.SLAPolicy, error) {
	query := r.db.Rebind(`SELECT ` + policyColumns + ` FROM sla_policies
		WHERE organization = ? AND is_active = ? ORDER BY id`)
	return r.listPolicies(ctx, query, organization, true)
}

// ListActiveGlobalPolicies returns active policies with no organization.
func (r *SLARepository) ListActiveGlobalPolicies(ctx context.Context) ([]*models.SLAPolicy, error) {
	query := r.db.Rebind(`SELECT ` + policyColumns + ` FROM sla_policies
		WHERE organization = '' AND is_active = ? ORDER BY id`)
	return r.listPolicies(ctx, query, true)
}

func (r *SLARepository) listPolicies(ctx context.Context, query string, args ...interface{}) ([]*models.SLAPolicy, error) {
	var rows []policyRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list SLA policies: %w", err)
	}

	policies := make([]*models.SLAPolicy, 0, len(rows))
	for _, row := range rows {
		policy, err := row.toModel()
		if err != nil {
			return nil, err
		}
		policies = append(policies, policy)
	}
	return policies, nil
}

// CreatePolicy inserts a policy.
func (r *SLARepository) CreatePolicy(ctx context.Context, policy *models.SLAPolicy) error {
	conditions, err := marshalConditions(policy.Conditions)
	if err != nil {
		return fmt.Errorf("policy %q: %w", policy.Name, err)
	}

	id, err := insertID(ctx, r.db, `INSERT INTO sla_policies
		(organization, name, response_time_minutes, resolution_time_minutes,
		 conditions, is_active, priority, calendar_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		policy.Organization, policy.Name, policy.ResponseTimeMinutes, policy.ResolutionTimeMinutes,
		conditions, policy.IsActive, policy.Priority, policy.CalendarID,
		policy.CreatedAt, policy.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create policy %q: %w", policy.Name, err)
	}
	policy.ID = id
	return nil
}

type calendarRow struct {
	ID           int64     `db:"id"`
	Organization string    `db:"organization"`
	Name         string    `db:"name"`
	Timezone     string    `db:"timezone"`
	StartTime    string    `db:"start_time"`
	EndTime      string    `db:"end_time"`
	WorkingDays  string    `db:"working_days"`
	Holidays     string    `db:"holidays"`
	IsActive     bool      `db:"is_active"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r calendarRow) toModel() (*models.BusinessHoursConfig, error) {
	config := &models.BusinessHoursConfig{
		ID:           r.ID,
		Organization: r.Organization,
		Name:         r.Name,
		Timezone:     r.Timezone,
		StartTime:    r.StartTime,
		EndTime:      r.EndTime,
		IsActive:     r.IsActive,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.WorkingDays != "" {
		if err := json.Unmarshal([]byte(r.WorkingDays), &config.WorkingDays); err != nil {
			return nil, fmt.Errorf("calendar %d: invalid working days: %w", r.ID, err)
		}
	}
	if r.Holidays != "" {
		if err := json.Unmarshal([]byte(r.Holidays), &config.Holidays); err != nil {
			return nil, fmt.Errorf("calendar %d: invalid holidays: %w", r.ID, err)
		}
	}
	return config, nil
}

// GetCalendar loads one business-hours configuration.
func (r *SLARepository) GetCalendar(ctx context.Context, id int64) (*models.BusinessHoursConfig, error) {
	var row calendarRow
	query := r.db.Rebind(`SELECT id, organization, name, timezone, start_time, end_time,
		working_days, holidays, is_active, created_at, updated_at
		FROM business_hours WHERE id = ?`)
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("calendar %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load calendar %d: %w", id, err)
	}
	return row.toModel()
}

// CreateCalendar validates and inserts a calendar configuration.
// Misconfiguration is rejected at save time.
func (r *SLARepository) CreateCalendar(ctx context.Context, config *models.BusinessHoursConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}
	workingDays, err := json.Marshal(config.WorkingDays)
	if err != nil {
		return fmt.Errorf("calendar %q: failed to encode working days: %w", config.Name, err)
	}
	holidays, err := json.Marshal(config.Holidays)
	if err != nil {
		return fmt.Errorf("calendar %q: failed to encode holidays: %w", config.Name, err)
	}

	id, err := insertID(ctx, r.db, `INSERT INTO business_hours
		(organization, name, timezone, start_time, end_time, working_days, holidays,
		 is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		config.Organization, config.Name, config.Timezone, config.StartTime, config.EndTime,
		string(workingDays), string(holidays), config.IsActive, config.CreatedAt, config.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create calendar %q: %w", config.Name, err)
	}
	config.ID = id
	return nil
}
