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
	"github.com/ticketflow-io/ticketflow/internal/services/automation"
)

// TicketRepository persists tickets and comments over sqlx.
type TicketRepository struct {
	db *sqlx.DB
}

// NewTicketRepository creates a ticket repository.
func NewTicketRepository(db *sqlx.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

// ticketRow is the stored shape; tags and custom fields live in TEXT
// columns and are normalized to typed values on load.
type ticketRow struct {
	ID                 int64      `db:"id"`
	Organization       string     `db:"organization"`
	Title              string     `db:"title"`
	Status             string     `db:"status"`
	Priority           string     `db:"priority"`
	AssignedAgent      string     `db:"assigned_agent"`
	Tags               string     `db:"tags"`
	CustomFields       string     `db:"custom_fields"`
	CreatedAt          time.Time  `db:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at"`
	FirstResponseAt    *time.Time `db:"first_response_at"`
	ResolvedAt         *time.Time `db:"resolved_at"`
	ClosedAt           *time.Time `db:"closed_at"`
	ResponseBreachAt   *time.Time `db:"response_breach_at"`
	ResolutionBreachAt *time.Time `db:"resolution_breach_at"`
	Version            int64      `db:"version"`
}

func (r ticketRow) toModel() (*models.Ticket, error) {
	ticket := &models.Ticket{
		ID:                 r.ID,
		Organization:       r.Organization,
		Title:              r.Title,
		Status:             models.TicketStatus(r.Status),
		Priority:           models.TicketPriority(r.Priority),
		AssignedAgent:      r.AssignedAgent,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
		FirstResponseAt:    r.FirstResponseAt,
		ResolvedAt:         r.ResolvedAt,
		ClosedAt:           r.ClosedAt,
		ResponseBreachAt:   r.ResponseBreachAt,
		ResolutionBreachAt: r.ResolutionBreachAt,
		Version:            r.Version,
	}
	if r.Tags != "" {
		if err := json.Unmarshal([]byte(r.Tags), &ticket.Tags); err != nil {
			return nil, fmt.Errorf("ticket %d: invalid tags: %w", r.ID, err)
		}
	}
	if r.CustomFields != "" {
		if err := json.Unmarshal([]byte(r.CustomFields), &ticket.CustomFields); err != nil {
			return nil, fmt.Errorf("ticket %d: invalid custom fields: %w", r.ID, err)
		}
	}
	return ticket, nil
}

const ticketColumns = `id, organization, title, status, priority, assigned_agent, tags, custom_fields,
	created_at, updated_at, first_response_at, resolved_at, closed_at,
	response_breach_at, resolution_breach_at, version`

// GetTicket loads one ticket by ID.
func (r *TicketRepository) GetTicket(ctx context.Context, id int64) (*models.Ticket, error) {
	var row ticketRow
	query := r.db.Rebind(`SELECT ` + ticketColumns + ` FROM tickets WHERE id = ?`)
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("ticket %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load ticket %d: %w", id, err)
	}
	return row.toModel()
}

// ListOpenTickets returns tickets that still have SLA budgets running,
// meaning everything not resolved or closed. The breach sweep iterates
// this set.
func (r *TicketRepository) ListOpenTickets(ctx context.Context) ([]*models.Ticket, error) {
	var rows []ticketRow
	query := r.db.Rebind(`SELECT ` + ticketColumns + ` FROM tickets
		WHERE status NOT IN (?, ?) ORDER BY id`)
	if err := r.db.SelectContext(ctx, &rows, query, string(models.StatusResolved), string(models.StatusClosed)); err != nil {
		return nil, fmt.Errorf("failed to list open tickets: %w", err)
	}

	tickets := make([]*models.Ticket, 0, len(rows))
	for _, row := range rows {
		ticket, err := row.toModel()
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	return tickets, nil
}

// CreateTicket inserts a new ticket and backfills its ID.
func (r *TicketRepository) CreateTicket(ctx context.Context, ticket *models.Ticket) error {
	tags, fields, err := encodeTicketJSON(ticket)
	if err != nil {
		return err
	}

	id, err := insertID(ctx, r.db, `INSERT INTO tickets
		(organization, title, status, priority, assigned_agent, tags, custom_fields,
		 created_at, updated_at, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`,
		ticket.Organization, ticket.Title, string(ticket.Status), string(ticket.Priority),
		ticket.AssignedAgent, tags, fields, ticket.CreatedAt, ticket.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create ticket: %w", err)
	}
	ticket.ID = id
	return nil
}

// SaveTicket writes all mutable fields with an optimistic version check.
// A lost race returns ErrVersionConflict; callers reload and retry.
func (r *TicketRepository) SaveTicket(ctx context.Context, ticket *models.Ticket) error {
	tags, fields, err := encodeTicketJSON(ticket)
	if err != nil {
		return err
	}

	query := r.db.Rebind(`UPDATE tickets SET
		title = ?, status = ?, priority = ?, assigned_agent = ?, tags = ?, custom_fields = ?,
		updated_at = ?, first_response_at = ?, resolved_at = ?, closed_at = ?,
		response_breach_at = ?, resolution_breach_at = ?, version = version + 1
		WHERE id = ? AND version = ?`)
	result, err := r.db.ExecContext(ctx, query,
		ticket.Title, string(ticket.Status), string(ticket.Priority), ticket.AssignedAgent,
		tags, fields, ticket.UpdatedAt,
		ticket.FirstResponseAt, ticket.ResolvedAt, ticket.ClosedAt,
		ticket.ResponseBreachAt, ticket.ResolutionBreachAt,
		ticket.ID, ticket.Version)
	if err != nil {
		return fmt.Errorf("failed to save ticket %d: %w", ticket.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to save ticket %d: %w", ticket.ID, err)
	}
	if affected == 0 {
		return fmt.Errorf("ticket %d: %w", ticket.ID, ErrVersionConflict)
	}
	ticket.Version++
	return nil
}

// ResolveAgent finds an active agent inside the organization.
func (r *TicketRepository) ResolveAgent(ctx context.Context, organization, agentID string) (*models.Agent, error) {
	var agent models.Agent
	query := r.db.Rebind(`SELECT id, organization, name, email, is_active, created_at
		FROM agents WHERE id = ? AND organization = ? AND is_active = ?`)
	if err := r.db.GetContext(ctx, &agent, query, agentID, organization, true); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("agent %q in %q: %w", agentID, organization, automation.ErrAgentNotFound)
		}
		return nil, fmt.Errorf("failed to resolve agent %q: %w", agentID, err)
	}
	return &agent, nil
}

// CreateAgent inserts an assignable agent.
func (r *TicketRepository) CreateAgent(ctx context.Context, agent *models.Agent) error {
	query := r.db.Rebind(`INSERT INTO agents (id, organization, name, email, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, query,
		agent.ID, agent.Organization, agent.Name, agent.Email, agent.IsActive, agent.CreatedAt); err != nil {
		return fmt.Errorf("failed to create agent %q: %w", agent.ID, err)
	}
	return nil
}

// AppendComment inserts a comment.
func (r *TicketRepository) AppendComment(ctx context.Context, comment *models.Comment) error {
	id, err := insertID(ctx, r.db, `INSERT INTO comments (ticket_id, author, body, is_internal, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		comment.TicketID, comment.Author, comment.Body, comment.IsInternal, comment.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append comment to ticket %d: %w", comment.TicketID, err)
	}
	comment.ID = id
	return nil
}

func encodeTicketJSON(ticket *models.Ticket) (tags string, fields string, err error) {
	tagBytes, err := json.Marshal(ticket.Tags)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode tags: %w", err)
	}
	fieldBytes, err := json.Marshal(ticket.CustomFields)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode custom fields: %w", err)
	}
	return string(tagBytes), string(fieldBytes), nil
}
