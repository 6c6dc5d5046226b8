package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/ticketflow-io/ticketflow/internal/models"
	"github.com/ticketflow-io/ticketflow/internal/services/automation"
)

// MemoryTicketRepository is an in-memory TicketStore for development and
// tests. It mirrors the SQL repository's semantics, including optimistic
// version checks.
type MemoryTicketRepository struct {
	mu            sync.RWMutex
	tickets       map[int64]*models.Ticket
	comments      map[int64][]*models.Comment
	agents        map[string]*models.Agent
	nextTicketID  int64
	nextCommentID int64
}

// NewMemoryTicketRepository creates an empty repository.
func NewMemoryTicketRepository() *MemoryTicketRepository {
	return &MemoryTicketRepository{
		tickets:       make(map[int64]*models.Ticket),
		comments:      make(map[int64][]*models.Comment),
		agents:        make(map[string]*models.Agent),
		nextTicketID:  1,
		nextCommentID: 1,
	}
}

// AddAgent registers an assignable agent.
func (r *MemoryTicketRepository) AddAgent(agent *models.Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[agent.Organization+"/"+agent.ID] = agent
}

// GetTicket returns a deep copy of the stored ticket.
func (r *MemoryTicketRepository) GetTicket(_ context.Context, id int64) (*models.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, fmt.Errorf("ticket %d: %w", id, ErrNotFound)
	}
	return ticket.Clone(), nil
}

// ListOpenTickets returns copies of all tickets that are not resolved or
// closed.
func (r *MemoryTicketRepository) ListOpenTickets(_ context.Context) ([]*models.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var open []*models.Ticket
	for _, ticket := range r.tickets {
		if ticket.Status == models.StatusResolved || ticket.Status == models.StatusClosed {
			continue
		}
		open = append(open, ticket.Clone())
	}
	return open, nil
}

// CreateTicket stores a new ticket and assigns its ID.
func (r *MemoryTicketRepository) CreateTicket(_ context.Context, ticket *models.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket.ID = r.nextTicketID
	r.nextTicketID++
	r.tickets[ticket.ID] = ticket.Clone()
	return nil
}

// SaveTicket overwrites a stored ticket if the caller's version matches.
func (r *MemoryTicketRepository) SaveTicket(_ context.Context, ticket *models.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[ticket.ID]
	if !ok {
		return fmt.Errorf("ticket %d: %w", ticket.ID, ErrNotFound)
	}
	if stored.Version != ticket.Version {
		return fmt.Errorf("ticket %d: %w", ticket.ID, ErrVersionConflict)
	}
	ticket.Version++
	r.tickets[ticket.ID] = ticket.Clone()
	return nil
}

// ResolveAgent finds an active agent inside the organization.
func (r *MemoryTicketRepository) ResolveAgent(_ context.Context, organization, agentID string) (*models.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	agent, ok := r.agents[organization+"/"+agentID]
	if !ok || !agent.IsActive {
		return nil, fmt.Errorf("agent %q in %q: %w", agentID, organization, automation.ErrAgentNotFound)
	}
	clone := *agent
	return &clone, nil
}

// AppendComment stores a comment against its ticket.
func (r *MemoryTicketRepository) AppendComment(_ context.Context, comment *models.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[comment.TicketID]; !ok {
		return fmt.Errorf("ticket %d: %w", comment.TicketID, ErrNotFound)
	}
	comment.ID = r.nextCommentID
	r.nextCommentID++
	r.comments[comment.TicketID] = append(r.comments[comment.TicketID], comment)
	return nil
}

// Comments returns stored comments for a ticket, for assertions in tests.
func (r *MemoryTicketRepository) Comments(ticketID int64) []*models.Comment {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*models.Comment(nil), r.comments[ticketID]...)
}
