package models

import (
	"fmt"
	"strings"
	"time"
)

// TicketStatus represents the lifecycle state of a ticket.
type TicketStatus string

const (
	StatusNew        TicketStatus = "new"
	StatusOpen       TicketStatus = "open"
	StatusInProgress TicketStatus = "in_progress"
	StatusPending    TicketStatus = "pending"
	StatusResolved   TicketStatus = "resolved"
	StatusClosed     TicketStatus = "closed"
)

// TicketPriority represents ticket priority on a fixed ladder.
type TicketPriority string

const (
	PriorityLow    TicketPriority = "low"
	PriorityMedium TicketPriority = "medium"
	PriorityHigh   TicketPriority = "high"
	PriorityUrgent TicketPriority = "urgent"
)

// priorityLadder is the escalation order: low < medium < high < urgent.
var priorityLadder = []TicketPriority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

// NextPriority returns the next step up the priority ladder.
// At the ceiling (urgent) it returns the same priority and false.
func NextPriority(p TicketPriority) (TicketPriority, bool) {
	for i, candidate := range priorityLadder {
		if candidate == p {
			if i == len(priorityLadder)-1 {
				return p, false
			}
			return priorityLadder[i+1], true
		}
	}
	return p, false
}

// FieldAccessor provides dotted-path field access on an entity.
// Implementations replace runtime attribute probing with an explicit,
// per-type contract.
type FieldAccessor interface {
	// GetField resolves a dotted path. The second return value reports
	// whether the path resolved at all; a resolved path may still hold nil.
	GetField(path string) (interface{}, bool)
	SetField(path string, value interface{}) error
}

// Ticket is the generic entity rules and SLA policies evaluate against.
type Ticket struct {
	ID            int64                  `json:"id" db:"id"`
	Organization  string                 `json:"organization" db:"organization"`
	Title         string                 `json:"title" db:"title"`
	Status        TicketStatus           `json:"status" db:"status"`
	Priority      TicketPriority         `json:"priority" db:"priority"`
	AssignedAgent string                 `json:"assigned_agent" db:"assigned_agent"`
	Tags          []string               `json:"tags"`
	CustomFields  map[string]interface{} `json:"custom_fields"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// SLA milestones, stamped the first time the matching status is reached.
	FirstResponseAt *time.Time `json:"first_response_at,omitempty" db:"first_response_at"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`
	ClosedAt        *time.Time `json:"closed_at,omitempty" db:"closed_at"`

	// Breach sweep markers so a breach trigger fires once per SLA type.
	ResponseBreachAt   *time.Time `json:"response_breach_at,omitempty" db:"response_breach_at"`
	ResolutionBreachAt *time.Time `json:"resolution_breach_at,omitempty" db:"resolution_breach_at"`

	// Version supports optimistic concurrency on saves.
	Version int64 `json:"version" db:"version"`
}

// GetField implements FieldAccessor. Top-level fields resolve by snake_case
// name; custom fields resolve under "custom_fields.<key>" or, as a fallback,
// by bare key.
func (t *Ticket) GetField(path string) (interface{}, bool) {
	switch path {
	case "id":
		return t.ID, true
	case "organization":
		return t.Organization, true
	case "title":
		return t.Title, true
	case "status":
		return string(t.Status), true
	case "priority":
		return string(t.Priority), true
	case "assigned_agent":
		if t.AssignedAgent == "" {
			return nil, true
		}
		return t.AssignedAgent, true
	case "tags":
		return t.Tags, true
	case "created_at":
		return t.CreatedAt, true
	case "updated_at":
		return t.UpdatedAt, true
	case "first_response_at":
		return timeOrNil(t.FirstResponseAt), true
	case "resolved_at":
		return timeOrNil(t.ResolvedAt), true
	case "closed_at":
		return timeOrNil(t.ClosedAt), true
	}

	if key, ok := strings.CutPrefix(path, "custom_fields."); ok {
		v, found := t.CustomFields[key]
		return v, found
	}
	if v, found := t.CustomFields[path]; found {
		return v, true
	}
	return nil, false
}

// SetField implements FieldAccessor for the mutable fields actions touch.
func (t *Ticket) SetField(path string, value interface{}) error {
	switch path {
	case "title":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("title requires a string, got %T", value)
		}
		t.Title = s
		return nil
	case "status":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("status requires a string, got %T", value)
		}
		t.Status = TicketStatus(s)
		return nil
	case "priority":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("priority requires a string, got %T", value)
		}
		t.Priority = TicketPriority(s)
		return nil
	case "assigned_agent":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("assigned_agent requires a string, got %T", value)
		}
		t.AssignedAgent = s
		return nil
	}

	if key, ok := strings.CutPrefix(path, "custom_fields."); ok {
		if t.CustomFields == nil {
			t.CustomFields = make(map[string]interface{})
		}
		t.CustomFields[key] = value
		return nil
	}
	return fmt.Errorf("field %q is not settable", path)
}

// HasTag reports whether the ticket carries the tag.
func (t *Ticket) HasTag(tag string) bool {
	for _, existing := range t.Tags {
		if existing == tag {
			return true
		}
	}
	return false
}

// AddTag adds a tag with set semantics; adding an existing tag is a no-op.
func (t *Ticket) AddTag(tag string) {
	if tag == "" || t.HasTag(tag) {
		return
	}
	t.Tags = append(t.Tags, tag)
}

// RemoveTag removes a tag; removing an absent tag is a no-op.
func (t *Ticket) RemoveTag(tag string) {
	for i, existing := range t.Tags {
		if existing == tag {
			t.Tags = append(t.Tags[:i], t.Tags[i+1:]...)
			return
		}
	}
}

// SetStatus changes the ticket status and stamps the matching SLA milestone
// the first time that status is reached. in_progress stamps the first
// response, resolved stamps resolution, closed stamps closure.
func (t *Ticket) SetStatus(status TicketStatus, now time.Time) {
	t.Status = status
	switch status {
	case StatusInProgress:
		if t.FirstResponseAt == nil {
			stamp := now
			t.FirstResponseAt = &stamp
		}
	case StatusResolved:
		if t.ResolvedAt == nil {
			stamp := now
			t.ResolvedAt = &stamp
		}
	case StatusClosed:
		if t.ClosedAt == nil {
			stamp := now
			t.ClosedAt = &stamp
		}
	}
}

// Clone returns a deep copy so evaluations never share mutable state.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	clone := *t
	clone.Tags = append([]string(nil), t.Tags...)
	if t.CustomFields != nil {
		clone.CustomFields = make(map[string]interface{}, len(t.CustomFields))
		for k, v := range t.CustomFields {
			clone.CustomFields[k] = v
		}
	}
	return &clone
}

// Comment is a note appended to a ticket by an automation action or agent.
type Comment struct {
	ID         int64     `json:"id" db:"id"`
	TicketID   int64     `json:"ticket_id" db:"ticket_id"`
	Author     string    `json:"author" db:"author"`
	Body       string    `json:"body" db:"body"`
	IsInternal bool      `json:"is_internal" db:"is_internal"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

func timeOrNil(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
