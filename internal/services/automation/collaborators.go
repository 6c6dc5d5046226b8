package automation

import (
	"context"
	"errors"
	"time"

	"github.com/ticketflow-io/ticketflow/internal/models"
)

// ErrAgentNotFound is returned by TicketStore.ResolveAgent when no active
// agent with the given ID exists in the organization. The assign action
// treats it as a logged no-op rather than a failure.
var ErrAgentNotFound = errors.New("agent not found")

// TicketStore is the persistence surface the executor mutates tickets
// through. Saves use optimistic versioning.
type TicketStore interface {
	GetTicket(ctx context.Context, id int64) (*models.Ticket, error)
	CreateTicket(ctx context.Context, ticket *models.Ticket) error
	SaveTicket(ctx context.Context, ticket *models.Ticket) error
	ResolveAgent(ctx context.Context, organization, agentID string) (*models.Agent, error)
	AppendComment(ctx context.Context, comment *models.Comment) error
}

// Mailer renders a template and dispatches mail.
type Mailer interface {
	Send(ctx context.Context, templateID, recipient string, vars map[string]interface{}) error
}

// WebhookClient delivers a signed JSON payload to an external URL. It
// returns the HTTP status code; transport failures and timeouts return an
// error instead.
type WebhookClient interface {
	Deliver(ctx context.Context, url string, event string, payload interface{}, timeout time.Duration) (int, error)
}

// ChatNotifier posts a rendered message to a chat webhook (Slack-style).
type ChatNotifier interface {
	Notify(ctx context.Context, webhookURL, templateID string, vars map[string]interface{}) error
}

// DeferredAction is a follow-up action parked until its ETA.
type DeferredAction struct {
	ID           string        `json:"id"`
	TicketID     int64         `json:"ticket_id"`
	Organization string        `json:"organization"`
	Action       models.Action `json:"-"`
	ETA          time.Time     `json:"eta"`
}

// DeferredScheduler parks follow-up actions for later dispatch.
type DeferredScheduler interface {
	Enqueue(ctx context.Context, item DeferredAction) error
}

// RuleSource loads active rules for a trigger and records executions.
// Implementations must return rules with conditions and actions already
// normalized into their typed forms.
type RuleSource interface {
	ListActiveRules(ctx context.Context, organization string, trigger models.TriggerType) ([]*models.AutomationRule, error)
	MarkExecuted(ctx context.Context, ruleID int64, at time.Time) error
}

// ExecutionRecorder persists per-match execution records.
type ExecutionRecorder interface {
	RecordExecution(ctx context.Context, record *models.ExecutionRecord) error
}
