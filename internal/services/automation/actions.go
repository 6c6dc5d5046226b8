package automation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ticketflow-io/ticketflow/internal/metrics"
	"github.com/ticketflow-io/ticketflow/internal/models"
)

const defaultWebhookTimeout = 30 * time.Second

// Executor applies one typed action to a ticket. Ticket mutations happen
// in memory; the engine persists the ticket once after all actions of a
// matched rule ran.
type Executor struct {
	tickets  TicketStore
	mailer   Mailer
	webhooks WebhookClient
	chat     ChatNotifier
	deferred DeferredScheduler
	logger   *log.Logger
	now      func() time.Time
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithExecutorLogger overrides the default logger.
func WithExecutorLogger(logger *log.Logger) ExecutorOption {
	return func(e *Executor) { e.logger = logger }
}

// WithExecutorNowFunc overrides the clock, for tests.
func WithExecutorNowFunc(now func() time.Time) ExecutorOption {
	return func(e *Executor) { e.now = now }
}

// NewExecutor wires the executor to its collaborators.
func NewExecutor(tickets TicketStore, mailer Mailer, webhooks WebhookClient, chat ChatNotifier, deferred DeferredScheduler, opts ...ExecutorOption) *Executor {
	e := &Executor{
		tickets:  tickets,
		mailer:   mailer,
		webhooks: webhooks,
		chat:     chat,
		deferred: deferred,
		logger:   log.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute applies a single action to the ticket. The switch is exhaustive
// over the closed action set; an unhandled variant is a programming error
// surfaced as a failure, not a silent skip.
func (e *Executor) Execute(ctx context.Context, action models.Action, ticket *models.Ticket, evalCtx map[string]interface{}) error {
	switch a := action.(type) {
	case models.AssignAction:
		return e.assign(ctx, a, ticket)
	case models.ChangeStatusAction:
		ticket.SetStatus(a.Status, e.now())
		return nil
	case models.ChangePriorityAction:
		ticket.Priority = a.Priority
		return nil
	case models.AddTagAction:
		ticket.AddTag(a.Tag)
		return nil
	case models.RemoveTagAction:
		ticket.RemoveTag(a.Tag)
		return nil
	case models.SendEmailAction:
		if a.Recipient == "" {
			return errors.New("send_email: recipient is required")
		}
		vars := mergeVars(a.Vars, ticket, evalCtx)
		if err := e.mailer.Send(ctx, a.TemplateID, a.Recipient, vars); err != nil {
			return fmt.Errorf("send_email: %w", err)
		}
		return nil
	case models.CreateCommentAction:
		comment := &models.Comment{
			TicketID:   ticket.ID,
			Author:     "automation",
			Body:       a.Body,
			IsInternal: a.IsInternal,
			CreatedAt:  e.now(),
		}
		if err := e.tickets.AppendComment(ctx, comment); err != nil {
			return fmt.Errorf("create_comment: %w", err)
		}
		return nil
	case models.EscalateAction:
		next, ok := models.NextPriority(ticket.Priority)
		if !ok {
			e.logger.Printf("automation: ticket %d already at top priority, escalate is a no-op", ticket.ID)
			return nil
		}
		ticket.Priority = next
		return nil
	case models.WebhookAction:
		return e.webhook(ctx, a, ticket)
	case models.SlackNotificationAction:
		vars := mergeVars(a.Vars, ticket, evalCtx)
		if err := e.chat.Notify(ctx, a.WebhookURL, a.TemplateID, vars); err != nil {
			return fmt.Errorf("slack_notification: %w", err)
		}
		return nil
	case models.CreateTicketAction:
		return e.createTicket(ctx, a, ticket)
	case models.UpdateCustomFieldAction:
		if a.Key == "" {
			return errors.New("update_custom_field: key is required")
		}
		if ticket.CustomFields == nil {
			ticket.CustomFields = make(map[string]interface{})
		}
		ticket.CustomFields[a.Key] = a.Value
		return nil
	case models.ScheduleFollowUpAction:
		return e.scheduleFollowUp(ctx, a, ticket)
	default:
		return fmt.Errorf("unhandled action type %q", action.ActionType())
	}
}

// assign resolves the agent inside the ticket's organization. A missing
// agent is logged and skipped so one stale rule cannot poison the run.
func (e *Executor) assign(ctx context.Context, a models.AssignAction, ticket *models.Ticket) error {
	agent, err := e.tickets.ResolveAgent(ctx, ticket.Organization, a.AgentID)
	if err != nil {
		if errors.Is(err, ErrAgentNotFound) {
			e.logger.Printf("automation: agent %q not found in organization %q, assign skipped", a.AgentID, ticket.Organization)
			return nil
		}
		return fmt.Errorf("assign: %w", err)
	}
	ticket.AssignedAgent = agent.ID
	return nil
}

func (e *Executor) webhook(ctx context.Context, a models.WebhookAction, ticket *models.Ticket) error {
	if a.URL == "" {
		return errors.New("webhook: url is required")
	}
	timeout := defaultWebhookTimeout
	if a.TimeoutMS > 0 {
		timeout = time.Duration(a.TimeoutMS) * time.Millisecond
	}

	payload := map[string]interface{}{
		"ticket": ticket,
	}
	for k, v := range a.Payload {
		payload[k] = v
	}

	status, err := e.webhooks.Deliver(ctx, a.URL, "automation.action", payload, timeout)
	if err != nil {
		metrics.WebhookDeliveries.WithLabelValues("error").Inc()
		return fmt.Errorf("webhook: %w", err)
	}
	if status < 200 || status > 299 {
		metrics.WebhookDeliveries.WithLabelValues("rejected").Inc()
		return fmt.Errorf("webhook: endpoint returned status %d", status)
	}
	metrics.WebhookDeliveries.WithLabelValues("delivered").Inc()
	return nil
}

func (e *Executor) createTicket(ctx context.Context, a models.CreateTicketAction, source *models.Ticket) error {
	if a.Title == "" {
		return errors.New("create_ticket: title is required")
	}
	status := a.Status
	if status == "" {
		status = models.StatusNew
	}
	priority := a.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	now := e.now()
	ticket := &models.Ticket{
		Organization: source.Organization,
		Title:        a.Title,
		Status:       status,
		Priority:     priority,
		CustomFields: a.Fields,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := e.tickets.CreateTicket(ctx, ticket); err != nil {
		return fmt.Errorf("create_ticket: %w", err)
	}
	return nil
}

func (e *Executor) scheduleFollowUp(ctx context.Context, a models.ScheduleFollowUpAction, ticket *models.Ticket) error {
	if a.Action == nil {
		return errors.New("schedule_follow_up: no deferred action configured")
	}
	if a.DelayMinutes <= 0 {
		return fmt.Errorf("schedule_follow_up: invalid delay %d minutes", a.DelayMinutes)
	}
	item := DeferredAction{
		TicketID:     ticket.ID,
		Organization: ticket.Organization,
		Action:       a.Action,
		ETA:          e.now().Add(time.Duration(a.DelayMinutes) * time.Minute),
	}
	if err := e.deferred.Enqueue(ctx, item); err != nil {
		return fmt.Errorf("schedule_follow_up: %w", err)
	}
	metrics.DeferredEnqueued.Inc()
	return nil
}

// mergeVars layers template variables: explicit action vars win over event
// context, which wins over the standard ticket bindings.
func mergeVars(actionVars map[string]interface{}, ticket *models.Ticket, evalCtx map[string]interface{}) map[string]interface{} {
	vars := map[string]interface{}{
		"ticket_id":    ticket.ID,
		"organization": ticket.Organization,
		"title":        ticket.Title,
		"status":       string(ticket.Status),
		"priority":     string(ticket.Priority),
	}
	for k, v := range evalCtx {
		vars[k] = v
	}
	for k, v := range actionVars {
		vars[k] = v
	}
	return vars
}
