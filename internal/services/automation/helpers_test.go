package automation

import (
	"context"
	"fmt"
	"time"

	"github.com/ticketflow-io/ticketflow/internal/models"
)

type fakeTicketStore struct {
	tickets map[int64]*models.Ticket
	agents  map[string]*models.Agent

	comments []*models.Comment
	created  []*models.Ticket
	saves    int
	saveErr  error
}

func newFakeTicketStore() *fakeTicketStore {
	return &fakeTicketStore{
		tickets: make(map[int64]*models.Ticket),
		agents:  make(map[string]*models.Agent),
	}
}

func (s *fakeTicketStore) GetTicket(_ context.Context, id int64) (*models.Ticket, error) {
	ticket, ok := s.tickets[id]
	if !ok {
		return nil, fmt.Errorf("ticket %d not found", id)
	}
	return ticket.Clone(), nil
}

func (s *fakeTicketStore) CreateTicket(_ context.Context, ticket *models.Ticket) error {
	ticket.ID = int64(len(s.created) + 1000)
	s.created = append(s.created, ticket)
	return nil
}

func (s *fakeTicketStore) SaveTicket(_ context.Context, ticket *models.Ticket) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.tickets[ticket.ID] = ticket.Clone()
	return nil
}

func (s *fakeTicketStore) ResolveAgent(_ context.Context, organization, agentID string) (*models.Agent, error) {
	agent, ok := s.agents[organization+"/"+agentID]
	if !ok {
		return nil, fmt.Errorf("agent %q: %w", agentID, ErrAgentNotFound)
	}
	return agent, nil
}

func (s *fakeTicketStore) AppendComment(_ context.Context, comment *models.Comment) error {
	s.comments = append(s.comments, comment)
	return nil
}

type mailCall struct {
	templateID string
	recipient  string
	vars       map[string]interface{}
}

type fakeMailer struct {
	sent []mailCall
	err  error
}

func (m *fakeMailer) Send(_ context.Context, templateID, recipient string, vars map[string]interface{}) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, mailCall{templateID, recipient, vars})
	return nil
}

type webhookCall struct {
	url     string
	event   string
	timeout time.Duration
}

type fakeWebhookClient struct {
	status int
	err    error
	calls  []webhookCall
}

func (w *fakeWebhookClient) Deliver(_ context.Context, url string, event string, _ interface{}, timeout time.Duration) (int, error) {
	w.calls = append(w.calls, webhookCall{url, event, timeout})
	if w.err != nil {
		return 0, w.err
	}
	return w.status, nil
}

type fakeChatNotifier struct {
	calls int
	err   error
}

func (n *fakeChatNotifier) Notify(_ context.Context, _, _ string, _ map[string]interface{}) error {
	if n.err != nil {
		return n.err
	}
	n.calls++
	return nil
}

type fakeDeferredScheduler struct {
	items []DeferredAction
	err   error
}

func (q *fakeDeferredScheduler) Enqueue(_ context.Context, item DeferredAction) error {
	if q.err != nil {
		return q.err
	}
	q.items = append(q.items, item)
	return nil
}

type fakeRuleSource struct {
	rules  []*models.AutomationRule
	marked []int64
	err    error
}

func (s *fakeRuleSource) ListActiveRules(_ context.Context, organization string, trigger models.TriggerType) ([]*models.AutomationRule, error) {
	if s.err != nil {
		return nil, s.err
	}
	var matched []*models.AutomationRule
	for _, rule := range s.rules {
		if rule.Organization == organization && rule.TriggerType == trigger && rule.IsActive {
			matched = append(matched, rule)
		}
	}
	return matched, nil
}

func (s *fakeRuleSource) MarkExecuted(_ context.Context, ruleID int64, _ time.Time) error {
	s.marked = append(s.marked, ruleID)
	return nil
}

type fakeRecorder struct {
	records []*models.ExecutionRecord
}

func (r *fakeRecorder) RecordExecution(_ context.Context, record *models.ExecutionRecord) error {
	r.records = append(r.records, record)
	return nil
}

func newTestExecutor(store *fakeTicketStore, mailer *fakeMailer, hooks *fakeWebhookClient, chat *fakeChatNotifier, queue *fakeDeferredScheduler, now time.Time) *Executor {
	return NewExecutor(store, mailer, hooks, chat, queue,
		WithExecutorLogger(quietLogger()),
		WithExecutorNowFunc(func() time.Time { return now }))
}
