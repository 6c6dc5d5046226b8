package scheduler

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/ticketflow-io/ticketflow/internal/models"
	"github.com/ticketflow-io/ticketflow/internal/repository"
	"github.com/ticketflow-io/ticketflow/internal/services/automation"
	"github.com/ticketflow-io/ticketflow/internal/services/sla"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

type noopMailer struct{}

func (noopMailer) Send(context.Context, string, string, map[string]interface{}) error { return nil }

type noopWebhooks struct{}

func (noopWebhooks) Deliver(context.Context, string, string, interface{}, time.Duration) (int, error) {
	return 200, nil
}

type noopChat struct{}

func (noopChat) Notify(context.Context, string, string, map[string]interface{}) error { return nil }

type sweepFixture struct {
	tickets *repository.MemoryTicketRepository
	rules   *repository.MemoryRuleRepository
	slas    *repository.MemorySLARepository
	queue   *MemoryDeferredQueue
	jobs    *Jobs
}

func newSweepFixture(t *testing.T, now time.Time) *sweepFixture {
	t.Helper()
	tickets := repository.NewMemoryTicketRepository()
	rules := repository.NewMemoryRuleRepository()
	slas := repository.NewMemorySLARepository()
	queue := NewMemoryDeferredQueue()

	clock := func() time.Time { return now }
	conditions := automation.NewConditionEvaluator(automation.WithConditionLogger(quietLogger()))
	executor := automation.NewExecutor(tickets, noopMailer{}, noopWebhooks{}, noopChat{}, queue,
		automation.WithExecutorLogger(quietLogger()),
		automation.WithExecutorNowFunc(clock))
	engine := automation.NewEngine(rules, tickets, conditions, executor,
		automation.WithEngineLogger(quietLogger()),
		automation.WithEngineNowFunc(clock))

	resolver := sla.NewPolicyResolver(slas, conditions, sla.WithResolverLogger(quietLogger()))
	calc := sla.NewDeadlineCalculator(sla.NewCalendarService(slas))
	detector := sla.NewBreachDetector(resolver, calc,
		sla.WithDetectorLogger(quietLogger()),
		sla.WithDetectorNowFunc(clock))

	jobs := NewJobs(tickets, detector, engine, executor, queue,
		WithJobsLogger(quietLogger()),
		WithJobsNowFunc(clock))
	return &sweepFixture{tickets: tickets, rules: rules, slas: slas, queue: queue, jobs: jobs}
}

func TestBreachSweepFiresOnce(t *testing.T) {
	created := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	now := created.Add(2 * time.Hour)
	f := newSweepFixture(t, now)
	ctx := context.Background()

	policy := &models.SLAPolicy{Organization: "acme", ResponseTimeMinutes: 60, IsActive: true}
	if err := f.slas.CreatePolicy(ctx, policy); err != nil {
		t.Fatal(err)
	}

	rule := &models.AutomationRule{
		Organization: "acme",
		Name:         "escalate response breaches",
		TriggerType:  models.TriggerSLABreach,
		Conditions: []models.Condition{
			{Field: "sla_type", Operator: models.OperatorEquals, Value: "response"},
		},
		Actions:  []models.Action{models.AddTagAction{Tag: "sla-breached"}},
		IsActive: true,
	}
	if err := f.rules.CreateRule(ctx, rule); err != nil {
		t.Fatal(err)
	}

	ticket := &models.Ticket{Organization: "acme", Title: "stuck", Status: models.StatusOpen, Priority: models.PriorityMedium, CreatedAt: created, UpdatedAt: created}
	if err := f.tickets.CreateTicket(ctx, ticket); err != nil {
		t.Fatal(err)
	}

	if err := f.jobs.BreachSweep(ctx); err != nil {
		t.Fatalf("BreachSweep error: %v", err)
	}

	stored, err := f.tickets.GetTicket(ctx, ticket.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !stored.HasTag("sla-breached") {
		t.Error("breach rule did not run")
	}
	if stored.ResponseBreachAt == nil {
		t.Error("breach marker not set")
	}

	updated, _ := f.rules.GetRule(rule.ID)
	if updated.UsageCount != 1 {
		t.Fatalf("UsageCount = %d, want 1", updated.UsageCount)
	}

	// The second sweep must be a no-op for the same breach.
	if err := f.jobs.BreachSweep(ctx); err != nil {
		t.Fatalf("second BreachSweep error: %v", err)
	}
	updated, _ = f.rules.GetRule(rule.ID)
	if updated.UsageCount != 1 {
		t.Errorf("UsageCount = %d after second sweep, want 1", updated.UsageCount)
	}
}

func TestBreachSweepSkipsHealthyTickets(t *testing.T) {
	created := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	now := created.Add(30 * time.Minute)
	f := newSweepFixture(t, now)
	ctx := context.Background()

	policy := &models.SLAPolicy{Organization: "acme", ResponseTimeMinutes: 60, IsActive: true}
	if err := f.slas.CreatePolicy(ctx, policy); err != nil {
		t.Fatal(err)
	}
	ticket := &models.Ticket{Organization: "acme", Status: models.StatusOpen, CreatedAt: created, UpdatedAt: created}
	if err := f.tickets.CreateTicket(ctx, ticket); err != nil {
		t.Fatal(err)
	}

	if err := f.jobs.BreachSweep(ctx); err != nil {
		t.Fatalf("BreachSweep error: %v", err)
	}
	stored, _ := f.tickets.GetTicket(ctx, ticket.ID)
	if stored.ResponseBreachAt != nil {
		t.Error("healthy ticket must not be marked breached")
	}
}

func TestDispatchDeferred(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	f := newSweepFixture(t, now)
	ctx := context.Background()

	ticket := &models.Ticket{Organization: "acme", Status: models.StatusOpen, CreatedAt: now, UpdatedAt: now}
	if err := f.tickets.CreateTicket(ctx, ticket); err != nil {
		t.Fatal(err)
	}

	due := automation.DeferredAction{
		TicketID:     ticket.ID,
		Organization: "acme",
		Action:       models.AddTagAction{Tag: "followed-up"},
		ETA:          now.Add(-time.Minute),
	}
	notYet := automation.DeferredAction{
		TicketID:     ticket.ID,
		Organization: "acme",
		Action:       models.AddTagAction{Tag: "too-early"},
		ETA:          now.Add(time.Hour),
	}
	if err := f.queue.Enqueue(ctx, due); err != nil {
		t.Fatal(err)
	}
	if err := f.queue.Enqueue(ctx, notYet); err != nil {
		t.Fatal(err)
	}

	if err := f.jobs.DispatchDeferred(ctx); err != nil {
		t.Fatalf("DispatchDeferred error: %v", err)
	}

	stored, _ := f.tickets.GetTicket(ctx, ticket.ID)
	if !stored.HasTag("followed-up") {
		t.Error("due deferred action did not run")
	}
	if stored.HasTag("too-early") {
		t.Error("future deferred action ran early")
	}
	if f.queue.Len() != 1 {
		t.Errorf("queue length = %d, want the future item parked", f.queue.Len())
	}
}

// A deferred action whose ticket disappeared is dropped, not retried.
func TestDispatchDeferredDropsMissingTicket(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	f := newSweepFixture(t, now)
	ctx := context.Background()

	orphan := automation.DeferredAction{
		TicketID: 9999,
		Action:   models.AddTagAction{Tag: "orphan"},
		ETA:      now.Add(-time.Minute),
	}
	if err := f.queue.Enqueue(ctx, orphan); err != nil {
		t.Fatal(err)
	}
	if err := f.jobs.DispatchDeferred(ctx); err != nil {
		t.Fatalf("DispatchDeferred error: %v", err)
	}
	if f.queue.Len() != 0 {
		t.Errorf("queue length = %d, want 0", f.queue.Len())
	}
}

func TestMemoryDeferredQueuePopDue(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	q := NewMemoryDeferredQueue()
	ctx := context.Background()

	for i, eta := range []time.Time{now.Add(-3 * time.Minute), now.Add(-time.Minute), now.Add(time.Minute)} {
		item := automation.DeferredAction{
			TicketID: int64(i + 1),
			Action:   models.AddTagAction{Tag: "t"},
			ETA:      eta,
		}
		if err := q.Enqueue(ctx, item); err != nil {
			t.Fatal(err)
		}
	}

	due, err := q.PopDue(ctx, now, 1)
	if err != nil {
		t.Fatalf("PopDue error: %v", err)
	}
	if len(due) != 1 || due[0].TicketID != 1 {
		t.Fatalf("due = %+v, want the oldest item only", due)
	}
	if q.Len() != 2 {
		t.Errorf("Len = %d, want 2", q.Len())
	}
}
