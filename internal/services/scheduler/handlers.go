package scheduler

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/ticketflow-io/ticketflow/internal/metrics"
	"github.com/ticketflow-io/ticketflow/internal/models"
	"github.com/ticketflow-io/ticketflow/internal/repository"
	"github.com/ticketflow-io/ticketflow/internal/services/automation"
	"github.com/ticketflow-io/ticketflow/internal/services/sla"
)

// sweepTicketStore is the ticket surface the periodic jobs need.
type sweepTicketStore interface {
	automation.TicketStore
	ListOpenTickets(ctx context.Context) ([]*models.Ticket, error)
}

// Jobs holds the periodic job implementations the cron service schedules.
type Jobs struct {
	tickets  sweepTicketStore
	detector *sla.BreachDetector
	engine   *automation.Engine
	executor *automation.Executor
	queue    DeferredQueue
	logger   *log.Logger
	now      func() time.Time

	deferredBatch int
}

// JobsOption configures Jobs.
type JobsOption func(*Jobs)

// WithJobsLogger overrides the default logger.
func WithJobsLogger(logger *log.Logger) JobsOption {
	return func(j *Jobs) { j.logger = logger }
}

// WithJobsNowFunc overrides the clock, for tests.
func WithJobsNowFunc(now func() time.Time) JobsOption {
	return func(j *Jobs) { j.now = now }
}

// WithDeferredBatchSize bounds one deferred dispatch run.
func WithDeferredBatchSize(n int) JobsOption {
	return func(j *Jobs) {
		if n > 0 {
			j.deferredBatch = n
		}
	}
}

// NewJobs wires the periodic jobs to their collaborators.
func NewJobs(tickets sweepTicketStore, detector *sla.BreachDetector, engine *automation.Engine, executor *automation.Executor, queue DeferredQueue, opts ...JobsOption) *Jobs {
	j := &Jobs{
		tickets:       tickets,
		detector:      detector,
		engine:        engine,
		executor:      executor,
		queue:         queue,
		logger:        log.Default(),
		now:           time.Now,
		deferredBatch: 100,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// BreachSweep checks every open ticket's response and resolution budgets
// and fires the sla_breach trigger for fresh breaches. Breach markers on
// the ticket make the trigger fire at most once per ticket and SLA type.
// Per-ticket failures are logged and never abort the sweep.
func (j *Jobs) BreachSweep(ctx context.Context) error {
	started := j.now()
	defer func() {
		metrics.BreachSweepDuration.Observe(j.now().Sub(started).Seconds())
	}()

	tickets, err := j.tickets.ListOpenTickets(ctx)
	if err != nil {
		return err
	}

	for _, ticket := range tickets {
		for _, slaType := range []models.SLAType{models.SLAResponse, models.SLAResolution} {
			if err := j.checkOne(ctx, ticket, slaType); err != nil {
				j.logger.Printf("scheduler: breach check %s for ticket %d failed: %v", slaType, ticket.ID, err)
			}
		}
	}
	return nil
}

func (j *Jobs) checkOne(ctx context.Context, ticket *models.Ticket, slaType models.SLAType) error {
	if j.breachMarker(ticket, slaType) != nil {
		return nil
	}

	result, err := j.detector.Check(ctx, ticket, slaType)
	if err != nil {
		return err
	}
	if !result.Breached {
		return nil
	}

	now := j.now()
	j.setBreachMarker(ticket, slaType, now)
	ticket.UpdatedAt = now
	if err := j.tickets.SaveTicket(ctx, ticket); err != nil {
		// Lost race with a concurrent writer: the next sweep retries.
		return err
	}

	evalCtx := map[string]interface{}{
		"sla_type":        string(slaType),
		"due_at":          result.DueAt,
		"policy_id":       result.PolicyID,
		"overdue_seconds": -result.TimeRemainingSeconds,
	}
	return j.engine.ExecuteRules(ctx, models.TriggerSLABreach, ticket, evalCtx)
}

func (j *Jobs) breachMarker(ticket *models.Ticket, slaType models.SLAType) *time.Time {
	if slaType == models.SLAResolution {
		return ticket.ResolutionBreachAt
	}
	return ticket.ResponseBreachAt
}

func (j *Jobs) setBreachMarker(ticket *models.Ticket, slaType models.SLAType, at time.Time) {
	if slaType == models.SLAResolution {
		ticket.ResolutionBreachAt = &at
		return
	}
	ticket.ResponseBreachAt = &at
}

// TimeBasedRules runs the time_based trigger against every open ticket.
func (j *Jobs) TimeBasedRules(ctx context.Context) error {
	tickets, err := j.tickets.ListOpenTickets(ctx)
	if err != nil {
		return err
	}
	for _, ticket := range tickets {
		if err := j.engine.ExecuteRules(ctx, models.TriggerTimeBased, ticket, nil); err != nil {
			j.logger.Printf("scheduler: time-based rules for ticket %d failed: %v", ticket.ID, err)
		}
	}
	return nil
}

// DispatchDeferred runs parked follow-up actions whose ETA arrived. A
// deleted ticket drops its deferred actions.
func (j *Jobs) DispatchDeferred(ctx context.Context) error {
	due, err := j.queue.PopDue(ctx, j.now(), j.deferredBatch)
	if err != nil {
		return err
	}

	for _, item := range due {
		ticket, err := j.tickets.GetTicket(ctx, item.TicketID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				j.logger.Printf("scheduler: dropping deferred %s for missing ticket %d", item.Action.ActionType(), item.TicketID)
				continue
			}
			j.logger.Printf("scheduler: failed to load ticket %d for deferred action: %v", item.TicketID, err)
			continue
		}

		if err := j.executor.Execute(ctx, item.Action, ticket, nil); err != nil {
			j.logger.Printf("scheduler: deferred %s on ticket %d failed: %v", item.Action.ActionType(), ticket.ID, err)
			continue
		}
		ticket.UpdatedAt = j.now()
		if err := j.tickets.SaveTicket(ctx, ticket); err != nil {
			j.logger.Printf("scheduler: failed to persist ticket %d after deferred action: %v", ticket.ID, err)
			continue
		}
		metrics.DeferredDispatched.Inc()
	}
	return nil
}
