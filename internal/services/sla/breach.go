package sla

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ticketflow-io/ticketflow/internal/metrics"
	"github.com/ticketflow-io/ticketflow/internal/models"
)

// BreachDetector resolves the applicable policy, computes the deadline,
// and decides whether a ticket has breached one of its SLA budgets.
type BreachDetector struct {
	resolver *PolicyResolver
	deadline *DeadlineCalculator
	logger   *log.Logger
	now      func() time.Time
}

// DetectorOption configures a BreachDetector.
type DetectorOption func(*BreachDetector)

// WithDetectorLogger overrides the default logger.
func WithDetectorLogger(logger *log.Logger) DetectorOption {
	return func(d *BreachDetector) { d.logger = logger }
}

// WithDetectorNowFunc overrides the clock, for tests.
func WithDetectorNowFunc(now func() time.Time) DetectorOption {
	return func(d *BreachDetector) { d.now = now }
}

// NewBreachDetector creates a detector.
func NewBreachDetector(resolver *PolicyResolver, deadline *DeadlineCalculator, opts ...DetectorOption) *BreachDetector {
	d := &BreachDetector{
		resolver: resolver,
		deadline: deadline,
		logger:   log.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Check evaluates one SLA type for a ticket. A ticket with no applicable
// policy is not breached. The deadline instant itself is still in budget;
// breach begins strictly after it. A ticket whose milestone landed at or
// before the deadline can never breach that SLA type, regardless of the
// current time.
func (d *BreachDetector) Check(ctx context.Context, ticket *models.Ticket, slaType models.SLAType) (models.BreachResult, error) {
	policy, err := d.resolver.Resolve(ctx, ticket)
	if err != nil {
		if errors.Is(err, ErrNoPolicy) {
			metrics.BreachChecks.WithLabelValues(string(slaType), "no_policy").Inc()
			return models.BreachResult{Reason: models.BreachReasonNoPolicy}, nil
		}
		return models.BreachResult{}, fmt.Errorf("breach check for ticket %d: %w", ticket.ID, err)
	}

	// A zero budget means the policy does not track this SLA type.
	if policy.DurationMinutes(slaType) <= 0 {
		metrics.BreachChecks.WithLabelValues(string(slaType), "no_budget").Inc()
		return models.BreachResult{Reason: models.BreachReasonNone, PolicyID: policy.ID}, nil
	}

	dueAt, err := d.deadline.DueDate(ctx, ticket, policy, slaType)
	if err != nil {
		return models.BreachResult{}, fmt.Errorf("breach check for ticket %d: %w", ticket.ID, err)
	}

	now := d.now()
	result := models.BreachResult{
		Reason:               models.BreachReasonNone,
		DueAt:                dueAt,
		TimeRemainingSeconds: int64(dueAt.Sub(now).Seconds()),
		PolicyID:             policy.ID,
	}

	if milestone := d.milestone(ticket, slaType); milestone != nil && !milestone.After(dueAt) {
		metrics.BreachChecks.WithLabelValues(string(slaType), "met").Inc()
		return result, nil
	}

	if now.After(dueAt) {
		result.Breached = true
		result.Reason = models.BreachReasonDeadlineExceeded
		metrics.BreachChecks.WithLabelValues(string(slaType), "breached").Inc()
		return result, nil
	}

	metrics.BreachChecks.WithLabelValues(string(slaType), "within").Inc()
	return result, nil
}

// milestone returns the timestamp that satisfies the given SLA type.
func (d *BreachDetector) milestone(ticket *models.Ticket, slaType models.SLAType) *time.Time {
	if slaType == models.SLAResolution {
		return ticket.ResolvedAt
	}
	return ticket.FirstResponseAt
}
