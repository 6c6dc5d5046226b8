package sla

import (
	"context"
	"fmt"
	"time"

	"github.com/ticketflow-io/ticketflow/internal/models"
)

// DeadlineCalculator turns a policy's minute budget into an absolute due
// time. Without a calendar the budget is wall-clock; with one, only working
// time counts and clock starts ticking at the next working instant.
type DeadlineCalculator struct {
	calendars *CalendarService
}

// NewDeadlineCalculator creates a calculator backed by the calendar service.
func NewDeadlineCalculator(calendars *CalendarService) *DeadlineCalculator {
	return &DeadlineCalculator{calendars: calendars}
}

// DueDate computes the absolute deadline for one SLA type of a policy,
// anchored at the ticket's creation time. The result is never before the
// anchor.
func (c *DeadlineCalculator) DueDate(ctx context.Context, ticket *models.Ticket, policy *models.SLAPolicy, slaType models.SLAType) (time.Time, error) {
	minutes := policy.DurationMinutes(slaType)
	if minutes < 0 {
		return time.Time{}, fmt.Errorf("policy %d: negative %s budget %d", policy.ID, slaType, minutes)
	}
	anchor := ticket.CreatedAt

	if policy.CalendarID == nil {
		return anchor.Add(time.Duration(minutes) * time.Minute), nil
	}

	due, err := c.calendars.AddWorkingTime(ctx, *policy.CalendarID, anchor, minutes)
	if err != nil {
		return time.Time{}, fmt.Errorf("policy %d: %w", policy.ID, err)
	}
	if due.Before(anchor) {
		due = anchor
	}
	return due, nil
}
