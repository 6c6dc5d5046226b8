package sla

import (
	"context"
	"testing"
	"time"

	"github.com/ticketflow-io/ticketflow/internal/models"
	"github.com/ticketflow-io/ticketflow/internal/repository"
)

func TestDueDateWallClock(t *testing.T) {
	calc := NewDeadlineCalculator(NewCalendarService(repository.NewMemorySLARepository()))
	created := time.Date(2026, 1, 2, 22, 30, 0, 0, time.UTC)
	ticket := &models.Ticket{CreatedAt: created}
	policy := &models.SLAPolicy{ID: 1, ResponseTimeMinutes: 90, ResolutionTimeMinutes: 480}

	due, err := calc.DueDate(context.Background(), ticket, policy, models.SLAResponse)
	if err != nil {
		t.Fatalf("DueDate error: %v", err)
	}
	if want := created.Add(90 * time.Minute); !due.Equal(want) {
		t.Errorf("response due = %v, want %v", due, want)
	}

	due, err = calc.DueDate(context.Background(), ticket, policy, models.SLAResolution)
	if err != nil {
		t.Fatalf("DueDate error: %v", err)
	}
	if want := created.Add(480 * time.Minute); !due.Equal(want) {
		t.Errorf("resolution due = %v, want %v", due, want)
	}
}

func TestDueDateZeroBudget(t *testing.T) {
	calc := NewDeadlineCalculator(NewCalendarService(repository.NewMemorySLARepository()))
	created := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)
	ticket := &models.Ticket{CreatedAt: created}
	policy := &models.SLAPolicy{ID: 1}

	due, err := calc.DueDate(context.Background(), ticket, policy, models.SLAResponse)
	if err != nil {
		t.Fatalf("DueDate error: %v", err)
	}
	if !due.Equal(created) {
		t.Errorf("due = %v, want creation time for zero budget", due)
	}
}

func TestDueDateWithCalendar(t *testing.T) {
	repo := repository.NewMemorySLARepository()
	calendarID := weekdayCalendar(t, repo)
	calc := NewDeadlineCalculator(NewCalendarService(repo))

	created := time.Date(2026, 1, 2, 16, 0, 0, 0, time.UTC) // Friday
	ticket := &models.Ticket{CreatedAt: created}
	policy := &models.SLAPolicy{ID: 1, ResponseTimeMinutes: 120, CalendarID: &calendarID}

	due, err := calc.DueDate(context.Background(), ticket, policy, models.SLAResponse)
	if err != nil {
		t.Fatalf("DueDate error: %v", err)
	}
	want := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	if !due.Equal(want) {
		t.Errorf("due = %v, want %v", due, want)
	}
}
