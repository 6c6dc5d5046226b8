package sla

import (
	"context"
	"testing"
	"time"

	"github.com/ticketflow-io/ticketflow/internal/models"
	"github.com/ticketflow-io/ticketflow/internal/repository"
)

func newTestDetector(t *testing.T, repo *repository.MemorySLARepository, now time.Time) *BreachDetector {
	t.Helper()
	resolver := newTestResolver(repo)
	calc := NewDeadlineCalculator(NewCalendarService(repo))
	return NewBreachDetector(resolver, calc,
		WithDetectorLogger(quietLogger()),
		WithDetectorNowFunc(func() time.Time { return now }))
}

func TestBreachBoundary(t *testing.T) {
	created := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	dueAt := created.Add(60 * time.Minute)

	tests := []struct {
		name         string
		now          time.Time
		wantBreached bool
	}{
		{"well within budget", created.Add(30 * time.Minute), false},
		{"exactly at the deadline", dueAt, false},
		{"one second past", dueAt.Add(time.Second), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := repository.NewMemorySLARepository()
			addPolicy(t, repo, &models.SLAPolicy{Organization: "acme", ResponseTimeMinutes: 60})
			detector := newTestDetector(t, repo, tt.now)

			ticket := &models.Ticket{ID: 1, Organization: "acme", CreatedAt: created}
			result, err := detector.Check(context.Background(), ticket, models.SLAResponse)
			if err != nil {
				t.Fatalf("Check error: %v", err)
			}
			if result.Breached != tt.wantBreached {
				t.Errorf("Breached = %v, want %v", result.Breached, tt.wantBreached)
			}
			if !result.DueAt.Equal(dueAt) {
				t.Errorf("DueAt = %v, want %v", result.DueAt, dueAt)
			}
			if tt.wantBreached && result.Reason != models.BreachReasonDeadlineExceeded {
				t.Errorf("Reason = %s, want deadline_exceeded", result.Reason)
			}
		})
	}
}

// A milestone recorded at or before the deadline means that SLA type can
// never breach, no matter how late the check runs.
func TestBreachMilestoneMet(t *testing.T) {
	created := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	responded := created.Add(30 * time.Minute)
	longAfter := created.Add(48 * time.Hour)

	repo := repository.NewMemorySLARepository()
	addPolicy(t, repo, &models.SLAPolicy{Organization: "acme", ResponseTimeMinutes: 60})
	detector := newTestDetector(t, repo, longAfter)

	ticket := &models.Ticket{ID: 1, Organization: "acme", CreatedAt: created, FirstResponseAt: &responded}
	result, err := detector.Check(context.Background(), ticket, models.SLAResponse)
	if err != nil {
		t.Fatalf("Check error: %v", err)
	}
	if result.Breached {
		t.Error("milestone met in time, must never breach")
	}
}

func TestBreachLateMilestoneStillBreaches(t *testing.T) {
	created := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	lateResponse := created.Add(90 * time.Minute)
	now := created.Add(2 * time.Hour)

	repo := repository.NewMemorySLARepository()
	addPolicy(t, repo, &models.SLAPolicy{Organization: "acme", ResponseTimeMinutes: 60})
	detector := newTestDetector(t, repo, now)

	ticket := &models.Ticket{ID: 1, Organization: "acme", CreatedAt: created, FirstResponseAt: &lateResponse}
	result, err := detector.Check(context.Background(), ticket, models.SLAResponse)
	if err != nil {
		t.Fatalf("Check error: %v", err)
	}
	if !result.Breached {
		t.Error("response after the deadline is still a breach")
	}
}

func TestBreachResolutionUsesResolvedAt(t *testing.T) {
	created := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	resolved := created.Add(3 * time.Hour)
	now := created.Add(10 * time.Hour)

	repo := repository.NewMemorySLARepository()
	addPolicy(t, repo, &models.SLAPolicy{Organization: "acme", ResponseTimeMinutes: 60, ResolutionTimeMinutes: 240})
	detector := newTestDetector(t, repo, now)

	ticket := &models.Ticket{ID: 1, Organization: "acme", CreatedAt: created, ResolvedAt: &resolved}
	result, err := detector.Check(context.Background(), ticket, models.SLAResolution)
	if err != nil {
		t.Fatalf("Check error: %v", err)
	}
	if result.Breached {
		t.Error("resolution within budget must not breach")
	}
}

func TestBreachNoPolicy(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	detector := newTestDetector(t, repository.NewMemorySLARepository(), now)

	ticket := &models.Ticket{ID: 1, Organization: "acme", CreatedAt: now.Add(-time.Hour)}
	result, err := detector.Check(context.Background(), ticket, models.SLAResponse)
	if err != nil {
		t.Fatalf("Check error: %v", err)
	}
	if result.Breached || result.Reason != models.BreachReasonNoPolicy {
		t.Errorf("result = %+v, want no_policy and not breached", result)
	}
}

func TestBreachTimeRemaining(t *testing.T) {
	created := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	now := created.Add(40 * time.Minute)

	repo := repository.NewMemorySLARepository()
	addPolicy(t, repo, &models.SLAPolicy{Organization: "acme", ResponseTimeMinutes: 60})
	detector := newTestDetector(t, repo, now)

	ticket := &models.Ticket{ID: 1, Organization: "acme", CreatedAt: created}
	result, err := detector.Check(context.Background(), ticket, models.SLAResponse)
	if err != nil {
		t.Fatalf("Check error: %v", err)
	}
	if result.TimeRemainingSeconds != 20*60 {
		t.Errorf("TimeRemainingSeconds = %d, want 1200", result.TimeRemainingSeconds)
	}
}
