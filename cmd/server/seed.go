package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ticketflow-io/ticketflow/internal/config"
	"github.com/ticketflow-io/ticketflow/internal/models"
	"github.com/ticketflow-io/ticketflow/internal/repository"
)

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// applySeed loads declarative bootstrap data into an installation. Seeding
// is not idempotent; it is meant for fresh databases.
func applySeed(ctx context.Context, logger *log.Logger, path string, tickets *repository.TicketRepository, rules *repository.RuleRepository, slas *repository.SLARepository) error {
	seed, err := config.ParseSeed(path)
	if err != nil {
		return err
	}
	now := time.Now()

	calendarIDs := make(map[string]int64)
	for _, sc := range seed.Calendars {
		calendar := &models.BusinessHoursConfig{
			Organization: sc.Organization,
			Name:         sc.Name,
			Timezone:     sc.Timezone,
			StartTime:    sc.StartTime,
			EndTime:      sc.EndTime,
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		for _, name := range sc.WorkingDays {
			day, ok := weekdayNames[strings.ToLower(name)]
			if !ok {
				return fmt.Errorf("seed calendar %q: unknown weekday %q", sc.Name, name)
			}
			calendar.WorkingDays = append(calendar.WorkingDays, models.WorkingDay{Day: day, IsWorking: true})
		}
		for _, h := range sc.Holidays {
			calendar.Holidays = append(calendar.Holidays, models.CalendarHoliday{
				Name:  h.Name,
				Month: time.Month(h.Month),
				Day:   h.Day,
				Year:  h.Year,
			})
		}
		if err := slas.CreateCalendar(ctx, calendar); err != nil {
			return err
		}
		calendarIDs[sc.Name] = calendar.ID
	}

	for _, sp := range seed.Policies {
		policy := &models.SLAPolicy{
			Organization:          sp.Organization,
			Name:                  sp.Name,
			ResponseTimeMinutes:   sp.ResponseTimeMinutes,
			ResolutionTimeMinutes: sp.ResolutionTimeMinutes,
			Conditions:            sp.TypedConditions(),
			IsActive:              true,
			Priority:              sp.Priority,
			CreatedAt:             now,
			UpdatedAt:             now,
		}
		if sp.Calendar != "" {
			id, ok := calendarIDs[sp.Calendar]
			if !ok {
				return fmt.Errorf("seed policy %q: unknown calendar %q", sp.Name, sp.Calendar)
			}
			policy.CalendarID = &id
		}
		if err := slas.CreatePolicy(ctx, policy); err != nil {
			return err
		}
	}

	for _, sr := range seed.Rules {
		actions, err := sr.TypedActions()
		if err != nil {
			return err
		}
		rule := &models.AutomationRule{
			Organization:   sr.Organization,
			Name:           sr.Name,
			TriggerType:    models.TriggerType(sr.TriggerType),
			Conditions:     sr.TypedConditions(),
			Actions:        actions,
			ExecutionOrder: sr.ExecutionOrder,
			IsActive:       true,
			StopOnMatch:    sr.StopOnMatch,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := rules.CreateRule(ctx, rule); err != nil {
			return err
		}
	}

	for _, sa := range seed.Agents {
		agent := &models.Agent{
			ID:           sa.ID,
			Organization: sa.Organization,
			Name:         sa.Name,
			Email:        sa.Email,
			IsActive:     true,
			CreatedAt:    now,
		}
		if err := tickets.CreateAgent(ctx, agent); err != nil {
			return err
		}
	}

	logger.Printf("seed: loaded %d calendars, %d policies, %d rules, %d agents from %s",
		len(seed.Calendars), len(seed.Policies), len(seed.Rules), len(seed.Agents), path)
	return nil
}
