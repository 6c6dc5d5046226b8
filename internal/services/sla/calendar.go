// Package sla implements SLA policy resolution, business-hours deadline
// calculation, and breach detection.
package sla

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/rickar/cal/v2"

	"github.com/ticketflow-io/ticketflow/internal/models"
)

// CalendarStore loads business-hours configurations.
type CalendarStore interface {
	GetCalendar(ctx context.Context, id int64) (*models.BusinessHoursConfig, error)
}

// businessCalendar is a compiled calendar plus its IANA location. All
// working-time arithmetic happens in this location so DST transitions and
// day boundaries land on the organization's clock, not the server's.
type businessCalendar struct {
	cal *cal.BusinessCalendar
	loc *time.Location
}

// CalendarService compiles BusinessHoursConfig records into working-time
// calendars and caches the compiled form. The cache holds compiled
// calendars only, never policy resolutions; Invalidate drops an entry when
// its configuration changes.
type CalendarService struct {
	store  CalendarStore
	logger *log.Logger

	mu    sync.RWMutex
	cache map[int64]*businessCalendar
}

// CalendarOption configures a CalendarService.
type CalendarOption func(*CalendarService)

// WithCalendarLogger overrides the default logger.
func WithCalendarLogger(logger *log.Logger) CalendarOption {
	return func(s *CalendarService) { s.logger = logger }
}

// NewCalendarService creates a calendar service backed by the given store.
func NewCalendarService(store CalendarStore, opts ...CalendarOption) *CalendarService {
	s := &CalendarService{
		store:  store,
		logger: log.Default(),
		cache:  make(map[int64]*businessCalendar),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Invalidate drops the compiled calendar for a configuration, forcing a
// rebuild on next use. Call after saving calendar changes.
func (s *CalendarService) Invalidate(id int64) {
	s.mu.Lock()
	delete(s.cache, id)
	s.mu.Unlock()
}

// AddWorkingTime advances start by the given number of working minutes on
// the configured calendar.
func (s *CalendarService) AddWorkingTime(ctx context.Context, calendarID int64, start time.Time, minutes int) (time.Time, error) {
	bc, err := s.calendar(ctx, calendarID)
	if err != nil {
		return time.Time{}, err
	}
	due := bc.cal.AddWorkHours(start.In(bc.loc), time.Duration(minutes)*time.Minute)
	return due, nil
}

// IsWorkingTime reports whether t falls inside the calendar's work window.
func (s *CalendarService) IsWorkingTime(ctx context.Context, calendarID int64, t time.Time) (bool, error) {
	bc, err := s.calendar(ctx, calendarID)
	if err != nil {
		return false, err
	}
	return bc.cal.IsWorkTime(t.In(bc.loc)), nil
}

// WorkingTimeBetween returns the amount of working time between two instants.
func (s *CalendarService) WorkingTimeBetween(ctx context.Context, calendarID int64, start, end time.Time) (time.Duration, error) {
	bc, err := s.calendar(ctx, calendarID)
	if err != nil {
		return 0, err
	}
	return bc.cal.WorkHoursInRange(start.In(bc.loc), end.In(bc.loc)), nil
}

func (s *CalendarService) calendar(ctx context.Context, id int64) (*businessCalendar, error) {
	s.mu.RLock()
	bc, ok := s.cache[id]
	s.mu.RUnlock()
	if ok {
		return bc, nil
	}

	config, err := s.store.GetCalendar(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load calendar %d: %w", id, err)
	}
	bc, err = compileCalendar(config)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[id] = bc
	s.mu.Unlock()
	return bc, nil
}

// compileCalendar turns a stored configuration into a working calendar.
// Misconfiguration fails loudly here rather than producing quiet 24x7 math.
func compileCalendar(config *models.BusinessHoursConfig) (*businessCalendar, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("failed to compile calendar %d: %w", config.ID, err)
	}

	loc, err := time.LoadLocation(config.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", config.Timezone, err)
	}
	start, end, err := config.WorkWindow()
	if err != nil {
		return nil, fmt.Errorf("failed to parse work window for calendar %d: %w", config.ID, err)
	}

	c := cal.NewBusinessCalendar()
	c.SetWorkHours(start, end)
	for day := time.Sunday; day <= time.Saturday; day++ {
		c.SetWorkday(day, false)
	}
	for _, wd := range config.WorkingDays {
		c.SetWorkday(wd.Day, wd.IsWorking)
	}

	for _, h := range config.Holidays {
		holiday := &cal.Holiday{
			Name:  h.Name,
			Month: h.Month,
			Day:   h.Day,
			Func:  cal.CalcDayOfMonth,
		}
		if h.Year != 0 {
			holiday.StartYear = h.Year
			holiday.EndYear = h.Year
		}
		c.AddHoliday(holiday)
	}

	return &businessCalendar{cal: c, loc: loc}, nil
}
