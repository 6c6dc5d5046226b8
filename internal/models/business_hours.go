package models

import (
	"fmt"
	"time"
)

// WorkingDay defines whether a weekday is worked.
type WorkingDay struct {
	Day       time.Weekday `json:"day" yaml:"day"`
	IsWorking bool         `json:"is_working" yaml:"is_working"`
}

// CalendarHoliday is a non-working date. Year zero means the holiday recurs
// every year.
type CalendarHoliday struct {
	Name  string     `json:"name" yaml:"name"`
	Month time.Month `json:"month" yaml:"month"`
	Day   int        `json:"day" yaml:"day"`
	Year  int        `json:"year,omitempty" yaml:"year,omitempty"`
}

// BusinessHoursConfig defines an organization's working window: a single
// daily start/end time, the set of working weekdays, holidays, and an IANA
// timezone. All deadline math happens in this timezone.
type BusinessHoursConfig struct {
	ID           int64             `json:"id" db:"id"`
	Organization string            `json:"organization" db:"organization"`
	Name         string            `json:"name" db:"name"`
	Timezone     string            `json:"timezone" db:"timezone"`
	StartTime    string            `json:"start_time" db:"start_time"` // "09:00"
	EndTime      string            `json:"end_time" db:"end_time"`     // "17:00"
	WorkingDays  []WorkingDay      `json:"working_days"`
	Holidays     []CalendarHoliday `json:"holidays,omitempty"`
	IsActive     bool              `json:"is_active" db:"is_active"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at" db:"updated_at"`
}

// Validate rejects misconfigured calendars at save time. Bad timezone or
// window data must fail here, not silently at evaluation time.
func (c *BusinessHoursConfig) Validate() error {
	if c.Timezone == "" {
		return fmt.Errorf("calendar %q: timezone is required", c.Name)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("calendar %q: invalid timezone %q: %w", c.Name, c.Timezone, err)
	}

	start, err := parseClock(c.StartTime)
	if err != nil {
		return fmt.Errorf("calendar %q: invalid start_time: %w", c.Name, err)
	}
	end, err := parseClock(c.EndTime)
	if err != nil {
		return fmt.Errorf("calendar %q: invalid end_time: %w", c.Name, err)
	}
	if end <= start {
		return fmt.Errorf("calendar %q: end_time %s must be after start_time %s", c.Name, c.EndTime, c.StartTime)
	}

	var workdays int
	for _, wd := range c.WorkingDays {
		if wd.Day < time.Sunday || wd.Day > time.Saturday {
			return fmt.Errorf("calendar %q: invalid weekday %d", c.Name, wd.Day)
		}
		if wd.IsWorking {
			workdays++
		}
	}
	if workdays == 0 {
		return fmt.Errorf("calendar %q: at least one working day is required", c.Name)
	}

	for _, h := range c.Holidays {
		if h.Month < time.January || h.Month > time.December || h.Day < 1 || h.Day > 31 {
			return fmt.Errorf("calendar %q: invalid holiday date %d/%d", c.Name, h.Month, h.Day)
		}
	}
	return nil
}

// WorkWindow returns the daily window as durations from midnight.
func (c *BusinessHoursConfig) WorkWindow() (start, end time.Duration, err error) {
	startClock, err := parseClock(c.StartTime)
	if err != nil {
		return 0, 0, err
	}
	endClock, err := parseClock(c.EndTime)
	if err != nil {
		return 0, 0, err
	}
	return startClock, endClock, nil
}

// parseClock parses "HH:MM" into a duration from midnight.
func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
