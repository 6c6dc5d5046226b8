package models

import (
	"testing"
	"time"
)

func validCalendar() *BusinessHoursConfig {
	return &BusinessHoursConfig{
		Name:      "weekdays",
		Timezone:  "Europe/Berlin",
		StartTime: "09:00",
		EndTime:   "17:00",
		WorkingDays: []WorkingDay{
			{Day: time.Monday, IsWorking: true},
			{Day: time.Tuesday, IsWorking: true},
			{Day: time.Wednesday, IsWorking: true},
			{Day: time.Thursday, IsWorking: true},
			{Day: time.Friday, IsWorking: true},
		},
	}
}

func TestBusinessHoursValidate(t *testing.T) {
	if err := validCalendar().Validate(); err != nil {
		t.Fatalf("valid calendar rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*BusinessHoursConfig)
	}{
		{"missing timezone", func(c *BusinessHoursConfig) { c.Timezone = "" }},
		{"bad timezone", func(c *BusinessHoursConfig) { c.Timezone = "Mars/Olympus" }},
		{"bad start", func(c *BusinessHoursConfig) { c.StartTime = "9am" }},
		{"inverted window", func(c *BusinessHoursConfig) { c.StartTime, c.EndTime = "17:00", "09:00" }},
		{"no workdays", func(c *BusinessHoursConfig) { c.WorkingDays = nil }},
		{"bad holiday", func(c *BusinessHoursConfig) {
			c.Holidays = []CalendarHoliday{{Name: "bad", Month: 13, Day: 1}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCalendar()
			tt.mutate(c)
			if err := c.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestWorkWindow(t *testing.T) {
	c := validCalendar()
	start, end, err := c.WorkWindow()
	if err != nil {
		t.Fatalf("WorkWindow error: %v", err)
	}
	if start != 9*time.Hour || end != 17*time.Hour {
		t.Errorf("WorkWindow = %v, %v; want 9h, 17h", start, end)
	}
}
