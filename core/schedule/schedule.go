// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package schedule models the recurrence definitions attached to
// extract refresh tasks and subscriptions. The model is deliberately
// neutral between server and cloud; destination compatibility rules
// are applied by transformers, not here.
package schedule

import (
	"fmt"

	"github.com/juju/errors"
)

// Frequency is the base recurrence of a schedule.
type Frequency string

const (
	Hourly  Frequency = "Hourly"
	Daily   Frequency = "Daily"
	Weekly  Frequency = "Weekly"
	Monthly Frequency = "Monthly"
)

// AllFrequencies lists the valid frequencies from shortest to longest
// recurrence.
var AllFrequencies = []Frequency{Hourly, Daily, Weekly, Monthly}

// ParseFrequency converts a string to a Frequency.
func ParseFrequency(s string) (Frequency, error) {
	for _, f := range AllFrequencies {
		if string(f) == s {
			return f, nil
		}
	}
	return "", errors.NotValidf("schedule frequency %q", s)
}

// Interval is one recurrence interval of a schedule. Exactly one of
// the fields is meaningful for a given frequency: Hours/Minutes for
// Hourly, WeekDay for Weekly, MonthDay for Monthly.
type Interval struct {
	Hours    int
	Minutes  int
	WeekDay  string
	MonthDay int
}

// EveryHours returns an interval recurring every n hours.
func EveryHours(n int) Interval {
	return Interval{Hours: n}
}

// EveryMinutes returns an interval recurring every n minutes.
func EveryMinutes(n int) Interval {
	return Interval{Minutes: n}
}

// OnWeekDay returns a weekly interval for the named weekday.
func OnWeekDay(day string) Interval {
	return Interval{WeekDay: day}
}

// OnMonthDay returns a monthly interval for the given day of month.
func OnMonthDay(day int) Interval {
	return Interval{MonthDay: day}
}

// String implements fmt.Stringer.
func (i Interval) String() string {
	switch {
	case i.WeekDay != "":
		return fmt.Sprintf("every %s", i.WeekDay)
	case i.MonthDay != 0:
		return fmt.Sprintf("on day %d", i.MonthDay)
	case i.Hours != 0:
		return fmt.Sprintf("every %d hours", i.Hours)
	default:
		return fmt.Sprintf("every %d minutes", i.Minutes)
	}
}

// Schedule is a recurrence definition: a base frequency, a set of
// intervals refining it, and the execution window.
type Schedule struct {
	Frequency Frequency
	Intervals []Interval
	Start     string
	End       string
}

// New returns a schedule with the given frequency and intervals.
func New(frequency Frequency, intervals ...Interval) *Schedule {
	return &Schedule{Frequency: frequency, Intervals: intervals}
}

// Validate checks the schedule for internal consistency.
func (s *Schedule) Validate() error {
	if _, err := ParseFrequency(string(s.Frequency)); err != nil {
		return errors.Trace(err)
	}
	for _, in := range s.Intervals {
		if in.Hours < 0 || in.Minutes < 0 || in.MonthDay < 0 {
			return errors.NotValidf("negative schedule interval %v", in)
		}
	}
	return nil
}

// Clone returns a deep copy of the schedule.
func (s *Schedule) Clone() *Schedule {
	if s == nil {
		return nil
	}
	copied := *s
	copied.Intervals = make([]Interval, len(s.Intervals))
	copy(copied.Intervals, s.Intervals)
	return &copied
}
