// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package transformers

import (
	"context"

	"github.com/tabmigrate/tabmigrate/core/content"
	"github.com/tabmigrate/tabmigrate/core/schedule"
)

// scheduledItem constrains a transformer to content carrying a
// recurrence schedule.
type scheduledItem interface {
	content.Item
	content.Scheduled
}

// CloudScheduleCompatibility normalizes a schedule to the recurrence
// definitions a cloud site supports:
//
//   - hourly intervals shorter than one hour are widened to exactly
//     one hour;
//   - a weekly schedule with multiple weekday intervals is collapsed
//     to the first weekday only;
//   - daily and monthly schedules pass through unchanged.
//
// Each normalization logs a single warning for the schedule.
type CloudScheduleCompatibility[T scheduledItem] struct{}

// NewCloudScheduleCompatibility returns the cloud schedule
// transformer.
func NewCloudScheduleCompatibility[T scheduledItem]() *CloudScheduleCompatibility[T] {
	return &CloudScheduleCompatibility[T]{}
}

// Transform implements hooks.Transformer.
func (t *CloudScheduleCompatibility[T]) Transform(_ context.Context, item T) (T, error) {
	sched := item.GetSchedule()
	if sched == nil {
		return item, nil
	}
	switch sched.Frequency {
	case schedule.Hourly:
		item.SetSchedule(t.normalizeHourly(item, sched))
	case schedule.Weekly:
		item.SetSchedule(t.normalizeWeekly(item, sched))
	}
	return item, nil
}

func (t *CloudScheduleCompatibility[T]) normalizeHourly(item T, sched *schedule.Schedule) *schedule.Schedule {
	widened := false
	normalized := sched.Clone()
	for i, interval := range normalized.Intervals {
		if interval.WeekDay != "" || interval.MonthDay != 0 {
			continue
		}
		if interval.Hours == 0 && interval.Minutes > 0 && interval.Minutes < 60 {
			normalized.Intervals[i] = schedule.EveryHours(1)
			widened = true
		}
	}
	if widened {
		logger.Warningf("widened sub-hour refresh interval to 1 hour for %s",
			item.SourceReference().Location)
	}
	return normalized
}

func (t *CloudScheduleCompatibility[T]) normalizeWeekly(item T, sched *schedule.Schedule) *schedule.Schedule {
	var weekdays []schedule.Interval
	var others []schedule.Interval
	for _, interval := range sched.Intervals {
		if interval.WeekDay != "" {
			weekdays = append(weekdays, interval)
		} else {
			others = append(others, interval)
		}
	}
	if len(weekdays) <= 1 {
		return sched
	}
	logger.Warningf("collapsed weekly schedule to %s only for %s",
		weekdays[0].WeekDay, item.SourceReference().Location)
	normalized := sched.Clone()
	normalized.Intervals = append(others, weekdays[0])
	return normalized
}
