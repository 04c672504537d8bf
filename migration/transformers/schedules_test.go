// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package transformers_test

import (
	"context"

	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/tabmigrate/tabmigrate/core/content"
	"github.com/tabmigrate/tabmigrate/core/schedule"
	"github.com/tabmigrate/tabmigrate/migration/transformers"
)

type SchedulesSuite struct {
	baseSuite
}

var _ = gc.Suite(&SchedulesSuite{})

func (s *SchedulesSuite) task(c *gc.C, sched *schedule.Schedule) *content.ExtractRefreshTask {
	return &content.ExtractRefreshTask{
		Reference:  ref(c, "t-1", "", "refresh-overview"),
		TargetType: content.WorkbooksType,
		Target:     ref(c, "w-1", "overview", "Default", "Overview"),
		Schedule:   sched,
	}
}

func (s *SchedulesSuite) TestSubHourIntervalWidened(c *gc.C) {
	t := transformers.NewCloudScheduleCompatibility[*content.ExtractRefreshTask]()
	task := s.task(c, schedule.New(schedule.Hourly, schedule.EveryMinutes(15)))

	transformed, err := t.Transform(context.Background(), task)
	c.Assert(err, jc.ErrorIsNil)
	sched := transformed.GetSchedule()
	c.Assert(sched.Intervals, gc.HasLen, 1)
	c.Check(sched.Intervals[0], gc.Equals, schedule.EveryHours(1))
	c.Check(s.warnings(), gc.HasLen, 1)
}

func (s *SchedulesSuite) TestHourlyIntervalUntouched(c *gc.C) {
	t := transformers.NewCloudScheduleCompatibility[*content.ExtractRefreshTask]()
	task := s.task(c, schedule.New(schedule.Hourly, schedule.EveryHours(4)))

	transformed, err := t.Transform(context.Background(), task)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(transformed.GetSchedule().Intervals[0], gc.Equals, schedule.EveryHours(4))
	c.Check(s.warnings(), gc.HasLen, 0)
}

func (s *SchedulesSuite) TestWeeklyCollapsedToFirstWeekday(c *gc.C) {
	t := transformers.NewCloudScheduleCompatibility[*content.ExtractRefreshTask]()
	task := s.task(c, schedule.New(schedule.Weekly,
		schedule.OnWeekDay("Monday"), schedule.OnWeekDay("Wednesday"), schedule.OnWeekDay("Friday")))

	transformed, err := t.Transform(context.Background(), task)
	c.Assert(err, jc.ErrorIsNil)
	sched := transformed.GetSchedule()
	c.Assert(sched.Intervals, gc.HasLen, 1)
	c.Check(sched.Intervals[0], gc.Equals, schedule.OnWeekDay("Monday"))
	c.Check(s.warnings(), gc.HasLen, 1)
}

func (s *SchedulesSuite) TestSingleWeekdayUntouched(c *gc.C) {
	t := transformers.NewCloudScheduleCompatibility[*content.ExtractRefreshTask]()
	original := schedule.New(schedule.Weekly, schedule.OnWeekDay("Monday"))
	task := s.task(c, original)

	transformed, err := t.Transform(context.Background(), task)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(transformed.GetSchedule(), gc.Equals, original)
	c.Check(s.warnings(), gc.HasLen, 0)
}

func (s *SchedulesSuite) TestDailyAndMonthlyPassThrough(c *gc.C) {
	t := transformers.NewCloudScheduleCompatibility[*content.ExtractRefreshTask]()
	for _, sched := range []*schedule.Schedule{
		schedule.New(schedule.Daily),
		schedule.New(schedule.Monthly, schedule.OnMonthDay(1)),
	} {
		task := s.task(c, sched)
		transformed, err := t.Transform(context.Background(), task)
		c.Assert(err, jc.ErrorIsNil)
		c.Check(transformed.GetSchedule(), gc.Equals, sched)
	}
	c.Check(s.warnings(), gc.HasLen, 0)
}

func (s *SchedulesSuite) TestNilSchedulePassesThrough(c *gc.C) {
	t := transformers.NewCloudScheduleCompatibility[*content.ExtractRefreshTask]()
	task := s.task(c, nil)
	transformed, err := t.Transform(context.Background(), task)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(transformed.GetSchedule(), gc.IsNil)
}
