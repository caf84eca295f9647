package cronspec

import (
	"fmt"
	"time"

	"oss.nandlabs.io/ecscheduler/jobmodel"
)

// Schedule is a compiled cronspec.ParsedSchedule: a set of field matchers
// plus the timezone firings are evaluated in.
type Schedule struct {
	loc *time.Location

	second *numericMatcher
	minute *numericMatcher
	hour   *numericMatcher
	dow    *dayOfWeekMatcher
	week   *numericMatcher
	day    *dayMatcher
	month  *numericMatcher
	year   *numericMatcher
}

// Compile builds a Schedule from a job's parsed fields and timezone. An
// empty timezone defaults to UTC.
func Compile(ps *jobmodel.ParsedSchedule, timezone string) (*Schedule, error) {
	loc := time.UTC
	if timezone != "" {
		var err error
		loc, err = time.LoadLocation(timezone)
		if err != nil {
			return nil, fmt.Errorf("timezone: %w", err)
		}
	}

	second, err := newNumericMatcher(ps.Second, 0, 59)
	if err != nil {
		return nil, fmt.Errorf("second: %w", err)
	}
	minute, err := newNumericMatcher(ps.Minute, 0, 59)
	if err != nil {
		return nil, fmt.Errorf("minute: %w", err)
	}
	hour, err := newNumericMatcher(ps.Hour, 0, 23)
	if err != nil {
		return nil, fmt.Errorf("hour: %w", err)
	}
	dow, err := newDayOfWeekMatcher(ps.DayOfWeek)
	if err != nil {
		return nil, fmt.Errorf("day_of_week: %w", err)
	}
	week, err := newNumericMatcher(ps.Week, 1, 53)
	if err != nil {
		return nil, fmt.Errorf("week: %w", err)
	}
	day, err := newDayMatcher(ps.Day)
	if err != nil {
		return nil, fmt.Errorf("day: %w", err)
	}
	month, err := newNumericMatcher(ps.Month, 1, 12)
	if err != nil {
		return nil, fmt.Errorf("month: %w", err)
	}
	year, err := newNumericMatcher(ps.Year, 1970, 2200)
	if err != nil {
		return nil, fmt.Errorf("year: %w", err)
	}

	return &Schedule{
		loc: loc, second: second, minute: minute, hour: hour,
		dow: dow, week: week, day: day, month: month, year: year,
	}, nil
}

// horizonYears bounds how far into the future Next will search before giving
// up and reporting no upcoming firing.
const horizonYears = 8

// Next returns the first instant strictly after from that satisfies
// every field, or the zero Time if none falls within the search
// horizon. Each mismatched field jumps the candidate forward to the
// next boundary that field could possibly match, so the loop runs in
// time proportional to the number of distinct field values, not to the
// number of seconds in the horizon.
func (s *Schedule) Next(from time.Time) time.Time {
	t := from.In(s.loc).Truncate(time.Second).Add(time.Second)
	limit := t.AddDate(horizonYears, 0, 0)

	for t.Before(limit) {
		if !s.year.matches(t.Year()) {
			t = time.Date(t.Year()+1, 1, 1, 0, 0, 0, 0, s.loc)
			continue
		}
		if !s.month.matches(int(t.Month())) {
			t = startOfNextMonth(t)
			continue
		}
		if !s.day.matches(t) || !s.dow.matches(t) || !s.weekMatches(t) {
			t = startOfNextDay(t)
			continue
		}
		if !s.hour.matches(t.Hour()) {
			t = startOfNextHour(t)
			continue
		}
		if !s.minute.matches(t.Minute()) {
			t = startOfNextMinute(t)
			continue
		}
		if !s.second.matches(t.Second()) {
			t = t.Add(time.Second)
			continue
		}
		return t
	}
	return time.Time{}
}

func (s *Schedule) weekMatches(t time.Time) bool {
	_, wk := t.ISOWeek()
	return s.week.matches(wk)
}

func startOfNextMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, t.Location())
}

func startOfNextDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, t.Location())
}

func startOfNextHour(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour()+1, 0, 0, 0, t.Location())
}

func startOfNextMinute(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute()+1, 0, 0, t.Location())
}
