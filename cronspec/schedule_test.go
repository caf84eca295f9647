package cronspec

import (
	"testing"
	"time"

	"oss.nandlabs.io/ecscheduler/jobmodel"
)

func compileOrFatal(t *testing.T, schedule, timezone string) *Schedule {
	t.Helper()
	ps, _, err := ParseDialect(schedule)
	if err != nil {
		t.Fatalf("ParseDialect(%q): %v", schedule, err)
	}
	s, err := Compile(ps, timezone)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return s
}

func TestSchedule_Next_EveryMinute(t *testing.T) {
	s := compileOrFatal(t, "0 * * * * * * *", "UTC")
	from := time.Date(2026, 1, 1, 10, 30, 15, 0, time.UTC)
	next := s.Next(from)
	want := time.Date(2026, 1, 1, 10, 31, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("Next(%v) = %v, want %v", from, next, want)
	}
}

func TestSchedule_Next_DailyAtHour(t *testing.T) {
	s := compileOrFatal(t, "0 0 6", "UTC")
	from := time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC)
	next := s.Next(from)
	want := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("Next(%v) = %v, want %v", from, next, want)
	}
}

func TestSchedule_Next_MonthBoundary(t *testing.T) {
	s := compileOrFatal(t, "0 0 0 * * * 2", "UTC")
	from := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	next := s.Next(from)
	if next.Month() != time.February {
		t.Fatalf("expected next firing in February, got %v", next)
	}
}

func TestSchedule_Next_NoMatchWithinHorizonReturnsZero(t *testing.T) {
	ps := &jobmodel.ParsedSchedule{
		Second: "0", Minute: "0", Hour: "0",
		DayOfWeek: "*", Week: "*", Day: "*", Month: "*", Year: "1970",
	}
	s, err := Compile(ps, "UTC")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	next := s.Next(from)
	if !next.IsZero() {
		t.Fatalf("expected no match within the horizon, got %v", next)
	}
}
