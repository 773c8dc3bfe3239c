package model

import (
	"testing"
	"time"
)

func TestDaysBetween(t *testing.T) {
	ref := time.Date(2026, 2, 9, 22, 0, 0, 0, time.UTC)
	cases := []struct {
		target time.Time
		want   int
	}{
		{time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC), 0},
		{time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC), 1},
		{time.Date(2026, 2, 8, 23, 59, 0, 0, time.UTC), -1},
		{time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), 20},
	}
	for _, tc := range cases {
		if got := DaysBetween(ref, tc.target); got != tc.want {
			t.Fatalf("DaysBetween(%s) = %d, want %d", tc.target.Format(time.RFC3339), got, tc.want)
		}
	}
}

func TestDaysBetweenAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	ref := time.Date(2026, 3, 7, 12, 0, 0, 0, loc)
	target := time.Date(2026, 3, 9, 0, 0, 0, 0, loc)
	if got := DaysBetween(ref, target); got != 2 {
		t.Fatalf("expected 2 days across DST change, got %d", got)
	}
}

func TestEventsOnAndTimedSorted(t *testing.T) {
	day := time.Date(2026, 2, 9, 10, 0, 0, 0, time.UTC)
	events := []CalendarEvent{
		{Title: "late", Start: time.Date(2026, 2, 9, 15, 0, 0, 0, time.UTC), End: time.Date(2026, 2, 9, 16, 0, 0, 0, time.UTC)},
		{Title: "tomorrow", Start: time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC), End: time.Date(2026, 2, 10, 1, 0, 0, 0, time.UTC)},
		{Title: "holiday", Start: time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC), End: time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC), AllDay: true},
		{Title: "early", Start: time.Date(2026, 2, 9, 9, 0, 0, 0, time.UTC), End: time.Date(2026, 2, 9, 9, 30, 0, 0, time.UTC)},
	}
	today := EventsOn(events, day)
	if len(today) != 3 {
		t.Fatalf("expected 3 events today, got %d", len(today))
	}
	timed := TimedSorted(today)
	if len(timed) != 2 || timed[0].Title != "early" || timed[1].Title != "late" {
		t.Fatalf("unexpected timed order: %#v", timed)
	}
}
