package model

import (
	"errors"
	"sort"
	"strings"
	"time"
)

var ErrInvalidEventRange = errors.New("model: event end precedes start")

type CalendarEvent struct {
	ID       string    `json:"id,omitempty"`
	Title    string    `json:"title"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Location string    `json:"location,omitempty"`
	AllDay   bool      `json:"allDay"`
}

func (e CalendarEvent) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return errors.New("model: event title is required")
	}
	if e.Start.IsZero() || e.End.IsZero() {
		return errors.New("model: event start and end are required")
	}
	if e.End.Before(e.Start) {
		return ErrInvalidEventRange
	}
	return nil
}

func (e CalendarEvent) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

type TimeSlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (s TimeSlot) Minutes() int {
	return int(s.End.Sub(s.Start) / time.Minute)
}

func (s TimeSlot) Overlaps(start, end time.Time) bool {
	return start.Before(s.End) && end.After(s.Start)
}

func (s TimeSlot) Equal(o TimeSlot) bool {
	return s.Start.Equal(o.Start) && s.End.Equal(o.End)
}

// EventsOn keeps the events whose start falls in [day 00:00, next day 00:00).
func EventsOn(events []CalendarEvent, day time.Time) []CalendarEvent {
	from := StartOfDay(day)
	to := from.AddDate(0, 0, 1)
	out := make([]CalendarEvent, 0, len(events))
	for _, e := range events {
		if e.Start.Before(from) || !e.Start.Before(to) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// TimedSorted drops all-day events and sorts the rest by start, stable.
func TimedSorted(events []CalendarEvent) []CalendarEvent {
	out := make([]CalendarEvent, 0, len(events))
	for _, e := range events {
		if !e.AllDay {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})
	return out
}

// TouchesHours reports whether any event starts or ends within the clock hours
// [from, to], read in the event's own location.
func TouchesHours(events []CalendarEvent, from, to int) bool {
	in := func(t time.Time) bool {
		h := t.Hour()
		return h >= from && h <= to
	}
	for _, e := range events {
		if in(e.Start) || in(e.End) {
			return true
		}
	}
	return false
}
