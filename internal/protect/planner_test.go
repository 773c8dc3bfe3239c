package protect

import (
	"strings"
	"testing"
	"time"

	"github.com/sandeepkv93/proxyd/internal/model"
	"github.com/sandeepkv93/proxyd/internal/weights"
)

var day = time.Date(2026, 2, 9, 7, 0, 0, 0, time.UTC)

func at(h, m int) time.Time { return model.At(day, h, m) }

func TestSuggestEmptyDay(t *testing.T) {
	got := SuggestFor(nil, day)
	if len(got) != 2 {
		t.Fatalf("expected lunch and focus, got %+v", got)
	}
	lunch := got[0]
	if lunch.Type != TypeLunch || lunch.Priority != 1 || !lunch.Slot.Start.Equal(at(12, 0)) || !lunch.Slot.End.Equal(at(13, 0)) {
		t.Fatalf("unexpected lunch: %+v", lunch)
	}
	focus := got[1]
	if focus.Type != TypeFocus || focus.Priority != 3 || !focus.Slot.Start.Equal(at(9, 0)) || !focus.Slot.End.Equal(at(18, 0)) {
		t.Fatalf("unexpected focus: %+v", focus)
	}
	if focus.Slot.Minutes() != 540 {
		t.Fatalf("expected 540 focus minutes, got %d", focus.Slot.Minutes())
	}
	if !strings.Contains(focus.Reason, "9 hours") {
		t.Fatalf("focus reason should state whole hours: %q", focus.Reason)
	}
}

func TestSuggestSkipsLunchWhenMiddayBooked(t *testing.T) {
	events := []model.CalendarEvent{{Title: "Client lunch", Start: at(11, 30), End: at(12, 30)}}
	for _, p := range SuggestFor(events, day) {
		if p.Type == TypeLunch {
			t.Fatalf("did not expect lunch suggestion: %+v", p)
		}
	}

	events = []model.CalendarEvent{{Title: "Early sync", Start: at(9, 0), End: at(11, 0)}}
	found := false
	for _, p := range SuggestFor(events, day) {
		if p.Type == TypeLunch {
			found = true
		}
	}
	if found {
		t.Fatal("an event ending at 11:00 falls in lunch hours and should suppress lunch")
	}
}

func TestSuggestBuffersAndFocusOrdering(t *testing.T) {
	events := []model.CalendarEvent{
		{Title: "Standup", Start: at(9, 0), End: at(9, 30)},
		{Title: "Design review", Start: at(9, 40), End: at(10, 30)},
		{Title: "Hiring sync", Start: at(10, 30), End: at(11, 0)},
		{Title: "Roadmap", Start: at(14, 0), End: at(14, 45)},
		{Title: "Offsite", Start: model.StartOfDay(day), End: model.StartOfDay(day).AddDate(0, 0, 1), AllDay: true},
	}
	got := SuggestFor(events, day)

	var buffers, focus []Protection
	for i, p := range got {
		if i > 0 && got[i-1].Priority > p.Priority {
			t.Fatalf("result not priority-ascending: %+v", got)
		}
		switch p.Type {
		case TypeBuffer:
			buffers = append(buffers, p)
		case TypeFocus:
			focus = append(focus, p)
		case TypeLunch:
			t.Fatalf("11:00 end should suppress lunch: %+v", p)
		}
	}
	if len(buffers) != 1 || !buffers[0].Slot.Start.Equal(at(9, 30)) || buffers[0].Slot.Minutes() != 10 {
		t.Fatalf("expected one 10-minute buffer, got %+v", buffers)
	}
	if len(focus) != 2 {
		t.Fatalf("expected focus blocks 11:00-14:00 and 14:45-18:00, got %+v", focus)
	}
	if !focus[0].Slot.Start.Equal(at(11, 0)) || !focus[0].Slot.End.Equal(at(14, 0)) || !strings.Contains(focus[0].Reason, "3 hours") {
		t.Fatalf("unexpected first focus block: %+v", focus[0])
	}
	if !focus[1].Slot.Start.Equal(at(14, 45)) || !strings.Contains(focus[1].Reason, "3 hours") {
		t.Fatalf("unexpected second focus block: %+v", focus[1])
	}
}

func TestFreeSlotsClipsToWorkday(t *testing.T) {
	p := NewPlanner(weights.Default().Planner)
	events := []model.CalendarEvent{
		{Title: "Gym", Start: at(7, 0), End: at(9, 30)},
		{Title: "Dinner", Start: at(17, 0), End: at(20, 0)},
	}
	slots := p.FreeSlots(events, day)
	if len(slots) != 1 || !slots[0].Start.Equal(at(9, 30)) || !slots[0].End.Equal(at(17, 0)) {
		t.Fatalf("unexpected free slots: %+v", slots)
	}
}
