package protect

import (
	"fmt"
	"sort"
	"time"

	"github.com/sandeepkv93/proxyd/internal/model"
	"github.com/sandeepkv93/proxyd/internal/weights"
)

type Type string

const (
	TypeLunch  Type = "lunch"
	TypeBreak  Type = "break"
	TypeFocus  Type = "focus"
	TypeBuffer Type = "buffer"
)

// Protection is advisory only; the planner never touches the calendar.
type Protection struct {
	Type     Type           `json:"type"`
	Slot     model.TimeSlot `json:"slot"`
	Reason   string         `json:"reason"`
	Priority int            `json:"priority"`
}

type Planner struct {
	w weights.Planner
}

func NewPlanner(w weights.Planner) *Planner {
	return &Planner{w: w}
}

// Suggest plans the day of the first event, or today when there are none.
func Suggest(events []model.CalendarEvent) []Protection {
	return NewPlanner(weights.Default().Planner).Suggest(events, time.Now())
}

// SuggestFor plans day with the default weights.
func SuggestFor(events []model.CalendarEvent, day time.Time) []Protection {
	return NewPlanner(weights.Default().Planner).Suggest(events, day)
}

// Suggest returns protections ordered by ascending priority. fallbackDay is
// only consulted when events is empty.
func (p *Planner) Suggest(events []model.CalendarEvent, fallbackDay time.Time) []Protection {
	timed := model.TimedSorted(events)
	day := fallbackDay
	if len(timed) > 0 {
		day = timed[0].Start
	} else if len(events) > 0 {
		day = events[0].Start
	}

	out := make([]Protection, 0, 4)
	if lunch, ok := p.lunch(timed, day); ok {
		out = append(out, lunch)
	}
	out = append(out, p.buffers(timed)...)
	out = append(out, p.focusBlocks(timed, day)...)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	return out
}

func (p *Planner) lunch(events []model.CalendarEvent, day time.Time) (Protection, bool) {
	if model.TouchesHours(events, p.w.Midday.HourFrom, p.w.Midday.HourTo) {
		return Protection{}, false
	}
	return Protection{
		Type: TypeLunch,
		Slot: model.TimeSlot{
			Start: model.At(day, p.w.LunchStart[0], p.w.LunchStart[1]),
			End:   model.At(day, p.w.LunchEnd[0], p.w.LunchEnd[1]),
		},
		Reason:   "Lunch hour is still open; keep it for a real break",
		Priority: p.w.LunchPriority,
	}, true
}

func (p *Planner) buffers(events []model.CalendarEvent) []Protection {
	out := make([]Protection, 0)
	for i := 1; i < len(events); i++ {
		prev, next := events[i-1], events[i]
		gap := next.Start.Sub(prev.End)
		if gap <= 0 || gap > p.w.BufferMaxGap {
			continue
		}
		out = append(out, Protection{
			Type:     TypeBuffer,
			Slot:     model.TimeSlot{Start: prev.End, End: next.Start},
			Reason:   fmt.Sprintf("Only %d minutes between %q and %q", int(gap/time.Minute), prev.Title, next.Title),
			Priority: p.w.BufferPriority,
		})
	}
	return out
}

func (p *Planner) focusBlocks(events []model.CalendarEvent, day time.Time) []Protection {
	out := make([]Protection, 0)
	for _, free := range p.FreeSlots(events, day) {
		if free.End.Sub(free.Start) < p.w.FocusMinimum {
			continue
		}
		hours := int(free.End.Sub(free.Start) / time.Hour)
		out = append(out, Protection{
			Type:     TypeFocus,
			Slot:     free,
			Reason:   fmt.Sprintf("%d hours of uninterrupted time for deep work", hours),
			Priority: p.w.FocusPriority,
		})
	}
	return out
}

// FreeSlots walks sorted timed events and returns the gaps inside the working
// window of day.
func (p *Planner) FreeSlots(events []model.CalendarEvent, day time.Time) []model.TimeSlot {
	start := model.At(day, p.w.WorkdayStart[0], p.w.WorkdayStart[1])
	end := model.At(day, p.w.WorkdayEnd[0], p.w.WorkdayEnd[1])

	out := make([]model.TimeSlot, 0)
	cursor := start
	for _, e := range events {
		if !e.End.After(start) || !e.Start.Before(end) {
			continue
		}
		if e.Start.After(cursor) {
			out = append(out, model.TimeSlot{Start: cursor, End: e.Start})
		}
		if e.End.After(cursor) {
			cursor = e.End
		}
	}
	if end.After(cursor) {
		out = append(out, model.TimeSlot{Start: cursor, End: end})
	}
	return out
}
