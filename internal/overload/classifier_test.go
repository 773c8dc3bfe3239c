package overload

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/sandeepkv93/proxyd/internal/model"
	"github.com/sandeepkv93/proxyd/internal/protect"
	"github.com/sandeepkv93/proxyd/internal/weights"
)

var day = time.Date(2026, 2, 9, 8, 0, 0, 0, time.UTC)

func at(h, m int) time.Time { return model.At(day, h, m) }

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("act-%d", n)
	}
}

// sevenMeetings builds 50-minute meetings from 09:00 with 10-minute gaps.
func sevenMeetings() []model.CalendarEvent {
	out := make([]model.CalendarEvent, 0, 7)
	for i := 0; i < 7; i++ {
		start := at(9+i, 0)
		out = append(out, model.CalendarEvent{
			ID:    fmt.Sprintf("ev-%d", i),
			Title: fmt.Sprintf("Team meeting %d", i+1),
			Start: start,
			End:   start.Add(50 * time.Minute),
		})
	}
	return out
}

func TestLevelBoundaries(t *testing.T) {
	cases := []struct {
		score int
		want  Level
	}{
		{0, LevelNone},
		{29, LevelNone},
		{30, LevelWatch},
		{49, LevelWatch},
		{50, LevelWarning},
		{69, LevelWarning},
		{70, LevelCritical},
		{100, LevelCritical},
	}
	for _, tc := range cases {
		if got := LevelFor(tc.score); got != tc.want {
			t.Fatalf("LevelFor(%d) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestDetectEmptyDayIsNeutral(t *testing.T) {
	det := Detect(nil, nil, day)
	if det.Score != 0 || det.Level != LevelNone || det.IsOverloaded {
		t.Fatalf("expected neutral detection, got %+v", det)
	}
	if len(det.Factors) != 0 || len(det.Suggestions) != 0 {
		t.Fatalf("expected no factors or suggestions, got %+v", det)
	}
}

func TestDetectConsecutiveMeetingScenario(t *testing.T) {
	c := NewClassifier(weights.Default().Overload, seqIDs())
	det := c.Detect(nil, sevenMeetings(), day)

	if det.Score != 60 || det.Level != LevelWarning || !det.IsOverloaded {
		t.Fatalf("expected score 60 warning, got score=%d level=%s", det.Score, det.Level)
	}
	meeting, ok := det.Has(FactorMeetingCount)
	if !ok || meeting.Points != 30 || meeting.Severity != SeverityHigh || *meeting.Value != 7 {
		t.Fatalf("unexpected meeting factor: %+v", meeting)
	}
	run, ok := det.Has(FactorConsecutiveMeetings)
	if !ok || run.Points != 15 || run.Severity != SeverityHigh {
		t.Fatalf("unexpected consecutive factor: %+v", run)
	}
	if _, ok := det.Has(FactorNoBreak); !ok {
		t.Fatal("expected no_break factor")
	}
	if _, ok := det.Has(FactorLateSchedule); ok {
		t.Fatal("did not expect late_schedule factor for a day ending 15:50")
	}

	if len(det.Suggestions) != 2 {
		t.Fatalf("expected overload_warn and protect_time suggestions, got %d", len(det.Suggestions))
	}
	warn := det.Suggestions[0]
	if warn.Type != model.ActionOverloadWarn || warn.Urgency != model.UrgencyHigh || warn.NotifyStyle != model.NotifyGentle {
		t.Fatalf("unexpected warn action: %+v", warn)
	}
	if warn.Controls.CanUndo || warn.Controls.CanModify || !warn.Controls.CanDismiss {
		t.Fatalf("unexpected warn controls: %+v", warn.Controls)
	}
	if !strings.Contains(warn.Description, "7 meetings scheduled today") || !strings.Contains(warn.Description, "back to back") {
		t.Fatalf("warn description should join high factors: %q", warn.Description)
	}
	lunch := det.Suggestions[1]
	slot, ok := lunch.Slot()
	if lunch.Type != model.ActionProtectTime || !ok || !slot.Start.Equal(at(12, 0)) || !slot.End.Equal(at(13, 0)) {
		t.Fatalf("unexpected lunch action: %+v", lunch)
	}
	if lunch.Urgency != model.UrgencyMedium || lunch.NotifyStyle != model.NotifySubtle {
		t.Fatalf("unexpected lunch urgency/style: %+v", lunch)
	}
	for _, s := range det.Suggestions {
		if s.Status != model.ActionStatusPending || !s.CreatedAt.Equal(day) {
			t.Fatalf("suggestions must be pending and stamped now: %+v", s)
		}
	}
}

func TestDetectLunchBreakSuppressesNoBreak(t *testing.T) {
	events := []model.CalendarEvent{
		{Title: "Design review", Start: at(10, 0), End: at(11, 0)},
		{Title: "Planning meeting", Start: at(13, 0), End: at(14, 0)},
	}
	det := Detect(nil, events, day)
	if _, ok := det.Has(FactorNoBreak); ok {
		t.Fatalf("expected free 11:00-13:00 to count as a lunch break: %+v", det.Factors)
	}

	events = append(events, model.CalendarEvent{Title: "Client call", Start: at(11, 0), End: at(13, 0)})
	det = Detect(nil, events, day)
	if _, ok := det.Has(FactorNoBreak); !ok {
		t.Fatalf("expected no_break once the window is fully booked: %+v", det.Factors)
	}

	events = append(events, model.CalendarEvent{Title: "Lunch with team", Start: at(12, 0), End: at(12, 45)})
	det = Detect(nil, events, day)
	if _, ok := det.Has(FactorNoBreak); ok {
		t.Fatal("expected a lunch-titled event to count as a break")
	}
}

func TestDetectTaskFactors(t *testing.T) {
	today := model.StartOfDay(day)
	tasks := make([]model.Task, 0, 6)
	for i := 0; i < 5; i++ {
		tasks = append(tasks, model.Task{
			ID:       fmt.Sprintf("t-%d", i),
			Title:    "urgent",
			Status:   model.TaskStatusTodo,
			Priority: model.PriorityMedium,
			DueDate:  &today,
		})
	}
	tasks = append(tasks, model.Task{ID: "done", Title: "finished", Status: model.TaskStatusDone, Priority: model.PriorityHigh, DueDate: &today})

	c := NewClassifier(weights.Default().Overload, seqIDs())
	det := c.Detect(tasks, nil, day)
	if det.Score != 45 || det.Level != LevelWatch {
		t.Fatalf("expected 25+20=45 watch, got score=%d level=%s", det.Score, det.Level)
	}
	urgent, _ := det.Has(FactorUrgentTasks)
	if urgent.Severity != SeverityHigh || *urgent.Value != 5 {
		t.Fatalf("done tasks must not count as urgent: %+v", urgent)
	}
	var prioritize *model.ProxyAction
	for i := range det.Suggestions {
		if det.Suggestions[i].Type == model.ActionPrioritize {
			prioritize = &det.Suggestions[i]
		}
	}
	if prioritize == nil {
		t.Fatalf("expected prioritize suggestion, got %+v", det.Suggestions)
	}
	if prioritize.Urgency != model.UrgencyHigh || prioritize.NotifyStyle != model.NotifyProminent || !prioritize.Controls.CanModify || prioritize.Controls.CanUndo {
		t.Fatalf("unexpected prioritize action: %+v", prioritize)
	}
	if len(prioritize.Related.TaskIDs) != 5 {
		t.Fatalf("expected 5 related task ids, got %v", prioritize.Related.TaskIDs)
	}
}

func TestDetectLateSchedule(t *testing.T) {
	events := []model.CalendarEvent{{Title: "Dinner with investors", Start: at(18, 0), End: at(19, 0)}}
	det := Detect(nil, events, day)
	late, ok := det.Has(FactorLateSchedule)
	if !ok || late.Points != 10 || det.Score != 10 {
		t.Fatalf("expected late schedule factor worth 10, got %+v score=%d", det.Factors, det.Score)
	}
}

func TestDetectIgnoresOtherDaysAndAllDay(t *testing.T) {
	events := sevenMeetings()
	for i := range events {
		events[i].Start = events[i].Start.AddDate(0, 0, 1)
		events[i].End = events[i].End.AddDate(0, 0, 1)
	}
	events = append(events, model.CalendarEvent{Title: "Offsite meeting", Start: model.StartOfDay(day), End: model.StartOfDay(day).AddDate(0, 0, 1), AllDay: true})
	det := Detect(nil, events, day)
	if det.Score != 0 {
		t.Fatalf("expected tomorrow and all-day events to be ignored, got score %d (%+v)", det.Score, det.Factors)
	}
}

func TestScoreMonotonicAndClamped(t *testing.T) {
	today := model.StartOfDay(day)
	events := sevenMeetings()
	events = append(events, model.CalendarEvent{Title: "Late sync", Start: at(18, 30), End: at(20, 0)})
	var tasks []model.Task
	prev := Detect(tasks, events, day).Score
	for i := 0; i < 8; i++ {
		tasks = append(tasks, model.Task{
			ID:       fmt.Sprintf("t-%d", i),
			Title:    "task",
			Status:   model.TaskStatusTodo,
			Priority: model.PriorityHigh,
			DueDate:  &today,
		})
		score := Detect(tasks, events, day).Score
		if score < prev {
			t.Fatalf("score decreased after adding task %d: %d -> %d", i, prev, score)
		}
		if score < 0 || score > 100 {
			t.Fatalf("score out of range: %d", score)
		}
		prev = score
	}
	if prev != 100 {
		t.Fatalf("expected saturated day to clamp at 100, got %d", prev)
	}
}

func TestNoBreakAgreesWithPlannerLunch(t *testing.T) {
	cases := []struct {
		name         string
		events       []model.CalendarEvent
		noBreak      bool
		plannerLunch bool
	}{
		{"seven meetings", sevenMeetings(), true, false},
		{"gap inside midday", []model.CalendarEvent{
			{Title: "Team sync", Start: at(11, 0), End: at(11, 45)},
			{Title: "Code review", Start: at(12, 45), End: at(13, 15)},
		}, false, false},
		{"morning only", []model.CalendarEvent{
			{Title: "Standup meeting", Start: at(9, 0), End: at(9, 30)},
			{Title: "Design review", Start: at(9, 30), End: at(10, 30)},
		}, false, true},
		{"spans midday", []model.CalendarEvent{
			{Title: "Workshop", Start: at(10, 0), End: at(14, 30)},
			{Title: "Retro", Start: at(15, 0), End: at(16, 0)},
		}, false, true},
		{"booked solid", []model.CalendarEvent{
			{Title: "Client call", Start: at(11, 0), End: at(12, 0)},
			{Title: "Partner call", Start: at(12, 0), End: at(13, 30)},
		}, true, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, noBreak := Detect(nil, tc.events, day).Has(FactorNoBreak)
			plannerLunch := false
			for _, p := range protect.SuggestFor(tc.events, day) {
				if p.Type == protect.TypeLunch {
					plannerLunch = true
				}
			}
			if noBreak != tc.noBreak || plannerLunch != tc.plannerLunch {
				t.Fatalf("no_break=%v planner lunch=%v, want %v and %v", noBreak, plannerLunch, tc.noBreak, tc.plannerLunch)
			}
			if noBreak && plannerLunch {
				t.Fatal("classifier and planner both proposed lunch for the same day")
			}
		})
	}
}
