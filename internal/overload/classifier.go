package overload

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sandeepkv93/proxyd/internal/model"
	"github.com/sandeepkv93/proxyd/internal/weights"
)

var tierSeverity = []Severity{SeverityHigh, SeverityMedium, SeverityLow}

type Classifier struct {
	w     weights.Overload
	newID func() string
}

// NewClassifier builds a classifier; a nil newID falls back to random UUIDs.
func NewClassifier(w weights.Overload, newID func() string) *Classifier {
	if newID == nil {
		newID = uuid.NewString
	}
	return &Classifier{w: w, newID: newID}
}

// Detect classifies the day of now with the default weight table.
func Detect(tasks []model.Task, events []model.CalendarEvent, now time.Time) Detection {
	return NewClassifier(weights.Default().Overload, nil).Detect(tasks, events, now)
}

// LevelFor maps a score to a level with the default thresholds.
func LevelFor(score int) Level {
	return NewClassifier(weights.Default().Overload, nil).Level(score)
}

func (c *Classifier) Level(score int) Level {
	switch {
	case score >= c.w.CriticalAt:
		return LevelCritical
	case score >= c.w.WarningAt:
		return LevelWarning
	case score >= c.w.WatchAt:
		return LevelWatch
	default:
		return LevelNone
	}
}

func (c *Classifier) Detect(tasks []model.Task, events []model.CalendarEvent, now time.Time) Detection {
	timed := model.TimedSorted(model.EventsOn(events, now))
	pending := model.PendingTasks(tasks)

	factors := make([]Factor, 0, 6)
	meetings := c.countMeetings(timed)
	if tier, idx, ok := weights.MatchTier(c.w.MeetingTiers, meetings); ok {
		factors = append(factors, newFactor(FactorMeetingCount, tierSeverity[idx], tier.Points,
			fmt.Sprintf("%d meetings scheduled today", meetings), meetings))
	}

	if run := c.maxConsecutive(timed); run >= c.w.ConsecutiveMin {
		sev := SeverityMedium
		if run >= c.w.ConsecutiveHighMin {
			sev = SeverityHigh
		}
		factors = append(factors, newFactor(FactorConsecutiveMeetings, sev, c.w.ConsecutivePoints,
			fmt.Sprintf("%d meetings back to back", run), run))
	}

	if meetings >= c.w.NoBreakMinMeetings && !c.hasLunchBreak(timed, now) {
		factors = append(factors, newFactor(FactorNoBreak, SeverityMedium, c.w.NoBreakPoints,
			"No lunch break between meetings", 0))
	}

	urgent := urgentTasks(pending, now)
	if tier, idx, ok := weights.MatchTier(c.w.UrgentTaskTiers, len(urgent)); ok {
		factors = append(factors, newFactor(FactorUrgentTasks, tierSeverity[idx], tier.Points,
			fmt.Sprintf("%d urgent tasks pending", len(urgent)), len(urgent)))
	}

	dueToday := 0
	for _, t := range pending {
		if t.DueOn(now) {
			dueToday++
		}
	}
	if tier, idx, ok := weights.MatchTier(c.w.DueTodayTiers, dueToday); ok {
		factors = append(factors, newFactor(FactorDueToday, tierSeverity[idx], tier.Points,
			fmt.Sprintf("%d tasks due today", dueToday), dueToday))
	}

	if end, ok := lastEnd(timed); ok && !end.Before(model.At(now, c.w.LateEndHour, 0)) {
		factors = append(factors, newFactor(FactorLateSchedule, SeverityMedium, c.w.LatePoints,
			fmt.Sprintf("Schedule runs until %s", end.In(now.Location()).Format("15:04")), end.Hour()))
	}

	score := 0
	for _, f := range factors {
		score += f.Points
	}
	score = clampScore(score, c.w.MaxScore)
	level := c.Level(score)

	det := Detection{
		IsOverloaded: level != LevelNone,
		Level:        level,
		Score:        score,
		Factors:      factors,
	}
	det.Suggestions = c.suggest(det, urgent, now)
	return det
}

func (c *Classifier) suggest(det Detection, urgent []model.Task, now time.Time) []model.ProxyAction {
	out := make([]model.ProxyAction, 0, 3)

	high := make([]string, 0, len(det.Factors))
	for _, f := range det.Factors {
		if f.Severity == SeverityHigh {
			high = append(high, f.Description)
		}
	}
	if len(high) > 0 {
		out = append(out, model.ProxyAction{
			ID:          c.newID(),
			Type:        model.ActionOverloadWarn,
			Title:       fmt.Sprintf("Your day looks %s", levelAdjective(det.Level)),
			Description: strings.Join(high, ", "),
			Reasoning:   fmt.Sprintf("Load score %d/100 from %d contributing factors", det.Score, len(det.Factors)),
			Urgency:     model.UrgencyHigh,
			NotifyStyle: model.NotifyGentle,
			Controls:    model.UserControls{CanUndo: false, CanModify: false, CanDismiss: true},
			Related:     &model.RelatedData{Scores: scoreBreakdown(det)},
			Status:      model.ActionStatusPending,
			CreatedAt:   now,
		})
	}

	if _, ok := det.Has(FactorNoBreak); ok {
		slot := model.TimeSlot{
			Start: model.At(now, c.w.SuggestedLunchStart[0], c.w.SuggestedLunchStart[1]),
			End:   model.At(now, c.w.SuggestedLunchEnd[0], c.w.SuggestedLunchEnd[1]),
		}
		out = append(out, model.ProxyAction{
			ID:          c.newID(),
			Type:        model.ActionProtectTime,
			Title:       "Protect a lunch break",
			Description: fmt.Sprintf("Keep %s-%s free to eat and reset", slot.Start.Format("15:04"), slot.End.Format("15:04")),
			Reasoning:   "Meetings leave no break around midday",
			Urgency:     model.UrgencyMedium,
			NotifyStyle: model.NotifySubtle,
			Controls:    model.UserControls{CanUndo: true, CanModify: true, CanDismiss: true},
			Related:     &model.RelatedData{Slot: &slot},
			Status:      model.ActionStatusPending,
			CreatedAt:   now,
		})
	}

	if taskFactorHigh(det) {
		ids := make([]string, 0, len(urgent))
		for _, t := range urgent {
			ids = append(ids, t.ID)
		}
		out = append(out, model.ProxyAction{
			ID:          c.newID(),
			Type:        model.ActionPrioritize,
			Title:       "Pick what truly matters today",
			Description: fmt.Sprintf("%d urgent tasks compete for your time; choose the few that must ship today", len(urgent)),
			Reasoning:   "Task load is high",
			Urgency:     model.UrgencyHigh,
			NotifyStyle: model.NotifyProminent,
			Controls:    model.UserControls{CanUndo: false, CanModify: true, CanDismiss: true},
			Related:     &model.RelatedData{TaskIDs: ids},
			Status:      model.ActionStatusPending,
			CreatedAt:   now,
		})
	}
	return out
}

func (c *Classifier) countMeetings(events []model.CalendarEvent) int {
	n := 0
	for _, e := range events {
		if matchesAny(e.Title, c.w.MeetingKeywords) || matchesAny(e.Location, c.w.MeetingKeywords) {
			n++
		}
	}
	return n
}

// maxConsecutive expects events sorted by start. Overlapping events extend the run.
func (c *Classifier) maxConsecutive(events []model.CalendarEvent) int {
	if len(events) == 0 {
		return 0
	}
	best, run := 1, 1
	for i := 1; i < len(events); i++ {
		if events[i].Start.Sub(events[i-1].End) <= c.w.ConsecutiveGap {
			run++
		} else {
			run = 1
		}
		if run > best {
			best = run
		}
	}
	return best
}

// hasLunchBreak is true when midday is untouched, which is also when the
// planner proposes its own lunch slot. Otherwise the busy window still counts
// as a break if it holds a lunch-titled event or a long enough gap.
func (c *Classifier) hasLunchBreak(events []model.CalendarEvent, now time.Time) bool {
	if !model.TouchesHours(events, c.w.Midday.HourFrom, c.w.Midday.HourTo) {
		return true
	}
	window := model.TimeSlot{
		Start: model.At(now, c.w.LunchWindowStart[0], c.w.LunchWindowStart[1]),
		End:   model.At(now, c.w.LunchWindowEnd[0], c.w.LunchWindowEnd[1]),
	}
	cursor := window.Start
	for _, e := range events {
		if !window.Overlaps(e.Start, e.End) {
			continue
		}
		if matchesAny(e.Title, c.w.LunchKeywords) {
			return true
		}
		if e.Start.Sub(cursor) >= c.w.LunchMinGap {
			return true
		}
		if e.End.After(cursor) {
			cursor = e.End
		}
	}
	return window.End.Sub(cursor) >= c.w.LunchMinGap
}

func urgentTasks(pending []model.Task, now time.Time) []model.Task {
	out := make([]model.Task, 0, len(pending))
	for _, t := range pending {
		if t.Priority == model.PriorityHigh || t.DueOn(now) {
			out = append(out, t)
		}
	}
	return out
}

func taskFactorHigh(det Detection) bool {
	for _, f := range det.Factors {
		if (f.Kind == FactorUrgentTasks || f.Kind == FactorDueToday) && f.Severity == SeverityHigh {
			return true
		}
	}
	return false
}

func lastEnd(events []model.CalendarEvent) (time.Time, bool) {
	var end time.Time
	for _, e := range events {
		if e.End.After(end) {
			end = e.End
		}
	}
	return end, !end.IsZero()
}

func matchesAny(s string, keywords []string) bool {
	s = strings.ToLower(s)
	if s == "" {
		return false
	}
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func newFactor(kind FactorKind, sev Severity, points int, desc string, value int) Factor {
	v := float64(value)
	return Factor{Kind: kind, Severity: sev, Description: desc, Value: &v, Points: points}
}

func scoreBreakdown(det Detection) map[string]float64 {
	out := make(map[string]float64, len(det.Factors)+1)
	out["score"] = float64(det.Score)
	for _, f := range det.Factors {
		out[string(f.Kind)] = float64(f.Points)
	}
	return out
}

func clampScore(score, max int) int {
	if score < 0 {
		return 0
	}
	if score > max {
		return max
	}
	return score
}

func levelAdjective(l Level) string {
	switch l {
	case LevelCritical:
		return "overloaded"
	case LevelWarning:
		return "heavy"
	case LevelWatch:
		return "busy"
	default:
		return "demanding"
	}
}
