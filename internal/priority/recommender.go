package priority

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sandeepkv93/proxyd/internal/model"
	"github.com/sandeepkv93/proxyd/internal/weights"
)

type Tag string

const (
	TagOverdue            Tag = "overdue"
	TagDueToday           Tag = "due_today"
	TagDueTomorrow        Tag = "due_tomorrow"
	TagDueSoon            Tag = "due_soon"
	TagDueThisWeek        Tag = "due_this_week"
	TagHighPriority       Tag = "high_priority"
	TagQuickWin           Tag = "quick_win"
	TagFitsSchedule       Tag = "fits_schedule"
	TagNeedsMoreTime      Tag = "needs_more_time"
	TagMorningDeepWork    Tag = "morning_deep_work"
	TagAfternoonQuickTask Tag = "afternoon_quick_task"
	TagInProgress         Tag = "in_progress"
)

// Preferences is optional; the zero value expresses no preference.
type Preferences struct {
	PreferMorningWork bool `json:"preferMorningWork"`
	PreferQuickWins   bool `json:"preferQuickWins"`
}

type Recommendation struct {
	TaskID     string  `json:"taskId"`
	Rank       int     `json:"rank"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
	Factors    []Tag   `json:"factors"`
	Score      int     `json:"score"`
}

type Recommender struct {
	w     weights.Priority
	newID func() string
}

func NewRecommender(w weights.Priority, newID func() string) *Recommender {
	if newID == nil {
		newID = uuid.NewString
	}
	return &Recommender{w: w, newID: newID}
}

func Recommend(tasks []model.Task, events []model.CalendarEvent, now time.Time, prefs Preferences) []Recommendation {
	return NewRecommender(weights.Default().Priority, nil).Recommend(tasks, events, now, prefs)
}

func CreateAction(recs []Recommendation, tasks []model.Task, now time.Time) (model.ProxyAction, bool) {
	return NewRecommender(weights.Default().Priority, nil).CreateAction(recs, tasks, now)
}

type scored struct {
	task  model.Task
	score int
	tags  []Tag
}

func (r *Recommender) Recommend(tasks []model.Task, events []model.CalendarEvent, now time.Time, prefs Preferences) []Recommendation {
	pending := model.PendingTasks(tasks)
	if len(pending) == 0 {
		return []Recommendation{}
	}
	available := r.AvailableMinutes(events, now)

	items := make([]scored, 0, len(pending))
	for _, t := range pending {
		score, tags := r.Score(t, available, now, prefs)
		items = append(items, scored{task: t, score: score, tags: tags})
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].score > items[j].score
	})
	if len(items) > r.w.TopN {
		items = items[:r.w.TopN]
	}

	out := make([]Recommendation, 0, len(items))
	for i, it := range items {
		rank := i + 1
		out = append(out, Recommendation{
			TaskID:     it.task.ID,
			Rank:       rank,
			Confidence: r.confidence(it.score),
			Reasoning:  r.reasoning(it, rank, now),
			Factors:    it.tags,
			Score:      it.score,
		})
	}
	return out
}

// AvailableMinutes is the time left until the end of the working day minus the
// events that still start before it.
func (r *Recommender) AvailableMinutes(events []model.CalendarEvent, now time.Time) int {
	dayEnd := model.At(now, r.w.DayEndHour, 0)
	if !now.Before(dayEnd) {
		return 0
	}
	free := dayEnd.Sub(now)
	for _, e := range events {
		if e.AllDay || e.Start.Before(now) || !e.Start.Before(dayEnd) {
			continue
		}
		free -= e.Duration()
	}
	if free < 0 {
		return 0
	}
	return int(free / time.Minute)
}

func (r *Recommender) Score(t model.Task, available int, now time.Time, prefs Preferences) (int, []Tag) {
	score := 0
	tags := make([]Tag, 0, 4)

	switch t.Priority {
	case model.PriorityHigh:
		score += r.w.High
		tags = append(tags, TagHighPriority)
	case model.PriorityMedium:
		score += r.w.Medium
	case model.PriorityLow:
		score += r.w.Low
	}

	if t.DueDate != nil {
		d := model.DaysBetween(now, *t.DueDate)
		switch {
		case d < 0:
			score += r.w.Overdue
			tags = append(tags, TagOverdue)
		case d == 0:
			score += r.w.DueToday
			tags = append(tags, TagDueToday)
		case d == 1:
			score += r.w.DueTomorrow
			tags = append(tags, TagDueTomorrow)
		case d <= r.w.DueSoonDays:
			score += r.w.DueSoon
			tags = append(tags, TagDueSoon)
		case d <= r.w.DueThisWeekDays:
			score += r.w.DueThisWeek
			tags = append(tags, TagDueThisWeek)
		}
	}

	if t.EstimatedMinutes != nil {
		est := *t.EstimatedMinutes
		switch {
		case est > available:
			tags = append(tags, TagNeedsMoreTime)
		case est <= r.w.QuickWinMinutes:
			score += r.w.QuickWin
			if prefs.PreferQuickWins {
				score += r.w.QuickWinPrefer
			}
			tags = append(tags, TagQuickWin)
		case est <= r.w.ShortMinutes:
			score += r.w.Short
			tags = append(tags, TagFitsSchedule)
		default:
			score += r.w.Long
			tags = append(tags, TagFitsSchedule)
		}

		hour := now.Hour()
		switch {
		case prefs.PreferMorningWork && hour < r.w.MorningBefore && est >= r.w.MorningMinutes:
			score += r.w.TimeOfDay
			tags = append(tags, TagMorningDeepWork)
		case hour >= r.w.AfternoonFrom && est <= r.w.AfternoonMinutes:
			score += r.w.TimeOfDay
			tags = append(tags, TagAfternoonQuickTask)
		}
	}

	if t.Status == model.TaskStatusInProgress {
		score += r.w.InProgress
		tags = append(tags, TagInProgress)
	}
	return score, tags
}

func (r *Recommender) confidence(score int) float64 {
	c := float64(score) / 100
	if c < 0 {
		return 0
	}
	if c > r.w.MaxConfidence {
		return r.w.MaxConfidence
	}
	return c
}

var reasoningOrder = []Tag{
	TagOverdue, TagDueToday, TagDueTomorrow, TagHighPriority, TagQuickWin, TagInProgress, TagMorningDeepWork,
}

func (r *Recommender) reasoning(it scored, rank int, now time.Time) string {
	for _, want := range reasoningOrder {
		if !hasTag(it.tags, want) {
			continue
		}
		switch want {
		case TagOverdue:
			days := -model.DaysBetween(now, *it.task.DueDate)
			return fmt.Sprintf("Overdue by %d %s; clear it before it slips further", days, plural(days, "day", "days"))
		case TagDueToday:
			return "Due today; finishing it keeps the deadline safe"
		case TagDueTomorrow:
			return "Due tomorrow; doing it today leaves slack"
		case TagHighPriority:
			return "Marked high priority"
		case TagQuickWin:
			return fmt.Sprintf("Quick win: about %d minutes and it fits before the day ends", *it.task.EstimatedMinutes)
		case TagInProgress:
			return "Already in progress; finish what you started"
		case TagMorningDeepWork:
			return "Morning focus suits this longer task"
		}
	}
	switch rank {
	case 1:
		return "Best next step for the time you have"
	case 2:
		return "Good follow-up once the first is done"
	default:
		return "Worth a slot later today"
	}
}

// CreateAction folds the ranked list into one prioritize action.
func (r *Recommender) CreateAction(recs []Recommendation, tasks []model.Task, now time.Time) (model.ProxyAction, bool) {
	if len(recs) == 0 {
		return model.ProxyAction{}, false
	}
	titles := make(map[string]string, len(tasks))
	for _, t := range tasks {
		titles[t.ID] = t.Title
	}

	names := make([]string, 0, len(recs))
	lines := make([]string, 0, len(recs))
	ids := make([]string, 0, len(recs))
	scores := make(map[string]float64, len(recs))
	for _, rec := range recs {
		name := titles[rec.TaskID]
		if name == "" {
			name = rec.TaskID
		}
		names = append(names, name)
		lines = append(lines, fmt.Sprintf("%d. %s: %s", rec.Rank, name, rec.Reasoning))
		ids = append(ids, rec.TaskID)
		scores[rec.TaskID] = rec.Confidence
	}

	return model.ProxyAction{
		ID:          r.newID(),
		Type:        model.ActionPrioritize,
		Title:       fmt.Sprintf("Top %d today: %s", len(recs), strings.Join(names, ", ")),
		Description: strings.Join(lines, "\n"),
		Reasoning:   "Ranked by deadline, priority and the free time left today",
		Urgency:     model.UrgencyMedium,
		NotifyStyle: model.NotifyGentle,
		Controls:    model.UserControls{CanUndo: false, CanModify: true, CanDismiss: true},
		Related:     &model.RelatedData{TaskIDs: ids, Scores: scores},
		Status:      model.ActionStatusPending,
		CreatedAt:   now,
	}, true
}

func hasTag(tags []Tag, want Tag) bool {
	for _, t := range tags {
		if t == want {
			return true
		}
	}
	return false
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
