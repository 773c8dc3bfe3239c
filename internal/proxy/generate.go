package proxy

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sandeepkv93/proxyd/internal/model"
	"github.com/sandeepkv93/proxyd/internal/overload"
	"github.com/sandeepkv93/proxyd/internal/priority"
	"github.com/sandeepkv93/proxyd/internal/protect"
	"github.com/sandeepkv93/proxyd/internal/weights"
)

// Generator runs the classifier, planner and recommender for one instant and
// merges their proposals into a batch of pending actions.
type Generator struct {
	table       weights.Table
	prefs       priority.Preferences
	classifier  *overload.Classifier
	planner     *protect.Planner
	recommender *priority.Recommender
	newID       func() string
}

func NewGenerator(table weights.Table, prefs priority.Preferences, newID func() string) *Generator {
	if newID == nil {
		newID = uuid.NewString
	}
	return &Generator{
		table:       table,
		prefs:       prefs,
		classifier:  overload.NewClassifier(table.Overload, newID),
		planner:     protect.NewPlanner(table.Planner),
		recommender: priority.NewRecommender(table.Priority, newID),
		newID:       newID,
	}
}

// GenerateDailyActions builds a fresh batch with the default weight table.
func GenerateDailyActions(tasks []model.Task, events []model.CalendarEvent, now time.Time) []model.ProxyAction {
	return NewGenerator(weights.Default(), priority.Preferences{}, nil).Daily(tasks, events, now)
}

func (g *Generator) Detect(tasks []model.Task, events []model.CalendarEvent, now time.Time) overload.Detection {
	return g.classifier.Detect(tasks, events, now)
}

func (g *Generator) Protections(events []model.CalendarEvent, now time.Time) []protect.Protection {
	return g.planner.Suggest(model.EventsOn(events, now), now)
}

func (g *Generator) Daily(tasks []model.Task, events []model.CalendarEvent, now time.Time) []model.ProxyAction {
	det := g.classifier.Detect(tasks, events, now)
	out := make([]model.ProxyAction, 0, len(det.Suggestions)+4)
	out = append(out, det.Suggestions...)

	focus := 0
	for _, p := range g.Protections(events, now) {
		if p.Type == protect.TypeFocus {
			if focus >= g.table.Planner.MaxFocusActions {
				continue
			}
			focus++
		}
		action := g.protectionAction(p, now)
		if containsSlot(out, action) {
			continue
		}
		out = append(out, action)
	}

	pending := model.PendingTasks(tasks)
	if len(pending) >= g.table.Priority.MinPendingTasks && det.Level != overload.LevelCritical {
		recs := g.recommender.Recommend(pending, events, now, g.prefs)
		if action, ok := g.recommender.CreateAction(recs, pending, now); ok {
			out = append(out, action)
		}
	}
	return out
}

func (g *Generator) protectionAction(p protect.Protection, now time.Time) model.ProxyAction {
	slot := p.Slot
	span := fmt.Sprintf("%s-%s", slot.Start.Format("15:04"), slot.End.Format("15:04"))
	action := model.ProxyAction{
		ID:          g.newID(),
		Type:        model.ActionProtectTime,
		Reasoning:   p.Reason,
		Urgency:     model.UrgencyLow,
		NotifyStyle: model.NotifySubtle,
		Controls:    model.UserControls{CanUndo: true, CanModify: true, CanDismiss: true},
		Related:     &model.RelatedData{Slot: &slot},
		Status:      model.ActionStatusPending,
		CreatedAt:   now,
	}
	switch p.Type {
	case protect.TypeLunch:
		action.Title = "Keep lunch free"
		action.Description = fmt.Sprintf("Hold %s for lunch", span)
		action.Urgency = model.UrgencyMedium
	case protect.TypeBuffer:
		action.Title = "Keep a buffer between meetings"
		action.Description = fmt.Sprintf("Leave %s open to reset between meetings", span)
		action.NotifyStyle = model.NotifySilent
	case protect.TypeFocus:
		action.Type = model.ActionFocusSuggest
		action.Title = "Block time for deep work"
		action.Description = fmt.Sprintf("Reserve %s for focused work", span)
	default:
		action.Title = "Take a short break"
		action.Description = fmt.Sprintf("Step away during %s", span)
	}
	return action
}

func containsSlot(actions []model.ProxyAction, candidate model.ProxyAction) bool {
	slot, ok := candidate.Slot()
	if !ok {
		return false
	}
	for _, a := range actions {
		if a.Type != candidate.Type {
			continue
		}
		if other, ok := a.Slot(); ok && other.Equal(slot) {
			return true
		}
	}
	return false
}
