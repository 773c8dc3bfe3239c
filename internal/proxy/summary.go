package proxy

import (
	"fmt"
	"time"

	"github.com/sandeepkv93/proxyd/internal/model"
	"github.com/sandeepkv93/proxyd/internal/weights"
)

// GenerateSummary derives the summary for date with the default constants.
func GenerateSummary(actions []model.ProxyAction, date time.Time) model.ProxySummary {
	return Summarize(actions, date, weights.Default().Summary)
}

// Summarize only counts actions created on the calendar day of date.
func Summarize(actions []model.ProxyAction, date time.Time, w weights.Summary) model.ProxySummary {
	out := model.ProxySummary{
		Date:       model.DateKey(date),
		Highlights: []string{},
		Actions:    []model.ProxyAction{},
	}
	protected := false
	for _, a := range actions {
		if !model.SameDay(date, a.CreatedAt) {
			continue
		}
		out.Actions = append(out.Actions, a)
		switch a.Status {
		case model.ActionStatusAccepted:
			out.AcceptedCount++
			out.TimeSavedMinutes += timeSaved(a.Type, w)
			if a.Type == model.ActionProtectTime {
				protected = true
			}
		case model.ActionStatusDismissed:
			out.DismissedCount++
		}
	}
	out.ActionsCount = len(out.Actions)

	if out.AcceptedCount > 0 {
		out.Highlights = append(out.Highlights, fmt.Sprintf("Accepted %d of %d suggestions", out.AcceptedCount, out.ActionsCount))
	}
	if out.TimeSavedMinutes > 0 {
		out.Highlights = append(out.Highlights, fmt.Sprintf("Saved about %d minutes", out.TimeSavedMinutes))
	}
	if protected {
		out.Highlights = append(out.Highlights, "Protected time for yourself")
	}
	return out
}

func timeSaved(t model.ActionType, w weights.Summary) int {
	if v, ok := w.TimeSaved[string(t)]; ok {
		return v
	}
	return w.DefaultTimeSaved
}

// GenerateMessage picks the most urgent pending action and renders one line
// for it. It reports false when nothing is pending.
func GenerateMessage(actions []model.ProxyAction) (string, bool) {
	pick, ok := pickForMessage(actions)
	if !ok {
		return "", false
	}
	switch pick.Type {
	case model.ActionOverloadWarn:
		return fmt.Sprintf("Heads up: %s (%s)", pick.Title, pick.Description), true
	case model.ActionProtectTime:
		if slot, ok := pick.Slot(); ok {
			return fmt.Sprintf("Want to keep %s-%s free? %s", slot.Start.Format("15:04"), slot.End.Format("15:04"), pick.Title), true
		}
		return pick.Title, true
	case model.ActionPrioritize:
		return fmt.Sprintf("Suggested focus: %s", pick.Title), true
	case model.ActionFocusSuggest:
		if slot, ok := pick.Slot(); ok {
			return fmt.Sprintf("You have %s-%s free for deep work", slot.Start.Format("15:04"), slot.End.Format("15:04")), true
		}
		return pick.Title, true
	default:
		return pick.Title, true
	}
}

func pickForMessage(actions []model.ProxyAction) (model.ProxyAction, bool) {
	var first, medium *model.ProxyAction
	for i := range actions {
		a := &actions[i]
		if a.Status != model.ActionStatusPending {
			continue
		}
		if a.Urgency == model.UrgencyHigh {
			return *a, true
		}
		if first == nil {
			first = a
		}
		if medium == nil && a.Urgency == model.UrgencyMedium {
			medium = a
		}
	}
	if medium != nil {
		return *medium, true
	}
	if first != nil {
		return *first, true
	}
	return model.ProxyAction{}, false
}
