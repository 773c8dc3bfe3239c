package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidActionType   = errors.New("model: invalid action type")
	ErrInvalidActionStatus = errors.New("model: invalid action status")
	ErrInvalidUrgency      = errors.New("model: invalid urgency")
	ErrInvalidNotifyStyle  = errors.New("model: invalid notify style")
)

type ActionType string

const (
	ActionPrioritize      ActionType = "prioritize"
	ActionProtectTime     ActionType = "protect_time"
	ActionSuggestDecline  ActionType = "suggest_decline"
	ActionSuggestPostpone ActionType = "suggest_postpone"
	ActionSummarize       ActionType = "summarize"
	ActionPatternDetect   ActionType = "pattern_detect"
	ActionOverloadWarn    ActionType = "overload_warn"
	ActionFocusSuggest    ActionType = "focus_suggest"
)

func (t ActionType) IsValid() bool {
	switch t {
	case ActionPrioritize, ActionProtectTime, ActionSuggestDecline, ActionSuggestPostpone,
		ActionSummarize, ActionPatternDetect, ActionOverloadWarn, ActionFocusSuggest:
		return true
	default:
		return false
	}
}

type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

func (u Urgency) IsValid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh:
		return true
	default:
		return false
	}
}

type NotifyStyle string

const (
	NotifySilent    NotifyStyle = "silent"
	NotifySubtle    NotifyStyle = "subtle"
	NotifyGentle    NotifyStyle = "gentle"
	NotifyProminent NotifyStyle = "prominent"
)

func (n NotifyStyle) IsValid() bool {
	switch n {
	case NotifySilent, NotifySubtle, NotifyGentle, NotifyProminent:
		return true
	default:
		return false
	}
}

type ActionStatus string

const (
	ActionStatusPending   ActionStatus = "pending"
	ActionStatusAccepted  ActionStatus = "accepted"
	ActionStatusDismissed ActionStatus = "dismissed"
	ActionStatusModified  ActionStatus = "modified"
)

func (s ActionStatus) IsValid() bool {
	switch s {
	case ActionStatusPending, ActionStatusAccepted, ActionStatusDismissed, ActionStatusModified:
		return true
	default:
		return false
	}
}

// Responded reports whether the user has acted on the action.
func (s ActionStatus) Responded() bool {
	return s != ActionStatusPending
}

// actionTransitions lists every allowed status change. Anything absent is
// rejected; accepted and dismissed are terminal.
var actionTransitions = map[ActionStatus][]ActionStatus{
	ActionStatusPending:  {ActionStatusAccepted, ActionStatusDismissed, ActionStatusModified},
	ActionStatusModified: {ActionStatusAccepted, ActionStatusDismissed, ActionStatusModified},
}

func CanTransition(from, to ActionStatus) bool {
	for _, next := range actionTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type UserControls struct {
	CanUndo    bool `json:"canUndo"`
	CanModify  bool `json:"canModify"`
	CanDismiss bool `json:"canDismiss"`
}

type RelatedData struct {
	TaskIDs  []string           `json:"taskIds,omitempty"`
	EventIDs []string           `json:"eventIds,omitempty"`
	Slot     *TimeSlot          `json:"slot,omitempty"`
	Scores   map[string]float64 `json:"scores,omitempty"`
}

type ProxyAction struct {
	ID          string       `json:"id"`
	Type        ActionType   `json:"type"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Reasoning   string       `json:"reasoning"`
	Urgency     Urgency      `json:"urgency"`
	NotifyStyle NotifyStyle  `json:"notifyStyle"`
	Controls    UserControls `json:"userControls"`
	Related     *RelatedData `json:"relatedData,omitempty"`
	Status      ActionStatus `json:"status"`
	CreatedAt   time.Time    `json:"createdAt"`
	RespondedAt *time.Time   `json:"respondedAt,omitempty"`
}

func (a ProxyAction) Validate() error {
	if a.ID == "" {
		return errors.New("model: action id is required")
	}
	if !a.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidActionType, a.Type)
	}
	if !a.Urgency.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidUrgency, a.Urgency)
	}
	if !a.NotifyStyle.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidNotifyStyle, a.NotifyStyle)
	}
	if !a.Status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidActionStatus, a.Status)
	}
	if a.CreatedAt.IsZero() {
		return errors.New("model: action created_at is required")
	}
	if a.Status.Responded() && a.RespondedAt == nil {
		return errors.New("model: responded_at is required once an action is answered")
	}
	return nil
}

// Slot returns the related time slot, if any.
func (a ProxyAction) Slot() (TimeSlot, bool) {
	if a.Related == nil || a.Related.Slot == nil {
		return TimeSlot{}, false
	}
	return *a.Related.Slot, true
}

type ProxySummary struct {
	Date             string        `json:"date"`
	ActionsCount     int           `json:"actionsCount"`
	AcceptedCount    int           `json:"acceptedCount"`
	DismissedCount   int           `json:"dismissedCount"`
	TimeSavedMinutes int           `json:"timeSavedMinutes"`
	Highlights       []string      `json:"highlights"`
	Actions          []ProxyAction `json:"actions"`
}
