package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/sandeepkv93/proxyd/internal/model"
	"github.com/sandeepkv93/proxyd/internal/proxy"
)

// Task builds a todo task from add arguments. Priority defaults to medium.
func (a AddArgs) Task(id string, now time.Time) (model.Task, error) {
	out := model.Task{
		ID:               id,
		Title:            a.Title,
		Status:           model.TaskStatusTodo,
		Priority:         model.PriorityMedium,
		EstimatedMinutes: a.Estimate,
	}
	if a.Priority != "" {
		out.Priority = model.Priority(a.Priority)
	}
	if a.Due != "" {
		due, err := ParseDay(a.Due, now)
		if err != nil {
			return model.Task{}, err
		}
		out.DueDate = &due
	}
	if err := out.Validate(); err != nil {
		return model.Task{}, &CommandError{Code: ErrCodeInvalidArgument, Message: err.Error()}
	}
	return out, nil
}

// Patch converts modify arguments. Slots are read on the calendar day of now.
func (m ModifyArgs) Patch(now time.Time) (proxy.ActionPatch, error) {
	var out proxy.ActionPatch
	if title := strings.TrimSpace(m.Title); title != "" {
		out.Title = &title
	}
	if m.Urgency != "" {
		u := model.Urgency(m.Urgency)
		if !u.IsValid() {
			return proxy.ActionPatch{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("invalid urgency: %s", m.Urgency)}
		}
		out.Urgency = &u
	}
	if m.Slot != "" {
		start, end, err := ParseSlot(m.Slot, now)
		if err != nil {
			return proxy.ActionPatch{}, err
		}
		out.Slot = &model.TimeSlot{Start: start, End: end}
	}
	return out, nil
}
