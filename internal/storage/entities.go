package storage

import (
	"time"

	"github.com/sandeepkv93/proxyd/internal/model"
)

type Task struct {
	ID               string
	Title            string
	Status           string
	Priority         string
	DueAt            *time.Time
	EstimatedMinutes *int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Event struct {
	ID        string
	Title     string
	Location  string
	StartAt   time.Time
	EndAt     time.Time
	AllDay    bool
	CreatedAt time.Time
}

type TaskListFilter struct {
	Status string
	// Open hides done tasks.
	Open   bool
	Limit  int
	Offset int
}

// EventListFilter selects events starting in [From, To). Zero bounds are open.
type EventListFilter struct {
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

func (t Task) Model() model.Task {
	return model.Task{
		ID:               t.ID,
		Title:            t.Title,
		Status:           model.TaskStatus(t.Status),
		Priority:         model.Priority(t.Priority),
		DueDate:          t.DueAt,
		EstimatedMinutes: t.EstimatedMinutes,
	}
}

func TaskFromModel(in model.Task, now time.Time) Task {
	return Task{
		ID:               in.ID,
		Title:            in.Title,
		Status:           string(in.Status),
		Priority:         string(in.Priority),
		DueAt:            in.DueDate,
		EstimatedMinutes: in.EstimatedMinutes,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func (e Event) Model() model.CalendarEvent {
	return model.CalendarEvent{
		ID:       e.ID,
		Title:    e.Title,
		Start:    e.StartAt,
		End:      e.EndAt,
		Location: e.Location,
		AllDay:   e.AllDay,
	}
}

func EventFromModel(in model.CalendarEvent, now time.Time) Event {
	return Event{
		ID:        in.ID,
		Title:     in.Title,
		Location:  in.Location,
		StartAt:   in.Start,
		EndAt:     in.End,
		AllDay:    in.AllDay,
		CreatedAt: now,
	}
}
