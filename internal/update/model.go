package update

import (
	"context"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/sandeepkv93/proxyd/internal/model"
	"github.com/sandeepkv93/proxyd/internal/proxy"
	"github.com/sandeepkv93/proxyd/internal/scheduler"
	"github.com/sandeepkv93/proxyd/internal/views"
)

type View string

const (
	ViewActions View = "Actions"
	ViewHistory View = "History"
	ViewSummary View = "Summary"
)

type StatusBar struct {
	Text    string
	IsError bool
}

type GlobalKeyMap struct {
	Actions string
	History string
	Summary string
	Accept  string
	Dismiss string
	Edit    string
	Refresh string
	Palette string
	Help    string
	Quit    string
}

type CommandPaletteState struct {
	Active bool
	Input  string
}

// EventSource returns the calendar events for the day of the given time.
type EventSource func(ctx context.Context, day time.Time) ([]model.CalendarEvent, error)

// TaskAdder persists a new task.
type TaskAdder func(ctx context.Context, t model.Task) error

type Deps struct {
	Context   context.Context
	Service   *proxy.Service
	Events    EventSource
	AddTask   TaskAdder
	Scheduler *scheduler.Engine
	Logger    *slog.Logger
	NewID     func() string
}

type Model struct {
	CurrentView View
	Snapshot    proxy.Snapshot
	History     []model.ProxyAction
	Palette     CommandPaletteState
	HelpVisible bool
	Refreshing  bool
	Status      StatusBar
	Keys        GlobalKeyMap
	Quitting    bool
	LastError   error
	SummaryDay  time.Time

	deps         Deps
	actionTable  table.Model
	visible      []model.ProxyAction
	commandInput textinput.Model
	refreshSpin  spinner.Model
	helpModel    help.Model
	pane         viewport.Model
}

type SwitchViewMsg struct {
	View View
}

type SetStatusMsg struct {
	Text    string
	IsError bool
}

type ClearStatusMsg struct{}

type AppErrorMsg struct {
	Err error
}

// SnapshotMsg carries the result of an asynchronous refresh.
type SnapshotMsg struct {
	Snapshot proxy.Snapshot
	Err      error
}

type TriggerMsg struct {
	Trigger scheduler.Trigger
}

func DefaultKeyMap() GlobalKeyMap {
	return GlobalKeyMap{
		Actions: "1",
		History: "2",
		Summary: "3",
		Accept:  "a",
		Dismiss: "d",
		Edit:    "e",
		Refresh: "r",
		Palette: ":",
		Help:    "?",
		Quit:    "q",
	}
}

func NewModel(deps Deps) Model {
	if deps.Context == nil {
		deps.Context = context.Background()
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if deps.Events == nil {
		deps.Events = func(context.Context, time.Time) ([]model.CalendarEvent, error) { return nil, nil }
	}

	columns := []table.Column{
		{Title: "id", Width: 8},
		{Title: "type", Width: 14},
		{Title: "urgency", Width: 7},
		{Title: "status", Width: 9},
		{Title: "title", Width: 28},
	}
	tbl := table.New(table.WithColumns(columns), table.WithFocused(true), table.WithHeight(10))

	input := textinput.New()
	input.Prompt = "/"
	input.Placeholder = "accept <id> | dismiss <id> | modify <id> ... | add <task>"
	input.CharLimit = 200

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	m := Model{
		CurrentView:  ViewActions,
		Keys:         DefaultKeyMap(),
		deps:         deps,
		actionTable:  tbl,
		commandInput: input,
		refreshSpin:  spin,
		helpModel:    help.New(),
		pane:         viewport.New(64, 16),
	}
	if deps.Service != nil {
		m.Snapshot = deps.Service.Snapshot()
		m.History = deps.Service.History()
	}
	m.syncTable()
	return m
}

func (m Model) now() time.Time {
	if m.deps.Service != nil {
		return m.deps.Service.Now()
	}
	return time.Now()
}

// syncTable shows pending actions plus everything created today.
func (m *Model) syncTable() {
	now := m.now()
	m.visible = make([]model.ProxyAction, 0, len(m.Snapshot.Actions))
	rows := make([]table.Row, 0, len(m.Snapshot.Actions))
	for _, a := range m.Snapshot.Actions {
		if a.Status != model.ActionStatusPending && !model.SameDay(now, a.CreatedAt) {
			continue
		}
		m.visible = append(m.visible, a)
		rows = append(rows, table.Row{views.ShortID(a.ID), string(a.Type), string(a.Urgency), string(a.Status), a.Title})
	}
	m.actionTable.SetRows(rows)
	if m.actionTable.Cursor() >= len(rows) && len(rows) > 0 {
		m.actionTable.SetCursor(len(rows) - 1)
	}
}

func (m Model) selected() (model.ProxyAction, bool) {
	idx := m.actionTable.Cursor()
	if idx < 0 || idx >= len(m.visible) {
		return model.ProxyAction{}, false
	}
	return m.visible[idx], true
}

func (m Model) pendingCount() int {
	n := 0
	for _, a := range m.Snapshot.Actions {
		if a.Status == model.ActionStatusPending {
			n++
		}
	}
	return n
}

// reload pulls the current state after a synchronous service call.
func (m *Model) reload() {
	if m.deps.Service == nil {
		return
	}
	m.Snapshot = m.deps.Service.Snapshot()
	m.History = m.deps.Service.History()
	m.syncTable()
}
