package update

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/proxyd/internal/commands"
	"github.com/sandeepkv93/proxyd/internal/model"
	"github.com/sandeepkv93/proxyd/internal/proxy"
)

var errNoService = errors.New("update: no proxy service configured")

func (m Model) handlePaletteKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m = m.closePalette()
		m.Status = StatusBar{Text: "command palette closed"}
		return m, nil
	case "enter":
		raw := m.commandInput.Value()
		m = m.closePalette()
		return m.runCommand(raw)
	}
	if msg.Type == tea.KeyRunes {
		m.commandInput.SetValue(m.commandInput.Value() + string(msg.Runes))
		m.Palette.Input = m.commandInput.Value()
		return m, nil
	}
	var cmd tea.Cmd
	m.commandInput, cmd = m.commandInput.Update(msg)
	m.Palette.Input = m.commandInput.Value()
	return m, cmd
}

func (m Model) closePalette() Model {
	m.Palette.Active = false
	m.Palette.Input = ""
	m.commandInput.SetValue("")
	m.commandInput.Blur()
	return m
}

// runCommand parses and executes one palette line against the service.
func (m Model) runCommand(raw string) (Model, tea.Cmd) {
	cmd, err := commands.Parse(strings.TrimSpace(raw))
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return m, nil
	}
	svc := m.deps.Service
	if svc == nil {
		m.Status = StatusBar{Text: errNoService.Error(), IsError: true}
		return m, nil
	}
	ctx := m.deps.Context

	var follow tea.Cmd
	res, err := commands.Execute(cmd, commands.Handlers{
		Add: func(a commands.AddArgs) (commands.Result, error) {
			if m.deps.AddTask == nil || m.deps.NewID == nil {
				return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeHandlerMissing, Message: "task store is read-only here"}
			}
			task, err := a.Task(m.deps.NewID(), svc.Now())
			if err != nil {
				return commands.Result{}, err
			}
			if err := m.deps.AddTask(ctx, task); err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("added task: %s", task.Title)}, nil
		},
		Accept: func(t commands.TargetArgs) (commands.Result, error) {
			a, err := m.resolve(t.Target)
			if err != nil {
				return commands.Result{}, err
			}
			if _, err := svc.Accept(ctx, a.ID); err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("accepted: %s", a.Title)}, nil
		},
		Dismiss: func(t commands.TargetArgs) (commands.Result, error) {
			a, err := m.resolve(t.Target)
			if err != nil {
				return commands.Result{}, err
			}
			if _, err := svc.Dismiss(ctx, a.ID); err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("dismissed: %s", a.Title)}, nil
		},
		Modify: func(args commands.ModifyArgs) (commands.Result, error) {
			a, err := m.resolve(args.Target)
			if err != nil {
				return commands.Result{}, err
			}
			patch, err := args.Patch(svc.Now())
			if err != nil {
				return commands.Result{}, err
			}
			updated, err := svc.Modify(ctx, a.ID, patch)
			if err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("modified: %s", updated.Title)}, nil
		},
		Refresh: func() (commands.Result, error) {
			m, follow = m.startRefresh()
			return commands.Result{Message: "refreshing suggestions"}, nil
		},
		Clear: func() (commands.Result, error) {
			if err := svc.Clear(ctx); err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: "cleared all suggestions"}, nil
		},
		History: func() (commands.Result, error) {
			m.CurrentView = ViewHistory
			return commands.Result{Message: fmt.Sprintf("%d answered suggestion(s)", len(svc.History()))}, nil
		},
		Summary: func(s commands.SummaryArgs) (commands.Result, error) {
			day, err := commands.ParseDay(s.Date, svc.Now())
			if err != nil {
				return commands.Result{}, err
			}
			sum := svc.Summary(day)
			m.SummaryDay = day
			m.CurrentView = ViewSummary
			return commands.Result{Message: fmt.Sprintf("%s: %d accepted, %d dismissed", sum.Date, sum.AcceptedCount, sum.DismissedCount)}, nil
		},
	})
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		m.deps.Logger.Warn("command failed", "command", cmd.Type, "err", err)
		return m, nil
	}

	m.reload()
	m.refreshPane()
	m.Status = StatusBar{Text: res.Message}
	return m, follow
}

// resolve accepts "." for the highlighted row, otherwise a full id or prefix.
func (m Model) resolve(ref string) (model.ProxyAction, error) {
	if ref == "." {
		if a, ok := m.selected(); ok {
			return a, nil
		}
		return model.ProxyAction{}, fmt.Errorf("%w: nothing selected", proxy.ErrActionNotFound)
	}
	return m.deps.Service.Find(ref)
}
