package update

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/proxyd/internal/model"
	"github.com/sandeepkv93/proxyd/internal/scheduler"
	"github.com/sandeepkv93/proxyd/internal/views"
)

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.refreshSpin.Tick}
	if m.deps.Service != nil {
		cmds = append(cmds, m.refreshCmd())
	}
	if m.deps.Scheduler != nil {
		cmds = append(cmds, waitForTriggerCmd(m.deps.Scheduler.C()))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.KeyMsg:
		if m.Palette.Active {
			return m.handlePaletteKey(typed)
		}

		switch typed.String() {
		case "/", m.Keys.Palette:
			return m.openPalette(""), nil
		case m.Keys.Actions:
			return m.switchView(ViewActions), nil
		case m.Keys.History:
			return m.switchView(ViewHistory), nil
		case m.Keys.Summary:
			m.SummaryDay = time.Time{}
			return m.switchView(ViewSummary), nil
		case m.Keys.Help:
			m.HelpVisible = !m.HelpVisible
			return m, nil
		case m.Keys.Refresh:
			return m.startRefresh()
		case "ctrl+c", m.Keys.Quit:
			m.Quitting = true
			return m, tea.Quit
		}
		if m.CurrentView == ViewActions {
			return m.handleActionsKey(typed)
		}
		var cmd tea.Cmd
		m.pane, cmd = m.pane.Update(typed)
		return m, cmd
	case tea.WindowSizeMsg:
		height := typed.Height - 10
		if height < 5 {
			height = 5
		}
		m.actionTable.SetHeight(height)
		m.pane.Height = height
		return m, nil
	case spinner.TickMsg:
		if m.Refreshing {
			var cmd tea.Cmd
			m.refreshSpin, cmd = m.refreshSpin.Update(typed)
			return m, cmd
		}
		return m, nil
	case SnapshotMsg:
		m.Refreshing = false
		if typed.Err != nil {
			m.LastError = typed.Err
			m.Status = StatusBar{Text: "refresh failed: " + typed.Err.Error(), IsError: true}
			m.deps.Logger.Error("refresh failed", "err", typed.Err)
			return m, nil
		}
		m.Snapshot = typed.Snapshot
		if m.deps.Service != nil {
			m.History = m.deps.Service.History()
		}
		m.syncTable()
		m.refreshPane()
		m.Status = StatusBar{Text: fmt.Sprintf("%d pending suggestion(s)", m.pendingCount())}
		return m, nil
	case TriggerMsg:
		next, cmd := m.onTrigger(typed.Trigger)
		if m.deps.Scheduler != nil {
			return next, tea.Batch(cmd, waitForTriggerCmd(m.deps.Scheduler.C()))
		}
		return next, cmd
	case SwitchViewMsg:
		if isKnownView(typed.View) {
			return m.switchView(typed.View), nil
		}
		return m, nil
	case SetStatusMsg:
		m.Status = StatusBar{Text: typed.Text, IsError: typed.IsError}
		return m, nil
	case ClearStatusMsg:
		m.Status = StatusBar{}
		return m, nil
	case AppErrorMsg:
		m.LastError = typed.Err
		if typed.Err != nil {
			m.Status = StatusBar{Text: typed.Err.Error(), IsError: true}
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleActionsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case m.Keys.Accept:
		return m.respondSelected("accept"), nil
	case m.Keys.Dismiss:
		return m.respondSelected("dismiss"), nil
	case m.Keys.Edit:
		a, ok := m.selected()
		if !ok {
			m.Status = StatusBar{Text: "no action selected", IsError: true}
			return m, nil
		}
		return m.openPalette(fmt.Sprintf("modify %s ", a.ID)), nil
	}
	var cmd tea.Cmd
	m.actionTable, cmd = m.actionTable.Update(msg)
	return m, cmd
}

// respondSelected runs accept or dismiss through the palette path so both
// surfaces share one code path.
func (m Model) respondSelected(verb string) Model {
	a, ok := m.selected()
	if !ok {
		m.Status = StatusBar{Text: "no action selected", IsError: true}
		return m
	}
	next, _ := m.runCommand(fmt.Sprintf("%s %s", verb, a.ID))
	return next
}

func (m Model) openPalette(prefill string) Model {
	m.Palette.Active = true
	m.Palette.Input = prefill
	m.commandInput.SetValue(prefill)
	m.commandInput.CursorEnd()
	m.commandInput.Focus()
	m.Status = StatusBar{Text: "command palette active"}
	return m
}

func (m Model) switchView(v View) Model {
	m.CurrentView = v
	m.refreshPane()
	return m
}

func (m Model) startRefresh() (Model, tea.Cmd) {
	if m.Refreshing || m.deps.Service == nil {
		return m, nil
	}
	m.Refreshing = true
	m.Status = StatusBar{Text: "refreshing suggestions"}
	return m, tea.Batch(m.refreshSpin.Tick, m.refreshCmd())
}

func (m Model) onTrigger(t scheduler.Trigger) (Model, tea.Cmd) {
	m.deps.Logger.Debug("trigger fired", "id", t.ID, "kind", t.Kind)
	switch t.Kind {
	case scheduler.KindRefresh:
		return m.startRefresh()
	case scheduler.KindDigest:
		m.SummaryDay = time.Time{}
		m = m.switchView(ViewSummary)
		m.Status = StatusBar{Text: "daily digest ready"}
	}
	return m, nil
}

// refreshCmd loads today's events and runs a deduplicated refresh off the
// update loop.
func (m Model) refreshCmd() tea.Cmd {
	svc, events, ctx := m.deps.Service, m.deps.Events, m.deps.Context
	return func() tea.Msg {
		evs, err := events(ctx, svc.Now())
		if err != nil {
			return SnapshotMsg{Err: fmt.Errorf("load events: %w", err)}
		}
		snap, err := svc.Refresh(ctx, evs)
		return SnapshotMsg{Snapshot: snap, Err: err}
	}
}

func waitForTriggerCmd(ch <-chan scheduler.Trigger) tea.Cmd {
	return func() tea.Msg {
		t, ok := <-ch
		if !ok {
			return nil
		}
		return TriggerMsg{Trigger: t}
	}
}

// refreshPane renders markdown for the history and summary views once, so the
// viewport keeps its scroll offset between frames.
func (m *Model) refreshPane() {
	switch m.CurrentView {
	case ViewHistory:
		m.pane.SetContent(views.RenderMarkdown(views.HistoryMarkdown(m.History)))
	case ViewSummary:
		sum := m.Snapshot.Summary
		if m.deps.Service != nil {
			day := m.SummaryDay
			if day.IsZero() {
				day = m.now()
			}
			sum = m.deps.Service.Summary(day)
		}
		m.pane.SetContent(views.RenderMarkdown(views.SummaryMarkdown(sum)))
	}
}

func (m Model) View() string {
	if m.Quitting {
		return ""
	}
	header := fmt.Sprintf("proxyd | %s | %s", m.CurrentView, model.DateKey(m.now()))
	if m.Refreshing {
		header += " " + m.refreshSpin.View()
	}

	left, right := "", ""
	switch m.CurrentView {
	case ViewActions:
		refreshed := ""
		if !m.Snapshot.LastUpdated.IsZero() {
			refreshed = m.Snapshot.LastUpdated.In(m.now().Location()).Format("15:04")
		}
		left = views.RenderActionsPanel(views.ActionsPanelData{
			TableView: m.actionTable.View(),
			Pending:   m.pendingCount(),
			Total:     len(m.visible),
			Refreshed: refreshed,
		})
		if a, ok := m.selected(); ok {
			right = views.RenderMarkdown(views.ActionMarkdown(a))
		}
	default:
		left = m.pane.View()
	}

	footer := strings.TrimSpace(views.RenderCommandPalette(m.Palette.Active, m.commandInput.Value()) + "\n" + m.renderHelpIfVisible())
	return views.RenderApp(views.AppData{
		Header:     header,
		Message:    m.messageLine(),
		LeftPane:   left,
		RightPane:  right,
		StatusLine: m.Status.Text,
		IsError:    m.Status.IsError,
		Footer:     footer,
	})
}

func (m Model) messageLine() string {
	if !m.Snapshot.HasMessage {
		return ""
	}
	return m.Snapshot.Message
}

func isKnownView(v View) bool {
	switch v {
	case ViewActions, ViewHistory, ViewSummary:
		return true
	default:
		return false
	}
}
