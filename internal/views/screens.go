package views

import (
	"fmt"
	"strings"

	"github.com/sandeepkv93/proxyd/internal/model"
)

type ActionsPanelData struct {
	TableView string
	Pending   int
	Total     int
	Refreshed string
}

type HelpPanelData struct {
	CurrentView string
	Bindings    []string
	HelpView    string
}

func RenderActionsPanel(data ActionsPanelData) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("actions: %d pending of %d", data.Pending, data.Total))
	if data.Refreshed != "" {
		b.WriteString(" | refreshed " + data.Refreshed)
	}
	b.WriteString("\nkeys: [a]accept [d]dismiss [e]edit [r]refresh\n")
	if data.Total == 0 {
		b.WriteString("(no suggestions yet, press r)")
		return b.String()
	}
	b.WriteString(data.TableView)
	return strings.TrimSpace(b.String())
}

func RenderCommandPalette(active bool, input string) string {
	if !active {
		return ""
	}
	return fmt.Sprintf("command: /%s", input)
}

func RenderHelpPanel(data HelpPanelData) string {
	return fmt.Sprintf("help (%s):\n%s\n%s",
		strings.ToLower(data.CurrentView),
		strings.Join(data.Bindings, "\n"),
		data.HelpView,
	)
}

// ActionMarkdown describes one action for the detail pane.
func ActionMarkdown(a model.ProxyAction) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("## %s\n\n", a.Title))
	if a.Description != "" {
		b.WriteString(a.Description + "\n\n")
	}
	if a.Reasoning != "" {
		b.WriteString(fmt.Sprintf("> %s\n\n", a.Reasoning))
	}
	b.WriteString(fmt.Sprintf("- **type:** %s\n", a.Type))
	b.WriteString(fmt.Sprintf("- **urgency:** %s\n", a.Urgency))
	b.WriteString(fmt.Sprintf("- **status:** %s\n", a.Status))
	if slot, ok := a.Slot(); ok {
		b.WriteString(fmt.Sprintf("- **when:** %s-%s\n", slot.Start.Format("15:04"), slot.End.Format("15:04")))
	}
	b.WriteString(fmt.Sprintf("- **id:** `%s`\n", a.ID))
	return b.String()
}

func SummaryMarkdown(s model.ProxySummary) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("# Summary for %s\n\n", s.Date))
	b.WriteString("| suggestions | accepted | dismissed | minutes saved |\n")
	b.WriteString("|---|---|---|---|\n")
	b.WriteString(fmt.Sprintf("| %d | %d | %d | %d |\n", s.ActionsCount, s.AcceptedCount, s.DismissedCount, s.TimeSavedMinutes))
	if len(s.Highlights) > 0 {
		b.WriteString("\n")
		for _, h := range s.Highlights {
			b.WriteString("- " + h + "\n")
		}
	}
	return b.String()
}

func HistoryMarkdown(actions []model.ProxyAction) string {
	if len(actions) == 0 {
		return "_No answered suggestions yet._\n"
	}
	var b strings.Builder
	b.WriteString("# History\n\n")
	for _, a := range actions {
		when := ""
		if a.RespondedAt != nil {
			when = a.RespondedAt.Format("2006-01-02 15:04")
		}
		b.WriteString(fmt.Sprintf("- `%s` **%s** %s (%s)\n", ShortID(a.ID), a.Status, a.Title, when))
	}
	return b.String()
}

// ShortID is the prefix shown in tables; the service resolves it by prefix.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
