package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/google/uuid"
	"github.com/sandeepkv93/proxyd/internal/commands"
	"github.com/sandeepkv93/proxyd/internal/model"
	"github.com/sandeepkv93/proxyd/internal/proxy"
	"github.com/sandeepkv93/proxyd/internal/scheduler"
	"github.com/sandeepkv93/proxyd/internal/storage"
	"github.com/sandeepkv93/proxyd/internal/views"
	"github.com/spf13/cobra"
)

func newRefreshCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Generate today's suggestions unless a fresh batch exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				snap, err := a.refresh(ctx)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if snap.HasMessage {
					fmt.Fprintf(w, "> %s\n", snap.Message)
				}
				printActions(w, visibleActions(snap.Actions, a.now(), false))
				return nil
			})
		},
	}
}

func newActionsCmd(opts *rootOptions) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "actions",
		Short: "List pending suggestions and everything proposed today",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(_ context.Context, a *app) error {
				printActions(cmd.OutOrStdout(), visibleActions(a.svc.Snapshot().Actions, a.now(), all))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include answered suggestions from earlier days")
	return cmd
}

func newRespondCmd(opts *rootOptions, verb string) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <id>",
		Short: strings.ToUpper(verb[:1]) + verb[1:] + " a suggestion by id or id prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				target, err := a.svc.Find(args[0])
				if err != nil {
					return err
				}
				var out model.ProxyAction
				if verb == "accept" {
					out, err = a.svc.Accept(ctx, target.ID)
				} else {
					out, err = a.svc.Dismiss(ctx, target.ID)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s\n", out.Status, views.ShortID(out.ID), out.Title)
				return nil
			})
		},
	}
}

func newModifyCmd(opts *rootOptions) *cobra.Command {
	var args commands.ModifyArgs
	var description string
	cmd := &cobra.Command{
		Use:   "modify <id>",
		Short: "Adjust a suggestion before accepting it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, pos []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				target, err := a.svc.Find(pos[0])
				if err != nil {
					return err
				}
				args.Target = target.ID
				patch, err := args.Patch(a.now())
				if err != nil {
					return err
				}
				if cmd.Flags().Changed("description") {
					patch.Description = &description
				}
				if patch == (proxy.ActionPatch{}) {
					return errors.New("modify needs at least one of --title, --description, --urgency or --slot")
				}
				out, err := a.svc.Modify(ctx, target.ID, patch)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s\n", out.Status, views.ShortID(out.ID), out.Title)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&args.Title, "title", "", "new title")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().StringVar(&args.Urgency, "urgency", "", "low, medium or high")
	cmd.Flags().StringVar(&args.Slot, "slot", "", "new time slot today, e.g. 12:30-13:30")
	return cmd
}

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List accepted and dismissed suggestions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(_ context.Context, a *app) error {
				fmt.Fprint(cmd.OutOrStdout(), views.HistoryMarkdown(a.svc.History()))
				return nil
			})
		},
	}
}

func newSummaryCmd(opts *rootOptions) *cobra.Command {
	var date string
	var pretty bool
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show how many suggestions were taken on a day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(_ context.Context, a *app) error {
				day, err := commands.ParseDay(date, a.now())
				if err != nil {
					return err
				}
				md := views.SummaryMarkdown(a.svc.Summary(day))
				if pretty {
					md = views.RenderMarkdown(md)
				}
				fmt.Fprint(cmd.OutOrStdout(), md)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "today", "today, yesterday, +N or YYYY-MM-DD")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "render markdown for the terminal")
	return cmd
}

func newClearCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Drop every stored suggestion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.svc.Clear(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "cleared")
				return nil
			})
		},
	}
}

func newWatchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Refresh on a schedule and print the evening digest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				return runWatch(ctx, a, cmd.OutOrStdout())
			})
		},
	}
}

// runWatch drives refreshes from the trigger engine until ctx ends. The engine
// queues each following workday itself once a digest fires.
func runWatch(ctx context.Context, a *app, w io.Writer) error {
	engine := a.newEngine()
	engine.Start()
	defer engine.Stop()

	if err := engine.ScheduleAll(a.plan().Day(a.now())); err != nil {
		return err
	}
	a.log.Info("watching", "pending_triggers", engine.Pending())

	for {
		select {
		case <-ctx.Done():
			st := engine.Stats()
			a.log.Info("watch stopped", "dropped", st.Dropped, "coalesced", st.Coalesced, "superseded", st.Superseded)
			return nil
		case t := <-engine.C():
			switch t.Kind {
			case scheduler.KindRefresh:
				snap, err := a.refresh(ctx)
				if err != nil {
					a.log.Error("scheduled refresh failed", "trigger", t.ID, "err", err)
					continue
				}
				a.log.Info("scheduled refresh", "trigger", t.ID, "actions", len(snap.Actions))
				if snap.HasMessage {
					fmt.Fprintf(w, "%s > %s\n", a.now().Format("15:04"), snap.Message)
				}
			case scheduler.KindDigest:
				fmt.Fprint(w, views.SummaryMarkdown(a.svc.Summary(t.At)))
				a.log.Info("digest", "trigger", t.ID, "pending_triggers", engine.Pending())
			}
		}
	}
}

func newTaskCmd(opts *rootOptions) *cobra.Command {
	root := &cobra.Command{Use: "task", Short: "Manage the tasks suggestions are built from"}

	var add commands.AddArgs
	var estimate int
	addCmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				add.Title = strings.Join(args, " ")
				if cmd.Flags().Changed("estimate") {
					add.Estimate = &estimate
				}
				task, err := add.Task(uuid.NewString(), a.now())
				if err != nil {
					return err
				}
				if err := a.addTask(ctx, task); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "added task %s: %s\n", task.ID, task.Title)
				return nil
			})
		},
	}
	addCmd.Flags().StringVarP(&add.Priority, "priority", "p", "", "high, medium or low")
	addCmd.Flags().StringVar(&add.Due, "due", "", "today, tomorrow, +N or YYYY-MM-DD")
	addCmd.Flags().IntVar(&estimate, "estimate", 0, "estimated minutes")

	var showDone bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				rows, err := a.repo.ListTasks(ctx, storage.TaskListFilter{Open: !showDone})
				if err != nil {
					return err
				}
				t := newTable("id", "status", "priority", "due", "title")
				for _, r := range rows {
					due := ""
					if r.DueAt != nil {
						due = model.DateKey(r.DueAt.In(a.now().Location()))
					}
					t.Row(r.ID, r.Status, r.Priority, due, r.Title)
				}
				fmt.Fprintln(cmd.OutOrStdout(), t.Render())
				return nil
			})
		},
	}
	listCmd.Flags().BoolVar(&showDone, "all", false, "include done tasks")

	doneCmd := &cobra.Command{
		Use:   "done <id>",
		Short: "Mark a task done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.completeTask(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "done %s\n", args[0])
				return nil
			})
		},
	}

	root.AddCommand(addCmd, listCmd, doneCmd)
	return root
}

func newEventCmd(opts *rootOptions) *cobra.Command {
	root := &cobra.Command{Use: "event", Short: "Manage calendar events"}

	var date, slot, location string
	var allDay bool
	addCmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a calendar event",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				day, err := commands.ParseDay(date, a.now())
				if err != nil {
					return err
				}
				ev := model.CalendarEvent{
					ID:       uuid.NewString(),
					Title:    strings.Join(args, " "),
					Location: location,
					AllDay:   allDay,
					Start:    day,
					End:      day.AddDate(0, 0, 1),
				}
				if !allDay {
					if ev.Start, ev.End, err = commands.ParseSlot(slot, day); err != nil {
						return err
					}
				}
				if err := a.addEvent(ctx, ev); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "added event %s: %s\n", ev.ID, ev.Title)
				return nil
			})
		},
	}
	addCmd.Flags().StringVar(&date, "date", "today", "today, tomorrow, +N or YYYY-MM-DD")
	addCmd.Flags().StringVar(&slot, "slot", "", "time range, e.g. 09:00-09:30")
	addCmd.Flags().StringVar(&location, "location", "", "where it happens")
	addCmd.Flags().BoolVar(&allDay, "all-day", false, "span the whole day")

	var listDate string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List events on a day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				day, err := commands.ParseDay(listDate, a.now())
				if err != nil {
					return err
				}
				events, err := a.repo.EventsOn(ctx, day)
				if err != nil {
					return err
				}
				t := newTable("when", "title", "location")
				for _, e := range events {
					when := "all day"
					if !e.AllDay {
						when = e.Start.Format("15:04") + "-" + e.End.Format("15:04")
					}
					t.Row(when, e.Title, e.Location)
				}
				fmt.Fprintln(cmd.OutOrStdout(), t.Render())
				return nil
			})
		},
	}
	listCmd.Flags().StringVar(&listDate, "date", "today", "today, tomorrow, +N or YYYY-MM-DD")

	root.AddCommand(addCmd, listCmd)
	return root
}

// visibleActions keeps pending suggestions plus anything created on now's
// day; all keeps everything.
func visibleActions(actions []model.ProxyAction, now time.Time, all bool) []model.ProxyAction {
	out := make([]model.ProxyAction, 0, len(actions))
	for _, a := range actions {
		if all || a.Status == model.ActionStatusPending || model.SameDay(now, a.CreatedAt) {
			out = append(out, a)
		}
	}
	return out
}

func printActions(w io.Writer, actions []model.ProxyAction) {
	if len(actions) == 0 {
		fmt.Fprintln(w, "no suggestions")
		return
	}
	t := newTable("id", "type", "urgency", "status", "when", "title")
	for _, a := range actions {
		when := ""
		if s, ok := a.Slot(); ok {
			when = s.Start.Format("15:04") + "-" + s.End.Format("15:04")
		}
		t.Row(views.ShortID(a.ID), string(a.Type), string(a.Urgency), string(a.Status), when, a.Title)
	}
	fmt.Fprintln(w, t.Render())
}

func newTable(headers ...string) *table.Table {
	return table.New().Border(lipgloss.NormalBorder()).Headers(headers...)
}
