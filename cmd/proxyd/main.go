package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/sandeepkv93/proxyd/internal/config"
	"github.com/sandeepkv93/proxyd/internal/proxy"
	"github.com/sandeepkv93/proxyd/internal/update"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	backend  string
	dbPath   string
	stateDir string
	timezone string
	logLevel string

	// clock overrides the wall clock; tests pin it.
	clock proxy.Clock
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(&rootOptions{}).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "proxyd failed: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	root := &cobra.Command{
		Use:           "proxyd",
		Short:         "Proactive suggestions for protecting your day",
		Long:          "proxyd reads your tasks and calendar, flags overloaded days and suggests breaks, focus blocks and priorities.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd, opts)
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.backend, "backend", "", "action state backend: sqlite, file, memory or postgres")
	flags.StringVar(&opts.dbPath, "db", "", "sqlite database holding tasks and events")
	flags.StringVar(&opts.stateDir, "state-dir", "", "directory for the file backend and the TUI log")
	flags.StringVar(&opts.timezone, "tz", "", "IANA timezone for day boundaries")
	flags.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(
		newRefreshCmd(opts),
		newActionsCmd(opts),
		newRespondCmd(opts, "accept"),
		newRespondCmd(opts, "dismiss"),
		newModifyCmd(opts),
		newHistoryCmd(opts),
		newSummaryCmd(opts),
		newClearCmd(opts),
		newWatchCmd(opts),
		newTaskCmd(opts),
		newEventCmd(opts),
	)
	return root
}

// loadConfig layers flags over PROXYD_* variables over defaults.
func loadConfig(cmd *cobra.Command, opts *rootOptions) config.RuntimeConfig {
	cfg := config.RuntimeConfigFromEnv(config.DefaultRuntimeConfig())
	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Backend = opts.backend
	}
	if flags.Changed("db") {
		cfg.DBPath = opts.dbPath
	}
	if flags.Changed("state-dir") {
		cfg.StateDir = opts.stateDir
	}
	if flags.Changed("tz") {
		cfg.Timezone = opts.timezone
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	return cfg
}

func newLogger(w io.Writer, cfg config.RuntimeConfig) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
}

// withApp opens the stores for one command and closes them afterwards.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, a *app) error) error {
	cfg := loadConfig(cmd, opts)
	logger := newLogger(cmd.ErrOrStderr(), cfg)
	a, err := openApp(cmd.Context(), cfg, logger, opts.clock)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(cmd.Context(), a)
}

func runTUI(cmd *cobra.Command, opts *rootOptions) error {
	cfg := loadConfig(cmd, opts)
	if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	logFile, err := os.OpenFile(filepath.Join(cfg.StateDir, "proxyd.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	logger := newLogger(logFile, cfg)
	ctx := cmd.Context()
	a, err := openApp(ctx, cfg, logger, opts.clock)
	if err != nil {
		return err
	}
	defer a.Close()

	engine := a.newEngine()
	engine.Start()
	defer engine.Stop()
	// The model refreshes once on start, so the plan skips the immediate trigger.
	if err := engine.ScheduleAll(a.plan().Day(a.now())[1:]); err != nil {
		return err
	}

	model := update.NewModel(update.Deps{
		Context:   ctx,
		Service:   a.svc,
		Events:    a.repo.EventsOn,
		AddTask:   a.addTask,
		Scheduler: engine,
		Logger:    logger,
		NewID:     uuid.NewString,
	})
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
