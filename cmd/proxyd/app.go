package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sandeepkv93/proxyd/internal/config"
	"github.com/sandeepkv93/proxyd/internal/model"
	"github.com/sandeepkv93/proxyd/internal/priority"
	"github.com/sandeepkv93/proxyd/internal/proxy"
	"github.com/sandeepkv93/proxyd/internal/scheduler"
	"github.com/sandeepkv93/proxyd/internal/storage"
	"github.com/sandeepkv93/proxyd/internal/weights"
)

// app wires the task store, the action-state store and the proxy service.
// Tasks and events always live in SQLite; Backend only picks where the
// action state is mirrored.
type app struct {
	cfg     config.RuntimeConfig
	log     *slog.Logger
	repo    *storage.SQLiteRepository
	svc     *proxy.Service
	closers []func()
}

func openApp(ctx context.Context, cfg config.RuntimeConfig, logger *slog.Logger, clock proxy.Clock) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	if clock == nil {
		clock = proxy.SystemClock{Location: loc}
	}

	repo, err := storage.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: logger, repo: repo}
	a.closers = append(a.closers, func() { _ = repo.Close() })

	store, err := a.openStateStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	table := weights.Default()
	table.RefreshWindow = cfg.RefreshWindow()
	svc, err := proxy.NewService(proxy.Options{
		Clock:   clock,
		Store:   store,
		Tasks:   proxy.TaskSourceFunc(repo.AllTasks),
		Logger:  logger,
		Weights: &table,
		Preferences: priority.Preferences{
			PreferMorningWork: cfg.PreferMorningWork,
			PreferQuickWins:   cfg.PreferQuickWins,
		},
		StateKey: cfg.StateKey,
		NewID:    uuid.NewString,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	if err := svc.Load(ctx); err != nil {
		a.Close()
		return nil, err
	}
	a.svc = svc
	logger.Debug("app opened", "backend", cfg.Backend, "db", cfg.DBPath, "weights", table.Version)
	return a, nil
}

func (a *app) openStateStore(ctx context.Context) (storage.KV, error) {
	switch a.cfg.Backend {
	case config.BackendSQLite:
		return a.repo, nil
	case config.BackendFile:
		return storage.NewFileKV(a.cfg.StateDir), nil
	case config.BackendMemory:
		return storage.NewMemoryKV(), nil
	case config.BackendPostgres:
		kv, err := storage.OpenPgKV(ctx, a.cfg.PostgresURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, kv.Close)
		return kv, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", a.cfg.Backend)
	}
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *app) now() time.Time {
	return a.svc.Now()
}

// refresh loads today's calendar and asks the service for a deduplicated batch.
func (a *app) refresh(ctx context.Context) (proxy.Snapshot, error) {
	events, err := a.repo.EventsOn(ctx, a.now())
	if err != nil {
		return proxy.Snapshot{}, fmt.Errorf("load events: %w", err)
	}
	return a.svc.Refresh(ctx, events)
}

func (a *app) addTask(ctx context.Context, t model.Task) error {
	return a.repo.CreateTask(ctx, storage.TaskFromModel(t, a.now()))
}

func (a *app) addEvent(ctx context.Context, e model.CalendarEvent) error {
	if err := e.Validate(); err != nil {
		return err
	}
	return a.repo.CreateEvent(ctx, storage.EventFromModel(e, a.now()))
}

// completeTask marks a task done so it drops out of the pending set.
func (a *app) completeTask(ctx context.Context, id string) error {
	task, err := a.repo.GetTask(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("task %s: %w", id, err)
	}
	if err != nil {
		return err
	}
	task.Status = string(model.TaskStatusDone)
	task.UpdatedAt = a.now()
	return a.repo.UpdateTask(ctx, task)
}

// plan is the watched workday shape from config.
func (a *app) plan() scheduler.Plan {
	return scheduler.Plan{
		Interval:     a.cfg.RefreshInterval(),
		UntilHour:    a.cfg.WatchUntilHour,
		DigestHour:   a.cfg.DigestHour,
		WorkdayStart: weights.Default().Planner.WorkdayStart,
	}
}

// newEngine builds the trigger engine shared by watch and the TUI. Refreshes
// inside one refresh window are folded since the service would reuse the
// batch anyway, and every digest queues the following workday.
func (a *app) newEngine() *scheduler.Engine {
	plan := a.plan()
	return scheduler.NewEngine(scheduler.Config{
		Buffer:   a.cfg.SchedulerBuffer,
		Coalesce: a.cfg.RefreshWindow(),
		Plan:     &plan,
	})
}
