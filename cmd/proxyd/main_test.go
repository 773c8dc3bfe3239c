package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sandeepkv93/proxyd/internal/config"
	"github.com/sandeepkv93/proxyd/internal/model"
	"github.com/sandeepkv93/proxyd/internal/proxy"
	"github.com/sandeepkv93/proxyd/internal/scheduler"
)

var monday = time.Date(2026, 2, 9, 8, 0, 0, 0, time.UTC)

func pinned() proxy.Clock {
	return proxy.ClockFunc(func() time.Time { return monday })
}

func cliRunner(t *testing.T, db string) func(args ...string) (string, error) {
	t.Helper()
	return func(args ...string) (string, error) {
		cmd := newRootCmd(&rootOptions{clock: pinned()})
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(io.Discard)
		cmd.SetArgs(append([]string{"--db", db, "--backend", "sqlite", "--tz", "UTC"}, args...))
		err := cmd.ExecuteContext(t.Context())
		return out.String(), err
	}
}

func testConfig(t *testing.T) config.RuntimeConfig {
	t.Helper()
	cfg := config.DefaultRuntimeConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "proxyd.db")
	cfg.StateDir = t.TempDir()
	cfg.Timezone = "UTC"
	return cfg
}

func openTestApp(t *testing.T, cfg config.RuntimeConfig) *app {
	t.Helper()
	a, err := openApp(t.Context(), cfg, slog.New(slog.DiscardHandler), pinned())
	if err != nil {
		t.Fatalf("open app: %v", err)
	}
	t.Cleanup(a.Close)
	return a
}

func findType(t *testing.T, actions []model.ProxyAction, typ model.ActionType) model.ProxyAction {
	t.Helper()
	for _, a := range actions {
		if a.Type == typ {
			return a
		}
	}
	t.Fatalf("no %s action in %+v", typ, actions)
	return model.ProxyAction{}
}

func TestCLIRefreshAcceptSummaryClear(t *testing.T) {
	db := filepath.Join(t.TempDir(), "proxyd.db")
	run := cliRunner(t, db)

	for _, args := range [][]string{
		{"task", "add", "ship", "release", "--priority", "high", "--due", "today"},
		{"task", "add", "write", "notes", "--estimate", "20"},
		{"task", "add", "file", "expenses", "-p", "low"},
		{"event", "add", "team", "standup", "--slot", "09:00-09:30"},
	} {
		if _, err := run(args...); err != nil {
			t.Fatalf("%v: %v", args, err)
		}
	}

	out, err := run("refresh")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if !strings.Contains(out, "prioritize") || !strings.Contains(out, "protect_time") {
		t.Fatalf("expected prioritize and protect_time rows, got:\n%s", out)
	}

	cfg := config.DefaultRuntimeConfig()
	cfg.DBPath = db
	cfg.Timezone = "UTC"
	actions := openTestApp(t, cfg).svc.Snapshot().Actions
	top := findType(t, actions, model.ActionPrioritize)

	out, err = run("accept", top.ID[:8])
	if err != nil || !strings.HasPrefix(out, "accepted ") {
		t.Fatalf("accept: %q %v", out, err)
	}
	if _, err := run("accept", top.ID); err == nil {
		t.Fatal("accepting twice must fail")
	}

	out, err = run("summary", "--date", "today")
	if err != nil || !strings.Contains(out, "Summary for 2026-02-09") || !strings.Contains(out, "Accepted 1 of") {
		t.Fatalf("summary: %q %v", out, err)
	}
	out, err = run("history")
	if err != nil || !strings.Contains(out, "**accepted**") {
		t.Fatalf("history: %q %v", out, err)
	}

	if out, err = run("clear"); err != nil || strings.TrimSpace(out) != "cleared" {
		t.Fatalf("clear: %q %v", out, err)
	}
	if out, err = run("actions"); err != nil || strings.TrimSpace(out) != "no suggestions" {
		t.Fatalf("actions after clear: %q %v", out, err)
	}
}

func TestCLIModify(t *testing.T) {
	db := filepath.Join(t.TempDir(), "proxyd.db")
	run := cliRunner(t, db)
	if _, err := run("refresh"); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	cfg := config.DefaultRuntimeConfig()
	cfg.DBPath = db
	cfg.Timezone = "UTC"
	lunch := findType(t, openTestApp(t, cfg).svc.Snapshot().Actions, model.ActionProtectTime)

	if _, err := run("modify", lunch.ID); err == nil {
		t.Fatal("modify without changes must fail")
	}
	if _, err := run("modify", lunch.ID, "--urgency", "urgent"); err == nil {
		t.Fatal("invalid urgency must fail")
	}
	out, err := run("modify", lunch.ID, "--slot", "12:30-13:30", "--title", "Late lunch")
	if err != nil || !strings.HasPrefix(out, "modified ") || !strings.Contains(out, "Late lunch") {
		t.Fatalf("modify: %q %v", out, err)
	}
}

func TestCLITaskLifecycle(t *testing.T) {
	db := filepath.Join(t.TempDir(), "proxyd.db")
	run := cliRunner(t, db)

	out, err := run("task", "add", "renew", "passport", "--due", "tomorrow")
	if err != nil {
		t.Fatalf("task add: %v", err)
	}
	id, _, ok := strings.Cut(strings.TrimPrefix(out, "added task "), ":")
	if !ok {
		t.Fatalf("unexpected add output %q", out)
	}
	if out, _ := run("task", "list"); !strings.Contains(out, "renew passport") || !strings.Contains(out, "2026-02-10") {
		t.Fatalf("expected task in list, got:\n%s", out)
	}
	if _, err := run("task", "done", id); err != nil {
		t.Fatalf("task done: %v", err)
	}
	if out, _ := run("task", "list"); strings.Contains(out, "renew passport") {
		t.Fatalf("done task should be hidden, got:\n%s", out)
	}
	if out, _ := run("task", "list", "--all"); !strings.Contains(out, "done") {
		t.Fatalf("expected done task with --all, got:\n%s", out)
	}
	if _, err := run("task", "done", "missing"); err == nil {
		t.Fatal("expected not found error")
	}
	if _, err := run("task", "add", "x", "--priority", "urgent"); err == nil {
		t.Fatal("expected invalid priority error")
	}
}

func TestCLIEvents(t *testing.T) {
	db := filepath.Join(t.TempDir(), "proxyd.db")
	run := cliRunner(t, db)
	if _, err := run("event", "add", "design", "review", "--slot", "14:00-15:00", "--location", "room 4"); err != nil {
		t.Fatalf("event add: %v", err)
	}
	if _, err := run("event", "add", "offsite", "--date", "tomorrow", "--all-day"); err != nil {
		t.Fatalf("all-day add: %v", err)
	}
	if _, err := run("event", "add", "bad", "--slot", "15:00-14:00"); err == nil {
		t.Fatal("expected backwards slot error")
	}

	out, err := run("event", "list")
	if err != nil || !strings.Contains(out, "14:00-15:00") || strings.Contains(out, "offsite") {
		t.Fatalf("today's events: %q %v", out, err)
	}
	out, err = run("event", "list", "--date", "tomorrow")
	if err != nil || !strings.Contains(out, "all day") {
		t.Fatalf("tomorrow's events: %q %v", out, err)
	}
}

func TestOpenAppStateBackends(t *testing.T) {
	for _, backend := range []string{config.BackendSQLite, config.BackendFile} {
		t.Run(backend, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Backend = backend
			first := openTestApp(t, cfg)
			snap, err := first.refresh(t.Context())
			if err != nil {
				t.Fatalf("refresh: %v", err)
			}
			first.Close()

			second := openTestApp(t, cfg)
			if got := len(second.svc.Snapshot().Actions); got != len(snap.Actions) || got == 0 {
				t.Fatalf("expected %d persisted actions, got %d", len(snap.Actions), got)
			}
		})
	}

	cfg := testConfig(t)
	cfg.Backend = config.BackendMemory
	mem := openTestApp(t, cfg)
	if _, err := mem.refresh(t.Context()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	mem.Close()
	if got := len(openTestApp(t, cfg).svc.Snapshot().Actions); got != 0 {
		t.Fatalf("memory backend must not persist, got %d actions", got)
	}

	cfg.Backend = "etcd"
	if _, err := openApp(t.Context(), cfg, slog.New(slog.DiscardHandler), pinned()); err == nil {
		t.Fatal("expected unknown backend error")
	}
}

func TestAppPlanAndEngine(t *testing.T) {
	a := openTestApp(t, testConfig(t))

	plan := a.plan().Day(monday)
	if len(plan) != 11 {
		t.Fatalf("expected 10 refreshes and a digest, got %d", len(plan))
	}
	last := plan[len(plan)-1]
	if last.Kind != scheduler.KindDigest || !last.At.Equal(time.Date(2026, 2, 9, 18, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected digest %+v", last)
	}

	engine := a.newEngine()
	if err := engine.ScheduleAll(plan); err != nil {
		t.Fatalf("schedule plan: %v", err)
	}
	// A two-hour refresh window keeps 08:00, 10:00, 12:00, 14:00 and 16:00.
	if s := engine.Stats(); s.Pending != 6 || s.Coalesced != 5 {
		t.Fatalf("unexpected engine stats %+v", s)
	}
}

func TestEngineKeepsPlanningAfterDigest(t *testing.T) {
	a := openTestApp(t, testConfig(t))
	engine := a.newEngine()
	engine.Start()
	defer engine.Stop()

	at := time.Now().Add(20 * time.Millisecond)
	if err := engine.Schedule(scheduler.Trigger{ID: "digest-now", Kind: scheduler.KindDigest, At: at}); err != nil {
		t.Fatalf("schedule digest: %v", err)
	}
	select {
	case tr := <-engine.C():
		if tr.Kind != scheduler.KindDigest {
			t.Fatalf("expected digest, got %+v", tr)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for digest")
	}
	// The next workday: five folded refreshes from 09:00 and its digest.
	if got := engine.Pending(); got != 6 {
		t.Fatalf("expected next workday queued, got %d", got)
	}
}

func TestRunWatchStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	a := openTestApp(t, cfg)

	ctx, cancel := context.WithTimeout(t.Context(), 300*time.Millisecond)
	defer cancel()
	var out bytes.Buffer
	if err := runWatch(ctx, a, &out); err != nil {
		t.Fatalf("watch: %v", err)
	}
	if !strings.Contains(out.String(), "Summary for 2026-02-09") {
		t.Fatalf("expected a digest for the pinned day, got:\n%s", out.String())
	}
	if len(a.svc.Snapshot().Actions) == 0 {
		t.Fatal("expected scheduled refresh to generate actions")
	}
}
