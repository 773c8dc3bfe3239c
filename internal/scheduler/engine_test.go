package scheduler

import (
	"testing"
	"time"
)

var monday = time.Date(2026, 2, 9, 9, 30, 0, 0, time.UTC)

func startEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	engine := NewEngine(cfg)
	engine.Start()
	t.Cleanup(engine.Stop)
	return engine
}

func waitTrigger(t *testing.T, ch <-chan Trigger, timeout time.Duration) Trigger {
	t.Helper()
	select {
	case tr := <-ch:
		return tr
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for trigger")
		return Trigger{}
	}
}

func TestEngineEmitsInTriggerOrder(t *testing.T) {
	engine := startEngine(t, Config{Buffer: 8})

	now := time.Now()
	if err := engine.Schedule(Trigger{ID: "later", Kind: KindRefresh, At: now.Add(80 * time.Millisecond)}); err != nil {
		t.Fatalf("schedule later: %v", err)
	}
	if err := engine.Schedule(Trigger{ID: "sooner", Kind: KindRefresh, At: now.Add(20 * time.Millisecond)}); err != nil {
		t.Fatalf("schedule sooner: %v", err)
	}

	first := waitTrigger(t, engine.C(), time.Second)
	second := waitTrigger(t, engine.C(), time.Second)
	if first.ID != "sooner" || second.ID != "later" {
		t.Fatalf("unexpected order: first=%s second=%s", first.ID, second.ID)
	}
}

func TestEngineCountsDropsWhenConsumerIsSlow(t *testing.T) {
	engine := startEngine(t, Config{Buffer: 1})

	at := time.Now().Add(20 * time.Millisecond)
	for i := 0; i < 25; i++ {
		if err := engine.Schedule(Trigger{Kind: KindRefresh, At: at}); err != nil {
			t.Fatalf("schedule: %v", err)
		}
	}

	time.Sleep(120 * time.Millisecond)
	if engine.Dropped() == 0 {
		t.Fatalf("expected dropped triggers, got %d", engine.Dropped())
	}
}

func TestScheduleReplacesQueuedID(t *testing.T) {
	engine := NewEngine(Config{Buffer: 4})
	if err := engine.Schedule(Trigger{ID: "digest-2026-02-09", Kind: KindDigest, At: monday}); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	moved := monday.Add(2 * time.Hour)
	if err := engine.Schedule(Trigger{ID: "digest-2026-02-09", Kind: KindDigest, At: moved}); err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if engine.Pending() != 1 {
		t.Fatalf("expected one queued digest, got %d", engine.Pending())
	}
	if next, _ := engine.peek(); !next.At.Equal(moved) {
		t.Fatalf("expected replaced time %v, got %v", moved, next.At)
	}
}

func TestCoalesceFoldsNearbyRefreshes(t *testing.T) {
	engine := NewEngine(Config{Buffer: 4, Coalesce: 2 * time.Hour})
	plan := RefreshPlan(monday, time.Hour, 18)
	if err := engine.ScheduleAll(plan); err != nil {
		t.Fatalf("schedule plan: %v", err)
	}
	// 09:30, 11:30, 13:30, 15:30, 17:30 survive out of nine hourly refreshes.
	stats := engine.Stats()
	if stats.Pending != 5 || stats.Coalesced != 4 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	if err := engine.Schedule(Trigger{ID: "digest", Kind: KindDigest, At: monday.Add(30 * time.Minute)}); err != nil {
		t.Fatalf("schedule digest: %v", err)
	}
	if engine.Pending() != 6 {
		t.Fatal("digests must never be coalesced")
	}
}

func TestDigestSupersedesSameDayRefreshes(t *testing.T) {
	engine := NewEngine(Config{Buffer: 8})
	day := func(d, h int) time.Time { return time.Date(2026, 2, d, h, 0, 0, 0, time.UTC) }
	err := engine.ScheduleAll([]Trigger{
		{ID: "r-10", Kind: KindRefresh, At: day(9, 10)},
		{ID: "r-18", Kind: KindRefresh, At: day(9, 18)},
		{ID: "d-9", Kind: KindDigest, At: day(9, 18)},
		{ID: "r-19", Kind: KindRefresh, At: day(9, 19)},
		{ID: "r-next", Kind: KindRefresh, At: day(10, 9)},
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}

	got := engine.popDue(day(10, 12))
	ids := make([]string, 0, len(got))
	for _, tr := range got {
		ids = append(ids, tr.ID)
	}
	want := []string{"r-10", "r-18", "d-9", "r-next"}
	if len(ids) != len(want) {
		t.Fatalf("expected %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, ids)
		}
	}
	if s := engine.Stats(); s.Superseded != 1 || s.Pending != 0 {
		t.Fatalf("unexpected stats %+v", s)
	}
}

func TestDigestQueuesNextWorkday(t *testing.T) {
	plan := &Plan{Interval: time.Hour, UntilHour: 18, DigestHour: 18, WorkdayStart: [2]int{9, 0}}
	engine := startEngine(t, Config{Buffer: 4, Plan: plan})

	at := time.Now().Add(20 * time.Millisecond)
	if err := engine.Schedule(Trigger{ID: digestID(at), Kind: KindDigest, At: at}); err != nil {
		t.Fatalf("schedule digest: %v", err)
	}
	if got := waitTrigger(t, engine.C(), time.Second); got.Kind != KindDigest {
		t.Fatalf("expected digest, got %+v", got)
	}

	// Nine hourly refreshes from 09:00 plus the next digest.
	if engine.Pending() != 10 {
		t.Fatalf("expected the next workday queued, got %d", engine.Pending())
	}
	next, _ := engine.peek()
	if next.Kind != KindRefresh || next.At.Hour() != 9 || !next.At.After(at) {
		t.Fatalf("unexpected next trigger %+v", next)
	}
}

func TestScheduleValidatesTriggerTime(t *testing.T) {
	engine := NewEngine(Config{})
	err := engine.ScheduleAll([]Trigger{
		{ID: "ok", Kind: KindRefresh, At: monday},
		{ID: "bad", Kind: KindDigest},
	})
	if err != ErrInvalidTriggerTime {
		t.Fatalf("expected ErrInvalidTriggerTime, got %v", err)
	}
	if engine.Pending() != 0 {
		t.Fatalf("expected nothing queued, got %d", engine.Pending())
	}
}

func TestStoppedEngineRejectsTriggers(t *testing.T) {
	engine := NewEngine(Config{Buffer: 1})
	engine.Start()
	engine.Stop()
	if err := engine.Schedule(Trigger{ID: "late", Kind: KindRefresh, At: time.Now()}); err != ErrStopped {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
	if _, ok := <-engine.C(); ok {
		t.Fatal("expected output channel closed after stop")
	}
}

func TestNextAtAndRefreshPlan(t *testing.T) {
	if got := NextAt(monday, 18, 0); !got.Equal(time.Date(2026, 2, 9, 18, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected same-day next: %v", got)
	}
	if got := NextAt(monday, 9, 30); !got.Equal(time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC)) {
		t.Fatalf("expected rollover to tomorrow, got %v", got)
	}

	plan := RefreshPlan(monday, 2*time.Hour, 18)
	// 09:30, 11:30, 13:30, 15:30, 17:30
	if len(plan) != 5 {
		t.Fatalf("expected 5 refreshes, got %d: %+v", len(plan), plan)
	}
	if !plan[0].At.Equal(monday) || plan[4].ID != "refresh-2026-02-09T17:30" {
		t.Fatalf("unexpected plan bounds: %+v", plan)
	}
	if got := RefreshPlan(monday, 0, 18); len(got) != 1 {
		t.Fatalf("zero interval should only refresh now, got %d", len(got))
	}
}

func TestPlanDay(t *testing.T) {
	p := Plan{Interval: time.Hour, UntilHour: 18, DigestHour: 18, WorkdayStart: [2]int{9, 0}}

	morning := time.Date(2026, 2, 9, 8, 0, 0, 0, time.UTC)
	got := p.Day(morning)
	if len(got) != 11 {
		t.Fatalf("expected 10 refreshes and a digest, got %d", len(got))
	}
	last := got[len(got)-1]
	if last.Kind != KindDigest || last.ID != "digest-2026-02-09" || last.At.Hour() != 18 {
		t.Fatalf("unexpected digest %+v", last)
	}

	late := time.Date(2026, 2, 9, 19, 0, 0, 0, time.UTC)
	got = p.Day(late)
	if len(got) != 11 || !got[1].At.Equal(time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected now plus tomorrow from 09:00, got %+v", got)
	}
	if last := got[len(got)-1]; last.ID != "digest-2026-02-10" {
		t.Fatalf("unexpected late digest %+v", last)
	}

	next := p.Next(time.Date(2026, 2, 9, 18, 0, 0, 0, time.UTC))
	if !next[0].At.Equal(time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)) || next[len(next)-1].ID != "digest-2026-02-10" {
		t.Fatalf("unexpected next workday %+v", next)
	}
}
