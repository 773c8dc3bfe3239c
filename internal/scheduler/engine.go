package scheduler

import (
	"container/heap"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sandeepkv93/proxyd/internal/model"
)

var (
	ErrInvalidTriggerTime = errors.New("scheduler: invalid trigger time")
	ErrStopped            = errors.New("scheduler: engine stopped")
)

// Config tunes how the engine folds and follows triggers.
type Config struct {
	// Buffer is the capacity of C. Sends never block; overflow is counted.
	Buffer int
	// Coalesce folds a refresh into any queued refresh less than this far
	// away. Zero keeps every refresh.
	Coalesce time.Duration
	// Plan, when set, queues the next workday each time a digest fires.
	Plan *Plan
}

// Stats is a point-in-time view of the engine counters.
type Stats struct {
	Pending    int
	Dropped    uint64
	Coalesced  uint64
	Superseded uint64
}

type entry struct {
	trigger Trigger
	index   int
}

// triggerQueue orders by time; at the same instant refreshes go before digests
// so the digest sees the day's last batch.
type triggerQueue []*entry

func (q triggerQueue) Len() int { return len(q) }

func (q triggerQueue) Less(i, j int) bool {
	a, b := q[i].trigger, q[j].trigger
	if !a.At.Equal(b.At) {
		return a.At.Before(b.At)
	}
	return a.Kind == KindRefresh && b.Kind != KindRefresh
}

func (q triggerQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *triggerQueue) Push(x any) {
	e := x.(*entry)
	e.index = len(*q)
	*q = append(*q, e)
}

func (q *triggerQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*q = old[:n-1]
	return e
}

// Engine emits refresh and digest triggers on C when they come due.
type Engine struct {
	cfg Config

	mu      sync.Mutex
	queue   triggerQueue
	byID    map[string]*entry
	started bool
	stopped bool

	out    chan Trigger
	wakeup chan struct{}
	stopCh chan struct{}
	doneCh chan struct{}

	dropped    atomic.Uint64
	coalesced  atomic.Uint64
	superseded atomic.Uint64
}

func NewEngine(cfg Config) *Engine {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 1
	}
	return &Engine{
		cfg:    cfg,
		byID:   make(map[string]*entry),
		out:    make(chan Trigger, cfg.Buffer),
		wakeup: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

func (e *Engine) C() <-chan Trigger {
	return e.out
}

func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true
	go e.loop()
}

func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started || e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	close(e.stopCh)
	e.mu.Unlock()
	<-e.doneCh
}

// Schedule queues t. A trigger whose ID is already queued replaces it, and
// triggers in the past fire on the next loop pass.
func (e *Engine) Schedule(t Trigger) error {
	return e.ScheduleAll([]Trigger{t})
}

// ScheduleAll queues every trigger or none.
func (e *Engine) ScheduleAll(ts []Trigger) error {
	for _, t := range ts {
		if t.At.IsZero() {
			return ErrInvalidTriggerTime
		}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return ErrStopped
	}
	for _, t := range ts {
		e.enqueueLocked(t)
	}
	e.signalWakeup()
	return nil
}

// Pending reports how many triggers are still queued.
func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

func (e *Engine) Dropped() uint64 {
	return e.dropped.Load()
}

func (e *Engine) Stats() Stats {
	return Stats{
		Pending:    e.Pending(),
		Dropped:    e.dropped.Load(),
		Coalesced:  e.coalesced.Load(),
		Superseded: e.superseded.Load(),
	}
}

func (e *Engine) enqueueLocked(t Trigger) {
	if cur, ok := e.byID[t.ID]; ok && t.ID != "" {
		cur.trigger = t
		heap.Fix(&e.queue, cur.index)
		return
	}
	if t.Kind == KindRefresh && e.nearRefreshLocked(t.At) {
		e.coalesced.Add(1)
		return
	}
	ent := &entry{trigger: t}
	heap.Push(&e.queue, ent)
	if t.ID != "" {
		e.byID[t.ID] = ent
	}
}

func (e *Engine) nearRefreshLocked(at time.Time) bool {
	if e.cfg.Coalesce <= 0 {
		return false
	}
	for _, ent := range e.queue {
		if ent.trigger.Kind != KindRefresh {
			continue
		}
		d := ent.trigger.At.Sub(at)
		if d < 0 {
			d = -d
		}
		if d < e.cfg.Coalesce {
			return true
		}
	}
	return false
}

func (e *Engine) removeLocked(ent *entry) {
	heap.Remove(&e.queue, ent.index)
	if e.byID[ent.trigger.ID] == ent {
		delete(e.byID, ent.trigger.ID)
	}
}

// supersedeLocked drops the refreshes still queued on the digest's day.
func (e *Engine) supersedeLocked(digest Trigger) {
	stale := make([]*entry, 0)
	for _, ent := range e.queue {
		if ent.trigger.Kind == KindRefresh && model.SameDay(digest.At, ent.trigger.At) {
			stale = append(stale, ent)
		}
	}
	for _, ent := range stale {
		e.removeLocked(ent)
		e.superseded.Add(1)
	}
}

func (e *Engine) loop() {
	defer close(e.doneCh)
	defer close(e.out)

	var timer *time.Timer
	for {
		next, hasNext := e.peek()
		if !hasNext {
			select {
			case <-e.wakeup:
				continue
			case <-e.stopCh:
				return
			}
		}

		timer = resetTimer(timer, max(time.Until(next.At), 0))

		select {
		case <-timer.C:
			for _, t := range e.popDue(time.Now()) {
				select {
				case e.out <- t:
				default:
					e.dropped.Add(1)
				}
			}
		case <-e.wakeup:
			continue
		case <-e.stopCh:
			stopTimer(timer)
			return
		}
	}
}

func (e *Engine) signalWakeup() {
	select {
	case e.wakeup <- struct{}{}:
	default:
	}
}

func (e *Engine) peek() (Trigger, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.queue) == 0 {
		return Trigger{}, false
	}
	return e.queue[0].trigger, true
}

// popDue drains everything due at now. A digest supersedes its day's leftover
// refreshes and, with a Plan, queues the next workday before it is delivered.
func (e *Engine) popDue(now time.Time) []Trigger {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Trigger, 0)
	for len(e.queue) > 0 && !e.queue[0].trigger.At.After(now) {
		ent := e.queue[0]
		e.removeLocked(ent)
		out = append(out, ent.trigger)
		if ent.trigger.Kind != KindDigest {
			continue
		}
		e.supersedeLocked(ent.trigger)
		if e.cfg.Plan != nil {
			for _, t := range e.cfg.Plan.Next(ent.trigger.At) {
				e.enqueueLocked(t)
			}
		}
	}
	return out
}

func resetTimer(timer *time.Timer, d time.Duration) *time.Timer {
	if timer == nil {
		return time.NewTimer(d)
	}
	stopTimer(timer)
	timer.Reset(d)
	return timer
}

func stopTimer(timer *time.Timer) {
	if timer == nil {
		return
	}
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
}
