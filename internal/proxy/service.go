package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sandeepkv93/proxyd/internal/model"
	"github.com/sandeepkv93/proxyd/internal/priority"
	"github.com/sandeepkv93/proxyd/internal/weights"
)

const DefaultStateKey = "proxy:state"

var (
	ErrActionNotFound    = errors.New("proxy: action not found")
	ErrInvalidTransition = errors.New("proxy: invalid status transition")
	ErrNotDismissable    = errors.New("proxy: action cannot be dismissed")
	ErrNotModifiable     = errors.New("proxy: action cannot be modified")
	ErrInvalidPatch      = errors.New("proxy: invalid action patch")
)

type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in Location, or the local zone when nil.
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// Store is the durable key-value port the service mirrors its state into.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
}

// TaskSource is the read side of the Task Store.
type TaskSource interface {
	ListTasks(ctx context.Context) ([]model.Task, error)
}

type TaskSourceFunc func(ctx context.Context) ([]model.Task, error)

func (f TaskSourceFunc) ListTasks(ctx context.Context) ([]model.Task, error) { return f(ctx) }

// State is the only persisted shape. Summary and message are always derived.
type State struct {
	Actions     []model.ProxyAction `json:"actions"`
	LastUpdated time.Time           `json:"lastUpdated"`
}

type Snapshot struct {
	Actions     []model.ProxyAction
	LastUpdated time.Time
	Summary     model.ProxySummary
	Message     string
	HasMessage  bool
}

type ActionPatch struct {
	Title       *string
	Description *string
	Urgency     *model.Urgency
	Slot        *model.TimeSlot
}

type Options struct {
	Clock       Clock
	Store       Store
	Tasks       TaskSource
	Logger      *slog.Logger
	Weights     *weights.Table
	Preferences priority.Preferences
	StateKey    string
	NewID       func() string
}

// Service owns the action list for one user session. Every method holds mu
// for its whole read-modify-write cycle.
type Service struct {
	mu      sync.Mutex
	clock   Clock
	store   Store
	tasks   TaskSource
	log     *slog.Logger
	table   weights.Table
	gen     *Generator
	key     string
	state   State
	summary model.ProxySummary
	message string
	hasMsg  bool
}

func NewService(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, errors.New("proxy: store is required")
	}
	if opts.Tasks == nil {
		return nil, errors.New("proxy: task source is required")
	}
	s := &Service{
		clock: opts.Clock,
		store: opts.Store,
		tasks: opts.Tasks,
		log:   opts.Logger,
		table: weights.Default(),
		key:   strings.TrimSpace(opts.StateKey),
	}
	if s.clock == nil {
		s.clock = SystemClock{}
	}
	if s.log == nil {
		s.log = slog.New(slog.DiscardHandler)
	}
	if opts.Weights != nil {
		s.table = *opts.Weights
	}
	if s.key == "" {
		s.key = DefaultStateKey
	}
	s.gen = NewGenerator(s.table, opts.Preferences, opts.NewID)
	s.state.Actions = []model.ProxyAction{}
	s.derive(s.clock.Now())
	return s, nil
}

// Load replaces the in-memory state with the persisted record.
func (s *Service) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok, err := s.store.Get(ctx, s.key)
	if err != nil {
		return fmt.Errorf("load proxy state: %w", err)
	}
	next := State{Actions: []model.ProxyAction{}}
	if ok && len(raw) > 0 {
		if err := json.Unmarshal(raw, &next); err != nil {
			return fmt.Errorf("decode proxy state: %w", err)
		}
		if next.Actions == nil {
			next.Actions = []model.ProxyAction{}
		}
	}
	s.state = next
	s.derive(s.clock.Now())
	s.log.Debug("proxy state loaded", "key", s.key, "actions", len(next.Actions), "last_updated", next.LastUpdated)
	return nil
}

// Refresh regenerates today's batch unless one was produced within the
// refresh window, in which case only the advisory message is recomputed.
func (s *Service) Refresh(ctx context.Context, events []model.CalendarEvent) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if s.hasActionsOn(now) && s.recent(now) {
		s.message, s.hasMsg = GenerateMessage(s.state.Actions)
		s.log.Debug("proxy refresh reused today's batch", "last_updated", s.state.LastUpdated, "actions", len(s.state.Actions))
		return s.snapshot(), nil
	}

	tasks, err := s.tasks.ListTasks(ctx)
	if err != nil {
		return s.snapshot(), fmt.Errorf("list tasks: %w", err)
	}
	fresh := s.gen.Daily(tasks, events, now)

	carried := make([]model.ProxyAction, 0, len(s.state.Actions))
	answered := make(map[string]bool)
	for _, a := range s.state.Actions {
		today := model.SameDay(now, a.CreatedAt)
		switch {
		case a.Status.Responded():
			carried = append(carried, a)
			if today {
				answered[actionKey(a)] = true
			}
		case !today:
			carried = append(carried, a)
		}
	}
	next := State{Actions: carried, LastUpdated: now}
	added := 0
	for _, a := range fresh {
		if answered[actionKey(a)] {
			continue
		}
		next.Actions = append(next.Actions, a)
		added++
	}

	if err := s.persist(ctx, next); err != nil {
		return s.snapshot(), err
	}
	s.state = next
	s.derive(now)
	s.log.Info("proxy actions regenerated", "added", added, "carried", len(carried), "tasks", len(tasks), "events", len(events))
	return s.snapshot(), nil
}

func (s *Service) Accept(ctx context.Context, id string) (model.ProxyAction, error) {
	return s.respond(ctx, id, model.ActionStatusAccepted, ActionPatch{})
}

func (s *Service) Dismiss(ctx context.Context, id string) (model.ProxyAction, error) {
	return s.respond(ctx, id, model.ActionStatusDismissed, ActionPatch{})
}

func (s *Service) Modify(ctx context.Context, id string, patch ActionPatch) (model.ProxyAction, error) {
	return s.respond(ctx, id, model.ActionStatusModified, patch)
}

func (s *Service) respond(ctx context.Context, id string, to model.ActionStatus, patch ActionPatch) (model.ProxyAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return model.ProxyAction{}, fmt.Errorf("%w: %s", ErrActionNotFound, id)
	}
	action := s.state.Actions[idx]
	if !model.CanTransition(action.Status, to) {
		return action, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, action.Status, to)
	}
	switch to {
	case model.ActionStatusDismissed:
		if !action.Controls.CanDismiss {
			return action, ErrNotDismissable
		}
	case model.ActionStatusModified:
		if !action.Controls.CanModify {
			return action, ErrNotModifiable
		}
		var err error
		if action, err = applyPatch(action, patch); err != nil {
			return s.state.Actions[idx], err
		}
	}

	now := s.clock.Now()
	action.Status = to
	action.RespondedAt = &now

	next := State{
		Actions:     make([]model.ProxyAction, len(s.state.Actions)),
		LastUpdated: s.state.LastUpdated,
	}
	copy(next.Actions, s.state.Actions)
	next.Actions[idx] = action
	if err := s.persist(ctx, next); err != nil {
		return s.state.Actions[idx], err
	}
	s.state = next
	s.derive(now)
	s.log.Info("proxy action answered", "id", action.ID, "type", action.Type, "status", to)
	return action, nil
}

// Clear drops every action. The next Refresh always regenerates.
func (s *Service) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := State{Actions: []model.ProxyAction{}}
	if err := s.persist(ctx, next); err != nil {
		return err
	}
	s.state = next
	s.derive(s.clock.Now())
	s.log.Info("proxy actions cleared")
	return nil
}

// History returns accepted and dismissed actions in creation order.
func (s *Service) History() []model.ProxyAction {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.ProxyAction, 0)
	for _, a := range s.state.Actions {
		if a.Status == model.ActionStatusAccepted || a.Status == model.ActionStatusDismissed {
			out = append(out, a)
		}
	}
	return out
}

func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Service) Summary(date time.Time) model.ProxySummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Summarize(s.state.Actions, date, s.table.Summary)
}

// Find resolves a full id or a unique id prefix.
func (s *Service) Find(ref string) (model.ProxyAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref = strings.TrimSpace(ref)
	if idx := s.indexOf(ref); idx >= 0 {
		return s.state.Actions[idx], nil
	}
	var match *model.ProxyAction
	for i := range s.state.Actions {
		if ref != "" && strings.HasPrefix(s.state.Actions[i].ID, ref) {
			if match != nil {
				return model.ProxyAction{}, fmt.Errorf("%w: %q is ambiguous", ErrActionNotFound, ref)
			}
			match = &s.state.Actions[i]
		}
	}
	if match == nil {
		return model.ProxyAction{}, fmt.Errorf("%w: %s", ErrActionNotFound, ref)
	}
	return *match, nil
}

// Generator exposes the pure pipeline the service uses.
func (s *Service) Generator() *Generator {
	return s.gen
}

func (s *Service) Now() time.Time {
	return s.clock.Now()
}

func (s *Service) snapshot() Snapshot {
	actions := make([]model.ProxyAction, len(s.state.Actions))
	copy(actions, s.state.Actions)
	return Snapshot{
		Actions:     actions,
		LastUpdated: s.state.LastUpdated,
		Summary:     s.summary,
		Message:     s.message,
		HasMessage:  s.hasMsg,
	}
}

func (s *Service) derive(now time.Time) {
	s.summary = Summarize(s.state.Actions, now, s.table.Summary)
	s.message, s.hasMsg = GenerateMessage(s.state.Actions)
}

func (s *Service) persist(ctx context.Context, next State) error {
	raw, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode proxy state: %w", err)
	}
	if err := s.store.Put(ctx, s.key, raw); err != nil {
		s.log.Warn("proxy state persist failed", "key", s.key, "err", err)
		return fmt.Errorf("persist proxy state: %w", err)
	}
	return nil
}

func (s *Service) hasActionsOn(now time.Time) bool {
	for _, a := range s.state.Actions {
		if model.SameDay(now, a.CreatedAt) {
			return true
		}
	}
	return false
}

func (s *Service) recent(now time.Time) bool {
	if s.state.LastUpdated.IsZero() {
		return false
	}
	return now.Sub(s.state.LastUpdated) < s.table.RefreshWindow
}

func (s *Service) indexOf(id string) int {
	for i, a := range s.state.Actions {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func applyPatch(a model.ProxyAction, p ActionPatch) (model.ProxyAction, error) {
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return a, fmt.Errorf("%w: empty title", ErrInvalidPatch)
		}
		a.Title = title
	}
	if p.Description != nil {
		a.Description = *p.Description
	}
	if p.Urgency != nil {
		if !p.Urgency.IsValid() {
			return a, fmt.Errorf("%w: urgency %q", ErrInvalidPatch, *p.Urgency)
		}
		a.Urgency = *p.Urgency
	}
	if p.Slot != nil {
		if !p.Slot.End.After(p.Slot.Start) {
			return a, fmt.Errorf("%w: slot end must follow start", ErrInvalidPatch)
		}
		slot := *p.Slot
		related := model.RelatedData{}
		if a.Related != nil {
			related = *a.Related
		}
		related.Slot = &slot
		a.Related = &related
	}
	return a, nil
}

// actionKey identifies a proposal across regenerations of the same day.
func actionKey(a model.ProxyAction) string {
	if slot, ok := a.Slot(); ok {
		return fmt.Sprintf("%s|%s|%s", a.Type, slot.Start.Format(time.RFC3339), slot.End.Format(time.RFC3339))
	}
	return fmt.Sprintf("%s|%s", a.Type, a.Title)
}
