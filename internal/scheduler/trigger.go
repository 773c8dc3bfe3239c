package scheduler

import (
	"time"

	"github.com/sandeepkv93/proxyd/internal/model"
)

type Kind string

const (
	// KindRefresh asks the service to regenerate today's actions.
	KindRefresh Kind = "refresh"
	// KindDigest asks for the end-of-day summary.
	KindDigest Kind = "digest"
)

// Trigger IDs embed their day so re-planning a day replaces rather than
// duplicates queued triggers.
type Trigger struct {
	ID   string
	Kind Kind
	At   time.Time
}

// NextAt returns the first hour:minute strictly after now, in now's location.
func NextAt(now time.Time, hour, minute int) time.Time {
	y, m, d := now.Date()
	next := time.Date(y, m, d, hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = time.Date(y, m, d+1, hour, minute, 0, 0, now.Location())
	}
	return next
}

func refreshID(at time.Time) string {
	return "refresh-" + at.Format("2006-01-02T15:04")
}

func digestID(at time.Time) string {
	return "digest-" + model.DateKey(at)
}

// RefreshPlan lays out refresh triggers every interval from now until the
// given wall-clock hour, always including one at now.
func RefreshPlan(now time.Time, interval time.Duration, untilHour int) []Trigger {
	end := model.At(now, untilHour, 0)
	out := []Trigger{{ID: refreshID(now), Kind: KindRefresh, At: now}}
	if interval <= 0 {
		return out
	}
	for at := now.Add(interval); at.Before(end); at = at.Add(interval) {
		out = append(out, Trigger{ID: refreshID(at), Kind: KindRefresh, At: at})
	}
	return out
}

// Plan is the shape of one watched workday.
type Plan struct {
	Interval     time.Duration
	UntilHour    int
	DigestHour   int
	WorkdayStart [2]int
}

// Day lays out refreshes from start until UntilHour and one digest. When start
// is already past the digest hour the next workday is covered too, so a
// watcher started late still sees tomorrow.
func (p Plan) Day(start time.Time) []Trigger {
	plan := RefreshPlan(start, p.Interval, p.UntilHour)
	digest := NextAt(start, p.DigestHour, 0)
	if !model.SameDay(start, digest) {
		next := NextAt(start, p.WorkdayStart[0], p.WorkdayStart[1])
		plan = append(plan, RefreshPlan(next, p.Interval, p.UntilHour)...)
		digest = NextAt(next, p.DigestHour, 0)
	}
	return append(plan, Trigger{ID: digestID(digest), Kind: KindDigest, At: digest})
}

// Next is the workday that follows a digest fired at after.
func (p Plan) Next(after time.Time) []Trigger {
	return p.Day(NextAt(after, p.WorkdayStart[0], p.WorkdayStart[1]))
}
