package overload

import "github.com/sandeepkv93/proxyd/internal/model"

type Level string

const (
	LevelNone     Level = "none"
	LevelWatch    Level = "watch"
	LevelWarning  Level = "warning"
	LevelCritical Level = "critical"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

type FactorKind string

const (
	FactorMeetingCount        FactorKind = "meeting_count"
	FactorConsecutiveMeetings FactorKind = "consecutive_meetings"
	FactorNoBreak             FactorKind = "no_break"
	FactorUrgentTasks         FactorKind = "urgent_tasks"
	FactorDueToday            FactorKind = "due_today"
	FactorLateSchedule        FactorKind = "late_schedule"
)

// Factor is one observed contributor to the load score.
type Factor struct {
	Kind        FactorKind `json:"kind"`
	Severity    Severity   `json:"severity"`
	Description string     `json:"description"`
	Value       *float64   `json:"value,omitempty"`
	Points      int        `json:"points"`
}

// Detection is recomputed on every refresh and never stored on its own.
type Detection struct {
	IsOverloaded bool                `json:"isOverloaded"`
	Level        Level               `json:"level"`
	Score        int                 `json:"score"`
	Factors      []Factor            `json:"factors"`
	Suggestions  []model.ProxyAction `json:"suggestions"`
}

func (d Detection) Has(kind FactorKind) (Factor, bool) {
	for _, f := range d.Factors {
		if f.Kind == kind {
			return f, true
		}
	}
	return Factor{}, false
}
