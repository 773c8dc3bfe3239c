// Package weights holds every tunable constant used by the classifier, the
// planner, the recommender and the summary. Bump Version whenever a value
// changes so persisted actions can be traced back to the table that made them.
package weights

import "time"

const Version = "2026.02-1"

// Tier is a count threshold and the points it awards. Tiers are checked in
// order and the first match wins, so list them from the highest threshold down.
type Tier struct {
	Min    int
	Points int
}

func MatchTier(tiers []Tier, n int) (Tier, int, bool) {
	for i, t := range tiers {
		if n >= t.Min {
			return t, i, true
		}
	}
	return Tier{}, -1, false
}

// Midday is the hour range the classifier and the planner both treat as lunch
// hours. An event starting or ending in [HourFrom, HourTo] touches it.
type Midday struct {
	HourFrom int
	HourTo   int
}

type Overload struct {
	Midday              Midday
	MeetingTiers        []Tier
	MeetingKeywords     []string
	ConsecutiveGap      time.Duration
	ConsecutiveMin      int
	ConsecutiveHighMin  int
	ConsecutivePoints   int
	LunchWindowStart    [2]int
	LunchWindowEnd      [2]int
	LunchMinGap         time.Duration
	LunchKeywords       []string
	NoBreakMinMeetings  int
	NoBreakPoints       int
	UrgentTaskTiers     []Tier
	DueTodayTiers       []Tier
	LateEndHour         int
	LatePoints          int
	MaxScore            int
	CriticalAt          int
	WarningAt           int
	WatchAt             int
	SuggestedLunchStart [2]int
	SuggestedLunchEnd   [2]int
}

type Planner struct {
	LunchStart      [2]int
	LunchEnd        [2]int
	Midday          Midday
	BufferMaxGap    time.Duration
	WorkdayStart    [2]int
	WorkdayEnd      [2]int
	FocusMinimum    time.Duration
	LunchPriority   int
	BufferPriority  int
	FocusPriority   int
	MaxFocusActions int
}

type Priority struct {
	High             int
	Medium           int
	Low              int
	Overdue          int
	DueToday         int
	DueTomorrow      int
	DueSoon          int
	DueSoonDays      int
	DueThisWeek      int
	DueThisWeekDays  int
	QuickWinMinutes  int
	QuickWin         int
	QuickWinPrefer   int
	ShortMinutes     int
	Short            int
	Long             int
	MorningBefore    int
	MorningMinutes   int
	AfternoonFrom    int
	AfternoonMinutes int
	TimeOfDay        int
	InProgress       int
	DayEndHour       int
	MaxConfidence    float64
	TopN             int
	MinPendingTasks  int
}

type Summary struct {
	TimeSaved        map[string]int
	DefaultTimeSaved int
}

type Table struct {
	Version  string
	Overload Overload
	Planner  Planner
	Priority Priority
	Summary  Summary
	// RefreshWindow is how long a same-day batch is reused before regenerating.
	RefreshWindow time.Duration
}

func Default() Table {
	midday := Midday{HourFrom: 11, HourTo: 13}
	return Table{
		Version: Version,
		Overload: Overload{
			Midday:       midday,
			MeetingTiers: []Tier{{Min: 6, Points: 30}, {Min: 4, Points: 20}, {Min: 2, Points: 10}},
			MeetingKeywords: []string{
				"meeting", "mtg", "sync", "standup", "stand-up", "1:1", "1on1", "one-on-one",
				"call", "review", "interview", "huddle", "retro", "demo", "workshop",
				"conference", "zoom", "teams", "google meet", "webex", "회의", "미팅",
			},
			ConsecutiveGap:      15 * time.Minute,
			ConsecutiveMin:      2,
			ConsecutiveHighMin:  3,
			ConsecutivePoints:   15,
			LunchWindowStart:    [2]int{11, 0},
			LunchWindowEnd:      [2]int{13, 30},
			LunchMinGap:         30 * time.Minute,
			LunchKeywords:       []string{"lunch", "점심", "break"},
			NoBreakMinMeetings:  2,
			NoBreakPoints:       15,
			UrgentTaskTiers:     []Tier{{Min: 5, Points: 25}, {Min: 3, Points: 15}},
			DueTodayTiers:       []Tier{{Min: 3, Points: 20}, {Min: 1, Points: 10}},
			LateEndHour:         19,
			LatePoints:          10,
			MaxScore:            100,
			CriticalAt:          70,
			WarningAt:           50,
			WatchAt:             30,
			SuggestedLunchStart: [2]int{12, 0},
			SuggestedLunchEnd:   [2]int{13, 0},
		},
		Planner: Planner{
			LunchStart:      [2]int{12, 0},
			LunchEnd:        [2]int{13, 0},
			Midday:          midday,
			BufferMaxGap:    15 * time.Minute,
			WorkdayStart:    [2]int{9, 0},
			WorkdayEnd:      [2]int{18, 0},
			FocusMinimum:    90 * time.Minute,
			LunchPriority:   1,
			BufferPriority:  2,
			FocusPriority:   3,
			MaxFocusActions: 2,
		},
		Priority: Priority{
			High:             30,
			Medium:           15,
			Low:              5,
			Overdue:          40,
			DueToday:         35,
			DueTomorrow:      25,
			DueSoon:          15,
			DueSoonDays:      3,
			DueThisWeek:      8,
			DueThisWeekDays:  7,
			QuickWinMinutes:  30,
			QuickWin:         15,
			QuickWinPrefer:   5,
			ShortMinutes:     60,
			Short:            10,
			Long:             5,
			MorningBefore:    12,
			MorningMinutes:   60,
			AfternoonFrom:    16,
			AfternoonMinutes: 30,
			TimeOfDay:        10,
			InProgress:       5,
			DayEndHour:       18,
			MaxConfidence:    0.95,
			TopN:             3,
			MinPendingTasks:  3,
		},
		Summary: Summary{
			TimeSaved: map[string]int{
				"prioritize":    15,
				"protect_time":  10,
				"overload_warn": 20,
			},
			DefaultTimeSaved: 5,
		},
		RefreshWindow: 2 * time.Hour,
	}
}
