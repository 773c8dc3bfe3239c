package commands

import (
	"fmt"
	"strings"
	"time"
)

// ParseDay resolves today, tomorrow, +N (days) or YYYY-MM-DD against now.
// The result is midnight in now's location.
func ParseDay(s string, now time.Time) (time.Time, error) {
	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "" || s == "today":
		return midnight, nil
	case s == "tomorrow":
		return midnight.AddDate(0, 0, 1), nil
	case s == "yesterday":
		return midnight.AddDate(0, 0, -1), nil
	case strings.HasPrefix(s, "+"):
		var n int
		if _, err := fmt.Sscanf(s, "+%d", &n); err != nil {
			return time.Time{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("invalid day offset: %s", s)}
		}
		return midnight.AddDate(0, 0, n), nil
	}
	day, err := time.ParseInLocation("2006-01-02", s, now.Location())
	if err != nil {
		return time.Time{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("invalid date: %s", s)}
	}
	return day, nil
}

// ParseClock parses HH:MM on day.
func ParseClock(s string, day time.Time) (time.Time, error) {
	tm, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("invalid time: %s", s)}
	}
	y, m, d := day.Date()
	return time.Date(y, m, d, tm.Hour(), tm.Minute(), 0, 0, day.Location()), nil
}

// ParseSlot parses HH:MM-HH:MM on day. End must follow start.
func ParseSlot(s string, day time.Time) (time.Time, time.Time, error) {
	from, to, ok := strings.Cut(s, "-")
	if !ok {
		return time.Time{}, time.Time{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("slot must look like 12:00-13:00: %s", s)}
	}
	start, err := ParseClock(from, day)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := ParseClock(to, day)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("slot end must follow start: %s", s)}
	}
	return start, end, nil
}
