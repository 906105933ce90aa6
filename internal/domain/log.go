package domain

import (
	"fmt"
	"strings"
	"time"
)

// LogDateLayout renders exercise dates as calendar dates without a time.
const LogDateLayout = "Mon Jan 02 2006"

// DateParam is a date filter as supplied by the caller together with its
// parsed value. Raw is echoed back untouched in the LogView.
type DateParam struct {
	Raw  string
	Time time.Time
}

// ParseDateParam accepts YYYY-MM-DD or RFC 3339 input.
func ParseDateParam(raw string) (*DateParam, error) {
	t, err := ParseDate(raw)
	if err != nil {
		return nil, err
	}
	return &DateParam{Raw: raw, Time: t}, nil
}

// ParseDate parses a calendar date (interpreted as UTC midnight) or an RFC 3339 timestamp.
func ParseDate(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q", raw)
}

// LogFilter narrows a user's log. Nil fields are absent.
type LogFilter struct {
	Limit *int
	From  *DateParam
	To    *DateParam
}

// LogEntry is one rendered exercise.
type LogEntry struct {
	Description string  `json:"description"`
	Duration    float64 `json:"duration"`
	Date        string  `json:"date"`
}

// LogView is the filtered, truncated and counted view of a user's exercises.
type LogView struct {
	ID       string     `json:"_id"`
	Username string     `json:"username"`
	From     string     `json:"from,omitempty"`
	To       string     `json:"to,omitempty"`
	Count    int        `json:"count"`
	Log      []LogEntry `json:"log"`
}

// FormatDate renders t the way log entries carry dates.
func FormatDate(t time.Time) string {
	return t.UTC().Format(LogDateLayout)
}

// FormatLog applies the date window and limit to the user's exercises.
// Both bounds are exclusive and stored order is preserved.
func FormatLog(user User, filter LogFilter) LogView {
	view := LogView{ID: user.ID, Username: user.Username}
	if filter.From != nil {
		view.From = filter.From.Raw
	}
	if filter.To != nil {
		view.To = filter.To.Raw
	}

	entries := make([]LogEntry, 0, len(user.Exercises))
	for _, ex := range user.Exercises {
		if !inWindow(ex.Date, filter.From, filter.To) {
			continue
		}
		entries = append(entries, LogEntry{
			Description: ex.Description,
			Duration:    ex.Duration,
			Date:        FormatDate(ex.Date),
		})
	}

	if filter.Limit != nil {
		limit := *filter.Limit
		if limit < 0 {
			limit = 0
		}
		if limit < len(entries) {
			entries = entries[:limit]
		}
	}

	view.Count = len(entries)
	view.Log = entries
	return view
}

func inWindow(d time.Time, from, to *DateParam) bool {
	if from != nil && !from.Time.Before(d) {
		return false
	}
	if to != nil && !d.Before(to.Time) {
		return false
	}
	return true
}
