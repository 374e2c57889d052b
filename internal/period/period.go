package period

import (
	"fmt"
	"strings"
	"time"
)

// Mode selects how the calendar is partitioned into periods.
type Mode string

const (
	Week    Mode = "week"
	TwoWeek Mode = "two_week"
	Month   Mode = "month"
)

// KeyLayout is the ISO date layout used for period keys and stored dates.
const KeyLayout = "2006-01-02"

// MealsPerDay is the fixed number of meal slots counted per calendar day.
const MealsPerDay = 3

// Epoch anchors two-week periods. It is a Monday.
var Epoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// ParseMode converts a query value such as "week" or "two-week" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "week", "weekly":
		return Week, nil
	case "two_week", "two-week", "twoweek", "biweekly":
		return TwoWeek, nil
	case "month", "monthly":
		return Month, nil
	}
	return "", fmt.Errorf("unknown period mode %q", s)
}

// Period is a contiguous calendar range. End is inclusive.
type Period struct {
	Start time.Time `json:"start_date"`
	End   time.Time `json:"end_date"`
	Mode  Mode      `json:"mode"`
}

// Date strips the time of day from t, keeping t's calendar date, and returns
// it as midnight UTC.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(KeyLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders a date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(KeyLayout)
}

// StartOf returns the first day of the period of the given mode containing d.
func StartOf(d time.Time, mode Mode) time.Time {
	d = Date(d)
	switch mode {
	case TwoWeek:
		weekStart := StartOf(d, Week)
		return Epoch.AddDate(0, 0, floorDiv(daysBetween(Epoch, weekStart), 14)*14)
	case Month:
		return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		// Monday = 0 ... Sunday = 6
		offset := (int(d.Weekday()) + 6) % 7
		return d.AddDate(0, 0, -offset)
	}
}

// EndOf returns the inclusive last day of the period beginning at start.
func EndOf(start time.Time, mode Mode) time.Time {
	start = Date(start)
	switch mode {
	case TwoWeek:
		return start.AddDate(0, 0, 13)
	case Month:
		return time.Date(start.Year(), start.Month()+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	default:
		return start.AddDate(0, 0, 6)
	}
}

// Containing returns the period of the given mode that contains d.
func Containing(d time.Time, mode Mode) Period {
	start := StartOf(d, mode)
	return Period{Start: start, End: EndOf(start, mode), Mode: mode}
}

// Next returns the period immediately following p.
func (p Period) Next() Period {
	var start time.Time
	switch p.Mode {
	case TwoWeek:
		start = p.Start.AddDate(0, 0, 14)
	case Month:
		// Always day 1 of the following month so month lengths never skew the walk.
		start = time.Date(p.Start.Year(), p.Start.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	default:
		start = p.Start.AddDate(0, 0, 7)
	}
	return Period{Start: start, End: EndOf(start, p.Mode), Mode: p.Mode}
}

// Key is the natural identifier of the period: its start date in ISO form.
func (p Period) Key() string {
	return FormatDate(p.Start)
}

// Days returns the number of calendar days covered, inclusive of both ends.
func (p Period) Days() int {
	return daysBetween(p.Start, p.End) + 1
}

// TotalPossibleMeals is the number of meal slots in the period.
func (p Period) TotalPossibleMeals() int {
	return p.Days() * MealsPerDay
}

// Contains reports whether d falls within the period.
func (p Period) Contains(d time.Time) bool {
	d = Date(d)
	return !d.Before(p.Start) && !d.After(p.End)
}

// Label returns a human-readable description of the period.
func (p Period) Label() string {
	switch p.Mode {
	case Month:
		return p.Start.Format("January 2006")
	case TwoWeek:
		if p.Start.Year() != p.End.Year() {
			return fmt.Sprintf("%s - %s", p.Start.Format("Jan 2, 2006"), p.End.Format("Jan 2, 2006"))
		}
		return fmt.Sprintf("%s - %s", p.Start.Format("Jan 2"), p.End.Format("Jan 2, 2006"))
	default:
		return "Week of " + p.Start.Format("Jan 2, 2006")
	}
}

// daysBetween counts whole days from a to b, both UTC midnights. It avoids
// time.Duration, which saturates about 292 years out.
func daysBetween(a, b time.Time) int {
	return int((b.Unix() - a.Unix()) / 86400)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
