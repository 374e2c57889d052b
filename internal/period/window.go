package period

import (
	"sort"
	"time"
)

// Entry is one period in a window, classified against "today".
type Entry struct {
	Period
	IsPast    bool `json:"is_past"`
	IsCurrent bool `json:"is_current"`
	IsFuture  bool `json:"is_future"`
	HasList   bool `json:"has_list"`
}

// ListExistsFunc reports whether a grocery list has been persisted for p.
type ListExistsFunc func(p Period) bool

// Bounds returns the first and last period spanned by a window of pastCount
// periods before and futureCount periods after today.
func Bounds(today time.Time, mode Mode, pastCount, futureCount int) (oldest, newest Period) {
	today = Date(today)
	var oldestAnchor, newestAnchor time.Time
	switch mode {
	case Month:
		oldestAnchor = time.Date(today.Year(), today.Month()-time.Month(pastCount), 1, 0, 0, 0, 0, time.UTC)
		newestAnchor = time.Date(today.Year(), today.Month()+time.Month(futureCount), 1, 0, 0, 0, 0, time.UTC)
	case TwoWeek:
		oldestAnchor = today.AddDate(0, 0, -14*pastCount)
		newestAnchor = today.AddDate(0, 0, 14*futureCount)
	default:
		oldestAnchor = today.AddDate(0, 0, -7*pastCount)
		newestAnchor = today.AddDate(0, 0, 7*futureCount)
	}
	return Containing(oldestAnchor, mode), Containing(newestAnchor, mode)
}

// GenerateWindow walks the timeline period by period around today and returns
// the periods worth surfacing, most recent first. Past periods are kept only
// when exists reports a persisted list; current and future periods are always
// kept. Start dates are unique in the result.
func GenerateWindow(today time.Time, mode Mode, pastCount, futureCount int, exists ListExistsFunc) []Entry {
	today = Date(today)
	if pastCount < 0 {
		pastCount = 0
	}
	if futureCount < 0 {
		futureCount = 0
	}
	oldest, newest := Bounds(today, mode, pastCount, futureCount)

	seen := make(map[string]struct{})
	var entries []Entry
	for p := oldest; !p.Start.After(newest.Start); p = p.Next() {
		key := p.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		e := Entry{Period: p}
		switch {
		case p.End.Before(today):
			e.IsPast = true
		case p.Start.After(today):
			e.IsFuture = true
		default:
			e.IsCurrent = true
		}
		if exists != nil {
			e.HasList = exists(p)
		}
		if e.IsPast && !e.HasList {
			continue
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Start.After(entries[j].Start)
	})
	return entries
}
