package period

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestStartOfWeek(t *testing.T) {
	tests := []struct {
		in   time.Time
		want time.Time
	}{
		{date(2024, 1, 1), date(2024, 1, 1)},  // Monday
		{date(2024, 1, 3), date(2024, 1, 1)},  // Wednesday
		{date(2024, 1, 7), date(2024, 1, 1)},  // Sunday belongs to the preceding Monday
		{date(2024, 1, 8), date(2024, 1, 8)},  // next Monday
		{date(2023, 12, 31), date(2023, 12, 25)},
		{date(2024, 3, 1), date(2024, 2, 26)}, // across a leap-year February
	}
	for _, tt := range tests {
		got := StartOf(tt.in, Week)
		if !got.Equal(tt.want) {
			t.Errorf("StartOf(%s, Week) = %s, want %s", FormatDate(tt.in), FormatDate(got), FormatDate(tt.want))
		}
	}
}

func TestStartOfIgnoresTimeOfDay(t *testing.T) {
	loc := time.FixedZone("UTC-8", -8*3600)
	in := time.Date(2024, 1, 7, 23, 30, 0, 0, loc) // Sunday evening locally
	got := StartOf(in, Week)
	if want := date(2024, 1, 1); !got.Equal(want) {
		t.Errorf("StartOf = %s, want %s", FormatDate(got), FormatDate(want))
	}
}

func TestStartOfTwoWeek(t *testing.T) {
	tests := []struct {
		in   time.Time
		want time.Time
	}{
		{date(2024, 1, 1), date(2024, 1, 1)},
		{date(2024, 1, 14), date(2024, 1, 1)},
		{date(2024, 1, 15), date(2024, 1, 15)},
		{date(2024, 1, 28), date(2024, 1, 15)},
		{date(2023, 12, 31), date(2023, 12, 18)}, // before the epoch
		{date(2023, 12, 18), date(2023, 12, 18)},
		{date(2023, 12, 17), date(2023, 12, 4)},
	}
	for _, tt := range tests {
		got := StartOf(tt.in, TwoWeek)
		if !got.Equal(tt.want) {
			t.Errorf("StartOf(%s, TwoWeek) = %s, want %s", FormatDate(tt.in), FormatDate(got), FormatDate(tt.want))
		}
	}
}

func TestTwoWeekStartsAreEpochAligned(t *testing.T) {
	d := date(2022, 6, 1)
	for i := 0; i < 1500; i++ {
		start := StartOf(d, TwoWeek)
		days := int(start.Sub(Epoch).Hours() / 24)
		if days%14 != 0 {
			t.Fatalf("StartOf(%s, TwoWeek) = %s is %d days from epoch", FormatDate(d), FormatDate(start), days)
		}
		if start.Weekday() != time.Monday {
			t.Fatalf("StartOf(%s, TwoWeek) = %s is a %s", FormatDate(d), FormatDate(start), start.Weekday())
		}
		d = d.AddDate(0, 0, 1)
	}
}

func TestEndOfMonth(t *testing.T) {
	tests := []struct {
		start time.Time
		want  time.Time
	}{
		{date(2024, 1, 1), date(2024, 1, 31)},
		{date(2024, 2, 1), date(2024, 2, 29)},
		{date(2023, 2, 1), date(2023, 2, 28)},
		{date(2100, 2, 1), date(2100, 2, 28)},
		{date(2000, 2, 1), date(2000, 2, 29)},
		{date(2024, 4, 1), date(2024, 4, 30)},
		{date(2024, 12, 1), date(2024, 12, 31)},
	}
	for _, tt := range tests {
		got := EndOf(tt.start, Month)
		if !got.Equal(tt.want) {
			t.Errorf("EndOf(%s, Month) = %s, want %s", FormatDate(tt.start), FormatDate(got), FormatDate(tt.want))
		}
	}
}

func TestEveryDateFallsInItsPeriod(t *testing.T) {
	for _, mode := range []Mode{Week, TwoWeek, Month} {
		d := date(2023, 1, 1)
		for i := 0; i < 900; i++ {
			start := StartOf(d, mode)
			end := EndOf(start, mode)
			if d.Before(start) || d.After(end) {
				t.Fatalf("%s: %s not within [%s, %s]", mode, FormatDate(d), FormatDate(start), FormatDate(end))
			}
			d = d.AddDate(0, 0, 1)
		}
	}
}

func TestFarDatesFallInTheirPeriod(t *testing.T) {
	dates := []time.Time{
		date(1700, 3, 15),
		date(1600, 1, 1),
		date(2400, 3, 15),
		date(2999, 12, 31),
	}
	for _, mode := range []Mode{Week, TwoWeek, Month} {
		for _, d := range dates {
			p := Containing(d, mode)
			if !p.Contains(d) {
				t.Errorf("%s: %s not within [%s, %s]", mode, FormatDate(d), FormatDate(p.Start), FormatDate(p.End))
			}
			if !StartOf(p.Start, mode).Equal(p.Start) {
				t.Errorf("%s: start %s is not canonical", mode, FormatDate(p.Start))
			}
		}
	}

	p := Containing(date(2400, 3, 15), TwoWeek)
	if p.Days() != 14 {
		t.Errorf("two-week period in 2400 has %d days, want 14", p.Days())
	}
	if m := Containing(date(1700, 2, 10), Month); m.Days() != 28 {
		t.Errorf("February 1700 has %d days, want 28", m.Days())
	}
}

func TestConsecutivePeriodsAreContiguous(t *testing.T) {
	for _, mode := range []Mode{Week, TwoWeek, Month} {
		p := Containing(date(2023, 11, 20), mode)
		for i := 0; i < 60; i++ {
			next := p.Next()
			if !p.End.AddDate(0, 0, 1).Equal(next.Start) {
				t.Fatalf("%s: period ending %s followed by period starting %s", mode, FormatDate(p.End), FormatDate(next.Start))
			}
			if !StartOf(next.Start, mode).Equal(next.Start) {
				t.Fatalf("%s: next start %s is not canonical", mode, FormatDate(next.Start))
			}
			p = next
		}
	}
}

func TestDaysAndTotalPossibleMeals(t *testing.T) {
	tests := []struct {
		p     Period
		days  int
		meals int
	}{
		{Containing(date(2024, 1, 3), Week), 7, 21},
		{Containing(date(2024, 1, 3), TwoWeek), 14, 42},
		{Containing(date(2024, 2, 10), Month), 29, 87},
		{Containing(date(2023, 2, 10), Month), 28, 84},
		{Containing(date(2024, 7, 10), Month), 31, 93},
	}
	for _, tt := range tests {
		if got := tt.p.Days(); got != tt.days {
			t.Errorf("%s Days() = %d, want %d", tt.p.Key(), got, tt.days)
		}
		if got := tt.p.TotalPossibleMeals(); got != tt.meals {
			t.Errorf("%s TotalPossibleMeals() = %d, want %d", tt.p.Key(), got, tt.meals)
		}
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
	}{
		{"week", Week},
		{"", Week},
		{"two_week", TwoWeek},
		{"Two-Week", TwoWeek},
		{"month", Month},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if err != nil {
			t.Fatalf("ParseMode(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if _, err := ParseMode("fortnightly-ish"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		p    Period
		want string
	}{
		{Containing(date(2024, 1, 3), Week), "Week of Jan 1, 2024"},
		{Containing(date(2024, 1, 3), TwoWeek), "Jan 1 - Jan 14, 2024"},
		{Containing(date(2024, 12, 31), TwoWeek), "Dec 30, 2024 - Jan 12, 2025"},
		{Containing(date(2024, 1, 3), Month), "January 2024"},
	}
	for _, tt := range tests {
		if got := tt.p.Label(); got != tt.want {
			t.Errorf("Label() = %q, want %q", got, tt.want)
		}
	}
}
