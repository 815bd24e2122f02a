package period

import (
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)

// YearMonth is a calendar month in the seller's timezone.
type YearMonth struct {
	Year  int
	Month time.Month
}

func NewYearMonth(year int, month time.Month) (YearMonth, error) {
	if year < 2000 || year > 9999 {
		return YearMonth{}, fmt.Errorf("invalid year %d", year)
	}
	if month < time.January || month > time.December {
		return YearMonth{}, fmt.Errorf("invalid month %d", month)
	}
	return YearMonth{Year: year, Month: month}, nil
}

// ParseYearMonth accepts YYYY-MM.
func ParseYearMonth(value string) (YearMonth, error) {
	t, err := time.Parse(MonthLayout, strings.TrimSpace(value))
	if err != nil {
		return YearMonth{}, fmt.Errorf("invalid year-month %q", value)
	}
	return YearMonth{Year: t.Year(), Month: t.Month()}, nil
}

// Of returns the month t falls in when viewed from loc.
func Of(t time.Time, loc *time.Location) YearMonth {
	local := t.In(orUTC(loc))
	return YearMonth{Year: local.Year(), Month: local.Month()}
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

func (ym YearMonth) IsZero() bool {
	return ym.Year == 0 && ym.Month == 0
}

// Bounds returns the UTC instants [start, end) of the month in loc.
func (ym YearMonth) Bounds(loc *time.Location) (time.Time, time.Time) {
	start := time.Date(ym.Year, ym.Month, 1, 0, 0, 0, 0, orUTC(loc))
	return start.UTC(), start.AddDate(0, 1, 0).UTC()
}

// Days lists every calendar day of the month.
func (ym YearMonth) Days(loc *time.Location) []time.Time {
	start := time.Date(ym.Year, ym.Month, 1, 0, 0, 0, 0, orUTC(loc))
	var out []time.Time
	for d := start; d.Month() == ym.Month; d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// ParseDate parses YYYY-MM-DD as midnight in loc.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(value), orUTC(loc))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", value)
	}
	return t, nil
}

// DayBounds returns the UTC instants [start, end) of the calendar day of t in loc.
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	local := t.In(orUTC(loc))
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
	return start.UTC(), start.AddDate(0, 0, 1).UTC()
}

// DaysBetween lists every calendar day from..to inclusive, in loc.
func DaysBetween(from, to time.Time, loc *time.Location) []time.Time {
	loc = orUTC(loc)
	f := from.In(loc)
	t := to.In(loc)
	cur := time.Date(f.Year(), f.Month(), f.Day(), 0, 0, 0, 0, loc)
	last := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	var out []time.Time
	for !cur.After(last) {
		out = append(out, cur)
		cur = cur.AddDate(0, 0, 1)
	}
	return out
}

func orUTC(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
