package models

import (
	"fmt"
	"time"
)

// DateOf truncates t to its calendar date at UTC midnight, keeping t's local Y-M-D.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DateRange is a half-open interval of calendar days [Start, End).
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange normalizes a stay: End is checkOut when it is after checkIn,
// otherwise the day after checkIn.
func NewDateRange(checkIn time.Time, checkOut *time.Time) DateRange {
	start := DateOf(checkIn)
	return DateRange{Start: start, End: EffectiveEnd(start, checkOut)}
}

// EffectiveEnd is the exclusive end of an occupied interval.
func EffectiveEnd(checkIn time.Time, checkOut *time.Time) time.Time {
	start := DateOf(checkIn)
	if checkOut != nil {
		end := DateOf(*checkOut)
		if end.After(start) {
			return end
		}
	}
	return start.AddDate(0, 0, 1)
}

func (r DateRange) Overlaps(o DateRange) bool {
	return r.Start.Before(o.End) && o.Start.Before(r.End)
}

func (r DateRange) Contains(day time.Time) bool {
	d := DateOf(day)
	return !d.Before(r.Start) && d.Before(r.End)
}

// Days is the number of calendar days covered.
func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start).Hours() / 24)
}

func (r DateRange) String() string {
	return fmt.Sprintf("[%s, %s)", FormatDate(r.Start), FormatDate(r.End))
}
