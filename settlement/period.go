package settlement

import (
	"fmt"
	"time"
)

// =============================================================================
// YEAR-MONTH BUCKET
// =============================================================================

// YearMonth is a calendar-month bucket in "YYYY-MM" form.
type YearMonth string

const dateLayout = "2006-01-02"

// ParseYearMonth validates a "YYYY-MM" string.
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return "", fmt.Errorf("invalid year-month %q: %w", s, err)
	}
	return YearMonth(t.Format("2006-01")), nil
}

// YearMonthOf derives the bucket of an entry date from its first seven
// characters. ok is false when they are not a valid "YYYY-MM".
func YearMonthOf(date string) (YearMonth, bool) {
	if len(date) < 7 {
		return "", false
	}
	ym, err := ParseYearMonth(date[:7])
	if err != nil {
		return "", false
	}
	return ym, true
}

// NewYearMonth builds a bucket from a year and month.
func NewYearMonth(year int, month time.Month) YearMonth {
	return YearMonth(fmt.Sprintf("%04d-%02d", year, int(month)))
}

// Year returns the calendar year of the bucket.
func (ym YearMonth) Year() int {
	t, _ := time.Parse("2006-01", string(ym))
	return t.Year()
}

// Month returns the calendar month of the bucket.
func (ym YearMonth) Month() time.Month {
	t, _ := time.Parse("2006-01", string(ym))
	return t.Month()
}

func (ym YearMonth) String() string { return string(ym) }

// =============================================================================
// DATE RANGE
// =============================================================================

// DateRange is an inclusive [Start, End] range of calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ParseDateRange parses two "YYYY-MM-DD" dates into a range.
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := time.Parse(dateLayout, start)
	if err != nil {
		return DateRange{}, &RangeError{Start: start, End: end, Reason: "invalid start date"}
	}
	e, err := time.Parse(dateLayout, end)
	if err != nil {
		return DateRange{}, &RangeError{Start: start, End: end, Reason: "invalid end date"}
	}
	if e.Before(s) {
		return DateRange{}, &RangeError{Start: start, End: end, Reason: "end before start"}
	}
	return DateRange{Start: s, End: e}, nil
}

// Contains reports whether the "YYYY-MM-DD" date lies within the range.
func (r DateRange) Contains(date string) bool {
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return false
	}
	return !t.Before(r.Start) && !t.After(r.End)
}

// Months returns every year-month touched by the range, ascending.
func (r DateRange) Months() []YearMonth {
	var months []YearMonth
	current := time.Date(r.Start.Year(), r.Start.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(r.End.Year(), r.End.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !current.After(last) {
		months = append(months, NewYearMonth(current.Year(), current.Month()))
		current = current.AddDate(0, 1, 0)
	}
	return months
}

// StartString returns the start date as "YYYY-MM-DD".
func (r DateRange) StartString() string { return r.Start.Format(dateLayout) }

// EndString returns the end date as "YYYY-MM-DD".
func (r DateRange) EndString() string { return r.End.Format(dateLayout) }

func (r DateRange) String() string {
	return "[" + r.StartString() + ", " + r.EndString() + "]"
}
