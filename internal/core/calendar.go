package core

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Date is a calendar date with no time-of-day semantics. The wrapped instant
// is anchored at local noon so month arithmetic never crosses a day boundary
// on DST transitions. The zero Date is the sentinel for an unparseable
// value: it sorts after every valid date and is excluded from month buckets.
type Date struct {
	time.Time
}

// NewDate creates a Date from year, month and day, anchored at local noon.
func NewDate(year, month, day int) Date {
	return Date{time.Date(year, time.Month(month), day, 12, 0, 0, 0, time.Local)}
}

// Today returns the calendar date of the given instant in local time.
func Today(now time.Time) Date {
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

// ClampedDateForDay returns the date for day within the given month,
// substituting the month's last valid day when day overflows it
// (day 31 in February resolves to February 28 or 29). Month values
// outside 1-12 are normalized into the adjacent year first.
func ClampedDateForDay(year, month, day int) Date {
	first := time.Date(year, time.Month(month), 1, 12, 0, 0, 0, time.Local)
	y, m := first.Year(), int(first.Month())
	if last := lastDayOfMonth(y, m); day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return NewDate(y, m, day)
}

func lastDayOfMonth(year, month int) int {
	// Day zero of the next month.
	return time.Date(year, time.Month(month)+1, 0, 12, 0, 0, 0, time.Local).Day()
}

// AddCalendarMonths advances the date by n whole calendar months, reattempting
// the original day-of-month and clamping it to the target month's length.
func AddCalendarMonths(d Date, n int) Date {
	return ClampedDateForDay(d.Year(), int(d.Month())+n, d.Day())
}

// ParseLocalDate parses a strict "YYYY-MM-DD" string as a local calendar
// date. It never applies a UTC interpretation, so the resulting date is the
// one the user wrote regardless of the machine's timezone.
func ParseLocalDate(s string) (Date, error) {
	t, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(s), time.Local)
	if err != nil {
		return Date{}, fmt.Errorf("parse local date %q: %w", s, err)
	}
	return NewDate(t.Year(), int(t.Month()), t.Day()), nil
}

// ParseExternalDate parses date spellings seen in external record stores:
// "YYYY-MM-DD" or "DD-MM-YYYY". Used only at adapter boundaries.
func ParseExternalDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, fmt.Errorf("parse external date: empty value")
	}
	for _, layout := range []string{"2006-01-02", "02-01-2006"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return NewDate(t.Year(), int(t.Month()), t.Day()), nil
		}
	}
	return Date{}, fmt.Errorf("parse external date %q: unrecognized format", s)
}

// ParseCompetency parses a competency period, either "YYYY-MM" (first day of
// the month) or a full "YYYY-MM-DD".
func ParseCompetency(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, fmt.Errorf("parse competency: empty value")
	}
	if t, err := time.ParseInLocation("2006-01", s, time.Local); err == nil {
		return NewDate(t.Year(), int(t.Month()), 1), nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return NewDate(t.Year(), int(t.Month()), t.Day()), nil
	}
	return Date{}, fmt.Errorf("parse competency %q: unrecognized format", s)
}

// String formats the date as "YYYY-MM-DD". The zero Date formats as "".
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

// MonthKey returns the "YYYY-MM" bucket key, or "" for the zero Date.
func (d Date) MonthKey() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01")
}

// Before reports whether d is an earlier calendar date than other. The zero
// Date sorts after every valid date.
func (d Date) Before(other Date) bool {
	if d.IsZero() {
		return false
	}
	if other.IsZero() {
		return true
	}
	return d.Time.Before(other.Time)
}

// DaysUntil returns the whole number of days from now's calendar date to the
// due date d. Negative when d is in the past. Both endpoints are truncated
// to local midnight before subtracting.
func DaysUntil(d Date, now time.Time) int {
	a := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.Local)
	b := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	// Round instead of truncate: DST makes some local days 23 or 25 hours.
	return int(math.Round(a.Sub(b).Hours() / 24))
}

// MonthKeyOf returns the "YYYY-MM" key for an arbitrary instant.
func MonthKeyOf(t time.Time) string {
	return t.Format("2006-01")
}

var ptBRMonths = [...]string{
	"janeiro", "fevereiro", "março", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
}

// MonthLabelPTBR renders a "YYYY-MM" key as a pt-BR label, e.g.
// "2025-03" -> "março de 2025". Unparseable keys are returned unchanged.
func MonthLabelPTBR(key string) string {
	t, err := time.ParseInLocation("2006-01", key, time.Local)
	if err != nil {
		return key
	}
	return fmt.Sprintf("%s de %d", ptBRMonths[int(t.Month())-1], t.Year())
}
