package analytics

import (
	"fmt"
	"time"

	"gasdash-backend/internal/models"
)

// Range is a named trailing window ending now
type Range string

const (
	RangeDay   Range = "day"
	RangeWeek  Range = "week"
	RangeMonth Range = "month"
)

func ParseRange(s string) (Range, error) {
	switch r := Range(s); r {
	case RangeDay, RangeWeek, RangeMonth:
		return r, nil
	case "":
		return RangeMonth, nil
	}
	return "", fmt.Errorf("unknown range %q", s)
}

// Window resolves the range to [start, now]
func (r Range) Window(now time.Time) (time.Time, time.Time) {
	switch r {
	case RangeDay:
		return now.AddDate(0, 0, -1), now
	case RangeWeek:
		return now.AddDate(0, 0, -7), now
	default:
		return now.AddDate(0, -1, 0), now
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ReportWindow returns the calendar period of the given type containing
// date. Weeks start on Sunday. End is the last instant of the period.
func ReportWindow(typ models.ReportType, date time.Time) (time.Time, time.Time, error) {
	switch typ {
	case models.ReportDaily:
		start := startOfDay(date)
		return start, start.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
	case models.ReportWeekly:
		start := startOfDay(date).AddDate(0, 0, -int(date.Weekday()))
		return start, start.AddDate(0, 0, 7).Add(-time.Nanosecond), nil
	case models.ReportMonthly:
		y, m, _ := date.Date()
		start := time.Date(y, m, 1, 0, 0, 0, 0, date.Location())
		return start, start.AddDate(0, 1, 0).Add(-time.Nanosecond), nil
	}
	return time.Time{}, time.Time{}, fmt.Errorf("unknown report type %q", typ)
}
