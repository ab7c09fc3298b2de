// Package stats derives display fields and aggregate summaries from
// attendance records. Everything here is a pure function of its inputs;
// callers pass the current time explicitly.
package stats

import (
	"fmt"
	"math"
	"regexp"
	"time"

	"timetrack/internal/model"
)

const (
	clockLayout = "3:04:05 PM"
	dateLayout  = "January 2, 2006"
)

// DateLabel renders t relative to now: "Today, <date>" when both fall on
// the same local calendar day, "Yesterday, <date>" for the prior day, and
// the plain date otherwise.
func DateLabel(t, now time.Time) string {
	t = t.In(now.Location())
	formatted := t.Format(dateLayout)
	if sameDay(t, now) {
		return "Today, " + formatted
	}
	if sameDay(t, now.AddDate(0, 0, -1)) {
		return "Yesterday, " + formatted
	}
	return formatted
}

// StripDateLabel removes a relative prefix from a rendered date label.
func StripDateLabel(label string) string {
	for _, prefix := range []string{"Today, ", "Yesterday, "} {
		if len(label) > len(prefix) && label[:len(prefix)] == prefix {
			return label[len(prefix):]
		}
	}
	return label
}

// FormatClockTime renders a time of day as "H:MM:SS AM|PM".
func FormatClockTime(t time.Time) string {
	return t.Format(clockLayout)
}

// ParseClockTime parses a "H:MM:SS AM|PM" label onto ref's calendar day
// in ref's location. 12 AM maps to hour 0 and 12 PM stays 12.
func ParseClockTime(label string, ref time.Time) (time.Time, error) {
	parsed, err := time.Parse(clockLayout, label)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse clock time %q: %w", label, err)
	}
	return time.Date(ref.Year(), ref.Month(), ref.Day(),
		parsed.Hour(), parsed.Minute(), parsed.Second(), 0, ref.Location()), nil
}

// Duration renders the difference between start and end as "{h}h {m}m",
// in whole hours and minutes. Negative differences clamp to "0h 0m".
func Duration(start, end time.Time) string {
	diff := end.Sub(start)
	if diff < 0 {
		diff = 0
	}
	hours := int(diff / time.Hour)
	minutes := int((diff % time.Hour) / time.Minute)
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

var durationPattern = regexp.MustCompile(`([0-9]+)h\s*([0-9]+)m`)

// ParseDurationLabel reads a "{h}h {m}m" label back into fractional hours.
func ParseDurationLabel(label string) (float64, bool) {
	m := durationPattern.FindStringSubmatch(label)
	if m == nil {
		return 0, false
	}
	var hours, minutes int
	fmt.Sscanf(m[1], "%d", &hours)
	fmt.Sscanf(m[2], "%d", &minutes)
	return float64(hours) + float64(minutes)/60, true
}

// WeekStart returns the most recent Sunday at local midnight relative to now.
func WeekStart(now time.Time) time.Time {
	start := now.AddDate(0, 0, -int(now.Weekday()))
	return time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, now.Location())
}

// MonthStart returns the first day of now's month at local midnight.
func MonthStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}

// WorkingDaysInMonth counts the Monday-Friday dates in now's month.
func WorkingDaysInMonth(now time.Time) int {
	first := MonthStart(now)
	days := first.AddDate(0, 1, -1).Day()
	working := 0
	for i := 0; i < days; i++ {
		switch first.AddDate(0, 0, i).Weekday() {
		case time.Saturday, time.Sunday:
		default:
			working++
		}
	}
	return working
}

// Summary aggregates a user's attendance for dashboard display.
type Summary struct {
	HoursThisWeek    int `json:"hours_this_week"`
	HoursThisMonth   int `json:"hours_this_month"`
	DaysPresent      int `json:"days_present"`
	TotalWorkingDays int `json:"total_working_days"`
	OnTimePercentage int `json:"on_time_percentage"`
}

// Summarize folds records into weekly/monthly hours, distinct days present,
// working days in the current month, and the punctuality figure. With no
// records every field is zero, working days included. Punctuality is a
// configured constant applied whenever any records exist; a computed
// metric needs per-shift schedule data the records do not carry.
func Summarize(records []model.AttendanceRecord, now time.Time, punctuality int) Summary {
	if len(records) == 0 {
		return Summary{}
	}
	weekStart := WeekStart(now)
	monthStart := MonthStart(now)

	var weekHours, monthHours float64
	days := make(map[string]struct{})

	for _, rec := range records {
		if !rec.ClockInAt.IsZero() {
			days[rec.ClockInAt.In(now.Location()).Format("2006-01-02")] = struct{}{}
		}
		if rec.Status != model.StatusComplete {
			continue
		}
		hours, ok := recordHours(rec)
		if !ok || rec.ClockInAt.IsZero() {
			continue
		}
		if !rec.ClockInAt.Before(weekStart) {
			weekHours += hours
		}
		if !rec.ClockInAt.Before(monthStart) {
			monthHours += hours
		}
	}

	return Summary{
		HoursThisWeek:    int(math.Round(weekHours)),
		HoursThisMonth:   int(math.Round(monthHours)),
		DaysPresent:      len(days),
		TotalWorkingDays: WorkingDaysInMonth(now),
		OnTimePercentage: punctuality,
	}
}

// recordHours prefers the raw timestamps and falls back to the rendered
// duration label for records imported without them.
func recordHours(rec model.AttendanceRecord) (float64, bool) {
	if !rec.ClockInAt.IsZero() && rec.ClockOutAt != nil {
		diff := rec.ClockOutAt.Sub(rec.ClockInAt)
		if diff < 0 {
			diff = 0
		}
		return diff.Hours(), true
	}
	return ParseDurationLabel(rec.Duration)
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
