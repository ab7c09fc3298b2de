package timetrack

import (
	"strings"
	"time"

	"timetrack/internal/model"
	"timetrack/internal/stats"
)

// Date range values accepted by Filter.
const (
	RangeAll   = "all"
	RangeToday = "today"
	RangeWeek  = "week"
	RangeMonth = "month"
)

// ValidRange reports whether rng is one of the Range constants. The empty
// string is valid and matches everything.
func ValidRange(rng string) bool {
	switch rng {
	case "", RangeAll, RangeToday, RangeWeek, RangeMonth:
		return true
	}
	return false
}

// Filter narrows a record listing. Zero values match everything.
type Filter struct {
	Status   string // "complete" or "incomplete"
	Location string // substring match
	Range    string // one of the Range constants
}

// Apply returns the records matching the filter, preserving order.
func (f Filter) Apply(records []model.AttendanceRecord, now time.Time) []model.AttendanceRecord {
	var cutoff time.Time
	switch f.Range {
	case RangeToday:
		cutoff = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	case RangeWeek:
		cutoff = stats.WeekStart(now)
	case RangeMonth:
		cutoff = stats.MonthStart(now)
	}

	var out []model.AttendanceRecord
	for _, rec := range records {
		if f.Status != "" && rec.Status != f.Status {
			continue
		}
		if f.Location != "" && !strings.Contains(rec.Location, f.Location) {
			continue
		}
		if !cutoff.IsZero() && rec.ClockInAt.Before(cutoff) {
			continue
		}
		out = append(out, rec)
	}
	return out
}
