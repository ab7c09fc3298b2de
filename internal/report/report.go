// Package report renders attendance records into the plain-text body
// handed to the sharing surface.
package report

import (
	"fmt"
	"strings"
	"time"

	"timetrack/internal/model"
	"timetrack/internal/stats"
)

// Render flattens records into a shareable text body. Records are joined
// by "---\n"; an open record shows "Not clocked out".
func Render(records []model.AttendanceRecord, now time.Time) string {
	parts := make([]string, 0, len(records))
	for _, rec := range records {
		timeOut := rec.TimeOut
		if timeOut == "" {
			timeOut = "Not clocked out"
		}
		parts = append(parts, fmt.Sprintf(
			"Date: %s\nTime In: %s\nTime Out: %s\nLocation: %s\nDuration: %s\nStatus: %s\n\n",
			stats.DateLabel(rec.ClockInAt, now), rec.TimeIn, timeOut,
			rec.Location, rec.Duration, rec.Status,
		))
	}
	return strings.Join(parts, "---\n")
}

// Filename builds the report name, e.g.
// "Attendance_Report_This_Month_2026-08-30".
func Filename(rangeLabel string, now time.Time) string {
	if rangeLabel == "" {
		rangeLabel = "All"
	}
	label := strings.ReplaceAll(rangeLabel, " ", "_")
	return fmt.Sprintf("Attendance_Report_%s_%s", label, now.Format("2006-01-02"))
}
