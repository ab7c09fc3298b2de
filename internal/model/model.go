package model

import "time"

// Attendance record states.
const (
	StatusIncomplete = "incomplete"
	StatusComplete   = "complete"
)

// DurationUnknown is the duration shown while a record is still open.
const DurationUnknown = "N/A"

// User represents a registered account.
type User struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
	Location string `json:"location,omitempty"`
}

// AttendanceRecord represents a single clock-in/clock-out entry.
// ClockInAt and ClockOutAt are the source of truth; the formatted
// TimeIn/TimeOut/Duration fields mirror them for display and for
// records imported from older payloads that carried only strings.
type AttendanceRecord struct {
	ID         string     `json:"id"`
	UserID     int        `json:"user_id"`
	ClockInAt  time.Time  `json:"clock_in_at"`
	ClockOutAt *time.Time `json:"clock_out_at,omitempty"`
	TimeIn     string     `json:"time_in"`
	TimeOut    string     `json:"time_out,omitempty"`
	Location   string     `json:"location"`
	Duration   string     `json:"duration"`
	Status     string     `json:"status"`
}

// Open reports whether the record is still waiting for a clock-out.
func (r AttendanceRecord) Open() bool { return r.Status == StatusIncomplete }
