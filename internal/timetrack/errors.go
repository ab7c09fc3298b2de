package timetrack

import "errors"

// Typed failures surfaced to callers. Storage read failures are not here
// on purpose: reads degrade to empty collections (see Store).
var (
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrRecordNotFound     = errors.New("attendance record not found")
	ErrAlreadyClockedIn   = errors.New("open attendance record already exists")
)
