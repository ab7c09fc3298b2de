// Package timetrack implements the record store: durable CRUD for user
// accounts, the current-user session pointer, and attendance records over
// an opaque key-value store holding three JSON payloads.
package timetrack

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"timetrack/internal/kvstore"
	"timetrack/internal/model"
	"timetrack/internal/stats"
)

// Storage keys for the three persisted collections.
const (
	usersKey       = "timetrack:users"
	currentUserKey = "timetrack:current_user"
	recordsKey     = "timetrack:attendance_records"
)

// Store owns the persisted collections. Every mutation is a
// read-modify-write of a whole collection; a single writer lock
// serializes them so concurrent calls cannot lose updates.
type Store struct {
	kv  kvstore.Store
	now func() time.Time
	mu  sync.Mutex
}

// NewStore creates a store over the given key-value backend.
func NewStore(kv kvstore.Store) *Store {
	return &Store{kv: kv, now: time.Now}
}

// WithClock overrides the time source, for tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// ---------- Users ----------

// ListUsers returns all registered users. Missing or corrupt storage
// degrades to an empty slice; first-run callers rely on that.
func (s *Store) ListUsers(ctx context.Context) []model.User {
	var users []model.User
	s.read(ctx, usersKey, &users)
	return users
}

// SaveUsers replaces the whole users collection.
func (s *Store) SaveUsers(ctx context.Context, users []model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(ctx, usersKey, users)
}

// RegisterInput carries the fields of a registration request.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Location string
}

// RegisterUser appends a new account and makes it the current user.
// Fails with ErrDuplicateEmail when the email is already taken.
func (s *Store) RegisterUser(ctx context.Context, in RegisterInput) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := s.ListUsers(ctx)
	for _, u := range users {
		if u.Email == in.Email {
			return model.User{}, ErrDuplicateEmail
		}
	}

	user := model.User{
		ID:       nextUserID(users),
		Name:     in.Name,
		Email:    in.Email,
		Password: in.Password,
		Phone:    in.Phone,
		Location: in.Location,
	}
	if err := s.write(ctx, usersKey, append(users, user)); err != nil {
		return model.User{}, err
	}
	if err := s.setCurrentUser(ctx, user); err != nil {
		return model.User{}, err
	}
	return user, nil
}

// LoginUser matches email and password exactly and sets the current user.
func (s *Store) LoginUser(ctx context.Context, email, password string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.ListUsers(ctx) {
		if u.Email == email && u.Password == password {
			if err := s.setCurrentUser(ctx, u); err != nil {
				return model.User{}, err
			}
			return u, nil
		}
	}
	return model.User{}, ErrInvalidCredentials
}

// LogoutUser clears the current-user pointer.
func (s *Store) LogoutUser(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Remove(ctx, currentUserKey); err != nil {
		return fmt.Errorf("clear current user: %w", err)
	}
	return nil
}

// GetCurrentUser returns the session's active account, if any.
func (s *Store) GetCurrentUser(ctx context.Context) (model.User, bool) {
	var user model.User
	if !s.read(ctx, currentUserKey, &user) {
		return model.User{}, false
	}
	return user, user.ID != 0
}

// ProfileUpdate holds the mutable profile fields. Email is immutable.
type ProfileUpdate struct {
	Name     *string
	Password *string
	Phone    *string
	Location *string
}

// UpdateUserProfile merges the provided fields over the stored user and
// refreshes the current-user pointer when it references the same account.
func (s *Store) UpdateUserProfile(ctx context.Context, userID int, up ProfileUpdate) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := s.ListUsers(ctx)
	idx := -1
	for i, u := range users {
		if u.ID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return model.User{}, ErrUserNotFound
	}

	user := users[idx]
	if up.Name != nil {
		user.Name = *up.Name
	}
	if up.Password != nil {
		user.Password = *up.Password
	}
	if up.Phone != nil {
		user.Phone = *up.Phone
	}
	if up.Location != nil {
		user.Location = *up.Location
	}
	users[idx] = user

	if err := s.write(ctx, usersKey, users); err != nil {
		return model.User{}, err
	}
	if current, ok := s.GetCurrentUser(ctx); ok && current.ID == userID {
		if err := s.setCurrentUser(ctx, user); err != nil {
			return model.User{}, err
		}
	}
	return user, nil
}

// ---------- Attendance records ----------

// ListRecords returns every record for every user in insertion order.
func (s *Store) ListRecords(ctx context.Context) []model.AttendanceRecord {
	var records []model.AttendanceRecord
	s.read(ctx, recordsKey, &records)
	return records
}

// ListUserRecords filters the collection by owner, preserving order.
func (s *Store) ListUserRecords(ctx context.Context, userID int) []model.AttendanceRecord {
	var out []model.AttendanceRecord
	for _, rec := range s.ListRecords(ctx) {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	return out
}

// SaveRecords replaces the whole attendance collection.
func (s *Store) SaveRecords(ctx context.Context, records []model.AttendanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(ctx, recordsKey, records)
}

// ClockIn opens a new attendance record for the user. A user may hold at
// most one open record; a second clock-in fails with ErrAlreadyClockedIn.
func (s *Store) ClockIn(ctx context.Context, userID int, location string) (model.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.ListRecords(ctx)
	for _, rec := range records {
		if rec.UserID == userID && rec.Open() {
			return model.AttendanceRecord{}, ErrAlreadyClockedIn
		}
	}

	now := s.now()
	rec := model.AttendanceRecord{
		ID:        fmt.Sprintf("%d-%d", userID, now.UnixMilli()),
		UserID:    userID,
		ClockInAt: now,
		TimeIn:    stats.FormatClockTime(now),
		Location:  location,
		Duration:  model.DurationUnknown,
		Status:    model.StatusIncomplete,
	}
	if err := s.write(ctx, recordsKey, append(records, rec)); err != nil {
		return model.AttendanceRecord{}, err
	}
	return rec, nil
}

// ClockOut completes the record: sets the clock-out time, replaces the
// location with the clock-out location, and derives the duration.
func (s *Store) ClockOut(ctx context.Context, recordID, location string) (model.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.ListRecords(ctx)
	idx := -1
	for i, rec := range records {
		if rec.ID == recordID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return model.AttendanceRecord{}, ErrRecordNotFound
	}

	now := s.now()
	rec := records[idx]
	start := rec.ClockInAt
	if start.IsZero() {
		// Imported records carry only the formatted time-in; assume it
		// happened on the same calendar day as the clock-out.
		parsed, err := stats.ParseClockTime(rec.TimeIn, now)
		if err != nil {
			log.Printf("warning: record %s has unusable time-in %q: %v", rec.ID, rec.TimeIn, err)
			parsed = now
		}
		start = parsed
	}

	rec.ClockOutAt = &now
	rec.TimeOut = stats.FormatClockTime(now)
	rec.Duration = stats.Duration(start, now)
	rec.Location = location
	rec.Status = model.StatusComplete
	records[idx] = rec

	if err := s.write(ctx, recordsKey, records); err != nil {
		return model.AttendanceRecord{}, err
	}
	return rec, nil
}

// OpenRecord returns the user's first open record in stored order.
func (s *Store) OpenRecord(ctx context.Context, userID int) (model.AttendanceRecord, bool) {
	for _, rec := range s.ListUserRecords(ctx, userID) {
		if rec.Open() {
			return rec, true
		}
	}
	return model.AttendanceRecord{}, false
}

// RecordUpdate holds the mutable record fields. Status transitions only
// happen through ClockOut.
type RecordUpdate struct {
	Location *string
}

// UpdateRecord merges the provided fields over the stored record.
func (s *Store) UpdateRecord(ctx context.Context, recordID string, up RecordUpdate) (model.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.ListRecords(ctx)
	for i, rec := range records {
		if rec.ID != recordID {
			continue
		}
		if up.Location != nil {
			rec.Location = *up.Location
		}
		records[i] = rec
		if err := s.write(ctx, recordsKey, records); err != nil {
			return model.AttendanceRecord{}, err
		}
		return rec, nil
	}
	return model.AttendanceRecord{}, ErrRecordNotFound
}

// DeleteRecords removes the records with the given ids and reports how
// many were removed. Unknown ids are ignored.
func (s *Store) DeleteRecords(ctx context.Context, ids []string) (int, error) {
	targets := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		targets[id] = struct{}{}
	}
	return s.deleteWhere(ctx, func(rec model.AttendanceRecord) bool {
		_, hit := targets[rec.ID]
		return hit
	})
}

// DeleteUserRecords removes every record owned by the user.
func (s *Store) DeleteUserRecords(ctx context.Context, userID int) (int, error) {
	return s.deleteWhere(ctx, func(rec model.AttendanceRecord) bool {
		return rec.UserID == userID
	})
}

func (s *Store) deleteWhere(ctx context.Context, drop func(model.AttendanceRecord) bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.ListRecords(ctx)
	kept := records[:0:0]
	for _, rec := range records {
		if !drop(rec) {
			kept = append(kept, rec)
		}
	}
	removed := len(records) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := s.write(ctx, recordsKey, kept); err != nil {
		return 0, err
	}
	return removed, nil
}

// ---------- internals ----------

func nextUserID(users []model.User) int {
	max := 0
	for _, u := range users {
		if u.ID > max {
			max = u.ID
		}
	}
	return max + 1
}

func (s *Store) setCurrentUser(ctx context.Context, user model.User) error {
	return s.write(ctx, currentUserKey, user)
}

// read unmarshals the value under key into out. Failures are logged and
// swallowed so callers see the empty default.
func (s *Store) read(ctx context.Context, key string, out any) bool {
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		log.Printf("warning: read %s failed: %v", key, err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		log.Printf("warning: decode %s failed: %v", key, err)
		return false
	}
	return true
}

// write marshals v under key. Write failures propagate to the caller.
func (s *Store) write(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, string(raw)); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
