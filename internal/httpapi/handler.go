// Package httpapi exposes the record store over HTTP. It is the caller
// that presents typed store failures to end users.
package httpapi

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"timetrack/internal/auth"
	"timetrack/internal/config"
	"timetrack/internal/kvstore"
	"timetrack/internal/metrics"
	"timetrack/internal/model"
	"timetrack/internal/queue"
	"timetrack/internal/report"
	"timetrack/internal/stats"
	"timetrack/internal/timetrack"
)

// Handler carries the dependencies shared by all routes.
type Handler struct {
	cfg   config.App
	store *timetrack.Store
	kv    kvstore.Store
	queue queue.Queue
	now   func() time.Time
}

// New creates a handler set.
func New(cfg config.App, store *timetrack.Store, kv kvstore.Store, q queue.Queue) *Handler {
	return &Handler{cfg: cfg, store: store, kv: kv, queue: q, now: time.Now}
}

// WithClock overrides the time source, for tests.
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}

// userView strips the password from API responses.
type userView struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Location string `json:"location,omitempty"`
}

func toUserView(u model.User) userView {
	return userView{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone, Location: u.Location}
}

// recordView adds the relative date label derived at read time.
type recordView struct {
	model.AttendanceRecord
	Date string `json:"date"`
}

func (h *Handler) toRecordView(rec model.AttendanceRecord) recordView {
	return recordView{AttendanceRecord: rec, Date: stats.DateLabel(rec.ClockInAt, h.now())}
}

func (h *Handler) toRecordViews(records []model.AttendanceRecord) []recordView {
	views := make([]recordView, 0, len(records))
	for _, rec := range records {
		views = append(views, h.toRecordView(rec))
	}
	return views
}

// ---------- Health ----------

// Healthz reports storage reachability.
func (h *Handler) Healthz(c *gin.Context) {
	healthy := h.kv.Healthy(c.Request.Context())
	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"status": "ok", "store": healthy})
}

// ---------- Auth ----------

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
}

// Register creates an account and logs it in.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.store.RegisterUser(c.Request.Context(), timetrack.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		Location: req.Location,
	})
	if err != nil {
		if errors.Is(err, timetrack.ErrDuplicateEmail) {
			metrics.AuthFailures.Inc()
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.respondWithToken(c, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login matches credentials and sets the current user.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.store.LoginUser(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, timetrack.ErrInvalidCredentials) {
			metrics.AuthFailures.Inc()
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.respondWithToken(c, http.StatusOK, user)
}

func (h *Handler) respondWithToken(c *gin.Context, status int, user model.User) {
	token, err := auth.Issue(user.ID, h.cfg.JWTIssuer, h.cfg.JWTSigningKey, h.cfg.AccessTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	c.JSON(status, gin.H{
		"user":         toUserView(user),
		"access_token": token.Value,
		"expires_at":   token.ExpiresAt.Unix(),
	})
}

// Logout clears the current-user pointer.
func (h *Handler) Logout(c *gin.Context) {
	if err := h.store.LogoutUser(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// ---------- Profile ----------

// Me returns the authenticated account.
func (h *Handler) Me(c *gin.Context) {
	userID, _ := auth.UserID(c)
	for _, u := range h.store.ListUsers(c.Request.Context()) {
		if u.ID == userID {
			c.JSON(http.StatusOK, gin.H{"user": toUserView(u)})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": timetrack.ErrUserNotFound.Error()})
}

type updateProfileRequest struct {
	Name     *string `json:"name"`
	Password *string `json:"password"`
	Phone    *string `json:"phone"`
	Location *string `json:"location"`
}

// UpdateMe merges profile fields over the authenticated account. The
// email field is not accepted; it is immutable.
func (h *Handler) UpdateMe(c *gin.Context) {
	userID, _ := auth.UserID(c)
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.store.UpdateUserProfile(c.Request.Context(), userID, timetrack.ProfileUpdate{
		Name:     req.Name,
		Password: req.Password,
		Phone:    req.Phone,
		Location: req.Location,
	})
	if err != nil {
		if errors.Is(err, timetrack.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": toUserView(user)})
}

// ---------- Attendance ----------

type clockRequest struct {
	Location string `json:"location" binding:"required"`
	RecordID string `json:"record_id"`
}

// ClockIn opens an attendance record at the captured location.
func (h *Handler) ClockIn(c *gin.Context) {
	userID, _ := auth.UserID(c)
	var req clockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := h.store.ClockIn(c.Request.Context(), userID, req.Location)
	if err != nil {
		if errors.Is(err, timetrack.ErrAlreadyClockedIn) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	metrics.ClockIns.Inc()
	h.publish(c, queue.Event{
		Type: queue.TypeClockIn, RecordID: rec.ID, UserID: userID,
		Location: rec.Location, At: rec.ClockInAt,
	})
	c.JSON(http.StatusCreated, gin.H{"record": h.toRecordView(rec)})
}

// ClockOut completes the user's open record, or a specific record when
// the request names one.
func (h *Handler) ClockOut(c *gin.Context) {
	userID, _ := auth.UserID(c)
	var req clockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	recordID := req.RecordID
	if recordID == "" {
		open, ok := h.store.OpenRecord(c.Request.Context(), userID)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "no open attendance record"})
			return
		}
		recordID = open.ID
	} else if !h.ownsRecord(c, userID, recordID) {
		// A record belonging to someone else looks like a missing one.
		c.JSON(http.StatusNotFound, gin.H{"error": timetrack.ErrRecordNotFound.Error()})
		return
	}

	rec, err := h.store.ClockOut(c.Request.Context(), recordID, req.Location)
	if err != nil {
		if errors.Is(err, timetrack.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	metrics.ClockOuts.Inc()
	h.publish(c, queue.Event{
		Type: queue.TypeClockOut, RecordID: rec.ID, UserID: userID,
		Location: rec.Location, At: h.now(),
	})
	c.JSON(http.StatusOK, gin.H{"record": h.toRecordView(rec)})
}

func (h *Handler) ownsRecord(c *gin.Context, userID int, recordID string) bool {
	for _, rec := range h.store.ListUserRecords(c.Request.Context(), userID) {
		if rec.ID == recordID {
			return true
		}
	}
	return false
}

// OpenRecord returns the user's open record, if any.
func (h *Handler) OpenRecord(c *gin.Context) {
	userID, _ := auth.UserID(c)
	rec, ok := h.store.OpenRecord(c.Request.Context(), userID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no open attendance record"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"record": h.toRecordView(rec)})
}

// ListRecords returns the user's records, query filters applied.
func (h *Handler) ListRecords(c *gin.Context) {
	userID, _ := auth.UserID(c)
	rng := c.Query("range")
	if !timetrack.ValidRange(rng) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown range"})
		return
	}
	filter := timetrack.Filter{
		Status:   c.Query("status"),
		Location: c.Query("location"),
		Range:    rng,
	}
	records := filter.Apply(h.store.ListUserRecords(c.Request.Context(), userID), h.now())
	c.JSON(http.StatusOK, gin.H{"records": h.toRecordViews(records)})
}

type deleteRequest struct {
	IDs []string `json:"ids"`
}

// DeleteRecords removes the selected records, or all of the user's
// records with ?all=true. Only records owned by the caller are deleted.
func (h *Handler) DeleteRecords(c *gin.Context) {
	userID, _ := auth.UserID(c)
	ctx := c.Request.Context()

	if c.Query("all") == "true" {
		deleted, err := h.store.DeleteUserRecords(ctx, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": deleted})
		return
	}

	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.IDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "provide ids or ?all=true"})
		return
	}

	owned := make(map[string]struct{})
	for _, rec := range h.store.ListUserRecords(ctx, userID) {
		owned[rec.ID] = struct{}{}
	}
	ids := req.IDs[:0]
	for _, id := range req.IDs {
		if _, ok := owned[id]; ok {
			ids = append(ids, id)
		}
	}

	deleted, err := h.store.DeleteRecords(ctx, ids)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// Summary returns the weekly/monthly aggregates for the dashboard.
func (h *Handler) Summary(c *gin.Context) {
	userID, _ := auth.UserID(c)
	records := h.store.ListUserRecords(c.Request.Context(), userID)
	c.JSON(http.StatusOK, stats.Summarize(records, h.now(), h.cfg.PunctualityPercent))
}

var exportRangeLabels = map[string]string{
	timetrack.RangeToday: "Today",
	timetrack.RangeWeek:  "This_Week",
	timetrack.RangeMonth: "This_Month",
	timetrack.RangeAll:   "All",
	"":                   "All",
}

// Export renders the user's records as a shareable text report.
func (h *Handler) Export(c *gin.Context) {
	userID, _ := auth.UserID(c)
	rng := c.Query("range")
	label, ok := exportRangeLabels[rng]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown range"})
		return
	}

	now := h.now()
	filter := timetrack.Filter{Range: rng}
	records := filter.Apply(h.store.ListUserRecords(c.Request.Context(), userID), now)
	if len(records) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no attendance records to export"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"filename": report.Filename(label, now),
		"body":     report.Render(records, now),
	})
}

func (h *Handler) publish(c *gin.Context, evt queue.Event) {
	if h.queue == nil {
		return
	}
	if err := h.queue.Publish(c.Request.Context(), evt); err != nil {
		log.Printf("queue publish failed: %v", err)
	}
}
