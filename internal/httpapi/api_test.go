package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"timetrack/internal/config"
	"timetrack/internal/kvstore"
	"timetrack/internal/queue"
	"timetrack/internal/timetrack"
)

var testTime = time.Date(2026, time.August, 12, 8, 0, 0, 0, time.UTC)

type testServer struct {
	router *gin.Engine
	now    *time.Time
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.App{
		JWTIssuer:          "timetrack",
		JWTSigningKey:      "test-secret",
		AccessTTL:          time.Hour,
		RateLimitPerMin:    10000,
		PunctualityPercent: 95,
	}
	now := testTime
	clock := func() time.Time { return now }
	kv := kvstore.NewMemory()
	store := timetrack.NewStore(kv).WithClock(clock)
	handler := New(cfg, store, kv, queue.NewInMemory(64)).WithClock(clock)
	return &testServer{router: NewRouter(handler), now: &now}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var decoded map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	}
	return w, decoded
}

func (s *testServer) register(t *testing.T, name, email string) string {
	t.Helper()
	w, body := s.do(t, http.MethodPost, "/v1/auth/register", "", gin.H{
		"name": name, "email": email, "password": "pw123456",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	token, _ := body["access_token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)
	w, _ := s.do(t, http.MethodGet, "/v1/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterAndMe(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "Jane", "jane@x.com")

	w, body := s.do(t, http.MethodGet, "/v1/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	user := body["user"].(map[string]any)
	require.Equal(t, "jane@x.com", user["email"])
	require.NotContains(t, user, "password")
}

func TestRegisterDuplicateEmailConflict(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "Jane", "jane@x.com")

	w, _ := s.do(t, http.MethodPost, "/v1/auth/register", "", gin.H{
		"name": "Other", "email": "jane@x.com", "password": "pw123456",
	})
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "Jane", "jane@x.com")

	w, _ := s.do(t, http.MethodPost, "/v1/auth/login", "", gin.H{
		"email": "jane@x.com", "password": "nope123",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdateProfileIgnoresEmail(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "Jane", "jane@x.com")

	w, body := s.do(t, http.MethodPut, "/v1/me", token, gin.H{
		"name": "Jane D.", "email": "other@x.com", "phone": "555-0100",
	})
	require.Equal(t, http.StatusOK, w.Code)
	user := body["user"].(map[string]any)
	require.Equal(t, "Jane D.", user["name"])
	require.Equal(t, "jane@x.com", user["email"])
}

func TestClockInOutFlow(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "Jane", "jane@x.com")

	w, body := s.do(t, http.MethodPost, "/v1/attendance/clock-in", token, gin.H{"location": "HQ"})
	require.Equal(t, http.StatusCreated, w.Code)
	rec := body["record"].(map[string]any)
	require.Equal(t, "incomplete", rec["status"])
	require.Equal(t, "Today, August 12, 2026", rec["date"])
	require.Equal(t, "N/A", rec["duration"])

	// Double tap is refused, not duplicated.
	w, _ = s.do(t, http.MethodPost, "/v1/attendance/clock-in", token, gin.H{"location": "HQ"})
	require.Equal(t, http.StatusConflict, w.Code)

	w, _ = s.do(t, http.MethodGet, "/v1/attendance/open", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	*s.now = testTime.Add(8*time.Hour + 30*time.Minute)
	w, body = s.do(t, http.MethodPost, "/v1/attendance/clock-out", token, gin.H{"location": "HQ"})
	require.Equal(t, http.StatusOK, w.Code)
	rec = body["record"].(map[string]any)
	require.Equal(t, "complete", rec["status"])
	require.Equal(t, "8h 30m", rec["duration"])

	w, _ = s.do(t, http.MethodGet, "/v1/attendance/open", token, nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w, body = s.do(t, http.MethodGet, "/v1/attendance/summary", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, float64(9), body["hours_this_week"]) // 8.5 rounded
	require.Equal(t, float64(95), body["on_time_percentage"])
}

func TestClockOutWithoutOpenRecord(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "Jane", "jane@x.com")

	w, _ := s.do(t, http.MethodPost, "/v1/attendance/clock-out", token, gin.H{"location": "HQ"})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestListRecordsWithFilters(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "Jane", "jane@x.com")

	s.do(t, http.MethodPost, "/v1/attendance/clock-in", token, gin.H{"location": "HQ"})
	*s.now = testTime.Add(8 * time.Hour)
	s.do(t, http.MethodPost, "/v1/attendance/clock-out", token, gin.H{"location": "HQ"})

	w, body := s.do(t, http.MethodGet, "/v1/attendance?status=complete", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, body["records"], 1)

	w, body = s.do(t, http.MethodGet, "/v1/attendance?status=incomplete", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, body["records"])
}

func TestListRecordsUnknownRange(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "Jane", "jane@x.com")

	w, _ := s.do(t, http.MethodGet, "/v1/attendance?range=fortnight", token, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestClockOutOnlyOwnRecords(t *testing.T) {
	s := newTestServer(t)
	janeToken := s.register(t, "Jane", "jane@x.com")
	_, body := s.do(t, http.MethodPost, "/v1/attendance/clock-in", janeToken, gin.H{"location": "HQ"})
	janeRec := body["record"].(map[string]any)["id"].(string)

	*s.now = testTime.Add(time.Minute)
	bobToken := s.register(t, "Bob", "bob@x.com")

	w, _ := s.do(t, http.MethodPost, "/v1/attendance/clock-out", bobToken, gin.H{
		"location": "Elsewhere", "record_id": janeRec,
	})
	require.Equal(t, http.StatusNotFound, w.Code)

	// Jane's record is untouched and still open.
	w, body = s.do(t, http.MethodGet, "/v1/attendance/open", janeToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	rec := body["record"].(map[string]any)
	require.Equal(t, "incomplete", rec["status"])
	require.Equal(t, "HQ", rec["location"])
}

func TestDeleteRecords(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "Jane", "jane@x.com")

	_, body := s.do(t, http.MethodPost, "/v1/attendance/clock-in", token, gin.H{"location": "HQ"})
	recID := body["record"].(map[string]any)["id"].(string)

	w, body := s.do(t, http.MethodDelete, "/v1/attendance", token, gin.H{"ids": []string{recID}})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, float64(1), body["deleted"])

	w, body = s.do(t, http.MethodGet, "/v1/attendance", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, body["records"])
}

func TestDeleteOnlyOwnRecords(t *testing.T) {
	s := newTestServer(t)
	janeToken := s.register(t, "Jane", "jane@x.com")
	_, body := s.do(t, http.MethodPost, "/v1/attendance/clock-in", janeToken, gin.H{"location": "HQ"})
	janeRec := body["record"].(map[string]any)["id"].(string)

	*s.now = testTime.Add(time.Minute)
	bobToken := s.register(t, "Bob", "bob@x.com")

	w, body := s.do(t, http.MethodDelete, "/v1/attendance", bobToken, gin.H{"ids": []string{janeRec}})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, float64(0), body["deleted"])
}

func TestExport(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "Jane", "jane@x.com")

	s.do(t, http.MethodPost, "/v1/attendance/clock-in", token, gin.H{"location": "HQ"})
	*s.now = testTime.Add(8*time.Hour + 30*time.Minute)
	s.do(t, http.MethodPost, "/v1/attendance/clock-out", token, gin.H{"location": "HQ"})

	w, body := s.do(t, http.MethodGet, "/v1/attendance/export?range=month", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Attendance_Report_This_Month_2026-08-12", body["filename"])
	text := body["body"].(string)
	require.Contains(t, text, "Duration: 8h 30m")
	require.Contains(t, text, "Status: complete")
}

func TestExportEmpty(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "Jane", "jane@x.com")

	w, _ := s.do(t, http.MethodGet, "/v1/attendance/export", token, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	w, body := s.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "ok", fmt.Sprint(body["status"]))
}
