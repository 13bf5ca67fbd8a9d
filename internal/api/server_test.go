package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"coworkd/internal/auth"
	"coworkd/internal/booking"
	"coworkd/internal/config"
	"coworkd/internal/database"
	"coworkd/internal/models"
	"coworkd/internal/repository"
	"coworkd/internal/service"
	"coworkd/internal/worker"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	*httptest.Server
	db *database.DB
}

type responseEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func newTestServer(t *testing.T, serverCfg config.ServerConfig) *testServer {
	t.Helper()
	logger := zerolog.Nop()

	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	bangkok, err := time.LoadLocation("Asia/Bangkok")
	require.NoError(t, err)

	exporter := worker.NewExportWorker(db, t.TempDir(), worker.RetryPolicy{}, &logger)
	bookings := booking.NewService(db, db, nil, exporter, booking.Config{Location: bangkok, Quota: 3}, &logger)
	spaces := service.NewSpaceService(db, nil, exporter, &logger)
	users := service.NewUserService(db)
	tokens := auth.NewManager("test-secret", time.Hour)
	tokenStore := repository.NewMemoryTokenStore()

	server := NewServer(bookings, spaces, users, db, tokens, tokenStore, exporter, serverCfg, &logger)
	t.Cleanup(server.Close)

	ts := httptest.NewServer(server.Router())
	t.Cleanup(ts.Close)

	return &testServer{Server: ts, db: db}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) (int, responseEnvelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var envelope responseEnvelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return resp.StatusCode, envelope
}

func (ts *testServer) registerUser(t *testing.T, email, role string) string {
	t.Helper()
	status, envelope := ts.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name":     "Test User",
		"email":    email,
		"password": "secret1",
		"role":     role,
	})
	require.Equal(t, http.StatusCreated, status)

	var resp tokenResponse
	require.NoError(t, json.Unmarshal(envelope.Data, &resp))
	return resp.Token
}

func (ts *testServer) createSpace(t *testing.T, adminToken, name string) int64 {
	t.Helper()
	status, envelope := ts.do(t, http.MethodPost, "/api/v1/coworkingspaces", adminToken, map[string]interface{}{
		"name":             name,
		"address":          "123 Sukhumvit Rd, Bangkok",
		"telephone_number": "0812345678",
		"openTime":         "09:00",
		"closeTime":        "17:00",
	})
	require.Equal(t, http.StatusCreated, status)

	var space models.CoworkingSpace
	require.NoError(t, json.Unmarshal(envelope.Data, &space))
	return space.ID
}

// Windows expressed in UTC; Bangkok is UTC+7, so 02:00Z-10:00Z covers the
// posted 09:00-17:00 hours exactly.
func reservationBody(room int, start, end string) map[string]interface{} {
	return map[string]interface{}{
		"room_number": room,
		"startTime":   start,
		"endTime":     end,
	}
}

func TestAuthFlow(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{})

	token := ts.registerUser(t, "somchai@example.com", "")

	status, envelope := ts.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	var user models.User
	require.NoError(t, json.Unmarshal(envelope.Data, &user))
	assert.Equal(t, "somchai@example.com", user.Email)
	assert.Equal(t, models.RoleUser, user.Role)

	// Login works with the registered credentials.
	status, envelope = ts.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "somchai@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusOK, status)
	assert.True(t, envelope.Success)

	// Logout revokes the presented token.
	status, _ = ts.do(t, http.MethodGet, "/api/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = ts.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAuthRejections(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{})

	status, envelope := ts.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name": "A", "email": "not-an-email", "password": "secret1",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, envelope.Success)
	assert.NotEmpty(t, envelope.Message)

	ts.registerUser(t, "somchai@example.com", "")
	status, _ = ts.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "somchai@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = ts.do(t, http.MethodGet, "/api/v1/reservations", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = ts.do(t, http.MethodGet, "/api/v1/reservations", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestSpaceRoutes(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{})
	admin := ts.registerUser(t, "admin@example.com", models.RoleAdmin)
	user := ts.registerUser(t, "user@example.com", "")

	// Mutations are admin-only.
	status, _ := ts.do(t, http.MethodPost, "/api/v1/coworkingspaces", user, map[string]string{"name": "Nope"})
	assert.Equal(t, http.StatusUnauthorized, status)

	spaceID := ts.createSpace(t, admin, "The Hive")

	// Reads are public.
	status, envelope := ts.do(t, http.MethodGet, "/api/v1/coworkingspaces", "", nil)
	require.Equal(t, http.StatusOK, status)
	var spaces []models.CoworkingSpace
	require.NoError(t, json.Unmarshal(envelope.Data, &spaces))
	assert.Len(t, spaces, 1)

	status, _ = ts.do(t, http.MethodGet, fmt.Sprintf("/api/v1/coworkingspaces/%d", spaceID), user, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = ts.do(t, http.MethodGet, "/api/v1/coworkingspaces/9999", user, nil)
	assert.Equal(t, http.StatusNotFound, status)

	// Validation failures are client errors.
	status, envelope = ts.do(t, http.MethodPost, "/api/v1/coworkingspaces", admin, map[string]interface{}{
		"name": "Bad Hours", "address": "x", "telephone_number": "0812345678",
		"openTime": "17:00", "closeTime": "09:00",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, envelope.Message, "opening hours")

	status, _ = ts.do(t, http.MethodPut, fmt.Sprintf("/api/v1/coworkingspaces/%d", spaceID), admin, map[string]interface{}{
		"name": "The Hive", "address": "New address", "telephone_number": "0812345678",
		"openTime": "08:00", "closeTime": "18:00",
	})
	assert.Equal(t, http.StatusOK, status)

	status, _ = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/coworkingspaces/%d", spaceID), admin, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/coworkingspaces/%d", spaceID), admin, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestReservationLifecycle(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{})
	admin := ts.registerUser(t, "admin@example.com", models.RoleAdmin)
	alice := ts.registerUser(t, "alice@example.com", "")
	bob := ts.registerUser(t, "bob@example.com", "")
	spaceID := ts.createSpace(t, admin, "The Hive")

	base := fmt.Sprintf("/api/v1/coworkingspaces/%d/reservations", spaceID)

	status, envelope := ts.do(t, http.MethodPost, base, alice,
		reservationBody(101, "2024-03-01T03:00:00Z", "2024-03-01T05:00:00Z"))
	require.Equal(t, http.StatusCreated, status)
	var created models.Reservation
	require.NoError(t, json.Unmarshal(envelope.Data, &created))
	assert.Equal(t, 101, created.RoomNumber)

	// Out of the posted 09:00-17:00 Bangkok hours.
	status, envelope = ts.do(t, http.MethodPost, base, alice,
		reservationBody(102, "2024-03-01T00:00:00Z", "2024-03-01T02:00:00Z"))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, envelope.Message, "opening hours")

	// Overlapping the same room.
	status, envelope = ts.do(t, http.MethodPost, base, bob,
		reservationBody(101, "2024-03-01T04:00:00Z", "2024-03-01T06:00:00Z"))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, envelope.Message, "already reserved")

	// Start must precede end.
	status, _ = ts.do(t, http.MethodPost, base, alice,
		reservationBody(103, "2024-03-01T05:00:00Z", "2024-03-01T03:00:00Z"))
	assert.Equal(t, http.StatusBadRequest, status)

	// Missing space.
	status, _ = ts.do(t, http.MethodPost, "/api/v1/coworkingspaces/9999/reservations", alice,
		reservationBody(1, "2024-03-01T03:00:00Z", "2024-03-01T05:00:00Z"))
	assert.Equal(t, http.StatusNotFound, status)

	// Quota of three.
	for room := 200; room < 202; room++ {
		status, _ = ts.do(t, http.MethodPost, base, alice,
			reservationBody(room, "2024-03-01T03:00:00Z", "2024-03-01T05:00:00Z"))
		require.Equal(t, http.StatusCreated, status)
	}
	status, envelope = ts.do(t, http.MethodPost, base, alice,
		reservationBody(300, "2024-03-01T03:00:00Z", "2024-03-01T05:00:00Z"))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, envelope.Message, "already made")

	// Users list their own; admins list everything.
	status, envelope = ts.do(t, http.MethodGet, "/api/v1/reservations", alice, nil)
	require.Equal(t, http.StatusOK, status)
	var mine []models.Reservation
	require.NoError(t, json.Unmarshal(envelope.Data, &mine))
	assert.Len(t, mine, 3)

	// Owner updates; strangers are rejected.
	path := fmt.Sprintf("/api/v1/reservations/%d", created.ID)
	status, _ = ts.do(t, http.MethodPut, path, bob,
		reservationBody(0, "2024-03-01T06:00:00Z", "2024-03-01T08:00:00Z"))
	assert.Equal(t, http.StatusUnauthorized, status)
	status, envelope = ts.do(t, http.MethodPut, path, alice,
		reservationBody(0, "2024-03-01T06:00:00Z", "2024-03-01T08:00:00Z"))
	require.Equal(t, http.StatusOK, status)
	var updated models.Reservation
	require.NoError(t, json.Unmarshal(envelope.Data, &updated))
	assert.Greater(t, updated.Version, created.Version)

	// Owner deletes; a second delete is a 404.
	status, _ = ts.do(t, http.MethodDelete, path, bob, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = ts.do(t, http.MethodDelete, path, alice, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = ts.do(t, http.MethodDelete, path, alice, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestReservationSearch(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{})
	admin := ts.registerUser(t, "admin@example.com", models.RoleAdmin)
	alice := ts.registerUser(t, "alice@example.com", "")
	spaceID := ts.createSpace(t, admin, "The Hive")

	base := fmt.Sprintf("/api/v1/coworkingspaces/%d/reservations", spaceID)
	status, _ := ts.do(t, http.MethodPost, base, alice,
		reservationBody(101, "2024-03-01T03:00:00Z", "2024-03-01T05:00:00Z"))
	require.Equal(t, http.StatusCreated, status)

	status, envelope := ts.do(t, http.MethodGet,
		"/api/v1/reservations/search?startTime=2024-03-01T04:00:00Z&endTime=2024-03-01T06:00:00Z", alice, nil)
	require.Equal(t, http.StatusOK, status)
	var found []models.Reservation
	require.NoError(t, json.Unmarshal(envelope.Data, &found))
	assert.Len(t, found, 1)

	status, _ = ts.do(t, http.MethodGet,
		"/api/v1/reservations/search?startTime=2024-03-01T05:00:00Z&endTime=2024-03-01T06:00:00Z", alice, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = ts.do(t, http.MethodGet, "/api/v1/reservations/search?startTime=bad", alice, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAuditRoutes(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{})
	admin := ts.registerUser(t, "admin@example.com", models.RoleAdmin)
	alice := ts.registerUser(t, "alice@example.com", "")
	spaceID := ts.createSpace(t, admin, "The Hive")

	base := fmt.Sprintf("/api/v1/coworkingspaces/%d/reservations", spaceID)
	status, envelope := ts.do(t, http.MethodPost, base, alice,
		reservationBody(101, "2024-03-01T03:00:00Z", "2024-03-01T05:00:00Z"))
	require.Equal(t, http.StatusCreated, status)
	var created models.Reservation
	require.NoError(t, json.Unmarshal(envelope.Data, &created))

	status, _ = ts.do(t, http.MethodGet, "/api/v1/audit", alice, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, envelope = ts.do(t, http.MethodGet, "/api/v1/audit", admin, nil)
	require.Equal(t, http.StatusOK, status)
	var entries []models.AuditLogEntry
	require.NoError(t, json.Unmarshal(envelope.Data, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, models.ActionCreate, entries[0].Action)

	status, _ = ts.do(t, http.MethodGet, fmt.Sprintf("/api/v1/reservations/%d/audit", created.ID), admin, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = ts.do(t, http.MethodGet, "/api/v1/reservations/9999/audit", admin, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestExportRoute(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{})
	admin := ts.registerUser(t, "admin@example.com", models.RoleAdmin)
	alice := ts.registerUser(t, "alice@example.com", "")

	status, _ := ts.do(t, http.MethodGet, "/api/v1/reservations/export", alice, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/reservations/export", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+admin)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "spreadsheetml")
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{
		RateLimit: config.RateLimitConfig{RPS: 1, Burst: 1},
	})

	status, _ := ts.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, status)

	status, envelope := ts.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Contains(t, envelope.Message, "too many requests")
}

func TestRateLimitConcurrentClients(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{
		RateLimit: config.RateLimitConfig{RPS: 1000, Burst: 1000},
	})

	// All requests share one remote IP, so every goroutine hits the same
	// limiter entry at once.
	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := http.Get(ts.URL + "/healthz")
			if err != nil {
				errs <- err
				return
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				errs <- fmt.Errorf("unexpected status %d", resp.StatusCode)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{})
	status, envelope := ts.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, envelope.Success)
}
