// internal/server/server_test.go
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FreakyLetsFail/NKalendar/internal/common/logger"
	"github.com/FreakyLetsFail/NKalendar/internal/models"
)

// ==========================
// Mock Implementations
// ==========================

type MockScanRunner struct {
	RunFunc func(ctx context.Context) (int, error)
}

func (m *MockScanRunner) Run(ctx context.Context) (int, error) {
	return m.RunFunc(ctx)
}

type MockSubscriptionStore struct {
	SaveFunc   func(ctx context.Context, sub models.Subscription) error
	RemoveFunc func(ctx context.Context, endpoint string) error
	AllFunc    func(ctx context.Context) ([]models.Subscription, error)
}

func (m *MockSubscriptionStore) Save(ctx context.Context, sub models.Subscription) error {
	return m.SaveFunc(ctx, sub)
}

func (m *MockSubscriptionStore) Remove(ctx context.Context, endpoint string) error {
	return m.RemoveFunc(ctx, endpoint)
}

func (m *MockSubscriptionStore) All(ctx context.Context) ([]models.Subscription, error) {
	return m.AllFunc(ctx)
}

type MockRegistrationStore struct {
	SaveFunc func(ctx context.Context, reg models.EventRegistration) error
}

func (m *MockRegistrationStore) Save(ctx context.Context, reg models.EventRegistration) error {
	return m.SaveFunc(ctx, reg)
}

type MockBroadcaster struct {
	DispatchFunc func(ctx context.Context, sub models.Subscription, payload models.PushPayload) error
}

func (m *MockBroadcaster) Dispatch(ctx context.Context, sub models.Subscription, payload models.PushPayload) error {
	return m.DispatchFunc(ctx, sub, payload)
}

type serverFixture struct {
	scanner       *MockScanRunner
	subscriptions *MockSubscriptionStore
	registrations *MockRegistrationStore
	broadcaster   *MockBroadcaster
	handler       http.Handler
}

func newServerFixture(t *testing.T, adminToken string) *serverFixture {
	t.Helper()
	f := &serverFixture{
		scanner:       &MockScanRunner{},
		subscriptions: &MockSubscriptionStore{},
		registrations: &MockRegistrationStore{},
		broadcaster:   &MockBroadcaster{},
	}
	srv := New(
		Config{AdminToken: adminToken},
		f.scanner,
		f.subscriptions,
		f.subscriptions,
		f.registrations,
		f.broadcaster,
		logger.NewTestLogger(t),
	)
	f.handler = srv.Handler()
	return f
}

func (f *serverFixture) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

const validSubscriptionJSON = `{
	"endpoint": "https://push.example.com/abc",
	"keys": {"p256dh": "BNcRd...key", "auth": "tBHI...auth"}
}`

// ==========================
// Trigger Endpoint Tests
// ==========================

func TestHandleNotifyRun(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		run        func(ctx context.Context) (int, error)
		wantStatus int
		check      func(t *testing.T, body map[string]interface{})
	}{
		{
			name:       "GET reports sent count",
			method:     http.MethodGet,
			run:        func(ctx context.Context) (int, error) { return 3, nil },
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, true, body["success"])
				assert.Equal(t, float64(3), body["sent"])
			},
		},
		{
			name:       "POST works the same",
			method:     http.MethodPost,
			run:        func(ctx context.Context) (int, error) { return 0, nil },
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, true, body["success"])
				assert.Equal(t, float64(0), body["sent"])
			},
		},
		{
			name:       "store failure returns 500",
			method:     http.MethodGet,
			run:        func(ctx context.Context) (int, error) { return 0, errors.New("store unreachable") },
			wantStatus: http.StatusInternalServerError,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, false, body["success"])
				assert.Contains(t, body["error"], "store unreachable")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServerFixture(t, "")
			f.scanner.RunFunc = tt.run

			rec := f.do(tt.method, "/notify/run", "", nil)
			assert.Equal(t, tt.wantStatus, rec.Code)
			tt.check(t, decodeBody(t, rec))
		})
	}
}

func TestHandleNotifyRun_MethodNotAllowed(t *testing.T) {
	f := newServerFixture(t, "")
	rec := f.do(http.MethodDelete, "/notify/run", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

// ==========================
// Custom Broadcast Tests
// ==========================

func TestHandleNotifyCustom(t *testing.T) {
	pool := []models.Subscription{
		{Endpoint: "https://push.example.com/1"},
		{Endpoint: "https://push.example.com/2"},
		{Endpoint: "https://push.example.com/3"},
	}

	f := newServerFixture(t, "secret-token")
	f.subscriptions.AllFunc = func(ctx context.Context) ([]models.Subscription, error) {
		return pool, nil
	}
	f.broadcaster.DispatchFunc = func(ctx context.Context, sub models.Subscription, payload models.PushPayload) error {
		assert.Equal(t, "Maintenance", payload.Title)
		assert.Equal(t, "Doors open at 19:00", payload.Body)
		if sub.Endpoint == pool[1].Endpoint {
			return errors.New("delivery failed")
		}
		return nil
	}

	rec := f.do(http.MethodPost, "/notify/custom",
		`{"title":"Maintenance","message":"Doors open at 19:00"}`,
		map[string]string{"Authorization": "Bearer secret-token"})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(2), body["sent"], "only successful deliveries are counted")
}

func TestHandleNotifyCustom_Auth(t *testing.T) {
	tests := []struct {
		name       string
		token      string
		header     string
		wantStatus int
	}{
		{name: "missing header", token: "secret", header: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong token", token: "secret", header: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "no token configured rejects all", token: "", header: "Bearer anything", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServerFixture(t, tt.token)
			headers := map[string]string{}
			if tt.header != "" {
				headers["Authorization"] = tt.header
			}
			rec := f.do(http.MethodPost, "/notify/custom", `{"title":"t","message":"m"}`, headers)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestHandleNotifyCustom_BadRequest(t *testing.T) {
	f := newServerFixture(t, "secret")
	headers := map[string]string{"Authorization": "Bearer secret"}

	rec := f.do(http.MethodPost, "/notify/custom", `{"title":"only"}`, headers)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/notify/custom", `{broken`, headers)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ==========================
// Subscription API Tests
// ==========================

func TestHandleSubscriptions_Save(t *testing.T) {
	f := newServerFixture(t, "")

	var saved models.Subscription
	f.subscriptions.SaveFunc = func(ctx context.Context, sub models.Subscription) error {
		saved = sub
		return nil
	}

	rec := f.do(http.MethodPost, "/subscriptions", validSubscriptionJSON, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://push.example.com/abc", saved.Endpoint)
	assert.Equal(t, "BNcRd...key", saved.Keys.P256dh)
}

func TestHandleSubscriptions_RejectsInvalidDescriptor(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing keys", body: `{"endpoint":"https://push.example.com/abc"}`},
		{name: "missing auth key", body: `{"endpoint":"https://push.example.com/abc","keys":{"p256dh":"x"}}`},
		{name: "non-https endpoint", body: `{"endpoint":"ftp://push.example.com","keys":{"p256dh":"x","auth":"y"}}`},
		{name: "not JSON", body: `subscribe me`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServerFixture(t, "")
			f.subscriptions.SaveFunc = func(ctx context.Context, sub models.Subscription) error {
				t.Fatal("an invalid descriptor must not reach the store")
				return nil
			}
			rec := f.do(http.MethodPost, "/subscriptions", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHandleSubscriptions_Remove(t *testing.T) {
	f := newServerFixture(t, "")

	var removed string
	f.subscriptions.RemoveFunc = func(ctx context.Context, endpoint string) error {
		removed = endpoint
		return nil
	}

	rec := f.do(http.MethodDelete, "/subscriptions", `{"endpoint":"https://push.example.com/abc"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://push.example.com/abc", removed)
}

func TestHandleSubscriptions_RemoveRequiresEndpoint(t *testing.T) {
	f := newServerFixture(t, "")
	rec := f.do(http.MethodDelete, "/subscriptions", `{}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ==========================
// Registration API Tests
// ==========================

func TestHandleRegistrations_Save(t *testing.T) {
	f := newServerFixture(t, "")

	var saved models.EventRegistration
	f.registrations.SaveFunc = func(ctx context.Context, reg models.EventRegistration) error {
		saved = reg
		return nil
	}

	body := `{"event_id":"e-1","name":"Alex","subscription":` + validSubscriptionJSON + `}`
	rec := f.do(http.MethodPost, "/registrations", body, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "e-1", saved.EventID)
	assert.Equal(t, "Alex", saved.Name)
	require.NotNil(t, saved.Subscription)
	assert.Equal(t, "https://push.example.com/abc", saved.Subscription.Endpoint)
}

func TestHandleRegistrations_RequiresEventID(t *testing.T) {
	f := newServerFixture(t, "")
	rec := f.do(http.MethodPost, "/registrations", `{"name":"Alex"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ==========================
// Health Endpoint Tests
// ==========================

func TestHealthEndpoints(t *testing.T) {
	f := newServerFixture(t, "")

	rec := f.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decodeBody(t, rec)["status"])

	rec = f.do(http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
