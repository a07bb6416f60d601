package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"shopfloor/internal/mockodata"
	"shopfloor/internal/model"
	"shopfloor/internal/mw"
	"shopfloor/internal/notify"
	"shopfloor/internal/odata"
	"shopfloor/internal/service"
)

const testSecret = "test-secret"

type memStore struct {
	mu       sync.Mutex
	sessions map[string]model.Session
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[string]model.Session)}
}

func (m *memStore) Create(_ context.Context, sess model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
	return nil
}

func (m *memStore) Close(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return errors.New("unknown session")
	}
	sess.LoggedOutAt = &at
	m.sessions[id] = sess
	return nil
}

func (m *memStore) ListByUser(_ context.Context, userID string, limit int) ([]model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Session
	for _, s := range m.sessions {
		if s.UserID == userID && len(out) < limit {
			out = append(out, s)
		}
	}
	return out, nil
}

type testEnv struct {
	backend  *mockodata.Server
	registry *service.SessionRegistry
	hub      *notify.Hub
	store    *memStore
	server   *httptest.Server
}

func fixtures() mockodata.Fixtures {
	return mockodata.Fixtures{
		Users: []mockodata.FixtureUser{{ID: "JSMITH", Password: "s3cret"}},
		PlannedOrders: []map[string]string{
			{"Plannedordernumber": "0000010000", "Materialnumber": "MAT-100", "Planningplant": "1010", "Basicstartdate": "2026-06-01T00:00:00", "Totalquantity": "5.000", "Baseunit": "EA"},
			{"Plannedordernumber": "0000010001", "Materialnumber": "MAT-110", "Planningplant": "1020", "Basicstartdate": "2025-06-20T00:00:00"},
			{"Plannedordernumber": "0000010002", "Materialnumber": "MAT-120", "Planningplant": "1010", "Basicstartdate": "2026-07-01T00:00:00"},
		},
		ProductionOrders: []map[string]string{
			{"Ordernumber": "1000001", "Ordertype": "PM02", "Description": "Pump housing", "Plant": "1010", "Enteredby": "JSMITH", "Basicstartdate": "2026-06-10T08:00:00", "Totalquantity": "2", "Unit": "PC"},
			{"Ordernumber": "1000002", "Ordertype": "XX99", "Description": "Gear shaft", "Plant": "1020", "Enteredby": "MLEE", "Basicstartdate": "2026-02-01T00:00:00"},
		},
	}
}

// newTestEnv serves the portal routes against a mock SAP backend. An empty
// serviceURL override leaves the portal without a backend.
func newTestEnv(t *testing.T, withBackend bool) *testEnv {
	t.Helper()
	env := &testEnv{
		registry: service.NewSessionRegistry(),
		hub:      notify.NewHub(),
		store:    newMemStore(),
	}

	serviceURL := ""
	if withBackend {
		backend, err := mockodata.NewServer(fixtures())
		if err != nil {
			t.Fatalf("NewServer: %v", err)
		}
		sap := httptest.NewServer(backend.Handler())
		t.Cleanup(sap.Close)
		env.backend = backend
		serviceURL = sap.URL + mockodata.ServicePath
	}

	client := odata.NewClient(serviceURL, odata.FormatJSON, 5*time.Second)
	authSvc := service.NewAuthService(client, env.store, env.registry, testSecret, time.Hour)
	orderSvc := service.NewOrderService(client, time.UTC)
	dashSvc := service.NewDashboardService(client, env.hub, time.UTC, 3)

	r := chi.NewRouter()
	r.Post("/api/login", LoginHandler(authSvc))
	r.Get("/api/ws", NotificationsHandler(testSecret, env.registry, env.hub))
	r.Group(func(r chi.Router) {
		r.Use(mw.AuthMiddleware(testSecret, env.registry))
		r.Post("/api/logout", LogoutHandler(authSvc, env.hub))
		r.Get("/api/dashboard", DashboardHandler(dashSvc, time.UTC))
		r.Get("/api/planned-orders", ListOrdersHandler(orderSvc, model.KindPlanned, time.UTC))
		r.Post("/api/planned-orders/refresh", RefreshOrdersHandler(orderSvc, model.KindPlanned, time.UTC))
		r.Get("/api/production-orders", ListOrdersHandler(orderSvc, model.KindProduction, time.UTC))
		r.Get("/api/user/sessions", ListSessionsHandler(env.store))
	})

	env.server = httptest.NewServer(r)
	t.Cleanup(env.server.Close)
	return env
}

func (env *testEnv) do(t *testing.T, method, path, token string, body []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, env.server.URL+path, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (env *testEnv) login(t *testing.T) string {
	t.Helper()
	resp := env.do(t, http.MethodPost, "/api/login", "", []byte(`{"user":"jsmith","password":"s3cret"}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	return strings.TrimPrefix(resp.Header.Get("Authorization"), "Bearer ")
}

// liveTokenFor registers a session for userID directly, bypassing SAP, and
// signs a token for it.
func (env *testEnv) liveTokenFor(t *testing.T, userID string) string {
	t.Helper()
	sessionID := "sess-" + userID
	env.registry.Add(service.NewLiveSession(sessionID, userID, time.Now(), odata.NewSession()))
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":    userID,
		"session_id": sessionID,
		"exp":        jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	return strings.TrimSpace(buf.String())
}

func withNow(t *testing.T, ts time.Time) {
	t.Helper()
	prev := now
	now = func() time.Time { return ts }
	t.Cleanup(func() { now = prev })
}
