package routes

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	pkgAuth "github.com/angelmondragon/rentalz-backend/pkg/auth"
	"github.com/angelmondragon/rentalz-backend/pkg/auth/session"
	"github.com/angelmondragon/rentalz-backend/pkg/config"
	"github.com/angelmondragon/rentalz-backend/pkg/enums"
	"github.com/angelmondragon/rentalz-backend/pkg/logger"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

type stubSessions struct {
	revoked bool
}

func (s stubSessions) HasSession(context.Context, string) (bool, error) {
	return !s.revoked, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:                 "secret",
			Issuer:                 "issuer",
			ExpirationMinutes:      60,
			RefreshTokenTTLMinutes: 120,
		},
	}
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
}

func newTestRouter(cfg *config.Config, deps Dependencies) http.Handler {
	if deps.DB == nil {
		deps.DB = stubPinger{}
	}
	if deps.Sessions == nil {
		deps.Sessions = stubSessions{}
	}
	return NewRouter(cfg, testLogger(), deps)
}

func buildToken(t *testing.T, cfg *config.Config, role enums.Role) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Email:  "driver@example.com",
		Role:   role,
		JTI:    session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func serve(router http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestPublicPing(t *testing.T) {
	router := newTestRouter(testConfig(), Dependencies{})
	resp := serve(router, http.MethodGet, "/api/public/ping", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for public ping got %d", resp.Code)
	}
}

func TestPrivateGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig(), Dependencies{})
	resp := serve(router, http.MethodGet, "/api/v1/ping", "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestPrivateGroupSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, Dependencies{})
	resp := serve(router, http.MethodGet, "/api/v1/ping", buildToken(t, cfg, enums.RoleCustomer))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for private ping got %d", resp.Code)
	}
}

func TestPrivateGroupRejectsRevokedSession(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, Dependencies{Sessions: stubSessions{revoked: true}})
	resp := serve(router, http.MethodGet, "/api/v1/ping", buildToken(t, cfg, enums.RoleCustomer))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for revoked session got %d", resp.Code)
	}
}

func TestAdminGroupRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, Dependencies{})

	for _, role := range []enums.Role{enums.RoleCustomer, enums.RoleEmployee} {
		resp := serve(router, http.MethodGet, "/api/v1/admin/ping", buildToken(t, cfg, role))
		if resp.Code != http.StatusForbidden {
			t.Fatalf("expected 403 for %s got %d", role, resp.Code)
		}
	}

	resp := serve(router, http.MethodGet, "/api/v1/admin/ping", buildToken(t, cfg, enums.RoleAdmin))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d", resp.Code)
	}
}

func TestFleetManagementRequiresStaff(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, Dependencies{})

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/vehicles"},
		{http.MethodPatch, "/api/v1/vehicles/" + uuid.NewString()},
		{http.MethodDelete, "/api/v1/vehicles/" + uuid.NewString()},
		{http.MethodPost, "/api/v1/reservations/" + uuid.NewString() + "/confirm"},
		{http.MethodPost, "/api/v1/reservations/" + uuid.NewString() + "/complete"},
		{http.MethodPost, "/api/v1/payments/onsite"},
	}
	token := buildToken(t, cfg, enums.RoleCustomer)
	for _, tc := range paths {
		resp := serve(router, tc.method, tc.path, token)
		if resp.Code != http.StatusForbidden {
			t.Fatalf("%s %s: expected 403 for customer got %d", tc.method, tc.path, resp.Code)
		}
	}
}

func TestEnumsArePublic(t *testing.T) {
	router := newTestRouter(testConfig(), Dependencies{})
	resp := serve(router, http.MethodGet, "/api/v1/enums", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for enums got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "PENDING") {
		t.Fatalf("expected reservation statuses in body: %s", resp.Body.String())
	}
}

func TestHealthReadyReportsDegradedDependency(t *testing.T) {
	cfg := testConfig()

	healthy := newTestRouter(cfg, Dependencies{})
	resp := serve(healthy, http.MethodGet, "/health/ready", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 when dependencies are up got %d", resp.Code)
	}

	degraded := newTestRouter(cfg, Dependencies{DB: stubPinger{err: errors.New("connection refused")}})
	resp = serve(degraded, http.MethodGet, "/health/ready", "")
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when postgres is down got %d", resp.Code)
	}
	if got := resp.Header().Get("X-Rentalz-Env"); got != "test" {
		t.Fatalf("expected env header, got %q", got)
	}
}

func TestMetricsMountedWhenGathererProvided(t *testing.T) {
	cfg := testConfig()

	resp := serve(newTestRouter(cfg, Dependencies{}), http.MethodGet, "/metrics", "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without a gatherer got %d", resp.Code)
	}

	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "rentalz_test_total", Help: "test counter"})
	reg.MustRegister(counter)
	counter.Inc()

	resp = serve(newTestRouter(cfg, Dependencies{Metrics: reg}), http.MethodGet, "/metrics", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for metrics got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "rentalz_test_total 1") {
		t.Fatalf("expected counter in exposition: %s", resp.Body.String())
	}
}

func TestWebhooksUnmountedWithoutClients(t *testing.T) {
	router := newTestRouter(testConfig(), Dependencies{})
	for _, path := range []string{"/api/v1/webhooks/stripe", "/api/v1/webhooks/square"} {
		resp := serve(router, http.MethodPost, path, "")
		if resp.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404 got %d", path, resp.Code)
		}
	}
}
