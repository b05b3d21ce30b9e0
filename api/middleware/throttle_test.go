package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/rentalz-backend/pkg/errors"
)

type fakeRateStore struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newFakeRateStore() *fakeRateStore {
	return &fakeRateStore{counts: map[string]int64{}}
}

func (f *fakeRateStore) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[key]++
	return f.counts[key], nil
}

func loginRequest(email, addr string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"email":"`+email+`","password":"hunter2hunter2"}`))
	req.RemoteAddr = addr
	return req
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
}

func TestAuthThrottleKeepsBodyReadable(t *testing.T) {
	policy := ThrottlePolicy{Scope: "login", Window: time.Minute, PerIP: 5, PerAccount: 5}
	handler := AuthThrottle(policy, newFakeRateStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), "driver@rentalz.test") {
			t.Fatalf("body lost: %s", body)
		}
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("driver@rentalz.test", "10.0.0.1:4000"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthThrottleCountsAccountAcrossAddresses(t *testing.T) {
	policy := ThrottlePolicy{Scope: "login", Window: time.Minute, PerAccount: 2}
	handler := AuthThrottle(policy, newFakeRateStore(), nil)(okHandler())

	addrs := []string{"10.0.0.1:1", "10.0.0.2:1", "10.0.0.3:1"}
	var last *httptest.ResponseRecorder
	for i, addr := range addrs {
		last = httptest.NewRecorder()
		// mixed case still maps to the same account
		email := "Driver@Rentalz.test"
		if i%2 == 0 {
			email = "driver@rentalz.test"
		}
		handler.ServeHTTP(last, loginRequest(email, addr))
		if i < 2 && last.Code != http.StatusOK {
			t.Fatalf("attempt %d: expected 200, got %d", i, last.Code)
		}
	}
	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", last.Code)
	}
	if last.Header().Get("Retry-After") != "60" {
		t.Fatalf("unexpected Retry-After %q", last.Header().Get("Retry-After"))
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(last.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeRateLimit) {
		t.Fatalf("unexpected code %s", payload.Error.Code)
	}
}

func TestAuthThrottlePerIP(t *testing.T) {
	policy := ThrottlePolicy{Scope: "register", Window: time.Minute, PerIP: 1}
	handler := AuthThrottle(policy, newFakeRateStore(), nil)(okHandler())

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, loginRequest("a@rentalz.test", "5.6.7.8:1234"))
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, loginRequest("b@rentalz.test", "5.6.7.8:9999"))
	other := httptest.NewRecorder()
	handler.ServeHTTP(other, loginRequest("c@rentalz.test", "9.9.9.9:1"))

	if first.Code != http.StatusOK || second.Code != http.StatusTooManyRequests || other.Code != http.StatusOK {
		t.Fatalf("got %d %d %d", first.Code, second.Code, other.Code)
	}
}

func TestAuthThrottleRefusesWhenStoreDown(t *testing.T) {
	policy := ThrottlePolicy{Scope: "login", Window: time.Minute, PerIP: 3}
	handler := AuthThrottle(policy, failingRateStore{}, nil)(okHandler())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("a@rentalz.test", "1.1.1.1:1"))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:80"
	req.Header.Set("X-Forwarded-For", " 203.0.113.9 , 10.0.0.1")
	if got := clientIP(req); got != "203.0.113.9" {
		t.Fatalf("got %q", got)
	}
	req.Header.Del("X-Forwarded-For")
	if got := clientIP(req); got != "192.168.1.1" {
		t.Fatalf("got %q", got)
	}
}

type failingRateStore struct{}

func (failingRateStore) IncrWithTTL(context.Context, string, time.Duration) (int64, error) {
	return 0, errors.New("redis down")
}
