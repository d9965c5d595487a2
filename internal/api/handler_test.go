package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/service-starter/internal/config"
	"github.com/eugenenazirov/service-starter/internal/status"
)

type controllableClock struct {
	mu  sync.RWMutex
	now time.Time
}

func newControllableClock(initial time.Time) *controllableClock {
	return &controllableClock{now: initial}
}

func (c *controllableClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.API.Auth.APIKey.Key = "top-secret"
	cfg.Sources = []string{"config/config.common.yaml"}
	return cfg
}

func readyTracker(t *testing.T) *status.Tracker {
	t.Helper()

	tracker := status.NewTracker()
	tracker.Register("config", func(context.Context) error { return nil })
	if err := tracker.Warmup(context.Background()); err != nil {
		t.Fatalf("warmup failed: %v", err)
	}
	return tracker
}

func newTestRouter(t *testing.T, opts ...RouterOption) http.Handler {
	t.Helper()

	handler := NewHandler(testConfig(), readyTracker(t))
	return NewRouter(handler, zaptest.NewLogger(t), opts...)
}

func serve(t *testing.T, router http.Handler, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %s response: %v (%s)", path, err, rec.Body.String())
	}
	return rec, body
}

func TestRequestIDHelpers(t *testing.T) {
	ctx := contextWithRequestID(context.Background(), "abc")
	if got := requestIDFromContext(ctx); got != "abc" {
		t.Fatalf("expected abc, got %s", got)
	}
	resp := httptest.NewRecorder()
	writeInternalError(resp, errors.New("boom"))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 status, got %d", resp.Code)
	}
}

func TestHealthEndpointsWhenReady(t *testing.T) {
	clock := newControllableClock(time.Date(2024, 11, 1, 12, 0, 0, 0, time.UTC))
	handler := NewHandler(testConfig(), readyTracker(t), WithClock(clock.Now))
	router := NewRouter(handler, zaptest.NewLogger(t), WithLogging(false))

	rec, body := serve(t, router, "/health")
	if rec.Code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("unexpected /health response: %d %v", rec.Code, body)
	}
	if body["timestamp"] != "2024-11-01T12:00:00Z" {
		t.Fatalf("unexpected timestamp %v", body["timestamp"])
	}

	rec, body = serve(t, router, "/health/liveness")
	if rec.Code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("unexpected liveness response: %d %v", rec.Code, body)
	}

	rec, body = serve(t, router, "/health/readiness")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected readiness 200, got %d", rec.Code)
	}
	details, ok := body["details"].(map[string]any)
	if !ok || details["ready"] != true {
		t.Fatalf("expected readiness details, got %v", body)
	}

	rec, body = serve(t, router, "/health/status")
	if rec.Code != http.StatusOK || body["initialized"] != true {
		t.Fatalf("unexpected status response: %d %v", rec.Code, body)
	}
	if _, ok := body["components"].(map[string]any)["config"]; !ok {
		t.Fatalf("expected config component in %v", body)
	}
}

func TestHealthEndpointsWhenNotReady(t *testing.T) {
	tracker := status.NewTracker()
	tracker.Register("upload_path", func(context.Context) error { return errors.New("read-only") })
	_ = tracker.Warmup(context.Background())

	router := NewRouter(NewHandler(testConfig(), tracker), zaptest.NewLogger(t), WithLogging(false))

	rec, body := serve(t, router, "/health")
	if rec.Code != http.StatusServiceUnavailable || body["status"] != "service unavailable" {
		t.Fatalf("unexpected /health response: %d %v", rec.Code, body)
	}

	rec, body = serve(t, router, "/health/readiness")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	details := body["details"].(map[string]any)
	if errs := details["errors"].([]any); len(errs) != 1 {
		t.Fatalf("expected one error, got %v", errs)
	}

	rec, _ = serve(t, router, "/health/liveness")
	if rec.Code != http.StatusOK {
		t.Fatalf("liveness must not depend on readiness, got %d", rec.Code)
	}

	rec, body = serve(t, router, "/health/status")
	if rec.Code != http.StatusOK || body["ready"] != false {
		t.Fatalf("unexpected status response: %d %v", rec.Code, body)
	}
}

func TestOnlyReadinessRerunsChecks(t *testing.T) {
	var runs int
	tracker := status.NewTracker()
	tracker.Register("upload_path", func(context.Context) error {
		runs++
		return nil
	})
	if err := tracker.Warmup(context.Background()); err != nil {
		t.Fatalf("warmup failed: %v", err)
	}
	router := NewRouter(NewHandler(testConfig(), tracker), zaptest.NewLogger(t), WithLogging(false))

	for _, path := range []string{"/health", "/health/status", "/health/liveness"} {
		rec, _ := serve(t, router, path)
		if rec.Code != http.StatusOK {
			t.Fatalf("unexpected %s status %d", path, rec.Code)
		}
	}
	if runs != 1 {
		t.Fatalf("expected only the warmup run, got %d", runs)
	}

	rec, _ := serve(t, router, "/health/readiness")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected readiness status %d", rec.Code)
	}
	if runs != 2 {
		t.Fatalf("expected readiness to re-run the check, got %d runs", runs)
	}
}

func TestHealthReflectsLastReadinessResult(t *testing.T) {
	healthy := true
	tracker := status.NewTracker()
	tracker.Register("upload_path", func(context.Context) error {
		if !healthy {
			return errors.New("read-only")
		}
		return nil
	})
	_ = tracker.Warmup(context.Background())
	router := NewRouter(NewHandler(testConfig(), tracker), zaptest.NewLogger(t), WithLogging(false))

	healthy = false
	if rec, _ := serve(t, router, "/health"); rec.Code != http.StatusOK {
		t.Fatalf("expected cached healthy report, got %d", rec.Code)
	}

	if rec, _ := serve(t, router, "/health/readiness"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected readiness to observe the failure, got %d", rec.Code)
	}
	if rec, _ := serve(t, router, "/health"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected /health to follow the refreshed report, got %d", rec.Code)
	}
}

func TestHealthBeforeWarmup(t *testing.T) {
	tracker := status.NewTracker()
	tracker.Register("config", func(context.Context) error { return nil })
	router := NewRouter(NewHandler(testConfig(), tracker), zaptest.NewLogger(t), WithLogging(false))

	rec, _ := serve(t, router, "/health/readiness")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before warmup, got %d", rec.Code)
	}
}

func TestConfigEndpoint(t *testing.T) {
	router := newTestRouter(t, WithLogging(false))

	rec, body := serve(t, router, "/api/config")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body["environment"] != "dev" {
		t.Fatalf("unexpected environment %v", body["environment"])
	}

	cfg := body["config"].(map[string]any)
	server := cfg["server"].(map[string]any)
	if server["port"] != "8080" || server["shutdown_grace_period"] != "10s" {
		t.Fatalf("unexpected server section %v", server)
	}
	if strings.Contains(rec.Body.String(), "top-secret") {
		t.Fatalf("api key leaked in config response")
	}
}

func TestConfigEndpointFollowsPrefix(t *testing.T) {
	cfg := testConfig()
	cfg.API.Prefix = "/v2/"
	router := NewRouter(NewHandler(cfg, readyTracker(t)), zaptest.NewLogger(t), WithLogging(false))

	rec, _ := serve(t, router, "/v2/config")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected prefixed route, got %d", rec.Code)
	}
}
