package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/RookieZoe/qwen3-asr-realtime-api/internal/config"
	"github.com/RookieZoe/qwen3-asr-realtime-api/internal/transcriber"
	"github.com/RookieZoe/qwen3-asr-realtime-api/internal/vad"
)

func TestCORSMiddleware(t *testing.T) {
	handler := corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("OPTIONS", "/test", http.NoBody)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("OPTIONS status = %d, want %d", rec.Code, http.StatusOK)
	}
	if v := rec.Header().Get("Access-Control-Allow-Origin"); v != "*" {
		t.Errorf("CORS origin = %q, want %q", v, "*")
	}
	if v := rec.Header().Get("Access-Control-Allow-Methods"); v != "GET, POST, OPTIONS" {
		t.Errorf("CORS methods = %q, want %q", v, "GET, POST, OPTIONS")
	}

	req = httptest.NewRequest("GET", "/test", http.NoBody)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("GET status = %d, want %d", rec.Code, http.StatusOK)
	}
	if v := rec.Header().Get("Access-Control-Allow-Origin"); v != "*" {
		t.Errorf("CORS origin on GET = %q, want %q", v, "*")
	}
}

type stubBackend struct{}

func (stubBackend) Init(_ context.Context, _ transcriber.InitParams) (*transcriber.State, error) {
	return &transcriber.State{}, nil
}

func (stubBackend) Feed(_ context.Context, st *transcriber.State, _ []float32) (*transcriber.State, error) {
	return st, nil
}

func (stubBackend) Finalize(_ context.Context, st *transcriber.State) (*transcriber.State, error) {
	return st, nil
}

func newTestServer() *Server {
	pool := transcriber.NewPool(stubBackend{}, 4)
	newVAD := func() vad.Detector { return vad.NewEnergyDetector() }
	return New(&config.Config{VADEnabled: true, VADThreshold: 0.5, SampleRate: 16000}, pool, newVAD, nil)
}

func TestHandleRoot(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest("GET", "/", http.NoBody)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("json.Unmarshal error: %v", err)
	}
	if body["websocket_endpoint"] != RealtimePath {
		t.Errorf("websocket_endpoint = %v, want %q", body["websocket_endpoint"], RealtimePath)
	}
	if body["docs"] != "/docs" {
		t.Errorf("docs = %v, want %q", body["docs"], "/docs")
	}
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest("GET", "/health", http.NoBody)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("json.Unmarshal error: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("status field = %v, want %q", body["status"], "healthy")
	}
}

func TestHandleStats(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest("GET", "/stats", http.NoBody)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("json.Unmarshal error: %v", err)
	}
	cfgBlock, ok := body["configuration"].(map[string]any)
	if !ok {
		t.Fatalf("configuration block missing, got %v", body)
	}
	if cfgBlock["vad_enabled"] != true {
		t.Errorf("vad_enabled = %v, want true", cfgBlock["vad_enabled"])
	}
	metricsBlock, ok := body["metrics"].(map[string]any)
	if !ok {
		t.Fatalf("metrics block missing, got %v", body)
	}
	serverBlock, ok := metricsBlock["server"].(map[string]any)
	if !ok {
		t.Fatalf("metrics.server block missing from %v", metricsBlock)
	}
	if _, ok := serverBlock["uptime_seconds"]; !ok {
		t.Errorf("metrics.server.uptime_seconds missing from %v", serverBlock)
	}
}

func TestHandleMetricsShape(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest("GET", "/metrics", http.NoBody)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("json.Unmarshal error: %v", err)
	}
	for _, key := range []string{"server", "connections", "sessions", "audio", "requests"} {
		if _, ok := body[key]; !ok {
			t.Errorf("/metrics missing %q field, got %v", key, body)
		}
	}
}

func TestStatsReflectsConnectionCounters(t *testing.T) {
	s := newTestServer()
	s.stats.Write(func(c *counters) {
		c.totalConnections = 3
		c.activeConnections = 1
		c.totalSessions = 2
		c.errorsTotal = 1
	})

	req := httptest.NewRequest("GET", "/stats", http.NoBody)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("json.Unmarshal error: %v", err)
	}
	metricsBlock := body["metrics"].(map[string]any)
	conns := metricsBlock["connections"].(map[string]any)
	if conns["total"].(float64) != 3 {
		t.Errorf("connections.total = %v, want 3", conns["total"])
	}
	if conns["active"].(float64) != 1 {
		t.Errorf("connections.active = %v, want 1", conns["active"])
	}
}

func TestRequestsPerMinuteWindow(t *testing.T) {
	c := &counters{startTime: time.Now()}
	now := time.Now()
	c.recordRequest(now.Add(-90 * time.Second))
	c.recordRequest(now.Add(-10 * time.Second))
	c.recordRequest(now)

	if got := c.requestsPerMinute(now); got != 2 {
		t.Errorf("requestsPerMinute = %d, want 2", got)
	}
}
