package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/RookieZoe/qwen3-asr-realtime-api/internal/config"
	"github.com/RookieZoe/qwen3-asr-realtime-api/internal/observe"
	"github.com/RookieZoe/qwen3-asr-realtime-api/internal/session"
	"github.com/RookieZoe/qwen3-asr-realtime-api/internal/syncx"
	"github.com/RookieZoe/qwen3-asr-realtime-api/internal/trace"
	"github.com/RookieZoe/qwen3-asr-realtime-api/internal/transcriber"
)

// readyBackend is satisfied by transcriber.HTTPBackend; narrowed to an
// interface so Server doesn't require a concrete backend type.
type readyBackend interface {
	Ready() bool
}

// Server wires the realtime WebSocket endpoint and REST introspection
// routes into one HTTP handler.
type Server struct {
	cfg      *config.Config
	pool     *transcriber.Pool
	newVAD   session.DetectorFactory
	backend  readyBackend
	recorder *metricsRecorder
	stats    *syncx.RWGuard[counters]
}

// New builds a Server. pool is the shared transcriber dispatch pool and
// newVAD selects the VAD detector implementation each session constructs
// (cmd/server passes the energy-based one in every build). If the pool's backend has a Ready() bool
// method, it backs the /health model_loaded flag; otherwise that flag is
// false. metrics may be nil to skip OpenTelemetry export while still
// tracking the plain JSON counters.
func New(cfg *config.Config, pool *transcriber.Pool, newVAD session.DetectorFactory, metrics *observe.Metrics) *Server {
	stats := syncx.NewGuard(counters{startTime: time.Now()})
	var backend readyBackend
	if b, ok := pool.Backend().(readyBackend); ok {
		backend = b
	}
	recorder := &metricsRecorder{otel: metrics, counters: stats}
	pool.SetRecorder(recorder)
	return &Server{
		cfg:      cfg,
		pool:     pool,
		newVAD:   newVAD,
		backend:  backend,
		recorder: recorder,
		stats:    stats,
	}
}

// Handler returns the complete HTTP handler: the realtime WebSocket
// endpoint plus introspection routes, wrapped in tracing and CORS
// middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /", s.timed("/", s.handleRoot))
	mux.HandleFunc("GET /health", s.timed("/health", s.handleHealth))
	mux.HandleFunc("GET /metrics", s.timed("/metrics", s.handleMetrics))
	mux.HandleFunc("GET /stats", s.timed("/stats", s.handleStats))
	mux.Handle("GET /telemetry", promhttp.Handler())
	mux.HandleFunc(RealtimePath, s.handleRealtime)

	return corsMiddleware(trace.Middleware(mux))
}

// timed wraps a REST handler to record its latency by logical path. The
// realtime WebSocket route and /telemetry (already Prometheus-native) are
// deliberately left unwrapped: one streams indefinitely, the other exports
// its own scrape latency.
func (s *Server) timed(path string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		h(w, r)
		s.recorder.RecordHTTPRequest(r.Context(), path, time.Since(start).Seconds())
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{
		"service":            serviceName,
		"version":            serviceVersion,
		"websocket_endpoint": RealtimePath,
		"docs":               "/docs",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{
		"status":       "healthy",
		"model_loaded": s.backendReady(),
		"timestamp":    time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (s *Server) backendReady() bool {
	return s.backend != nil && s.backend.Ready()
}

// metricsSnapshot builds the JSON shape shared verbatim by /metrics and the
// "metrics" field of /stats.
func (s *Server) metricsSnapshot() map[string]any {
	now := time.Now()
	var snap counters
	s.stats.Write(func(c *counters) {
		c.recordRequest(now)
		snap = *c
	})
	return map[string]any{
		"server": map[string]any{
			"uptime_seconds": time.Since(snap.startTime).Seconds(),
			"start_time":     snap.startTime.UTC().Format(time.RFC3339Nano),
		},
		"connections": map[string]any{
			"total":  snap.totalConnections,
			"active": snap.activeConnections,
		},
		"sessions": map[string]any{
			"total": snap.totalSessions,
		},
		"audio": map[string]any{
			"total_seconds_processed": roundTo2(snap.totalAudioSeconds),
		},
		"requests": map[string]any{
			"per_minute":   snap.requestsPerMinute(now),
			"errors_total": snap.errorsTotal,
		},
	}
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.metricsSnapshot())
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{
		"service": serviceName,
		"version": serviceVersion,
		"model": map[string]any{
			"path":   s.cfg.ModelPath,
			"loaded": s.backendReady(),
		},
		"configuration": map[string]any{
			"gpu_memory_utilization": s.cfg.GPUMemoryUtil,
			"max_new_tokens":         s.cfg.MaxNewTokens,
			"vad_enabled":            s.cfg.VADEnabled,
			"vad_threshold":          s.cfg.VADThreshold,
		},
		"metrics": s.metricsSnapshot(),
	})
}

func (s *Server) handleRealtime(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		trace.Logger(r.Context()).Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	s.stats.Write(func(c *counters) {
		c.totalConnections++
		c.activeConnections++
		c.recordRequest(time.Now())
	})
	defer s.stats.Write(func(c *counters) { c.activeConnections-- })

	ctx, _ := trace.EnsureContext(r.Context())
	log := trace.Logger(ctx)
	log.Info("realtime connection accepted", "remote", r.RemoteAddr)

	sess := session.New(conn, s.cfg, s.pool, s.newVAD, s.recorder)
	if err := sess.Run(ctx); err != nil {
		log.Debug("session ended", "session_id", sess.ID(), "error", err)
		s.recorder.RecordError(ctx, "websocket")
	}
}

func roundTo2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
