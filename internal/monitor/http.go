package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Aayushyaash/Rag-chatbot/internal/capture"
	"github.com/Aayushyaash/Rag-chatbot/internal/config"
	"github.com/Aayushyaash/Rag-chatbot/internal/conversation"
	"github.com/Aayushyaash/Rag-chatbot/internal/gateway"
	"github.com/Aayushyaash/Rag-chatbot/internal/history"
	"github.com/Aayushyaash/Rag-chatbot/internal/metrics"
	"github.com/Aayushyaash/Rag-chatbot/internal/playback"
)

// Sources are the components the monitor reads statistics from. Any field
// may be nil; missing components are omitted from responses.
type Sources struct {
	Machine  MachineStatsProvider
	Capture  CaptureStatsProvider
	Gateway  GatewayStatsProvider
	Playback PlaybackStatsProvider
	Store    *history.Store
}

type MachineStatsProvider interface {
	GetStats() conversation.MachineStats
}

type CaptureStatsProvider interface {
	GetStats() capture.ControllerStats
}

type GatewayStatsProvider interface {
	GetStats() gateway.ClientStats
}

type PlaybackStatsProvider interface {
	GetStats() playback.Stats
}

// HTTPServer provides HTTP API endpoints for monitoring
type HTTPServer struct {
	server   *http.Server
	logger   *slog.Logger
	config   *config.Config
	sources  Sources
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer

	// Server state
	startTime time.Time
	mu        sync.RWMutex
}

// NewHTTPServer creates a new monitoring HTTP server. A nil gatherer uses
// the default Prometheus registry.
func NewHTTPServer(cfg config.MonitorConfig, logger *slog.Logger,
	appConfig *config.Config, sources Sources, m *metrics.Metrics, gatherer prometheus.Gatherer) *HTTPServer {

	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	h := &HTTPServer{
		logger:    logger,
		config:    appConfig,
		sources:   sources,
		metrics:   m,
		gatherer:  gatherer,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))
	mux.HandleFunc("/stats", h.withMetrics("/stats", h.handleStats))
	mux.HandleFunc("/history", h.withMetrics("/history", h.handleHistory))
	mux.HandleFunc("/config", h.withMetrics("/config", h.handleConfig))

	// Prometheus metrics endpoint (no metrics needed for metrics endpoint)
	mux.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))

	// Root endpoint with API documentation
	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ww := &responseWriter{ResponseWriter: w, statusCode: 200}
		handler(ww, r)

		if h.metrics != nil {
			duration := time.Since(startTime).Seconds()
			h.metrics.RecordHTTPRequest(r.Method, endpoint, fmt.Sprintf("%d", ww.statusCode), duration)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting monitor HTTP server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("Monitor HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping monitor HTTP server...")

	return h.server.Shutdown(ctx)
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(h.startTime)

	components := map[string]interface{}{}
	if h.sources.Machine != nil {
		stats := h.sources.Machine.GetStats()
		components["conversation"] = map[string]interface{}{
			"status":              "running",
			"state":               stats.State,
			"exchanges_completed": stats.ExchangesCompleted,
			"exchanges_failed":    stats.ExchangesFailed,
		}
	}
	if h.sources.Capture != nil {
		stats := h.sources.Capture.GetStats()
		components["capture"] = map[string]interface{}{
			"status":         "running",
			"session_active": stats.SessionActive,
		}
	}
	if h.sources.Gateway != nil {
		stats := h.sources.Gateway.GetStats()
		components["gateway"] = map[string]interface{}{
			"status":       "running",
			"success_rate": stats.SuccessRate,
			"in_flight":    stats.InFlight,
		}
	}

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    uptime.String(),
		"service": map[string]interface{}{
			"name":    "rag-voice-client",
			"version": "1.0.0",
		},
		"components": components,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// handleStats implements the /stats endpoint
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := map[string]interface{}{
		"uptime":    time.Since(h.startTime).String(),
		"timestamp": time.Now().UTC(),
	}

	if h.sources.Machine != nil {
		stats["conversation"] = h.sources.Machine.GetStats()
	}
	if h.sources.Capture != nil {
		stats["capture"] = h.sources.Capture.GetStats()
	}
	if h.sources.Gateway != nil {
		stats["gateway"] = h.sources.Gateway.GetStats()
	}
	if h.sources.Playback != nil {
		stats["playback"] = h.sources.Playback.GetStats()
	}
	if h.sources.Store != nil {
		stats["history"] = h.sources.Store.GetStats()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// handleHistory implements the /history endpoint. Turn audio is omitted
// from the JSON encoding; only text and metadata are returned.
func (h *HTTPServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.sources.Store == nil {
		http.Error(w, "History not available", http.StatusNotFound)
		return
	}

	turns := h.sources.Store.Turns()
	response := map[string]interface{}{
		"total_turns": len(turns),
		"timestamp":   time.Now().UTC(),
		"turns":       turns,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleConfig implements the /config endpoint
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Return sanitized configuration (remove sensitive data)
	sanitizedConfig := map[string]interface{}{
		"backend": map[string]interface{}{
			"url": h.config.Backend.URL,
			// Note: API key is intentionally omitted for security
		},
		"audio": map[string]interface{}{
			"sample_rate": h.config.Audio.SampleRate,
			"channels":    h.config.Audio.Channels,
			"frame_size":  h.config.Audio.FrameSize,
		},
		"capture": map[string]interface{}{
			"echo_cancellation": h.config.Capture.EchoCancellation,
			"noise_suppression": h.config.Capture.NoiseSuppression,
			"auto_gain_control": h.config.Capture.AutoGainControl,
			"codec_preference":  h.config.Capture.CodecPreference,
		},
		"visualizer": map[string]interface{}{
			"enabled":     h.config.Visualizer.Enabled,
			"bands":       h.config.Visualizer.Bands,
			"refresh_hz":  h.config.Visualizer.RefreshHz,
			"window_size": h.config.Visualizer.WindowSize,
		},
		"logging": map[string]interface{}{
			"level":  h.config.Logging.Level,
			"format": h.config.Logging.Format,
			"output": h.config.Logging.Output,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sanitizedConfig)
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]interface{}{
		"service": "RAG Voice Client",
		"version": "1.0.0",
		"endpoints": map[string]interface{}{
			"GET /":        "API documentation",
			"GET /health":  "Client health check",
			"GET /stats":   "Client statistics",
			"GET /history": "Conversation turn history",
			"GET /config":  "Client configuration",
			"GET /metrics": "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(apiDoc)
}
