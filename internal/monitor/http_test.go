package monitor

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Aayushyaash/Rag-chatbot/internal/audio"
	"github.com/Aayushyaash/Rag-chatbot/internal/config"
	"github.com/Aayushyaash/Rag-chatbot/internal/conversation"
	"github.com/Aayushyaash/Rag-chatbot/internal/history"
	"github.com/Aayushyaash/Rag-chatbot/internal/metrics"
)

type fakeMachineStats struct{}

func (fakeMachineStats) GetStats() conversation.MachineStats {
	return conversation.MachineStats{State: "ready", ExchangesCompleted: 3}
}

func testConfig() *config.Config {
	return &config.Config{
		Backend: config.BackendConfig{URL: "http://localhost:8000", APIKey: "secret-key"},
		Audio:   config.AudioConfig{SampleRate: 16000, Channels: 1, FrameSize: 512},
		Logging: config.LoggingConfig{Level: "info", Format: "text", Output: "stdout"},
	}
}

func newTestServer(t *testing.T, sources Sources) *HTTPServer {
	t.Helper()

	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(registry)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewHTTPServer(config.MonitorConfig{Port: 0}, logger, testConfig(), sources, m, registry)
}

func doRequest(t *testing.T, h *HTTPServer, method, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	h.server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	h := newTestServer(t, Sources{Machine: fakeMachineStats{}})

	rec := doRequest(t, h, http.MethodGet, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("Expected healthy status, got %v", body["status"])
	}

	components := body["components"].(map[string]interface{})
	if _, ok := components["conversation"]; !ok {
		t.Error("Expected conversation component in health response")
	}
}

func TestStatsEndpoint(t *testing.T) {
	store := history.NewStore()
	store.AddTurn(history.RoleUser, "hello", nil, false)

	h := newTestServer(t, Sources{Machine: fakeMachineStats{}, Store: store})

	rec := doRequest(t, h, http.MethodGet, "/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if _, ok := body["conversation"]; !ok {
		t.Error("Expected conversation stats")
	}
	if _, ok := body["history"]; !ok {
		t.Error("Expected history stats")
	}

	// Method guard
	rec = doRequest(t, h, http.MethodPost, "/stats")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for POST, got %d", rec.Code)
	}
}

func TestHistoryEndpointOmitsAudio(t *testing.T) {
	store := history.NewStore()
	store.AddTurn(history.RoleUser, "[Spoken question]", nil, false)
	store.AddTurn(history.RoleAssistant, "[Spoken answer]", &audio.Clip{
		Data:        []byte("secret mp3 bytes"),
		ContentType: "audio/mpeg",
	}, false)

	h := newTestServer(t, Sources{Store: store})

	rec := doRequest(t, h, http.MethodGet, "/history")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	if strings.Contains(body, "secret mp3 bytes") {
		t.Error("Expected audio bytes excluded from history response")
	}

	var parsed struct {
		TotalTurns int            `json:"total_turns"`
		Turns      []history.Turn `json:"turns"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &parsed); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if parsed.TotalTurns != 2 {
		t.Errorf("Expected 2 turns, got %d", parsed.TotalTurns)
	}
}

func TestConfigEndpointSanitized(t *testing.T) {
	h := newTestServer(t, Sources{})

	rec := doRequest(t, h, http.MethodGet, "/config")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	if strings.Contains(body, "secret-key") {
		t.Error("Expected API key excluded from config response")
	}
	if !strings.Contains(body, "http://localhost:8000") {
		t.Error("Expected backend URL in config response")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t, Sources{})

	// Generate some metrics traffic first
	doRequest(t, h, http.MethodGet, "/health")

	rec := doRequest(t, h, http.MethodGet, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "voice_http_requests_total") {
		t.Error("Expected voice metrics in Prometheus output")
	}
}

func TestRootEndpoint(t *testing.T) {
	h := newTestServer(t, Sources{})

	rec := doRequest(t, h, http.MethodGet, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if _, ok := body["endpoints"]; !ok {
		t.Error("Expected endpoint documentation")
	}

	rec = doRequest(t, h, http.MethodGet, "/does-not-exist")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown path, got %d", rec.Code)
	}
}
