package gateway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Aayushyaash/Rag-chatbot/internal/capture"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPayload() *capture.Payload {
	return &capture.Payload{
		SessionID:  "test-session",
		Data:       []byte("RIFF fake wav bytes"),
		MIMEType:   capture.MIMETypeWAV,
		SampleRate: 16000,
		Duration:   2 * time.Second,
	}
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(Config{BaseURL: baseURL, APIKey: "test-key"}, testLogger())
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client
}

func TestVoiceConversationSuccess(t *testing.T) {
	answer := []byte("mp3 answer bytes")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/voice/conversation" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("Unexpected method: %s", r.Method)
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("Missing file part: %v", err)
		}
		defer file.Close()

		data, _ := io.ReadAll(file)
		if len(data) == 0 {
			t.Error("Expected non-empty payload")
		}
		if header.Filename != "voice_test-session.wav" {
			t.Errorf("Unexpected filename: %s", header.Filename)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Unexpected authorization header: %s", got)
		}

		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write(answer)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	clip, err := client.VoiceConversation(context.Background(), testPayload())
	if err != nil {
		t.Fatalf("VoiceConversation failed: %v", err)
	}
	if clip.ContentType != "audio/mpeg" {
		t.Errorf("Expected audio/mpeg, got %s", clip.ContentType)
	}
	if string(clip.Data) != string(answer) {
		t.Error("Answer clip bytes do not match")
	}

	stats := client.GetStats()
	if stats.SuccessRequests != 1 || stats.TotalRequests != 1 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestVoiceConversationBackendError(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		wantReason string
	}{
		{
			name:       "detail field",
			statusCode: http.StatusInternalServerError,
			body:       `{"detail": "stt failed"}`,
			wantReason: "stt failed",
		},
		{
			name:       "error field",
			statusCode: http.StatusBadGateway,
			body:       `{"error": "backend timed out"}`,
			wantReason: "backend timed out",
		},
		{
			name:       "unparseable body falls back to status text",
			statusCode: http.StatusServiceUnavailable,
			body:       "",
			wantReason: "Service Unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.statusCode)
				io.WriteString(w, tt.body)
			}))
			defer server.Close()

			client := newTestClient(t, server.URL)

			_, err := client.VoiceConversation(context.Background(), testPayload())
			var convErr *ConversationError
			if !errors.As(err, &convErr) {
				t.Fatalf("Expected ConversationError, got %v", err)
			}
			if convErr.StatusCode != tt.statusCode {
				t.Errorf("Expected status %d, got %d", tt.statusCode, convErr.StatusCode)
			}
			if convErr.Reason != tt.wantReason {
				t.Errorf("Expected reason %q, got %q", tt.wantReason, convErr.Reason)
			}
		})
	}
}

func TestVoiceConversationNetworkError(t *testing.T) {
	// Server closed before the request: connection refused
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.VoiceConversation(context.Background(), testPayload())
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("Expected NetworkError, got %v", err)
	}

	stats := client.GetStats()
	if stats.FailedRequests != 1 {
		t.Errorf("Expected 1 failed request, got %d", stats.FailedRequests)
	}
}

func TestVoiceConversationSingleAttempt(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"detail": "transient"}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	if _, err := client.VoiceConversation(context.Background(), testPayload()); err == nil {
		t.Fatal("Expected error")
	}
	if attempts != 1 {
		t.Errorf("Expected exactly one attempt, got %d", attempts)
	}
}

func TestVoiceConversationContextCancel(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the upload so the cancelled connection is noticed; an
		// unread body leaves the handler parked past the cancel
		io.Copy(io.Discard, r.Body)
		close(started)
		<-r.Context().Done()
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := client.VoiceConversation(ctx, testPayload())
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("Expected NetworkError on cancellation, got %v", err)
	}
}

func TestAsk(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/ask" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"answer": "42", "citations": [{"source_filename": "guide.pdf", "page_number": 7, "chunk_index": 3}]}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	resp, err := client.Ask(context.Background(), "what is the answer")
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if resp.Answer != "42" {
		t.Errorf("Expected answer 42, got %q", resp.Answer)
	}
	if len(resp.Citations) != 1 || resp.Citations[0].SourceFilename != "guide.pdf" {
		t.Errorf("Unexpected citations: %+v", resp.Citations)
	}
	if resp.Citations[0].PageNumber == nil || *resp.Citations[0].PageNumber != 7 {
		t.Error("Expected page number 7")
	}

	if _, err := client.Ask(context.Background(), ""); err == nil {
		t.Error("Expected error for empty query")
	}
}

func TestDocumentOperations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/api/documents" && r.Method == http.MethodGet:
			io.WriteString(w, `[{"doc_id": "d1", "source_filename": "a.pdf", "pages": 10, "chunks": 42, "ingested_at": "2026-01-01T00:00:00Z"}]`)
		case r.URL.Path == "/api/documents/d1" && r.Method == http.MethodGet:
			io.WriteString(w, `{"doc_id": "d1", "source_filename": "a.pdf", "pages": 10, "chunks": 42, "ingested_at": "2026-01-01T00:00:00Z"}`)
		case r.URL.Path == "/api/documents/d1" && r.Method == http.MethodDelete:
			io.WriteString(w, `{"status": "deleted"}`)
		case r.URL.Path == "/api/upload" && r.Method == http.MethodPost:
			if _, _, err := r.FormFile("file"); err != nil {
				t.Errorf("Missing file part: %v", err)
			}
			io.WriteString(w, `{"doc_id": "d2", "source_filename": "b.pdf", "pages": 3, "chunks": 9, "ingested_at": "2026-01-02T00:00:00Z"}`)
		default:
			t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	ctx := context.Background()

	docs, err := client.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("ListDocuments failed: %v", err)
	}
	if len(docs) != 1 || docs[0].DocID != "d1" {
		t.Errorf("Unexpected documents: %+v", docs)
	}

	doc, err := client.GetDocument(ctx, "d1")
	if err != nil {
		t.Fatalf("GetDocument failed: %v", err)
	}
	if doc.Chunks != 42 {
		t.Errorf("Expected 42 chunks, got %d", doc.Chunks)
	}

	uploaded, err := client.UploadDocument(ctx, "b.pdf", []byte("%PDF-1.4 fake"))
	if err != nil {
		t.Fatalf("UploadDocument failed: %v", err)
	}
	if uploaded.DocID != "d2" {
		t.Errorf("Expected doc_id d2, got %s", uploaded.DocID)
	}

	if err := client.DeleteDocument(ctx, "d1"); err != nil {
		t.Fatalf("DeleteDocument failed: %v", err)
	}
}

func TestHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/health" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"status": "ok"}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	if err := client.Health(context.Background()); err != nil {
		t.Errorf("Health failed: %v", err)
	}
}

func TestTranscribeAndSynthesize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/voice/transcribe":
			if _, _, err := r.FormFile("file"); err != nil {
				t.Errorf("Missing file part: %v", err)
			}
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"text": "hello world"}`)
		case "/api/voice/synthesize":
			w.Header().Set("Content-Type", "audio/mpeg")
			w.Write([]byte("mp3 bytes"))
		default:
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	ctx := context.Background()

	transcript, err := client.Transcribe(ctx, "q.wav", []byte("wav bytes"))
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if transcript.Text != "hello world" {
		t.Errorf("Unexpected transcript: %q", transcript.Text)
	}

	clip, err := client.Synthesize(ctx, "hello world")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if clip.ContentType != "audio/mpeg" || len(clip.Data) == 0 {
		t.Errorf("Unexpected clip: %+v", clip.ContentType)
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{}, testLogger()); err == nil {
		t.Error("Expected error for empty base URL")
	}

	client, err := NewClient(Config{BaseURL: "http://localhost:8000/"}, testLogger())
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if client.config.BaseURL != "http://localhost:8000" {
		t.Errorf("Expected trailing slash trimmed, got %s", client.config.BaseURL)
	}
}
