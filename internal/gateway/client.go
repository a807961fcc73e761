package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Aayushyaash/Rag-chatbot/internal/audio"
	"github.com/Aayushyaash/Rag-chatbot/internal/capture"
)

// Client provides HTTP client functionality for the RAG backend API
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger

	// Statistics
	totalRequests   uint64
	successRequests uint64
	failedRequests  uint64
	avgResponseTime time.Duration
	inFlight        bool

	mu sync.RWMutex
}

// Config contains backend client configuration
type Config struct {
	BaseURL string
	APIKey  string
}

// ClientStats represents client statistics
type ClientStats struct {
	TotalRequests   uint64        `json:"total_requests"`
	SuccessRequests uint64        `json:"success_requests"`
	FailedRequests  uint64        `json:"failed_requests"`
	SuccessRate     float64       `json:"success_rate"`
	AvgResponseTime time.Duration `json:"avg_response_time"`
	InFlight        bool          `json:"in_flight"`
}

// NewClient creates a new backend HTTP client. The client itself carries no
// timeout; operations that want one bound it through their context.
func NewClient(config Config, logger *slog.Logger) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("backend URL cannot be empty")
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	httpClient := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// VoiceConversation uploads one captured voice payload and returns the
// synthesized answer audio. Single attempt, no retry and no timeout: the
// backend runs transcription, retrieval and synthesis behind this call and
// its latency is unbounded. Cancel through ctx to abandon the exchange.
//
// Transport failures return *NetworkError; backend-reported failures return
// *ConversationError with the backend's reason.
func (c *Client) VoiceConversation(ctx context.Context, payload *capture.Payload) (*audio.Clip, error) {
	startTime := time.Now()
	c.beginRequest()

	body, contentType, err := buildConversationForm(payload)
	if err != nil {
		c.endRequest(false, time.Since(startTime))
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/voice/conversation", body)
	if err != nil {
		c.endRequest(false, time.Since(startTime))
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	c.setAuth(req)

	c.logger.Info("Uploading voice payload",
		slog.String("session_id", payload.SessionID),
		slog.Int("bytes", len(payload.Data)),
		slog.String("codec", payload.MIMEType),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.endRequest(false, time.Since(startTime))
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.endRequest(false, time.Since(startTime))
		return nil, &NetworkError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.endRequest(false, time.Since(startTime))
		return nil, &ConversationError{
			StatusCode: resp.StatusCode,
			Reason:     parseErrorReason(resp.StatusCode, respBody),
		}
	}

	clipType := resp.Header.Get("Content-Type")
	if clipType == "" {
		clipType = "audio/mpeg"
	}

	elapsed := time.Since(startTime)
	c.endRequest(true, elapsed)

	c.logger.Info("Voice conversation completed",
		slog.String("session_id", payload.SessionID),
		slog.Duration("elapsed", elapsed),
		slog.Int("answer_bytes", len(respBody)),
	)

	return &audio.Clip{Data: respBody, ContentType: clipType}, nil
}

// buildConversationForm creates the multipart body for the conversation
// upload. The backend reads the payload from the "file" part.
func buildConversationForm(payload *capture.Payload) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fileWriter, err := writer.CreateFormFile("file", payload.Filename())
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := fileWriter.Write(payload.Data); err != nil {
		return nil, "", fmt.Errorf("failed to write payload: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	return &buf, writer.FormDataContentType(), nil
}

func (c *Client) setAuth(req *http.Request) {
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}
}

// Statistics methods
func (c *Client) beginRequest() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRequests++
	c.inFlight = true
}

func (c *Client) endRequest(success bool, responseTime time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.inFlight = false
	if success {
		c.successRequests++
	} else {
		c.failedRequests++
	}

	// Simple moving average
	if c.avgResponseTime == 0 {
		c.avgResponseTime = responseTime
	} else {
		c.avgResponseTime = (c.avgResponseTime + responseTime) / 2
	}
}

// GetStats returns current client statistics
func (c *Client) GetStats() ClientStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	successRate := float64(0)
	if c.totalRequests > 0 {
		successRate = float64(c.successRequests) / float64(c.totalRequests) * 100
	}

	return ClientStats{
		TotalRequests:   c.totalRequests,
		SuccessRequests: c.successRequests,
		FailedRequests:  c.failedRequests,
		SuccessRate:     successRate,
		AvgResponseTime: c.avgResponseTime,
		InFlight:        c.inFlight,
	}
}
