package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/Aayushyaash/Rag-chatbot/internal/audio"
)

// Per-operation timeouts. Unlike the conversation upload these endpoints
// have predictable latency, so each call is bounded.
const (
	healthTimeout     = 5 * time.Second
	askTimeout        = 30 * time.Second
	uploadTimeout     = 5 * time.Minute
	listTimeout       = 10 * time.Second
	getTimeout        = 10 * time.Second
	deleteTimeout     = 30 * time.Second
	transcribeTimeout = 60 * time.Second
	synthesizeTimeout = 30 * time.Second
)

// Citation points at the source chunk an answer drew from
type Citation struct {
	SourceFilename string `json:"source_filename"`
	PageNumber     *int   `json:"page_number"`
	ChunkIndex     int    `json:"chunk_index"`
}

// RAGResponse is the backend's answer to a text question
type RAGResponse struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
}

// Document represents an ingested document's metadata
type Document struct {
	DocID          string `json:"doc_id"`
	SourceFilename string `json:"source_filename"`
	Pages          *int   `json:"pages"`
	Chunks         int    `json:"chunks"`
	IngestedAt     string `json:"ingested_at"`
}

// Transcript is the backend's transcription of an audio payload
type Transcript struct {
	Text string `json:"text"`
}

// Health checks backend reachability
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	var status struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/health", nil, &status); err != nil {
		return err
	}
	if status.Status == "error" {
		return &NetworkError{Err: fmt.Errorf("backend reports unhealthy")}
	}
	return nil
}

// Ask sends a text question through the RAG pipeline
func (c *Client) Ask(ctx context.Context, query string) (*RAGResponse, error) {
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, askTimeout)
	defer cancel()

	request := map[string]string{"query": query}
	var response RAGResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/ask", request, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// UploadDocument ingests a PDF into the backend's document store. The long
// timeout covers chunking and embedding of large files.
func (c *Client) UploadDocument(ctx context.Context, filename string, content []byte) (*Document, error) {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	body, contentType, err := buildFileForm("file", filename, content)
	if err != nil {
		return nil, err
	}

	var doc Document
	if err := c.doMultipart(ctx, "/api/upload", body, contentType, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListDocuments returns metadata for all ingested documents
func (c *Client) ListDocuments(ctx context.Context) ([]Document, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	var docs []Document
	if err := c.doJSON(ctx, http.MethodGet, "/api/documents", nil, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// GetDocument returns metadata for one document
func (c *Client) GetDocument(ctx context.Context, docID string) (*Document, error) {
	ctx, cancel := context.WithTimeout(ctx, getTimeout)
	defer cancel()

	var doc Document
	if err := c.doJSON(ctx, http.MethodGet, "/api/documents/"+url.PathEscape(docID), nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// DeleteDocument removes a document and its chunks from the backend
func (c *Client) DeleteDocument(ctx context.Context, docID string) error {
	ctx, cancel := context.WithTimeout(ctx, deleteTimeout)
	defer cancel()

	return c.doJSON(ctx, http.MethodDelete, "/api/documents/"+url.PathEscape(docID), nil, nil)
}

// Transcribe converts an audio payload to text without running the full
// conversation pipeline
func (c *Client) Transcribe(ctx context.Context, filename string, content []byte) (*Transcript, error) {
	ctx, cancel := context.WithTimeout(ctx, transcribeTimeout)
	defer cancel()

	body, contentType, err := buildFileForm("file", filename, content)
	if err != nil {
		return nil, err
	}

	var transcript Transcript
	if err := c.doMultipart(ctx, "/api/voice/transcribe", body, contentType, &transcript); err != nil {
		return nil, err
	}
	return &transcript, nil
}

// Synthesize converts text to speech and returns the audio clip
func (c *Client) Synthesize(ctx context.Context, text string) (*audio.Clip, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, synthesizeTimeout)
	defer cancel()

	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/voice/synthesize", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ConversationError{StatusCode: resp.StatusCode, Reason: parseErrorReason(resp.StatusCode, respBody)}
	}

	clipType := resp.Header.Get("Content-Type")
	if clipType == "" {
		clipType = "audio/mpeg"
	}
	return &audio.Clip{Data: respBody, ContentType: clipType}, nil
}

// doJSON performs a JSON request/response round trip
func (c *Client) doJSON(ctx context.Context, method, path string, request, response interface{}) error {
	var body io.Reader
	if request != nil {
		payload, err := json.Marshal(request)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if request != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	c.setAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &ConversationError{StatusCode: resp.StatusCode, Reason: parseErrorReason(resp.StatusCode, respBody)}
	}

	if response != nil {
		if err := json.Unmarshal(respBody, response); err != nil {
			return fmt.Errorf("failed to parse response JSON: %w", err)
		}
	}
	return nil
}

// doMultipart performs a multipart upload expecting a JSON response
func (c *Client) doMultipart(ctx context.Context, path string, body io.Reader, contentType string, response interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	c.setAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &ConversationError{StatusCode: resp.StatusCode, Reason: parseErrorReason(resp.StatusCode, respBody)}
	}

	if response != nil {
		if err := json.Unmarshal(respBody, response); err != nil {
			return fmt.Errorf("failed to parse response JSON: %w", err)
		}
	}
	return nil
}

// buildFileForm creates a single-file multipart body
func buildFileForm(field, filename string, content []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fileWriter, err := writer.CreateFormFile(field, filename)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := fileWriter.Write(content); err != nil {
		return nil, "", fmt.Errorf("failed to write file content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	return &buf, writer.FormDataContentType(), nil
}
