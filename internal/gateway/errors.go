package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// ConversationError is a backend-reported failure: the request reached the
// backend and the backend declined it with an error body.
type ConversationError struct {
	StatusCode int
	Reason     string
}

func (e *ConversationError) Error() string {
	return fmt.Sprintf("conversation failed (HTTP %d): %s", e.StatusCode, e.Reason)
}

// NetworkError is a transport-level failure: the request never produced a
// backend response.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("backend unreachable: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// parseErrorReason extracts the human-readable reason from a backend error
// body. The backend reports {"detail": ...}; the UI proxy wraps the same
// failures as {"error": ...}. Anything else falls back to the status text.
func parseErrorReason(statusCode int, body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
		Error  string          `json:"error"`
	}

	if err := json.Unmarshal(body, &payload); err == nil {
		if len(payload.Detail) > 0 {
			var detail string
			if err := json.Unmarshal(payload.Detail, &detail); err == nil {
				return detail
			}
			return string(payload.Detail)
		}
		if payload.Error != "" {
			return payload.Error
		}
	}

	if text := strings.TrimSpace(string(body)); text != "" && len(text) <= 200 {
		return text
	}
	return http.StatusText(statusCode)
}
