package conversation

import (
	"errors"
	"fmt"

	"github.com/Aayushyaash/Rag-chatbot/internal/capture"
	"github.com/Aayushyaash/Rag-chatbot/internal/gateway"
	"github.com/Aayushyaash/Rag-chatbot/internal/playback"
)

// FailureKind classifies the ways a voice exchange can fail. Each kind maps
// to its own user-facing message so failures are actionable, not generic.
type FailureKind string

const (
	FailurePermissionDenied  FailureKind = "permission_denied"
	FailureDeviceUnavailable FailureKind = "device_unavailable"
	FailureNetwork           FailureKind = "network"
	FailureConversation      FailureKind = "conversation"
	FailurePlayback          FailureKind = "playback"

	// FailureCapability is reported once at startup when the environment
	// lacks capture or playback support entirely.
	FailureCapability FailureKind = "capability_unsupported"
)

// ClassifyFailure maps an error from any stage of the exchange onto the
// failure taxonomy and its user-facing message.
func ClassifyFailure(err error) (FailureKind, string) {
	switch {
	case errors.Is(err, capture.ErrPermissionDenied):
		return FailurePermissionDenied, "Microphone access was denied. Check your input permissions and try again."
	case errors.Is(err, capture.ErrDeviceUnavailable):
		return FailureDeviceUnavailable, "No compatible microphone is available."
	}

	var netErr *gateway.NetworkError
	if errors.As(err, &netErr) {
		return FailureNetwork, "Could not reach the assistant. Check your connection and try again."
	}

	var convErr *gateway.ConversationError
	if errors.As(err, &convErr) {
		return FailureConversation, fmt.Sprintf("The assistant could not process that question: %s", convErr.Reason)
	}

	var playErr *playback.Error
	if errors.As(err, &playErr) {
		return FailurePlayback, "The answer arrived but could not be played."
	}

	return FailureConversation, fmt.Sprintf("Something went wrong: %v", err)
}
