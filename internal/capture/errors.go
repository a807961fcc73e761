package capture

import "errors"

var (
	// ErrPermissionDenied indicates the user or operating system declined
	// microphone access.
	ErrPermissionDenied = errors.New("microphone permission denied")

	// ErrDeviceUnavailable indicates no compatible input device or codec
	// exists.
	ErrDeviceUnavailable = errors.New("no compatible audio device or codec available")

	// ErrSessionActive is returned when a capture session is requested while
	// one is already open. The conversation state machine guards against
	// this; hitting it is a programming error, not a recoverable fault.
	ErrSessionActive = errors.New("capture session already active")

	// ErrSessionStopped is returned when a session is stopped twice.
	ErrSessionStopped = errors.New("capture session already stopped")
)
