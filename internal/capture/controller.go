package capture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Constraints mirrors the capture options requested from the input device.
// The processing toggles are advisory: not every device backend can honor
// them, but they travel with the request so backends that can, do.
type Constraints struct {
	SampleRate       int
	Channels         int
	FrameSize        int // samples delivered per hardware callback
	EchoCancellation bool
	NoiseSuppression bool
	AutoGainControl  bool
	CodecPreference  []string
}

// Track is an open hardware recording track. Stop halts frame delivery;
// Close releases the hardware.
type Track interface {
	Start() error
	Stop() error
	Close() error
}

// Device abstracts the audio input hardware. Open acquires the microphone
// with the given constraints and delivers PCM frames to sink until the
// returned track is stopped. Implementations classify acquisition failures
// as ErrPermissionDenied or ErrDeviceUnavailable.
type Device interface {
	Open(constraints Constraints, sink func(frame []int16)) (Track, error)
}

// Controller acquires and releases the microphone and enforces the
// single-session invariant: at most one capture session is open at any time.
type Controller struct {
	device   Device
	encoders []Encoder
	logger   *slog.Logger

	mu     sync.Mutex
	active *Session

	// Statistics
	sessionsStarted   uint64
	sessionsCompleted uint64
	sessionsFailed    uint64
}

// ControllerStats represents capture controller statistics
type ControllerStats struct {
	SessionsStarted   uint64 `json:"sessions_started"`
	SessionsCompleted uint64 `json:"sessions_completed"`
	SessionsFailed    uint64 `json:"sessions_failed"`
	SessionActive     bool   `json:"session_active"`
}

// NewController creates a capture controller over the given input device
func NewController(device Device, logger *slog.Logger) *Controller {
	return &Controller{
		device:   device,
		encoders: DefaultEncoders(),
		logger:   logger,
	}
}

// RequestCapture requests microphone access with the given constraints and
// returns an open (not yet started) capture session. Acquisition failures
// surface as ErrPermissionDenied or ErrDeviceUnavailable; requesting capture
// while a session is active is a programming error.
func (c *Controller) RequestCapture(ctx context.Context, constraints Constraints) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil {
		return nil, ErrSessionActive
	}

	encoder, err := selectEncoder(constraints.CodecPreference, c.encoders)
	if err != nil {
		c.sessionsFailed++
		return nil, err
	}

	session := newSession(constraints, encoder, c.release, c.logger)

	track, err := c.device.Open(constraints, session.appendFrame)
	if err != nil {
		c.sessionsFailed++
		return nil, fmt.Errorf("failed to acquire microphone: %w", err)
	}

	session.track = track
	c.active = session
	c.sessionsStarted++

	c.logger.Info("Capture session acquired",
		slog.String("session_id", session.ID),
		slog.Int("sample_rate", constraints.SampleRate),
		slog.Int("frame_size", constraints.FrameSize),
		slog.String("codec", encoder.MIMEType()),
	)

	return session, nil
}

// Active returns the currently open session, or nil
func (c *Controller) Active() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// GetStats returns current controller statistics
func (c *Controller) GetStats() ControllerStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return ControllerStats{
		SessionsStarted:   c.sessionsStarted,
		SessionsCompleted: c.sessionsCompleted,
		SessionsFailed:    c.sessionsFailed,
		SessionActive:     c.active != nil,
	}
}

// release frees the controller's session slot once the session's hardware
// has been released
func (c *Controller) release(s *Session, completed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == s {
		c.active = nil
	}

	if completed {
		c.sessionsCompleted++
	} else {
		c.sessionsFailed++
	}
}
