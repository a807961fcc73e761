package capture

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Payload is the single encoded audio payload assembled from one capture
// session's buffered frames.
type Payload struct {
	SessionID  string
	Data       []byte
	MIMEType   string
	SampleRate int
	Duration   time.Duration
}

// Filename returns a payload filename suitable for the multipart upload
func (p *Payload) Filename() string {
	return fmt.Sprintf("voice_%s.%s", p.SessionID, extensionFor(p.MIMEType))
}

// Session is one open microphone recording, from acquisition to release.
// Frames are buffered between Start and Stop; Stop assembles the payload
// and releases the hardware track unconditionally.
type Session struct {
	ID string

	track       Track
	encoder     Encoder
	constraints Constraints
	release     func(*Session, bool)
	logger      *slog.Logger

	mu        sync.Mutex
	chunks    [][]int16
	samples   int
	active    bool
	stopped   bool
	startedAt time.Time
}

func newSession(constraints Constraints, encoder Encoder, release func(*Session, bool), logger *slog.Logger) *Session {
	return &Session{
		ID:          uuid.NewString(),
		encoder:     encoder,
		constraints: constraints,
		release:     release,
		logger:      logger,
	}
}

// Start begins buffering encoded audio frames. The hardware recording
// indicator is active from this point until Stop.
func (s *Session) Start() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrSessionStopped
	}
	s.active = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	if err := s.track.Start(); err != nil {
		s.mu.Lock()
		s.active = false
		s.mu.Unlock()
		return fmt.Errorf("failed to start recording: %w", err)
	}

	s.logger.Debug("Capture session recording", slog.String("session_id", s.ID))
	return nil
}

// appendFrame buffers one PCM frame delivered by the hardware callback
func (s *Session) appendFrame(frame []int16) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return
	}

	s.chunks = append(s.chunks, frame)
	s.samples += len(frame)
}

// Window returns the most recent n buffered samples, for the visualizer.
// Returns fewer samples if the session has not buffered n yet.
func (s *Session) Window(n int) []int16 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n <= 0 || s.samples == 0 {
		return nil
	}

	if n > s.samples {
		n = s.samples
	}

	window := make([]int16, n)
	remaining := n
	for i := len(s.chunks) - 1; i >= 0 && remaining > 0; i-- {
		chunk := s.chunks[i]
		take := len(chunk)
		if take > remaining {
			take = remaining
		}
		copy(window[remaining-take:remaining], chunk[len(chunk)-take:])
		remaining -= take
	}

	return window
}

// Stop finalizes buffering, assembles one encoded payload from the buffered
// frames, and releases the hardware track. The track is released even when
// payload assembly fails.
func (s *Session) Stop() (*Payload, error) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil, ErrSessionStopped
	}
	s.stopped = true
	s.active = false
	startedAt := s.startedAt
	s.mu.Unlock()

	// Release the hardware unconditionally before touching the buffered
	// audio. Stop completes buffer finalization; Close releases the track.
	stopErr := s.track.Stop()
	closeErr := s.track.Close()

	payload, encodeErr := s.assemblePayload()

	completed := stopErr == nil && closeErr == nil && encodeErr == nil
	s.release(s, completed)

	if stopErr != nil {
		return nil, fmt.Errorf("failed to stop recording: %w", stopErr)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("failed to release recording track: %w", closeErr)
	}
	if encodeErr != nil {
		return nil, encodeErr
	}

	s.logger.Info("Capture session finalized",
		slog.String("session_id", s.ID),
		slog.Duration("duration", time.Since(startedAt)),
		slog.Int("payload_bytes", len(payload.Data)),
		slog.String("codec", payload.MIMEType),
	)

	return payload, nil
}

// assemblePayload flattens the buffered frames and encodes them
func (s *Session) assemblePayload() (*Payload, error) {
	s.mu.Lock()
	chunks := s.chunks
	total := s.samples
	s.chunks = nil
	s.mu.Unlock()

	if total == 0 {
		return nil, fmt.Errorf("no audio captured in session %s", s.ID)
	}

	samples := make([]int16, 0, total)
	for _, chunk := range chunks {
		samples = append(samples, chunk...)
	}

	data, err := s.encoder.Encode(samples, s.constraints.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	duration := time.Duration(total) * time.Second / time.Duration(s.constraints.SampleRate)

	return &Payload{
		SessionID:  s.ID,
		Data:       data,
		MIMEType:   s.encoder.MIMEType(),
		SampleRate: s.constraints.SampleRate,
		Duration:   duration,
	}, nil
}

// Active reports whether the session is currently buffering frames
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}
