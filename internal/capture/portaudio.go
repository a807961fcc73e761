package capture

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PortAudioDevice implements Device on top of the system's default input
// device. Initialize is performed once on first use and Terminate on Close
// of the last open track.
type PortAudioDevice struct {
	logger *slog.Logger

	mu          sync.Mutex
	initialized bool
	openTracks  int
}

// NewPortAudioDevice creates a PortAudio-backed input device
func NewPortAudioDevice(logger *slog.Logger) *PortAudioDevice {
	return &PortAudioDevice{logger: logger}
}

// Probe verifies that PortAudio initializes and a default input device
// exists. Used at startup to detect unsupported environments before any
// capture is attempted.
func (d *PortAudioDevice) Probe() error {
	if err := d.acquire(); err != nil {
		return err
	}
	defer d.releaseRef()

	info, err := portaudio.DefaultInputDevice()
	if err != nil {
		return classifyDeviceError(err)
	}
	if info.MaxInputChannels < 1 {
		return fmt.Errorf("%w: default device has no input channels", ErrDeviceUnavailable)
	}

	d.logger.Debug("Audio input device available",
		slog.String("device", info.Name),
		slog.Int("max_input_channels", info.MaxInputChannels),
	)
	return nil
}

// Open acquires the default input device and delivers PCM frames to sink
// until the returned track is stopped.
func (d *PortAudioDevice) Open(constraints Constraints, sink func(frame []int16)) (Track, error) {
	if err := d.acquire(); err != nil {
		return nil, err
	}

	stream, err := portaudio.OpenDefaultStream(
		constraints.Channels, 0,
		float64(constraints.SampleRate),
		constraints.FrameSize,
		func(in []int16) {
			frame := make([]int16, len(in))
			copy(frame, in)
			sink(frame)
		},
	)
	if err != nil {
		d.releaseRef()
		return nil, classifyDeviceError(err)
	}

	return &portAudioTrack{stream: stream, device: d}, nil
}

func (d *PortAudioDevice) acquire() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		if err := portaudio.Initialize(); err != nil {
			return classifyDeviceError(err)
		}
		d.initialized = true
	}
	d.openTracks++
	return nil
}

func (d *PortAudioDevice) releaseRef() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.openTracks--
	if d.openTracks == 0 && d.initialized {
		if err := portaudio.Terminate(); err != nil {
			d.logger.Warn("Failed to terminate audio subsystem", slog.String("error", err.Error()))
		}
		d.initialized = false
	}
}

// portAudioTrack wraps an open input stream
type portAudioTrack struct {
	stream *portaudio.Stream
	device *PortAudioDevice

	mu     sync.Mutex
	closed bool
}

func (t *portAudioTrack) Start() error {
	return t.stream.Start()
}

func (t *portAudioTrack) Stop() error {
	return t.stream.Stop()
}

func (t *portAudioTrack) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	err := t.stream.Close()
	t.device.releaseRef()
	return err
}

// classifyDeviceError maps PortAudio errors onto the capture failure
// taxonomy. PortAudio does not expose a permission error code, so the
// classification is by message.
func classifyDeviceError(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "permission") || strings.Contains(msg, "access denied") {
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
}
