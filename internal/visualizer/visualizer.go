package visualizer

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"
)

// Source provides the most recent captured samples. The active capture
// session implements this.
type Source interface {
	Window(n int) []int16
}

// Renderer consumes one frame of normalized band magnitudes in [0, 1],
// ordered low frequency to high.
type Renderer interface {
	Render(bands []float64)
	Clear()
}

// Config holds visualizer parameters
type Config struct {
	Bands      int
	RefreshHz  int
	WindowSize int
	SampleRate int
}

// Visualizer periodically reads the source's sample window, computes band
// magnitudes, and renders them. Its lifetime is bounded by Stop.
type Visualizer struct {
	source   Source
	renderer Renderer
	config   Config
	logger   *slog.Logger

	cancel   context.CancelFunc
	stopOnce sync.Once
	done     sync.WaitGroup

	mu          sync.Mutex
	framesDrawn uint64
}

// Stats represents visualizer statistics
type Stats struct {
	FramesDrawn uint64 `json:"frames_drawn"`
}

// New creates a visualizer over the given sample source. Start must be
// called to begin rendering.
func New(source Source, renderer Renderer, config Config, logger *slog.Logger) *Visualizer {
	if config.Bands <= 0 {
		config.Bands = 16
	}
	if config.RefreshHz <= 0 {
		config.RefreshHz = 30
	}
	if config.WindowSize <= 0 {
		config.WindowSize = 1024
	}

	return &Visualizer{
		source:   source,
		renderer: renderer,
		config:   config,
		logger:   logger,
	}
}

// Start launches the render loop. The loop runs until Stop or until ctx is
// cancelled, whichever comes first.
func (v *Visualizer) Start(ctx context.Context) {
	ctx, v.cancel = context.WithCancel(ctx)

	v.done.Add(1)
	go v.run(ctx)

	v.logger.Debug("Visualizer started",
		slog.Int("bands", v.config.Bands),
		slog.Int("refresh_hz", v.config.RefreshHz),
		slog.Int("window_size", v.config.WindowSize),
	)
}

// Stop halts rendering and clears the display. Safe to call more than once
// and safe to call concurrently with the render loop.
func (v *Visualizer) Stop() {
	v.stopOnce.Do(func() {
		if v.cancel != nil {
			v.cancel()
		}
		v.done.Wait()
		v.renderer.Clear()
		v.logger.Debug("Visualizer stopped", slog.Uint64("frames_drawn", v.GetStats().FramesDrawn))
	})
}

// GetStats returns current visualizer statistics
func (v *Visualizer) GetStats() Stats {
	v.mu.Lock()
	defer v.mu.Unlock()
	return Stats{FramesDrawn: v.framesDrawn}
}

func (v *Visualizer) run(ctx context.Context) {
	defer v.done.Done()

	interval := time.Second / time.Duration(v.config.RefreshHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			window := v.source.Window(v.config.WindowSize)
			if len(window) == 0 {
				continue
			}

			bands := ComputeBands(window, v.config.SampleRate, v.config.Bands)
			v.renderer.Render(bands)

			v.mu.Lock()
			v.framesDrawn++
			v.mu.Unlock()
		}
	}
}

// ComputeBands folds the sample window's spectrum into band magnitudes
// normalized to [0, 1]. Band center frequencies are spaced logarithmically
// between 80 Hz and the Nyquist limit, which matches how speech energy is
// perceived better than a linear split.
func ComputeBands(samples []int16, sampleRate, bands int) []float64 {
	out := make([]float64, bands)
	if len(samples) == 0 || sampleRate <= 0 || bands <= 0 {
		return out
	}

	const lowHz = 80.0
	highHz := float64(sampleRate) / 2
	if highHz <= lowHz {
		return out
	}

	ratio := math.Pow(highHz/lowHz, 1/float64(bands))
	for i := 0; i < bands; i++ {
		center := lowHz * math.Pow(ratio, float64(i)+0.5)
		out[i] = goertzelMagnitude(samples, sampleRate, center)
	}

	// Normalize against the loudest band so quiet speech still draws
	peak := 0.0
	for _, m := range out {
		if m > peak {
			peak = m
		}
	}
	if peak > 0 {
		for i := range out {
			out[i] /= peak
		}
	}

	return out
}

// goertzelMagnitude computes the normalized magnitude of one frequency bin
// using the Goertzel recurrence. Cheaper than a full FFT for the handful of
// bands the display needs.
func goertzelMagnitude(samples []int16, sampleRate int, freq float64) float64 {
	n := len(samples)
	k := freq * float64(n) / float64(sampleRate)
	w := 2 * math.Pi * k / float64(n)
	coeff := 2 * math.Cos(w)

	var s0, s1, s2 float64
	for _, sample := range samples {
		s0 = float64(sample)/32768.0 + coeff*s1 - s2
		s2 = s1
		s1 = s0
	}

	power := s1*s1 + s2*s2 - coeff*s1*s2
	if power < 0 {
		power = 0
	}
	return math.Sqrt(power) / float64(n)
}
