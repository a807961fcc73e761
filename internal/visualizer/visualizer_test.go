package visualizer

import (
	"context"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"
)

type fakeSource struct {
	mu      sync.Mutex
	samples []int16
}

func (s *fakeSource) Window(n int) []int16 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n > len(s.samples) {
		n = len(s.samples)
	}
	return s.samples[len(s.samples)-n:]
}

type countingRenderer struct {
	mu      sync.Mutex
	frames  int
	cleared int
	last    []float64
}

func (r *countingRenderer) Render(bands []float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames++
	r.last = append([]float64(nil), bands...)
}

func (r *countingRenderer) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleared++
}

func (r *countingRenderer) snapshot() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames, r.cleared
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sineWindow(freq float64, sampleRate, n int) []int16 {
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(20000 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}
	return samples
}

func TestVisualizerRendersAndStops(t *testing.T) {
	source := &fakeSource{samples: sineWindow(440, 16000, 2048)}
	renderer := &countingRenderer{}

	v := New(source, renderer, Config{
		Bands:      8,
		RefreshHz:  100,
		WindowSize: 1024,
		SampleRate: 16000,
	}, testLogger())

	v.Start(context.Background())
	time.Sleep(100 * time.Millisecond)
	v.Stop()

	frames, cleared := renderer.snapshot()
	if frames == 0 {
		t.Error("Expected at least one rendered frame")
	}
	if cleared != 1 {
		t.Errorf("Expected display cleared once, got %d", cleared)
	}

	stats := v.GetStats()
	if stats.FramesDrawn == 0 {
		t.Error("Expected non-zero frames drawn in stats")
	}

	// No frames after stop
	time.Sleep(50 * time.Millisecond)
	after, _ := renderer.snapshot()
	if after != frames {
		t.Errorf("Expected no rendering after Stop, got %d extra frames", after-frames)
	}
}

func TestVisualizerStopIdempotent(t *testing.T) {
	source := &fakeSource{samples: make([]int16, 1024)}
	renderer := &countingRenderer{}

	v := New(source, renderer, Config{Bands: 4, RefreshHz: 50, WindowSize: 512, SampleRate: 16000}, testLogger())
	v.Start(context.Background())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v.Stop()
		}()
	}
	wg.Wait()

	_, cleared := renderer.snapshot()
	if cleared != 1 {
		t.Errorf("Expected exactly one clear across concurrent stops, got %d", cleared)
	}
}

func TestVisualizerSkipsEmptyWindow(t *testing.T) {
	source := &fakeSource{}
	renderer := &countingRenderer{}

	v := New(source, renderer, Config{Bands: 4, RefreshHz: 100, WindowSize: 512, SampleRate: 16000}, testLogger())
	v.Start(context.Background())
	time.Sleep(60 * time.Millisecond)
	v.Stop()

	frames, _ := renderer.snapshot()
	if frames != 0 {
		t.Errorf("Expected no frames rendered for an empty source, got %d", frames)
	}
}

func TestComputeBands(t *testing.T) {
	const sampleRate = 16000
	const bands = 16

	t.Run("tone concentrates energy", func(t *testing.T) {
		out := ComputeBands(sineWindow(440, sampleRate, 2048), sampleRate, bands)
		if len(out) != bands {
			t.Fatalf("Expected %d bands, got %d", bands, len(out))
		}

		peak := 0
		for i, m := range out {
			if m < 0 || m > 1 {
				t.Errorf("Band %d magnitude %f outside [0, 1]", i, m)
			}
			if m > out[peak] {
				peak = i
			}
		}
		if out[peak] != 1 {
			t.Errorf("Expected loudest band normalized to 1, got %f", out[peak])
		}
		// 440 Hz sits in the lower half of an 80 Hz to 8 kHz log scale
		if peak >= bands/2 {
			t.Errorf("Expected 440 Hz tone to peak in lower bands, peaked at %d", peak)
		}
	})

	t.Run("silence yields zero bands", func(t *testing.T) {
		out := ComputeBands(make([]int16, 1024), sampleRate, bands)
		for i, m := range out {
			if m != 0 {
				t.Errorf("Band %d: expected 0 for silence, got %f", i, m)
			}
		}
	})

	t.Run("empty input", func(t *testing.T) {
		out := ComputeBands(nil, sampleRate, bands)
		if len(out) != bands {
			t.Errorf("Expected %d zero bands for empty input, got %d", bands, len(out))
		}
	})
}
