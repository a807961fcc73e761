package playback

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"

	"github.com/Aayushyaash/Rag-chatbot/internal/audio"
)

// speakerRate is the fixed output rate the speaker is initialized with.
// Clips at other rates are resampled on the fly.
const speakerRate = beep.SampleRate(44100)

// BeepPlayer plays clips through the system speaker. The speaker device is
// initialized once on first use and shared across plays; only one clip plays
// at a time.
type BeepPlayer struct {
	logger *slog.Logger

	initOnce sync.Once
	initErr  error

	// Speaker entry points; replaced in tests
	speakerInit  func(sampleRate beep.SampleRate, bufferSize int) error
	speakerPlay  func(s ...beep.Streamer)
	speakerClear func()

	// playMu serializes plays; statsMu guards counters and may be taken
	// while playMu is held
	playMu  sync.Mutex
	statsMu sync.Mutex

	// Statistics
	clipsPlayed uint64
	clipsFailed uint64
}

// Stats represents playback statistics
type Stats struct {
	ClipsPlayed uint64 `json:"clips_played"`
	ClipsFailed uint64 `json:"clips_failed"`
}

// NewBeepPlayer creates a speaker-backed player
func NewBeepPlayer(logger *slog.Logger) *BeepPlayer {
	return &BeepPlayer{
		logger:       logger,
		speakerInit:  speaker.Init,
		speakerPlay:  speaker.Play,
		speakerClear: speaker.Clear,
	}
}

// Probe initializes the output device. Used at startup to detect
// unsupported environments before the first answer arrives.
func (p *BeepPlayer) Probe() error {
	return p.initSpeaker()
}

// Play decodes the clip and plays it to completion. Cancelling ctx stops
// playback immediately.
func (p *BeepPlayer) Play(ctx context.Context, clip *audio.Clip) error {
	if clip == nil || clip.Empty() {
		p.recordResult(false)
		return &Error{Reason: "empty audio clip"}
	}

	streamer, format, err := decodeClip(clip)
	if err != nil {
		p.recordResult(false)
		return err
	}
	defer streamer.Close()

	if err := p.initSpeaker(); err != nil {
		p.recordResult(false)
		return &Error{Reason: "audio output unavailable", Err: err}
	}

	// Serialize plays: only one answer speaks at a time
	p.playMu.Lock()
	defer p.playMu.Unlock()

	var stream beep.Streamer = streamer
	if format.SampleRate != speakerRate {
		stream = beep.Resample(4, format.SampleRate, speakerRate, streamer)
	}

	start := time.Now()
	done := make(chan struct{})
	p.speakerPlay(beep.Seq(stream, beep.Callback(func() {
		close(done)
	})))

	select {
	case <-done:
		p.recordResult(true)
		p.logger.Debug("Clip playback finished",
			slog.String("content_type", clip.ContentType),
			slog.Duration("elapsed", time.Since(start)),
		)
		return nil
	case <-ctx.Done():
		p.speakerClear()
		p.recordResult(false)
		return ctx.Err()
	}
}

// GetStats returns current playback statistics
func (p *BeepPlayer) GetStats() Stats {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	return Stats{ClipsPlayed: p.clipsPlayed, ClipsFailed: p.clipsFailed}
}

func (p *BeepPlayer) initSpeaker() error {
	p.initOnce.Do(func() {
		p.initErr = p.speakerInit(speakerRate, speakerRate.N(time.Second/10))
	})
	return p.initErr
}

func (p *BeepPlayer) recordResult(ok bool) {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	if ok {
		p.clipsPlayed++
	} else {
		p.clipsFailed++
	}
}

// decodeClip picks a decoder by the clip's MIME type
func decodeClip(clip *audio.Clip) (beep.StreamSeekCloser, beep.Format, error) {
	reader := io.NopCloser(bytes.NewReader(clip.Data))

	contentType := clip.ContentType
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))

	switch contentType {
	case "audio/mpeg", "audio/mp3":
		streamer, format, err := mp3.Decode(reader)
		if err != nil {
			return nil, beep.Format{}, &Error{Reason: "undecodable mp3 clip", Err: err}
		}
		return streamer, format, nil
	case "audio/wav", "audio/x-wav", "audio/wave":
		streamer, format, err := wav.Decode(reader)
		if err != nil {
			return nil, beep.Format{}, &Error{Reason: "undecodable wav clip", Err: err}
		}
		return streamer, format, nil
	default:
		return nil, beep.Format{}, &Error{Reason: fmt.Sprintf("unsupported clip content type %q", clip.ContentType)}
	}
}
