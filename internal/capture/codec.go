package capture

import (
	"fmt"
	"strings"

	"github.com/Aayushyaash/Rag-chatbot/internal/audio"
)

// MIME types for payload containers
const (
	MIMETypeWAV = "audio/wav"
)

// Encoder turns buffered PCM samples into one encoded payload container.
type Encoder interface {
	MIMEType() string
	Encode(samples []int16, sampleRate int) ([]byte, error)
}

// wavEncoder is the generic fallback codec: uncompressed mono PCM-16 WAV.
type wavEncoder struct{}

func (wavEncoder) MIMEType() string {
	return MIMETypeWAV
}

func (wavEncoder) Encode(samples []int16, sampleRate int) ([]byte, error) {
	return audio.EncodeWAV(samples, sampleRate)
}

// DefaultEncoders returns the registered payload encoders, most preferred
// first.
func DefaultEncoders() []Encoder {
	return []Encoder{wavEncoder{}}
}

// selectEncoder resolves an ordered codec preference list against the
// registered encoders. Preference entries may carry codec parameters
// ("audio/webm;codecs=opus"); matching is on the base MIME type. When no
// preferred codec is supported the generic WAV encoder is used; with no
// usable encoder at all the device is considered unavailable.
func selectEncoder(preference []string, encoders []Encoder) (Encoder, error) {
	if len(encoders) == 0 {
		return nil, fmt.Errorf("%w: no payload encoders registered", ErrDeviceUnavailable)
	}

	for _, want := range preference {
		base := baseMIMEType(want)
		for _, enc := range encoders {
			if baseMIMEType(enc.MIMEType()) == base {
				return enc, nil
			}
		}
	}

	// Generic fallback
	for _, enc := range encoders {
		if enc.MIMEType() == MIMETypeWAV {
			return enc, nil
		}
	}

	return nil, fmt.Errorf("%w: no encoder matches preference %v", ErrDeviceUnavailable, preference)
}

// baseMIMEType strips codec parameters and normalizes case
func baseMIMEType(mime string) string {
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return strings.ToLower(strings.TrimSpace(mime))
}

// extensionFor maps a payload MIME type to a filename extension
func extensionFor(mime string) string {
	switch baseMIMEType(mime) {
	case "audio/webm":
		return "webm"
	case "audio/mpeg":
		return "mp3"
	default:
		return "wav"
	}
}
