package playback

import (
	"context"
	"fmt"

	"github.com/Aayushyaash/Rag-chatbot/internal/audio"
)

// Player plays one audio clip to completion. Play blocks until the clip
// finishes, fails, or ctx is cancelled; a nil return means the clip played
// to the end.
type Player interface {
	Play(ctx context.Context, clip *audio.Clip) error
}

// Error is a playback failure: the clip was undecodable, empty, or the
// output device rejected it.
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("playback failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("playback failed: %s", e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}
