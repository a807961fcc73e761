package audio

// Clip is an opaque piece of playable audio, as returned by the backend or
// attached to a conversation turn. Data is the raw container bytes;
// ContentType identifies the container ("audio/mpeg", "audio/wav").
type Clip struct {
	Data        []byte `json:"-"`
	ContentType string `json:"content_type"`
}

// Empty reports whether the clip carries no audio data.
func (c *Clip) Empty() bool {
	return c == nil || len(c.Data) == 0
}
