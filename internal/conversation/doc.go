// Package conversation is the client's state machine. It owns the
// Ready, Listening, Processing and Speaking lifecycle, coordinates the
// capture controller, visualizer, backend gateway, turn history and
// playback, and enforces the core invariants: at most one capture session,
// at most one in-flight backend exchange, and a visualizer that never
// outlives the session it reads from.
package conversation
