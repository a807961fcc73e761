// Package capture owns microphone acquisition and recording. It buffers PCM
// frames for the lifetime of one capture session, assembles them into a
// single encoded payload on stop, and releases the hardware track
// unconditionally. The hardware itself sits behind the Device interface so
// the rest of the client never touches PortAudio directly.
package capture
