// Package playback plays synthesized answer clips through the system's audio
// output. Playback blocks until the clip finishes or the context is
// cancelled, so the caller knows exactly when speaking ends. The speaker sits
// behind the Player interface; tests use fakes instead of real output
// hardware.
package playback
