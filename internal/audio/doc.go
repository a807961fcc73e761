// Package audio provides the shared audio clip type and PCM/WAV encoding.
// It implements mono PCM-16 WAV assembly for capture payloads and decoding
// for inspecting synthesized-speech responses in tests and tooling.
package audio
