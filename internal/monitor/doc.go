// Package monitor provides the local HTTP API for observing the voice
// client: health, statistics, conversation history, sanitized configuration
// and Prometheus metrics. It is a diagnostics surface, not a control
// surface; every endpoint is read-only.
package monitor
