package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/Aayushyaash/Rag-chatbot/internal/conversation"
)

// terminalView renders state changes and notices on the terminal. The
// status line is redrawn in place; notices get their own lines.
type terminalView struct {
	mu sync.Mutex
	w  io.Writer
}

func newTerminalView(w io.Writer) *terminalView {
	return &terminalView{w: w}
}

func (v *terminalView) StatusChanged(status conversation.Status) {
	v.mu.Lock()
	defer v.mu.Unlock()

	line := fmt.Sprintf("%s %s", status.State.Icon(), status.State.Label())
	if status.Detail != "" {
		line += " - " + status.Detail
	}
	fmt.Fprintf(v.w, "\r\033[K%s", line)

	// The status line stays open while listening so the visualizer can
	// draw next to it
	if status.State != conversation.StateListening {
		fmt.Fprintln(v.w)
	}
}

func (v *terminalView) Notify(kind conversation.NoticeKind, message string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	prefix := "ℹ"
	if kind == conversation.NoticeError {
		prefix = "✗"
	}
	fmt.Fprintf(v.w, "\r\033[K  %s %s\n", prefix, message)
}
