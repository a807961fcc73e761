package visualizer

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// barLevels are the partial block characters used for band heights,
// quietest to loudest.
var barLevels = []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// ANSI colors applied by magnitude: green for quiet, yellow for mid,
// red for loud bands.
const (
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorReset  = "\033[0m"
)

// BarRenderer draws band magnitudes as a single-line colored bar meter,
// redrawn in place with a carriage return.
type BarRenderer struct {
	w     io.Writer
	mu    sync.Mutex
	width int
}

// NewBarRenderer creates a bar renderer writing to w
func NewBarRenderer(w io.Writer) *BarRenderer {
	return &BarRenderer{w: w}
}

// Render draws one frame of band magnitudes
func (r *BarRenderer) Render(bands []float64) {
	var b strings.Builder
	b.WriteByte('\r')
	b.WriteString("  🎤 ")

	for _, m := range bands {
		if m < 0 {
			m = 0
		}
		if m > 1 {
			m = 1
		}

		level := int(m * float64(len(barLevels)-1))
		switch {
		case m > 0.75:
			b.WriteString(colorRed)
		case m > 0.4:
			b.WriteString(colorYellow)
		default:
			b.WriteString(colorGreen)
		}
		b.WriteRune(barLevels[level])
	}
	b.WriteString(colorReset)

	r.mu.Lock()
	defer r.mu.Unlock()

	line := b.String()
	fmt.Fprint(r.w, line)
	if len(line) > r.width {
		r.width = len(line)
	}
}

// Clear erases the meter line
func (r *BarRenderer) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.width == 0 {
		return
	}
	fmt.Fprint(r.w, "\r", strings.Repeat(" ", r.width), "\r")
	r.width = 0
}
