package conversation

// State is the machine's current phase. Transitions follow the turn cycle
// Ready, Listening, Processing, Speaking and back to Ready; Error is a
// transient phase shown on failure before the machine returns to Ready.
type State int

const (
	StateReady State = iota
	StateListening
	StateProcessing
	StateSpeaking
	StateError
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateListening:
		return "listening"
	case StateProcessing:
		return "processing"
	case StateSpeaking:
		return "speaking"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Label returns the user-facing status text
func (s State) Label() string {
	switch s {
	case StateReady:
		return "Ready"
	case StateListening:
		return "Listening"
	case StateProcessing:
		return "Thinking"
	case StateSpeaking:
		return "Speaking"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Icon returns the status indicator shown next to the label
func (s State) Icon() string {
	switch s {
	case StateReady:
		return "🟢"
	case StateListening:
		return "🎤"
	case StateProcessing:
		return "⏳"
	case StateSpeaking:
		return "🔊"
	case StateError:
		return "⚠️"
	default:
		return "❔"
	}
}

// Status is one state machine update delivered to the view
type Status struct {
	State  State  `json:"state"`
	Detail string `json:"detail,omitempty"`
}

// NoticeKind classifies view notifications
type NoticeKind int

const (
	NoticeInfo NoticeKind = iota
	NoticeError
)

// View receives state changes and user-facing notices. Implementations must
// not block; updates arrive from the machine's goroutines.
type View interface {
	StatusChanged(status Status)
	Notify(kind NoticeKind, message string)
}
