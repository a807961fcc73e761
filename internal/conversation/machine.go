package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Aayushyaash/Rag-chatbot/internal/audio"
	"github.com/Aayushyaash/Rag-chatbot/internal/capture"
	"github.com/Aayushyaash/Rag-chatbot/internal/history"
	"github.com/Aayushyaash/Rag-chatbot/internal/playback"
)

// Turn text shown for audio-only exchanges. The client never sees the
// backend's transcription, so spoken turns carry placeholder text and the
// assistant turn carries the answer clip.
const (
	userTurnText         = "[Spoken question]"
	assistantTurnText    = "[Spoken answer]"
	assistantPendingText = "…"
)

var (
	// ErrNotReady is returned when listening is requested outside Ready
	ErrNotReady = errors.New("conversation is not ready to listen")

	// ErrNotListening is returned when a stop is requested with no open
	// capture session
	ErrNotListening = errors.New("conversation is not listening")

	// ErrClosed is returned after the machine has shut down
	ErrClosed = errors.New("conversation machine is closed")
)

// CaptureSession is the slice of a capture session the machine drives
type CaptureSession interface {
	Start() error
	Stop() (*capture.Payload, error)
	Window(n int) []int16
}

// Capturer acquires capture sessions
type Capturer interface {
	RequestCapture(ctx context.Context, constraints capture.Constraints) (CaptureSession, error)
}

// Gateway runs one voice exchange against the backend
type Gateway interface {
	VoiceConversation(ctx context.Context, payload *capture.Payload) (*audio.Clip, error)
}

// Visualizer renders live audio while listening. Stop must be idempotent.
type Visualizer interface {
	Start(ctx context.Context)
	Stop()
}

// VisualizerFactory builds a visualizer over a session's audio window. A nil
// factory disables visualization.
type VisualizerFactory func(source CaptureSession) Visualizer

// Observer receives machine events for metrics. All methods are called
// synchronously from the machine.
type Observer interface {
	StateTransition(from, to State)
	ExchangeCompleted(outcome string, elapsed time.Duration)
	FailureObserved(kind FailureKind)
	CaptureStarted()
	CaptureFailed()
	PayloadReady(duration time.Duration, sizeBytes int)
	PlaybackFinished(ok bool)
}

// NopObserver ignores all events
type NopObserver struct{}

func (NopObserver) StateTransition(from, to State)                    {}
func (NopObserver) ExchangeCompleted(outcome string, d time.Duration) {}
func (NopObserver) FailureObserved(kind FailureKind)                  {}
func (NopObserver) CaptureStarted()                                   {}
func (NopObserver) CaptureFailed()                                    {}
func (NopObserver) PayloadReady(d time.Duration, sizeBytes int)       {}
func (NopObserver) PlaybackFinished(ok bool)                          {}

// Deps carries the machine's collaborators
type Deps struct {
	Capturer      Capturer
	Gateway       Gateway
	Player        playback.Player
	Store         *history.Store
	View          View
	Observer      Observer
	NewVisualizer VisualizerFactory
	Constraints   capture.Constraints
	Logger        *slog.Logger
}

// Machine is the conversation state machine. All public methods are safe
// for concurrent use.
type Machine struct {
	deps Deps

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu            sync.Mutex
	state         State
	session       CaptureSession
	vis           Visualizer
	exchangeStart time.Time
	closed        bool

	// Placeholder turns for the in-flight exchange, addressed by id so a
	// mid-exchange clear cannot make the rollback hit someone else's turn
	pendingUserID      string
	pendingAssistantID string

	// Statistics
	exchangesStarted   uint64
	exchangesCompleted uint64
	exchangesFailed    uint64
	failuresByKind     map[FailureKind]uint64
}

// MachineStats represents conversation machine statistics
type MachineStats struct {
	State              string                 `json:"state"`
	ExchangesStarted   uint64                 `json:"exchanges_started"`
	ExchangesCompleted uint64                 `json:"exchanges_completed"`
	ExchangesFailed    uint64                 `json:"exchanges_failed"`
	FailuresByKind     map[FailureKind]uint64 `json:"failures_by_kind"`
}

// NewMachine creates a conversation machine in the Ready state
func NewMachine(deps Deps) (*Machine, error) {
	if deps.Capturer == nil || deps.Gateway == nil || deps.Player == nil {
		return nil, fmt.Errorf("capturer, gateway and player are required")
	}
	if deps.Store == nil {
		deps.Store = history.NewStore()
	}
	if deps.Observer == nil {
		deps.Observer = NopObserver{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	m := &Machine{
		deps:           deps,
		ctx:            ctx,
		cancel:         cancel,
		state:          StateReady,
		failuresByKind: make(map[FailureKind]uint64),
	}

	if deps.View != nil {
		deps.View.StatusChanged(Status{State: StateReady})
	}

	return m, nil
}

// StartListening opens a capture session and begins recording. Valid only
// in the Ready state; in any other state the request is rejected.
func (m *Machine) StartListening() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if m.state != StateReady {
		return fmt.Errorf("%w: state is %s", ErrNotReady, m.state)
	}

	session, err := m.deps.Capturer.RequestCapture(m.ctx, m.deps.Constraints)
	if err != nil {
		m.deps.Observer.CaptureFailed()
		m.failLocked(err)
		return err
	}

	if err := session.Start(); err != nil {
		// Session start failed after acquisition: release the hardware
		session.Stop()
		m.deps.Observer.CaptureFailed()
		m.failLocked(err)
		return err
	}

	m.deps.Observer.CaptureStarted()
	m.session = session
	if m.deps.NewVisualizer != nil {
		m.vis = m.deps.NewVisualizer(session)
		m.vis.Start(m.ctx)
	}

	m.transitionLocked(StateListening, "")
	return nil
}

// StopListening closes the capture session and launches the backend
// exchange. The visualizer is torn down before the session so it never
// reads a finalized buffer.
func (m *Machine) StopListening() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if m.state != StateListening {
		return fmt.Errorf("%w: state is %s", ErrNotListening, m.state)
	}

	m.stopVisualizerLocked()

	session := m.session
	m.session = nil

	payload, err := session.Stop()
	if err != nil {
		m.deps.Observer.CaptureFailed()
		m.failLocked(err)
		return err
	}
	m.deps.Observer.PayloadReady(payload.Duration, len(payload.Data))

	// Optimistic turns: the question and a pending answer slot appear
	// immediately and are rolled back together if the exchange fails
	m.pendingUserID = m.deps.Store.AddTurn(history.RoleUser, userTurnText, nil, true).ID
	m.pendingAssistantID = m.deps.Store.AddTurn(history.RoleAssistant, assistantPendingText, nil, true).ID

	m.transitionLocked(StateProcessing, "")
	m.exchangesStarted++
	m.exchangeStart = time.Now()

	m.wg.Add(1)
	go m.runExchange(payload)

	return nil
}

// runExchange performs the single backend attempt for one voice exchange
func (m *Machine) runExchange(payload *capture.Payload) {
	defer m.wg.Done()

	clip, err := m.deps.Gateway.VoiceConversation(m.ctx, payload)
	m.onGatewayResult(clip, err)
}

func (m *Machine) onGatewayResult(clip *audio.Clip, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}

	elapsed := time.Since(m.exchangeStart)
	userID, assistantID := m.pendingUserID, m.pendingAssistantID
	m.pendingUserID, m.pendingAssistantID = "", ""

	if err != nil {
		// Roll back the optimistic placeholders; a mid-exchange clear
		// already removed both
		_, removedAssistant := m.deps.Store.RemoveTurn(assistantID)
		_, removedUser := m.deps.Store.RemoveTurn(userID)
		if !removedAssistant && !removedUser {
			m.deps.Logger.Debug("No pending turns to roll back")
		}

		m.exchangesFailed++
		m.deps.Observer.ExchangeCompleted("failure", elapsed)
		m.failLocked(err)
		return
	}

	if _, finalizeErr := m.deps.Store.FinalizeTurn(userID, userTurnText, nil); finalizeErr != nil {
		// The transcript was cleared mid-exchange: re-add the pair so the
		// answer is not orphaned
		m.deps.Store.AddTurn(history.RoleUser, userTurnText, nil, false)
		m.deps.Store.AddTurn(history.RoleAssistant, assistantTurnText, clip, false)
	} else if _, finalizeErr := m.deps.Store.FinalizeTurn(assistantID, assistantTurnText, clip); finalizeErr != nil {
		m.deps.Store.AddTurn(history.RoleAssistant, assistantTurnText, clip, false)
	}

	m.exchangesCompleted++
	m.deps.Observer.ExchangeCompleted("success", elapsed)
	m.transitionLocked(StateSpeaking, "")

	m.wg.Add(1)
	go m.playClip(clip)
}

// playClip speaks one answer clip and returns the machine to Ready
func (m *Machine) playClip(clip *audio.Clip) {
	defer m.wg.Done()

	err := m.deps.Player.Play(m.ctx, clip)
	m.onPlaybackDone(err)
}

func (m *Machine) onPlaybackDone(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}

	m.deps.Observer.PlaybackFinished(err == nil)

	if err != nil && !errors.Is(err, context.Canceled) {
		m.failLocked(err)
		return
	}

	m.transitionLocked(StateReady, "")
}

// ClearHistory removes all turns. Clearing an empty history is a no-op.
// Placeholders for an in-flight exchange are cleared too; the exchange's
// result is re-added on completion rather than stitched onto removed turns.
func (m *Machine) ClearHistory() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := m.deps.Store.Clear()
	if removed > 0 && m.deps.View != nil {
		m.deps.View.Notify(NoticeInfo, "Conversation cleared")
	}
	return removed
}

// State returns the machine's current state
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// GetStats returns current machine statistics
func (m *Machine) GetStats() MachineStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	byKind := make(map[FailureKind]uint64, len(m.failuresByKind))
	for kind, count := range m.failuresByKind {
		byKind[kind] = count
	}

	return MachineStats{
		State:              m.state.String(),
		ExchangesStarted:   m.exchangesStarted,
		ExchangesCompleted: m.exchangesCompleted,
		ExchangesFailed:    m.exchangesFailed,
		FailuresByKind:     byKind,
	}
}

// Close shuts the machine down: cancels any in-flight exchange and
// playback, releases the capture session, and waits for goroutines.
func (m *Machine) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true

	m.stopVisualizerLocked()
	if m.session != nil {
		m.session.Stop()
		m.session = nil
	}
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()
	return nil
}

// failLocked classifies the failure, surfaces it through the transient
// Error state, and returns the machine to Ready. Callers hold m.mu.
func (m *Machine) failLocked(err error) {
	kind, message := ClassifyFailure(err)
	m.failuresByKind[kind]++
	m.deps.Observer.FailureObserved(kind)

	m.deps.Logger.Error("Conversation failure",
		slog.String("kind", string(kind)),
		slog.String("error", err.Error()),
	)

	m.transitionLocked(StateError, message)
	if m.deps.View != nil {
		m.deps.View.Notify(NoticeError, message)
	}
	m.transitionLocked(StateReady, "")
}

// transitionLocked moves to a new state and fans the update out. Callers
// hold m.mu.
func (m *Machine) transitionLocked(to State, detail string) {
	from := m.state
	m.state = to

	m.deps.Observer.StateTransition(from, to)
	m.deps.Logger.Debug("State transition",
		slog.String("from", from.String()),
		slog.String("to", to.String()),
	)

	if m.deps.View != nil {
		m.deps.View.StatusChanged(Status{State: to, Detail: detail})
	}
}

// stopVisualizerLocked tears down the visualizer if one is running.
// Callers hold m.mu.
func (m *Machine) stopVisualizerLocked() {
	if m.vis != nil {
		m.vis.Stop()
		m.vis = nil
	}
}

// controllerCapturer adapts the capture controller to the Capturer
// interface
type controllerCapturer struct {
	controller *capture.Controller
}

// NewCapturer wraps a capture controller for use as the machine's Capturer
func NewCapturer(c *capture.Controller) Capturer {
	return controllerCapturer{controller: c}
}

func (c controllerCapturer) RequestCapture(ctx context.Context, constraints capture.Constraints) (CaptureSession, error) {
	session, err := c.controller.RequestCapture(ctx, constraints)
	if err != nil {
		return nil, err
	}
	return session, nil
}
