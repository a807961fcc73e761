package history

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Aayushyaash/Rag-chatbot/internal/audio"
)

// Role identifies which side of the conversation a turn belongs to.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one utterance in the conversation. Once its audio reference is set
// a turn is immutable except for the compensating removal on request failure.
type Turn struct {
	ID        string      `json:"id"`
	Role      Role        `json:"role"`
	Text      string      `json:"text"`
	Audio     *audio.Clip `json:"audio,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	Pending   bool        `json:"pending"`
}

// Store holds the ordered sequence of conversation turns for the active
// session. Insertion order is significant; the transcript renders
// top-to-bottom. Safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	turns []Turn

	// Statistics
	turnsAdded   uint64
	turnsRemoved uint64
	clears       uint64
}

// StoreStats represents transcript statistics for monitoring
type StoreStats struct {
	CurrentTurns int    `json:"current_turns"`
	TurnsAdded   uint64 `json:"turns_added"`
	TurnsRemoved uint64 `json:"turns_removed"`
	Clears       uint64 `json:"clears"`
}

// NewStore creates an empty conversation transcript
func NewStore() *Store {
	return &Store{
		turns: make([]Turn, 0, 16),
	}
}

// AddTurn appends a turn to the transcript and returns it. A pending turn is
// a placeholder awaiting finalization or rollback.
func (s *Store) AddTurn(role Role, text string, clip *audio.Clip, pending bool) Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	turn := Turn{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		Audio:     clip,
		CreatedAt: time.Now(),
		Pending:   pending,
	}

	s.turns = append(s.turns, turn)
	s.turnsAdded++

	return turn
}

// FinalizeTurn replaces the identified turn's text, attaches the clip when
// one is given, and clears the pending flag. An unknown id means the turn is
// gone, normally because the transcript was cleared while a request was in
// flight.
func (s *Store) FinalizeTurn(id, text string, clip *audio.Clip) (Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.turns {
		if s.turns[i].ID == id {
			s.turns[i].Text = text
			if clip != nil {
				s.turns[i].Audio = clip
			}
			s.turns[i].Pending = false
			return s.turns[i], nil
		}
	}

	return Turn{}, fmt.Errorf("no turn with id %s to finalize", id)
}

// RemoveTurn removes the identified turn. This is the sole compensating
// action, used only when a request fails after placeholders were
// optimistically added. An unknown id reports false.
func (s *Store) RemoveTurn(id string) (Turn, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.turns {
		if s.turns[i].ID == id {
			removed := s.turns[i]
			s.turns = append(s.turns[:i], s.turns[i+1:]...)
			s.turnsRemoved++
			return removed, true
		}
	}

	return Turn{}, false
}

// Clear removes all turns and returns how many were dropped. Clearing an
// empty transcript is a no-op.
func (s *Store) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := len(s.turns)
	if dropped > 0 {
		s.turns = s.turns[:0]
	}
	s.clears++

	return dropped
}

// Turns returns a defensive copy of the transcript
func (s *Store) Turns() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Turn, len(s.turns))
	copy(out, s.turns)

	return out
}

// Len returns the current number of turns
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// GetStats returns current transcript statistics
func (s *Store) GetStats() StoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return StoreStats{
		CurrentTurns: len(s.turns),
		TurnsAdded:   s.turnsAdded,
		TurnsRemoved: s.turnsRemoved,
		Clears:       s.clears,
	}
}
