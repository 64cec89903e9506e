// Package session provides per-conversation state for the blog service.
package session

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// State is the blog-related state slice owned by a single session.
// ActiveProvider routes post operations; the review fields gate the
// publish workflow. Fields left empty fall back to process-wide
// defaults supplied at session creation.
type State struct {
	ActiveProvider         string
	ReviewPatterns         []string
	ReviewEscalationTarget string
	ReviewTimeout          time.Duration
}

// persistedState is the wire/storage layout of State. ReviewTimeout is
// derived from configuration on every run and is intentionally not
// persisted.
type persistedState struct {
	ActiveProvider         *string  `json:"activeProvider"`
	ReviewPatterns         []string `json:"reviewPatterns,omitempty"`
	ReviewEscalationTarget string   `json:"reviewEscalationTarget,omitempty"`
}

// Serialize returns the JSON form of the state for persistence.
func (s *State) Serialize() ([]byte, error) {
	p := persistedState{
		ReviewPatterns:         s.ReviewPatterns,
		ReviewEscalationTarget: s.ReviewEscalationTarget,
	}
	if s.ActiveProvider != "" {
		p.ActiveProvider = &s.ActiveProvider
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("serialize session state: %w", err)
	}
	return data, nil
}

// Deserialize restores the state from its JSON form verbatim.
func (s *State) Deserialize(data []byte) error {
	var p persistedState
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("deserialize session state: %w", err)
	}
	if p.ActiveProvider != nil {
		s.ActiveProvider = *p.ActiveProvider
	} else {
		s.ActiveProvider = ""
	}
	s.ReviewPatterns = p.ReviewPatterns
	s.ReviewEscalationTarget = p.ReviewEscalationTarget
	return nil
}

// Session is the handle threaded through every blog operation. Each
// session owns its own State instance; there is no shared mutable
// state across sessions.
type Session struct {
	id string

	mu    sync.Mutex
	state State
}

// New creates a session with the given id and state defaults.
func New(id string, defaults State) *Session {
	return &Session{id: id, state: defaults}
}

// NewChild creates a session that inherits the active provider from a
// parent snapshot when the defaults leave it unset. Review settings
// always come from the defaults, not the parent.
func NewChild(id string, defaults State, parent *Session) *Session {
	s := New(id, defaults)
	if s.state.ActiveProvider == "" && parent != nil {
		s.state.ActiveProvider = parent.ActiveProvider()
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// ActiveProvider returns the provider this session is routed to, or
// the empty string when none is selected.
func (s *Session) ActiveProvider() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ActiveProvider
}

// SetActiveProvider updates the session's provider routing.
func (s *Session) SetActiveProvider(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ActiveProvider = name
}

// ReviewConfig returns the review gate settings for this session.
func (s *Session) ReviewConfig() (patterns []string, escalationTarget string, timeout time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ReviewPatterns, s.state.ReviewEscalationTarget, s.state.ReviewTimeout
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	st.ReviewPatterns = append([]string(nil), s.state.ReviewPatterns...)
	return st
}

// Serialize returns the JSON form of the session's state.
func (s *Session) Serialize() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Serialize()
}

// Deserialize restores the session's state from its JSON form.
func (s *Session) Deserialize(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Deserialize(data)
}
