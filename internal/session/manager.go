package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Store persists session state between process runs. Implemented by
// the SQLite repository; a nil Store disables persistence.
type Store interface {
	GetSessionState(ctx context.Context, sessionID string) ([]byte, error)
	SaveSessionState(ctx context.Context, sessionID string, state []byte) error
}

// Manager owns the live sessions of the process. Sessions are created
// on first use with the configured defaults and restored from the
// store when a persisted record exists.
type Manager struct {
	defaults State
	store    Store

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a session manager with the given state defaults.
func NewManager(defaults State, store Store) *Manager {
	return &Manager{
		defaults: defaults,
		store:    store,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session with the given id, creating and restoring it
// if needed.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[id]; ok {
		return s, nil
	}

	s := New(id, m.defaults)
	if m.store != nil {
		data, err := m.store.GetSessionState(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load session %q: %w", id, err)
		}
		if data != nil {
			if err := s.Deserialize(data); err != nil {
				return nil, fmt.Errorf("restore session %q: %w", id, err)
			}
			// Persisted records predate the current run; review settings
			// always come from live configuration.
			s.mu.Lock()
			s.state.ReviewPatterns = m.defaults.ReviewPatterns
			s.state.ReviewEscalationTarget = m.defaults.ReviewEscalationTarget
			s.state.ReviewTimeout = m.defaults.ReviewTimeout
			s.mu.Unlock()
		}
	}
	m.sessions[id] = s
	return s, nil
}

// Spawn creates a child session that inherits the parent's active
// provider when the defaults leave it unset. The child is registered
// under its own id.
func (m *Manager) Spawn(ctx context.Context, id string, parentID string) (*Session, error) {
	parent, err := m.Get(ctx, parentID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	s := NewChild(id, m.defaults, parent)
	m.sessions[id] = s
	return s, nil
}

// Save writes the session's state through to the store. Failures are
// logged, not fatal: the in-memory session stays authoritative for the
// rest of the run.
func (m *Manager) Save(ctx context.Context, s *Session) {
	if m.store == nil {
		return
	}
	data, err := s.Serialize()
	if err != nil {
		slog.Error("Failed to serialize session state", "session_id", s.ID(), "error", err)
		return
	}
	if err := m.store.SaveSessionState(ctx, s.ID(), data); err != nil {
		slog.Error("Failed to persist session state", "session_id", s.ID(), "error", err)
	}
}
