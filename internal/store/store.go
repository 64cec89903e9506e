// Package store provides persistence for blog session state.
package store

import (
	"context"
	"time"
)

// Repository persists per-session blog state so sessions can resume
// across process restarts.
type Repository interface {
	// GetSessionState returns the serialized state for a session, or
	// nil when no record exists.
	GetSessionState(ctx context.Context, sessionID string) ([]byte, error)

	// SaveSessionState creates or updates the serialized state for a
	// session.
	SaveSessionState(ctx context.Context, sessionID string, state []byte) error

	// DeleteSessionState removes a session record.
	DeleteSessionState(ctx context.Context, sessionID string) error

	// CleanupExpiredSessions removes session records not updated within
	// ttl and returns how many were removed.
	CleanupExpiredSessions(ctx context.Context, ttl time.Duration) (int64, error)

	// Ping verifies database connectivity and returns an error if the
	// database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
