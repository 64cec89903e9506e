package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/inkroute/inkroute/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db        *sql.DB
	sessionMu sync.Mutex // serializes session writes to prevent SQLITE_BUSY
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS blog_sessions (
		session_id TEXT PRIMARY KEY,
		state_json TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_blog_sessions_updated ON blog_sessions(updated_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetSessionState returns the serialized state for a session, or nil
// when no record exists.
func (s *SQLiteStore) GetSessionState(ctx context.Context, sessionID string) ([]byte, error) {
	query := `SELECT state_json FROM blog_sessions WHERE session_id = ?`

	var stateJSON string
	err := s.db.QueryRowContext(ctx, query, sessionID).Scan(&stateJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}
	return []byte(stateJSON), nil
}

// SaveSessionState creates or updates the serialized state for a
// session.
func (s *SQLiteStore) SaveSessionState(ctx context.Context, sessionID string, state []byte) error {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	now := time.Now().Unix()
	query := `
	INSERT INTO blog_sessions (session_id, state_json, created_at, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(session_id) DO UPDATE SET
		state_json = excluded.state_json,
		updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query, sessionID, string(state), now, now)
	if shared.IsSQLiteConflictError(err) {
		// One retry after the busy timeout; session writes are tiny.
		_, err = s.db.ExecContext(ctx, query, sessionID, string(state), now, now)
	}
	if err != nil {
		return fmt.Errorf("upsert session state: %w", err)
	}
	return nil
}

// DeleteSessionState removes a session record.
func (s *SQLiteStore) DeleteSessionState(ctx context.Context, sessionID string) error {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM blog_sessions WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete session state: %w", err)
	}
	return nil
}

// CleanupExpiredSessions removes session records older than the TTL.
func (s *SQLiteStore) CleanupExpiredSessions(ctx context.Context, ttl time.Duration) (int64, error) {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	threshold := time.Now().Add(-ttl).Unix()
	result, err := s.db.ExecContext(ctx, `DELETE FROM blog_sessions WHERE updated_at < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("cleanup expired sessions: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return rows, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
