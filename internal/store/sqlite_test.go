package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) Repository {
	t.Helper()
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "blog.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return repo
}

func TestSessionStateRoundTrip(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	state := []byte(`{"activeProvider":"ghost-main"}`)
	if err := repo.SaveSessionState(ctx, "s1", state); err != nil {
		t.Fatalf("SaveSessionState failed: %v", err)
	}

	got, err := repo.GetSessionState(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSessionState failed: %v", err)
	}
	if string(got) != string(state) {
		t.Errorf("state = %s, want %s", got, state)
	}
}

func TestGetSessionStateMissing(t *testing.T) {
	repo := newTestStore(t)

	got, err := repo.GetSessionState(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetSessionState failed: %v", err)
	}
	if got != nil {
		t.Errorf("state = %s, want nil for a missing session", got)
	}
}

func TestSaveSessionStateUpsert(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	if err := repo.SaveSessionState(ctx, "s1", []byte(`{"activeProvider":"a"}`)); err != nil {
		t.Fatal(err)
	}
	if err := repo.SaveSessionState(ctx, "s1", []byte(`{"activeProvider":"b"}`)); err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetSessionState(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"activeProvider":"b"}` {
		t.Errorf("state = %s, want the updated record", got)
	}
}

func TestDeleteSessionState(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	if err := repo.SaveSessionState(ctx, "s1", []byte(`{}`)); err != nil {
		t.Fatal(err)
	}
	if err := repo.DeleteSessionState(ctx, "s1"); err != nil {
		t.Fatalf("DeleteSessionState failed: %v", err)
	}

	got, err := repo.GetSessionState(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("state = %s after delete, want nil", got)
	}
}

func TestCleanupExpiredSessions(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	if err := repo.SaveSessionState(ctx, "fresh", []byte(`{}`)); err != nil {
		t.Fatal(err)
	}

	removed, err := repo.CleanupExpiredSessions(ctx, time.Hour)
	if err != nil {
		t.Fatalf("CleanupExpiredSessions failed: %v", err)
	}
	if removed != 0 {
		t.Errorf("removed = %d, want 0", removed)
	}

	got, err := repo.GetSessionState(ctx, "fresh")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Error("fresh session removed by cleanup")
	}

	// A negative TTL pushes the threshold into the future and expires
	// everything.
	removed, err = repo.CleanupExpiredSessions(ctx, -time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
}

func TestPing(t *testing.T) {
	repo := newTestStore(t)
	if err := repo.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}
