// ABOUTME: Tests for SQLite store initialization and session state persistence
// ABOUTME: Covers schema creation, blob round-trips, and overwrite semantics

package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	return s
}

func TestNewSQLiteStore(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	// Verify the database file was created
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "subdir", "nested", "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created in nested directory")
	}
}

func TestSessionState_SaveAndGet(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	state := []byte(`{"sessionId":"s1","requestCount":3,"demos":[]}`)

	if err := store.SaveSessionState(ctx, "s1", state); err != nil {
		t.Fatalf("SaveSessionState failed: %v", err)
	}

	got, err := store.GetSessionState(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSessionState failed: %v", err)
	}
	if string(got) != string(state) {
		t.Errorf("state mismatch: got %s, want %s", got, state)
	}
}

func TestSessionState_NotFound(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	_, err := store.GetSessionState(context.Background(), "unseen")
	if err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionState_Overwrite(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	if err := store.SaveSessionState(ctx, "s1", []byte(`{"requestCount":1}`)); err != nil {
		t.Fatalf("SaveSessionState failed: %v", err)
	}
	if err := store.SaveSessionState(ctx, "s1", []byte(`{"requestCount":2}`)); err != nil {
		t.Fatalf("SaveSessionState failed: %v", err)
	}

	got, err := store.GetSessionState(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSessionState failed: %v", err)
	}
	if string(got) != `{"requestCount":2}` {
		t.Errorf("expected latest state, got %s", got)
	}
}

func TestSessionState_SurvivesReopen(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	state := []byte(`{"sessionId":"s1","requestCount":7,"demos":[]}`)
	if err := store.SaveSessionState(ctx, "s1", state); err != nil {
		t.Fatalf("SaveSessionState failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("reopening store failed: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.GetSessionState(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSessionState after reopen failed: %v", err)
	}
	if string(got) != string(state) {
		t.Errorf("state lost across reopen: got %s, want %s", got, state)
	}
}
