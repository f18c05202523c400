// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides session state, template, demo, and grant persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Each pooled connection to a :memory: DSN opens a distinct database, so
	// the pool must stay at one connection for the schema to be visible.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS session_state (
			session_id TEXT PRIMARY KEY,
			state      BLOB NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS templates (
			id             TEXT PRIMARY KEY,
			name           TEXT NOT NULL,
			description    TEXT NOT NULL,
			demo_type      TEXT NOT NULL,
			version        TEXT NOT NULL,
			channels_json  TEXT,
			status         TEXT NOT NULL,
			complexity     TEXT NOT NULL,
			tags_json      TEXT,
			sample_dataset TEXT,
			created_at     TEXT NOT NULL,

			CHECK (status IN ('draft', 'approved', 'published'))
		);

		CREATE INDEX IF NOT EXISTS idx_templates_status ON templates(status);
		CREATE INDEX IF NOT EXISTS idx_templates_demo_type ON templates(demo_type);

		CREATE TABLE IF NOT EXISTS demos (
			id               TEXT PRIMARY KEY,
			name             TEXT NOT NULL,
			owner_email      TEXT NOT NULL,
			template_id      TEXT NOT NULL,
			template_version TEXT NOT NULL,
			status           TEXT NOT NULL,
			branding_json    TEXT,
			binding_json     TEXT,
			flow_json        TEXT,
			created_at       TEXT NOT NULL,

			CHECK (status IN ('draft', 'published', 'archived'))
		);

		CREATE INDEX IF NOT EXISTS idx_demos_status ON demos(status);
		CREATE INDEX IF NOT EXISTS idx_demos_owner ON demos(owner_email);

		CREATE TABLE IF NOT EXISTS guest_grants (
			id                  TEXT PRIMARY KEY,
			demo_id             TEXT NOT NULL,
			access_mode         TEXT NOT NULL,
			expires_at          TEXT NOT NULL,
			emails_json         TEXT,
			domains_json        TEXT,
			max_sessions        INTEGER NOT NULL,
			max_requests        INTEGER NOT NULL,
			max_daily_tokens    INTEGER NOT NULL,
			max_daily_cost_usd  REAL NOT NULL,
			safe_mode_json      TEXT NOT NULL,
			revoked             INTEGER NOT NULL DEFAULT 0,
			created_at          TEXT NOT NULL,

			CHECK (access_mode IN ('invite_only', 'token_link'))
		);

		CREATE INDEX IF NOT EXISTS idx_grants_demo ON guest_grants(demo_id);

		CREATE TABLE IF NOT EXISTS chatgpt_apps (
			id                 TEXT PRIMARY KEY,
			name               TEXT NOT NULL,
			description        TEXT NOT NULL,
			deep_link_url      TEXT NOT NULL,
			usage_instructions TEXT,
			talk_track         TEXT,
			owner_email        TEXT NOT NULL,
			tags_json          TEXT,
			prompts_json       TEXT,
			lifecycle_status   TEXT NOT NULL,
			created_at         TEXT NOT NULL
		);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveSessionState saves or updates the serialized state blob for a session key.
// Uses INSERT OR REPLACE to handle both insert and update cases.
func (s *SQLiteStore) SaveSessionState(ctx context.Context, sessionID string, state []byte) error {
	query := `
		INSERT OR REPLACE INTO session_state (session_id, state, updated_at)
		VALUES (?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		sessionID,
		state,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving session state: %w", err)
	}

	s.logger.Debug("saved session state", "session_id", sessionID, "size", len(state))
	return nil
}

// GetSessionState retrieves the serialized state blob for a session key.
// Returns ErrNotFound if the session has no saved state.
func (s *SQLiteStore) GetSessionState(ctx context.Context, sessionID string) ([]byte, error) {
	query := `SELECT state FROM session_state WHERE session_id = ?`

	var state []byte
	err := s.db.QueryRowContext(ctx, query, sessionID).Scan(&state)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session state: %w", err)
	}

	return state, nil
}

// marshalSlice encodes a string slice as JSON for a nullable TEXT column.
// Empty slices are stored as NULL.
func marshalSlice(values []string) (*string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("marshaling slice: %w", err)
	}
	str := string(b)
	return &str, nil
}

// unmarshalSlice decodes a nullable JSON TEXT column into a string slice.
// Best effort: invalid JSON leaves the slice empty.
func unmarshalSlice(col sql.NullString) []string {
	if !col.Valid {
		return nil
	}
	var values []string
	_ = json.Unmarshal([]byte(col.String), &values)
	return values
}
