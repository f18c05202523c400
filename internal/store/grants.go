// ABOUTME: Guest access grant persistence methods for SQLiteStore
// ABOUTME: Grants are revoked in place, never deleted, so share tokens can be checked

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// CreateGrant inserts a new guest access grant.
func (s *SQLiteStore) CreateGrant(ctx context.Context, grant *GuestGrant) error {
	if grant.CreatedAt.IsZero() {
		grant.CreatedAt = time.Now().UTC()
	}

	emailsJSON, err := marshalSlice(grant.AllowedEmails)
	if err != nil {
		return err
	}
	domainsJSON, err := marshalSlice(grant.AllowedDomains)
	if err != nil {
		return err
	}
	safeModeJSON, err := json.Marshal(grant.SafeMode)
	if err != nil {
		return fmt.Errorf("marshaling safe mode: %w", err)
	}

	query := `
		INSERT INTO guest_grants (id, demo_id, access_mode, expires_at, emails_json,
			domains_json, max_sessions, max_requests, max_daily_tokens,
			max_daily_cost_usd, safe_mode_json, revoked, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		grant.ID,
		grant.DemoID,
		grant.AccessMode,
		grant.ExpiresAt.UTC().Format(time.RFC3339),
		emailsJSON,
		domainsJSON,
		grant.MaxSessions,
		grant.MaxRequestsPerSession,
		grant.MaxDailyTokens,
		grant.MaxDailyCostUSD,
		string(safeModeJSON),
		grant.Revoked,
		grant.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("creating grant: %w", err)
	}

	s.logger.Debug("created grant", "grant_id", grant.ID, "demo_id", grant.DemoID)
	return nil
}

// GetGrant retrieves a grant by ID.
// Returns ErrNotFound if no grant exists with that ID.
func (s *SQLiteStore) GetGrant(ctx context.Context, id string) (*GuestGrant, error) {
	row := s.db.QueryRowContext(ctx, grantSelect+` WHERE id = ?`, id)

	grant, err := scanGrant(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying grant: %w", err)
	}
	return grant, nil
}

// RevokeGrant marks a grant as revoked.
// Returns ErrNotFound if no grant exists with that ID.
func (s *SQLiteStore) RevokeGrant(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE guest_grants SET revoked = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("revoking grant: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking grant update: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("revoked grant", "grant_id", id)
	return nil
}

// ListGrantsForDemo returns all grants for a demo, oldest first.
func (s *SQLiteStore) ListGrantsForDemo(ctx context.Context, demoID string) ([]*GuestGrant, error) {
	rows, err := s.db.QueryContext(ctx,
		grantSelect+` WHERE demo_id = ? ORDER BY created_at ASC, id ASC`, demoID)
	if err != nil {
		return nil, fmt.Errorf("listing grants: %w", err)
	}
	defer rows.Close()

	var grants []*GuestGrant
	for rows.Next() {
		grant, err := scanGrant(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning grant: %w", err)
		}
		grants = append(grants, grant)
	}
	return grants, rows.Err()
}

const grantSelect = `
	SELECT id, demo_id, access_mode, expires_at, emails_json, domains_json,
		max_sessions, max_requests, max_daily_tokens, max_daily_cost_usd,
		safe_mode_json, revoked, created_at
	FROM guest_grants
`

func scanGrant(row rowScanner) (*GuestGrant, error) {
	var grant GuestGrant
	var emailsJSON, domainsJSON sql.NullString
	var safeModeJSON string
	var expiresAt, createdAt string

	err := row.Scan(
		&grant.ID,
		&grant.DemoID,
		&grant.AccessMode,
		&expiresAt,
		&emailsJSON,
		&domainsJSON,
		&grant.MaxSessions,
		&grant.MaxRequestsPerSession,
		&grant.MaxDailyTokens,
		&grant.MaxDailyCostUSD,
		&safeModeJSON,
		&grant.Revoked,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	grant.AllowedEmails = unmarshalSlice(emailsJSON)
	grant.AllowedDomains = unmarshalSlice(domainsJSON)
	if err := json.Unmarshal([]byte(safeModeJSON), &grant.SafeMode); err != nil {
		return nil, fmt.Errorf("unmarshaling safe mode: %w", err)
	}
	grant.ExpiresAt, _ = time.Parse(time.RFC3339, expiresAt)
	grant.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &grant, nil
}
