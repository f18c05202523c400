// ABOUTME: Demo instance persistence methods for SQLiteStore
// ABOUTME: Branding, data binding, and flow config are stored as JSON columns

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// CreateDemo inserts a new demo instance.
func (s *SQLiteStore) CreateDemo(ctx context.Context, demo *Demo) error {
	if demo.CreatedAt.IsZero() {
		demo.CreatedAt = time.Now().UTC()
	}

	brandingJSON, err := json.Marshal(demo.Branding)
	if err != nil {
		return fmt.Errorf("marshaling branding: %w", err)
	}
	bindingJSON, err := json.Marshal(demo.DataBinding)
	if err != nil {
		return fmt.Errorf("marshaling data binding: %w", err)
	}
	flowJSON, err := json.Marshal(demo.Flow)
	if err != nil {
		return fmt.Errorf("marshaling flow config: %w", err)
	}

	query := `
		INSERT INTO demos (id, name, owner_email, template_id, template_version,
			status, branding_json, binding_json, flow_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		demo.ID,
		demo.Name,
		demo.OwnerEmail,
		demo.TemplateID,
		demo.TemplateVersion,
		demo.Status,
		string(brandingJSON),
		string(bindingJSON),
		string(flowJSON),
		demo.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("creating demo: %w", err)
	}

	s.logger.Debug("created demo", "demo_id", demo.ID, "template_id", demo.TemplateID)
	return nil
}

// GetDemo retrieves a demo by ID.
// Returns ErrNotFound if no demo exists with that ID.
func (s *SQLiteStore) GetDemo(ctx context.Context, id string) (*Demo, error) {
	query := `
		SELECT id, name, owner_email, template_id, template_version,
			status, branding_json, binding_json, flow_json, created_at
		FROM demos WHERE id = ?
	`
	row := s.db.QueryRowContext(ctx, query, id)

	demo, err := scanDemo(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying demo: %w", err)
	}
	return demo, nil
}

// ListDemos returns demos ordered newest first, up to limit (0 means no limit).
func (s *SQLiteStore) ListDemos(ctx context.Context, limit int) ([]*Demo, error) {
	query := `
		SELECT id, name, owner_email, template_id, template_version,
			status, branding_json, binding_json, flow_json, created_at
		FROM demos ORDER BY created_at DESC, id DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing demos: %w", err)
	}
	defer rows.Close()

	var demos []*Demo
	for rows.Next() {
		demo, err := scanDemo(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning demo: %w", err)
		}
		demos = append(demos, demo)
	}
	return demos, rows.Err()
}

// SetDemoStatus updates the lifecycle status of a demo.
// Returns ErrNotFound if no demo exists with that ID.
func (s *SQLiteStore) SetDemoStatus(ctx context.Context, id, status string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE demos SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("updating demo status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking demo update: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("updated demo status", "demo_id", id, "status", status)
	return nil
}

func scanDemo(row rowScanner) (*Demo, error) {
	var demo Demo
	var brandingJSON, bindingJSON, flowJSON sql.NullString
	var createdAt string

	err := row.Scan(
		&demo.ID,
		&demo.Name,
		&demo.OwnerEmail,
		&demo.TemplateID,
		&demo.TemplateVersion,
		&demo.Status,
		&brandingJSON,
		&bindingJSON,
		&flowJSON,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	if brandingJSON.Valid {
		_ = json.Unmarshal([]byte(brandingJSON.String), &demo.Branding)
	}
	if bindingJSON.Valid {
		_ = json.Unmarshal([]byte(bindingJSON.String), &demo.DataBinding)
	}
	if flowJSON.Valid {
		_ = json.Unmarshal([]byte(flowJSON.String), &demo.Flow)
	}
	demo.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &demo, nil
}
