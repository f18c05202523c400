// ABOUTME: Template persistence methods for SQLiteStore
// ABOUTME: Covers the template lifecycle from creation through approval to publication

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CreateTemplate inserts a new template. The caller is responsible for
// assigning the ID; CreatedAt defaults to now when zero.
func (s *SQLiteStore) CreateTemplate(ctx context.Context, tpl *Template) error {
	if tpl.CreatedAt.IsZero() {
		tpl.CreatedAt = time.Now().UTC()
	}

	channelsJSON, err := marshalSlice(tpl.Channels)
	if err != nil {
		return err
	}
	tagsJSON, err := marshalSlice(tpl.IndustryTags)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO templates (id, name, description, demo_type, version, channels_json,
			status, complexity, tags_json, sample_dataset, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		tpl.ID,
		tpl.Name,
		tpl.Description,
		tpl.DemoType,
		tpl.Version,
		channelsJSON,
		tpl.Status,
		tpl.Complexity,
		tagsJSON,
		tpl.SampleDataset,
		tpl.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("creating template: %w", err)
	}

	s.logger.Debug("created template", "template_id", tpl.ID, "status", tpl.Status)
	return nil
}

// GetTemplate retrieves a template by ID.
// Returns ErrNotFound if no template exists with that ID.
func (s *SQLiteStore) GetTemplate(ctx context.Context, id string) (*Template, error) {
	query := `
		SELECT id, name, description, demo_type, version, channels_json,
			status, complexity, tags_json, sample_dataset, created_at
		FROM templates WHERE id = ?
	`
	row := s.db.QueryRowContext(ctx, query, id)

	tpl, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying template: %w", err)
	}
	return tpl, nil
}

// ListTemplates returns templates matching the filter, oldest first.
func (s *SQLiteStore) ListTemplates(ctx context.Context, filter TemplateFilter) ([]*Template, error) {
	query := `
		SELECT id, name, description, demo_type, version, channels_json,
			status, complexity, tags_json, sample_dataset, created_at
		FROM templates
	`
	var args []any
	var where []string
	if filter.OnlyApproved {
		where = append(where, "status != 'draft'")
	}
	if filter.DemoType != "" {
		where = append(where, "demo_type = ?")
		args = append(args, filter.DemoType)
	}
	for i, cond := range where {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing templates: %w", err)
	}
	defer rows.Close()

	var templates []*Template
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning template: %w", err)
		}
		templates = append(templates, tpl)
	}
	return templates, rows.Err()
}

// SetTemplateStatus updates the lifecycle status of a template.
// Returns ErrNotFound if no template exists with that ID.
func (s *SQLiteStore) SetTemplateStatus(ctx context.Context, id, status string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE templates SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("updating template status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking template update: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("updated template status", "template_id", id, "status", status)
	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scan helpers.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (*Template, error) {
	var tpl Template
	var channelsJSON, tagsJSON, sampleDataset sql.NullString
	var createdAt string

	err := row.Scan(
		&tpl.ID,
		&tpl.Name,
		&tpl.Description,
		&tpl.DemoType,
		&tpl.Version,
		&channelsJSON,
		&tpl.Status,
		&tpl.Complexity,
		&tagsJSON,
		&sampleDataset,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	tpl.Channels = unmarshalSlice(channelsJSON)
	tpl.IndustryTags = unmarshalSlice(tagsJSON)
	tpl.SampleDataset = sampleDataset.String
	tpl.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &tpl, nil
}
