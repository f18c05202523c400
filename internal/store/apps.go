// ABOUTME: ChatGPT app registry persistence methods for SQLiteStore
// ABOUTME: Registry entries record deep links and talk tracks for demos packaged as apps

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CreateApp inserts a new app registry entry.
func (s *SQLiteStore) CreateApp(ctx context.Context, app *ChatGPTApp) error {
	if app.CreatedAt.IsZero() {
		app.CreatedAt = time.Now().UTC()
	}

	tagsJSON, err := marshalSlice(app.Tags)
	if err != nil {
		return err
	}
	promptsJSON, err := marshalSlice(app.RecommendedPrompts)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO chatgpt_apps (id, name, description, deep_link_url, usage_instructions,
			talk_track, owner_email, tags_json, prompts_json, lifecycle_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		app.ID,
		app.Name,
		app.Description,
		app.DeepLinkURL,
		app.UsageInstructions,
		app.TalkTrack,
		app.OwnerEmail,
		tagsJSON,
		promptsJSON,
		app.LifecycleStatus,
		app.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("creating app: %w", err)
	}

	s.logger.Debug("registered app", "app_id", app.ID, "name", app.Name)
	return nil
}

// ListApps returns all registered apps, oldest first.
func (s *SQLiteStore) ListApps(ctx context.Context) ([]*ChatGPTApp, error) {
	query := `
		SELECT id, name, description, deep_link_url, usage_instructions,
			talk_track, owner_email, tags_json, prompts_json, lifecycle_status, created_at
		FROM chatgpt_apps ORDER BY created_at ASC, id ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing apps: %w", err)
	}
	defer rows.Close()

	var apps []*ChatGPTApp
	for rows.Next() {
		var app ChatGPTApp
		var usageInstructions, talkTrack, tagsJSON, promptsJSON sql.NullString
		var createdAt string

		err := rows.Scan(
			&app.ID,
			&app.Name,
			&app.Description,
			&app.DeepLinkURL,
			&usageInstructions,
			&talkTrack,
			&app.OwnerEmail,
			&tagsJSON,
			&promptsJSON,
			&app.LifecycleStatus,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning app: %w", err)
		}

		app.UsageInstructions = usageInstructions.String
		app.TalkTrack = talkTrack.String
		app.Tags = unmarshalSlice(tagsJSON)
		app.RecommendedPrompts = unmarshalSlice(promptsJSON)
		app.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		apps = append(apps, &app)
	}
	return apps, rows.Err()
}
