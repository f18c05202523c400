// ABOUTME: Tests for catalog seeding and read-only template lookup
// ABOUTME: Covers builtin seeding, TOML seed files, and idempotent re-seeding

package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/studio-gateway/internal/store"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSeed_Builtins(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, Seed(ctx, s, "", nil))

	c := New(s, nil)
	approved, err := c.ListApproved(ctx)
	require.NoError(t, err)
	require.Len(t, approved, 2)
	assert.Equal(t, "document-qa-starter", approved[0].ID)
	assert.Equal(t, "generic-web-chat", approved[1].ID)
}

func TestSeed_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, Seed(ctx, s, "", nil))

	// An operator approval must survive a re-seed on restart.
	require.NoError(t, s.SetTemplateStatus(ctx, "document-qa-starter", store.TemplateStatusPublished))
	require.NoError(t, Seed(ctx, s, "", nil))

	tpl, err := s.GetTemplate(context.Background(), "document-qa-starter")
	require.NoError(t, err)
	assert.Equal(t, store.TemplateStatusPublished, tpl.Status)

	all, err := s.ListTemplates(ctx, store.TemplateFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSeed_TOMLFile(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedPath := filepath.Join(t.TempDir(), "catalog.toml")
	seed := `
[[templates]]
id = "contract-analysis"
name = "Contract Analysis"
description = "Clause extraction over uploaded contracts"
demo_type = "contract_analysis"
status = "approved"
industry_tags = ["legal"]
sample_dataset = "contracts-sample"

[[templates]]
id = "dashboard-chat-draft"
name = "Dashboard Chat"
demo_type = "dashboard_chat"
`
	require.NoError(t, os.WriteFile(seedPath, []byte(seed), 0644))
	require.NoError(t, Seed(ctx, s, seedPath, nil))

	tpl, err := s.GetTemplate(ctx, "contract-analysis")
	require.NoError(t, err)
	assert.Equal(t, store.TemplateStatusApproved, tpl.Status)
	assert.Equal(t, []string{"legal"}, tpl.IndustryTags)
	assert.Equal(t, "1.0.0", tpl.Version, "version should default")

	// Entries without a status are seeded as drafts and hidden from the catalog.
	draft, err := s.GetTemplate(ctx, "dashboard-chat-draft")
	require.NoError(t, err)
	assert.Equal(t, store.TemplateStatusDraft, draft.Status)

	c := New(s, nil)
	approved, err := c.ListApproved(ctx)
	require.NoError(t, err)
	for _, got := range approved {
		assert.NotEqual(t, "dashboard-chat-draft", got.ID)
	}
}

func TestSeed_BadTOML(t *testing.T) {
	s := newTestStore(t)
	seedPath := filepath.Join(t.TempDir(), "catalog.toml")
	require.NoError(t, os.WriteFile(seedPath, []byte("[[templates]]\nname = 42\n"), 0644))

	err := Seed(context.Background(), s, seedPath, nil)
	assert.Error(t, err)
}

func TestSeed_MissingFile(t *testing.T) {
	s := newTestStore(t)
	err := Seed(context.Background(), s, filepath.Join(t.TempDir(), "absent.toml"), nil)
	assert.Error(t, err)
}

func TestCatalog_Get(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, Seed(ctx, s, "", nil))

	c := New(s, nil)
	tpl, err := c.Get(ctx, "generic-web-chat")
	require.NoError(t, err)
	assert.Equal(t, "Generic Web Chat", tpl.Name)

	_, err = c.Get(ctx, "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
