// ABOUTME: Read-only template catalog backed by the store's templates table
// ABOUTME: Seeds builtin templates plus an optional operator-supplied TOML file

package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/2389/studio-gateway/internal/store"
)

// Catalog is the read-only template lookup consulted by the dispatcher.
// The protocol core never writes through it; template lifecycle changes go
// through the studio service.
type Catalog struct {
	store  store.Store
	logger *slog.Logger
}

// New creates a catalog over the given store. Pass nil logger for default.
func New(s store.Store, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{
		store:  s,
		logger: logger.With("component", "catalog"),
	}
}

// ListApproved returns templates whose status is not draft.
func (c *Catalog) ListApproved(ctx context.Context) ([]*store.Template, error) {
	return c.store.ListTemplates(ctx, store.TemplateFilter{OnlyApproved: true})
}

// Get returns a template by ID. Returns store.ErrNotFound for unknown IDs.
func (c *Catalog) Get(ctx context.Context, id string) (*store.Template, error) {
	return c.store.GetTemplate(ctx, id)
}

// builtinTemplates are always seeded so a fresh gateway has a usable catalog.
func builtinTemplates() []*store.Template {
	return []*store.Template{
		{
			ID:          "document-qa-starter",
			Name:        "Document Q&A Starter",
			Description: "RAG chat template",
			DemoType:    "document_qa",
			Version:     "1.0.0",
			Channels:    []string{"web"},
			Status:      store.TemplateStatusApproved,
			Complexity:  "basic",
		},
		{
			ID:          "generic-web-chat",
			Name:        "Generic Web Chat",
			Description: "Branded chat",
			DemoType:    "general_web_chat",
			Version:     "1.0.0",
			Channels:    []string{"web"},
			Status:      store.TemplateStatusApproved,
			Complexity:  "basic",
		},
	}
}

// seedFile is the TOML shape of an operator-supplied catalog seed.
type seedFile struct {
	Templates []seedTemplate `toml:"templates"`
}

type seedTemplate struct {
	ID            string   `toml:"id"`
	Name          string   `toml:"name"`
	Description   string   `toml:"description"`
	DemoType      string   `toml:"demo_type"`
	Version       string   `toml:"version"`
	Channels      []string `toml:"channels"`
	Status        string   `toml:"status"`
	Complexity    string   `toml:"complexity"`
	IndustryTags  []string `toml:"industry_tags"`
	SampleDataset string   `toml:"sample_dataset"`
}

// Seed inserts the builtin templates plus any from the TOML seed file at
// seedPath (empty path skips the file). Existing templates are left untouched,
// so operator edits and approvals survive restarts.
func Seed(ctx context.Context, s store.Store, seedPath string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "catalog")

	templates := builtinTemplates()

	if seedPath != "" {
		fromFile, err := loadSeedFile(seedPath)
		if err != nil {
			return err
		}
		templates = append(templates, fromFile...)
	}

	seeded := 0
	for _, tpl := range templates {
		_, err := s.GetTemplate(ctx, tpl.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("checking template %q: %w", tpl.ID, err)
		}
		if err := s.CreateTemplate(ctx, tpl); err != nil {
			return fmt.Errorf("seeding template %q: %w", tpl.ID, err)
		}
		seeded++
	}

	logger.Info("catalog seeded", "templates", seeded, "seed_file", seedPath)
	return nil
}

func loadSeedFile(path string) ([]*store.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog seed: %w", err)
	}

	var seed seedFile
	if err := toml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parsing catalog seed: %w", err)
	}

	templates := make([]*store.Template, 0, len(seed.Templates))
	for _, st := range seed.Templates {
		if st.ID == "" || st.Name == "" {
			return nil, fmt.Errorf("catalog seed entry missing id or name")
		}
		status := st.Status
		if status == "" {
			status = store.TemplateStatusDraft
		}
		version := st.Version
		if version == "" {
			version = "1.0.0"
		}
		complexity := st.Complexity
		if complexity == "" {
			complexity = "basic"
		}
		templates = append(templates, &store.Template{
			ID:            st.ID,
			Name:          st.Name,
			Description:   st.Description,
			DemoType:      st.DemoType,
			Version:       version,
			Channels:      st.Channels,
			Status:        status,
			Complexity:    complexity,
			IndustryTags:  st.IndustryTags,
			SampleDataset: st.SampleDataset,
		})
	}
	return templates, nil
}
