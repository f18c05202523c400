// ABOUTME: Store interface and data types for studio-gateway persistence
// ABOUTME: Defines Template, Demo, GuestGrant structs and the Store interface for database operations

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// Template status values
const (
	TemplateStatusDraft     = "draft"
	TemplateStatusApproved  = "approved"
	TemplateStatusPublished = "published"
)

// Demo status values
const (
	DemoStatusDraft     = "draft"
	DemoStatusPublished = "published"
	DemoStatusArchived  = "archived"
)

// Grant access modes
const (
	AccessModeInviteOnly = "invite_only"
	AccessModeTokenLink  = "token_link"
)

// Template is a reusable demo blueprint. Templates move through a
// draft -> approved -> published lifecycle; only non-draft templates are
// visible to the tool catalog.
type Template struct {
	ID            string
	Name          string
	Description   string // markdown
	DemoType      string
	Version       string
	Channels      []string
	Status        string
	Complexity    string
	IndustryTags  []string
	SampleDataset string
	CreatedAt     time.Time
}

// BrandingPackage carries prospect-facing presentation settings for a demo.
type BrandingPackage struct {
	ProspectName string `json:"prospect_name"`
	Palette      string `json:"palette"`
	Title        string `json:"title"`
	WelcomeText  string `json:"welcome_text"`
	LogoURL      string `json:"logo_url,omitempty"`
	CTAText      string `json:"cta_text,omitempty"`
}

// DataBinding describes the datasets and connectors a demo is wired to.
type DataBinding struct {
	DatasetIDs     []string `json:"dataset_ids"`
	ConnectorRefs  []string `json:"connector_refs,omitempty"`
	MetadataSchema string   `json:"metadata_schema"`
	RetentionDays  int      `json:"retention_days"`
}

// FlowConfig selects the conversational flow a demo runs.
type FlowConfig struct {
	Mode         string         `json:"mode"`
	Presets      []string       `json:"presets,omitempty"`
	Parameters   map[string]any `json:"parameters,omitempty"`
	AllowedTools []string       `json:"allowed_tools"`
}

// Demo is a created demo instance built from a template.
type Demo struct {
	ID              string
	Name            string
	OwnerEmail      string
	TemplateID      string
	TemplateVersion string
	Status          string
	Branding        BrandingPackage
	DataBinding     DataBinding
	Flow            FlowConfig
	CreatedAt       time.Time
}

// SafeDemoMode holds the guardrail flags applied to guest sessions.
type SafeDemoMode struct {
	Enabled                  bool `json:"enabled"`
	ReadOnlyTools            bool `json:"read_only_tools"`
	ExportsEnabled           bool `json:"exports_enabled"`
	LimitVerbatimQuoting     bool `json:"limit_verbatim_quoting"`
	PromptInjectionHardening bool `json:"prompt_injection_hardening"`
	StoreFullTranscripts     bool `json:"store_full_transcripts"`
}

// DefaultSafeDemoMode returns the guardrail defaults for new grants.
func DefaultSafeDemoMode() SafeDemoMode {
	return SafeDemoMode{
		Enabled:                  true,
		ReadOnlyTools:            true,
		LimitVerbatimQuoting:     true,
		PromptInjectionHardening: true,
	}
}

// GuestGrant authorizes prospect access to a published demo with usage limits.
type GuestGrant struct {
	ID                    string
	DemoID                string
	AccessMode            string
	ExpiresAt             time.Time
	AllowedEmails         []string
	AllowedDomains        []string
	MaxSessions           int
	MaxRequestsPerSession int
	MaxDailyTokens        int
	MaxDailyCostUSD       float64
	SafeMode              SafeDemoMode
	Revoked               bool
	CreatedAt             time.Time
}

// ChatGPTApp is a registry entry for a demo packaged as a ChatGPT app.
type ChatGPTApp struct {
	ID                 string
	Name               string
	Description        string
	DeepLinkURL        string
	UsageInstructions  string
	TalkTrack          string
	OwnerEmail         string
	Tags               []string
	RecommendedPrompts []string
	LifecycleStatus    string
	CreatedAt          time.Time
}

// TemplateFilter narrows ListTemplates results.
type TemplateFilter struct {
	// OnlyApproved excludes draft templates.
	OnlyApproved bool
	// DemoType, when set, matches templates of that type only.
	DemoType string
}

// Store defines the interface for studio-gateway persistence
type Store interface {
	// Session state (one serialized blob per session key)
	GetSessionState(ctx context.Context, sessionID string) ([]byte, error)
	SaveSessionState(ctx context.Context, sessionID string, state []byte) error

	// Templates
	CreateTemplate(ctx context.Context, tpl *Template) error
	GetTemplate(ctx context.Context, id string) (*Template, error)
	ListTemplates(ctx context.Context, filter TemplateFilter) ([]*Template, error)
	SetTemplateStatus(ctx context.Context, id, status string) error

	// Demos
	CreateDemo(ctx context.Context, demo *Demo) error
	GetDemo(ctx context.Context, id string) (*Demo, error)
	ListDemos(ctx context.Context, limit int) ([]*Demo, error)
	SetDemoStatus(ctx context.Context, id, status string) error

	// Guest grants
	CreateGrant(ctx context.Context, grant *GuestGrant) error
	GetGrant(ctx context.Context, id string) (*GuestGrant, error)
	RevokeGrant(ctx context.Context, id string) error
	ListGrantsForDemo(ctx context.Context, demoID string) ([]*GuestGrant, error)

	// ChatGPT app registry
	CreateApp(ctx context.Context, app *ChatGPTApp) error
	ListApps(ctx context.Context) ([]*ChatGPTApp, error)

	Close() error
}
