// ABOUTME: Demo studio business logic: template lifecycle, demo management, guest grants
// ABOUTME: Operations are role-gated; the caller asserts its role, authentication is out of scope

package studio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/2389/studio-gateway/internal/store"
)

// Roles recognized by the studio service.
const (
	RoleSales         = "sales"
	RoleSalesEngineer = "sales_engineer"
	RoleDeveloper     = "developer"
	RoleAdmin         = "admin"
)

// Service errors. HTTP handlers map these to status codes.
var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrValidation       = errors.New("validation failed")
	ErrNotFound         = errors.New("not found")
)

// Grant defaults, applied when the caller leaves the field zero.
const (
	defaultGrantTTL        = 14 * 24 * time.Hour
	defaultMaxSessions     = 3
	defaultMaxRequests     = 50
	defaultMaxDailyTokens  = 50000
	defaultMaxDailyCostUSD = 10.0
)

// ShareLinks are the embeddable URLs for a published demo.
type ShareLinks struct {
	WebURL          string `json:"web_url"`
	TeamsEmbed      string `json:"teams_embed"`
	SharePointEmbed string `json:"sharepoint_embed"`
}

// Config holds configuration for the studio service.
type Config struct {
	Store store.Store
	// BaseURL is the external URL demos are served from, used in share links.
	BaseURL string
	// TokenSecret signs guest share tokens.
	TokenSecret []byte
	Logger      *slog.Logger
}

// Service implements the demo studio operations over the store.
type Service struct {
	store   store.Store
	baseURL string
	tokens  *TokenIssuer
	logger  *slog.Logger
}

// NewService creates a studio service with the given configuration.
func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}
	tokens, err := NewTokenIssuer(cfg.TokenSecret)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	return &Service{
		store:   cfg.Store,
		baseURL: baseURL,
		tokens:  tokens,
		logger:  logger.With("component", "studio"),
	}, nil
}

// roleIn reports whether role is one of allowed.
func roleIn(role string, allowed ...string) bool {
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}

// CreateTemplate creates a new template in draft status unless one is given.
// Requires developer or admin role.
func (s *Service) CreateTemplate(ctx context.Context, tpl *store.Template, actorRole string) (*store.Template, error) {
	if !roleIn(actorRole, RoleDeveloper, RoleAdmin) {
		return nil, fmt.Errorf("%w: only developer/admin can create templates", ErrPermissionDenied)
	}
	if tpl.Name == "" {
		return nil, fmt.Errorf("%w: template name is required", ErrValidation)
	}
	if tpl.ID == "" {
		tpl.ID = uuid.New().String()
	}
	if tpl.Status == "" {
		tpl.Status = store.TemplateStatusDraft
	}
	if tpl.Version == "" {
		tpl.Version = "1.0.0"
	}
	if err := s.store.CreateTemplate(ctx, tpl); err != nil {
		return nil, err
	}

	s.logger.Info("template created", "template_id", tpl.ID, "actor_role", actorRole)
	return tpl, nil
}

// ApproveTemplate moves a template to approved status.
// Requires developer or admin role.
func (s *Service) ApproveTemplate(ctx context.Context, templateID, actorRole string) (*store.Template, error) {
	if !roleIn(actorRole, RoleDeveloper, RoleAdmin) {
		return nil, fmt.Errorf("%w: only developer/admin can approve templates", ErrPermissionDenied)
	}
	if err := s.store.SetTemplateStatus(ctx, templateID, store.TemplateStatusApproved); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: template %s", ErrNotFound, templateID)
		}
		return nil, err
	}
	return s.store.GetTemplate(ctx, templateID)
}

// ListTemplates returns templates matching the filter. Open to all roles.
func (s *Service) ListTemplates(ctx context.Context, filter store.TemplateFilter) ([]*store.Template, error) {
	return s.store.ListTemplates(ctx, filter)
}

// CreateDemo creates a demo instance from an approved template.
// Requires sales, sales engineer, or admin role.
func (s *Service) CreateDemo(ctx context.Context, demo *store.Demo, actorRole string) (*store.Demo, error) {
	if !roleIn(actorRole, RoleSales, RoleSalesEngineer, RoleAdmin) {
		return nil, fmt.Errorf("%w: sales/SE/admin required", ErrPermissionDenied)
	}
	if demo.Name == "" || demo.OwnerEmail == "" {
		return nil, fmt.Errorf("%w: demo name and owner email are required", ErrValidation)
	}

	tpl, err := s.store.GetTemplate(ctx, demo.TemplateID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: template must be approved", ErrValidation)
		}
		return nil, err
	}
	if tpl.Status == store.TemplateStatusDraft {
		return nil, fmt.Errorf("%w: template must be approved", ErrValidation)
	}

	if demo.ID == "" {
		demo.ID = uuid.New().String()
	}
	if demo.Status == "" {
		demo.Status = store.DemoStatusDraft
	}
	if demo.TemplateVersion == "" {
		demo.TemplateVersion = tpl.Version
	}
	if err := s.store.CreateDemo(ctx, demo); err != nil {
		return nil, err
	}

	s.logger.Info("demo created", "demo_id", demo.ID, "template_id", demo.TemplateID)
	return demo, nil
}

// CloneDemo creates a draft copy of an existing demo with a new name and owner.
// Branding, data binding, and flow config are carried over.
func (s *Service) CloneDemo(ctx context.Context, demoID, newName, ownerEmail, actorRole string) (*store.Demo, error) {
	if !roleIn(actorRole, RoleSales, RoleSalesEngineer, RoleAdmin) {
		return nil, fmt.Errorf("%w: sales/SE/admin required", ErrPermissionDenied)
	}

	source, err := s.store.GetDemo(ctx, demoID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: demo %s", ErrNotFound, demoID)
		}
		return nil, err
	}

	clone := &store.Demo{
		ID:              uuid.New().String(),
		Name:            newName,
		OwnerEmail:      ownerEmail,
		TemplateID:      source.TemplateID,
		TemplateVersion: source.TemplateVersion,
		Status:          store.DemoStatusDraft,
		Branding:        source.Branding,
		DataBinding:     source.DataBinding,
		Flow:            source.Flow,
	}
	if err := s.store.CreateDemo(ctx, clone); err != nil {
		return nil, err
	}

	s.logger.Info("demo cloned", "source_id", demoID, "clone_id", clone.ID)
	return clone, nil
}

// PublishDemo moves a demo to published status.
// Requires sales engineer or admin role.
func (s *Service) PublishDemo(ctx context.Context, demoID, actorRole string) (*store.Demo, error) {
	if !roleIn(actorRole, RoleSalesEngineer, RoleAdmin) {
		return nil, fmt.Errorf("%w: SE/admin required", ErrPermissionDenied)
	}
	if err := s.store.SetDemoStatus(ctx, demoID, store.DemoStatusPublished); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: demo %s", ErrNotFound, demoID)
		}
		return nil, err
	}
	return s.store.GetDemo(ctx, demoID)
}

// ShareLinks returns the embeddable URLs for a published demo.
func (s *Service) ShareLinks(ctx context.Context, demoID string) (*ShareLinks, error) {
	demo, err := s.store.GetDemo(ctx, demoID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: demo must be published", ErrValidation)
		}
		return nil, err
	}
	if demo.Status != store.DemoStatusPublished {
		return nil, fmt.Errorf("%w: demo must be published", ErrValidation)
	}

	return &ShareLinks{
		WebURL:          fmt.Sprintf("%s/d/%s", s.baseURL, demo.ID),
		TeamsEmbed:      fmt.Sprintf("%s/embed?demoId=%s&channel=teams", s.baseURL, demo.ID),
		SharePointEmbed: fmt.Sprintf("%s/embed?demoId=%s&channel=sharepoint", s.baseURL, demo.ID),
	}, nil
}

// CreateGuestGrant grants prospect access to a published demo. For token_link
// grants a signed share token is returned alongside the grant.
// Requires sales, sales engineer, or admin role.
func (s *Service) CreateGuestGrant(ctx context.Context, grant *store.GuestGrant, actorRole string) (*store.GuestGrant, string, error) {
	if !roleIn(actorRole, RoleSales, RoleSalesEngineer, RoleAdmin) {
		return nil, "", fmt.Errorf("%w: sales/SE/admin required", ErrPermissionDenied)
	}

	demo, err := s.store.GetDemo(ctx, grant.DemoID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", fmt.Errorf("%w: published demo required", ErrValidation)
		}
		return nil, "", err
	}
	if demo.Status != store.DemoStatusPublished {
		return nil, "", fmt.Errorf("%w: published demo required", ErrValidation)
	}

	if grant.ID == "" {
		grant.ID = uuid.New().String()
	}
	if grant.AccessMode == "" {
		grant.AccessMode = store.AccessModeInviteOnly
	}
	if grant.ExpiresAt.IsZero() {
		grant.ExpiresAt = time.Now().UTC().Add(defaultGrantTTL)
	}
	if grant.MaxSessions == 0 {
		grant.MaxSessions = defaultMaxSessions
	}
	if grant.MaxRequestsPerSession == 0 {
		grant.MaxRequestsPerSession = defaultMaxRequests
	}
	if grant.MaxDailyTokens == 0 {
		grant.MaxDailyTokens = defaultMaxDailyTokens
	}
	if grant.MaxDailyCostUSD == 0 {
		grant.MaxDailyCostUSD = defaultMaxDailyCostUSD
	}
	if grant.SafeMode == (store.SafeDemoMode{}) {
		grant.SafeMode = store.DefaultSafeDemoMode()
	}

	if err := s.store.CreateGrant(ctx, grant); err != nil {
		return nil, "", err
	}

	var token string
	if grant.AccessMode == store.AccessModeTokenLink {
		token, err = s.tokens.Issue(grant.ID, grant.ExpiresAt)
		if err != nil {
			return nil, "", fmt.Errorf("issuing share token: %w", err)
		}
	}

	s.logger.Info("guest grant created",
		"grant_id", grant.ID,
		"demo_id", grant.DemoID,
		"access_mode", grant.AccessMode,
	)
	return grant, token, nil
}

// RevokeGuestGrant revokes a grant. Requires sales engineer or admin role.
func (s *Service) RevokeGuestGrant(ctx context.Context, grantID, actorRole string) (*store.GuestGrant, error) {
	if !roleIn(actorRole, RoleSalesEngineer, RoleAdmin) {
		return nil, fmt.Errorf("%w: SE/admin required", ErrPermissionDenied)
	}
	if err := s.store.RevokeGrant(ctx, grantID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: grant %s", ErrNotFound, grantID)
		}
		return nil, err
	}
	return s.store.GetGrant(ctx, grantID)
}

// VerifyShareToken validates a share token and returns the grant it names.
// Revoked and expired grants fail verification even when the token is intact.
func (s *Service) VerifyShareToken(ctx context.Context, token string) (*store.GuestGrant, error) {
	grantID, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	grant, err := s.store.GetGrant(ctx, grantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if grant.Revoked {
		return nil, fmt.Errorf("%w: grant revoked", ErrInvalidToken)
	}
	if time.Now().After(grant.ExpiresAt) {
		return nil, ErrExpiredToken
	}
	return grant, nil
}

// RegisterApp adds a ChatGPT app registry entry.
// Requires sales engineer or admin role.
func (s *Service) RegisterApp(ctx context.Context, app *store.ChatGPTApp, actorRole string) (*store.ChatGPTApp, error) {
	if !roleIn(actorRole, RoleSalesEngineer, RoleAdmin) {
		return nil, fmt.Errorf("%w: SE/admin required", ErrPermissionDenied)
	}
	if app.Name == "" || app.DeepLinkURL == "" {
		return nil, fmt.Errorf("%w: app name and deep link URL are required", ErrValidation)
	}
	if app.ID == "" {
		app.ID = uuid.New().String()
	}
	if app.LifecycleStatus == "" {
		app.LifecycleStatus = "draft"
	}
	if err := s.store.CreateApp(ctx, app); err != nil {
		return nil, err
	}

	s.logger.Info("app registered", "app_id", app.ID, "name", app.Name)
	return app, nil
}

// ListApps returns all registered ChatGPT apps. Open to all roles.
func (s *Service) ListApps(ctx context.Context) ([]*store.ChatGPTApp, error) {
	return s.store.ListApps(ctx)
}
