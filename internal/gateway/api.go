// ABOUTME: REST handlers exposing studio operations for curated demo workflows
// ABOUTME: Maps studio sentinel errors onto 403/404/422 JSON responses

package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/2389/studio-gateway/internal/store"
	"github.com/2389/studio-gateway/internal/studio"
)

// TemplateResponse is the JSON shape for template resources.
type TemplateResponse struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	DemoType      string   `json:"demo_type"`
	Version       string   `json:"version"`
	Channels      []string `json:"channels,omitempty"`
	Status        string   `json:"status"`
	Complexity    string   `json:"complexity,omitempty"`
	IndustryTags  []string `json:"industry_tags,omitempty"`
	SampleDataset string   `json:"sample_dataset,omitempty"`
	CreatedAt     string   `json:"created_at"`
}

// CreateTemplateRequest is the JSON request body for POST /api/templates.
type CreateTemplateRequest struct {
	ID            string   `json:"id,omitempty"`
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	DemoType      string   `json:"demo_type"`
	Version       string   `json:"version,omitempty"`
	Channels      []string `json:"channels,omitempty"`
	Complexity    string   `json:"complexity,omitempty"`
	IndustryTags  []string `json:"industry_tags,omitempty"`
	SampleDataset string   `json:"sample_dataset,omitempty"`
}

// DemoResponse is the JSON shape for demo resources.
type DemoResponse struct {
	ID              string                `json:"id"`
	Name            string                `json:"name"`
	OwnerEmail      string                `json:"owner_email"`
	TemplateID      string                `json:"template_id"`
	TemplateVersion string                `json:"template_version,omitempty"`
	Status          string                `json:"status"`
	Branding        store.BrandingPackage `json:"branding"`
	DataBinding     store.DataBinding     `json:"data_binding"`
	Flow            store.FlowConfig      `json:"flow"`
	CreatedAt       string                `json:"created_at"`
}

// CreateDemoRequest is the JSON request body for POST /api/demos.
type CreateDemoRequest struct {
	Name        string                `json:"name"`
	OwnerEmail  string                `json:"owner_email"`
	TemplateID  string                `json:"template_id"`
	Branding    store.BrandingPackage `json:"branding"`
	DataBinding store.DataBinding     `json:"data_binding"`
	Flow        store.FlowConfig      `json:"flow"`
}

// CloneDemoRequest is the JSON request body for POST /api/demos/{id}/clone.
type CloneDemoRequest struct {
	Name       string `json:"name"`
	OwnerEmail string `json:"owner_email"`
}

// CreateGrantRequest is the JSON request body for POST /api/grants.
type CreateGrantRequest struct {
	DemoID         string   `json:"demo_id"`
	AccessMode     string   `json:"access_mode"`
	AllowedEmails  []string `json:"allowed_emails,omitempty"`
	AllowedDomains []string `json:"allowed_domains,omitempty"`
	ExpiresAt      string   `json:"expires_at,omitempty"`
}

// GrantResponse is the JSON shape for guest grant resources.
type GrantResponse struct {
	ID                    string             `json:"id"`
	DemoID                string             `json:"demo_id"`
	AccessMode            string             `json:"access_mode"`
	ExpiresAt             string             `json:"expires_at"`
	AllowedEmails         []string           `json:"allowed_emails,omitempty"`
	AllowedDomains        []string           `json:"allowed_domains,omitempty"`
	MaxSessions           int                `json:"max_sessions"`
	MaxRequestsPerSession int                `json:"max_requests_per_session"`
	MaxDailyTokens        int                `json:"max_daily_tokens"`
	MaxDailyCostUSD       float64            `json:"max_daily_cost_usd"`
	SafeMode              store.SafeDemoMode `json:"safe_mode"`
	Revoked               bool               `json:"revoked"`
	Token                 string             `json:"token,omitempty"`
}

// AppResponse is the JSON shape for ChatGPT app registry entries.
type AppResponse struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Description        string   `json:"description,omitempty"`
	DeepLinkURL        string   `json:"deep_link_url"`
	UsageInstructions  string   `json:"usage_instructions,omitempty"`
	TalkTrack          string   `json:"talk_track,omitempty"`
	OwnerEmail         string   `json:"owner_email"`
	Tags               []string `json:"tags,omitempty"`
	RecommendedPrompts []string `json:"recommended_prompts,omitempty"`
	LifecycleStatus    string   `json:"lifecycle_status"`
}

// RegisterAppRequest is the JSON request body for POST /api/apps.
type RegisterAppRequest struct {
	Name               string   `json:"name"`
	Description        string   `json:"description,omitempty"`
	DeepLinkURL        string   `json:"deep_link_url"`
	UsageInstructions  string   `json:"usage_instructions,omitempty"`
	TalkTrack          string   `json:"talk_track,omitempty"`
	OwnerEmail         string   `json:"owner_email"`
	Tags               []string `json:"tags,omitempty"`
	RecommendedPrompts []string `json:"recommended_prompts,omitempty"`
}

// registerAPIRoutes registers the studio REST routes on the mux.
func (g *Gateway) registerAPIRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/templates", g.handleTemplates)
	mux.HandleFunc("/api/templates/", g.handleTemplateAction)
	mux.HandleFunc("/api/demos", g.handleDemos)
	mux.HandleFunc("/api/demos/", g.handleDemoAction)
	mux.HandleFunc("/api/grants", g.handleGrants)
	mux.HandleFunc("/api/grants/", g.handleGrantAction)
	mux.HandleFunc("/api/apps", g.handleApps)
}

// actorRole returns the role the caller asserts for this request.
func actorRole(r *http.Request) string {
	return r.Header.Get(RoleHeader)
}

// sendJSONError writes a JSON error response.
func (g *Gateway) sendJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// sendStudioError maps studio sentinel errors to HTTP statuses.
func (g *Gateway) sendStudioError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, studio.ErrPermissionDenied):
		g.sendJSONError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, studio.ErrNotFound), errors.Is(err, store.ErrNotFound):
		g.sendJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, studio.ErrValidation):
		g.sendJSONError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		g.logger.Error("studio operation failed", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (g *Gateway) sendJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func templateResponse(tpl *store.Template) TemplateResponse {
	return TemplateResponse{
		ID:            tpl.ID,
		Name:          tpl.Name,
		Description:   tpl.Description,
		DemoType:      tpl.DemoType,
		Version:       tpl.Version,
		Channels:      tpl.Channels,
		Status:        tpl.Status,
		Complexity:    tpl.Complexity,
		IndustryTags:  tpl.IndustryTags,
		SampleDataset: tpl.SampleDataset,
		CreatedAt:     tpl.CreatedAt.Format(time.RFC3339),
	}
}

func demoResponse(demo *store.Demo) DemoResponse {
	return DemoResponse{
		ID:              demo.ID,
		Name:            demo.Name,
		OwnerEmail:      demo.OwnerEmail,
		TemplateID:      demo.TemplateID,
		TemplateVersion: demo.TemplateVersion,
		Status:          demo.Status,
		Branding:        demo.Branding,
		DataBinding:     demo.DataBinding,
		Flow:            demo.Flow,
		CreatedAt:       demo.CreatedAt.Format(time.RFC3339),
	}
}

func grantResponse(grant *store.GuestGrant, token string) GrantResponse {
	return GrantResponse{
		ID:                    grant.ID,
		DemoID:                grant.DemoID,
		AccessMode:            grant.AccessMode,
		ExpiresAt:             grant.ExpiresAt.Format(time.RFC3339),
		AllowedEmails:         grant.AllowedEmails,
		AllowedDomains:        grant.AllowedDomains,
		MaxSessions:           grant.MaxSessions,
		MaxRequestsPerSession: grant.MaxRequestsPerSession,
		MaxDailyTokens:        grant.MaxDailyTokens,
		MaxDailyCostUSD:       grant.MaxDailyCostUSD,
		SafeMode:              grant.SafeMode,
		Revoked:               grant.Revoked,
		Token:                 token,
	}
}

func appResponse(app *store.ChatGPTApp) AppResponse {
	return AppResponse{
		ID:                 app.ID,
		Name:               app.Name,
		Description:        app.Description,
		DeepLinkURL:        app.DeepLinkURL,
		UsageInstructions:  app.UsageInstructions,
		TalkTrack:          app.TalkTrack,
		OwnerEmail:         app.OwnerEmail,
		Tags:               app.Tags,
		RecommendedPrompts: app.RecommendedPrompts,
		LifecycleStatus:    app.LifecycleStatus,
	}
}

// handleTemplates routes template collection requests by HTTP method.
func (g *Gateway) handleTemplates(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		g.handleListTemplates(w, r)
	case http.MethodPost:
		g.handleCreateTemplate(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleListTemplates handles GET /api/templates.
// Supports ?only_approved=true and ?demo_type=X filters.
func (g *Gateway) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	filter := store.TemplateFilter{
		OnlyApproved: r.URL.Query().Get("only_approved") == "true",
		DemoType:     r.URL.Query().Get("demo_type"),
	}

	templates, err := g.studio.ListTemplates(r.Context(), filter)
	if err != nil {
		g.sendStudioError(w, err)
		return
	}

	response := make([]TemplateResponse, len(templates))
	for i, tpl := range templates {
		response[i] = templateResponse(tpl)
	}
	g.sendJSON(w, http.StatusOK, response)
}

// handleCreateTemplate handles POST /api/templates.
func (g *Gateway) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req CreateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	tpl, err := g.studio.CreateTemplate(r.Context(), &store.Template{
		ID:            req.ID,
		Name:          req.Name,
		Description:   req.Description,
		DemoType:      req.DemoType,
		Version:       req.Version,
		Channels:      req.Channels,
		Complexity:    req.Complexity,
		IndustryTags:  req.IndustryTags,
		SampleDataset: req.SampleDataset,
	}, actorRole(r))
	if err != nil {
		g.sendStudioError(w, err)
		return
	}

	g.sendJSON(w, http.StatusCreated, templateResponse(tpl))
}

// handleTemplateAction handles POST /api/templates/{id}/approve.
func (g *Gateway) handleTemplateAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	id, action, ok := splitResourceAction(r.URL.Path, "/api/templates/")
	if !ok || action != "approve" {
		http.NotFound(w, r)
		return
	}

	tpl, err := g.studio.ApproveTemplate(r.Context(), id, actorRole(r))
	if err != nil {
		g.sendStudioError(w, err)
		return
	}
	g.sendJSON(w, http.StatusOK, templateResponse(tpl))
}

// handleDemos handles POST /api/demos.
func (g *Gateway) handleDemos(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req CreateDemoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	demo, err := g.studio.CreateDemo(r.Context(), &store.Demo{
		Name:        req.Name,
		OwnerEmail:  req.OwnerEmail,
		TemplateID:  req.TemplateID,
		Branding:    req.Branding,
		DataBinding: req.DataBinding,
		Flow:        req.Flow,
	}, actorRole(r))
	if err != nil {
		g.sendStudioError(w, err)
		return
	}

	g.sendJSON(w, http.StatusCreated, demoResponse(demo))
}

// handleDemoAction handles POST /api/demos/{id}/{publish|clone} and
// GET /api/demos/{id}/links.
func (g *Gateway) handleDemoAction(w http.ResponseWriter, r *http.Request) {
	id, action, ok := splitResourceAction(r.URL.Path, "/api/demos/")
	if !ok {
		http.NotFound(w, r)
		return
	}

	switch {
	case action == "publish" && r.Method == http.MethodPost:
		demo, err := g.studio.PublishDemo(r.Context(), id, actorRole(r))
		if err != nil {
			g.sendStudioError(w, err)
			return
		}
		g.sendJSON(w, http.StatusOK, demoResponse(demo))

	case action == "clone" && r.Method == http.MethodPost:
		var req CloneDemoRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		demo, err := g.studio.CloneDemo(r.Context(), id, req.Name, req.OwnerEmail, actorRole(r))
		if err != nil {
			g.sendStudioError(w, err)
			return
		}
		g.sendJSON(w, http.StatusCreated, demoResponse(demo))

	case action == "links" && r.Method == http.MethodGet:
		links, err := g.studio.ShareLinks(r.Context(), id)
		if err != nil {
			g.sendStudioError(w, err)
			return
		}
		g.sendJSON(w, http.StatusOK, links)

	default:
		http.NotFound(w, r)
	}
}

// handleGrants handles POST /api/grants and GET /api/grants?demo_id=X.
func (g *Gateway) handleGrants(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		demoID := r.URL.Query().Get("demo_id")
		if demoID == "" {
			g.sendJSONError(w, http.StatusBadRequest, "demo_id query param required")
			return
		}
		grants, err := g.store.ListGrantsForDemo(r.Context(), demoID)
		if err != nil {
			g.sendStudioError(w, err)
			return
		}
		response := make([]GrantResponse, len(grants))
		for i, grant := range grants {
			response[i] = grantResponse(grant, "")
		}
		g.sendJSON(w, http.StatusOK, response)

	case http.MethodPost:
		var req CreateGrantRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		grant := &store.GuestGrant{
			DemoID:         req.DemoID,
			AccessMode:     req.AccessMode,
			AllowedEmails:  req.AllowedEmails,
			AllowedDomains: req.AllowedDomains,
		}
		if req.ExpiresAt != "" {
			expires, err := time.Parse(time.RFC3339, req.ExpiresAt)
			if err != nil {
				g.sendJSONError(w, http.StatusBadRequest, "expires_at must be RFC3339")
				return
			}
			grant.ExpiresAt = expires
		}

		created, token, err := g.studio.CreateGuestGrant(r.Context(), grant, actorRole(r))
		if err != nil {
			g.sendStudioError(w, err)
			return
		}
		g.sendJSON(w, http.StatusCreated, grantResponse(created, token))

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleGrantAction handles POST /api/grants/{id}/revoke.
func (g *Gateway) handleGrantAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	id, action, ok := splitResourceAction(r.URL.Path, "/api/grants/")
	if !ok || action != "revoke" {
		http.NotFound(w, r)
		return
	}

	grant, err := g.studio.RevokeGuestGrant(r.Context(), id, actorRole(r))
	if err != nil {
		g.sendStudioError(w, err)
		return
	}
	g.sendJSON(w, http.StatusOK, grantResponse(grant, ""))
}

// handleApps handles GET and POST /api/apps.
func (g *Gateway) handleApps(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		apps, err := g.studio.ListApps(r.Context())
		if err != nil {
			g.sendStudioError(w, err)
			return
		}
		response := make([]AppResponse, len(apps))
		for i, app := range apps {
			response[i] = appResponse(app)
		}
		g.sendJSON(w, http.StatusOK, response)

	case http.MethodPost:
		var req RegisterAppRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		app, err := g.studio.RegisterApp(r.Context(), &store.ChatGPTApp{
			Name:               req.Name,
			Description:        req.Description,
			DeepLinkURL:        req.DeepLinkURL,
			UsageInstructions:  req.UsageInstructions,
			TalkTrack:          req.TalkTrack,
			OwnerEmail:         req.OwnerEmail,
			Tags:               req.Tags,
			RecommendedPrompts: req.RecommendedPrompts,
		}, actorRole(r))
		if err != nil {
			g.sendStudioError(w, err)
			return
		}
		g.sendJSON(w, http.StatusCreated, appResponse(app))

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// splitResourceAction extracts the resource id and action from paths shaped
// like <prefix>{id}/{action}.
func splitResourceAction(path, prefix string) (id, action string, ok bool) {
	rest := strings.TrimPrefix(path, prefix)
	if rest == path {
		return "", "", false
	}
	parts := strings.Split(strings.TrimRight(rest, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
