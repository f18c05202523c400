// ABOUTME: Protocol dispatcher turning JSON-RPC requests into session mutations and tool results.
// ABOUTME: Transport-independent; the HTTP front parses bodies and mirrors responses to SSE.

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/2389/studio-gateway/internal/catalog"
	"github.com/2389/studio-gateway/internal/session"
	"github.com/2389/studio-gateway/internal/store"
	"github.com/2389/studio-gateway/internal/widget"
)

// ProtocolVersion is the version advertised in initialize responses.
const ProtocolVersion = "2024-11-05"

// ServerName and ServerVersion identify this gateway in the initialize handshake.
const (
	ServerName    = "studio-gateway"
	ServerVersion = "1.0.0"
)

// JSON-RPC 2.0 types

// JSONRPCRequest represents a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response.
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// JSONRPCError represents a JSON-RPC 2.0 error object.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Standard JSON-RPC error codes
const (
	JSONRPCParseError     = -32700
	JSONRPCInvalidRequest = -32600
	JSONRPCMethodNotFound = -32601
	JSONRPCInvalidParams  = -32602
	JSONRPCInternalError  = -32603
)

// ToolInfo represents a tool definition exposed via tools/list.
type ToolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// ListToolsResult is the result for tools/list.
type ListToolsResult struct {
	Tools []ToolInfo `json:"tools"`
}

// CallToolParams are the params for tools/call.
type CallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// CallToolResult is the result for tools/call.
type CallToolResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// Content represents one content item in a tool result.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Tool names
const (
	ToolListTemplates    = "list_templates"
	ToolCreateDemoWidget = "create_demo_widget"
)

// toolDescriptors are the fixed tool definitions this gateway exposes.
// The schemas are pinned JSON literals so the advertised contract never
// drifts from the validation below.
var toolDescriptors = []ToolInfo{
	{
		Name:        ToolListTemplates,
		Description: "List available demo templates",
		InputSchema: json.RawMessage(`{"type":"object","properties":{}}`),
	},
	{
		Name:        ToolCreateDemoWidget,
		Description: "Create a demo from a template and return an embeddable widget",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"templateId":{"type":"string","description":"Template to base the demo on"},"name":{"type":"string","description":"Display name for the demo"},"ownerEmail":{"type":"string","description":"Email of the demo owner"}},"required":["templateId","name","ownerEmail"]}`),
	},
}

// Config holds the dispatcher's collaborators.
type Config struct {
	Catalog  *catalog.Catalog
	Sessions *session.Actor
	Store    store.Store
	Widget   *widget.Renderer
	Logger   *slog.Logger
}

// Server dispatches protocol requests against a session.
type Server struct {
	catalog  *catalog.Catalog
	sessions *session.Actor
	store    store.Store
	widget   *widget.Renderer
	logger   *slog.Logger
}

// NewServer creates a dispatcher with the given configuration.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("catalog is required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("session actor is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}
	if cfg.Widget == nil {
		return nil, errors.New("widget renderer is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		catalog:  cfg.Catalog,
		sessions: cfg.Sessions,
		store:    cfg.Store,
		widget:   cfg.Widget,
		logger:   logger.With("component", "mcp"),
	}, nil
}

// Handle processes one protocol request for the given session key. Protocol
// faults (unknown method, bad params) come back as error responses; a non-nil
// Go error means session state could not be read or written and the transport
// should answer with a server fault instead of a protocol body.
func (s *Server) Handle(ctx context.Context, req JSONRPCRequest, sessionKey string) (JSONRPCResponse, error) {
	id := normalizeID(req.ID)

	// Every request counts against the session, including ones that end in
	// a protocol error.
	if _, err := s.sessions.Update(ctx, sessionKey, func(cur session.State) session.Patch {
		next := cur.RequestCount + 1
		return session.Patch{RequestCount: &next}
	}); err != nil {
		return JSONRPCResponse{}, fmt.Errorf("recording request: %w", err)
	}

	if req.JSONRPC != "2.0" {
		return errorResponse(id, JSONRPCInvalidRequest, "invalid JSON-RPC version"), nil
	}

	s.logger.Debug("protocol request",
		"method", req.Method,
		"session_id", sessionKey,
	)

	switch req.Method {
	case "initialize":
		return s.handleInitialize(id), nil
	case "tools/list":
		return s.handleToolsList(id), nil
	case "tools/call":
		return s.handleToolsCall(ctx, id, req.Params, sessionKey)
	default:
		return errorResponse(id, JSONRPCMethodNotFound, "method not found"), nil
	}
}

func (s *Server) handleInitialize(id json.RawMessage) JSONRPCResponse {
	result := map[string]any{
		"protocolVersion": ProtocolVersion,
		"capabilities": map[string]any{
			"tools": map[string]any{},
		},
		"serverInfo": map[string]any{
			"name":    ServerName,
			"version": ServerVersion,
		},
	}
	return resultResponse(id, result)
}

func (s *Server) handleToolsList(id json.RawMessage) JSONRPCResponse {
	return resultResponse(id, ListToolsResult{Tools: toolDescriptors})
}

func (s *Server) handleToolsCall(ctx context.Context, id json.RawMessage, rawParams json.RawMessage, sessionKey string) (JSONRPCResponse, error) {
	var params CallToolParams
	if len(rawParams) > 0 {
		if err := json.Unmarshal(rawParams, &params); err != nil {
			return errorResponse(id, JSONRPCInvalidParams, "invalid params"), nil
		}
	}

	if params.Name == "" {
		return errorResponse(id, JSONRPCInvalidParams, "tool name is required"), nil
	}

	switch params.Name {
	case ToolListTemplates:
		return s.callListTemplates(ctx, id)
	case ToolCreateDemoWidget:
		return s.callCreateDemoWidget(ctx, id, params.Arguments, sessionKey)
	default:
		return errorResponse(id, JSONRPCMethodNotFound, fmt.Sprintf("unknown tool: %s", params.Name)), nil
	}
}

// callListTemplates returns the catalog's non-draft templates as pretty-printed
// JSON in a text content item.
func (s *Server) callListTemplates(ctx context.Context, id json.RawMessage) (JSONRPCResponse, error) {
	templates, err := s.catalog.ListApproved(ctx)
	if err != nil {
		return JSONRPCResponse{}, fmt.Errorf("listing templates: %w", err)
	}

	text, err := json.MarshalIndent(templates, "", "  ")
	if err != nil {
		return JSONRPCResponse{}, fmt.Errorf("encoding templates: %w", err)
	}

	return resultResponse(id, CallToolResult{
		Content: []Content{{Type: "text", Text: string(text)}},
	}), nil
}

// createDemoArgs are the arguments for create_demo_widget.
type createDemoArgs struct {
	TemplateID string `json:"templateId"`
	Name       string `json:"name"`
	OwnerEmail string `json:"ownerEmail"`
}

// validate reports the missing required fields, if any.
func (a createDemoArgs) validate() []string {
	var missing []string
	if a.TemplateID == "" {
		missing = append(missing, "templateId")
	}
	if a.Name == "" {
		missing = append(missing, "name")
	}
	if a.OwnerEmail == "" {
		missing = append(missing, "ownerEmail")
	}
	return missing
}

func (s *Server) callCreateDemoWidget(ctx context.Context, id json.RawMessage, rawArgs json.RawMessage, sessionKey string) (JSONRPCResponse, error) {
	var args createDemoArgs
	if len(rawArgs) > 0 {
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return errorResponse(id, JSONRPCInvalidParams, "invalid arguments"), nil
		}
	}
	if missing := args.validate(); len(missing) > 0 {
		return errorResponse(id, JSONRPCInvalidParams,
			fmt.Sprintf("missing required arguments: %s", strings.Join(missing, ", "))), nil
	}

	// The template is looked up for widget rendering but its existence is
	// not a precondition here; curated creation flows validate separately.
	page := widget.PageData{DemoName: args.Name}
	tmpl, err := s.catalog.Get(ctx, args.TemplateID)
	switch {
	case err == nil:
		page.TemplateName = tmpl.Name
		page.DescriptionMarkdown = tmpl.Description
	case errors.Is(err, store.ErrNotFound):
		// Unknown template still gets a widget, just without template chrome.
	default:
		return JSONRPCResponse{}, fmt.Errorf("looking up template: %w", err)
	}

	demo := &store.Demo{
		ID:         uuid.New().String(),
		TemplateID: args.TemplateID,
		Name:       args.Name,
		OwnerEmail: args.OwnerEmail,
		Status:     store.DemoStatusPublished,
	}
	if tmpl != nil {
		demo.TemplateVersion = tmpl.Version
	}
	if err := s.store.CreateDemo(ctx, demo); err != nil {
		return JSONRPCResponse{}, fmt.Errorf("persisting demo: %w", err)
	}

	// Append against the current session under the key's serialization so
	// concurrent creates never lose each other's entries.
	state, err := s.sessions.Update(ctx, sessionKey, func(cur session.State) session.Patch {
		demos := make([]session.DemoSummary, len(cur.Demos), len(cur.Demos)+1)
		copy(demos, cur.Demos)
		demos = append(demos, session.DemoSummary{
			ID:         demo.ID,
			Name:       demo.Name,
			TemplateID: demo.TemplateID,
		})
		return session.Patch{Demos: &demos}
	})
	if err != nil {
		return JSONRPCResponse{}, fmt.Errorf("updating session demos: %w", err)
	}

	html := s.widget.Render(page)

	s.logger.Info("demo created",
		"demo_id", demo.ID,
		"template_id", demo.TemplateID,
		"session_id", sessionKey,
		"session_demos", len(state.Demos),
	)

	return resultResponse(id, CallToolResult{
		Content: []Content{
			{Type: "text", Text: fmt.Sprintf("Demo %s created. Session demos: %d.", demo.Name, len(state.Demos))},
			{Type: "text", Text: html},
		},
	}), nil
}

// normalizeID ensures absent request ids echo back as JSON null.
func normalizeID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}

func resultResponse(id json.RawMessage, result any) JSONRPCResponse {
	return JSONRPCResponse{JSONRPC: "2.0", ID: id, Result: result}
}

func errorResponse(id json.RawMessage, code int, message string) JSONRPCResponse {
	return JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &JSONRPCError{Code: code, Message: message},
	}
}
