// ABOUTME: Gateway orchestrator that wires the store, dispatcher, and HTTP server
// ABOUTME: Manages component lifecycle and graceful shutdown

package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/2389/studio-gateway/internal/catalog"
	"github.com/2389/studio-gateway/internal/config"
	"github.com/2389/studio-gateway/internal/mcp"
	"github.com/2389/studio-gateway/internal/session"
	"github.com/2389/studio-gateway/internal/store"
	"github.com/2389/studio-gateway/internal/stream"
	"github.com/2389/studio-gateway/internal/studio"
	"github.com/2389/studio-gateway/internal/widget"
)

// SessionHeader carries the session key on protocol and stream requests.
const SessionHeader = "X-Session-Id"

// RoleHeader carries the asserted studio role on REST requests.
const RoleHeader = "X-Studio-Role"

// MaxRequestBodySize is the maximum allowed size for request bodies (1MB).
const MaxRequestBodySize = 1 << 20

// Gateway orchestrates the studio-gateway server components.
type Gateway struct {
	config     *config.Config
	store      store.Store
	sessions   *session.Actor
	catalog    *catalog.Catalog
	studio     *studio.Service
	bridge     *stream.Bridge
	dispatcher *mcp.Server
	httpServer *http.Server
	logger     *slog.Logger
}

// initStore creates and returns a store based on config and environment.
func initStore(cfg *config.Config) (store.Store, error) {
	dbPath := cfg.Database.Path
	if envPath := os.Getenv("STUDIO_DB_PATH"); envPath != "" {
		dbPath = envPath
	}

	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	return s, nil
}

// resolveTokenSecret returns the configured token secret, generating an
// ephemeral one when none is set. Ephemeral secrets invalidate share tokens
// on restart, so production deployments should configure one.
func resolveTokenSecret(cfg *config.Config, logger *slog.Logger) []byte {
	if cfg.Studio.TokenSecret != "" {
		return []byte(cfg.Studio.TokenSecret)
	}
	logger.Warn("studio.token_secret not configured, share tokens will not survive restarts")
	return []byte(uuid.New().String())
}

// New creates a new Gateway instance with the given configuration.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	s, err := initStore(cfg)
	if err != nil {
		return nil, err
	}

	if err := catalog.Seed(ctx, s, cfg.Catalog.SeedPath, logger); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("seeding catalog: %w", err)
	}

	cat := catalog.New(s, logger)
	sessions := session.NewActor(s, logger)
	renderer := widget.NewRenderer(logger)
	bridge := stream.NewBridge(logger)

	studioSvc, err := studio.NewService(studio.Config{
		Store:       s,
		BaseURL:     cfg.Studio.BaseURL,
		TokenSecret: resolveTokenSecret(cfg, logger),
		Logger:      logger,
	})
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("creating studio service: %w", err)
	}

	dispatcher, err := mcp.NewServer(mcp.Config{
		Catalog:  cat,
		Sessions: sessions,
		Store:    s,
		Widget:   renderer,
		Logger:   logger,
	})
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("creating dispatcher: %w", err)
	}

	gw := &Gateway{
		config:     cfg,
		store:      s,
		sessions:   sessions,
		catalog:    cat,
		studio:     studioSvc,
		bridge:     bridge,
		dispatcher: dispatcher,
		logger:     logger.With("component", "gateway"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", gw.handleRoot)
	mux.HandleFunc("/health", gw.handleHealth)
	mux.HandleFunc("/sse", gw.handleSSE)
	mux.HandleFunc("/mcp", gw.handleMCP)
	gw.registerAPIRoutes(mux)

	gw.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return gw, nil
}

// Handler exposes the HTTP handler for tests.
func (g *Gateway) Handler() http.Handler {
	return g.httpServer.Handler
}

// Run starts the HTTP server and blocks until the context is canceled.
// Returns nil on graceful shutdown, or an error if the server fails.
func (g *Gateway) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on HTTP address: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := g.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		g.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := g.gracefulShutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() intentionally since the original context is already canceled.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), g.config.Server.ShutdownTimeout)
	defer cancel()
	return g.Shutdown(ctx)
}

// Shutdown gracefully stops the HTTP server and releases resources.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	var errs []error
	if err := g.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
	}

	g.bridge.Close()

	if err := g.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store close: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

// handleHealth returns 200 ok if the server is alive.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// identityResponse is the JSON body for GET /.
type identityResponse struct {
	Name      string            `json:"name"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

// handleRoot serves the identity document on exactly "/" and 404s everything
// that no other route claimed.
func (g *Gateway) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	base := g.config.Studio.BaseURL
	resp := identityResponse{
		Name:    mcp.ServerName,
		Version: mcp.ServerVersion,
		Endpoints: map[string]string{
			"sse":            base + "/sse",
			"streamableHttp": base + "/mcp",
		},
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
