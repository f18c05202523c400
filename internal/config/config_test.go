// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, env var expansion, defaults, and duration parsing

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
server:
  http_addr: "0.0.0.0:8080"
  shutdown_timeout: "30s"

database:
  path: "./test.db"

catalog:
  seed_path: "/etc/studio/templates.toml"

studio:
  base_url: "https://demos.example.com"
  token_secret: "super-secret"

logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPAddr != "0.0.0.0:8080" {
		t.Errorf("Server.HTTPAddr = %q, want %q", cfg.Server.HTTPAddr, "0.0.0.0:8080")
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("Server.ShutdownTimeout = %v, want %v", cfg.Server.ShutdownTimeout, 30*time.Second)
	}
	if cfg.Database.Path != "./test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "./test.db")
	}
	if cfg.Catalog.SeedPath != "/etc/studio/templates.toml" {
		t.Errorf("Catalog.SeedPath = %q, want %q", cfg.Catalog.SeedPath, "/etc/studio/templates.toml")
	}
	if cfg.Studio.BaseURL != "https://demos.example.com" {
		t.Errorf("Studio.BaseURL = %q, want %q", cfg.Studio.BaseURL, "https://demos.example.com")
	}
	if cfg.Studio.TokenSecret != "super-secret" {
		t.Errorf("Studio.TokenSecret = %q, want %q", cfg.Studio.TokenSecret, "super-secret")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "json")
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	configPath := writeConfig(t, `
database:
  path: "./test.db"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPAddr != ":8080" {
		t.Errorf("Server.HTTPAddr = %q, want default %q", cfg.Server.HTTPAddr, ":8080")
	}
	if cfg.Server.ShutdownTimeout != DefaultShutdownTimeout {
		t.Errorf("Server.ShutdownTimeout = %v, want default %v", cfg.Server.ShutdownTimeout, DefaultShutdownTimeout)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want default %q", cfg.Logging.Level, "info")
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Logging.Format = %q, want default %q", cfg.Logging.Format, "text")
	}
	if cfg.Studio.BaseURL == "" {
		t.Error("Studio.BaseURL should have a default")
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("STUDIO_TEST_SECRET", "from-env")
	t.Setenv("STUDIO_TEST_DB", "/tmp/env.db")

	configPath := writeConfig(t, `
database:
  path: "${STUDIO_TEST_DB}"

studio:
  token_secret: "${STUDIO_TEST_SECRET}"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/tmp/env.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/env.db")
	}
	if cfg.Studio.TokenSecret != "from-env" {
		t.Errorf("Studio.TokenSecret = %q, want %q", cfg.Studio.TokenSecret, "from-env")
	}
}

func TestLoad_UnsetEnvVarExpandsEmpty(t *testing.T) {
	configPath := writeConfig(t, `
database:
  path: "./test.db"

studio:
  token_secret: "${STUDIO_DEFINITELY_UNSET_VAR}"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Studio.TokenSecret != "" {
		t.Errorf("Studio.TokenSecret = %q, want empty", cfg.Studio.TokenSecret)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	configPath := writeConfig(t, `
server:
  shutdown_timeout: "not-a-duration"

database:
  path: "./test.db"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Load() expected error for invalid duration")
	}
	if !strings.Contains(err.Error(), "shutdown_timeout") {
		t.Errorf("error = %v, want mention of shutdown_timeout", err)
	}
}

func TestLoad_InvalidLogFormat(t *testing.T) {
	configPath := writeConfig(t, `
database:
  path: "./test.db"

logging:
  format: "xml"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Load() expected error for invalid logging format")
	}
	if !strings.Contains(err.Error(), "logging.format") {
		t.Errorf("error = %v, want mention of logging.format", err)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "server: [not: valid")

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Load() expected error for invalid YAML")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Load() expected error for missing file")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default() config should validate, got %v", err)
	}
}
