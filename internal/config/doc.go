// Package config handles configuration loading for studio-gateway.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from STUDIO_CONFIG environment variable
//  2. ./config.yaml (current directory)
//  3. ~/.config/studio/gateway.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	studio:
//	  token_secret: "${STUDIO_TOKEN_SECRET}"
//
// Syntax: ${VAR_NAME}
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	server:
//	  shutdown_timeout: "10s"
//
// Supported units: ns, us, ms, s, m, h
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//	  shutdown_timeout: "10s"
//
// Database:
//
//	database:
//	  path: "/var/lib/studio/gateway.db"
//
// Catalog seeding:
//
//	catalog:
//	  seed_path: "/etc/studio/templates.toml"
//
// Studio service:
//
//	studio:
//	  base_url: "https://demos.example.com"
//	  token_secret: "${STUDIO_TOKEN_SECRET}"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Usage
//
// Load configuration from a path:
//
//	cfg, err := config.Load("/etc/studio/gateway.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Or start from defaults when no file exists:
//
//	cfg := config.Default()
package config
