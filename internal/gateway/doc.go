// Package gateway wires the studio-gateway components into one HTTP server.
//
// It owns the component lifecycle: store initialization, catalog seeding,
// the protocol dispatcher, the live stream bridge, and graceful shutdown.
// Handlers here stay thin; protocol semantics live in the mcp package and
// business rules in the studio package.
package gateway
