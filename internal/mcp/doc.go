// Package mcp implements the JSON-RPC protocol dispatcher.
//
// The dispatcher is transport-agnostic: it takes a decoded request plus the
// resolved session key and returns a response envelope. Protocol faults are
// ordinary error responses; only storage failures surface as Go errors.
package mcp
