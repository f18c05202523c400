// Package store provides persistent storage for the gateway using SQLite.
//
// # Data Models
//
//   - Session state: one serialized JSON blob per session key, written through
//     the session actor which owns serialization per key
//   - Template: reusable demo blueprints with a draft/approved/published lifecycle
//   - Demo: created demo instances with branding, data binding, and flow config
//   - GuestGrant: prospect access grants with expiry, usage limits, and safe-mode flags
//   - ChatGPTApp: registry entries for demos packaged as ChatGPT apps
//
// # SQLite Configuration
//
// The store uses SQLite with WAL mode for concurrent reads:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// Use NewSQLiteStore(":memory:") for tests with a real SQLite database.
//
// # Error Handling
//
// ErrNotFound is returned when a requested entity does not exist. All methods
// accept context.Context for cancellation support.
package store
