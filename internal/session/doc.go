// Package session implements the per-session state actor.
//
// Each session key maps to one durable State record stored as a JSON blob.
// The actor serializes all operations on the same key with a lock-per-key map,
// so concurrent read-modify-write cycles (request counting, demo appends)
// never lose updates. Operations on different keys run in parallel.
//
// Mutations go through ApplyPatch, which merges a partial State over the
// current one with whole-field overwrite semantics: a present field replaces
// its counterpart entirely, and sequence fields are replaced rather than
// appended. Update composes a read with a patch under the same key lock for
// callers that need append semantics.
//
// A successful mutation is persisted before it returns: a later GetState,
// including after a process restart, observes the patched value or a strictly
// later one.
package session
