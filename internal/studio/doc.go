// Package studio implements the demo studio business rules.
//
// The service owns the template and demo lifecycles (draft, approved/published,
// archived), guest access grants with usage limits and safe-mode guardrails,
// share links for published demos, and the ChatGPT app registry.
//
// Every mutating operation takes the caller's asserted role; authentication is
// out of scope here, so callers are trusted to state their role and the
// service only enforces which roles may perform which operation. Failures are
// classified with the ErrPermissionDenied, ErrValidation, and ErrNotFound
// sentinels so transport layers can map them to status codes.
package studio
