// Package apikey manages the full API key lifecycle: generation with a
// namespaced plaintext shown exactly once, digest-based authorization with
// scope coverage, irreversible revocation, and hard deletion.
//
// The state machine is deliberately small: (none) → active → revoked, plus
// hard delete from either state. Expiry is not a state; it is a predicate
// evaluated on every authorization attempt against the stored expires_at.
// Revocation and updates are single conditional statements at the store
// level so a concurrent revoke and update cannot interleave.
package apikey
