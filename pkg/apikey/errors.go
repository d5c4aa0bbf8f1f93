package apikey

import "errors"

var (
	// ErrValidation indicates malformed creation or update input, such as
	// an empty name or a scope outside the closed vocabulary.
	ErrValidation = errors.New("apikey: validation failed")

	// ErrNotAuthorized is the uniform authorization failure. It never
	// reveals whether the key was unknown, revoked, expired, or lacked the
	// required scope; the distinction goes to the audit trail only.
	ErrNotAuthorized = errors.New("apikey: not authorized")

	// ErrNotFound indicates the key does not exist in the organization.
	ErrNotFound = errors.New("apikey: key not found")

	// ErrAlreadyRevoked indicates a revoke of an already-revoked key.
	// Callers may treat it as a non-fatal conflict.
	ErrAlreadyRevoked = errors.New("apikey: key already revoked")

	// ErrKeyRevoked indicates an update attempt on a revoked key.
	ErrKeyRevoked = errors.New("apikey: key is revoked")

	// ErrFailedToGenerate indicates the secure random source failed.
	ErrFailedToGenerate = errors.New("apikey: failed to generate key")

	// ErrStoreFailed wraps unexpected storage failures.
	ErrStoreFailed = errors.New("apikey: storage operation failed")
)
