package audit

import "errors"

var (
	// ErrInvalidEntry indicates the entry failed validation before storage.
	ErrInvalidEntry = errors.New("audit: invalid entry")

	// ErrOrgRequired indicates a query or purge without an organization.
	ErrOrgRequired = errors.New("audit: organization is required")

	// ErrInvalidRetention indicates a purge with a non-positive retention window.
	ErrInvalidRetention = errors.New("audit: retention days must be positive")

	// ErrExportFailed wraps CSV writer failures during export.
	ErrExportFailed = errors.New("audit: export failed")

	// ErrStoreFailed wraps storage backend failures.
	ErrStoreFailed = errors.New("audit: storage operation failed")
)
