package scopes

import "errors"

var (
	// ErrUnknownScope is returned when a scope token is not part of the
	// closed vocabulary.
	ErrUnknownScope = errors.New("scopes: unknown scope token")
)
