package apikey

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Status is the stored lifecycle state of a key. Expiry is deliberately
// not a status: it is a predicate computed at authorization time.
type Status string

const (
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
)

// Key is a stored API key. The plaintext exists only transiently at
// creation time; KeyHash is its irreversible digest and KeyPrefix a short
// leading fragment safe to display.
type Key struct {
	ID         uuid.UUID  `json:"id"`
	OrgID      uuid.UUID  `json:"org_id"`
	Name       string     `json:"name"`
	KeyHash    string     `json:"-"`
	KeyPrefix  string     `json:"key_prefix"`
	Scopes     []string   `json:"scopes"`
	RateLimit  int        `json:"rate_limit"`
	Status     Status     `json:"status"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedBy  uuid.UUID  `json:"created_by"`
	CreatedAt  time.Time  `json:"created_at"`
}

// IsValid reports whether the key authorizes requests at the given
// instant: it must be active and not past its optional expiry. No state
// transition ever writes "expired" to storage.
func (k Key) IsValid(now time.Time) bool {
	if k.Status != StatusActive {
		return false
	}
	return k.ExpiresAt == nil || now.Before(*k.ExpiresAt)
}

// sanitized returns a copy safe to hand to read endpoints: the digest is
// stripped, only the display prefix remains.
func (k Key) sanitized() Key {
	k.KeyHash = ""
	k.Scopes = slices.Clone(k.Scopes)
	return k
}

// vocabulary is the closed set of grantable scopes. Wildcard forms
// ("<resource>:*" and "*") are accepted by validation on top of these.
var vocabulary = []string{
	"plants:read",
	"plants:write",
	"plants:delete",
	"documents:read",
	"documents:write",
	"documents:delete",
	"maintenance:read",
	"maintenance:write",
	"checklists:read",
	"checklists:write",
	"users:read",
	"users:write",
	"analytics:read",
	"audit:read",
}

// Vocabulary returns the closed scope vocabulary, for validation and UI
// pickers.
func Vocabulary() []string {
	return slices.Clone(vocabulary)
}
