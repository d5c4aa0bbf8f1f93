package twofa

import (
	"time"

	"github.com/google/uuid"
)

// Settings is the per-user two-factor state. The secret is stored encrypted
// at rest and only ever decrypted in memory for code validation.
//
// The enabled and pending flags are mutually exclusive: pending marks an
// unconfirmed enrollment whose secret becomes binding only after the user
// proves possession by confirming a code.
type Settings struct {
	UserID           uuid.UUID
	OrgID            uuid.UUID
	Enabled          bool
	Pending          bool
	EncryptedSecret  string
	PendingExpiresAt *time.Time
	EnabledAt        *time.Time
	UpdatedAt        time.Time
}

// setupActive reports whether a pending enrollment is still confirmable.
func (s Settings) setupActive(now time.Time) bool {
	return s.Pending && s.PendingExpiresAt != nil && now.Before(*s.PendingExpiresAt)
}

// Status is the externally visible two-factor state, safe to show on an
// account security page.
type Status struct {
	Enabled                bool  `json:"enabled"`
	PendingSetup           bool  `json:"pending_setup"`
	RecoveryCodesRemaining int64 `json:"recovery_codes_remaining"`
}

// Enrollment carries everything the user needs to register an authenticator:
// the base32 secret for manual entry, the otpauth URI, and a QR rendering of
// that URI as a PNG data URI. None of it is recoverable after ExpiresAt.
type Enrollment struct {
	Secret    string    `json:"secret"`
	URI       string    `json:"uri"`
	QRCode    string    `json:"qr_code"`
	ExpiresAt time.Time `json:"expires_at"`
}
