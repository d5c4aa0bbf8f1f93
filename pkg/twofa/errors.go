package twofa

import "errors"

var (
	ErrInvalidConfig                = errors.New("twofa: invalid configuration")
	ErrSettingsNotFound             = errors.New("twofa: settings not found")
	ErrAlreadyEnabled               = errors.New("twofa: two-factor authentication is already enabled")
	ErrNotEnabled                   = errors.New("twofa: two-factor authentication is not enabled")
	ErrSetupNotStarted              = errors.New("twofa: no pending setup to confirm")
	ErrSetupExpired                 = errors.New("twofa: pending setup has expired, start over")
	ErrInvalidCode                  = errors.New("twofa: invalid verification code")
	ErrInvalidRecoveryCode          = errors.New("twofa: invalid recovery code")
	ErrInvalidRecoveryCodeCount     = errors.New("twofa: recovery code count must be positive")
	ErrFailedToGenerateRecoveryCode = errors.New("twofa: failed to generate recovery code")
	ErrStoreFailed                  = errors.New("twofa: storage operation failed")
)
