package totp

import "errors"

var (
	ErrFailedToGenerateSecret     = errors.New("failed to generate TOTP secret")
	ErrInvalidSecret              = errors.New("invalid TOTP secret")
	ErrMissingSecret              = errors.New("missing TOTP secret")
	ErrMissingAccountName         = errors.New("missing account name")
	ErrMissingIssuer              = errors.New("missing issuer")
	ErrInvalidCodeFormat          = errors.New("invalid code format")
	ErrFailedToEncryptSecret      = errors.New("failed to encrypt TOTP secret")
	ErrFailedToDecryptSecret      = errors.New("failed to decrypt TOTP secret")
	ErrCiphertextTooShort         = errors.New("ciphertext too short")
	ErrInvalidEncryptionKeyLength = errors.New("invalid encryption key length")
	ErrFailedToGenerateKey        = errors.New("failed to generate encryption key")
)
