// Package totp implements the time-based one-time password algorithm from
// RFC 6238 on top of the HOTP construction from RFC 4226.
//
// The package is pure: it performs no I/O and all time-dependent functions
// accept an explicit time.Time, which makes the implementation verifiable
// against the published RFC 6238 test vectors. It covers secret generation,
// Base32 secret handling, code generation and drift-tolerant validation,
// and otpauth:// enrollment URI construction for authenticator apps.
//
// AES-256-GCM helpers for persisting secrets at rest live in encrypt.go;
// the encryption key is expected to come from deployment configuration
// (see the twofa package).
//
// Inspect failures with errors.Is against the package sentinels such as
// ErrInvalidSecret and ErrInvalidCodeFormat.
package totp
