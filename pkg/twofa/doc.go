// Package twofa implements TOTP-based two-factor authentication with
// one-time recovery codes.
//
// Enrollment is a two-phase flow: Setup stores an encrypted secret in
// pending state and hands the user the provisioning material; Confirm makes
// it binding only after the user proves their authenticator produces valid
// codes. Recovery codes are peppered HMAC digests stored one row per code;
// consuming one is a single conditional delete, so the same code can never
// be accepted twice.
package twofa
