package apikey

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
)

const (
	// DefaultNamespace prefixes every plaintext key so leaked values are
	// recognizable in logs and secret scanners.
	DefaultNamespace = "ptk"

	// secretSize is the random payload length: 256 bits.
	secretSize = 32

	// PrefixLength is the length of the display prefix kept alongside the
	// digest for identification.
	PrefixLength = 12
)

// generatePlaintext builds a new key plaintext of the form
// "<namespace>_<base64url(32 random bytes)>".
func generatePlaintext(namespace string) (string, error) {
	secret := make([]byte, secretSize)
	if _, err := rand.Read(secret); err != nil {
		return "", errors.Join(ErrFailedToGenerate, err)
	}
	return namespace + "_" + base64.RawURLEncoding.EncodeToString(secret), nil
}

// HashKey computes the storage digest of a plaintext key. SHA-256 keeps
// lookup O(1) by digest; the 256-bit random payload makes brute force
// infeasible without a slow hash.
func HashKey(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// displayPrefix returns the fixed-length leading fragment of the plaintext
// that is safe to show in listings.
func displayPrefix(plaintext string) string {
	if len(plaintext) < PrefixLength {
		return plaintext
	}
	return plaintext[:PrefixLength]
}
