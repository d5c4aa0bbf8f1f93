package twofa

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
)

// RecoveryCodeCount is the fixed size of a recovery code set. Regeneration
// always replaces the whole set.
const RecoveryCodeCount = 10

// recoveryAlphabet excludes the characters users misread over the phone:
// 0/O, 1/I/L.
const recoveryAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const recoveryGroupLen = 4

// GenerateRecoveryCodes returns count one-time codes in XXXX-XXXX form,
// drawn unbiased from the recovery alphabet.
func GenerateRecoveryCodes(count int) ([]string, error) {
	if count < 1 {
		return nil, ErrInvalidRecoveryCodeCount
	}

	alphabetLen := big.NewInt(int64(len(recoveryAlphabet)))
	codes := make([]string, count)
	for i := range count {
		var sb strings.Builder
		for j := range recoveryGroupLen * 2 {
			if j == recoveryGroupLen {
				sb.WriteByte('-')
			}
			n, err := rand.Int(rand.Reader, alphabetLen)
			if err != nil {
				return nil, errors.Join(ErrFailedToGenerateRecoveryCode, err)
			}
			sb.WriteByte(recoveryAlphabet[n.Int64()])
		}
		codes[i] = sb.String()
	}
	return codes, nil
}

// NormalizeRecoveryCode canonicalizes user input before hashing: uppercase,
// separators and whitespace stripped. "abcd-efgh" and "ABCD EFGH" hash the
// same.
func NormalizeRecoveryCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	return strings.Map(func(r rune) rune {
		if r == '-' || r == ' ' {
			return -1
		}
		return r
	}, code)
}

// HashRecoveryCode derives the storage digest of a code: HMAC-SHA256 over
// the normalized form, keyed with the deployment pepper. A database dump
// alone is not enough to forge a code.
func HashRecoveryCode(code string, pepper []byte) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(NormalizeRecoveryCode(code)))
	return hex.EncodeToString(mac.Sum(nil))
}
