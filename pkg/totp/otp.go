package totp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base32"
	"errors"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	// Digits is the number of digits in a generated code (RFC 6238 default).
	Digits = 6
	// Period is the code validity window in seconds (RFC 6238 default).
	Period = 30
	// Algorithm is the HMAC algorithm advertised in otpauth URIs.
	Algorithm = "SHA1"

	// SecretSize is the secret length in bytes. 160 bits matches the
	// RFC 4226 recommendation and the HMAC-SHA1 block input.
	SecretSize = 20

	// DefaultWindow is the number of adjacent periods accepted on either
	// side of the current one, tolerating up to ±30s of clock skew.
	DefaultWindow = 1
)

// secretRegex enforces the canonical RFC 4648 Base32 alphabet: A-Z, 2-7,
// optional trailing padding. Lowercase input is normalized before matching.
var secretRegex = regexp.MustCompile("^[A-Z2-7]+=*$")

var codeRegex = regexp.MustCompile(fmt.Sprintf(`^\d{%d}$`, Digits))

// GenerateSecretKey returns a new Base32-encoded secret from a
// cryptographically secure random source.
func GenerateSecretKey() (string, error) {
	secret := make([]byte, SecretSize)
	if _, err := rand.Read(secret); err != nil {
		return "", errors.Join(ErrFailedToGenerateSecret, err)
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(secret), nil
}

// DecodeSecret normalizes and decodes a Base32 secret. Input is trimmed and
// uppercased so secrets typed by hand verify regardless of case.
func DecodeSecret(secret string) ([]byte, error) {
	secret = strings.ToUpper(strings.TrimSpace(secret))
	if !secretRegex.MatchString(secret) {
		return nil, ErrInvalidSecret
	}
	key, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(strings.TrimRight(secret, "="))
	if err != nil {
		return nil, errors.Join(ErrInvalidSecret, err)
	}
	return key, nil
}

// GenerateCode returns the zero-padded code for the period containing t.
func GenerateCode(secret string, t time.Time) (string, error) {
	key, err := DecodeSecret(secret)
	if err != nil {
		return "", err
	}
	counter := uint64(t.Unix() / Period)
	return fmt.Sprintf("%0*d", Digits, HOTP(key, counter, Digits)), nil
}

// ValidateCode checks a code against the current time with the default
// drift window.
func ValidateCode(secret, code string) (bool, error) {
	return ValidateCodeAt(secret, code, time.Now(), DefaultWindow)
}

// ValidateCodeAt checks a code against the period containing t, accepting
// codes from up to window periods on either side. Returns false with a nil
// error when the code is well-formed but does not match any window.
func ValidateCodeAt(secret, code string, t time.Time, window int) (bool, error) {
	key, err := DecodeSecret(secret)
	if err != nil {
		return false, err
	}

	code = strings.TrimSpace(code)
	if !codeRegex.MatchString(code) {
		return false, ErrInvalidCodeFormat
	}
	if window < 0 {
		window = 0
	}

	counter := t.Unix() / Period
	for i := -window; i <= window; i++ {
		expected := HOTP(key, uint64(counter+int64(i)), Digits)
		if fmt.Sprintf("%0*d", Digits, expected) == code {
			return true, nil
		}
	}
	return false, nil
}

// HOTP implements the RFC 4226 HMAC-based one-time password algorithm.
func HOTP(key []byte, counter uint64, digits int) int {
	// Counter is encoded as an 8-byte big-endian integer (RFC 4226 §5.1).
	counterBytes := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		counterBytes[i] = byte(counter & 0xff)
		counter >>= 8
	}

	mac := hmac.New(sha1.New, key)
	mac.Write(counterBytes)
	sum := mac.Sum(nil)

	// Dynamic truncation: low nibble of the last byte selects a 4-byte
	// slice, whose top bit is masked to keep the value positive.
	offset := sum[len(sum)-1] & 0x0f
	value := (int(sum[offset]&0x7f) << 24) |
		(int(sum[offset+1]) << 16) |
		(int(sum[offset+2]) << 8) |
		int(sum[offset+3])

	return value % int(math.Pow10(digits))
}

// URIParams describes an enrollment URI for authenticator apps.
type URIParams struct {
	Secret      string // Base32-encoded secret (required)
	AccountName string // user identifier, typically an email (required)
	Issuer      string // service name shown in authenticator apps (required)
}

// Validate ensures required URI parameters are present and well-formed.
func (p URIParams) Validate() error {
	if p.Secret == "" {
		return ErrMissingSecret
	}
	if !secretRegex.MatchString(strings.ToUpper(strings.TrimSpace(p.Secret))) {
		return ErrInvalidSecret
	}
	if p.AccountName == "" {
		return ErrMissingAccountName
	}
	if p.Issuer == "" {
		return ErrMissingIssuer
	}
	return nil
}

// GenerateURI builds an otpauth:// enrollment URI following the Key Uri
// Format used by Google Authenticator and compatible apps.
func GenerateURI(params URIParams) (string, error) {
	if err := params.Validate(); err != nil {
		return "", err
	}

	label := fmt.Sprintf("%s:%s",
		url.PathEscape(params.Issuer),
		url.PathEscape(params.AccountName),
	)

	query := url.Values{}
	query.Set("secret", strings.ToUpper(strings.TrimSpace(params.Secret)))
	query.Set("issuer", params.Issuer)
	query.Set("algorithm", Algorithm)
	query.Set("digits", fmt.Sprintf("%d", Digits))
	query.Set("period", fmt.Sprintf("%d", Period))

	return fmt.Sprintf("otpauth://totp/%s?%s", label, query.Encode()), nil
}
