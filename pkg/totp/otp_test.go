package totp_test

import (
	"testing"
	"time"

	"github.com/plantops/trustkit/pkg/totp"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rfcSecret is the shared secret from RFC 6238 Appendix B ("12345678901234567890").
const rfcSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

func TestGenerateSecretKey(t *testing.T) {
	t.Parallel()

	secret, err := totp.GenerateSecretKey()
	require.NoError(t, err)
	assert.NotEmpty(t, secret)

	key, err := totp.DecodeSecret(secret)
	require.NoError(t, err)
	assert.Len(t, key, totp.SecretSize)

	other, err := totp.GenerateSecretKey()
	require.NoError(t, err)
	assert.NotEqual(t, secret, other)
}

func TestHOTP_RFC6238Vectors(t *testing.T) {
	t.Parallel()

	key, err := totp.DecodeSecret(rfcSecret)
	require.NoError(t, err)

	// Appendix B of RFC 6238, SHA1 mode, 8 digits.
	vectors := []struct {
		unix int64
		want int
	}{
		{59, 94287082},
		{1111111109, 7081804},
		{1111111111, 14050471},
		{1234567890, 89005924},
		{2000000000, 69279037},
		{20000000000, 65353130},
	}

	for _, v := range vectors {
		counter := uint64(v.unix / totp.Period)
		assert.Equal(t, v.want, totp.HOTP(key, counter, 8), "unix time %d", v.unix)
	}
}

func TestGenerateCode_RFC6238Vectors(t *testing.T) {
	t.Parallel()

	// 6-digit codes are the 8-digit RFC vectors reduced mod 10^6.
	vectors := []struct {
		unix int64
		want string
	}{
		{59, "287082"},
		{1111111109, "081804"},
		{1111111111, "050471"},
		{1234567890, "005924"},
		{2000000000, "279037"},
		{20000000000, "353130"},
	}

	for _, v := range vectors {
		code, err := totp.GenerateCode(rfcSecret, time.Unix(v.unix, 0))
		require.NoError(t, err)
		assert.Equal(t, v.want, code, "unix time %d", v.unix)
	}
}

func TestGenerateCode_Deterministic(t *testing.T) {
	t.Parallel()

	at := time.Unix(1234567890, 0)
	first, err := totp.GenerateCode(rfcSecret, at)
	require.NoError(t, err)
	second, err := totp.GenerateCode(rfcSecret, at)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestValidateCodeAt_DriftWindow(t *testing.T) {
	t.Parallel()

	issued := time.Unix(1234567890, 0)
	code, err := totp.GenerateCode(rfcSecret, issued)
	require.NoError(t, err)

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"same window", issued, true},
		{"previous window", issued.Add(-30 * time.Second), true},
		{"next window", issued.Add(30 * time.Second), true},
		{"three windows behind", issued.Add(-90 * time.Second), false},
		{"three windows ahead", issued.Add(90 * time.Second), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ok, err := totp.ValidateCodeAt(rfcSecret, code, tt.at, totp.DefaultWindow)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestValidateCodeAt_ZeroWindow(t *testing.T) {
	t.Parallel()

	issued := time.Unix(1234567890, 0)
	code, err := totp.GenerateCode(rfcSecret, issued)
	require.NoError(t, err)

	ok, err := totp.ValidateCodeAt(rfcSecret, code, issued.Add(30*time.Second), 0)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = totp.ValidateCodeAt(rfcSecret, code, issued, 0)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestValidateCodeAt_Errors(t *testing.T) {
	t.Parallel()

	at := time.Unix(1234567890, 0)

	_, err := totp.ValidateCodeAt("not base32!", "123456", at, 1)
	assert.ErrorIs(t, err, totp.ErrInvalidSecret)

	_, err = totp.ValidateCodeAt(rfcSecret, "12345", at, 1)
	assert.ErrorIs(t, err, totp.ErrInvalidCodeFormat)

	_, err = totp.ValidateCodeAt(rfcSecret, "abcdef", at, 1)
	assert.ErrorIs(t, err, totp.ErrInvalidCodeFormat)
}

func TestDecodeSecret_CaseInsensitive(t *testing.T) {
	t.Parallel()

	upper, err := totp.DecodeSecret(rfcSecret)
	require.NoError(t, err)
	lower, err := totp.DecodeSecret("gezdgnbvgy3tqojqgezdgnbvgy3tqojq")
	require.NoError(t, err)
	assert.Equal(t, upper, lower)
}

func TestGenerateURI(t *testing.T) {
	t.Parallel()

	uri, err := totp.GenerateURI(totp.URIParams{
		Secret:      "ABCDEFGHIJKLMNOP",
		AccountName: "operator@plant.example",
		Issuer:      "PlantOps",
	})
	require.NoError(t, err)
	assert.Equal(t,
		"otpauth://totp/PlantOps:operator@plant.example?algorithm=SHA1&digits=6&issuer=PlantOps&period=30&secret=ABCDEFGHIJKLMNOP",
		uri,
	)

	_, err = totp.GenerateURI(totp.URIParams{AccountName: "a", Issuer: "b"})
	assert.ErrorIs(t, err, totp.ErrMissingSecret)

	_, err = totp.GenerateURI(totp.URIParams{Secret: "ABCDEFGH", Issuer: "b"})
	assert.ErrorIs(t, err, totp.ErrMissingAccountName)

	_, err = totp.GenerateURI(totp.URIParams{Secret: "ABCDEFGH", AccountName: "a"})
	assert.ErrorIs(t, err, totp.ErrMissingIssuer)
}

func TestEncryptDecryptSecret(t *testing.T) {
	t.Parallel()

	encoded, err := totp.GenerateEncryptionKey()
	require.NoError(t, err)
	key, err := totp.DecodeEncryptionKey(encoded)
	require.NoError(t, err)

	ciphertext, err := totp.EncryptSecret(rfcSecret, key)
	require.NoError(t, err)
	assert.NotEqual(t, rfcSecret, ciphertext)

	plaintext, err := totp.DecryptSecret(ciphertext, key)
	require.NoError(t, err)
	assert.Equal(t, rfcSecret, plaintext)

	// Wrong key must not decrypt.
	otherEncoded, err := totp.GenerateEncryptionKey()
	require.NoError(t, err)
	otherKey, err := totp.DecodeEncryptionKey(otherEncoded)
	require.NoError(t, err)
	_, err = totp.DecryptSecret(ciphertext, otherKey)
	assert.ErrorIs(t, err, totp.ErrFailedToDecryptSecret)

	_, err = totp.EncryptSecret(rfcSecret, []byte("short"))
	assert.ErrorIs(t, err, totp.ErrInvalidEncryptionKeyLength)
}
