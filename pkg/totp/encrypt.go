package totp

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
)

// KeySize is the required key length for AES-256-GCM secret encryption.
const KeySize = 32

// EncryptSecret encrypts a TOTP secret for storage at rest using
// AES-256-GCM. The nonce is prepended to the ciphertext and the whole
// payload is returned base64-encoded.
func EncryptSecret(plaintext string, key []byte) (string, error) {
	if len(key) != KeySize {
		return "", errors.Join(ErrFailedToEncryptSecret, ErrInvalidEncryptionKeyLength)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", errors.Join(ErrFailedToEncryptSecret, err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return "", errors.Join(ErrFailedToEncryptSecret, err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", errors.Join(ErrFailedToEncryptSecret, err)
	}

	ciphertext := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// DecryptSecret reverses EncryptSecret.
func DecryptSecret(encoded string, key []byte) (string, error) {
	if len(key) != KeySize {
		return "", errors.Join(ErrFailedToDecryptSecret, ErrInvalidEncryptionKeyLength)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", errors.Join(ErrFailedToDecryptSecret, err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", errors.Join(ErrFailedToDecryptSecret, err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return "", errors.Join(ErrFailedToDecryptSecret, err)
	}

	if len(ciphertext) < aead.NonceSize() {
		return "", errors.Join(ErrFailedToDecryptSecret, ErrCiphertextTooShort)
	}
	nonce, ciphertext := ciphertext[:aead.NonceSize()], ciphertext[aead.NonceSize():]

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", errors.Join(ErrFailedToDecryptSecret, err)
	}
	return string(plaintext), nil
}

// GenerateEncryptionKey returns a new random key suitable for AES-256,
// base64-encoded for placement in deployment configuration.
func GenerateEncryptionKey() (string, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", errors.Join(ErrFailedToGenerateKey, err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// DecodeEncryptionKey decodes a base64 key from configuration and checks
// its length.
func DecodeEncryptionKey(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.Join(ErrInvalidEncryptionKeyLength, err)
	}
	if len(key) != KeySize {
		return nil, ErrInvalidEncryptionKeyLength
	}
	return key, nil
}
