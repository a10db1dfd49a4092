package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"unicode/utf8"
)

const nonceSize = 12

var (
	// ErrEncryption is returned when sealing an identity reference fails.
	ErrEncryption = errors.New("encryption failed")
	// ErrDecryption is returned for any token that cannot be resolved: invalid
	// base64, truncated payload, authentication failure, or bad plaintext. The
	// cases are deliberately indistinguishable so the token path cannot be used
	// as an oracle.
	ErrDecryption = errors.New("decryption failed")
)

// TokenCipher seals a user id into an opaque, URL-safe bearer token using
// AES-256-GCM and a process-wide key. It knows nothing about sessions, expiry,
// or storage.
type TokenCipher struct {
	aead cipher.AEAD
}

// NewTokenCipher returns a TokenCipher using the given 256-bit key. The key is
// read-only after construction and is shared safely across goroutines.
func NewTokenCipher(key []byte) (*TokenCipher, error) {
	if len(key) != KeySize {
		return nil, errors.New("token cipher key must be 32 bytes")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &TokenCipher{aead: aead}, nil
}

// EncryptIdentity seals userID into a bearer token. A fresh random 96-bit
// nonce is generated per call and prepended to the ciphertext, so the same
// identity encrypts to a different token every time.
func (c *TokenCipher) EncryptIdentity(userID string) (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", ErrEncryption
	}

	sealed := c.aead.Seal(nil, nonce, []byte(userID), nil)

	combined := make([]byte, 0, len(nonce)+len(sealed))
	combined = append(combined, nonce...)
	combined = append(combined, sealed...)

	return base64.URLEncoding.EncodeToString(combined), nil
}

// DecryptIdentity reverses EncryptIdentity, returning the user id the token
// was minted for. Every failure mode returns ErrDecryption.
func (c *TokenCipher) DecryptIdentity(token string) (string, error) {
	combined, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return "", ErrDecryption
	}
	if len(combined) < nonceSize {
		return "", ErrDecryption
	}

	nonce, ciphertext := combined[:nonceSize], combined[nonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecryption
	}
	if len(plaintext) == 0 || !utf8.Valid(plaintext) {
		return "", ErrDecryption
	}

	return string(plaintext), nil
}
