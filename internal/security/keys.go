package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
)

// KeySize is the AES-256 key size in bytes.
const KeySize = 32

// ErrInvalidKey is returned when a configured key is not valid hex of the
// right length.
var ErrInvalidKey = errors.New("invalid key")

// NewEphemeralKey generates a random 256-bit key held only in memory. Tokens
// minted under an ephemeral key become unresolvable when the process exits.
func NewEphemeralKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

// KeyFromHex decodes an operator-supplied 64-character hex key. Use this when
// tokens must stay resolvable across restarts.
func KeyFromHex(s string) ([]byte, error) {
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidKey
	}
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	return key, nil
}

// LoadKey returns the key to use for the token cipher: the decoded hexKey when
// non-empty, otherwise a fresh ephemeral key.
func LoadKey(hexKey string) ([]byte, error) {
	if hexKey != "" {
		return KeyFromHex(hexKey)
	}
	return NewEphemeralKey()
}
