package security

import "crypto/rand"

const sessionKeyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// SessionKeyLength is the length of generated session lookup keys.
const SessionKeyLength = 32

// NewSessionKey returns a random alphanumeric string used as a session
// record's lookup key. It is independent of the bearer token and never leaves
// the server except when a caller explicitly needs a correlation id.
func NewSessionKey() (string, error) {
	buf := make([]byte, SessionKeyLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = sessionKeyAlphabet[int(b)%len(sessionKeyAlphabet)]
	}
	return string(buf), nil
}
