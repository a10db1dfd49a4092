package security

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"
)

func TestNewEphemeralKey(t *testing.T) {
	k1, err := NewEphemeralKey()
	if err != nil {
		t.Fatalf("NewEphemeralKey: %v", err)
	}
	if len(k1) != KeySize {
		t.Fatalf("key length = %d, want %d", len(k1), KeySize)
	}
	k2, err := NewEphemeralKey()
	if err != nil {
		t.Fatalf("NewEphemeralKey: %v", err)
	}
	if bytes.Equal(k1, k2) {
		t.Error("two ephemeral keys should differ")
	}
}

func TestKeyFromHex(t *testing.T) {
	want, err := NewEphemeralKey()
	if err != nil {
		t.Fatalf("NewEphemeralKey: %v", err)
	}
	got, err := KeyFromHex(hex.EncodeToString(want))
	if err != nil {
		t.Fatalf("KeyFromHex: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Error("KeyFromHex should round-trip the key bytes")
	}

	for _, s := range []string{"", "zz", "abcd", hex.EncodeToString(want) + "00"} {
		if _, err := KeyFromHex(s); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("KeyFromHex(%q): want ErrInvalidKey, got %v", s, err)
		}
	}
}

func TestLoadKey(t *testing.T) {
	// Empty config means a fresh ephemeral key.
	k, err := LoadKey("")
	if err != nil {
		t.Fatalf("LoadKey: %v", err)
	}
	if len(k) != KeySize {
		t.Errorf("key length = %d, want %d", len(k), KeySize)
	}

	fixed, err := NewEphemeralKey()
	if err != nil {
		t.Fatalf("NewEphemeralKey: %v", err)
	}
	k2, err := LoadKey(hex.EncodeToString(fixed))
	if err != nil {
		t.Fatalf("LoadKey hex: %v", err)
	}
	if !bytes.Equal(k2, fixed) {
		t.Error("LoadKey should use the configured key when set")
	}
}
