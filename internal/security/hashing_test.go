package security

import (
	"errors"
	"strings"
	"testing"
)

// testParams keeps hashing cheap in unit tests.
var testParams = Argon2Params{
	MemoryKiB:   8 * 1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

func TestHasher_HashAndVerify(t *testing.T) {
	h := NewHasher(testParams)

	hash, err := h.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$") {
		t.Errorf("hash has unexpected prefix: %q", hash)
	}

	ok, err := h.Verify("correct horse battery staple", hash)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Error("Verify should succeed for the original password")
	}

	ok, err = h.Verify("wrong password", hash)
	if err != nil {
		t.Fatalf("Verify mismatch: %v", err)
	}
	if ok {
		t.Error("Verify should fail for a different password")
	}
}

func TestHasher_HashIsSalted(t *testing.T) {
	h := NewHasher(testParams)

	h1, err := h.Hash("password123")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	h2, err := h.Hash("password123")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if h1 == h2 {
		t.Error("two hashes of the same password should differ (fresh salt per call)")
	}
}

func TestHasher_VerifyMalformedHash(t *testing.T) {
	h := NewHasher(testParams)

	cases := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"not a hash", "plaintext"},
		{"wrong algorithm", "$argon2i$v=19$m=8192,t=1,p=1$c2FsdHNhbHQ$aGFzaGhhc2g"},
		{"wrong version", "$argon2id$v=16$m=8192,t=1,p=1$c2FsdHNhbHQ$aGFzaGhhc2g"},
		{"missing sections", "$argon2id$v=19$m=8192,t=1,p=1"},
		{"bad salt base64", "$argon2id$v=19$m=8192,t=1,p=1$!!!$aGFzaGhhc2g"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := h.Verify("password", tc.hash)
			if !errors.Is(err, ErrInvalidHash) {
				t.Errorf("Verify(%q): want ErrInvalidHash, got ok=%v err=%v", tc.hash, ok, err)
			}
		})
	}
}

func TestHasher_VerifyRejectsPathologicalParams(t *testing.T) {
	// A hash claiming far larger costs than configured must be refused, not
	// computed.
	small := NewHasher(testParams)
	big := NewHasher(Argon2Params{
		MemoryKiB:   testParams.MemoryKiB * 8,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})

	hash, err := big.Hash("password")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if _, err := small.Verify("password", hash); !errors.Is(err, ErrInvalidHash) {
		t.Errorf("Verify oversized params: want ErrInvalidHash, got %v", err)
	}
}

func TestNewHasher_ZeroValuesGetDefaults(t *testing.T) {
	h := NewHasher(Argon2Params{})
	def := DefaultArgon2Params()
	if h.Params != def {
		t.Errorf("Params = %+v, want defaults %+v", h.Params, def)
	}
}
