package crypto

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHasherHashAndCompare(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	hash, err := h.Hash("secret123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "secret123" || hash == "" {
		t.Fatalf("unexpected hash %q", hash)
	}
	if !h.Compare(hash, "secret123") {
		t.Fatalf("compare should succeed for the right password")
	}
	if h.Compare(hash, "wrong") {
		t.Fatalf("compare should fail for the wrong password")
	}
	if h.Compare("not-a-hash", "secret123") {
		t.Fatalf("compare should fail for a malformed hash")
	}
}

func TestHasherUsesFreshSalt(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	a, _ := h.Hash("same-password")
	b, _ := h.Hash("same-password")
	if a == b {
		t.Fatalf("two hashes of the same password must differ")
	}
}

func TestHasherCostClamping(t *testing.T) {
	if got := NewHasher(0).Cost(); got != bcrypt.DefaultCost {
		t.Errorf("zero cost → %d, want %d", got, bcrypt.DefaultCost)
	}
	if got := NewHasher(2).Cost(); got != bcrypt.MinCost {
		t.Errorf("low cost → %d, want %d", got, bcrypt.MinCost)
	}
	if got := NewHasher(99).Cost(); got != bcrypt.MaxCost {
		t.Errorf("high cost → %d, want %d", got, bcrypt.MaxCost)
	}
}

func TestCompareDummyAlwaysFalse(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	if h.CompareDummy("dummy-password-for-timing") {
		t.Fatalf("dummy compare must never succeed")
	}
}

func TestGenerateTempPassword(t *testing.T) {
	seen := make(map[string]bool)
	for range 50 {
		p, err := GenerateTempPassword()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(p) != TempPasswordLength {
			t.Fatalf("length = %d, want %d", len(p), TempPasswordLength)
		}
		for _, ch := range p {
			if !strings.ContainsRune(tempPasswordAlphabet, ch) {
				t.Fatalf("unexpected character %q in %q", ch, p)
			}
		}
		seen[p] = true
	}
	if len(seen) < 45 {
		t.Fatalf("temporary passwords look repetitive: %d unique of 50", len(seen))
	}
}
