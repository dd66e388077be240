package security

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHasher_HashAndCompare(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	hash, err := h.Hash([]byte("s3cret-pass"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "s3cret-pass" {
		t.Fatal("hash must not equal plaintext")
	}
	if err := h.Compare(hash, []byte("s3cret-pass")); err != nil {
		t.Errorf("Compare with correct password: %v", err)
	}
	if err := h.Compare(hash, []byte("wrong")); err == nil {
		t.Error("Compare with wrong password should fail")
	}
}

func TestNewHasher_ClampsCost(t *testing.T) {
	if h := NewHasher(0); h.Cost != bcrypt.DefaultCost {
		t.Errorf("Cost = %d, want default %d", h.Cost, bcrypt.DefaultCost)
	}
	if h := NewHasher(100); h.Cost != bcrypt.MaxCost {
		t.Errorf("Cost = %d, want max %d", h.Cost, bcrypt.MaxCost)
	}
	if h := NewHasher(1); h.Cost != bcrypt.MinCost {
		t.Errorf("Cost = %d, want min %d", h.Cost, bcrypt.MinCost)
	}
}
