package handlers

import "testing"

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := hashPassword("s3cret-panel-pass")
	if err != nil {
		t.Fatalf("hashPassword failed: %v", err)
	}
	if hash == "s3cret-panel-pass" {
		t.Fatal("hash must not equal the plaintext")
	}
	if err := verifyPassword(hash, "s3cret-panel-pass"); err != nil {
		t.Fatalf("correct password rejected: %v", err)
	}
	if err := verifyPassword(hash, "wrong-pass"); err == nil {
		t.Fatal("wrong password accepted")
	}
}

func TestHashPasswordSalts(t *testing.T) {
	a, err := hashPassword("same-input")
	if err != nil {
		t.Fatalf("hashPassword failed: %v", err)
	}
	b, err := hashPassword("same-input")
	if err != nil {
		t.Fatalf("hashPassword failed: %v", err)
	}
	if a == b {
		t.Fatal("two hashes of the same password should differ")
	}
}

func TestNewOpaqueToken(t *testing.T) {
	a, err := newOpaqueToken()
	if err != nil {
		t.Fatalf("newOpaqueToken failed: %v", err)
	}
	b, err := newOpaqueToken()
	if err != nil {
		t.Fatalf("newOpaqueToken failed: %v", err)
	}
	if len(a) != 64 {
		t.Fatalf("token length = %d, want 64 hex chars", len(a))
	}
	if a == b {
		t.Fatal("tokens must be unique")
	}
}
