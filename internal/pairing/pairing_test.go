package pairing

import (
	"bytes"
	"testing"
)

func exchange(t *testing.T) (a, b []byte) {
	t.Helper()
	k1, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}
	k2, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}
	a, err = k1.SharedSecret(k2.PublicKey())
	if err != nil {
		t.Fatalf("SharedSecret(k2) error = %v", err)
	}
	b, err = k2.SharedSecret(k1.PublicKey())
	if err != nil {
		t.Fatalf("SharedSecret(k1) error = %v", err)
	}
	return a, b
}

func TestPublicKeySize(t *testing.T) {
	k, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}
	if got := len(k.PublicKey()); got != PublicKeySize {
		t.Errorf("len(PublicKey()) = %d, want %d", got, PublicKeySize)
	}
}

func TestSharedSecretMatches(t *testing.T) {
	a, b := exchange(t)
	if !bytes.Equal(a, b) {
		t.Error("shared secrets from both sides do not match")
	}
}

func TestSharedSecretRejectsBadKey(t *testing.T) {
	k, err := GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := k.SharedSecret(make([]byte, 33)); err == nil {
		t.Error("SharedSecret() should reject a 33-byte key")
	}
	if _, err := k.SharedSecret(make([]byte, PublicKeySize)); err == nil {
		t.Error("SharedSecret() should reject the point at infinity encoding")
	}
}

func TestDeriveLTK(t *testing.T) {
	secret, _ := exchange(t)
	initiator := [6]byte{1, 2, 3, 4, 5, 6}
	resp := [6]byte{6, 5, 4, 3, 2, 1}

	ltk1, err := DeriveLTK(secret, initiator, resp)
	if err != nil {
		t.Fatalf("DeriveLTK() error = %v", err)
	}
	ltk2, err := DeriveLTK(secret, initiator, resp)
	if err != nil {
		t.Fatalf("DeriveLTK() error = %v", err)
	}
	if ltk1 != ltk2 {
		t.Error("DeriveLTK is not deterministic")
	}

	swapped, err := DeriveLTK(secret, resp, initiator)
	if err != nil {
		t.Fatal(err)
	}
	if swapped == ltk1 {
		t.Error("DeriveLTK should depend on address order")
	}
}

func TestPasskeyRange(t *testing.T) {
	for i := 0; i < 20; i++ {
		secret, _ := exchange(t)
		pk, err := Passkey(secret)
		if err != nil {
			t.Fatalf("Passkey() error = %v", err)
		}
		if pk >= PasskeyModulus {
			t.Fatalf("Passkey() = %d, want < %d", pk, PasskeyModulus)
		}
	}
}
