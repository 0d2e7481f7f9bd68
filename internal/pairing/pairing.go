// Package pairing derives bonding material for the loopback link layer:
// a P-256 ECDH exchange in the style of LE Secure Connections, with the
// long-term key and display passkey expanded from the shared secret by
// HKDF-SHA256.
package pairing

import (
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// PublicKeySize is the length of an encoded public key (X || Y).
const PublicKeySize = 64

// LTKSize is the length of a long-term key.
const LTKSize = 16

// PasskeyModulus bounds the six-digit display passkey.
const PasskeyModulus = 1_000_000

var (
	infoLTK     = []byte("vknob ltk")
	infoPasskey = []byte("vknob passkey")
)

// KeyPair is one side's ephemeral ECDH key.
type KeyPair struct {
	priv *ecdh.PrivateKey
}

// GenerateKeyPair creates a new P-256 key pair.
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("pairing: generate key: %w", err)
	}
	return &KeyPair{priv: priv}, nil
}

// PublicKey returns the 64-byte X || Y encoding sent to the peer.
func (k *KeyPair) PublicKey() []byte {
	raw := k.priv.PublicKey().Bytes() // 0x04 || X || Y
	return raw[1:]
}

// SharedSecret performs ECDH with the peer's encoded public key.
func (k *KeyPair) SharedSecret(peer []byte) ([]byte, error) {
	if len(peer) != PublicKeySize {
		return nil, fmt.Errorf("pairing: public key must be %d bytes, got %d", PublicKeySize, len(peer))
	}
	pub, err := ecdh.P256().NewPublicKey(append([]byte{0x04}, peer...))
	if err != nil {
		return nil, fmt.Errorf("pairing: parse public key: %w", err)
	}
	secret, err := k.priv.ECDH(pub)
	if err != nil {
		return nil, fmt.Errorf("pairing: ECDH: %w", err)
	}
	return secret, nil
}

// DeriveLTK expands the shared secret into a 16-byte long-term key bound
// to both device addresses (initiator first).
func DeriveLTK(secret []byte, initiator, responder [6]byte) ([LTKSize]byte, error) {
	var ltk [LTKSize]byte
	salt := make([]byte, 0, 12)
	salt = append(salt, initiator[:]...)
	salt = append(salt, responder[:]...)

	r := hkdf.New(sha256.New, secret, salt, infoLTK)
	if _, err := io.ReadFull(r, ltk[:]); err != nil {
		return ltk, fmt.Errorf("pairing: HKDF: %w", err)
	}
	return ltk, nil
}

// Passkey derives the six-digit number both sides display for comparison.
func Passkey(secret []byte) (uint32, error) {
	var b [4]byte
	r := hkdf.New(sha256.New, secret, nil, infoPasskey)
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, fmt.Errorf("pairing: HKDF: %w", err)
	}
	return binary.LittleEndian.Uint32(b[:]) % PasskeyModulus, nil
}
