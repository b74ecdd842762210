// Package prss implements the correlated pseudorandom secret sharing
// generator: pairwise X25519 key exchange between helpers, HKDF-SHA256
// expansion into per-step AES-256 keys, and the Matyas-Meyer-Oseas PRF used
// to derive correlated randomness.
package prss

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/curve25519"
)

// KeyPair is a single helper's ephemeral X25519 keypair, published to both
// peers out of band.
type KeyPair struct {
	Private [32]byte
	Public  [32]byte
}

// GenerateKeyPair creates a fresh ephemeral X25519 keypair.
func GenerateKeyPair() (KeyPair, error) {
	var priv [32]byte
	if _, err := rand.Read(priv[:]); err != nil {
		return KeyPair{}, fmt.Errorf("prss: failed to generate private key: %w", err)
	}
	pub, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return KeyPair{}, fmt.Errorf("prss: failed to derive public key: %w", err)
	}
	var kp KeyPair
	kp.Private = priv
	copy(kp.Public[:], pub)
	return kp, nil
}

// DeriveSharedSecret computes the X25519 Diffie-Hellman shared secret with
// a peer's public key. It is a fatal misconfiguration for peerPub to equal
// this helper's own public key: self-pairing would give away the
// generator's correlation property to the single helper that sent it, so
// implementations refuse rather than silently proceeding.
func (kp KeyPair) DeriveSharedSecret(peerPub [32]byte) ([32]byte, error) {
	if kp.Public == peerPub {
		panic("prss: peer public key equals own public key, refusing self key-exchange")
	}
	ss, err := curve25519.X25519(kp.Private[:], peerPub[:])
	if err != nil {
		return [32]byte{}, fmt.Errorf("prss: X25519 key exchange failed: %w", err)
	}
	var out [32]byte
	copy(out[:], ss)
	return out, nil
}
