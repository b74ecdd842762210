package report

import (
	"fmt"
	"io"

	"github.com/cloudflare/circl/hpke"
	"github.com/cloudflare/circl/kem"
)

// Suite is the fixed HPKE cipher suite used for match-key report
// encryption: X25519-HKDF-SHA256 KEM, HKDF-SHA256 KDF, ChaCha20-Poly1305
// AEAD.
var Suite = hpke.NewSuite(hpke.KEM_X25519_HKDF_SHA256, hpke.KDF_HKDF_SHA256, hpke.AEAD_ChaCha20Poly1305)

// KeyPair is one HPKE keypair owned by a report collector's key registry.
type KeyPair struct {
	Public  kem.PublicKey
	Private kem.PrivateKey
}

// KeyRegistry holds the set of HPKE keypairs a helper uses to decrypt
// match-key reports, indexed by KeyIdentifier.
type KeyRegistry struct {
	keys []KeyPair
}

// NewKeyRegistry generates n HPKE keypairs by reading a seed for each from
// rand and deriving it with scheme.DeriveKeyPair. Passing crypto/rand.Reader
// gives fresh keys; passing a fixed-content reader gives a reproducible
// registry, which is what the deterministic-seed report scenario needs.
func NewKeyRegistry(n int, rand io.Reader) (*KeyRegistry, error) {
	scheme := hpke.KEM_X25519_HKDF_SHA256.Scheme()
	keys := make([]KeyPair, n)
	seed := make([]byte, scheme.SeedSize())
	for i := 0; i < n; i++ {
		if _, err := io.ReadFull(rand, seed); err != nil {
			return nil, fmt.Errorf("report: failed to read seed for HPKE keypair %d: %w", i, err)
		}
		pub, priv := scheme.DeriveKeyPair(seed)
		keys[i] = KeyPair{Public: pub, Private: priv}
	}
	return &KeyRegistry{keys: keys}, nil
}

// PublicKey returns the public key for the given key identifier.
func (r *KeyRegistry) PublicKey(id KeyIdentifier) (kem.PublicKey, error) {
	kp, err := r.keyPair(id)
	if err != nil {
		return nil, err
	}
	return kp.Public, nil
}

// PrivateKey returns the private key for the given key identifier.
func (r *KeyRegistry) PrivateKey(id KeyIdentifier) (kem.PrivateKey, error) {
	kp, err := r.keyPair(id)
	if err != nil {
		return nil, err
	}
	return kp.Private, nil
}

func (r *KeyRegistry) keyPair(id KeyIdentifier) (KeyPair, error) {
	if int(id) >= len(r.keys) {
		return KeyPair{}, fmt.Errorf("report: unknown key id %d", id)
	}
	return r.keys[id], nil
}
