package prss

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"fmt"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/hkdf"

	"github.com/luxfi/ipa-helper/pkg/field"
)

// Factory seeds an HKDF-SHA256 extractor from a shared X25519 secret (no
// salt) and expands a fresh AES-256 key for every context label it is
// asked for.
type Factory struct {
	prk []byte
}

// NewFactory extracts an HKDF pseudorandom key from a pairwise shared
// secret.
func NewFactory(sharedSecret [32]byte) *Factory {
	prk := hkdf.Extract(sha256.New, sharedSecret[:], nil)
	return &Factory{prk: prk}
}

// NewGenerator expands the factory's PRK into a 32-byte AES-256 key for the
// given context label (typically a protocol step path) and returns the
// resulting Generator. The label is first folded through BLAKE3 into a
// fixed-size tag before being used as the HKDF "info" parameter, so a
// generator's derivation cost does not grow with step-path length and
// distinct step paths that happen to share a prefix cannot collide in the
// HKDF info field.
func (f *Factory) NewGenerator(ctx []byte) (*Generator, error) {
	tag := blake3.Sum256(ctx)
	kdf := hkdf.Expand(sha256.New, f.prk, tag[:])
	key := make([]byte, 32)
	if _, err := kdf.Read(key); err != nil {
		return nil, fmt.Errorf("prss: failed to expand AES-256 key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("prss: failed to initialize AES-256 cipher: %w", err)
	}
	return &Generator{block: block}, nil
}

// Generator is a single AES-256 keyed Matyas-Meyer-Oseas PRF: Generate(idx)
// = AES_k(idx) XOR idx.
type Generator struct {
	block cipher.Block
}

// Generate evaluates the PRF at idx, a raw 16-byte little-endian encoding of
// a 128-bit index. The same (key, idx) pair always yields the same output,
// and two generators derived from the same pairwise shared secret and
// context label produce identical outputs for the same idx. This is the
// core correlation property the rest of the protocol relies on.
func (g *Generator) Generate(idx [16]byte) [16]byte {
	var ct [16]byte
	g.block.Encrypt(ct[:], idx[:])
	for i := range ct {
		ct[i] ^= idx[i]
	}
	return ct
}

// IndexFromUint64 encodes a uint64 protocol index as a little-endian 128-bit
// value suitable for Generator.Generate. Protocol steps are expected to
// assign indices monotonically; reuse of an index with a different semantic
// meaning is a protocol bug, not something this library can detect.
func IndexFromUint64(i uint64) [16]byte {
	var idx [16]byte
	for b := 0; b < 8; b++ {
		idx[b] = byte(i >> (8 * b))
	}
	return idx
}

// SharedRandomness pairs the two generators a helper holds: one shared with
// its left peer, one with its right peer.
type SharedRandomness struct {
	Left, Right *Generator
}

// Generate returns the raw (left, right) PRF outputs at idx.
func (s SharedRandomness) Generate(idx [16]byte) (left, right [16]byte) {
	return s.Left.Generate(idx), s.Right.Generate(idx)
}

// GenerateFields maps the raw outputs at idx into field elements via
// FromRandomBytes16.
func (s SharedRandomness) GenerateFields(mod *field.Modulus, idx [16]byte) (left, right field.Element) {
	l, r := s.Generate(idx)
	return mod.FromRandomBytes16(l), mod.FromRandomBytes16(r)
}

// GenerateReplicated returns a replicated share <F> for this helper at idx.
func (s SharedRandomness) GenerateReplicated(mod *field.Modulus, idx [16]byte) field.Replicated {
	l, r := s.GenerateFields(mod, idx)
	return field.NewReplicated(l, r)
}

// Zero returns left - right at idx; summed across all three helpers (each
// holding a SharedRandomness correlated pairwise with its neighbors) this is
// guaranteed to equal zero, by construction of the pairwise correlation.
func (s SharedRandomness) Zero(mod *field.Modulus, idx [16]byte) field.Element {
	l, r := s.GenerateFields(mod, idx)
	return l.Sub(r)
}
