// Package field implements arithmetic over small prime fields used by the
// PRSS, Lagrange interpolation and sumcheck-verifier layers.
//
// Two moduli are supported out of the box: Fp31, a 5-bit prime used
// throughout the test vectors, and Fp32BitPrime (2^32 - 5), used for
// production-sized shares. Reduction and inversion are delegated to
// saferith so that the core modular operations go through the same
// constant-time big-integer primitive the rest of the corpus uses for
// field/group arithmetic, rather than a hand-rolled uint64 implementation.
package field

import (
	"fmt"
	"math/big"

	"github.com/cronokirby/saferith"
)

// Modulus describes a prime field GF(p) and caches the saferith modulus
// value used to reduce into it.
type Modulus struct {
	p       uint64
	bits    int
	nat     *saferith.Modulus
	natMod  *saferith.Nat
}

// NewModulus builds a Modulus for the given prime p. bits is the number of
// significant bits of p, used to size serialization.
func NewModulus(p uint64, bits int) *Modulus {
	n := new(saferith.Nat).SetUint64(p)
	return &Modulus{
		p:      p,
		bits:   bits,
		nat:    saferith.ModulusFromNat(n),
		natMod: n,
	}
}

var (
	// Fp31 is the 5-bit test prime used throughout the worked test vectors.
	Fp31 = NewModulus(31, 5)
	// Fp32BitPrime is 2^32 - 5, the production-sized field.
	Fp32BitPrime = NewModulus(1<<32-5, 32)
)

// Prime returns the modulus as a uint64.
func (m *Modulus) Prime() uint64 { return m.p }

// ByteLen is the number of bytes used to serialize an Element of this field:
// ceil(bits/8).
func (m *Modulus) ByteLen() int { return (m.bits + 7) / 8 }

// Zero returns the additive identity.
func (m *Modulus) Zero() Element { return Element{v: new(saferith.Nat).SetUint64(0), m: m} }

// One returns the multiplicative identity.
func (m *Modulus) One() Element { return Element{v: new(saferith.Nat).SetUint64(1), m: m} }

// TruncateFrom reduces an arbitrary uint64 into the field: v mod p.
func (m *Modulus) TruncateFrom(v uint64) Element {
	n := new(saferith.Nat).SetUint64(v)
	n.Mod(n, m.nat)
	return Element{v: n, m: m}
}

// FromRandomBytes16 maps a uniform 128-bit value (16 raw bytes, as produced
// by pkg/prss's MMO construction) into the field via reduction mod p. For
// p <= 2^32 this has bias <= 2^-96; callers targeting larger primes are
// responsible for documenting the resulting bias.
func (m *Modulus) FromRandomBytes16(b [16]byte) Element {
	n := new(saferith.Nat).SetBytes(b[:])
	n.Mod(n, m.nat)
	return Element{v: n, m: m}
}

// FromRandomU128 maps a uniform 128-bit integer (given as two big-endian
// uint64 words, hi then lo) into the field via reduction mod p. See
// FromRandomBytes16 for the bias discussion.
func (m *Modulus) FromRandomU128(hi, lo uint64) Element {
	var buf [16]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(hi >> (56 - 8*i))
		buf[8+i] = byte(lo >> (56 - 8*i))
	}
	return m.FromRandomBytes16(buf)
}

// Element is a value in [0, p).
type Element struct {
	v *saferith.Nat
	m *Modulus
}

// Modulus returns the field this element belongs to.
func (e Element) Modulus() *Modulus { return e.m }

func (e Element) checkSameField(o Element) {
	if e.m == nil || o.m == nil || e.m.p != o.m.p {
		panic(fmt.Sprintf("field: mismatched moduli %v vs %v", e.m, o.m))
	}
}

// Add returns e + o mod p.
func (e Element) Add(o Element) Element {
	e.checkSameField(o)
	z := new(saferith.Nat)
	z.ModAdd(e.v, o.v, e.m.nat)
	return Element{v: z, m: e.m}
}

// Sub returns e - o mod p.
func (e Element) Sub(o Element) Element {
	e.checkSameField(o)
	z := new(saferith.Nat)
	z.ModSub(e.v, o.v, e.m.nat)
	return Element{v: z, m: e.m}
}

// Mul returns e * o mod p.
func (e Element) Mul(o Element) Element {
	e.checkSameField(o)
	z := new(saferith.Nat)
	z.ModMul(e.v, o.v, e.m.nat)
	return Element{v: z, m: e.m}
}

// Neg returns -e mod p.
func (e Element) Neg() Element {
	z := new(saferith.Nat)
	z.ModNeg(e.v, e.m.nat)
	return Element{v: z, m: e.m}
}

// Inv returns the multiplicative inverse of e. Panics if e is zero; callers
// only ever invert nonzero field elements (e.g. Lagrange denominators over
// distinct points).
func (e Element) Inv() Element {
	if e.IsZero() {
		panic("field: inverse of zero")
	}
	z := new(saferith.Nat)
	z.ModInverse(e.v, e.m.nat)
	return Element{v: z, m: e.m}
}

// IsZero reports whether e is the additive identity.
func (e Element) IsZero() bool {
	return e.v.Big().Sign() == 0
}

// Equal reports whether e and o represent the same field element.
func (e Element) Equal(o Element) bool {
	if e.m.p != o.m.p {
		return false
	}
	return e.v.Big().Cmp(o.v.Big()) == 0
}

// Uint64 returns the element's value as a uint64. Safe because both
// supported moduli fit in 32 bits.
func (e Element) Uint64() uint64 {
	return e.v.Big().Uint64()
}

// Serialize writes the little-endian fixed-width encoding of e into a
// freshly allocated slice of length m.ByteLen().
func (e Element) Serialize() []byte {
	out := make([]byte, e.m.ByteLen())
	val := e.Uint64()
	for i := range out {
		out[i] = byte(val)
		val >>= 8
	}
	return out
}

// Deserialize parses a little-endian fixed-width encoding produced by
// Serialize back into an Element of the given field.
func (m *Modulus) Deserialize(b []byte) (Element, error) {
	if len(b) != m.ByteLen() {
		return Element{}, fmt.Errorf("field: expected %d bytes, got %d", m.ByteLen(), len(b))
	}
	var val uint64
	for i := len(b) - 1; i >= 0; i-- {
		val = (val << 8) | uint64(b[i])
	}
	if val >= m.p {
		return Element{}, fmt.Errorf("field: value %d out of range for modulus %d", val, m.p)
	}
	return m.TruncateFrom(val), nil
}

// BigInt returns the underlying value as a *big.Int, primarily for debugging
// and tests.
func (e Element) BigInt() *big.Int {
	return new(big.Int).Set(e.v.Big())
}

func (e Element) String() string {
	return e.v.Big().String()
}
