package field

import "fmt"

// Replicated is a single helper's two-out-of-three replicated share
// <x> = (left, right) of some value x: the three helpers' "left" values sum
// to x, and each consecutive pair (right of helper h, left of helper h+1)
// is identical.
type Replicated struct {
	Left, Right Element
}

// NewReplicated pairs up a left and right share. Both elements must belong
// to the same field.
func NewReplicated(left, right Element) Replicated {
	left.checkSameField(right)
	return Replicated{Left: left, Right: right}
}

// Reveal reconstructs the plain value from a full set of three replicated
// shares by summing each helper's Left value (equivalently, each helper's
// Right, offset by one).
func Reveal(shares [3]Replicated) Element {
	return shares[0].Left.Add(shares[1].Left).Add(shares[2].Left)
}

// Serialize writes Left followed by Right, each in their fixed-width
// little-endian encoding (e.g. 8 bytes total for a 32-bit-prime replicated
// share), matching the report wire format's trigger-value field.
func (r Replicated) Serialize() []byte {
	l := r.Left.Serialize()
	out := make([]byte, 0, 2*len(l))
	out = append(out, l...)
	out = append(out, r.Right.Serialize()...)
	return out
}

// DeserializeReplicated parses the encoding produced by Serialize.
func DeserializeReplicated(m *Modulus, b []byte) (Replicated, error) {
	n := m.ByteLen()
	if len(b) != 2*n {
		return Replicated{}, fmt.Errorf("field: expected %d bytes for replicated share, got %d", 2*n, len(b))
	}
	left, err := m.Deserialize(b[:n])
	if err != nil {
		return Replicated{}, fmt.Errorf("field: replicated left share: %w", err)
	}
	right, err := m.Deserialize(b[n:])
	if err != nil {
		return Replicated{}, fmt.Errorf("field: replicated right share: %w", err)
	}
	return Replicated{Left: left, Right: right}, nil
}
