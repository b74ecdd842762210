// Package polynomial implements canonical Lagrange denominators and
// evaluation tables over a prime field, used both to interpolate
// replicated shares and to drive the sumcheck verifier's recursive
// compression steps.
package polynomial

import (
	"fmt"

	"github.com/luxfi/ipa-helper/pkg/field"
)

// CanonicalDenominator computes D[i] = Prod_{j != i} (i - j)^-1 for
// i, j in {0, ..., n-1}, evaluated in the given field. The result is
// immutable and intended to be computed once per (field, n) pair and
// reused across LagrangeTable constructions.
func CanonicalDenominator(m *field.Modulus, n int) []field.Element {
	d := make([]field.Element, n)
	for i := 0; i < n; i++ {
		acc := m.One()
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			diff := m.TruncateFrom(uint64(i)).Sub(m.TruncateFrom(uint64(j)))
			acc = acc.Mul(diff)
		}
		d[i] = acc.Inv()
	}
	return d
}

// Table stores the N x M matrix T[i][k] = D[i] * Prod_{j != i} (x_k - j),
// built from a canonical denominator D of size N and M evaluation points.
type Table struct {
	n, m int
	mod  *field.Modulus
	t    [][]field.Element // t[i][k]
}

// NewTable builds a Lagrange Table from a canonical denominator d (size N)
// and evaluation points xs (size M).
func NewTable(mod *field.Modulus, d []field.Element, xs []field.Element) *Table {
	n := len(d)
	m := len(xs)
	t := make([][]field.Element, n)
	for i := 0; i < n; i++ {
		t[i] = make([]field.Element, m)
		for k := 0; k < m; k++ {
			acc := d[i]
			for j := 0; j < n; j++ {
				if i == j {
					continue
				}
				term := xs[k].Sub(mod.TruncateFrom(uint64(j)))
				acc = acc.Mul(term)
			}
			t[i][k] = acc
		}
	}
	return &Table{n: n, m: m, mod: mod, t: t}
}

// Eval computes, for each of the M evaluation points, Sum_i y[i] * T[i][k].
// len(y) must equal N.
func (tbl *Table) Eval(y []field.Element) []field.Element {
	if len(y) != tbl.n {
		panic(fmt.Sprintf("polynomial: expected %d values, got %d", tbl.n, len(y)))
	}
	out := make([]field.Element, tbl.m)
	for k := 0; k < tbl.m; k++ {
		acc := tbl.mod.Zero()
		for i := 0; i < tbl.n; i++ {
			acc = acc.Add(y[i].Mul(tbl.t[i][k]))
		}
		out[k] = acc
	}
	return out
}

// N returns the number of input points the table was built from.
func (tbl *Table) N() int { return tbl.n }

// M returns the number of evaluation points the table produces values for.
func (tbl *Table) M() int { return tbl.m }

// NewSingleEval is a convenience constructor for the common M=1 case: a
// canonical denominator over n points and evaluation at a single challenge r.
func NewSingleEval(mod *field.Modulus, n int, r field.Element) *Table {
	d := CanonicalDenominator(mod, n)
	return NewTable(mod, d, []field.Element{r})
}
