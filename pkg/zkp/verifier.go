// Package zkp implements the distributed zero-knowledge sumcheck proof
// verifier described in https://eprint.iacr.org/2023/909.pdf, as used by
// the malicious-security checkpoints of the attribution protocol.
//
// Both operations here are pure arithmetic over pkg/field and pkg/polynomial
// and cannot fail locally: a malicious-abort signal is the *reconstructed*
// zero_share (summed across all three helpers) being nonzero, which is the
// caller's responsibility to check after a three-way reveal.
package zkp

import (
	"fmt"

	"github.com/luxfi/ipa-helper/pkg/field"
	"github.com/luxfi/ipa-helper/pkg/polynomial"
)

// VerifyProof runs one round of sumcheck verification.
//
// zkp is interpreted as the evaluations of a degree-(P-1) polynomial g at
// points 0..P-1, where P = 2*lambda-1. It returns the new out_share (g
// evaluated at the verifier challenge r) and the zero_share that, summed
// across all three helpers after a reveal, must equal zero or the protocol
// aborts.
func VerifyProof(mod *field.Modulus, lambda int, outShare field.Element, zkp []field.Element, r field.Element) (newOutShare, zeroShare field.Element) {
	p := 2*lambda - 1
	if len(zkp) != p {
		panic(fmt.Sprintf("zkp: expected proof of length %d (2*lambda-1), got %d", p, len(zkp)))
	}

	table := polynomial.NewSingleEval(mod, p, r)
	gR := table.Eval(zkp)[0]

	sum := mod.Zero()
	for i := 0; i < lambda; i++ {
		sum = sum.Add(zkp[i])
	}

	zero := sum.Sub(outShare)
	return gR, zero
}

// RecurseUOrV compresses a witness (u or v) vector by evaluating each
// length-lambda chunk at the challenge r and repacking the results into new
// length-lambda chunks, zero-padding the final chunk as needed. An empty
// input produces an empty output.
func RecurseUOrV(mod *field.Modulus, lambda int, chunks [][]field.Element, r field.Element) [][]field.Element {
	if len(chunks) == 0 {
		return nil
	}

	table := polynomial.NewSingleEval(mod, lambda, r)

	values := make([]field.Element, 0, len(chunks))
	for _, c := range chunks {
		if len(c) != lambda {
			panic(fmt.Sprintf("zkp: expected chunk of length %d, got %d", lambda, len(c)))
		}
		values = append(values, table.Eval(c)[0])
	}

	return ChunkFlat(mod, values, lambda)
}

// ChunkFlat groups a flat slice of field elements into chunks of the given
// size, zero-padding the final chunk if it does not divide evenly.
func ChunkFlat(mod *field.Modulus, flat []field.Element, size int) [][]field.Element {
	if len(flat) == 0 {
		return nil
	}
	out := make([][]field.Element, 0, (len(flat)+size-1)/size)
	for start := 0; start < len(flat); start += size {
		end := start + size
		chunk := make([]field.Element, size)
		if end > len(flat) {
			end = len(flat)
		}
		copy(chunk, flat[start:end])
		for i := end - start; i < size; i++ {
			chunk[i] = mod.Zero()
		}
		out = append(out, chunk)
	}
	return out
}
