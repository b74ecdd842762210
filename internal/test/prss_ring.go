package test

import (
	"fmt"

	"github.com/luxfi/ipa-helper/pkg/party"
	"github.com/luxfi/ipa-helper/pkg/prss"
)

// PRSSRing holds one correlated SharedRandomness per helper, wired the way
// the real protocol wires them: each of the three ring edges shares a
// single Diffie-Hellman secret between its two endpoints.
type PRSSRing map[party.Helper]*prss.SharedRandomness

// NewPRSSRing builds a full three-helper PRSS ring for the given context
// label, performing the X25519 handshake for each of the three edges.
func NewPRSSRing(ctx []byte) (PRSSRing, error) {
	edge := func(label string) (*prss.Generator, *prss.Generator, error) {
		a, err := prss.GenerateKeyPair()
		if err != nil {
			return nil, nil, fmt.Errorf("test: failed to generate keypair for edge %s: %w", label, err)
		}
		b, err := prss.GenerateKeyPair()
		if err != nil {
			return nil, nil, fmt.Errorf("test: failed to generate keypair for edge %s: %w", label, err)
		}
		ssA, err := a.DeriveSharedSecret(b.Public)
		if err != nil {
			return nil, nil, err
		}
		ssB, err := b.DeriveSharedSecret(a.Public)
		if err != nil {
			return nil, nil, err
		}
		genA, err := prss.NewFactory(ssA).NewGenerator(ctx)
		if err != nil {
			return nil, nil, err
		}
		genB, err := prss.NewFactory(ssB).NewGenerator(ctx)
		if err != nil {
			return nil, nil, err
		}
		return genA, genB, nil
	}

	oneRight, twoLeft, err := edge("ONE-TWO")
	if err != nil {
		return nil, err
	}
	twoRight, threeLeft, err := edge("TWO-THREE")
	if err != nil {
		return nil, err
	}
	threeRight, oneLeft, err := edge("THREE-ONE")
	if err != nil {
		return nil, err
	}

	return PRSSRing{
		party.ONE:   {Left: oneLeft, Right: oneRight},
		party.TWO:   {Left: twoLeft, Right: twoRight},
		party.THREE: {Left: threeLeft, Right: threeRight},
	}, nil
}
