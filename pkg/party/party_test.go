package party_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/luxfi/ipa-helper/pkg/party"
)

func TestRing(t *testing.T) {
	assert.Equal(t, party.THREE, party.ONE.Left())
	assert.Equal(t, party.TWO, party.ONE.Right())
	assert.Equal(t, party.ONE, party.TWO.Left())
	assert.Equal(t, party.THREE, party.TWO.Right())
	assert.Equal(t, party.TWO, party.THREE.Left())
	assert.Equal(t, party.ONE, party.THREE.Right())
}

func TestIndices(t *testing.T) {
	assert.Equal(t, 1, party.ONE.Index())
	assert.Equal(t, 2, party.TWO.Index())
	assert.Equal(t, 3, party.THREE.Index())
}

func TestAll(t *testing.T) {
	assert.Equal(t, []party.Helper{party.ONE, party.TWO, party.THREE}, party.All())
}

func TestIdentityInterface(t *testing.T) {
	var id party.Identity = party.ONE
	assert.Equal(t, 1, id.Index())
	assert.Equal(t, "ONE", id.String())
}
