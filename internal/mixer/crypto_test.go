package mixer

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPairDeterministic(t *testing.T) {
	a := big.NewInt(1)
	b := big.NewInt(2)
	h1 := HashPair(a, b)
	h2 := HashPair(a, b)
	assert.Equal(t, 0, h1.Cmp(h2))
	assert.NotEqual(t, 0, h1.Cmp(HashPair(b, a)), "node hash must be order-sensitive")
	assert.True(t, h1.Cmp(Modulus()) < 0)
	assert.NotEqual(t, 0, h1.Sign())
}

func TestHashReducesInputsCanonically(t *testing.T) {
	// x and x+p are the same field element and must hash identically.
	x := big.NewInt(12345)
	xp := new(big.Int).Add(x, Modulus())
	assert.Equal(t, 0, HashPair(x, big.NewInt(7)).Cmp(HashPair(xp, big.NewInt(7))))
	assert.Equal(t, 0, HashOne(x).Cmp(HashOne(xp)))
}

func TestZeroLeafStable(t *testing.T) {
	z := ZeroLeaf()
	assert.Equal(t, 0, z.Cmp(ZeroLeaf()))
	assert.NotEqual(t, 0, z.Sign())
	assert.True(t, z.Cmp(Modulus()) < 0)
}

func TestRandomFieldElement(t *testing.T) {
	a, err := RandomFieldElement()
	require.NoError(t, err)
	b, err := RandomFieldElement()
	require.NoError(t, err)
	assert.True(t, a.Cmp(Modulus()) < 0)
	assert.NotEqual(t, 0, a.Cmp(b))
}
