// crypto.go - Field arithmetic and MiMC hashing for the mixer protocol.
//
// All values handled by the pool are elements of the BW6-761 scalar field. The
// two-to-one MiMC hash below must match the in-circuit std/hash/mimc gadget
// bit-for-bit: inputs are always written as canonical 48-byte field-element
// encodings, never as raw variable-length big-endian bytes.

package mixer

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bw6-761/fr"
	"github.com/consensys/gnark-crypto/ecc/bw6-761/fr/mimc"
)

// zeroLeafSeed derives the empty-leaf constant. It is domain-separated from
// any honestly generated commitment, which is always a MiMC image of two
// random field elements.
var zeroLeafSeed = []byte("mixer.merkle.zero.leaf.v1")

// Modulus returns the prime of the field all pool values live in.
func Modulus() *big.Int {
	return fr.Modulus()
}

// HashPair computes the two-to-one MiMC hash of two field elements.
// This is the node hash of the commitment tree.
func HashPair(left, right *big.Int) *big.Int {
	var l, r fr.Element
	l.SetBigInt(left)
	r.SetBigInt(right)
	lb := l.Bytes()
	rb := r.Bytes()
	h := mimc.NewMiMC()
	h.Write(lb[:])
	h.Write(rb[:])
	return new(big.Int).SetBytes(h.Sum(nil))
}

// HashOne computes the MiMC hash of a single field element.
// Used for nullifier hashes: nullifierHash = HashOne(nullifier).
func HashOne(x *big.Int) *big.Int {
	var e fr.Element
	e.SetBigInt(x)
	eb := e.Bytes()
	h := mimc.NewMiMC()
	h.Write(eb[:])
	return new(big.Int).SetBytes(h.Sum(nil))
}

// ZeroLeaf returns the fixed value of an empty leaf, ZeroValue[0].
func ZeroLeaf() *big.Int {
	var e fr.Element
	e.SetBytes(zeroLeafSeed)
	return HashOne(e.BigInt(new(big.Int)))
}

// RandomFieldElement samples a uniformly random field element using the
// gnark-crypto CSPRNG.
func RandomFieldElement() (*big.Int, error) {
	var e fr.Element
	if _, err := e.SetRandom(); err != nil {
		return nil, err
	}
	return e.BigInt(new(big.Int)), nil
}
