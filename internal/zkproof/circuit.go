package zkproof

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"
)

// WithdrawCircuit proves knowledge of (nullifier, secret) such that
// MiMC(nullifier, secret) is a leaf of the commitment tree with root Root,
// and that NullifierHash = MiMC(nullifier). Recipient and Denomination are
// proof-bound public inputs: a proof generated for one recipient cannot be
// replayed to pay another.
type WithdrawCircuit struct {
	// Public
	Root          frontend.Variable `gnark:",public"`
	NullifierHash frontend.Variable `gnark:",public"`
	Recipient     frontend.Variable `gnark:",public"`
	Denomination  frontend.Variable `gnark:",public"`

	// Private
	Nullifier    frontend.Variable
	Secret       frontend.Variable
	PathElements []frontend.Variable
	PathIndices  []frontend.Variable // one bit per level, 0 = leaf is the left child
}

// NewWithdrawCircuit allocates a circuit skeleton for a tree of the given depth.
func NewWithdrawCircuit(depth int) *WithdrawCircuit {
	return &WithdrawCircuit{
		PathElements: make([]frontend.Variable, depth),
		PathIndices:  make([]frontend.Variable, depth),
	}
}

func (c *WithdrawCircuit) Define(api frontend.API) error {
	h, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}

	// (1) Nullifier hash
	h.Write(c.Nullifier)
	api.AssertIsEqual(c.NullifierHash, h.Sum())

	// (2) Leaf commitment
	h.Reset()
	h.Write(c.Nullifier, c.Secret)
	hashed := h.Sum()

	// (3) Merkle inclusion: climb from the leaf to the root
	for i := range c.PathElements {
		bit := c.PathIndices[i]
		api.AssertIsBoolean(bit)
		left := api.Select(bit, c.PathElements[i], hashed)
		right := api.Select(bit, hashed, c.PathElements[i])
		h.Reset()
		h.Write(left, right)
		hashed = h.Sum()
	}
	api.AssertIsEqual(hashed, c.Root)

	// (4) Keep recipient and denomination in the constraint system so they
	// cannot be pruned from the statement.
	api.Mul(c.Recipient, c.Recipient)
	api.Mul(c.Denomination, c.Denomination)
	return nil
}
