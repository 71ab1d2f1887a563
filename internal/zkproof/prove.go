// prove.go - Off-chain tree reconstruction and Groth16 proof generation.
//
// The prover never queries the pool for leaves: it rebuilds the tree from the
// deposit event log by layered hashing with the same MiMC and the same
// zero-subtree table the pool uses. A divergence in either silently produces
// unverifiable proofs, which is why the hash helpers are shared with the
// mixer package rather than reimplemented here.

package zkproof

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"

	"mixer/internal/mixer"
)

// WithdrawProof bundles a serialized Groth16 proof with the public values it
// was generated against.
type WithdrawProof struct {
	Proof         []byte
	Root          *big.Int
	NullifierHash *big.Int
}

// zeroTable precomputes the empty-subtree hashes for levels 0..depth.
func zeroTable(depth int) []*big.Int {
	zeros := make([]*big.Int, depth+1)
	zeros[0] = mixer.ZeroLeaf()
	for k := 1; k <= depth; k++ {
		zeros[k] = mixer.HashPair(zeros[k-1], zeros[k-1])
	}
	return zeros
}

// ComputeRoot derives the root of a depth-D tree holding the given leaves in
// order, with all remaining positions empty. This is the reference layered
// hashing the incremental accumulator must agree with.
func ComputeRoot(leaves []*big.Int, depth int) (*big.Int, error) {
	if depth < 1 || depth >= mixer.MaxTreeDepth {
		return nil, errors.New("invalid tree depth")
	}
	if uint64(len(leaves)) > uint64(1)<<uint(depth) {
		return nil, errors.New("leaf set exceeds tree capacity")
	}
	zeros := zeroTable(depth)
	layer := make([]*big.Int, len(leaves))
	copy(layer, leaves)
	for level := 0; level < depth; level++ {
		if len(layer)%2 != 0 {
			layer = append(layer, zeros[level])
		}
		next := make([]*big.Int, len(layer)/2)
		for i := 0; i < len(layer); i += 2 {
			next[i/2] = mixer.HashPair(layer[i], layer[i+1])
		}
		if len(next) == 0 {
			next = []*big.Int{zeros[level+1]}
		}
		layer = next
	}
	return layer[0], nil
}

// MerklePath computes the inclusion path for the leaf at index. It returns
// the sibling at each level, the left/right bit per level (0 = the leaf-side
// node is the left child) and the resulting root.
func MerklePath(leaves []*big.Int, index uint64, depth int) (elements []*big.Int, indices []int, root *big.Int, err error) {
	if index >= uint64(len(leaves)) {
		return nil, nil, nil, errors.New("leaf index out of range")
	}
	if uint64(len(leaves)) > uint64(1)<<uint(depth) {
		return nil, nil, nil, errors.New("leaf set exceeds tree capacity")
	}
	zeros := zeroTable(depth)
	elements = make([]*big.Int, depth)
	indices = make([]int, depth)

	layer := make([]*big.Int, len(leaves))
	copy(layer, leaves)
	pos := index
	for level := 0; level < depth; level++ {
		if len(layer)%2 != 0 {
			layer = append(layer, zeros[level])
		}
		sib := pos ^ 1
		if sib < uint64(len(layer)) {
			elements[level] = layer[sib]
		} else {
			elements[level] = zeros[level]
		}
		indices[level] = int(pos % 2)
		next := make([]*big.Int, len(layer)/2)
		for i := 0; i < len(layer); i += 2 {
			next[i/2] = mixer.HashPair(layer[i], layer[i+1])
		}
		if len(next) == 0 {
			next = []*big.Int{zeros[level+1]}
		}
		layer = next
		pos /= 2
	}
	return elements, indices, layer[0], nil
}

// LeavesFromEvents orders the deposit event log by leaf index and returns the
// contiguous leaf set. Gaps or duplicates indicate a corrupt or incomplete
// event log.
func LeavesFromEvents(events []mixer.DepositEvent) ([]*big.Int, error) {
	sorted := append([]mixer.DepositEvent(nil), events...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LeafIndex < sorted[j].LeafIndex })
	leaves := make([]*big.Int, 0, len(sorted))
	for i, ev := range sorted {
		if ev.LeafIndex != uint64(i) {
			return nil, fmt.Errorf("event log is not contiguous at index %d", i)
		}
		leaf, ok := new(big.Int).SetString(ev.Commitment, 10)
		if !ok {
			return nil, fmt.Errorf("invalid commitment in event %d", i)
		}
		leaves = append(leaves, leaf)
	}
	return leaves, nil
}

// Prove generates a withdrawal proof for the note deposited at leafIndex,
// bound to the given recipient and denomination. The leaf set must be the
// full ordered set observed from deposit events.
func Prove(
	note *DepositNote, recipient, denomination *big.Int,
	leaves []*big.Int, leafIndex uint64, depth int,
	ccs constraint.ConstraintSystem, pk groth16.ProvingKey,
) (*WithdrawProof, error) {
	if leafIndex >= uint64(len(leaves)) || leaves[leafIndex].Cmp(note.Commitment) != 0 {
		return nil, errors.New("note commitment not found at the claimed leaf index")
	}
	elements, indices, root, err := MerklePath(leaves, leafIndex, depth)
	if err != nil {
		return nil, err
	}

	assignment := NewWithdrawCircuit(depth)
	assignment.Root = root
	assignment.NullifierHash = note.NullifierHash
	assignment.Recipient = recipient
	assignment.Denomination = denomination
	assignment.Nullifier = note.Nullifier
	assignment.Secret = note.Secret
	for i := 0; i < depth; i++ {
		assignment.PathElements[i] = elements[i]
		assignment.PathIndices[i] = indices[i]
	}

	w, err := frontend.NewWitness(assignment, ecc.BW6_761.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("witness creation failed: %w", err)
	}
	proof, err := groth16.Prove(ccs, pk, w)
	if err != nil {
		return nil, fmt.Errorf("proof generation failed: %w", err)
	}
	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("proof marshaling failed: %w", err)
	}
	return &WithdrawProof{
		Proof:         buf.Bytes(),
		Root:          root,
		NullifierHash: new(big.Int).Set(note.NullifierHash),
	}, nil
}
