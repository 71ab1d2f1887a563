// registry.go - Set-once registries for commitments and spent nullifiers.
//
// Both registries key field elements by their decimal string. Entries are
// never cleared once an operation commits; Remove exists solely so the Mixer
// can roll back a mark made earlier in the same failed operation.

package mixer

import "math/big"

// CommitmentRegistry records every commitment ever deposited.
type CommitmentRegistry struct {
	used map[string]bool
}

// NewCommitmentRegistry creates an empty registry.
func NewCommitmentRegistry() *CommitmentRegistry {
	return &CommitmentRegistry{used: make(map[string]bool)}
}

// Has reports whether the commitment has been deposited before.
func (r *CommitmentRegistry) Has(commitment *big.Int) bool {
	return r.used[commitment.String()]
}

// Add marks the commitment as deposited.
func (r *CommitmentRegistry) Add(commitment *big.Int) {
	r.used[commitment.String()] = true
}

// Remove undoes a mark made earlier in the same operation.
func (r *CommitmentRegistry) Remove(commitment *big.Int) {
	delete(r.used, commitment.String())
}

// Len returns the number of recorded commitments.
func (r *CommitmentRegistry) Len() int { return len(r.used) }

// NullifierRegistry records every nullifier hash ever spent.
type NullifierRegistry struct {
	used map[string]bool
}

// NewNullifierRegistry creates an empty registry.
func NewNullifierRegistry() *NullifierRegistry {
	return &NullifierRegistry{used: make(map[string]bool)}
}

// Has reports whether the nullifier hash has already authorized a withdrawal.
func (r *NullifierRegistry) Has(nullifierHash *big.Int) bool {
	return r.used[nullifierHash.String()]
}

// Add marks the nullifier hash as spent.
func (r *NullifierRegistry) Add(nullifierHash *big.Int) {
	r.used[nullifierHash.String()] = true
}

// Remove undoes a mark made earlier in the same operation.
func (r *NullifierRegistry) Remove(nullifierHash *big.Int) {
	delete(r.used, nullifierHash.String())
}

// Len returns the number of spent nullifiers.
func (r *NullifierRegistry) Len() int { return len(r.used) }
