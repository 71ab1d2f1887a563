// core.go - Deposit and withdrawal protocol for the shielded pool.
//
// The Mixer is the only component that mutates the tree, the registries and
// the vault. Each operation runs as a single atomic transition: it either
// fully commits or leaves no trace. External callers may race at the
// boundary; a mutex imposes the total order.

package mixer

import (
	"fmt"
	"math/big"
	"sync"
	"time"
)

// ProofVerifier checks a withdrawal proof against ordered public inputs.
// Implementations must be pure predicates with no side effects. The input
// order is fixed: [root, nullifierHash, recipient, denomination]; any
// mismatch with the proving side is a fatal integration bug.
type ProofVerifier interface {
	Verify(proof []byte, publicInputs []*big.Int) bool
}

// Vault holds the pooled value. Collect is called once per deposit with the
// denomination; Refund returns a collected value when the deposit fails after
// collection; Transfer pays one denomination out to a recipient and may
// reject, in which case the whole withdrawal is rolled back.
type Vault interface {
	Collect(value *big.Int) error
	Refund(value *big.Int) error
	Transfer(recipient, value *big.Int) error
}

// DepositEvent is the sole channel by which off-chain tooling learns the
// leaf set and positions needed to rebuild the tree. Field elements are
// decimal strings.
type DepositEvent struct {
	Commitment string `json:"commitment"`
	LeafIndex  uint64 `json:"leaf_index"`
	Timestamp  int64  `json:"timestamp"`
}

// Mixer orchestrates deposits and withdrawals over the commitment tree, the
// two registries and the vault.
type Mixer struct {
	mu           sync.Mutex
	tree         *IncrementalMerkleTree
	commitments  *CommitmentRegistry
	nullifiers   *NullifierRegistry
	denomination *big.Int
	verifier     ProofVerifier
	vault        Vault
	events       []DepositEvent
}

// NewMixer creates an empty pool of the given tree depth and denomination.
func NewMixer(depth int, denomination *big.Int, verifier ProofVerifier, vault Vault) (*Mixer, error) {
	if denomination == nil || denomination.Sign() <= 0 {
		return nil, &ProtocolError{KindInput, "denomination must be positive"}
	}
	tree, err := NewIncrementalMerkleTree(depth)
	if err != nil {
		return nil, err
	}
	return &Mixer{
		tree:         tree,
		commitments:  NewCommitmentRegistry(),
		nullifiers:   NewNullifierRegistry(),
		denomination: new(big.Int).Set(denomination),
		verifier:     verifier,
		vault:        vault,
	}, nil
}

// Denomination returns the fixed value accepted per deposit and withdrawal.
func (m *Mixer) Denomination() *big.Int { return new(big.Int).Set(m.denomination) }

// Root returns the latest tree root.
func (m *Mixer) Root() *big.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tree.Root()
}

// IsKnownRoot reports whether a root is still inside the accepted window.
func (m *Mixer) IsKnownRoot(root *big.Int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tree.IsKnownRoot(root)
}

// NextLeafIndex returns the position the next deposit will occupy.
func (m *Mixer) NextLeafIndex() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tree.NextIndex()
}

// Events returns a copy of all deposit events in insertion order.
func (m *Mixer) Events() []DepositEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]DepositEvent, len(m.events))
	copy(out, m.events)
	return out
}

// Deposit records a commitment in exchange for exactly one denomination of
// value and appends it to the tree. The returned event carries the inserted
// index and a timestamp for off-chain tree reconstruction. No value leaves
// the pool.
func (m *Mixer) Deposit(commitment, value *big.Int) (DepositEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if value == nil || value.Cmp(m.denomination) != 0 {
		return DepositEvent{}, ErrWrongAmount
	}
	if commitment == nil {
		return DepositEvent{}, &ProtocolError{KindInput, "commitment must be a field element"}
	}
	if m.commitments.Has(commitment) {
		return DepositEvent{}, ErrDuplicateCommitment
	}
	if m.tree.IsFull() {
		return DepositEvent{}, ErrTreeFull
	}
	if err := m.vault.Collect(value); err != nil {
		return DepositEvent{}, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	m.commitments.Add(commitment)
	index, err := m.tree.Insert(commitment)
	if err != nil {
		// Unreachable after the fullness check; keep the registry and the
		// vault consistent anyway.
		m.commitments.Remove(commitment)
		m.vault.Refund(value)
		return DepositEvent{}, err
	}
	ev := DepositEvent{
		Commitment: commitment.String(),
		LeafIndex:  index,
		Timestamp:  time.Now().Unix(),
	}
	m.events = append(m.events, ev)
	return ev, nil
}

// Withdraw pays one denomination to recipient if the proof demonstrates
// knowledge of the opening of some recorded commitment. The recipient passed
// here, not any prover-supplied value, is bound into the public inputs, so a
// proof generated for a different recipient fails verification.
func (m *Mixer) Withdraw(proof []byte, root, nullifierHash, recipient *big.Int) error {
	if nullifierHash == nil || recipient == nil {
		return &ProtocolError{KindInput, "nullifier hash and recipient must be field elements"}
	}
	m.mu.Lock()
	if m.nullifiers.Has(nullifierHash) {
		m.mu.Unlock()
		return ErrNullifierReused
	}
	if !m.tree.IsKnownRoot(root) {
		m.mu.Unlock()
		return ErrUnknownRoot
	}
	inputs := []*big.Int{root, nullifierHash, recipient, m.denomination}
	if !m.verifier.Verify(proof, inputs) {
		m.mu.Unlock()
		return ErrInvalidProof
	}
	// The nullifier is marked spent strictly before the transfer so that a
	// transfer which re-enters Withdraw with the same nullifier is rejected.
	m.nullifiers.Add(nullifierHash)
	m.mu.Unlock()

	if err := m.vault.Transfer(recipient, m.denomination); err != nil {
		m.mu.Lock()
		m.nullifiers.Remove(nullifierHash)
		m.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	return nil
}
