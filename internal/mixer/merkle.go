// merkle.go - Append-only incremental Merkle accumulator over the BW6-761
// scalar field.
//
// The tree never stores leaves. Insertion walks the path from the new leaf to
// the root using one cached left-sibling per level plus the precomputed
// empty-subtree hashes, so each insert costs O(depth) hashes and the whole
// structure costs O(depth) memory. Recent roots are kept in a fixed circular
// window so withdrawal proofs generated against a slightly stale tree remain
// acceptable.

package mixer

import "math/big"

// RootHistorySize is the number of recent roots accepted by IsKnownRoot.
// A proof older than this many insertions must be regenerated.
const RootHistorySize = 30

// MaxTreeDepth bounds the supported depth; leaf indices fit in an uint32.
const MaxTreeDepth = 32

// IncrementalMerkleTree is a fixed-depth, append-only commitment accumulator.
// It is not safe for concurrent use; the Mixer serializes all access.
type IncrementalMerkleTree struct {
	depth          int
	zeros          []*big.Int // zeros[k] is the hash of an empty subtree of height k, 0..depth
	cachedSubtrees []*big.Int // last left sibling written at each level, 0..depth-1
	roots          [RootHistorySize]*big.Int
	currentRoot    int // index of the latest root inside roots
	nextIndex      uint64
}

// NewIncrementalMerkleTree builds an empty tree of the given depth,
// precomputing the empty-subtree table and seeding the root history with the
// empty root.
func NewIncrementalMerkleTree(depth int) (*IncrementalMerkleTree, error) {
	if depth < 1 || depth >= MaxTreeDepth {
		return nil, ErrInvalidDepth
	}
	zeros := make([]*big.Int, depth+1)
	zeros[0] = ZeroLeaf()
	for k := 1; k <= depth; k++ {
		zeros[k] = HashPair(zeros[k-1], zeros[k-1])
	}
	cached := make([]*big.Int, depth)
	for level := range cached {
		cached[level] = new(big.Int).Set(zeros[level])
	}
	t := &IncrementalMerkleTree{
		depth:          depth,
		zeros:          zeros,
		cachedSubtrees: cached,
	}
	t.roots[0] = new(big.Int).Set(zeros[depth])
	return t, nil
}

// Depth returns the fixed depth of the tree.
func (t *IncrementalMerkleTree) Depth() int { return t.depth }

// NextIndex returns the index the next inserted leaf will occupy.
func (t *IncrementalMerkleTree) NextIndex() uint64 { return t.nextIndex }

// IsFull reports whether the tree holds 2^depth leaves.
func (t *IncrementalMerkleTree) IsFull() bool {
	return t.nextIndex == uint64(1)<<uint(t.depth)
}

// Insert appends a leaf and returns its index. The new root is recorded in
// the circular history.
func (t *IncrementalMerkleTree) Insert(leaf *big.Int) (uint64, error) {
	if t.IsFull() {
		return 0, ErrTreeFull
	}
	index := t.nextIndex
	current := new(big.Int).Set(leaf)
	pos := index
	for level := 0; level < t.depth; level++ {
		if pos%2 == 0 {
			// Left child: the right sibling is still empty, and this node
			// becomes the cached left sibling for the next insert at this level.
			t.cachedSubtrees[level] = current
			current = HashPair(current, t.zeros[level])
		} else {
			current = HashPair(t.cachedSubtrees[level], current)
		}
		pos /= 2
	}
	t.currentRoot = (t.currentRoot + 1) % RootHistorySize
	t.roots[t.currentRoot] = current
	t.nextIndex++
	return index, nil
}

// Zeros returns the hash of an empty subtree of the given height.
func (t *IncrementalMerkleTree) Zeros(level int) (*big.Int, error) {
	if level < 0 || level > t.depth {
		return nil, ErrLevelOutOfBounds
	}
	return new(big.Int).Set(t.zeros[level]), nil
}

// Root returns the latest root.
func (t *IncrementalMerkleTree) Root() *big.Int {
	return new(big.Int).Set(t.roots[t.currentRoot])
}

// IsKnownRoot reports whether the given root is inside the accepted history
// window. The all-zero root is never accepted: it is not a possible root of a
// non-empty tree and would otherwise match uninitialized history slots.
func (t *IncrementalMerkleTree) IsKnownRoot(root *big.Int) bool {
	if root == nil || root.Sign() == 0 {
		return false
	}
	i := t.currentRoot
	for n := 0; n < RootHistorySize; n++ {
		if t.roots[i] != nil && t.roots[i].Cmp(root) == 0 {
			return true
		}
		if i == 0 {
			i = RootHistorySize - 1
		} else {
			i--
		}
	}
	return false
}

// restoreTree rebuilds a tree from a persisted snapshot. The zero table is
// recomputed; cached subtrees, root window and next index are taken verbatim.
func restoreTree(depth int, nextIndex uint64, cached []*big.Int, roots []*big.Int, currentRoot int) (*IncrementalMerkleTree, error) {
	t, err := NewIncrementalMerkleTree(depth)
	if err != nil {
		return nil, err
	}
	if len(cached) != depth || len(roots) != RootHistorySize ||
		currentRoot < 0 || currentRoot >= RootHistorySize ||
		nextIndex > uint64(1)<<uint(depth) {
		return nil, &ProtocolError{KindInput, "corrupt tree snapshot"}
	}
	for level, v := range cached {
		if v != nil {
			t.cachedSubtrees[level] = new(big.Int).Set(v)
		}
	}
	for i, v := range roots {
		if v != nil {
			t.roots[i] = new(big.Int).Set(v)
		} else if i != 0 {
			t.roots[i] = nil
		}
	}
	t.currentRoot = currentRoot
	t.nextIndex = nextIndex
	return t, nil
}
