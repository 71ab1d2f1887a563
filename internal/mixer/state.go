// state.go - JSON persistence for the full pool state.
//
// The snapshot covers the whole persisted layout: both used-sets, the root
// history and its pointer, the next leaf index, the cached subtrees, the
// immutable depth and denomination, and the deposit event log. Field
// elements are stored as decimal strings; unset history slots as "".

package mixer

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
)

type stateSnapshot struct {
	Depth            int            `json:"depth"`
	Denomination     string         `json:"denomination"`
	NextLeafIndex    uint64         `json:"next_leaf_index"`
	CachedSubtrees   []string       `json:"cached_subtrees"`
	RootHistory      []string       `json:"root_history"`
	CurrentRootIndex int            `json:"current_root_index"`
	Commitments      []string       `json:"commitments"`
	Nullifiers       []string       `json:"nullifiers"`
	Events           []DepositEvent `json:"events"`
}

// SaveToFile writes the complete pool state to a JSON file, overwriting any
// existing file.
func (m *Mixer) SaveToFile(path string) error {
	m.mu.Lock()
	snap := m.snapshotLocked()
	m.mu.Unlock()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

func (m *Mixer) snapshotLocked() *stateSnapshot {
	snap := &stateSnapshot{
		Depth:            m.tree.depth,
		Denomination:     m.denomination.String(),
		NextLeafIndex:    m.tree.nextIndex,
		CachedSubtrees:   make([]string, m.tree.depth),
		RootHistory:      make([]string, RootHistorySize),
		CurrentRootIndex: m.tree.currentRoot,
		Commitments:      make([]string, 0, m.commitments.Len()),
		Nullifiers:       make([]string, 0, m.nullifiers.Len()),
		Events:           make([]DepositEvent, len(m.events)),
	}
	for level, v := range m.tree.cachedSubtrees {
		snap.CachedSubtrees[level] = v.String()
	}
	for i, v := range m.tree.roots {
		if v != nil {
			snap.RootHistory[i] = v.String()
		}
	}
	for cm := range m.commitments.used {
		snap.Commitments = append(snap.Commitments, cm)
	}
	for nh := range m.nullifiers.used {
		snap.Nullifiers = append(snap.Nullifiers, nh)
	}
	copy(snap.Events, m.events)
	return snap
}

// LoadMixerFromFile restores a pool from a JSON snapshot, wiring in the
// caller's verifier and vault. Returns an error if the file is invalid.
func LoadMixerFromFile(path string, verifier ProofVerifier, vault Vault) (*Mixer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var snap stateSnapshot
	if err := json.NewDecoder(f).Decode(&snap); err != nil {
		return nil, err
	}
	return mixerFromSnapshot(&snap, verifier, vault)
}

func mixerFromSnapshot(snap *stateSnapshot, verifier ProofVerifier, vault Vault) (*Mixer, error) {
	denomination, err := parseFieldString(snap.Denomination)
	if err != nil {
		return nil, fmt.Errorf("invalid denomination: %w", err)
	}
	cached := make([]*big.Int, len(snap.CachedSubtrees))
	for level, s := range snap.CachedSubtrees {
		if cached[level], err = parseFieldString(s); err != nil {
			return nil, fmt.Errorf("invalid cached subtree at level %d: %w", level, err)
		}
	}
	roots := make([]*big.Int, len(snap.RootHistory))
	for i, s := range snap.RootHistory {
		if s == "" {
			continue
		}
		if roots[i], err = parseFieldString(s); err != nil {
			return nil, fmt.Errorf("invalid root at slot %d: %w", i, err)
		}
	}
	tree, err := restoreTree(snap.Depth, snap.NextLeafIndex, cached, roots, snap.CurrentRootIndex)
	if err != nil {
		return nil, err
	}
	m := &Mixer{
		tree:         tree,
		commitments:  NewCommitmentRegistry(),
		nullifiers:   NewNullifierRegistry(),
		denomination: denomination,
		verifier:     verifier,
		vault:        vault,
		events:       append([]DepositEvent(nil), snap.Events...),
	}
	for _, cm := range snap.Commitments {
		v, err := parseFieldString(cm)
		if err != nil {
			return nil, fmt.Errorf("invalid commitment: %w", err)
		}
		m.commitments.Add(v)
	}
	for _, nh := range snap.Nullifiers {
		v, err := parseFieldString(nh)
		if err != nil {
			return nil, fmt.Errorf("invalid nullifier: %w", err)
		}
		m.nullifiers.Add(v)
	}
	return m, nil
}

func parseFieldString(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("not a decimal integer: %q", s)
	}
	return v, nil
}
