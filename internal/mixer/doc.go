// Package mixer implements a fixed-denomination shielded pool.
//
// Overview:
//   - Depositors commit a fixed denomination under a MiMC commitment and the
//     commitment is appended to an incremental Merkle accumulator
//   - Withdrawers prove, in zero knowledge, that they know the opening of some
//     recorded commitment, revealing only a nullifier hash that makes each
//     deposit spendable exactly once
//   - A bounded circular history of recent roots tolerates proofs generated
//     against a slightly stale tree
//
// Security Model:
//   - Uses MiMC (BW6-761 scalar field) for commitments, nullifier hashes and
//     all tree hashing; the same hash the withdraw circuit evaluates in-circuit
//   - Proof verification is delegated to a ProofVerifier capability; the
//     reference adapter verifies Groth16 proofs produced by gnark
//   - Nullifiers are marked spent before any value leaves the pool, so a
//     transfer that re-enters Withdraw observes the nullifier as consumed
//
// Usage:
//   - Use NewMixer, Deposit, Withdraw for the core protocol
//   - Use SaveToFile / LoadMixerFromFile for persistence
//   - Use NewServer for the REST operator surface
//
// References:
//   - Zerocash: Decentralized Anonymous Payments from Bitcoin (Ben-Sasson et al., 2014)
//
// WARNING: This package is for research and educational purposes. Use with caution in production environments.
package mixer
