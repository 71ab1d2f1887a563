// note.go - Deposit note generation for the mixer protocol.
//
// A note is the off-chain secret material behind one deposit: the nullifier
// and secret never touch the pool's persisted state; only the commitment is
// deposited and only the nullifier hash is revealed at withdrawal.

package zkproof

import (
	"math/big"

	"mixer/internal/mixer"
)

// DepositNote holds one deposit's secret opening and its public derivatives.
type DepositNote struct {
	Nullifier     *big.Int
	Secret        *big.Int
	Commitment    *big.Int // MiMC(nullifier, secret), the deposited leaf
	NullifierHash *big.Int // MiMC(nullifier), revealed at withdrawal
}

// NewDepositNote samples a fresh (nullifier, secret) pair and derives the
// commitment and nullifier hash.
func NewDepositNote() (*DepositNote, error) {
	nullifier, err := mixer.RandomFieldElement()
	if err != nil {
		return nil, err
	}
	secret, err := mixer.RandomFieldElement()
	if err != nil {
		return nil, err
	}
	return &DepositNote{
		Nullifier:     nullifier,
		Secret:        secret,
		Commitment:    mixer.HashPair(nullifier, secret),
		NullifierHash: mixer.HashOne(nullifier),
	}, nil
}
