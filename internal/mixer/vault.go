// vault.go - In-process value pool backing the mixer.
//
// AccountBook is the reference Vault: deposits accumulate in a single pool
// balance and withdrawals credit per-recipient balances. A ledger- or
// chain-backed vault plugs in behind the same interface.

package mixer

import (
	"errors"
	"math/big"
	"sync"
)

// AccountBook tracks the pooled balance and per-recipient payouts.
type AccountBook struct {
	mu       sync.Mutex
	pool     *big.Int
	balances map[string]*big.Int
}

// NewAccountBook creates an empty book.
func NewAccountBook() *AccountBook {
	return &AccountBook{
		pool:     new(big.Int),
		balances: make(map[string]*big.Int),
	}
}

// Collect adds a deposited value to the pool.
func (b *AccountBook) Collect(value *big.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pool.Add(b.pool, value)
	return nil
}

// Refund removes a previously collected value from the pool.
func (b *AccountBook) Refund(value *big.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pool.Cmp(value) < 0 {
		return errors.New("pool balance insufficient")
	}
	b.pool.Sub(b.pool, value)
	return nil
}

// Transfer moves value from the pool to the recipient's balance. It rejects
// the transfer when the pool cannot cover it.
func (b *AccountBook) Transfer(recipient, value *big.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pool.Cmp(value) < 0 {
		return errors.New("pool balance insufficient")
	}
	b.pool.Sub(b.pool, value)
	key := recipient.String()
	if b.balances[key] == nil {
		b.balances[key] = new(big.Int)
	}
	b.balances[key].Add(b.balances[key], value)
	return nil
}

// PoolBalance returns the undistributed pool balance.
func (b *AccountBook) PoolBalance() *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return new(big.Int).Set(b.pool)
}

// BalanceOf returns the total value paid out to a recipient.
func (b *AccountBook) BalanceOf(recipient *big.Int) *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if v := b.balances[recipient.String()]; v != nil {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}
