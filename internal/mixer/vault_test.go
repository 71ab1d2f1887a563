package mixer

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountBookCollectRefund(t *testing.T) {
	book := NewAccountBook()
	require.NoError(t, book.Collect(big.NewInt(100)))
	require.NoError(t, book.Collect(big.NewInt(100)))
	assert.Equal(t, 0, book.PoolBalance().Cmp(big.NewInt(200)))

	require.NoError(t, book.Refund(big.NewInt(100)))
	assert.Equal(t, 0, book.PoolBalance().Cmp(big.NewInt(100)))

	// A refund the pool cannot cover is rejected and leaves the pool intact.
	err := book.Refund(big.NewInt(150))
	assert.Error(t, err)
	assert.Equal(t, 0, book.PoolBalance().Cmp(big.NewInt(100)))
}

func TestAccountBookTransferInsufficient(t *testing.T) {
	book := NewAccountBook()
	require.NoError(t, book.Collect(big.NewInt(50)))

	recipient := big.NewInt(7)
	err := book.Transfer(recipient, big.NewInt(100))
	assert.Error(t, err)
	assert.Equal(t, 0, book.PoolBalance().Cmp(big.NewInt(50)))
	assert.Equal(t, 0, book.BalanceOf(recipient).Sign())

	require.NoError(t, book.Transfer(recipient, big.NewInt(50)))
	assert.Equal(t, 0, book.PoolBalance().Sign())
	assert.Equal(t, 0, book.BalanceOf(recipient).Cmp(big.NewInt(50)))
}

// spyVault records vault calls so deposit accounting can be asserted exactly.
type spyVault struct {
	*AccountBook
	collects int
	refunds  int
}

func (v *spyVault) Collect(value *big.Int) error {
	v.collects++
	return v.AccountBook.Collect(value)
}

func (v *spyVault) Refund(value *big.Int) error {
	v.refunds++
	return v.AccountBook.Refund(value)
}

func TestDepositCollectsExactlyOnce(t *testing.T) {
	vault := &spyVault{AccountBook: NewAccountBook()}
	m, err := NewMixer(4, big.NewInt(100), stubVerifier{}, vault)
	require.NoError(t, err)

	_, err = m.Deposit(big.NewInt(11), big.NewInt(100))
	require.NoError(t, err)
	assert.Equal(t, 1, vault.collects)
	assert.Equal(t, 0, vault.refunds)

	// Rejected deposits never touch the vault.
	_, err = m.Deposit(big.NewInt(11), big.NewInt(100))
	assert.ErrorIs(t, err, ErrDuplicateCommitment)
	_, err = m.Deposit(big.NewInt(12), big.NewInt(99))
	assert.ErrorIs(t, err, ErrWrongAmount)
	assert.Equal(t, 1, vault.collects)
	assert.Equal(t, 0, vault.refunds)
	assert.Equal(t, 0, vault.PoolBalance().Cmp(big.NewInt(100)))
}
