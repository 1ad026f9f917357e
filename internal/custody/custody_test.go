package custody

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tiermigrate/internal/ir"
)

type key struct{ account, asset common.Address }

// memBalances is a map-backed Balances.
type memBalances map[key]*uint256.Int

func (m memBalances) Balance(account, asset common.Address) (*uint256.Int, error) {
	if v, ok := m[key{account, asset}]; ok {
		return new(uint256.Int).Set(v), nil
	}
	return new(uint256.Int), nil
}

func (m memBalances) SetBalance(account, asset common.Address, amount *uint256.Int) error {
	m[key{account, asset}] = new(uint256.Int).Set(amount)
	return nil
}

var (
	asset = common.HexToAddress("0xa55e7")
	alice = common.HexToAddress("0xa1")
	bob   = common.HexToAddress("0xb0")
)

func TestSendMovesBalance(t *testing.T) {
	st := memBalances{}
	require.NoError(t, Mint(st, asset, alice, uint256.NewInt(100)))

	require.NoError(t, Send(st, asset, alice, bob, uint256.NewInt(30)))

	a, _ := BalanceOf(st, alice, asset)
	b, _ := BalanceOf(st, bob, asset)
	assert.Equal(t, "70", a.Dec())
	assert.Equal(t, "30", b.Dec())
}

func TestSendInsufficient(t *testing.T) {
	st := memBalances{}
	require.NoError(t, Mint(st, asset, alice, uint256.NewInt(10)))

	err := Send(st, asset, alice, bob, uint256.NewInt(11))
	assert.ErrorIs(t, err, ir.ErrInsufficientBalance)

	a, _ := BalanceOf(st, alice, asset)
	assert.Equal(t, "10", a.Dec())
}

func TestSendNoops(t *testing.T) {
	st := memBalances{}
	assert.NoError(t, Send(st, asset, alice, bob, new(uint256.Int)))
	assert.NoError(t, Send(st, asset, alice, alice, uint256.NewInt(5)))
	assert.Empty(t, st)
}

func TestMintRejectsZero(t *testing.T) {
	assert.ErrorIs(t, Mint(memBalances{}, asset, alice, new(uint256.Int)), ir.ErrZeroAmount)
}
