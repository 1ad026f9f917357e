// Package custody tracks asset balances per account. It is the backing
// every amount in the system moves through: holder wallets, the legacy
// vault, the orchestrator and the ledger vault are all accounts here.
package custody

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/roach88/tiermigrate/internal/ir"
)

// Balances is the state custody reads and writes. *store.Tx satisfies it.
type Balances interface {
	Balance(account, asset common.Address) (*uint256.Int, error)
	SetBalance(account, asset common.Address, amount *uint256.Int) error
}

// BalanceOf returns the asset balance of account.
func BalanceOf(st Balances, account, asset common.Address) (*uint256.Int, error) {
	return st.Balance(account, asset)
}

// Send moves amount of asset from one account to another. A zero amount
// or a self-transfer is a no-op.
func Send(st Balances, asset, from, to common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() || from == to {
		return nil
	}

	fromBal, err := st.Balance(from, asset)
	if err != nil {
		return err
	}
	if fromBal.Lt(amount) {
		return ir.ErrInsufficientBalance.With("",
			"account", ir.Addr(from),
			"have", fromBal.Dec(),
			"need", amount.Dec(),
		)
	}
	toBal, err := st.Balance(to, asset)
	if err != nil {
		return err
	}
	newTo, err := ir.AddAmounts(toBal, amount)
	if err != nil {
		return err
	}

	if err := st.SetBalance(from, asset, new(uint256.Int).Sub(fromBal, amount)); err != nil {
		return err
	}
	return st.SetBalance(to, asset, newTo)
}

// Mint credits new units of asset to account. Used to fund wallets.
func Mint(st Balances, asset, to common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return ir.ErrZeroAmount.With("nothing to mint")
	}
	bal, err := st.Balance(to, asset)
	if err != nil {
		return err
	}
	sum, err := ir.AddAmounts(bal, amount)
	if err != nil {
		return err
	}
	return st.SetBalance(to, asset, sum)
}
