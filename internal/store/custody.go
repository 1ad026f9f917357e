package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Balance reads the asset balance of account. Unknown accounts hold zero.
func (t *Tx) Balance(account, asset common.Address) (*uint256.Int, error) {
	var amount string
	err := t.queryRow(`SELECT amount FROM custody_balances WHERE account = ? AND asset = ?`,
		marshalAddress(account), marshalAddress(asset)).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return new(uint256.Int), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read balance: %w", err)
	}
	return unmarshalAmount(amount)
}

// SetBalance stores the asset balance of account.
func (t *Tx) SetBalance(account, asset common.Address, amount *uint256.Int) error {
	_, err := t.exec(`
		INSERT INTO custody_balances (account, asset, amount) VALUES (?, ?, ?)
		ON CONFLICT(account, asset) DO UPDATE SET amount = excluded.amount
	`, marshalAddress(account), marshalAddress(asset), marshalAmount(amount))
	if err != nil {
		return fmt.Errorf("write balance: %w", err)
	}
	return nil
}

// AssetTotal sums every account's balance of asset.
func (t *Tx) AssetTotal(asset common.Address) (*uint256.Int, error) {
	rows, err := t.query(`SELECT amount FROM custody_balances WHERE asset = ?`, marshalAddress(asset))
	if err != nil {
		return nil, fmt.Errorf("sum balances: %w", err)
	}
	defer rows.Close()

	total := new(uint256.Int)
	for rows.Next() {
		var amount string
		if err := rows.Scan(&amount); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		v, err := unmarshalAmount(amount)
		if err != nil {
			return nil, err
		}
		if _, overflow := total.AddOverflow(total, v); overflow {
			return nil, fmt.Errorf("sum balances: overflow")
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate balances: %w", err)
	}
	return total, nil
}
