package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/roach88/tiermigrate/internal/ir"
)

// Position reads the legacy position for (asset, holder). A missing row
// reads as an empty position.
func (t *Tx) Position(asset, holder common.Address) (ir.Position, error) {
	var (
		amount                                  string
		startDelay, cliffDelay, finishDelay, at int64
	)
	err := t.queryRow(`
		SELECT amount, start_delay, cliff_delay, finish_delay, created_at
		FROM legacy_positions WHERE asset = ? AND holder = ?
	`, marshalAddress(asset), marshalAddress(holder)).Scan(&amount, &startDelay, &cliffDelay, &finishDelay, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Position{Amount: new(uint256.Int)}, nil
	}
	if err != nil {
		return ir.Position{}, fmt.Errorf("read legacy position: %w", err)
	}

	v, err := unmarshalAmount(amount)
	if err != nil {
		return ir.Position{}, fmt.Errorf("read legacy position: %w", err)
	}
	return ir.Position{
		Amount:      v,
		StartDelay:  uint64(startDelay),
		CliffDelay:  uint64(cliffDelay),
		FinishDelay: uint64(finishDelay),
		CreatedAt:   uint64(at),
	}, nil
}

// PutPosition stores a legacy position. An empty position deletes the row.
func (t *Tx) PutPosition(asset, holder common.Address, p ir.Position) error {
	if p.IsEmpty() {
		_, err := t.exec(`DELETE FROM legacy_positions WHERE asset = ? AND holder = ?`,
			marshalAddress(asset), marshalAddress(holder))
		if err != nil {
			return fmt.Errorf("clear legacy position: %w", err)
		}
		return nil
	}

	_, err := t.exec(`
		INSERT INTO legacy_positions (asset, holder, amount, start_delay, cliff_delay, finish_delay, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(asset, holder) DO UPDATE SET
			amount = excluded.amount,
			start_delay = excluded.start_delay,
			cliff_delay = excluded.cliff_delay,
			finish_delay = excluded.finish_delay,
			created_at = excluded.created_at
	`,
		marshalAddress(asset),
		marshalAddress(holder),
		marshalAmount(p.Amount),
		int64(p.StartDelay),
		int64(p.CliffDelay),
		int64(p.FinishDelay),
		int64(p.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("write legacy position: %w", err)
	}
	return nil
}

// RedemptionApproved reads the holder's redemption approval flag.
func (t *Tx) RedemptionApproved(asset, holder common.Address) (bool, error) {
	var approved int64
	err := t.queryRow(`SELECT approved FROM legacy_approvals WHERE asset = ? AND holder = ?`,
		marshalAddress(asset), marshalAddress(holder)).Scan(&approved)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read redemption approval: %w", err)
	}
	return approved == 1, nil
}

// SetRedemptionApproved stores the holder's redemption approval flag.
func (t *Tx) SetRedemptionApproved(asset, holder common.Address, approved bool) error {
	flag := 0
	if approved {
		flag = 1
	}
	_, err := t.exec(`
		INSERT INTO legacy_approvals (asset, holder, approved) VALUES (?, ?, ?)
		ON CONFLICT(asset, holder) DO UPDATE SET approved = excluded.approved
	`, marshalAddress(asset), marshalAddress(holder), flag)
	if err != nil {
		return fmt.Errorf("write redemption approval: %w", err)
	}
	return nil
}

// PendingRedemption reads the amount redeemed on the holder's behalf that
// has not been issued yet.
func (t *Tx) PendingRedemption(asset, holder common.Address) (*uint256.Int, error) {
	var amount string
	err := t.queryRow(`SELECT amount FROM pending_redemptions WHERE asset = ? AND holder = ?`,
		marshalAddress(asset), marshalAddress(holder)).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return new(uint256.Int), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read pending redemption: %w", err)
	}
	return unmarshalAmount(amount)
}

// SetPendingRedemption stores the pending amount. Zero deletes the row.
func (t *Tx) SetPendingRedemption(asset, holder common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		_, err := t.exec(`DELETE FROM pending_redemptions WHERE asset = ? AND holder = ?`,
			marshalAddress(asset), marshalAddress(holder))
		if err != nil {
			return fmt.Errorf("clear pending redemption: %w", err)
		}
		return nil
	}

	_, err := t.exec(`
		INSERT INTO pending_redemptions (asset, holder, amount) VALUES (?, ?, ?)
		ON CONFLICT(asset, holder) DO UPDATE SET amount = excluded.amount
	`, marshalAddress(asset), marshalAddress(holder), marshalAmount(amount))
	if err != nil {
		return fmt.Errorf("write pending redemption: %w", err)
	}
	return nil
}
