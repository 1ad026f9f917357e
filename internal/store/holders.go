package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/roach88/tiermigrate/internal/ir"
)

// HolderState returns the registry state of holder. Holders never seen
// before read as {0, Tier0}.
func (t *Tx) HolderState(holder common.Address) (ir.HolderState, error) {
	var (
		amount string
		tier   int64
	)
	err := t.queryRow(`SELECT amount, tier FROM holder_state WHERE holder = ?`,
		marshalAddress(holder)).Scan(&amount, &tier)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.ZeroHolderState(), nil
	}
	if err != nil {
		return ir.HolderState{}, fmt.Errorf("read holder state: %w", err)
	}

	v, err := unmarshalAmount(amount)
	if err != nil {
		return ir.HolderState{}, fmt.Errorf("read holder state: %w", err)
	}
	return ir.HolderState{Amount: v, Tier: ir.Tier(tier)}, nil
}

// PutHolderState stores the registry state of holder. Rows are kept even
// when the state returns to zero.
func (t *Tx) PutHolderState(holder common.Address, st ir.HolderState) error {
	_, err := t.exec(`
		INSERT INTO holder_state (holder, amount, tier) VALUES (?, ?, ?)
		ON CONFLICT(holder) DO UPDATE SET amount = excluded.amount, tier = excluded.tier
	`, marshalAddress(holder), marshalAmount(st.Amount), int64(st.Tier))
	if err != nil {
		return fmt.Errorf("write holder state: %w", err)
	}
	return nil
}

// HolderEntry pairs a holder with its registry state.
type HolderEntry struct {
	Holder common.Address
	State  ir.HolderState
}

// HolderStates lists every holder the registry has tracked, ordered by address.
func (t *Tx) HolderStates() ([]HolderEntry, error) {
	rows, err := t.query(`SELECT holder, amount, tier FROM holder_state ORDER BY holder ASC`)
	if err != nil {
		return nil, fmt.Errorf("list holder states: %w", err)
	}
	defer rows.Close()

	var out []HolderEntry
	for rows.Next() {
		var (
			holder, amount string
			tier           int64
		)
		if err := rows.Scan(&holder, &amount, &tier); err != nil {
			return nil, fmt.Errorf("scan holder state: %w", err)
		}
		addr, err := unmarshalAddress(holder)
		if err != nil {
			return nil, err
		}
		v, err := unmarshalAmount(amount)
		if err != nil {
			return nil, err
		}
		out = append(out, HolderEntry{Holder: addr, State: ir.HolderState{Amount: v, Tier: ir.Tier(tier)}})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate holder states: %w", err)
	}
	return out, nil
}
