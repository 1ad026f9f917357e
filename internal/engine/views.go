package engine

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/roach88/tiermigrate/internal/ir"
	"github.com/roach88/tiermigrate/internal/store"
)

// HolderView is a holder's registry state.
type HolderView struct {
	Holder  common.Address
	Tier    ir.Tier
	Amount  *uint256.Int // accumulated issued amount
	Total   *uint256.Int // still held in registry-issued records
	Records []ir.Record  // registry-issued records owned, ascending id
}

// Holder reads holder's registry state.
func (e *Engine) Holder(ctx context.Context, holder common.Address) (HolderView, error) {
	hv := HolderView{Holder: holder}
	err := e.view(ctx, func(tx *store.Tx, _ uint64) error {
		st, err := tx.HolderState(holder)
		if err != nil {
			return err
		}
		hv.Tier, hv.Amount = st.Tier, st.Amount

		if hv.Total, err = e.registry.GetTotalAmount(tx, holder); err != nil {
			return err
		}
		n, err := e.registry.BalanceOf(tx, holder)
		if err != nil {
			return err
		}
		for i := uint64(0); i < n; i++ {
			id, err := e.registry.TokenOfOwnerByIndex(tx, holder, i)
			if err != nil {
				return err
			}
			rec, err := tx.Record(id)
			if err != nil {
				return err
			}
			hv.Records = append(hv.Records, rec)
		}
		return nil
	})
	return hv, err
}

// RecordView is a record with what its owner could withdraw now.
type RecordView struct {
	ir.Record
	Withdrawable *uint256.Int
}

// Records lists records in ascending id order. A zero owner lists all.
func (e *Engine) Records(ctx context.Context, owner common.Address) ([]RecordView, error) {
	var out []RecordView
	err := e.view(ctx, func(tx *store.Tx, now uint64) error {
		var recs []ir.Record
		if owner == (common.Address{}) {
			var err error
			if recs, err = tx.Records(); err != nil {
				return err
			}
		} else {
			ids, err := tx.RecordIDsByOwner(owner)
			if err != nil {
				return err
			}
			for _, id := range ids {
				rec, err := tx.Record(id)
				if err != nil {
					return err
				}
				recs = append(recs, rec)
			}
		}

		for _, rec := range recs {
			w, err := e.ledger.Releasable(tx, rec.ID, now)
			if err != nil {
				return err
			}
			out = append(out, RecordView{Record: rec, Withdrawable: w})
		}
		return nil
	})
	return out, err
}

// TokenOfOwnerByIndex returns holder's index-th registry-issued record.
func (e *Engine) TokenOfOwnerByIndex(ctx context.Context, holder common.Address, index uint64) (ir.RecordID, error) {
	var id ir.RecordID
	err := e.view(ctx, func(tx *store.Tx, _ uint64) error {
		var err error
		id, err = e.registry.TokenOfOwnerByIndex(tx, holder, index)
		return err
	})
	return id, err
}

// Withdrawable returns what record id releases at the engine's now.
func (e *Engine) Withdrawable(ctx context.Context, id ir.RecordID) (*uint256.Int, error) {
	var w *uint256.Int
	err := e.view(ctx, func(tx *store.Tx, now uint64) error {
		var err error
		w, err = e.registry.GetWithdrawableAmount(tx, id, now)
		return err
	})
	return w, err
}

// Authority reads the migration handoff state.
func (e *Engine) Authority(ctx context.Context) (ir.Authority, error) {
	var auth ir.Authority
	err := e.view(ctx, func(tx *store.Tx, _ uint64) error {
		var err error
		auth, err = e.orch.Authority(tx)
		return err
	})
	return auth, err
}

// Classify returns the tier of amount.
func (e *Engine) Classify(amount *uint256.Int) ir.Tier {
	return e.registry.TheTypeOf(amount)
}

// PositionView is a legacy position and its redemption consent.
type PositionView struct {
	ir.Position
	Approved bool
	Pending  *uint256.Int // redeemed to the orchestrator, not yet issued
}

// Position reads holder's legacy position.
func (e *Engine) Position(ctx context.Context, holder common.Address) (PositionView, error) {
	var pv PositionView
	err := e.view(ctx, func(tx *store.Tx, _ uint64) error {
		var err error
		if pv.Position, err = e.legacy.VaultMap(tx, e.deploy.Asset, holder); err != nil {
			return err
		}
		if pv.Approved, err = e.legacy.RedemptionApproved(tx, e.deploy.Asset, holder); err != nil {
			return err
		}
		pv.Pending, err = tx.PendingRedemption(e.deploy.Asset, holder)
		return err
	})
	return pv, err
}

// Balance reads account's custody balance of the deployment asset.
func (e *Engine) Balance(ctx context.Context, account common.Address) (*uint256.Int, error) {
	var bal *uint256.Int
	err := e.view(ctx, func(tx *store.Tx, _ uint64) error {
		var err error
		bal, err = tx.Balance(account, e.deploy.Asset)
		return err
	})
	return bal, err
}

// Events reads the audit log. An empty flowToken reads everything.
func (e *Engine) Events(ctx context.Context, flowToken string) ([]ir.Event, error) {
	var evs []ir.Event
	err := e.view(ctx, func(tx *store.Tx, _ uint64) error {
		var err error
		evs, err = tx.Events(flowToken)
		return err
	})
	return evs, err
}

// Snapshot aggregates the registry for metrics.
type Snapshot struct {
	HoldersByTier map[ir.Tier]int
	Tracked       *uint256.Int // sum of accumulated amounts
	Records       uint64
	Custody       *uint256.Int // all custody balances of the asset
	Finalized     bool
	LastSeq       int64
}

// Snapshot reads the aggregates in one transaction.
func (e *Engine) Snapshot(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{HoldersByTier: make(map[ir.Tier]int), Tracked: new(uint256.Int)}
	err := e.view(ctx, func(tx *store.Tx, _ uint64) error {
		holders, err := tx.HolderStates()
		if err != nil {
			return err
		}
		for _, h := range holders {
			if h.State.IsZero() {
				continue
			}
			snap.HoldersByTier[h.State.Tier]++
			if snap.Tracked, err = ir.AddAmounts(snap.Tracked, h.State.Amount); err != nil {
				return err
			}
		}
		if snap.Records, err = tx.RecordCount(); err != nil {
			return err
		}
		if snap.Custody, err = tx.AssetTotal(e.deploy.Asset); err != nil {
			return err
		}
		auth, ok, err := tx.Authority()
		if err != nil {
			return err
		}
		snap.Finalized = ok && auth.IsFinalized()
		snap.LastSeq, err = tx.LastSeq()
		return err
	})
	return snap, err
}
