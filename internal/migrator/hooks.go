package migrator

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/roach88/tiermigrate/internal/ir"
	"github.com/roach88/tiermigrate/internal/store"
)

// OnTokensRedeemed records a governor redemption as credit for holder. It
// is accepted before finalization; the credit waits for the holder to
// migrate.
func (o *Orchestrator) OnTokensRedeemed(tx *store.Tx, caller, asset, holder common.Address, amount *uint256.Int) error {
	if caller != o.legacy.Address() {
		return ir.ErrNotLegacyVault.With("", "caller", ir.Addr(caller))
	}
	if asset != o.cfg.Asset {
		return ir.ErrInvalidTarget.With("unexpected asset", "asset", ir.Addr(asset))
	}
	credit, err := tx.PendingRedemption(asset, holder)
	if err != nil {
		return err
	}
	sum, err := ir.AddAmounts(credit, amount)
	if err != nil {
		return err
	}
	return tx.SetPendingRedemption(asset, holder, sum)
}

// CreateNewPool issues a withdrawn legacy position straight into the
// registry when the orchestrator is the vault's pool creator. Unlike the
// light path the template is anchored at now.
func (o *Orchestrator) CreateNewPool(tx *store.Tx, caller, asset, holder common.Address, pos ir.Position, now uint64) (ir.RecordID, error) {
	if caller != o.legacy.Address() {
		return 0, ir.ErrNotLegacyVault.With("", "caller", ir.Addr(caller))
	}
	r, err := o.Registry(tx)
	if err != nil {
		return 0, err
	}
	if asset != o.cfg.Asset {
		return 0, ir.ErrInvalidTarget.With("unexpected asset", "asset", ir.Addr(asset))
	}
	if pos.IsEmpty() {
		return 0, ir.ErrZeroAmount.With("empty legacy position", "holder", ir.Addr(holder))
	}

	id, err := r.Issue(tx, o.cfg.Address, holder, pos.Amount, now)
	if err != nil {
		return 0, err
	}
	tx.Emit(ir.EventMigrated, map[string]any{
		"holder":    holder,
		"amount":    pos.Amount,
		"record_id": id,
		"registry":  r.Address(),
	})
	return id, nil
}
