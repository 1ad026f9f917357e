// Package light converts legacy withdrawals into registry records inside
// the legacy vault's own Withdraw call. Installed as the vault's pool
// creator, it skips the orchestrator's redemption round trip and credits
// the time the legacy position already served.
package light

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/roach88/tiermigrate/internal/ir"
	"github.com/roach88/tiermigrate/internal/migrator"
	"github.com/roach88/tiermigrate/internal/store"
)

// Config describes the interceptor deployment.
type Config struct {
	Address common.Address
	Asset   common.Address
	Name    string
	Version string
}

// Interceptor is a legacy.PoolCreator that issues through the registry the
// orchestrator was finalized to.
type Interceptor struct {
	cfg         Config
	legacyVault common.Address
	orch        *migrator.Orchestrator
}

// New creates an interceptor accepting calls from legacyVault only.
func New(cfg Config, legacyVault common.Address, orch *migrator.Orchestrator) *Interceptor {
	return &Interceptor{cfg: cfg, legacyVault: legacyVault, orch: orch}
}

// Address is the interceptor's address and custody account.
func (i *Interceptor) Address() common.Address { return i.cfg.Address }

// Name is the deployment name.
func (i *Interceptor) Name() string { return i.cfg.Name }

// Version is the deployment version.
func (i *Interceptor) Version() string { return i.cfg.Version }

// CreateNewPool issues pos to holder. The tier template is anchored at the
// position's creation time, so a record that would unlock offset seconds
// after issuance unlocks at now + offset - elapsed instead.
func (i *Interceptor) CreateNewPool(tx *store.Tx, caller, asset, holder common.Address, pos ir.Position, now uint64) (ir.RecordID, error) {
	if caller != i.legacyVault {
		return 0, ir.ErrNotLegacyVault.With("", "caller", ir.Addr(caller))
	}
	r, err := i.orch.Registry(tx)
	if err != nil {
		return 0, err
	}
	if asset != i.cfg.Asset {
		return 0, ir.ErrInvalidTarget.With("unexpected asset", "asset", ir.Addr(asset))
	}
	if pos.IsEmpty() {
		return 0, ir.ErrZeroAmount.With("empty legacy position", "holder", ir.Addr(holder))
	}

	anchor := min(pos.CreatedAt, now)
	id, err := r.IssueAnchored(tx, i.cfg.Address, holder, pos.Amount, anchor, now)
	if err != nil {
		return 0, err
	}
	tx.Emit(ir.EventMigrated, map[string]any{
		"holder":    holder,
		"amount":    pos.Amount,
		"record_id": id,
		"registry":  r.Address(),
		"via":       i.cfg.Name,
		"elapsed":   now - anchor,
	})
	return id, nil
}
