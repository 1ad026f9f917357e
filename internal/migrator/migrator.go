// Package migrator moves holders out of the legacy vault into the tier
// registry.
//
// The orchestrator starts Pending under a controller. Finalize hands it to
// a registry exactly once; from then on any holder may migrate their own
// legacy position. The orchestrator's custody account receives redeemed
// funds and pays them into the registry on the holder's behalf.
package migrator

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/roach88/tiermigrate/internal/ir"
	"github.com/roach88/tiermigrate/internal/legacy"
	"github.com/roach88/tiermigrate/internal/registry"
	"github.com/roach88/tiermigrate/internal/store"
)

// ZeroBalancePolicy decides what migrating an empty position does.
type ZeroBalancePolicy string

const (
	// ZeroNoop reports issued=false and changes nothing.
	ZeroNoop ZeroBalancePolicy = "noop"
	// ZeroFail rejects the call with ErrZeroAmount.
	ZeroFail ZeroBalancePolicy = "fail"
)

// ParseZeroBalancePolicy validates a policy name. Empty means noop.
func ParseZeroBalancePolicy(s string) (ZeroBalancePolicy, error) {
	switch ZeroBalancePolicy(s) {
	case "", ZeroNoop:
		return ZeroNoop, nil
	case ZeroFail:
		return ZeroFail, nil
	}
	return "", ir.ErrInvalidConfig.With(fmt.Sprintf("unknown zero balance policy %q", s))
}

// Config describes the orchestrator deployment.
type Config struct {
	Address     common.Address
	Asset       common.Address
	Controller  common.Address
	ZeroBalance ZeroBalancePolicy
}

// Orchestrator drives the migration.
type Orchestrator struct {
	cfg        Config
	legacy     *legacy.Vault
	registries map[common.Address]*registry.Registry
}

// New creates an orchestrator over the legacy vault.
func New(cfg Config, v *legacy.Vault) *Orchestrator {
	if cfg.ZeroBalance == "" {
		cfg.ZeroBalance = ZeroNoop
	}
	return &Orchestrator{
		cfg:        cfg,
		legacy:     v,
		registries: make(map[common.Address]*registry.Registry),
	}
}

// Address is the orchestrator's address and custody account.
func (o *Orchestrator) Address() common.Address {
	return o.cfg.Address
}

// AddRegistry makes r a valid Finalize target.
func (o *Orchestrator) AddRegistry(r *registry.Registry) {
	o.registries[r.Address()] = r
}

// Init writes the Pending authority if the store has none. It is a no-op
// on an initialized store.
func (o *Orchestrator) Init(tx *store.Tx) error {
	_, ok, err := tx.Authority()
	if err != nil || ok {
		return err
	}
	return tx.PutAuthority(ir.Authority{
		Asset: o.cfg.Asset,
		State: ir.Pending{Controller: o.cfg.Controller},
	})
}

// Authority returns the stored handoff state.
func (o *Orchestrator) Authority(tx *store.Tx) (ir.Authority, error) {
	auth, ok, err := tx.Authority()
	if err != nil {
		return ir.Authority{}, err
	}
	if !ok {
		return ir.Authority{}, ir.ErrNotInitialized.With("authority not initialized")
	}
	return auth, nil
}

// Finalize hands the migration to target. It succeeds at most once.
func (o *Orchestrator) Finalize(tx *store.Tx, caller, target common.Address, now uint64) error {
	auth, err := o.Authority(tx)
	if err != nil {
		return err
	}
	if auth.IsFinalized() {
		return ir.ErrAlreadyFinalized.With("", "registry", ir.Addr(auth.Registry()))
	}
	if caller != auth.Controller() {
		return ir.ErrUnauthorized.With("caller is not the controller", "caller", ir.Addr(caller))
	}
	if target == (common.Address{}) || target == o.cfg.Address {
		return ir.ErrInvalidTarget.With("registry must be a distinct non-zero address", "target", ir.Addr(target))
	}
	if _, ok := o.registries[target]; !ok {
		return ir.ErrInvalidTarget.With("not a known registry", "target", ir.Addr(target))
	}

	auth.State = ir.Finalized{Registry: target, At: now}
	if err := tx.PutAuthority(auth); err != nil {
		return err
	}
	tx.Emit(ir.EventFinalized, map[string]any{
		"asset":    auth.Asset,
		"registry": target,
		"caller":   caller,
	})
	return nil
}

// Registry returns the finalized registry, or ErrNotInitialized while
// pending.
func (o *Orchestrator) Registry(tx *store.Tx) (*registry.Registry, error) {
	auth, ok, err := tx.Authority()
	if err != nil {
		return nil, err
	}
	if !ok || !auth.IsFinalized() {
		return nil, ir.ErrNotInitialized.With("migration not finalized")
	}
	r, found := o.registries[auth.Registry()]
	if !found {
		return nil, ir.ErrInvalidTarget.With("finalized registry is not loaded", "registry", ir.Addr(auth.Registry()))
	}
	return r, nil
}

// MigrateResult reports a migration call.
type MigrateResult struct {
	RecordID ir.RecordID
	Amount   *uint256.Int
	Issued   bool
}

// FullMigrate redeems caller's whole legacy position into the orchestrator
// and issues it to caller in the registry, along with any earlier
// out-of-band redemption credit.
func (o *Orchestrator) FullMigrate(tx *store.Tx, caller common.Address, now uint64) (MigrateResult, error) {
	r, err := o.gate(tx, caller)
	if err != nil {
		return MigrateResult{}, err
	}

	pos, err := tx.Position(o.cfg.Asset, caller)
	if err != nil {
		return MigrateResult{}, err
	}
	if !pos.IsEmpty() {
		if err := o.legacy.RedeemTokensFromVault(tx, o.cfg.Address, o.cfg.Asset, caller, pos.Amount); err != nil {
			return MigrateResult{}, fmt.Errorf("redeem legacy position: %w", err)
		}
	}
	return o.settle(tx, r, caller, now)
}

// WithdrawTokensFromV1Vault issues the credit left by earlier governor
// redemptions of caller's position. It does not touch the legacy vault.
func (o *Orchestrator) WithdrawTokensFromV1Vault(tx *store.Tx, caller common.Address, now uint64) (MigrateResult, error) {
	r, err := o.gate(tx, caller)
	if err != nil {
		return MigrateResult{}, err
	}
	return o.settle(tx, r, caller, now)
}

func (o *Orchestrator) gate(tx *store.Tx, caller common.Address) (*registry.Registry, error) {
	r, err := o.Registry(tx)
	if err != nil {
		return nil, err
	}
	approved, err := o.legacy.RedemptionApproved(tx, o.cfg.Asset, caller)
	if err != nil {
		return nil, err
	}
	if !approved {
		return nil, ir.ErrNotAllowed.With("token redemption not approved", "holder", ir.Addr(caller))
	}
	return r, nil
}

func (o *Orchestrator) settle(tx *store.Tx, r *registry.Registry, holder common.Address, now uint64) (MigrateResult, error) {
	credit, err := tx.PendingRedemption(o.cfg.Asset, holder)
	if err != nil {
		return MigrateResult{}, err
	}
	if credit.IsZero() {
		if o.cfg.ZeroBalance == ZeroFail {
			return MigrateResult{}, ir.ErrZeroAmount.With("nothing to migrate", "holder", ir.Addr(holder))
		}
		tx.Emit(ir.EventMigrationSkipped, map[string]any{
			"holder": holder,
		})
		return MigrateResult{Amount: credit}, nil
	}

	if err := tx.SetPendingRedemption(o.cfg.Asset, holder, new(uint256.Int)); err != nil {
		return MigrateResult{}, err
	}
	id, err := r.Issue(tx, o.cfg.Address, holder, credit, now)
	if err != nil {
		return MigrateResult{}, err
	}
	tx.Emit(ir.EventMigrated, map[string]any{
		"holder":    holder,
		"amount":    credit,
		"record_id": id,
		"registry":  r.Address(),
	})
	return MigrateResult{RecordID: id, Amount: credit, Issued: true}, nil
}
