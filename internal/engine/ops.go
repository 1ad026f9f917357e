package engine

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/roach88/tiermigrate/internal/config"
	"github.com/roach88/tiermigrate/internal/custody"
	"github.com/roach88/tiermigrate/internal/ir"
	"github.com/roach88/tiermigrate/internal/legacy"
	"github.com/roach88/tiermigrate/internal/migrator"
	"github.com/roach88/tiermigrate/internal/store"
)

// Init prepares the store for the deployment. The first call writes the
// Pending authority, the legacy governor and the configured pool creator.
// Later calls only check that the tier table has not changed.
func (e *Engine) Init(ctx context.Context) error {
	hash, err := e.classifier.Hash()
	if err != nil {
		return err
	}

	return e.run(ctx, "init", func(tx *store.Tx, _ uint64) error {
		stored, ok, err := tx.Setting(settingTierHash)
		if err != nil {
			return err
		}
		if ok {
			if stored != hash {
				return ir.ErrInvalidConfig.With("store was initialized with a different tier table",
					"stored", stored,
					"deployment", hash,
				)
			}
			return nil
		}

		if err := tx.PutSetting(settingTierHash, hash); err != nil {
			return err
		}
		if err := tx.PutSetting(settingSource, string(e.deploy.Source)); err != nil {
			return err
		}
		if err := e.orch.Init(tx); err != nil {
			return err
		}
		if err := e.legacy.SetGovernor(tx, e.deploy.Addresses.Governor); err != nil {
			return err
		}
		return e.legacy.SetPoolCreator(tx, e.poolCreatorAddress(e.deploy.PoolCreator))
	})
}

// Fund credits amount of the deployment asset to account out of thin air.
func (e *Engine) Fund(ctx context.Context, account common.Address, amount *uint256.Int) error {
	return e.run(ctx, "fund", func(tx *store.Tx, _ uint64) error {
		if err := custody.Mint(tx, e.deploy.Asset, account, amount); err != nil {
			return err
		}
		tx.Emit(ir.EventFunded, map[string]any{
			"account": account,
			"amount":  amount,
		})
		return nil
	})
}

// Deposit locks amount of holder's funds in the legacy vault.
func (e *Engine) Deposit(ctx context.Context, holder common.Address, amount *uint256.Int, start, cliff, finish uint64) (ir.Position, error) {
	var pos ir.Position
	err := e.run(ctx, "legacy.deposit", func(tx *store.Tx, now uint64) error {
		var err error
		pos, err = e.legacy.CreateVault(tx, holder, e.deploy.Asset, amount, start, cliff, finish, now)
		return err
	})
	return pos, err
}

// Approve sets holder's consent to governor redemption.
func (e *Engine) Approve(ctx context.Context, holder common.Address, approved bool) error {
	return e.run(ctx, "legacy.approve", func(tx *store.Tx, _ uint64) error {
		return e.legacy.ApproveTokenRedemption(tx, holder, e.deploy.Asset, approved)
	})
}

// LegacyWithdraw withdraws holder's legacy position, handing it to the
// active pool creator when one is set.
func (e *Engine) LegacyWithdraw(ctx context.Context, holder common.Address) (legacy.WithdrawResult, error) {
	var res legacy.WithdrawResult
	err := e.run(ctx, "legacy.withdraw", func(tx *store.Tx, now uint64) error {
		var err error
		res, err = e.legacy.Withdraw(tx, holder, e.deploy.Asset, now)
		return err
	})
	return res, err
}

// Redeem moves amount of holder's approved legacy position to the governor.
func (e *Engine) Redeem(ctx context.Context, caller, holder common.Address, amount *uint256.Int) error {
	return e.run(ctx, "legacy.redeem", func(tx *store.Tx, _ uint64) error {
		return e.legacy.RedeemTokensFromVault(tx, caller, e.deploy.Asset, holder, amount)
	})
}

// SetPoolCreator selects which component receives legacy withdrawals.
func (e *Engine) SetPoolCreator(ctx context.Context, which config.PoolCreator) error {
	return e.run(ctx, "legacy.set_pool_creator", func(tx *store.Tx, _ uint64) error {
		if _, err := config.ParsePoolCreator(string(which)); err != nil {
			return err
		}
		return e.legacy.SetPoolCreator(tx, e.poolCreatorAddress(which))
	})
}

func (e *Engine) poolCreatorAddress(which config.PoolCreator) common.Address {
	switch which {
	case config.PoolCreatorOrchestrator:
		return e.deploy.Addresses.Orchestrator
	case config.PoolCreatorLight:
		return e.deploy.Addresses.Light
	}
	return common.Address{}
}

// Finalize hands the migration to target.
func (e *Engine) Finalize(ctx context.Context, caller, target common.Address) error {
	return e.run(ctx, "finalize", func(tx *store.Tx, now uint64) error {
		return e.orch.Finalize(tx, caller, target, now)
	})
}

// FullMigrate migrates caller's whole legacy position.
func (e *Engine) FullMigrate(ctx context.Context, caller common.Address) (migrator.MigrateResult, error) {
	var res migrator.MigrateResult
	err := e.run(ctx, "migrate", func(tx *store.Tx, now uint64) error {
		var err error
		res, err = e.orch.FullMigrate(tx, caller, now)
		return err
	})
	return res, err
}

// WithdrawV1 issues caller's pending redemption credit.
func (e *Engine) WithdrawV1(ctx context.Context, caller common.Address) (migrator.MigrateResult, error) {
	var res migrator.MigrateResult
	err := e.run(ctx, "withdraw_v1", func(tx *store.Tx, now uint64) error {
		var err error
		res, err = e.orch.WithdrawTokensFromV1Vault(tx, caller, now)
		return err
	})
	return res, err
}

// Issue issues amount from caller's funds to holder directly in the
// registry.
func (e *Engine) Issue(ctx context.Context, caller, holder common.Address, amount *uint256.Int) (ir.RecordID, error) {
	var id ir.RecordID
	err := e.run(ctx, "issue", func(tx *store.Tx, now uint64) error {
		var err error
		id, err = e.registry.Issue(tx, caller, holder, amount, now)
		return err
	})
	return id, err
}

// Transfer moves record id from caller to to.
func (e *Engine) Transfer(ctx context.Context, caller common.Address, id ir.RecordID, to common.Address) error {
	return e.run(ctx, "transfer", func(tx *store.Tx, _ uint64) error {
		return e.ledger.Transfer(tx, caller, id, to)
	})
}

// WithdrawRecord pays out what record id has released so far.
func (e *Engine) WithdrawRecord(ctx context.Context, caller common.Address, id ir.RecordID) (*uint256.Int, error) {
	var paid *uint256.Int
	err := e.run(ctx, "withdraw", func(tx *store.Tx, now uint64) error {
		var err error
		paid, err = e.ledger.Withdraw(tx, caller, id, now)
		return err
	})
	return paid, err
}
