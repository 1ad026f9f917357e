// Package legacy is the reference legacy time-locked vault the migration
// drains. Positions are keyed by (asset, holder) and carry start, cliff and
// finish delays relative to their creation time.
//
// Two integration points hand control to other components:
//   - the pool creator, which receives the funds of every Withdraw and is
//     asked to create the replacement position;
//   - the governor, which may redeem approved positions and is told about
//     each redemption.
package legacy

import (
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/roach88/tiermigrate/internal/custody"
	"github.com/roach88/tiermigrate/internal/ir"
	"github.com/roach88/tiermigrate/internal/store"
)

// Settings keys for the mutable integration addresses.
const (
	settingPoolCreator = "legacy.pool_creator"
	settingGovernor    = "legacy.governor"
)

// PoolCreator creates the replacement for a withdrawn legacy position. The
// vault has already moved the position's funds to the creator's account.
type PoolCreator interface {
	CreateNewPool(tx *store.Tx, caller, asset, holder common.Address, pos ir.Position, now uint64) (ir.RecordID, error)
}

// RedemptionReceiver is told when the governor redeems a holder's position
// into its own account.
type RedemptionReceiver interface {
	OnTokensRedeemed(tx *store.Tx, caller, asset, holder common.Address, amount *uint256.Int) error
}

// Vault is the legacy vault. Its own custody account is its address.
type Vault struct {
	addr      common.Address
	creators  map[common.Address]PoolCreator
	receivers map[common.Address]RedemptionReceiver
}

// New creates a vault whose custody account is addr.
func New(addr common.Address) *Vault {
	return &Vault{
		addr:      addr,
		creators:  make(map[common.Address]PoolCreator),
		receivers: make(map[common.Address]RedemptionReceiver),
	}
}

// Address is the vault's address and custody account.
func (v *Vault) Address() common.Address {
	return v.addr
}

// RegisterPoolCreator makes the component at addr reachable as a pool
// creator. SetPoolCreator selects which one is active.
func (v *Vault) RegisterPoolCreator(addr common.Address, pc PoolCreator) {
	v.creators[addr] = pc
}

// RegisterRedemptionReceiver makes the component at addr reachable as a
// governor callback.
func (v *Vault) RegisterRedemptionReceiver(addr common.Address, r RedemptionReceiver) {
	v.receivers[addr] = r
}

// SetPoolCreator selects the active pool creator. The zero address turns
// hand-off off and Withdraw pays holders directly.
func (v *Vault) SetPoolCreator(tx *store.Tx, addr common.Address) error {
	if addr != (common.Address{}) {
		if _, ok := v.creators[addr]; !ok {
			return ir.ErrInvalidTarget.With("unknown pool creator", "address", ir.Addr(addr))
		}
	}
	return tx.PutSetting(settingPoolCreator, ir.Addr(addr))
}

// PoolCreator returns the active pool creator address, or zero.
func (v *Vault) PoolCreator(tx *store.Tx) (common.Address, error) {
	return addressSetting(tx, settingPoolCreator)
}

// SetGovernor selects the account allowed to redeem approved positions.
func (v *Vault) SetGovernor(tx *store.Tx, addr common.Address) error {
	return tx.PutSetting(settingGovernor, ir.Addr(addr))
}

// Governor returns the governor address, or zero.
func (v *Vault) Governor(tx *store.Tx) (common.Address, error) {
	return addressSetting(tx, settingGovernor)
}

// CreateVault deposits amount from holder. Depositing into an existing
// position adds to it, keeps its creation time and raises each delay to
// the larger of old and new.
func (v *Vault) CreateVault(tx *store.Tx, holder, asset common.Address, amount *uint256.Int, startDelay, cliffDelay, finishDelay, now uint64) (ir.Position, error) {
	if amount == nil || amount.IsZero() {
		return ir.Position{}, ir.ErrZeroAmount.With("nothing to deposit")
	}
	if holder == v.addr {
		return ir.Position{}, ir.ErrInvalidTarget.With("legacy vault cannot deposit into itself")
	}
	if err := custody.Send(tx, asset, holder, v.addr, amount); err != nil {
		return ir.Position{}, err
	}

	pos, err := tx.Position(asset, holder)
	if err != nil {
		return ir.Position{}, err
	}
	if pos.IsEmpty() {
		pos = ir.Position{Amount: new(uint256.Int), CreatedAt: now}
	}
	if pos.Amount, err = ir.AddAmounts(pos.Amount, amount); err != nil {
		return ir.Position{}, err
	}
	pos.StartDelay = max(pos.StartDelay, startDelay)
	pos.CliffDelay = max(pos.CliffDelay, cliffDelay)
	pos.FinishDelay = max(pos.FinishDelay, finishDelay)

	if err := tx.PutPosition(asset, holder, pos); err != nil {
		return ir.Position{}, err
	}

	tx.Emit(ir.EventLegacyDeposited, map[string]any{
		"asset":        asset,
		"holder":       holder,
		"amount":       amount,
		"total":        pos.Amount,
		"start_delay":  pos.StartDelay,
		"cliff_delay":  pos.CliffDelay,
		"finish_delay": pos.FinishDelay,
		"created_at":   pos.CreatedAt,
	})
	return pos, nil
}

// VaultMap returns the position of holder in asset.
func (v *Vault) VaultMap(tx *store.Tx, asset, holder common.Address) (ir.Position, error) {
	return tx.Position(asset, holder)
}

// WithdrawResult describes a legacy withdrawal.
type WithdrawResult struct {
	Amount *uint256.Int
	// Creator is the pool creator that received the funds, zero when the
	// holder was paid directly.
	Creator  common.Address
	RecordID ir.RecordID
}

// Withdraw clears the holder's position. With a pool creator set, the funds
// go to the creator and it creates the replacement position; otherwise the
// position must have matured and the holder is paid.
func (v *Vault) Withdraw(tx *store.Tx, holder, asset common.Address, now uint64) (WithdrawResult, error) {
	pos, err := tx.Position(asset, holder)
	if err != nil {
		return WithdrawResult{}, err
	}
	if pos.IsEmpty() {
		return WithdrawResult{}, ir.ErrZeroAmount.With("no legacy position", "holder", ir.Addr(holder))
	}

	creatorAddr, err := v.PoolCreator(tx)
	if err != nil {
		return WithdrawResult{}, err
	}

	if creatorAddr == (common.Address{}) {
		if unlock := pos.CreatedAt + max(pos.StartDelay, pos.FinishDelay); now < unlock {
			return WithdrawResult{}, ir.ErrNotAllowed.With("legacy position still locked",
				"holder", ir.Addr(holder),
				"unlock_at", strconv.FormatUint(unlock, 10),
			)
		}
	}

	if err := tx.PutPosition(asset, holder, ir.Position{}); err != nil {
		return WithdrawResult{}, err
	}
	res := WithdrawResult{Amount: pos.Amount, Creator: creatorAddr}

	if creatorAddr == (common.Address{}) {
		if err := custody.Send(tx, asset, v.addr, holder, pos.Amount); err != nil {
			return WithdrawResult{}, err
		}
	} else {
		creator, ok := v.creators[creatorAddr]
		if !ok {
			return WithdrawResult{}, ir.ErrInvalidTarget.With("unknown pool creator", "address", ir.Addr(creatorAddr))
		}
		if err := custody.Send(tx, asset, v.addr, creatorAddr, pos.Amount); err != nil {
			return WithdrawResult{}, err
		}
		if res.RecordID, err = creator.CreateNewPool(tx, v.addr, asset, holder, pos, now); err != nil {
			return WithdrawResult{}, err
		}
	}

	tx.Emit(ir.EventLegacyWithdrawn, map[string]any{
		"asset":   asset,
		"holder":  holder,
		"amount":  pos.Amount,
		"creator": creatorAddr,
	})
	return res, nil
}

// ApproveTokenRedemption sets the holder's consent to governor redemption.
func (v *Vault) ApproveTokenRedemption(tx *store.Tx, holder, asset common.Address, approved bool) error {
	if err := tx.SetRedemptionApproved(asset, holder, approved); err != nil {
		return err
	}
	tx.Emit(ir.EventRedemptionApprove, map[string]any{
		"asset":    asset,
		"holder":   holder,
		"approved": approved,
	})
	return nil
}

// RedemptionApproved reports the holder's consent flag.
func (v *Vault) RedemptionApproved(tx *store.Tx, asset, holder common.Address) (bool, error) {
	return tx.RedemptionApproved(asset, holder)
}

// RedeemTokensFromVault moves amount of an approved holder's position to the
// governor and tells the governor's receiver, if one is registered.
func (v *Vault) RedeemTokensFromVault(tx *store.Tx, caller, asset, holder common.Address, amount *uint256.Int) error {
	governor, err := v.Governor(tx)
	if err != nil {
		return err
	}
	if governor == (common.Address{}) || caller != governor {
		return ir.ErrUnauthorized.With("caller is not the governor", "caller", ir.Addr(caller))
	}
	if amount == nil || amount.IsZero() {
		return ir.ErrZeroAmount.With("nothing to redeem")
	}
	approved, err := tx.RedemptionApproved(asset, holder)
	if err != nil {
		return err
	}
	if !approved {
		return ir.ErrNotAllowed.With("redemption not approved", "holder", ir.Addr(holder))
	}

	pos, err := tx.Position(asset, holder)
	if err != nil {
		return err
	}
	remaining, err := ir.SubAmounts(pos.Amount, amount)
	if err != nil {
		return ir.ErrInsufficientBalance.With(err.Error(), "holder", ir.Addr(holder))
	}
	pos.Amount = remaining
	if err := tx.PutPosition(asset, holder, pos); err != nil {
		return err
	}
	if err := custody.Send(tx, asset, v.addr, governor, amount); err != nil {
		return err
	}

	tx.Emit(ir.EventLegacyRedeemed, map[string]any{
		"asset":    asset,
		"holder":   holder,
		"amount":   amount,
		"governor": governor,
	})

	if r, ok := v.receivers[governor]; ok {
		return r.OnTokensRedeemed(tx, v.addr, asset, holder, amount)
	}
	return nil
}

func addressSetting(tx *store.Tx, key string) (common.Address, error) {
	s, ok, err := tx.Setting(key)
	if err != nil || !ok {
		return common.Address{}, err
	}
	return common.HexToAddress(s), nil
}
