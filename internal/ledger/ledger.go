// Package ledger is the generic record ownership ledger: it mints records,
// moves them between owners, pays out released amounts and enumerates what
// an owner holds. It knows nothing about tiers; the registry subscribes to
// transfers through TransferObserver.
package ledger

import (
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/roach88/tiermigrate/internal/custody"
	"github.com/roach88/tiermigrate/internal/ir"
	"github.com/roach88/tiermigrate/internal/store"
	"github.com/roach88/tiermigrate/internal/strategy"
)

// TransferObserver is notified, inside the same transaction, after a record
// changes owner. Returning an error aborts the transfer.
type TransferObserver interface {
	OnRecordTransferred(tx *store.Tx, rec ir.Record, from, to common.Address) error
}

// Ledger mints and tracks records. Funds backing records sit in the vault
// custody account.
type Ledger struct {
	vault      common.Address
	strategies *strategy.Set
	observers  []TransferObserver
}

// New creates a ledger whose backing funds live at vault.
func New(vault common.Address, strategies *strategy.Set) *Ledger {
	return &Ledger{vault: vault, strategies: strategies}
}

// Vault is the custody account holding funds for every record.
func (l *Ledger) Vault() common.Address {
	return l.vault
}

// Subscribe registers a transfer observer.
func (l *Ledger) Subscribe(o TransferObserver) {
	l.observers = append(l.observers, o)
}

// Mint creates a record owned by owner. The caller is responsible for
// having moved the backing funds into the vault.
func (l *Ledger) Mint(tx *store.Tx, issuer, owner, asset common.Address, id ir.StrategyID, params []*uint256.Int, now uint64) (ir.Record, error) {
	if owner == (common.Address{}) {
		return ir.Record{}, ir.ErrInvalidTarget.With("cannot mint to the zero address")
	}
	st, err := l.strategies.Get(id)
	if err != nil {
		return ir.Record{}, err
	}
	// Reject params the strategy cannot read back.
	if _, err := st.Releasable(params, now); err != nil {
		return ir.Record{}, err
	}

	recID, err := tx.NextRecordID()
	if err != nil {
		return ir.Record{}, err
	}
	rec := ir.Record{
		ID:       recID,
		Owner:    owner,
		Strategy: id,
		Params:   params,
		Issuer:   issuer,
		Asset:    asset,
		MintedAt: now,
	}
	if err := tx.InsertRecord(rec); err != nil {
		return ir.Record{}, err
	}
	return rec, nil
}

// Transfer moves a record from caller to to. Only the owner may transfer.
// Observers run after the owner changes.
func (l *Ledger) Transfer(tx *store.Tx, caller common.Address, id ir.RecordID, to common.Address) error {
	if to == (common.Address{}) {
		return ir.ErrInvalidTarget.With("cannot transfer to the zero address")
	}
	rec, err := tx.Record(id)
	if err != nil {
		return err
	}
	if rec.Owner != caller {
		return ir.ErrNotOwner.With("", "record_id", idString(id), "caller", ir.Addr(caller))
	}
	if to == rec.Owner {
		return nil
	}

	from := rec.Owner
	if err := tx.SetRecordOwner(id, to); err != nil {
		return err
	}
	rec.Owner = to
	tx.Emit(ir.EventRecordTransferred, map[string]any{
		"record_id": id,
		"from":      from,
		"to":        to,
	})

	for _, o := range l.observers {
		if err := o.OnRecordTransferred(tx, rec, from, to); err != nil {
			return err
		}
	}
	return nil
}

// Withdraw pays the record's currently releasable amount to its owner and
// debits the record. Nothing releasable is not an error; the returned
// amount is zero.
func (l *Ledger) Withdraw(tx *store.Tx, caller common.Address, id ir.RecordID, now uint64) (*uint256.Int, error) {
	rec, err := tx.Record(id)
	if err != nil {
		return nil, err
	}
	if rec.Owner != caller {
		return nil, ir.ErrNotOwner.With("", "record_id", idString(id), "caller", ir.Addr(caller))
	}

	amount, err := l.releasable(rec, now)
	if err != nil {
		return nil, err
	}
	if amount.IsZero() {
		return amount, nil
	}

	params, err := strategy.Debit(rec.Params, amount)
	if err != nil {
		return nil, err
	}
	if err := tx.SetRecordParams(id, params); err != nil {
		return nil, err
	}
	if err := custody.Send(tx, rec.Asset, l.vault, rec.Owner, amount); err != nil {
		return nil, err
	}

	tx.Emit(ir.EventRecordWithdrawn, map[string]any{
		"record_id": id,
		"owner":     rec.Owner,
		"amount":    amount,
		"remaining": params[0],
	})
	return amount, nil
}

// Get returns a record.
func (l *Ledger) Get(tx *store.Tx, id ir.RecordID) (ir.Record, error) {
	return tx.Record(id)
}

// Releasable returns what the record's owner could withdraw at now.
func (l *Ledger) Releasable(tx *store.Tx, id ir.RecordID, now uint64) (*uint256.Int, error) {
	rec, err := tx.Record(id)
	if err != nil {
		return nil, err
	}
	return l.releasable(rec, now)
}

func (l *Ledger) releasable(rec ir.Record, now uint64) (*uint256.Int, error) {
	st, err := l.strategies.Get(rec.Strategy)
	if err != nil {
		return nil, err
	}
	return st.Releasable(rec.Params, now)
}

// BalanceOf counts the records owner holds.
func (l *Ledger) BalanceOf(tx *store.Tx, owner common.Address) (uint64, error) {
	ids, err := tx.RecordIDsByOwner(owner)
	if err != nil {
		return 0, err
	}
	return uint64(len(ids)), nil
}

// TokenOfOwnerByIndex returns the index-th record owner holds, in ascending
// id order.
func (l *Ledger) TokenOfOwnerByIndex(tx *store.Tx, owner common.Address, index uint64) (ir.RecordID, error) {
	ids, err := tx.RecordIDsByOwner(owner)
	if err != nil {
		return 0, err
	}
	return PickIndex(ids, owner, index)
}

// TotalSupply is the number of records ever minted.
func (l *Ledger) TotalSupply(tx *store.Tx) (uint64, error) {
	return tx.RecordCount()
}

// PickIndex returns ids[index] or ir.ErrInvalidIndex.
func PickIndex(ids []ir.RecordID, owner common.Address, index uint64) (ir.RecordID, error) {
	if index >= uint64(len(ids)) {
		return 0, ir.ErrInvalidIndex.With("invalid index poolId",
			"owner", ir.Addr(owner),
			"index", strconv.FormatUint(index, 10),
			"balance", strconv.Itoa(len(ids)),
		)
	}
	return ids[index], nil
}

func idString(id ir.RecordID) string {
	return strconv.FormatUint(uint64(id), 10)
}
