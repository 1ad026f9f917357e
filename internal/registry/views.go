package registry

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/roach88/tiermigrate/internal/ir"
	"github.com/roach88/tiermigrate/internal/ledger"
	"github.com/roach88/tiermigrate/internal/store"
)

// UserToType returns the holder's current tier.
func (r *Registry) UserToType(tx *store.Tx, holder common.Address) (ir.Tier, error) {
	st, err := tx.HolderState(holder)
	if err != nil {
		return 0, err
	}
	return st.Tier, nil
}

// UserToAmount returns the holder's accumulated issued amount.
func (r *Registry) UserToAmount(tx *store.Tx, holder common.Address) (*uint256.Int, error) {
	st, err := tx.HolderState(holder)
	if err != nil {
		return nil, err
	}
	return st.Amount, nil
}

// TheTypeOf classifies an arbitrary amount.
func (r *Registry) TheTypeOf(amount *uint256.Int) ir.Tier {
	return r.classifier.Classify(amount)
}

// GetTotalAmount sums what the registry-issued records the holder owns
// still hold.
func (r *Registry) GetTotalAmount(tx *store.Tx, holder common.Address) (*uint256.Int, error) {
	ids, err := tx.RecordIDsByIssuerOwner(r.addr, holder)
	if err != nil {
		return nil, err
	}
	total := new(uint256.Int)
	for _, id := range ids {
		rec, err := tx.Record(id)
		if err != nil {
			return nil, err
		}
		if total, err = ir.AddAmounts(total, rec.Remaining()); err != nil {
			return nil, err
		}
	}
	return total, nil
}

// GetWithdrawableAmount is what the record's owner could withdraw at now.
func (r *Registry) GetWithdrawableAmount(tx *store.Tx, id ir.RecordID, now uint64) (*uint256.Int, error) {
	return r.ledger.Releasable(tx, id, now)
}

// BalanceOf counts the registry-issued records the holder owns.
func (r *Registry) BalanceOf(tx *store.Tx, holder common.Address) (uint64, error) {
	ids, err := tx.RecordIDsByIssuerOwner(r.addr, holder)
	if err != nil {
		return 0, err
	}
	return uint64(len(ids)), nil
}

// TokenOfOwnerByIndex returns the index-th registry-issued record the
// holder owns, in ascending id order.
func (r *Registry) TokenOfOwnerByIndex(tx *store.Tx, holder common.Address, index uint64) (ir.RecordID, error) {
	ids, err := tx.RecordIDsByIssuerOwner(r.addr, holder)
	if err != nil {
		return 0, err
	}
	return ledger.PickIndex(ids, holder, index)
}
