// Package registry is the tier-based entitlement registry. It tracks each
// holder's accumulated issued amount and tier, and issues every new record
// at the strategy of the holder's tier after the issuance.
package registry

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/roach88/tiermigrate/internal/custody"
	"github.com/roach88/tiermigrate/internal/ir"
	"github.com/roach88/tiermigrate/internal/ledger"
	"github.com/roach88/tiermigrate/internal/store"
	"github.com/roach88/tiermigrate/internal/strategy"
	"github.com/roach88/tiermigrate/internal/tier"
)

// Config describes one registry deployment.
type Config struct {
	// Address identifies the registry; records it issues carry it as issuer.
	Address common.Address
	// Asset is the only asset the registry issues records for.
	Asset common.Address
	// Issuers may call Issue on behalf of any holder.
	Issuers []common.Address
	// DirectIssuance lets any caller issue from its own funds.
	DirectIssuance bool
}

// Registry issues records and keeps per-holder tier state.
type Registry struct {
	addr       common.Address
	asset      common.Address
	issuers    map[common.Address]bool
	direct     bool
	classifier *tier.Classifier
	strategies *strategy.Set
	ledger     *ledger.Ledger
}

// New creates a registry and subscribes it to the ledger's transfers.
func New(cfg Config, classifier *tier.Classifier, strategies *strategy.Set, l *ledger.Ledger) *Registry {
	r := &Registry{
		addr:       cfg.Address,
		asset:      cfg.Asset,
		issuers:    make(map[common.Address]bool, len(cfg.Issuers)),
		direct:     cfg.DirectIssuance,
		classifier: classifier,
		strategies: strategies,
		ledger:     l,
	}
	for _, a := range cfg.Issuers {
		r.issuers[a] = true
	}
	l.Subscribe(r)
	return r
}

// Address is the registry's address.
func (r *Registry) Address() common.Address {
	return r.addr
}

// Asset is the asset the registry issues.
func (r *Registry) Asset() common.Address {
	return r.asset
}

// Classifier exposes the tier table.
func (r *Registry) Classifier() *tier.Classifier {
	return r.classifier
}

// Issue converts amount from caller's account into a new record for holder,
// anchoring the tier template at now.
func (r *Registry) Issue(tx *store.Tx, caller, holder common.Address, amount *uint256.Int, now uint64) (ir.RecordID, error) {
	return r.issue(tx, caller, holder, amount, now, now)
}

// IssueAnchored is Issue with the tier template anchored at anchor instead
// of now. Offsets then count from anchor, so time already served before now
// is credited.
func (r *Registry) IssueAnchored(tx *store.Tx, caller, holder common.Address, amount *uint256.Int, anchor, now uint64) (ir.RecordID, error) {
	return r.issue(tx, caller, holder, amount, anchor, now)
}

func (r *Registry) issue(tx *store.Tx, caller, holder common.Address, amount *uint256.Int, anchor, now uint64) (ir.RecordID, error) {
	if amount == nil || amount.IsZero() {
		return 0, ir.ErrZeroAmount.With("nothing to issue", "holder", ir.Addr(holder))
	}
	if !r.issuers[caller] && !r.direct {
		return 0, ir.ErrUnauthorized.With("caller is not an authorized issuer", "caller", ir.Addr(caller))
	}
	// The ledger vault already holds the funds backing every record, so it
	// cannot fund a new one.
	if caller == r.ledger.Vault() {
		return 0, ir.ErrUnauthorized.With("ledger vault cannot issue", "caller", ir.Addr(caller))
	}
	if holder == (common.Address{}) {
		return 0, ir.ErrInvalidTarget.With("cannot issue to the zero address")
	}

	st, err := tx.HolderState(holder)
	if err != nil {
		return 0, err
	}
	total, err := ir.AddAmounts(st.Amount, amount)
	if err != nil {
		return 0, err
	}
	t := r.classifier.Classify(total)

	id, tmpl, err := r.classifier.TemplateFor(t)
	if err != nil {
		return 0, err
	}
	s, err := r.strategies.Get(id)
	if err != nil {
		return 0, err
	}
	params, err := s.Instantiate(amount, tmpl, anchor)
	if err != nil {
		return 0, fmt.Errorf("instantiate tier %d template: %w", t, err)
	}

	if err := custody.Send(tx, r.asset, caller, r.ledger.Vault(), amount); err != nil {
		return 0, err
	}
	rec, err := r.ledger.Mint(tx, r.addr, holder, r.asset, id, params, now)
	if err != nil {
		return 0, err
	}
	if err := tx.PutHolderState(holder, ir.HolderState{Amount: total, Tier: t}); err != nil {
		return 0, err
	}

	tx.Emit(ir.EventIssued, map[string]any{
		"record_id": rec.ID,
		"holder":    holder,
		"issuer":    caller,
		"amount":    amount,
		"total":     total,
		"tier":      t,
		"strategy":  id,
		"params":    params,
	})
	return rec.ID, nil
}

// OnRecordTransferredOut resets holder to {0, Tier0}. The registry cannot
// attribute a transferred record's share of the accumulated amount, so any
// outbound transfer of a record it issued clears the holder entirely, even
// when other tracked records remain with them.
func (r *Registry) OnRecordTransferredOut(tx *store.Tx, holder common.Address, amount *uint256.Int) error {
	prev, err := tx.HolderState(holder)
	if err != nil {
		return err
	}
	if err := tx.PutHolderState(holder, ir.ZeroHolderState()); err != nil {
		return err
	}

	tx.Emit(ir.EventTierReset, map[string]any{
		"holder":          holder,
		"record_amount":   amount,
		"previous_amount": prev.Amount,
		"previous_tier":   prev.Tier,
	})
	return nil
}

// OnRecordTransferred implements ledger.TransferObserver. Only records this
// registry issued affect tier state.
func (r *Registry) OnRecordTransferred(tx *store.Tx, rec ir.Record, from, to common.Address) error {
	if rec.Issuer != r.addr || from == to {
		return nil
	}
	return r.OnRecordTransferredOut(tx, from, rec.Remaining())
}
