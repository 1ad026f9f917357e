package ir

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Tier is a classification band over a holder's accumulated amount.
// Tier 0 means no tracked amount (or below the second limit).
type Tier uint8

// Tier0 is the tier every holder starts in and returns to on reset.
const Tier0 Tier = 0

// RecordID identifies a record in the ledger. IDs start at 0 and only grow.
type RecordID uint64

// StrategyID names a release strategy ("deal", "lock", "timed").
type StrategyID string

// Record is one individually owned locked position held by the ledger.
//
// Params layout is strategy specific; Params[0] is always the amount still
// held by the record.
type Record struct {
	ID       RecordID       `json:"id"`
	Owner    common.Address `json:"owner"`
	Strategy StrategyID     `json:"strategy"`
	Params   []*uint256.Int `json:"params"`
	Issuer   common.Address `json:"issuer"`
	Asset    common.Address `json:"asset"`
	MintedAt uint64         `json:"minted_at"`
}

// Remaining is the amount the record still holds.
func (r Record) Remaining() *uint256.Int {
	if len(r.Params) == 0 || r.Params[0] == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(r.Params[0])
}

// HolderState is the registry's per-holder accumulator.
type HolderState struct {
	Amount *uint256.Int `json:"amount"`
	Tier   Tier         `json:"tier"`
}

// ZeroHolderState returns the state of a holder the registry has never seen.
func ZeroHolderState() HolderState {
	return HolderState{Amount: new(uint256.Int), Tier: Tier0}
}

// IsZero reports whether the state carries no tracked amount.
func (h HolderState) IsZero() bool {
	return h.Amount == nil || h.Amount.IsZero()
}

// Position is a legacy vault entry for one (asset, holder) pair.
// Delays are seconds relative to CreatedAt.
type Position struct {
	Amount      *uint256.Int `json:"amount"`
	StartDelay  uint64       `json:"start_delay"`
	CliffDelay  uint64       `json:"cliff_delay"`
	FinishDelay uint64       `json:"finish_delay"`
	CreatedAt   uint64       `json:"created_at"`
}

// IsEmpty reports whether the position holds nothing.
func (p Position) IsEmpty() bool {
	return p.Amount == nil || p.Amount.IsZero()
}

// Event is one entry of the append-only audit log.
type Event struct {
	ID        string         `json:"id"`         // Content-addressed hash
	Seq       int64          `json:"seq"`        // Logical clock
	FlowToken string         `json:"flow_token"` // Shared by all events of one entry point call
	Kind      string         `json:"kind"`
	Payload   map[string]any `json:"payload"`
	At        uint64         `json:"at"` // Wall time of the call, unix seconds
}

// Event kinds.
const (
	EventLegacyDeposited   = "LegacyDeposited"
	EventLegacyWithdrawn   = "LegacyWithdrawn"
	EventLegacyRedeemed    = "LegacyRedeemed"
	EventRedemptionApprove = "RedemptionApproval"
	EventFunded            = "Funded"
	EventFinalized         = "Finalized"
	EventIssued            = "Issued"
	EventTierReset         = "TierReset"
	EventMigrated          = "Migrated"
	EventMigrationSkipped  = "MigrationSkipped"
	EventRecordTransferred = "RecordTransferred"
	EventRecordWithdrawn   = "RecordWithdrawn"
)

// Addr formats an address for payloads and CLI output.
func Addr(a common.Address) string {
	return a.Hex()
}
