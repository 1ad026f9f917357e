package cli

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/roach88/tiermigrate/internal/engine"
	"github.com/roach88/tiermigrate/internal/ir"
)

// RecordInfo is a ledger record in CLI output.
type RecordInfo struct {
	ID           ir.RecordID `json:"id"`
	Owner        string      `json:"owner"`
	Issuer       string      `json:"issuer"`
	Strategy     string      `json:"strategy"`
	Params       []string    `json:"params"`
	Remaining    string      `json:"remaining"`
	Withdrawable string      `json:"withdrawable,omitempty"`
	MintedAt     uint64      `json:"minted_at"`
}

func recordInfo(rec ir.Record) RecordInfo {
	params := make([]string, len(rec.Params))
	for i, p := range rec.Params {
		params[i] = ir.FormatAmount(p)
	}
	return RecordInfo{
		ID:        rec.ID,
		Owner:     rec.Owner.Hex(),
		Issuer:    rec.Issuer.Hex(),
		Strategy:  string(rec.Strategy),
		Params:    params,
		Remaining: ir.FormatAmount(rec.Remaining()),
		MintedAt:  rec.MintedAt,
	}
}

func recordViewInfo(rv engine.RecordView) RecordInfo {
	info := recordInfo(rv.Record)
	info.Withdrawable = ir.FormatAmount(rv.Withdrawable)
	return info
}

// HolderInfo is a holder's registry state in CLI output.
type HolderInfo struct {
	Holder  string       `json:"holder"`
	Tier    ir.Tier      `json:"tier"`
	Amount  string       `json:"amount"`
	Total   string       `json:"total"`
	Records []RecordInfo `json:"records"`
}

func holderInfo(hv engine.HolderView) HolderInfo {
	info := HolderInfo{
		Holder:  hv.Holder.Hex(),
		Tier:    hv.Tier,
		Amount:  ir.FormatAmount(hv.Amount),
		Total:   ir.FormatAmount(hv.Total),
		Records: []RecordInfo{},
	}
	for _, rec := range hv.Records {
		info.Records = append(info.Records, recordInfo(rec))
	}
	return info
}

// PositionInfo is a legacy position in CLI output.
type PositionInfo struct {
	Holder      string `json:"holder"`
	Amount      string `json:"amount"`
	StartDelay  uint64 `json:"start_delay"`
	CliffDelay  uint64 `json:"cliff_delay"`
	FinishDelay uint64 `json:"finish_delay"`
	CreatedAt   uint64 `json:"created_at"`
	Approved    bool   `json:"approved"`
	Pending     string `json:"pending"`
}

func positionInfo(holder common.Address, pv engine.PositionView) PositionInfo {
	return PositionInfo{
		Holder:      holder.Hex(),
		Amount:      ir.FormatAmount(pv.Amount),
		StartDelay:  pv.StartDelay,
		CliffDelay:  pv.CliffDelay,
		FinishDelay: pv.FinishDelay,
		CreatedAt:   pv.CreatedAt,
		Approved:    pv.Approved,
		Pending:     ir.FormatAmount(pv.Pending),
	}
}

// addressOrNone formats a, or "none" for the zero address.
func addressOrNone(a common.Address) string {
	if a == (common.Address{}) {
		return "none"
	}
	return a.Hex()
}
