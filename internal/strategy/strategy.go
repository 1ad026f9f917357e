// Package strategy implements the release strategies a record can carry.
//
// A strategy turns an amount plus a tier's offset template into record
// params, and later computes how much of those params can be released at a
// given time. Params[0] is always the amount the record still holds.
package strategy

import (
	"fmt"
	"sort"

	"github.com/holiman/uint256"

	"github.com/roach88/tiermigrate/internal/ir"
)

// Built-in strategy ids.
const (
	Deal  ir.StrategyID = "deal"
	Lock  ir.StrategyID = "lock"
	Timed ir.StrategyID = "timed"
)

// Strategy computes record params and released amounts.
type Strategy interface {
	// ID names the strategy in records and config.
	ID() ir.StrategyID

	// ValidateTemplate checks an offset template without instantiating it.
	ValidateTemplate(template []uint64) error

	// Instantiate builds params for amount, anchoring template offsets at
	// anchor (unix seconds).
	Instantiate(amount *uint256.Int, template []uint64, anchor uint64) ([]*uint256.Int, error)

	// Releasable is the amount that can be withdrawn at now.
	Releasable(params []*uint256.Int, now uint64) (*uint256.Int, error)
}

// Set is a lookup table of strategies by id.
type Set struct {
	byID map[ir.StrategyID]Strategy
}

// NewSet builds a Set. Later strategies replace earlier ones with the same id.
func NewSet(strategies ...Strategy) *Set {
	s := &Set{byID: make(map[ir.StrategyID]Strategy, len(strategies))}
	for _, st := range strategies {
		s.byID[st.ID()] = st
	}
	return s
}

// Default returns the deal, lock and timed strategies.
func Default() *Set {
	return NewSet(DealStrategy{}, LockStrategy{}, TimedStrategy{})
}

// Get looks up a strategy. Unknown ids fail with ir.ErrNotFound.
func (s *Set) Get(id ir.StrategyID) (Strategy, error) {
	st, ok := s.byID[id]
	if !ok {
		return nil, ir.ErrNotFound.With("unknown strategy", "strategy", string(id))
	}
	return st, nil
}

// IDs lists the registered ids in sorted order.
func (s *Set) IDs() []ir.StrategyID {
	ids := make([]ir.StrategyID, 0, len(s.byID))
	for id := range s.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Debit subtracts amount from the held amount in params[0] and returns the
// new params. The other params are copied unchanged.
func Debit(params []*uint256.Int, amount *uint256.Int) ([]*uint256.Int, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("debit: empty params")
	}
	remaining, err := ir.SubAmounts(params[0], amount)
	if err != nil {
		return nil, ir.ErrInsufficientBalance.With(err.Error())
	}
	out := copyParams(params)
	out[0] = remaining
	return out, nil
}

func copyParams(params []*uint256.Int) []*uint256.Int {
	out := make([]*uint256.Int, len(params))
	for i, p := range params {
		out[i] = new(uint256.Int).Set(p)
	}
	return out
}

func addOffset(anchor, offset uint64) (*uint256.Int, error) {
	sum := anchor + offset
	if sum < anchor {
		return nil, fmt.Errorf("time overflow: %d + %d", anchor, offset)
	}
	return uint256.NewInt(sum), nil
}

func checkParams(id ir.StrategyID, params []*uint256.Int, n int) error {
	if len(params) != n {
		return fmt.Errorf("%s: want %d params, got %d", id, n, len(params))
	}
	return nil
}
