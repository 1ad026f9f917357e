package strategy

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/roach88/tiermigrate/internal/ir"
)

// LockStrategy releases everything at a single unlock time.
//
// Template: [startOffset]. Params: [amount, unlockAt].
type LockStrategy struct{}

// ID returns Lock.
func (LockStrategy) ID() ir.StrategyID { return Lock }

// ValidateTemplate requires exactly one offset.
func (LockStrategy) ValidateTemplate(template []uint64) error {
	if len(template) != 1 {
		return fmt.Errorf("lock: template takes exactly 1 offset, got %d", len(template))
	}
	return nil
}

// Instantiate returns [amount, anchor+offset].
func (l LockStrategy) Instantiate(amount *uint256.Int, template []uint64, anchor uint64) ([]*uint256.Int, error) {
	if err := l.ValidateTemplate(template); err != nil {
		return nil, err
	}
	unlockAt, err := addOffset(anchor, template[0])
	if err != nil {
		return nil, fmt.Errorf("lock: %w", err)
	}
	return []*uint256.Int{new(uint256.Int).Set(amount), unlockAt}, nil
}

// Releasable is zero before unlockAt and the remaining amount from then on.
func (LockStrategy) Releasable(params []*uint256.Int, now uint64) (*uint256.Int, error) {
	if err := checkParams(Lock, params, 2); err != nil {
		return nil, err
	}
	if params[1].Gt(uint256.NewInt(now)) {
		return new(uint256.Int), nil
	}
	return new(uint256.Int).Set(params[0]), nil
}
