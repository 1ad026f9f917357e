package strategy

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/roach88/tiermigrate/internal/ir"
)

// TimedStrategy vests linearly from start to finish, with nothing released
// before the cliff.
//
// Template: [start, finish] or [start, cliff, finish] offsets; a two-entry
// template puts the cliff at start.
// Params: [remaining, startAt, cliffAt, finishAt, total].
type TimedStrategy struct{}

// ID returns Timed.
func (TimedStrategy) ID() ir.StrategyID { return Timed }

// ValidateTemplate requires 2 or 3 non-decreasing offsets.
func (TimedStrategy) ValidateTemplate(template []uint64) error {
	_, _, _, err := timedOffsets(template)
	return err
}

func timedOffsets(template []uint64) (start, cliff, finish uint64, err error) {
	switch len(template) {
	case 2:
		start, cliff, finish = template[0], template[0], template[1]
	case 3:
		start, cliff, finish = template[0], template[1], template[2]
	default:
		return 0, 0, 0, fmt.Errorf("timed: template takes 2 or 3 offsets, got %d", len(template))
	}
	if start > cliff || cliff > finish {
		return 0, 0, 0, fmt.Errorf("timed: offsets must satisfy start <= cliff <= finish, got %d/%d/%d", start, cliff, finish)
	}
	return start, cliff, finish, nil
}

// Instantiate anchors each offset at anchor and returns
// [amount, startAt, cliffAt, finishAt, amount].
func (TimedStrategy) Instantiate(amount *uint256.Int, template []uint64, anchor uint64) ([]*uint256.Int, error) {
	start, cliff, finish, err := timedOffsets(template)
	if err != nil {
		return nil, err
	}
	params := []*uint256.Int{new(uint256.Int).Set(amount)}
	for _, off := range []uint64{start, cliff, finish} {
		at, err := addOffset(anchor, off)
		if err != nil {
			return nil, fmt.Errorf("timed: %w", err)
		}
		params = append(params, at)
	}
	return append(params, new(uint256.Int).Set(amount)), nil
}

// Releasable is what has vested by now less what was already withdrawn.
func (TimedStrategy) Releasable(params []*uint256.Int, now uint64) (*uint256.Int, error) {
	if err := checkParams(Timed, params, 5); err != nil {
		return nil, err
	}
	remaining, start, cliff, finish, total := params[0], params[1], params[2], params[3], params[4]
	t := uint256.NewInt(now)

	if t.Lt(cliff) {
		return new(uint256.Int), nil
	}
	if !t.Lt(finish) {
		return new(uint256.Int).Set(remaining), nil
	}

	// vested = total * (now - start) / (finish - start); finish > now >= start here.
	elapsed := new(uint256.Int).Sub(t, start)
	duration := new(uint256.Int).Sub(finish, start)
	vested, overflow := new(uint256.Int).MulOverflow(total, elapsed)
	if overflow {
		return nil, fmt.Errorf("timed: vesting overflow")
	}
	vested.Div(vested, duration)

	withdrawn, err := ir.SubAmounts(total, remaining)
	if err != nil {
		return nil, fmt.Errorf("timed: %w", err)
	}
	if vested.Lt(withdrawn) {
		return new(uint256.Int), nil
	}
	return vested.Sub(vested, withdrawn), nil
}
