package strategy

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/roach88/tiermigrate/internal/ir"
)

// DealStrategy releases everything immediately.
//
// Template: []. Params: [amount].
type DealStrategy struct{}

// ID returns Deal.
func (DealStrategy) ID() ir.StrategyID { return Deal }

// ValidateTemplate accepts only an empty template.
func (DealStrategy) ValidateTemplate(template []uint64) error {
	if len(template) != 0 {
		return fmt.Errorf("deal: template takes no offsets, got %d", len(template))
	}
	return nil
}

// Instantiate returns [amount]. The anchor is ignored.
func (d DealStrategy) Instantiate(amount *uint256.Int, template []uint64, _ uint64) ([]*uint256.Int, error) {
	if err := d.ValidateTemplate(template); err != nil {
		return nil, err
	}
	return []*uint256.Int{new(uint256.Int).Set(amount)}, nil
}

// Releasable is the whole remaining amount at any time.
func (DealStrategy) Releasable(params []*uint256.Int, _ uint64) (*uint256.Int, error) {
	if err := checkParams(Deal, params, 1); err != nil {
		return nil, err
	}
	return new(uint256.Int).Set(params[0]), nil
}
