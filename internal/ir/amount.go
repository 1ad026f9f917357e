package ir

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// ParseAmount parses a base-10 amount. Underscores are accepted as digit
// separators so configs can write 20_000.
func ParseAmount(s string) (*uint256.Int, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(s), "_", "")
	if clean == "" {
		return nil, fmt.Errorf("parse amount: empty")
	}
	v, err := uint256.FromDecimal(clean)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return v, nil
}

// MustAmount is like ParseAmount but panics on error.
// Use only in tests or with constant input.
func MustAmount(s string) *uint256.Int {
	v, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return v
}

// FormatAmount renders an amount as a decimal string; nil renders as "0".
func FormatAmount(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

// AddAmounts returns a+b, failing on 256-bit overflow.
func AddAmounts(a, b *uint256.Int) (*uint256.Int, error) {
	sum, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		return nil, fmt.Errorf("amount overflow: %s + %s", FormatAmount(a), FormatAmount(b))
	}
	return sum, nil
}

// SubAmounts returns a-b, failing when b > a.
func SubAmounts(a, b *uint256.Int) (*uint256.Int, error) {
	diff, underflow := new(uint256.Int).SubOverflow(a, b)
	if underflow {
		return nil, fmt.Errorf("amount underflow: %s - %s", FormatAmount(a), FormatAmount(b))
	}
	return diff, nil
}
