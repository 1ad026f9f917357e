// Package tier classifies accumulated amounts into tiers and maps each tier
// to the strategy and offset template used to issue its records.
//
// Tiers are bands over a monotonic amount: the tier of an amount is the
// highest tier whose limit does not exceed it, and tier 0 covers every
// amount below the first limit.
package tier

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/holiman/uint256"

	"github.com/roach88/tiermigrate/internal/ir"
	"github.com/roach88/tiermigrate/internal/strategy"
)

// Count is the number of tiers every deployment configures.
const Count = 3

// Entry configures one tier.
type Entry struct {
	Strategy ir.StrategyID
	Template []uint64     // offsets in seconds, relative to the issuance anchor
	Limit    *uint256.Int // cumulative lower bound
}

// Classifier is an immutable tier table.
type Classifier struct {
	entries []Entry
}

// New validates entries against strategies and builds a Classifier.
// Entries must number exactly Count, with strictly increasing limits and a
// template each strategy accepts.
func New(entries []Entry, strategies *strategy.Set) (*Classifier, error) {
	if len(entries) != Count {
		return nil, ir.ErrInvalidConfig.With(fmt.Sprintf("want %d tiers, got %d", Count, len(entries)))
	}

	c := &Classifier{entries: make([]Entry, len(entries))}
	for i, e := range entries {
		if e.Limit == nil {
			return nil, ir.ErrInvalidConfig.With("tier limit missing", "tier", strconv.Itoa(i))
		}
		if i > 0 && !entries[i-1].Limit.Lt(e.Limit) {
			return nil, ir.ErrInvalidConfig.With("tier limits must be strictly increasing",
				"tier", strconv.Itoa(i),
				"limit", e.Limit.Dec(),
				"previous", entries[i-1].Limit.Dec(),
			)
		}
		st, err := strategies.Get(e.Strategy)
		if err != nil {
			return nil, ir.ErrInvalidConfig.With(err.Error(), "tier", strconv.Itoa(i))
		}
		if err := st.ValidateTemplate(e.Template); err != nil {
			return nil, ir.ErrInvalidConfig.With(err.Error(), "tier", strconv.Itoa(i))
		}

		c.entries[i] = Entry{
			Strategy: e.Strategy,
			Template: append([]uint64(nil), e.Template...),
			Limit:    new(uint256.Int).Set(e.Limit),
		}
	}
	return c, nil
}

// Classify returns the highest tier whose limit is <= amount, or Tier0 when
// amount is below every limit. Binary search over the sorted limits.
func (c *Classifier) Classify(amount *uint256.Int) ir.Tier {
	if amount == nil {
		return ir.Tier0
	}
	// First index whose limit exceeds amount.
	i := sort.Search(len(c.entries), func(i int) bool {
		return c.entries[i].Limit.Gt(amount)
	})
	if i == 0 {
		return ir.Tier0
	}
	return ir.Tier(i - 1)
}

// TemplateFor returns the strategy and offset template for t.
func (c *Classifier) TemplateFor(t ir.Tier) (ir.StrategyID, []uint64, error) {
	e, err := c.entry(t)
	if err != nil {
		return "", nil, err
	}
	return e.Strategy, append([]uint64(nil), e.Template...), nil
}

// Limit returns the lower bound of t.
func (c *Classifier) Limit(t ir.Tier) (*uint256.Int, error) {
	e, err := c.entry(t)
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).Set(e.Limit), nil
}

// Len returns the number of tiers.
func (c *Classifier) Len() int {
	return len(c.entries)
}

// Entries returns a copy of the table.
func (c *Classifier) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	for i, e := range c.entries {
		out[i] = Entry{
			Strategy: e.Strategy,
			Template: append([]uint64(nil), e.Template...),
			Limit:    new(uint256.Int).Set(e.Limit),
		}
	}
	return out
}

// Hash fingerprints the table so a store initialized with one table can
// refuse another.
func (c *Classifier) Hash() (string, error) {
	limits := make([]string, len(c.entries))
	templates := make(map[string]any, len(c.entries))
	for i, e := range c.entries {
		limits[i] = e.Limit.Dec()
		offsets := make([]any, len(e.Template))
		for j, o := range e.Template {
			offsets[j] = o
		}
		templates[strconv.Itoa(i)] = map[string]any{
			"strategy": string(e.Strategy),
			"offsets":  offsets,
		}
	}
	return ir.TierConfigHash(limits, templates)
}

func (c *Classifier) entry(t ir.Tier) (Entry, error) {
	if int(t) >= len(c.entries) {
		return Entry{}, ir.ErrInvalidTier.With("", "tier", strconv.Itoa(int(t)))
	}
	return c.entries[t], nil
}
