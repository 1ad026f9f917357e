package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/roach88/tiermigrate/internal/engine"
	"github.com/roach88/tiermigrate/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s\n", event.Seq, event.Kind, event.Flow)
		}
	}

	return buf.String()
}

// AssertionContext gives state assertions access to the finished run.
type AssertionContext struct {
	Ctx    context.Context
	Engine *engine.Engine
	Names  map[string]common.Address
}

func (c *AssertionContext) addr(name string) (common.Address, error) {
	if a, ok := c.Names[name]; ok {
		return a, nil
	}
	if common.IsHexAddress(name) {
		return common.HexToAddress(name), nil
	}
	return common.Address{}, fmt.Errorf("unknown address %q", name)
}

// EvaluateAssertions checks every assertion and returns the failure
// messages, in assertion order.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		case AssertHolder:
			err = assertHolder(actx, a)
		case AssertBalance:
			err = assertBalance(actx, a)
		case AssertRecord:
			err = assertRecord(actx, a)
		case AssertAuthority:
			err = assertAuthority(actx, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

// assertTraceCount checks that kind appears exactly the specified number
// of times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Kind == assertion.Kind {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Kind),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertTraceOrder checks that kinds appear in the specified order.
// Kinds don't need to be consecutive (intervening events are allowed), and
// each expected kind is matched after the previous match.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	pos := 0
	for _, kind := range assertion.Kinds {
		found := false
		for pos < len(trace) {
			pos++
			if trace[pos-1].Kind == kind {
				found = true
				break
			}
		}
		if !found {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("events in order: %v", assertion.Kinds),
				Actual:   fmt.Sprintf("%s not found after position %d", kind, pos),
				Trace:    trace,
			}
		}
	}
	return nil
}

func assertHolder(actx *AssertionContext, a Assertion) error {
	holder, err := actx.addr(a.Holder)
	if err != nil {
		return err
	}
	hv, err := actx.Engine.Holder(actx.Ctx, holder)
	if err != nil {
		return err
	}

	if a.Tier != nil && hv.Tier != ir.Tier(*a.Tier) {
		return mismatch(AssertHolder, a.Holder+" tier", *a.Tier, hv.Tier)
	}
	if err := checkAmount(AssertHolder, a.Holder+" amount", a.Amount, hv.Amount); err != nil {
		return err
	}
	if err := checkAmount(AssertHolder, a.Holder+" total", a.Total, hv.Total); err != nil {
		return err
	}
	if a.Records != nil && len(hv.Records) != *a.Records {
		return mismatch(AssertHolder, a.Holder+" records", *a.Records, len(hv.Records))
	}
	return nil
}

func assertBalance(actx *AssertionContext, a Assertion) error {
	account, err := actx.addr(a.Account)
	if err != nil {
		return err
	}
	bal, err := actx.Engine.Balance(actx.Ctx, account)
	if err != nil {
		return err
	}
	return checkAmount(AssertBalance, a.Account+" balance", a.Amount, bal)
}

func assertRecord(actx *AssertionContext, a Assertion) error {
	recs, err := actx.Engine.Records(actx.Ctx, common.Address{})
	if err != nil {
		return err
	}
	for _, rec := range recs {
		if rec.ID != ir.RecordID(a.Record) {
			continue
		}
		label := fmt.Sprintf("record %d", a.Record)
		if a.Owner != "" {
			owner, err := actx.addr(a.Owner)
			if err != nil {
				return err
			}
			if rec.Owner != owner {
				return mismatch(AssertRecord, label+" owner", a.Owner, rec.Owner.Hex())
			}
		}
		if a.Strategy != "" && string(rec.Strategy) != a.Strategy {
			return mismatch(AssertRecord, label+" strategy", a.Strategy, rec.Strategy)
		}
		if err := checkAmount(AssertRecord, label+" remaining", a.Amount, rec.Remaining()); err != nil {
			return err
		}
		return checkAmount(AssertRecord, label+" withdrawable", a.Withdrawable, rec.Withdrawable)
	}
	return &AssertionError{
		Type:     AssertRecord,
		Expected: fmt.Sprintf("record %d", a.Record),
		Actual:   "not found",
	}
}

func assertAuthority(actx *AssertionContext, a Assertion) error {
	auth, err := actx.Engine.Authority(actx.Ctx)
	if err != nil {
		return err
	}
	state := "pending"
	if auth.IsFinalized() {
		state = "finalized"
	}
	if state != a.State {
		return mismatch(AssertAuthority, "state", a.State, state)
	}
	return nil
}

// checkAmount compares want (decimal, empty to skip) against got.
func checkAmount(typ, what, want string, got *uint256.Int) error {
	if want == "" {
		return nil
	}
	w, err := ir.ParseAmount(want)
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if got == nil || !got.Eq(w) {
		return mismatch(typ, what, w.Dec(), ir.FormatAmount(got))
	}
	return nil
}

func mismatch(typ, what string, want, got any) *AssertionError {
	return &AssertionError{
		Type:     typ,
		Expected: fmt.Sprintf("%s = %v", what, want),
		Actual:   fmt.Sprintf("%s = %v", what, got),
	}
}
