package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/roach88/tiermigrate/internal/config"
	"github.com/roach88/tiermigrate/internal/engine"
	"github.com/roach88/tiermigrate/internal/ir"
	"github.com/roach88/tiermigrate/internal/store"
	"github.com/roach88/tiermigrate/internal/testutil"
)

// componentOrder fixes which name wins when two components share an
// address (the default governor is the orchestrator).
var componentOrder = []string{
	"asset",
	"legacy_vault",
	"orchestrator",
	"registry",
	"light",
	"ledger_vault",
	"controller",
	"governor",
}

var componentNames = map[string]func(*config.Deployment) common.Address{
	"asset":        func(d *config.Deployment) common.Address { return d.Asset },
	"legacy_vault": func(d *config.Deployment) common.Address { return d.Addresses.LegacyVault },
	"orchestrator": func(d *config.Deployment) common.Address { return d.Addresses.Orchestrator },
	"registry":     func(d *config.Deployment) common.Address { return d.Addresses.Registry },
	"light":        func(d *config.Deployment) common.Address { return d.Addresses.Light },
	"ledger_vault": func(d *config.Deployment) common.Address { return d.Addresses.LedgerVault },
	"controller":   func(d *config.Deployment) common.Address { return d.Addresses.Controller },
	"governor":     func(d *config.Deployment) common.Address { return d.Addresses.Governor },
}

// Harness executes one scenario.
type Harness struct {
	engine *engine.Engine
	clock  *testutil.ManualClock
	names  map[string]common.Address
	flow   string
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Step failures and assertion failures are reported in the result; the
// returned error is for scenarios that could not be executed at all.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	d, err := scenario.deployment()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	flow := scenario.FlowToken
	if flow == "" {
		flow = scenario.Name
	}
	clock := testutil.NewManualClock(scenario.Start)

	eng, err := engine.New(st, d,
		engine.WithClock(clock),
		engine.WithFlowGenerator(testutil.NewFixedFlowGenerator(flow+"/init")),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), // Suppress logs in tests
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build engine: %w", err)
	}
	if err := eng.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	names, err := scenario.names(d)
	if err != nil {
		return nil, err
	}
	h := &Harness{engine: eng, clock: clock, names: names, flow: flow}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i+1, step.Op, err)
		}
	}

	events, err := eng.Events(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}
	result.AddEvents(events)

	actx := &AssertionContext{Ctx: ctx, Engine: eng, Names: names}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// deployment builds the default deployment with the scenario's overrides
// appended to its source, so they go through the same schema checks.
func (s *Scenario) deployment() (*config.Deployment, error) {
	src := config.DefaultSource()
	if s.Config.PoolCreator != "" {
		src = fmt.Appendf(src, "\npool_creator: %q\n", s.Config.PoolCreator)
	}
	if s.Config.ZeroBalance != "" {
		src = fmt.Appendf(src, "\nzero_balance: %q\n", s.Config.ZeroBalance)
	}
	if s.Config.DirectIssuance {
		src = fmt.Appendf(src, "\ndirect_issuance: true\n")
	}
	d, err := config.Parse(s.Name+".cue", src)
	if err != nil {
		return nil, fmt.Errorf("scenario config: %w", err)
	}
	return d, nil
}

func (s *Scenario) names(d *config.Deployment) (map[string]common.Address, error) {
	names := make(map[string]common.Address, len(componentNames)+len(s.Actors))
	for name, addr := range componentNames {
		names[name] = addr(d)
	}
	for name, hex := range s.Actors {
		if !common.IsHexAddress(hex) {
			return nil, fmt.Errorf("actor %s: %q is not a hex address", name, hex)
		}
		names[name] = common.HexToAddress(hex)
	}
	return names, nil
}

func (h *Harness) addr(name string) (common.Address, error) {
	if a, ok := h.names[name]; ok {
		return a, nil
	}
	if common.IsHexAddress(name) {
		return common.HexToAddress(name), nil
	}
	return common.Address{}, fmt.Errorf("unknown address %q", name)
}

// executeStep runs one step under its own flow token. Domain errors are
// compared with expect_error; anything else aborts the scenario.
func (h *Harness) executeStep(ctx context.Context, index int, step Step, result *Result) error {
	if step.Op == OpAdvance {
		h.clock.Advance(step.Seconds)
		return nil
	}

	ctx = engine.WithFlow(ctx, fmt.Sprintf("%s/%d", h.flow, index+1))
	got, err := h.call(ctx, step)
	if err != nil && !engine.IsDomainError(err) {
		return err
	}

	label := fmt.Sprintf("step %d (%s)", index+1, step.Op)
	if step.ExpectError != "" {
		switch code := ir.CodeOf(err); {
		case err == nil:
			result.AddError(fmt.Sprintf("%s: expected %s, got success", label, step.ExpectError))
		case string(code) != step.ExpectError:
			result.AddError(fmt.Sprintf("%s: expected %s, got %s: %v", label, step.ExpectError, code, err))
		}
		return nil
	}
	if err != nil {
		result.AddError(fmt.Sprintf("%s: unexpected error: %v", label, err))
		return nil
	}

	if step.ExpectAmount != "" {
		want, perr := ir.ParseAmount(step.ExpectAmount)
		if perr != nil {
			return fmt.Errorf("expect_amount: %w", perr)
		}
		if got == nil || !got.Eq(want) {
			result.AddError(fmt.Sprintf("%s: expected amount %s, got %s", label, want.Dec(), ir.FormatAmount(got)))
		}
	}
	return nil
}

// call performs the step's entry point and returns the amount it reports,
// if any.
func (h *Harness) call(ctx context.Context, step Step) (*uint256.Int, error) {
	var (
		caller, holder, account, to, target common.Address
		amount                              *uint256.Int
		err                                 error
	)
	resolve := func(dst *common.Address, name string) {
		if err == nil && name != "" {
			*dst, err = h.addr(name)
		}
	}
	resolve(&caller, step.Caller)
	resolve(&holder, step.Holder)
	resolve(&account, step.Account)
	resolve(&to, step.To)
	resolve(&target, step.Target)
	if err == nil && step.Amount != "" {
		amount, err = ir.ParseAmount(step.Amount)
	}
	if err != nil {
		return nil, err
	}

	eng := h.engine
	switch step.Op {
	case OpFund:
		return nil, eng.Fund(ctx, account, amount)

	case OpDeposit:
		_, err := eng.Deposit(ctx, holder, amount, step.Start, step.Cliff, step.Finish)
		return nil, err

	case OpApprove:
		approved := step.Approved == nil || *step.Approved
		return nil, eng.Approve(ctx, holder, approved)

	case OpLegacyWithdraw:
		res, err := eng.LegacyWithdraw(ctx, holder)
		return res.Amount, err

	case OpRedeem:
		return nil, eng.Redeem(ctx, caller, holder, amount)

	case OpSetPoolCreator:
		return nil, eng.SetPoolCreator(ctx, config.PoolCreator(step.Creator))

	case OpFinalize:
		return nil, eng.Finalize(ctx, caller, target)

	case OpFullMigrate:
		res, err := eng.FullMigrate(ctx, caller)
		return res.Amount, err

	case OpWithdrawV1:
		res, err := eng.WithdrawV1(ctx, caller)
		return res.Amount, err

	case OpIssue:
		_, err := eng.Issue(ctx, caller, holder, amount)
		return nil, err

	case OpTransfer:
		return nil, eng.Transfer(ctx, caller, ir.RecordID(step.Record), to)

	case OpWithdrawRecord:
		return eng.WithdrawRecord(ctx, caller, ir.RecordID(step.Record))
	}
	return nil, errors.New("unknown op " + step.Op)
}
