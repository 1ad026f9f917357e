package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/tiermigrate/internal/config"
	"github.com/roach88/tiermigrate/internal/ir"
)

// NewLegacyCommand groups the legacy vault operations.
func NewLegacyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "legacy",
		Short: "Operate the legacy vault",
		Long: `Operate the legacy time-locked vault that is being migrated away from.

Holders deposit with start, cliff and finish delays, approve governor
redemption, and withdraw matured positions.`,
	}

	cmd.AddCommand(newLegacyDepositCommand(rootOpts))
	cmd.AddCommand(newLegacyApproveCommand(rootOpts))
	cmd.AddCommand(newLegacyWithdrawCommand(rootOpts))
	cmd.AddCommand(newLegacyRedeemCommand(rootOpts))
	cmd.AddCommand(newLegacyShowCommand(rootOpts))
	cmd.AddCommand(newLegacySetPoolCreatorCommand(rootOpts))

	return cmd
}

// PositionResult reports a holder's legacy position after a call.
type PositionResult struct {
	Flow     string       `json:"flow,omitempty"`
	Position PositionInfo `json:"position"`
}

func printPosition(w io.Writer, p PositionInfo) {
	fmt.Fprintf(w, "Holder:   %s\n", p.Holder)
	fmt.Fprintf(w, "Amount:   %s\n", p.Amount)
	fmt.Fprintf(w, "Delays:   start %ds, cliff %ds, finish %ds\n", p.StartDelay, p.CliffDelay, p.FinishDelay)
	fmt.Fprintf(w, "Created:  %d\n", p.CreatedAt)
	fmt.Fprintf(w, "Approved: %t\n", p.Approved)
	if p.Pending != "0" {
		fmt.Fprintf(w, "Pending:  %s\n", p.Pending)
	}
}

type legacyDepositOptions struct {
	start, cliff, finish uint64
}

func newLegacyDepositCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &legacyDepositOptions{}

	cmd := &cobra.Command{
		Use:   "deposit <holder> <amount>",
		Short: "Deposit into the legacy vault",
		Long: `Move amount from the holder's balance into their legacy position.

The delays are seconds from the deposit. A second deposit adds to the
amount and replaces the delays.

Examples:
  tiermigrate legacy deposit 0x00000000000000000000000000000000000a11ce 5000 --finish 604800`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			holder, err := parseAddress("holder", args[0])
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}

			s, err := openSession(commandContext(cmd), rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, flow := s.withFlow(commandContext(cmd))
			if _, err := s.engine.Deposit(ctx, holder, amount, opts.start, opts.cliff, opts.finish); err != nil {
				return s.out.Fail("deposit failed", err)
			}
			pv, err := s.engine.Position(ctx, holder)
			if err != nil {
				return s.out.Fail("failed to read position", err)
			}
			res := PositionResult{Flow: flow, Position: positionInfo(holder, pv)}
			return s.out.Result(res, func(w io.Writer) { printPosition(w, res.Position) })
		},
	}

	cmd.Flags().Uint64Var(&opts.start, "start", 0, "start delay in seconds")
	cmd.Flags().Uint64Var(&opts.cliff, "cliff", 0, "cliff delay in seconds")
	cmd.Flags().Uint64Var(&opts.finish, "finish", 0, "finish delay in seconds")

	return cmd
}

func newLegacyApproveCommand(rootOpts *RootOptions) *cobra.Command {
	var revoke bool

	cmd := &cobra.Command{
		Use:   "approve <holder>",
		Short: "Consent to governor redemption",
		Long: `Record the holder's consent to have their position redeemed by the
governor. Use --revoke to withdraw consent.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			holder, err := parseAddress("holder", args[0])
			if err != nil {
				return err
			}

			s, err := openSession(commandContext(cmd), rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, flow := s.withFlow(commandContext(cmd))
			if err := s.engine.Approve(ctx, holder, !revoke); err != nil {
				return s.out.Fail("approve failed", err)
			}
			pv, err := s.engine.Position(ctx, holder)
			if err != nil {
				return s.out.Fail("failed to read position", err)
			}
			res := PositionResult{Flow: flow, Position: positionInfo(holder, pv)}
			return s.out.Result(res, func(w io.Writer) {
				fmt.Fprintf(w, "Redemption approval for %s: %t\n", res.Position.Holder, res.Position.Approved)
			})
		},
	}

	cmd.Flags().BoolVar(&revoke, "revoke", false, "revoke a previous approval")

	return cmd
}

// LegacyWithdrawResult reports a matured legacy withdrawal.
type LegacyWithdrawResult struct {
	Flow    string       `json:"flow"`
	Holder  string       `json:"holder"`
	Amount  string       `json:"amount"`
	Creator string       `json:"creator"`
	Record  *ir.RecordID `json:"record,omitempty"`
}

func newLegacyWithdrawCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "withdraw <holder>",
		Short: "Withdraw a matured legacy position",
		Long: `Withdraw the holder's whole legacy position once its finish delay has
passed. With a pool creator configured the funds go through it and are
issued as a record; otherwise they return to the holder's balance.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			holder, err := parseAddress("holder", args[0])
			if err != nil {
				return err
			}

			s, err := openSession(commandContext(cmd), rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, flow := s.withFlow(commandContext(cmd))
			wr, err := s.engine.LegacyWithdraw(ctx, holder)
			if err != nil {
				return s.out.Fail("legacy withdraw failed", err)
			}

			res := LegacyWithdrawResult{
				Flow:    flow,
				Holder:  holder.Hex(),
				Amount:  ir.FormatAmount(wr.Amount),
				Creator: addressOrNone(wr.Creator),
			}
			if res.Creator != "none" {
				id := wr.RecordID
				res.Record = &id
			}
			return s.out.Result(res, func(w io.Writer) {
				fmt.Fprintf(w, "Withdrew %s for %s\n", res.Amount, res.Holder)
				if res.Record != nil {
					fmt.Fprintf(w, "  via %s, record %d\n", res.Creator, *res.Record)
				}
			})
		},
	}
}

func newLegacyRedeemCommand(rootOpts *RootOptions) *cobra.Command {
	var caller string

	cmd := &cobra.Command{
		Use:   "redeem <holder> <amount>",
		Short: "Redeem an approved position as governor",
		Long: `Move amount out of an approved holder's position to the governor. The
amount is credited to the holder as pending, to be issued by withdraw-v1
once the migration is finalized.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			holder, err := parseAddress("holder", args[0])
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}

			s, err := openSession(commandContext(cmd), rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			from, err := parseAddressOr("caller", caller, s.engine.Deployment().Addresses.Governor)
			if err != nil {
				return err
			}
			ctx, flow := s.withFlow(commandContext(cmd))
			if err := s.engine.Redeem(ctx, from, holder, amount); err != nil {
				return s.out.Fail("redeem failed", err)
			}
			pv, err := s.engine.Position(ctx, holder)
			if err != nil {
				return s.out.Fail("failed to read position", err)
			}
			res := PositionResult{Flow: flow, Position: positionInfo(holder, pv)}
			return s.out.Result(res, func(w io.Writer) {
				fmt.Fprintf(w, "Redeemed %s from %s\n", amount.Dec(), res.Position.Holder)
				printPosition(w, res.Position)
			})
		},
	}

	cmd.Flags().StringVar(&caller, "caller", "", "calling address (default: the governor)")

	return cmd
}

func newLegacyShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <holder>",
		Short:         "Show a legacy position",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			holder, err := parseAddress("holder", args[0])
			if err != nil {
				return err
			}

			s, err := openSession(commandContext(cmd), rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			pv, err := s.engine.Position(commandContext(cmd), holder)
			if err != nil {
				return s.out.Fail("failed to read position", err)
			}
			res := PositionResult{Position: positionInfo(holder, pv)}
			return s.out.Result(res, func(w io.Writer) { printPosition(w, res.Position) })
		},
	}
}

// PoolCreatorResult reports the selected pool creator.
type PoolCreatorResult struct {
	Flow        string `json:"flow"`
	PoolCreator string `json:"pool_creator"`
}

func newLegacySetPoolCreatorCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set-pool-creator <none|orchestrator|light>",
		Short: "Select where matured legacy withdrawals go",
		Long: `Select the pool creator legacy withdrawals are routed through.

  none          pay the holder directly
  orchestrator  issue a record through the orchestrator
  light         issue a record through the light interceptor`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			which, err := config.ParsePoolCreator(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid pool creator", err)
			}

			s, err := openSession(commandContext(cmd), rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, flow := s.withFlow(commandContext(cmd))
			if err := s.engine.SetPoolCreator(ctx, which); err != nil {
				return s.out.Fail("set pool creator failed", err)
			}
			res := PoolCreatorResult{Flow: flow, PoolCreator: string(which)}
			return s.out.Result(res, func(w io.Writer) {
				fmt.Fprintf(w, "Pool creator: %s\n", res.PoolCreator)
			})
		},
	}
}
