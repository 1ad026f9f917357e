package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/tiermigrate/internal/ir"
)

// FundResult reports a custody credit.
type FundResult struct {
	Flow    string `json:"flow"`
	Account string `json:"account"`
	Amount  string `json:"amount"`
	Balance string `json:"balance"`
}

// NewFundCommand creates the fund command.
func NewFundCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fund <account> <amount>",
		Short: "Credit asset units to an account",
		Long: `Credit asset units to an account's custody balance.

Holders need a balance before they can deposit into the legacy vault.

Examples:
  tiermigrate fund 0x00000000000000000000000000000000000a11ce 10000`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFund(rootOpts, cmd, args)
		},
	}
}

func runFund(opts *RootOptions, cmd *cobra.Command, args []string) error {
	account, err := parseAddress("account", args[0])
	if err != nil {
		return err
	}
	amount, err := parseAmount(args[1])
	if err != nil {
		return err
	}

	s, err := openSession(commandContext(cmd), opts, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, flow := s.withFlow(commandContext(cmd))
	if err := s.engine.Fund(ctx, account, amount); err != nil {
		return s.out.Fail("fund failed", err)
	}
	bal, err := s.engine.Balance(ctx, account)
	if err != nil {
		return s.out.Fail("failed to read balance", err)
	}

	res := FundResult{Flow: flow, Account: account.Hex(), Amount: amount.Dec(), Balance: ir.FormatAmount(bal)}
	return s.out.Result(res, func(w io.Writer) {
		fmt.Fprintf(w, "Funded %s with %s (balance %s)\n", res.Account, res.Amount, res.Balance)
	})
}
