package cli

import (
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/roach88/tiermigrate/internal/ir"
)

// IssueResult reports a direct issuance.
type IssueResult struct {
	Flow   string      `json:"flow"`
	Record ir.RecordID `json:"record"`
	Holder HolderInfo  `json:"holder"`
}

// NewIssueCommand creates the issue command.
func NewIssueCommand(rootOpts *RootOptions) *cobra.Command {
	var caller string

	cmd := &cobra.Command{
		Use:   "issue <holder> <amount>",
		Short: "Issue a record from the caller's balance",
		Long: `Issue amount from the caller's balance to the holder as a record shaped
by the holder's tier. Only the finalized authority may issue unless the
deployment allows direct issuance.

Examples:
  tiermigrate issue 0x00000000000000000000000000000000000a11ce 5000 --caller 0x0000000000000000000000000000000000000b0b`,
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
			from, err := parseAddress("caller", caller)
			if err != nil {
				return err
			}

			s, err := openSession(commandContext(cmd), rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, flow := s.withFlow(commandContext(cmd))
			id, err := s.engine.Issue(ctx, from, holder, amount)
			if err != nil {
				return s.out.Fail("issue failed", err)
			}
			hv, err := s.engine.Holder(ctx, holder)
			if err != nil {
				return s.out.Fail("failed to read holder", err)
			}
			res := IssueResult{Flow: flow, Record: id, Holder: holderInfo(hv)}
			return s.out.Result(res, func(w io.Writer) {
				fmt.Fprintf(w, "Issued record %d to %s (tier %d)\n", res.Record, res.Holder.Holder, res.Holder.Tier)
			})
		},
	}

	cmd.Flags().StringVar(&caller, "caller", "", "issuing address (required)")
	_ = cmd.MarkFlagRequired("caller")

	return cmd
}

// TransferResult reports a record transfer.
type TransferResult struct {
	Flow   string      `json:"flow"`
	Record ir.RecordID `json:"record"`
	From   string      `json:"from"`
	To     string      `json:"to"`
}

// NewTransferCommand creates the transfer command.
func NewTransferCommand(rootOpts *RootOptions) *cobra.Command {
	var caller string

	cmd := &cobra.Command{
		Use:   "transfer <record> <to>",
		Short: "Transfer a record",
		Long: `Transfer a record the caller owns. Transferring a registry-issued
record resets the sender's tier.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRecordID(args[0])
			if err != nil {
				return err
			}
			to, err := parseAddress("recipient", args[1])
			if err != nil {
				return err
			}
			from, err := parseAddress("caller", caller)
			if err != nil {
				return err
			}

			s, err := openSession(commandContext(cmd), rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, flow := s.withFlow(commandContext(cmd))
			if err := s.engine.Transfer(ctx, from, id, to); err != nil {
				return s.out.Fail("transfer failed", err)
			}
			res := TransferResult{Flow: flow, Record: id, From: from.Hex(), To: to.Hex()}
			return s.out.Result(res, func(w io.Writer) {
				fmt.Fprintf(w, "Transferred record %d from %s to %s\n", res.Record, res.From, res.To)
			})
		},
	}

	cmd.Flags().StringVar(&caller, "caller", "", "current owner (required)")
	_ = cmd.MarkFlagRequired("caller")

	return cmd
}

// WithdrawResult reports a record payout.
type WithdrawResult struct {
	Flow      string      `json:"flow"`
	Record    ir.RecordID `json:"record"`
	Paid      string      `json:"paid"`
	Remaining string      `json:"remaining"`
}

// NewWithdrawCommand creates the withdraw command.
func NewWithdrawCommand(rootOpts *RootOptions) *cobra.Command {
	var caller string

	cmd := &cobra.Command{
		Use:           "withdraw <record>",
		Short:         "Withdraw what a record has released",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRecordID(args[0])
			if err != nil {
				return err
			}
			from, err := parseAddress("caller", caller)
			if err != nil {
				return err
			}

			s, err := openSession(commandContext(cmd), rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, flow := s.withFlow(commandContext(cmd))
			paid, err := s.engine.WithdrawRecord(ctx, from, id)
			if err != nil {
				return s.out.Fail("withdraw failed", err)
			}
			res := WithdrawResult{Flow: flow, Record: id, Paid: ir.FormatAmount(paid), Remaining: "0"}
			recs, err := s.engine.Records(ctx, from)
			if err != nil {
				return s.out.Fail("failed to read records", err)
			}
			for _, rv := range recs {
				if rv.ID == id {
					res.Remaining = ir.FormatAmount(rv.Remaining())
				}
			}
			return s.out.Result(res, func(w io.Writer) {
				fmt.Fprintf(w, "Withdrew %s from record %d (%s remaining)\n", res.Paid, res.Record, res.Remaining)
			})
		},
	}

	cmd.Flags().StringVar(&caller, "caller", "", "record owner (required)")
	_ = cmd.MarkFlagRequired("caller")

	return cmd
}

// RecordsResult lists ledger records.
type RecordsResult struct {
	Owner   string       `json:"owner,omitempty"`
	Records []RecordInfo `json:"records"`
}

// NewRecordsCommand creates the records command.
func NewRecordsCommand(rootOpts *RootOptions) *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "records",
		Short: "List ledger records",
		Long: `List ledger records in ascending id order, with what each could pay out
now. Use --owner to list one address's records.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			who, err := parseAddressOr("owner", owner, common.Address{})
			if err != nil {
				return err
			}

			s, err := openSession(commandContext(cmd), rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			recs, err := s.engine.Records(commandContext(cmd), who)
			if err != nil {
				return s.out.Fail("failed to read records", err)
			}
			res := RecordsResult{Records: []RecordInfo{}}
			if owner != "" {
				res.Owner = who.Hex()
			}
			for _, rv := range recs {
				res.Records = append(res.Records, recordViewInfo(rv))
			}
			return s.out.Result(res, func(w io.Writer) {
				if len(res.Records) == 0 {
					fmt.Fprintln(w, "No records")
					return
				}
				for _, r := range res.Records {
					fmt.Fprintf(w, "#%d %s %s remaining %s withdrawable %s\n",
						r.ID, r.Owner, r.Strategy, r.Remaining, r.Withdrawable)
				}
			})
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "only list records owned by this address")

	return cmd
}
