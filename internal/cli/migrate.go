package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/tiermigrate/internal/ir"
	"github.com/roach88/tiermigrate/internal/migrator"
)

// FinalizeResult reports the migration handoff.
type FinalizeResult struct {
	Flow     string `json:"flow"`
	Registry string `json:"registry"`
	At       uint64 `json:"at"`
}

// NewFinalizeCommand creates the finalize command.
func NewFinalizeCommand(rootOpts *RootOptions) *cobra.Command {
	var caller, target string

	cmd := &cobra.Command{
		Use:   "finalize",
		Short: "Hand the migration over to the registry",
		Long: `Hand the migration over to the registry. Only the controller may do
this, and only once. Migration entry points stay closed until it happens.

Examples:
  tiermigrate finalize
  tiermigrate finalize --caller 0x00000000000000000000000000000000000000c1`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(commandContext(cmd), rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			d := s.engine.Deployment()
			from, err := parseAddressOr("caller", caller, d.Addresses.Controller)
			if err != nil {
				return err
			}
			to, err := parseAddressOr("target", target, d.Addresses.Registry)
			if err != nil {
				return err
			}

			ctx, flow := s.withFlow(commandContext(cmd))
			if err := s.engine.Finalize(ctx, from, to); err != nil {
				return s.out.Fail("finalize failed", err)
			}
			auth, err := s.engine.Authority(ctx)
			if err != nil {
				return s.out.Fail("failed to read authority", err)
			}
			res := FinalizeResult{Flow: flow, Registry: auth.Registry().Hex()}
			if f, ok := auth.State.(ir.Finalized); ok {
				res.At = f.At
			}
			return s.out.Result(res, func(w io.Writer) {
				fmt.Fprintf(w, "Finalized: registry %s at %d\n", res.Registry, res.At)
			})
		},
	}

	cmd.Flags().StringVar(&caller, "caller", "", "calling address (default: the controller)")
	cmd.Flags().StringVar(&target, "target", "", "registry to hand over to (default: the deployment registry)")

	return cmd
}

// MigrateResult reports a migration entry point call.
type MigrateResult struct {
	Flow   string       `json:"flow"`
	Holder string       `json:"holder"`
	Issued bool         `json:"issued"`
	Amount string       `json:"amount"`
	Record *ir.RecordID `json:"record,omitempty"`
}

func migrateResult(flow, holder string, mr migrator.MigrateResult) MigrateResult {
	res := MigrateResult{Flow: flow, Holder: holder, Issued: mr.Issued, Amount: ir.FormatAmount(mr.Amount)}
	if mr.Issued {
		id := mr.RecordID
		res.Record = &id
	}
	return res
}

func printMigrate(w io.Writer, res MigrateResult) {
	if !res.Issued {
		fmt.Fprintf(w, "Nothing to migrate for %s\n", res.Holder)
		return
	}
	fmt.Fprintf(w, "Migrated %s for %s as record %d\n", res.Amount, res.Holder, *res.Record)
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate <holder>",
		Short: "Migrate a holder's whole legacy position",
		Long: `Redeem the holder's whole legacy position, together with any pending
governor credit, and issue it into the registry as one record. The
migration must be finalized.`,
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
			mr, err := s.engine.FullMigrate(ctx, holder)
			if err != nil {
				return s.out.Fail("migrate failed", err)
			}
			res := migrateResult(flow, holder.Hex(), mr)
			return s.out.Result(res, func(w io.Writer) { printMigrate(w, res) })
		},
	}
}

// NewWithdrawV1Command creates the withdraw-v1 command.
func NewWithdrawV1Command(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "withdraw-v1 <holder>",
		Short: "Issue credit left by governor redemptions",
		Long: `Issue the holder's pending credit, left by earlier governor
redemptions, into the registry without touching their legacy position.`,
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
			mr, err := s.engine.WithdrawV1(ctx, holder)
			if err != nil {
				return s.out.Fail("withdraw-v1 failed", err)
			}
			res := migrateResult(flow, holder.Hex(), mr)
			return s.out.Result(res, func(w io.Writer) { printMigrate(w, res) })
		},
	}
}
