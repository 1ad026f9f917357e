package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/tiermigrate/internal/ir"
)

// NewHolderCommand creates the holder command.
func NewHolderCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "holder <address>",
		Short: "Show a holder's registry state",
		Long: `Show a holder's tier, accumulated amount, the total still held in
registry-issued records, and those records.`,
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

			hv, err := s.engine.Holder(commandContext(cmd), holder)
			if err != nil {
				return s.out.Fail("failed to read holder", err)
			}
			res := holderInfo(hv)
			return s.out.Result(res, func(w io.Writer) {
				fmt.Fprintf(w, "Holder: %s\n", res.Holder)
				fmt.Fprintf(w, "Tier:   %d\n", res.Tier)
				fmt.Fprintf(w, "Amount: %s\n", res.Amount)
				fmt.Fprintf(w, "Total:  %s\n", res.Total)
				for _, r := range res.Records {
					fmt.Fprintf(w, "  #%d %s remaining %s\n", r.ID, r.Strategy, r.Remaining)
				}
			})
		},
	}
}

// ClassifyResult reports the tier of an amount.
type ClassifyResult struct {
	Amount   string   `json:"amount"`
	Tier     ir.Tier  `json:"tier"`
	Strategy string   `json:"strategy"`
	Template []uint64 `json:"template"`
}

// NewClassifyCommand creates the classify command.
func NewClassifyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "classify <amount>",
		Short:         "Show which tier an accumulated amount falls in",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[0])
			if err != nil {
				return err
			}

			s, err := openSession(commandContext(cmd), rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			t := s.engine.Classify(amount)
			e := s.engine.Deployment().Tiers[t]
			res := ClassifyResult{
				Amount:   amount.Dec(),
				Tier:     t,
				Strategy: string(e.Strategy),
				Template: append([]uint64{}, e.Template...),
			}
			return s.out.Result(res, func(w io.Writer) {
				fmt.Fprintf(w, "%s is tier %d (%s %v)\n", res.Amount, res.Tier, res.Strategy, res.Template)
			})
		},
	}
}

// AuthorityResult reports the migration handoff state.
type AuthorityResult struct {
	Asset      string `json:"asset"`
	State      string `json:"state"`
	Controller string `json:"controller,omitempty"`
	Registry   string `json:"registry,omitempty"`
	At         uint64 `json:"at,omitempty"`
}

// NewAuthorityCommand creates the authority command.
func NewAuthorityCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "authority",
		Short:         "Show the migration handoff state",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(commandContext(cmd), rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			auth, err := s.engine.Authority(commandContext(cmd))
			if err != nil {
				return s.out.Fail("failed to read authority", err)
			}
			res := AuthorityResult{Asset: auth.Asset.Hex()}
			switch st := auth.State.(type) {
			case ir.Pending:
				res.State = "pending"
				res.Controller = st.Controller.Hex()
			case ir.Finalized:
				res.State = "finalized"
				res.Registry = st.Registry.Hex()
				res.At = st.At
			}
			return s.out.Result(res, func(w io.Writer) {
				switch res.State {
				case "pending":
					fmt.Fprintf(w, "Pending: controller %s\n", res.Controller)
				default:
					fmt.Fprintf(w, "Finalized: registry %s at %d\n", res.Registry, res.At)
				}
			})
		},
	}
}

// BalanceResult reports a custody balance.
type BalanceResult struct {
	Account string `json:"account"`
	Asset   string `json:"asset"`
	Balance string `json:"balance"`
}

// NewBalanceCommand creates the balance command.
func NewBalanceCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "balance <account>",
		Short:         "Show an account's asset balance",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := parseAddress("account", args[0])
			if err != nil {
				return err
			}

			s, err := openSession(commandContext(cmd), rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			bal, err := s.engine.Balance(commandContext(cmd), account)
			if err != nil {
				return s.out.Fail("failed to read balance", err)
			}
			res := BalanceResult{
				Account: account.Hex(),
				Asset:   s.engine.Deployment().Asset.Hex(),
				Balance: ir.FormatAmount(bal),
			}
			return s.out.Result(res, func(w io.Writer) {
				fmt.Fprintf(w, "%s holds %s of %s\n", res.Account, res.Balance, res.Asset)
			})
		},
	}
}
