package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/tiermigrate/internal/ir"
)

// TierInfo describes one tier of the deployment.
type TierInfo struct {
	Tier     ir.Tier  `json:"tier"`
	Limit    string   `json:"limit"`
	Strategy string   `json:"strategy"`
	Template []uint64 `json:"template"`
}

// InitResult describes an initialized database.
type InitResult struct {
	Database     string     `json:"database"`
	Asset        string     `json:"asset"`
	LegacyVault  string     `json:"legacy_vault"`
	Orchestrator string     `json:"orchestrator"`
	Registry     string     `json:"registry"`
	Light        string     `json:"light"`
	Controller   string     `json:"controller"`
	PoolCreator  string     `json:"pool_creator"`
	ZeroBalance  string     `json:"zero_balance"`
	Tiers        []TierInfo `json:"tiers"`
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a database for the deployment",
		Long: `Initialize a database for the deployment.

The first run writes the Pending authority, the legacy governor and the
configured pool creator. Later runs only verify that the database was
created with the same tier table.

Examples:
  tiermigrate init --db ./migration.db
  tiermigrate init --db ./migration.db --config ./deployment.cue`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(rootOpts, cmd)
		},
	}
}

func runInit(opts *RootOptions, cmd *cobra.Command) error {
	s, err := openSession(commandContext(cmd), opts, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	d := s.engine.Deployment()
	res := InitResult{
		Database:     opts.Database,
		Asset:        d.Asset.Hex(),
		LegacyVault:  d.Addresses.LegacyVault.Hex(),
		Orchestrator: d.Addresses.Orchestrator.Hex(),
		Registry:     d.Addresses.Registry.Hex(),
		Light:        d.Addresses.Light.Hex(),
		Controller:   d.Addresses.Controller.Hex(),
		PoolCreator:  string(d.PoolCreator),
		ZeroBalance:  string(d.ZeroBalance),
	}
	for i, e := range d.Tiers {
		res.Tiers = append(res.Tiers, TierInfo{
			Tier:     ir.Tier(i),
			Limit:    ir.FormatAmount(e.Limit),
			Strategy: string(e.Strategy),
			Template: append([]uint64{}, e.Template...),
		})
	}

	return s.out.Result(res, func(w io.Writer) {
		fmt.Fprintf(w, "Initialized %s\n", res.Database)
		fmt.Fprintf(w, "  Asset:        %s\n", res.Asset)
		fmt.Fprintf(w, "  Registry:     %s\n", res.Registry)
		fmt.Fprintf(w, "  Orchestrator: %s\n", res.Orchestrator)
		fmt.Fprintf(w, "  Pool creator: %s\n", res.PoolCreator)
		for _, t := range res.Tiers {
			fmt.Fprintf(w, "  Tier %d: >= %s %s %v\n", t.Tier, t.Limit, t.Strategy, t.Template)
		}
	})
}
