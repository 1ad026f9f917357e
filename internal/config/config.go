// Package config loads deployment files.
//
// A deployment is a CUE document unified with the embedded #Deployment
// schema, so defaults and constraints live in one place and a bad file is
// reported with its CUE position.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"github.com/ethereum/go-ethereum/common"

	"github.com/roach88/tiermigrate/internal/ir"
	"github.com/roach88/tiermigrate/internal/migrator"
	"github.com/roach88/tiermigrate/internal/strategy"
	"github.com/roach88/tiermigrate/internal/tier"
)

//go:embed schema.cue
var schemaSource string

//go:embed default.cue
var defaultSource string

// PoolCreator names the component installed as the legacy vault's pool
// creator at init.
type PoolCreator string

const (
	PoolCreatorNone         PoolCreator = "none"
	PoolCreatorOrchestrator PoolCreator = "orchestrator"
	PoolCreatorLight        PoolCreator = "light"
)

// ParsePoolCreator validates a pool creator name.
func ParsePoolCreator(s string) (PoolCreator, error) {
	switch pc := PoolCreator(s); pc {
	case PoolCreatorNone, PoolCreatorOrchestrator, PoolCreatorLight:
		return pc, nil
	}
	return "", ir.ErrInvalidConfig.With("unknown pool creator", "pool_creator", s)
}

// Addresses of the deployed components.
type Addresses struct {
	LegacyVault  common.Address
	Orchestrator common.Address
	Registry     common.Address
	Light        common.Address
	LedgerVault  common.Address
	Controller   common.Address
	Governor     common.Address
}

// Deployment is a validated deployment.
type Deployment struct {
	Asset          common.Address
	Addresses      Addresses
	Tiers          []tier.Entry
	ZeroBalance    migrator.ZeroBalancePolicy
	DirectIssuance bool
	PoolCreator    PoolCreator
	LightName      string
	LightVersion   string

	// Source is the document the deployment was read from.
	Source []byte
}

// Error is a deployment that failed to load. Pos is set when CUE could
// place the problem.
type Error struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap makes every load failure an ir.ErrInvalidConfig.
func (e *Error) Unwrap() error {
	return ir.ErrInvalidConfig
}

// Default returns the built-in deployment.
func Default() (*Deployment, error) {
	return Parse("default.cue", []byte(defaultSource))
}

// DefaultSource is the built-in deployment document.
func DefaultSource() []byte {
	return []byte(defaultSource)
}

// Load reads a deployment file. An empty path loads the default.
func Load(path string) (*Deployment, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read deployment: %w", err)
	}
	return Parse(path, data)
}

// Parse unifies src with the schema and decodes the result.
func Parse(filename string, src []byte) (*Deployment, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile embedded schema: %w", err)
	}

	doc := ctx.CompileBytes(src, cue.Filename(filename))
	if err := doc.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	v := schema.LookupPath(cue.ParsePath("#Deployment")).Unify(doc)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var raw rawDeployment
	if err := v.Decode(&raw); err != nil {
		return nil, formatCUEError(err)
	}

	d, err := raw.build(v)
	if err != nil {
		return nil, err
	}
	d.Source = append([]byte(nil), src...)
	return d, nil
}

// Classifier builds the tier table against strategies.
func (d *Deployment) Classifier(strategies *strategy.Set) (*tier.Classifier, error) {
	return tier.New(d.Tiers, strategies)
}

type rawDeployment struct {
	Asset     string `json:"asset"`
	Addresses struct {
		LegacyVault  string `json:"legacy_vault"`
		Orchestrator string `json:"orchestrator"`
		Registry     string `json:"registry"`
		Light        string `json:"light"`
		LedgerVault  string `json:"ledger_vault"`
		Controller   string `json:"controller"`
		Governor     string `json:"governor"`
	} `json:"addresses"`
	Tiers []struct {
		Strategy string   `json:"strategy"`
		Template []uint64 `json:"template"`
		Limit    string   `json:"limit"`
	} `json:"tiers"`
	ZeroBalance    string `json:"zero_balance"`
	DirectIssuance bool   `json:"direct_issuance"`
	PoolCreator    string `json:"pool_creator"`
	Light          struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"light"`
}

func (r rawDeployment) build(v cue.Value) (*Deployment, error) {
	d := &Deployment{
		Asset: common.HexToAddress(r.Asset),
		Addresses: Addresses{
			LegacyVault:  common.HexToAddress(r.Addresses.LegacyVault),
			Orchestrator: common.HexToAddress(r.Addresses.Orchestrator),
			Registry:     common.HexToAddress(r.Addresses.Registry),
			Light:        common.HexToAddress(r.Addresses.Light),
			LedgerVault:  common.HexToAddress(r.Addresses.LedgerVault),
			Controller:   common.HexToAddress(r.Addresses.Controller),
			Governor:     common.HexToAddress(r.Addresses.Governor),
		},
		DirectIssuance: r.DirectIssuance,
		PoolCreator:    PoolCreator(r.PoolCreator),
		LightName:      r.Light.Name,
		LightVersion:   r.Light.Version,
	}

	var err error
	if d.ZeroBalance, err = migrator.ParseZeroBalancePolicy(r.ZeroBalance); err != nil {
		return nil, fieldError(v, "zero_balance", err.Error())
	}

	for i, t := range r.Tiers {
		limit, err := ir.ParseAmount(t.Limit)
		if err != nil {
			return nil, fieldError(v, fmt.Sprintf("tiers[%d].limit", i), err.Error())
		}
		d.Tiers = append(d.Tiers, tier.Entry{
			Strategy: ir.StrategyID(t.Strategy),
			Template: t.Template,
			Limit:    limit,
		})
	}
	if _, err := d.Classifier(strategy.Default()); err != nil {
		return nil, fieldError(v, "tiers", err.Error())
	}

	if err := d.checkAddresses(); err != nil {
		return nil, fieldError(v, "addresses", err.Error())
	}
	return d, nil
}

// checkAddresses rejects zero or colliding component addresses. The
// governor may coincide with the orchestrator; that is how full
// migration redeems.
func (d *Deployment) checkAddresses() error {
	named := []struct {
		name string
		addr common.Address
	}{
		{"asset", d.Asset},
		{"legacy_vault", d.Addresses.LegacyVault},
		{"orchestrator", d.Addresses.Orchestrator},
		{"registry", d.Addresses.Registry},
		{"light", d.Addresses.Light},
		{"ledger_vault", d.Addresses.LedgerVault},
	}
	seen := make(map[common.Address]string, len(named))
	for _, n := range named {
		if n.addr == (common.Address{}) {
			return fmt.Errorf("%s is the zero address", n.name)
		}
		if prev, dup := seen[n.addr]; dup {
			return fmt.Errorf("%s and %s share address %s", prev, n.name, n.addr.Hex())
		}
		seen[n.addr] = n.name
	}
	if d.Addresses.Controller == (common.Address{}) {
		return fmt.Errorf("controller is the zero address")
	}
	return nil
}

func fieldError(v cue.Value, field, msg string) *Error {
	return &Error{Field: field, Message: msg, Pos: v.LookupPath(cue.ParsePath(field)).Pos()}
}

// formatCUEError keeps the first CUE error and its position.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &Error{Field: "cue", Message: err.Error()}
	}
	first := errs[0]
	out := &Error{Field: "cue", Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		out.Pos = positions[0]
	}
	return out
}
