package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"

	"github.com/roach88/tiermigrate/internal/config"
	"github.com/roach88/tiermigrate/internal/engine"
	"github.com/roach88/tiermigrate/internal/ir"
	"github.com/roach88/tiermigrate/internal/store"
)

// session is an opened store and the engine built over it.
type session struct {
	store  *store.Store
	engine *engine.Engine
	out    *OutputFormatter
	logger *slog.Logger
}

// openSession loads the deployment, opens the database and initializes it.
// Init is idempotent, so every command also checks that the database was
// created with the same tier table.
func openSession(ctx context.Context, opts *RootOptions, cmd *cobra.Command, extra ...engine.Option) (*session, error) {
	out := opts.formatter(cmd)

	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	}))

	d, err := config.Load(opts.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load deployment", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	engOpts := []engine.Option{engine.WithLogger(logger)}
	if opts.Now != 0 {
		engOpts = append(engOpts, engine.WithClock(engine.FixedClock(opts.Now)))
	}
	eng, err := engine.New(st, d, append(engOpts, extra...)...)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to build engine", err)
	}

	if err := eng.Init(ctx); err != nil {
		st.Close()
		return nil, out.Fail("failed to initialize database", err)
	}

	out.VerboseLog("database %s ready (asset %s)", opts.Database, d.Asset.Hex())
	return &session{store: st, engine: eng, out: out, logger: logger}, nil
}

func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		s.logger.Error("error closing database", "error", err)
	}
}

// commandContext returns cmd's context, or a background context when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func parseAddress(name, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, NewExitError(ExitCommandError, fmt.Sprintf("invalid %s address %q", name, s))
	}
	return common.HexToAddress(s), nil
}

// parseAddressOr parses s, or returns def when s is empty.
func parseAddressOr(name, s string, def common.Address) (common.Address, error) {
	if s == "" {
		return def, nil
	}
	return parseAddress(name, s)
}

func parseAmount(s string) (*uint256.Int, error) {
	v, err := ir.ParseAmount(s)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid amount", err)
	}
	return v, nil
}

func parseRecordID(s string) (ir.RecordID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, WrapExitError(ExitCommandError, fmt.Sprintf("invalid record id %q", s), err)
	}
	return ir.RecordID(v), nil
}

// withFlow assigns the call a fresh flow token, so the command can report
// which trace its events belong to.
func (s *session) withFlow(ctx context.Context) (context.Context, string) {
	flow := s.engine.NewFlow()
	return engine.WithFlow(ctx, flow), flow
}
