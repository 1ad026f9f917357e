package cli

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/tiermigrate/internal/engine"
	"github.com/roach88/tiermigrate/internal/ir"
	"github.com/roach88/tiermigrate/internal/metrics"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Listen   string
	Interval time.Duration
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose migration metrics over HTTP",
		Long: `Expose Prometheus metrics for the database on /metrics and a liveness
check on /healthz until interrupted.

Holder counts per tier, tracked amounts, record counts, custody totals
and the handoff state are read from the database at scrape time, so other
commands may keep writing to it. With --interval the same aggregates are
also logged periodically.

Examples:
  tiermigrate serve --listen :9464
  tiermigrate serve --listen 127.0.0.1:9464 --interval 30s`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", ":9464", "address to listen on")
	cmd.Flags().DurationVar(&opts.Interval, "interval", 0, "log a snapshot this often (0 disables)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	m := metrics.New(reg, nil, nil)

	s, err := openSession(ctx, opts.RootOptions, cmd, engine.WithRecorder(m))
	if err != nil {
		return err
	}
	defer s.Close()
	metrics.RegisterSource(reg, s.engine, s.logger)

	ln, err := net.Listen("tcp", opts.Listen)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return metrics.Serve(gctx, ln, reg, s.logger)
	})
	if opts.Interval > 0 {
		g.Go(func() error {
			return logSnapshots(gctx, s, opts.Interval)
		})
	}

	if err := g.Wait(); err != nil {
		return WrapExitError(ExitCommandError, "serve failed", err)
	}
	s.logger.Info("serve stopped")
	return nil
}

// logSnapshots logs the store aggregates every interval until ctx is done.
func logSnapshots(ctx context.Context, s *session, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			snap, err := s.engine.Snapshot(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Warn("snapshot failed", "error", err)
				continue
			}
			holders := 0
			for _, n := range snap.HoldersByTier {
				holders += n
			}
			s.logger.Info("snapshot",
				"holders", holders,
				"tracked", ir.FormatAmount(snap.Tracked),
				"records", snap.Records,
				"custody", ir.FormatAmount(snap.Custody),
				"finalized", snap.Finalized,
				"last_seq", snap.LastSeq,
			)
		}
	}
}
