package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/roach88/tiermigrate/internal/config"
	"github.com/roach88/tiermigrate/internal/ir"
	"github.com/roach88/tiermigrate/internal/ledger"
	"github.com/roach88/tiermigrate/internal/legacy"
	"github.com/roach88/tiermigrate/internal/light"
	"github.com/roach88/tiermigrate/internal/migrator"
	"github.com/roach88/tiermigrate/internal/registry"
	"github.com/roach88/tiermigrate/internal/store"
	"github.com/roach88/tiermigrate/internal/strategy"
	"github.com/roach88/tiermigrate/internal/tier"
)

// Settings keys written by Init.
const (
	settingTierHash = "deployment.tier_hash"
	settingSource   = "deployment.source"
)

// Recorder observes finished entry points. outcome is "ok", a domain error
// code, or "internal".
type Recorder interface {
	Observe(op, outcome string, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) Observe(string, string, time.Duration) {}

// Engine runs entry points against one deployment and store.
type Engine struct {
	store    *store.Store
	deploy   *config.Deployment
	clock    Clock
	flowGen  FlowTokenGenerator
	logger   *slog.Logger
	recorder Recorder

	strategies *strategy.Set
	classifier *tier.Classifier
	ledger     *ledger.Ledger
	legacy     *legacy.Vault
	registry   *registry.Registry
	orch       *migrator.Orchestrator
	light      *light.Interceptor
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the wall clock. Default: SystemClock.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithFlowGenerator sets the flow token source. Default: UUIDv7Generator.
func WithFlowGenerator(g FlowTokenGenerator) Option {
	return func(e *Engine) { e.flowGen = g }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithRecorder sets the entry point observer.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// New wires the deployment's components over s.
func New(s *store.Store, d *config.Deployment, opts ...Option) (*Engine, error) {
	strategies := strategy.Default()
	classifier, err := d.Classifier(strategies)
	if err != nil {
		return nil, fmt.Errorf("build tier table: %w", err)
	}

	a := d.Addresses
	l := ledger.New(a.LedgerVault, strategies)
	reg := registry.New(registry.Config{
		Address:        a.Registry,
		Asset:          d.Asset,
		Issuers:        []common.Address{a.Orchestrator, a.Light},
		DirectIssuance: d.DirectIssuance,
	}, classifier, strategies, l)

	v := legacy.New(a.LegacyVault)
	orch := migrator.New(migrator.Config{
		Address:     a.Orchestrator,
		Asset:       d.Asset,
		Controller:  a.Controller,
		ZeroBalance: d.ZeroBalance,
	}, v)
	orch.AddRegistry(reg)

	li := light.New(light.Config{
		Address: a.Light,
		Asset:   d.Asset,
		Name:    d.LightName,
		Version: d.LightVersion,
	}, a.LegacyVault, orch)

	v.RegisterPoolCreator(a.Orchestrator, orch)
	v.RegisterPoolCreator(a.Light, li)
	v.RegisterRedemptionReceiver(a.Orchestrator, orch)

	e := &Engine{
		store:      s,
		deploy:     d,
		clock:      SystemClock{},
		flowGen:    UUIDv7Generator{},
		logger:     slog.Default(),
		recorder:   nopRecorder{},
		strategies: strategies,
		classifier: classifier,
		ledger:     l,
		legacy:     v,
		registry:   reg,
		orch:       orch,
		light:      li,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Deployment returns the deployment the engine was built from.
func (e *Engine) Deployment() *config.Deployment {
	return e.deploy
}

// Store returns the underlying store.
func (e *Engine) Store() *store.Store {
	return e.store
}

// Now reads the engine's clock.
func (e *Engine) Now() uint64 {
	return e.clock.Now()
}

// NewFlow generates a flow token. Pass it to WithFlow to run a call under
// it.
func (e *Engine) NewFlow() string {
	return e.flowGen.Generate()
}

// LightInfo returns the light interceptor's name and version.
func (e *Engine) LightInfo() (name, version string) {
	return e.light.Name(), e.light.Version()
}

// run executes fn in one transaction and appends the events it emitted
// under the call's flow token.
func (e *Engine) run(ctx context.Context, op string, fn func(tx *store.Tx, now uint64) error) error {
	flow, ok := FlowFrom(ctx)
	if !ok {
		flow = e.flowGen.Generate()
	}
	now := e.clock.Now()
	start := time.Now()

	var events []ir.Event
	err := e.store.Atomic(ctx, func(tx *store.Tx) error {
		if err := fn(tx, now); err != nil {
			return err
		}
		var err error
		events, err = tx.FlushEvents(flow, now)
		return err
	})
	e.recorder.Observe(op, Outcome(err), time.Since(start))

	if err != nil {
		level := slog.LevelWarn
		if !IsDomainError(err) {
			level = slog.LevelError
		}
		e.logger.Log(ctx, level, "entry point failed",
			"op", op,
			"flow", flow,
			"code", string(ir.CodeOf(err)),
			"error", err,
		)
		return &OpError{Op: op, FlowToken: flow, Err: err}
	}

	e.logger.Info("entry point committed",
		"op", op,
		"flow", flow,
		"events", len(events),
		"now", now,
	)
	for _, ev := range events {
		e.logger.Debug("event appended",
			"flow", flow,
			"seq", ev.Seq,
			"kind", ev.Kind,
			"id", ev.ID,
		)
	}
	return nil
}

// view runs fn in a read-only transaction.
func (e *Engine) view(ctx context.Context, fn func(tx *store.Tx, now uint64) error) error {
	now := e.clock.Now()
	return e.store.View(ctx, func(tx *store.Tx) error {
		return fn(tx, now)
	})
}
