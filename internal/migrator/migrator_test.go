package migrator

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tiermigrate/internal/custody"
	"github.com/roach88/tiermigrate/internal/ir"
	"github.com/roach88/tiermigrate/internal/ledger"
	"github.com/roach88/tiermigrate/internal/legacy"
	"github.com/roach88/tiermigrate/internal/registry"
	"github.com/roach88/tiermigrate/internal/store"
	"github.com/roach88/tiermigrate/internal/strategy"
	"github.com/roach88/tiermigrate/internal/testutil"
	"github.com/roach88/tiermigrate/internal/tier"
)

const (
	week = 7 * 24 * 60 * 60
	now  = 1_700_000_000
)

var (
	asset        = testutil.Addr(0xa5)
	legacyAddr   = testutil.Addr(0xd0)
	orchAddr     = testutil.Addr(0x0c)
	registryAddr = testutil.Addr(0x70)
	ledgerVault  = testutil.Addr(0xee)
	controller   = testutil.Addr(0xc1)
	alice        = testutil.Addr(0x01)
	bob          = testutil.Addr(0x02)
)

type fixture struct {
	store    *store.Store
	legacy   *legacy.Vault
	registry *registry.Registry
	orch     *Orchestrator
}

func newFixture(t *testing.T, policy ZeroBalancePolicy) *fixture {
	t.Helper()
	strategies := strategy.Default()
	c, err := tier.New([]tier.Entry{
		{Strategy: strategy.Deal, Limit: uint256.NewInt(250)},
		{Strategy: strategy.Lock, Template: []uint64{week}, Limit: uint256.NewInt(3500)},
		{Strategy: strategy.Timed, Template: []uint64{week, 4 * week}, Limit: uint256.NewInt(20000)},
	}, strategies)
	require.NoError(t, err)

	l := ledger.New(ledgerVault, strategies)
	r := registry.New(registry.Config{
		Address: registryAddr,
		Asset:   asset,
		Issuers: []common.Address{orchAddr},
	}, c, strategies, l)

	v := legacy.New(legacyAddr)
	o := New(Config{Address: orchAddr, Asset: asset, Controller: controller, ZeroBalance: policy}, v)
	o.AddRegistry(r)
	v.RegisterPoolCreator(orchAddr, o)
	v.RegisterRedemptionReceiver(orchAddr, o)

	f := &fixture{store: testutil.NewStore(t), legacy: v, registry: r, orch: o}
	f.atomic(t, func(tx *store.Tx) {
		require.NoError(t, o.Init(tx))
		require.NoError(t, v.SetGovernor(tx, orchAddr))
	})
	return f
}

func (f *fixture) atomic(t *testing.T, fn func(tx *store.Tx)) {
	t.Helper()
	require.NoError(t, f.store.Atomic(context.Background(), func(tx *store.Tx) error {
		fn(tx)
		return nil
	}))
}

// deposit funds holder and locks amount in the legacy vault.
func (f *fixture) deposit(t *testing.T, tx *store.Tx, holder common.Address, amount uint64) {
	t.Helper()
	require.NoError(t, custody.Mint(tx, asset, holder, uint256.NewInt(amount)))
	_, err := f.legacy.CreateVault(tx, holder, asset, uint256.NewInt(amount), 0, 0, 30*24*60*60, now)
	require.NoError(t, err)
}

func (f *fixture) finalize(t *testing.T, tx *store.Tx) {
	t.Helper()
	require.NoError(t, f.orch.Finalize(tx, controller, registryAddr, now))
}

func TestInitIsIdempotent(t *testing.T) {
	f := newFixture(t, ZeroNoop)

	f.atomic(t, func(tx *store.Tx) {
		require.NoError(t, f.orch.Init(tx))
		auth, err := f.orch.Authority(tx)
		require.NoError(t, err)
		assert.False(t, auth.IsFinalized())
		assert.Equal(t, controller, auth.Controller())
		assert.Equal(t, asset, auth.Asset)
	})
}

func TestFinalizeExactlyOnce(t *testing.T) {
	f := newFixture(t, ZeroNoop)

	f.atomic(t, func(tx *store.Tx) {
		f.finalize(t, tx)

		auth, err := f.orch.Authority(tx)
		require.NoError(t, err)
		assert.True(t, auth.IsFinalized())
		assert.Equal(t, registryAddr, auth.Registry())
		assert.Equal(t, common.Address{}, auth.Controller())

		err = f.orch.Finalize(tx, controller, registryAddr, now)
		assert.ErrorIs(t, err, ir.ErrAlreadyFinalized)

		// Already-finalized wins over a bad caller.
		err = f.orch.Finalize(tx, bob, registryAddr, now)
		assert.ErrorIs(t, err, ir.ErrAlreadyFinalized)
	})
}

func TestFinalizeRejections(t *testing.T) {
	f := newFixture(t, ZeroNoop)

	f.atomic(t, func(tx *store.Tx) {
		err := f.orch.Finalize(tx, bob, registryAddr, now)
		assert.ErrorIs(t, err, ir.ErrUnauthorized)

		for _, target := range []common.Address{{}, orchAddr, testutil.Addr(0x99)} {
			err = f.orch.Finalize(tx, controller, target, now)
			assert.ErrorIs(t, err, ir.ErrInvalidTarget, "target=%s", target.Hex())
		}

		auth, err := f.orch.Authority(tx)
		require.NoError(t, err)
		assert.False(t, auth.IsFinalized())
	})
}

func TestMigrationGatedBeforeFinalize(t *testing.T) {
	f := newFixture(t, ZeroNoop)

	f.atomic(t, func(tx *store.Tx) {
		f.deposit(t, tx, alice, 100)
		require.NoError(t, f.legacy.ApproveTokenRedemption(tx, alice, asset, true))

		_, err := f.orch.FullMigrate(tx, alice, now)
		assert.ErrorIs(t, err, ir.ErrNotInitialized)
		assert.ErrorIs(t, err, ir.ErrNotAllowed)

		_, err = f.orch.WithdrawTokensFromV1Vault(tx, alice, now)
		assert.ErrorIs(t, err, ir.ErrNotInitialized)
	})
}

func TestMigrationRequiresApproval(t *testing.T) {
	f := newFixture(t, ZeroNoop)

	f.atomic(t, func(tx *store.Tx) {
		f.finalize(t, tx)
		f.deposit(t, tx, alice, 100)

		_, err := f.orch.FullMigrate(tx, alice, now)
		assert.ErrorIs(t, err, ir.ErrNotAllowed)
		assert.NotErrorIs(t, err, ir.ErrNotInitialized)

		pos, err := f.legacy.VaultMap(tx, asset, alice)
		require.NoError(t, err)
		assert.Equal(t, uint64(100), pos.Amount.Uint64())
	})
}

func TestFullMigrateSmallHolder(t *testing.T) {
	f := newFixture(t, ZeroNoop)

	f.atomic(t, func(tx *store.Tx) {
		f.finalize(t, tx)
		f.deposit(t, tx, alice, 250)
		require.NoError(t, f.legacy.ApproveTokenRedemption(tx, alice, asset, true))

		res, err := f.orch.FullMigrate(tx, alice, now)
		require.NoError(t, err)
		assert.True(t, res.Issued)
		assert.Equal(t, uint64(250), res.Amount.Uint64())

		tp, err := f.registry.UserToType(tx, alice)
		require.NoError(t, err)
		assert.Equal(t, ir.Tier0, tp)
		total, err := f.registry.GetTotalAmount(tx, alice)
		require.NoError(t, err)
		assert.Equal(t, uint64(250), total.Uint64())

		pos, err := f.legacy.VaultMap(tx, asset, alice)
		require.NoError(t, err)
		assert.True(t, pos.IsEmpty())
	})
}

func TestFullMigrateConservesAmount(t *testing.T) {
	f := newFixture(t, ZeroNoop)

	f.atomic(t, func(tx *store.Tx) {
		f.finalize(t, tx)
		f.deposit(t, tx, alice, 5000)
		require.NoError(t, f.legacy.ApproveTokenRedemption(tx, alice, asset, true))

		before, err := tx.AssetTotal(asset)
		require.NoError(t, err)

		res, err := f.orch.FullMigrate(tx, alice, now)
		require.NoError(t, err)

		after, err := tx.AssetTotal(asset)
		require.NoError(t, err)
		assert.Equal(t, before, after)

		for _, acct := range []common.Address{legacyAddr, orchAddr} {
			bal, err := custody.BalanceOf(tx, acct, asset)
			require.NoError(t, err)
			assert.True(t, bal.IsZero(), "account %s", acct.Hex())
		}
		held, err := custody.BalanceOf(tx, ledgerVault, asset)
		require.NoError(t, err)
		assert.Equal(t, uint64(5000), held.Uint64())

		rec, err := tx.Record(res.RecordID)
		require.NoError(t, err)
		assert.Equal(t, uint64(5000), rec.Remaining().Uint64())
		assert.Equal(t, strategy.Lock, rec.Strategy)
	})
}

func TestZeroBalanceNoopIsIdempotent(t *testing.T) {
	f := newFixture(t, ZeroNoop)

	f.atomic(t, func(tx *store.Tx) {
		f.finalize(t, tx)
		f.deposit(t, tx, alice, 400)
		require.NoError(t, f.legacy.ApproveTokenRedemption(tx, alice, asset, true))

		first, err := f.orch.FullMigrate(tx, alice, now)
		require.NoError(t, err)
		require.True(t, first.Issued)

		for i := 0; i < 2; i++ {
			res, err := f.orch.FullMigrate(tx, alice, now)
			require.NoError(t, err)
			assert.False(t, res.Issued)

			res, err = f.orch.WithdrawTokensFromV1Vault(tx, alice, now)
			require.NoError(t, err)
			assert.False(t, res.Issued)
		}

		n, err := f.registry.BalanceOf(tx, alice)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), n)
		amt, err := f.registry.UserToAmount(tx, alice)
		require.NoError(t, err)
		assert.Equal(t, uint64(400), amt.Uint64())
	})
}

func TestZeroBalanceFail(t *testing.T) {
	f := newFixture(t, ZeroFail)

	f.atomic(t, func(tx *store.Tx) {
		f.finalize(t, tx)
		require.NoError(t, f.legacy.ApproveTokenRedemption(tx, alice, asset, true))

		_, err := f.orch.FullMigrate(tx, alice, now)
		assert.ErrorIs(t, err, ir.ErrZeroAmount)
	})
}

func TestWithdrawTokensFromV1VaultIssuesCredit(t *testing.T) {
	f := newFixture(t, ZeroNoop)

	f.atomic(t, func(tx *store.Tx) {
		f.deposit(t, tx, alice, 1000)
		require.NoError(t, f.legacy.ApproveTokenRedemption(tx, alice, asset, true))

		// The governor redeems part of the position before finalization.
		require.NoError(t, f.legacy.RedeemTokensFromVault(tx, orchAddr, asset, alice, uint256.NewInt(600)))
		credit, err := tx.PendingRedemption(asset, alice)
		require.NoError(t, err)
		assert.Equal(t, uint64(600), credit.Uint64())

		f.finalize(t, tx)
		res, err := f.orch.WithdrawTokensFromV1Vault(tx, alice, now)
		require.NoError(t, err)
		assert.True(t, res.Issued)
		assert.Equal(t, uint64(600), res.Amount.Uint64())

		// The rest stays in the legacy vault.
		pos, err := f.legacy.VaultMap(tx, asset, alice)
		require.NoError(t, err)
		assert.Equal(t, uint64(400), pos.Amount.Uint64())

		credit, err = tx.PendingRedemption(asset, alice)
		require.NoError(t, err)
		assert.True(t, credit.IsZero())
	})
}

func TestOnTokensRedeemedRequiresLegacyVault(t *testing.T) {
	f := newFixture(t, ZeroNoop)

	f.atomic(t, func(tx *store.Tx) {
		err := f.orch.OnTokensRedeemed(tx, bob, asset, alice, uint256.NewInt(5))
		assert.ErrorIs(t, err, ir.ErrNotLegacyVault)
		assert.ErrorIs(t, err, ir.ErrUnauthorized)
	})
}

func TestOrchestratorAsPoolCreator(t *testing.T) {
	f := newFixture(t, ZeroNoop)

	f.atomic(t, func(tx *store.Tx) {
		f.finalize(t, tx)
		f.deposit(t, tx, alice, 3500)
		require.NoError(t, f.legacy.SetPoolCreator(tx, orchAddr))

		res, err := f.legacy.Withdraw(tx, alice, asset, now)
		require.NoError(t, err)
		assert.Equal(t, orchAddr, res.Creator)

		rec, err := tx.Record(res.RecordID)
		require.NoError(t, err)
		assert.Equal(t, alice, rec.Owner)
		assert.Equal(t, strategy.Lock, rec.Strategy)
		assert.Equal(t, uint64(now+week), rec.Params[1].Uint64())

		tp, err := f.registry.UserToType(tx, alice)
		require.NoError(t, err)
		assert.Equal(t, ir.Tier(1), tp)
	})
}

func TestCreateNewPoolRejections(t *testing.T) {
	f := newFixture(t, ZeroNoop)
	pos := ir.Position{Amount: uint256.NewInt(10), CreatedAt: now}

	f.atomic(t, func(tx *store.Tx) {
		_, err := f.orch.CreateNewPool(tx, bob, asset, alice, pos, now)
		assert.ErrorIs(t, err, ir.ErrNotLegacyVault)

		_, err = f.orch.CreateNewPool(tx, legacyAddr, asset, alice, pos, now)
		assert.ErrorIs(t, err, ir.ErrNotInitialized)

		f.finalize(t, tx)
		_, err = f.orch.CreateNewPool(tx, legacyAddr, asset, alice, ir.Position{}, now)
		assert.ErrorIs(t, err, ir.ErrZeroAmount)
	})
}

func TestParseZeroBalancePolicy(t *testing.T) {
	p, err := ParseZeroBalancePolicy("")
	require.NoError(t, err)
	assert.Equal(t, ZeroNoop, p)

	p, err = ParseZeroBalancePolicy("fail")
	require.NoError(t, err)
	assert.Equal(t, ZeroFail, p)

	_, err = ParseZeroBalancePolicy("retry")
	assert.ErrorIs(t, err, ir.ErrInvalidConfig)
}
