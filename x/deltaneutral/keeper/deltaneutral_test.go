package keeper_test

import (
	"testing"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"

	"github.com/openalpha/levfarm/pkg/sandbox"
	"github.com/openalpha/levfarm/x/deltaneutral/types"
)

const maxPriceAge = 3600

func setupDN(t *testing.T) *sandbox.Sandbox {
	t.Helper()
	sb, err := sandbox.New(log.NewNopLogger())
	require.NoError(t, err)
	require.NoError(t, sb.SetupFarm(sandbox.DefaultFarmOptions()))
	_, err = sb.SetupDeltaNeutral(maxPriceAge)
	require.NoError(t, err)
	for _, addr := range []sdk.AccAddress{sandbox.Operator, sandbox.Farmer} {
		require.NoError(t, sb.Fund(addr,
			sdk.NewInt64Coin(sandbox.Stable, 1_000_000),
			sdk.NewInt64Coin(sandbox.Asset, 100_000),
		))
	}
	return sb
}

// initDN opens both legs with 100k uusd from the operator
func initDN(t *testing.T, sb *sandbox.Sandbox) math.Int {
	t.Helper()
	shares, err := sb.DeltaNeutral.InitPositions(sb.Ctx, sandbox.Operator, sandbox.DNVault,
		math.NewInt(100_000), math.ZeroInt(), math.ZeroInt(), nil)
	require.NoError(t, err)
	return shares
}

func requireNear(t *testing.T, expected, actual math.LegacyDec, tolerance string) {
	t.Helper()
	diff := actual.Sub(expected).Abs()
	require.True(t, diff.LTE(expected.Abs().Mul(math.LegacyMustNewDecFromStr(tolerance))),
		"expected %s within %s, got %s", expected, tolerance, actual)
}

// TestCreateVaultRejectsSharedWorker tests that a delta-neutral vault needs workers of its own
func TestCreateVaultRejectsSharedWorker(t *testing.T) {
	sb, err := sandbox.New(log.NewNopLogger())
	require.NoError(t, err)
	require.NoError(t, sb.SetupFarm(sandbox.DefaultFarmOptions()))

	cfg := types.DefaultDeltaNeutralConfig(sandbox.Treasury.String(), maxPriceAge)
	// the plain workers pay harvests to the treasury
	_, err = sb.DeltaNeutral.CreateVault(sb.Ctx, sb.Authority, "plain",
		sandbox.StableVault, sandbox.StableWorker, sandbox.AssetVault, sandbox.AssetWorker, cfg)
	require.ErrorIs(t, err, types.ErrInvalidConfig)

	_, err = sb.DeltaNeutral.CreateVault(sb.Ctx, sandbox.Farmer.String(), "dn",
		sandbox.StableVault, sandbox.DNStableWorker, sandbox.AssetVault, sandbox.DNAssetWorker, cfg)
	require.ErrorIs(t, err, types.ErrNotAuthorized)

	cfg.ReinvestPath = []string{sandbox.Stable, sandbox.Asset}
	_, err = sb.DeltaNeutral.CreateVault(sb.Ctx, sb.Authority, "dn",
		sandbox.StableVault, sandbox.DNStableWorker, sandbox.AssetVault, sandbox.DNAssetWorker, cfg)
	require.ErrorIs(t, err, types.ErrBadReinvestPath)
}

// TestDepositPlan tests the borrow plan that keeps a deposit delta neutral
func TestDepositPlan(t *testing.T) {
	sb := setupDN(t)

	actions, err := sb.DeltaNeutral.DepositPlan(sb.Ctx, sandbox.DNVault, math.NewInt(100_000), math.ZeroInt())
	require.NoError(t, err)
	require.Len(t, actions, 3)

	// three quarters of the stable principal is wrapped into the asset leg
	require.Equal(t, types.ActionWrap, actions[0].Type)
	require.Equal(t, types.LegAsset, actions[0].Leg)
	require.True(t, actions[0].Wrap.Amount.Equal(math.NewInt(75_000)))

	require.Equal(t, types.LegStable, actions[1].Leg)
	require.True(t, actions[1].Work.Principal.Equal(math.NewInt(25_000)))
	require.True(t, actions[1].Work.Borrow.Equal(math.NewInt(50_000)))

	require.Equal(t, types.LegAsset, actions[2].Leg)
	require.True(t, actions[2].Work.Principal.IsPositive())
	require.True(t, actions[2].Work.Borrow.Equal(math.NewInt(15_000)))
}

// TestInitPositions tests opening both legs of a delta-neutral vault
func TestInitPositions(t *testing.T) {
	sb := setupDN(t)

	_, err := sb.DeltaNeutral.Deposit(sb.Ctx, sandbox.Farmer, sandbox.DNVault,
		math.NewInt(1_000), math.ZeroInt(), math.ZeroInt(), nil)
	require.ErrorIs(t, err, types.ErrNotInitialized)

	_, err = sb.DeltaNeutral.InitPositions(sb.Ctx, sandbox.Farmer, sandbox.DNVault,
		math.NewInt(100_000), math.ZeroInt(), math.ZeroInt(), nil)
	require.ErrorIs(t, err, types.ErrNotAuthorized)

	_, err = sb.DeltaNeutral.InitPositions(sb.Ctx, sandbox.Operator, sandbox.DNVault,
		math.ZeroInt(), math.ZeroInt(), math.ZeroInt(), nil)
	require.ErrorIs(t, err, types.ErrInvalidAmount)

	shares := initDN(t, sb)
	requireNear(t, math.LegacyNewDec(100_000), math.LegacyNewDecFromInt(shares), "0.03")
	require.True(t, shares.Equal(sb.Balance(sandbox.Operator, types.ShareDenom(sandbox.DNVault))))

	view, err := sb.DeltaNeutral.View(sb.Ctx, sandbox.DNVault)
	require.NoError(t, err)
	require.NotZero(t, view.Vault.StableLeg.PositionID)
	require.NotZero(t, view.Vault.AssetLeg.PositionID)
	require.NotEqual(t, view.Vault.StableLeg.PositionID, view.Vault.AssetLeg.PositionID)
	require.True(t, view.Vault.ShareSupply.Equal(shares))

	// one share per unit of equity
	requireNear(t, math.LegacyOneDec(), view.SharePrice, "0.001")
	// three times leverage, delta neutral
	requireNear(t, view.Equity.MulInt64(3), view.State.PositionValue(), "0.02")
	stableRatio, assetRatio := view.State.DebtRatios()
	requireNear(t, math.LegacyOneDec().QuoInt64(6), stableRatio, "0.02")
	requireNear(t, math.LegacyNewDecWithPrec(5, 1), assetRatio, "0.01")

	_, err = sb.DeltaNeutral.InitPositions(sb.Ctx, sandbox.Operator, sandbox.DNVault,
		math.NewInt(100_000), math.ZeroInt(), math.ZeroInt(), nil)
	require.ErrorIs(t, err, types.ErrAlreadyInitialized)
}

// TestDepositAndWithdraw tests that deposit and withdraw keep share price and exposure
func TestDepositAndWithdraw(t *testing.T) {
	sb := setupDN(t)
	initShares := initDN(t, sb)

	stableBefore := sb.Balance(sandbox.Farmer, sandbox.Stable)
	shares, err := sb.DeltaNeutral.Deposit(sb.Ctx, sandbox.Farmer, sandbox.DNVault,
		math.NewInt(50_000), math.NewInt(5_000), math.ZeroInt(), nil)
	require.NoError(t, err)
	// the same value buys about the same shares
	requireNear(t, math.LegacyNewDecFromInt(initShares), math.LegacyNewDecFromInt(shares), "0.03")
	require.True(t, sb.Balance(sandbox.Farmer, sandbox.Stable).LT(stableBefore))

	vault := sb.DeltaNeutral.GetVault(sb.Ctx, sandbox.DNVault)
	require.True(t, vault.ShareSupply.Equal(initShares.Add(shares)))

	_, err = sb.DeltaNeutral.Deposit(sb.Ctx, sandbox.Farmer, sandbox.DNVault,
		math.NewInt(20_000), math.ZeroInt(), math.NewInt(1_000_000), nil)
	require.ErrorIs(t, err, types.ErrInsufficientShares)

	view, err := sb.DeltaNeutral.View(sb.Ctx, sandbox.DNVault)
	require.NoError(t, err)
	half := shares.QuoRaw(2)
	expected := view.Equity.MulInt(half).QuoInt(view.Vault.ShareSupply)

	_, _, err = sb.DeltaNeutral.Withdraw(sb.Ctx, sandbox.Farmer, sandbox.DNVault,
		view.Vault.ShareSupply.AddRaw(1), math.ZeroInt(), math.ZeroInt(), nil)
	require.ErrorIs(t, err, types.ErrInsufficientShareSupply)

	stableOut, assetOut, err := sb.DeltaNeutral.Withdraw(sb.Ctx, sandbox.Farmer, sandbox.DNVault,
		half, math.ZeroInt(), math.ZeroInt(), nil)
	require.NoError(t, err)
	require.True(t, stableOut.IsPositive())
	require.True(t, assetOut.IsPositive())
	got := math.LegacyNewDecFromInt(stableOut).Add(math.LegacyNewDecFromInt(assetOut).MulInt64(10))
	requireNear(t, expected, got, "0.03")

	vault = sb.DeltaNeutral.GetVault(sb.Ctx, sandbox.DNVault)
	require.True(t, vault.ShareSupply.Equal(initShares.Add(shares).Sub(half)))
	require.True(t, sb.Balance(sandbox.Farmer, types.ShareDenom(sandbox.DNVault)).Equal(shares.Sub(half)))
}

// TestWithdrawBelowMinimumReverts tests the minimum-received guard on withdraw
func TestWithdrawBelowMinimumReverts(t *testing.T) {
	sb := setupDN(t)
	shares := initDN(t, sb)

	_, _, err := sb.DeltaNeutral.Withdraw(sb.Ctx, sandbox.Operator, sandbox.DNVault,
		shares.QuoRaw(10), math.NewInt(1_000_000_000), math.ZeroInt(), nil)
	require.ErrorIs(t, err, types.ErrBelowMinSwapOut)

	// nothing moved
	vault := sb.DeltaNeutral.GetVault(sb.Ctx, sandbox.DNVault)
	require.True(t, vault.ShareSupply.Equal(shares))
	require.True(t, sb.Balance(sandbox.Operator, types.ShareDenom(sandbox.DNVault)).Equal(shares))
}

// TestStalePriceBlocksDeposit tests that deposits need a fresh oracle price
func TestStalePriceBlocksDeposit(t *testing.T) {
	sb := setupDN(t)
	initDN(t, sb)

	sb.Advance((maxPriceAge + 1) * time.Second)
	_, err := sb.DeltaNeutral.Deposit(sb.Ctx, sandbox.Farmer, sandbox.DNVault,
		math.NewInt(10_000), math.ZeroInt(), math.ZeroInt(), nil)
	require.ErrorIs(t, err, types.ErrStalePrice)

	_, err = sb.DeltaNeutral.View(sb.Ctx, sandbox.DNVault)
	require.ErrorIs(t, err, types.ErrStalePrice)

	// a fresh feed unblocks it
	require.NoError(t, sb.SetPrice(sandbox.Stable, math.LegacyOneDec()))
	require.NoError(t, sb.SetPrice(sandbox.Asset, math.LegacyNewDec(10)))
	_, err = sb.DeltaNeutral.Deposit(sb.Ctx, sandbox.Farmer, sandbox.DNVault,
		math.NewInt(10_000), math.ZeroInt(), math.ZeroInt(), nil)
	require.NoError(t, err)
}

// TestReinvest tests reward harvesting and compounding into both legs
func TestReinvest(t *testing.T) {
	sb := setupDN(t)
	initDN(t, sb)

	_, err := sb.DeltaNeutral.Reinvest(sb.Ctx, sandbox.Farmer, sandbox.DNVault, math.ZeroInt(), nil)
	require.ErrorIs(t, err, types.ErrNotAuthorized)

	sb.Advance(10 * time.Second)
	pending, err := sb.DeltaNeutral.PendingReward(sb.Ctx, sandbox.DNVault)
	require.NoError(t, err)
	require.True(t, pending.IsPositive())

	before, err := sb.DeltaNeutral.View(sb.Ctx, sandbox.DNVault)
	require.NoError(t, err)

	res, err := sb.DeltaNeutral.Reinvest(sb.Ctx, sandbox.Operator, sandbox.DNVault, math.ZeroInt(), nil)
	require.NoError(t, err)
	require.True(t, res.Reward.Equal(pending))
	require.True(t, res.Bounty.Equal(res.Reward.QuoRaw(10)))
	require.True(t, sb.Balance(sandbox.Treasury, sandbox.Reward).Equal(res.Bounty))
	require.True(t, res.Swapped.IsPositive())
	require.True(t, res.EquityAdded.IsPositive())

	after, err := sb.DeltaNeutral.View(sb.Ctx, sandbox.DNVault)
	require.NoError(t, err)
	// holders gain through the share price, not new shares
	require.True(t, after.Vault.ShareSupply.Equal(before.Vault.ShareSupply))
	require.True(t, after.SharePrice.GT(before.SharePrice))
	require.True(t, after.Vault.TotalReinvested.Equal(res.Swapped))
	require.Equal(t, sb.Ctx.BlockTime().Unix(), after.Vault.LastReinvestTime)
}

// TestReinvestMustAddEquity tests that a reinvest which loses equity reverts
func TestReinvestMustAddEquity(t *testing.T) {
	sb := setupDN(t)
	initDN(t, sb)
	sb.Advance(10 * time.Second)

	// a lone wrap leaves the harvest idle instead of deploying it
	actions := []types.Action{{
		Type: types.ActionWrap,
		Leg:  types.LegAsset,
		Wrap: &types.WrapAction{Amount: math.NewInt(1_000), MinOut: math.ZeroInt()},
	}}
	_, err := sb.DeltaNeutral.Reinvest(sb.Ctx, sandbox.Operator, sandbox.DNVault, math.ZeroInt(), actions)
	require.ErrorIs(t, err, types.ErrUnsafePositionEquity)

	_, err = sb.DeltaNeutral.Reinvest(sb.Ctx, sandbox.Operator, sandbox.DNVault, math.NewInt(1_000_000_000), nil)
	require.ErrorIs(t, err, types.ErrBelowMinSwapOut)

	// failed attempts leave the reward in the farm
	pending, err := sb.DeltaNeutral.PendingReward(sb.Ctx, sandbox.DNVault)
	require.NoError(t, err)
	require.True(t, pending.IsPositive())
	require.True(t, sb.Balance(sandbox.Treasury, sandbox.Reward).IsZero())
}

// TestRebalanceGuards tests rebalance authorization and tolerance checks
func TestRebalanceGuards(t *testing.T) {
	sb := setupDN(t)

	noop := []types.Action{{
		Type: types.ActionWrap,
		Leg:  types.LegAsset,
		Wrap: &types.WrapAction{Amount: math.NewInt(1), MinOut: math.ZeroInt()},
	}}
	err := sb.DeltaNeutral.Rebalance(sb.Ctx, sandbox.Operator, sandbox.DNVault, noop)
	require.ErrorIs(t, err, types.ErrNotInitialized)

	initDN(t, sb)

	err = sb.DeltaNeutral.Rebalance(sb.Ctx, sandbox.Farmer, sandbox.DNVault, noop)
	require.ErrorIs(t, err, types.ErrNotAuthorized)

	err = sb.DeltaNeutral.Rebalance(sb.Ctx, sandbox.Operator, sandbox.DNVault, nil)
	require.ErrorIs(t, err, types.ErrInvalidAction)

	// freshly opened legs sit on target
	err = sb.DeltaNeutral.Rebalance(sb.Ctx, sandbox.Operator, sandbox.DNVault, noop)
	require.ErrorIs(t, err, types.ErrRebalanceNotNeeded)
}

// TestUpdateConfig tests delta-neutral config updates
func TestUpdateConfig(t *testing.T) {
	sb := setupDN(t)

	cfg := sb.DeltaNeutral.GetVault(sb.Ctx, sandbox.DNVault).Config
	cfg.DepositFeeBps = 50
	_, err := sb.DeltaNeutral.UpdateConfig(sb.Ctx, sandbox.Farmer.String(), sandbox.DNVault, cfg)
	require.ErrorIs(t, err, types.ErrNotAuthorized)

	vault, err := sb.DeltaNeutral.UpdateConfig(sb.Ctx, sb.Authority, sandbox.DNVault, cfg)
	require.NoError(t, err)
	require.Equal(t, uint32(50), vault.Config.DepositFeeBps)

	cfg.LeverageLevel = 1
	_, err = sb.DeltaNeutral.UpdateConfig(sb.Ctx, sb.Authority, sandbox.DNVault, cfg)
	require.ErrorIs(t, err, types.ErrInvalidConfig)
}
