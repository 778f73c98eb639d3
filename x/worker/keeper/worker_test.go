package keeper_test

import (
	"testing"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"

	"github.com/openalpha/levfarm/pkg/sandbox"
	ammtypes "github.com/openalpha/levfarm/x/amm/types"
	dntypes "github.com/openalpha/levfarm/x/deltaneutral/types"
	vaulttypes "github.com/openalpha/levfarm/x/vault/types"
	"github.com/openalpha/levfarm/x/worker/types"
)

func setupFarm(t *testing.T) *sandbox.Sandbox {
	t.Helper()
	sb, err := sandbox.New(log.NewNopLogger())
	require.NoError(t, err)
	require.NoError(t, sb.SetupFarm(sandbox.DefaultFarmOptions()))
	require.NoError(t, sb.Fund(sandbox.Farmer, sdk.NewInt64Coin(sandbox.Stable, 5_000_000)))
	return sb
}

func work(sb *sandbox.Sandbox, positionID uint64, principal, borrow, maxReturn int64, strategy string, params interface{}) (*vaulttypes.WorkResult, error) {
	var data []byte
	if params != nil {
		data = types.EncodeParams(params)
	}
	return sb.Vault.Work(sb.Ctx, sandbox.Farmer, sandbox.StableVault, positionID, sandbox.StableWorker,
		math.NewInt(principal), math.NewInt(borrow), math.NewInt(maxReturn), strategy, data)
}

// TestShareLedger tests that worker shares always sum to the total and map back to LP
func TestShareLedger(t *testing.T) {
	sb := setupFarm(t)
	first, err := work(sb, 0, 500_000, 500_000, 0, types.StrategyAddBaseTokenOnly, nil)
	require.NoError(t, err)
	second, err := work(sb, 0, 300_000, 0, 0, types.StrategyAddBaseTokenOnly, nil)
	require.NoError(t, err)

	worker := sb.Worker.GetWorker(sb.Ctx, sandbox.StableWorker)
	shareA := sb.Worker.GetShare(sb.Ctx, sandbox.StableWorker, first.PositionID)
	shareB := sb.Worker.GetShare(sb.Ctx, sandbox.StableWorker, second.PositionID)
	require.Equal(t, worker.TotalShare, shareA.Add(shareB))

	// claims never exceed what the worker holds
	total := sb.Worker.TotalBalance(sb.Ctx, worker)
	claims := sb.Worker.BalanceOf(sb.Ctx, sandbox.StableWorker, first.PositionID).
		Add(sb.Worker.BalanceOf(sb.Ctx, sandbox.StableWorker, second.PositionID))
	require.True(t, claims.LTE(total))

	view, err := sb.Worker.PositionInfo(sb.Ctx, sandbox.StableWorker, first.PositionID)
	require.NoError(t, err)
	health, err := sb.Worker.Health(sb.Ctx, sandbox.StableWorker, first.PositionID)
	require.NoError(t, err)
	require.Equal(t, health, view.Health)
	require.Equal(t, shareA, view.Shares)

	_, err = work(sb, first.PositionID, 0, 0, 1_000_000_000, types.StrategyLiquidate, nil)
	require.NoError(t, err)
	_, err = work(sb, second.PositionID, 0, 0, 1_000_000_000, types.StrategyLiquidate, nil)
	require.NoError(t, err)

	// the last exit drains the ledger completely
	worker = sb.Worker.GetWorker(sb.Ctx, sandbox.StableWorker)
	require.True(t, worker.TotalShare.IsZero())
	require.True(t, sb.Worker.TotalBalance(sb.Ctx, worker).IsZero())

	// an empty ledger re-seeds shares 1:1 with LP
	third, err := work(sb, 0, 100_000, 0, 0, types.StrategyAddBaseTokenOnly, nil)
	require.NoError(t, err)
	worker = sb.Worker.GetWorker(sb.Ctx, sandbox.StableWorker)
	require.Equal(t, sb.Worker.TotalBalance(sb.Ctx, worker), sb.Worker.GetShare(sb.Ctx, sandbox.StableWorker, third.PositionID))
}

// TestUnapprovedStrategy tests strategy allow-listing on Work and config updates
func TestUnapprovedStrategy(t *testing.T) {
	sb := setupFarm(t)
	_, err := work(sb, 0, 100_000, 0, 0, "unknown", nil)
	require.ErrorIs(t, err, types.ErrUnapprovedStrategy)

	worker := sb.Worker.GetWorker(sb.Ctx, sandbox.StableWorker)
	cfg := worker.Config
	cfg.OKStrategies = append(cfg.OKStrategies, "unknown")
	_, err = sb.Worker.UpdateWorkerConfig(sb.Ctx, sb.Authority, sandbox.StableWorker, cfg)
	require.ErrorIs(t, err, types.ErrUnknownStrategy)

	_, err = sb.Worker.UpdateWorkerConfig(sb.Ctx, sandbox.Farmer.String(), sandbox.StableWorker, worker.Config)
	require.ErrorIs(t, err, types.ErrNotAuthorized)
}

// TestBadStrategyParams tests rejection of malformed strategy params
func TestBadStrategyParams(t *testing.T) {
	sb := setupFarm(t)
	res, err := work(sb, 0, 500_000, 500_000, 0, types.StrategyAddBaseTokenOnly, nil)
	require.NoError(t, err)

	_, err = sb.Vault.Work(sb.Ctx, sandbox.Farmer, sandbox.StableVault, res.PositionID, sandbox.StableWorker,
		math.ZeroInt(), math.ZeroInt(), math.ZeroInt(), types.StrategyPartialCloseLiquidate, []byte("{not json"))
	require.ErrorIs(t, err, types.ErrBadStrategyParams)

	lp := sb.Worker.BalanceOf(sb.Ctx, sandbox.StableWorker, res.PositionID)
	_, err = work(sb, res.PositionID, 0, 0, 0, types.StrategyPartialCloseLiquidate,
		types.PartialCloseLiquidateParams{LPToLiquidate: lp.AddRaw(1)})
	require.ErrorIs(t, err, types.ErrBadStrategyParams)
}

// TestReinvestCompoundsWithoutMintingShares tests a manual reinvest
func TestReinvestCompoundsWithoutMintingShares(t *testing.T) {
	sb := setupFarm(t)
	res, err := work(sb, 0, 1_000_000, 1_000_000, 0, types.StrategyAddBaseTokenOnly, nil)
	require.NoError(t, err)

	_, err = sb.Worker.Reinvest(sb.Ctx, sandbox.Operator, sandbox.StableWorker, math.ZeroInt())
	require.ErrorIs(t, err, types.ErrNotAuthorized)

	worker := sb.Worker.GetWorker(sb.Ctx, sandbox.StableWorker)
	cfg := worker.Config
	cfg.Reinvestors = []string{sandbox.Operator.String()}
	_, err = sb.Worker.UpdateWorkerConfig(sb.Ctx, sb.Authority, sandbox.StableWorker, cfg)
	require.NoError(t, err)

	sb.Advance(time.Minute)
	require.True(t, sb.Worker.PendingReward(sb.Ctx, sandbox.StableWorker).IsPositive())
	sharesBefore := sb.Worker.GetWorker(sb.Ctx, sandbox.StableWorker).TotalShare
	lpBefore := sb.Worker.BalanceOf(sb.Ctx, sandbox.StableWorker, res.PositionID)

	out, err := sb.Worker.Reinvest(sb.Ctx, sandbox.Operator, sandbox.StableWorker, math.ZeroInt())
	require.NoError(t, err)
	require.True(t, out.Reward.IsPositive())
	require.Equal(t, out.Reward.MulRaw(300).QuoRaw(10000), out.Bounty)
	require.Equal(t, out.Bounty, out.BountyPaid)
	require.Equal(t, out.BountyPaid, sb.Balance(sandbox.Operator, sandbox.Reward))
	require.True(t, out.LPAdded.IsPositive())

	worker = sb.Worker.GetWorker(sb.Ctx, sandbox.StableWorker)
	require.Equal(t, sharesBefore, worker.TotalShare)
	require.True(t, sb.Worker.BalanceOf(sb.Ctx, sandbox.StableWorker, res.PositionID).GT(lpBefore))
	require.Equal(t, out.SwappedBase, worker.TotalReinvested)
	require.Equal(t, sb.Ctx.BlockTime().Unix(), worker.LastReinvestTime)

	sb.Advance(time.Minute)
	_, err = sb.Worker.Reinvest(sb.Ctx, sandbox.Operator, sandbox.StableWorker, math.NewInt(1_000_000_000))
	require.ErrorIs(t, err, types.ErrBelowMinSwapOut)
}

// TestWorkReinvestsPendingReward tests that Work compounds pending reward first
func TestWorkReinvestsPendingReward(t *testing.T) {
	sb := setupFarm(t)
	_, err := work(sb, 0, 1_000_000, 1_000_000, 0, types.StrategyAddBaseTokenOnly, nil)
	require.NoError(t, err)

	sb.Advance(time.Minute)
	_, err = work(sb, 0, 100_000, 0, 0, types.StrategyAddBaseTokenOnly, nil)
	require.NoError(t, err)

	worker := sb.Worker.GetWorker(sb.Ctx, sandbox.StableWorker)
	require.True(t, worker.TotalReinvested.IsPositive())
	require.Equal(t, sb.Ctx.BlockTime().Unix(), worker.LastReinvestTime)
	require.True(t, sb.Balance(sandbox.Treasury, sandbox.Reward).IsPositive())
	require.True(t, sb.Worker.PendingReward(sb.Ctx, sandbox.StableWorker).IsZero())
}

// TestHarvestRestrictedToRecipient tests that only the configured module may harvest
func TestHarvestRestrictedToRecipient(t *testing.T) {
	sb := setupFarm(t)

	_, err := sb.Worker.Harvest(sb.Ctx, sandbox.StableWorker, dntypes.ModuleName)
	require.ErrorIs(t, err, types.ErrNotAuthorized)
	_, err = sb.Worker.Harvest(sb.Ctx, sandbox.DNStableWorker, vaulttypes.ModuleName)
	require.ErrorIs(t, err, types.ErrNotAuthorized)

	reward, err := sb.Worker.Harvest(sb.Ctx, sandbox.DNStableWorker, dntypes.ModuleName)
	require.NoError(t, err)
	require.True(t, reward.IsZero())
}

// TestPartialCloseMinimizeTrading tests partial close that repays debt from the base side first
func TestPartialCloseMinimizeTrading(t *testing.T) {
	sb := setupFarm(t)
	res, err := work(sb, 0, 1_000_000, 1_000_000, 0, types.StrategyAddBaseTokenOnly, nil)
	require.NoError(t, err)
	lp := sb.Worker.BalanceOf(sb.Ctx, sandbox.StableWorker, res.PositionID)

	closed, err := work(sb, res.PositionID, 0, 0, 500_000, types.StrategyPartialCloseMinimizeTrading,
		types.PartialCloseMinimizeTradingParams{LPToLiquidate: lp.QuoRaw(2), MaxDebtRepay: math.NewInt(500_000)})
	require.NoError(t, err)
	require.Equal(t, math.NewInt(500_000), closed.Debt)
	require.True(t, sb.Balance(sandbox.Farmer, sandbox.Asset).IsPositive())
	require.Equal(t, lp.Sub(lp.QuoRaw(2)), sb.Worker.BalanceOf(sb.Ctx, sandbox.StableWorker, res.PositionID))

	_, err = work(sb, res.PositionID, 0, 0, 500_000, types.StrategyPartialCloseMinimizeTrading,
		types.PartialCloseMinimizeTradingParams{MaxDebtRepay: math.NewInt(500_000)})
	require.ErrorIs(t, err, types.ErrInsufficientFarm)
}

// TestPartialCloseLiquidate tests partial close through a full swap to base
func TestPartialCloseLiquidate(t *testing.T) {
	sb := setupFarm(t)
	res, err := work(sb, 0, 1_000_000, 1_000_000, 0, types.StrategyAddBaseTokenOnly, nil)
	require.NoError(t, err)
	lp := sb.Worker.BalanceOf(sb.Ctx, sandbox.StableWorker, res.PositionID)

	closed, err := work(sb, res.PositionID, 0, 0, 400_000, types.StrategyPartialCloseLiquidate,
		types.PartialCloseLiquidateParams{LPToLiquidate: lp.QuoRaw(2), MaxDebtRepay: math.NewInt(400_000)})
	require.NoError(t, err)
	require.Equal(t, math.NewInt(600_000), closed.Debt)
	require.True(t, closed.Returned.IsPositive())
}

// TestAddTwoSidesOptimal tests opening with both tokens
func TestAddTwoSidesOptimal(t *testing.T) {
	sb := setupFarm(t)
	require.NoError(t, sb.Fund(sandbox.Farmer, sdk.NewInt64Coin(sandbox.Asset, 50_000)))

	res, err := work(sb, 0, 500_000, 0, 0, types.StrategyAddTwoSidesOptimal,
		types.AddTwoSidesOptimalParams{FarmTokenAmount: math.NewInt(50_000)})
	require.NoError(t, err)
	require.True(t, res.Health.GT(math.NewInt(900_000)))
	require.True(t, sb.Balance(sandbox.Farmer, sandbox.Asset).LT(math.NewInt(50_000)))
}

// TestIsStable tests the pool against oracle price check
func TestIsStable(t *testing.T) {
	sb := setupFarm(t)
	require.NoError(t, sb.Worker.IsStable(sb.Ctx, sandbox.StableWorker))

	_, err := work(sb, 0, 1_000_000, 1_000_000, 0, types.StrategyAddBaseTokenOnly, nil)
	require.NoError(t, err)
	require.ErrorIs(t, sb.Worker.IsStable(sb.Ctx, sandbox.StableWorker), types.ErrWorkerUnstable)

	pool := sb.Amm.GetPool(sb.Ctx, ammtypes.PoolIDFor(sandbox.Stable, sandbox.Asset))
	require.NoError(t, sb.SetPrice(sandbox.Asset, pool.SpotPrice(sandbox.Asset)))
	require.NoError(t, sb.Worker.IsStable(sb.Ctx, sandbox.StableWorker))
}

func configureWorker(t *testing.T, sb *sandbox.Sandbox, mutate func(*types.WorkerConfig)) {
	t.Helper()
	cfg := sb.Worker.GetWorker(sb.Ctx, sandbox.StableWorker).Config
	cfg.Reinvestors = []string{sandbox.Operator.String()}
	mutate(&cfg)
	_, err := sb.Worker.UpdateWorkerConfig(sb.Ctx, sb.Authority, sandbox.StableWorker, cfg)
	require.NoError(t, err)
}

// TestReinvestWithoutSharesKeepsLedgerEmpty tests that a reinvest after the last
// position closed cannot hand farm proceeds to the next position opened
func TestReinvestWithoutSharesKeepsLedgerEmpty(t *testing.T) {
	sb := setupFarm(t)
	configureWorker(t, sb, func(cfg *types.WorkerConfig) {
		cfg.ReinvestThreshold = math.NewInt(1_000_000_000)
	})

	res, err := work(sb, 0, 1_000_000, 1_000_000, 0, types.StrategyAddBaseTokenOnly, nil)
	require.NoError(t, err)
	sb.Advance(5 * time.Minute)
	_, err = work(sb, res.PositionID, 0, 0, 1_000_000_000, types.StrategyLiquidate, nil)
	require.NoError(t, err)

	worker := sb.Worker.GetWorker(sb.Ctx, sandbox.StableWorker)
	require.True(t, worker.TotalShare.IsZero())
	require.True(t, sb.Worker.TotalBalance(sb.Ctx, worker).IsZero())

	sb.Advance(time.Minute)
	_, err = sb.Worker.Reinvest(sb.Ctx, sandbox.Operator, sandbox.StableWorker, math.ZeroInt())
	require.ErrorIs(t, err, types.ErrNoShares)
	worker = sb.Worker.GetWorker(sb.Ctx, sandbox.StableWorker)
	require.True(t, sb.Worker.TotalBalance(sb.Ctx, worker).IsZero())
	require.True(t, worker.TotalReinvested.IsZero())

	// a newcomer's claim is backed by its own principal only
	next, err := work(sb, 0, 10_000, 0, 0, types.StrategyAddBaseTokenOnly, nil)
	require.NoError(t, err)
	worker = sb.Worker.GetWorker(sb.Ctx, sandbox.StableWorker)
	lp := sb.Worker.BalanceOf(sb.Ctx, sandbox.StableWorker, next.PositionID)
	require.Equal(t, sb.Worker.TotalBalance(sb.Ctx, worker), lp)
	require.Equal(t, worker.TotalShare, sb.Worker.GetShare(sb.Ctx, sandbox.StableWorker, next.PositionID))
	require.True(t, next.Health.LTE(math.NewInt(10_000)))
}

// TestReinvestBountyCarriesOverThreshold tests that the bounty accrues across reinvests
// and is paid out in full once it reaches the threshold
func TestReinvestBountyCarriesOverThreshold(t *testing.T) {
	sb := setupFarm(t)
	_, err := work(sb, 0, 1_000_000, 1_000_000, 0, types.StrategyAddBaseTokenOnly, nil)
	require.NoError(t, err)
	// 30s of reward at 1000/s earns a bounty of about 900
	configureWorker(t, sb, func(cfg *types.WorkerConfig) {
		cfg.ReinvestThreshold = math.NewInt(2_500)
	})

	steps := []struct {
		name    string
		advance time.Duration
		paid    bool
	}{
		{"first bounty is carried", 30 * time.Second, false},
		{"second bounty is carried", 30 * time.Second, false},
		{"third crosses threshold", 30 * time.Second, true},
		{"counter restarts after payout", 30 * time.Second, false},
		{"small reward adds to carry", 10 * time.Second, false},
		{"large reward pays everything", 2 * time.Minute, true},
	}

	acc := math.ZeroInt()
	paidTotal := math.ZeroInt()
	for _, step := range steps {
		sb.Advance(step.advance)
		out, err := sb.Worker.Reinvest(sb.Ctx, sandbox.Operator, sandbox.StableWorker, math.ZeroInt())
		require.NoError(t, err, step.name)
		require.True(t, out.Bounty.IsPositive(), step.name)
		require.True(t, out.Beneficial.IsZero(), step.name)

		acc = acc.Add(out.Bounty)
		if step.paid {
			require.Equal(t, acc, out.BountyPaid, step.name)
			require.True(t, out.BountyPaid.GTE(math.NewInt(2_500)), step.name)
			paidTotal = paidTotal.Add(acc)
			acc = math.ZeroInt()
		} else {
			require.True(t, out.BountyPaid.IsZero(), step.name)
			require.True(t, acc.LT(math.NewInt(2_500)), step.name)
		}
		require.Equal(t, acc, sb.Worker.GetWorker(sb.Ctx, sandbox.StableWorker).AccumulatedBounty, step.name)
		require.Equal(t, paidTotal, sb.Balance(sandbox.Operator, sandbox.Reward), step.name)
	}
}

// TestReinvestBuysBackIntoBeneficialVault tests that the beneficial share of the bounty
// is swapped along the reward path and credited to the beneficiary vault's lenders
func TestReinvestBuysBackIntoBeneficialVault(t *testing.T) {
	sb := setupFarm(t)
	_, err := work(sb, 0, 1_000_000, 1_000_000, 0, types.StrategyAddBaseTokenOnly, nil)
	require.NoError(t, err)
	configureWorker(t, sb, func(cfg *types.WorkerConfig) {
		cfg.BeneficialVaultID = sandbox.AssetVault
		cfg.BeneficialVaultBountyBps = 5000
		cfg.RewardPath = []string{sandbox.Reward, sandbox.Asset}
	})

	before := sb.Vault.GetVault(sb.Ctx, sandbox.AssetVault)
	lenderShares := sb.Balance(sandbox.Lender, vaulttypes.ShareDenom(sandbox.AssetVault))
	require.Equal(t, before.TotalShareSupply, lenderShares)

	sb.Advance(10 * time.Minute)
	out, err := sb.Worker.Reinvest(sb.Ctx, sandbox.Operator, sandbox.StableWorker, math.ZeroInt())
	require.NoError(t, err)
	require.True(t, out.Beneficial.IsPositive())
	require.Equal(t, out.Bounty.MulRaw(5000).QuoRaw(10000), out.Beneficial)
	require.Equal(t, out.Bounty.Sub(out.Beneficial), out.BountyPaid)
	require.Equal(t, out.BountyPaid, sb.Balance(sandbox.Operator, sandbox.Reward))

	worker := sb.Worker.GetWorker(sb.Ctx, sandbox.StableWorker)
	require.True(t, worker.BuybackAmount.IsZero())
	require.True(t, worker.AccumulatedBounty.IsZero())

	// lenders own the credited asset without new shares being minted
	after := sb.Vault.GetVault(sb.Ctx, sandbox.AssetVault)
	require.True(t, after.TotalPooledAsset.GT(before.TotalPooledAsset))
	require.Equal(t, before.TotalShareSupply, after.TotalShareSupply)
	require.True(t, after.TotalToken().Mul(before.TotalShareSupply).GT(before.TotalToken().Mul(after.TotalShareSupply)))

	redeemed, err := sb.Vault.Withdraw(sb.Ctx, sandbox.Lender, sandbox.AssetVault, lenderShares)
	require.NoError(t, err)
	require.Equal(t, after.TotalPooledAsset, redeemed)
	require.True(t, redeemed.GT(math.NewInt(500_000)))
}

// TestBeneficialVaultRequiresRewardPath tests reward path validation of worker configs
func TestBeneficialVaultRequiresRewardPath(t *testing.T) {
	sb := setupFarm(t)
	base := sb.Worker.GetWorker(sb.Ctx, sandbox.StableWorker).Config
	base.BeneficialVaultID = sandbox.AssetVault
	base.BeneficialVaultBountyBps = 5000

	cases := []struct {
		name string
		path []string
	}{
		{"missing path", nil},
		{"path does not start with reward", []string{sandbox.Stable, sandbox.Asset}},
		{"path ends in the wrong denom", []string{sandbox.Reward, sandbox.Stable}},
	}
	for _, tc := range cases {
		cfg := base
		cfg.RewardPath = tc.path
		_, err := sb.Worker.UpdateWorkerConfig(sb.Ctx, sb.Authority, sandbox.StableWorker, cfg)
		require.ErrorIs(t, err, types.ErrBadRewardPath, tc.name)
	}

	cfg := base
	cfg.RewardPath = []string{sandbox.Reward, sandbox.Asset}
	_, err := sb.Worker.UpdateWorkerConfig(sb.Ctx, sb.Authority, sandbox.StableWorker, cfg)
	require.NoError(t, err)
}

// TestReinvestDoesNotDiluteAnyPosition tests that compounding grows every position's
// claim while leaving shares untouched
func TestReinvestDoesNotDiluteAnyPosition(t *testing.T) {
	sb := setupFarm(t)
	var ids []uint64
	for _, amounts := range [][2]int64{{1_000_000, 1_000_000}, {300_000, 0}, {50_000, 20_000}} {
		res, err := work(sb, 0, amounts[0], amounts[1], 0, types.StrategyAddBaseTokenOnly, nil)
		require.NoError(t, err)
		ids = append(ids, res.PositionID)
	}
	configureWorker(t, sb, func(*types.WorkerConfig) {})

	shares := make(map[uint64]math.Int)
	balances := make(map[uint64]math.Int)
	for _, id := range ids {
		shares[id] = sb.Worker.GetShare(sb.Ctx, sandbox.StableWorker, id)
		balances[id] = sb.Worker.BalanceOf(sb.Ctx, sandbox.StableWorker, id)
	}

	sb.Advance(10 * time.Minute)
	out, err := sb.Worker.Reinvest(sb.Ctx, sandbox.Operator, sandbox.StableWorker, math.ZeroInt())
	require.NoError(t, err)
	require.True(t, out.LPAdded.IsPositive())

	worker := sb.Worker.GetWorker(sb.Ctx, sandbox.StableWorker)
	total := sb.Worker.TotalBalance(sb.Ctx, worker)
	claims := math.ZeroInt()
	for _, id := range ids {
		require.Equal(t, shares[id], sb.Worker.GetShare(sb.Ctx, sandbox.StableWorker, id))
		lp := sb.Worker.BalanceOf(sb.Ctx, sandbox.StableWorker, id)
		require.True(t, lp.GT(balances[id]), "position %d", id)
		// the claim tracks the position's fixed fraction of all shares
		require.Equal(t, shares[id].Mul(total).Quo(worker.TotalShare), lp)
		claims = claims.Add(lp)
	}
	require.True(t, claims.LTE(total))
}
