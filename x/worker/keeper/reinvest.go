package keeper

import (
	"time"

	"cosmossdk.io/errors"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/levfarm/metrics"
	ammtypes "github.com/openalpha/levfarm/x/amm/types"
	"github.com/openalpha/levfarm/x/worker/types"
)

// Reinvest harvests the worker's farm reward, takes the reinvest bounty and compounds
// the rest into LP owned by the worker as a whole. Only allow-listed reinvestors may call.
// A worker without shares has no position to compound for and its reward stays pending.
func (k *Keeper) Reinvest(ctx sdk.Context, caller sdk.AccAddress, workerID string, minSwapOut math.Int) (*types.ReinvestResult, error) {
	if err := k.guard.Enter(workerID); err != nil {
		return nil, err
	}
	defer k.guard.Exit(workerID)

	worker, err := k.mustGetWorker(ctx, workerID)
	if err != nil {
		return nil, err
	}
	if !worker.Config.IsReinvestor(caller.String()) {
		return nil, types.ErrNotAuthorized.Wrapf("%s is not a reinvestor of %s", caller, workerID)
	}
	if worker.TotalShare.IsZero() {
		return nil, types.ErrNoShares.Wrap(workerID)
	}
	res, err := k.reinvest(ctx, worker, caller, minSwapOut, "manual")
	if err != nil {
		return nil, err
	}
	k.SetWorker(ctx, worker)
	return res, nil
}

// Harvest sends the worker's full pending reward to recipientModule without compounding.
// Only the worker's configured harvest recipient may pull rewards.
func (k *Keeper) Harvest(ctx sdk.Context, workerID, recipientModule string) (math.Int, error) {
	if err := k.guard.Enter(workerID); err != nil {
		return math.ZeroInt(), err
	}
	defer k.guard.Exit(workerID)

	worker, err := k.mustGetWorker(ctx, workerID)
	if err != nil {
		return math.ZeroInt(), err
	}
	if worker.Config.HarvestRecipient == "" || worker.Config.HarvestRecipient != recipientModule {
		return math.ZeroInt(), types.ErrNotAuthorized.Wrapf("%s may not harvest %s", recipientModule, workerID)
	}
	reward, err := k.ammKeeper.Harvest(ctx, worker.Config.FarmID, types.StakeRef(workerID), recipientModule)
	if err != nil {
		return math.ZeroInt(), err
	}

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			"worker_harvest",
			sdk.NewAttribute("worker_id", workerID),
			sdk.NewAttribute("recipient", recipientModule),
			sdk.NewAttribute("reward", reward.String()),
		),
	)
	return reward, nil
}

// PendingReward returns the gross farm reward the worker could harvest now
func (k *Keeper) PendingReward(ctx sdk.Context, workerID string) math.Int {
	worker := k.GetWorker(ctx, workerID)
	if worker == nil {
		return math.ZeroInt()
	}
	return k.ammKeeper.PendingReward(ctx, worker.Config.FarmID, types.StakeRef(workerID))
}

// reinvestDue reports whether Work should compound before running its strategy.
// Workers with a harvest recipient are compounded by that recipient.
func (k *Keeper) reinvestDue(ctx sdk.Context, worker *types.Worker) bool {
	if worker.TotalShare.IsZero() || worker.Config.HarvestRecipient != "" {
		return false
	}
	pending := k.ammKeeper.PendingReward(ctx, worker.Config.FarmID, types.StakeRef(worker.WorkerID))
	if !pending.IsPositive() {
		return false
	}
	return pending.GTE(worker.Config.ReinvestThreshold)
}

// reinvest compounds the worker's reward. The bounty accrues in the reward denom and
// is paid to payee once it reaches the reinvest threshold. The caller persists worker.
func (k *Keeper) reinvest(ctx sdk.Context, worker *types.Worker, payee sdk.AccAddress, minSwapOut math.Int, trigger string) (*types.ReinvestResult, error) {
	cfg := worker.Config
	ref := types.StakeRef(worker.WorkerID)
	rewardDenom := cfg.RewardDenom()

	reward, err := k.ammKeeper.Harvest(ctx, cfg.FarmID, ref, types.ModuleName)
	if err != nil {
		return nil, err
	}
	res := &types.ReinvestResult{
		Reward:      reward,
		Bounty:      reward.MulRaw(int64(cfg.ReinvestBountyBps)).QuoRaw(types.BpsDenominator),
		Beneficial:  math.ZeroInt(),
		BountyPaid:  math.ZeroInt(),
		SwappedBase: math.ZeroInt(),
		LPAdded:     math.ZeroInt(),
	}

	if cfg.BeneficialVaultBountyBps > 0 && res.Bounty.IsPositive() {
		res.Beneficial = res.Bounty.MulRaw(int64(cfg.BeneficialVaultBountyBps)).QuoRaw(types.BpsDenominator)
		worker.BuybackAmount = worker.BuybackAmount.Add(res.Beneficial)
		if err := k.buyback(ctx, worker); err != nil {
			return nil, err
		}
	}

	worker.AccumulatedBounty = worker.AccumulatedBounty.Add(res.Bounty).Sub(res.Beneficial)
	if !payee.Empty() && worker.AccumulatedBounty.IsPositive() && worker.AccumulatedBounty.GTE(cfg.ReinvestThreshold) {
		coins := sdk.NewCoins(sdk.NewCoin(rewardDenom, worker.AccumulatedBounty))
		if err := k.bankKeeper.SendCoinsFromModuleToAccount(ctx, types.ModuleName, payee, coins); err != nil {
			return nil, err
		}
		res.BountyPaid = worker.AccumulatedBounty
		worker.AccumulatedBounty = math.ZeroInt()
	}

	toSwap := reward.Sub(res.Bounty)
	if toSwap.IsPositive() {
		if len(cfg.ReinvestPath) > 1 {
			res.SwappedBase, err = k.ammKeeper.SwapExactIn(ctx, types.ModuleName, toSwap, cfg.ReinvestPath, math.ZeroInt())
			if err != nil {
				return nil, err
			}
		} else {
			res.SwappedBase = toSwap
		}
	}
	if res.SwappedBase.LT(minSwapOut) {
		return nil, types.ErrBelowMinSwapOut.Wrapf("swapped %s < min %s", res.SwappedBase, minSwapOut)
	}

	if err := k.compound(ctx, worker, res); err != nil {
		return nil, err
	}
	worker.TotalReinvested = worker.TotalReinvested.Add(res.SwappedBase)
	worker.LastReinvestTime = ctx.BlockTime().Unix()

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			"worker_reinvest",
			sdk.NewAttribute("worker_id", worker.WorkerID),
			sdk.NewAttribute("trigger", trigger),
			sdk.NewAttribute("reward", reward.String()),
			sdk.NewAttribute("bounty", res.Bounty.String()),
			sdk.NewAttribute("beneficial", res.Beneficial.String()),
			sdk.NewAttribute("bounty_paid", res.BountyPaid.String()),
			sdk.NewAttribute("lp_added", res.LPAdded.String()),
		),
	)
	metrics.GetCollector().RecordReinvest(worker.WorkerID, trigger, metrics.IntValue(reward), metrics.IntValue(res.Bounty))

	k.logger.Info("Worker reinvested",
		"worker_id", worker.WorkerID,
		"trigger", trigger,
		"reward", reward.String(),
		"lp_added", res.LPAdded.String(),
		"at", time.Unix(worker.LastReinvestTime, 0).UTC().Format(time.RFC3339),
	)
	return res, nil
}

// compound adds swapped base plus carried dust to the pool with the add strategy and
// stakes the LP without minting shares, so every position's LP claim grows pro rata.
// Amounts too small to mint LP stay as dust.
func (k *Keeper) compound(ctx sdk.Context, worker *types.Worker, res *types.ReinvestResult) error {
	base := res.SwappedBase.Add(worker.BaseDust)
	if !base.IsPositive() {
		return nil
	}
	strategy, ok := k.strategies[worker.Config.AddStrategyID]
	if !ok {
		return types.ErrUnknownStrategy.Wrap(worker.Config.AddStrategyID)
	}

	cacheCtx, write := ctx.CacheContext()
	out, err := strategy.Execute(cacheCtx, k.strategyEnv(worker, k.treasury(worker), math.ZeroInt(), base, math.ZeroInt()), nil)
	if errors.IsOf(err, ammtypes.ErrInvalidAmount, ammtypes.ErrInsufficientLiquidity) {
		worker.BaseDust = base
		return nil
	}
	if err != nil {
		return err
	}
	if out.LP.IsPositive() {
		ref := types.StakeRef(worker.WorkerID)
		if err := k.ammKeeper.Stake(cacheCtx, worker.Config.FarmID, ref, ref, out.LP); err != nil {
			return err
		}
	}
	write()

	res.LPAdded = out.LP
	worker.BaseDust = out.Base
	return nil
}

// buyback swaps the pending beneficial bounty along the reward path and credits it to
// the beneficial vault. Without a wired vault keeper the amount stays pending.
func (k *Keeper) buyback(ctx sdk.Context, worker *types.Worker) error {
	if k.vaultKeeper == nil || !worker.BuybackAmount.IsPositive() {
		return nil
	}
	cfg := worker.Config
	amount := worker.BuybackAmount
	if len(cfg.RewardPath) > 1 {
		out, err := k.ammKeeper.SwapExactIn(ctx, types.ModuleName, amount, cfg.RewardPath, math.ZeroInt())
		if err != nil {
			return err
		}
		amount = out
	}
	if err := k.vaultKeeper.CreditBuyback(ctx, cfg.BeneficialVaultID, types.ModuleName, amount); err != nil {
		return err
	}
	worker.BuybackAmount = math.ZeroInt()
	return nil
}
