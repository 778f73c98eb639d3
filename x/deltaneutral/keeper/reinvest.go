package keeper

import (
	"time"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/levfarm/metrics"
	"github.com/openalpha/levfarm/x/deltaneutral/types"
)

// ReinvestResult reports one delta-neutral reinvest
type ReinvestResult struct {
	Reward      math.Int
	Bounty      math.Int
	Beneficiary math.Int
	Swapped     math.Int
	EquityAdded math.LegacyDec
}

// Reinvest harvests both legs' farm rewards, takes the bounty, swaps the rest to the
// stable denom and deploys it. Share supply is unchanged so every holder gains pro rata.
func (k *Keeper) Reinvest(ctx sdk.Context, caller sdk.AccAddress, dnID string, minTokenReceive math.Int, actions []types.Action) (*ReinvestResult, error) {
	vault, err := k.mustGetVault(ctx, dnID)
	if err != nil {
		return nil, err
	}
	if !vault.Config.IsReinvestor(caller.String()) {
		return nil, types.ErrNotAuthorized.Wrapf("%s is not a reinvestor", caller)
	}
	if !vault.Initialized() {
		return nil, types.ErrNotInitialized.Wrap(dnID)
	}
	if len(vault.Config.ReinvestPath) == 0 {
		return nil, types.ErrBadReinvestPath.Wrap("no reinvest path configured")
	}

	cacheCtx, write := ctx.CacheContext()
	res, err := k.reinvest(cacheCtx, vault, orZero(minTokenReceive), actions)
	if err != nil {
		metrics.GetCollector().RecordDNAction(dnID, "reinvest", "failed")
		return nil, err
	}
	write()

	metrics.GetCollector().RecordDNAction(dnID, "reinvest", "success")
	k.logger.Info("Delta-neutral reinvested",
		"dn_id", dnID,
		"reward", res.Reward.String(),
		"swapped", res.Swapped.String(),
		"equity_added", res.EquityAdded.String(),
		"at", time.Unix(vault.LastReinvestTime, 0).UTC().Format(time.RFC3339),
	)
	return res, nil
}

func (k *Keeper) reinvest(ctx sdk.Context, vault *types.DeltaNeutralVault, minTokenReceive math.Int, actions []types.Action) (*ReinvestResult, error) {
	cfg := vault.Config
	before, err := k.positionState(ctx, vault)
	if err != nil {
		return nil, err
	}

	reward := math.ZeroInt()
	for _, leg := range []types.Leg{vault.StableLeg, vault.AssetLeg} {
		harvested, err := k.workerKeeper.Harvest(ctx, leg.WorkerID, types.ModuleName)
		if err != nil {
			return nil, err
		}
		reward = reward.Add(harvested)
	}
	res := &ReinvestResult{
		Reward:      reward,
		Bounty:      reward.MulRaw(int64(cfg.ReinvestBountyBps)).QuoRaw(types.BpsDenominator),
		Beneficiary: math.ZeroInt(),
		Swapped:     math.ZeroInt(),
	}

	rewardDenom := cfg.ReinvestPath[0]
	if res.Bounty.IsPositive() {
		if cfg.BeneficiaryBps > 0 {
			res.Beneficiary = res.Bounty.MulRaw(int64(cfg.BeneficiaryBps)).QuoRaw(types.BpsDenominator)
			if err := k.payReward(ctx, cfg.Beneficiary, rewardDenom, res.Beneficiary); err != nil {
				return nil, err
			}
		}
		if err := k.payReward(ctx, cfg.Treasury, rewardDenom, res.Bounty.Sub(res.Beneficiary)); err != nil {
			return nil, err
		}
	}

	idleStable, idleAsset := k.idle(ctx, vault)
	if toSwap := reward.Sub(res.Bounty); toSwap.IsPositive() {
		if len(cfg.ReinvestPath) > 1 {
			if res.Swapped, err = k.ammKeeper.SwapExactIn(ctx, types.ModuleName, toSwap, cfg.ReinvestPath, math.ZeroInt()); err != nil {
				return nil, err
			}
		} else {
			res.Swapped = toSwap
		}
	}
	if res.Swapped.LT(minTokenReceive) {
		return nil, types.ErrBelowMinSwapOut.Wrapf("received %s < min %s", res.Swapped, minTokenReceive)
	}

	if len(actions) == 0 && res.Swapped.IsPositive() {
		if actions, err = k.planDeposit(ctx, vault, before, res.Swapped, math.ZeroInt()); err != nil {
			return nil, err
		}
	}
	if err := k.execute(ctx, vault, actions); err != nil {
		return nil, err
	}

	after, err := k.positionState(ctx, vault)
	if err != nil {
		return nil, err
	}
	// coins still idle count toward equity added
	nowStable, nowAsset := k.idle(ctx, vault)
	idleGain := valueOf(after.StablePrice, nowStable.Sub(idleStable)).
		Add(valueOf(after.AssetPrice, nowAsset.Sub(idleAsset)))
	res.EquityAdded = after.Equity().Sub(before.Equity()).Add(idleGain)

	swappedValue := valueOf(before.StablePrice, res.Swapped)
	floor := swappedValue.MulInt64(types.BpsDenominator - int64(cfg.PositionValueToleranceBps)).QuoInt64(types.BpsDenominator)
	if after.Equity().Sub(before.Equity()).LT(floor) {
		return nil, types.ErrUnsafePositionEquity.Wrapf("equity %s -> %s, reinvested %s", before.Equity(), after.Equity(), swappedValue)
	}

	vault.TotalReinvested = vault.TotalReinvested.Add(res.Swapped)
	vault.LastReinvestTime = ctx.BlockTime().Unix()
	k.SetVault(ctx, vault)

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			"deltaneutral_reinvest",
			sdk.NewAttribute("dn_id", vault.DNID),
			sdk.NewAttribute("reward", reward.String()),
			sdk.NewAttribute("bounty", res.Bounty.String()),
			sdk.NewAttribute("beneficiary", res.Beneficiary.String()),
			sdk.NewAttribute("swapped", res.Swapped.String()),
			sdk.NewAttribute("equity_added", res.EquityAdded.String()),
		),
	)
	metrics.GetCollector().RecordReinvest(vault.DNID, "deltaneutral", metrics.IntValue(reward), metrics.IntValue(res.Bounty))
	metrics.GetCollector().RecordDNEquity(vault.DNID, metrics.DecValue(after.Equity()))
	return res, nil
}

func (k *Keeper) payReward(ctx sdk.Context, recipient, denom string, amount math.Int) error {
	if !amount.IsPositive() {
		return nil
	}
	addr, err := sdk.AccAddressFromBech32(recipient)
	if err != nil {
		return err
	}
	return k.bankKeeper.SendCoinsFromModuleToAccount(ctx, types.ModuleName, addr, sdk.NewCoins(sdk.NewCoin(denom, amount)))
}
