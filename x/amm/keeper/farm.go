package keeper

import (
	"encoding/json"

	"cosmossdk.io/math"
	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/levfarm/x/amm/types"
)

// ============ Farm Storage ============

// SetFarm saves a farm to the store
func (k *Keeper) SetFarm(ctx sdk.Context, farm *types.Farm) {
	store := k.GetStore(ctx)
	key := append(FarmKeyPrefix, []byte(farm.FarmID)...)
	bz, _ := json.Marshal(farm)
	store.Set(key, bz)
}

// GetFarm retrieves a farm from the store
func (k *Keeper) GetFarm(ctx sdk.Context, farmID string) *types.Farm {
	store := k.GetStore(ctx)
	key := append(FarmKeyPrefix, []byte(farmID)...)
	bz := store.Get(key)
	if bz == nil {
		return nil
	}
	var farm types.Farm
	if err := json.Unmarshal(bz, &farm); err != nil {
		return nil
	}
	return &farm
}

// GetAllFarms returns all farms
func (k *Keeper) GetAllFarms(ctx sdk.Context) []*types.Farm {
	store := k.GetStore(ctx)
	iterator := storetypes.KVStorePrefixIterator(store, FarmKeyPrefix)
	defer iterator.Close()

	var farms []*types.Farm
	for ; iterator.Valid(); iterator.Next() {
		var farm types.Farm
		if err := json.Unmarshal(iterator.Value(), &farm); err != nil {
			continue
		}
		farms = append(farms, &farm)
	}
	return farms
}

func stakeKey(farmID, stakeRef string) []byte {
	return append(StakeKeyPrefix, []byte(farmID+"|"+stakeRef)...)
}

func (k *Keeper) setStake(ctx sdk.Context, stake *types.Stake) {
	bz, _ := json.Marshal(stake)
	k.GetStore(ctx).Set(stakeKey(stake.FarmID, stake.StakeRef), bz)
}

// GetStake returns the stake record, or an empty one
func (k *Keeper) GetStake(ctx sdk.Context, farmID, stakeRef string) *types.Stake {
	bz := k.GetStore(ctx).Get(stakeKey(farmID, stakeRef))
	if bz == nil {
		return types.NewStake(farmID, stakeRef)
	}
	var stake types.Stake
	if err := json.Unmarshal(bz, &stake); err != nil {
		return types.NewStake(farmID, stakeRef)
	}
	return &stake
}

// ============ Farm Operations ============

// CreateFarm registers a reward stream. Rewards are minted on harvest.
func (k *Keeper) CreateFarm(ctx sdk.Context, farmID, poolID, rewardDenom string, rewardPerSecond math.Int, performanceFeeBps uint32) (*types.Farm, error) {
	if k.GetPool(ctx, poolID) == nil {
		return nil, types.ErrPoolNotFound.Wrap(poolID)
	}
	if k.GetFarm(ctx, farmID) != nil {
		return nil, types.ErrInvalidAmount.Wrapf("farm %s exists", farmID)
	}
	if rewardPerSecond.IsNegative() || performanceFeeBps > types.BpsDenominator {
		return nil, types.ErrInvalidAmount
	}
	farm := &types.Farm{
		FarmID:            farmID,
		PoolID:            poolID,
		RewardDenom:       rewardDenom,
		RewardPerSecond:   rewardPerSecond,
		PerformanceFeeBps: performanceFeeBps,
		TotalStaked:       math.ZeroInt(),
		AccRewardPerShare: math.LegacyZeroDec(),
		LastRewardTime:    ctx.BlockTime().Unix(),
	}
	k.SetFarm(ctx, farm)
	k.logger.Info("Farm created", "farm_id", farmID, "pool_id", poolID, "reward_denom", rewardDenom)
	return farm, nil
}

// Stake moves amount of holder's LP into the farm under stakeRef
func (k *Keeper) Stake(ctx sdk.Context, farmID, holder, stakeRef string, amount math.Int) error {
	farm := k.GetFarm(ctx, farmID)
	if farm == nil {
		return types.ErrFarmNotFound.Wrap(farmID)
	}
	if !amount.IsPositive() {
		return nil
	}
	bal := k.GetLPBalance(ctx, farm.PoolID, holder)
	if bal.LT(amount) {
		return types.ErrInsufficientLP.Wrapf("%s has %s, need %s", holder, bal, amount)
	}
	farm.Accrue(ctx.BlockTime().Unix())
	stake := k.GetStake(ctx, farmID, stakeRef)
	stake.Settle(farm)
	stake.Amount = stake.Amount.Add(amount)
	stake.RewardDebt = farm.AccRewardPerShare.MulInt(stake.Amount)
	farm.TotalStaked = farm.TotalStaked.Add(amount)

	k.setLPBalance(ctx, farm.PoolID, holder, bal.Sub(amount))
	k.setStake(ctx, stake)
	k.SetFarm(ctx, farm)
	return nil
}

// Unstake returns amount of staked LP from stakeRef to holder. Pending reward is kept.
func (k *Keeper) Unstake(ctx sdk.Context, farmID, stakeRef, holder string, amount math.Int) error {
	farm := k.GetFarm(ctx, farmID)
	if farm == nil {
		return types.ErrFarmNotFound.Wrap(farmID)
	}
	if !amount.IsPositive() {
		return nil
	}
	farm.Accrue(ctx.BlockTime().Unix())
	stake := k.GetStake(ctx, farmID, stakeRef)
	if stake.Amount.LT(amount) {
		return types.ErrInsufficientLP.Wrapf("staked %s, need %s", stake.Amount, amount)
	}
	stake.Settle(farm)
	stake.Amount = stake.Amount.Sub(amount)
	stake.RewardDebt = farm.AccRewardPerShare.MulInt(stake.Amount)
	farm.TotalStaked = farm.TotalStaked.Sub(amount)

	k.setLPBalance(ctx, farm.PoolID, holder, k.GetLPBalance(ctx, farm.PoolID, holder).Add(amount))
	k.setStake(ctx, stake)
	k.SetFarm(ctx, farm)
	return nil
}

// StakedBalance returns the LP staked under stakeRef
func (k *Keeper) StakedBalance(ctx sdk.Context, farmID, stakeRef string) math.Int {
	return k.GetStake(ctx, farmID, stakeRef).Amount
}

// PendingReward returns the gross reward claimable by stakeRef at the current block time
func (k *Keeper) PendingReward(ctx sdk.Context, farmID, stakeRef string) math.Int {
	farm := k.GetFarm(ctx, farmID)
	if farm == nil {
		return math.ZeroInt()
	}
	farm.Accrue(ctx.BlockTime().Unix())
	return k.GetStake(ctx, farmID, stakeRef).Pending(farm)
}

// Harvest mints the pending reward of stakeRef, takes the farm's performance fee
// and sends the remainder to toModule. Returns the net amount received.
func (k *Keeper) Harvest(ctx sdk.Context, farmID, stakeRef, toModule string) (math.Int, error) {
	farm := k.GetFarm(ctx, farmID)
	if farm == nil {
		return math.ZeroInt(), types.ErrFarmNotFound.Wrap(farmID)
	}
	farm.Accrue(ctx.BlockTime().Unix())
	stake := k.GetStake(ctx, farmID, stakeRef)
	stake.Settle(farm)
	reward := stake.Unclaimed
	stake.Unclaimed = math.ZeroInt()
	k.setStake(ctx, stake)
	k.SetFarm(ctx, farm)

	if reward.IsZero() {
		return reward, nil
	}
	if err := k.bankKeeper.MintCoins(ctx, types.ModuleName, sdk.NewCoins(sdk.NewCoin(farm.RewardDenom, reward))); err != nil {
		return math.ZeroInt(), err
	}
	fee := reward.MulRaw(int64(farm.PerformanceFeeBps)).QuoRaw(types.BpsDenominator)
	if fee.IsPositive() {
		if err := k.bankKeeper.SendCoinsFromModuleToModule(ctx, types.ModuleName, k.feeCollector, sdk.NewCoins(sdk.NewCoin(farm.RewardDenom, fee))); err != nil {
			return math.ZeroInt(), err
		}
	}
	net := reward.Sub(fee)
	if net.IsPositive() {
		if err := k.bankKeeper.SendCoinsFromModuleToModule(ctx, types.ModuleName, toModule, sdk.NewCoins(sdk.NewCoin(farm.RewardDenom, net))); err != nil {
			return math.ZeroInt(), err
		}
	}

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			"amm_harvest",
			sdk.NewAttribute("farm_id", farmID),
			sdk.NewAttribute("stake_ref", stakeRef),
			sdk.NewAttribute("reward", reward.String()),
			sdk.NewAttribute("performance_fee", fee.String()),
		),
	)
	return net, nil
}
