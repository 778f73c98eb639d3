package keeper

import (
	"encoding/json"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	ammtypes "github.com/openalpha/levfarm/x/amm/types"
	"github.com/openalpha/levfarm/x/worker/types"
)

// AddBaseTokenOnly swaps the optimal part of the base into the farming token and
// adds both to the pool.
type AddBaseTokenOnly struct{}

// Execute implements Strategy
func (AddBaseTokenOnly) Execute(ctx sdk.Context, env StrategyEnv, data json.RawMessage) (StrategyResult, error) {
	var params types.AddBaseTokenOnlyParams
	if err := decodeParams(data, &params); err != nil {
		return StrategyResult{}, err
	}
	lp, baseLeft, err := addLiquidity(ctx, env, env.BaseIn, math.ZeroInt(), params.MinLPReceive)
	if err != nil {
		return StrategyResult{}, err
	}
	return StrategyResult{LP: env.LP.Add(lp), Base: baseLeft}, nil
}

// AddTwoSidesOptimal pulls FarmTokenAmount from the owner, balances it with the base
// through one optimal swap and adds both to the pool.
type AddTwoSidesOptimal struct{}

// Execute implements Strategy
func (AddTwoSidesOptimal) Execute(ctx sdk.Context, env StrategyEnv, data json.RawMessage) (StrategyResult, error) {
	var params types.AddTwoSidesOptimalParams
	if err := decodeParams(data, &params); err != nil {
		return StrategyResult{}, err
	}
	if params.FarmTokenAmount.IsPositive() {
		if env.Owner.Empty() {
			return StrategyResult{}, types.ErrBadStrategyParams.Wrap("no owner to pull farming token from")
		}
		coins := sdk.NewCoins(sdk.NewCoin(env.FarmDenom, params.FarmTokenAmount))
		if err := env.Bank.SendCoinsFromAccountToModule(ctx, env.Owner, env.Module, coins); err != nil {
			return StrategyResult{}, err
		}
	}
	lp, baseLeft, err := addLiquidity(ctx, env, env.BaseIn, params.FarmTokenAmount, params.MinLPReceive)
	if err != nil {
		return StrategyResult{}, err
	}
	return StrategyResult{LP: env.LP.Add(lp), Base: baseLeft}, nil
}

// addLiquidity balances base and farm with one swap, adds them and returns the minted
// LP and the base left over. Farming-token leftovers go to the owner.
func addLiquidity(ctx sdk.Context, env StrategyEnv, base, farm, minLP math.Int) (math.Int, math.Int, error) {
	if base.IsZero() && farm.IsZero() {
		if minLP.IsPositive() {
			return math.ZeroInt(), math.ZeroInt(), types.ErrBelowMinSwapOut.Wrapf("lp 0 < min %s", minLP)
		}
		return math.ZeroInt(), math.ZeroInt(), nil
	}
	pool := env.Amm.GetPool(ctx, env.PoolID)
	if pool == nil {
		return math.ZeroInt(), math.ZeroInt(), ammtypes.ErrPoolNotFound.Wrap(env.PoolID)
	}
	rBase, rFarm := pool.ReserveOf(env.BaseDenom), pool.ReserveOf(env.FarmDenom)

	var swapAmt math.Int
	reversed := false
	if farm.IsZero() {
		swapAmt = optimalSwapAmount(base, rBase, pool.FeeBps)
	} else {
		swapAmt, reversed = optimalDeposit(base, farm, rBase, rFarm, pool.FeeBps)
	}
	if swapAmt.IsPositive() {
		path := []string{env.BaseDenom, env.FarmDenom}
		if reversed {
			path = []string{env.FarmDenom, env.BaseDenom}
		}
		out, err := env.Amm.SwapExactIn(ctx, env.Module, swapAmt, path, math.ZeroInt())
		if err != nil {
			return math.ZeroInt(), math.ZeroInt(), err
		}
		if reversed {
			farm, base = farm.Sub(swapAmt), base.Add(out)
		} else {
			base, farm = base.Sub(swapAmt), farm.Add(out)
		}
	}

	desired := sdk.NewCoins(sdk.NewCoin(env.BaseDenom, base), sdk.NewCoin(env.FarmDenom, farm))
	lp, used, err := env.Amm.AddLiquidity(ctx, env.Module, env.Holder, env.PoolID, desired, math.ZeroInt())
	if err != nil {
		return math.ZeroInt(), math.ZeroInt(), err
	}
	if lp.LT(minLP) {
		return math.ZeroInt(), math.ZeroInt(), types.ErrBelowMinSwapOut.Wrapf("lp %s < min %s", lp, minLP)
	}
	if err := sendFarmToOwner(ctx, env, farm.Sub(used.AmountOf(env.FarmDenom))); err != nil {
		return math.ZeroInt(), math.ZeroInt(), err
	}
	return lp, base.Sub(used.AmountOf(env.BaseDenom)), nil
}
