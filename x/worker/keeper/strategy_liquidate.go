package keeper

import (
	"encoding/json"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/levfarm/x/worker/types"
)

// Liquidate converts the whole LP claim into base
type Liquidate struct{}

// Execute implements Strategy
func (Liquidate) Execute(ctx sdk.Context, env StrategyEnv, data json.RawMessage) (StrategyResult, error) {
	var params types.LiquidateParams
	if err := decodeParams(data, &params); err != nil {
		return StrategyResult{}, err
	}
	base, err := removeAndSell(ctx, env, env.LP)
	if err != nil {
		return StrategyResult{}, err
	}
	base = base.Add(env.BaseIn)
	if base.LT(params.MinBaseReceive) {
		return StrategyResult{}, types.ErrBelowMinSwapOut.Wrapf("base %s < min %s", base, params.MinBaseReceive)
	}
	return StrategyResult{LP: math.ZeroInt(), Base: base}, nil
}

// PartialCloseLiquidate converts LPToLiquidate of the claim into base and keeps the rest staked
type PartialCloseLiquidate struct{}

// Execute implements Strategy
func (PartialCloseLiquidate) Execute(ctx sdk.Context, env StrategyEnv, data json.RawMessage) (StrategyResult, error) {
	var params types.PartialCloseLiquidateParams
	if err := decodeParams(data, &params); err != nil {
		return StrategyResult{}, err
	}
	if params.LPToLiquidate.GT(env.LP) {
		return StrategyResult{}, types.ErrBadStrategyParams.Wrapf("lp to liquidate %s exceeds %s", params.LPToLiquidate, env.LP)
	}
	base, err := removeAndSell(ctx, env, params.LPToLiquidate)
	if err != nil {
		return StrategyResult{}, err
	}
	base = base.Add(env.BaseIn)
	repay := math.MinInt(env.Debt, params.MaxDebtRepay)
	if base.LT(repay) || base.Sub(repay).LT(params.MinBaseReceive) {
		return StrategyResult{}, types.ErrBelowMinSwapOut.Wrapf("base %s after repaying %s below min %s", base, repay, params.MinBaseReceive)
	}
	return StrategyResult{LP: env.LP.Sub(params.LPToLiquidate), Base: base}, nil
}

// removeAndSell removes lp from the pool and sells the farming side for base
func removeAndSell(ctx sdk.Context, env StrategyEnv, lp math.Int) (math.Int, error) {
	if !lp.IsPositive() {
		return math.ZeroInt(), nil
	}
	out, err := env.Amm.RemoveLiquidity(ctx, env.Module, env.Holder, env.PoolID, lp)
	if err != nil {
		return math.ZeroInt(), err
	}
	base := out.AmountOf(env.BaseDenom)
	farm := out.AmountOf(env.FarmDenom)
	if farm.IsPositive() {
		bought, err := env.Amm.SwapExactIn(ctx, env.Module, farm, []string{env.FarmDenom, env.BaseDenom}, math.ZeroInt())
		if err != nil {
			return math.ZeroInt(), err
		}
		base = base.Add(bought)
	}
	return base, nil
}
