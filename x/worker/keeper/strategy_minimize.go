package keeper

import (
	"encoding/json"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/levfarm/x/worker/types"
)

// PartialCloseMinimizeTrading removes LPToLiquidate, buys only the base missing for
// the debt repayment and hands the remaining farming token to the owner.
type PartialCloseMinimizeTrading struct{}

// Execute implements Strategy
func (PartialCloseMinimizeTrading) Execute(ctx sdk.Context, env StrategyEnv, data json.RawMessage) (StrategyResult, error) {
	var params types.PartialCloseMinimizeTradingParams
	if err := decodeParams(data, &params); err != nil {
		return StrategyResult{}, err
	}
	if params.LPToLiquidate.GT(env.LP) {
		return StrategyResult{}, types.ErrBadStrategyParams.Wrapf("lp to liquidate %s exceeds %s", params.LPToLiquidate, env.LP)
	}

	base, farm := env.BaseIn, math.ZeroInt()
	if params.LPToLiquidate.IsPositive() {
		out, err := env.Amm.RemoveLiquidity(ctx, env.Module, env.Holder, env.PoolID, params.LPToLiquidate)
		if err != nil {
			return StrategyResult{}, err
		}
		base = base.Add(out.AmountOf(env.BaseDenom))
		farm = out.AmountOf(env.FarmDenom)
	}

	repay := math.MinInt(env.Debt, params.MaxDebtRepay)
	if base.LT(repay) {
		shortfall := sdk.NewCoin(env.BaseDenom, repay.Sub(base))
		if !farm.IsPositive() {
			return StrategyResult{}, types.ErrInsufficientFarm.Wrapf("need %s, no farming token", shortfall)
		}
		spent, err := env.Amm.SwapForExactOut(ctx, env.Module, env.FarmDenom, shortfall, farm)
		if err != nil {
			return StrategyResult{}, types.ErrInsufficientFarm.Wrap(err.Error())
		}
		farm = farm.Sub(spent)
		base = base.Add(shortfall.Amount)
	}

	if farm.LT(params.MinFarmReceive) {
		return StrategyResult{}, types.ErrBelowMinSwapOut.Wrapf("farm %s < min %s", farm, params.MinFarmReceive)
	}
	if err := sendFarmToOwner(ctx, env, farm); err != nil {
		return StrategyResult{}, err
	}
	return StrategyResult{LP: env.LP.Sub(params.LPToLiquidate), Base: base}, nil
}
