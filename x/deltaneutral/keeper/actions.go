package keeper

import (
	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/levfarm/x/deltaneutral/types"
	workertypes "github.com/openalpha/levfarm/x/worker/types"
)

// execute runs actions in order. A work on a leg without a position opens one and
// records its id on the leg.
func (k *Keeper) execute(ctx sdk.Context, vault *types.DeltaNeutralVault, actions []types.Action) error {
	for i, action := range actions {
		if err := action.Validate(); err != nil {
			return errorsmod.Wrapf(err, "action %d", i)
		}
		leg := vault.Leg(action.Leg)
		switch action.Type {
		case types.ActionWork:
			w := action.Work
			res, err := k.vaultKeeper.Work(
				ctx,
				k.ModuleAddress(),
				leg.VaultID,
				leg.PositionID,
				leg.WorkerID,
				orZero(w.Principal), orZero(w.Borrow), orZero(w.MaxReturn),
				w.StrategyID,
				w.StrategyData,
			)
			if err != nil {
				return errorsmod.Wrapf(err, "action %d", i)
			}
			if leg.PositionID == 0 {
				leg.PositionID = res.PositionID
			} else if leg.PositionID != res.PositionID {
				return types.ErrPositionIDMismatch.Wrapf("leg %s has %d, work returned %d", action.Leg, leg.PositionID, res.PositionID)
			}
		case types.ActionWrap:
			from := vault.Leg(types.Other(action.Leg)).Denom
			path := []string{from, leg.Denom}
			if _, err := k.ammKeeper.SwapExactIn(ctx, types.ModuleName, action.Wrap.Amount, path, orZero(action.Wrap.MinOut)); err != nil {
				return errorsmod.Wrapf(err, "action %d", i)
			}
		}
	}
	return nil
}

// planDeposit builds the canonical plan that deploys stableAmt and assetAmt at the
// vault's leverage: principal is rebalanced between the legs to
// stable E(L-2)/(2L-2), asset E*L/(2L-2) and the legs borrow E(L-2)/2 and E*L/2 in value.
func (k *Keeper) planDeposit(ctx sdk.Context, vault *types.DeltaNeutralVault, state types.PositionState, stableAmt, assetAmt math.Int) ([]types.Action, error) {
	l := int64(vault.Config.LeverageLevel)
	pS, pA := state.StablePrice, state.AssetPrice
	if !pS.IsPositive() || !pA.IsPositive() {
		return nil, types.ErrStalePrice.Wrap("zero oracle price")
	}

	equity := valueOf(pS, stableAmt).Add(valueOf(pA, assetAmt))
	targetStable := equity.MulInt64(l - 2).QuoInt64(2*l - 2)
	targetAsset := equity.MulInt64(l).QuoInt64(2*l - 2)

	var actions []types.Action
	stableVal, assetVal := valueOf(pS, stableAmt), valueOf(pA, assetAmt)
	switch {
	case stableVal.GT(targetStable):
		excess := stableVal.Sub(targetStable).Quo(pS).TruncateInt()
		out, err := k.quoteWrap(ctx, vault, types.LegAsset, excess)
		if err != nil {
			return nil, err
		}
		if out.IsPositive() {
			actions = append(actions, wrapAction(types.LegAsset, excess))
			stableAmt, assetAmt = stableAmt.Sub(excess), assetAmt.Add(out)
		}
	case assetVal.GT(targetAsset):
		excess := assetVal.Sub(targetAsset).Quo(pA).TruncateInt()
		out, err := k.quoteWrap(ctx, vault, types.LegStable, excess)
		if err != nil {
			return nil, err
		}
		if out.IsPositive() {
			actions = append(actions, wrapAction(types.LegStable, excess))
			stableAmt, assetAmt = stableAmt.Add(out), assetAmt.Sub(excess)
		}
	}

	borrowStable := equity.MulInt64(l - 2).QuoInt64(2).Quo(pS).TruncateInt()
	borrowAsset := equity.MulInt64(l).QuoInt64(2).Quo(pA).TruncateInt()

	for _, leg := range []struct {
		name              string
		principal, borrow math.Int
	}{
		{types.LegStable, stableAmt, borrowStable},
		{types.LegAsset, assetAmt, borrowAsset},
	} {
		if leg.principal.IsZero() && leg.borrow.IsZero() {
			continue
		}
		worker := k.workerKeeper.GetWorker(ctx, vault.Leg(leg.name).WorkerID)
		if worker == nil {
			return nil, types.ErrInvalidConfig.Wrapf("worker %s not found", vault.Leg(leg.name).WorkerID)
		}
		actions = append(actions, types.Action{
			Type: types.ActionWork,
			Leg:  leg.name,
			Work: &types.WorkAction{
				Principal:    leg.principal,
				Borrow:       leg.borrow,
				MaxReturn:    math.ZeroInt(),
				StrategyID:   worker.Config.AddStrategyID,
				StrategyData: workertypes.EncodeParams(workertypes.AddBaseTokenOnlyParams{MinLPReceive: math.ZeroInt()}),
			},
		})
	}
	return actions, nil
}

// planWithdraw closes ratio of both legs, repaying the same ratio of their debt and
// selling only enough farming token to do so
func (k *Keeper) planWithdraw(vault *types.DeltaNeutralVault, state types.PositionState, ratio math.LegacyDec) []types.Action {
	var actions []types.Action
	for _, leg := range []struct {
		name  string
		state types.LegState
	}{
		{types.LegStable, state.Stable},
		{types.LegAsset, state.Asset},
	} {
		if vault.Leg(leg.name).PositionID == 0 {
			continue
		}
		lp := ratio.MulInt(leg.state.LP).TruncateInt()
		repay := ratio.MulInt(leg.state.Debt).TruncateInt()
		if lp.IsZero() && repay.IsZero() {
			continue
		}
		actions = append(actions, types.Action{
			Type: types.ActionWork,
			Leg:  leg.name,
			Work: &types.WorkAction{
				Principal:  math.ZeroInt(),
				Borrow:     math.ZeroInt(),
				MaxReturn:  repay,
				StrategyID: workertypes.StrategyPartialCloseMinimizeTrading,
				StrategyData: workertypes.EncodeParams(workertypes.PartialCloseMinimizeTradingParams{
					LPToLiquidate:  lp,
					MaxDebtRepay:   repay,
					MinFarmReceive: math.ZeroInt(),
				}),
			},
		})
	}
	return actions
}

func (k *Keeper) quoteWrap(ctx sdk.Context, vault *types.DeltaNeutralVault, toLeg string, amount math.Int) (math.Int, error) {
	if !amount.IsPositive() {
		return math.ZeroInt(), nil
	}
	path := []string{vault.Leg(types.Other(toLeg)).Denom, vault.Leg(toLeg).Denom}
	amounts, err := k.ammKeeper.QuoteSwapExactIn(ctx, amount, path)
	if err != nil {
		return math.ZeroInt(), err
	}
	return amounts[len(amounts)-1], nil
}

func wrapAction(toLeg string, amount math.Int) types.Action {
	return types.Action{
		Type: types.ActionWrap,
		Leg:  toLeg,
		Wrap: &types.WrapAction{Amount: amount, MinOut: math.ZeroInt()},
	}
}

// idle returns the module's balances of both leg denoms
func (k *Keeper) idle(ctx sdk.Context, vault *types.DeltaNeutralVault) (stable, asset math.Int) {
	addr := k.ModuleAddress()
	return k.bankKeeper.GetBalance(ctx, addr, vault.StableLeg.Denom).Amount,
		k.bankKeeper.GetBalance(ctx, addr, vault.AssetLeg.Denom).Amount
}

func (k *Keeper) pull(ctx sdk.Context, from sdk.AccAddress, vault *types.DeltaNeutralVault, stableAmt, assetAmt math.Int) error {
	coins := sdk.NewCoins(sdk.NewCoin(vault.StableLeg.Denom, stableAmt), sdk.NewCoin(vault.AssetLeg.Denom, assetAmt))
	if coins.IsZero() {
		return nil
	}
	return k.bankKeeper.SendCoinsFromAccountToModule(ctx, from, types.ModuleName, coins)
}

func (k *Keeper) pay(ctx sdk.Context, to sdk.AccAddress, vault *types.DeltaNeutralVault, stableAmt, assetAmt math.Int) error {
	coins := sdk.NewCoins(sdk.NewCoin(vault.StableLeg.Denom, stableAmt), sdk.NewCoin(vault.AssetLeg.Denom, assetAmt))
	if coins.IsZero() {
		return nil
	}
	return k.bankKeeper.SendCoinsFromModuleToAccount(ctx, types.ModuleName, to, coins)
}

func orZero(i math.Int) math.Int {
	if i.IsNil() {
		return math.ZeroInt()
	}
	return i
}
