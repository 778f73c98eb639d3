package keeper

import (
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/levfarm/x/deltaneutral/types"
)

// price returns a fresh oracle price for denom
func (k *Keeper) price(ctx sdk.Context, vault *types.DeltaNeutralVault, denom string) (math.LegacyDec, error) {
	price, updatedAt, err := k.ammKeeper.GetTokenPrice(ctx, denom)
	if err != nil {
		return math.LegacyZeroDec(), err
	}
	if age := ctx.BlockTime().Unix() - updatedAt; age > vault.Config.MaxPriceAge {
		return math.LegacyZeroDec(), types.ErrStalePrice.Wrapf("%s price is %ds old, max %ds", denom, age, vault.Config.MaxPriceAge)
	}
	return price, nil
}

// positionState values both legs at oracle prices
func (k *Keeper) positionState(ctx sdk.Context, vault *types.DeltaNeutralVault) (types.PositionState, error) {
	var state types.PositionState
	var err error
	if state.StablePrice, err = k.price(ctx, vault, vault.StableLeg.Denom); err != nil {
		return state, err
	}
	if state.AssetPrice, err = k.price(ctx, vault, vault.AssetLeg.Denom); err != nil {
		return state, err
	}
	if state.Stable, err = k.legState(ctx, vault, vault.StableLeg, state.StablePrice); err != nil {
		return state, err
	}
	if state.Asset, err = k.legState(ctx, vault, vault.AssetLeg, state.AssetPrice); err != nil {
		return state, err
	}
	return state, nil
}

func (k *Keeper) legState(ctx sdk.Context, vault *types.DeltaNeutralVault, leg types.Leg, price math.LegacyDec) (types.LegState, error) {
	state := types.LegState{
		LP:            math.ZeroInt(),
		PositionValue: math.LegacyZeroDec(),
		Debt:          math.ZeroInt(),
		DebtValue:     math.LegacyZeroDec(),
		Health:        math.ZeroInt(),
	}
	if leg.PositionID == 0 {
		return state, nil
	}

	state.LP = k.workerKeeper.BalanceOf(ctx, leg.WorkerID, leg.PositionID)
	value, _, err := k.ammKeeper.LpToDollar(ctx, vault.PoolID, state.LP)
	if err != nil {
		return state, err
	}
	state.PositionValue = value

	debt, err := k.vaultKeeper.DebtValue(ctx, leg.VaultID, leg.PositionID)
	if err != nil {
		return state, err
	}
	state.Debt = debt
	state.DebtValue = price.MulInt(debt)

	if state.Health, err = k.workerKeeper.Health(ctx, leg.WorkerID, leg.PositionID); err != nil {
		return state, err
	}
	return state, nil
}

// within reports |actual - expected| <= |expected| * toleranceBps / 10000
func within(actual, expected math.LegacyDec, toleranceBps uint32) bool {
	slack := expected.Abs().MulInt64(int64(toleranceBps)).QuoInt64(types.BpsDenominator)
	return actual.Sub(expected).Abs().LTE(slack)
}

// withinAbs reports |actual - expected| <= toleranceBps / 10000
func withinAbs(actual, expected math.LegacyDec, toleranceBps uint32) bool {
	slack := math.LegacyNewDec(int64(toleranceBps)).QuoInt64(types.BpsDenominator)
	return actual.Sub(expected).Abs().LTE(slack)
}

// targetDebtRatios returns the stable and asset debt over position value a balanced
// position holds at leverage L: (L-2)/(2L) and 1/2
func targetDebtRatios(leverage uint32) (stable, asset math.LegacyDec) {
	l := int64(leverage)
	return math.LegacyNewDec(l - 2).QuoInt64(2 * l), math.LegacyNewDecWithPrec(5, 1)
}

// valueOf returns the oracle value of amount units at price
func valueOf(price math.LegacyDec, amount math.Int) math.LegacyDec {
	if amount.IsNil() {
		return math.LegacyZeroDec()
	}
	return price.MulInt(amount)
}

// sharePrice returns equity per share, or one before any shares exist
func sharePrice(equity math.LegacyDec, supply math.Int) math.LegacyDec {
	if !supply.IsPositive() {
		return math.LegacyOneDec()
	}
	return equity.QuoInt(supply)
}

// View returns the valued state of a delta-neutral vault
func (k *Keeper) View(ctx sdk.Context, dnID string) (*types.VaultView, error) {
	vault, err := k.mustGetVault(ctx, dnID)
	if err != nil {
		return nil, err
	}
	state, err := k.positionState(ctx, vault)
	if err != nil {
		return nil, err
	}
	equity := state.Equity()
	return &types.VaultView{
		Vault:      *vault,
		State:      state,
		Equity:     equity,
		SharePrice: sharePrice(equity, vault.ShareSupply),
	}, nil
}

// PendingReward returns the farm reward both legs could harvest now
func (k *Keeper) PendingReward(ctx sdk.Context, dnID string) (math.Int, error) {
	vault, err := k.mustGetVault(ctx, dnID)
	if err != nil {
		return math.ZeroInt(), err
	}
	return k.workerKeeper.PendingReward(ctx, vault.StableLeg.WorkerID).
		Add(k.workerKeeper.PendingReward(ctx, vault.AssetLeg.WorkerID)), nil
}

// DepositPlan returns the actions Deposit would run for stableAmt and assetAmt
func (k *Keeper) DepositPlan(ctx sdk.Context, dnID string, stableAmt, assetAmt math.Int) ([]types.Action, error) {
	vault, err := k.mustGetVault(ctx, dnID)
	if err != nil {
		return nil, err
	}
	state, err := k.positionState(ctx, vault)
	if err != nil {
		return nil, err
	}
	return k.planDeposit(ctx, vault, state, orZero(stableAmt), orZero(assetAmt))
}
