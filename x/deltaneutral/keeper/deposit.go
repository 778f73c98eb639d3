package keeper

import (
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/levfarm/metrics"
	"github.com/openalpha/levfarm/x/deltaneutral/types"
)

// InitPositions opens both legs and mints the first shares, one per unit of equity value.
// An empty action list runs the canonical deposit plan.
func (k *Keeper) InitPositions(
	ctx sdk.Context,
	caller sdk.AccAddress,
	dnID string,
	stableAmt, assetAmt, minShares math.Int,
	actions []types.Action,
) (math.Int, error) {
	vault, err := k.mustGetVault(ctx, dnID)
	if err != nil {
		return math.ZeroInt(), err
	}
	if !vault.Config.IsOperator(caller.String()) {
		return math.ZeroInt(), types.ErrNotAuthorized.Wrapf("%s is not an operator", caller)
	}
	if vault.Initialized() {
		return math.ZeroInt(), types.ErrAlreadyInitialized.Wrap(dnID)
	}

	cacheCtx, write := ctx.CacheContext()
	shares, err := k.deposit(cacheCtx, vault, caller, stableAmt, assetAmt, minShares, actions)
	if err != nil {
		metrics.GetCollector().RecordDNAction(dnID, "init", "failed")
		return math.ZeroInt(), err
	}
	write()

	metrics.GetCollector().RecordDNAction(dnID, "init", "success")
	k.logger.Info("Delta-neutral positions initialized",
		"dn_id", dnID,
		"stable_position", vault.StableLeg.PositionID,
		"asset_position", vault.AssetLeg.PositionID,
		"shares", shares.String(),
	)
	return shares, nil
}

// Deposit adds stableAmt and assetAmt to both legs at the vault's leverage and mints
// shares for the equity added
func (k *Keeper) Deposit(
	ctx sdk.Context,
	caller sdk.AccAddress,
	dnID string,
	stableAmt, assetAmt, minShares math.Int,
	actions []types.Action,
) (math.Int, error) {
	vault, err := k.mustGetVault(ctx, dnID)
	if err != nil {
		return math.ZeroInt(), err
	}
	if !vault.Initialized() {
		return math.ZeroInt(), types.ErrNotInitialized.Wrap(dnID)
	}

	cacheCtx, write := ctx.CacheContext()
	shares, err := k.deposit(cacheCtx, vault, caller, stableAmt, assetAmt, minShares, actions)
	if err != nil {
		metrics.GetCollector().RecordDNAction(dnID, "deposit", "failed")
		return math.ZeroInt(), err
	}
	write()

	metrics.GetCollector().RecordDNAction(dnID, "deposit", "success")
	k.logger.Info("Delta-neutral deposit",
		"dn_id", dnID,
		"depositor", caller.String(),
		"stable", stableAmt.String(),
		"asset", assetAmt.String(),
		"shares", shares.String(),
	)
	return shares, nil
}

func (k *Keeper) deposit(
	ctx sdk.Context,
	vault *types.DeltaNeutralVault,
	caller sdk.AccAddress,
	stableAmt, assetAmt, minShares math.Int,
	actions []types.Action,
) (math.Int, error) {
	stableAmt, assetAmt, minShares = orZero(stableAmt), orZero(assetAmt), orZero(minShares)
	if stableAmt.IsNegative() || assetAmt.IsNegative() || (stableAmt.IsZero() && assetAmt.IsZero()) {
		return math.ZeroInt(), types.ErrInvalidAmount.Wrap("deposit must be positive")
	}

	before, err := k.positionState(ctx, vault)
	if err != nil {
		return math.ZeroInt(), err
	}
	idleStable, idleAsset := k.idle(ctx, vault)
	if err := k.pull(ctx, caller, vault, stableAmt, assetAmt); err != nil {
		return math.ZeroInt(), err
	}
	if len(actions) == 0 {
		if actions, err = k.planDeposit(ctx, vault, before, stableAmt, assetAmt); err != nil {
			return math.ZeroInt(), err
		}
	}
	if err := k.execute(ctx, vault, actions); err != nil {
		return math.ZeroInt(), err
	}

	// anything the actions left idle goes back to the depositor
	nowStable, nowAsset := k.idle(ctx, vault)
	refundStable := math.MaxInt(nowStable.Sub(idleStable), math.ZeroInt())
	refundAsset := math.MaxInt(nowAsset.Sub(idleAsset), math.ZeroInt())
	if err := k.pay(ctx, caller, vault, refundStable, refundAsset); err != nil {
		return math.ZeroInt(), err
	}
	depositValue := valueOf(before.StablePrice, math.MaxInt(stableAmt.Sub(refundStable), math.ZeroInt())).
		Add(valueOf(before.AssetPrice, math.MaxInt(assetAmt.Sub(refundAsset), math.ZeroInt())))

	after, err := k.positionState(ctx, vault)
	if err != nil {
		return math.ZeroInt(), err
	}
	if err := k.depositHealthCheck(vault, before, after, depositValue); err != nil {
		return math.ZeroInt(), err
	}

	equityBefore, equityAfter := before.Equity(), after.Equity()
	received := equityAfter.Sub(equityBefore)
	var shares math.Int
	if vault.ShareSupply.IsPositive() && equityBefore.IsPositive() {
		shares = received.MulInt(vault.ShareSupply).Quo(equityBefore).TruncateInt()
	} else {
		shares = received.TruncateInt()
	}
	if !shares.IsPositive() {
		return math.ZeroInt(), types.ErrInsufficientShares.Wrapf("equity added %s", received)
	}

	fee := math.ZeroInt()
	if vault.Initialized() {
		fee = shares.MulRaw(int64(vault.Config.DepositFeeBps)).QuoRaw(types.BpsDenominator)
	}
	userShares := shares.Sub(fee)
	if userShares.LT(minShares) {
		return math.ZeroInt(), types.ErrInsufficientShares.Wrapf("%s < min %s", userShares, minShares)
	}

	denom := types.ShareDenom(vault.DNID)
	if err := k.bankKeeper.MintCoins(ctx, types.ModuleName, sdk.NewCoins(sdk.NewCoin(denom, shares))); err != nil {
		return math.ZeroInt(), err
	}
	if err := k.bankKeeper.SendCoinsFromModuleToAccount(ctx, types.ModuleName, caller, sdk.NewCoins(sdk.NewCoin(denom, userShares))); err != nil {
		return math.ZeroInt(), err
	}
	if fee.IsPositive() {
		treasury, err := sdk.AccAddressFromBech32(vault.Config.Treasury)
		if err != nil {
			return math.ZeroInt(), err
		}
		if err := k.bankKeeper.SendCoinsFromModuleToAccount(ctx, types.ModuleName, treasury, sdk.NewCoins(sdk.NewCoin(denom, fee))); err != nil {
			return math.ZeroInt(), err
		}
	}
	vault.ShareSupply = vault.ShareSupply.Add(shares)
	k.SetVault(ctx, vault)

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			"deltaneutral_deposit",
			sdk.NewAttribute("dn_id", vault.DNID),
			sdk.NewAttribute("depositor", caller.String()),
			sdk.NewAttribute("deposit_value", depositValue.String()),
			sdk.NewAttribute("shares", userShares.String()),
			sdk.NewAttribute("fee_shares", fee.String()),
		),
	)
	metrics.GetCollector().RecordDNEquity(vault.DNID, metrics.DecValue(equityAfter))
	return userShares, nil
}

// depositHealthCheck requires position value to grow by depositValue * L and each leg's
// debt by its target share of that, within the configured tolerances
func (k *Keeper) depositHealthCheck(vault *types.DeltaNeutralVault, before, after types.PositionState, depositValue math.LegacyDec) error {
	cfg := vault.Config
	l := int64(cfg.LeverageLevel)

	expectedValue := before.PositionValue().Add(depositValue.MulInt64(l))
	if !within(after.PositionValue(), expectedValue, cfg.PositionValueToleranceBps) {
		return types.ErrUnsafePositionValue.Wrapf("position value %s, expected %s", after.PositionValue(), expectedValue)
	}

	expectedStable := before.Stable.DebtValue.Add(depositValue.MulInt64(l - 2).QuoInt64(2))
	expectedAsset := before.Asset.DebtValue.Add(depositValue.MulInt64(l).QuoInt64(2))
	if !within(after.Stable.DebtValue, expectedStable, cfg.DebtRatioToleranceBps) {
		return types.ErrUnsafeDebtRatio.Wrapf("stable debt %s, expected %s", after.Stable.DebtValue, expectedStable)
	}
	if !within(after.Asset.DebtValue, expectedAsset, cfg.DebtRatioToleranceBps) {
		return types.ErrUnsafeDebtRatio.Wrapf("asset debt %s, expected %s", after.Asset.DebtValue, expectedAsset)
	}
	return nil
}

// Withdraw burns shares, closes the same proportion of both legs and pays out what comes
// back. The withdrawal fee is taken in shares and sent to the treasury.
func (k *Keeper) Withdraw(
	ctx sdk.Context,
	caller sdk.AccAddress,
	dnID string,
	shares, minStable, minAsset math.Int,
	actions []types.Action,
) (stableOut, assetOut math.Int, err error) {
	vault, err := k.mustGetVault(ctx, dnID)
	if err != nil {
		return math.ZeroInt(), math.ZeroInt(), err
	}
	if !vault.Initialized() {
		return math.ZeroInt(), math.ZeroInt(), types.ErrNotInitialized.Wrap(dnID)
	}

	cacheCtx, write := ctx.CacheContext()
	stableOut, assetOut, err = k.withdraw(cacheCtx, vault, caller, shares, orZero(minStable), orZero(minAsset), actions)
	if err != nil {
		metrics.GetCollector().RecordDNAction(dnID, "withdraw", "failed")
		return math.ZeroInt(), math.ZeroInt(), err
	}
	write()

	metrics.GetCollector().RecordDNAction(dnID, "withdraw", "success")
	k.logger.Info("Delta-neutral withdrawal",
		"dn_id", dnID,
		"withdrawer", caller.String(),
		"shares", shares.String(),
		"stable", stableOut.String(),
		"asset", assetOut.String(),
	)
	return stableOut, assetOut, nil
}

func (k *Keeper) withdraw(
	ctx sdk.Context,
	vault *types.DeltaNeutralVault,
	caller sdk.AccAddress,
	shares, minStable, minAsset math.Int,
	actions []types.Action,
) (math.Int, math.Int, error) {
	zero := math.ZeroInt()
	if shares.IsNil() || !shares.IsPositive() {
		return zero, zero, types.ErrInvalidAmount.Wrap("shares must be positive")
	}
	if shares.GT(vault.ShareSupply) {
		return zero, zero, types.ErrInsufficientShareSupply.Wrapf("%s > %s", shares, vault.ShareSupply)
	}

	before, err := k.positionState(ctx, vault)
	if err != nil {
		return zero, zero, err
	}
	supply := vault.ShareSupply
	fee := shares.MulRaw(int64(vault.Config.WithdrawalFeeBps)).QuoRaw(types.BpsDenominator)
	burn := shares.Sub(fee)
	withdrawValue := before.Equity().MulInt(burn).QuoInt(supply)

	denom := types.ShareDenom(vault.DNID)
	if err := k.bankKeeper.SendCoinsFromAccountToModule(ctx, caller, types.ModuleName, sdk.NewCoins(sdk.NewCoin(denom, shares))); err != nil {
		return zero, zero, err
	}
	if fee.IsPositive() {
		treasury, err := sdk.AccAddressFromBech32(vault.Config.Treasury)
		if err != nil {
			return zero, zero, err
		}
		if err := k.bankKeeper.SendCoinsFromModuleToAccount(ctx, types.ModuleName, treasury, sdk.NewCoins(sdk.NewCoin(denom, fee))); err != nil {
			return zero, zero, err
		}
	}
	if burn.IsPositive() {
		if err := k.bankKeeper.BurnCoins(ctx, types.ModuleName, sdk.NewCoins(sdk.NewCoin(denom, burn))); err != nil {
			return zero, zero, err
		}
	}

	idleStable, idleAsset := k.idle(ctx, vault)
	if len(actions) == 0 {
		actions = k.planWithdraw(vault, before, math.LegacyNewDecFromInt(burn).QuoInt(supply))
	}
	if err := k.execute(ctx, vault, actions); err != nil {
		return zero, zero, err
	}
	nowStable, nowAsset := k.idle(ctx, vault)
	stableOut := math.MaxInt(nowStable.Sub(idleStable), zero)
	assetOut := math.MaxInt(nowAsset.Sub(idleAsset), zero)
	if stableOut.LT(minStable) {
		return zero, zero, types.ErrBelowMinSwapOut.Wrapf("stable %s < min %s", stableOut, minStable)
	}
	if assetOut.LT(minAsset) {
		return zero, zero, types.ErrBelowMinSwapOut.Wrapf("asset %s < min %s", assetOut, minAsset)
	}
	if err := k.pay(ctx, caller, vault, stableOut, assetOut); err != nil {
		return zero, zero, err
	}

	after, err := k.positionState(ctx, vault)
	if err != nil {
		return zero, zero, err
	}
	if err := k.withdrawHealthCheck(vault, before, after, withdrawValue); err != nil {
		return zero, zero, err
	}

	vault.ShareSupply = supply.Sub(burn)
	k.SetVault(ctx, vault)

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			"deltaneutral_withdraw",
			sdk.NewAttribute("dn_id", vault.DNID),
			sdk.NewAttribute("withdrawer", caller.String()),
			sdk.NewAttribute("shares", shares.String()),
			sdk.NewAttribute("fee_shares", fee.String()),
			sdk.NewAttribute("withdraw_value", withdrawValue.String()),
			sdk.NewAttribute("stable_out", stableOut.String()),
			sdk.NewAttribute("asset_out", assetOut.String()),
		),
	)
	metrics.GetCollector().RecordDNEquity(vault.DNID, metrics.DecValue(after.Equity()))
	return stableOut, assetOut, nil
}

// withdrawHealthCheck requires equity to fall by withdrawValue and the legs' debt ratios
// to stay where they were, within the configured tolerances
func (k *Keeper) withdrawHealthCheck(vault *types.DeltaNeutralVault, before, after types.PositionState, withdrawValue math.LegacyDec) error {
	cfg := vault.Config
	expectedEquity := before.Equity().Sub(withdrawValue)
	if !within(after.Equity(), expectedEquity, cfg.PositionValueToleranceBps) {
		// a full exit leaves nothing to compare against
		if !(expectedEquity.IsZero() && after.Equity().Abs().LTE(withdrawValue.MulInt64(int64(cfg.PositionValueToleranceBps)).QuoInt64(types.BpsDenominator))) {
			return types.ErrUnsafePositionValue.Wrapf("equity %s, expected %s", after.Equity(), expectedEquity)
		}
	}
	if !after.PositionValue().IsPositive() {
		return nil
	}
	stableBefore, assetBefore := before.DebtRatios()
	stableAfter, assetAfter := after.DebtRatios()
	if !withinAbs(stableAfter, stableBefore, cfg.DebtRatioToleranceBps) {
		return types.ErrUnsafeDebtRatio.Wrapf("stable debt ratio %s, was %s", stableAfter, stableBefore)
	}
	if !withinAbs(assetAfter, assetBefore, cfg.DebtRatioToleranceBps) {
		return types.ErrUnsafeDebtRatio.Wrapf("asset debt ratio %s, was %s", assetAfter, assetBefore)
	}
	return nil
}
