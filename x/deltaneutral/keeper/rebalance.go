package keeper

import (
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/levfarm/metrics"
	"github.com/openalpha/levfarm/x/deltaneutral/types"
)

// Rebalance runs rebalancer-supplied actions to bring the legs back to target leverage
// and debt ratios. It is only allowed while the position has drifted.
func (k *Keeper) Rebalance(ctx sdk.Context, caller sdk.AccAddress, dnID string, actions []types.Action) error {
	vault, err := k.mustGetVault(ctx, dnID)
	if err != nil {
		return err
	}
	if !vault.Config.IsRebalancer(caller.String()) {
		return types.ErrNotAuthorized.Wrapf("%s is not a rebalancer", caller)
	}
	if !vault.Initialized() {
		return types.ErrNotInitialized.Wrap(dnID)
	}
	if len(actions) == 0 {
		return types.ErrInvalidAction.Wrap("rebalance needs actions")
	}

	cacheCtx, write := ctx.CacheContext()
	before, after, err := k.rebalance(cacheCtx, vault, actions)
	if err != nil {
		metrics.GetCollector().RecordDNAction(dnID, "rebalance", "failed")
		return err
	}
	write()

	metrics.GetCollector().RecordDNAction(dnID, "rebalance", "success")
	metrics.GetCollector().RecordDNEquity(dnID, metrics.DecValue(after.Equity()))
	k.logger.Info("Delta-neutral rebalanced",
		"dn_id", dnID,
		"equity_before", before.Equity().String(),
		"equity_after", after.Equity().String(),
		"position_value", after.PositionValue().String(),
	)
	return nil
}

func (k *Keeper) rebalance(ctx sdk.Context, vault *types.DeltaNeutralVault, actions []types.Action) (before, after types.PositionState, err error) {
	cfg := vault.Config
	if before, err = k.positionState(ctx, vault); err != nil {
		return before, after, err
	}
	reason := k.drift(vault, before)
	if reason == "" && legAtRisk(before.Stable, cfg.RebalanceFactor) {
		reason = "stable leg health"
	}
	if reason == "" && legAtRisk(before.Asset, cfg.RebalanceFactor) {
		reason = "asset leg health"
	}
	if reason == "" {
		return before, after, types.ErrRebalanceNotNeeded.Wrap(vault.DNID)
	}

	if err = k.execute(ctx, vault, actions); err != nil {
		return before, after, err
	}
	if after, err = k.positionState(ctx, vault); err != nil {
		return before, after, err
	}

	floor := before.Equity().MulInt64(types.BpsDenominator - int64(cfg.PositionValueToleranceBps)).QuoInt64(types.BpsDenominator)
	if after.Equity().LT(floor) {
		return before, after, types.ErrUnsafePositionEquity.Wrapf("equity %s -> %s", before.Equity(), after.Equity())
	}
	if left := k.drift(vault, after); left != "" {
		return before, after, types.ErrUnsafeDebtRatio.Wrapf("%s still off target after rebalance", left)
	}

	k.SetVault(ctx, vault)
	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			"deltaneutral_rebalance",
			sdk.NewAttribute("dn_id", vault.DNID),
			sdk.NewAttribute("reason", reason),
			sdk.NewAttribute("equity_before", before.Equity().String()),
			sdk.NewAttribute("equity_after", after.Equity().String()),
			sdk.NewAttribute("actions", math.NewInt(int64(len(actions))).String()),
		),
	)
	return before, after, nil
}

// drift names the first way state has left its target, or returns "" when it has not
func (k *Keeper) drift(vault *types.DeltaNeutralVault, state types.PositionState) string {
	cfg := vault.Config
	equity := state.Equity()
	if !equity.IsPositive() {
		return "non-positive equity"
	}
	targetValue := equity.MulInt64(int64(cfg.LeverageLevel))
	if !within(state.PositionValue(), targetValue, cfg.PositionValueToleranceBps) {
		return "position value"
	}
	stableTarget, assetTarget := targetDebtRatios(cfg.LeverageLevel)
	stableRatio, assetRatio := state.DebtRatios()
	if !withinAbs(stableRatio, stableTarget, cfg.DebtRatioToleranceBps) {
		return "stable debt ratio"
	}
	if !withinAbs(assetRatio, assetTarget, cfg.DebtRatioToleranceBps) {
		return "asset debt ratio"
	}
	return ""
}

// legAtRisk reports debt * 10000 >= health * factor
func legAtRisk(leg types.LegState, factor uint32) bool {
	if !leg.Debt.IsPositive() {
		return false
	}
	return leg.Debt.MulRaw(types.BpsDenominator).GTE(leg.Health.MulRaw(int64(factor)))
}
