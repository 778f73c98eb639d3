package keeper

import (
	"strconv"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/levfarm/metrics"
	"github.com/openalpha/levfarm/x/vault/types"
)

// Kill liquidates an unhealthy position. The worker converts the whole LP claim to base;
// the killer earns KillPrizeBps of it, the treasury KillTreasuryBps, debt is repaid from the
// rest and any surplus goes to the position owner. A shortfall is absorbed as bad debt.
func (k *Keeper) Kill(ctx sdk.Context, killer sdk.AccAddress, vaultID string, positionID uint64) (*types.KillRecord, error) {
	vault, err := k.mustGetVault(ctx, vaultID)
	if err != nil {
		return nil, err
	}
	if !vault.Config.IsKiller(killer.String()) {
		return nil, types.ErrNotAuthorized.Wrapf("%s is not a killer", killer)
	}
	pos := k.GetPosition(ctx, vaultID, positionID)
	if pos == nil {
		return nil, types.ErrPositionNotFound.Wrapf("%s/%d", vaultID, positionID)
	}

	key := guardKey(vaultID, pos.WorkerID)
	if err := k.guard.Enter(key); err != nil {
		return nil, err
	}
	defer k.guard.Exit(key)

	cacheCtx, write := ctx.CacheContext()
	record, err := k.kill(cacheCtx, killer, vaultID, pos, key)
	if err != nil {
		return nil, err
	}
	write()

	metrics.GetCollector().RecordKill(vaultID, pos.WorkerID, metrics.IntValue(record.LiquidatedValue), metrics.IntValue(record.BadDebt))
	return record, nil
}

func (k *Keeper) kill(ctx sdk.Context, killer sdk.AccAddress, vaultID string, pos *types.Position, lockKey string) (*types.KillRecord, error) {
	vault, err := k.mustGetVault(ctx, vaultID)
	if err != nil {
		return nil, err
	}
	k.accrue(ctx, vault)

	params := vault.Config.Workers[pos.WorkerID]
	debt := vault.DebtShareToValue(pos.DebtShare)
	if !debt.IsPositive() {
		return nil, types.ErrCannotLiquidate.Wrap("position has no debt")
	}
	health, err := k.workerKeeper.Health(ctx, pos.WorkerID, pos.ID)
	if err != nil {
		return nil, err
	}
	if !killable(debt, health, params.KillFactor) {
		return nil, types.ErrCannotLiquidate.Wrapf("debt %s health %s kill factor %d", debt, health, params.KillFactor)
	}

	debt = k.removeDebt(vault, pos)
	k.SetVault(ctx, vault)
	k.SetPosition(ctx, pos)

	value, err := k.workerKeeper.Liquidate(ctx, pos.WorkerID, pos.ID, types.ModuleName)
	if err != nil {
		return nil, err
	}
	k.guard.Settle(lockKey)
	vault, err = k.mustGetVault(ctx, vaultID)
	if err != nil {
		return nil, err
	}

	treasury := vault.Config.Treasury
	treasuryBps := vault.Config.KillTreasuryBps
	if treasury == "" {
		// the fee stays with lenders
		treasuryBps = 0
	}
	bounty, fee, repaid, surplus, badDebt := splitKill(value, debt, vault.Config.KillPrizeBps, treasuryBps)

	k.repay(vault, repaid)
	if err := k.payOut(ctx, vault.Denom, killer, bounty); err != nil {
		return nil, err
	}
	if fee.IsPositive() {
		if err := k.payOut(ctx, vault.Denom, sdk.MustAccAddressFromBech32(treasury), fee); err != nil {
			return nil, err
		}
	}
	owner, err := sdk.AccAddressFromBech32(pos.Owner)
	if err != nil {
		return nil, err
	}
	if err := k.payOut(ctx, vault.Denom, owner, surplus); err != nil {
		return nil, err
	}

	record := &types.KillRecord{
		ID:               vault.NextKillID,
		VaultID:          vaultID,
		PositionID:       pos.ID,
		WorkerID:         pos.WorkerID,
		Owner:            pos.Owner,
		Killer:           killer.String(),
		Debt:             debt,
		LiquidatedValue:  value,
		Repaid:           repaid,
		LiquidatorBounty: bounty,
		TreasuryFee:      fee,
		Surplus:          surplus,
		BadDebt:          badDebt,
		Height:           ctx.BlockHeight(),
		Time:             ctx.BlockTime().Unix(),
	}
	vault.NextKillID++
	k.setKillRecord(ctx, record)
	k.SetVault(ctx, vault)

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			"vault_kill",
			sdk.NewAttribute("vault_id", vaultID),
			sdk.NewAttribute("kill_id", strconv.FormatUint(record.ID, 10)),
			sdk.NewAttribute("position_id", strconv.FormatUint(pos.ID, 10)),
			sdk.NewAttribute("worker_id", pos.WorkerID),
			sdk.NewAttribute("killer", record.Killer),
			sdk.NewAttribute("owner", record.Owner),
			sdk.NewAttribute("debt", debt.String()),
			sdk.NewAttribute("liquidated_value", value.String()),
			sdk.NewAttribute("repaid", repaid.String()),
			sdk.NewAttribute("liquidator_bounty", bounty.String()),
			sdk.NewAttribute("treasury_fee", fee.String()),
			sdk.NewAttribute("surplus", surplus.String()),
			sdk.NewAttribute("bad_debt", badDebt.String()),
		),
	)

	if badDebt.IsPositive() {
		k.logger.Warn("Kill left bad debt",
			"vault_id", vaultID,
			"position_id", pos.ID,
			"bad_debt", badDebt.String(),
		)
	}
	k.logger.Info("Position killed",
		"vault_id", vaultID,
		"position_id", pos.ID,
		"worker_id", pos.WorkerID,
		"killer", record.Killer,
		"liquidated_value", value.String(),
		"repaid", repaid.String(),
		"surplus", surplus.String(),
	)
	return record, nil
}

func (k *Keeper) payOut(ctx sdk.Context, denom string, to sdk.AccAddress, amount math.Int) error {
	if !amount.IsPositive() {
		return nil
	}
	return k.bankKeeper.SendCoinsFromModuleToAccount(ctx, types.ModuleName, to, sdk.NewCoins(sdk.NewCoin(denom, amount)))
}

// splitKill divides liquidated value into the killer's bounty, the treasury fee, the
// debt repaid and the owner's surplus. Debt the rest cannot cover is bad debt.
func splitKill(value, debt math.Int, prizeBps, treasuryBps uint32) (bounty, fee, repaid, surplus, badDebt math.Int) {
	bounty = value.MulRaw(int64(prizeBps)).QuoRaw(types.BpsDenominator)
	fee = value.MulRaw(int64(treasuryBps)).QuoRaw(types.BpsDenominator)
	left := value.Sub(bounty).Sub(fee)
	repaid = math.MinInt(debt, left)
	surplus = left.Sub(repaid)
	badDebt = debt.Sub(repaid)
	return bounty, fee, repaid, surplus, badDebt
}

// killable reports debt * 10000 > health * killFactor
func killable(debt, health math.Int, killFactor uint32) bool {
	if !debt.IsPositive() {
		return false
	}
	return debt.MulRaw(types.BpsDenominator).GT(health.MulRaw(int64(killFactor)))
}
