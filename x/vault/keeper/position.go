package keeper

import (
	"encoding/json"
	"strconv"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/levfarm/metrics"
	"github.com/openalpha/levfarm/x/vault/types"
	workertypes "github.com/openalpha/levfarm/x/worker/types"
)

func guardKey(vaultID, workerID string) string {
	return vaultID + "/" + workerID
}

// Work opens or adjusts a leveraged position. positionID 0 opens a new one owned by caller.
// principal is pulled from caller, borrowAmount is lent by the vault, and up to maxReturn of
// the base the worker hands back repays debt. The whole call is applied atomically.
func (k *Keeper) Work(
	ctx sdk.Context,
	caller sdk.AccAddress,
	vaultID string,
	positionID uint64,
	workerID string,
	principal, borrowAmount, maxReturn math.Int,
	strategyID string,
	data json.RawMessage,
) (*types.WorkResult, error) {
	timer := metrics.NewTimer()
	key := guardKey(vaultID, workerID)
	if err := k.guard.Enter(key); err != nil {
		return nil, err
	}
	defer k.guard.Exit(key)

	cacheCtx, write := ctx.CacheContext()
	res, err := k.work(cacheCtx, caller, vaultID, positionID, workerID, principal, borrowAmount, maxReturn, strategyID, data, key)
	if err != nil {
		metrics.GetCollector().RecordWork(vaultID, workerID, strategyID, "failed", timer.ElapsedMs())
		return nil, err
	}
	write()

	metrics.GetCollector().RecordWork(vaultID, workerID, strategyID, "success", timer.ElapsedMs())
	return res, nil
}

// AddCollateral runs an approved add strategy for an existing position without borrowing.
// Unless allowUnsafe is set the worker must pass its stability check first.
func (k *Keeper) AddCollateral(
	ctx sdk.Context,
	caller sdk.AccAddress,
	vaultID string,
	positionID uint64,
	amount math.Int,
	allowUnsafe bool,
	strategyID string,
	data json.RawMessage,
) (*types.WorkResult, error) {
	if positionID == 0 {
		return nil, types.ErrPositionNotFound.Wrap("add collateral needs an existing position")
	}
	if !amount.IsPositive() {
		return nil, types.ErrInvalidAmount.Wrap("collateral must be positive")
	}
	vault, err := k.mustGetVault(ctx, vaultID)
	if err != nil {
		return nil, err
	}
	if !vault.Config.IsApprovedAddStrategy(strategyID) {
		return nil, types.ErrUnapprovedStrategy.Wrap(strategyID)
	}
	pos := k.GetPosition(ctx, vaultID, positionID)
	if pos == nil {
		return nil, types.ErrPositionNotFound.Wrapf("%s/%d", vaultID, positionID)
	}
	if !allowUnsafe {
		if err := k.workerKeeper.IsStable(ctx, pos.WorkerID); err != nil {
			return nil, err
		}
	}

	timer := metrics.NewTimer()
	key := guardKey(vaultID, pos.WorkerID)
	if err := k.guard.Enter(key); err != nil {
		return nil, err
	}
	defer k.guard.Exit(key)

	cacheCtx, write := ctx.CacheContext()
	res, err := k.work(cacheCtx, caller, vaultID, positionID, pos.WorkerID, amount, math.ZeroInt(), math.ZeroInt(), strategyID, data, key)
	if err != nil {
		metrics.GetCollector().RecordWork(vaultID, pos.WorkerID, strategyID, "failed", timer.ElapsedMs())
		return nil, err
	}
	write()

	metrics.GetCollector().RecordWork(vaultID, pos.WorkerID, strategyID, "success", timer.ElapsedMs())
	return res, nil
}

func (k *Keeper) work(
	ctx sdk.Context,
	caller sdk.AccAddress,
	vaultID string,
	positionID uint64,
	workerID string,
	principal, borrowAmount, maxReturn math.Int,
	strategyID string,
	data json.RawMessage,
	lockKey string,
) (*types.WorkResult, error) {
	principal, borrowAmount, maxReturn = orZero(principal), orZero(borrowAmount), orZero(maxReturn)
	if principal.IsNegative() || borrowAmount.IsNegative() || maxReturn.IsNegative() {
		return nil, types.ErrInvalidAmount.Wrap("amounts must be non-negative")
	}

	vault, err := k.mustGetVault(ctx, vaultID)
	if err != nil {
		return nil, err
	}
	k.accrue(ctx, vault)

	params, ok := vault.Config.Workers[workerID]
	if !ok {
		return nil, types.ErrUnknownWorker.Wrapf("%s on vault %s", workerID, vaultID)
	}
	worker := k.workerKeeper.GetWorker(ctx, workerID)
	if worker == nil || worker.Config.VaultID != vaultID {
		return nil, types.ErrUnknownWorker.Wrapf("%s does not serve vault %s", workerID, vaultID)
	}
	if borrowAmount.IsPositive() && !params.AcceptDebt {
		return nil, types.ErrWorkerNotAcceptingDebt.Wrap(workerID)
	}

	var pos *types.Position
	if positionID == 0 {
		pos = &types.Position{
			ID:        vault.NextPositionID,
			VaultID:   vaultID,
			Owner:     caller.String(),
			WorkerID:  workerID,
			DebtShare: math.ZeroInt(),
		}
		vault.NextPositionID++
	} else {
		pos = k.GetPosition(ctx, vaultID, positionID)
		if pos == nil {
			return nil, types.ErrPositionNotFound.Wrapf("%s/%d", vaultID, positionID)
		}
		if pos.Owner != caller.String() {
			return nil, types.ErrNotAuthorized.Wrapf("position %d is owned by %s", positionID, pos.Owner)
		}
		if pos.WorkerID != workerID {
			return nil, types.ErrUnknownWorker.Wrapf("position %d runs on worker %s", positionID, pos.WorkerID)
		}
	}

	if principal.IsPositive() {
		coins := sdk.NewCoins(sdk.NewCoin(vault.Denom, principal))
		if err := k.bankKeeper.SendCoinsFromAccountToModule(ctx, caller, types.ModuleName, coins); err != nil {
			return nil, types.ErrInsufficientBalance.Wrap(err.Error())
		}
	}

	debt := k.removeDebt(vault, pos)
	if err := k.borrow(vault, borrowAmount); err != nil {
		return nil, err
	}
	debt = debt.Add(borrowAmount)

	baseIn := principal.Add(borrowAmount)
	if baseIn.IsPositive() {
		coins := sdk.NewCoins(sdk.NewCoin(vault.Denom, baseIn))
		if err := k.bankKeeper.SendCoinsFromModuleToModule(ctx, types.ModuleName, workertypes.ModuleName, coins); err != nil {
			return nil, err
		}
	}

	// the worker may credit this vault through a buyback, so persist before and reload after
	k.SetVault(ctx, vault)
	k.SetPosition(ctx, pos)
	back, err := k.workerKeeper.Work(ctx, workertypes.WorkRequest{
		WorkerID:     workerID,
		PositionID:   pos.ID,
		Owner:        caller,
		Debt:         debt,
		BaseIn:       baseIn,
		StrategyID:   strategyID,
		Data:         data,
		ReturnModule: types.ModuleName,
	})
	if err != nil {
		return nil, err
	}
	k.guard.Settle(lockKey)
	vault, err = k.mustGetVault(ctx, vaultID)
	if err != nil {
		return nil, err
	}

	lessDebt := math.MinInt(debt, math.MinInt(back, maxReturn))
	k.repay(vault, lessDebt)
	debt = debt.Sub(lessDebt)

	health, err := k.workerKeeper.Health(ctx, workerID, pos.ID)
	if err != nil {
		return nil, err
	}
	if debt.IsPositive() {
		if debt.LT(vault.Config.MinDebtSize) {
			return nil, types.ErrTooSmallDebt.Wrapf("debt %s below %s", debt, vault.Config.MinDebtSize)
		}
		if health.MulRaw(int64(params.WorkFactor)).LT(debt.MulRaw(types.BpsDenominator)) {
			return nil, types.ErrBadWorkFactor.Wrapf("debt %s health %s work factor %d", debt, health, params.WorkFactor)
		}
		k.addDebt(vault, pos, debt)
	}

	returned := back.Sub(lessDebt)
	if returned.IsPositive() {
		coins := sdk.NewCoins(sdk.NewCoin(vault.Denom, returned))
		if err := k.bankKeeper.SendCoinsFromModuleToAccount(ctx, types.ModuleName, caller, coins); err != nil {
			return nil, err
		}
	}

	k.SetPosition(ctx, pos)
	k.SetVault(ctx, vault)

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			"vault_work",
			sdk.NewAttribute("vault_id", vaultID),
			sdk.NewAttribute("position_id", strconv.FormatUint(pos.ID, 10)),
			sdk.NewAttribute("worker_id", workerID),
			sdk.NewAttribute("strategy", strategyID),
			sdk.NewAttribute("principal", principal.String()),
			sdk.NewAttribute("borrow", borrowAmount.String()),
			sdk.NewAttribute("repaid", lessDebt.String()),
			sdk.NewAttribute("debt", debt.String()),
			sdk.NewAttribute("health", health.String()),
		),
	)
	if health.IsPositive() {
		metrics.GetCollector().RecordDebtRatio(vaultID, metrics.DecValue(math.LegacyNewDecFromInt(debt).QuoInt(health)))
	}

	k.logger.Info("Position worked",
		"vault_id", vaultID,
		"position_id", pos.ID,
		"worker_id", workerID,
		"strategy", strategyID,
		"debt", debt.String(),
		"health", health.String(),
		"returned", returned.String(),
	)

	return &types.WorkResult{
		PositionID: pos.ID,
		Debt:       debt,
		Health:     health,
		Returned:   returned,
	}, nil
}

func orZero(i math.Int) math.Int {
	if i.IsNil() {
		return math.ZeroInt()
	}
	return i
}
