package keeper

import (
	"strconv"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/levfarm/x/worker/types"
)

// Work runs a strategy for a position on behalf of its vault. The position's whole LP
// claim is handed to the strategy; the LP it leaves is re-staked as the position's new
// share and every unit of base it leaves is sent to req.ReturnModule. Returns that base.
func (k *Keeper) Work(ctx sdk.Context, req types.WorkRequest) (math.Int, error) {
	if err := k.guard.Enter(req.WorkerID); err != nil {
		return math.ZeroInt(), err
	}
	defer k.guard.Exit(req.WorkerID)

	worker, err := k.mustGetWorker(ctx, req.WorkerID)
	if err != nil {
		return math.ZeroInt(), err
	}
	if k.reinvestDue(ctx, worker) {
		if _, err := k.reinvest(ctx, worker, k.treasury(worker), math.ZeroInt(), "work"); err != nil {
			return math.ZeroInt(), err
		}
	}

	if !worker.Config.IsOKStrategy(req.StrategyID) {
		return math.ZeroInt(), types.ErrUnapprovedStrategy.Wrapf("%s on worker %s", req.StrategyID, req.WorkerID)
	}
	strategy, ok := k.strategies[req.StrategyID]
	if !ok {
		return math.ZeroInt(), types.ErrUnknownStrategy.Wrap(req.StrategyID)
	}

	lp, err := k.removeShare(ctx, worker, req.PositionID)
	if err != nil {
		return math.ZeroInt(), err
	}
	res, err := strategy.Execute(ctx, k.strategyEnv(worker, req.Owner, req.Debt, req.BaseIn, lp), req.Data)
	if err != nil {
		return math.ZeroInt(), err
	}
	k.guard.Settle(req.WorkerID)

	if err := k.addShare(ctx, worker, req.PositionID, res.LP); err != nil {
		return math.ZeroInt(), err
	}
	if err := k.sendBase(ctx, worker, req.ReturnModule, res.Base); err != nil {
		return math.ZeroInt(), err
	}
	k.SetWorker(ctx, worker)

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			"worker_work",
			sdk.NewAttribute("worker_id", req.WorkerID),
			sdk.NewAttribute("position_id", strconv.FormatUint(req.PositionID, 10)),
			sdk.NewAttribute("strategy", req.StrategyID),
			sdk.NewAttribute("base_in", req.BaseIn.String()),
			sdk.NewAttribute("base_back", res.Base.String()),
			sdk.NewAttribute("lp", res.LP.String()),
		),
	)
	return res.Base, nil
}

// Liquidate converts a position's whole LP claim to base with the worker's liquidate
// strategy and sends the base to returnModule
func (k *Keeper) Liquidate(ctx sdk.Context, workerID string, positionID uint64, returnModule string) (math.Int, error) {
	if err := k.guard.Enter(workerID); err != nil {
		return math.ZeroInt(), err
	}
	defer k.guard.Exit(workerID)

	worker, err := k.mustGetWorker(ctx, workerID)
	if err != nil {
		return math.ZeroInt(), err
	}
	if k.reinvestDue(ctx, worker) {
		if _, err := k.reinvest(ctx, worker, k.treasury(worker), math.ZeroInt(), "liquidate"); err != nil {
			return math.ZeroInt(), err
		}
	}
	strategy, ok := k.strategies[worker.Config.LiquidateStrategyID]
	if !ok {
		return math.ZeroInt(), types.ErrUnknownStrategy.Wrap(worker.Config.LiquidateStrategyID)
	}

	lp, err := k.removeShare(ctx, worker, positionID)
	if err != nil {
		return math.ZeroInt(), err
	}
	res, err := strategy.Execute(ctx, k.strategyEnv(worker, nil, math.ZeroInt(), math.ZeroInt(), lp), nil)
	if err != nil {
		return math.ZeroInt(), err
	}
	k.guard.Settle(workerID)

	// a liquidate strategy that leaves LP keeps it with the position
	if err := k.addShare(ctx, worker, positionID, res.LP); err != nil {
		return math.ZeroInt(), err
	}
	if err := k.sendBase(ctx, worker, returnModule, res.Base); err != nil {
		return math.ZeroInt(), err
	}
	k.SetWorker(ctx, worker)

	k.logger.Info("Position liquidated by worker",
		"worker_id", workerID,
		"position_id", positionID,
		"lp", lp.String(),
		"base", res.Base.String(),
	)
	return res.Base, nil
}

// PositionInfo returns the share, LP and health of a position
func (k *Keeper) PositionInfo(ctx sdk.Context, workerID string, positionID uint64) (*types.PositionView, error) {
	worker, err := k.mustGetWorker(ctx, workerID)
	if err != nil {
		return nil, err
	}
	share := k.GetShare(ctx, workerID, positionID)
	lp := k.ShareToBalance(ctx, worker, share)
	health, err := k.lpHealth(ctx, worker, lp)
	if err != nil {
		return nil, err
	}
	return &types.PositionView{
		WorkerID:   workerID,
		PositionID: positionID,
		Shares:     share,
		LP:         lp,
		Health:     health,
	}, nil
}

func (k *Keeper) strategyEnv(worker *types.Worker, owner sdk.AccAddress, debt, baseIn, lp math.Int) StrategyEnv {
	return StrategyEnv{
		Amm:       k.ammKeeper,
		Bank:      k.bankKeeper,
		Module:    types.ModuleName,
		Holder:    types.StakeRef(worker.WorkerID),
		PoolID:    worker.Config.PoolID,
		BaseDenom: worker.Config.BaseDenom,
		FarmDenom: worker.Config.FarmDenom,
		Owner:     owner,
		Debt:      debt,
		BaseIn:    baseIn,
		LP:        lp,
	}
}

func (k *Keeper) sendBase(ctx sdk.Context, worker *types.Worker, toModule string, amount math.Int) error {
	if !amount.IsPositive() {
		return nil
	}
	coins := sdk.NewCoins(sdk.NewCoin(worker.Config.BaseDenom, amount))
	return k.bankKeeper.SendCoinsFromModuleToModule(ctx, types.ModuleName, toModule, coins)
}

func (k *Keeper) treasury(worker *types.Worker) sdk.AccAddress {
	if worker.Config.Treasury == "" {
		return nil
	}
	addr, err := sdk.AccAddressFromBech32(worker.Config.Treasury)
	if err != nil {
		return nil
	}
	return addr
}
