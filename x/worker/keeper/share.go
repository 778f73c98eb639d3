package keeper

import (
	"strconv"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/levfarm/x/worker/types"
)

// TotalBalance returns the LP the worker has staked in its farm
func (k *Keeper) TotalBalance(ctx sdk.Context, worker *types.Worker) math.Int {
	return k.ammKeeper.StakedBalance(ctx, worker.Config.FarmID, types.StakeRef(worker.WorkerID))
}

// ShareToBalance converts a worker share to LP
func (k *Keeper) ShareToBalance(ctx sdk.Context, worker *types.Worker, share math.Int) math.Int {
	if worker.TotalShare.IsZero() {
		return share
	}
	return share.Mul(k.TotalBalance(ctx, worker)).Quo(worker.TotalShare)
}

// BalanceToShare converts LP to a worker share. An empty ledger re-seeds 1:1.
func (k *Keeper) BalanceToShare(ctx sdk.Context, worker *types.Worker, balance math.Int) math.Int {
	if worker.TotalShare.IsZero() {
		return balance
	}
	totalBalance := k.TotalBalance(ctx, worker)
	if totalBalance.IsZero() {
		return balance
	}
	return balance.Mul(worker.TotalShare).Quo(totalBalance)
}

// BalanceOf returns the LP claim of a position
func (k *Keeper) BalanceOf(ctx sdk.Context, workerID string, positionID uint64) math.Int {
	worker := k.GetWorker(ctx, workerID)
	if worker == nil {
		return math.ZeroInt()
	}
	return k.ShareToBalance(ctx, worker, k.GetShare(ctx, workerID, positionID))
}

// addShare stakes lp held by the worker and credits the position with the matching share
func (k *Keeper) addShare(ctx sdk.Context, worker *types.Worker, positionID uint64, lp math.Int) error {
	if !lp.IsPositive() {
		return nil
	}
	share := k.BalanceToShare(ctx, worker, lp)
	ref := types.StakeRef(worker.WorkerID)
	if err := k.ammKeeper.Stake(ctx, worker.Config.FarmID, ref, ref, lp); err != nil {
		return err
	}
	worker.TotalShare = worker.TotalShare.Add(share)
	k.setShare(ctx, worker.WorkerID, positionID, k.GetShare(ctx, worker.WorkerID, positionID).Add(share))

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			"worker_add_share",
			sdk.NewAttribute("worker_id", worker.WorkerID),
			sdk.NewAttribute("position_id", strconv.FormatUint(positionID, 10)),
			sdk.NewAttribute("share", share.String()),
			sdk.NewAttribute("lp", lp.String()),
		),
	)
	return nil
}

// removeShare unstakes the whole LP claim of a position into the worker's holder and
// returns it. Removing the last share unstakes everything so the ledger drains to zero.
func (k *Keeper) removeShare(ctx sdk.Context, worker *types.Worker, positionID uint64) (math.Int, error) {
	share := k.GetShare(ctx, worker.WorkerID, positionID)
	if share.IsZero() {
		return math.ZeroInt(), nil
	}
	balance := k.ShareToBalance(ctx, worker, share)
	if share.Equal(worker.TotalShare) {
		balance = k.TotalBalance(ctx, worker)
	}
	ref := types.StakeRef(worker.WorkerID)
	if err := k.ammKeeper.Unstake(ctx, worker.Config.FarmID, ref, ref, balance); err != nil {
		return math.ZeroInt(), err
	}
	worker.TotalShare = worker.TotalShare.Sub(share)
	k.setShare(ctx, worker.WorkerID, positionID, math.ZeroInt())

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			"worker_remove_share",
			sdk.NewAttribute("worker_id", worker.WorkerID),
			sdk.NewAttribute("position_id", strconv.FormatUint(positionID, 10)),
			sdk.NewAttribute("share", share.String()),
			sdk.NewAttribute("lp", balance.String()),
		),
	)
	return balance, nil
}
