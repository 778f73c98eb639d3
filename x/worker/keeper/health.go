package keeper

import (
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	ammtypes "github.com/openalpha/levfarm/x/amm/types"
	"github.com/openalpha/levfarm/x/worker/types"
)

// Health returns the base value of a position: its LP is removed at current
// reserves and the farming side is sold into the post-removal pool.
func (k *Keeper) Health(ctx sdk.Context, workerID string, positionID uint64) (math.Int, error) {
	worker, err := k.mustGetWorker(ctx, workerID)
	if err != nil {
		return math.ZeroInt(), err
	}
	lp := k.ShareToBalance(ctx, worker, k.GetShare(ctx, workerID, positionID))
	return k.lpHealth(ctx, worker, lp)
}

func (k *Keeper) lpHealth(ctx sdk.Context, worker *types.Worker, lp math.Int) (math.Int, error) {
	if lp.IsZero() {
		return math.ZeroInt(), nil
	}
	pool := k.ammKeeper.GetPool(ctx, worker.Config.PoolID)
	if pool == nil {
		return math.ZeroInt(), ammtypes.ErrPoolNotFound.Wrap(worker.Config.PoolID)
	}
	amountA, amountB := pool.ShareOf(lp)
	baseOut, farmOut := amountA, amountB
	if pool.DenomA != worker.Config.BaseDenom {
		baseOut, farmOut = amountB, amountA
	}
	rBase := pool.ReserveOf(worker.Config.BaseDenom).Sub(baseOut)
	rFarm := pool.ReserveOf(worker.Config.FarmDenom).Sub(farmOut)
	return baseOut.Add(ammtypes.GetAmountOut(farmOut, rFarm, rBase, pool.FeeBps)), nil
}

// IsStable checks that the pool's spot price is within MaxPriceDiffBps of the oracle
// and that the pool's recorded reserves are fully backed.
func (k *Keeper) IsStable(ctx sdk.Context, workerID string) error {
	worker, err := k.mustGetWorker(ctx, workerID)
	if err != nil {
		return err
	}
	pool := k.ammKeeper.GetPool(ctx, worker.Config.PoolID)
	if pool == nil {
		return ammtypes.ErrPoolNotFound.Wrap(worker.Config.PoolID)
	}
	if !k.ammKeeper.ReservesBacked(ctx, pool.PoolID) {
		return types.ErrReserveInconsistent.Wrap(pool.PoolID)
	}

	basePrice, _, err := k.oracleKeeper.GetTokenPrice(ctx, worker.Config.BaseDenom)
	if err != nil {
		return types.ErrWorkerUnstable.Wrap(err.Error())
	}
	farmPrice, _, err := k.oracleKeeper.GetTokenPrice(ctx, worker.Config.FarmDenom)
	if err != nil {
		return types.ErrWorkerUnstable.Wrap(err.Error())
	}
	if !basePrice.IsPositive() {
		return types.ErrWorkerUnstable.Wrap("base price is zero")
	}

	oracleRate := farmPrice.Quo(basePrice)
	spotRate := pool.SpotPrice(worker.Config.FarmDenom)
	if !oracleRate.IsPositive() {
		return types.ErrWorkerUnstable.Wrap("farm price is zero")
	}
	maxDiff := math.LegacyNewDec(int64(worker.Config.MaxPriceDiffBps)).QuoInt64(types.BpsDenominator)
	diff := spotRate.Sub(oracleRate).Abs().Quo(oracleRate)
	if diff.GT(maxDiff) {
		return types.ErrWorkerUnstable.Wrapf("spot %s vs oracle %s", spotRate, oracleRate)
	}
	return nil
}
