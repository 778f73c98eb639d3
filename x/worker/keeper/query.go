package keeper

import (
	"context"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/levfarm/x/worker/types"
)

// QueryServer defines the worker QueryServer
type QueryServer struct {
	keeper *Keeper
}

// NewQueryServerImpl creates a new QueryServer instance
func NewQueryServerImpl(keeper *Keeper) *QueryServer {
	return &QueryServer{keeper: keeper}
}

// Worker returns a worker by ID
func (q *QueryServer) Worker(ctx context.Context, workerID string) (*types.Worker, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	return q.keeper.mustGetWorker(sdkCtx, workerID)
}

// Workers returns all workers
func (q *QueryServer) Workers(ctx context.Context) ([]*types.Worker, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	return q.keeper.GetAllWorkers(sdkCtx), nil
}

// Position returns the share, LP and health of a position in a worker
func (q *QueryServer) Position(ctx context.Context, workerID string, positionID uint64) (*types.PositionView, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	return q.keeper.PositionInfo(sdkCtx, workerID, positionID)
}

// PendingReward returns the farm reward a reinvest would harvest now
func (q *QueryServer) PendingReward(ctx context.Context, workerID string) (math.Int, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	if _, err := q.keeper.mustGetWorker(sdkCtx, workerID); err != nil {
		return math.ZeroInt(), err
	}
	return q.keeper.PendingReward(sdkCtx, workerID), nil
}
