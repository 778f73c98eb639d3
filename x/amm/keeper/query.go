package keeper

import (
	"context"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/levfarm/x/amm/types"
)

// QueryServer defines the amm QueryServer
type QueryServer struct {
	keeper *Keeper
}

// NewQueryServerImpl creates a new QueryServer instance
func NewQueryServerImpl(keeper *Keeper) *QueryServer {
	return &QueryServer{keeper: keeper}
}

// Pool returns a pool by ID
func (q *QueryServer) Pool(ctx context.Context, poolID string) (*types.Pool, error) {
	pool := q.keeper.GetPool(sdk.UnwrapSDKContext(ctx), poolID)
	if pool == nil {
		return nil, types.ErrPoolNotFound.Wrap(poolID)
	}
	return pool, nil
}

// Pools returns all pools
func (q *QueryServer) Pools(ctx context.Context) ([]*types.Pool, error) {
	return q.keeper.GetAllPools(sdk.UnwrapSDKContext(ctx)), nil
}

// Farms returns all farms
func (q *QueryServer) Farms(ctx context.Context) ([]*types.Farm, error) {
	return q.keeper.GetAllFarms(sdk.UnwrapSDKContext(ctx)), nil
}

// Prices returns every oracle price
func (q *QueryServer) Prices(ctx context.Context) ([]*types.PriceRecord, error) {
	return q.keeper.GetAllPrices(sdk.UnwrapSDKContext(ctx)), nil
}

// QuoteSwap returns the per-hop amounts of a swap without executing it
func (q *QueryServer) QuoteSwap(ctx context.Context, amountIn math.Int, path []string) ([]math.Int, error) {
	return q.keeper.QuoteSwapExactIn(sdk.UnwrapSDKContext(ctx), amountIn, path)
}
