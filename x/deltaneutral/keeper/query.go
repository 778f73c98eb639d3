package keeper

import (
	"context"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/levfarm/x/deltaneutral/types"
)

// QueryServer defines the delta-neutral QueryServer
type QueryServer struct {
	keeper *Keeper
}

// NewQueryServerImpl creates a new QueryServer instance
func NewQueryServerImpl(keeper *Keeper) *QueryServer {
	return &QueryServer{keeper: keeper}
}

// Vault returns the valued state of a delta-neutral vault
func (q *QueryServer) Vault(ctx context.Context, dnID string) (*types.VaultView, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	return q.keeper.View(sdkCtx, dnID)
}

// Vaults returns all delta-neutral vaults
func (q *QueryServer) Vaults(ctx context.Context) ([]*types.DeltaNeutralVault, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	return q.keeper.GetAllVaults(sdkCtx), nil
}

// SharesToValue returns the equity value of shares at the current share price
func (q *QueryServer) SharesToValue(ctx context.Context, dnID string, shares math.Int) (math.LegacyDec, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	view, err := q.keeper.View(sdkCtx, dnID)
	if err != nil {
		return math.LegacyZeroDec(), err
	}
	return view.SharePrice.MulInt(shares), nil
}

// PendingReward returns the farm reward both legs could harvest now
func (q *QueryServer) PendingReward(ctx context.Context, dnID string) (math.Int, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	return q.keeper.PendingReward(sdkCtx, dnID)
}

// DepositPlan returns the actions a deposit of stable and asset would run
func (q *QueryServer) DepositPlan(ctx context.Context, dnID string, stable, asset math.Int) ([]types.Action, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	return q.keeper.DepositPlan(sdkCtx, dnID, stable, asset)
}
