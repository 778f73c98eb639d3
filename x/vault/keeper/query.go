package keeper

import (
	"context"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/levfarm/x/vault/types"
)

// QueryServer defines the vault QueryServer
type QueryServer struct {
	keeper *Keeper
}

// NewQueryServerImpl creates a new QueryServer instance
func NewQueryServerImpl(keeper *Keeper) *QueryServer {
	return &QueryServer{keeper: keeper}
}

// Vault returns the accounting view of a vault
func (q *QueryServer) Vault(ctx context.Context, vaultID string) (*types.VaultView, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	return q.keeper.VaultView(sdkCtx, vaultID)
}

// Vaults returns all vaults
func (q *QueryServer) Vaults(ctx context.Context) ([]*types.Vault, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	return q.keeper.GetAllVaults(sdkCtx), nil
}

// Position returns the health and debt of a position
func (q *QueryServer) Position(ctx context.Context, vaultID string, positionID uint64) (*types.PositionInfo, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	return q.keeper.PositionInfo(sdkCtx, vaultID, positionID)
}

// PositionsByOwner returns an owner's positions in a vault
func (q *QueryServer) PositionsByOwner(ctx context.Context, vaultID, owner string) ([]*types.Position, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	return q.keeper.GetPositionsByOwner(sdkCtx, vaultID, owner), nil
}

// AtRiskPositions returns positions whose debt ratio is at least ratio
func (q *QueryServer) AtRiskPositions(ctx context.Context, vaultID string, ratio math.LegacyDec) ([]*types.PositionInfo, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	return q.keeper.AtRiskPositions(sdkCtx, vaultID, ratio)
}

// KillRecords returns the liquidation history of a vault
func (q *QueryServer) KillRecords(ctx context.Context, vaultID string) ([]*types.KillRecord, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	return q.keeper.GetKillRecords(sdkCtx, vaultID), nil
}
