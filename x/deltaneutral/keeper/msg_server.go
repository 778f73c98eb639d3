package keeper

import (
	"context"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/levfarm/x/deltaneutral/types"
)

// MsgServer defines the delta-neutral MsgServer
type MsgServer struct {
	keeper *Keeper
}

// NewMsgServerImpl creates a new MsgServer instance
func NewMsgServerImpl(keeper *Keeper) *MsgServer {
	return &MsgServer{keeper: keeper}
}

// CreateDeltaNeutralVault handles MsgCreateDeltaNeutralVault
func (m *MsgServer) CreateDeltaNeutralVault(ctx context.Context, msg *types.MsgCreateDeltaNeutralVault) (*types.MsgCreateDeltaNeutralVaultResponse, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	vault, err := m.keeper.CreateVault(sdkCtx, msg.Authority, msg.DNID,
		msg.StableVaultID, msg.StableWorkerID, msg.AssetVaultID, msg.AssetWorkerID, msg.Config)
	if err != nil {
		return nil, err
	}
	return &types.MsgCreateDeltaNeutralVaultResponse{ShareDenom: types.ShareDenom(vault.DNID)}, nil
}

// UpdateConfig handles MsgUpdateConfig
func (m *MsgServer) UpdateConfig(ctx context.Context, msg *types.MsgUpdateConfig) (*types.MsgUpdateConfigResponse, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	if _, err := m.keeper.UpdateConfig(sdkCtx, msg.Authority, msg.DNID, msg.Config); err != nil {
		return nil, err
	}
	return &types.MsgUpdateConfigResponse{}, nil
}

// InitPositions handles MsgInitPositions
func (m *MsgServer) InitPositions(ctx context.Context, msg *types.MsgInitPositions) (*types.MsgInitPositionsResponse, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	operator, err := sdk.AccAddressFromBech32(msg.Operator)
	if err != nil {
		return nil, err
	}
	stable, asset, minShares, err := parseAmounts(msg.StableAmount, msg.AssetAmount, msg.MinShares)
	if err != nil {
		return nil, err
	}
	shares, err := m.keeper.InitPositions(sdkCtx, operator, msg.DNID, stable, asset, minShares, msg.Actions)
	if err != nil {
		return nil, err
	}
	return &types.MsgInitPositionsResponse{Shares: shares.String()}, nil
}

// Deposit handles MsgDeposit
func (m *MsgServer) Deposit(ctx context.Context, msg *types.MsgDeposit) (*types.MsgDepositResponse, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	depositor, err := sdk.AccAddressFromBech32(msg.Depositor)
	if err != nil {
		return nil, err
	}
	stable, asset, minShares, err := parseAmounts(msg.StableAmount, msg.AssetAmount, msg.MinShares)
	if err != nil {
		return nil, err
	}
	shares, err := m.keeper.Deposit(sdkCtx, depositor, msg.DNID, stable, asset, minShares, msg.Actions)
	if err != nil {
		return nil, err
	}
	return &types.MsgDepositResponse{Shares: shares.String()}, nil
}

// Withdraw handles MsgWithdraw
func (m *MsgServer) Withdraw(ctx context.Context, msg *types.MsgWithdraw) (*types.MsgWithdrawResponse, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	withdrawer, err := sdk.AccAddressFromBech32(msg.Withdrawer)
	if err != nil {
		return nil, err
	}
	shares, minStable, minAsset, err := parseAmounts(msg.Shares, msg.MinStableAmount, msg.MinAssetAmount)
	if err != nil {
		return nil, err
	}
	stableOut, assetOut, err := m.keeper.Withdraw(sdkCtx, withdrawer, msg.DNID, shares, minStable, minAsset, msg.Actions)
	if err != nil {
		return nil, err
	}
	return &types.MsgWithdrawResponse{StableAmount: stableOut.String(), AssetAmount: assetOut.String()}, nil
}

// Reinvest handles MsgReinvest
func (m *MsgServer) Reinvest(ctx context.Context, msg *types.MsgReinvest) (*types.MsgReinvestResponse, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	reinvestor, err := sdk.AccAddressFromBech32(msg.Reinvestor)
	if err != nil {
		return nil, err
	}
	minReceive, err := types.ParseAmount(msg.MinTokenReceive)
	if err != nil {
		return nil, err
	}
	res, err := m.keeper.Reinvest(sdkCtx, reinvestor, msg.DNID, minReceive, msg.Actions)
	if err != nil {
		return nil, err
	}
	return &types.MsgReinvestResponse{Reward: res.Reward.String(), Swapped: res.Swapped.String()}, nil
}

// Rebalance handles MsgRebalance
func (m *MsgServer) Rebalance(ctx context.Context, msg *types.MsgRebalance) (*types.MsgRebalanceResponse, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	rebalancer, err := sdk.AccAddressFromBech32(msg.Rebalancer)
	if err != nil {
		return nil, err
	}
	if err := m.keeper.Rebalance(sdkCtx, rebalancer, msg.DNID, msg.Actions); err != nil {
		return nil, err
	}
	return &types.MsgRebalanceResponse{}, nil
}

// parseAmounts parses three amount strings in order
func parseAmounts(a, b, c string) (math.Int, math.Int, math.Int, error) {
	var out [3]math.Int
	for i, s := range []string{a, b, c} {
		v, err := types.ParseAmount(s)
		if err != nil {
			return math.ZeroInt(), math.ZeroInt(), math.ZeroInt(), err
		}
		out[i] = v
	}
	return out[0], out[1], out[2], nil
}
