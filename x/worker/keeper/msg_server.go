package keeper

import (
	"context"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/levfarm/x/worker/types"
)

// MsgServer defines the worker MsgServer
type MsgServer struct {
	keeper *Keeper
}

// NewMsgServerImpl creates a new MsgServer instance
func NewMsgServerImpl(keeper *Keeper) *MsgServer {
	return &MsgServer{keeper: keeper}
}

// CreateWorker handles MsgCreateWorker
func (m *MsgServer) CreateWorker(ctx context.Context, msg *types.MsgCreateWorker) (*types.MsgCreateWorkerResponse, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	worker, err := m.keeper.CreateWorker(sdkCtx, msg.Authority, msg.WorkerID, msg.Config)
	if err != nil {
		return nil, err
	}
	return &types.MsgCreateWorkerResponse{PoolID: worker.Config.PoolID}, nil
}

// UpdateWorkerConfig handles MsgUpdateWorkerConfig
func (m *MsgServer) UpdateWorkerConfig(ctx context.Context, msg *types.MsgUpdateWorkerConfig) (*types.MsgUpdateWorkerConfigResponse, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	if _, err := m.keeper.UpdateWorkerConfig(sdkCtx, msg.Authority, msg.WorkerID, msg.Config); err != nil {
		return nil, err
	}
	return &types.MsgUpdateWorkerConfigResponse{}, nil
}

// Reinvest handles MsgReinvest
func (m *MsgServer) Reinvest(ctx context.Context, msg *types.MsgReinvest) (*types.MsgReinvestResponse, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	caller, err := sdk.AccAddressFromBech32(msg.Reinvestor)
	if err != nil {
		return nil, err
	}
	minOut := math.ZeroInt()
	if msg.MinSwapOut != "" {
		var ok bool
		if minOut, ok = math.NewIntFromString(msg.MinSwapOut); !ok {
			return nil, types.ErrBadStrategyParams.Wrapf("min swap out %q", msg.MinSwapOut)
		}
	}
	res, err := m.keeper.Reinvest(sdkCtx, caller, msg.WorkerID, minOut)
	if err != nil {
		return nil, err
	}
	return &types.MsgReinvestResponse{Result: *res}, nil
}
