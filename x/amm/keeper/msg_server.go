package keeper

import (
	"context"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/levfarm/x/amm/types"
)

// MsgServer defines the amm MsgServer
type MsgServer struct {
	keeper *Keeper
}

// NewMsgServerImpl creates a new MsgServer instance
func NewMsgServerImpl(keeper *Keeper) *MsgServer {
	return &MsgServer{keeper: keeper}
}

// CreatePool handles MsgCreatePool
func (m *MsgServer) CreatePool(ctx context.Context, msg *types.MsgCreatePool) (*types.MsgCreatePoolResponse, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	creator, err := sdk.AccAddressFromBech32(msg.Creator)
	if err != nil {
		return nil, err
	}
	amountA, ok := math.NewIntFromString(msg.AmountA)
	if !ok {
		return nil, types.ErrInvalidAmount.Wrap(msg.AmountA)
	}
	amountB, ok := math.NewIntFromString(msg.AmountB)
	if !ok {
		return nil, types.ErrInvalidAmount.Wrap(msg.AmountB)
	}
	pool, lp, err := m.keeper.CreatePool(sdkCtx, creator, sdk.NewCoin(msg.DenomA, amountA), sdk.NewCoin(msg.DenomB, amountB), msg.FeeBps)
	if err != nil {
		return nil, err
	}
	return &types.MsgCreatePoolResponse{PoolID: pool.PoolID, LPReceived: lp.String()}, nil
}

// Swap handles MsgSwap
func (m *MsgServer) Swap(ctx context.Context, msg *types.MsgSwap) (*types.MsgSwapResponse, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	sender, err := sdk.AccAddressFromBech32(msg.Sender)
	if err != nil {
		return nil, err
	}
	amountIn, ok := math.NewIntFromString(msg.AmountIn)
	if !ok {
		return nil, types.ErrInvalidAmount.Wrap(msg.AmountIn)
	}
	minOut := math.ZeroInt()
	if msg.MinOut != "" {
		if minOut, ok = math.NewIntFromString(msg.MinOut); !ok {
			return nil, types.ErrInvalidAmount.Wrap(msg.MinOut)
		}
	}
	out, err := m.keeper.SwapExactInFromAccount(sdkCtx, sender, amountIn, msg.Path, minOut)
	if err != nil {
		return nil, err
	}
	return &types.MsgSwapResponse{AmountOut: out.String()}, nil
}

// CreateFarm handles MsgCreateFarm
func (m *MsgServer) CreateFarm(ctx context.Context, msg *types.MsgCreateFarm) (*types.MsgCreateFarmResponse, error) {
	if msg.Authority != m.keeper.authority {
		return nil, types.ErrUnauthorized.Wrapf("expected %s, got %s", m.keeper.authority, msg.Authority)
	}
	rate, ok := math.NewIntFromString(msg.RewardPerSecond)
	if !ok {
		return nil, types.ErrInvalidAmount.Wrap(msg.RewardPerSecond)
	}
	if _, err := m.keeper.CreateFarm(sdk.UnwrapSDKContext(ctx), msg.FarmID, msg.PoolID, msg.RewardDenom, rate, msg.PerformanceFeeBps); err != nil {
		return nil, err
	}
	return &types.MsgCreateFarmResponse{}, nil
}

// SetPrice handles MsgSetPrice
func (m *MsgServer) SetPrice(ctx context.Context, msg *types.MsgSetPrice) (*types.MsgSetPriceResponse, error) {
	price, err := math.LegacyNewDecFromStr(msg.Price)
	if err != nil {
		return nil, err
	}
	if err := m.keeper.SetPrice(sdk.UnwrapSDKContext(ctx), msg.Feeder, msg.Denom, price); err != nil {
		return nil, err
	}
	return &types.MsgSetPriceResponse{}, nil
}

// UpdateParams handles MsgUpdateParams
func (m *MsgServer) UpdateParams(ctx context.Context, msg *types.MsgUpdateParams) (*types.MsgUpdateParamsResponse, error) {
	if msg.Authority != m.keeper.authority {
		return nil, types.ErrUnauthorized.Wrapf("expected %s, got %s", m.keeper.authority, msg.Authority)
	}
	m.keeper.SetParams(sdk.UnwrapSDKContext(ctx), msg.Params)
	return &types.MsgUpdateParamsResponse{}, nil
}
