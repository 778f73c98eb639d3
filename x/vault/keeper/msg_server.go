package keeper

import (
	"context"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/levfarm/x/vault/types"
)

// MsgServer defines the vault MsgServer
type MsgServer struct {
	keeper *Keeper
}

// NewMsgServerImpl creates a new MsgServer instance
func NewMsgServerImpl(keeper *Keeper) *MsgServer {
	return &MsgServer{keeper: keeper}
}

// CreateVault handles MsgCreateVault
func (m *MsgServer) CreateVault(ctx context.Context, msg *types.MsgCreateVault) (*types.MsgCreateVaultResponse, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	vault, err := m.keeper.CreateVault(sdkCtx, msg.Authority, msg.VaultID, msg.Denom, msg.Config)
	if err != nil {
		return nil, err
	}
	return &types.MsgCreateVaultResponse{ShareDenom: types.ShareDenom(vault.VaultID)}, nil
}

// UpdateVaultConfig handles MsgUpdateVaultConfig
func (m *MsgServer) UpdateVaultConfig(ctx context.Context, msg *types.MsgUpdateVaultConfig) (*types.MsgUpdateVaultConfigResponse, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	if _, err := m.keeper.UpdateVaultConfig(sdkCtx, msg.Authority, msg.VaultID, msg.Config); err != nil {
		return nil, err
	}
	return &types.MsgUpdateVaultConfigResponse{}, nil
}

// WithdrawReserve handles MsgWithdrawReserve
func (m *MsgServer) WithdrawReserve(ctx context.Context, msg *types.MsgWithdrawReserve) (*types.MsgWithdrawReserveResponse, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	recipient, err := sdk.AccAddressFromBech32(msg.Recipient)
	if err != nil {
		return nil, err
	}
	amount, err := types.ParseAmount(msg.Amount)
	if err != nil {
		return nil, err
	}
	if _, err := m.keeper.WithdrawReserve(sdkCtx, msg.Authority, msg.VaultID, recipient, amount); err != nil {
		return nil, err
	}
	return &types.MsgWithdrawReserveResponse{}, nil
}

// Deposit handles MsgDeposit
func (m *MsgServer) Deposit(ctx context.Context, msg *types.MsgDeposit) (*types.MsgDepositResponse, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	depositor, err := sdk.AccAddressFromBech32(msg.Depositor)
	if err != nil {
		return nil, err
	}
	amount, err := types.ParseAmount(msg.Amount)
	if err != nil {
		return nil, err
	}
	shares, err := m.keeper.Deposit(sdkCtx, depositor, msg.VaultID, amount)
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
	shares, err := types.ParseAmount(msg.Shares)
	if err != nil {
		return nil, err
	}
	amount, err := m.keeper.Withdraw(sdkCtx, withdrawer, msg.VaultID, shares)
	if err != nil {
		return nil, err
	}
	return &types.MsgWithdrawResponse{Amount: amount.String()}, nil
}

// Work handles MsgWork
func (m *MsgServer) Work(ctx context.Context, msg *types.MsgWork) (*types.MsgWorkResponse, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	owner, err := sdk.AccAddressFromBech32(msg.Owner)
	if err != nil {
		return nil, err
	}
	principal, err := types.ParseAmount(msg.Principal)
	if err != nil {
		return nil, err
	}
	borrow, err := types.ParseAmount(msg.Borrow)
	if err != nil {
		return nil, err
	}
	maxReturn, err := types.ParseAmount(msg.MaxReturn)
	if err != nil {
		return nil, err
	}
	res, err := m.keeper.Work(sdkCtx, owner, msg.VaultID, msg.PositionID, msg.WorkerID, principal, borrow, maxReturn, msg.StrategyID, msg.StrategyData)
	if err != nil {
		return nil, err
	}
	return &types.MsgWorkResponse{
		PositionID: res.PositionID,
		Debt:       res.Debt.String(),
		Health:     res.Health.String(),
		Returned:   res.Returned.String(),
	}, nil
}

// AddCollateral handles MsgAddCollateral
func (m *MsgServer) AddCollateral(ctx context.Context, msg *types.MsgAddCollateral) (*types.MsgAddCollateralResponse, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	owner, err := sdk.AccAddressFromBech32(msg.Owner)
	if err != nil {
		return nil, err
	}
	amount, err := types.ParseAmount(msg.Amount)
	if err != nil {
		return nil, err
	}
	res, err := m.keeper.AddCollateral(sdkCtx, owner, msg.VaultID, msg.PositionID, amount, msg.AllowUnsafe, msg.StrategyID, msg.StrategyData)
	if err != nil {
		return nil, err
	}
	return &types.MsgAddCollateralResponse{Health: res.Health.String()}, nil
}

// Kill handles MsgKill
func (m *MsgServer) Kill(ctx context.Context, msg *types.MsgKill) (*types.MsgKillResponse, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	killer, err := sdk.AccAddressFromBech32(msg.Killer)
	if err != nil {
		return nil, err
	}
	record, err := m.keeper.Kill(sdkCtx, killer, msg.VaultID, msg.PositionID)
	if err != nil {
		return nil, err
	}
	return &types.MsgKillResponse{Record: *record}, nil
}
