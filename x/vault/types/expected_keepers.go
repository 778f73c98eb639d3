package types

import (
	"context"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	workertypes "github.com/openalpha/levfarm/x/worker/types"
)

// BankKeeper defines the expected interface for the bank module
type BankKeeper interface {
	SendCoinsFromAccountToModule(ctx context.Context, senderAddr sdk.AccAddress, recipientModule string, amt sdk.Coins) error
	SendCoinsFromModuleToAccount(ctx context.Context, senderModule string, recipientAddr sdk.AccAddress, amt sdk.Coins) error
	SendCoinsFromModuleToModule(ctx context.Context, senderModule, recipientModule string, amt sdk.Coins) error
	MintCoins(ctx context.Context, moduleName string, amt sdk.Coins) error
	BurnCoins(ctx context.Context, moduleName string, amt sdk.Coins) error
}

// WorkerKeeper is the worker surface a vault drives
type WorkerKeeper interface {
	Work(ctx sdk.Context, req workertypes.WorkRequest) (math.Int, error)
	Liquidate(ctx sdk.Context, workerID string, positionID uint64, returnModule string) (math.Int, error)
	Health(ctx sdk.Context, workerID string, positionID uint64) (math.Int, error)
	IsStable(ctx sdk.Context, workerID string) error
	GetWorker(ctx sdk.Context, workerID string) *workertypes.Worker
}
