package types

import (
	"context"
	"encoding/json"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	ammtypes "github.com/openalpha/levfarm/x/amm/types"
	vaulttypes "github.com/openalpha/levfarm/x/vault/types"
	workertypes "github.com/openalpha/levfarm/x/worker/types"
)

// BankKeeper defines the expected interface for the bank module
type BankKeeper interface {
	SendCoinsFromAccountToModule(ctx context.Context, senderAddr sdk.AccAddress, recipientModule string, amt sdk.Coins) error
	SendCoinsFromModuleToAccount(ctx context.Context, senderModule string, recipientAddr sdk.AccAddress, amt sdk.Coins) error
	MintCoins(ctx context.Context, moduleName string, amt sdk.Coins) error
	BurnCoins(ctx context.Context, moduleName string, amt sdk.Coins) error
	GetBalance(ctx context.Context, addr sdk.AccAddress, denom string) sdk.Coin
}

// VaultKeeper is the lending-vault surface the coordinator drives
type VaultKeeper interface {
	GetVault(ctx sdk.Context, vaultID string) *vaulttypes.Vault
	DebtValue(ctx sdk.Context, vaultID string, positionID uint64) (math.Int, error)
	Work(
		ctx sdk.Context,
		caller sdk.AccAddress,
		vaultID string,
		positionID uint64,
		workerID string,
		principal, borrowAmount, maxReturn math.Int,
		strategyID string,
		data json.RawMessage,
	) (*vaulttypes.WorkResult, error)
}

// WorkerKeeper is the worker surface the coordinator reads and harvests
type WorkerKeeper interface {
	GetWorker(ctx sdk.Context, workerID string) *workertypes.Worker
	BalanceOf(ctx sdk.Context, workerID string, positionID uint64) math.Int
	Health(ctx sdk.Context, workerID string, positionID uint64) (math.Int, error)
	PendingReward(ctx sdk.Context, workerID string) math.Int
	Harvest(ctx sdk.Context, workerID, recipientModule string) (math.Int, error)
}

// AmmKeeper is the AMM and oracle surface the coordinator uses
type AmmKeeper interface {
	GetPool(ctx sdk.Context, poolID string) *ammtypes.Pool
	ValidatePath(ctx sdk.Context, path []string) error
	QuoteSwapExactIn(ctx sdk.Context, amountIn math.Int, path []string) ([]math.Int, error)
	SwapExactIn(ctx sdk.Context, fromModule string, amountIn math.Int, path []string, minOut math.Int) (math.Int, error)
	GetTokenPrice(ctx sdk.Context, denom string) (math.LegacyDec, int64, error)
	LpToDollar(ctx sdk.Context, poolID string, lp math.Int) (math.LegacyDec, int64, error)
}
