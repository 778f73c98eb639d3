package types

import (
	"context"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	ammtypes "github.com/openalpha/levfarm/x/amm/types"
)

// BankKeeper defines the expected interface for the bank module
type BankKeeper interface {
	SendCoinsFromAccountToModule(ctx context.Context, senderAddr sdk.AccAddress, recipientModule string, amt sdk.Coins) error
	SendCoinsFromModuleToAccount(ctx context.Context, senderModule string, recipientAddr sdk.AccAddress, amt sdk.Coins) error
	SendCoinsFromModuleToModule(ctx context.Context, senderModule, recipientModule string, amt sdk.Coins) error
}

// AmmKeeper is the AMM and farm surface workers and strategies use
type AmmKeeper interface {
	GetPool(ctx sdk.Context, poolID string) *ammtypes.Pool
	ValidatePath(ctx sdk.Context, path []string) error
	ReservesBacked(ctx sdk.Context, poolID string) bool
	QuoteSwapExactIn(ctx sdk.Context, amountIn math.Int, path []string) ([]math.Int, error)
	SwapExactIn(ctx sdk.Context, fromModule string, amountIn math.Int, path []string, minOut math.Int) (math.Int, error)
	SwapForExactOut(ctx sdk.Context, fromModule, denomIn string, amountOut sdk.Coin, maxIn math.Int) (math.Int, error)
	AddLiquidity(ctx sdk.Context, fromModule, holder, poolID string, desired sdk.Coins, minLP math.Int) (math.Int, sdk.Coins, error)
	RemoveLiquidity(ctx sdk.Context, toModule, holder, poolID string, lp math.Int) (sdk.Coins, error)

	GetFarm(ctx sdk.Context, farmID string) *ammtypes.Farm
	Stake(ctx sdk.Context, farmID, holder, stakeRef string, amount math.Int) error
	Unstake(ctx sdk.Context, farmID, stakeRef, holder string, amount math.Int) error
	StakedBalance(ctx sdk.Context, farmID, stakeRef string) math.Int
	PendingReward(ctx sdk.Context, farmID, stakeRef string) math.Int
	Harvest(ctx sdk.Context, farmID, stakeRef, toModule string) (math.Int, error)
}

// OracleKeeper provides USD prices with their update time
type OracleKeeper interface {
	GetTokenPrice(ctx sdk.Context, denom string) (math.LegacyDec, int64, error)
}

// VaultKeeper is the lending-vault surface a worker needs for beneficial buybacks
type VaultKeeper interface {
	GetVaultDenom(ctx sdk.Context, vaultID string) (string, error)
	CreditBuyback(ctx sdk.Context, vaultID, fromModule string, amount math.Int) error
}
