package membank_test

import (
	"testing"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	sdkerrors "github.com/cosmos/cosmos-sdk/types/errors"
	"github.com/stretchr/testify/require"

	"github.com/openalpha/levfarm/pkg/sandbox"
)

// TestSendAndSupply tests transfers and supply tracking
func TestSendAndSupply(t *testing.T) {
	sb, err := sandbox.New(log.NewNopLogger())
	require.NoError(t, err)
	alice, bob := sandbox.Addr("alice"), sandbox.Addr("bob")

	require.NoError(t, sb.Fund(alice, sdk.NewInt64Coin("uusd", 1_000), sdk.NewInt64Coin("uatom", 5)))
	require.Equal(t, math.NewInt(1_000), sb.Bank.GetSupply(sb.Ctx, "uusd").Amount)

	require.NoError(t, sb.Bank.SendCoins(sb.Ctx, alice, bob, sdk.NewCoins(sdk.NewInt64Coin("uusd", 400))))
	require.Equal(t, math.NewInt(600), sb.Balance(alice, "uusd"))
	require.Equal(t, math.NewInt(400), sb.Balance(bob, "uusd"))
	require.Equal(t, sdk.NewCoins(sdk.NewInt64Coin("uatom", 5), sdk.NewInt64Coin("uusd", 600)), sb.Bank.GetAllBalances(sb.Ctx, alice))

	// all-or-nothing across denoms
	err = sb.Bank.SendCoins(sb.Ctx, alice, bob, sdk.NewCoins(sdk.NewInt64Coin("uusd", 1), sdk.NewInt64Coin("uatom", 6)))
	require.ErrorIs(t, err, sdkerrors.ErrInsufficientFunds)
	require.Equal(t, math.NewInt(600), sb.Balance(alice, "uusd"))
}

// TestModuleMintBurn tests module accounts
func TestModuleMintBurn(t *testing.T) {
	sb, err := sandbox.New(log.NewNopLogger())
	require.NoError(t, err)
	coins := sdk.NewCoins(sdk.NewInt64Coin("ureward", 50))

	require.NoError(t, sb.Bank.MintCoins(sb.Ctx, "farm", coins))
	require.Equal(t, math.NewInt(50), sb.Bank.GetModuleBalance(sb.Ctx, "farm", "ureward").Amount)

	require.NoError(t, sb.Bank.SendCoinsFromModuleToModule(sb.Ctx, "farm", "treasury", sdk.NewCoins(sdk.NewInt64Coin("ureward", 20))))
	require.ErrorIs(t, sb.Bank.BurnCoins(sb.Ctx, "farm", coins), sdkerrors.ErrInsufficientFunds)

	require.NoError(t, sb.Bank.BurnCoins(sb.Ctx, "farm", sdk.NewCoins(sdk.NewInt64Coin("ureward", 30))))
	require.True(t, sb.Bank.GetModuleBalance(sb.Ctx, "farm", "ureward").IsZero())
	require.Equal(t, math.NewInt(20), sb.Bank.GetSupply(sb.Ctx, "ureward").Amount)
}

// TestCacheContextRollback tests that cached writes apply only on commit
func TestCacheContextRollback(t *testing.T) {
	sb, err := sandbox.New(log.NewNopLogger())
	require.NoError(t, err)
	alice, bob := sandbox.Addr("alice"), sandbox.Addr("bob")
	require.NoError(t, sb.Fund(alice, sdk.NewInt64Coin("uusd", 100)))

	cacheCtx, write := sb.Ctx.CacheContext()
	require.NoError(t, sb.Bank.SendCoins(cacheCtx, alice, bob, sdk.NewCoins(sdk.NewInt64Coin("uusd", 100))))
	require.True(t, sb.Balance(bob, "uusd").IsZero())

	write()
	require.Equal(t, math.NewInt(100), sb.Balance(bob, "uusd"))
	require.True(t, sb.Balance(alice, "uusd").IsZero())
}
