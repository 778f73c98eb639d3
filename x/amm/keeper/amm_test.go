package keeper_test

import (
	"testing"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"
	"github.com/stretchr/testify/require"

	"github.com/openalpha/levfarm/pkg/sandbox"
	"github.com/openalpha/levfarm/x/amm/types"
)

const (
	usd  = "uusd"
	atom = "uatom"
	gold = "ugold"
)

func setupPool(t *testing.T) (*sandbox.Sandbox, string) {
	t.Helper()
	sb, err := sandbox.New(log.NewNopLogger())
	require.NoError(t, err)
	require.NoError(t, sb.Fund(sandbox.LiquidityProvider,
		sdk.NewInt64Coin(usd, 100_000_000),
		sdk.NewInt64Coin(atom, 10_000_000),
	))
	pool, minted, err := sb.Amm.CreatePool(sb.Ctx, sandbox.LiquidityProvider,
		sdk.NewInt64Coin(usd, 10_000_000), sdk.NewInt64Coin(atom, 1_000_000), 25)
	require.NoError(t, err)
	// sqrt(10e6 * 1e6) less the locked minimum
	require.Equal(t, math.NewInt(3_162_277-types.MinimumLiquidity), minted)
	return sb, pool.PoolID
}

// TestCreatePool tests pool creation and initial LP minting
func TestCreatePool(t *testing.T) {
	sb, poolID := setupPool(t)
	require.Equal(t, types.PoolIDFor(usd, atom), poolID)

	pool := sb.Amm.GetPool(sb.Ctx, poolID)
	require.Equal(t, math.NewInt(1_000_000), pool.ReserveOf(atom))
	require.Equal(t, math.NewInt(10_000_000), pool.ReserveOf(usd))
	require.True(t, sb.Amm.ReservesBacked(sb.Ctx, poolID))

	_, _, err := sb.Amm.CreatePool(sb.Ctx, sandbox.LiquidityProvider,
		sdk.NewInt64Coin(atom, 1_000), sdk.NewInt64Coin(usd, 10_000), 25)
	require.ErrorIs(t, err, types.ErrPoolExists)

	_, _, err = sb.Amm.CreatePool(sb.Ctx, sandbox.LiquidityProvider,
		sdk.NewInt64Coin(usd, 1_000), sdk.NewInt64Coin(usd, 1_000), 25)
	require.ErrorIs(t, err, types.ErrInvalidAmount)

	require.NoError(t, sb.Fund(sandbox.LiquidityProvider, sdk.NewInt64Coin(gold, 10)))
	_, _, err = sb.Amm.CreatePool(sb.Ctx, sandbox.LiquidityProvider,
		sdk.NewInt64Coin(gold, 10), sdk.NewInt64Coin(usd, 10), 25)
	require.ErrorIs(t, err, types.ErrInsufficientLiquidity)
}

// TestSwapExactIn tests swap quoting, the slippage guard and path validation
func TestSwapExactIn(t *testing.T) {
	sb, poolID := setupPool(t)
	trader := sandbox.Addr("trader")
	require.NoError(t, sb.Fund(trader, sdk.NewInt64Coin(usd, 100_000)))

	quote, err := sb.Amm.QuoteSwapExactIn(sb.Ctx, math.NewInt(100_000), []string{usd, atom})
	require.NoError(t, err)

	_, err = sb.Amm.SwapExactInFromAccount(sb.Ctx, trader, math.NewInt(100_000), []string{usd, atom}, quote[1].AddRaw(1))
	require.ErrorIs(t, err, types.ErrSlippage)

	out, err := sb.Amm.SwapExactInFromAccount(sb.Ctx, trader, math.NewInt(100_000), []string{usd, atom}, quote[1])
	require.NoError(t, err)
	require.Equal(t, quote[1], out)
	require.Equal(t, out, sb.Balance(trader, atom))
	require.True(t, sb.Balance(trader, usd).IsZero())

	pool := sb.Amm.GetPool(sb.Ctx, poolID)
	require.Equal(t, math.NewInt(10_100_000), pool.ReserveOf(usd))
	require.Equal(t, math.NewInt(1_000_000).Sub(out), pool.ReserveOf(atom))
	require.True(t, sb.Amm.ReservesBacked(sb.Ctx, poolID))

	_, err = sb.Amm.QuoteSwapExactIn(sb.Ctx, math.NewInt(1), []string{usd})
	require.ErrorIs(t, err, types.ErrInvalidPath)
	_, err = sb.Amm.QuoteSwapExactIn(sb.Ctx, math.NewInt(1), []string{usd, atom, usd})
	require.ErrorIs(t, err, types.ErrInvalidPath)
	_, err = sb.Amm.QuoteSwapExactIn(sb.Ctx, math.NewInt(1), []string{usd, gold})
	require.ErrorIs(t, err, types.ErrPoolNotFound)
}

// TestLiquidityRoundTrip tests that adding then removing liquidity returns the deposit less rounding
func TestLiquidityRoundTrip(t *testing.T) {
	sb, poolID := setupPool(t)
	const module = "lp-test"
	require.NoError(t, sb.Fund(authtypes.NewModuleAddress(module),
		sdk.NewInt64Coin(usd, 1_000_000), sdk.NewInt64Coin(atom, 200_000)))

	lp, used, err := sb.Amm.AddLiquidity(sb.Ctx, module, module, poolID,
		sdk.NewCoins(sdk.NewInt64Coin(usd, 1_000_000), sdk.NewInt64Coin(atom, 200_000)), math.ZeroInt())
	require.NoError(t, err)
	require.True(t, lp.IsPositive())
	// only the pool ratio is taken
	require.Equal(t, math.NewInt(1_000_000), used.AmountOf(usd))
	require.Equal(t, math.NewInt(100_000), used.AmountOf(atom))
	require.Equal(t, lp, sb.Amm.GetLPBalance(sb.Ctx, poolID, module))

	_, err = sb.Amm.RemoveLiquidity(sb.Ctx, module, module, poolID, lp.AddRaw(1))
	require.ErrorIs(t, err, types.ErrInsufficientLP)

	out, err := sb.Amm.RemoveLiquidity(sb.Ctx, module, module, poolID, lp)
	require.NoError(t, err)
	require.True(t, out.AmountOf(usd).LTE(math.NewInt(1_000_000)))
	require.True(t, out.AmountOf(usd).GT(math.NewInt(999_000)))
	require.True(t, sb.Amm.GetLPBalance(sb.Ctx, poolID, module).IsZero())
}

// TestFarmRewards tests the reward split between stakers and the performance fee
func TestFarmRewards(t *testing.T) {
	sb, poolID := setupPool(t)
	_, err := sb.Amm.CreateFarm(sb.Ctx, "farm", poolID, "ureward", math.NewInt(10), 1000)
	require.NoError(t, err)
	_, err = sb.Amm.CreateFarm(sb.Ctx, "farm", poolID, "ureward", math.NewInt(10), 1000)
	require.ErrorIs(t, err, types.ErrInvalidAmount)

	holder := sandbox.LiquidityProvider.String()
	stake := math.NewInt(1_000)
	require.NoError(t, sb.Amm.Stake(sb.Ctx, "farm", holder, "alice", stake))
	require.NoError(t, sb.Amm.Stake(sb.Ctx, "farm", holder, "bob", stake))

	sb.Advance(100 * time.Second)
	require.Equal(t, math.NewInt(500), sb.Amm.PendingReward(sb.Ctx, "farm", "alice"))

	const module = "harvester"
	net, err := sb.Amm.Harvest(sb.Ctx, "farm", "alice", module)
	require.NoError(t, err)
	require.Equal(t, math.NewInt(450), net)
	require.Equal(t, net, sb.Balance(authtypes.NewModuleAddress(module), "ureward"))
	require.Equal(t, math.NewInt(50), sb.Balance(authtypes.NewModuleAddress(sandbox.FeeCollector), "ureward"))
	require.True(t, sb.Amm.PendingReward(sb.Ctx, "farm", "alice").IsZero())

	// unstaking keeps what was earned
	require.NoError(t, sb.Amm.Unstake(sb.Ctx, "farm", "bob", holder, stake))
	require.Equal(t, math.NewInt(500), sb.Amm.PendingReward(sb.Ctx, "farm", "bob"))
	require.ErrorIs(t, sb.Amm.Unstake(sb.Ctx, "farm", "bob", holder, math.NewInt(1)), types.ErrInsufficientLP)
}

// TestOracle tests price feeding and LP valuation
func TestOracle(t *testing.T) {
	sb, poolID := setupPool(t)

	require.ErrorIs(t, sb.Amm.SetPrice(sb.Ctx, sandbox.Farmer.String(), atom, math.LegacyNewDec(10)), types.ErrUnauthorized)
	require.ErrorIs(t, sb.SetPrice(atom, math.LegacyZeroDec()), types.ErrInvalidAmount)

	_, _, err := sb.Amm.GetTokenPrice(sb.Ctx, atom)
	require.ErrorIs(t, err, types.ErrPriceNotFound)

	require.NoError(t, sb.SetPrice(atom, math.LegacyNewDec(10)))
	sb.Advance(time.Minute)
	require.NoError(t, sb.SetPrice(usd, math.LegacyOneDec()))

	pool := sb.Amm.GetPool(sb.Ctx, poolID)
	value, updatedAt, err := sb.Amm.LpToDollar(sb.Ctx, poolID, pool.TotalLP)
	require.NoError(t, err)
	require.True(t, math.LegacyNewDec(20_000_000).Equal(value))
	// the older of the two prices
	require.Equal(t, sandbox.GenesisTime.Unix(), updatedAt)

	params := sb.Amm.GetParams(sb.Ctx)
	params.Feeders = []string{sandbox.Farmer.String()}
	sb.Amm.SetParams(sb.Ctx, params)
	require.NoError(t, sb.Amm.SetPrice(sb.Ctx, sandbox.Farmer.String(), atom, math.LegacyNewDec(11)))
}
