package keeper

import (
	"encoding/json"
	"math/big"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/levfarm/x/worker/types"
)

// Strategy is an executable unit run by a worker against the AMM. Coins and LP are
// held by the worker module; the env describes what the strategy may use.
type Strategy interface {
	Execute(ctx sdk.Context, env StrategyEnv, params json.RawMessage) (StrategyResult, error)
}

// StrategyEnv is the view a strategy gets of the calling worker
type StrategyEnv struct {
	Amm  types.AmmKeeper
	Bank types.BankKeeper

	// Module holds the coins; Holder holds the unstaked LP
	Module string
	Holder string

	PoolID    string
	BaseDenom string
	FarmDenom string

	// Owner receives farming-token leftovers and supplies farming token for two-sided adds
	Owner sdk.AccAddress
	Debt  math.Int

	BaseIn math.Int
	LP     math.Int
}

// StrategyResult is what a strategy leaves with the worker
type StrategyResult struct {
	LP   math.Int
	Base math.Int
}

type normalizer interface {
	Normalize()
}

// decodeParams decodes a strategy blob into p, treating an empty blob as zero params
func decodeParams(data json.RawMessage, p normalizer) error {
	if len(data) > 0 {
		if err := json.Unmarshal(data, p); err != nil {
			return types.ErrBadStrategyParams.Wrap(err.Error())
		}
	}
	p.Normalize()
	return nil
}

// sendFarmToOwner hands farming-token leftovers to the owner
func sendFarmToOwner(ctx sdk.Context, env StrategyEnv, amount math.Int) error {
	if !amount.IsPositive() || env.Owner.Empty() {
		return nil
	}
	return env.Bank.SendCoinsFromModuleToAccount(ctx, env.Module, env.Owner, sdk.NewCoins(sdk.NewCoin(env.FarmDenom, amount)))
}

// optimalSwapAmount returns how much of amountIn to swap so the remainder and the
// swap output can be added to a pool with reserveIn at the post-swap ratio.
func optimalSwapAmount(amountIn, reserveIn math.Int, feeBps uint32) math.Int {
	if !amountIn.IsPositive() || !reserveIn.IsPositive() {
		return math.ZeroInt()
	}
	f := big.NewInt(int64(types.BpsDenominator - feeBps))
	twoMinusFee := new(big.Int).Add(big.NewInt(types.BpsDenominator), f)
	r := reserveIn.BigInt()

	// sqrt(r * (r*(2-f)^2 + 4*a*(1-f)*scale)) - r*(2-f), over 2*(1-f)
	inner := new(big.Int).Mul(r, new(big.Int).Mul(twoMinusFee, twoMinusFee))
	inner.Add(inner, new(big.Int).Mul(amountIn.BigInt(), new(big.Int).Mul(big.NewInt(4*types.BpsDenominator), f)))
	inner.Mul(inner, r)
	num := new(big.Int).Sqrt(inner)
	num.Sub(num, new(big.Int).Mul(r, twoMinusFee))
	if num.Sign() <= 0 {
		return math.ZeroInt()
	}
	num.Quo(num, new(big.Int).Mul(big.NewInt(2), f))
	return math.NewIntFromBigInt(num)
}

// optimalDeposit returns the amount to swap and its direction (true when B is swapped
// into A) so that amtA and amtB end up at the pool ratio.
func optimalDeposit(amtA, amtB, resA, resB math.Int, feeBps uint32) (math.Int, bool) {
	if amtA.Mul(resB).GTE(amtB.Mul(resA)) {
		return optimalDepositA(amtA, amtB, resA, resB, feeBps), false
	}
	return optimalDepositA(amtB, amtA, resB, resA, feeBps), true
}

func optimalDepositA(amtA, amtB, resA, resB math.Int, feeBps uint32) math.Int {
	if !resA.IsPositive() || !resB.IsPositive() {
		return math.ZeroInt()
	}
	a := big.NewInt(int64(types.BpsDenominator - feeBps))
	b := new(big.Int).Mul(new(big.Int).Add(big.NewInt(types.BpsDenominator), a), resA.BigInt())
	diff := amtA.Mul(resB).Sub(amtB.Mul(resA)).BigInt()
	c := new(big.Int).Mul(diff, big.NewInt(types.BpsDenominator))
	c.Quo(c, amtB.Add(resB).BigInt())
	c.Mul(c, resA.BigInt())
	d := new(big.Int).Mul(new(big.Int).Mul(a, c), big.NewInt(4))
	e := new(big.Int).Sqrt(new(big.Int).Add(new(big.Int).Mul(b, b), d))
	num := e.Sub(e, b)
	if num.Sign() <= 0 {
		return math.ZeroInt()
	}
	return math.NewIntFromBigInt(num.Quo(num, new(big.Int).Mul(a, big.NewInt(2))))
}
