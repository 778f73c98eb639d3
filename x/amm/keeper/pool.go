package keeper

import (
	"math/big"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"

	"github.com/openalpha/levfarm/x/amm/types"
)

// lockedHolder owns the permanently locked minimum liquidity
const lockedHolder = "locked"

// CreatePool creates a pool seeded by the creator's two coins
func (k *Keeper) CreatePool(ctx sdk.Context, creator sdk.AccAddress, coinA, coinB sdk.Coin, feeBps uint32) (*types.Pool, math.Int, error) {
	if coinA.Denom == coinB.Denom || !coinA.Amount.IsPositive() || !coinB.Amount.IsPositive() {
		return nil, math.ZeroInt(), types.ErrInvalidAmount
	}
	if feeBps >= types.BpsDenominator {
		return nil, math.ZeroInt(), types.ErrInvalidAmount.Wrap("fee must be below 100%")
	}
	poolID := types.PoolIDFor(coinA.Denom, coinB.Denom)
	if k.GetPool(ctx, poolID) != nil {
		return nil, math.ZeroInt(), types.ErrPoolExists.Wrap(poolID)
	}

	liquidity := math.NewIntFromBigInt(new(big.Int).Sqrt(coinA.Amount.Mul(coinB.Amount).BigInt()))
	if liquidity.LTE(math.NewInt(types.MinimumLiquidity)) {
		return nil, math.ZeroInt(), types.ErrInsufficientLiquidity.Wrap("initial liquidity too small")
	}
	if err := k.bankKeeper.SendCoinsFromAccountToModule(ctx, creator, types.ModuleName, sdk.NewCoins(coinA, coinB)); err != nil {
		return nil, math.ZeroInt(), err
	}

	pool := types.NewPool(coinA.Denom, coinB.Denom, feeBps)
	pool.ReserveA = pool.ReserveA.Add(sdk.NewCoins(coinA, coinB).AmountOf(pool.DenomA))
	pool.ReserveB = pool.ReserveB.Add(sdk.NewCoins(coinA, coinB).AmountOf(pool.DenomB))
	pool.TotalLP = liquidity
	k.SetPool(ctx, pool)

	minted := liquidity.SubRaw(types.MinimumLiquidity)
	k.setLPBalance(ctx, poolID, lockedHolder, math.NewInt(types.MinimumLiquidity))
	k.setLPBalance(ctx, poolID, creator.String(), minted)

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			"amm_create_pool",
			sdk.NewAttribute("pool_id", poolID),
			sdk.NewAttribute("creator", creator.String()),
			sdk.NewAttribute("lp", minted.String()),
		),
	)
	k.logger.Info("Pool created", "pool_id", poolID, "reserve_a", pool.ReserveA.String(), "reserve_b", pool.ReserveB.String())

	return pool, minted, nil
}

// QuoteAddLiquidity returns the amounts that would be used and the LP minted
// for the desired deposit, matching the pool ratio.
func QuoteAddLiquidity(pool *types.Pool, desiredA, desiredB math.Int) (usedA, usedB, lp math.Int) {
	if pool.TotalLP.IsZero() || !desiredA.IsPositive() || !desiredB.IsPositive() {
		return math.ZeroInt(), math.ZeroInt(), math.ZeroInt()
	}
	usedA, usedB = desiredA, desiredB
	optimalB := desiredA.Mul(pool.ReserveB).Quo(pool.ReserveA)
	if optimalB.LTE(desiredB) {
		usedB = optimalB
	} else {
		usedA = desiredB.Mul(pool.ReserveA).Quo(pool.ReserveB)
	}
	lpA := usedA.Mul(pool.TotalLP).Quo(pool.ReserveA)
	lpB := usedB.Mul(pool.TotalLP).Quo(pool.ReserveB)
	return usedA, usedB, math.MinInt(lpA, lpB)
}

// AddLiquidity pulls up to the desired coins from fromModule and credits the minted LP to holder.
// Unused coins stay with fromModule.
func (k *Keeper) AddLiquidity(ctx sdk.Context, fromModule, holder, poolID string, desired sdk.Coins, minLP math.Int) (math.Int, sdk.Coins, error) {
	pool := k.GetPool(ctx, poolID)
	if pool == nil {
		return math.ZeroInt(), nil, types.ErrPoolNotFound.Wrap(poolID)
	}
	usedA, usedB, lp := QuoteAddLiquidity(pool, desired.AmountOf(pool.DenomA), desired.AmountOf(pool.DenomB))
	if !lp.IsPositive() {
		return math.ZeroInt(), nil, types.ErrInvalidAmount.Wrap("no liquidity minted")
	}
	if lp.LT(minLP) {
		return math.ZeroInt(), nil, types.ErrSlippage.Wrapf("lp %s < min %s", lp, minLP)
	}
	used := sdk.NewCoins(sdk.NewCoin(pool.DenomA, usedA), sdk.NewCoin(pool.DenomB, usedB))
	if err := k.bankKeeper.SendCoinsFromModuleToModule(ctx, fromModule, types.ModuleName, used); err != nil {
		return math.ZeroInt(), nil, err
	}

	pool.ReserveA = pool.ReserveA.Add(usedA)
	pool.ReserveB = pool.ReserveB.Add(usedB)
	pool.TotalLP = pool.TotalLP.Add(lp)
	k.SetPool(ctx, pool)
	k.setLPBalance(ctx, poolID, holder, k.GetLPBalance(ctx, poolID, holder).Add(lp))

	return lp, used, nil
}

// RemoveLiquidity burns holder's LP and sends the underlying coins to toModule
func (k *Keeper) RemoveLiquidity(ctx sdk.Context, toModule, holder, poolID string, lp math.Int) (sdk.Coins, error) {
	pool := k.GetPool(ctx, poolID)
	if pool == nil {
		return nil, types.ErrPoolNotFound.Wrap(poolID)
	}
	if lp.IsZero() {
		return sdk.NewCoins(), nil
	}
	bal := k.GetLPBalance(ctx, poolID, holder)
	if bal.LT(lp) {
		return nil, types.ErrInsufficientLP.Wrapf("%s has %s, need %s", holder, bal, lp)
	}

	amountA, amountB := pool.ShareOf(lp)
	pool.ReserveA = pool.ReserveA.Sub(amountA)
	pool.ReserveB = pool.ReserveB.Sub(amountB)
	pool.TotalLP = pool.TotalLP.Sub(lp)
	k.SetPool(ctx, pool)
	k.setLPBalance(ctx, poolID, holder, bal.Sub(lp))

	out := sdk.NewCoins(sdk.NewCoin(pool.DenomA, amountA), sdk.NewCoin(pool.DenomB, amountB))
	if !out.IsZero() {
		if err := k.bankKeeper.SendCoinsFromModuleToModule(ctx, types.ModuleName, toModule, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// pathPools resolves the pools along a denom path
func (k *Keeper) pathPools(ctx sdk.Context, path []string) ([]*types.Pool, error) {
	if len(path) < 2 {
		return nil, types.ErrInvalidPath.Wrapf("path %v", path)
	}
	pools := make([]*types.Pool, 0, len(path)-1)
	seen := make(map[string]bool, len(path)-1)
	for i := 0; i < len(path)-1; i++ {
		poolID := types.PoolIDFor(path[i], path[i+1])
		if path[i] == path[i+1] || seen[poolID] {
			return nil, types.ErrInvalidPath.Wrapf("repeated hop %s -> %s", path[i], path[i+1])
		}
		seen[poolID] = true
		pool := k.GetPool(ctx, poolID)
		if pool == nil {
			return nil, types.ErrPoolNotFound.Wrapf("%s -> %s", path[i], path[i+1])
		}
		pools = append(pools, pool)
	}
	return pools, nil
}

// ValidatePath checks every hop of path has a pool
func (k *Keeper) ValidatePath(ctx sdk.Context, path []string) error {
	_, err := k.pathPools(ctx, path)
	return err
}

// QuoteSwapExactIn returns the amount at every hop of path for amountIn, without state changes
func (k *Keeper) QuoteSwapExactIn(ctx sdk.Context, amountIn math.Int, path []string) ([]math.Int, error) {
	pools, err := k.pathPools(ctx, path)
	if err != nil {
		return nil, err
	}
	amounts := make([]math.Int, len(path))
	amounts[0] = amountIn
	for i, pool := range pools {
		rIn, rOut := pool.Reserves(path[i])
		amounts[i+1] = types.GetAmountOut(amounts[i], rIn, rOut, pool.FeeBps)
	}
	return amounts, nil
}

// swap applies a path swap to pool reserves and returns the final output
func (k *Keeper) swap(ctx sdk.Context, amountIn math.Int, path []string, minOut math.Int) (math.Int, error) {
	if !amountIn.IsPositive() {
		return math.ZeroInt(), types.ErrInvalidAmount.Wrap("swap amount must be positive")
	}
	pools, err := k.pathPools(ctx, path)
	if err != nil {
		return math.ZeroInt(), err
	}
	amount := amountIn
	for i, pool := range pools {
		rIn, rOut := pool.Reserves(path[i])
		out := types.GetAmountOut(amount, rIn, rOut, pool.FeeBps)
		if !out.IsPositive() {
			return math.ZeroInt(), types.ErrInsufficientLiquidity.Wrapf("hop %s -> %s", path[i], path[i+1])
		}
		pool.SetReserves(path[i], rIn.Add(amount), rOut.Sub(out))
		k.SetPool(ctx, pool)
		amount = out
	}
	if amount.LT(minOut) {
		return math.ZeroInt(), types.ErrSlippage.Wrapf("out %s < min %s", amount, minOut)
	}
	return amount, nil
}

// SwapExactIn swaps amountIn held by fromModule along path; the output is sent back to fromModule
func (k *Keeper) SwapExactIn(ctx sdk.Context, fromModule string, amountIn math.Int, path []string, minOut math.Int) (math.Int, error) {
	out, err := k.swap(ctx, amountIn, path, minOut)
	if err != nil {
		return math.ZeroInt(), err
	}
	in := sdk.NewCoins(sdk.NewCoin(path[0], amountIn))
	if err := k.bankKeeper.SendCoinsFromModuleToModule(ctx, fromModule, types.ModuleName, in); err != nil {
		return math.ZeroInt(), err
	}
	if err := k.bankKeeper.SendCoinsFromModuleToModule(ctx, types.ModuleName, fromModule, sdk.NewCoins(sdk.NewCoin(path[len(path)-1], out))); err != nil {
		return math.ZeroInt(), err
	}
	return out, nil
}

// SwapExactInFromAccount is SwapExactIn for a user account
func (k *Keeper) SwapExactInFromAccount(ctx sdk.Context, sender sdk.AccAddress, amountIn math.Int, path []string, minOut math.Int) (math.Int, error) {
	out, err := k.swap(ctx, amountIn, path, minOut)
	if err != nil {
		return math.ZeroInt(), err
	}
	if err := k.bankKeeper.SendCoinsFromAccountToModule(ctx, sender, types.ModuleName, sdk.NewCoins(sdk.NewCoin(path[0], amountIn))); err != nil {
		return math.ZeroInt(), err
	}
	if err := k.bankKeeper.SendCoinsFromModuleToAccount(ctx, types.ModuleName, sender, sdk.NewCoins(sdk.NewCoin(path[len(path)-1], out))); err != nil {
		return math.ZeroInt(), err
	}
	return out, nil
}

// SwapForExactOut swaps at most maxIn of denomIn held by fromModule for exactly amountOut.
// Returns the input consumed.
func (k *Keeper) SwapForExactOut(ctx sdk.Context, fromModule, denomIn string, amountOut sdk.Coin, maxIn math.Int) (math.Int, error) {
	pool := k.GetPool(ctx, types.PoolIDFor(denomIn, amountOut.Denom))
	if pool == nil || denomIn == amountOut.Denom {
		return math.ZeroInt(), types.ErrPoolNotFound.Wrapf("%s -> %s", denomIn, amountOut.Denom)
	}
	rIn, rOut := pool.Reserves(denomIn)
	amountIn, ok := types.GetAmountIn(amountOut.Amount, rIn, rOut, pool.FeeBps)
	if !ok {
		return math.ZeroInt(), types.ErrInsufficientLiquidity.Wrapf("cannot buy %s", amountOut)
	}
	if amountIn.GT(maxIn) {
		return math.ZeroInt(), types.ErrSlippage.Wrapf("input %s > max %s", amountIn, maxIn)
	}
	if amountIn.IsZero() {
		return amountIn, nil
	}
	pool.SetReserves(denomIn, rIn.Add(amountIn), rOut.Sub(amountOut.Amount))
	k.SetPool(ctx, pool)

	if err := k.bankKeeper.SendCoinsFromModuleToModule(ctx, fromModule, types.ModuleName, sdk.NewCoins(sdk.NewCoin(denomIn, amountIn))); err != nil {
		return math.ZeroInt(), err
	}
	if err := k.bankKeeper.SendCoinsFromModuleToModule(ctx, types.ModuleName, fromModule, sdk.NewCoins(amountOut)); err != nil {
		return math.ZeroInt(), err
	}
	return amountIn, nil
}

// ReservesBacked reports whether the module's custody balance covers the recorded
// reserves, across all pools, of both denoms of poolID
func (k *Keeper) ReservesBacked(ctx sdk.Context, poolID string) bool {
	pool := k.GetPool(ctx, poolID)
	if pool == nil {
		return false
	}
	owed := map[string]math.Int{pool.DenomA: math.ZeroInt(), pool.DenomB: math.ZeroInt()}
	for _, p := range k.GetAllPools(ctx) {
		if r, ok := owed[p.DenomA]; ok {
			owed[p.DenomA] = r.Add(p.ReserveA)
		}
		if r, ok := owed[p.DenomB]; ok {
			owed[p.DenomB] = r.Add(p.ReserveB)
		}
	}
	moduleAddr := authtypes.NewModuleAddress(types.ModuleName)
	for denom, amount := range owed {
		if k.bankKeeper.GetBalance(ctx, moduleAddr, denom).Amount.LT(amount) {
			return false
		}
	}
	return true
}
