package keeper

import (
	"encoding/json"

	"cosmossdk.io/math"
	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/levfarm/metrics"
	"github.com/openalpha/levfarm/x/amm/types"
)

// SetPrice records a feeder-submitted price at the current block time
func (k *Keeper) SetPrice(ctx sdk.Context, feeder, denom string, price math.LegacyDec) error {
	if !k.isFeeder(ctx, feeder) {
		return types.ErrUnauthorized.Wrapf("%s is not a price feeder", feeder)
	}
	if !price.IsPositive() {
		return types.ErrInvalidAmount.Wrap("price must be positive")
	}
	record := &types.PriceRecord{
		Denom:     denom,
		Price:     price,
		UpdatedAt: ctx.BlockTime().Unix(),
		Feeder:    feeder,
	}
	bz, _ := json.Marshal(record)
	k.GetStore(ctx).Set(append(PriceKeyPrefix, []byte(denom)...), bz)

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			"amm_price",
			sdk.NewAttribute("denom", denom),
			sdk.NewAttribute("price", price.String()),
		),
	)
	metrics.GetCollector().RecordOraclePrice(denom, metrics.DecValue(price))
	return nil
}

func (k *Keeper) isFeeder(ctx sdk.Context, feeder string) bool {
	if feeder == k.authority {
		return true
	}
	for _, f := range k.GetParams(ctx).Feeders {
		if f == feeder {
			return true
		}
	}
	return false
}

// GetPriceRecord returns the stored price record for denom
func (k *Keeper) GetPriceRecord(ctx sdk.Context, denom string) *types.PriceRecord {
	bz := k.GetStore(ctx).Get(append(PriceKeyPrefix, []byte(denom)...))
	if bz == nil {
		return nil
	}
	var record types.PriceRecord
	if err := json.Unmarshal(bz, &record); err != nil {
		return nil
	}
	return &record
}

// GetAllPrices returns every price record
func (k *Keeper) GetAllPrices(ctx sdk.Context) []*types.PriceRecord {
	iterator := storetypes.KVStorePrefixIterator(k.GetStore(ctx), PriceKeyPrefix)
	defer iterator.Close()

	var records []*types.PriceRecord
	for ; iterator.Valid(); iterator.Next() {
		var record types.PriceRecord
		if err := json.Unmarshal(iterator.Value(), &record); err != nil {
			continue
		}
		records = append(records, &record)
	}
	return records
}

// GetTokenPrice returns the USD price of one base unit of denom and when it was last updated
func (k *Keeper) GetTokenPrice(ctx sdk.Context, denom string) (math.LegacyDec, int64, error) {
	record := k.GetPriceRecord(ctx, denom)
	if record == nil {
		return math.LegacyZeroDec(), 0, types.ErrPriceNotFound.Wrap(denom)
	}
	return record.Price, record.UpdatedAt, nil
}

// LpToDollar values lp of a pool at oracle prices. The timestamp is the older of the two prices.
func (k *Keeper) LpToDollar(ctx sdk.Context, poolID string, lp math.Int) (math.LegacyDec, int64, error) {
	pool := k.GetPool(ctx, poolID)
	if pool == nil {
		return math.LegacyZeroDec(), 0, types.ErrPoolNotFound.Wrap(poolID)
	}
	priceA, tsA, err := k.GetTokenPrice(ctx, pool.DenomA)
	if err != nil {
		return math.LegacyZeroDec(), 0, err
	}
	priceB, tsB, err := k.GetTokenPrice(ctx, pool.DenomB)
	if err != nil {
		return math.LegacyZeroDec(), 0, err
	}
	updatedAt := tsA
	if tsB < updatedAt {
		updatedAt = tsB
	}
	if pool.TotalLP.IsZero() || lp.IsZero() {
		return math.LegacyZeroDec(), updatedAt, nil
	}
	amountA, amountB := pool.ShareOf(lp)
	value := priceA.MulInt(amountA).Add(priceB.MulInt(amountB))
	return value, updatedAt, nil
}
