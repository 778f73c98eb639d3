package keeper

import (
	"context"
	"encoding/json"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	storetypes "cosmossdk.io/store/types"
	"github.com/cosmos/cosmos-sdk/codec"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/levfarm/x/amm/types"
)

// Store key prefixes
var (
	PoolKeyPrefix  = []byte{0x01}
	LPKeyPrefix    = []byte{0x02}
	FarmKeyPrefix  = []byte{0x03}
	StakeKeyPrefix = []byte{0x04}
	PriceKeyPrefix = []byte{0x05}
	ParamsKey      = []byte{0x06}
)

// BankKeeper defines the expected interface for the bank module
type BankKeeper interface {
	SendCoinsFromAccountToModule(ctx context.Context, senderAddr sdk.AccAddress, recipientModule string, amt sdk.Coins) error
	SendCoinsFromModuleToAccount(ctx context.Context, senderModule string, recipientAddr sdk.AccAddress, amt sdk.Coins) error
	SendCoinsFromModuleToModule(ctx context.Context, senderModule, recipientModule string, amt sdk.Coins) error
	MintCoins(ctx context.Context, moduleName string, amt sdk.Coins) error
	GetBalance(ctx context.Context, addr sdk.AccAddress, denom string) sdk.Coin
}

// Keeper manages pools, farms and oracle prices
type Keeper struct {
	cdc          codec.BinaryCodec
	storeKey     storetypes.StoreKey
	bankKeeper   BankKeeper
	feeCollector string
	logger       log.Logger
	authority    string
}

// NewKeeper creates a new amm keeper. Farm performance fees are paid to feeCollector.
func NewKeeper(
	cdc codec.BinaryCodec,
	storeKey storetypes.StoreKey,
	bankKeeper BankKeeper,
	feeCollector string,
	authority string,
	logger log.Logger,
) *Keeper {
	return &Keeper{
		cdc:          cdc,
		storeKey:     storeKey,
		bankKeeper:   bankKeeper,
		feeCollector: feeCollector,
		authority:    authority,
		logger:       logger.With("module", "x/amm"),
	}
}

// Logger returns the module logger
func (k *Keeper) Logger() log.Logger {
	return k.logger
}

// GetAuthority returns the governance authority address
func (k *Keeper) GetAuthority() string {
	return k.authority
}

// GetStore returns the KVStore
func (k *Keeper) GetStore(ctx sdk.Context) storetypes.KVStore {
	return ctx.KVStore(k.storeKey)
}

// ============ Pool Operations ============

// SetPool saves a pool to the store
func (k *Keeper) SetPool(ctx sdk.Context, pool *types.Pool) {
	store := k.GetStore(ctx)
	key := append(PoolKeyPrefix, []byte(pool.PoolID)...)
	bz, _ := json.Marshal(pool)
	store.Set(key, bz)
}

// GetPool retrieves a pool from the store
func (k *Keeper) GetPool(ctx sdk.Context, poolID string) *types.Pool {
	store := k.GetStore(ctx)
	key := append(PoolKeyPrefix, []byte(poolID)...)
	bz := store.Get(key)
	if bz == nil {
		return nil
	}
	var pool types.Pool
	if err := json.Unmarshal(bz, &pool); err != nil {
		return nil
	}
	return &pool
}

// GetAllPools returns all pools
func (k *Keeper) GetAllPools(ctx sdk.Context) []*types.Pool {
	store := k.GetStore(ctx)
	iterator := storetypes.KVStorePrefixIterator(store, PoolKeyPrefix)
	defer iterator.Close()

	var pools []*types.Pool
	for ; iterator.Valid(); iterator.Next() {
		var pool types.Pool
		if err := json.Unmarshal(iterator.Value(), &pool); err != nil {
			continue
		}
		pools = append(pools, &pool)
	}
	return pools
}

// ============ LP Ledger ============

func lpKey(poolID, holder string) []byte {
	return append(LPKeyPrefix, []byte(poolID+"|"+holder)...)
}

// GetLPBalance returns the unstaked LP held by holder
func (k *Keeper) GetLPBalance(ctx sdk.Context, poolID, holder string) math.Int {
	bz := k.GetStore(ctx).Get(lpKey(poolID, holder))
	if bz == nil {
		return math.ZeroInt()
	}
	var amt math.Int
	if err := json.Unmarshal(bz, &amt); err != nil {
		return math.ZeroInt()
	}
	return amt
}

func (k *Keeper) setLPBalance(ctx sdk.Context, poolID, holder string, amt math.Int) {
	store := k.GetStore(ctx)
	if amt.IsZero() {
		store.Delete(lpKey(poolID, holder))
		return
	}
	bz, _ := json.Marshal(amt)
	store.Set(lpKey(poolID, holder), bz)
}

// TransferLP moves unstaked LP between holders
func (k *Keeper) TransferLP(ctx sdk.Context, poolID, from, to string, amt math.Int) error {
	bal := k.GetLPBalance(ctx, poolID, from)
	if bal.LT(amt) {
		return types.ErrInsufficientLP.Wrapf("%s has %s, need %s", from, bal, amt)
	}
	k.setLPBalance(ctx, poolID, from, bal.Sub(amt))
	k.setLPBalance(ctx, poolID, to, k.GetLPBalance(ctx, poolID, to).Add(amt))
	return nil
}

// ============ Params ============

// SetParams saves the module params
func (k *Keeper) SetParams(ctx sdk.Context, params types.Params) {
	bz, _ := json.Marshal(params)
	k.GetStore(ctx).Set(ParamsKey, bz)
}

// GetParams returns the module params
func (k *Keeper) GetParams(ctx sdk.Context) types.Params {
	bz := k.GetStore(ctx).Get(ParamsKey)
	var params types.Params
	if bz == nil {
		return params
	}
	_ = json.Unmarshal(bz, &params)
	return params
}
