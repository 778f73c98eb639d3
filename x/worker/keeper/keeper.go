package keeper

import (
	"encoding/json"
	"strconv"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	storetypes "cosmossdk.io/store/types"
	"github.com/cosmos/cosmos-sdk/codec"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/levfarm/x/worker/types"
)

// Store key prefixes
var (
	WorkerKeyPrefix = []byte{0x01}
	ShareKeyPrefix  = []byte{0x02}
)

// Keeper manages workers, their share ledgers and strategy execution
type Keeper struct {
	cdc          codec.BinaryCodec
	storeKey     storetypes.StoreKey
	bankKeeper   types.BankKeeper
	ammKeeper    types.AmmKeeper
	oracleKeeper types.OracleKeeper
	vaultKeeper  types.VaultKeeper
	strategies   map[string]Strategy
	guard        *types.CallGuard
	logger       log.Logger
	authority    string
}

// NewKeeper creates a new worker keeper with the built-in strategies registered
func NewKeeper(
	cdc codec.BinaryCodec,
	storeKey storetypes.StoreKey,
	bankKeeper types.BankKeeper,
	ammKeeper types.AmmKeeper,
	oracleKeeper types.OracleKeeper,
	authority string,
	logger log.Logger,
) *Keeper {
	k := &Keeper{
		cdc:          cdc,
		storeKey:     storeKey,
		bankKeeper:   bankKeeper,
		ammKeeper:    ammKeeper,
		oracleKeeper: oracleKeeper,
		strategies:   make(map[string]Strategy),
		guard:        types.NewCallGuard(types.ErrReentrantCall),
		authority:    authority,
		logger:       logger.With("module", "x/worker"),
	}
	k.RegisterStrategy(types.StrategyAddBaseTokenOnly, AddBaseTokenOnly{})
	k.RegisterStrategy(types.StrategyAddTwoSidesOptimal, AddTwoSidesOptimal{})
	k.RegisterStrategy(types.StrategyLiquidate, Liquidate{})
	k.RegisterStrategy(types.StrategyPartialCloseLiquidate, PartialCloseLiquidate{})
	k.RegisterStrategy(types.StrategyPartialCloseMinimizeTrading, PartialCloseMinimizeTrading{})
	return k
}

// SetVaultKeeper wires the vault keeper used for beneficial-vault buybacks
func (k *Keeper) SetVaultKeeper(vk types.VaultKeeper) {
	k.vaultKeeper = vk
}

// RegisterStrategy adds or replaces a strategy implementation
func (k *Keeper) RegisterStrategy(id string, s Strategy) {
	k.strategies[id] = s
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

// ============ Worker Operations ============

// SetWorker saves a worker to the store
func (k *Keeper) SetWorker(ctx sdk.Context, worker *types.Worker) {
	store := k.GetStore(ctx)
	key := append(WorkerKeyPrefix, []byte(worker.WorkerID)...)
	bz, _ := json.Marshal(worker)
	store.Set(key, bz)
}

// GetWorker retrieves a worker from the store
func (k *Keeper) GetWorker(ctx sdk.Context, workerID string) *types.Worker {
	store := k.GetStore(ctx)
	key := append(WorkerKeyPrefix, []byte(workerID)...)
	bz := store.Get(key)
	if bz == nil {
		return nil
	}
	var worker types.Worker
	if err := json.Unmarshal(bz, &worker); err != nil {
		return nil
	}
	return &worker
}

// GetAllWorkers returns all workers
func (k *Keeper) GetAllWorkers(ctx sdk.Context) []*types.Worker {
	store := k.GetStore(ctx)
	iterator := storetypes.KVStorePrefixIterator(store, WorkerKeyPrefix)
	defer iterator.Close()

	var workers []*types.Worker
	for ; iterator.Valid(); iterator.Next() {
		var worker types.Worker
		if err := json.Unmarshal(iterator.Value(), &worker); err != nil {
			continue
		}
		workers = append(workers, &worker)
	}
	return workers
}

func (k *Keeper) mustGetWorker(ctx sdk.Context, workerID string) (*types.Worker, error) {
	worker := k.GetWorker(ctx, workerID)
	if worker == nil {
		return nil, types.ErrWorkerNotFound.Wrap(workerID)
	}
	return worker, nil
}

// ============ Share Storage ============

func shareKey(workerID string, positionID uint64) []byte {
	return append(ShareKeyPrefix, []byte(workerID+":"+strconv.FormatUint(positionID, 10))...)
}

// GetShare returns the worker share of a position
func (k *Keeper) GetShare(ctx sdk.Context, workerID string, positionID uint64) math.Int {
	bz := k.GetStore(ctx).Get(shareKey(workerID, positionID))
	if bz == nil {
		return math.ZeroInt()
	}
	var share math.Int
	if err := json.Unmarshal(bz, &share); err != nil {
		return math.ZeroInt()
	}
	return share
}

func (k *Keeper) setShare(ctx sdk.Context, workerID string, positionID uint64, share math.Int) {
	store := k.GetStore(ctx)
	if share.IsZero() {
		store.Delete(shareKey(workerID, positionID))
		return
	}
	bz, _ := json.Marshal(share)
	store.Set(shareKey(workerID, positionID), bz)
}

// GetAllShares returns every non-zero position share of a worker
func (k *Keeper) GetAllShares(ctx sdk.Context, workerID string) map[uint64]math.Int {
	prefix := append(ShareKeyPrefix, []byte(workerID+":")...)
	iterator := storetypes.KVStorePrefixIterator(k.GetStore(ctx), prefix)
	defer iterator.Close()

	shares := make(map[uint64]math.Int)
	for ; iterator.Valid(); iterator.Next() {
		id, err := strconv.ParseUint(string(iterator.Key()[len(prefix):]), 10, 64)
		if err != nil {
			continue
		}
		var share math.Int
		if err := json.Unmarshal(iterator.Value(), &share); err != nil {
			continue
		}
		shares[id] = share
	}
	return shares
}
