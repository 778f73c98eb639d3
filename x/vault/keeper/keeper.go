package keeper

import (
	"encoding/binary"
	"encoding/json"

	"cosmossdk.io/log"
	storetypes "cosmossdk.io/store/types"
	"github.com/cosmos/cosmos-sdk/codec"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/levfarm/x/vault/types"
	workertypes "github.com/openalpha/levfarm/x/worker/types"
)

// Store key prefixes
var (
	VaultKeyPrefix      = []byte{0x01}
	PositionKeyPrefix   = []byte{0x02}
	KillRecordKeyPrefix = []byte{0x03}
)

// Keeper manages lending vaults, their positions and liquidations
type Keeper struct {
	cdc          codec.BinaryCodec
	storeKey     storetypes.StoreKey
	bankKeeper   types.BankKeeper
	workerKeeper types.WorkerKeeper
	guard        *workertypes.CallGuard
	logger       log.Logger
	authority    string
}

// NewKeeper creates a new vault keeper
func NewKeeper(
	cdc codec.BinaryCodec,
	storeKey storetypes.StoreKey,
	bankKeeper types.BankKeeper,
	workerKeeper types.WorkerKeeper,
	authority string,
	logger log.Logger,
) *Keeper {
	return &Keeper{
		cdc:          cdc,
		storeKey:     storeKey,
		bankKeeper:   bankKeeper,
		workerKeeper: workerKeeper,
		guard:        workertypes.NewCallGuard(types.ErrReentrantCall),
		authority:    authority,
		logger:       logger.With("module", "x/vault"),
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

// ============ Vault Operations ============

// SetVault saves a vault to the store
func (k *Keeper) SetVault(ctx sdk.Context, vault *types.Vault) {
	store := k.GetStore(ctx)
	key := append(VaultKeyPrefix, []byte(vault.VaultID)...)
	bz, _ := json.Marshal(vault)
	store.Set(key, bz)
}

// GetVault retrieves a vault from the store
func (k *Keeper) GetVault(ctx sdk.Context, vaultID string) *types.Vault {
	store := k.GetStore(ctx)
	key := append(VaultKeyPrefix, []byte(vaultID)...)
	bz := store.Get(key)
	if bz == nil {
		return nil
	}
	var vault types.Vault
	if err := json.Unmarshal(bz, &vault); err != nil {
		return nil
	}
	return &vault
}

// GetAllVaults returns all vaults
func (k *Keeper) GetAllVaults(ctx sdk.Context) []*types.Vault {
	store := k.GetStore(ctx)
	iterator := storetypes.KVStorePrefixIterator(store, VaultKeyPrefix)
	defer iterator.Close()

	var vaults []*types.Vault
	for ; iterator.Valid(); iterator.Next() {
		var vault types.Vault
		if err := json.Unmarshal(iterator.Value(), &vault); err != nil {
			continue
		}
		vaults = append(vaults, &vault)
	}
	return vaults
}

func (k *Keeper) mustGetVault(ctx sdk.Context, vaultID string) (*types.Vault, error) {
	vault := k.GetVault(ctx, vaultID)
	if vault == nil {
		return nil, types.ErrVaultNotFound.Wrap(vaultID)
	}
	return vault, nil
}

// ============ Position Storage ============

func positionPrefix(vaultID string) []byte {
	return append(append([]byte{}, PositionKeyPrefix...), []byte(vaultID+"/")...)
}

func positionKey(vaultID string, id uint64) []byte {
	return binary.BigEndian.AppendUint64(positionPrefix(vaultID), id)
}

// SetPosition saves a position to the store
func (k *Keeper) SetPosition(ctx sdk.Context, pos *types.Position) {
	bz, _ := json.Marshal(pos)
	k.GetStore(ctx).Set(positionKey(pos.VaultID, pos.ID), bz)
}

// GetPosition retrieves a position from the store
func (k *Keeper) GetPosition(ctx sdk.Context, vaultID string, id uint64) *types.Position {
	bz := k.GetStore(ctx).Get(positionKey(vaultID, id))
	if bz == nil {
		return nil
	}
	var pos types.Position
	if err := json.Unmarshal(bz, &pos); err != nil {
		return nil
	}
	return &pos
}

// GetAllPositions returns every position of a vault in id order
func (k *Keeper) GetAllPositions(ctx sdk.Context, vaultID string) []*types.Position {
	iterator := storetypes.KVStorePrefixIterator(k.GetStore(ctx), positionPrefix(vaultID))
	defer iterator.Close()

	var positions []*types.Position
	for ; iterator.Valid(); iterator.Next() {
		var pos types.Position
		if err := json.Unmarshal(iterator.Value(), &pos); err != nil {
			continue
		}
		positions = append(positions, &pos)
	}
	return positions
}

// GetPositionsByOwner returns the positions of owner in a vault
func (k *Keeper) GetPositionsByOwner(ctx sdk.Context, vaultID, owner string) []*types.Position {
	var out []*types.Position
	for _, pos := range k.GetAllPositions(ctx, vaultID) {
		if pos.Owner == owner {
			out = append(out, pos)
		}
	}
	return out
}

// ============ Kill Records ============

func killRecordKey(vaultID string, id uint64) []byte {
	prefix := append(append([]byte{}, KillRecordKeyPrefix...), []byte(vaultID+"/")...)
	return binary.BigEndian.AppendUint64(prefix, id)
}

func (k *Keeper) setKillRecord(ctx sdk.Context, record *types.KillRecord) {
	bz, _ := json.Marshal(record)
	k.GetStore(ctx).Set(killRecordKey(record.VaultID, record.ID), bz)
}

// GetKillRecord retrieves a kill record
func (k *Keeper) GetKillRecord(ctx sdk.Context, vaultID string, id uint64) *types.KillRecord {
	bz := k.GetStore(ctx).Get(killRecordKey(vaultID, id))
	if bz == nil {
		return nil
	}
	var record types.KillRecord
	if err := json.Unmarshal(bz, &record); err != nil {
		return nil
	}
	return &record
}

// GetKillRecords returns every kill record of a vault in id order
func (k *Keeper) GetKillRecords(ctx sdk.Context, vaultID string) []*types.KillRecord {
	prefix := append(append([]byte{}, KillRecordKeyPrefix...), []byte(vaultID+"/")...)
	iterator := storetypes.KVStorePrefixIterator(k.GetStore(ctx), prefix)
	defer iterator.Close()

	var records []*types.KillRecord
	for ; iterator.Valid(); iterator.Next() {
		var record types.KillRecord
		if err := json.Unmarshal(iterator.Value(), &record); err != nil {
			continue
		}
		records = append(records, &record)
	}
	return records
}
