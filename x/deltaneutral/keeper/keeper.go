package keeper

import (
	"encoding/json"

	"cosmossdk.io/log"
	storetypes "cosmossdk.io/store/types"
	"github.com/cosmos/cosmos-sdk/codec"
	sdk "github.com/cosmos/cosmos-sdk/types"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"

	"github.com/openalpha/levfarm/x/deltaneutral/types"
)

// Store key prefixes
var (
	VaultKeyPrefix = []byte{0x01}
)

// Keeper coordinates the stable and asset legs of delta-neutral vaults
type Keeper struct {
	cdc          codec.BinaryCodec
	storeKey     storetypes.StoreKey
	bankKeeper   types.BankKeeper
	vaultKeeper  types.VaultKeeper
	workerKeeper types.WorkerKeeper
	ammKeeper    types.AmmKeeper
	logger       log.Logger
	authority    string
}

// NewKeeper creates a new delta-neutral keeper
func NewKeeper(
	cdc codec.BinaryCodec,
	storeKey storetypes.StoreKey,
	bankKeeper types.BankKeeper,
	vaultKeeper types.VaultKeeper,
	workerKeeper types.WorkerKeeper,
	ammKeeper types.AmmKeeper,
	authority string,
	logger log.Logger,
) *Keeper {
	return &Keeper{
		cdc:          cdc,
		storeKey:     storeKey,
		bankKeeper:   bankKeeper,
		vaultKeeper:  vaultKeeper,
		workerKeeper: workerKeeper,
		ammKeeper:    ammKeeper,
		authority:    authority,
		logger:       logger.With("module", "x/deltaneutral"),
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

// ModuleAddress is the account that owns both leg positions and holds idle coins
func (k *Keeper) ModuleAddress() sdk.AccAddress {
	return authtypes.NewModuleAddress(types.ModuleName)
}

// SetVault saves a delta-neutral vault
func (k *Keeper) SetVault(ctx sdk.Context, vault *types.DeltaNeutralVault) {
	store := k.GetStore(ctx)
	key := append(append([]byte{}, VaultKeyPrefix...), []byte(vault.DNID)...)
	bz, _ := json.Marshal(vault)
	store.Set(key, bz)
}

// GetVault retrieves a delta-neutral vault
func (k *Keeper) GetVault(ctx sdk.Context, dnID string) *types.DeltaNeutralVault {
	store := k.GetStore(ctx)
	key := append(append([]byte{}, VaultKeyPrefix...), []byte(dnID)...)
	bz := store.Get(key)
	if bz == nil {
		return nil
	}
	var vault types.DeltaNeutralVault
	if err := json.Unmarshal(bz, &vault); err != nil {
		return nil
	}
	return &vault
}

// GetAllVaults returns all delta-neutral vaults
func (k *Keeper) GetAllVaults(ctx sdk.Context) []*types.DeltaNeutralVault {
	iterator := storetypes.KVStorePrefixIterator(k.GetStore(ctx), VaultKeyPrefix)
	defer iterator.Close()

	var vaults []*types.DeltaNeutralVault
	for ; iterator.Valid(); iterator.Next() {
		var vault types.DeltaNeutralVault
		if err := json.Unmarshal(iterator.Value(), &vault); err != nil {
			continue
		}
		vaults = append(vaults, &vault)
	}
	return vaults
}

func (k *Keeper) mustGetVault(ctx sdk.Context, dnID string) (*types.DeltaNeutralVault, error) {
	vault := k.GetVault(ctx, dnID)
	if vault == nil {
		return nil, types.ErrVaultNotFound.Wrap(dnID)
	}
	return vault, nil
}
