// Package membank is a KV-store backed bank used by the sandbox and keeper tests.
// Balances live in the context's multistore, so cache-context rollbacks cover them.
package membank

import (
	"context"
	"encoding/json"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/math"
	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	sdkerrors "github.com/cosmos/cosmos-sdk/types/errors"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"
)

// StoreKey is the store the bank writes balances to
const StoreKey = "membank"

var (
	BalanceKeyPrefix = []byte{0x01}
	SupplyKeyPrefix  = []byte{0x02}
)

// Keeper implements the bank subset the levfarm keepers depend on
type Keeper struct {
	storeKey storetypes.StoreKey
}

// NewKeeper creates a bank over storeKey
func NewKeeper(storeKey storetypes.StoreKey) *Keeper {
	return &Keeper{storeKey: storeKey}
}

func balanceKey(addr sdk.AccAddress, denom string) []byte {
	key := append([]byte{}, BalanceKeyPrefix...)
	key = append(key, address(addr)...)
	return append(key, []byte(denom)...)
}

// address length-prefixes addr so one address can't prefix another
func address(addr sdk.AccAddress) []byte {
	return append([]byte{byte(len(addr))}, addr...)
}

func (k *Keeper) store(ctx context.Context) storetypes.KVStore {
	return sdk.UnwrapSDKContext(ctx).KVStore(k.storeKey)
}

func (k *Keeper) getAmount(ctx context.Context, key []byte) math.Int {
	bz := k.store(ctx).Get(key)
	if bz == nil {
		return math.ZeroInt()
	}
	var amt math.Int
	if err := json.Unmarshal(bz, &amt); err != nil {
		return math.ZeroInt()
	}
	return amt
}

func (k *Keeper) setAmount(ctx context.Context, key []byte, amt math.Int) {
	if amt.IsZero() {
		k.store(ctx).Delete(key)
		return
	}
	bz, _ := json.Marshal(amt)
	k.store(ctx).Set(key, bz)
}

// GetBalance returns addr's balance of denom
func (k *Keeper) GetBalance(ctx context.Context, addr sdk.AccAddress, denom string) sdk.Coin {
	return sdk.NewCoin(denom, k.getAmount(ctx, balanceKey(addr, denom)))
}

// GetAllBalances returns every non-zero balance of addr
func (k *Keeper) GetAllBalances(ctx context.Context, addr sdk.AccAddress) sdk.Coins {
	prefix := append(append([]byte{}, BalanceKeyPrefix...), address(addr)...)
	iterator := storetypes.KVStorePrefixIterator(k.store(ctx), prefix)
	defer iterator.Close()

	coins := sdk.NewCoins()
	for ; iterator.Valid(); iterator.Next() {
		var amt math.Int
		if err := json.Unmarshal(iterator.Value(), &amt); err != nil {
			continue
		}
		denom := string(iterator.Key()[len(prefix):])
		coins = coins.Add(sdk.NewCoin(denom, amt))
	}
	return coins
}

// GetModuleBalance returns a module account's balance of denom
func (k *Keeper) GetModuleBalance(ctx context.Context, module, denom string) sdk.Coin {
	return k.GetBalance(ctx, authtypes.NewModuleAddress(module), denom)
}

// GetSupply returns the minted supply of denom
func (k *Keeper) GetSupply(ctx context.Context, denom string) sdk.Coin {
	return sdk.NewCoin(denom, k.getAmount(ctx, append(append([]byte{}, SupplyKeyPrefix...), []byte(denom)...)))
}

// SendCoins moves amt from one address to another
func (k *Keeper) SendCoins(ctx context.Context, from, to sdk.AccAddress, amt sdk.Coins) error {
	if !amt.IsValid() {
		return errorsmod.Wrap(sdkerrors.ErrInvalidCoins, amt.String())
	}
	for _, coin := range amt {
		bal := k.getAmount(ctx, balanceKey(from, coin.Denom))
		if bal.LT(coin.Amount) {
			return errorsmod.Wrapf(sdkerrors.ErrInsufficientFunds, "%s%s is smaller than %s", bal, coin.Denom, coin)
		}
	}
	for _, coin := range amt {
		fromKey, toKey := balanceKey(from, coin.Denom), balanceKey(to, coin.Denom)
		k.setAmount(ctx, fromKey, k.getAmount(ctx, fromKey).Sub(coin.Amount))
		k.setAmount(ctx, toKey, k.getAmount(ctx, toKey).Add(coin.Amount))
	}
	return nil
}

// SendCoinsFromAccountToModule implements the expected bank keeper
func (k *Keeper) SendCoinsFromAccountToModule(ctx context.Context, senderAddr sdk.AccAddress, recipientModule string, amt sdk.Coins) error {
	return k.SendCoins(ctx, senderAddr, authtypes.NewModuleAddress(recipientModule), amt)
}

// SendCoinsFromModuleToAccount implements the expected bank keeper
func (k *Keeper) SendCoinsFromModuleToAccount(ctx context.Context, senderModule string, recipientAddr sdk.AccAddress, amt sdk.Coins) error {
	return k.SendCoins(ctx, authtypes.NewModuleAddress(senderModule), recipientAddr, amt)
}

// SendCoinsFromModuleToModule implements the expected bank keeper
func (k *Keeper) SendCoinsFromModuleToModule(ctx context.Context, senderModule, recipientModule string, amt sdk.Coins) error {
	return k.SendCoins(ctx, authtypes.NewModuleAddress(senderModule), authtypes.NewModuleAddress(recipientModule), amt)
}

// MintCoins credits a module account with new supply
func (k *Keeper) MintCoins(ctx context.Context, moduleName string, amt sdk.Coins) error {
	if !amt.IsValid() {
		return errorsmod.Wrap(sdkerrors.ErrInvalidCoins, amt.String())
	}
	return k.mint(ctx, authtypes.NewModuleAddress(moduleName), amt)
}

// FundAccount mints amt straight into addr
func (k *Keeper) FundAccount(ctx context.Context, addr sdk.AccAddress, amt sdk.Coins) error {
	return k.mint(ctx, addr, amt)
}

func (k *Keeper) mint(ctx context.Context, addr sdk.AccAddress, amt sdk.Coins) error {
	for _, coin := range amt {
		key := balanceKey(addr, coin.Denom)
		k.setAmount(ctx, key, k.getAmount(ctx, key).Add(coin.Amount))
		supplyKey := append(append([]byte{}, SupplyKeyPrefix...), []byte(coin.Denom)...)
		k.setAmount(ctx, supplyKey, k.getAmount(ctx, supplyKey).Add(coin.Amount))
	}
	return nil
}

// BurnCoins removes amt from a module account and from supply
func (k *Keeper) BurnCoins(ctx context.Context, moduleName string, amt sdk.Coins) error {
	if !amt.IsValid() {
		return errorsmod.Wrap(sdkerrors.ErrInvalidCoins, amt.String())
	}
	addr := authtypes.NewModuleAddress(moduleName)
	for _, coin := range amt {
		if bal := k.getAmount(ctx, balanceKey(addr, coin.Denom)); bal.LT(coin.Amount) {
			return errorsmod.Wrapf(sdkerrors.ErrInsufficientFunds, "%s%s is smaller than %s", bal, coin.Denom, coin)
		}
	}
	for _, coin := range amt {
		key := balanceKey(addr, coin.Denom)
		k.setAmount(ctx, key, k.getAmount(ctx, key).Sub(coin.Amount))
		supplyKey := append(append([]byte{}, SupplyKeyPrefix...), []byte(coin.Denom)...)
		k.setAmount(ctx, supplyKey, k.getAmount(ctx, supplyKey).Sub(coin.Amount))
	}
	return nil
}
