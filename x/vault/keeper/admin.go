package keeper

import (
	"strings"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/levfarm/x/vault/types"
)

// CreateVault opens a lending vault for denom
func (k *Keeper) CreateVault(ctx sdk.Context, authority, vaultID, denom string, config types.VaultConfig) (*types.Vault, error) {
	if authority != k.authority {
		return nil, types.ErrNotAuthorized.Wrapf("expected %s, got %s", k.authority, authority)
	}
	if vaultID == "" || strings.ContainsAny(vaultID, ":/") {
		return nil, types.ErrInvalidConfig.Wrapf("invalid vault id %q", vaultID)
	}
	if err := sdk.ValidateDenom(denom); err != nil {
		return nil, types.ErrInvalidConfig.Wrap(err.Error())
	}
	if k.GetVault(ctx, vaultID) != nil {
		return nil, types.ErrVaultExists.Wrap(vaultID)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	vault := types.NewVault(vaultID, denom, config, ctx.BlockTime().Unix())
	k.SetVault(ctx, vault)

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			"vault_created",
			sdk.NewAttribute("vault_id", vaultID),
			sdk.NewAttribute("denom", denom),
			sdk.NewAttribute("share_denom", types.ShareDenom(vaultID)),
		),
	)
	k.logger.Info("Vault created", "vault_id", vaultID, "denom", denom)
	return vault, nil
}

// UpdateVaultConfig replaces a vault's config after accruing under the old one
func (k *Keeper) UpdateVaultConfig(ctx sdk.Context, authority, vaultID string, config types.VaultConfig) (*types.Vault, error) {
	if authority != k.authority {
		return nil, types.ErrNotAuthorized.Wrapf("expected %s, got %s", k.authority, authority)
	}
	vault, err := k.mustGetVault(ctx, vaultID)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	k.accrue(ctx, vault)
	vault.Config = config
	k.SetVault(ctx, vault)

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			"vault_config_updated",
			sdk.NewAttribute("vault_id", vaultID),
		),
	)
	k.logger.Info("Vault config updated", "vault_id", vaultID, "workers", len(config.Workers))
	return vault, nil
}

// WithdrawReserve pays up to amount of the reserve to recipient, bounded by the cash held
func (k *Keeper) WithdrawReserve(ctx sdk.Context, authority, vaultID string, recipient sdk.AccAddress, amount math.Int) (math.Int, error) {
	if authority != k.authority {
		return math.ZeroInt(), types.ErrNotAuthorized.Wrapf("expected %s, got %s", k.authority, authority)
	}
	if !amount.IsPositive() {
		return math.ZeroInt(), types.ErrInvalidAmount.Wrap("amount must be positive")
	}
	vault, err := k.mustGetVault(ctx, vaultID)
	if err != nil {
		return math.ZeroInt(), err
	}
	k.accrue(ctx, vault)

	if amount.GT(vault.ReserveValue) {
		return math.ZeroInt(), types.ErrInsufficientBalance.Wrapf("reserve is %s", vault.ReserveValue)
	}
	if amount.GT(vault.TotalPooledAsset) {
		return math.ZeroInt(), types.ErrInsufficientLiquidity.Wrapf("pooled asset is %s", vault.TotalPooledAsset)
	}
	if err := k.payOut(ctx, vault.Denom, recipient, amount); err != nil {
		return math.ZeroInt(), err
	}
	vault.ReserveValue = vault.ReserveValue.Sub(amount)
	vault.TotalPooledAsset = vault.TotalPooledAsset.Sub(amount)
	k.SetVault(ctx, vault)

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			"vault_reserve_withdrawn",
			sdk.NewAttribute("vault_id", vaultID),
			sdk.NewAttribute("recipient", recipient.String()),
			sdk.NewAttribute("amount", amount.String()),
		),
	)
	k.logger.Info("Reserve withdrawn", "vault_id", vaultID, "recipient", recipient.String(), "amount", amount.String())
	return amount, nil
}
