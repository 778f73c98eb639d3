package keeper

import (
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/levfarm/metrics"
	"github.com/openalpha/levfarm/x/vault/types"
)

// PendingInterest returns the interest a vault would accrue at the current block time
func (k *Keeper) PendingInterest(ctx sdk.Context, vault *types.Vault) math.Int {
	elapsed := ctx.BlockTime().Unix() - vault.LastAccrualTime
	if elapsed <= 0 || vault.TotalDebtValue.IsZero() {
		return math.ZeroInt()
	}
	rate := vault.Config.InterestModel.RatePerSecond(vault.Utilization())
	return math.LegacyNewDecFromInt(vault.TotalDebtValue).Mul(rate).MulInt64(elapsed).TruncateInt()
}

// accrue adds pending interest to the vault's debt and reserve. Idempotent within a block.
func (k *Keeper) accrue(ctx sdk.Context, vault *types.Vault) {
	now := ctx.BlockTime().Unix()
	if now <= vault.LastAccrualTime {
		return
	}
	interest := k.PendingInterest(ctx, vault)
	if interest.IsPositive() {
		reserve := interest.MulRaw(int64(vault.Config.ReservePoolBps)).QuoRaw(types.BpsDenominator)
		vault.ReserveValue = vault.ReserveValue.Add(reserve)
		vault.TotalDebtValue = vault.TotalDebtValue.Add(interest)
	}
	vault.LastAccrualTime = now
}

// AccrueInterest accrues a vault and persists it
func (k *Keeper) AccrueInterest(ctx sdk.Context, vaultID string) error {
	vault, err := k.mustGetVault(ctx, vaultID)
	if err != nil {
		return err
	}
	k.accrue(ctx, vault)
	k.SetVault(ctx, vault)
	return nil
}

// Deposit pulls amount from depositor and mints interest-bearing shares
func (k *Keeper) Deposit(ctx sdk.Context, depositor sdk.AccAddress, vaultID string, amount math.Int) (math.Int, error) {
	if !amount.IsPositive() {
		return math.ZeroInt(), types.ErrInvalidAmount.Wrap("deposit must be positive")
	}
	vault, err := k.mustGetVault(ctx, vaultID)
	if err != nil {
		return math.ZeroInt(), err
	}
	k.accrue(ctx, vault)

	// shares left after a total loss would dilute a new depositor
	total := vault.TotalToken()
	if vault.TotalShareSupply.IsPositive() && total.IsZero() {
		return math.ZeroInt(), types.ErrVaultInsolvent.Wrapf("%s shares outstanding", vault.TotalShareSupply)
	}
	shares := amount
	if vault.TotalShareSupply.IsPositive() {
		shares = amount.Mul(vault.TotalShareSupply).Quo(total)
	}
	if !shares.IsPositive() {
		return math.ZeroInt(), types.ErrInvalidAmount.Wrap("deposit too small to mint shares")
	}

	if err := k.bankKeeper.SendCoinsFromAccountToModule(ctx, depositor, types.ModuleName, sdk.NewCoins(sdk.NewCoin(vault.Denom, amount))); err != nil {
		return math.ZeroInt(), types.ErrInsufficientBalance.Wrap(err.Error())
	}
	shareCoins := sdk.NewCoins(sdk.NewCoin(types.ShareDenom(vaultID), shares))
	if err := k.bankKeeper.MintCoins(ctx, types.ModuleName, shareCoins); err != nil {
		return math.ZeroInt(), err
	}
	if err := k.bankKeeper.SendCoinsFromModuleToAccount(ctx, types.ModuleName, depositor, shareCoins); err != nil {
		return math.ZeroInt(), err
	}

	vault.TotalPooledAsset = vault.TotalPooledAsset.Add(amount)
	vault.TotalShareSupply = vault.TotalShareSupply.Add(shares)
	k.SetVault(ctx, vault)

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			"vault_deposit",
			sdk.NewAttribute("vault_id", vaultID),
			sdk.NewAttribute("depositor", depositor.String()),
			sdk.NewAttribute("amount", amount.String()),
			sdk.NewAttribute("shares", shares.String()),
		),
	)
	metrics.GetCollector().RecordVaultFlow(vaultID, "deposit")

	k.logger.Info("Vault deposit",
		"vault_id", vaultID,
		"depositor", depositor.String(),
		"amount", amount.String(),
		"shares", shares.String(),
	)
	return shares, nil
}

// Withdraw burns shares and pays out their claim on total token
func (k *Keeper) Withdraw(ctx sdk.Context, withdrawer sdk.AccAddress, vaultID string, shares math.Int) (math.Int, error) {
	if !shares.IsPositive() {
		return math.ZeroInt(), types.ErrInvalidAmount.Wrap("shares must be positive")
	}
	vault, err := k.mustGetVault(ctx, vaultID)
	if err != nil {
		return math.ZeroInt(), err
	}
	k.accrue(ctx, vault)

	if shares.GT(vault.TotalShareSupply) {
		return math.ZeroInt(), types.ErrInsufficientBalance.Wrapf("shares %s exceed supply %s", shares, vault.TotalShareSupply)
	}
	amount := shares.Mul(vault.TotalToken()).Quo(vault.TotalShareSupply)
	if amount.GT(vault.Available()) {
		return math.ZeroInt(), types.ErrInsufficientLiquidity.Wrapf("need %s, available %s", amount, vault.Available())
	}

	shareCoins := sdk.NewCoins(sdk.NewCoin(types.ShareDenom(vaultID), shares))
	if err := k.bankKeeper.SendCoinsFromAccountToModule(ctx, withdrawer, types.ModuleName, shareCoins); err != nil {
		return math.ZeroInt(), types.ErrInsufficientBalance.Wrap(err.Error())
	}
	if err := k.bankKeeper.BurnCoins(ctx, types.ModuleName, shareCoins); err != nil {
		return math.ZeroInt(), err
	}
	if amount.IsPositive() {
		if err := k.bankKeeper.SendCoinsFromModuleToAccount(ctx, types.ModuleName, withdrawer, sdk.NewCoins(sdk.NewCoin(vault.Denom, amount))); err != nil {
			return math.ZeroInt(), err
		}
	}

	vault.TotalPooledAsset = vault.TotalPooledAsset.Sub(amount)
	vault.TotalShareSupply = vault.TotalShareSupply.Sub(shares)
	k.SetVault(ctx, vault)

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			"vault_withdraw",
			sdk.NewAttribute("vault_id", vaultID),
			sdk.NewAttribute("withdrawer", withdrawer.String()),
			sdk.NewAttribute("shares", shares.String()),
			sdk.NewAttribute("amount", amount.String()),
		),
	)
	metrics.GetCollector().RecordVaultFlow(vaultID, "withdraw")

	k.logger.Info("Vault withdrawal",
		"vault_id", vaultID,
		"withdrawer", withdrawer.String(),
		"shares", shares.String(),
		"amount", amount.String(),
	)
	return amount, nil
}

// borrow releases base from the pool for a position's new debt
func (k *Keeper) borrow(vault *types.Vault, amount math.Int) error {
	if !amount.IsPositive() {
		return nil
	}
	if amount.GT(vault.Available()) {
		return types.ErrInsufficientLiquidity.Wrapf("borrow %s, available %s", amount, vault.Available())
	}
	vault.TotalPooledAsset = vault.TotalPooledAsset.Sub(amount)
	return nil
}

// addDebt adds value to a position's debt
func (k *Keeper) addDebt(vault *types.Vault, pos *types.Position, value math.Int) {
	if !value.IsPositive() {
		return
	}
	share := vault.DebtValueToShare(value)
	pos.DebtShare = pos.DebtShare.Add(share)
	vault.TotalDebtShare = vault.TotalDebtShare.Add(share)
	vault.TotalDebtValue = vault.TotalDebtValue.Add(value)
}

// removeDebt clears a position's debt and returns its value
func (k *Keeper) removeDebt(vault *types.Vault, pos *types.Position) math.Int {
	share := pos.DebtShare
	if share.IsZero() {
		return math.ZeroInt()
	}
	value := vault.DebtShareToValue(share)
	vault.TotalDebtShare = vault.TotalDebtShare.Sub(share)
	vault.TotalDebtValue = vault.TotalDebtValue.Sub(value)
	pos.DebtShare = math.ZeroInt()
	return value
}

// repay returns base to the pool for debt already removed from a position
func (k *Keeper) repay(vault *types.Vault, amount math.Int) {
	vault.TotalPooledAsset = vault.TotalPooledAsset.Add(amount)
}

// DebtValue returns what a position owes at the current block time
func (k *Keeper) DebtValue(ctx sdk.Context, vaultID string, positionID uint64) (math.Int, error) {
	vault, err := k.mustGetVault(ctx, vaultID)
	if err != nil {
		return math.ZeroInt(), err
	}
	pos := k.GetPosition(ctx, vaultID, positionID)
	if pos == nil {
		return math.ZeroInt(), types.ErrPositionNotFound.Wrapf("%s/%d", vaultID, positionID)
	}
	k.accrue(ctx, vault)
	return vault.DebtShareToValue(pos.DebtShare), nil
}

// GetVaultDenom returns the denom a vault lends
func (k *Keeper) GetVaultDenom(ctx sdk.Context, vaultID string) (string, error) {
	vault, err := k.mustGetVault(ctx, vaultID)
	if err != nil {
		return "", err
	}
	return vault.Denom, nil
}

// CreditBuyback adds amount held by fromModule to a vault's pooled asset, raising the
// value of every lender share
func (k *Keeper) CreditBuyback(ctx sdk.Context, vaultID, fromModule string, amount math.Int) error {
	if !amount.IsPositive() {
		return nil
	}
	vault, err := k.mustGetVault(ctx, vaultID)
	if err != nil {
		return err
	}
	k.accrue(ctx, vault)
	if err := k.bankKeeper.SendCoinsFromModuleToModule(ctx, fromModule, types.ModuleName, sdk.NewCoins(sdk.NewCoin(vault.Denom, amount))); err != nil {
		return err
	}
	vault.TotalPooledAsset = vault.TotalPooledAsset.Add(amount)
	k.SetVault(ctx, vault)

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			"vault_buyback",
			sdk.NewAttribute("vault_id", vaultID),
			sdk.NewAttribute("from", fromModule),
			sdk.NewAttribute("amount", amount.String()),
		),
	)
	return nil
}

// VaultView returns the accounting snapshot of a vault at the current block time
func (k *Keeper) VaultView(ctx sdk.Context, vaultID string) (*types.VaultView, error) {
	vault, err := k.mustGetVault(ctx, vaultID)
	if err != nil {
		return nil, err
	}
	pending := k.PendingInterest(ctx, vault)
	k.accrue(ctx, vault)
	util := vault.Utilization()
	return &types.VaultView{
		Vault:           *vault,
		TotalToken:      vault.TotalToken(),
		Utilization:     util,
		BorrowAPR:       vault.Config.InterestModel.BorrowAPR(util),
		PendingInterest: pending,
	}, nil
}
