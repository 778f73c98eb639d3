package keeper

import (
	"strings"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/levfarm/x/deltaneutral/types"
)

// CreateVault registers a delta-neutral vault over a stable and an asset vault/worker pair.
// Both workers must farm the same pool with mirrored denoms and name this module as their
// harvest recipient.
func (k *Keeper) CreateVault(
	ctx sdk.Context,
	authority, dnID string,
	stableVaultID, stableWorkerID, assetVaultID, assetWorkerID string,
	config types.DeltaNeutralConfig,
) (*types.DeltaNeutralVault, error) {
	if authority != k.authority {
		return nil, types.ErrNotAuthorized.Wrapf("expected %s, got %s", k.authority, authority)
	}
	if dnID == "" || strings.ContainsAny(dnID, ":/") {
		return nil, types.ErrInvalidConfig.Wrapf("invalid vault id %q", dnID)
	}
	if k.GetVault(ctx, dnID) != nil {
		return nil, types.ErrVaultExists.Wrap(dnID)
	}

	vault := &types.DeltaNeutralVault{
		DNID:            dnID,
		StableLeg:       types.Leg{VaultID: stableVaultID, WorkerID: stableWorkerID},
		AssetLeg:        types.Leg{VaultID: assetVaultID, WorkerID: assetWorkerID},
		Config:          config,
		ShareSupply:     math.ZeroInt(),
		TotalReinvested: math.ZeroInt(),
	}
	if err := k.validateLegs(ctx, vault); err != nil {
		return nil, err
	}
	if err := k.validateConfig(ctx, vault, config); err != nil {
		return nil, err
	}
	k.SetVault(ctx, vault)

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			"deltaneutral_created",
			sdk.NewAttribute("dn_id", dnID),
			sdk.NewAttribute("stable_vault", stableVaultID),
			sdk.NewAttribute("asset_vault", assetVaultID),
			sdk.NewAttribute("pool_id", vault.PoolID),
			sdk.NewAttribute("leverage", math.NewInt(int64(config.LeverageLevel)).String()),
		),
	)
	k.logger.Info("Delta-neutral vault created",
		"dn_id", dnID,
		"stable_worker", stableWorkerID,
		"asset_worker", assetWorkerID,
		"leverage", config.LeverageLevel,
	)
	return vault, nil
}

// UpdateConfig replaces the config of a delta-neutral vault
func (k *Keeper) UpdateConfig(ctx sdk.Context, authority, dnID string, config types.DeltaNeutralConfig) (*types.DeltaNeutralVault, error) {
	if authority != k.authority {
		return nil, types.ErrNotAuthorized.Wrapf("expected %s, got %s", k.authority, authority)
	}
	vault, err := k.mustGetVault(ctx, dnID)
	if err != nil {
		return nil, err
	}
	if err := k.validateConfig(ctx, vault, config); err != nil {
		return nil, err
	}
	vault.Config = config
	k.SetVault(ctx, vault)

	k.logger.Info("Delta-neutral config updated", "dn_id", dnID)
	return vault, nil
}

// validateLegs fills the leg denoms and pool id from the live vaults and workers
func (k *Keeper) validateLegs(ctx sdk.Context, vault *types.DeltaNeutralVault) error {
	legs := []*types.Leg{&vault.StableLeg, &vault.AssetLeg}
	for _, leg := range legs {
		lending := k.vaultKeeper.GetVault(ctx, leg.VaultID)
		if lending == nil {
			return types.ErrInvalidConfig.Wrapf("vault %s not found", leg.VaultID)
		}
		leg.Denom = lending.Denom
	}
	if vault.StableLeg.Denom == vault.AssetLeg.Denom {
		return types.ErrInvalidConfig.Wrap("legs must lend different denoms")
	}

	for i, leg := range legs {
		other := legs[1-i]
		worker := k.workerKeeper.GetWorker(ctx, leg.WorkerID)
		if worker == nil {
			return types.ErrInvalidConfig.Wrapf("worker %s not found", leg.WorkerID)
		}
		cfg := worker.Config
		if cfg.VaultID != leg.VaultID || cfg.BaseDenom != leg.Denom || cfg.FarmDenom != other.Denom {
			return types.ErrInvalidConfig.Wrapf("worker %s does not pair %s with %s", leg.WorkerID, leg.Denom, other.Denom)
		}
		if cfg.HarvestRecipient != types.ModuleName {
			return types.ErrInvalidConfig.Wrapf("worker %s must harvest to %s", leg.WorkerID, types.ModuleName)
		}
		if vault.PoolID == "" {
			vault.PoolID = cfg.PoolID
		} else if vault.PoolID != cfg.PoolID {
			return types.ErrInvalidConfig.Wrap("legs must farm the same pool")
		}
	}
	return nil
}

// validateConfig checks config against the legs and the AMM
func (k *Keeper) validateConfig(ctx sdk.Context, vault *types.DeltaNeutralVault, config types.DeltaNeutralConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}
	if len(config.ReinvestPath) == 0 {
		return nil
	}
	path := config.ReinvestPath
	for _, leg := range []types.Leg{vault.StableLeg, vault.AssetLeg} {
		worker := k.workerKeeper.GetWorker(ctx, leg.WorkerID)
		if worker == nil {
			return types.ErrInvalidConfig.Wrapf("worker %s not found", leg.WorkerID)
		}
		if worker.Config.RewardDenom() != path[0] {
			return types.ErrBadReinvestPath.Wrapf("path %v must start with reward denom %s", path, worker.Config.RewardDenom())
		}
	}
	if path[len(path)-1] != vault.StableLeg.Denom {
		return types.ErrBadReinvestPath.Wrapf("path %v must end with %s", path, vault.StableLeg.Denom)
	}
	if err := k.ammKeeper.ValidatePath(ctx, path); err != nil {
		return types.ErrBadReinvestPath.Wrap(err.Error())
	}
	return nil
}
