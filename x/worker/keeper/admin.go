package keeper

import (
	"strings"

	sdk "github.com/cosmos/cosmos-sdk/types"

	ammtypes "github.com/openalpha/levfarm/x/amm/types"
	"github.com/openalpha/levfarm/x/worker/types"
)

// CreateWorker registers a worker farming config.FarmID for config.VaultID.
// The pool is taken from the farm.
func (k *Keeper) CreateWorker(ctx sdk.Context, authority, workerID string, config types.WorkerConfig) (*types.Worker, error) {
	if authority != k.authority {
		return nil, types.ErrNotAuthorized.Wrapf("expected %s, got %s", k.authority, authority)
	}
	if workerID == "" || strings.ContainsAny(workerID, ":/") {
		return nil, types.ErrInvalidConfig.Wrapf("invalid worker id %q", workerID)
	}
	if k.GetWorker(ctx, workerID) != nil {
		return nil, types.ErrWorkerExists.Wrap(workerID)
	}
	if err := k.validateConfig(ctx, &config); err != nil {
		return nil, err
	}

	worker := types.NewWorker(workerID, config)
	k.SetWorker(ctx, worker)

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			"worker_created",
			sdk.NewAttribute("worker_id", workerID),
			sdk.NewAttribute("vault_id", config.VaultID),
			sdk.NewAttribute("pool_id", config.PoolID),
			sdk.NewAttribute("farm_id", config.FarmID),
		),
	)
	k.logger.Info("Worker created",
		"worker_id", workerID,
		"vault_id", config.VaultID,
		"pool_id", config.PoolID,
	)
	return worker, nil
}

// UpdateWorkerConfig replaces the mutable part of a worker's config. The vault, denoms
// and farm are fixed for the life of the worker.
func (k *Keeper) UpdateWorkerConfig(ctx sdk.Context, authority, workerID string, config types.WorkerConfig) (*types.Worker, error) {
	if authority != k.authority {
		return nil, types.ErrNotAuthorized.Wrapf("expected %s, got %s", k.authority, authority)
	}
	worker, err := k.mustGetWorker(ctx, workerID)
	if err != nil {
		return nil, err
	}
	old := worker.Config
	if config.VaultID != old.VaultID || config.BaseDenom != old.BaseDenom ||
		config.FarmDenom != old.FarmDenom || config.FarmID != old.FarmID {
		return nil, types.ErrInvalidConfig.Wrap("vault, denoms and farm cannot change")
	}
	if err := k.validateConfig(ctx, &config); err != nil {
		return nil, err
	}

	worker.Config = config
	k.SetWorker(ctx, worker)

	k.logger.Info("Worker config updated", "worker_id", workerID)
	return worker, nil
}

// validateConfig checks config against live state and fills PoolID from the farm
func (k *Keeper) validateConfig(ctx sdk.Context, config *types.WorkerConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}

	farm := k.ammKeeper.GetFarm(ctx, config.FarmID)
	if farm == nil {
		return ammtypes.ErrFarmNotFound.Wrap(config.FarmID)
	}
	pool := k.ammKeeper.GetPool(ctx, farm.PoolID)
	if pool == nil {
		return ammtypes.ErrPoolNotFound.Wrap(farm.PoolID)
	}
	if !pool.HasDenom(config.BaseDenom) || !pool.HasDenom(config.FarmDenom) {
		return types.ErrInvalidConfig.Wrapf("pool %s does not pair %s and %s", pool.PoolID, config.BaseDenom, config.FarmDenom)
	}
	config.PoolID = pool.PoolID

	if config.RewardDenom() != farm.RewardDenom {
		return types.ErrBadReinvestPath.Wrapf("path must start with reward %s", farm.RewardDenom)
	}
	if len(config.ReinvestPath) > 1 {
		if err := k.ammKeeper.ValidatePath(ctx, config.ReinvestPath); err != nil {
			return types.ErrBadReinvestPath.Wrap(err.Error())
		}
	}

	for _, id := range append([]string{config.AddStrategyID, config.LiquidateStrategyID}, config.OKStrategies...) {
		if _, ok := k.strategies[id]; !ok {
			return types.ErrUnknownStrategy.Wrap(id)
		}
	}

	if k.vaultKeeper != nil {
		denom, err := k.vaultKeeper.GetVaultDenom(ctx, config.VaultID)
		if err != nil {
			return err
		}
		if denom != config.BaseDenom {
			return types.ErrInvalidConfig.Wrapf("vault %s lends %s, not %s", config.VaultID, denom, config.BaseDenom)
		}
	}

	if config.BeneficialVaultBountyBps > 0 {
		if len(config.RewardPath) > 1 {
			if err := k.ammKeeper.ValidatePath(ctx, config.RewardPath); err != nil {
				return types.ErrBadRewardPath.Wrap(err.Error())
			}
		}
		if k.vaultKeeper != nil {
			denom, err := k.vaultKeeper.GetVaultDenom(ctx, config.BeneficialVaultID)
			if err != nil {
				return err
			}
			if config.RewardPath[len(config.RewardPath)-1] != denom {
				return types.ErrBadRewardPath.Wrapf("path %v must end with %s", config.RewardPath, denom)
			}
		}
	}
	return nil
}
