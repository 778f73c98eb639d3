package keeper

import (
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/google/btree"

	"github.com/openalpha/levfarm/x/vault/types"
)

const riskIndexDegree = 16

// riskItem orders positions by debt ratio, highest first
type riskItem struct {
	info *types.PositionInfo
}

// Less implements btree.Item; ties break on position id so every position is kept
func (a *riskItem) Less(b btree.Item) bool {
	other := b.(*riskItem)
	if !a.info.DebtRatio.Equal(other.info.DebtRatio) {
		return a.info.DebtRatio.GT(other.info.DebtRatio)
	}
	return a.info.Position.ID < other.info.Position.ID
}

// riskIndex is a debt-ratio ordered view of a vault's open positions
type riskIndex struct {
	tree *btree.BTree
}

func newRiskIndex() *riskIndex {
	return &riskIndex{tree: btree.New(riskIndexDegree)}
}

func (r *riskIndex) insert(info *types.PositionInfo) {
	r.tree.ReplaceOrInsert(&riskItem{info: info})
}

// above walks positions with debt ratio >= ratio, riskiest first
func (r *riskIndex) above(ratio math.LegacyDec, fn func(*types.PositionInfo) bool) {
	r.tree.Ascend(func(item btree.Item) bool {
		info := item.(*riskItem).info
		if info.DebtRatio.LT(ratio) {
			return false
		}
		return fn(info)
	})
}

func (r *riskIndex) Len() int {
	return r.tree.Len()
}

// buildRiskIndex loads every position of a vault that still carries debt
func (k *Keeper) buildRiskIndex(ctx sdk.Context, vault *types.Vault) *riskIndex {
	idx := newRiskIndex()
	for _, pos := range k.GetAllPositions(ctx, vault.VaultID) {
		if pos.DebtShare.IsZero() {
			continue
		}
		info, err := k.positionInfo(ctx, vault, pos)
		if err != nil {
			k.logger.Error("Failed to value position", "vault_id", vault.VaultID, "position_id", pos.ID, "error", err)
			continue
		}
		idx.insert(info)
	}
	return idx
}

func (k *Keeper) positionInfo(ctx sdk.Context, vault *types.Vault, pos *types.Position) (*types.PositionInfo, error) {
	health, err := k.workerKeeper.Health(ctx, pos.WorkerID, pos.ID)
	if err != nil {
		return nil, err
	}
	debt := vault.DebtShareToValue(pos.DebtShare)
	ratio := math.LegacyZeroDec()
	switch {
	case health.IsPositive():
		ratio = math.LegacyNewDecFromInt(debt).QuoInt(health)
	case debt.IsPositive():
		// nothing left to back the debt
		ratio = math.LegacyNewDec(types.BpsDenominator)
	}
	return &types.PositionInfo{
		Position:  *pos,
		Health:    health,
		Debt:      debt,
		DebtRatio: ratio,
		Killable:  killable(debt, health, vault.Config.Workers[pos.WorkerID].KillFactor),
	}, nil
}

// PositionInfo returns health, debt and kill status of a position at the current block time
func (k *Keeper) PositionInfo(ctx sdk.Context, vaultID string, positionID uint64) (*types.PositionInfo, error) {
	vault, err := k.mustGetVault(ctx, vaultID)
	if err != nil {
		return nil, err
	}
	pos := k.GetPosition(ctx, vaultID, positionID)
	if pos == nil {
		return nil, types.ErrPositionNotFound.Wrapf("%s/%d", vaultID, positionID)
	}
	k.accrue(ctx, vault)
	return k.positionInfo(ctx, vault, pos)
}

// Killable reports whether a position can be killed right now
func (k *Keeper) Killable(ctx sdk.Context, vaultID string, positionID uint64) (bool, error) {
	info, err := k.PositionInfo(ctx, vaultID, positionID)
	if err != nil {
		return false, err
	}
	return info.Killable, nil
}

// AtRiskPositions returns indebted positions with debt/health at or above ratio, riskiest first
func (k *Keeper) AtRiskPositions(ctx sdk.Context, vaultID string, ratio math.LegacyDec) ([]*types.PositionInfo, error) {
	vault, err := k.mustGetVault(ctx, vaultID)
	if err != nil {
		return nil, err
	}
	k.accrue(ctx, vault)

	var out []*types.PositionInfo
	k.buildRiskIndex(ctx, vault).above(ratio, func(info *types.PositionInfo) bool {
		out = append(out, info)
		return true
	})
	return out, nil
}
