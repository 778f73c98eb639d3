package keeper

import (
	"time"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/levfarm/metrics"
	"github.com/openalpha/levfarm/x/vault/types"
)

// EndBlocker accrues interest on every vault, refreshes vault metrics and reports
// killable positions. Kills are left to killers.
func (k *Keeper) EndBlocker(ctx sdk.Context) error {
	blockHeight := ctx.BlockHeight()
	start := time.Now()
	collector := metrics.GetCollector()
	collector.UpdateBlockHeight(blockHeight)

	// Phase 1: Accrue interest
	accrueStart := time.Now()
	vaults := k.GetAllVaults(ctx)
	for _, vault := range vaults {
		k.accrue(ctx, vault)
		k.SetVault(ctx, vault)

		util := vault.Utilization()
		collector.RecordVaultState(
			vault.VaultID,
			metrics.IntValue(vault.TotalToken()),
			metrics.IntValue(vault.TotalDebtValue),
			metrics.DecValue(util),
			metrics.DecValue(vault.Config.InterestModel.BorrowAPR(util)),
		)
	}
	accrueDuration := time.Since(accrueStart)

	// Phase 2: Scan positions
	scanStart := time.Now()
	killableCount := 0
	for _, vault := range vaults {
		idx := k.buildRiskIndex(ctx, vault)
		collector.RecordOpenPositions(vault.VaultID, idx.Len())
		idx.above(math.LegacyZeroDec(), func(info *types.PositionInfo) bool {
			if !info.Killable {
				return true
			}
			killableCount++
			k.logger.Info("Position killable",
				"vault_id", vault.VaultID,
				"position_id", info.Position.ID,
				"debt", info.Debt.String(),
				"health", info.Health.String(),
			)
			return true
		})
	}
	scanDuration := time.Since(scanStart)

	totalDuration := time.Since(start)
	collector.RecordEndBlockPhase("vault_accrue", float64(accrueDuration.Microseconds())/1000.0)
	collector.RecordEndBlockPhase("vault_risk_scan", float64(scanDuration.Microseconds())/1000.0)
	collector.RecordEndBlockPhase("vault_total", float64(totalDuration.Microseconds())/1000.0)

	k.logger.Debug("Vault EndBlocker completed",
		"block", blockHeight,
		"total_ms", totalDuration.Milliseconds(),
		"accrue_ms", accrueDuration.Milliseconds(),
		"risk_scan_ms", scanDuration.Milliseconds(),
		"vaults", len(vaults),
		"killable", killableCount,
	)

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			"vault_endblock",
			sdk.NewAttribute("block_height", math.NewInt(blockHeight).String()),
			sdk.NewAttribute("vaults", math.NewInt(int64(len(vaults))).String()),
			sdk.NewAttribute("killable_positions", math.NewInt(int64(killableCount)).String()),
		),
	)

	return nil
}
