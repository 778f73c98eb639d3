package types

import (
	"encoding/json"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

const (
	// ModuleName defines the module name
	ModuleName = "worker"

	// StoreKey defines the primary module store key
	StoreKey = ModuleName

	// BpsDenominator is the basis-point scale for every bps field of the module
	BpsDenominator = 10000
)

// Built-in strategy ids
const (
	StrategyAddBaseTokenOnly            = "add-base-token-only"
	StrategyAddTwoSidesOptimal          = "add-two-sides-optimal"
	StrategyLiquidate                   = "liquidate"
	StrategyPartialCloseLiquidate       = "partial-close-liquidate"
	StrategyPartialCloseMinimizeTrading = "partial-close-minimize-trading"
)

// StakeRef is the farm stake reference and LP holder of a worker
func StakeRef(workerID string) string {
	return ModuleName + "/" + workerID
}

// WorkerConfig is the governance-controlled configuration of a worker
type WorkerConfig struct {
	VaultID   string `json:"vault_id"`
	BaseDenom string `json:"base_denom"`
	FarmDenom string `json:"farm_denom"`
	PoolID    string `json:"pool_id"`
	FarmID    string `json:"farm_id"`

	AddStrategyID       string   `json:"add_strategy_id"`
	LiquidateStrategyID string   `json:"liquidate_strategy_id"`
	OKStrategies        []string `json:"ok_strategies"`

	ReinvestBountyBps    uint32   `json:"reinvest_bounty_bps"`
	MaxReinvestBountyBps uint32   `json:"max_reinvest_bounty_bps"`
	ReinvestThreshold    math.Int `json:"reinvest_threshold"`
	ReinvestPath         []string `json:"reinvest_path"`
	Reinvestors          []string `json:"reinvestors"`
	Treasury             string   `json:"treasury"`

	BeneficialVaultID        string   `json:"beneficial_vault_id,omitempty"`
	BeneficialVaultBountyBps uint32   `json:"beneficial_vault_bounty_bps"`
	RewardPath               []string `json:"reward_path,omitempty"`

	// HarvestRecipient is the only module allowed to pull raw rewards via Harvest
	HarvestRecipient string `json:"harvest_recipient,omitempty"`

	MaxPriceDiffBps uint32 `json:"max_price_diff_bps"`
}

// DefaultWorkerConfig returns a config with the built-in strategies and no reinvest path
func DefaultWorkerConfig(vaultID, baseDenom, farmDenom, farmID, rewardDenom string) WorkerConfig {
	return WorkerConfig{
		VaultID:             vaultID,
		BaseDenom:           baseDenom,
		FarmDenom:           farmDenom,
		FarmID:              farmID,
		AddStrategyID:       StrategyAddBaseTokenOnly,
		LiquidateStrategyID: StrategyLiquidate,
		OKStrategies: []string{
			StrategyAddBaseTokenOnly,
			StrategyAddTwoSidesOptimal,
			StrategyLiquidate,
			StrategyPartialCloseLiquidate,
			StrategyPartialCloseMinimizeTrading,
		},
		ReinvestBountyBps:    300,
		MaxReinvestBountyBps: 900,
		ReinvestThreshold:    math.ZeroInt(),
		ReinvestPath:         []string{rewardDenom, baseDenom},
		MaxPriceDiffBps:      500,
	}
}

// RewardDenom is the denom harvested from the farm, the head of the reinvest path
func (c WorkerConfig) RewardDenom() string {
	if len(c.ReinvestPath) == 0 {
		return ""
	}
	return c.ReinvestPath[0]
}

// IsOKStrategy reports whether id may be run through Work
func (c WorkerConfig) IsOKStrategy(id string) bool {
	for _, s := range c.OKStrategies {
		if s == id {
			return true
		}
	}
	return false
}

// IsReinvestor reports whether addr may call Reinvest
func (c WorkerConfig) IsReinvestor(addr string) bool {
	for _, r := range c.Reinvestors {
		if r == addr {
			return true
		}
	}
	return false
}

// Validate checks static config rules; path existence is checked by the keeper
func (c WorkerConfig) Validate() error {
	if c.VaultID == "" || c.BaseDenom == "" || c.FarmDenom == "" || c.BaseDenom == c.FarmDenom {
		return ErrInvalidConfig.Wrap("vault, base and farm denoms are required and must differ")
	}
	if c.FarmID == "" {
		return ErrInvalidConfig.Wrap("farm id is required")
	}
	if c.AddStrategyID == "" || c.LiquidateStrategyID == "" {
		return ErrInvalidConfig.Wrap("add and liquidate strategies are required")
	}
	if c.ReinvestBountyBps > c.MaxReinvestBountyBps || c.MaxReinvestBountyBps > BpsDenominator {
		return ErrInvalidConfig.Wrapf("reinvest bounty %d exceeds max %d", c.ReinvestBountyBps, c.MaxReinvestBountyBps)
	}
	if c.BeneficialVaultBountyBps > BpsDenominator {
		return ErrInvalidConfig.Wrap("beneficial vault bounty above 100%")
	}
	if c.ReinvestThreshold.IsNil() || c.ReinvestThreshold.IsNegative() {
		return ErrInvalidConfig.Wrap("reinvest threshold must be non-negative")
	}
	if len(c.ReinvestPath) < 1 || c.ReinvestPath[len(c.ReinvestPath)-1] != c.BaseDenom {
		return ErrBadReinvestPath.Wrapf("path %v must end with %s", c.ReinvestPath, c.BaseDenom)
	}
	if c.BeneficialVaultBountyBps > 0 {
		if c.BeneficialVaultID == "" {
			return ErrInvalidConfig.Wrap("beneficial vault id required")
		}
		if len(c.RewardPath) < 1 || c.RewardPath[0] != c.RewardDenom() {
			return ErrBadRewardPath.Wrapf("path %v must start with %s", c.RewardPath, c.RewardDenom())
		}
	}
	if c.Treasury != "" {
		if _, err := sdk.AccAddressFromBech32(c.Treasury); err != nil {
			return ErrInvalidConfig.Wrapf("treasury: %s", err)
		}
	}
	return nil
}

// Worker is the persisted state of one worker
type Worker struct {
	WorkerID string       `json:"worker_id"`
	Config   WorkerConfig `json:"config"`

	TotalShare math.Int `json:"total_share"`

	AccumulatedBounty math.Int `json:"accumulated_bounty"`
	BuybackAmount     math.Int `json:"buyback_amount"`
	// BaseDust is base left over by the add strategy during reinvest, carried into the next one
	BaseDust math.Int `json:"base_dust"`

	TotalReinvested  math.Int `json:"total_reinvested"`
	LastReinvestTime int64    `json:"last_reinvest_time"`
}

// NewWorker creates an empty worker
func NewWorker(workerID string, config WorkerConfig) *Worker {
	return &Worker{
		WorkerID:          workerID,
		Config:            config,
		TotalShare:        math.ZeroInt(),
		AccumulatedBounty: math.ZeroInt(),
		BuybackAmount:     math.ZeroInt(),
		BaseDust:          math.ZeroInt(),
		TotalReinvested:   math.ZeroInt(),
	}
}

// WorkRequest is a vault's request to run a strategy for a position
type WorkRequest struct {
	WorkerID   string
	PositionID uint64
	Owner      sdk.AccAddress
	Debt       math.Int
	// BaseIn is base already transferred to the worker module
	BaseIn     math.Int
	StrategyID string
	Data       json.RawMessage
	// ReturnModule receives all base left after the strategy
	ReturnModule string
}

// ReinvestResult summarises a reinvest
type ReinvestResult struct {
	Reward      math.Int `json:"reward"`
	Bounty      math.Int `json:"bounty"`
	Beneficial  math.Int `json:"beneficial"`
	BountyPaid  math.Int `json:"bounty_paid"`
	SwappedBase math.Int `json:"swapped_base"`
	LPAdded     math.Int `json:"lp_added"`
}

// PositionView is the read model of a position's claim in a worker
type PositionView struct {
	WorkerID   string   `json:"worker_id"`
	PositionID uint64   `json:"position_id"`
	Shares     math.Int `json:"shares"`
	LP         math.Int `json:"lp"`
	Health     math.Int `json:"health"`
}
