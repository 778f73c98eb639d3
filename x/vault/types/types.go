package types

import (
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

const (
	// ModuleName defines the module name
	ModuleName = "vault"

	// StoreKey defines the primary module store key
	StoreKey = ModuleName

	// BpsDenominator is the basis-point scale for every bps field of the module
	BpsDenominator = 10000
)

// ShareDenom is the interest-bearing token denom of a vault
func ShareDenom(vaultID string) string {
	return "ib/" + vaultID
}

// WorkerParams is a vault's risk setting for one worker
type WorkerParams struct {
	// WorkFactor caps debt at health * WorkFactor / 10000 after work
	WorkFactor uint32 `json:"work_factor"`
	// KillFactor makes a position killable once debt exceeds health * KillFactor / 10000
	KillFactor uint32 `json:"kill_factor"`
	AcceptDebt bool   `json:"accept_debt"`
}

// VaultConfig is the governance-controlled configuration of a vault
type VaultConfig struct {
	MinDebtSize     math.Int `json:"min_debt_size"`
	ReservePoolBps  uint32   `json:"reserve_pool_bps"`
	KillPrizeBps    uint32   `json:"kill_prize_bps"`
	KillTreasuryBps uint32   `json:"kill_treasury_bps"`
	Treasury        string   `json:"treasury"`
	Killers         []string `json:"killers"`

	// ApprovedAddStrategies are the strategies AddCollateral may run
	ApprovedAddStrategies []string `json:"approved_add_strategies"`

	Workers       map[string]WorkerParams `json:"workers"`
	InterestModel InterestModel           `json:"interest_model"`
}

// DefaultVaultConfig returns a config with the triple-slope interest model and no workers
func DefaultVaultConfig() VaultConfig {
	return VaultConfig{
		MinDebtSize:     math.ZeroInt(),
		ReservePoolBps:  1000,
		KillPrizeBps:    500,
		KillTreasuryBps: 0,
		Workers:         map[string]WorkerParams{},
		InterestModel:   TripleSlopeModel(),
	}
}

// Validate checks static config rules
func (c VaultConfig) Validate() error {
	if c.MinDebtSize.IsNil() || c.MinDebtSize.IsNegative() {
		return ErrInvalidConfig.Wrap("min debt size must be non-negative")
	}
	if c.ReservePoolBps > BpsDenominator {
		return ErrInvalidConfig.Wrap("reserve pool above 100%")
	}
	if c.KillPrizeBps+c.KillTreasuryBps > BpsDenominator {
		return ErrInvalidConfig.Wrap("kill prize plus treasury fee above 100%")
	}
	if c.Treasury != "" {
		if _, err := sdk.AccAddressFromBech32(c.Treasury); err != nil {
			return ErrInvalidConfig.Wrapf("treasury: %s", err)
		}
	}
	for id, p := range c.Workers {
		if p.WorkFactor > BpsDenominator || p.KillFactor > BpsDenominator {
			return ErrInvalidConfig.Wrapf("worker %s factors above 100%%", id)
		}
		if p.WorkFactor > p.KillFactor {
			return ErrInvalidConfig.Wrapf("worker %s work factor %d exceeds kill factor %d", id, p.WorkFactor, p.KillFactor)
		}
	}
	return c.InterestModel.Validate()
}

// IsKiller reports whether addr may kill positions
func (c VaultConfig) IsKiller(addr string) bool {
	for _, k := range c.Killers {
		if k == addr {
			return true
		}
	}
	return false
}

// IsApprovedAddStrategy reports whether id may be run through AddCollateral
func (c VaultConfig) IsApprovedAddStrategy(id string) bool {
	for _, s := range c.ApprovedAddStrategies {
		if s == id {
			return true
		}
	}
	return false
}

// Vault is the persisted lending pool of one denom
type Vault struct {
	VaultID string      `json:"vault_id"`
	Denom   string      `json:"denom"`
	Config  VaultConfig `json:"config"`

	TotalPooledAsset math.Int `json:"total_pooled_asset"`
	TotalDebtValue   math.Int `json:"total_debt_value"`
	TotalDebtShare   math.Int `json:"total_debt_share"`
	ReserveValue     math.Int `json:"reserve_value"`
	TotalShareSupply math.Int `json:"total_share_supply"`
	LastAccrualTime  int64    `json:"last_accrual_time"`

	NextPositionID uint64 `json:"next_position_id"`
	NextKillID     uint64 `json:"next_kill_id"`
}

// NewVault creates an empty vault
func NewVault(vaultID, denom string, config VaultConfig, now int64) *Vault {
	return &Vault{
		VaultID:          vaultID,
		Denom:            denom,
		Config:           config,
		TotalPooledAsset: math.ZeroInt(),
		TotalDebtValue:   math.ZeroInt(),
		TotalDebtShare:   math.ZeroInt(),
		ReserveValue:     math.ZeroInt(),
		TotalShareSupply: math.ZeroInt(),
		LastAccrualTime:  now,
		NextPositionID:   1,
		NextKillID:       1,
	}
}

// TotalToken is the base lenders have a claim on
func (v *Vault) TotalToken() math.Int {
	total := v.TotalPooledAsset.Add(v.TotalDebtValue).Sub(v.ReserveValue)
	if total.IsNegative() {
		return math.ZeroInt()
	}
	return total
}

// Available is the pooled asset not set aside as reserve
func (v *Vault) Available() math.Int {
	avail := v.TotalPooledAsset.Sub(v.ReserveValue)
	if avail.IsNegative() {
		return math.ZeroInt()
	}
	return avail
}

// Utilization is debt over pooled asset plus debt
func (v *Vault) Utilization() math.LegacyDec {
	return Utilization(v.TotalPooledAsset, v.TotalDebtValue)
}

// DebtShareToValue converts a debt share into base owed
func (v *Vault) DebtShareToValue(share math.Int) math.Int {
	if v.TotalDebtShare.IsZero() {
		return share
	}
	return share.Mul(v.TotalDebtValue).Quo(v.TotalDebtShare)
}

// DebtValueToShare converts base owed into a debt share
func (v *Vault) DebtValueToShare(value math.Int) math.Int {
	if v.TotalDebtShare.IsZero() || v.TotalDebtValue.IsZero() {
		return value
	}
	return value.Mul(v.TotalDebtShare).Quo(v.TotalDebtValue)
}

// Position is a leveraged position of a vault. Positions are never deleted.
type Position struct {
	ID        uint64   `json:"id"`
	VaultID   string   `json:"vault_id"`
	Owner     string   `json:"owner"`
	WorkerID  string   `json:"worker_id"`
	DebtShare math.Int `json:"debt_share"`
}

// KillRecord is the settlement of one liquidation
type KillRecord struct {
	ID         uint64 `json:"id"`
	VaultID    string `json:"vault_id"`
	PositionID uint64 `json:"position_id"`
	WorkerID   string `json:"worker_id"`
	Owner      string `json:"owner"`
	Killer     string `json:"killer"`

	Debt             math.Int `json:"debt"`
	LiquidatedValue  math.Int `json:"liquidated_value"`
	Repaid           math.Int `json:"repaid"`
	LiquidatorBounty math.Int `json:"liquidator_bounty"`
	TreasuryFee      math.Int `json:"treasury_fee"`
	Surplus          math.Int `json:"surplus"`
	BadDebt          math.Int `json:"bad_debt"`

	Height int64 `json:"height"`
	Time   int64 `json:"time"`
}

// WorkResult is the outcome of a work call
type WorkResult struct {
	PositionID uint64   `json:"position_id"`
	Debt       math.Int `json:"debt"`
	Health     math.Int `json:"health"`
	Returned   math.Int `json:"returned"`
}

// PositionInfo is the read model of a position
type PositionInfo struct {
	Position  Position       `json:"position"`
	Health    math.Int       `json:"health"`
	Debt      math.Int       `json:"debt"`
	DebtRatio math.LegacyDec `json:"debt_ratio"`
	Killable  bool           `json:"killable"`
}

// VaultView is the read model of a vault's accounting
type VaultView struct {
	Vault           Vault          `json:"vault"`
	TotalToken      math.Int       `json:"total_token"`
	Utilization     math.LegacyDec `json:"utilization"`
	BorrowAPR       math.LegacyDec `json:"borrow_apr"`
	PendingInterest math.Int       `json:"pending_interest"`
}
