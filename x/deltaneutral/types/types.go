package types

import (
	"encoding/json"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

const (
	// ModuleName defines the module name
	ModuleName = "deltaneutral"

	// StoreKey defines the primary module store key
	StoreKey = ModuleName

	// BpsDenominator is the basis-point scale for every bps field of the module
	BpsDenominator = 10000
)

// ShareDenom is the share token of a delta-neutral vault
func ShareDenom(dnID string) string {
	return "dn/" + dnID
}

// Legs
const (
	LegStable = "stable"
	LegAsset  = "asset"
)

// Action types
const (
	ActionWork = "work"
	ActionWrap = "wrap"
)

// Action is one step of a coordinator call
type Action struct {
	Type string `json:"type"`
	// Leg is the leg worked on, or for a wrap the leg whose denom is produced
	Leg  string      `json:"leg"`
	Work *WorkAction `json:"work,omitempty"`
	Wrap *WrapAction `json:"wrap,omitempty"`
}

// WorkAction runs a vault work on a leg's position
type WorkAction struct {
	Principal    math.Int        `json:"principal"`
	Borrow       math.Int        `json:"borrow"`
	MaxReturn    math.Int        `json:"max_return"`
	StrategyID   string          `json:"strategy_id"`
	StrategyData json.RawMessage `json:"strategy_data,omitempty"`
}

// WrapAction swaps Amount of the other leg's denom into the target leg's denom
type WrapAction struct {
	Amount math.Int `json:"amount"`
	MinOut math.Int `json:"min_out"`
}

// Validate checks the shape of an action
func (a Action) Validate() error {
	if a.Leg != LegStable && a.Leg != LegAsset {
		return ErrInvalidAction.Wrapf("unknown leg %q", a.Leg)
	}
	switch a.Type {
	case ActionWork:
		if a.Work == nil || a.Work.StrategyID == "" {
			return ErrInvalidAction.Wrap("work action needs a strategy")
		}
		for _, amt := range []math.Int{a.Work.Principal, a.Work.Borrow, a.Work.MaxReturn} {
			if !amt.IsNil() && amt.IsNegative() {
				return ErrInvalidAction.Wrap("negative work amount")
			}
		}
	case ActionWrap:
		if a.Wrap == nil || a.Wrap.Amount.IsNil() || !a.Wrap.Amount.IsPositive() {
			return ErrInvalidAction.Wrap("wrap action needs a positive amount")
		}
	default:
		return ErrInvalidAction.Wrapf("unknown action type %q", a.Type)
	}
	return nil
}

// DeltaNeutralConfig is the governance-controlled configuration of a delta-neutral vault
type DeltaNeutralConfig struct {
	// LeverageLevel is the LP exposure per unit of equity, at least 2
	LeverageLevel uint32 `json:"leverage_level"`
	// RebalanceFactor lets rebalancers act once a leg's debt reaches this share of its health
	RebalanceFactor uint32 `json:"rebalance_factor"`

	PositionValueToleranceBps uint32 `json:"position_value_tolerance_bps"`
	DebtRatioToleranceBps     uint32 `json:"debt_ratio_tolerance_bps"`
	// MaxPriceAge is the oldest oracle price accepted, in seconds
	MaxPriceAge int64 `json:"max_price_age"`

	DepositFeeBps    uint32 `json:"deposit_fee_bps"`
	WithdrawalFeeBps uint32 `json:"withdrawal_fee_bps"`
	Treasury         string `json:"treasury"`

	ReinvestBountyBps uint32   `json:"reinvest_bounty_bps"`
	Beneficiary       string   `json:"beneficiary,omitempty"`
	BeneficiaryBps    uint32   `json:"beneficiary_bps"`
	ReinvestPath      []string `json:"reinvest_path"`

	Operators   []string `json:"operators"`
	Rebalancers []string `json:"rebalancers"`
	Reinvestors []string `json:"reinvestors"`
}

// DefaultDeltaNeutralConfig returns a 3x config with the given treasury and price window
func DefaultDeltaNeutralConfig(treasury string, maxPriceAge int64) DeltaNeutralConfig {
	return DeltaNeutralConfig{
		LeverageLevel:             3,
		RebalanceFactor:           6800,
		PositionValueToleranceBps: 200,
		DebtRatioToleranceBps:     30,
		MaxPriceAge:               maxPriceAge,
		Treasury:                  treasury,
		ReinvestBountyBps:         1000,
	}
}

// Validate checks static config rules
func (c DeltaNeutralConfig) Validate() error {
	if c.LeverageLevel < 2 {
		return ErrInvalidConfig.Wrapf("leverage %d below 2", c.LeverageLevel)
	}
	if c.MaxPriceAge <= 0 {
		return ErrInvalidConfig.Wrap("max price age must be positive")
	}
	for _, bps := range []uint32{
		c.RebalanceFactor, c.PositionValueToleranceBps, c.DebtRatioToleranceBps,
		c.DepositFeeBps, c.WithdrawalFeeBps, c.ReinvestBountyBps, c.BeneficiaryBps,
	} {
		if bps > BpsDenominator {
			return ErrInvalidConfig.Wrapf("bps value %d above 100%%", bps)
		}
	}
	if _, err := sdk.AccAddressFromBech32(c.Treasury); err != nil {
		return ErrInvalidConfig.Wrapf("treasury: %s", err)
	}
	if c.BeneficiaryBps > 0 {
		if _, err := sdk.AccAddressFromBech32(c.Beneficiary); err != nil {
			return ErrInvalidConfig.Wrapf("beneficiary: %s", err)
		}
	}
	if len(c.ReinvestPath) == 1 {
		return ErrBadReinvestPath.Wrap("path needs at least two denoms")
	}
	return nil
}

// IsOperator reports whether addr may initialize positions
func (c DeltaNeutralConfig) IsOperator(addr string) bool { return contains(c.Operators, addr) }

// IsRebalancer reports whether addr may rebalance
func (c DeltaNeutralConfig) IsRebalancer(addr string) bool { return contains(c.Rebalancers, addr) }

// IsReinvestor reports whether addr may reinvest
func (c DeltaNeutralConfig) IsReinvestor(addr string) bool { return contains(c.Reinvestors, addr) }

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Leg is one vault/worker pair and the position the coordinator holds in it
type Leg struct {
	VaultID    string `json:"vault_id"`
	WorkerID   string `json:"worker_id"`
	Denom      string `json:"denom"`
	PositionID uint64 `json:"position_id"`
}

// DeltaNeutralVault is the persisted state of a delta-neutral vault
type DeltaNeutralVault struct {
	DNID        string             `json:"dn_id"`
	StableLeg   Leg                `json:"stable_leg"`
	AssetLeg    Leg                `json:"asset_leg"`
	PoolID      string             `json:"pool_id"`
	Config      DeltaNeutralConfig `json:"config"`
	ShareSupply math.Int           `json:"share_supply"`

	TotalReinvested  math.Int `json:"total_reinvested"`
	LastReinvestTime int64    `json:"last_reinvest_time"`
}

// Leg returns the named leg
func (v *DeltaNeutralVault) Leg(name string) *Leg {
	if name == LegAsset {
		return &v.AssetLeg
	}
	return &v.StableLeg
}

// Other returns the leg that is not name
func Other(name string) string {
	if name == LegAsset {
		return LegStable
	}
	return LegAsset
}

// Initialized reports whether positions have been opened
func (v *DeltaNeutralVault) Initialized() bool {
	return v.ShareSupply.IsPositive()
}

// LegState is a valued snapshot of one leg
type LegState struct {
	LP            math.Int       `json:"lp"`
	PositionValue math.LegacyDec `json:"position_value"`
	Debt          math.Int       `json:"debt"`
	DebtValue     math.LegacyDec `json:"debt_value"`
	Health        math.Int       `json:"health"`
}

// PositionState is a valued snapshot of both legs at oracle prices
type PositionState struct {
	Stable      LegState       `json:"stable"`
	Asset       LegState       `json:"asset"`
	StablePrice math.LegacyDec `json:"stable_price"`
	AssetPrice  math.LegacyDec `json:"asset_price"`
}

// PositionValue is the combined LP value of both legs
func (s PositionState) PositionValue() math.LegacyDec {
	return s.Stable.PositionValue.Add(s.Asset.PositionValue)
}

// DebtValue is the combined debt value of both legs
func (s PositionState) DebtValue() math.LegacyDec {
	return s.Stable.DebtValue.Add(s.Asset.DebtValue)
}

// Equity is position value less debt value
func (s PositionState) Equity() math.LegacyDec {
	return s.PositionValue().Sub(s.DebtValue())
}

// DebtRatios returns each leg's debt value over the combined position value
func (s PositionState) DebtRatios() (stable, asset math.LegacyDec) {
	pv := s.PositionValue()
	if !pv.IsPositive() {
		return math.LegacyZeroDec(), math.LegacyZeroDec()
	}
	return s.Stable.DebtValue.Quo(pv), s.Asset.DebtValue.Quo(pv)
}

// VaultView is the read model of a delta-neutral vault
type VaultView struct {
	Vault      DeltaNeutralVault `json:"vault"`
	State      PositionState     `json:"state"`
	Equity     math.LegacyDec    `json:"equity"`
	SharePrice math.LegacyDec    `json:"share_price"`
}
