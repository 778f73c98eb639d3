package types

import (
	"encoding/json"

	"cosmossdk.io/math"
)

// AddBaseTokenOnlyParams converts base into LP with an optimal single-sided swap
type AddBaseTokenOnlyParams struct {
	MinLPReceive math.Int `json:"min_lp_receive"`
}

// AddTwoSidesOptimalParams adds base plus FarmTokenAmount pulled from the owner
type AddTwoSidesOptimalParams struct {
	FarmTokenAmount math.Int `json:"farm_token_amount"`
	MinLPReceive    math.Int `json:"min_lp_receive"`
}

// LiquidateParams converts the whole LP claim to base
type LiquidateParams struct {
	MinBaseReceive math.Int `json:"min_base_receive"`
}

// PartialCloseLiquidateParams converts part of the LP claim to base
type PartialCloseLiquidateParams struct {
	LPToLiquidate  math.Int `json:"lp_to_liquidate"`
	MaxDebtRepay   math.Int `json:"max_debt_repay"`
	MinBaseReceive math.Int `json:"min_base_receive"`
}

// PartialCloseMinimizeTradingParams removes LP, sells only enough farming token to
// cover the debt repayment and hands the remaining farming token to the owner
type PartialCloseMinimizeTradingParams struct {
	LPToLiquidate  math.Int `json:"lp_to_liquidate"`
	MaxDebtRepay   math.Int `json:"max_debt_repay"`
	MinFarmReceive math.Int `json:"min_farm_receive"`
}

// EncodeParams marshals strategy params into the opaque blob carried by work messages
func EncodeParams(params interface{}) json.RawMessage {
	bz, _ := json.Marshal(params)
	return bz
}

// orZero returns zero for a nil Int so absent JSON fields decode as 0
func orZero(i math.Int) math.Int {
	if i.IsNil() {
		return math.ZeroInt()
	}
	return i
}

// Normalize fills absent amounts with zero
func (p *AddBaseTokenOnlyParams) Normalize() { p.MinLPReceive = orZero(p.MinLPReceive) }

// Normalize fills absent amounts with zero
func (p *AddTwoSidesOptimalParams) Normalize() {
	p.FarmTokenAmount = orZero(p.FarmTokenAmount)
	p.MinLPReceive = orZero(p.MinLPReceive)
}

// Normalize fills absent amounts with zero
func (p *LiquidateParams) Normalize() { p.MinBaseReceive = orZero(p.MinBaseReceive) }

// Normalize fills absent amounts with zero
func (p *PartialCloseLiquidateParams) Normalize() {
	p.LPToLiquidate = orZero(p.LPToLiquidate)
	p.MaxDebtRepay = orZero(p.MaxDebtRepay)
	p.MinBaseReceive = orZero(p.MinBaseReceive)
}

// Normalize fills absent amounts with zero
func (p *PartialCloseMinimizeTradingParams) Normalize() {
	p.LPToLiquidate = orZero(p.LPToLiquidate)
	p.MaxDebtRepay = orZero(p.MaxDebtRepay)
	p.MinFarmReceive = orZero(p.MinFarmReceive)
}
