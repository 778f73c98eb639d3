package types

import (
	"cosmossdk.io/math"
)

// SecondsPerYear converts a borrow APR into a per-second rate
const SecondsPerYear = 365 * 24 * 60 * 60

// Kink is one point of the borrow APR curve
type Kink struct {
	Utilization math.LegacyDec `json:"utilization"`
	APR         math.LegacyDec `json:"apr"`
}

// InterestModel is a piecewise-linear borrow APR over utilization. The first kink
// sits at 0% utilization and the last at 100%.
type InterestModel struct {
	Kinks []Kink `json:"kinks"`
}

// TripleSlopeModel returns the default curve: 0% to 20% APR up to 60% utilization,
// flat at 20% up to 90%, then steeply up to 150% at full utilization.
func TripleSlopeModel() InterestModel {
	return InterestModel{Kinks: []Kink{
		{Utilization: math.LegacyZeroDec(), APR: math.LegacyZeroDec()},
		{Utilization: math.LegacyNewDecWithPrec(60, 2), APR: math.LegacyNewDecWithPrec(20, 2)},
		{Utilization: math.LegacyNewDecWithPrec(90, 2), APR: math.LegacyNewDecWithPrec(20, 2)},
		{Utilization: math.LegacyOneDec(), APR: math.LegacyNewDecWithPrec(150, 2)},
	}}
}

// Validate checks the curve spans [0, 1] with strictly increasing utilization
func (m InterestModel) Validate() error {
	if len(m.Kinks) < 2 {
		return ErrInvalidConfig.Wrap("interest model needs at least two kinks")
	}
	for i, k := range m.Kinks {
		if k.Utilization.IsNil() || k.APR.IsNil() || k.APR.IsNegative() {
			return ErrInvalidConfig.Wrapf("kink %d is incomplete or negative", i)
		}
		if i > 0 && !k.Utilization.GT(m.Kinks[i-1].Utilization) {
			return ErrInvalidConfig.Wrapf("kink %d utilization must increase", i)
		}
	}
	if !m.Kinks[0].Utilization.IsZero() || !m.Kinks[len(m.Kinks)-1].Utilization.Equal(math.LegacyOneDec()) {
		return ErrInvalidConfig.Wrap("interest model must span 0% to 100% utilization")
	}
	return nil
}

// BorrowAPR returns the annual borrow rate at utilization, clamped to [0, 1]
func (m InterestModel) BorrowAPR(utilization math.LegacyDec) math.LegacyDec {
	if len(m.Kinks) == 0 {
		return math.LegacyZeroDec()
	}
	if utilization.IsNegative() {
		utilization = math.LegacyZeroDec()
	}
	if utilization.GT(math.LegacyOneDec()) {
		utilization = math.LegacyOneDec()
	}
	for i := 1; i < len(m.Kinks); i++ {
		lo, hi := m.Kinks[i-1], m.Kinks[i]
		if utilization.GT(hi.Utilization) {
			continue
		}
		span := hi.Utilization.Sub(lo.Utilization)
		progress := utilization.Sub(lo.Utilization).Quo(span)
		return lo.APR.Add(hi.APR.Sub(lo.APR).Mul(progress))
	}
	return m.Kinks[len(m.Kinks)-1].APR
}

// RatePerSecond returns the per-second borrow rate at utilization
func (m InterestModel) RatePerSecond(utilization math.LegacyDec) math.LegacyDec {
	return m.BorrowAPR(utilization).QuoInt64(SecondsPerYear)
}

// Utilization returns debt / (floating + debt), zero for an empty pool
func Utilization(floating, debt math.Int) math.LegacyDec {
	total := floating.Add(debt)
	if !total.IsPositive() {
		return math.LegacyZeroDec()
	}
	return math.LegacyNewDecFromInt(debt).QuoInt(total)
}
