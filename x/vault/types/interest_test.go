package types

import (
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"
)

func dec(s string) math.LegacyDec {
	return math.LegacyMustNewDecFromStr(s)
}

// TestTripleSlopeBorrowAPR tests each slope of the borrow rate curve
func TestTripleSlopeBorrowAPR(t *testing.T) {
	m := TripleSlopeModel()
	require.NoError(t, m.Validate())

	tests := []struct {
		name        string
		utilization string
		apr         string
	}{
		{"empty pool", "0", "0"},
		{"first slope midpoint", "0.3", "0.1"},
		{"first kink", "0.6", "0.2"},
		{"flat segment", "0.75", "0.2"},
		{"second kink", "0.9", "0.2"},
		{"steep slope midpoint", "0.95", "0.85"},
		{"fully utilized", "1", "1.5"},
		{"clamped above one", "1.2", "1.5"},
		{"clamped below zero", "-0.1", "0"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.True(t, dec(tc.apr).Equal(m.BorrowAPR(dec(tc.utilization))),
				"utilization %s: got %s", tc.utilization, m.BorrowAPR(dec(tc.utilization)))
		})
	}
}

// TestRatePerSecond tests APR conversion to a per second rate
func TestRatePerSecond(t *testing.T) {
	m := TripleSlopeModel()
	rate := m.RatePerSecond(dec("0.6"))
	require.True(t, dec("0.2").QuoInt64(SecondsPerYear).Equal(rate))
	require.True(t, m.RatePerSecond(math.LegacyZeroDec()).IsZero())
}

// TestInterestModelValidate tests interest model bounds
func TestInterestModelValidate(t *testing.T) {
	tests := []struct {
		name  string
		model InterestModel
		ok    bool
	}{
		{"default", TripleSlopeModel(), true},
		{"single kink", InterestModel{Kinks: []Kink{{Utilization: dec("0"), APR: dec("0")}}}, false},
		{"does not start at zero", InterestModel{Kinks: []Kink{
			{Utilization: dec("0.1"), APR: dec("0")},
			{Utilization: dec("1"), APR: dec("1")},
		}}, false},
		{"does not end at one", InterestModel{Kinks: []Kink{
			{Utilization: dec("0"), APR: dec("0")},
			{Utilization: dec("0.9"), APR: dec("1")},
		}}, false},
		{"utilization not increasing", InterestModel{Kinks: []Kink{
			{Utilization: dec("0"), APR: dec("0")},
			{Utilization: dec("0.5"), APR: dec("0.1")},
			{Utilization: dec("0.5"), APR: dec("0.2")},
			{Utilization: dec("1"), APR: dec("1")},
		}}, false},
		{"negative apr", InterestModel{Kinks: []Kink{
			{Utilization: dec("0"), APR: dec("-0.1")},
			{Utilization: dec("1"), APR: dec("1")},
		}}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.model.Validate()
			if tc.ok {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, ErrInvalidConfig)
			}
		})
	}
}

// TestUtilization tests utilization at the edges
func TestUtilization(t *testing.T) {
	require.True(t, Utilization(math.ZeroInt(), math.ZeroInt()).IsZero())
	require.True(t, dec("0.25").Equal(Utilization(math.NewInt(300), math.NewInt(100))))
	require.True(t, math.LegacyOneDec().Equal(Utilization(math.ZeroInt(), math.NewInt(5))))
}

// TestDebtShareConversion tests debt share and value conversion
func TestDebtShareConversion(t *testing.T) {
	v := NewVault("usd", "uusd", DefaultVaultConfig(), 0)
	// first borrower gets shares 1:1
	require.Equal(t, math.NewInt(100), v.DebtValueToShare(math.NewInt(100)))

	v.TotalDebtShare = math.NewInt(100)
	v.TotalDebtValue = math.NewInt(150)
	require.Equal(t, math.NewInt(150), v.DebtShareToValue(math.NewInt(100)))
	require.Equal(t, math.NewInt(20), v.DebtValueToShare(math.NewInt(30)))
}
