package keeper

import (
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/openalpha/levfarm/x/deltaneutral/types"
)

func dec(s string) math.LegacyDec {
	return math.LegacyMustNewDecFromStr(s)
}

// TestWithin tests the basis point tolerance helper
func TestWithin(t *testing.T) {
	require.True(t, within(dec("102"), dec("100"), 200))
	require.True(t, within(dec("98"), dec("100"), 200))
	require.False(t, within(dec("102.01"), dec("100"), 200))
	require.True(t, within(dec("0"), dec("0"), 0))
	require.False(t, within(dec("0.0001"), dec("0"), 10_000))

	require.True(t, withinAbs(dec("0.503"), dec("0.5"), 30))
	require.False(t, withinAbs(dec("0.5031"), dec("0.5"), 30))
	require.True(t, withinAbs(dec("0.1637"), dec("0.1667"), 30))
}

// TestTargetDebtRatios tests target leverage per leg
func TestTargetDebtRatios(t *testing.T) {
	tests := []struct {
		leverage uint32
		stable   string
	}{
		{2, "0"},
		{3, "0.166666666666666667"},
		{4, "0.25"},
		{6, "0.333333333333333333"},
	}
	for _, tc := range tests {
		stable, asset := targetDebtRatios(tc.leverage)
		require.True(t, dec(tc.stable).Equal(stable), "leverage %d: got %s", tc.leverage, stable)
		require.True(t, dec("0.5").Equal(asset))
	}
}

// TestDrift tests the reason reported for each kind of drift
func TestDrift(t *testing.T) {
	k := &Keeper{}
	vault := &types.DeltaNeutralVault{Config: types.DefaultDeltaNeutralConfig("", 60)}
	leg := func(value, debt string) types.LegState {
		return types.LegState{PositionValue: dec(value), DebtValue: dec(debt)}
	}
	price := math.LegacyOneDec()

	tests := []struct {
		name          string
		stable, asset types.LegState
		reason        string
	}{
		{"on target", leg("100", "50"), leg("200", "150"), ""},
		{"over levered", leg("100", "60"), leg("200", "160"), "position value"},
		{"stable debt heavy", leg("100", "52"), leg("200", "148"), "stable debt ratio"},
		{"underwater", leg("100", "150"), leg("200", "200"), "non-positive equity"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			state := types.PositionState{Stable: tc.stable, Asset: tc.asset, StablePrice: price, AssetPrice: price}
			require.Equal(t, tc.reason, k.drift(vault, state))
		})
	}
}

// TestLegAtRisk tests leg debt ratio against its kill factor
func TestLegAtRisk(t *testing.T) {
	require.False(t, legAtRisk(types.LegState{Debt: math.ZeroInt(), Health: math.ZeroInt()}, 6800))
	require.False(t, legAtRisk(types.LegState{Debt: math.NewInt(67), Health: math.NewInt(100)}, 6800))
	require.True(t, legAtRisk(types.LegState{Debt: math.NewInt(68), Health: math.NewInt(100)}, 6800))
}
