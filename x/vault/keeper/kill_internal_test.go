package keeper

import (
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/openalpha/levfarm/x/vault/types"
)

// TestSplitKill tests how liquidated value is divided
func TestSplitKill(t *testing.T) {
	tests := []struct {
		name                              string
		value, debt                       int64
		prizeBps, treasuryBps             uint32
		bounty, fee, repaid, surplus, bad int64
	}{
		{"surplus to owner", 100, 80, 1000, 100, 10, 1, 80, 9, 0},
		{"exact cover", 100, 89, 1000, 100, 10, 1, 89, 0, 0},
		{"bad debt", 100, 120, 1000, 100, 10, 1, 89, 0, 31},
		{"no treasury", 100, 80, 500, 0, 5, 0, 80, 15, 0},
		{"nothing recovered", 0, 50, 1000, 100, 0, 0, 0, 0, 50},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			bounty, fee, repaid, surplus, bad := splitKill(math.NewInt(tc.value), math.NewInt(tc.debt), tc.prizeBps, tc.treasuryBps)
			requireInt(t, tc.bounty, bounty)
			requireInt(t, tc.fee, fee)
			requireInt(t, tc.repaid, repaid)
			requireInt(t, tc.surplus, surplus)
			requireInt(t, tc.bad, bad)
			// every unit of value is accounted for
			requireInt(t, tc.value, bounty.Add(fee).Add(repaid).Add(surplus))
		})
	}
}

func requireInt(t *testing.T, expected int64, actual math.Int) {
	t.Helper()
	require.True(t, actual.Equal(math.NewInt(expected)), "expected %d, got %s", expected, actual)
}

// TestKillable tests the kill factor threshold
func TestKillable(t *testing.T) {
	require.False(t, killable(math.ZeroInt(), math.NewInt(100), 8000))
	require.False(t, killable(math.NewInt(80), math.NewInt(100), 8000))
	require.True(t, killable(math.NewInt(81), math.NewInt(100), 8000))
	require.True(t, killable(math.NewInt(1), math.ZeroInt(), 8000))
}

// TestRiskIndexOrdering tests that the risk index walks positions by descending debt ratio
func TestRiskIndexOrdering(t *testing.T) {
	idx := newRiskIndex()
	for i, ratio := range []string{"0.5", "0.9", "0.7", "0.9"} {
		idx.insert(&types.PositionInfo{
			Position:  types.Position{ID: uint64(i + 1)},
			DebtRatio: math.LegacyMustNewDecFromStr(ratio),
		})
	}
	require.Equal(t, 4, idx.Len())

	var got []uint64
	idx.above(math.LegacyMustNewDecFromStr("0.7"), func(info *types.PositionInfo) bool {
		got = append(got, info.Position.ID)
		return true
	})
	require.Equal(t, []uint64{2, 4, 3}, got)
}
