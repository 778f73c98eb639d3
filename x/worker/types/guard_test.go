package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestCallGuardPhases tests the idle, in progress and settling transitions of the call guard
func TestCallGuardPhases(t *testing.T) {
	g := NewCallGuard(ErrReentrantCall)
	require.Equal(t, PhaseIdle, g.Phase("usd-atom"))

	require.NoError(t, g.Enter("usd-atom"))
	require.Equal(t, PhaseInProgress, g.Phase("usd-atom"))

	err := g.Enter("usd-atom")
	require.ErrorIs(t, err, ErrReentrantCall)
	require.Contains(t, err.Error(), "in_progress")

	// other keys are independent
	require.NoError(t, g.Enter("atom-usd"))

	g.Settle("usd-atom")
	require.Equal(t, PhaseSettling, g.Phase("usd-atom"))
	require.ErrorIs(t, g.Enter("usd-atom"), ErrReentrantCall)

	g.Exit("usd-atom")
	require.Equal(t, PhaseIdle, g.Phase("usd-atom"))
	require.NoError(t, g.Enter("usd-atom"))
}

// TestCallGuardSettleWithoutEnter tests that settling an idle key is a no-op
func TestCallGuardSettleWithoutEnter(t *testing.T) {
	g := NewCallGuard(ErrReentrantCall)
	g.Settle("usd-atom")
	require.Equal(t, PhaseIdle, g.Phase("usd-atom"))
}
