package types

import (
	"sync"

	"cosmossdk.io/errors"
)

// CallPhase is the execution phase of a guarded entry point
type CallPhase int

const (
	PhaseIdle CallPhase = iota
	PhaseInProgress
	PhaseSettling
)

func (p CallPhase) String() string {
	switch p {
	case PhaseInProgress:
		return "in_progress"
	case PhaseSettling:
		return "settling"
	default:
		return "idle"
	}
}

// CallGuard rejects re-entry into a key until the running call exits
type CallGuard struct {
	mu     sync.Mutex
	phases map[string]CallPhase
	err    *errors.Error
}

// NewCallGuard creates a guard that fails re-entry with err
func NewCallGuard(err *errors.Error) *CallGuard {
	return &CallGuard{phases: make(map[string]CallPhase), err: err}
}

// Enter moves key from Idle to InProgress
func (g *CallGuard) Enter(key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if phase := g.phases[key]; phase != PhaseIdle {
		return g.err.Wrapf("%s is %s", key, phase)
	}
	g.phases[key] = PhaseInProgress
	return nil
}

// Settle marks that external calls for key are done and final checks run
func (g *CallGuard) Settle(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.phases[key]; ok {
		g.phases[key] = PhaseSettling
	}
}

// Exit returns key to Idle
func (g *CallGuard) Exit(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.phases, key)
}

// Phase returns the current phase of key
func (g *CallGuard) Phase(key string) CallPhase {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.phases[key]
}
