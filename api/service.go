package api

import (
	"fmt"
	"sync"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/levfarm/api/websocket"
	"github.com/openalpha/levfarm/pkg/sandbox"
	dntypes "github.com/openalpha/levfarm/x/deltaneutral/types"
	vaulttypes "github.com/openalpha/levfarm/x/vault/types"
	workertypes "github.com/openalpha/levfarm/x/worker/types"
)

// ServiceConfig tunes the in-memory chain behind the API
type ServiceConfig struct {
	// Seed opens a demo farm position and initializes the delta-neutral vault
	Seed bool
	// MaxPriceAge is the delta-neutral oracle staleness bound in seconds
	MaxPriceAge int64
	// BlockTime is how far each Advance moves the chain clock by default
	BlockTime time.Duration
}

// DefaultServiceConfig returns a seeded chain with hourly price staleness
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Seed:        true,
		MaxPriceAge: 3600,
		BlockTime:   6 * time.Second,
	}
}

// Service runs the levfarm keepers over an in-memory sandbox. Every call
// holds the lock, so keeper calls are serialized like transactions in a block.
type Service struct {
	mu      sync.Mutex
	sb      *sandbox.Sandbox
	config  ServiceConfig
	logger  log.Logger
	publish func(*websocket.Event)
}

// Status is the chain head seen by the API
type Status struct {
	Height int64 `json:"height"`
	Time   int64 `json:"time"`
}

// WorkerInfo is a worker with its unharvested farm reward
type WorkerInfo struct {
	Worker        *workertypes.Worker `json:"worker"`
	PendingReward math.Int            `json:"pending_reward"`
}

// NewService builds the fixture chain and optionally seeds demo positions
func NewService(logger log.Logger, config ServiceConfig) (*Service, error) {
	logger = logger.With("module", "api/service")
	sb, err := sandbox.New(logger)
	if err != nil {
		return nil, err
	}
	if err := sb.SetupFarm(sandbox.DefaultFarmOptions()); err != nil {
		return nil, fmt.Errorf("setup farm: %w", err)
	}
	if _, err := sb.SetupDeltaNeutral(config.MaxPriceAge); err != nil {
		return nil, fmt.Errorf("setup delta-neutral vault: %w", err)
	}

	s := &Service{
		sb:     sb,
		config: config,
		logger: logger,
	}
	if config.Seed {
		if err := s.seed(); err != nil {
			return nil, fmt.Errorf("seed: %w", err)
		}
	}
	s.drainEvents()
	return s, nil
}

// seed lets Operator reinvest the plain workers, initializes the delta-neutral
// vault and opens a 3x farm position for Farmer
func (s *Service) seed() error {
	ctx := s.sb.Ctx
	for _, id := range []string{sandbox.StableWorker, sandbox.AssetWorker} {
		worker := s.sb.Worker.GetWorker(ctx, id)
		cfg := worker.Config
		cfg.Reinvestors = append(cfg.Reinvestors, sandbox.Operator.String())
		if _, err := s.sb.Worker.UpdateWorkerConfig(ctx, s.sb.Authority, id, cfg); err != nil {
			return err
		}
	}

	for _, addr := range []sdk.AccAddress{sandbox.Farmer, sandbox.Operator} {
		if err := s.sb.Fund(addr, sdk.NewInt64Coin(sandbox.Stable, 1_000_000), sdk.NewInt64Coin(sandbox.Asset, 100_000)); err != nil {
			return err
		}
	}

	if _, err := s.sb.DeltaNeutral.InitPositions(ctx, sandbox.Operator, sandbox.DNVault,
		math.NewInt(100_000), math.ZeroInt(), math.ZeroInt(), nil); err != nil {
		return err
	}

	params := workertypes.EncodeParams(workertypes.AddBaseTokenOnlyParams{MinLPReceive: math.ZeroInt()})
	_, err := s.sb.Vault.Work(ctx, sandbox.Farmer, sandbox.StableVault, 0, sandbox.StableWorker,
		math.NewInt(10_000), math.NewInt(20_000), math.ZeroInt(), workertypes.StrategyAddBaseTokenOnly, params)
	return err
}

// SetPublisher routes chain events to fn, typically the websocket hub
func (s *Service) SetPublisher(fn func(*websocket.Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publish = fn
}

// drainEvents forwards the events emitted since the last drain and resets the
// event manager
func (s *Service) drainEvents() {
	ctx := s.sb.Ctx
	events := ctx.EventManager().Events()
	s.sb.Ctx = ctx.WithEventManager(sdk.NewEventManager())
	if s.publish == nil {
		return
	}
	for _, e := range events {
		attrs := make(map[string]string, len(e.Attributes))
		for _, a := range e.Attributes {
			attrs[a.Key] = a.Value
		}
		s.publish(&websocket.Event{
			Type:       e.Type,
			Height:     ctx.BlockHeight(),
			Time:       ctx.BlockTime().Unix(),
			Attributes: attrs,
		})
	}
}

// Status returns the current height and block time
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{Height: s.sb.Ctx.BlockHeight(), Time: s.sb.Ctx.BlockTime().Unix()}
}

// Advance moves the chain forward by d (the configured block time when zero)
// and runs the EndBlocker
func (s *Service) Advance(d time.Duration) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d <= 0 {
		d = s.config.BlockTime
	}
	s.sb.Advance(d)
	err := s.sb.EndBlock()
	s.drainEvents()
	return Status{Height: s.sb.Ctx.BlockHeight(), Time: s.sb.Ctx.BlockTime().Unix()}, err
}

// Vaults returns every lending vault's pool state
func (s *Service) Vaults() ([]*vaulttypes.VaultView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var views []*vaulttypes.VaultView
	for _, v := range s.sb.Vault.GetAllVaults(s.sb.Ctx) {
		view, err := s.sb.Vault.VaultView(s.sb.Ctx, v.VaultID)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// Vault returns one vault's pool state
func (s *Service) Vault(vaultID string) (*vaulttypes.VaultView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sb.Vault.VaultView(s.sb.Ctx, vaultID)
}

// Positions returns a vault's open positions, optionally filtered by owner
func (s *Service) Positions(vaultID, owner string) ([]*vaulttypes.PositionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sb.Vault.GetVault(s.sb.Ctx, vaultID) == nil {
		return nil, vaulttypes.ErrVaultNotFound.Wrap(vaultID)
	}
	var positions []*vaulttypes.Position
	if owner != "" {
		positions = s.sb.Vault.GetPositionsByOwner(s.sb.Ctx, vaultID, owner)
	} else {
		positions = s.sb.Vault.GetAllPositions(s.sb.Ctx, vaultID)
	}

	infos := make([]*vaulttypes.PositionInfo, 0, len(positions))
	for _, p := range positions {
		info, err := s.sb.Vault.PositionInfo(s.sb.Ctx, vaultID, p.ID)
		if err != nil {
			return nil, err
		}
		// closed
		if info.Debt.IsZero() && info.Health.IsZero() {
			continue
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Position returns one position's debt and health
func (s *Service) Position(vaultID string, positionID uint64) (*vaulttypes.PositionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sb.Vault.PositionInfo(s.sb.Ctx, vaultID, positionID)
}

// AtRisk returns positions whose debt/health ratio is at least ratio
func (s *Service) AtRisk(vaultID string, ratio math.LegacyDec) ([]*vaulttypes.PositionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sb.Vault.AtRiskPositions(s.sb.Ctx, vaultID, ratio)
}

// Kills returns a vault's kill records
func (s *Service) Kills(vaultID string) ([]*vaulttypes.KillRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sb.Vault.GetVault(s.sb.Ctx, vaultID) == nil {
		return nil, vaulttypes.ErrVaultNotFound.Wrap(vaultID)
	}
	return s.sb.Vault.GetKillRecords(s.sb.Ctx, vaultID), nil
}

// Workers returns every worker with its pending reward
func (s *Service) Workers() []WorkerInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	workers := s.sb.Worker.GetAllWorkers(s.sb.Ctx)
	infos := make([]WorkerInfo, 0, len(workers))
	for _, w := range workers {
		infos = append(infos, WorkerInfo{
			Worker:        w,
			PendingReward: s.sb.Worker.PendingReward(s.sb.Ctx, w.WorkerID),
		})
	}
	return infos
}

// DeltaNeutralVaults returns every delta-neutral vault's view
func (s *Service) DeltaNeutralVaults() ([]*dntypes.VaultView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var views []*dntypes.VaultView
	for _, v := range s.sb.DeltaNeutral.GetAllVaults(s.sb.Ctx) {
		view, err := s.sb.DeltaNeutral.View(s.sb.Ctx, v.DNID)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// DeltaNeutral returns one delta-neutral vault's view
func (s *Service) DeltaNeutral(dnID string) (*dntypes.VaultView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sb.DeltaNeutral.View(s.sb.Ctx, dnID)
}

// Kill liquidates a position as the API's killer account
func (s *Service) Kill(vaultID string, positionID uint64) (*vaulttypes.KillRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.sb.Vault.Kill(s.sb.Ctx, sandbox.Killer, vaultID, positionID)
	s.drainEvents()
	return rec, err
}

// Reinvest compounds a worker's reward as the API's operator account
func (s *Service) Reinvest(workerID string, minSwapOut math.Int) (*workertypes.ReinvestResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.sb.Worker.Reinvest(s.sb.Ctx, sandbox.Operator, workerID, minSwapOut)
	s.drainEvents()
	return res, err
}

// SetPrice posts an oracle price as the authority
func (s *Service) SetPrice(denom string, price math.LegacyDec) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.sb.SetPrice(denom, price)
	s.drainEvents()
	return err
}
