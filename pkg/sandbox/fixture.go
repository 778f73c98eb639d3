package sandbox

import (
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	ammtypes "github.com/openalpha/levfarm/x/amm/types"
	dntypes "github.com/openalpha/levfarm/x/deltaneutral/types"
	vaulttypes "github.com/openalpha/levfarm/x/vault/types"
	workertypes "github.com/openalpha/levfarm/x/worker/types"
)

// Fixture denoms and ids
const (
	Stable = "uusd"
	Asset  = "uatom"
	Reward = "ureward"

	StableVault = "usd"
	AssetVault  = "atom"
	FarmID      = "usd-atom"

	StableWorker   = "usd-atom"
	AssetWorker    = "atom-usd"
	DNStableWorker = "dn-usd-atom"
	DNAssetWorker  = "dn-atom-usd"
	DNVault        = "dn-atom"
)

// Fixture accounts
var (
	LiquidityProvider = Addr("lp")
	Lender            = Addr("lender")
	Farmer            = Addr("farmer")
	Killer            = Addr("killer")
	Treasury          = Addr("treasury")
	Operator          = Addr("operator")
)

// FarmOptions tunes the standard fixture
type FarmOptions struct {
	WorkFactor      uint32
	KillFactor      uint32
	KillPrizeBps    uint32
	KillTreasuryBps uint32
	RewardPerSecond int64
	LenderStable    int64
	LenderAsset     int64
}

// DefaultFarmOptions returns a 70%/80% work/kill factor farm with funded vaults
func DefaultFarmOptions() FarmOptions {
	return FarmOptions{
		WorkFactor:      7000,
		KillFactor:      8000,
		KillPrizeBps:    500,
		KillTreasuryBps: 0,
		RewardPerSecond: 1000,
		LenderStable:    5_000_000,
		LenderAsset:     500_000,
	}
}

// SetupFarm creates the usd/atom pool and farm, reward pools, prices, both lending
// vaults funded by Lender and a worker on each side
func (s *Sandbox) SetupFarm(opts FarmOptions) error {
	if err := s.Fund(LiquidityProvider,
		sdk.NewInt64Coin(Stable, 100_000_000),
		sdk.NewInt64Coin(Asset, 10_000_000),
		sdk.NewInt64Coin(Reward, 10_000_000),
	); err != nil {
		return err
	}
	for _, pair := range [][2]sdk.Coin{
		{sdk.NewInt64Coin(Stable, 10_000_000), sdk.NewInt64Coin(Asset, 1_000_000)},
		{sdk.NewInt64Coin(Reward, 1_000_000), sdk.NewInt64Coin(Stable, 2_000_000)},
		{sdk.NewInt64Coin(Reward, 1_000_000), sdk.NewInt64Coin(Asset, 200_000)},
	} {
		if _, _, err := s.Amm.CreatePool(s.Ctx, LiquidityProvider, pair[0], pair[1], 25); err != nil {
			return err
		}
	}
	for denom, price := range map[string]math.LegacyDec{
		Stable: math.LegacyOneDec(),
		Asset:  math.LegacyNewDec(10),
		Reward: math.LegacyNewDec(2),
	} {
		if err := s.SetPrice(denom, price); err != nil {
			return err
		}
	}
	if _, err := s.Amm.CreateFarm(s.Ctx, FarmID, ammtypes.PoolIDFor(Stable, Asset), Reward, math.NewInt(opts.RewardPerSecond), 0); err != nil {
		return err
	}

	params := vaulttypes.WorkerParams{WorkFactor: opts.WorkFactor, KillFactor: opts.KillFactor, AcceptDebt: true}
	for _, v := range []struct {
		id, denom string
		workers   []string
		lend      int64
	}{
		{StableVault, Stable, []string{StableWorker, DNStableWorker}, opts.LenderStable},
		{AssetVault, Asset, []string{AssetWorker, DNAssetWorker}, opts.LenderAsset},
	} {
		cfg := vaulttypes.DefaultVaultConfig()
		cfg.KillPrizeBps = opts.KillPrizeBps
		cfg.KillTreasuryBps = opts.KillTreasuryBps
		cfg.Treasury = Treasury.String()
		cfg.Killers = []string{Killer.String()}
		cfg.ApprovedAddStrategies = []string{workertypes.StrategyAddBaseTokenOnly, workertypes.StrategyAddTwoSidesOptimal}
		for _, w := range v.workers {
			cfg.Workers[w] = params
		}
		if _, err := s.Vault.CreateVault(s.Ctx, s.Authority, v.id, v.denom, cfg); err != nil {
			return err
		}
		if v.lend > 0 {
			if err := s.Fund(Lender, sdk.NewInt64Coin(v.denom, v.lend)); err != nil {
				return err
			}
			if _, err := s.Vault.Deposit(s.Ctx, Lender, v.id, math.NewInt(v.lend)); err != nil {
				return err
			}
		}
	}

	for _, w := range []struct {
		id, vault, base, farm, harvester string
	}{
		{StableWorker, StableVault, Stable, Asset, ""},
		{AssetWorker, AssetVault, Asset, Stable, ""},
		{DNStableWorker, StableVault, Stable, Asset, dntypes.ModuleName},
		{DNAssetWorker, AssetVault, Asset, Stable, dntypes.ModuleName},
	} {
		cfg := workertypes.DefaultWorkerConfig(w.vault, w.base, w.farm, FarmID, Reward)
		cfg.Treasury = Treasury.String()
		cfg.HarvestRecipient = w.harvester
		if _, err := s.Worker.CreateWorker(s.Ctx, s.Authority, w.id, cfg); err != nil {
			return err
		}
	}
	return nil
}

// SetupDeltaNeutral creates DNVault over the dedicated workers with Operator allowed
// to init, rebalance and reinvest
func (s *Sandbox) SetupDeltaNeutral(maxPriceAge int64) (*dntypes.DeltaNeutralVault, error) {
	cfg := dntypes.DefaultDeltaNeutralConfig(Treasury.String(), maxPriceAge)
	cfg.ReinvestPath = []string{Reward, Stable}
	cfg.Operators = []string{Operator.String()}
	cfg.Rebalancers = []string{Operator.String()}
	cfg.Reinvestors = []string{Operator.String()}
	return s.DeltaNeutral.CreateVault(s.Ctx, s.Authority, DNVault,
		StableVault, DNStableWorker, AssetVault, DNAssetWorker, cfg)
}
