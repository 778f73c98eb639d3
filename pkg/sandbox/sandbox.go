// Package sandbox assembles every levfarm keeper over an in-memory multistore.
// Keeper tests and the API server run against it.
package sandbox

import (
	"fmt"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	"cosmossdk.io/store"
	"cosmossdk.io/store/metrics"
	storetypes "cosmossdk.io/store/types"
	cmtproto "github.com/cometbft/cometbft/proto/tendermint/types"
	dbm "github.com/cosmos/cosmos-db"
	"github.com/cosmos/cosmos-sdk/codec"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"

	"github.com/openalpha/levfarm/pkg/membank"
	ammkeeper "github.com/openalpha/levfarm/x/amm/keeper"
	ammtypes "github.com/openalpha/levfarm/x/amm/types"
	dnkeeper "github.com/openalpha/levfarm/x/deltaneutral/keeper"
	dntypes "github.com/openalpha/levfarm/x/deltaneutral/types"
	vaultkeeper "github.com/openalpha/levfarm/x/vault/keeper"
	vaulttypes "github.com/openalpha/levfarm/x/vault/types"
	workerkeeper "github.com/openalpha/levfarm/x/worker/keeper"
	workertypes "github.com/openalpha/levfarm/x/worker/types"
)

// FeeCollector receives AMM farm performance fees
const FeeCollector = "fee_collector"

// GenesisTime is the block time of a fresh sandbox
var GenesisTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Sandbox is an in-memory levfarm chain
type Sandbox struct {
	Ctx       sdk.Context
	Authority string

	Bank         *membank.Keeper
	Amm          *ammkeeper.Keeper
	Worker       *workerkeeper.Keeper
	Vault        *vaultkeeper.Keeper
	DeltaNeutral *dnkeeper.Keeper

	cms    storetypes.CommitMultiStore
	logger log.Logger
}

// New mounts the stores and wires the keepers
func New(logger log.Logger) (*Sandbox, error) {
	keys := storetypes.NewKVStoreKeys(
		membank.StoreKey,
		ammtypes.StoreKey,
		workertypes.StoreKey,
		vaulttypes.StoreKey,
		dntypes.StoreKey,
	)

	db := dbm.NewMemDB()
	cms := store.NewCommitMultiStore(db, logger, metrics.NewNoOpMetrics())
	for _, key := range keys {
		cms.MountStoreWithDB(key, storetypes.StoreTypeIAVL, db)
	}
	if err := cms.LoadLatestVersion(); err != nil {
		return nil, fmt.Errorf("load sandbox store: %w", err)
	}

	cdc := codec.NewProtoCodec(codectypes.NewInterfaceRegistry())
	authority := authtypes.NewModuleAddress("gov").String()

	bank := membank.NewKeeper(keys[membank.StoreKey])
	amm := ammkeeper.NewKeeper(cdc, keys[ammtypes.StoreKey], bank, FeeCollector, authority, logger)
	worker := workerkeeper.NewKeeper(cdc, keys[workertypes.StoreKey], bank, amm, amm, authority, logger)
	vault := vaultkeeper.NewKeeper(cdc, keys[vaulttypes.StoreKey], bank, worker, authority, logger)
	worker.SetVaultKeeper(vault)
	dn := dnkeeper.NewKeeper(cdc, keys[dntypes.StoreKey], bank, vault, worker, amm, authority, logger)

	header := cmtproto.Header{ChainID: "levfarm-sandbox", Height: 1, Time: GenesisTime}
	return &Sandbox{
		Ctx:          sdk.NewContext(cms, header, false, logger),
		Authority:    authority,
		Bank:         bank,
		Amm:          amm,
		Worker:       worker,
		Vault:        vault,
		DeltaNeutral: dn,
		cms:          cms,
		logger:       logger,
	}, nil
}

// Advance moves block time forward by d and bumps the height
func (s *Sandbox) Advance(d time.Duration) {
	header := s.Ctx.BlockHeader()
	header.Height++
	header.Time = header.Time.Add(d)
	s.Ctx = s.Ctx.WithBlockHeader(header)
}

// EndBlock runs the vault EndBlocker on the current block
func (s *Sandbox) EndBlock() error {
	return s.Vault.EndBlocker(s.Ctx)
}

// Fund mints coins straight into addr
func (s *Sandbox) Fund(addr sdk.AccAddress, coins ...sdk.Coin) error {
	return s.Bank.FundAccount(s.Ctx, addr, sdk.NewCoins(coins...))
}

// Balance returns addr's balance of denom
func (s *Sandbox) Balance(addr sdk.AccAddress, denom string) math.Int {
	return s.Bank.GetBalance(s.Ctx, addr, denom).Amount
}

// SetPrice records an oracle price as the authority
func (s *Sandbox) SetPrice(denom string, price math.LegacyDec) error {
	return s.Amm.SetPrice(s.Ctx, s.Authority, denom, price)
}

// Addr derives a deterministic test account from name
func Addr(name string) sdk.AccAddress {
	return authtypes.NewModuleAddress("account/" + name)
}
