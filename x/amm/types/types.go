package types

import (
	"sort"
	"strings"

	"cosmossdk.io/math"
)

const (
	// ModuleName defines the module name
	ModuleName = "amm"

	// StoreKey defines the primary module store key
	StoreKey = ModuleName

	// BpsDenominator is the basis-point scale used for swap and performance fees
	BpsDenominator = 10000

	// MinimumLiquidity is locked forever on pool creation
	MinimumLiquidity = 1000
)

// Pool is a constant-product liquidity pool over two denoms.
// DenomA always sorts before DenomB.
type Pool struct {
	PoolID   string   `json:"pool_id"`
	DenomA   string   `json:"denom_a"`
	DenomB   string   `json:"denom_b"`
	ReserveA math.Int `json:"reserve_a"`
	ReserveB math.Int `json:"reserve_b"`
	TotalLP  math.Int `json:"total_lp"`
	FeeBps   uint32   `json:"fee_bps"`
}

// PoolIDFor returns the canonical pool id for a denom pair
func PoolIDFor(denom1, denom2 string) string {
	pair := []string{denom1, denom2}
	sort.Strings(pair)
	return strings.Join(pair, "/")
}

// NewPool creates an empty pool for a pair
func NewPool(denom1, denom2 string, feeBps uint32) *Pool {
	pair := []string{denom1, denom2}
	sort.Strings(pair)
	return &Pool{
		PoolID:   PoolIDFor(denom1, denom2),
		DenomA:   pair[0],
		DenomB:   pair[1],
		ReserveA: math.ZeroInt(),
		ReserveB: math.ZeroInt(),
		TotalLP:  math.ZeroInt(),
		FeeBps:   feeBps,
	}
}

// HasDenom reports whether the pool trades the given denom
func (p *Pool) HasDenom(denom string) bool {
	return p.DenomA == denom || p.DenomB == denom
}

// Other returns the counterpart denom of the pair
func (p *Pool) Other(denom string) string {
	if p.DenomA == denom {
		return p.DenomB
	}
	return p.DenomA
}

// Reserves returns (reserveIn, reserveOut) oriented by the input denom
func (p *Pool) Reserves(denomIn string) (math.Int, math.Int) {
	if p.DenomA == denomIn {
		return p.ReserveA, p.ReserveB
	}
	return p.ReserveB, p.ReserveA
}

// ReserveOf returns the reserve of a denom
func (p *Pool) ReserveOf(denom string) math.Int {
	if p.DenomA == denom {
		return p.ReserveA
	}
	return p.ReserveB
}

// SetReserves writes reserves oriented by the input denom
func (p *Pool) SetReserves(denomIn string, reserveIn, reserveOut math.Int) {
	if p.DenomA == denomIn {
		p.ReserveA, p.ReserveB = reserveIn, reserveOut
		return
	}
	p.ReserveB, p.ReserveA = reserveIn, reserveOut
}

// SpotPrice returns the price of base denominated in quote
func (p *Pool) SpotPrice(base string) math.LegacyDec {
	rBase, rQuote := p.Reserves(base)
	if rBase.IsZero() {
		return math.LegacyZeroDec()
	}
	return math.LegacyNewDecFromInt(rQuote).QuoInt(rBase)
}

// ShareOf returns the token amounts redeemable for lp
func (p *Pool) ShareOf(lp math.Int) (math.Int, math.Int) {
	if p.TotalLP.IsZero() {
		return math.ZeroInt(), math.ZeroInt()
	}
	return lp.Mul(p.ReserveA).Quo(p.TotalLP), lp.Mul(p.ReserveB).Quo(p.TotalLP)
}

// GetAmountOut returns the output of an exact-in swap against the given reserves
func GetAmountOut(amountIn, reserveIn, reserveOut math.Int, feeBps uint32) math.Int {
	if !amountIn.IsPositive() || !reserveIn.IsPositive() || !reserveOut.IsPositive() {
		return math.ZeroInt()
	}
	amountInWithFee := amountIn.MulRaw(int64(BpsDenominator - feeBps))
	numerator := amountInWithFee.Mul(reserveOut)
	denominator := reserveIn.MulRaw(BpsDenominator).Add(amountInWithFee)
	return numerator.Quo(denominator)
}

// GetAmountIn returns the input required to receive exactly amountOut.
// It returns false when the pool cannot supply amountOut.
func GetAmountIn(amountOut, reserveIn, reserveOut math.Int, feeBps uint32) (math.Int, bool) {
	if !amountOut.IsPositive() {
		return math.ZeroInt(), true
	}
	if !reserveIn.IsPositive() || amountOut.GTE(reserveOut) {
		return math.ZeroInt(), false
	}
	numerator := reserveIn.Mul(amountOut).MulRaw(BpsDenominator)
	denominator := reserveOut.Sub(amountOut).MulRaw(int64(BpsDenominator - feeBps))
	return numerator.Quo(denominator).AddRaw(1), true
}

// Farm distributes RewardDenom to LP stakers of a pool at a constant rate
type Farm struct {
	FarmID            string         `json:"farm_id"`
	PoolID            string         `json:"pool_id"`
	RewardDenom       string         `json:"reward_denom"`
	RewardPerSecond   math.Int       `json:"reward_per_second"`
	PerformanceFeeBps uint32         `json:"performance_fee_bps"`
	TotalStaked       math.Int       `json:"total_staked"`
	AccRewardPerShare math.LegacyDec `json:"acc_reward_per_share"`
	LastRewardTime    int64          `json:"last_reward_time"`
}

// Accrue advances the reward index to now
func (f *Farm) Accrue(now int64) {
	if now <= f.LastRewardTime {
		return
	}
	if f.TotalStaked.IsPositive() {
		reward := f.RewardPerSecond.MulRaw(now - f.LastRewardTime)
		f.AccRewardPerShare = f.AccRewardPerShare.Add(
			math.LegacyNewDecFromInt(reward).QuoInt(f.TotalStaked),
		)
	}
	f.LastRewardTime = now
}

// Stake is an LP balance deposited in a farm by a stake reference
type Stake struct {
	FarmID     string         `json:"farm_id"`
	StakeRef   string         `json:"stake_ref"`
	Amount     math.Int       `json:"amount"`
	RewardDebt math.LegacyDec `json:"reward_debt"`
	Unclaimed  math.Int       `json:"unclaimed"`
}

// NewStake returns an empty stake record
func NewStake(farmID, stakeRef string) *Stake {
	return &Stake{
		FarmID:     farmID,
		StakeRef:   stakeRef,
		Amount:     math.ZeroInt(),
		RewardDebt: math.LegacyZeroDec(),
		Unclaimed:  math.ZeroInt(),
	}
}

// Pending returns the gross reward owed to the stake under the farm's current index
func (s *Stake) Pending(f *Farm) math.Int {
	earned := f.AccRewardPerShare.MulInt(s.Amount).Sub(s.RewardDebt)
	if earned.IsNegative() {
		earned = math.LegacyZeroDec()
	}
	return s.Unclaimed.Add(earned.TruncateInt())
}

// Settle moves earned reward into Unclaimed and resets the debt against the index
func (s *Stake) Settle(f *Farm) {
	s.Unclaimed = s.Pending(f)
	s.RewardDebt = f.AccRewardPerShare.MulInt(s.Amount)
}

// PriceRecord is a USD price for a denom's base unit
type PriceRecord struct {
	Denom     string         `json:"denom"`
	Price     math.LegacyDec `json:"price"`
	UpdatedAt int64          `json:"updated_at"`
	Feeder    string         `json:"feeder"`
}
