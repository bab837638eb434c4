// Package venue defines the relay's VenueExecutor boundary: the
// pluggable aggregate-trade collaborator the relay treats as an external
// system (quote, swap, confirm). SimVenue is a reference implementation
// used for local development and tests; production deployments wire in
// a real market-data and trading adapter behind the same interface.
package venue

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/joinquantish/privacy-relay/pkg/field"
	"github.com/joinquantish/privacy-relay/pkg/relayerr"
)

// MarketInfo is the static configuration of a prediction-market ticker.
type MarketInfo struct {
	Title    string
	YesPrice float64
	NoPrice  float64
	YesMint  string
	NoMint   string
	Status   string
}

// ExecuteResult is the outcome of an aggregate trade.
type ExecuteResult struct {
	UsdcSpentMicros int64
	SharesReceived  int64
	VenueTx         string
	AveragePrice    float64
	FillPercentage  float64
	PartialFill     bool
}

// Canonical venue failure kinds, surfaced through relayerr so the batch
// lifecycle can map them uniformly to a failed batch.
const (
	MarketUnavailable     = "market_unavailable"
	InsufficientLiquidity = "insufficient_liquidity"
)

// Executor is the VenueExecutor boundary: given a market, side, and
// USDC budget, it executes a best-effort aggregate fill up to the
// slippage bound and confirms on-chain before returning.
type Executor interface {
	GetMarket(ctx context.Context, marketID string) (MarketInfo, error)
	Execute(ctx context.Context, marketID string, side field.Side, usdcMicros int64, slippageBps int, outputMint string) (ExecuteResult, error)
}

// SimVenue is a deterministic in-memory reference Executor: it fills
// every order completely at a configured price, useful for exercising
// the batch pipeline without a real market connection.
type SimVenue struct {
	mu      sync.Mutex
	markets map[string]MarketInfo
	rng     *rand.Rand
}

// NewSimVenue creates a SimVenue with no markets, whose synthetic tx ids
// come from a random source seeded with seed. Markets are registered with
// AddMarket.
func NewSimVenue(seed int64) *SimVenue {
	return &SimVenue{
		markets: make(map[string]MarketInfo),
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// AddMarket registers (or replaces) a market's static info.
func (v *SimVenue) AddMarket(marketID string, info MarketInfo) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.markets[marketID] = info
}

func (v *SimVenue) GetMarket(ctx context.Context, marketID string) (MarketInfo, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	info, ok := v.markets[marketID]
	if !ok {
		return MarketInfo{}, relayerr.New(relayerr.VenueFailure, "%s: unknown market %q", MarketUnavailable, marketID)
	}
	return info, nil
}

// Execute fills the requested USDC amount completely at the market's
// quoted price for the given side, confirming with a synthetic tx id.
func (v *SimVenue) Execute(ctx context.Context, marketID string, side field.Side, usdcMicros int64, slippageBps int, outputMint string) (ExecuteResult, error) {
	info, err := v.GetMarket(ctx, marketID)
	if err != nil {
		return ExecuteResult{}, err
	}
	if info.Status != "" && info.Status != "active" {
		return ExecuteResult{}, relayerr.New(relayerr.VenueFailure, "%s: market %q is %s", MarketUnavailable, marketID, info.Status)
	}

	price := info.YesPrice
	if side == field.SideNo {
		price = info.NoPrice
	}
	if price <= 0 {
		return ExecuteResult{}, relayerr.New(relayerr.VenueFailure, "%s: no price for market %q", InsufficientLiquidity, marketID)
	}

	shares := int64(float64(usdcMicros) / price)

	v.mu.Lock()
	txid := fmt.Sprintf("simvenue-%d", v.rng.Int63())
	v.mu.Unlock()

	return ExecuteResult{
		UsdcSpentMicros: usdcMicros,
		SharesReceived:  shares,
		VenueTx:         txid,
		AveragePrice:    price,
		FillPercentage:  100.0,
		PartialFill:     false,
	}, nil
}
