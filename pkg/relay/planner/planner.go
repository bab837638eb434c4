// Package planner implements the relay's DistributionPlanner: pro-rata
// per-order allocation of a venue fill across funded orders, and the
// per-destination share split within each order.
package planner

import (
	"math/big"

	"github.com/joinquantish/privacy-relay/pkg/relayerr"
)

// Destination mirrors an order's distribution entry for allocation
// purposes; it is duplicated here rather than imported from store to
// keep the planner free of any dependency on batch/order storage.
type Destination struct {
	Address string
	Bps     uint32
}

// FundedOrder is the subset of order state the planner needs.
type FundedOrder struct {
	OrderID      string
	UsdcMicros   int64
	Distribution []Destination
}

// VenueResult is the subset of a venue fill the planner allocates.
type VenueResult struct {
	ActualUsdcSpentMicros int64
	ActualSharesReceived  int64
}

// OrderAllocation is one funded order's share of a venue fill.
type OrderAllocation struct {
	OrderID                  string
	EffectiveUsdcSpentMicros int64
	SharesReceived           int64
	RefundAmountMicros       int64
	Destinations             []DestinationAllocation
}

// DestinationAllocation is the share of an order's allocation going to
// one destination address.
type DestinationAllocation struct {
	Address string
	Bps     uint32
	Shares  int64
}

// Plan computes the pro-rata allocation described in the distribution
// design: each funded order receives a share of actualSharesReceived and
// actualUsdcSpent proportional to its own usdcMicros over the funded
// total, with any USDC below proration effectively spent returned to the
// order as a refund. Within each order, shares are split across
// destinations by basis points, and the last destination absorbs any
// rounding residual so the per-order destination shares sum exactly to
// the order's shares.
//
// Orders are returned in the same order they were passed in, which
// callers must keep aligned with Merkle leaf order.
func Plan(orders []FundedOrder, result VenueResult) ([]OrderAllocation, error) {
	if len(orders) == 0 {
		return nil, relayerr.New(relayerr.BadInput, "cannot plan a distribution over zero funded orders")
	}

	var total int64
	for _, o := range orders {
		total += o.UsdcMicros
	}
	if total <= 0 {
		return nil, relayerr.New(relayerr.BadInput, "funded total must be positive")
	}

	out := make([]OrderAllocation, len(orders))
	for i, o := range orders {
		spent := proRata(o.UsdcMicros, result.ActualUsdcSpentMicros, total)
		shares := proRata(o.UsdcMicros, result.ActualSharesReceived, total)
		refund := o.UsdcMicros - spent

		dests, err := splitShares(shares, o.Distribution)
		if err != nil {
			return nil, err
		}

		out[i] = OrderAllocation{
			OrderID:                  o.OrderID,
			EffectiveUsdcSpentMicros: spent,
			SharesReceived:           shares,
			RefundAmountMicros:       refund,
			Destinations:             dests,
		}
	}
	return out, nil
}

// proRata computes floor(part * whole / total) using arbitrary-precision
// integers so that large micro-USDC or share totals never overflow.
func proRata(part, whole, total int64) int64 {
	if whole == 0 || total == 0 {
		return 0
	}
	p := big.NewInt(part)
	w := big.NewInt(whole)
	t := big.NewInt(total)
	p.Mul(p, w)
	p.Div(p, t)
	return p.Int64()
}

// splitShares divides shares across dist by basis points, with the last
// destination absorbing the rounding residual so the split sums exactly
// to shares. dist is assumed already validated (bps sum to 10000).
func splitShares(shares int64, dist []Destination) ([]DestinationAllocation, error) {
	if len(dist) == 0 {
		return nil, relayerr.New(relayerr.Internal, "order has no distribution to split shares across")
	}
	out := make([]DestinationAllocation, len(dist))
	var allocated int64
	for i, d := range dist[:len(dist)-1] {
		s := proRata(int64(d.Bps), shares, 10000)
		out[i] = DestinationAllocation{Address: d.Address, Bps: d.Bps, Shares: s}
		allocated += s
	}
	last := dist[len(dist)-1]
	out[len(dist)-1] = DestinationAllocation{
		Address: last.Address,
		Bps:     last.Bps,
		Shares:  shares - allocated,
	}
	return out, nil
}

// RefundPrimary returns the address refunds are always returned to: the
// first entry of the order's distribution.
func RefundPrimary(dist []Destination) string {
	if len(dist) == 0 {
		return ""
	}
	return dist[0].Address
}
