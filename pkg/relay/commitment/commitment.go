// Package commitment implements the relay's CommitmentBuilder: the
// per-order commitment hash and distribution hash that bind an order to a
// proof without revealing its contents to third parties.
//
// The composition here is a fixed protocol constant shared with the
// off-process proving circuit this relay feeds. It must never change
// without updating both sides in lockstep, so CommitmentHash is pinned
// against a literal fixed-vector constant in commitment_test.go, not just
// against its own determinism and field-sensitivity properties.
package commitment

import (
	"github.com/joinquantish/privacy-relay/pkg/field"
	"github.com/joinquantish/privacy-relay/pkg/relayerr"
)

// Destination is one entry of an order's share-distribution plan: address
// plus its allocation in basis points of the order's eventual shares.
type Destination struct {
	Address string
	Bps     uint32
}

// Order is the subset of order fields the commitment binds.
type Order struct {
	MarketID     string
	Side         field.Side
	UsdcAmount   string
	Distribution []Destination
	Salt         string
}

// DistributionHash hashes an ordered distribution plan. A single-
// destination distribution collapses to the bare encoded address field,
// preserved for backward compatibility with orders submitted before
// multi-destination distributions existed.
func DistributionHash(dist []Destination) (field.Element, error) {
	if len(dist) == 0 {
		return field.Element{}, relayerr.New(relayerr.BadInput, "distribution must not be empty")
	}
	if len(dist) == 1 {
		return field.AddressField(dist[0].Address)
	}
	parts := make([]field.Element, len(dist))
	for i, d := range dist {
		addr, err := field.AddressField(d.Address)
		if err != nil {
			return field.Element{}, err
		}
		var bps field.Element
		bps.SetUint64(uint64(d.Bps))
		parts[i] = field.Hash2(addr, bps)
	}
	return field.HashN(parts), nil
}

// CommitmentHash binds an order's market, side, amount, primary
// destination address, salt, and full distribution into a single field
// element suitable for inclusion as a Merkle leaf.
func CommitmentHash(o Order) (field.Element, error) {
	ticker, err := field.TickerField(o.MarketID)
	if err != nil {
		return field.Element{}, err
	}
	side := field.SideField(o.Side)
	amount, err := field.AmountField(o.UsdcAmount)
	if err != nil {
		return field.Element{}, err
	}
	if len(o.Distribution) == 0 {
		return field.Element{}, relayerr.New(relayerr.BadInput, "distribution must not be empty")
	}
	primary, err := field.AddressField(o.Distribution[0].Address)
	if err != nil {
		return field.Element{}, err
	}
	salt, err := field.SaltField(o.Salt)
	if err != nil {
		return field.Element{}, err
	}
	distHash, err := DistributionHash(o.Distribution)
	if err != nil {
		return field.Element{}, err
	}
	core := field.Hash5(ticker, side, amount, primary, salt)
	return field.Hash2(core, distHash), nil
}

// ValidateDistribution enforces I2: basis points sum to 10000, every share
// is strictly positive, the plan is non-empty, and no more than 10
// destinations are named.
func ValidateDistribution(dist []Destination) error {
	if len(dist) == 0 {
		return relayerr.New(relayerr.BadInput, "distribution must not be empty")
	}
	if len(dist) > 10 {
		return relayerr.New(relayerr.BadInput, "distribution has %d destinations, max 10", len(dist))
	}
	var sum uint64
	for _, d := range dist {
		if d.Bps == 0 {
			return relayerr.New(relayerr.BadInput, "distribution bps must be positive, got 0 for %q", d.Address)
		}
		if !field.ValidAddress(d.Address) {
			return relayerr.New(relayerr.BadInput, "invalid destination address %q", d.Address)
		}
		sum += uint64(d.Bps)
	}
	if sum != 10000 {
		return relayerr.New(relayerr.BadInput, "distribution bps sum to %d, want 10000", sum)
	}
	return nil
}
