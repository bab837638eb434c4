// Package proof defines the relay's ProofGenerator boundary: an
// off-process prover the relay feeds commitment and allocation data and
// whose opaque blob it stores unchanged. LocalProver is a reference
// implementation standing in for a real circuit during local runs.
package proof

import (
	"context"
	"encoding/hex"

	"github.com/joinquantish/privacy-relay/pkg/field"
)

// Allocation is the per-destination share data fed to the prover,
// ordered to match Merkle leaf order.
type Allocation struct {
	OrderID string
	Address string
	Shares  int64
	Bps     uint32
}

// Request bundles everything the relay hands to the prover for one
// batch's proving step.
type Request struct {
	Root         field.Element
	TotalIn      int64
	TotalOut     int64
	MarketID     string
	Side         field.Side
	Commitments  []field.Element
	Allocations  []Allocation
}

// Result is the prover's opaque output; the relay stores it verbatim.
type Result struct {
	ProofBlob     string
	PublicInputs  []string
	Verified      bool
}

// Generator is the ProofGenerator boundary.
type Generator interface {
	Generate(ctx context.Context, req Request) (Result, error)
}

// LocalProver is a deterministic stand-in for a real proving backend: it
// derives a "proof" by hashing the request's root, totals, and ordered
// commitments with HashEngine, so tests can assert on proof determinism
// without a real
// circuit. It always reports the proof verified.
type LocalProver struct{}

func (LocalProver) Generate(ctx context.Context, req Request) (Result, error) {
	elems := make([]field.Element, 0, len(req.Commitments)+3)
	elems = append(elems, req.Root)
	var totalIn, totalOut field.Element
	totalIn.SetInt64(req.TotalIn)
	totalOut.SetInt64(req.TotalOut)
	elems = append(elems, totalIn, totalOut)
	elems = append(elems, req.Commitments...)

	digest := field.HashN(elems)
	b := digest.Bytes()

	return Result{
		ProofBlob: "local:" + hex.EncodeToString(b[:]),
		PublicInputs: []string{
			field.ToHash32(req.Root).Hex(),
			totalIn.String(),
			totalOut.String(),
		},
		Verified: true,
	}, nil
}
