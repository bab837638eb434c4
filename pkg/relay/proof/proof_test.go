package proof

import (
	"context"
	"testing"

	"github.com/joinquantish/privacy-relay/pkg/field"
)

func TestLocalProverDeterministic(t *testing.T) {
	req := Request{
		Root:        field.Hash2(field.Zero(), field.Zero()),
		TotalIn:     100,
		TotalOut:    200,
		MarketID:    "MKT-A",
		Side:        field.SideYes,
		Commitments: []field.Element{*new(field.Element).SetUint64(1), *new(field.Element).SetUint64(2)},
	}

	r1, err := LocalProver{}.Generate(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	r2, err := LocalProver{}.Generate(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if r1.ProofBlob != r2.ProofBlob {
		t.Error("LocalProver is not deterministic")
	}
	if !r1.Verified {
		t.Error("expected LocalProver to always report verified")
	}
	if len(r1.PublicInputs) != 3 {
		t.Errorf("expected 3 public inputs, got %d", len(r1.PublicInputs))
	}
}

func TestLocalProverSensitiveToCommitments(t *testing.T) {
	base := Request{
		Root:        field.Hash2(field.Zero(), field.Zero()),
		TotalIn:     100,
		TotalOut:    200,
		Commitments: []field.Element{*new(field.Element).SetUint64(1)},
	}
	r1, _ := LocalProver{}.Generate(context.Background(), base)

	mutated := base
	mutated.Commitments = []field.Element{*new(field.Element).SetUint64(2)}
	r2, _ := LocalProver{}.Generate(context.Background(), mutated)

	if r1.ProofBlob == r2.ProofBlob {
		t.Error("expected differing commitments to change the proof blob")
	}
}
