package commitment

import (
	"testing"

	"github.com/joinquantish/privacy-relay/pkg/field"
)

const addrA = "11111111111111111111111111111111"
const addrB = "So11111111111111111111111111111111111111112"

func TestDistributionHashSingleCollapsesToAddress(t *testing.T) {
	got, err := DistributionHash([]Destination{{Address: addrA, Bps: 10000}})
	if err != nil {
		t.Fatal(err)
	}
	want, err := field.AddressField(addrA)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(&want) {
		t.Error("single-destination distribution hash did not collapse to the address field")
	}
}

func TestDistributionHashMultiDeterministic(t *testing.T) {
	dist := []Destination{
		{Address: addrA, Bps: 6000},
		{Address: addrB, Bps: 4000},
	}
	h1, err := DistributionHash(dist)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := DistributionHash(dist)
	if err != nil {
		t.Fatal(err)
	}
	if !h1.Equal(&h2) {
		t.Error("DistributionHash not deterministic")
	}

	reordered := []Destination{
		{Address: addrB, Bps: 4000},
		{Address: addrA, Bps: 6000},
	}
	h3, err := DistributionHash(reordered)
	if err != nil {
		t.Fatal(err)
	}
	if h1.Equal(&h3) {
		t.Error("DistributionHash must be order-sensitive")
	}
}

func TestCommitmentHashDeterministicAndSensitive(t *testing.T) {
	base := Order{
		MarketID:     "WILL-RAIN-TOMORROW",
		Side:         field.SideYes,
		UsdcAmount:   "10.50",
		Distribution: []Destination{{Address: addrA, Bps: 10000}},
		Salt:         "12345",
	}
	h1, err := CommitmentHash(base)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := CommitmentHash(base)
	if err != nil {
		t.Fatal(err)
	}
	if !h1.Equal(&h2) {
		t.Error("CommitmentHash not deterministic")
	}

	variants := []func(*Order){
		func(o *Order) { o.MarketID = "OTHER-MARKET" },
		func(o *Order) { o.Side = field.SideNo },
		func(o *Order) { o.UsdcAmount = "10.51" },
		func(o *Order) { o.Distribution = []Destination{{Address: addrB, Bps: 10000}} },
		func(o *Order) { o.Salt = "54321" },
	}
	for i, mutate := range variants {
		v := base
		mutate(&v)
		hv, err := CommitmentHash(v)
		if err != nil {
			t.Fatalf("variant %d: %v", i, err)
		}
		if h1.Equal(&hv) {
			t.Errorf("variant %d: commitment hash did not change", i)
		}
	}
}

// TestCommitmentHashFixedVector pins CommitmentHash for a literal order to
// an output computed independently of this package. The relational checks
// in TestCommitmentHashDeterministicAndSensitive would all still pass if
// the underlying hash engine's constants changed; this test would not.
func TestCommitmentHashFixedVector(t *testing.T) {
	o := Order{
		MarketID:     "WILL-RAIN-TOMORROW",
		Side:         field.SideYes,
		UsdcAmount:   "10.50",
		Distribution: []Destination{{Address: addrA, Bps: 10000}},
		Salt:         "12345",
	}
	got, err := CommitmentHash(o)
	if err != nil {
		t.Fatal(err)
	}

	want, ok := new(field.Element).SetString("9064814129304408854692296263597514154299794141113552370968618123313731429197")
	if !ok {
		t.Fatal("bad fixed-vector constant")
	}
	if !got.Equal(want) {
		t.Errorf("CommitmentHash(base) = %s, want %s", got.String(), want.String())
	}
}

func TestValidateDistribution(t *testing.T) {
	tests := []struct {
		name    string
		dist    []Destination
		wantErr bool
	}{
		{"valid single", []Destination{{Address: addrA, Bps: 10000}}, false},
		{"valid split", []Destination{{Address: addrA, Bps: 6000}, {Address: addrB, Bps: 4000}}, false},
		{"empty", nil, true},
		{"zero bps", []Destination{{Address: addrA, Bps: 0}, {Address: addrB, Bps: 10000}}, true},
		{"bad sum", []Destination{{Address: addrA, Bps: 5000}, {Address: addrB, Bps: 4000}}, true},
		{"bad address", []Destination{{Address: "not-valid!!", Bps: 10000}}, true},
	}
	for _, tt := range tests {
		err := ValidateDistribution(tt.dist)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: ValidateDistribution error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}
