package planner

import "testing"

func TestPlanBatchOfThreePartialFill(t *testing.T) {
	orders := []FundedOrder{
		{OrderID: "a", UsdcMicros: 20_000_000, Distribution: []Destination{{Address: "A", Bps: 10000}}},
		{OrderID: "b", UsdcMicros: 30_000_000, Distribution: []Destination{{Address: "B", Bps: 10000}}},
		{OrderID: "c", UsdcMicros: 50_000_000, Distribution: []Destination{{Address: "C", Bps: 10000}}},
	}
	result := VenueResult{ActualUsdcSpentMicros: 80_000_000, ActualSharesReceived: 120_000_000}

	allocs, err := Plan(orders, result)
	if err != nil {
		t.Fatal(err)
	}

	want := []struct {
		spent, shares, refund int64
	}{
		{16_000_000, 24_000_000, 4_000_000},
		{24_000_000, 36_000_000, 6_000_000},
		{40_000_000, 60_000_000, 10_000_000},
	}
	for i, a := range allocs {
		if a.EffectiveUsdcSpentMicros != want[i].spent {
			t.Errorf("order %d spent = %d, want %d", i, a.EffectiveUsdcSpentMicros, want[i].spent)
		}
		if a.SharesReceived != want[i].shares {
			t.Errorf("order %d shares = %d, want %d", i, a.SharesReceived, want[i].shares)
		}
		if a.RefundAmountMicros != want[i].refund {
			t.Errorf("order %d refund = %d, want %d", i, a.RefundAmountMicros, want[i].refund)
		}
	}
}

func TestPlanMultiDestinationSplit(t *testing.T) {
	orders := []FundedOrder{
		{
			OrderID:    "a",
			UsdcMicros: 100_000_000,
			Distribution: []Destination{
				{Address: "D1", Bps: 5000},
				{Address: "D2", Bps: 3000},
				{Address: "D3", Bps: 2000},
			},
		},
	}
	result := VenueResult{ActualUsdcSpentMicros: 100_000_000, ActualSharesReceived: 200_000_000}

	allocs, err := Plan(orders, result)
	if err != nil {
		t.Fatal(err)
	}
	dests := allocs[0].Destinations
	if dests[0].Shares != 100_000_000 || dests[1].Shares != 60_000_000 || dests[2].Shares != 40_000_000 {
		t.Errorf("unexpected destination split: %+v", dests)
	}

	var sum int64
	for _, d := range dests {
		sum += d.Shares
	}
	if sum != allocs[0].SharesReceived {
		t.Errorf("destination shares sum to %d, want %d", sum, allocs[0].SharesReceived)
	}
}

func TestPlanUsdcConservationPerOrder(t *testing.T) {
	orders := []FundedOrder{
		{OrderID: "a", UsdcMicros: 7_000_003, Distribution: []Destination{{Address: "A", Bps: 10000}}},
		{OrderID: "b", UsdcMicros: 3_333_333, Distribution: []Destination{{Address: "B", Bps: 10000}}},
	}
	result := VenueResult{ActualUsdcSpentMicros: 9_000_000, ActualSharesReceived: 15_000_000}

	allocs, err := Plan(orders, result)
	if err != nil {
		t.Fatal(err)
	}
	for i, a := range allocs {
		if a.EffectiveUsdcSpentMicros+a.RefundAmountMicros != orders[i].UsdcMicros {
			t.Errorf("order %d: spent+refund = %d, want %d", i, a.EffectiveUsdcSpentMicros+a.RefundAmountMicros, orders[i].UsdcMicros)
		}
	}
}

func TestPlanProRataFairness(t *testing.T) {
	orders := []FundedOrder{
		{OrderID: "a", UsdcMicros: 10_000_000, Distribution: []Destination{{Address: "A", Bps: 10000}}},
		{OrderID: "b", UsdcMicros: 40_000_000, Distribution: []Destination{{Address: "B", Bps: 10000}}},
	}
	result := VenueResult{ActualUsdcSpentMicros: 50_000_000, ActualSharesReceived: 100_000_000}

	allocs, err := Plan(orders, result)
	if err != nil {
		t.Fatal(err)
	}
	ratioA := float64(allocs[0].SharesReceived) / float64(orders[0].UsdcMicros)
	ratioB := float64(allocs[1].SharesReceived) / float64(orders[1].UsdcMicros)
	if ratioA != ratioB {
		t.Errorf("pro-rata ratios diverged: a=%v b=%v", ratioA, ratioB)
	}
}

func TestPlanRejectsEmptyOrders(t *testing.T) {
	if _, err := Plan(nil, VenueResult{ActualUsdcSpentMicros: 1, ActualSharesReceived: 1}); err == nil {
		t.Error("expected error for empty order list")
	}
}
