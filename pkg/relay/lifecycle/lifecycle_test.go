package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/joinquantish/privacy-relay/pkg/relay/chain"
	"github.com/joinquantish/privacy-relay/pkg/relay/proof"
	"github.com/joinquantish/privacy-relay/pkg/relay/store"
	"github.com/joinquantish/privacy-relay/pkg/relay/venue"
)

const addrX = "11111111111111111111111111111111"

func newLifecycle() (*Lifecycle, *venue.SimVenue, *chain.SimSender) {
	s := store.New(25)
	v := venue.NewSimVenue(1)
	sender := chain.NewSimSender()
	l := &Lifecycle{
		Store:          s,
		Venue:          v,
		Prover:         proof.LocalProver{},
		Sender:         sender,
		CustodyAddress: "custody",
		DepositExpiry:  time.Hour,
	}
	return l, v, sender
}

func TestSingleOrderFullFill(t *testing.T) {
	l, v, sender := newLifecycle()
	v.AddMarket("MKT-A", venue.MarketInfo{YesPrice: 0.5, Status: "active"})

	res, err := l.Submit(SubmitRequest{
		MarketID:     "MKT-A",
		Side:         "YES",
		UsdcAmount:   "10.00",
		Distribution: []Destination{{Address: addrX, Bps: 10000}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != store.StatusPendingDeposit {
		t.Fatalf("status = %s, want pending_deposit", res.Status)
	}

	if err := l.Activate(res.OrderID, "deposit-tx", "sender-addr"); err != nil {
		t.Fatal(err)
	}
	order, err := l.Store.Get(res.OrderID)
	if err != nil {
		t.Fatal(err)
	}
	if order.Status != store.StatusPending {
		t.Fatalf("status after activate = %s, want pending", order.Status)
	}

	if err := l.CloseBatch(res.BatchID); err != nil {
		t.Fatal(err)
	}
	if err := l.Execute(context.Background(), res.BatchID); err != nil {
		t.Fatal(err)
	}

	batch, err := l.Store.GetBatch(res.BatchID)
	if err != nil {
		t.Fatal(err)
	}
	if batch.Status != store.BatchCompleted {
		t.Fatalf("batch status = %s, want completed", batch.Status)
	}
	if !batch.ProofVerified {
		t.Error("expected proof to be verified")
	}

	order, _ = l.Store.Get(res.OrderID)
	if order.Status != store.StatusCompleted {
		t.Errorf("order status = %s, want completed", order.Status)
	}
	if order.SharesReceived != 20_000_000 {
		t.Errorf("shares received = %d, want 20000000 (10 USDC / 0.5 price)", order.SharesReceived)
	}
	if order.RefundAmountMicros != 0 {
		t.Errorf("expected no refund for a full fill, got %d", order.RefundAmountMicros)
	}

	if len(sender.Sent) != 1 {
		t.Fatalf("expected exactly one token transfer, got %d", len(sender.Sent))
	}
	if sender.Sent[0].Dest != addrX {
		t.Errorf("token sent to %q, want %q", sender.Sent[0].Dest, addrX)
	}
}

func TestExecuteFailsWithNoFundedOrders(t *testing.T) {
	l, v, _ := newLifecycle()
	v.AddMarket("MKT-A", venue.MarketInfo{YesPrice: 0.5, Status: "active"})

	res, err := l.Submit(SubmitRequest{
		MarketID:     "MKT-A",
		Side:         "YES",
		UsdcAmount:   "5.00",
		Distribution: []Destination{{Address: addrX, Bps: 10000}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := l.CloseBatch(res.BatchID); err != nil {
		t.Fatal(err)
	}
	if err := l.Execute(context.Background(), res.BatchID); err != nil {
		t.Fatal(err)
	}
	batch, _ := l.Store.GetBatch(res.BatchID)
	if batch.Status != store.BatchFailed {
		t.Fatalf("batch status = %s, want failed", batch.Status)
	}
	if batch.FailureReason != "no_funded_orders" {
		t.Errorf("failure reason = %q, want no_funded_orders", batch.FailureReason)
	}
}

func TestActivateIgnoresNonPendingDepositOrder(t *testing.T) {
	l, v, _ := newLifecycle()
	v.AddMarket("MKT-A", venue.MarketInfo{YesPrice: 0.5, Status: "active"})

	res, err := l.Submit(SubmitRequest{
		MarketID:     "MKT-A",
		Side:         "YES",
		UsdcAmount:   "5.00",
		Distribution: []Destination{{Address: addrX, Bps: 10000}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Activate(res.OrderID, "tx1", "sender1"); err != nil {
		t.Fatal(err)
	}
	// second activation must be a no-op: state must not regress or re-stamp.
	if err := l.Activate(res.OrderID, "tx2", "sender2"); err != nil {
		t.Fatal(err)
	}
	order, _ := l.Store.Get(res.OrderID)
	if order.DepositTx != "tx1" {
		t.Errorf("expected first activation to stick, got depositTx=%q", order.DepositTx)
	}
}

func TestSubmitEncryptedOrdersGetDistinctCommitments(t *testing.T) {
	l, v, _ := newLifecycle()
	v.AddMarket("MKT-A", venue.MarketInfo{YesPrice: 0.5, Status: "active"})

	res1, err := l.Submit(SubmitRequest{
		MarketID:    "MKT-A",
		Side:        "YES",
		IsEncrypted: true,
		Ciphertext:  "ciphertext-blob-one",
	})
	if err != nil {
		t.Fatal(err)
	}
	res2, err := l.Submit(SubmitRequest{
		MarketID:    "MKT-A",
		Side:        "YES",
		IsEncrypted: true,
		Ciphertext:  "ciphertext-blob-two",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res1.BatchID != res2.BatchID {
		t.Fatalf("expected both encrypted orders in the same batch, got %q and %q", res1.BatchID, res2.BatchID)
	}

	o1, err := l.Store.Get(res1.OrderID)
	if err != nil {
		t.Fatal(err)
	}
	o2, err := l.Store.Get(res2.OrderID)
	if err != nil {
		t.Fatal(err)
	}

	if o1.Commitment.IsZero() || o2.Commitment.IsZero() {
		t.Fatal("expected encrypted orders to carry a non-zero commitment derived from their ciphertext")
	}
	if o1.Commitment.Equal(&o2.Commitment) {
		t.Error("two encrypted orders with distinct ciphertexts produced the same commitment; Merkle leaves would collide")
	}
	if res1.CommitmentHash == res2.CommitmentHash {
		t.Error("two encrypted orders with distinct ciphertexts produced the same commitment hex")
	}
}

func TestSubmitRejectsBadDistribution(t *testing.T) {
	l, _, _ := newLifecycle()
	_, err := l.Submit(SubmitRequest{
		MarketID:     "MKT-A",
		Side:         "YES",
		UsdcAmount:   "5.00",
		Distribution: []Destination{{Address: addrX, Bps: 9000}},
	})
	if err == nil {
		t.Error("expected bad_input for a distribution that doesn't sum to 10000")
	}
}
