package chain

import (
	"context"
	"testing"
)

func TestSimWatcherPollSinceCursor(t *testing.T) {
	w := NewSimWatcher()
	w.Inject(Deposit{TxID: "tx1", Sender: "s1", Micros: 1_000_000})
	w.Inject(Deposit{TxID: "tx2", Sender: "s2", Micros: 2_000_000})

	deposits, cursor, err := w.PollSince(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if len(deposits) != 2 {
		t.Fatalf("expected 2 deposits, got %d", len(deposits))
	}
	if deposits[0].TxID != "tx1" || deposits[1].TxID != "tx2" {
		t.Error("expected oldest-first ordering")
	}

	w.Inject(Deposit{TxID: "tx3", Sender: "s3", Micros: 3_000_000})
	more, _, err := w.PollSince(context.Background(), cursor)
	if err != nil {
		t.Fatal(err)
	}
	if len(more) != 1 || more[0].TxID != "tx3" {
		t.Errorf("expected exactly the new deposit after cursor, got %+v", more)
	}
}

func TestSimSenderRecordsTransfers(t *testing.T) {
	s := NewSimSender()
	if _, err := s.TransferUsdc(context.Background(), "destA", 5_000_000); err != nil {
		t.Fatal(err)
	}
	if _, err := s.TransferToken(context.Background(), "mintX", "destB", 10); err != nil {
		t.Fatal(err)
	}
	if len(s.Sent) != 2 {
		t.Fatalf("expected 2 recorded transfers, got %d", len(s.Sent))
	}
}
