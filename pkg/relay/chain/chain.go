// Package chain defines the relay's chain-RPC boundary: ChainWatcher
// scans the custody account for incoming USDC deposits, ChainSender
// issues outbound token and USDC transfers. Both are external
// collaborators in production; the Sim* types here are in-memory
// reference implementations for local runs and tests.
package chain

import (
	"context"
	"fmt"
	"sync"

	"github.com/joinquantish/privacy-relay/pkg/relayerr"
)

// Deposit is one confirmed incoming transfer to the custody account.
type Deposit struct {
	TxID   string
	Sender string
	Micros int64
	Memo   string
}

// Watcher polls the custody account for new confirmed deposits since a
// cursor signature, oldest-first.
type Watcher interface {
	// PollSince returns deposits confirmed after cursor, oldest first,
	// and the new cursor to pass on the next call. An empty cursor
	// requests all deposits from genesis (used on first boot).
	PollSince(ctx context.Context, cursor string) (deposits []Deposit, newCursor string, err error)
}

// Sender issues outbound transfers from the custody account.
type Sender interface {
	TransferToken(ctx context.Context, mint, destAddr string, amount int64) (txid string, err error)
	TransferUsdc(ctx context.Context, destAddr string, amountMicros int64) (txid string, err error)
}

// SimWatcher is an in-memory Watcher a test or demo feeds deposits into
// directly via Inject, rather than observing a real chain.
type SimWatcher struct {
	mu       sync.Mutex
	deposits []Deposit
}

func NewSimWatcher() *SimWatcher {
	return &SimWatcher{}
}

// Inject appends a deposit as if it had just been confirmed on-chain.
func (w *SimWatcher) Inject(d Deposit) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.deposits = append(w.deposits, d)
}

// PollSince returns every injected deposit after cursor (an index
// encoded as a decimal string), oldest first.
func (w *SimWatcher) PollSince(ctx context.Context, cursor string) ([]Deposit, string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	start := 0
	if cursor != "" {
		if _, err := fmt.Sscanf(cursor, "%d", &start); err != nil {
			return nil, cursor, relayerr.Wrap(relayerr.Internal, err, "invalid cursor %q", cursor)
		}
	}
	if start >= len(w.deposits) {
		return nil, cursor, nil
	}
	out := append([]Deposit{}, w.deposits[start:]...)
	return out, fmt.Sprintf("%d", len(w.deposits)), nil
}

// SimSender is an in-memory Sender that always succeeds, recording every
// transfer it was asked to make for test assertions.
type SimSender struct {
	mu      sync.Mutex
	seq     int64
	Sent    []SentTransfer
}

// SentTransfer records one call made against a SimSender.
type SentTransfer struct {
	Kind   string // "token" or "usdc"
	Mint   string
	Dest   string
	Amount int64
	TxID   string
}

func NewSimSender() *SimSender {
	return &SimSender{}
}

func (s *SimSender) TransferToken(ctx context.Context, mint, destAddr string, amount int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	txid := fmt.Sprintf("simsend-token-%d", s.seq)
	s.Sent = append(s.Sent, SentTransfer{Kind: "token", Mint: mint, Dest: destAddr, Amount: amount, TxID: txid})
	return txid, nil
}

func (s *SimSender) TransferUsdc(ctx context.Context, destAddr string, amountMicros int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	txid := fmt.Sprintf("simsend-usdc-%d", s.seq)
	s.Sent = append(s.Sent, SentTransfer{Kind: "usdc", Dest: destAddr, Amount: amountMicros, TxID: txid})
	return txid, nil
}
