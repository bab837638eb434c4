// Package deposit implements the relay's DepositMatcher: it scans the
// custody account for incoming USDC, parses memos, and activates or
// refunds orders accordingly. processedSet is backed by Pebble so a
// deposit is never replayed across restarts.
package deposit

import (
	"context"
	"time"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"

	"github.com/joinquantish/privacy-relay/pkg/field"
	"github.com/joinquantish/privacy-relay/pkg/metrics"
	"github.com/joinquantish/privacy-relay/pkg/relay/chain"
	"github.com/joinquantish/privacy-relay/pkg/relay/lifecycle"
	"github.com/joinquantish/privacy-relay/pkg/relay/store"
)

const cursorKey = "__cursor__"

// Matcher is the DepositMatcher: a single-threaded scanner over the
// custody account's confirmed deposits.
type Matcher struct {
	Watcher   chain.Watcher
	Sender    chain.Sender
	Lifecycle *lifecycle.Lifecycle
	Store     *store.Store
	DB        *pebble.DB
	Log       *zap.Logger

	ToleranceMicros int64

	lastPollAt time.Time
}

// processed reports whether txid has already been consumed.
func (m *Matcher) processed(txid string) bool {
	_, closer, err := m.DB.Get([]byte("processed:" + txid))
	if err != nil {
		return false
	}
	_ = closer.Close()
	return true
}

func (m *Matcher) markProcessed(txid string) error {
	return m.DB.Set([]byte("processed:"+txid), []byte{1}, pebble.Sync)
}

func (m *Matcher) loadCursor() string {
	v, closer, err := m.DB.Get([]byte(cursorKey))
	if err != nil {
		return ""
	}
	defer closer.Close()
	return string(v)
}

func (m *Matcher) saveCursor(cursor string) error {
	return m.DB.Set([]byte(cursorKey), []byte(cursor), pebble.Sync)
}

// Poll runs one scan cycle: fetch new deposits since the last cursor,
// process each oldest-first, and advance the cursor once every deposit in
// the batch has been handled. A failed poll leaves the cursor where it
// was; a failure to persist a processed mark or the new cursor is logged
// and does not stop the cursor from advancing.
func (m *Matcher) Poll(ctx context.Context) error {
	if !m.lastPollAt.IsZero() {
		metrics.DepositMatcherLagSeconds.Set(time.Since(m.lastPollAt).Seconds())
	}
	cursor := m.loadCursor()
	deposits, newCursor, err := m.Watcher.PollSince(ctx, cursor)
	if err != nil {
		m.logWarn("poll failed, cursor not advanced", "err", err)
		return err
	}

	for _, d := range deposits {
		if m.processed(d.TxID) {
			continue
		}
		m.handle(ctx, d)
		if err := m.markProcessed(d.TxID); err != nil {
			m.logWarn("failed to persist processed deposit", "txid", d.TxID, "err", err)
		}
	}

	if newCursor != cursor {
		if err := m.saveCursor(newCursor); err != nil {
			m.logWarn("failed to persist cursor", "err", err)
		}
	}
	m.lastPollAt = time.Now()
	return nil
}

func (m *Matcher) handle(ctx context.Context, d chain.Deposit) {
	kind, structured, raw := ParseMemo(d.Memo)
	switch kind {
	case MemoStructured:
		m.handleStructured(ctx, d, structured)
	case MemoOrderID:
		m.handleOrderID(ctx, d, raw)
	default:
		m.store().RecordUnmatched(store.UnmatchedDeposit{
			TxID:   d.TxID,
			Sender: d.Sender,
			Micros: d.Micros,
			Memo:   d.Memo,
			SeenAt: time.Now(),
		})
	}
}

func (m *Matcher) handleStructured(ctx context.Context, d chain.Deposit, s StructuredMemo) {
	dests := make([]lifecycle.Destination, 0, len(s.Destinations))
	if len(s.Destinations) == 0 {
		m.logWarn("structured memo with no destinations", "txid", d.TxID)
		return
	}
	share := uint32(10000 / len(s.Destinations))
	var allocated uint32
	for i, addr := range s.Destinations {
		bps := share
		if i == len(s.Destinations)-1 {
			bps = 10000 - allocated
		}
		allocated += bps
		dests = append(dests, lifecycle.Destination{Address: addr, Bps: bps})
	}

	side := "YES"
	if len(s.Action) > 0 {
		side = s.Action
	}

	res, err := m.Lifecycle.Submit(lifecycle.SubmitRequest{
		MarketID:     s.MarketID,
		Side:         side,
		UsdcAmount:   field.FormatMicroUSDC(d.Micros),
		Distribution: dests,
		YesTokenMint: s.OutcomeMint,
	})
	if err != nil {
		m.logWarn("structured memo submit failed", "txid", d.TxID, "err", err)
		m.store().RecordUnmatched(store.UnmatchedDeposit{
			TxID: d.TxID, Sender: d.Sender, Micros: d.Micros, Memo: d.Memo, SeenAt: time.Now(),
		})
		return
	}
	if err := m.Lifecycle.Activate(res.OrderID, d.TxID, d.Sender); err != nil {
		m.logWarn("structured memo activate failed", "order", res.OrderID, "err", err)
	}
}

func (m *Matcher) handleOrderID(ctx context.Context, d chain.Deposit, orderID string) {
	order, err := m.store().Get(orderID)
	if err != nil {
		m.store().RecordUnmatched(store.UnmatchedDeposit{
			TxID: d.TxID, Sender: d.Sender, Micros: d.Micros, Memo: d.Memo, SeenAt: time.Now(),
		})
		return
	}

	if order.Status != store.StatusPendingDeposit {
		// The order has already moved on (activated, refunded, expired, ...);
		// this deposit can no longer be applied to it. Record it rather than
		// silently dropping it so it stays available for manual resolution.
		m.store().RecordUnmatched(store.UnmatchedDeposit{
			TxID: d.TxID, Sender: d.Sender, Micros: d.Micros, Memo: d.Memo, SeenAt: time.Now(),
		})
		return
	}

	diff := order.UsdcMicros - d.Micros
	if diff < 0 {
		diff = -diff
	}
	if diff > m.ToleranceMicros {
		if _, err := m.Sender.TransferUsdc(ctx, d.Sender, d.Micros); err != nil {
			m.logWarn("refund on amount mismatch failed", "order", orderID, "err", err)
		}
		return
	}

	if err := m.Lifecycle.Activate(orderID, d.TxID, d.Sender); err != nil {
		m.logWarn("activate failed", "order", orderID, "err", err)
	}
}

func (m *Matcher) store() *store.Store {
	if m.Store != nil {
		return m.Store
	}
	return m.Lifecycle.Store
}

func (m *Matcher) logWarn(msg string, kv ...interface{}) {
	if m.Log == nil {
		return
	}
	fields := make([]zap.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		fields = append(fields, zap.Any(key, kv[i+1]))
	}
	m.Log.Warn(msg, fields...)
}
