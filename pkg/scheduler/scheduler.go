// Package scheduler implements the relay's Scheduler: a single periodic
// worker that closes timed-out batches, drives ready batches through
// execution on a bounded pool, expires stale pending-deposit orders, and
// reaps resolved unmatched deposits past their retention window.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/joinquantish/privacy-relay/pkg/metrics"
	"github.com/joinquantish/privacy-relay/pkg/relay/lifecycle"
	"github.com/joinquantish/privacy-relay/pkg/relay/store"
)

// Scheduler owns the periodic tick. It holds no state beyond its
// collaborators; every decision it makes is re-derived from the Store on
// each tick.
type Scheduler struct {
	Store     *store.Store
	Lifecycle *lifecycle.Lifecycle
	Log       *zap.Logger

	Tick                time.Duration
	BatchTimeout        time.Duration
	MinBatchSize        int
	UnmatchedRetention  time.Duration
	MaxConcurrentExecs  int

	execSem chan struct{}
}

// Run blocks ticking until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	if s.execSem == nil {
		n := s.MaxConcurrentExecs
		if n <= 0 {
			n = 4
		}
		s.execSem = make(chan struct{}, n)
	}
	ticker := time.NewTicker(s.Tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	now := time.Now()
	s.closeTimedOutBatches(now)
	s.executeReadyBatches(ctx)
	s.expireStaleOrders(now)
	s.reapUnmatched(now)
	s.reportGauges()
}

// reportGauges re-derives the open-batch count and per-status order
// counts from the Store on every tick, the same "no cached state"
// discipline the rest of the Scheduler follows.
func (s *Scheduler) reportGauges() {
	metrics.OpenBatches.Set(float64(len(s.Store.OpenBatches())))

	counts := make(map[store.OrderStatus]int)
	for _, o := range s.Store.AllOrders() {
		counts[o.Status]++
	}
	for _, status := range []store.OrderStatus{
		store.StatusPendingDeposit,
		store.StatusPending,
		store.StatusExecuting,
		store.StatusCompleted,
		store.StatusRefunded,
		store.StatusExpired,
	} {
		metrics.OrdersByStatus.WithLabelValues(string(status)).Set(float64(counts[status]))
	}
}

func (s *Scheduler) closeTimedOutBatches(now time.Time) {
	for _, b := range s.Store.OpenBatches() {
		if b.Status != store.BatchCollecting {
			continue
		}
		if now.Sub(b.CreatedAt) < s.BatchTimeout {
			continue
		}
		if len(b.OrderIDs) < s.MinBatchSize {
			continue
		}
		if err := s.Lifecycle.CloseBatch(b.ID); err != nil {
			s.logWarn("closeBatch failed", "batch", b.ID, "err", err)
		}
	}
}

func (s *Scheduler) executeReadyBatches(ctx context.Context) {
	for _, b := range s.Store.ReadyBatches() {
		b := b
		select {
		case s.execSem <- struct{}{}:
		default:
			continue // pool saturated; pick it up on the next tick
		}
		go func() {
			defer func() { <-s.execSem }()
			if err := s.Lifecycle.Execute(ctx, b.ID); err != nil {
				s.logWarn("execute failed", "batch", b.ID, "err", err)
			}
		}()
	}
}

func (s *Scheduler) expireStaleOrders(now time.Time) {
	for _, o := range s.Store.AllOrders() {
		if o.Status != store.StatusPendingDeposit {
			continue
		}
		if now.Before(o.DepositExpiresAt) {
			continue
		}
		err := s.Store.WithOrderLock(o.ID, func(ord *store.Order) error {
			if ord.Status != store.StatusPendingDeposit {
				return nil
			}
			ord.Status = store.StatusExpired
			return nil
		})
		if err != nil {
			s.logWarn("expire order failed", "order", o.ID, "err", err)
		}
	}
}

func (s *Scheduler) reapUnmatched(now time.Time) {
	s.Store.ReapUnmatched(s.UnmatchedRetention, now)
}

func (s *Scheduler) logWarn(msg string, kv ...interface{}) {
	if s.Log == nil {
		return
	}
	fields := make([]zap.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		fields = append(fields, zap.Any(key, kv[i+1]))
	}
	s.Log.Warn(msg, fields...)
}
