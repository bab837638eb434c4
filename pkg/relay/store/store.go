package store

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"

	"github.com/joinquantish/privacy-relay/pkg/field"
	"github.com/joinquantish/privacy-relay/pkg/relayerr"
)

// opaqueID derives an order/batch id for encrypted submissions from random
// bytes run through keccak256, rather than google/uuid's v4 format, so that
// an encrypted order's id never shares a recognizable shape with a plaintext
// one and can't be fingerprinted as "came through the encrypted path" by
// format alone.
func opaqueID() string {
	var seed [20]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return uuid.NewString()
	}
	h := sha3.NewLegacyKeccak256()
	h.Write(seed[:])
	return hex.EncodeToString(h.Sum(nil))
}

// Store is the BatchStore: an in-memory catalog of orders and batches,
// guarded by a per-batch mutex discipline so that submits against
// unrelated batches never block each other.
//
// mapMu protects the top-level maps themselves (insertion, lookup of the
// batch lock) but is never held across a batch mutation; batchLocks[id]
// is held for the duration of any mutation to that batch's state.
type Store struct {
	mapMu      sync.RWMutex
	batches    map[string]*Batch
	orders     map[string]*Order
	batchLocks map[string]*sync.Mutex

	openMu sync.Mutex
	open   map[openKey]string

	unmatchedMu sync.Mutex
	unmatched   map[string]*UnmatchedDeposit

	maxBatchSize int
}

// New creates an empty Store.
func New(maxBatchSize int) *Store {
	return &Store{
		batches:      make(map[string]*Batch),
		orders:       make(map[string]*Order),
		batchLocks:   make(map[string]*sync.Mutex),
		open:         make(map[openKey]string),
		unmatched:    make(map[string]*UnmatchedDeposit),
		maxBatchSize: maxBatchSize,
	}
}

func (s *Store) lockFor(batchID string) *sync.Mutex {
	s.mapMu.Lock()
	defer s.mapMu.Unlock()
	l, ok := s.batchLocks[batchID]
	if !ok {
		l = &sync.Mutex{}
		s.batchLocks[batchID] = l
	}
	return l
}

// Submit assigns order to an open batch for (order.MarketID, order.Side),
// creating one if none is open or the open one is full, and returns the
// assigned batch id. order.ID and order.BatchID are populated in place.
func (s *Store) Submit(order *Order) (string, error) {
	key := openKey{marketID: order.MarketID, side: order.Side}

	s.openMu.Lock()
	batchID, ok := s.open[key]
	s.openMu.Unlock()

	if !ok {
		batchID = s.createBatch(order.MarketID, order.Side, order.IsEncrypted)
		s.openMu.Lock()
		s.open[key] = batchID
		s.openMu.Unlock()
	}

	lock := s.lockFor(batchID)
	lock.Lock()
	defer lock.Unlock()

	s.mapMu.RLock()
	batch := s.batches[batchID]
	s.mapMu.RUnlock()

	if batch.Status != BatchCollecting || len(batch.OrderIDs) >= s.maxBatchSize {
		// Lost the race against a concurrent submit that filled the batch;
		// open a fresh one and retry once.
		newID := s.createBatch(order.MarketID, order.Side, order.IsEncrypted)
		s.openMu.Lock()
		s.open[key] = newID
		s.openMu.Unlock()
		return s.Submit(order)
	}

	if order.ID == "" {
		if order.IsEncrypted {
			order.ID = opaqueID()
		} else {
			order.ID = uuid.NewString()
		}
	}
	order.BatchID = batchID

	s.mapMu.Lock()
	s.orders[order.ID] = order
	s.mapMu.Unlock()

	batch.OrderIDs = append(batch.OrderIDs, order.ID)
	batch.TotalUsdcCommittedMicros += order.UsdcMicros

	if len(batch.OrderIDs) >= s.maxBatchSize {
		batch.Status = BatchReady
		s.openMu.Lock()
		if s.open[key] == batchID {
			delete(s.open, key)
		}
		s.openMu.Unlock()
	}

	return batchID, nil
}

func (s *Store) createBatch(marketID string, side field.Side, isEncrypted bool) string {
	id := uuid.NewString()
	if isEncrypted {
		id = opaqueID()
	}
	b := &Batch{
		ID:          id,
		MarketID:    marketID,
		Side:        side,
		Status:      BatchCollecting,
		CreatedAt:   time.Now(),
		IsEncrypted: isEncrypted,
	}
	s.mapMu.Lock()
	s.batches[id] = b
	s.batchLocks[id] = &sync.Mutex{}
	s.mapMu.Unlock()
	return id
}

// Get returns a copy of the order with the given id.
func (s *Store) Get(orderID string) (Order, error) {
	s.mapMu.RLock()
	defer s.mapMu.RUnlock()
	o, ok := s.orders[orderID]
	if !ok {
		return Order{}, relayerr.New(relayerr.NotFound, "order %q not found", orderID)
	}
	return *o, nil
}

// GetBatch returns a copy of the batch with the given id.
func (s *Store) GetBatch(batchID string) (Batch, error) {
	s.mapMu.RLock()
	defer s.mapMu.RUnlock()
	b, ok := s.batches[batchID]
	if !ok {
		return Batch{}, relayerr.New(relayerr.NotFound, "batch %q not found", batchID)
	}
	return *b, nil
}

// ListOrders returns copies of every order in the given batch, in
// insertion order.
func (s *Store) ListOrders(batchID string) ([]Order, error) {
	s.mapMu.RLock()
	defer s.mapMu.RUnlock()
	b, ok := s.batches[batchID]
	if !ok {
		return nil, relayerr.New(relayerr.NotFound, "batch %q not found", batchID)
	}
	out := make([]Order, 0, len(b.OrderIDs))
	for _, id := range b.OrderIDs {
		if o, ok := s.orders[id]; ok {
			out = append(out, *o)
		}
	}
	return out, nil
}

// OpenBatches returns every batch currently registered in the open index.
func (s *Store) OpenBatches() []Batch {
	s.openMu.Lock()
	ids := make([]string, 0, len(s.open))
	for _, id := range s.open {
		ids = append(ids, id)
	}
	s.openMu.Unlock()

	s.mapMu.RLock()
	defer s.mapMu.RUnlock()
	out := make([]Batch, 0, len(ids))
	for _, id := range ids {
		if b, ok := s.batches[id]; ok {
			out = append(out, *b)
		}
	}
	return out
}

// ReadyBatches returns every batch in the ready state.
func (s *Store) ReadyBatches() []Batch {
	s.mapMu.RLock()
	defer s.mapMu.RUnlock()
	var out []Batch
	for _, b := range s.batches {
		if b.Status == BatchReady {
			out = append(out, *b)
		}
	}
	return out
}

// AllBatches returns every batch, collecting through terminal.
func (s *Store) AllBatches() []Batch {
	s.mapMu.RLock()
	defer s.mapMu.RUnlock()
	out := make([]Batch, 0, len(s.batches))
	for _, b := range s.batches {
		out = append(out, *b)
	}
	return out
}

// AllOrders returns every order the store holds.
func (s *Store) AllOrders() []Order {
	s.mapMu.RLock()
	defer s.mapMu.RUnlock()
	out := make([]Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, *o)
	}
	return out
}

// MarkReady transitions a collecting batch to ready and unregisters it
// from the open index. Idempotent: calling it on an already-ready batch
// is a no-op.
func (s *Store) MarkReady(batchID string) error {
	lock := s.lockFor(batchID)
	lock.Lock()
	defer lock.Unlock()

	s.mapMu.RLock()
	b, ok := s.batches[batchID]
	s.mapMu.RUnlock()
	if !ok {
		return relayerr.New(relayerr.NotFound, "batch %q not found", batchID)
	}
	if b.Status == BatchReady {
		return nil
	}
	if b.Status != BatchCollecting {
		return relayerr.New(relayerr.StateConflict, "batch %q is %s, cannot mark ready", batchID, b.Status)
	}
	b.Status = BatchReady

	s.openMu.Lock()
	key := openKey{marketID: b.MarketID, side: b.Side}
	if s.open[key] == batchID {
		delete(s.open, key)
	}
	s.openMu.Unlock()
	return nil
}

// WithBatchLock runs fn while holding the lock for batchID, passing the
// live batch pointer for in-place mutation. Used by BatchLifecycle to
// perform multi-field transitions atomically without exposing the lock
// itself to callers.
func (s *Store) WithBatchLock(batchID string, fn func(b *Batch) error) error {
	lock := s.lockFor(batchID)
	lock.Lock()
	defer lock.Unlock()

	s.mapMu.RLock()
	b, ok := s.batches[batchID]
	s.mapMu.RUnlock()
	if !ok {
		return relayerr.New(relayerr.NotFound, "batch %q not found", batchID)
	}
	return fn(b)
}

// WithOrderLock runs fn while holding the lock for the order's batch,
// passing the live order pointer for in-place mutation.
func (s *Store) WithOrderLock(orderID string, fn func(o *Order) error) error {
	s.mapMu.RLock()
	o, ok := s.orders[orderID]
	s.mapMu.RUnlock()
	if !ok {
		return relayerr.New(relayerr.NotFound, "order %q not found", orderID)
	}
	lock := s.lockFor(o.BatchID)
	lock.Lock()
	defer lock.Unlock()
	return fn(o)
}

// RecordUnmatched appends a deposit the matcher could not correlate.
func (s *Store) RecordUnmatched(d UnmatchedDeposit) {
	s.unmatchedMu.Lock()
	defer s.unmatchedMu.Unlock()
	s.unmatched[d.TxID] = &d
}

// UnmatchedDeposits returns every retained unmatched deposit.
func (s *Store) UnmatchedDeposits() []UnmatchedDeposit {
	s.unmatchedMu.Lock()
	defer s.unmatchedMu.Unlock()
	out := make([]UnmatchedDeposit, 0, len(s.unmatched))
	for _, d := range s.unmatched {
		out = append(out, *d)
	}
	return out
}

// ResolveUnmatched marks an unmatched deposit resolved, e.g. after a
// manual match or refund.
func (s *Store) ResolveUnmatched(txID string) error {
	s.unmatchedMu.Lock()
	defer s.unmatchedMu.Unlock()
	d, ok := s.unmatched[txID]
	if !ok {
		return relayerr.New(relayerr.NotFound, "unmatched deposit %q not found", txID)
	}
	d.Resolved = true
	return nil
}

// ReapUnmatched drops resolved unmatched deposits older than retention.
func (s *Store) ReapUnmatched(retention time.Duration, now time.Time) int {
	s.unmatchedMu.Lock()
	defer s.unmatchedMu.Unlock()
	n := 0
	for id, d := range s.unmatched {
		if d.Resolved && now.Sub(d.SeenAt) > retention {
			delete(s.unmatched, id)
			n++
		}
	}
	return n
}
