// Package lifecycle implements the relay's BatchLifecycle: the batch and
// order state machine, and the orchestrator that drives a ready batch
// through venue execution, proving, and distribution.
package lifecycle

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/joinquantish/privacy-relay/pkg/field"
	"github.com/joinquantish/privacy-relay/pkg/relay/chain"
	"github.com/joinquantish/privacy-relay/pkg/relay/commitment"
	"github.com/joinquantish/privacy-relay/pkg/relay/merkle"
	"github.com/joinquantish/privacy-relay/pkg/relay/planner"
	"github.com/joinquantish/privacy-relay/pkg/relay/proof"
	"github.com/joinquantish/privacy-relay/pkg/relay/store"
	"github.com/joinquantish/privacy-relay/pkg/relay/venue"
	"github.com/joinquantish/privacy-relay/pkg/relayerr"
)

// Lifecycle is the BatchLifecycle: it owns no state of its own beyond
// references to its collaborators, all mutation happens through Store's
// per-batch locking.
type Lifecycle struct {
	Store          *store.Store
	Venue          venue.Executor
	Prover         proof.Generator
	Sender         chain.Sender
	Log            *zap.Logger
	CustodyAddress string
	DepositExpiry  time.Duration
}

// Submit validates a new order payload, computes its commitment, and
// files it into the BatchStore, possibly opening a new batch.
func (l *Lifecycle) Submit(req SubmitRequest) (SubmitResult, error) {
	side, err := parseSide(req.Side)
	if err != nil {
		return SubmitResult{}, err
	}
	if !req.IsEncrypted {
		if _, err := field.ParseMicroUSDC(req.UsdcAmount); err != nil {
			return SubmitResult{}, err
		}
	}

	cDist := make([]commitment.Destination, len(req.Distribution))
	for i, d := range req.Distribution {
		cDist[i] = commitment.Destination{Address: d.Address, Bps: d.Bps}
	}
	if !req.IsEncrypted {
		if err := commitment.ValidateDistribution(cDist); err != nil {
			return SubmitResult{}, err
		}
	}

	salt := req.Salt
	if salt == "" {
		salt, err = field.RandomSalt()
		if err != nil {
			return SubmitResult{}, err
		}
	} else if _, err := field.SaltField(salt); err != nil {
		return SubmitResult{}, err
	}

	var commitHash field.Element
	if req.IsEncrypted {
		commitHash, err = field.CiphertextField(req.Ciphertext)
		if err != nil {
			return SubmitResult{}, err
		}
	} else {
		commitHash, err = commitment.CommitmentHash(commitment.Order{
			MarketID:     req.MarketID,
			Side:         side,
			UsdcAmount:   req.UsdcAmount,
			Distribution: cDist,
			Salt:         salt,
		})
		if err != nil {
			return SubmitResult{}, err
		}
	}

	var amount int64
	if !req.IsEncrypted {
		amount, _ = field.ParseMicroUSDC(req.UsdcAmount)
	}
	now := time.Now()

	order := &store.Order{
		MarketID:         req.MarketID,
		Side:             side,
		UsdcMicros:       amount,
		Distribution:     toStoreDistribution(req.Distribution),
		Salt:             salt,
		Commitment:       commitHash,
		CommitmentHex:    field.ToHash32(commitHash).Hex(),
		IsEncrypted:      req.IsEncrypted,
		Ciphertext:       req.Ciphertext,
		Status:           store.StatusPendingDeposit,
		SubmittedAt:      now,
		DepositExpiresAt: now.Add(l.DepositExpiry),
	}

	batchID, err := l.Store.Submit(order)
	if err != nil {
		return SubmitResult{}, err
	}

	if req.YesTokenMint != "" || req.NoTokenMint != "" {
		_ = l.Store.WithBatchLock(batchID, func(b *store.Batch) error {
			if b.YesTokenMint == "" {
				b.YesTokenMint = req.YesTokenMint
			}
			if b.NoTokenMint == "" {
				b.NoTokenMint = req.NoTokenMint
			}
			return nil
		})
	}

	return SubmitResult{
		OrderID:          order.ID,
		BatchID:          batchID,
		CommitmentHash:   order.CommitmentHex,
		Status:           order.Status,
		DepositExpiresAt: order.DepositExpiresAt,
		DepositTarget:    l.CustodyAddress,
		DepositAmount:    req.UsdcAmount,
		DepositMemo:      order.ID,
	}, nil
}

// Activate marks an order's deposit confirmed. Called by the
// DepositMatcher once it observes a matching on-chain transfer. A call
// against an order that is not pending_deposit is ignored, per the
// state-monotonicity invariant.
func (l *Lifecycle) Activate(orderID, tx, senderAddress string) error {
	return l.Store.WithOrderLock(orderID, func(o *store.Order) error {
		if o.Status != store.StatusPendingDeposit {
			return nil
		}
		o.Status = store.StatusPending
		o.DepositTx = tx
		o.DepositSender = senderAddress
		o.DepositConfirmedAt = time.Now()
		return nil
	})
}

// CloseBatch moves a collecting batch to ready, unregistering it from
// the open-batch index.
func (l *Lifecycle) CloseBatch(batchID string) error {
	return l.Store.MarkReady(batchID)
}

// Execute runs the full execute -> proving -> distributing pipeline for
// a ready batch. Long-running collaborator calls happen outside any
// batch lock; only the status transitions themselves are serialized.
func (l *Lifecycle) Execute(ctx context.Context, batchID string) error {
	batch, err := l.Store.GetBatch(batchID)
	if err != nil {
		return err
	}
	if err := l.Store.WithBatchLock(batchID, func(b *store.Batch) error {
		if b.Status != store.BatchReady {
			return relayerr.New(relayerr.StateConflict, "batch %q is %s, not ready", batchID, b.Status)
		}
		b.Status = store.BatchExecuting
		return nil
	}); err != nil {
		return err
	}

	orders, err := l.Store.ListOrders(batchID)
	if err != nil {
		return err
	}

	funded := make([]store.Order, 0, len(orders))
	var fundedTotal int64
	for _, o := range orders {
		if o.Status == store.StatusPending {
			funded = append(funded, o)
			fundedTotal += o.UsdcMicros
		}
	}

	if len(funded) == 0 {
		return l.fail(batchID, "no_funded_orders")
	}

	_ = l.Store.WithBatchLock(batchID, func(b *store.Batch) error {
		b.FundedUsdcTotalMicros = fundedTotal
		return nil
	})

	result, err := l.Venue.Execute(ctx, batch.MarketID, batch.Side, fundedTotal, 100, l.shareMint(batch))
	if err != nil {
		l.logWarn("venue execute failed", "batch", batchID, "err", err)
		return l.fail(batchID, string(relayerr.KindOf(err)))
	}

	_ = l.Store.WithBatchLock(batchID, func(b *store.Batch) error {
		b.Status = store.BatchProving
		b.ActualUsdcSpentMicros = result.UsdcSpentMicros
		b.ActualSharesReceived = result.SharesReceived
		b.AveragePrice = result.AveragePrice
		b.FillPercentage = result.FillPercentage
		b.VenueTx = result.VenueTx
		b.ExecutionCompletedAt = time.Now()
		return nil
	})

	leaves := make([]field.Element, len(funded))
	for i, o := range funded {
		leaves[i] = o.Commitment
	}
	tree := merkle.Build(leaves)
	root := tree.Root()

	plannerOrders := make([]planner.FundedOrder, len(funded))
	for i, o := range funded {
		dests := make([]planner.Destination, len(o.Distribution))
		for j, d := range o.Distribution {
			dests[j] = planner.Destination{Address: d.Address, Bps: d.Bps}
		}
		plannerOrders[i] = planner.FundedOrder{OrderID: o.ID, UsdcMicros: o.UsdcMicros, Distribution: dests}
	}
	allocations, err := planner.Plan(plannerOrders, planner.VenueResult{
		ActualUsdcSpentMicros: result.UsdcSpentMicros,
		ActualSharesReceived:  result.SharesReceived,
	})
	if err != nil {
		return l.fail(batchID, "allocation_failure")
	}

	proofAllocs := make([]proof.Allocation, 0)
	var totalOut int64
	for _, a := range allocations {
		for _, d := range a.Destinations {
			proofAllocs = append(proofAllocs, proof.Allocation{OrderID: a.OrderID, Address: d.Address, Shares: d.Shares, Bps: d.Bps})
			totalOut += d.Shares
		}
	}

	proofResult, err := l.Prover.Generate(ctx, proof.Request{
		Root:        root,
		TotalIn:     fundedTotal,
		TotalOut:    totalOut,
		MarketID:    batch.MarketID,
		Side:        batch.Side,
		Commitments: leaves,
		Allocations: proofAllocs,
	})
	if err != nil {
		l.logWarn("proof generation failed", "batch", batchID, "err", err)
		return l.fail(batchID, "proof_failure")
	}

	_ = l.Store.WithBatchLock(batchID, func(b *store.Batch) error {
		b.Status = store.BatchDistributing
		b.MerkleRootHex = field.ToHash32(root).Hex()
		b.ProofBlob = proofResult.ProofBlob
		b.PublicInputs = proofResult.PublicInputs
		b.ProofVerified = proofResult.Verified
		return nil
	})

	l.distribute(ctx, batch, allocations)

	_ = l.Store.WithBatchLock(batchID, func(b *store.Batch) error {
		b.Status = store.BatchCompleted
		b.DistributionCompletedAt = time.Now()
		return nil
	})
	for _, o := range funded {
		_ = l.Store.WithOrderLock(o.ID, func(ord *store.Order) error {
			ord.Status = store.StatusCompleted
			return nil
		})
	}
	return nil
}

func (l *Lifecycle) distribute(ctx context.Context, batch store.Batch, allocations []planner.OrderAllocation) {
	mint := l.shareMint(batch)
	var totalShares int64
	for _, a := range allocations {
		totalShares += a.SharesReceived
	}
	if totalShares == 0 {
		l.logWarn("venue fill yielded zero shares; completing batch without share transfers", "batch", batch.ID)
	}
	for _, a := range allocations {
		results := make([]store.DistributionResult, len(a.Destinations))
		for i, d := range a.Destinations {
			res := store.DistributionResult{Address: d.Address, Shares: d.Shares}
			if d.Shares > 0 {
				txid, err := l.Sender.TransferToken(ctx, mint, d.Address, d.Shares)
				if err != nil {
					l.logWarn("distribution send failed", "order", a.OrderID, "dest", d.Address, "err", err)
				} else {
					res.TxID = txid
				}
			}
			results[i] = res
		}

		primary := planner.RefundPrimary(destinationsOf(a.Destinations))
		if a.RefundAmountMicros > 0 && primary != "" {
			if _, err := l.Sender.TransferUsdc(ctx, primary, a.RefundAmountMicros); err != nil {
				l.logWarn("refund send failed", "order", a.OrderID, "err", err)
			}
		}

		_ = l.Store.WithOrderLock(a.OrderID, func(o *store.Order) error {
			o.EffectiveUsdcSpentMicros = a.EffectiveUsdcSpentMicros
			o.SharesReceived = a.SharesReceived
			o.RefundAmountMicros = a.RefundAmountMicros
			o.DistributionResults = results
			return nil
		})
	}
}

// destinationsOf strips DestinationAllocation down to the Destination shape
// planner.RefundPrimary expects.
func destinationsOf(dests []planner.DestinationAllocation) []planner.Destination {
	out := make([]planner.Destination, len(dests))
	for i, d := range dests {
		out[i] = planner.Destination{Address: d.Address, Bps: d.Bps}
	}
	return out
}

func (l *Lifecycle) shareMint(batch store.Batch) string {
	if batch.Side == field.SideYes {
		return batch.YesTokenMint
	}
	return batch.NoTokenMint
}

func (l *Lifecycle) fail(batchID, reason string) error {
	return l.Store.WithBatchLock(batchID, func(b *store.Batch) error {
		b.Status = store.BatchFailed
		b.FailureReason = reason
		return nil
	})
}

func (l *Lifecycle) logWarn(msg string, kv ...interface{}) {
	if l.Log == nil {
		return
	}
	fields := make([]zap.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		fields = append(fields, zap.Any(key, kv[i+1]))
	}
	l.Log.Warn(msg, fields...)
}
