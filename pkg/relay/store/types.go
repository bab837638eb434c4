// Package store implements the relay's BatchStore: the in-memory catalog
// of orders and batches, the per-(market,side) open-batch index, and the
// unmatched-deposit ledger, with per-batch mutex serialization.
package store

import (
	"time"

	"github.com/joinquantish/privacy-relay/pkg/field"
)

type OrderStatus string

const (
	StatusPendingDeposit OrderStatus = "pending_deposit"
	StatusPending        OrderStatus = "pending"
	StatusExecuting      OrderStatus = "executing"
	StatusCompleted      OrderStatus = "completed"
	StatusRefunded       OrderStatus = "refunded"
	StatusExpired        OrderStatus = "expired"
)

type BatchStatus string

const (
	BatchCollecting   BatchStatus = "collecting"
	BatchReady        BatchStatus = "ready"
	BatchExecuting    BatchStatus = "executing"
	BatchProving      BatchStatus = "proving"
	BatchDistributing BatchStatus = "distributing"
	BatchCompleted    BatchStatus = "completed"
	BatchFailed       BatchStatus = "failed"
)

// Destination is one entry of an order's share-distribution plan.
type Destination struct {
	Address string `json:"address"`
	Bps     uint32 `json:"bps"`
}

// DistributionResult records the outcome of sending one destination its
// allocated shares.
type DistributionResult struct {
	Address string `json:"address"`
	Shares  int64  `json:"shares"`
	TxID    string `json:"txId,omitempty"`
}

// Order is the relay's order record. It is exclusively owned by the
// Store; callers receive copies, never pointers into store state.
type Order struct {
	ID           string      `json:"id"`
	BatchID      string      `json:"batchId"`
	MarketID     string      `json:"marketId"`
	Side         field.Side  `json:"side"`
	UsdcMicros   int64       `json:"usdcMicros"`
	Distribution []Destination `json:"distribution"`
	Salt         string      `json:"salt"`
	Commitment   field.Element `json:"-"`
	CommitmentHex string     `json:"commitmentHash"`
	IsEncrypted  bool        `json:"isEncrypted,omitempty"`
	Ciphertext   string      `json:"ciphertext,omitempty"`
	Status       OrderStatus `json:"status"`

	SubmittedAt      time.Time `json:"submittedAt"`
	DepositExpiresAt time.Time `json:"depositExpiresAt"`

	DepositTx          string    `json:"depositTx,omitempty"`
	DepositSender      string    `json:"depositSender,omitempty"`
	DepositConfirmedAt time.Time `json:"depositConfirmedAt,omitempty"`

	EffectiveUsdcSpentMicros int64                 `json:"effectiveUsdcSpentMicros,omitempty"`
	SharesReceived           int64                 `json:"sharesReceived,omitempty"`
	RefundAmountMicros       int64                 `json:"refundAmountMicros,omitempty"`
	DistributionResults      []DistributionResult  `json:"distributionResults,omitempty"`

	FailureReason string `json:"failureReason,omitempty"`
}

// Batch is the relay's batch record: a group of orders for one
// (marketId, side) aggregated into a single external trade.
type Batch struct {
	ID       string      `json:"id"`
	MarketID string      `json:"marketId"`
	Side     field.Side  `json:"side"`
	Status   BatchStatus `json:"status"`
	OrderIDs []string    `json:"orderIds"`

	TotalUsdcCommittedMicros int64 `json:"totalUsdcCommittedMicros"`
	FundedUsdcTotalMicros    int64 `json:"fundedUsdcTotalMicros"`

	IsEncrypted bool `json:"isEncrypted,omitempty"`

	CreatedAt time.Time `json:"createdAt"`

	ActualUsdcSpentMicros   int64     `json:"actualUsdcSpentMicros,omitempty"`
	ActualSharesReceived    int64     `json:"actualSharesReceived,omitempty"`
	AveragePrice            float64   `json:"averagePrice,omitempty"`
	FillPercentage          float64   `json:"fillPercentage,omitempty"`
	VenueTx                 string    `json:"venueTx,omitempty"`
	ExecutionCompletedAt    time.Time `json:"executionCompletedAt,omitempty"`
	DistributionCompletedAt time.Time `json:"distributionCompletedAt,omitempty"`

	MerkleRootHex string   `json:"merkleRoot,omitempty"`
	ProofBlob     string   `json:"proofBlob,omitempty"`
	PublicInputs  []string `json:"publicInputs,omitempty"`
	ProofVerified bool     `json:"proofVerified,omitempty"`

	YesTokenMint string `json:"yesTokenMint,omitempty"`
	NoTokenMint  string `json:"noTokenMint,omitempty"`

	FailureReason string `json:"failureReason,omitempty"`
}

// UnmatchedDeposit is a chain deposit the matcher could not correlate to
// an order, retained for manual resolution or refund.
type UnmatchedDeposit struct {
	TxID     string    `json:"txid"`
	Sender   string    `json:"senderAddress"`
	Micros   int64     `json:"amountMicros"`
	Memo     string    `json:"memo,omitempty"`
	SeenAt   time.Time `json:"seenAt"`
	Resolved bool      `json:"resolved,omitempty"`
}

// openKey indexes OpenBatchIndex by market and side.
type openKey struct {
	marketID string
	side     field.Side
}
