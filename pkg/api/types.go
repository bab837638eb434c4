package api

// Request/response payloads for the relay's HTTP surface. Decimals are
// transported as strings throughout; basis points as integers.

type distributionEntryWire struct {
	Wallet     string `json:"wallet"`
	Percentage uint32 `json:"percentage"`
}

// SubmitOrderRequest is the POST /order payload. Either Distribution or
// the legacy DestinationWallet must be supplied.
type SubmitOrderRequest struct {
	MarketID          string                   `json:"marketId"`
	Side              string                   `json:"side"`
	UsdcAmount        string                   `json:"usdcAmount"`
	Distribution      []distributionEntryWire  `json:"distribution,omitempty"`
	DestinationWallet string                   `json:"destinationWallet,omitempty"`
	Salt              string                   `json:"salt,omitempty"`
	YesTokenMint      string                   `json:"yesTokenMint,omitempty"`
	NoTokenMint       string                   `json:"noTokenMint,omitempty"`
}

type depositInfo struct {
	Address   string `json:"address"`
	Amount    string `json:"amount"`
	Memo      string `json:"memo"`
	ExpiresAt string `json:"expiresAt"`
}

// SubmitOrderResponse is the POST /order and POST /order/encrypted response.
type SubmitOrderResponse struct {
	Success        bool        `json:"success"`
	OrderID        string      `json:"orderId"`
	BatchID        string      `json:"batchId"`
	CommitmentHash string      `json:"commitmentHash"`
	Status         string      `json:"status"`
	Deposit        depositInfo `json:"deposit"`
}

// SubmitEncryptedOrderRequest is the POST /order/encrypted payload.
type SubmitEncryptedOrderRequest struct {
	MarketID   string `json:"marketId"`
	Side       string `json:"side"`
	Ciphertext string `json:"ciphertext"`
	Salt       string `json:"salt,omitempty"`
}

// OrderView is the JSON projection of a stored order.
type OrderView struct {
	ID                       string                  `json:"id"`
	BatchID                  string                  `json:"batchId"`
	MarketID                 string                  `json:"marketId"`
	Side                     string                  `json:"side"`
	UsdcAmount               string                  `json:"usdcAmount"`
	Distribution             []distributionEntryWire `json:"distribution,omitempty"`
	CommitmentHash           string                  `json:"commitmentHash"`
	Status                   string                  `json:"status"`
	DepositExpiresAt         string                  `json:"depositExpiresAt"`
	DepositTx                string                  `json:"depositTx,omitempty"`
	DepositSender            string                  `json:"depositSender,omitempty"`
	EffectiveUsdcSpent       string                  `json:"effectiveUsdcSpent,omitempty"`
	SharesReceived           int64                   `json:"sharesReceived,omitempty"`
	RefundAmount             string                  `json:"refundAmount,omitempty"`
}

// BatchView is the JSON projection of a stored batch.
type BatchView struct {
	ID                   string   `json:"id"`
	MarketID             string   `json:"marketId"`
	Side                 string   `json:"side"`
	Status               string   `json:"status"`
	OrderIDs             []string `json:"orderIds"`
	TotalUsdcCommitted   string   `json:"totalUsdcCommitted"`
	FundedUsdcTotal      string   `json:"fundedUsdcTotal"`
	ActualUsdcSpent      string   `json:"actualUsdcSpent,omitempty"`
	ActualSharesReceived int64    `json:"actualSharesReceived,omitempty"`
	FillPercentage       float64  `json:"fillPercentage,omitempty"`
	VenueTx              string   `json:"venueTx,omitempty"`
	FailureReason        string   `json:"failureReason,omitempty"`
}

// ProofView is the GET /batch/:id/proof response.
type ProofView struct {
	HasProof      bool     `json:"hasProof"`
	Status        string   `json:"status"`
	ProofHash     string   `json:"proofHash,omitempty"`
	PublicInputs  []string `json:"publicInputs,omitempty"`
	ExecutionInfo *struct {
		ActualUsdcSpent      string  `json:"actualUsdcSpent"`
		ActualSharesReceived int64   `json:"actualSharesReceived"`
		FillPercentage       float64 `json:"fillPercentage"`
	} `json:"executionInfo,omitempty"`
}

// ActivateOrderRequest is the POST /order/:id/activate admin payload.
type ActivateOrderRequest struct {
	DepositTxSignature string `json:"depositTxSignature"`
	SenderWallet       string `json:"senderWallet"`
}

// MatchDepositRequest is the POST /deposits/match payload.
type MatchDepositRequest struct {
	Signature string `json:"signature"`
	OrderID   string `json:"orderId"`
}

// RefundDepositRequest is the POST /deposits/refund payload.
type RefundDepositRequest struct {
	Signature string `json:"signature"`
}

// StatusResponse is the GET /status response.
type StatusResponse struct {
	Wallet struct {
		Address string `json:"address"`
	} `json:"wallet"`
	Stats struct {
		TotalBatches int `json:"totalBatches"`
		TotalOrders  int `json:"totalOrders"`
		Collecting   int `json:"collecting"`
		Completed    int `json:"completed"`
	} `json:"stats"`
}

// DepositAddressResponse is the GET /deposit-address response.
type DepositAddressResponse struct {
	Address string `json:"address"`
	Type    string `json:"type"`
}

// ErrorResponse is returned for every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
