package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/joinquantish/privacy-relay/pkg/field"
	"github.com/joinquantish/privacy-relay/pkg/metrics"
	"github.com/joinquantish/privacy-relay/pkg/relay/chain"
	"github.com/joinquantish/privacy-relay/pkg/relay/lifecycle"
	"github.com/joinquantish/privacy-relay/pkg/relay/store"
	"github.com/joinquantish/privacy-relay/pkg/relayerr"
)

// Server handles the relay's narrow JSON HTTP surface onto BatchStore
// and BatchLifecycle.
type Server struct {
	Lifecycle      *lifecycle.Lifecycle
	Store          *store.Store
	Sender         chain.Sender
	Log            *zap.Logger
	CustodyAddress string

	router *mux.Router
}

// NewServer wires the relay's routes onto a fresh mux.Router.
func NewServer(lc *lifecycle.Lifecycle, st *store.Store, sender chain.Sender, log *zap.Logger, custodyAddress string) *Server {
	s := &Server{
		Lifecycle:      lc,
		Store:          st,
		Sender:         sender,
		Log:            log,
		CustodyAddress: custodyAddress,
		router:         mux.NewRouter(),
	}
	s.router.Use(metricsMiddleware)
	s.setupRoutes()
	return s
}

// statusRecorder captures the status code a handler writes so the
// metrics middleware can label requests by outcome.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	})
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/order", s.handleSubmitOrder).Methods("POST")
	s.router.HandleFunc("/order/encrypted", s.handleSubmitEncryptedOrder).Methods("POST")
	s.router.HandleFunc("/order/{id}", s.handleGetOrder).Methods("GET")
	s.router.HandleFunc("/order/{id}/activate", s.handleActivateOrder).Methods("POST")

	s.router.HandleFunc("/batch/{id}", s.handleGetBatch).Methods("GET")
	s.router.HandleFunc("/batch/{id}/execute", s.handleExecuteBatch).Methods("POST")
	s.router.HandleFunc("/batch/{id}/proof", s.handleBatchProof).Methods("GET")
	s.router.HandleFunc("/batches", s.handleListBatches).Methods("GET")
	s.router.HandleFunc("/batches/ready", s.handleListReadyBatches).Methods("GET")
	s.router.HandleFunc("/execute-ready", s.handleExecuteReady).Methods("POST")

	s.router.HandleFunc("/deposits/unmatched", s.handleUnmatchedDeposits).Methods("GET")
	s.router.HandleFunc("/deposits/match", s.handleMatchDeposit).Methods("POST")
	s.router.HandleFunc("/deposits/refund", s.handleRefundDeposit).Methods("POST")

	s.router.HandleFunc("/status", s.handleStatus).Methods("GET")
	s.router.HandleFunc("/deposit-address", s.handleDepositAddress).Methods("GET")

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")
}

// Start runs the HTTP server until ctx is cancelled, draining in-flight
// requests on shutdown.
func (s *Server) Start(ctx context.Context, addr string) error {
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
	})

	srv := &http.Server{Addr: addr, Handler: c.Handler(s.router)}

	errCh := make(chan error, 1)
	go func() {
		s.Log.Info("http server starting", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// ==============================
// Order handlers
// ==============================

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req SubmitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_input", "invalid JSON body")
		return
	}

	dist := req.Distribution
	if len(dist) == 0 && req.DestinationWallet != "" {
		dist = []distributionEntryWire{{Wallet: req.DestinationWallet, Percentage: 10000}}
	}
	dests := make([]lifecycle.Destination, len(dist))
	for i, d := range dist {
		dests[i] = lifecycle.Destination{Address: d.Wallet, Bps: d.Percentage}
	}

	res, err := s.Lifecycle.Submit(lifecycle.SubmitRequest{
		MarketID:     req.MarketID,
		Side:         req.Side,
		UsdcAmount:   req.UsdcAmount,
		Distribution: dests,
		Salt:         req.Salt,
		YesTokenMint: req.YesTokenMint,
		NoTokenMint:  req.NoTokenMint,
	})
	if err != nil {
		respondRelayErr(w, err)
		return
	}
	metrics.OrdersSubmitted.WithLabelValues(req.MarketID, req.Side).Inc()

	respondJSON(w, http.StatusOK, SubmitOrderResponse{
		Success:        true,
		OrderID:        res.OrderID,
		BatchID:        res.BatchID,
		CommitmentHash: res.CommitmentHash,
		Status:         string(res.Status),
		Deposit: depositInfo{
			Address:   res.DepositTarget,
			Amount:    res.DepositAmount,
			Memo:      res.DepositMemo,
			ExpiresAt: res.DepositExpiresAt.Format(time.RFC3339),
		},
	})
}

func (s *Server) handleSubmitEncryptedOrder(w http.ResponseWriter, r *http.Request) {
	var req SubmitEncryptedOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_input", "invalid JSON body")
		return
	}

	res, err := s.Lifecycle.Submit(lifecycle.SubmitRequest{
		MarketID:    req.MarketID,
		Side:        req.Side,
		UsdcAmount:  "0",
		Salt:        req.Salt,
		IsEncrypted: true,
		Ciphertext:  req.Ciphertext,
	})
	if err != nil {
		respondRelayErr(w, err)
		return
	}
	metrics.OrdersSubmitted.WithLabelValues(req.MarketID, req.Side).Inc()

	respondJSON(w, http.StatusOK, SubmitOrderResponse{
		Success: true,
		OrderID: res.OrderID,
		BatchID: res.BatchID,
		Status:  string(res.Status),
		Deposit: depositInfo{
			Address:   res.DepositTarget,
			Memo:      res.DepositMemo,
			ExpiresAt: res.DepositExpiresAt.Format(time.RFC3339),
		},
	})
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	order, err := s.Store.Get(id)
	if err != nil {
		respondRelayErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderView(order))
}

func (s *Server) handleActivateOrder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req ActivateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_input", "invalid JSON body")
		return
	}
	if err := s.Lifecycle.Activate(id, req.DepositTxSignature, req.SenderWallet); err != nil {
		respondRelayErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ==============================
// Batch handlers
// ==============================

func (s *Server) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	batch, err := s.Store.GetBatch(id)
	if err != nil {
		respondRelayErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toBatchView(batch))
}

func (s *Server) handleListBatches(w http.ResponseWriter, r *http.Request) {
	batches := s.Store.AllBatches()
	out := make([]BatchView, len(batches))
	for i, b := range batches {
		out[i] = toBatchView(b)
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleListReadyBatches(w http.ResponseWriter, r *http.Request) {
	batches := s.Store.ReadyBatches()
	out := make([]BatchView, len(batches))
	for i, b := range batches {
		out[i] = toBatchView(b)
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleExecuteBatch(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	batch, err := s.Store.GetBatch(id)
	if err != nil {
		respondRelayErr(w, err)
		return
	}
	if batch.Status == store.BatchCollecting {
		if err := s.Lifecycle.CloseBatch(id); err != nil {
			respondRelayErr(w, err)
			return
		}
	}
	if err := s.Lifecycle.Execute(r.Context(), id); err != nil {
		metrics.BatchExecutions.WithLabelValues("error").Inc()
		respondRelayErr(w, err)
		return
	}
	metrics.BatchExecutions.WithLabelValues("ok").Inc()
	final, _ := s.Store.GetBatch(id)
	respondJSON(w, http.StatusOK, toBatchView(final))
}

func (s *Server) handleExecuteReady(w http.ResponseWriter, r *http.Request) {
	ready := s.Store.ReadyBatches()
	executed := make([]string, 0, len(ready))
	for _, b := range ready {
		if err := s.Lifecycle.Execute(r.Context(), b.ID); err != nil {
			s.Log.Warn("execute-ready: batch failed", zap.String("batch", b.ID), zap.Error(err))
			metrics.BatchExecutions.WithLabelValues("error").Inc()
			continue
		}
		metrics.BatchExecutions.WithLabelValues("ok").Inc()
		executed = append(executed, b.ID)
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"executed": executed})
}

func (s *Server) handleBatchProof(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	batch, err := s.Store.GetBatch(id)
	if err != nil {
		respondRelayErr(w, err)
		return
	}

	view := ProofView{}
	switch batch.Status {
	case store.BatchProving:
		view = ProofView{HasProof: false, Status: "generating"}
	case store.BatchDistributing, store.BatchCompleted:
		view = ProofView{
			HasProof:     batch.ProofBlob != "",
			Status:       "verified",
			ProofHash:    batch.ProofBlob,
			PublicInputs: batch.PublicInputs,
		}
		view.ExecutionInfo = &struct {
			ActualUsdcSpent      string  `json:"actualUsdcSpent"`
			ActualSharesReceived int64   `json:"actualSharesReceived"`
			FillPercentage       float64 `json:"fillPercentage"`
		}{
			ActualUsdcSpent:      field.FormatMicroUSDC(batch.ActualUsdcSpentMicros),
			ActualSharesReceived: batch.ActualSharesReceived,
			FillPercentage:       batch.FillPercentage,
		}
	case store.BatchFailed:
		view = ProofView{HasProof: false, Status: "none"}
	default:
		view = ProofView{HasProof: false, Status: "pending"}
	}
	respondJSON(w, http.StatusOK, view)
}

// ==============================
// Deposit handlers
// ==============================

func (s *Server) handleUnmatchedDeposits(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.Store.UnmatchedDeposits())
}

func (s *Server) handleMatchDeposit(w http.ResponseWriter, r *http.Request) {
	var req MatchDepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_input", "invalid JSON body")
		return
	}
	dep, err := s.findUnmatched(req.Signature)
	if err != nil {
		respondRelayErr(w, err)
		return
	}
	if err := s.Lifecycle.Activate(req.OrderID, req.Signature, dep.Sender); err != nil {
		respondRelayErr(w, err)
		return
	}
	_ = s.Store.ResolveUnmatched(req.Signature)
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleRefundDeposit(w http.ResponseWriter, r *http.Request) {
	var req RefundDepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_input", "invalid JSON body")
		return
	}
	dep, err := s.findUnmatched(req.Signature)
	if err != nil {
		respondRelayErr(w, err)
		return
	}
	if _, err := s.Sender.TransferUsdc(r.Context(), dep.Sender, dep.Micros); err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	_ = s.Store.ResolveUnmatched(req.Signature)
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) findUnmatched(txid string) (store.UnmatchedDeposit, error) {
	for _, d := range s.Store.UnmatchedDeposits() {
		if d.TxID == txid {
			return d, nil
		}
	}
	return store.UnmatchedDeposit{}, relayerr.New(relayerr.NotFound, "unmatched deposit %q not found", txid)
}

// ==============================
// Status handlers
// ==============================

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	batches := s.Store.AllBatches()
	var resp StatusResponse
	resp.Wallet.Address = s.CustodyAddress
	resp.Stats.TotalBatches = len(batches)
	resp.Stats.TotalOrders = len(s.Store.AllOrders())
	for _, b := range batches {
		switch b.Status {
		case store.BatchCollecting:
			resp.Stats.Collecting++
		case store.BatchCompleted:
			resp.Stats.Completed++
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDepositAddress(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, DepositAddressResponse{Address: s.CustodyAddress, Type: "usdc"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ==============================
// Helpers
// ==============================

func toOrderView(o store.Order) OrderView {
	dist := make([]distributionEntryWire, len(o.Distribution))
	for i, d := range o.Distribution {
		dist[i] = distributionEntryWire{Wallet: d.Address, Percentage: d.Bps}
	}
	return OrderView{
		ID:                 o.ID,
		BatchID:            o.BatchID,
		MarketID:           o.MarketID,
		Side:               o.Side.String(),
		UsdcAmount:         field.FormatMicroUSDC(o.UsdcMicros),
		Distribution:       dist,
		CommitmentHash:     o.CommitmentHex,
		Status:             string(o.Status),
		DepositExpiresAt:   o.DepositExpiresAt.Format(time.RFC3339),
		DepositTx:          o.DepositTx,
		DepositSender:      o.DepositSender,
		EffectiveUsdcSpent: field.FormatMicroUSDC(o.EffectiveUsdcSpentMicros),
		SharesReceived:     o.SharesReceived,
		RefundAmount:       field.FormatMicroUSDC(o.RefundAmountMicros),
	}
}

func toBatchView(b store.Batch) BatchView {
	return BatchView{
		ID:                   b.ID,
		MarketID:             b.MarketID,
		Side:                 b.Side.String(),
		Status:               string(b.Status),
		OrderIDs:             b.OrderIDs,
		TotalUsdcCommitted:   field.FormatMicroUSDC(b.TotalUsdcCommittedMicros),
		FundedUsdcTotal:      field.FormatMicroUSDC(b.FundedUsdcTotalMicros),
		ActualUsdcSpent:      field.FormatMicroUSDC(b.ActualUsdcSpentMicros),
		ActualSharesReceived: b.ActualSharesReceived,
		FillPercentage:       b.FillPercentage,
		VenueTx:              b.VenueTx,
		FailureReason:        b.FailureReason,
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, kind, message string) {
	respondJSON(w, status, ErrorResponse{Error: kind, Message: message})
}

func respondRelayErr(w http.ResponseWriter, err error) {
	kind := relayerr.KindOf(err)
	respondError(w, statusForKind(kind), string(kind), err.Error())
}

func statusForKind(kind relayerr.Kind) int {
	switch kind {
	case relayerr.BadInput:
		return http.StatusBadRequest
	case relayerr.NotFound:
		return http.StatusNotFound
	case relayerr.StateConflict:
		return http.StatusConflict
	case relayerr.Unavailable:
		return http.StatusServiceUnavailable
	case relayerr.DepositMismatch, relayerr.DepositOrphan, relayerr.Expired:
		return http.StatusConflict
	case relayerr.VenueFailure, relayerr.ProofFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Router exposes the underlying mux.Router, primarily for tests.
func (s *Server) Router() *mux.Router {
	return s.router
}
