package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/gridwatt/exchange/internal/match"
	"github.com/gridwatt/exchange/internal/metrics"
	"github.com/gridwatt/exchange/internal/model"
)

// --- Request/Response types ---

// CreateListingRequest is the JSON body for POST /api/v1/listings.
type CreateListingRequest struct {
	Seller       string          `json:"seller"`
	EnergyAmount int64           `json:"energy_amount"` // kWh
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	EnergyType   string          `json:"energy_type"`
	Location     string          `json:"location"`
	Duration     uint64          `json:"duration"` // heights until expiry
}

// PurchaseRequest is the JSON body for POST /api/v1/trades.
type PurchaseRequest struct {
	Buyer        string `json:"buyer"`
	ListingID    uint64 `json:"listing_id"`
	EnergyAmount int64  `json:"energy_amount"`
}

// ConfirmRequest is the JSON body for POST /api/v1/trades/{id}/confirm.
type ConfirmRequest struct {
	Caller string `json:"caller"`
}

// MatchRequest is the JSON body for POST /api/v1/match.
type MatchRequest struct {
	Buyer string `json:"buyer"`
	match.Query
}

// DepositRequest is the JSON body for POST /api/v1/accounts/{id}/deposit.
type DepositRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// --- Handlers ---

// CreateListing handles POST /api/v1/listings.
func (s *Server) CreateListing(w http.ResponseWriter, r *http.Request) {
	var req CreateListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Seller == "" {
		writeError(w, "seller is required", http.StatusBadRequest)
		return
	}

	id, err := s.registry.Create(r.Context(), req.Seller, req.EnergyAmount,
		req.PricePerUnit, req.EnergyType, req.Location, req.Duration)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}

	metrics.ListingsCreated.Inc()
	if s.hub != nil {
		s.hub.Broadcast(Event{
			Type:      "listing_created",
			ListingID: id,
			Seller:    req.Seller,
			Energy:    req.EnergyAmount,
			Price:     req.PricePerUnit.String(),
		})
	}

	writeJSON(w, http.StatusCreated, map[string]uint64{"listing_id": id})
}

// ListListings handles GET /api/v1/listings, optionally filtered by
// ?energy_type=<tag>.
func (s *Server) ListListings(w http.ResponseWriter, r *http.Request) {
	listings, err := s.registry.List(r.Context())
	if err != nil {
		writeError(w, "failed to list listings", http.StatusInternalServerError)
		return
	}
	if listings == nil {
		listings = []model.Listing{}
	}

	if tag := r.URL.Query().Get("energy_type"); tag != "" {
		filtered := []model.Listing{}
		for _, l := range listings {
			if l.EnergyType == tag {
				filtered = append(filtered, l)
			}
		}
		listings = filtered
	}

	writeJSON(w, http.StatusOK, listings)
}

// GetListing handles GET /api/v1/listings/{listingID}.
func (s *Server) GetListing(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "listingID")
	if !ok {
		return
	}
	l, err := s.registry.Get(r.Context(), id)
	if err != nil {
		writeError(w, "listing not found", statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// Purchase handles POST /api/v1/trades.
func (s *Server) Purchase(w http.ResponseWriter, r *http.Request) {
	var req PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Buyer == "" {
		writeError(w, "buyer is required", http.StatusBadRequest)
		return
	}

	tradeID, err := s.ledger.Purchase(r.Context(), req.Buyer, req.ListingID, req.EnergyAmount)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}

	if s.hub != nil {
		s.hub.Broadcast(Event{
			Type:      "trade_executed",
			TradeID:   tradeID,
			ListingID: req.ListingID,
			Buyer:     req.Buyer,
			Energy:    req.EnergyAmount,
		})
	}

	writeJSON(w, http.StatusCreated, map[string]uint64{"trade_id": tradeID})
}

// GetTrade handles GET /api/v1/trades/{tradeID}.
func (s *Server) GetTrade(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "tradeID")
	if !ok {
		return
	}
	t, err := s.ledger.Get(r.Context(), id)
	if err != nil {
		writeError(w, "trade not found", statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// GetEscrow handles GET /api/v1/trades/{tradeID}/escrow.
func (s *Server) GetEscrow(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "tradeID")
	if !ok {
		return
	}
	e, err := s.ledger.Escrow(r.Context(), id)
	if err != nil {
		writeError(w, "escrow not found", statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// Confirm handles POST /api/v1/trades/{tradeID}/confirm.
func (s *Server) Confirm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "tradeID")
	if !ok {
		return
	}
	var req ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Caller == "" {
		writeError(w, "caller is required", http.StatusBadRequest)
		return
	}

	if err := s.ledger.Confirm(r.Context(), req.Caller, id); err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}

	if s.hub != nil {
		s.hub.Broadcast(Event{Type: "trade_confirmed", TradeID: id, Buyer: req.Caller})
	}

	writeJSON(w, http.StatusOK, map[string]bool{"confirmed": true})
}

// AutoMatch handles POST /api/v1/match.
func (s *Server) AutoMatch(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Buyer == "" {
		writeError(w, "buyer is required", http.StatusBadRequest)
		return
	}

	tradeID, err := s.matcher.AutoMatch(r.Context(), req.Buyer, req.Query)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}

	if s.hub != nil {
		s.hub.Broadcast(Event{Type: "trade_executed", TradeID: tradeID, Buyer: req.Buyer})
	}

	writeJSON(w, http.StatusCreated, map[string]uint64{"trade_id": tradeID})
}

// ListAccountTrades handles GET /api/v1/accounts/{account}/trades.
func (s *Server) ListAccountTrades(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	trades, err := s.ledger.ListByAccount(r.Context(), account)
	if err != nil {
		writeError(w, "failed to list trades", http.StatusInternalServerError)
		return
	}
	if trades == nil {
		trades = []model.Trade{}
	}
	writeJSON(w, http.StatusOK, trades)
}

// GetReputation handles GET /api/v1/accounts/{account}/reputation.
// Accounts with no record report the default triple.
func (s *Server) GetReputation(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	rep, err := s.reputation.Get(r.Context(), account)
	if err != nil {
		writeError(w, "failed to load reputation", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// GetBalance handles GET /api/v1/accounts/{account}/balance.
func (s *Server) GetBalance(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	bal, err := s.bank.Balance(r.Context(), account)
	if err != nil {
		writeError(w, "failed to load balance", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]decimal.Decimal{"balance": bal})
}

// Deposit handles POST /api/v1/accounts/{account}/deposit.
func (s *Server) Deposit(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	var req DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		writeError(w, "amount must be positive", http.StatusBadRequest)
		return
	}
	if err := s.bank.Deposit(r.Context(), account, req.Amount); err != nil {
		writeError(w, "deposit failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]decimal.Decimal{"amount": req.Amount})
}

// GetStats handles GET /api/v1/stats.
func (s *Server) GetStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.GetStats(r.Context())
	if err != nil {
		writeError(w, "failed to load stats", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// --- Helpers ---

func pathID(w http.ResponseWriter, r *http.Request, name string) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	if err != nil {
		writeError(w, "invalid "+name, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
