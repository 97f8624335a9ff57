// Package api exposes the exchange engine over HTTP: chi routing, JSON
// handlers for every engine operation, and the WebSocket event stream.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gridwatt/exchange/internal/bank"
	"github.com/gridwatt/exchange/internal/listing"
	"github.com/gridwatt/exchange/internal/match"
	"github.com/gridwatt/exchange/internal/metrics"
	"github.com/gridwatt/exchange/internal/model"
	"github.com/gridwatt/exchange/internal/reputation"
	"github.com/gridwatt/exchange/internal/store"
	"github.com/gridwatt/exchange/internal/trade"
)

// Server bundles the engine components behind the HTTP surface.
type Server struct {
	registry   *listing.Registry
	ledger     *trade.Ledger
	reputation *reputation.Tracker
	matcher    *match.Matcher
	bank       bank.Service
	store      store.Store
	hub        *Hub // optional; nil disables event broadcasting
}

// NewServer creates the HTTP server facade. Pass nil for hub if WebSocket
// broadcasting is not needed.
func NewServer(reg *listing.Registry, led *trade.Ledger, rep *reputation.Tracker, m *match.Matcher, bk bank.Service, st store.Store, hub *Hub) *Server {
	return &Server{
		registry:   reg,
		ledger:     led,
		reputation: rep,
		matcher:    m,
		bank:       bk,
		store:      st,
		hub:        hub,
	}
}

// Router builds the chi router with the standard middleware stack.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	// CORS for frontend cross-origin requests.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"exchange-engine"}`))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if s.hub != nil {
			r.Get("/ws", s.hub.HandleWS)
		}

		r.Post("/listings", s.CreateListing)
		r.Get("/listings", s.ListListings)
		r.Get("/listings/{listingID}", s.GetListing)

		r.Post("/trades", s.Purchase)
		r.Get("/trades/{tradeID}", s.GetTrade)
		r.Get("/trades/{tradeID}/escrow", s.GetEscrow)
		r.Post("/trades/{tradeID}/confirm", s.Confirm)

		r.Post("/match", s.AutoMatch)

		r.Get("/accounts/{account}/trades", s.ListAccountTrades)
		r.Get("/accounts/{account}/reputation", s.GetReputation)
		r.Get("/accounts/{account}/balance", s.GetBalance)
		r.Post("/accounts/{account}/deposit", s.Deposit)

		r.Get("/stats", s.GetStats)
	})

	return r
}

// statusFor maps the engine's sentinel errors to HTTP statuses. Unknown
// errors are internal.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidAmount), errors.Is(err, model.ErrInvalidPrice):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrUnauthorized), errors.Is(err, model.ErrOwnerOnly):
		return http.StatusForbidden
	case errors.Is(err, model.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, model.ErrTradeExpired), errors.Is(err, model.ErrTradeCompleted):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
