// Package metrics provides Prometheus instrumentation for the exchange
// engine. These counters are operational views; the authoritative
// cumulative totals live in the store's stats row.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ListingsCreated counts listings created.
	ListingsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gridwatt_listings_created_total",
		Help: "Total number of listings created",
	})

	// TradesTotal counts trades opened (escrow funded).
	TradesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gridwatt_trades_total",
		Help: "Total number of trades opened",
	})

	// TradesConfirmed counts settled trades.
	TradesConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gridwatt_trades_confirmed_total",
		Help: "Total number of trades confirmed and settled",
	})

	// EscrowLocked tracks the currently escrowed value in micro-currency.
	EscrowLocked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gridwatt_escrow_locked",
		Help: "Value currently held in escrow, micro-currency",
	})

	// EnergyTraded counts settled energy in kWh.
	EnergyTraded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gridwatt_energy_traded_kwh_total",
		Help: "Cumulative energy settled, kWh",
	})

	// PlatformRevenue counts collected fees in micro-currency.
	PlatformRevenue = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gridwatt_platform_revenue_total",
		Help: "Cumulative platform fees collected, micro-currency",
	})

	// MatchAttempts counts auto-match calls by outcome.
	MatchAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gridwatt_match_attempts_total",
		Help: "Auto-match attempts by outcome",
	}, []string{"outcome"})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gridwatt_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gridwatt_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gridwatt_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the raw path for the label; the route surface is small.
		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
