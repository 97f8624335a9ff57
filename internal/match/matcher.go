// Package match implements the automated matcher: a stateless additive
// scoring scan over the listing registry and reputation tracker that picks
// the best candidate for a buyer's constraints and executes the purchase
// through the trade ledger.
package match

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/gridwatt/exchange/internal/chain"
	"github.com/gridwatt/exchange/internal/listing"
	"github.com/gridwatt/exchange/internal/metrics"
	"github.com/gridwatt/exchange/internal/model"
	"github.com/gridwatt/exchange/internal/reputation"
	"github.com/gridwatt/exchange/internal/trade"
)

// Score weights. Type and availability award a floor even on a miss, so any
// eligible listing scores at least 150; a best score of zero therefore
// means the scan found no eligible listing at all.
const (
	PricePoints        = 300
	TypeMatchPoints    = 200
	TypeMissPoints     = 100
	ReputationPoints   = 200
	FullStockPoints    = 100
	PartialStockPoints = 50
)

// DefaultWindow is how many listing ids the scan covers when not
// configured. The bounded window (ids 1..10) is a deliberate prototype
// limitation of the scoring scan, kept literally; widen it via config.
const DefaultWindow = 10

// Query holds the buyer's matching constraints.
type Query struct {
	MaxPrice      decimal.Decimal `json:"max_price"`      // micro-currency per kWh ceiling
	DesiredAmount int64           `json:"desired_amount"` // kWh
	PreferredType string          `json:"preferred_type"`
	MaxDistance   int64           `json:"max_distance"` // accepted, never scored (off-chain concern)
	MinReputation uint32          `json:"min_reputation"`
}

// Matcher scores listings and delegates the winning purchase to the ledger.
// It holds no state of its own.
type Matcher struct {
	registry   *listing.Registry
	reputation *reputation.Tracker
	ledger     *trade.Ledger
	heights    chain.Source
	window     uint64
}

// NewMatcher creates a matcher scanning listing ids 1..window. A zero
// window falls back to DefaultWindow.
func NewMatcher(reg *listing.Registry, rep *reputation.Tracker, led *trade.Ledger, heights chain.Source, window uint64) *Matcher {
	if window == 0 {
		window = DefaultWindow
	}
	return &Matcher{
		registry:   reg,
		reputation: rep,
		ledger:     led,
		heights:    heights,
		window:     window,
	}
}

// AutoMatch selects the best-scoring eligible listing for the query and
// purchases min(desired, remaining) kWh from it on the buyer's behalf,
// returning the resulting trade id. When the delegated purchase fails its
// error propagates unchanged; model.ErrNotFound means no eligible listing
// scored at all.
func (m *Matcher) AutoMatch(ctx context.Context, buyer string, q Query) (uint64, error) {
	if q.MaxPrice.LessThanOrEqual(decimal.Zero) {
		return 0, model.ErrInvalidPrice
	}
	minAmount, maxAmount := m.registry.Bounds()
	if q.DesiredAmount < minAmount || q.DesiredAmount > maxAmount {
		return 0, model.ErrInvalidAmount
	}
	if q.MinReputation > reputation.MaxScore {
		return 0, model.ErrInvalidAmount
	}

	var best *model.Listing
	bestScore := 0

	for id := uint64(1); id <= m.window; id++ {
		l, err := m.registry.Get(ctx, id)
		if err != nil {
			continue // absent ids are simply skipped
		}
		score, err := m.score(ctx, l, q)
		if err != nil {
			return 0, err
		}
		// Strict > keeps the first (lowest id) on ties.
		if score > bestScore {
			bestScore = score
			best = l
		}
	}

	if best == nil {
		metrics.MatchAttempts.WithLabelValues("no_candidate").Inc()
		return 0, model.ErrNotFound
	}

	amount := q.DesiredAmount
	if best.EnergyAmount < amount {
		amount = best.EnergyAmount
	}

	tradeID, err := m.ledger.Purchase(ctx, buyer, best.ID, amount)
	if err != nil {
		metrics.MatchAttempts.WithLabelValues("purchase_failed").Inc()
		return 0, err
	}
	metrics.MatchAttempts.WithLabelValues("matched").Inc()

	slog.Info("auto-match executed",
		"buyer", buyer,
		"listing_id", best.ID,
		"score", bestScore,
		"kwh", amount,
	)
	return tradeID, nil
}

// score rates one listing against the query; zero means ineligible
// (inactive or expired — callers never see a partial score for those).
func (m *Matcher) score(ctx context.Context, l *model.Listing, q Query) (int, error) {
	if !l.Active || m.expired(l) {
		return 0, nil
	}

	score := 0
	if l.PricePerUnit.LessThanOrEqual(q.MaxPrice) {
		score += PricePoints
	}
	if l.EnergyType == q.PreferredType {
		score += TypeMatchPoints
	} else {
		score += TypeMissPoints
	}

	rep, err := m.reputation.Get(ctx, l.Seller)
	if err != nil {
		return 0, err
	}
	if rep.Score >= q.MinReputation {
		score += ReputationPoints
	}

	if l.EnergyAmount >= q.DesiredAmount {
		score += FullStockPoints
	} else {
		score += PartialStockPoints
	}
	return score, nil
}

func (m *Matcher) expired(l *model.Listing) bool {
	return m.heights.Current() > l.ExpiryHeight
}
