// Package trade implements the trade ledger: the escrow-backed purchase
// path and the two-phase confirm settlement. Funds leave the buyer at
// purchase time and reach the seller only at confirmation; a buyer who
// never confirms leaves the escrow locked indefinitely (documented
// limitation of the settlement model — there is no reclaim path).
//
// All monetary values use shopspring/decimal — never float64 for money.
package trade

import (
	"context"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/gridwatt/exchange/internal/bank"
	"github.com/gridwatt/exchange/internal/chain"
	"github.com/gridwatt/exchange/internal/listing"
	"github.com/gridwatt/exchange/internal/metrics"
	"github.com/gridwatt/exchange/internal/model"
	"github.com/gridwatt/exchange/internal/reputation"
	"github.com/gridwatt/exchange/internal/store"
)

// FeeDenominator converts basis points to a fraction.
const FeeDenominator = 10_000

// Ledger owns trade records and the escrow entries tied to them. A mutex
// serializes purchase and confirm execution (single-instance). For
// horizontal scaling, replace with distributed locking or database-level
// optimistic concurrency.
type Ledger struct {
	store      store.Store
	registry   *listing.Registry
	reputation *reputation.Tracker
	bank       bank.Service
	heights    chain.Source

	custody string // account holding escrowed funds
	feeBps  int64

	mu sync.Mutex
}

// NewLedger creates a trade ledger. custody is the account escrowed funds
// are held in between purchase and confirmation; feeBps is the platform fee
// in basis points of each settled trade.
func NewLedger(st store.Store, reg *listing.Registry, rep *reputation.Tracker, bk bank.Service, heights chain.Source, custody string, feeBps int64) *Ledger {
	return &Ledger{
		store:      st,
		registry:   reg,
		reputation: rep,
		bank:       bk,
		heights:    heights,
		custody:    custody,
		feeBps:     feeBps,
	}
}

// Get retrieves a trade by id. Pure read.
func (l *Ledger) Get(ctx context.Context, id uint64) (*model.Trade, error) {
	return l.store.GetTrade(ctx, id)
}

// Escrow retrieves the escrow entry for a pending trade. Pure read.
func (l *Ledger) Escrow(ctx context.Context, tradeID uint64) (*model.EscrowEntry, error) {
	return l.store.GetEscrow(ctx, tradeID)
}

// ListByAccount returns all trades the account participates in.
func (l *Ledger) ListByAccount(ctx context.Context, account string) ([]model.Trade, error) {
	return l.store.ListTradesByAccount(ctx, account)
}

// Purchase buys amount kWh from the listing on behalf of buyer. The full
// price moves from the buyer into custody before any record is written;
// the listing decrement, trade record and escrow entry then commit in one
// store transaction. Nothing is left behind on any failure.
func (l *Ledger) Purchase(ctx context.Context, buyer string, listingID uint64, amount int64) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Validation first; no mutation can interleave while the mutex is held.
	lst, err := l.registry.CheckPurchase(ctx, listingID, amount)
	if err != nil {
		return 0, err
	}
	if buyer == lst.Seller {
		// A seller may not buy their own listing.
		return 0, model.ErrUnauthorized
	}

	total := lst.PricePerUnit.Mul(decimal.NewFromInt(amount))

	// Move funds into custody. Atomic: on ErrInsufficientFunds nothing has
	// happened yet.
	if err := l.bank.Transfer(ctx, buyer, l.custody, total); err != nil {
		return 0, err
	}

	var tradeID uint64
	err = l.store.InTx(ctx, func(tx store.Store) error {
		if _, err := l.registry.ApplyPurchase(ctx, tx, listingID, amount); err != nil {
			return err
		}

		id, err := tx.NextTradeID(ctx)
		if err != nil {
			return err
		}
		tradeID = id

		t := &model.Trade{
			ID:           id,
			ListingID:    listingID,
			Buyer:        buyer,
			Seller:       lst.Seller,
			EnergyAmount: amount,
			TotalPrice:   total,
			CreatedAt:    l.heights.Current(),
		}
		if err := tx.PutTrade(ctx, t); err != nil {
			return err
		}
		return tx.PutEscrow(ctx, &model.EscrowEntry{
			TradeID:   id,
			Amount:    total,
			Depositor: buyer,
		})
	})
	if err != nil {
		// The records never landed; return the buyer's funds.
		if rerr := l.bank.Transfer(ctx, l.custody, buyer, total); rerr != nil {
			slog.Error("escrow refund failed", "buyer", buyer, "amount", total.String(), "err", rerr)
		}
		return 0, err
	}

	metrics.TradesTotal.Inc()
	metrics.EscrowLocked.Add(toFloat(total))

	slog.Info("trade opened",
		"trade_id", tradeID,
		"listing_id", listingID,
		"buyer", buyer,
		"seller", lst.Seller,
		"kwh", amount,
		"total", total.String(),
	)
	return tradeID, nil
}

// Confirm settles the trade: the platform fee is
// floor(total × feeBps / 10000), the remainder is released from custody to
// the seller, the escrow entry is deleted, the cumulative counters grow,
// and both parties' reputation records a success. Only the buyer may
// confirm, and only once.
func (l *Ledger) Confirm(ctx context.Context, caller string, tradeID uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.store.GetTrade(ctx, tradeID)
	if err != nil {
		return err
	}
	if caller != t.Buyer {
		return model.ErrUnauthorized
	}
	if t.Completed {
		return model.ErrTradeCompleted
	}
	if _, err := l.store.GetEscrow(ctx, tradeID); err != nil {
		return err
	}

	fee := t.TotalPrice.Mul(decimal.NewFromInt(l.feeBps)).
		Div(decimal.NewFromInt(FeeDenominator)).Floor()
	sellerAmount := t.TotalPrice.Sub(fee)

	// Release first: if the transfer fails, no state has changed.
	if err := l.bank.Transfer(ctx, l.custody, t.Seller, sellerAmount); err != nil {
		return err
	}

	err = l.store.InTx(ctx, func(tx store.Store) error {
		t.Completed = true
		if err := tx.UpdateTrade(ctx, t); err != nil {
			return err
		}
		if err := tx.DeleteEscrow(ctx, tradeID); err != nil {
			return err
		}
		if err := tx.AddStats(ctx, t.EnergyAmount, fee); err != nil {
			return err
		}
		if err := l.reputation.RecordOutcome(ctx, tx, t.Buyer, true); err != nil {
			return err
		}
		return l.reputation.RecordOutcome(ctx, tx, t.Seller, true)
	})
	if err != nil {
		// Put the release back so the escrow stays whole.
		if rerr := l.bank.Transfer(ctx, t.Seller, l.custody, sellerAmount); rerr != nil {
			slog.Error("settlement rollback failed", "trade_id", tradeID, "err", rerr)
		}
		return err
	}

	metrics.TradesConfirmed.Inc()
	metrics.EscrowLocked.Sub(toFloat(t.TotalPrice))
	metrics.EnergyTraded.Add(float64(t.EnergyAmount))
	metrics.PlatformRevenue.Add(toFloat(fee))

	slog.Info("trade settled",
		"trade_id", tradeID,
		"buyer", t.Buyer,
		"seller", t.Seller,
		"seller_amount", sellerAmount.String(),
		"fee", fee.String(),
	)
	return nil
}

// toFloat converts a decimal for metrics only; authoritative accounting
// stays in decimal.
func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
