// Package store defines the persistence interface for the exchange engine.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing).
package store

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/gridwatt/exchange/internal/model"
)

// Store is the persistence interface. PostgreSQL is the source of truth;
// Redis provides a read-through cache layer. Lookups for absent records
// return model.ErrNotFound.
type Store interface {
	// --- Listings ---

	// NextListingID allocates the next listing id. Ids are monotonic and
	// start at 1.
	NextListingID(ctx context.Context) (uint64, error)

	// PutListing persists a new listing.
	PutListing(ctx context.Context, l *model.Listing) error

	// GetListing retrieves a listing by id, active or not.
	GetListing(ctx context.Context, id uint64) (*model.Listing, error)

	// UpdateListing overwrites an existing listing's mutable fields
	// (remaining amount and active flag).
	UpdateListing(ctx context.Context, l *model.Listing) error

	// ListListings returns all listings ordered by id.
	ListListings(ctx context.Context) ([]model.Listing, error)

	// --- Trades ---

	// NextTradeID allocates the next trade id, an independent monotonic
	// sequence starting at 1.
	NextTradeID(ctx context.Context) (uint64, error)

	// PutTrade persists a new trade record.
	PutTrade(ctx context.Context, t *model.Trade) error

	// GetTrade retrieves a trade by id.
	GetTrade(ctx context.Context, id uint64) (*model.Trade, error)

	// UpdateTrade overwrites an existing trade's completion flag.
	UpdateTrade(ctx context.Context, t *model.Trade) error

	// ListTradesByAccount returns all trades where the account is buyer or
	// seller, ordered by id.
	ListTradesByAccount(ctx context.Context, account string) ([]model.Trade, error)

	// --- Escrow ---

	// PutEscrow persists the escrow entry backing a pending trade.
	PutEscrow(ctx context.Context, e *model.EscrowEntry) error

	// GetEscrow retrieves the escrow entry for a trade.
	GetEscrow(ctx context.Context, tradeID uint64) (*model.EscrowEntry, error)

	// DeleteEscrow removes the escrow entry after release.
	DeleteEscrow(ctx context.Context, tradeID uint64) error

	// --- Reputation ---

	// GetReputation retrieves an account's reputation record.
	// Absent records return model.ErrNotFound; the tracker supplies the
	// default triple.
	GetReputation(ctx context.Context, account string) (*model.Reputation, error)

	// PutReputation inserts or overwrites a reputation record.
	PutReputation(ctx context.Context, r *model.Reputation) error

	// --- Platform accumulators ---

	// GetStats returns the cumulative platform counters.
	GetStats(ctx context.Context) (*model.Stats, error)

	// AddStats adds to the cumulative energy-traded and revenue counters.
	AddStats(ctx context.Context, energy int64, revenue decimal.Decimal) error

	// InTx runs fn against a transaction-scoped Store. All mutations made
	// through it commit together or not at all; fn returning an error rolls
	// everything back.
	InTx(ctx context.Context, fn func(Store) error) error
}
