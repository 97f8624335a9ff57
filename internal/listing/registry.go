// Package listing implements the listing registry: creation, lookup, and
// the inventory decrement applied during purchase. Listings are mutated
// only through ApplyPurchase and are never deleted.
package listing

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/gridwatt/exchange/internal/chain"
	"github.com/gridwatt/exchange/internal/model"
	"github.com/gridwatt/exchange/internal/store"
)

// Registry owns listing records and their lifecycle
// (active → partially filled → exhausted/expired).
type Registry struct {
	store   store.Store
	heights chain.Source

	// Creation bounds on the offered amount, in kWh.
	minAmount int64
	maxAmount int64
}

// NewRegistry creates a registry with the given amount bounds.
func NewRegistry(st store.Store, heights chain.Source, minAmount, maxAmount int64) *Registry {
	return &Registry{
		store:     st,
		heights:   heights,
		minAmount: minAmount,
		maxAmount: maxAmount,
	}
}

// Bounds returns the configured [min, max] creation bounds.
func (r *Registry) Bounds() (int64, int64) {
	return r.minAmount, r.maxAmount
}

// Create stores a new active listing and returns its id. The expiry height
// is the current height plus duration. Fails with model.ErrInvalidAmount if
// the amount is outside the configured bounds or duration is zero, and with
// model.ErrInvalidPrice if the unit price is not positive.
func (r *Registry) Create(ctx context.Context, seller string, amount int64, unitPrice decimal.Decimal, energyType, location string, duration uint64) (uint64, error) {
	if amount < r.minAmount || amount > r.maxAmount || duration == 0 {
		return 0, model.ErrInvalidAmount
	}
	if unitPrice.LessThanOrEqual(decimal.Zero) {
		return 0, model.ErrInvalidPrice
	}

	id, err := r.store.NextListingID(ctx)
	if err != nil {
		return 0, err
	}

	l := &model.Listing{
		ID:           id,
		Seller:       seller,
		EnergyAmount: amount,
		PricePerUnit: unitPrice,
		EnergyType:   energyType,
		Location:     location,
		ExpiryHeight: r.heights.Current() + duration,
		Active:       true,
	}
	if err := r.store.PutListing(ctx, l); err != nil {
		return 0, err
	}
	return id, nil
}

// Get retrieves a listing by id, active or not. Pure lookup.
func (r *Registry) Get(ctx context.Context, id uint64) (*model.Listing, error) {
	return r.store.GetListing(ctx, id)
}

// List returns all listings ordered by id.
func (r *Registry) List(ctx context.Context) ([]model.Listing, error) {
	return r.store.ListListings(ctx)
}

// CheckPurchase validates that amount can be purchased from the listing
// right now, without mutating anything, and returns the listing. The trade
// ledger runs this before moving funds; ApplyPurchase repeats the checks
// when the decrement lands.
func (r *Registry) CheckPurchase(ctx context.Context, id uint64, amount int64) (*model.Listing, error) {
	l, err := r.store.GetListing(ctx, id)
	if err != nil {
		return nil, err
	}
	if !l.Active {
		return nil, model.ErrNotFound
	}
	if r.heights.Current() > l.ExpiryHeight {
		return nil, model.ErrTradeExpired
	}
	if amount <= 0 || amount > l.EnergyAmount {
		return nil, model.ErrInvalidAmount
	}
	return l, nil
}

// ApplyPurchase decrements the listing's remaining amount by amount,
// deactivating it when the remainder hits exactly zero. Invoked only by the
// trade ledger; s is the transaction scope the purchase commits in.
func (r *Registry) ApplyPurchase(ctx context.Context, s store.Store, id uint64, amount int64) (*model.Listing, error) {
	l, err := s.GetListing(ctx, id)
	if err != nil {
		return nil, err
	}
	if !l.Active {
		return nil, model.ErrNotFound
	}
	if r.heights.Current() > l.ExpiryHeight {
		return nil, model.ErrTradeExpired
	}
	if amount <= 0 || amount > l.EnergyAmount {
		return nil, model.ErrInvalidAmount
	}

	l.EnergyAmount -= amount
	if l.EnergyAmount == 0 {
		// Never leave a zero-but-active record.
		l.Active = false
	}
	if err := s.UpdateListing(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}
