package store

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/gridwatt/exchange/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu         sync.RWMutex
	listings   map[uint64]*model.Listing
	trades     map[uint64]*model.Trade
	escrows    map[uint64]*model.EscrowEntry
	reputation map[string]*model.Reputation
	stats      model.Stats
}

// NewMemoryStore creates a new in-memory store with both id sequences
// starting at 1.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		listings:   make(map[uint64]*model.Listing),
		trades:     make(map[uint64]*model.Trade),
		escrows:    make(map[uint64]*model.EscrowEntry),
		reputation: make(map[string]*model.Reputation),
		stats: model.Stats{
			PlatformRevenue: decimal.Zero,
			NextListingID:   1,
			NextTradeID:     1,
		},
	}
}

func (s *MemoryStore) NextListingID(_ context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.stats.NextListingID
	s.stats.NextListingID++
	return id, nil
}

func (s *MemoryStore) PutListing(_ context.Context, l *model.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a copy to avoid external mutation.
	cp := *l
	s.listings[l.ID] = &cp
	return nil
}

func (s *MemoryStore) GetListing(_ context.Context, id uint64) (*model.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.listings[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (s *MemoryStore) UpdateListing(_ context.Context, l *model.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.listings[l.ID]; !ok {
		return model.ErrNotFound
	}
	cp := *l
	s.listings[l.ID] = &cp
	return nil
}

func (s *MemoryStore) ListListings(_ context.Context) ([]model.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	listings := make([]model.Listing, 0, len(s.listings))
	for _, l := range s.listings {
		listings = append(listings, *l)
	}
	sort.Slice(listings, func(i, j int) bool { return listings[i].ID < listings[j].ID })
	return listings, nil
}

func (s *MemoryStore) NextTradeID(_ context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.stats.NextTradeID
	s.stats.NextTradeID++
	return id, nil
}

func (s *MemoryStore) PutTrade(_ context.Context, t *model.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *t
	s.trades[t.ID] = &cp
	return nil
}

func (s *MemoryStore) GetTrade(_ context.Context, id uint64) (*model.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.trades[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *MemoryStore) UpdateTrade(_ context.Context, t *model.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.trades[t.ID]; !ok {
		return model.ErrNotFound
	}
	cp := *t
	s.trades[t.ID] = &cp
	return nil
}

func (s *MemoryStore) ListTradesByAccount(_ context.Context, account string) ([]model.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var trades []model.Trade
	for _, t := range s.trades {
		if t.Buyer == account || t.Seller == account {
			trades = append(trades, *t)
		}
	}
	sort.Slice(trades, func(i, j int) bool { return trades[i].ID < trades[j].ID })
	return trades, nil
}

func (s *MemoryStore) PutEscrow(_ context.Context, e *model.EscrowEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *e
	s.escrows[e.TradeID] = &cp
	return nil
}

func (s *MemoryStore) GetEscrow(_ context.Context, tradeID uint64) (*model.EscrowEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.escrows[tradeID]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *MemoryStore) DeleteEscrow(_ context.Context, tradeID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.escrows[tradeID]; !ok {
		return model.ErrNotFound
	}
	delete(s.escrows, tradeID)
	return nil
}

func (s *MemoryStore) GetReputation(_ context.Context, account string) (*model.Reputation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reputation[account]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) PutReputation(_ context.Context, r *model.Reputation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *r
	s.reputation[r.Account] = &cp
	return nil
}

func (s *MemoryStore) GetStats(_ context.Context) (*model.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp := s.stats
	return &cp, nil
}

func (s *MemoryStore) AddStats(_ context.Context, energy int64, revenue decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.EnergyTraded += energy
	s.stats.PlatformRevenue = s.stats.PlatformRevenue.Add(revenue)
	return nil
}

// InTx runs fn against the store itself. Per-call atomicity for the memory
// store comes from the engine's validate-then-mutate ordering under the
// ledger mutex, so there is nothing to roll back here.
func (s *MemoryStore) InTx(_ context.Context, fn func(Store) error) error {
	return fn(s)
}
