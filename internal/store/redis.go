package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/gridwatt/exchange/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache for listings and reputation. Writes go to the primary store and
// invalidate the cache; reads check Redis first then fall back to the
// primary. Id allocation and escrow always hit the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Passthrough id allocation ---

func (s *CachedStore) NextListingID(ctx context.Context) (uint64, error) {
	return s.primary.NextListingID(ctx)
}

func (s *CachedStore) NextTradeID(ctx context.Context) (uint64, error) {
	return s.primary.NextTradeID(ctx)
}

// --- Listings ---

func (s *CachedStore) PutListing(ctx context.Context, l *model.Listing) error {
	if err := s.primary.PutListing(ctx, l); err != nil {
		return err
	}
	s.cacheJSON(ctx, listingKey(l.ID), l)
	return nil
}

func (s *CachedStore) GetListing(ctx context.Context, id uint64) (*model.Listing, error) {
	var l model.Listing
	if s.readJSON(ctx, listingKey(id), &l) {
		return &l, nil
	}

	fresh, err := s.primary.GetListing(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cacheJSON(ctx, listingKey(id), fresh)
	return fresh, nil
}

func (s *CachedStore) UpdateListing(ctx context.Context, l *model.Listing) error {
	if err := s.primary.UpdateListing(ctx, l); err != nil {
		return err
	}
	// Invalidate; next read re-populates.
	s.rdb.Del(ctx, listingKey(l.ID))
	return nil
}

func (s *CachedStore) ListListings(ctx context.Context) ([]model.Listing, error) {
	return s.primary.ListListings(ctx)
}

// --- Trades / escrow (not cached: settlement reads must be authoritative) ---

func (s *CachedStore) PutTrade(ctx context.Context, t *model.Trade) error {
	return s.primary.PutTrade(ctx, t)
}

func (s *CachedStore) GetTrade(ctx context.Context, id uint64) (*model.Trade, error) {
	return s.primary.GetTrade(ctx, id)
}

func (s *CachedStore) UpdateTrade(ctx context.Context, t *model.Trade) error {
	return s.primary.UpdateTrade(ctx, t)
}

func (s *CachedStore) ListTradesByAccount(ctx context.Context, account string) ([]model.Trade, error) {
	return s.primary.ListTradesByAccount(ctx, account)
}

func (s *CachedStore) PutEscrow(ctx context.Context, e *model.EscrowEntry) error {
	return s.primary.PutEscrow(ctx, e)
}

func (s *CachedStore) GetEscrow(ctx context.Context, tradeID uint64) (*model.EscrowEntry, error) {
	return s.primary.GetEscrow(ctx, tradeID)
}

func (s *CachedStore) DeleteEscrow(ctx context.Context, tradeID uint64) error {
	return s.primary.DeleteEscrow(ctx, tradeID)
}

// --- Reputation ---

func (s *CachedStore) GetReputation(ctx context.Context, account string) (*model.Reputation, error) {
	var r model.Reputation
	if s.readJSON(ctx, reputationKey(account), &r) {
		return &r, nil
	}

	fresh, err := s.primary.GetReputation(ctx, account)
	if err != nil {
		return nil, err
	}
	s.cacheJSON(ctx, reputationKey(account), fresh)
	return fresh, nil
}

func (s *CachedStore) PutReputation(ctx context.Context, r *model.Reputation) error {
	if err := s.primary.PutReputation(ctx, r); err != nil {
		return err
	}
	s.rdb.Del(ctx, reputationKey(r.Account))
	return nil
}

// --- Stats ---

func (s *CachedStore) GetStats(ctx context.Context) (*model.Stats, error) {
	return s.primary.GetStats(ctx)
}

func (s *CachedStore) AddStats(ctx context.Context, energy int64, revenue decimal.Decimal) error {
	return s.primary.AddStats(ctx, energy, revenue)
}

// InTx delegates to the primary's transaction. fn sees the raw transaction
// scope, so its reads come from the transaction snapshot, never the cache;
// the keys its writes touch are invalidated only after the commit, so a
// concurrent read-through cannot re-cache a row the transaction is about to
// supersede.
func (s *CachedStore) InTx(ctx context.Context, fn func(Store) error) error {
	rec := &txRecorder{}
	err := s.primary.InTx(ctx, func(tx Store) error {
		rec.Store = tx
		return fn(rec)
	})
	if err != nil {
		return err
	}
	for _, key := range rec.stale {
		s.rdb.Del(ctx, key)
	}
	return nil
}

// txRecorder passes every call through to the transaction scope and records
// the cache keys its writes make stale. Nothing is cached inside a
// transaction: uncommitted rows must never reach Redis.
type txRecorder struct {
	Store
	stale []string
}

func (t *txRecorder) PutListing(ctx context.Context, l *model.Listing) error {
	t.stale = append(t.stale, listingKey(l.ID))
	return t.Store.PutListing(ctx, l)
}

func (t *txRecorder) UpdateListing(ctx context.Context, l *model.Listing) error {
	t.stale = append(t.stale, listingKey(l.ID))
	return t.Store.UpdateListing(ctx, l)
}

func (t *txRecorder) PutReputation(ctx context.Context, r *model.Reputation) error {
	t.stale = append(t.stale, reputationKey(r.Account))
	return t.Store.PutReputation(ctx, r)
}

// --- Cache helpers ---

func (s *CachedStore) readJSON(ctx context.Context, key string, dst any) bool {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func (s *CachedStore) cacheJSON(ctx context.Context, key string, v any) {
	if data, err := json.Marshal(v); err == nil {
		s.rdb.Set(ctx, key, data, s.ttl)
	}
}

func listingKey(id uint64) string         { return fmt.Sprintf("listing:%d", id) }
func reputationKey(account string) string { return fmt.Sprintf("reputation:%s", account) }
