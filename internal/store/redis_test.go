package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/gridwatt/exchange/internal/model"
)

// newCachedOverMemory builds a CachedStore over an in-memory primary. The
// redis client points nowhere; every cache call degrades to the primary, so
// these tests exercise the transaction plumbing, not Redis itself.
func newCachedOverMemory(t *testing.T) (*CachedStore, *MemoryStore) {
	t.Helper()
	ms := NewMemoryStore()
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	return NewCachedStore(ms, rdb, time.Second), ms
}

func seedListing(t *testing.T, ms *MemoryStore, id uint64, amount int64) {
	t.Helper()
	err := ms.PutListing(context.Background(), &model.Listing{
		ID:           id,
		Seller:       "seller1",
		EnergyAmount: amount,
		PricePerUnit: decimal.NewFromInt(1000),
		EnergyType:   "solar",
		ExpiryHeight: 100,
		Active:       true,
	})
	if err != nil {
		t.Fatalf("seed listing: %v", err)
	}
}

func TestCachedStoreInTx_ReadsBypassCache(t *testing.T) {
	cs, ms := newCachedOverMemory(t)
	ctx := context.Background()
	seedListing(t, ms, 1, 500)

	err := cs.InTx(ctx, func(tx Store) error {
		if _, ok := tx.(*CachedStore); ok {
			t.Error("transaction scope must not read through the cache")
		}

		l, err := tx.GetListing(ctx, 1)
		if err != nil {
			return err
		}
		l.EnergyAmount -= 250
		return tx.UpdateListing(ctx, l)
	})
	if err != nil {
		t.Fatalf("in tx: %v", err)
	}

	l, _ := ms.GetListing(ctx, 1)
	if l.EnergyAmount != 250 {
		t.Errorf("expected primary remaining 250, got %d", l.EnergyAmount)
	}
}

func TestCachedStoreInTx_RecordsStaleKeys(t *testing.T) {
	cs, ms := newCachedOverMemory(t)
	ctx := context.Background()
	seedListing(t, ms, 1, 500)

	err := cs.InTx(ctx, func(tx Store) error {
		rec, ok := tx.(*txRecorder)
		if !ok {
			t.Fatal("expected transaction writes to be key-recorded")
		}

		l, err := tx.GetListing(ctx, 1)
		if err != nil {
			return err
		}
		if err := tx.UpdateListing(ctx, l); err != nil {
			return err
		}
		if err := tx.PutReputation(ctx, &model.Reputation{Account: "alice", Score: 510}); err != nil {
			return err
		}

		want := []string{listingKey(1), reputationKey("alice")}
		if len(rec.stale) != len(want) {
			t.Fatalf("expected %d stale keys, got %v", len(want), rec.stale)
		}
		for i, key := range want {
			if rec.stale[i] != key {
				t.Errorf("stale key %d: expected %s, got %s", i, key, rec.stale[i])
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("in tx: %v", err)
	}
}

func TestCachedStoreInTx_PropagatesError(t *testing.T) {
	cs, _ := newCachedOverMemory(t)

	sentinel := errors.New("boom")
	err := cs.InTx(context.Background(), func(Store) error { return sentinel })
	if !errors.Is(err, sentinel) {
		t.Errorf("expected transaction error to propagate, got %v", err)
	}
}
