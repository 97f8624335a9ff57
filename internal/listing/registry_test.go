package listing_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/gridwatt/exchange/internal/chain"
	"github.com/gridwatt/exchange/internal/listing"
	"github.com/gridwatt/exchange/internal/model"
	"github.com/gridwatt/exchange/internal/store"
)

func d(i int64) decimal.Decimal {
	return decimal.NewFromInt(i)
}

func newRegistry(t *testing.T) (*listing.Registry, *store.MemoryStore, *chain.Counter) {
	t.Helper()
	ms := store.NewMemoryStore()
	heights := chain.NewCounter(1)
	return listing.NewRegistry(ms, heights, 1, 1_000_000), ms, heights
}

func TestCreate_AssignsSequentialIDs(t *testing.T) {
	reg, _, _ := newRegistry(t)
	ctx := context.Background()

	id1, err := reg.Create(ctx, "seller1", 500, d(1000), "solar", "z1", 100)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id2, err := reg.Create(ctx, "seller2", 300, d(900), "wind", "z2", 100)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id1 != 1 || id2 != 2 {
		t.Errorf("expected ids 1 and 2, got %d and %d", id1, id2)
	}
}

func TestCreate_StoresExpiryAndActive(t *testing.T) {
	reg, _, heights := newRegistry(t)
	heights.Advance(9) // height 10

	id, err := reg.Create(context.Background(), "seller1", 500, d(1000), "solar", "z1", 100)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	l, err := reg.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if l.ExpiryHeight != 110 {
		t.Errorf("expected expiry 110, got %d", l.ExpiryHeight)
	}
	if !l.Active {
		t.Error("new listing should be active")
	}
	if l.EnergyAmount != 500 {
		t.Errorf("expected 500 kWh remaining, got %d", l.EnergyAmount)
	}
}

func TestCreate_Validation(t *testing.T) {
	reg, _, _ := newRegistry(t)
	ctx := context.Background()

	cases := []struct {
		name     string
		amount   int64
		price    decimal.Decimal
		duration uint64
		want     error
	}{
		{"amount below min", 0, d(1000), 100, model.ErrInvalidAmount},
		{"amount above max", 2_000_000, d(1000), 100, model.ErrInvalidAmount},
		{"zero duration", 500, d(1000), 0, model.ErrInvalidAmount},
		{"zero price", 500, d(0), 100, model.ErrInvalidPrice},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := reg.Create(ctx, "seller1", tc.amount, tc.price, "solar", "z1", tc.duration)
			if !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestApplyPurchase_Decrements(t *testing.T) {
	reg, ms, _ := newRegistry(t)
	ctx := context.Background()

	id, _ := reg.Create(ctx, "seller1", 500, d(1000), "solar", "z1", 100)

	l, err := reg.ApplyPurchase(ctx, ms, id, 250)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if l.EnergyAmount != 250 {
		t.Errorf("expected 250 remaining, got %d", l.EnergyAmount)
	}
	if !l.Active {
		t.Error("partially filled listing should stay active")
	}
}

func TestApplyPurchase_FullRemainderDeactivates(t *testing.T) {
	reg, ms, _ := newRegistry(t)
	ctx := context.Background()

	id, _ := reg.Create(ctx, "seller1", 500, d(1000), "solar", "z1", 100)

	l, err := reg.ApplyPurchase(ctx, ms, id, 500)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if l.EnergyAmount != 0 {
		t.Errorf("expected 0 remaining, got %d", l.EnergyAmount)
	}
	if l.Active {
		t.Error("exhausted listing must be deactivated, not left zero-but-active")
	}

	// A deactivated listing is NotFound for further purchases...
	if _, err := reg.ApplyPurchase(ctx, ms, id, 1); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound on exhausted listing, got %v", err)
	}
	// ...but stays readable for audit.
	if _, err := reg.Get(ctx, id); err != nil {
		t.Errorf("exhausted listing should remain readable, got %v", err)
	}
}

func TestApplyPurchase_Oversell(t *testing.T) {
	reg, ms, _ := newRegistry(t)
	ctx := context.Background()

	id, _ := reg.Create(ctx, "seller1", 500, d(1000), "solar", "z1", 100)

	if _, err := reg.ApplyPurchase(ctx, ms, id, 501); !errors.Is(err, model.ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}

	// Nothing mutated on failure.
	l, _ := reg.Get(ctx, id)
	if l.EnergyAmount != 500 {
		t.Errorf("remaining amount should be untouched, got %d", l.EnergyAmount)
	}
}

func TestApplyPurchase_Expired(t *testing.T) {
	reg, ms, heights := newRegistry(t)
	ctx := context.Background()

	id, _ := reg.Create(ctx, "seller1", 500, d(1000), "solar", "z1", 100)
	heights.Advance(101) // past expiry

	if _, err := reg.ApplyPurchase(ctx, ms, id, 100); !errors.Is(err, model.ErrTradeExpired) {
		t.Errorf("expected ErrTradeExpired, got %v", err)
	}
}

func TestApplyPurchase_AtExpiryBoundary(t *testing.T) {
	reg, ms, heights := newRegistry(t)
	ctx := context.Background()

	id, _ := reg.Create(ctx, "seller1", 500, d(1000), "solar", "z1", 100)
	heights.Advance(100) // exactly at expiry: still purchasable

	if _, err := reg.ApplyPurchase(ctx, ms, id, 100); err != nil {
		t.Errorf("purchase at expiry height should succeed, got %v", err)
	}
}

func TestApplyPurchase_UnknownListing(t *testing.T) {
	reg, ms, _ := newRegistry(t)

	if _, err := reg.ApplyPurchase(context.Background(), ms, 42, 100); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
