package store

import (
	"testing"

	"github.com/shopspring/decimal"
)

// fakeRow feeds scanListing/scanTrade a controlled NUMERIC text value at the
// given destination index, leaving every other column at its zero value.
type fakeRow struct {
	numericAt int
	numeric   string
}

func (r fakeRow) Scan(dest ...any) error {
	*(dest[r.numericAt].(*string)) = r.numeric
	return nil
}

func TestScanListing_NumericRoundTrip(t *testing.T) {
	l, err := scanListing(fakeRow{numericAt: 3, numeric: "1234.56"})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !l.PricePerUnit.Equal(decimal.RequireFromString("1234.56")) {
		t.Errorf("expected price 1234.56, got %s", l.PricePerUnit)
	}
}

func TestScanListing_MalformedNumeric(t *testing.T) {
	if _, err := scanListing(fakeRow{numericAt: 3, numeric: "not-a-number"}); err == nil {
		t.Error("expected error for malformed price, got nil")
	}
}

func TestScanTrade_MalformedNumeric(t *testing.T) {
	if _, err := scanTrade(fakeRow{numericAt: 5, numeric: ""}); err == nil {
		t.Error("expected error for empty total, got nil")
	}
}
