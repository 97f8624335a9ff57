// Package model defines the core domain types shared across the exchange
// engine. All monetary values use shopspring/decimal — never float64 for
// money. Prices are denominated in micro-currency per kWh; energy amounts
// are whole kWh.
package model

import "github.com/shopspring/decimal"

// Listing is a seller's offer of energy at a fixed unit price, valid until
// ExpiryHeight. Listings are never deleted: once the remaining amount hits
// zero the record is deactivated but stays readable for audit.
type Listing struct {
	ID           uint64          `json:"id" db:"id"`
	Seller       string          `json:"seller" db:"seller"`
	EnergyAmount int64           `json:"energy_amount" db:"energy_amount"` // remaining kWh
	PricePerUnit decimal.Decimal `json:"price_per_unit" db:"price_per_unit"`
	EnergyType   string          `json:"energy_type" db:"energy_type"` // "solar", "wind", ...
	Location     string          `json:"location" db:"location"`       // opaque, never interpreted
	ExpiryHeight uint64          `json:"expiry_height" db:"expiry_height"`
	Active       bool            `json:"active" db:"active"`
}

// Trade records a buyer's purchase of some quantity from a listing, pending
// settlement. Buyer, Seller and TotalPrice are fixed at creation time and
// immune to later listing mutation. Completed transitions false→true exactly
// once and never reverses.
type Trade struct {
	ID           uint64          `json:"id" db:"id"`
	ListingID    uint64          `json:"listing_id" db:"listing_id"`
	Buyer        string          `json:"buyer" db:"buyer"`
	Seller       string          `json:"seller" db:"seller"`
	EnergyAmount int64           `json:"energy_amount" db:"energy_amount"`
	TotalPrice   decimal.Decimal `json:"total_price" db:"total_price"`
	CreatedAt    uint64          `json:"created_at" db:"created_at"` // chain height at purchase
	Completed    bool            `json:"completed" db:"completed"`
}

// EscrowEntry is the custodial hold backing one pending trade. It exists if
// and only if the owning trade is not yet completed; confirmation releases
// the funds to the seller and deletes the entry.
type EscrowEntry struct {
	TradeID   uint64          `json:"trade_id" db:"trade_id"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	Depositor string          `json:"depositor" db:"depositor"` // the buyer
}

// Reputation is a participant's bounded trust record. An absent record is
// semantically the default triple (0, 0, 500); both counters only grow.
type Reputation struct {
	Account          string `json:"account" db:"account"`
	TotalTrades      uint64 `json:"total_trades" db:"total_trades"`
	SuccessfulTrades uint64 `json:"successful_trades" db:"successful_trades"`
	Score            uint32 `json:"score" db:"score"` // clamped to [0, 1000]
}

// Stats aggregates the platform-wide append-only accumulators.
type Stats struct {
	EnergyTraded    int64           `json:"energy_traded" db:"energy_traded"` // cumulative kWh
	PlatformRevenue decimal.Decimal `json:"platform_revenue" db:"platform_revenue"`
	NextListingID   uint64          `json:"next_listing_id" db:"next_listing_id"`
	NextTradeID     uint64          `json:"next_trade_id" db:"next_trade_id"`
}
