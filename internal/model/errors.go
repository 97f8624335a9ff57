package model

import "errors"

// Domain errors are pure — no infrastructure dependency. Every engine
// operation is terminal on failure: it aborts with one of these sentinels
// and no partial state change. Infrastructure layers may annotate with %w;
// callers match with errors.Is.
var (
	// ErrOwnerOnly rejects administrative calls from non-owner accounts.
	ErrOwnerOnly = errors.New("caller is not the contract owner")

	// ErrNotFound covers absent or inactive listings, unknown trades and
	// missing escrow entries.
	ErrNotFound = errors.New("record not found")

	// ErrInsufficientFunds is surfaced by the value-transfer primitive when
	// the source account cannot cover the amount.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrUnauthorized rejects a caller acting on a record it does not own,
	// including a seller buying from their own listing.
	ErrUnauthorized = errors.New("caller not authorized")

	// ErrInvalidAmount rejects energy amounts outside the configured bounds
	// or exceeding a listing's remaining quantity.
	ErrInvalidAmount = errors.New("invalid energy amount")

	// ErrTradeExpired rejects purchases against listings past their expiry
	// height. Expiry is checked lazily, only when a listing is touched.
	ErrTradeExpired = errors.New("listing expired")

	// ErrTradeCompleted rejects a second confirmation of a settled trade.
	ErrTradeCompleted = errors.New("trade already completed")

	// ErrInvalidPrice rejects zero unit prices and zero price ceilings.
	ErrInvalidPrice = errors.New("invalid price")
)
