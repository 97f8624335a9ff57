// Package bank models the value-transfer primitive the engine settles
// through. A transfer is atomic and all-or-nothing between two accounts;
// the engine never sees partial movement. All balances use
// shopspring/decimal — never float64 for money.
package bank

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gridwatt/exchange/internal/model"
)

// Service is the fund-movement boundary. Production deployments back this
// with a payment rail; the engine only requires the atomicity contract.
type Service interface {
	// Transfer moves amount from one account to another. It either fully
	// applies or fails with model.ErrInsufficientFunds, leaving both
	// balances untouched.
	Transfer(ctx context.Context, from, to string, amount decimal.Decimal) error

	// Deposit credits an account from outside the system.
	Deposit(ctx context.Context, account string, amount decimal.Decimal) error

	// Balance returns an account's current balance (zero if unknown).
	Balance(ctx context.Context, account string) (decimal.Decimal, error)
}

// Receipt is an immutable record of one executed transfer.
type Receipt struct {
	ID     string          `json:"id"`
	From   string          `json:"from"`
	To     string          `json:"to"`
	Amount decimal.Decimal `json:"amount"`
	At     time.Time       `json:"at"`
}

// Ledger implements Service with in-memory balances, guarded by a single
// mutex so each transfer is atomic.
type Ledger struct {
	mu       sync.Mutex
	balances map[string]decimal.Decimal
	receipts []Receipt
}

// NewLedger creates an empty in-memory bank ledger.
func NewLedger() *Ledger {
	return &Ledger{balances: make(map[string]decimal.Decimal)}
}

func (l *Ledger) Transfer(_ context.Context, from, to string, amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balances[from].LessThan(amount) {
		return model.ErrInsufficientFunds
	}
	l.balances[from] = l.balances[from].Sub(amount)
	l.balances[to] = l.balances[to].Add(amount)
	l.receipts = append(l.receipts, Receipt{
		ID:     uuid.New().String(),
		From:   from,
		To:     to,
		Amount: amount,
		At:     time.Now().UTC(),
	})
	return nil
}

func (l *Ledger) Deposit(_ context.Context, account string, amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.balances[account] = l.balances[account].Add(amount)
	return nil
}

func (l *Ledger) Balance(_ context.Context, account string) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.balances[account], nil
}

// Receipts returns a copy of the transfer history, oldest first.
func (l *Ledger) Receipts() []Receipt {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Receipt, len(l.receipts))
	copy(out, l.receipts)
	return out
}
