package bank_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/gridwatt/exchange/internal/bank"
	"github.com/gridwatt/exchange/internal/model"
)

func d(i int64) decimal.Decimal {
	return decimal.NewFromInt(i)
}

func TestTransfer_MovesFunds(t *testing.T) {
	l := bank.NewLedger()
	ctx := context.Background()

	l.Deposit(ctx, "alice", d(1000))
	if err := l.Transfer(ctx, "alice", "bob", d(400)); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	aliceBal, _ := l.Balance(ctx, "alice")
	bobBal, _ := l.Balance(ctx, "bob")
	if !aliceBal.Equal(d(600)) {
		t.Errorf("expected alice 600, got %s", aliceBal)
	}
	if !bobBal.Equal(d(400)) {
		t.Errorf("expected bob 400, got %s", bobBal)
	}
}

func TestTransfer_InsufficientFundsIsAllOrNothing(t *testing.T) {
	l := bank.NewLedger()
	ctx := context.Background()

	l.Deposit(ctx, "alice", d(100))
	err := l.Transfer(ctx, "alice", "bob", d(101))
	if !errors.Is(err, model.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	// Neither balance moved.
	aliceBal, _ := l.Balance(ctx, "alice")
	bobBal, _ := l.Balance(ctx, "bob")
	if !aliceBal.Equal(d(100)) || !bobBal.IsZero() {
		t.Errorf("balances must be untouched, got alice=%s bob=%s", aliceBal, bobBal)
	}
	if len(l.Receipts()) != 0 {
		t.Errorf("failed transfer must not leave a receipt")
	}
}

func TestTransfer_ExactBalance(t *testing.T) {
	l := bank.NewLedger()
	ctx := context.Background()

	l.Deposit(ctx, "alice", d(100))
	if err := l.Transfer(ctx, "alice", "bob", d(100)); err != nil {
		t.Fatalf("transfer of exact balance should succeed, got %v", err)
	}
	aliceBal, _ := l.Balance(ctx, "alice")
	if !aliceBal.IsZero() {
		t.Errorf("expected alice drained, got %s", aliceBal)
	}
}

func TestReceipts_RecordHistory(t *testing.T) {
	l := bank.NewLedger()
	ctx := context.Background()

	l.Deposit(ctx, "alice", d(1000))
	l.Transfer(ctx, "alice", "bob", d(100))
	l.Transfer(ctx, "alice", "carol", d(200))

	receipts := l.Receipts()
	if len(receipts) != 2 {
		t.Fatalf("expected 2 receipts, got %d", len(receipts))
	}
	if receipts[0].To != "bob" || receipts[1].To != "carol" {
		t.Errorf("receipts out of order: %s, %s", receipts[0].To, receipts[1].To)
	}
	if receipts[0].ID == "" || receipts[0].ID == receipts[1].ID {
		t.Error("receipts should carry distinct non-empty ids")
	}
}

func TestBalance_UnknownAccountIsZero(t *testing.T) {
	l := bank.NewLedger()
	bal, err := l.Balance(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !bal.IsZero() {
		t.Errorf("expected zero, got %s", bal)
	}
}
