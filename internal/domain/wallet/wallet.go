// Package wallet is the seller settlement ledger.
//
// Only the settled balance is stored. Pending funds are a projection over the
// seller's paid and shipped orders and are computed on every read.
package wallet

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/bazaar/internal/domain/order"
	"github.com/xenking/bazaar/internal/errs"
)

var (
	ErrNoProfile     = errs.New(errs.ErrInvalidRequest, "seller has no profile")
	ErrNoBankAccount = errs.New(errs.ErrInvalidRequest, "no bank account registered")
	ErrNoFunds       = errs.New(errs.ErrInvalidState, "no funds available to withdraw")
	ErrInvalidAmount = errs.New(errs.ErrInvalidRequest, "amount must be greater than 0")
)

// PendingStatuses are the order statuses whose totals count as pending funds.
var PendingStatuses = []order.Status{order.StatusPaid, order.StatusShipped}

// Withdrawal is the receipt of a balance payout.
type Withdrawal struct {
	ID            int64
	SellerID      string
	Amount        decimal.Decimal
	BankAccountID string
	CreatedAt     time.Time
}

// Finances summarises a seller's money.
type Finances struct {
	Available     decimal.Decimal
	Pending       decimal.Decimal
	BankAccountID string
}

// Repository stores settled balances and withdrawal receipts.
type Repository interface {
	// Balance returns the settled balance, zero for sellers without a wallet.
	Balance(ctx context.Context, sellerID string) (decimal.Decimal, error)
	Credit(ctx context.Context, sellerID string, amount decimal.Decimal) error
	// Drain atomically zeroes a positive balance and stores w with the
	// drained amount. It returns ErrNoFunds when there is nothing to drain.
	Drain(ctx context.Context, w *Withdrawal) error
	ListWithdrawals(ctx context.Context, sellerID string) ([]Withdrawal, error)
}

// OrderTotals sums order totals for a seller.
type OrderTotals interface {
	SumTotals(ctx context.Context, sellerID string, statuses ...order.Status) (decimal.Decimal, error)
}
