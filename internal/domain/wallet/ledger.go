package wallet

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/bazaar/internal/domain/profile"
)

// Ledger derives and moves seller funds.
type Ledger struct {
	repo     Repository
	totals   OrderTotals
	profiles profile.Lookup
	now      func() time.Time
}

// NewLedger creates a Ledger.
func NewLedger(repo Repository, totals OrderTotals, profiles profile.Lookup) *Ledger {
	return &Ledger{
		repo:     repo,
		totals:   totals,
		profiles: profiles,
		now:      time.Now,
	}
}

// PendingFunds returns the total of the seller's paid and shipped orders.
func (l *Ledger) PendingFunds(ctx context.Context, sellerID string) (decimal.Decimal, error) {
	sum, err := l.totals.SumTotals(ctx, sellerID, PendingStatuses...)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "sum pending orders")
	}
	return sum, nil
}

// Available returns the settled balance.
func (l *Ledger) Available(ctx context.Context, sellerID string) (decimal.Decimal, error) {
	return l.repo.Balance(ctx, sellerID)
}

// Credit adds amount to the seller's settled balance.
func (l *Ledger) Credit(ctx context.Context, sellerID string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	return l.repo.Credit(ctx, sellerID, amount)
}

// Withdraw pays out the whole settled balance. Profile, bank account and
// balance are checked in that order before anything is written.
func (l *Ledger) Withdraw(ctx context.Context, sellerID string) (*Withdrawal, error) {
	p, err := l.profiles.GetByUserID(ctx, sellerID)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return nil, ErrNoProfile
		}
		return nil, errors.Wrap(err, "get seller profile")
	}
	if !p.HasBankAccount() {
		return nil, ErrNoBankAccount
	}

	balance, err := l.repo.Balance(ctx, sellerID)
	if err != nil {
		return nil, errors.Wrap(err, "get balance")
	}
	if !balance.IsPositive() {
		return nil, ErrNoFunds
	}

	w := &Withdrawal{
		SellerID:      sellerID,
		BankAccountID: p.BankAccountID,
		CreatedAt:     l.now(),
	}
	if err := l.repo.Drain(ctx, w); err != nil {
		return nil, err
	}

	zctx.From(ctx).Info("Balance withdrawn",
		zap.Int64("withdrawal_id", w.ID),
		zap.String("seller_id", sellerID),
		zap.String("amount", w.Amount.StringFixed(2)),
	)
	return w, nil
}

// Finances returns available and pending funds with the payout account.
func (l *Ledger) Finances(ctx context.Context, sellerID string) (*Finances, error) {
	available, err := l.Available(ctx, sellerID)
	if err != nil {
		return nil, errors.Wrap(err, "get balance")
	}
	pending, err := l.PendingFunds(ctx, sellerID)
	if err != nil {
		return nil, err
	}

	f := &Finances{Available: available, Pending: pending}
	p, err := l.profiles.GetByUserID(ctx, sellerID)
	switch {
	case err == nil:
		f.BankAccountID = p.BankAccountID
	case !errors.Is(err, profile.ErrNotFound):
		return nil, errors.Wrap(err, "get seller profile")
	}
	return f, nil
}

// Withdrawals returns the seller's payout history, newest first.
func (l *Ledger) Withdrawals(ctx context.Context, sellerID string) ([]Withdrawal, error) {
	return l.repo.ListWithdrawals(ctx, sellerID)
}
