package memory

import (
	"context"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/xenking/bazaar/internal/domain/wallet"
)

var _ wallet.Repository = (*WalletRepository)(nil)

// WalletRepository implements wallet.Repository.
type WalletRepository struct {
	s *Store
}

func (r *WalletRepository) Balance(ctx context.Context, sellerID string) (decimal.Decimal, error) {
	defer r.s.lock(ctx)()
	return r.s.balances[sellerID], nil
}

func (r *WalletRepository) Credit(ctx context.Context, sellerID string, amount decimal.Decimal) error {
	defer r.s.lock(ctx)()
	r.s.balances[sellerID] = r.s.balances[sellerID].Add(amount)
	return nil
}

func (r *WalletRepository) Drain(ctx context.Context, w *wallet.Withdrawal) error {
	defer r.s.lock(ctx)()
	balance := r.s.balances[w.SellerID]
	if !balance.IsPositive() {
		return wallet.ErrNoFunds
	}
	r.s.balances[w.SellerID] = decimal.Zero
	w.ID = r.s.nextID()
	w.Amount = balance
	r.s.withdrawals = append(r.s.withdrawals, *w)
	return nil
}

func (r *WalletRepository) ListWithdrawals(ctx context.Context, sellerID string) ([]wallet.Withdrawal, error) {
	defer r.s.lock(ctx)()
	var out []wallet.Withdrawal
	for _, w := range slices.Backward(r.s.withdrawals) {
		if w.SellerID == sellerID {
			out = append(out, w)
		}
	}
	return out, nil
}
