package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/xenking/bazaar/internal/domain/wallet"
)

const (
	getBalanceSQL = `SELECT balance FROM wallets WHERE seller_id = $1`

	creditWalletSQL = `INSERT INTO wallets (seller_id, balance) VALUES ($1, $2)
		ON CONFLICT (seller_id) DO UPDATE
		SET balance = wallets.balance + EXCLUDED.balance, updated_at = now()`

	// The row lock makes a concurrent drain re-check balance > 0 after the
	// first one commits, so it finds nothing.
	drainWalletSQL = `WITH prev AS (
			SELECT seller_id, balance FROM wallets
			WHERE seller_id = $1 AND balance > 0
			FOR UPDATE
		), drained AS (
			UPDATE wallets w SET balance = 0, updated_at = now()
			FROM prev WHERE w.seller_id = prev.seller_id
			RETURNING prev.balance
		)
		INSERT INTO withdrawals (seller_id, amount, bank_account_id, created_at)
		SELECT $1, balance, $2, $3 FROM drained
		RETURNING id, amount`

	listWithdrawalsSQL = `SELECT id, seller_id, amount, bank_account_id, created_at
		FROM withdrawals WHERE seller_id = $1 ORDER BY id DESC`
)

var _ wallet.Repository = (*WalletRepository)(nil)

// WalletRepository implements wallet.Repository backed by PostgreSQL.
type WalletRepository struct {
	db *DB
}

// NewWalletRepository returns a WalletRepository using db.
func NewWalletRepository(db *DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// Balance returns the settled balance, zero when the seller has no wallet.
func (r *WalletRepository) Balance(ctx context.Context, sellerID string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.db.conn(ctx).QueryRow(ctx, getBalanceSQL, sellerID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("getting balance of %q: %w", sellerID, err)
	}
	return balance, nil
}

// Credit adds amount to the seller's balance, creating the wallet if needed.
func (r *WalletRepository) Credit(ctx context.Context, sellerID string, amount decimal.Decimal) error {
	if _, err := r.db.conn(ctx).Exec(ctx, creditWalletSQL, sellerID, amount); err != nil {
		return fmt.Errorf("crediting %q: %w", sellerID, err)
	}
	return nil
}

// Drain zeroes a positive balance and records the withdrawal in one
// statement.
func (r *WalletRepository) Drain(ctx context.Context, w *wallet.Withdrawal) error {
	err := r.db.conn(ctx).QueryRow(ctx, drainWalletSQL, w.SellerID, w.BankAccountID, w.CreatedAt).
		Scan(&w.ID, &w.Amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return wallet.ErrNoFunds
		}
		return fmt.Errorf("draining wallet of %q: %w", w.SellerID, err)
	}
	return nil
}

// ListWithdrawals returns the seller's withdrawals, newest first.
func (r *WalletRepository) ListWithdrawals(ctx context.Context, sellerID string) ([]wallet.Withdrawal, error) {
	rows, err := r.db.conn(ctx).Query(ctx, listWithdrawalsSQL, sellerID)
	if err != nil {
		return nil, fmt.Errorf("listing withdrawals of %q: %w", sellerID, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (wallet.Withdrawal, error) {
		var w wallet.Withdrawal
		err := row.Scan(&w.ID, &w.SellerID, &w.Amount, &w.BankAccountID, &w.CreatedAt)
		return w, err
	})
}
