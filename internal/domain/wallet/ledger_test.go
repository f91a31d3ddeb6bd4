package wallet_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/bazaar/internal/domain/order"
	"github.com/xenking/bazaar/internal/domain/profile"
	"github.com/xenking/bazaar/internal/domain/wallet"
	"github.com/xenking/bazaar/internal/errs"
	"github.com/xenking/bazaar/internal/storage/memory"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newLedger(t *testing.T) (*memory.Store, *wallet.Ledger) {
	t.Helper()
	store := memory.New()
	return store, wallet.NewLedger(store.Wallets(), store.Orders(), store.Profiles())
}

func addOrder(t *testing.T, store *memory.Store, seller, total string, status order.Status) {
	t.Helper()
	require.NoError(t, store.Orders().Create(context.Background(), &order.Order{
		ListingID: 1,
		BuyerID:   "buyer",
		SellerID:  seller,
		Total:     dec(total),
		Status:    status,
		CreatedAt: time.Now(),
	}))
}

func TestPendingFunds(t *testing.T) {
	store, ledger := newLedger(t)
	addOrder(t, store, "seller", "100", order.StatusPending)
	addOrder(t, store, "seller", "100", order.StatusCancelled)
	addOrder(t, store, "seller", "100", order.StatusCompleted)
	addOrder(t, store, "seller", "7", order.StatusPaid)
	addOrder(t, store, "seller", "7", order.StatusShipped)
	addOrder(t, store, "other", "50", order.StatusPaid)

	pending, err := ledger.PendingFunds(context.Background(), "seller")
	require.NoError(t, err)
	assert.True(t, dec("14").Equal(pending), "got %s", pending)

	none, err := ledger.PendingFunds(context.Background(), "nobody")
	require.NoError(t, err)
	assert.True(t, none.IsZero())
}

func TestCredit(t *testing.T) {
	_, ledger := newLedger(t)
	ctx := context.Background()

	require.ErrorIs(t, ledger.Credit(ctx, "seller", decimal.Zero), errs.ErrInvalidRequest)
	require.ErrorIs(t, ledger.Credit(ctx, "seller", dec("-1")), wallet.ErrInvalidAmount)

	require.NoError(t, ledger.Credit(ctx, "seller", dec("10.50")))
	require.NoError(t, ledger.Credit(ctx, "seller", dec("4.50")))

	balance, err := ledger.Available(ctx, "seller")
	require.NoError(t, err)
	assert.Equal(t, "15.00", balance.StringFixed(2))
}

func TestWithdraw(t *testing.T) {
	store, ledger := newLedger(t)
	ctx := context.Background()
	require.NoError(t, store.Profiles().Upsert(ctx, &profile.Profile{UserID: "seller", BankAccountID: "PL00123"}))
	require.NoError(t, ledger.Credit(ctx, "seller", dec("1000")))

	w, err := ledger.Withdraw(ctx, "seller")
	require.NoError(t, err)
	assert.True(t, dec("1000").Equal(w.Amount))
	assert.Equal(t, "PL00123", w.BankAccountID)

	balance, err := ledger.Available(ctx, "seller")
	require.NoError(t, err)
	assert.True(t, balance.IsZero())

	_, err = ledger.Withdraw(ctx, "seller")
	require.ErrorIs(t, err, wallet.ErrNoFunds)
	require.ErrorIs(t, err, errs.ErrInvalidState)

	history, err := ledger.Withdrawals(ctx, "seller")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, w.ID, history[0].ID)
}

func TestWithdraw_CheckOrder(t *testing.T) {
	store, ledger := newLedger(t)
	ctx := context.Background()
	require.NoError(t, ledger.Credit(ctx, "seller", dec("5")))

	_, err := ledger.Withdraw(ctx, "seller")
	require.ErrorIs(t, err, wallet.ErrNoProfile)

	require.NoError(t, store.Profiles().Upsert(ctx, &profile.Profile{UserID: "seller"}))
	_, err = ledger.Withdraw(ctx, "seller")
	require.ErrorIs(t, err, wallet.ErrNoBankAccount)

	require.NoError(t, store.Profiles().Upsert(ctx, &profile.Profile{UserID: "broke", BankAccountID: "PL1"}))
	_, err = ledger.Withdraw(ctx, "broke")
	require.ErrorIs(t, err, wallet.ErrNoFunds)

	balance, err := ledger.Available(ctx, "seller")
	require.NoError(t, err)
	assert.Equal(t, "5.00", balance.StringFixed(2), "failed withdrawals leave the balance")
}

func TestWithdraw_Concurrent(t *testing.T) {
	store, ledger := newLedger(t)
	ctx := context.Background()
	require.NoError(t, store.Profiles().Upsert(ctx, &profile.Profile{UserID: "seller", BankAccountID: "PL1"}))
	require.NoError(t, ledger.Credit(ctx, "seller", dec("250")))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		paid    []decimal.Decimal
		noFunds int
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w, err := ledger.Withdraw(ctx, "seller")
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				assert.ErrorIs(t, err, wallet.ErrNoFunds)
				noFunds++
				return
			}
			paid = append(paid, w.Amount)
		}()
	}
	wg.Wait()

	require.Len(t, paid, 1)
	assert.True(t, dec("250").Equal(paid[0]))
	assert.Equal(t, 7, noFunds)
}

func TestFinances(t *testing.T) {
	store, ledger := newLedger(t)
	ctx := context.Background()
	addOrder(t, store, "seller", "30", order.StatusPaid)
	require.NoError(t, ledger.Credit(ctx, "seller", dec("12")))

	f, err := ledger.Finances(ctx, "seller")
	require.NoError(t, err)
	assert.Equal(t, "12.00", f.Available.StringFixed(2))
	assert.Equal(t, "30.00", f.Pending.StringFixed(2))
	assert.Empty(t, f.BankAccountID)

	require.NoError(t, store.Profiles().Upsert(ctx, &profile.Profile{UserID: "seller", BankAccountID: "PL1"}))
	f, err = ledger.Finances(ctx, "seller")
	require.NoError(t, err)
	assert.Equal(t, "PL1", f.BankAccountID)
}
