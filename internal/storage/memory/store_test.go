package memory

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/bazaar/internal/domain/listing"
	"github.com/xenking/bazaar/internal/domain/opinion"
	"github.com/xenking/bazaar/internal/domain/order"
	"github.com/xenking/bazaar/internal/domain/wallet"
)

func TestWithinTx_RollbackRestoresState(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Wallets().Credit(ctx, "seller", decimal.NewFromInt(10)))

	errBoom := errors.New("boom")
	err := s.WithinTx(ctx, func(ctx context.Context) error {
		require.NoError(t, s.Wallets().Credit(ctx, "seller", decimal.NewFromInt(5)))
		require.NoError(t, s.Orders().Create(ctx, &order.Order{BuyerID: "buyer", SellerID: "seller", Status: order.StatusPending}))
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	balance, err := s.Wallets().Balance(ctx, "seller")
	require.NoError(t, err)
	assert.Equal(t, "10", balance.String())

	orders, err := s.Orders().ListByBuyer(ctx, "buyer")
	require.NoError(t, err)
	assert.Empty(t, orders)

	// The id sequence is rolled back too.
	o := &order.Order{BuyerID: "buyer"}
	require.NoError(t, s.Orders().Create(ctx, o))
	assert.Equal(t, int64(1), o.ID)
}

func TestWithinTx_Commit(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.WithinTx(ctx, func(ctx context.Context) error {
		// Nested transactions join the outer one instead of deadlocking.
		return s.WithinTx(ctx, func(ctx context.Context) error {
			return s.Wallets().Credit(ctx, "seller", decimal.NewFromInt(3))
		})
	})
	require.NoError(t, err)

	balance, err := s.Wallets().Balance(ctx, "seller")
	require.NoError(t, err)
	assert.Equal(t, "3", balance.String())
}

func TestListingSwap(t *testing.T) {
	s := New()
	ctx := context.Background()
	l := &listing.Listing{OwnerID: "seller", Quantity: 2, Status: listing.StatusActive, EndsAt: time.Now().Add(time.Hour)}
	require.NoError(t, s.Listings().Create(ctx, l))

	l.Quantity, l.Version = 1, 1
	ok, err := s.Listings().Swap(ctx, l, 0)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Listings().Swap(ctx, l, 0)
	require.NoError(t, err)
	assert.False(t, ok, "stale version must not overwrite")

	got, err := s.Listings().GetByID(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Quantity)
}

func TestOrderTransition(t *testing.T) {
	s := New()
	ctx := context.Background()
	o := &order.Order{BuyerID: "buyer", Status: order.StatusPending}
	require.NoError(t, s.Orders().Create(ctx, o))

	ok, err := s.Orders().Transition(ctx, o.ID, order.StatusPaid, order.StatusPending)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Orders().Transition(ctx, o.ID, order.StatusPaid, order.StatusPending)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.Orders().Transition(ctx, 404, order.StatusPaid, order.StatusPending)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOrderClone(t *testing.T) {
	s := New()
	ctx := context.Background()
	o := &order.Order{BuyerID: "buyer", Invoice: &order.Invoice{CompanyName: "ACME"}}
	require.NoError(t, s.Orders().Create(ctx, o))

	o.Invoice.CompanyName = "changed"
	got, err := s.Orders().GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "ACME", got.Invoice.CompanyName)
}

func TestOpinionUniquePerOrder(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Opinions().Create(ctx, &opinion.Opinion{OrderID: 1, SellerID: "seller", Rating: 4}))

	err := s.Opinions().Create(ctx, &opinion.Opinion{OrderID: 1, SellerID: "seller", Rating: 1})
	require.ErrorIs(t, err, opinion.ErrAlreadyRated)

	summary, err := s.Opinions().SellerSummary(ctx, "seller")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Count)
	assert.InDelta(t, 4.0, summary.Average, 0.001)
}

func TestWalletDrain(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.ErrorIs(t, s.Wallets().Drain(ctx, &wallet.Withdrawal{SellerID: "seller"}), wallet.ErrNoFunds)

	require.NoError(t, s.Wallets().Credit(ctx, "seller", decimal.RequireFromString("12.34")))
	w := &wallet.Withdrawal{SellerID: "seller", BankAccountID: "PL1"}
	require.NoError(t, s.Wallets().Drain(ctx, w))
	assert.Equal(t, "12.34", w.Amount.String())
	assert.NotZero(t, w.ID)

	ws, err := s.Wallets().ListWithdrawals(ctx, "seller")
	require.NoError(t, err)
	require.Len(t, ws, 1)
	assert.Equal(t, *w, ws[0])
}

func TestListingListActive(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	add := func(title, price string, status listing.Status, endsAt time.Time) int64 {
		l := &listing.Listing{
			OwnerID: "seller", Title: title, Price: decimal.RequireFromString(price),
			Quantity: 1, Status: status, EndsAt: endsAt, Version: 1,
		}
		require.NoError(t, s.Listings().Create(ctx, l))
		return l.ID
	}
	lamp := add("Desk Lamp", "30", listing.StatusActive, now.Add(time.Hour))
	chair := add("Chair", "80", listing.StatusActive, now.Add(time.Hour))
	floorLamp := add("Floor LAMP", "120", listing.StatusActive, now.Add(time.Hour))
	add("Old lamp", "5", listing.StatusActive, now)
	add("Sold lamp", "50", listing.StatusSold, now.Add(time.Hour))

	ids := func(f listing.Filter) []int64 {
		f.Now = now
		ls, err := s.Listings().ListActive(ctx, f)
		require.NoError(t, err)
		var out []int64
		for _, l := range ls {
			out = append(out, l.ID)
		}
		return out
	}

	assert.Equal(t, []int64{floorLamp, chair, lamp}, ids(listing.Filter{}))
	assert.Equal(t, []int64{floorLamp, lamp}, ids(listing.Filter{Query: "lamp"}))
	assert.Equal(t, []int64{lamp, chair, floorLamp}, ids(listing.Filter{Sort: listing.SortPriceAsc}))
	assert.Equal(t, []int64{floorLamp, chair, lamp}, ids(listing.Filter{Sort: listing.SortPriceDesc}))
	assert.Equal(t, []int64{chair}, ids(listing.Filter{
		MinPrice: decimal.NewNullDecimal(decimal.NewFromInt(80)),
		MaxPrice: decimal.NewNullDecimal(decimal.NewFromInt(119)),
	}))
}

func TestListingListByOwner(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, st := range []listing.Status{listing.StatusActive, listing.StatusSold, listing.StatusCancelled} {
		require.NoError(t, s.Listings().Create(ctx, &listing.Listing{OwnerID: "seller", Title: "x", Status: st}))
	}
	require.NoError(t, s.Listings().Create(ctx, &listing.Listing{OwnerID: "other", Title: "y", Status: listing.StatusActive}))

	ls, err := s.Listings().ListByOwner(ctx, "seller")
	require.NoError(t, err)
	require.Len(t, ls, 3)
	assert.Equal(t, listing.StatusCancelled, ls[0].Status)
	assert.Equal(t, listing.StatusActive, ls[2].Status)
}
