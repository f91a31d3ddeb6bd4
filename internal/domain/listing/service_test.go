package listing

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/bazaar/internal/errs"
)

// --- Mock implementations ---

// mockRepo keeps one listing and can simulate concurrent writers by losing
// the first lostSwaps compare-and-swaps. rival, when set, is applied to the
// stored listing on every lost swap as the other writer's change.
type mockRepo struct {
	stored    *Listing
	lostSwaps int
	rival     func(l *Listing)
	swaps     int
	created   *Listing
	getErr    error
	expired   time.Time
	filter    Filter
	owner     string
}

func (m *mockRepo) Create(_ context.Context, l *Listing) error {
	l.ID = 1
	m.created = l
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id int64) (*Listing, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.stored == nil || m.stored.ID != id {
		return nil, ErrNotFound
	}
	l := *m.stored
	return &l, nil
}

func (m *mockRepo) ListActive(_ context.Context, f Filter) ([]Listing, error) {
	m.filter = f
	return nil, nil
}

func (m *mockRepo) ListByOwner(_ context.Context, ownerID string) ([]Listing, error) {
	m.owner = ownerID
	if m.stored == nil || m.stored.OwnerID != ownerID {
		return nil, nil
	}
	return []Listing{*m.stored}, nil
}

func (m *mockRepo) Swap(_ context.Context, l *Listing, expected int64) (bool, error) {
	m.swaps++
	if m.lostSwaps > 0 {
		m.lostSwaps--
		if m.rival != nil {
			m.rival(m.stored)
			m.stored.Version++
		}
		return false, nil
	}
	if m.stored.Version != expected {
		return false, nil
	}
	m.stored.Quantity = l.Quantity
	m.stored.Status = l.Status
	m.stored.Version = l.Version
	return true, nil
}

func (m *mockRepo) ExpireOverdue(_ context.Context, now time.Time) (int64, error) {
	m.expired = now
	return 2, nil
}

var _ Repository = (*mockRepo)(nil)

func newService(repo Repository) *Service {
	return NewService(repo, WithClock(func() time.Time { return now }))
}

// --- Tests ---

func TestServiceReserve(t *testing.T) {
	repo := &mockRepo{stored: newTestListing(1)}
	svc := newService(repo)

	res, err := svc.Reserve(context.Background(), 7, "buyer")
	require.NoError(t, err)
	assert.Equal(t, "seller", res.SellerID)
	assert.Equal(t, 0, repo.stored.Quantity)
	assert.Equal(t, StatusSold, repo.stored.Status)
	assert.Equal(t, int64(4), repo.stored.Version)
}

func TestServiceReserve_RetriesLostSwap(t *testing.T) {
	repo := &mockRepo{stored: newTestListing(5), lostSwaps: 2}
	svc := newService(repo)

	_, err := svc.Reserve(context.Background(), 7, "buyer")
	require.NoError(t, err)
	assert.Equal(t, 3, repo.swaps)
	assert.Equal(t, 4, repo.stored.Quantity)
}

func TestServiceReserve_RetriesWhileStockRemains(t *testing.T) {
	repo := &mockRepo{
		stored:    newTestListing(20),
		lostSwaps: 10,
		rival:     func(l *Listing) { l.Quantity-- },
	}
	svc := newService(repo)

	_, err := svc.Reserve(context.Background(), 7, "buyer")
	require.NoError(t, err)
	assert.Equal(t, 11, repo.swaps)
	assert.Equal(t, 9, repo.stored.Quantity)
}

func TestServiceReserve_LostLastUnitIsSoldOut(t *testing.T) {
	repo := &mockRepo{
		stored:    newTestListing(1),
		lostSwaps: 1,
		rival: func(l *Listing) {
			l.Quantity = 0
			l.Status = StatusSold
		},
	}
	svc := newService(repo)

	_, err := svc.Reserve(context.Background(), 7, "buyer")
	require.ErrorIs(t, err, ErrSoldOut)
	require.ErrorIs(t, err, errs.ErrSoldOut)
	assert.Equal(t, 1, repo.swaps)
	assert.Equal(t, 0, repo.stored.Quantity)
}

func TestServiceReserve_ContextCancelled(t *testing.T) {
	repo := &mockRepo{stored: newTestListing(3)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newService(repo).Reserve(ctx, 7, "buyer")
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, repo.swaps)
	assert.Equal(t, 3, repo.stored.Quantity)
}

func TestServiceReserve_Errors(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		svc := newService(&mockRepo{})
		_, err := svc.Reserve(context.Background(), 99, "buyer")
		require.ErrorIs(t, err, errs.ErrNotFound)
	})

	t.Run("self purchase leaves stock", func(t *testing.T) {
		repo := &mockRepo{stored: newTestListing(3)}
		_, err := newService(repo).Reserve(context.Background(), 7, "seller")
		require.ErrorIs(t, err, errs.ErrInvalidRequest)
		assert.Equal(t, 3, repo.stored.Quantity)
		assert.Zero(t, repo.swaps)
	})

	t.Run("storage failure", func(t *testing.T) {
		svc := newService(&mockRepo{getErr: errors.New("db down")})
		_, err := svc.Reserve(context.Background(), 7, "buyer")
		require.EqualError(t, err, "db down")
	})
}

func TestServiceCreate(t *testing.T) {
	valid := CreateRequest{
		OwnerID:  "seller",
		Title:    "  Lamp ",
		Price:    decimal.RequireFromString("10.005"),
		Quantity: 2,
		EndsAt:   now.Add(24 * time.Hour),
	}

	repo := &mockRepo{}
	l, err := newService(repo).Create(context.Background(), valid)
	require.NoError(t, err)
	assert.Equal(t, int64(1), l.ID)
	assert.Equal(t, "Lamp", l.Title)
	assert.Equal(t, "10.01", l.Price.StringFixed(2))
	assert.Equal(t, StatusActive, l.Status)
	assert.Equal(t, int64(1), l.Version)
	assert.Equal(t, now, l.CreatedAt)

	tests := []struct {
		name   string
		mutate func(r *CreateRequest)
	}{
		{"no owner", func(r *CreateRequest) { r.OwnerID = "" }},
		{"blank title", func(r *CreateRequest) { r.Title = "  " }},
		{"zero price", func(r *CreateRequest) { r.Price = decimal.Zero }},
		{"zero quantity", func(r *CreateRequest) { r.Quantity = 0 }},
		{"ends in past", func(r *CreateRequest) { r.EndsAt = now.Add(-time.Minute) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			repo := &mockRepo{}
			_, err := newService(repo).Create(context.Background(), req)
			require.ErrorIs(t, err, ErrInvalidListing)
			require.ErrorIs(t, err, errs.ErrInvalidRequest)
			assert.Nil(t, repo.created)
		})
	}
}

func TestServiceCancel(t *testing.T) {
	repo := &mockRepo{stored: newTestListing(2)}
	svc := newService(repo)

	_, err := svc.Cancel(context.Background(), 7, "intruder")
	require.ErrorIs(t, err, errs.ErrUnauthorized)
	assert.Equal(t, StatusActive, repo.stored.Status)

	l, err := svc.Cancel(context.Background(), 7, "seller")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, l.Status)
	assert.Equal(t, StatusCancelled, repo.stored.Status)

	_, err = svc.Reserve(context.Background(), 7, "buyer")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestServiceCancel_RetriesLostSwap(t *testing.T) {
	repo := &mockRepo{
		stored:    newTestListing(4),
		lostSwaps: 2,
		rival:     func(l *Listing) { l.Quantity-- },
	}

	l, err := newService(repo).Cancel(context.Background(), 7, "seller")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, l.Status)
	assert.Equal(t, 2, repo.stored.Quantity)
	assert.Equal(t, 3, repo.swaps)
}

func TestServiceCancel_LosesToSale(t *testing.T) {
	repo := &mockRepo{
		stored:    newTestListing(1),
		lostSwaps: 1,
		rival: func(l *Listing) {
			l.Quantity = 0
			l.Status = StatusSold
		},
	}

	_, err := newService(repo).Cancel(context.Background(), 7, "seller")
	require.ErrorIs(t, err, ErrNotActive)
	assert.Equal(t, StatusSold, repo.stored.Status)
}

func TestServiceListActive(t *testing.T) {
	repo := &mockRepo{}
	svc := newService(repo)

	_, err := svc.ListActive(context.Background(), Filter{
		Query:    "  lamp ",
		MinPrice: decimal.NewNullDecimal(decimal.NewFromInt(5)),
		Sort:     SortPriceAsc,
	})
	require.NoError(t, err)
	assert.Equal(t, "lamp", repo.filter.Query)
	assert.Equal(t, SortPriceAsc, repo.filter.Sort)
	assert.Equal(t, now, repo.filter.Now)

	_, err = svc.ListActive(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, SortNewest, repo.filter.Sort)

	tests := []struct {
		name   string
		filter Filter
	}{
		{"unknown sort", Filter{Sort: "cheapest"}},
		{"negative min", Filter{MinPrice: decimal.NewNullDecimal(decimal.NewFromInt(-1))}},
		{"negative max", Filter{MaxPrice: decimal.NewNullDecimal(decimal.NewFromInt(-1))}},
		{"min above max", Filter{
			MinPrice: decimal.NewNullDecimal(decimal.NewFromInt(10)),
			MaxPrice: decimal.NewNullDecimal(decimal.NewFromInt(5)),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ListActive(context.Background(), tt.filter)
			require.ErrorIs(t, err, errs.ErrInvalidRequest)
		})
	}
}

func TestServiceListByOwner(t *testing.T) {
	stored := newTestListing(0)
	stored.Status = StatusSold
	repo := &mockRepo{stored: stored}

	ls, err := newService(repo).ListByOwner(context.Background(), "seller")
	require.NoError(t, err)
	require.Len(t, ls, 1)
	assert.Equal(t, StatusSold, ls[0].Status)
	assert.Equal(t, "seller", repo.owner)
}

func TestServiceExpireOverdue(t *testing.T) {
	repo := &mockRepo{}
	n, err := newService(repo).ExpireOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, now, repo.expired)
}
