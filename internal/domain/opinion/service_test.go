package opinion

import (
	"context"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/bazaar/internal/domain/order"
	"github.com/xenking/bazaar/internal/errs"
)

// --- Mock implementations ---

type mockOrders struct {
	byID map[int64]*order.Order
}

func (m *mockOrders) GetByID(_ context.Context, id int64) (*order.Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o, nil
}

// mockRepo stores opinions by order id. raceOnCreate simulates a concurrent
// insert that slipped past the pre-check.
type mockRepo struct {
	byOrder      map[int64]Opinion
	raceOnCreate bool
	getErr       error
}

func (m *mockRepo) Create(_ context.Context, o *Opinion) error {
	if _, ok := m.byOrder[o.OrderID]; ok || m.raceOnCreate {
		return ErrAlreadyRated
	}
	o.ID = int64(len(m.byOrder) + 1)
	m.byOrder[o.OrderID] = *o
	return nil
}

func (m *mockRepo) GetByOrderID(_ context.Context, orderID int64) (*Opinion, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	o, ok := m.byOrder[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	return &o, nil
}

func (m *mockRepo) ListBySeller(_ context.Context, sellerID string) ([]Opinion, error) {
	var out []Opinion
	for _, o := range m.byOrder {
		if o.SellerID == sellerID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *mockRepo) SellerSummary(_ context.Context, sellerID string) (*Summary, error) {
	s := &Summary{SellerID: sellerID}
	total := 0
	for _, o := range m.byOrder {
		if o.SellerID == sellerID {
			s.Count++
			total += o.Rating
		}
	}
	if s.Count > 0 {
		s.Average = float64(total) / float64(s.Count)
	}
	return s, nil
}

var _ Repository = (*mockRepo)(nil)

func newTestService() (*Service, *mockRepo) {
	repo := &mockRepo{byOrder: map[int64]Opinion{}}
	orders := &mockOrders{byID: map[int64]*order.Order{
		1: {ID: 1, BuyerID: "buyer", SellerID: "seller", Status: order.StatusCompleted},
		2: {ID: 2, BuyerID: "buyer", SellerID: "seller", Status: order.StatusPending},
	}}
	return NewService(repo, orders), repo
}

// --- Tests ---

func TestAddOpinion(t *testing.T) {
	svc, _ := newTestService()

	op, err := svc.AddOpinion(context.Background(), AddRequest{OrderID: 1, BuyerID: "buyer", Rating: 5, Comment: "great"})
	require.NoError(t, err)
	assert.Equal(t, "seller", op.SellerID)
	assert.Equal(t, 5, op.Rating)
	assert.NotZero(t, op.ID)
}

func TestAddOpinion_Validation(t *testing.T) {
	tests := []struct {
		name    string
		req     AddRequest
		wantErr error
	}{
		{"rating too low", AddRequest{OrderID: 1, BuyerID: "buyer", Rating: 0}, ErrInvalidRating},
		{"rating too high", AddRequest{OrderID: 1, BuyerID: "buyer", Rating: 6}, ErrInvalidRating},
		{"comment too long", AddRequest{OrderID: 1, BuyerID: "buyer", Rating: 3, Comment: strings.Repeat("x", 1001)}, ErrCommentTooLong},
		{"unknown order", AddRequest{OrderID: 9, BuyerID: "buyer", Rating: 3}, order.ErrNotFound},
		{"not the buyer", AddRequest{OrderID: 1, BuyerID: "seller", Rating: 3}, ErrNotBuyer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newTestService()
			_, err := svc.AddOpinion(context.Background(), tt.req)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, repo.byOrder)
		})
	}
}

func TestAddOpinion_CommentAtLimit(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.AddOpinion(context.Background(), AddRequest{
		OrderID: 1, BuyerID: "buyer", Rating: 1, Comment: strings.Repeat("ż", MaxCommentLength),
	})
	require.NoError(t, err)
}

func TestAddOpinion_Duplicate(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	first, err := svc.AddOpinion(ctx, AddRequest{OrderID: 1, BuyerID: "buyer", Rating: 4, Comment: "ok"})
	require.NoError(t, err)

	_, err = svc.AddOpinion(ctx, AddRequest{OrderID: 1, BuyerID: "buyer", Rating: 1, Comment: "changed my mind"})
	require.ErrorIs(t, err, ErrAlreadyRated)
	require.ErrorIs(t, err, errs.ErrConflict)

	stored, err := repo.GetByOrderID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, *first, *stored)
}

func TestAddOpinion_ConstraintBackstop(t *testing.T) {
	svc, repo := newTestService()
	repo.raceOnCreate = true

	_, err := svc.AddOpinion(context.Background(), AddRequest{OrderID: 1, BuyerID: "buyer", Rating: 4})
	require.ErrorIs(t, err, errs.ErrConflict)
}

func TestAddOpinion_NoStatusGate(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.AddOpinion(context.Background(), AddRequest{OrderID: 2, BuyerID: "buyer", Rating: 2})
	require.NoError(t, err)
}

func TestAddOpinion_LookupFailure(t *testing.T) {
	svc, repo := newTestService()
	repo.getErr = errors.New("db down")

	_, err := svc.AddOpinion(context.Background(), AddRequest{OrderID: 1, BuyerID: "buyer", Rating: 4})
	require.ErrorContains(t, err, "db down")
	assert.Empty(t, repo.byOrder)
}

func TestSellerRating(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	_, err := svc.AddOpinion(ctx, AddRequest{OrderID: 1, BuyerID: "buyer", Rating: 5})
	require.NoError(t, err)
	_, err = svc.AddOpinion(ctx, AddRequest{OrderID: 2, BuyerID: "buyer", Rating: 2})
	require.NoError(t, err)

	s, err := svc.SellerRating(ctx, "seller")
	require.NoError(t, err)
	assert.Equal(t, 2, s.Count)
	assert.InDelta(t, 3.5, s.Average, 0.001)

	ops, err := svc.ListForSeller(ctx, "seller")
	require.NoError(t, err)
	assert.Len(t, ops, 2)
}
