package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/xenking/bazaar/internal/domain/order"
	"github.com/xenking/bazaar/internal/domain/wallet"
)

var (
	_ order.Repository   = (*OrderRepository)(nil)
	_ wallet.OrderTotals = (*OrderRepository)(nil)
)

// OrderRepository implements order.Repository and wallet.OrderTotals.
type OrderRepository struct {
	s *Store
}

func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	defer r.s.lock(ctx)()
	o.ID = r.s.nextID()
	r.s.orders[o.ID] = cloneOrder(*o)
	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	defer r.s.lock(ctx)()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	o = cloneOrder(o)
	return &o, nil
}

func (r *OrderRepository) ListByBuyer(ctx context.Context, buyerID string) ([]order.Order, error) {
	return r.list(ctx, func(o order.Order) bool { return o.BuyerID == buyerID }), nil
}

func (r *OrderRepository) ListBySeller(ctx context.Context, sellerID string) ([]order.Order, error) {
	return r.list(ctx, func(o order.Order) bool { return o.SellerID == sellerID }), nil
}

func (r *OrderRepository) list(ctx context.Context, match func(order.Order) bool) []order.Order {
	defer r.s.lock(ctx)()
	var out []order.Order
	for _, o := range r.s.orders {
		if match(o) {
			out = append(out, cloneOrder(o))
		}
	}
	slices.SortFunc(out, func(a, b order.Order) int { return cmp.Compare(b.ID, a.ID) })
	return out
}

func (r *OrderRepository) SetStatus(ctx context.Context, id int64, status order.Status) error {
	defer r.s.lock(ctx)()
	o, ok := r.s.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	o.Status = status
	r.s.orders[id] = o
	return nil
}

func (r *OrderRepository) Transition(ctx context.Context, id int64, to order.Status, from ...order.Status) (bool, error) {
	defer r.s.lock(ctx)()
	o, ok := r.s.orders[id]
	if !ok || !slices.Contains(from, o.Status) {
		return false, nil
	}
	o.Status = to
	r.s.orders[id] = o
	return true, nil
}

func (r *OrderRepository) SumTotals(ctx context.Context, sellerID string, statuses ...order.Status) (decimal.Decimal, error) {
	defer r.s.lock(ctx)()
	sum := decimal.Zero
	for _, o := range r.s.orders {
		if o.SellerID == sellerID && slices.Contains(statuses, o.Status) {
			sum = sum.Add(o.Total)
		}
	}
	return sum, nil
}

func cloneOrder(o order.Order) order.Order {
	if o.Invoice != nil {
		inv := *o.Invoice
		o.Invoice = &inv
	}
	return o
}
