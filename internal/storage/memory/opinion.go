package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/xenking/bazaar/internal/domain/opinion"
)

var _ opinion.Repository = (*OpinionRepository)(nil)

// OpinionRepository implements opinion.Repository.
type OpinionRepository struct {
	s *Store
}

func (r *OpinionRepository) Create(ctx context.Context, o *opinion.Opinion) error {
	defer r.s.lock(ctx)()
	for _, existing := range r.s.opinions {
		if existing.OrderID == o.OrderID {
			return opinion.ErrAlreadyRated
		}
	}
	o.ID = r.s.nextID()
	r.s.opinions[o.ID] = *o
	return nil
}

func (r *OpinionRepository) GetByOrderID(ctx context.Context, orderID int64) (*opinion.Opinion, error) {
	defer r.s.lock(ctx)()
	for _, o := range r.s.opinions {
		if o.OrderID == orderID {
			return &o, nil
		}
	}
	return nil, opinion.ErrNotFound
}

func (r *OpinionRepository) ListBySeller(ctx context.Context, sellerID string) ([]opinion.Opinion, error) {
	defer r.s.lock(ctx)()
	var out []opinion.Opinion
	for _, o := range r.s.opinions {
		if o.SellerID == sellerID {
			out = append(out, o)
		}
	}
	slices.SortFunc(out, func(a, b opinion.Opinion) int { return cmp.Compare(b.ID, a.ID) })
	return out, nil
}

func (r *OpinionRepository) SellerSummary(ctx context.Context, sellerID string) (*opinion.Summary, error) {
	defer r.s.lock(ctx)()
	sum := &opinion.Summary{SellerID: sellerID}
	total := 0
	for _, o := range r.s.opinions {
		if o.SellerID == sellerID {
			sum.Count++
			total += o.Rating
		}
	}
	if sum.Count > 0 {
		sum.Average = float64(total) / float64(sum.Count)
	}
	return sum, nil
}
