package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/xenking/bazaar/internal/domain/listing"
)

var _ listing.Repository = (*ListingRepository)(nil)

// ListingRepository implements listing.Repository.
type ListingRepository struct {
	s *Store
}

func (r *ListingRepository) Create(ctx context.Context, l *listing.Listing) error {
	defer r.s.lock(ctx)()
	l.ID = r.s.nextID()
	r.s.listings[l.ID] = *l
	return nil
}

func (r *ListingRepository) GetByID(ctx context.Context, id int64) (*listing.Listing, error) {
	defer r.s.lock(ctx)()
	l, ok := r.s.listings[id]
	if !ok {
		return nil, listing.ErrNotFound
	}
	return &l, nil
}

func (r *ListingRepository) ListActive(ctx context.Context, f listing.Filter) ([]listing.Listing, error) {
	defer r.s.lock(ctx)()
	query := strings.ToLower(f.Query)
	var out []listing.Listing
	for _, l := range r.s.listings {
		switch {
		case l.Status != listing.StatusActive,
			!l.EndsAt.After(f.Now),
			query != "" && !strings.Contains(strings.ToLower(l.Title), query),
			f.MinPrice.Valid && l.Price.LessThan(f.MinPrice.Decimal),
			f.MaxPrice.Valid && l.Price.GreaterThan(f.MaxPrice.Decimal):
			continue
		}
		out = append(out, l)
	}
	slices.SortFunc(out, func(a, b listing.Listing) int {
		var c int
		switch f.Sort {
		case listing.SortPriceAsc:
			c = a.Price.Cmp(b.Price)
		case listing.SortPriceDesc:
			c = b.Price.Cmp(a.Price)
		}
		return cmp.Or(c, cmp.Compare(b.ID, a.ID))
	})
	return out, nil
}

func (r *ListingRepository) ListByOwner(ctx context.Context, ownerID string) ([]listing.Listing, error) {
	defer r.s.lock(ctx)()
	var out []listing.Listing
	for _, l := range r.s.listings {
		if l.OwnerID == ownerID {
			out = append(out, l)
		}
	}
	slices.SortFunc(out, func(a, b listing.Listing) int { return cmp.Compare(b.ID, a.ID) })
	return out, nil
}

func (r *ListingRepository) Swap(ctx context.Context, l *listing.Listing, expected int64) (bool, error) {
	defer r.s.lock(ctx)()
	cur, ok := r.s.listings[l.ID]
	if !ok || cur.Version != expected {
		return false, nil
	}
	cur.Quantity = l.Quantity
	cur.Status = l.Status
	cur.Version = l.Version
	r.s.listings[l.ID] = cur
	return true, nil
}

func (r *ListingRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	defer r.s.lock(ctx)()
	var n int64
	for id, l := range r.s.listings {
		if l.Status == listing.StatusActive && !l.EndsAt.After(now) {
			l.Status = listing.StatusExpired
			l.Version++
			r.s.listings[id] = l
			n++
		}
	}
	return n, nil
}
