package listing

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// CreateRequest holds the input for publishing a listing.
type CreateRequest struct {
	OwnerID  string
	Title    string
	Price    decimal.Decimal
	Quantity int
	EndsAt   time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service owns listing stock and status.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a listing Service backed by repo.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Create validates and stores a new active listing.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Listing, error) {
	now := s.now()
	switch {
	case req.OwnerID == "":
		return nil, errors.Wrap(ErrInvalidListing, "owner required")
	case strings.TrimSpace(req.Title) == "":
		return nil, errors.Wrap(ErrInvalidListing, "title required")
	case !req.Price.IsPositive():
		return nil, errors.Wrap(ErrInvalidListing, "price must be greater than 0")
	case req.Quantity <= 0:
		return nil, errors.Wrap(ErrInvalidListing, "quantity must be greater than 0")
	case !req.EndsAt.After(now):
		return nil, errors.Wrap(ErrInvalidListing, "end time must be in the future")
	}

	l := &Listing{
		OwnerID:   req.OwnerID,
		Title:     strings.TrimSpace(req.Title),
		Price:     req.Price.Round(2),
		Quantity:  req.Quantity,
		Status:    StatusActive,
		EndsAt:    req.EndsAt,
		Version:   1,
		CreatedAt: now,
	}
	if err := s.repo.Create(ctx, l); err != nil {
		return nil, errors.Wrap(err, "create listing")
	}
	return l, nil
}

// Get returns a listing by id.
func (s *Service) Get(ctx context.Context, id int64) (*Listing, error) {
	return s.repo.GetByID(ctx, id)
}

// ListActive returns listings that can currently be purchased and match f.
func (s *Service) ListActive(ctx context.Context, f Filter) ([]Listing, error) {
	f.Query = strings.TrimSpace(f.Query)
	switch f.Sort {
	case "":
		f.Sort = SortNewest
	case SortNewest, SortPriceAsc, SortPriceDesc:
	default:
		return nil, errors.Wrapf(ErrInvalidListing, "unknown sort %q", f.Sort)
	}
	switch {
	case f.MinPrice.Valid && f.MinPrice.Decimal.IsNegative(),
		f.MaxPrice.Valid && f.MaxPrice.Decimal.IsNegative():
		return nil, errors.Wrap(ErrInvalidListing, "price bounds must not be negative")
	case f.MinPrice.Valid && f.MaxPrice.Valid && f.MinPrice.Decimal.GreaterThan(f.MaxPrice.Decimal):
		return nil, errors.Wrap(ErrInvalidListing, "min price exceeds max price")
	}
	f.Now = s.now()

	ls, err := s.repo.ListActive(ctx, f)
	if err != nil {
		return nil, errors.Wrap(err, "list active listings")
	}
	return ls, nil
}

// ListByOwner returns all listings of ownerID in any status.
func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]Listing, error) {
	ls, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "list owner listings")
	}
	return ls, nil
}

// Reserve takes one unit of stock for buyerID using optimistic concurrency.
// Callers run it inside the transaction that inserts the order so that the
// decrement and the order row commit together.
//
// A lost compare-and-swap means another writer changed the listing, so the
// listing is re-read and the reservation retried until it succeeds or the
// listing itself refuses it.
func (s *Service) Reserve(ctx context.Context, listingID int64, buyerID string) (Reservation, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Reservation{}, err
		}
		l, err := s.repo.GetByID(ctx, listingID)
		if err != nil {
			return Reservation{}, err
		}

		expected := l.Version
		res, err := l.Reserve(buyerID, s.now())
		if err != nil {
			return Reservation{}, err
		}

		ok, err := s.repo.Swap(ctx, l, expected)
		if err != nil {
			return Reservation{}, errors.Wrap(err, "swap listing")
		}
		if ok {
			return res, nil
		}
	}
}

// Cancel withdraws a listing on behalf of its owner, retrying lost
// compare-and-swaps the way Reserve does.
func (s *Service) Cancel(ctx context.Context, listingID int64, ownerID string) (*Listing, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		l, err := s.repo.GetByID(ctx, listingID)
		if err != nil {
			return nil, err
		}

		expected := l.Version
		if err := l.Cancel(ownerID); err != nil {
			return nil, err
		}

		ok, err := s.repo.Swap(ctx, l, expected)
		if err != nil {
			return nil, errors.Wrap(err, "swap listing")
		}
		if ok {
			return l, nil
		}
	}
}

// ExpireOverdue moves active listings past their end time to expired.
func (s *Service) ExpireOverdue(ctx context.Context) (int64, error) {
	n, err := s.repo.ExpireOverdue(ctx, s.now())
	if err != nil {
		return 0, errors.Wrap(err, "expire listings")
	}
	return n, nil
}
