package listing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/bazaar/internal/errs"
)

// Status is the sale state of a listing.
type Status string

const (
	StatusActive    Status = "active"
	StatusSold      Status = "sold"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

var (
	// ErrNotFound is returned when a listing does not exist.
	ErrNotFound = errs.New(errs.ErrNotFound, "listing not found")
	// ErrUnavailable is returned when a listing was withdrawn by its owner.
	ErrUnavailable = errs.New(errs.ErrNotFound, "listing is no longer available")
	// ErrSoldOut is returned when a listing has no remaining stock.
	ErrSoldOut = errs.New(errs.ErrSoldOut, "listing sold out")
	// ErrExpired is returned when a listing is past its end time.
	ErrExpired = errs.New(errs.ErrExpired, "listing expired")
	// ErrSelfPurchase is returned when the buyer owns the listing.
	ErrSelfPurchase = errs.New(errs.ErrInvalidRequest, "cannot purchase own listing")
	// ErrNotOwner is returned when a non-owner tries to manage a listing.
	ErrNotOwner = errs.New(errs.ErrUnauthorized, "listing belongs to another seller")
	// ErrNotActive is returned when cancelling a listing that is not active.
	ErrNotActive = errs.New(errs.ErrInvalidState, "listing is not active")
	// ErrInvalidListing is returned when listing attributes fail validation.
	ErrInvalidListing = errs.New(errs.ErrInvalidRequest, "invalid listing")
)

// Sort orders listing search results.
type Sort string

const (
	SortNewest    Sort = "newest"
	SortPriceAsc  Sort = "price_asc"
	SortPriceDesc Sort = "price_desc"
)

// Filter narrows a search over purchasable listings.
type Filter struct {
	// Query matches a case-insensitive substring of the title.
	Query    string
	MinPrice decimal.NullDecimal
	MaxPrice decimal.NullDecimal
	// Sort defaults to SortNewest.
	Sort Sort
	// Now excludes listings whose end time is not after it. The service
	// sets it from its clock.
	Now time.Time
}

// Listing is a sellable item with finite stock.
type Listing struct {
	ID        int64
	OwnerID   string
	Title     string
	Price     decimal.Decimal
	Quantity  int
	Status    Status
	EndsAt    time.Time
	Version   int64
	CreatedAt time.Time
}

// Reservation is the outcome of taking one unit of stock.
type Reservation struct {
	ListingID int64
	UnitPrice decimal.Decimal
	SellerID  string
}

// Reserve takes one unit of stock for buyerID. On success the listing is
// mutated in place (quantity, status, version) and must be persisted with a
// version check against the version it was loaded with.
func (l *Listing) Reserve(buyerID string, now time.Time) (Reservation, error) {
	if l.OwnerID == buyerID {
		return Reservation{}, ErrSelfPurchase
	}

	switch l.Status {
	case StatusSold:
		return Reservation{}, ErrSoldOut
	case StatusExpired:
		return Reservation{}, ErrExpired
	case StatusCancelled:
		return Reservation{}, ErrUnavailable
	}
	if !now.Before(l.EndsAt) {
		return Reservation{}, ErrExpired
	}
	if l.Quantity <= 0 {
		return Reservation{}, ErrSoldOut
	}

	l.Quantity--
	if l.Quantity == 0 {
		l.Status = StatusSold
	}
	l.Version++

	return Reservation{
		ListingID: l.ID,
		UnitPrice: l.Price,
		SellerID:  l.OwnerID,
	}, nil
}

// Cancel withdraws an active listing on behalf of its owner.
func (l *Listing) Cancel(ownerID string) error {
	if l.OwnerID != ownerID {
		return ErrNotOwner
	}
	if l.Status != StatusActive {
		return ErrNotActive
	}
	l.Status = StatusCancelled
	l.Version++
	return nil
}

// Repository defines persistence operations for listings.
type Repository interface {
	Create(ctx context.Context, l *Listing) error
	GetByID(ctx context.Context, id int64) (*Listing, error)
	// ListActive returns active listings matching f.
	ListActive(ctx context.Context, f Filter) ([]Listing, error)
	// ListByOwner returns every listing of ownerID regardless of status,
	// newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]Listing, error)
	// Swap stores quantity, status and version of l only if the stored
	// version still equals expected. It reports whether the write happened.
	Swap(ctx context.Context, l *Listing, expected int64) (bool, error)
	// ExpireOverdue marks active listings whose end time is not after now
	// as expired and returns how many were changed.
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}
