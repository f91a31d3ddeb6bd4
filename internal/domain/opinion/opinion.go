// Package opinion stores buyer ratings of completed purchases.
package opinion

import (
	"context"
	"time"

	"github.com/xenking/bazaar/internal/domain/order"
	"github.com/xenking/bazaar/internal/errs"
)

const (
	MinRating        = 1
	MaxRating        = 5
	MaxCommentLength = 1000
)

var (
	ErrNotFound       = errs.New(errs.ErrNotFound, "opinion not found")
	ErrInvalidRating  = errs.New(errs.ErrInvalidRequest, "rating must be between 1 and 5")
	ErrCommentTooLong = errs.New(errs.ErrInvalidRequest, "comment must be at most 1000 characters")
	ErrNotBuyer       = errs.New(errs.ErrUnauthorized, "only the buyer can rate this order")
	ErrAlreadyRated   = errs.New(errs.ErrConflict, "order already has an opinion")
)

// Opinion is a buyer's rating of one order. It never changes once created.
type Opinion struct {
	ID        int64
	OrderID   int64
	BuyerID   string
	SellerID  string
	Rating    int
	Comment   string
	CreatedAt time.Time
}

// Summary is the aggregate of a seller's ratings.
type Summary struct {
	SellerID string
	Average  float64
	Count    int
}

// Repository stores opinions.
type Repository interface {
	// Create inserts o and sets its ID. A second opinion for the same order
	// fails with ErrAlreadyRated.
	Create(ctx context.Context, o *Opinion) error
	GetByOrderID(ctx context.Context, orderID int64) (*Opinion, error)
	ListBySeller(ctx context.Context, sellerID string) ([]Opinion, error)
	SellerSummary(ctx context.Context, sellerID string) (*Summary, error)
}

// OrderReader loads orders being rated.
type OrderReader interface {
	GetByID(ctx context.Context, id int64) (*order.Order, error)
}
