package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/bazaar/internal/domain/listing"
	"github.com/xenking/bazaar/internal/errs"
)

// Status is a step of the order lifecycle:
//
//	pending -> paid -> shipped -> completed
//	pending -> cancelled, paid -> cancelled
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusShipped   Status = "shipped"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusShipped, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

var (
	ErrNotFound           = errs.New(errs.ErrNotFound, "order not found")
	ErrNotSeller          = errs.New(errs.ErrUnauthorized, "only the seller can change this order")
	ErrNotBuyer           = errs.New(errs.ErrUnauthorized, "only the buyer can perform this action")
	ErrNotParticipant     = errs.New(errs.ErrUnauthorized, "order belongs to other users")
	ErrNotShipped         = errs.New(errs.ErrInvalidState, "only shipped orders can be confirmed")
	ErrNotCancellable     = errs.New(errs.ErrInvalidState, "only pending or paid orders can be cancelled")
	ErrNotPending         = errs.New(errs.ErrInvalidState, "order is not awaiting payment")
	ErrInvalidStatus      = errs.New(errs.ErrInvalidRequest, "unknown order status")
	ErrInvoiceUnavailable = errs.New(errs.ErrInvalidRequest, "invoice requested but buyer has no company profile")
	// ErrCheckoutUnavailable is returned when the order was committed but no
	// payment redirect could be obtained. The order stays pending.
	ErrCheckoutUnavailable = errs.New(errs.ErrUnavailable, "payment provider unavailable")
)

// Invoice is the buyer's company data copied at placement time.
type Invoice struct {
	CompanyName string
	TaxID       string
	Address     string
}

// Order is a single-unit purchase of a listing. Seller and total are frozen
// at creation and never re-read from the listing.
type Order struct {
	ID              int64
	ListingID       int64
	BuyerID         string
	SellerID        string
	Total           decimal.Decimal
	Status          Status
	Invoice         *Invoice
	ShippingAddress string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsParticipant reports whether userID is the buyer or the seller.
func (o *Order) IsParticipant(userID string) bool {
	return o.BuyerID == userID || o.SellerID == userID
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id int64) (*Order, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]Order, error)
	ListBySeller(ctx context.Context, sellerID string) ([]Order, error)
	SetStatus(ctx context.Context, id int64, status Status) error
	// Transition sets the status to `to` only when the current status is one
	// of from. It reports whether the row changed; a missing order is not an
	// error.
	Transition(ctx context.Context, id int64, to Status, from ...Status) (bool, error)
}

// Transactor runs fn in a single storage transaction. Repositories called
// with the ctx passed to fn take part in it.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Inventory reserves stock for a purchase.
type Inventory interface {
	Reserve(ctx context.Context, listingID int64, buyerID string) (listing.Reservation, error)
}

// Wallet credits settled funds to sellers.
type Wallet interface {
	Credit(ctx context.Context, sellerID string, amount decimal.Decimal) error
}

// SessionRequest describes the payment to collect for an order.
type SessionRequest struct {
	OrderID int64
	Amount  decimal.Decimal
	BaseURL string
}

// Checkout obtains a payment redirect from the payment provider.
type Checkout interface {
	CreateSession(ctx context.Context, req SessionRequest) (string, error)
}
