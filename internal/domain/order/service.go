package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/bazaar/internal/domain/profile"
)

// PlaceRequest holds the input for placing an order.
type PlaceRequest struct {
	ListingID    int64
	BuyerID      string
	WantsInvoice bool
	// BaseURL is the public address the payment provider redirects back to.
	BaseURL string
}

// PlaceResult holds the placed order and where to send the buyer to pay.
type PlaceResult struct {
	Order       *Order
	RedirectURL string
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for order timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service is the order state machine. Every operation takes the acting user
// explicitly and checks it against the order's frozen buyer or seller.
type Service struct {
	tx        Transactor
	inventory Inventory
	orders    Repository
	wallet    Wallet
	profiles  profile.Lookup
	checkout  Checkout
	now       func() time.Time
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	tx Transactor,
	inventory Inventory,
	orders Repository,
	wallet Wallet,
	profiles profile.Lookup,
	checkout Checkout,
	opts ...Option,
) *Service {
	s := &Service{
		tx:        tx,
		inventory: inventory,
		orders:    orders,
		wallet:    wallet,
		profiles:  profiles,
		checkout:  checkout,
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Place reserves one unit of the listing and creates a pending order in a
// single transaction, then asks the payment provider for a redirect.
//
// When the provider fails after the order was committed, the result still
// carries the order and the error wraps ErrCheckoutUnavailable; the buyer can
// retry with ResumePayment.
func (s *Service) Place(ctx context.Context, req PlaceRequest) (*PlaceResult, error) {
	buyer, err := s.profiles.GetByUserID(ctx, req.BuyerID)
	if err != nil && !errors.Is(err, profile.ErrNotFound) {
		return nil, errors.Wrap(err, "get buyer profile")
	}
	if req.WantsInvoice && (buyer == nil || !buyer.HasCompanyProfile()) {
		return nil, ErrInvoiceUnavailable
	}

	now := s.now()
	o := &Order{
		ListingID: req.ListingID,
		BuyerID:   req.BuyerID,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if buyer != nil {
		o.ShippingAddress = buyer.ShippingAddress
		if req.WantsInvoice {
			o.Invoice = &Invoice{
				CompanyName: buyer.CompanyName,
				TaxID:       buyer.TaxID,
				Address:     buyer.InvoiceAddress,
			}
		}
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		res, err := s.inventory.Reserve(ctx, req.ListingID, req.BuyerID)
		if err != nil {
			return err
		}
		o.SellerID = res.SellerID
		o.Total = res.UnitPrice
		if err := s.orders.Create(ctx, o); err != nil {
			return errors.Wrap(err, "create order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	lg := zctx.From(ctx)
	lg.Info("Order placed",
		zap.Int64("order_id", o.ID),
		zap.Int64("listing_id", o.ListingID),
		zap.String("buyer_id", o.BuyerID),
		zap.String("seller_id", o.SellerID),
		zap.String("total", o.Total.StringFixed(2)),
	)

	result := &PlaceResult{Order: o}
	url, err := s.checkout.CreateSession(ctx, SessionRequest{
		OrderID: o.ID,
		Amount:  o.Total,
		BaseURL: req.BaseURL,
	})
	if err != nil {
		lg.Warn("Checkout session failed, order left pending",
			zap.Int64("order_id", o.ID),
			zap.Error(err),
		)
		return result, fmt.Errorf("%w: %w", ErrCheckoutUnavailable, err)
	}
	result.RedirectURL = url
	return result, nil
}

// ResumePayment obtains a new payment redirect for a pending order.
func (s *Service) ResumePayment(ctx context.Context, orderID int64, buyerID, baseURL string) (string, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return "", err
	}
	if o.BuyerID != buyerID {
		return "", ErrNotBuyer
	}
	if o.Status != StatusPending {
		return "", ErrNotPending
	}

	url, err := s.checkout.CreateSession(ctx, SessionRequest{
		OrderID: o.ID,
		Amount:  o.Total,
		BaseURL: baseURL,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCheckoutUnavailable, err)
	}
	return url, nil
}

// AdvanceStatus records a status chosen by the seller of the order. The
// value is stored as requested; only unknown statuses are rejected.
func (s *Service) AdvanceStatus(ctx context.Context, orderID int64, status Status, sellerID string) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}

	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if o.SellerID != sellerID {
		return ErrNotSeller
	}

	if err := s.orders.SetStatus(ctx, orderID, status); err != nil {
		return errors.Wrap(err, "set order status")
	}

	zctx.From(ctx).Info("Order status changed",
		zap.Int64("order_id", orderID),
		zap.String("from", string(o.Status)),
		zap.String("to", string(status)),
	)
	return nil
}

// MarkPaid moves a pending order to paid. Orders in any other status, and
// unknown orders, are left untouched without error, so repeated or late
// payment notifications are harmless.
func (s *Service) MarkPaid(ctx context.Context, orderID int64) error {
	changed, err := s.orders.Transition(ctx, orderID, StatusPaid, StatusPending)
	if err != nil {
		return errors.Wrap(err, "mark order paid")
	}

	lg := zctx.From(ctx)
	if changed {
		lg.Info("Order paid", zap.Int64("order_id", orderID))
	} else {
		lg.Debug("Order not pending, payment ignored", zap.Int64("order_id", orderID))
	}
	return nil
}

// ConfirmDelivery completes a shipped order on behalf of its buyer and
// credits the seller's wallet with the order total in the same transaction.
func (s *Service) ConfirmDelivery(ctx context.Context, orderID int64, buyerID string) error {
	var o *Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		o, err = s.orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if o.BuyerID != buyerID {
			return ErrNotBuyer
		}
		if o.Status != StatusShipped {
			return ErrNotShipped
		}

		ok, err := s.orders.Transition(ctx, orderID, StatusCompleted, StatusShipped)
		if err != nil {
			return errors.Wrap(err, "complete order")
		}
		if !ok {
			return ErrNotShipped
		}

		if err := s.wallet.Credit(ctx, o.SellerID, o.Total); err != nil {
			return errors.Wrap(err, "credit seller")
		}
		return nil
	})
	if err != nil {
		return err
	}

	zctx.From(ctx).Info("Delivery confirmed",
		zap.Int64("order_id", orderID),
		zap.String("seller_id", o.SellerID),
		zap.String("credited", o.Total.StringFixed(2)),
	)
	return nil
}

// Cancel terminates a pending or paid order on behalf of its buyer or seller.
func (s *Service) Cancel(ctx context.Context, orderID int64, actorID string) error {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if !o.IsParticipant(actorID) {
		return ErrNotParticipant
	}
	if o.Status.Terminal() || o.Status == StatusShipped {
		return ErrNotCancellable
	}

	ok, err := s.orders.Transition(ctx, orderID, StatusCancelled, StatusPending, StatusPaid)
	if err != nil {
		return errors.Wrap(err, "cancel order")
	}
	if !ok {
		return ErrNotCancellable
	}

	zctx.From(ctx).Info("Order cancelled",
		zap.Int64("order_id", orderID),
		zap.String("actor_id", actorID),
	)
	return nil
}

// Get returns an order visible to its buyer or seller.
func (s *Service) Get(ctx context.Context, orderID int64, actorID string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.IsParticipant(actorID) {
		return nil, ErrNotParticipant
	}
	return o, nil
}

// ListForBuyer returns the buyer's orders, newest first.
func (s *Service) ListForBuyer(ctx context.Context, buyerID string) ([]Order, error) {
	return s.orders.ListByBuyer(ctx, buyerID)
}

// ListForSeller returns the seller's sales, newest first.
func (s *Service) ListForSeller(ctx context.Context, sellerID string) ([]Order, error) {
	return s.orders.ListBySeller(ctx, sellerID)
}
