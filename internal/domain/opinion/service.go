package opinion

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// AddRequest holds the input for rating an order.
type AddRequest struct {
	OrderID int64
	BuyerID string
	Rating  int
	Comment string
}

// Service records and reads opinions.
type Service struct {
	repo   Repository
	orders OrderReader
	now    func() time.Time
}

// NewService creates an opinion Service.
func NewService(repo Repository, orders OrderReader) *Service {
	return &Service{repo: repo, orders: orders, now: time.Now}
}

// Validate checks rating bounds and comment length.
func (r AddRequest) Validate() error {
	if r.Rating < MinRating || r.Rating > MaxRating {
		return ErrInvalidRating
	}
	if utf8.RuneCountInString(r.Comment) > MaxCommentLength {
		return ErrCommentTooLong
	}
	return nil
}

// AddOpinion records the buyer's single opinion of an order. The seller is
// taken from the order, not from the current listing.
func (s *Service) AddOpinion(ctx context.Context, req AddRequest) (*Opinion, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	o, err := s.orders.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if o.BuyerID != req.BuyerID {
		return nil, ErrNotBuyer
	}

	switch _, err := s.repo.GetByOrderID(ctx, req.OrderID); {
	case err == nil:
		return nil, ErrAlreadyRated
	case !errors.Is(err, ErrNotFound):
		return nil, errors.Wrap(err, "check existing opinion")
	}

	op := &Opinion{
		OrderID:   o.ID,
		BuyerID:   o.BuyerID,
		SellerID:  o.SellerID,
		Rating:    req.Rating,
		Comment:   req.Comment,
		CreatedAt: s.now(),
	}
	if err := s.repo.Create(ctx, op); err != nil {
		return nil, err
	}

	zctx.From(ctx).Info("Opinion added",
		zap.Int64("order_id", op.OrderID),
		zap.String("seller_id", op.SellerID),
		zap.Int("rating", op.Rating),
	)
	return op, nil
}

// SellerRating returns the average rating and opinion count of a seller.
func (s *Service) SellerRating(ctx context.Context, sellerID string) (*Summary, error) {
	return s.repo.SellerSummary(ctx, sellerID)
}

// ListForSeller returns the opinions about a seller, newest first.
func (s *Service) ListForSeller(ctx context.Context, sellerID string) ([]Opinion, error) {
	return s.repo.ListBySeller(ctx, sellerID)
}
