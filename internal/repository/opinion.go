package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/xenking/bazaar/internal/domain/opinion"
)

const uniqueViolation = "23505"

const (
	opinionColumns = `id, order_id, buyer_id, seller_id, rating, comment, created_at`

	createOpinionSQL = `INSERT INTO opinions (order_id, buyer_id, seller_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`

	getOpinionByOrderSQL = `SELECT ` + opinionColumns + ` FROM opinions WHERE order_id = $1`

	listOpinionsBySellerSQL = `SELECT ` + opinionColumns + ` FROM opinions WHERE seller_id = $1 ORDER BY id DESC`

	sellerSummarySQL = `SELECT COALESCE(AVG(rating), 0)::float8, COUNT(*) FROM opinions WHERE seller_id = $1`
)

var _ opinion.Repository = (*OpinionRepository)(nil)

// OpinionRepository implements opinion.Repository backed by PostgreSQL.
type OpinionRepository struct {
	db *DB
}

// NewOpinionRepository returns an OpinionRepository using db.
func NewOpinionRepository(db *DB) *OpinionRepository {
	return &OpinionRepository{db: db}
}

// Create inserts o. The unique order_id constraint turns a concurrent
// second opinion into opinion.ErrAlreadyRated.
func (r *OpinionRepository) Create(ctx context.Context, o *opinion.Opinion) error {
	err := r.db.conn(ctx).QueryRow(ctx, createOpinionSQL,
		o.OrderID, o.BuyerID, o.SellerID, o.Rating, o.Comment, o.CreatedAt,
	).Scan(&o.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return opinion.ErrAlreadyRated
		}
		return fmt.Errorf("creating opinion for order %d: %w", o.OrderID, err)
	}
	return nil
}

// GetByOrderID returns the opinion of an order.
func (r *OpinionRepository) GetByOrderID(ctx context.Context, orderID int64) (*opinion.Opinion, error) {
	rows, err := r.db.conn(ctx).Query(ctx, getOpinionByOrderSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("getting opinion for order %d: %w", orderID, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOpinion)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, opinion.ErrNotFound
		}
		return nil, fmt.Errorf("getting opinion for order %d: %w", orderID, err)
	}
	return &o, nil
}

// ListBySeller returns the seller's opinions, newest first.
func (r *OpinionRepository) ListBySeller(ctx context.Context, sellerID string) ([]opinion.Opinion, error) {
	rows, err := r.db.conn(ctx).Query(ctx, listOpinionsBySellerSQL, sellerID)
	if err != nil {
		return nil, fmt.Errorf("listing opinions of seller %q: %w", sellerID, err)
	}
	return pgx.CollectRows(rows, scanOpinion)
}

// SellerSummary returns the average rating and count for a seller.
func (r *OpinionRepository) SellerSummary(ctx context.Context, sellerID string) (*opinion.Summary, error) {
	s := &opinion.Summary{SellerID: sellerID}
	if err := r.db.conn(ctx).QueryRow(ctx, sellerSummarySQL, sellerID).Scan(&s.Average, &s.Count); err != nil {
		return nil, fmt.Errorf("summarising opinions of seller %q: %w", sellerID, err)
	}
	return s, nil
}

func scanOpinion(row pgx.CollectableRow) (opinion.Opinion, error) {
	var o opinion.Opinion
	err := row.Scan(&o.ID, &o.OrderID, &o.BuyerID, &o.SellerID, &o.Rating, &o.Comment, &o.CreatedAt)
	return o, err
}
