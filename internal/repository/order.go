package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/xenking/bazaar/internal/domain/order"
	"github.com/xenking/bazaar/internal/domain/wallet"
)

const (
	orderColumns = `id, listing_id, buyer_id, seller_id, total, status,
		invoice_company_name, invoice_tax_id, invoice_address, shipping_address, created_at, updated_at`

	createOrderSQL = `INSERT INTO orders (listing_id, buyer_id, seller_id, total, status,
		invoice_company_name, invoice_tax_id, invoice_address, shipping_address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`

	getOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	listOrdersByBuyerSQL = `SELECT ` + orderColumns + ` FROM orders WHERE buyer_id = $1 ORDER BY id DESC`

	listOrdersBySellerSQL = `SELECT ` + orderColumns + ` FROM orders WHERE seller_id = $1 ORDER BY id DESC`

	setOrderStatusSQL = `UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`

	transitionOrderSQL = `UPDATE orders SET status = $2, updated_at = now()
		WHERE id = $1 AND status = ANY($3)`

	sumOrderTotalsSQL = `SELECT COALESCE(SUM(total), 0) FROM orders
		WHERE seller_id = $1 AND status = ANY($2)`
)

var (
	_ order.Repository   = (*OrderRepository)(nil)
	_ wallet.OrderTotals = (*OrderRepository)(nil)
)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	db *DB
}

// NewOrderRepository returns an OrderRepository using db.
func NewOrderRepository(db *DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create persists a new order with its invoice and shipping snapshot.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	var company, taxID, invoiceAddr *string
	if o.Invoice != nil {
		company, taxID, invoiceAddr = &o.Invoice.CompanyName, &o.Invoice.TaxID, &o.Invoice.Address
	}

	err := r.db.conn(ctx).QueryRow(ctx, createOrderSQL,
		o.ListingID, o.BuyerID, o.SellerID, o.Total, string(o.Status),
		company, taxID, invoiceAddr, o.ShippingAddress, o.CreatedAt, o.UpdatedAt,
	).Scan(&o.ID)
	if err != nil {
		return fmt.Errorf("creating order: %w", err)
	}
	return nil
}

// GetByID returns a single order.
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	rows, err := r.db.conn(ctx).Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}
	return &o, nil
}

// ListByBuyer returns the buyer's orders, newest first.
func (r *OrderRepository) ListByBuyer(ctx context.Context, buyerID string) ([]order.Order, error) {
	rows, err := r.db.conn(ctx).Query(ctx, listOrdersByBuyerSQL, buyerID)
	if err != nil {
		return nil, fmt.Errorf("listing orders of buyer %q: %w", buyerID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// ListBySeller returns the seller's orders, newest first.
func (r *OrderRepository) ListBySeller(ctx context.Context, sellerID string) ([]order.Order, error) {
	rows, err := r.db.conn(ctx).Query(ctx, listOrdersBySellerSQL, sellerID)
	if err != nil {
		return nil, fmt.Errorf("listing orders of seller %q: %w", sellerID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// SetStatus overwrites the order status.
func (r *OrderRepository) SetStatus(ctx context.Context, id int64, status order.Status) error {
	tag, err := r.db.conn(ctx).Exec(ctx, setOrderStatusSQL, id, string(status))
	if err != nil {
		return fmt.Errorf("setting order %d status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// Transition changes the status only from one of the given statuses.
func (r *OrderRepository) Transition(ctx context.Context, id int64, to order.Status, from ...order.Status) (bool, error) {
	tag, err := r.db.conn(ctx).Exec(ctx, transitionOrderSQL, id, string(to), statusStrings(from))
	if err != nil {
		return false, fmt.Errorf("transitioning order %d to %s: %w", id, to, err)
	}
	return tag.RowsAffected() == 1, nil
}

// SumTotals sums the totals of the seller's orders in the given statuses.
func (r *OrderRepository) SumTotals(ctx context.Context, sellerID string, statuses ...order.Status) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.db.conn(ctx).QueryRow(ctx, sumOrderTotalsSQL, sellerID, statusStrings(statuses)).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("summing orders of seller %q: %w", sellerID, err)
	}
	return sum, nil
}

func statusStrings(statuses []order.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o                           order.Order
		status                      string
		company, taxID, invoiceAddr *string
	)
	err := row.Scan(
		&o.ID, &o.ListingID, &o.BuyerID, &o.SellerID, &o.Total, &status,
		&company, &taxID, &invoiceAddr, &o.ShippingAddress, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return o, err
	}
	o.Status = order.Status(status)
	if company != nil {
		o.Invoice = &order.Invoice{CompanyName: *company}
		if taxID != nil {
			o.Invoice.TaxID = *taxID
		}
		if invoiceAddr != nil {
			o.Invoice.Address = *invoiceAddr
		}
	}
	return o, nil
}
