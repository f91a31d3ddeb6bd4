package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/bazaar/internal/domain/listing"
)

const (
	listingColumns = `id, owner_id, title, price, quantity, status, ends_at, version, created_at`

	createListingSQL = `INSERT INTO listings (owner_id, title, price, quantity, status, ends_at, version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`

	getListingByIDSQL = `SELECT ` + listingColumns + ` FROM listings WHERE id = $1`

	searchListingsSQL = `SELECT ` + listingColumns + ` FROM listings
		WHERE status = 'active' AND ends_at > $1
			AND ($2::text = '' OR title ILIKE '%' || $2 || '%')
			AND ($3::numeric IS NULL OR price >= $3)
			AND ($4::numeric IS NULL OR price <= $4)
		ORDER BY
			CASE WHEN $5::text = 'price_asc' THEN price END ASC,
			CASE WHEN $5::text = 'price_desc' THEN price END DESC,
			id DESC`

	listOwnerListingsSQL = `SELECT ` + listingColumns + ` FROM listings
		WHERE owner_id = $1 ORDER BY id DESC`

	swapListingSQL = `UPDATE listings SET quantity = $2, status = $3, version = $4
		WHERE id = $1 AND version = $5`

	expireListingsSQL = `UPDATE listings SET status = 'expired', version = version + 1
		WHERE status = 'active' AND ends_at <= $1`
)

var _ listing.Repository = (*ListingRepository)(nil)

// ListingRepository implements listing.Repository backed by PostgreSQL.
type ListingRepository struct {
	db *DB
}

// NewListingRepository returns a ListingRepository using db.
func NewListingRepository(db *DB) *ListingRepository {
	return &ListingRepository{db: db}
}

// Create inserts l and assigns its ID.
func (r *ListingRepository) Create(ctx context.Context, l *listing.Listing) error {
	err := r.db.conn(ctx).QueryRow(ctx, createListingSQL,
		l.OwnerID, l.Title, l.Price, l.Quantity, string(l.Status), l.EndsAt, l.Version, l.CreatedAt,
	).Scan(&l.ID)
	if err != nil {
		return fmt.Errorf("creating listing: %w", err)
	}
	return nil
}

// GetByID returns a single listing.
func (r *ListingRepository) GetByID(ctx context.Context, id int64) (*listing.Listing, error) {
	rows, err := r.db.conn(ctx).Query(ctx, getListingByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting listing %d: %w", id, err)
	}

	l, err := pgx.CollectExactlyOneRow(rows, scanListing)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, listing.ErrNotFound
		}
		return nil, fmt.Errorf("getting listing %d: %w", id, err)
	}
	return &l, nil
}

// likeEscaper escapes LIKE wildcards so a search matches literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ListActive returns active listings matching f.
func (r *ListingRepository) ListActive(ctx context.Context, f listing.Filter) ([]listing.Listing, error) {
	rows, err := r.db.conn(ctx).Query(ctx, searchListingsSQL,
		f.Now, likeEscaper.Replace(f.Query), f.MinPrice, f.MaxPrice, string(f.Sort),
	)
	if err != nil {
		return nil, fmt.Errorf("listing active listings: %w", err)
	}
	return pgx.CollectRows(rows, scanListing)
}

// ListByOwner returns every listing of ownerID, newest first.
func (r *ListingRepository) ListByOwner(ctx context.Context, ownerID string) ([]listing.Listing, error) {
	rows, err := r.db.conn(ctx).Query(ctx, listOwnerListingsSQL, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing listings of %s: %w", ownerID, err)
	}
	return pgx.CollectRows(rows, scanListing)
}

// Swap writes the mutable columns of l if its stored version equals expected.
func (r *ListingRepository) Swap(ctx context.Context, l *listing.Listing, expected int64) (bool, error) {
	tag, err := r.db.conn(ctx).Exec(ctx, swapListingSQL,
		l.ID, l.Quantity, string(l.Status), l.Version, expected,
	)
	if err != nil {
		return false, fmt.Errorf("swapping listing %d: %w", l.ID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// ExpireOverdue marks overdue active listings as expired.
func (r *ListingRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.conn(ctx).Exec(ctx, expireListingsSQL, now)
	if err != nil {
		return 0, fmt.Errorf("expiring listings: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanListing(row pgx.CollectableRow) (listing.Listing, error) {
	var (
		l      listing.Listing
		status string
	)
	err := row.Scan(&l.ID, &l.OwnerID, &l.Title, &l.Price, &l.Quantity, &status, &l.EndsAt, &l.Version, &l.CreatedAt)
	l.Status = listing.Status(status)
	return l, err
}
