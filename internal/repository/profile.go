package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/bazaar/internal/domain/profile"
)

const (
	getProfileSQL = `SELECT user_id, first_name, last_name, company_name, tax_id,
		invoice_address, shipping_address, bank_account_id
		FROM profiles WHERE user_id = $1`

	upsertProfileSQL = `INSERT INTO profiles (user_id, first_name, last_name, company_name, tax_id,
		invoice_address, shipping_address, bank_account_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			company_name = EXCLUDED.company_name,
			tax_id = EXCLUDED.tax_id,
			invoice_address = EXCLUDED.invoice_address,
			shipping_address = EXCLUDED.shipping_address,
			bank_account_id = EXCLUDED.bank_account_id`
)

var _ profile.Repository = (*ProfileRepository)(nil)

// ProfileRepository implements profile.Repository backed by PostgreSQL.
type ProfileRepository struct {
	db *DB
}

// NewProfileRepository returns a ProfileRepository using db.
func NewProfileRepository(db *DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetByUserID returns the profile of a user.
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (*profile.Profile, error) {
	var p profile.Profile
	err := r.db.conn(ctx).QueryRow(ctx, getProfileSQL, userID).Scan(
		&p.UserID, &p.FirstName, &p.LastName, &p.CompanyName, &p.TaxID,
		&p.InvoiceAddress, &p.ShippingAddress, &p.BankAccountID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, profile.ErrNotFound
		}
		return nil, fmt.Errorf("getting profile %q: %w", userID, err)
	}
	return &p, nil
}

// Upsert creates or replaces a profile.
func (r *ProfileRepository) Upsert(ctx context.Context, p *profile.Profile) error {
	_, err := r.db.conn(ctx).Exec(ctx, upsertProfileSQL,
		p.UserID, p.FirstName, p.LastName, p.CompanyName, p.TaxID,
		p.InvoiceAddress, p.ShippingAddress, p.BankAccountID,
	)
	if err != nil {
		return fmt.Errorf("upserting profile %q: %w", p.UserID, err)
	}
	return nil
}
