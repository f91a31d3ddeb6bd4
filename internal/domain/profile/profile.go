// Package profile describes the user profile data the settlement engine reads
// from the identity collaborator. Profiles are keyed by the external user id.
package profile

import (
	"context"
	"strings"

	"github.com/xenking/bazaar/internal/errs"
)

// ErrNotFound is returned when a user has no profile.
var ErrNotFound = errs.New(errs.ErrNotFound, "profile not found")

// Profile holds buyer and seller details used for invoicing and payouts.
type Profile struct {
	UserID          string
	FirstName       string
	LastName        string
	CompanyName     string
	TaxID           string
	InvoiceAddress  string
	ShippingAddress string
	BankAccountID   string
}

// HasCompanyProfile reports whether invoices can be issued to this user.
func (p *Profile) HasCompanyProfile() bool {
	return strings.TrimSpace(p.CompanyName) != "" && strings.TrimSpace(p.TaxID) != ""
}

// HasBankAccount reports whether a payout destination is registered.
func (p *Profile) HasBankAccount() bool {
	return strings.TrimSpace(p.BankAccountID) != ""
}

// Lookup reads profiles by user id.
type Lookup interface {
	GetByUserID(ctx context.Context, userID string) (*Profile, error)
}

// Repository adds write access for seeding and administration tools.
type Repository interface {
	Lookup
	Upsert(ctx context.Context, p *Profile) error
}
