// Package memory is an in-process implementation of every repository with
// the same transaction semantics as the PostgreSQL one. It backs service
// tests and local runs without a database.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/xenking/bazaar/internal/domain/listing"
	"github.com/xenking/bazaar/internal/domain/opinion"
	"github.com/xenking/bazaar/internal/domain/order"
	"github.com/xenking/bazaar/internal/domain/profile"
	"github.com/xenking/bazaar/internal/domain/wallet"
)

type txKey struct{}

var _ order.Transactor = (*Store)(nil)

// Store holds all tables behind one mutex. A transaction holds the mutex for
// its whole duration and restores a snapshot when fn fails.
type Store struct {
	mu sync.Mutex

	seq         int64
	listings    map[int64]listing.Listing
	orders      map[int64]order.Order
	opinions    map[int64]opinion.Opinion
	balances    map[string]decimal.Decimal
	withdrawals []wallet.Withdrawal
	profiles    map[string]profile.Profile
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		listings: map[int64]listing.Listing{},
		orders:   map[int64]order.Order{},
		opinions: map[int64]opinion.Opinion{},
		balances: map[string]decimal.Decimal{},
		profiles: map[string]profile.Profile{},
	}
}

type snapshot struct {
	seq         int64
	listings    map[int64]listing.Listing
	orders      map[int64]order.Order
	opinions    map[int64]opinion.Opinion
	balances    map[string]decimal.Decimal
	withdrawals []wallet.Withdrawal
	profiles    map[string]profile.Profile
}

// WithinTx runs fn atomically. Nested calls join the outer transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := snapshot{
		seq:         s.seq,
		listings:    maps.Clone(s.listings),
		orders:      maps.Clone(s.orders),
		opinions:    maps.Clone(s.opinions),
		balances:    maps.Clone(s.balances),
		withdrawals: slices.Clone(s.withdrawals),
		profiles:    maps.Clone(s.profiles),
	}
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.seq = snap.seq
		s.listings = snap.listings
		s.orders = snap.orders
		s.opinions = snap.opinions
		s.balances = snap.balances
		s.withdrawals = snap.withdrawals
		s.profiles = snap.profiles
		return err
	}
	return nil
}

func (s *Store) inTx(ctx context.Context) bool {
	tx, _ := ctx.Value(txKey{}).(*Store)
	return tx == s
}

// lock acquires the mutex unless ctx already runs inside a transaction of
// this store.
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

// Listings returns the listing repository.
func (s *Store) Listings() *ListingRepository { return &ListingRepository{s: s} }

// Orders returns the order repository.
func (s *Store) Orders() *OrderRepository { return &OrderRepository{s: s} }

// Opinions returns the opinion repository.
func (s *Store) Opinions() *OpinionRepository { return &OpinionRepository{s: s} }

// Wallets returns the wallet repository.
func (s *Store) Wallets() *WalletRepository { return &WalletRepository{s: s} }

// Profiles returns the profile repository.
func (s *Store) Profiles() *ProfileRepository { return &ProfileRepository{s: s} }
