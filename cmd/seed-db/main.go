// Command seed-db loads profiles and listings from a JSON (or gzipped JSON)
// fixture and optionally prints bearer tokens for local testing.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/xenking/bazaar/internal/domain/listing"
	"github.com/xenking/bazaar/internal/domain/profile"
	"github.com/xenking/bazaar/internal/handler"
	"github.com/xenking/bazaar/internal/repository"
)

type fixture struct {
	Profiles []profileJSON `json:"profiles"`
	Listings []listingJSON `json:"listings"`
}

type profileJSON struct {
	UserID          string `json:"userId"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	CompanyName     string `json:"companyName"`
	TaxID           string `json:"taxId"`
	InvoiceAddress  string `json:"invoiceAddress"`
	ShippingAddress string `json:"shippingAddress"`
	BankAccountID   string `json:"bankAccountId"`
}

type listingJSON struct {
	OwnerID  string          `json:"ownerId"`
	Title    string          `json:"title"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	// Days until the listing ends.
	Days int `json:"days"`
}

func main() {
	var (
		databaseURL string
		fixtureFile string
		authSecret  string
		tokensFor   string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&fixtureFile, "fixture", "db/seed/fixture.json", "path to a .json or .json.gz fixture")
	flag.StringVar(&authSecret, "auth-secret", "", "token secret (or BAZAAR_AUTH_SECRET env)")
	flag.StringVar(&tokensFor, "tokens-for", "", "comma separated user ids to print bearer tokens for")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if authSecret == "" {
		authSecret = os.Getenv("BAZAAR_AUTH_SECRET")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, fixtureFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("seed completed successfully")

	if tokensFor == "" {
		return
	}
	if authSecret == "" {
		slog.Error("auth secret is required to issue tokens: set --auth-secret or BAZAAR_AUTH_SECRET")
		os.Exit(1)
	}
	auth := handler.NewAuthenticator(authSecret)
	for _, userID := range strings.Split(tokensFor, ",") {
		token, err := auth.Issue(strings.TrimSpace(userID), 24*time.Hour)
		if err != nil {
			slog.Error("issue token failed", slog.String("user_id", userID), slog.String("error", err.Error()))
			os.Exit(1)
		}
		slog.Info("issued token", slog.String("user_id", userID), slog.String("token", token))
	}
}

func run(ctx context.Context, databaseURL, fixtureFile string) error {
	fx, err := readFixture(fixtureFile)
	if err != nil {
		return err
	}

	slog.Info("connecting to database")
	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")
	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	db := repository.NewDB(pool)
	return db.WithinTx(ctx, func(ctx context.Context) error {
		if err := seedProfiles(ctx, repository.NewProfileRepository(db), fx.Profiles); err != nil {
			return errors.Wrap(err, "seed profiles")
		}
		if err := seedListings(ctx, listing.NewService(repository.NewListingRepository(db)), fx.Listings); err != nil {
			return errors.Wrap(err, "seed listings")
		}
		return nil
	})
}

// readFixture decodes path, transparently gunzipping .gz files.
func readFixture(path string) (*fixture, error) {
	slog.Info("reading fixture", slog.String("path", path))

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open fixture")
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "open gzip fixture")
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	var fx fixture
	if err := json.NewDecoder(r).Decode(&fx); err != nil {
		return nil, errors.Wrap(err, "parse fixture")
	}
	return &fx, nil
}

func seedProfiles(ctx context.Context, repo profile.Repository, profiles []profileJSON) error {
	slog.Info("upserting profiles", slog.Int("count", len(profiles)))

	for _, p := range profiles {
		if err := repo.Upsert(ctx, &profile.Profile{
			UserID:          p.UserID,
			FirstName:       p.FirstName,
			LastName:        p.LastName,
			CompanyName:     p.CompanyName,
			TaxID:           p.TaxID,
			InvoiceAddress:  p.InvoiceAddress,
			ShippingAddress: p.ShippingAddress,
			BankAccountID:   p.BankAccountID,
		}); err != nil {
			return errors.Wrapf(err, "upsert profile %s", p.UserID)
		}
		slog.Info("upserted profile", slog.String("user_id", p.UserID))
	}
	return nil
}

func seedListings(ctx context.Context, svc *listing.Service, listings []listingJSON) error {
	slog.Info("creating listings", slog.Int("count", len(listings)))

	for _, l := range listings {
		days := l.Days
		if days <= 0 {
			days = 30
		}
		created, err := svc.Create(ctx, listing.CreateRequest{
			OwnerID:  l.OwnerID,
			Title:    l.Title,
			Price:    l.Price,
			Quantity: l.Quantity,
			EndsAt:   time.Now().AddDate(0, 0, days),
		})
		if err != nil {
			return errors.Wrapf(err, "create listing %q", l.Title)
		}
		slog.Info("created listing", slog.Int64("id", created.ID), slog.String("title", created.Title))
	}
	return nil
}
