// Package handler exposes the marketplace over HTTP.
package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/xenking/bazaar/internal/domain/listing"
	"github.com/xenking/bazaar/internal/domain/opinion"
	"github.com/xenking/bazaar/internal/domain/order"
	"github.com/xenking/bazaar/internal/domain/payment"
	"github.com/xenking/bazaar/internal/domain/wallet"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// PublicURL is the externally visible base URL the payment provider
	// redirects buyers back to. When empty it is derived from the request.
	PublicURL string
}

// Handler serves the API, delegating to the domain services.
type Handler struct {
	listings  *listing.Service
	orders    *order.Service
	ledger    *wallet.Ledger
	opinions  *opinion.Service
	payments  *payment.Reconciler
	auth      *Authenticator
	publicURL string
}

// New constructs a Handler with the required domain dependencies.
func New(
	cfg Config,
	auth *Authenticator,
	listings *listing.Service,
	orders *order.Service,
	ledger *wallet.Ledger,
	opinions *opinion.Service,
	payments *payment.Reconciler,
) *Handler {
	return &Handler{
		listings:  listings,
		orders:    orders,
		ledger:    ledger,
		opinions:  opinions,
		payments:  payments,
		auth:      auth,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
	}
}

// Routes returns the API router mounted under /api.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.StripSlashes)

	r.Route("/api", func(r chi.Router) {
		r.Post("/webhooks/payment", h.PaymentWebhook)
		r.Get("/listings", h.ListListings)
		r.Get("/listings/{id}", h.GetListing)
		r.Get("/sellers/{id}/opinions", h.SellerOpinions)

		r.Group(func(r chi.Router) {
			r.Use(h.auth.Middleware)

			r.Post("/listings", h.CreateListing)
			r.Get("/listings/mine", h.MyListings)
			r.Post("/listings/{id}/cancel", h.CancelListing)

			r.Post("/orders", h.PlaceOrder)
			r.Get("/orders", h.ListOrders)
			r.Get("/orders/{id}", h.GetOrder)
			r.Post("/orders/{id}/status", h.AdvanceStatus)
			r.Post("/orders/{id}/confirm-delivery", h.ConfirmDelivery)
			r.Post("/orders/{id}/cancel", h.CancelOrder)
			r.Post("/orders/{id}/payment", h.ResumePayment)
			r.Post("/orders/{id}/opinion", h.AddOpinion)

			r.Get("/wallet", h.GetWallet)
			r.Post("/wallet/withdraw", h.Withdraw)
			r.Get("/wallet/withdrawals", h.ListWithdrawals)
		})
	})
	return r
}

// baseURL returns the configured public URL or one derived from r.
func (h *Handler) baseURL(r *http.Request) string {
	if h.publicURL != "" {
		return h.publicURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p != "" {
		scheme = p
	}
	return scheme + "://" + r.Host
}
