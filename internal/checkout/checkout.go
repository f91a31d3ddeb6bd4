// Package checkout creates hosted payment sessions with a Stripe-compatible
// payment provider.
package checkout

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/xenking/bazaar/internal/domain/order"
	"github.com/xenking/bazaar/internal/domain/payment"
)

const sessionsPath = "/v1/checkout/sessions"

// Config holds the provider settings.
type Config struct {
	APIURL    string
	SecretKey string
	// Currency is the ISO code charged, lower case.
	Currency string
	Timeout  time.Duration
}

// Option configures a Client.
type Option func(*resty.Client)

// WithTransport sets the HTTP transport, e.g. an instrumented one.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *resty.Client) { c.SetTransport(rt) }
}

var _ order.Checkout = (*Client)(nil)

// Client implements order.Checkout over the provider's form API.
type Client struct {
	http     *resty.Client
	currency string
}

// New creates a Client.
func New(cfg Config, opts ...Option) *Client {
	c := resty.New().
		SetBaseURL(strings.TrimRight(cfg.APIURL, "/")).
		SetAuthToken(cfg.SecretKey).
		SetTimeout(cfg.Timeout)
	for _, o := range opts {
		o(c)
	}
	currency := strings.ToLower(cfg.Currency)
	if currency == "" {
		currency = "pln"
	}
	return &Client{http: c, currency: currency}
}

// CreateSession registers a one-item payment for the order and returns the
// provider page the buyer should be redirected to. The order id travels in
// the session metadata and comes back with the completion notification.
func (c *Client) CreateSession(ctx context.Context, req order.SessionRequest) (string, error) {
	id := strconv.FormatInt(req.OrderID, 10)
	base := strings.TrimRight(req.BaseURL, "/")

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", base+"/orders/payment-success?orderId="+id)
	form.Set("cancel_url", base+"/orders/payment-cancelled?orderId="+id)
	form.Set("client_reference_id", id)
	form.Set("metadata["+payment.MetadataOrderID+"]", id)
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", c.currency)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(MinorUnits(req.Amount), 10))
	form.Set("line_items[0][price_data][product_data][name]", "Order #"+id)

	resp, err := c.http.R().
		SetContext(ctx).
		SetFormDataFromValues(form).
		Post(sessionsPath)
	if err != nil {
		return "", errors.Wrap(err, "send checkout request")
	}
	if resp.IsError() {
		return "", errors.Errorf("checkout session: status %d", resp.StatusCode())
	}

	return parseSessionURL(resp.Body())
}

// MinorUnits converts an amount to the smallest currency unit.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func parseSessionURL(body []byte) (string, error) {
	var redirect string
	d := jx.DecodeBytes(body)
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "url" || d.Next() != jx.String {
			return d.Skip()
		}
		s, err := d.Str()
		if err != nil {
			return err
		}
		redirect = s
		return nil
	}); err != nil {
		return "", errors.Wrap(err, "decode checkout session")
	}
	if redirect == "" {
		return "", errors.New("checkout session has no url")
	}
	return redirect, nil
}
