package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/bazaar/internal/domain/listing"
)

// CreateListing handles POST /api/listings.
func (h *Handler) CreateListing(w http.ResponseWriter, r *http.Request) {
	req := listing.CreateRequest{OwnerID: Actor(r.Context())}
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "title":
			req.Title, err = d.Str()
		case "price":
			req.Price, err = decodeDecimal(d)
		case "quantity":
			req.Quantity, err = d.Int()
		case "endsAt":
			var s string
			if s, err = d.Str(); err == nil {
				req.EndsAt, err = time.Parse(time.RFC3339, s)
			}
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	l, err := h.listings.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeListing(e, l) })
}

// ListListings handles GET /api/listings. Query parameters: q (title
// search), minPrice, maxPrice and sort (newest, price_asc, price_desc).
func (h *Handler) ListListings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := listing.Filter{
		Query: q.Get("q"),
		Sort:  listing.Sort(q.Get("sort")),
	}
	var err error
	if f.MinPrice, err = queryDecimal(q.Get("minPrice")); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid minPrice")
		return
	}
	if f.MaxPrice, err = queryDecimal(q.Get("maxPrice")); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid maxPrice")
		return
	}

	ls, err := h.listings.ListActive(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeListings(w, ls)
}

// MyListings handles GET /api/listings/mine: the caller's listings in every
// status.
func (h *Handler) MyListings(w http.ResponseWriter, r *http.Request) {
	ls, err := h.listings.ListByOwner(r.Context(), Actor(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeListings(w, ls)
}

func writeListings(w http.ResponseWriter, ls []listing.Listing) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for i := range ls {
			encodeListing(e, &ls[i])
		}
		e.ArrEnd()
	})
}

func queryDecimal(s string) (decimal.NullDecimal, error) {
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

// GetListing handles GET /api/listings/{id}.
func (h *Handler) GetListing(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid listing id")
		return
	}
	l, err := h.listings.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeListing(e, l) })
}

// CancelListing handles POST /api/listings/{id}/cancel.
func (h *Handler) CancelListing(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid listing id")
		return
	}
	l, err := h.listings.Cancel(r.Context(), id, Actor(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeListing(e, l) })
}
