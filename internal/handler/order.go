package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/bazaar/internal/domain/order"
)

// PlaceOrder handles POST /api/orders. When the order was committed but the
// payment provider failed, it answers 502 with the order id so the client
// can retry payment later.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	req := order.PlaceRequest{
		BuyerID: Actor(r.Context()),
		BaseURL: h.baseURL(r),
	}
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "listingId":
			req.ListingID, err = d.Int64()
		case "wantsInvoice":
			req.WantsInvoice, err = d.Bool()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.orders.Place(r.Context(), req)
	if err != nil {
		if res != nil && errors.Is(err, order.ErrCheckoutUnavailable) {
			writeJSON(w, http.StatusBadGateway, func(e *jx.Encoder) {
				e.ObjStart()
				e.FieldStart("orderId")
				e.Int64(res.Order.ID)
				e.FieldStart("error")
				e.Str(order.ErrCheckoutUnavailable.Error())
				e.ObjEnd()
			})
			return
		}
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("orderId")
		e.Int64(res.Order.ID)
		e.FieldStart("status")
		e.Str(string(res.Order.Status))
		e.FieldStart("total")
		encodeMoney(e, res.Order.Total)
		e.FieldStart("redirectUrl")
		e.Str(res.RedirectURL)
		e.ObjEnd()
	})
}

// ListOrders handles GET /api/orders?role=buyer|seller.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var (
		orders []order.Order
		err    error
	)
	switch role := r.URL.Query().Get("role"); role {
	case "", "buyer":
		orders, err = h.orders.ListForBuyer(ctx, Actor(ctx))
	case "seller":
		orders, err = h.orders.ListForSeller(ctx, Actor(ctx))
	default:
		writeMessage(w, http.StatusBadRequest, "role must be buyer or seller")
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for i := range orders {
			encodeOrder(e, &orders[i])
		}
		e.ArrEnd()
	})
}

// GetOrder handles GET /api/orders/{id}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid order id")
		return
	}
	o, err := h.orders.Get(r.Context(), id, Actor(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
}

// AdvanceStatus handles POST /api/orders/{id}/status.
func (h *Handler) AdvanceStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid order id")
		return
	}
	var status order.Status
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		if key != "status" {
			return d.Skip()
		}
		s, err := d.Str()
		status = order.Status(s)
		return err
	})
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.orders.AdvanceStatus(r.Context(), id, status, Actor(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ConfirmDelivery handles POST /api/orders/{id}/confirm-delivery.
func (h *Handler) ConfirmDelivery(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid order id")
		return
	}
	if err := h.orders.ConfirmDelivery(r.Context(), id, Actor(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CancelOrder handles POST /api/orders/{id}/cancel.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid order id")
		return
	}
	if err := h.orders.Cancel(r.Context(), id, Actor(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResumePayment handles POST /api/orders/{id}/payment.
func (h *Handler) ResumePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid order id")
		return
	}
	url, err := h.orders.ResumePayment(r.Context(), id, Actor(r.Context()), h.baseURL(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("redirectUrl")
		e.Str(url)
		e.ObjEnd()
	})
}
