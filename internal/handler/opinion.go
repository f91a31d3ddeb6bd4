package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/xenking/bazaar/internal/domain/opinion"
)

// AddOpinion handles POST /api/orders/{id}/opinion.
func (h *Handler) AddOpinion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid order id")
		return
	}
	req := opinion.AddRequest{OrderID: id, BuyerID: Actor(r.Context())}
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "rating":
			req.Rating, err = d.Int()
		case "comment":
			req.Comment, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	op, err := h.opinions.AddOpinion(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeOpinion(e, op) })
}

// SellerOpinions handles GET /api/sellers/{id}/opinions.
func (h *Handler) SellerOpinions(w http.ResponseWriter, r *http.Request) {
	sellerID := chi.URLParam(r, "id")
	ctx := r.Context()

	summary, err := h.opinions.SellerRating(ctx, sellerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ops, err := h.opinions.ListForSeller(ctx, sellerID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("sellerId")
		e.Str(sellerID)
		e.FieldStart("average")
		e.Float64(summary.Average)
		e.FieldStart("count")
		e.Int(summary.Count)
		e.FieldStart("opinions")
		e.ArrStart()
		for i := range ops {
			encodeOpinion(e, &ops[i])
		}
		e.ArrEnd()
		e.ObjEnd()
	})
}
