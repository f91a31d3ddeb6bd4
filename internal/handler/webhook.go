package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/bazaar/internal/domain/payment"
	"github.com/xenking/bazaar/internal/errs"
)

// PaymentWebhook handles POST /api/webhooks/payment. Anything the
// reconciler acknowledges is answered 200 so the provider stops retrying;
// only signature failures get 400. A body that cannot be read is a 500 so
// the provider redelivers it.
func (h *Handler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, r, errors.Wrap(err, "payment notification"))
		return
	}

	outcome, err := h.payments.Handle(r.Context(), body, r.Header.Get(payment.SignatureHeader))
	if err != nil {
		if errors.Is(err, errs.ErrSignatureInvalid) {
			writeMessage(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("outcome")
		e.Str(string(outcome))
		e.ObjEnd()
	})
}
