package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/bazaar/internal/errs"
)

// kindStatus maps error kinds to HTTP statuses. Order matters only for errors
// carrying more than one kind.
var kindStatus = []struct {
	kind   error
	status int
}{
	{errs.ErrNotFound, http.StatusNotFound},
	{errs.ErrUnauthorized, http.StatusForbidden},
	{errs.ErrInvalidState, http.StatusConflict},
	{errs.ErrInvalidRequest, http.StatusUnprocessableEntity},
	{errs.ErrConflict, http.StatusConflict},
	{errs.ErrSoldOut, http.StatusConflict},
	{errs.ErrExpired, http.StatusGone},
	{errs.ErrSignatureInvalid, http.StatusBadRequest},
	{errs.ErrUnavailable, http.StatusBadGateway},
}

// StatusFor returns the HTTP status for err, 500 for unknown errors.
func StatusFor(err error) int {
	for _, ks := range kindStatus {
		if errors.Is(err, ks.kind) {
			return ks.status
		}
	}
	return http.StatusInternalServerError
}

// writeError writes err as {"error": msg}. Internal errors are logged and
// their text is not exposed.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		writeMessage(w, status, "internal error")
		return
	}
	writeMessage(w, status, err.Error())
}
