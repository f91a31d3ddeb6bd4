package handler

import (
	"net/http"

	"github.com/go-faster/jx"
)

// GetWallet handles GET /api/wallet.
func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	f, err := h.ledger.Finances(r.Context(), Actor(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("available")
		encodeMoney(e, f.Available)
		e.FieldStart("pending")
		encodeMoney(e, f.Pending)
		e.FieldStart("hasBankAccount")
		e.Bool(f.BankAccountID != "")
		e.ObjEnd()
	})
}

// Withdraw handles POST /api/wallet/withdraw.
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	wd, err := h.ledger.Withdraw(r.Context(), Actor(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeWithdrawal(e, wd) })
}

// ListWithdrawals handles GET /api/wallet/withdrawals.
func (h *Handler) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	ws, err := h.ledger.Withdrawals(r.Context(), Actor(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for i := range ws {
			encodeWithdrawal(e, &ws[i])
		}
		e.ArrEnd()
	})
}
