package handler

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/bazaar/internal/domain/listing"
	"github.com/xenking/bazaar/internal/domain/opinion"
	"github.com/xenking/bazaar/internal/domain/order"
	"github.com/xenking/bazaar/internal/domain/wallet"
)

const maxBodySize = 1 << 20

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("error")
		e.Str(msg)
		e.ObjEnd()
	})
}

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	return body, nil
}

// decodeObject reads the request body as a JSON object and calls fn for
// every field.
func decodeObject(r *http.Request, fn func(d *jx.Decoder, key string) error) error {
	body, err := readBody(r)
	if err != nil {
		return err
	}
	if err := jx.DecodeBytes(body).Obj(fn); err != nil {
		return errors.Wrap(err, "decode body")
	}
	return nil
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(s)
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(n.String())
	default:
		return decimal.Zero, errors.New("expected decimal")
	}
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339))
}

func encodeMoney(e *jx.Encoder, d decimal.Decimal) {
	e.Str(d.StringFixed(2))
}

func encodeListing(e *jx.Encoder, l *listing.Listing) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(l.ID)
	e.FieldStart("ownerId")
	e.Str(l.OwnerID)
	e.FieldStart("title")
	e.Str(l.Title)
	e.FieldStart("price")
	encodeMoney(e, l.Price)
	e.FieldStart("quantity")
	e.Int(l.Quantity)
	e.FieldStart("status")
	e.Str(string(l.Status))
	e.FieldStart("endsAt")
	encodeTime(e, l.EndsAt)
	e.FieldStart("createdAt")
	encodeTime(e, l.CreatedAt)
	e.ObjEnd()
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(o.ID)
	e.FieldStart("listingId")
	e.Int64(o.ListingID)
	e.FieldStart("buyerId")
	e.Str(o.BuyerID)
	e.FieldStart("sellerId")
	e.Str(o.SellerID)
	e.FieldStart("total")
	encodeMoney(e, o.Total)
	e.FieldStart("status")
	e.Str(string(o.Status))
	if o.Invoice != nil {
		e.FieldStart("invoice")
		e.ObjStart()
		e.FieldStart("companyName")
		e.Str(o.Invoice.CompanyName)
		e.FieldStart("taxId")
		e.Str(o.Invoice.TaxID)
		e.FieldStart("address")
		e.Str(o.Invoice.Address)
		e.ObjEnd()
	}
	e.FieldStart("shippingAddress")
	e.Str(o.ShippingAddress)
	e.FieldStart("createdAt")
	encodeTime(e, o.CreatedAt)
	e.FieldStart("updatedAt")
	encodeTime(e, o.UpdatedAt)
	e.ObjEnd()
}

func encodeOpinion(e *jx.Encoder, o *opinion.Opinion) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(o.ID)
	e.FieldStart("orderId")
	e.Int64(o.OrderID)
	e.FieldStart("buyerId")
	e.Str(o.BuyerID)
	e.FieldStart("sellerId")
	e.Str(o.SellerID)
	e.FieldStart("rating")
	e.Int(o.Rating)
	e.FieldStart("comment")
	e.Str(o.Comment)
	e.FieldStart("createdAt")
	encodeTime(e, o.CreatedAt)
	e.ObjEnd()
}

func encodeWithdrawal(e *jx.Encoder, w *wallet.Withdrawal) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(w.ID)
	e.FieldStart("amount")
	encodeMoney(e, w.Amount)
	e.FieldStart("bankAccountId")
	e.Str(w.BankAccountID)
	e.FieldStart("createdAt")
	encodeTime(e, w.CreatedAt)
	e.ObjEnd()
}
