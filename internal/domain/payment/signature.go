package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/xenking/bazaar/internal/errs"
)

// SignatureHeader carries the provider's webhook signature.
const SignatureHeader = "Stripe-Signature"

// DefaultTolerance is the accepted age of a signed timestamp.
const DefaultTolerance = 5 * time.Minute

var (
	ErrNoSignature       = errs.New(errs.ErrSignatureInvalid, "missing payment signature")
	ErrMalformedHeader   = errs.New(errs.ErrSignatureInvalid, "malformed payment signature header")
	ErrSignatureMismatch = errs.New(errs.ErrSignatureInvalid, "payment signature mismatch")
	ErrTimestampExpired  = errs.New(errs.ErrSignatureInvalid, "payment signature timestamp outside tolerance")
)

// Verifier checks webhook signatures of the form "t=<unix>,v1=<hex>" where
// v1 is HMAC-SHA256 of "<t>.<payload>" keyed with the endpoint secret.
type Verifier struct {
	secret    []byte
	tolerance time.Duration
	now       func() time.Time
}

// NewVerifier creates a Verifier. A non-positive tolerance falls back to
// DefaultTolerance.
func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Verifier{
		secret:    []byte(secret),
		tolerance: tolerance,
		now:       time.Now,
	}
}

// Verify returns nil when header holds a valid, fresh signature of payload.
func (v *Verifier) Verify(payload []byte, header string) error {
	if header == "" {
		return ErrNoSignature
	}

	var (
		ts   int64
		hasT bool
		sigs [][]byte
	)
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return ErrMalformedHeader
		}
		switch key {
		case "t":
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return ErrMalformedHeader
			}
			ts, hasT = n, true
		case "v1":
			sig, err := hex.DecodeString(value)
			if err != nil {
				continue
			}
			sigs = append(sigs, sig)
		}
	}
	if !hasT || len(sigs) == 0 {
		return ErrMalformedHeader
	}

	signedAt := time.Unix(ts, 0)
	if age := v.now().Sub(signedAt); age > v.tolerance || age < -v.tolerance {
		return ErrTimestampExpired
	}

	expected := computeSignature(v.secret, ts, payload)
	for _, sig := range sigs {
		if hmac.Equal(expected, sig) {
			return nil
		}
	}
	return ErrSignatureMismatch
}

// Sign builds a signature header for payload at time t.
func Sign(secret string, payload []byte, t time.Time) string {
	ts := t.Unix()
	sig := computeSignature([]byte(secret), ts, payload)
	return "t=" + strconv.FormatInt(ts, 10) + ",v1=" + hex.EncodeToString(sig)
}

func computeSignature(secret []byte, ts int64, payload []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return mac.Sum(nil)
}
