package payment

import (
	"encoding/hex"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/bazaar/internal/errs"
)

const testSecret = "whsec_test"

func fixedVerifier(now time.Time) *Verifier {
	v := NewVerifier(testSecret, 0)
	v.now = func() time.Time { return now }
	return v
}

func TestVerify(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	payload := []byte(`{"id":"evt_1"}`)
	valid := Sign(testSecret, payload, now)
	otherSig := hex.EncodeToString(computeSignature([]byte("other"), now.Unix(), payload))
	ts := strconv.FormatInt(now.Unix(), 10)

	tests := []struct {
		name    string
		payload []byte
		header  string
		wantErr error
	}{
		{"valid", payload, valid, nil},
		{"valid among several v1", payload, "t=" + ts + ",v1=" + otherSig + ",v1=" + valid[len("t="+ts+",v1="):], nil},
		{"unknown keys ignored", payload, valid + ",v0=deadbeef", nil},
		{"missing header", payload, "", ErrNoSignature},
		{"tampered payload", []byte(`{"id":"evt_2"}`), valid, ErrSignatureMismatch},
		{"wrong secret", payload, "t=" + ts + ",v1=" + otherSig, ErrSignatureMismatch},
		{"no timestamp", payload, "v1=" + otherSig, ErrMalformedHeader},
		{"no signature", payload, "t=" + ts, ErrMalformedHeader},
		{"bad timestamp", payload, "t=yesterday,v1=" + otherSig, ErrMalformedHeader},
		{"garbage", payload, "nonsense", ErrMalformedHeader},
		{"too old", payload, Sign(testSecret, payload, now.Add(-6*time.Minute)), ErrTimestampExpired},
		{"too far ahead", payload, Sign(testSecret, payload, now.Add(6*time.Minute)), ErrTimestampExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := fixedVerifier(now).Verify(tt.payload, tt.header)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, errs.ErrSignatureInvalid)
		})
	}
}

func TestVerify_WithinTolerance(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	payload := []byte(`{}`)
	v := fixedVerifier(now)

	require.NoError(t, v.Verify(payload, Sign(testSecret, payload, now.Add(-4*time.Minute))))
	require.NoError(t, v.Verify(payload, Sign(testSecret, payload, now.Add(4*time.Minute))))
}

func TestNewVerifier_DefaultTolerance(t *testing.T) {
	assert.Equal(t, DefaultTolerance, NewVerifier("s", -time.Second).tolerance)
	assert.Equal(t, time.Minute, NewVerifier("s", time.Minute).tolerance)
}
