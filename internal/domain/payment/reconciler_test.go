package payment

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/xenking/bazaar/internal/errs"
)

type mockMarker struct {
	calls []int64
	err   error
}

func (m *mockMarker) MarkPaid(_ context.Context, orderID int64) error {
	m.calls = append(m.calls, orderID)
	return m.err
}

func newTestReconciler(t *testing.T, now time.Time) (*Reconciler, *mockMarker) {
	t.Helper()
	marker := &mockMarker{}
	r, err := NewReconciler(fixedVerifier(now), marker, noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	return r, marker
}

func TestReconciler_Handle(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	completed := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"metadata":{"OrderId":"42"}}}}`)

	tests := []struct {
		name      string
		payload   []byte
		signature func(payload []byte) string
		want      Outcome
		wantErr   error
		wantCalls []int64
	}{
		{
			name:      "applied",
			payload:   completed,
			want:      OutcomeApplied,
			wantCalls: []int64{42},
		},
		{
			name:    "bad signature",
			payload: completed,
			signature: func(p []byte) string {
				return Sign("other", p, now)
			},
			want:    OutcomeRejected,
			wantErr: errs.ErrSignatureInvalid,
		},
		{
			name:    "other event type",
			payload: []byte(`{"type":"payment_intent.succeeded","data":{"object":{"metadata":{"OrderId":"42"}}}}`),
			want:    OutcomeIgnored,
		},
		{
			name:    "missing order id",
			payload: []byte(`{"type":"checkout.session.completed","data":{"object":{}}}`),
			want:    OutcomeNoOrder,
		},
		{
			name:    "unreadable body",
			payload: []byte(`not json`),
			want:    OutcomeNoOrder,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, marker := newTestReconciler(t, now)
			sig := Sign(testSecret, tt.payload, now)
			if tt.signature != nil {
				sig = tt.signature(tt.payload)
			}

			got, err := r.Handle(context.Background(), tt.payload, sig)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantCalls, marker.calls)
		})
	}
}

func TestReconciler_Redelivery(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	r, marker := newTestReconciler(t, now)
	payload := []byte(`{"type":"checkout.session.completed","data":{"object":{"metadata":{"OrderId":5}}}}`)
	sig := Sign(testSecret, payload, now)

	for range 3 {
		got, err := r.Handle(context.Background(), payload, sig)
		require.NoError(t, err)
		assert.Equal(t, OutcomeApplied, got)
	}
	assert.Equal(t, []int64{5, 5, 5}, marker.calls)
}

func TestReconciler_MarkPaidFailure(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	r, marker := newTestReconciler(t, now)
	marker.err = errors.New("connection reset")
	payload := []byte(`{"type":"checkout.session.completed","data":{"object":{"metadata":{"OrderId":"9"}}}}`)

	_, err := r.Handle(context.Background(), payload, Sign(testSecret, payload, now))
	require.ErrorContains(t, err, "connection reset")
	assert.NotErrorIs(t, err, errs.ErrSignatureInvalid)
}
