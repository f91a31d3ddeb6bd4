// Package payment applies payment provider notifications to orders.
package payment

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Outcome describes what happened to a notification.
type Outcome string

const (
	// OutcomeApplied means the order was handed to MarkPaid.
	OutcomeApplied Outcome = "applied"
	// OutcomeIgnored means the event type does not settle orders.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeNoOrder means the event carried no usable order id.
	OutcomeNoOrder Outcome = "no_order"
	// OutcomeRejected means the signature did not verify.
	OutcomeRejected Outcome = "rejected"
)

// Marker settles pending orders. Repeated calls for the same order must be
// harmless.
type Marker interface {
	MarkPaid(ctx context.Context, orderID int64) error
}

// Reconciler verifies notifications and marks the referenced orders paid.
// It keeps no memory of processed events; MarkPaid idempotence makes
// duplicate and reordered deliveries safe.
type Reconciler struct {
	verifier *Verifier
	orders   Marker
	events   metric.Int64Counter
}

// NewReconciler creates a Reconciler that reports outcomes through meter.
func NewReconciler(verifier *Verifier, orders Marker, meter metric.Meter) (*Reconciler, error) {
	events, err := meter.Int64Counter("bazaar.payment.notifications",
		metric.WithDescription("Payment provider notifications by outcome"),
		metric.WithUnit("{notification}"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create notifications counter")
	}
	return &Reconciler{verifier: verifier, orders: orders, events: events}, nil
}

// Handle processes one notification. Only signature failures and storage
// errors are returned; everything else is acknowledged with an outcome.
func (r *Reconciler) Handle(ctx context.Context, payload []byte, signature string) (Outcome, error) {
	lg := zctx.From(ctx)

	if err := r.verifier.Verify(payload, signature); err != nil {
		r.count(ctx, OutcomeRejected)
		lg.Warn("Payment notification rejected", zap.Error(err))
		return OutcomeRejected, err
	}

	ev, err := ParseEvent(payload)
	if err != nil {
		r.count(ctx, OutcomeNoOrder)
		lg.Warn("Payment notification unreadable", zap.Error(err))
		return OutcomeNoOrder, nil
	}
	if ev.Type != EventCheckoutCompleted {
		r.count(ctx, OutcomeIgnored)
		lg.Debug("Payment notification ignored", zap.String("type", ev.Type))
		return OutcomeIgnored, nil
	}
	if !ev.HasOrder {
		r.count(ctx, OutcomeNoOrder)
		lg.Warn("Payment notification without order id", zap.String("event_id", ev.ID))
		return OutcomeNoOrder, nil
	}

	if err := r.orders.MarkPaid(ctx, ev.OrderID); err != nil {
		return "", errors.Wrapf(err, "mark order %d paid", ev.OrderID)
	}
	r.count(ctx, OutcomeApplied)
	lg.Info("Payment notification applied",
		zap.String("event_id", ev.ID),
		zap.Int64("order_id", ev.OrderID),
	)
	return OutcomeApplied, nil
}

func (r *Reconciler) count(ctx context.Context, o Outcome) {
	r.events.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", string(o))))
}
