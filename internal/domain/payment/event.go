package payment

import (
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// EventCheckoutCompleted is the only event type that settles an order.
const EventCheckoutCompleted = "checkout.session.completed"

// MetadataOrderID is the metadata key the order id travels under.
const MetadataOrderID = "OrderId"

// Event is the subset of a provider notification the reconciler reads.
type Event struct {
	ID   string
	Type string
	// OrderID is valid only when HasOrder is set.
	OrderID  int64
	HasOrder bool
}

// ParseEvent decodes a notification body. Unknown fields are skipped and an
// absent or non-numeric order id leaves HasOrder unset.
func ParseEvent(data []byte) (Event, error) {
	var ev Event
	d := jx.DecodeBytes(data)
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "id":
			s, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "id")
			}
			ev.ID = s
		case "type":
			s, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "type")
			}
			ev.Type = s
		case "data":
			return objField(d, "object", func(d *jx.Decoder) error {
				return objField(d, "metadata", func(d *jx.Decoder) error {
					return objField(d, MetadataOrderID, func(d *jx.Decoder) error {
						id, ok, err := decodeOrderID(d)
						if err != nil {
							return errors.Wrap(err, "order id")
						}
						ev.OrderID, ev.HasOrder = id, ok
						return nil
					})
				})
			})
		default:
			return d.Skip()
		}
		return nil
	}); err != nil {
		return Event{}, errors.Wrap(err, "decode event")
	}
	return ev, nil
}

// objField calls fn for the value of name inside the current object and
// skips everything else. Non-object values are skipped entirely.
func objField(d *jx.Decoder, name string, fn func(d *jx.Decoder) error) error {
	if d.Next() != jx.Object {
		return d.Skip()
	}
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != name {
			return d.Skip()
		}
		return fn(d)
	})
}

func decodeOrderID(d *jx.Decoder) (int64, bool, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return 0, false, err
		}
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, false, nil
		}
		return id, true, nil
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return 0, false, err
		}
		if !n.IsInt() {
			return 0, false, nil
		}
		id, err := n.Int64()
		if err != nil {
			return 0, false, nil
		}
		return id, true, nil
	default:
		return 0, false, d.Skip()
	}
}
