// Package events publishes reservation and redemption facts for downstream
// consumers. Publishing is best effort and never fails the caller.
package events

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	ReservationCreated   = "reservation.created"
	ReservationReleased  = "reservation.released"
	ReservationExpired   = "reservation.expired"
	ReservationConfirmed = "reservation.confirmed"
	CouponRedeemed       = "coupon.redeemed"
)

// Event is the JSON payload written to the stream.
type Event struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	HolderID   string     `json:"holder_id"`
	UnitID     string     `json:"unit_id,omitempty"`
	Quantity   int        `json:"quantity,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	CouponID   uint       `json:"coupon_id,omitempty"`
	OrderID    string     `json:"order_id,omitempty"`
	Amount     int64      `json:"amount,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// Key is the partition key: the unit for reservation events, the coupon for
// redemptions. The order id is the last resort.
func (e Event) Key() string {
	switch {
	case e.UnitID != "":
		return e.UnitID
	case e.CouponID != 0:
		return "coupon:" + strconv.FormatUint(uint64(e.CouponID), 10)
	}
	return e.OrderID
}

// New fills ID for an event of type typ.
func New(typ string, occurred time.Time) Event {
	return Event{ID: uuid.NewString(), Type: typ, OccurredAt: occurred}
}

// Publisher ships events somewhere.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) {}

// Recorder keeps events in memory. Used in tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OfType returns the recorded events of one type.
func (r *Recorder) OfType(typ string) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}
