package events

import (
	"time"
	"turfbook/pkg/model"

	"github.com/google/uuid"
)

// Type names a booking transition on the booking-events topic.
type Type string

const (
	BookingReserved  Type = "booking.reserved"
	BookingConfirmed Type = "booking.confirmed"
	BookingCancelled Type = "booking.cancelled"
	BookingExpired   Type = "booking.expired"
)

const SchemaVersion = "1"

type BookingEvent struct {
	EventID    string        `json:"event_id"`
	Type       Type          `json:"type"`
	OccurredAt time.Time     `json:"occurred_at"`
	Booking    model.Booking `json:"booking"`
}

func NewBookingEvent(eventType Type, booking *model.Booking, at time.Time) BookingEvent {
	return BookingEvent{
		EventID:    uuid.New().String(),
		Type:       eventType,
		OccurredAt: at.UTC(),
		Booking:    *booking,
	}
}
