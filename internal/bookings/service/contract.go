package service

import (
	"context"
	"turfbook/internal/bookings/events"
	"turfbook/pkg/model"
)

// TurfReader is the part of the turf store admission and the ledger read.
// FindByID must also return soft-deleted turfs.
type TurfReader interface {
	FindByID(ctx context.Context, id string) (*model.Turf, error)
	FindIDsByOwner(ctx context.Context, ownerID string) ([]string, error)
}

type UserReader interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

type PaymentStore interface {
	Create(ctx context.Context, payment *model.Payment) error
	FindByBookingID(ctx context.Context, bookingID string) (*model.Payment, error)
}

// SlotSuggester proposes an alternative when a slot is taken.
type SlotSuggester interface {
	NextAvailable(ctx context.Context, turfID, date, afterSlotID string) (*model.AvailableSlot, error)
}

// EventPublisher receives every booking transition after it is durable.
type EventPublisher interface {
	Publish(ctx context.Context, eventType events.Type, booking *model.Booking) error
}
