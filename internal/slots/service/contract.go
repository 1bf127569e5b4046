package service

import (
	"context"
	"turfbook/pkg/model"
)

// TurfReader is the read-only view of turfs the catalog needs.
type TurfReader interface {
	FindByID(ctx context.Context, id string) (*model.Turf, error)
}

// BookingReader is the read-only view of bookings the catalog needs.
type BookingReader interface {
	FindActiveByTurf(ctx context.Context, turfID string, fromDate, toDate string) ([]*model.Booking, error)
}
