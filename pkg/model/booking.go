package model

import (
	"time"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

// BookingPaymentState tracks payment progress as seen from the booking.
type BookingPaymentState string

const (
	PaymentStatePending BookingPaymentState = "pending"
	PaymentStatePaid    BookingPaymentState = "paid"
	PaymentStateFailed  BookingPaymentState = "failed"
	PaymentStateWaived  BookingPaymentState = "waived"
)

const (
	CancelReasonPaymentFailed = "payment_failed"
	CancelReasonHoldExpired   = "hold_expired"
	CancelReasonByUser        = "cancelled_by_user"
	CancelReasonByOwner       = "cancelled_by_owner"
	CancelReasonByAdmin       = "cancelled_by_admin"
)

// Booking is one reservation of a turf slot on a date. ActiveSlot is true
// while the booking occupies the slot; the unique partial index over
// (turf_id, slot_id, date) only covers active bookings.
type Booking struct {
	ID              string              `json:"id,omitempty" bson:"_id,omitempty"`
	TurfID          string              `json:"turf_id" bson:"turf_id"`
	UserID          string              `json:"user_id" bson:"user_id"`
	SlotID          string              `json:"slot_id" bson:"slot_id"`
	Date            string              `json:"date" bson:"date"`
	StartTime       string              `json:"start_time" bson:"start_time"`
	EndTime         string              `json:"end_time" bson:"end_time"`
	NumberOfPlayers int                 `json:"number_of_players" bson:"number_of_players"`
	TotalPrice      float64             `json:"total_price" bson:"total_price"`
	Status          BookingStatus       `json:"status" bson:"status"`
	PaymentStatus   BookingPaymentState `json:"payment_status" bson:"payment_status"`
	PaymentID       string              `json:"payment_id,omitempty" bson:"payment_id,omitempty"`
	ActiveSlot      bool                `json:"-" bson:"active_slot"`
	HoldExpiresAt   *time.Time          `json:"hold_expires_at,omitempty" bson:"hold_expires_at,omitempty"`
	CancelReason    string              `json:"cancel_reason,omitempty" bson:"cancel_reason,omitempty"`
	CreatedAt       time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at" bson:"updated_at"`
}

// HoldsSlot reports whether the booking still occupies its slot at now.
func (b *Booking) HoldsSlot(now time.Time) bool {
	switch b.Status {
	case BookingConfirmed:
		return true
	case BookingPending:
		return !b.HoldExpired(now)
	default:
		return false
	}
}

func (b *Booking) HoldExpired(now time.Time) bool {
	return b.Status == BookingPending && (b.HoldExpiresAt == nil || !now.Before(*b.HoldExpiresAt))
}

type ReserveRequest struct {
	UserID          string `json:"user_id,omitempty" validate:"required,mongodb"`
	TurfID          string `json:"turf_id" validate:"required,mongodb"`
	SlotID          string `json:"slot_id" validate:"required,slot_id"`
	Date            string `json:"date" validate:"required,booking_date"`
	NumberOfPlayers int    `json:"number_of_players,omitempty" validate:"omitempty,min=1,max=100"`
}

// PaymentResult is what the payment gateway reports for a booking.
type PaymentResult struct {
	Success       bool    `json:"success"`
	TransactionID string  `json:"transaction_id" validate:"required_if=Success true,max=128"`
	Method        string  `json:"method,omitempty" validate:"omitempty,oneof=card upi netbanking wallet cash"`
	Amount        float64 `json:"amount,omitempty" validate:"gte=0"`
}

type ConfirmRequest struct {
	BookingID string `json:"booking_id" validate:"required,mongodb"`
	PaymentResult
}

type CancelRequest struct {
	Reason string `json:"reason,omitempty" validate:"omitempty,max=200"`
}

// BookingPage is one page of a ledger query.
type BookingPage struct {
	Bookings   []*Booking
	TotalCount int64
}
