package model

import "time"

type PaymentStatus string

const (
	PaymentSuccess PaymentStatus = "success"
	PaymentPending PaymentStatus = "pending"
)

// Payment is immutable once its status is success.
type Payment struct {
	ID            string        `json:"id,omitempty" bson:"_id,omitempty"`
	BookingID     string        `json:"booking_id" bson:"booking_id"`
	Amount        float64       `json:"amount" bson:"amount"`
	Method        string        `json:"method" bson:"method"`
	Status        PaymentStatus `json:"status" bson:"status"`
	TransactionID string        `json:"transaction_id" bson:"transaction_id"`
	CreatedAt     time.Time     `json:"created_at" bson:"created_at"`
}
