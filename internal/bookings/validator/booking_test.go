package validator

import (
	"testing"
	"turfbook/pkg/logger"
	"turfbook/pkg/model"
)

const (
	userID = "507f1f77bcf86cd799439011"
	turfID = "64b7f0c2a1b2c3d4e5f60718"
)

func TestValidateReserve(t *testing.T) {
	v := NewBookingValidator(logger.Discard())

	tests := []struct {
		name    string
		req     model.ReserveRequest
		wantErr bool
	}{
		{
			name: "valid",
			req:  model.ReserveRequest{UserID: userID, TurfID: turfID, SlotID: "06:00-07:00", Date: "2026-03-01"},
		},
		{
			name: "valid with players",
			req:  model.ReserveRequest{UserID: userID, TurfID: turfID, SlotID: "06:00-07:00", Date: "2026-03-01", NumberOfPlayers: 8},
		},
		{
			name:    "missing user",
			req:     model.ReserveRequest{TurfID: turfID, SlotID: "06:00-07:00", Date: "2026-03-01"},
			wantErr: true,
		},
		{
			name:    "turf id is not an object id",
			req:     model.ReserveRequest{UserID: userID, TurfID: "turf-1", SlotID: "06:00-07:00", Date: "2026-03-01"},
			wantErr: true,
		},
		{
			name:    "impossible date",
			req:     model.ReserveRequest{UserID: userID, TurfID: turfID, SlotID: "06:00-07:00", Date: "2026-02-30"},
			wantErr: true,
		},
		{
			name:    "slot id with spaces",
			req:     model.ReserveRequest{UserID: userID, TurfID: turfID, SlotID: "06 00", Date: "2026-03-01"},
			wantErr: true,
		},
		{
			name:    "too many players",
			req:     model.ReserveRequest{UserID: userID, TurfID: turfID, SlotID: "06:00-07:00", Date: "2026-03-01", NumberOfPlayers: 101},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateReserve(&tt.req)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateReserve() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateConfirm(t *testing.T) {
	v := NewBookingValidator(logger.Discard())

	tests := []struct {
		name    string
		req     model.ConfirmRequest
		wantErr bool
	}{
		{
			name: "success with transaction",
			req: model.ConfirmRequest{BookingID: turfID, PaymentResult: model.PaymentResult{
				Success: true, TransactionID: "txn_1", Method: "upi", Amount: 500,
			}},
		},
		{
			name: "failure without transaction",
			req:  model.ConfirmRequest{BookingID: turfID, PaymentResult: model.PaymentResult{Success: false}},
		},
		{
			name:    "success without transaction",
			req:     model.ConfirmRequest{BookingID: turfID, PaymentResult: model.PaymentResult{Success: true}},
			wantErr: true,
		},
		{
			name: "unknown method",
			req: model.ConfirmRequest{BookingID: turfID, PaymentResult: model.PaymentResult{
				Success: true, TransactionID: "txn_1", Method: "barter",
			}},
			wantErr: true,
		},
		{
			name: "negative amount",
			req: model.ConfirmRequest{BookingID: turfID, PaymentResult: model.PaymentResult{
				Success: true, TransactionID: "txn_1", Amount: -1,
			}},
			wantErr: true,
		},
		{
			name:    "missing booking",
			req:     model.ConfirmRequest{PaymentResult: model.PaymentResult{Success: false}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateConfirm(&tt.req)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConfirm() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
