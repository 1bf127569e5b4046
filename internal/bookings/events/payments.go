package events

import (
	"context"
	apperrors "turfbook/pkg/errors"
	"turfbook/pkg/kafka"
	"turfbook/pkg/logger"
	"turfbook/pkg/model"
)

// PaymentResultMessage is the payload of the payment-results topic.
type PaymentResultMessage struct {
	BookingID     string  `json:"booking_id"`
	Success       bool    `json:"success"`
	TransactionID string  `json:"transaction_id"`
	Method        string  `json:"method,omitempty"`
	Amount        float64 `json:"amount,omitempty"`
}

func (m PaymentResultMessage) ConfirmRequest() *model.ConfirmRequest {
	return &model.ConfirmRequest{
		BookingID: m.BookingID,
		PaymentResult: model.PaymentResult{
			Success:       m.Success,
			TransactionID: m.TransactionID,
			Method:        m.Method,
			Amount:        m.Amount,
		},
	}
}

type Confirmer interface {
	Confirm(ctx context.Context, req *model.ConfirmRequest) (*model.Booking, error)
}

// PaymentResultHandler feeds payment results into Confirm. Storage outages
// come back as transient errors so the consumer retries them; rejected
// results are business errors and go to the DLQ.
func PaymentResultHandler(confirmer Confirmer, log *logger.Logger) kafka.MessageHandler {
	log = log.Component("payment-results")

	return func(ctx context.Context, msg kafka.Message) error {
		var result PaymentResultMessage
		if err := msg.DecodeValue(&result); err != nil {
			return kafka.NewPermanentError("deserialization failed", err)
		}

		booking, err := confirmer.Confirm(ctx, result.ConfirmRequest())
		if err == nil {
			log.Info("Payment result applied",
				"booking_id", booking.ID,
				"status", booking.Status,
				"transaction_id", result.TransactionID,
				"event_id", msg.GetEventID(),
			)
			return nil
		}

		appErr := apperrors.AsAppError(err)
		switch appErr.Code {
		case apperrors.CodeUnavailable, apperrors.CodeTimeout, apperrors.CodeInternal, apperrors.CodeUpstream:
			return kafka.NewTransientError("confirm failed", err)
		default:
			log.Warn("Payment result rejected",
				"booking_id", result.BookingID,
				"transaction_id", result.TransactionID,
				"code", appErr.Code,
				"error", appErr.Message,
			)
			return kafka.NewBusinessError("payment result rejected", err).WithDetail("code", appErr.Code)
		}
	}
}
