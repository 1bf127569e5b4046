package repository_test

import (
	"context"
	"testing"
	paymentserrors "turfbook/internal/payments/errors"
	"turfbook/internal/payments/repository"
	"turfbook/internal/testutil"
	"turfbook/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMongoPaymentRepository_OnePaymentPerBooking(t *testing.T) {
	h := testutil.NewMongoHelper(t)
	payments := repository.NewMongoPaymentRepository(h.Config(), h.Database)
	ctx := context.Background()

	const bookingID = "65c000000000000000000001"
	first := &model.Payment{BookingID: bookingID, Amount: 1000, Method: "upi", Status: model.PaymentSuccess, TransactionID: "txn-1"}
	require.NoError(t, payments.Create(ctx, first))
	assert.NotEmpty(t, first.ID)

	err := payments.Create(ctx, &model.Payment{BookingID: bookingID, Amount: 1000, Status: model.PaymentSuccess, TransactionID: "txn-2"})
	require.ErrorIs(t, err, paymentserrors.ErrDuplicate, "a booking is paid once")

	err = payments.Create(ctx, &model.Payment{BookingID: "65c000000000000000000002", Amount: 800, Status: model.PaymentSuccess, TransactionID: "txn-1"})
	require.ErrorIs(t, err, paymentserrors.ErrDuplicate, "a transaction settles one booking")

	stored, err := payments.FindByBookingID(ctx, bookingID)
	require.NoError(t, err)
	assert.Equal(t, "txn-1", stored.TransactionID)
	assert.Equal(t, first.ID, stored.ID)

	_, err = payments.FindByBookingID(ctx, "65c000000000000000000009")
	require.ErrorIs(t, err, paymentserrors.ErrNotFound)
}
