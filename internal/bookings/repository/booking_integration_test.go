package repository_test

import (
	"context"
	"testing"
	"time"
	bookingserrors "turfbook/internal/bookings/errors"
	"turfbook/internal/bookings/repository"
	"turfbook/internal/testutil"
	"turfbook/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

const (
	turfID = "64b7f0c2a1b2c3d4e5f60718"
	userA  = "65a000000000000000000001"
	userB  = "65a000000000000000000002"
	slotID = "10:00-11:00"
	date   = "2026-03-02"
)

func newBookingRepo(t *testing.T) (repository.BookingRepository, *testutil.MongoHelper) {
	t.Helper()
	h := testutil.NewMongoHelper(t)
	return repository.NewMongoBookingRepository(h.Config(), h.Database, nil), h
}

func pendingHold(userID string, now time.Time, hold time.Duration) *model.Booking {
	expires := now.Add(hold)
	return &model.Booking{
		TurfID:          turfID,
		UserID:          userID,
		SlotID:          slotID,
		Date:            date,
		StartTime:       "10:00",
		EndTime:         "11:00",
		NumberOfPlayers: 1,
		TotalPrice:      1000,
		Status:          model.BookingPending,
		PaymentStatus:   model.PaymentStatePending,
		ActiveSlot:      true,
		HoldExpiresAt:   &expires,
		CreatedAt:       now,
	}
}

func TestMongoBookingRepository_ActiveSlotIsUnique(t *testing.T) {
	repo, h := newBookingRepo(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	first := pendingHold(userA, now, 10*time.Minute)
	require.NoError(t, repo.Insert(ctx, first))
	assert.NotEmpty(t, first.ID)

	err := repo.Insert(ctx, pendingHold(userB, now, 10*time.Minute))
	require.ErrorIs(t, err, bookingserrors.ErrSlotTaken)

	otherDay := pendingHold(userB, now, 10*time.Minute)
	otherDay.Date = "2026-03-03"
	require.NoError(t, repo.Insert(ctx, otherDay))

	assert.EqualValues(t, 1, h.CountDocuments(t, repository.CollectionName, bson.M{"date": date}))
}

func TestMongoBookingRepository_CancelledBookingFreesSlot(t *testing.T) {
	repo, h := newBookingRepo(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	first := pendingHold(userA, now, 10*time.Minute)
	require.NoError(t, repo.Insert(ctx, first))

	cancelled, err := repo.Transition(ctx, first.ID, model.BookingPending, repository.StatusChange{
		To:           model.BookingCancelled,
		CancelReason: model.CancelReasonByUser,
		At:           now,
	})
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, cancelled.Status)
	assert.False(t, cancelled.ActiveSlot)

	second := pendingHold(userB, now, 10*time.Minute)
	require.NoError(t, repo.Insert(ctx, second))

	assert.EqualValues(t, 2, h.CountDocuments(t, repository.CollectionName, bson.M{"slot_id": slotID, "date": date}))
	assert.EqualValues(t, 1, h.CountDocuments(t, repository.CollectionName, bson.M{"active_slot": true}))
}

func TestMongoBookingRepository_TransitionIsCompareAndSet(t *testing.T) {
	repo, _ := newBookingRepo(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	booking := pendingHold(userA, now, 10*time.Minute)
	require.NoError(t, repo.Insert(ctx, booking))

	_, err := repo.Transition(ctx, booking.ID, model.BookingPending, repository.StatusChange{
		To:              model.BookingConfirmed,
		PaymentStatus:   model.PaymentStatePaid,
		At:              now.Add(11 * time.Minute),
		RequireLiveHold: true,
	})
	require.ErrorIs(t, err, bookingserrors.ErrStatusChanged, "an expired hold must not confirm")

	confirmed, err := repo.Transition(ctx, booking.ID, model.BookingPending, repository.StatusChange{
		To:              model.BookingConfirmed,
		PaymentStatus:   model.PaymentStatePaid,
		PaymentID:       "65b000000000000000000001",
		At:              now.Add(time.Minute),
		RequireLiveHold: true,
	})
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, confirmed.Status)
	assert.Equal(t, model.PaymentStatePaid, confirmed.PaymentStatus)
	assert.True(t, confirmed.ActiveSlot)

	_, err = repo.Transition(ctx, booking.ID, model.BookingPending, repository.ExpireHoldChange(now.Add(time.Hour)))
	require.ErrorIs(t, err, bookingserrors.ErrStatusChanged, "the loser of the race sees the new status")

	stored, err := repo.FindByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, stored.Status)
}

func TestMongoBookingRepository_ReleaseExpiredHold(t *testing.T) {
	repo, _ := newBookingRepo(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	live := pendingHold(userA, now, 10*time.Minute)
	require.NoError(t, repo.Insert(ctx, live))

	_, err := repo.ReleaseExpiredHold(ctx, turfID, slotID, date, now)
	require.ErrorIs(t, err, bookingserrors.ErrNotFound, "a live hold is not released")

	released, err := repo.ReleaseExpiredHold(ctx, turfID, slotID, date, now.Add(10*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, live.ID, released.ID)
	assert.Equal(t, model.BookingCancelled, released.Status)
	assert.Equal(t, model.CancelReasonHoldExpired, released.CancelReason)
	assert.False(t, released.ActiveSlot)

	_, err = repo.ReleaseExpiredHold(ctx, turfID, slotID, date, now.Add(10*time.Minute))
	require.ErrorIs(t, err, bookingserrors.ErrNotFound)

	require.NoError(t, repo.Insert(ctx, pendingHold(userB, now, 10*time.Minute)))
}

func TestMongoBookingRepository_FindExpiredHoldsAndLedger(t *testing.T) {
	repo, _ := newBookingRepo(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	expired := pendingHold(userA, now.Add(-time.Hour), 10*time.Minute)
	require.NoError(t, repo.Insert(ctx, expired))
	live := pendingHold(userA, now, 10*time.Minute)
	live.SlotID = "11:00-12:00"
	require.NoError(t, repo.Insert(ctx, live))

	holds, err := repo.FindExpiredHolds(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, holds, 1)
	assert.Equal(t, expired.ID, holds[0].ID)

	page, err := repo.Find(ctx, repository.LedgerFilter{UserID: userA}, 10, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, live.ID, page[0].ID, "newest first")

	count, err := repo.Count(ctx, repository.LedgerFilter{UserID: userB})
	require.NoError(t, err)
	assert.Zero(t, count)
}
